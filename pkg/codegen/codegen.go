// Package codegen lowers Kaleidoscope's AST to LLVM IR using
// github.com/llir/llvm's pure-Go IR builder.
package codegen

import (
	"fmt"

	"github.com/kartiknair/kale/pkg/ast"
	"github.com/kartiknair/kale/pkg/config"
	"github.com/kartiknair/kale/pkg/operator"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// Generator owns the single host module that accumulates every
// function a REPL session defines, plus the per-function state needed
// to lower one body at a time. It is never a package-level global:
// the driver constructs exactly one Generator and holds it for the
// lifetime of the process, per this module's explicit-Context design.
type Generator struct {
	Module *ir.Module
	Config *config.Config

	ops *operator.Table

	// locals is the codegen-local symbol table: variable name to the
	// entry-block alloca holding its current value. It is cleared at
	// the start of every function and mutated by save-and-restore as
	// for/var scopes are entered and left.
	locals map[string]value.Value

	curFunc  *ir.Func
	entry    *ir.Block
	curBlock *ir.Block

	anonCount int
}

// New constructs a Generator over a fresh, empty host module. ops is
// shared with the parser so a successful `binary` definition is
// immediately visible to the next parse.
func New(ops *operator.Table, cfg *config.Config) *Generator {
	return &Generator{
		Module: ir.NewModule(),
		Config: cfg,
		ops:    ops,
		locals: make(map[string]value.Value),
	}
}

func (g *Generator) lookupFunc(name string) *ir.Func {
	for _, f := range g.Module.Funcs {
		if f.Name() == name {
			return f
		}
	}
	return nil
}

// GenFunction lowers fn into the host module. For an `extern`
// prototype with no body, this only installs (or reuses) the
// declaration. A nil *ir.Func with a nil error is never returned: a
// function is either lowered or an error explains why not.
func (g *Generator) GenFunction(fn *ast.Function) (*ir.Func, error) {
	if fn.Body == nil {
		return g.genPrototype(fn.Proto)
	}

	g.locals = make(map[string]value.Value)

	proto := fn.Proto
	if fn.IsAnonymous() {
		anon := *proto
		anon.Name = fmt.Sprintf("__anon_expr%d", g.anonCount)
		g.anonCount++
		proto = &anon
	}

	irFn, err := g.genPrototype(proto)
	if err != nil {
		return nil, err
	}

	installedPrecedence := false
	if fn.Proto.IsBinaryOp() {
		g.ops.Define(fn.Proto.OperatorChar, fn.Proto.Precedence)
		installedPrecedence = true
	}

	entry := irFn.NewBlock("entry")
	g.curFunc, g.entry, g.curBlock = irFn, entry, entry

	for i, name := range proto.Params {
		alloca := entry.NewAlloca(types.Double)
		entry.NewStore(irFn.Params[i], alloca)
		g.locals[name] = alloca
	}

	bodyVal, err := g.genExpr(fn.Body)
	if err != nil {
		g.eraseFunc(irFn)
		if installedPrecedence {
			g.ops.Remove(fn.Proto.OperatorChar)
		}
		return nil, err
	}

	g.curBlock.NewRet(bodyVal)
	g.optimize(irFn)
	return irFn, nil
}

func (g *Generator) eraseFunc(fn *ir.Func) {
	funcs := g.Module.Funcs[:0]
	for _, f := range g.Module.Funcs {
		if f != fn {
			funcs = append(funcs, f)
		}
	}
	g.Module.Funcs = funcs
}

// genPrototype implements prototype lowering: create the function, or
// reuse a prior pure declaration, enforcing the redefinition rules.
func (g *Generator) genPrototype(proto *ast.Prototype) (*ir.Func, error) {
	params := make([]*ir.Param, len(proto.Params))
	for i, name := range proto.Params {
		params[i] = ir.NewParam(name, types.Double)
	}

	if existing := g.lookupFunc(proto.Name); existing != nil {
		if len(existing.Blocks) != 0 {
			return nil, fmt.Errorf("redefinition of function")
		}
		if len(existing.Params) != len(params) {
			return nil, fmt.Errorf("redefinition of function with different # args")
		}
		return existing, nil
	}

	return g.Module.NewFunc(proto.Name, types.Double, params...), nil
}

func (g *Generator) genExpr(e ast.Expr) (value.Value, error) {
	switch e := e.(type) {
	case *ast.Number:
		return constant.NewFloat(types.Double, e.Value), nil
	case *ast.Variable:
		return g.genVariable(e)
	case *ast.Binary:
		return g.genBinary(e)
	case *ast.Unary:
		return g.genUnary(e)
	case *ast.Call:
		return g.genCall(e)
	case *ast.If:
		return g.genIf(e)
	case *ast.For:
		return g.genFor(e)
	case *ast.Var:
		return g.genVar(e)
	default:
		return nil, fmt.Errorf("unhandled expression %T", e)
	}
}

func (g *Generator) genVariable(v *ast.Variable) (value.Value, error) {
	alloca, ok := g.locals[v.Name]
	if !ok {
		return nil, fmt.Errorf("unknown variable name")
	}
	return g.curBlock.NewLoad(types.Double, alloca), nil
}

func (g *Generator) genBinary(b *ast.Binary) (value.Value, error) {
	if b.Op == '=' {
		target, ok := b.LHS.(*ast.Variable)
		if !ok {
			return nil, fmt.Errorf("destination of '=' must be a variable")
		}

		rhs, err := g.genExpr(b.RHS)
		if err != nil {
			return nil, err
		}

		alloca, ok := g.locals[target.Name]
		if !ok {
			return nil, fmt.Errorf("unknown variable name")
		}

		g.curBlock.NewStore(rhs, alloca)
		return rhs, nil
	}

	lhs, err := g.genExpr(b.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := g.genExpr(b.RHS)
	if err != nil {
		return nil, err
	}

	switch b.Op {
	case '+':
		return g.curBlock.NewFAdd(lhs, rhs), nil
	case '-':
		return g.curBlock.NewFSub(lhs, rhs), nil
	case '*':
		return g.curBlock.NewFMul(lhs, rhs), nil
	case '<':
		cmp := g.curBlock.NewFCmp(enum.FPredULT, lhs, rhs)
		return g.curBlock.NewUIToFP(cmp, types.Double), nil
	}

	fn := g.lookupFunc("binary" + string(b.Op))
	if fn == nil {
		return nil, fmt.Errorf("invalid binary operator")
	}
	return g.curBlock.NewCall(fn, lhs, rhs), nil
}

func (g *Generator) genUnary(u *ast.Unary) (value.Value, error) {
	operand, err := g.genExpr(u.Operand)
	if err != nil {
		return nil, err
	}

	fn := g.lookupFunc("unary" + string(u.Op))
	if fn == nil {
		return nil, fmt.Errorf("unknown unary operator")
	}
	return g.curBlock.NewCall(fn, operand), nil
}

func (g *Generator) genCall(c *ast.Call) (value.Value, error) {
	fn := g.lookupFunc(c.Callee)
	if fn == nil {
		fn = g.ensureRuntimeFunc(c.Callee)
	}
	if fn == nil {
		return nil, fmt.Errorf("unknown function referenced")
	}
	if len(fn.Params) != len(c.Args) {
		return nil, fmt.Errorf("incorrect number of arguments passed")
	}

	args := make([]value.Value, len(c.Args))
	for i, a := range c.Args {
		v, err := g.genExpr(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	return g.curBlock.NewCall(fn, args...), nil
}

func (g *Generator) genIf(e *ast.If) (value.Value, error) {
	cond, err := g.genExpr(e.Cond)
	if err != nil {
		return nil, err
	}
	test := g.curBlock.NewFCmp(enum.FPredONE, cond, constant.NewFloat(types.Double, 0))

	thenBlock := g.curFunc.NewBlock("")
	elseBlock := g.curFunc.NewBlock("")
	mergeBlock := g.curFunc.NewBlock("")
	g.curBlock.NewCondBr(test, thenBlock, elseBlock)

	g.curBlock = thenBlock
	thenVal, err := g.genExpr(e.Then)
	if err != nil {
		return nil, err
	}
	g.curBlock.NewBr(mergeBlock)
	thenEnd := g.curBlock

	g.curBlock = elseBlock
	elseVal, err := g.genExpr(e.Else)
	if err != nil {
		return nil, err
	}
	g.curBlock.NewBr(mergeBlock)
	elseEnd := g.curBlock

	g.curBlock = mergeBlock
	phi := mergeBlock.NewPhi(
		ir.NewIncoming(thenVal, thenEnd),
		ir.NewIncoming(elseVal, elseEnd),
	)
	return phi, nil
}

// genFor always lowers to the alloca form: this module supports `=`
// and `var`, so every mutable local, loop counters included, has to
// be a real memory slot rather than an SSA phi.
func (g *Generator) genFor(e *ast.For) (value.Value, error) {
	start, err := g.genExpr(e.Start)
	if err != nil {
		return nil, err
	}

	alloca := g.entry.NewAlloca(types.Double)
	g.curBlock.NewStore(start, alloca)

	loopBlock := g.curFunc.NewBlock("")
	afterBlock := g.curFunc.NewBlock("")
	g.curBlock.NewBr(loopBlock)
	g.curBlock = loopBlock

	oldVal, hadOld := g.locals[e.Var]
	g.locals[e.Var] = alloca

	if _, err := g.genExpr(e.Body); err != nil {
		return nil, err
	}

	var step value.Value
	if e.Step != nil {
		step, err = g.genExpr(e.Step)
		if err != nil {
			return nil, err
		}
	} else {
		step = constant.NewFloat(types.Double, 1.0)
	}

	end, err := g.genExpr(e.End)
	if err != nil {
		return nil, err
	}

	cur := g.curBlock.NewLoad(types.Double, alloca)
	next := g.curBlock.NewFAdd(cur, step)
	g.curBlock.NewStore(next, alloca)

	test := g.curBlock.NewFCmp(enum.FPredONE, end, constant.NewFloat(types.Double, 0))
	g.curBlock.NewCondBr(test, loopBlock, afterBlock)
	g.curBlock = afterBlock

	if hadOld {
		g.locals[e.Var] = oldVal
	} else {
		delete(g.locals, e.Var)
	}

	return constant.NewFloat(types.Double, 0), nil
}

type shadow struct {
	name   string
	old    value.Value
	hadOld bool
}

// genVar implements the let*-style sequencing this module's Var
// lowering resolved on: each binding's name becomes visible before
// the next binding's initializer is lowered, but never before its
// own.
func (g *Generator) genVar(e *ast.Var) (value.Value, error) {
	var shadows []shadow

	for _, binding := range e.Bindings {
		var initVal value.Value
		var err error
		if binding.Init != nil {
			initVal, err = g.genExpr(binding.Init)
			if err != nil {
				return nil, err
			}
		} else {
			initVal = constant.NewFloat(types.Double, 0.0)
		}

		alloca := g.entry.NewAlloca(types.Double)
		g.curBlock.NewStore(initVal, alloca)

		old, hadOld := g.locals[binding.Name]
		shadows = append(shadows, shadow{name: binding.Name, old: old, hadOld: hadOld})
		g.locals[binding.Name] = alloca
	}

	bodyVal, err := g.genExpr(e.Body)
	if err != nil {
		return nil, err
	}

	for i := len(shadows) - 1; i >= 0; i-- {
		s := shadows[i]
		if s.hadOld {
			g.locals[s.name] = s.old
		} else {
			delete(g.locals, s.name)
		}
	}

	return bodyVal, nil
}

// ensureRuntimeFunc synthesizes putchard/printd bodies the first time
// either is referenced with no prior declaration: llir/llvm has no
// native-callback hook to bind them to Go functions the way a C++
// ExecutionEngine would, so their bodies are emitted as ordinary
// Kaleidoscope-module functions that call into libc.
func (g *Generator) ensureRuntimeFunc(name string) *ir.Func {
	switch name {
	case "putchard":
		return g.genPutchard()
	case "printd":
		return g.genPrintd()
	default:
		return nil
	}
}

func (g *Generator) libcFunc(name string, ret types.Type, variadic bool, params ...*ir.Param) *ir.Func {
	if fn := g.lookupFunc(name); fn != nil {
		return fn
	}
	fn := g.Module.NewFunc(name, ret, params...)
	fn.Sig.Variadic = variadic
	fn.Linkage = enum.LinkageExternal
	return fn
}

func (g *Generator) cString(raw string) constant.Constant {
	withNul := raw + "\x00"
	def := g.Module.NewGlobalDef("", constant.NewCharArrayFromString(withNul))
	def.Linkage = enum.LinkagePrivate
	return constant.NewGetElementPtr(
		types.NewArray(uint64(len(withNul)), types.I8),
		def,
		constant.NewInt(types.I32, 0),
		constant.NewInt(types.I32, 0),
	)
}

func (g *Generator) genPutchard() *ir.Func {
	putchar := g.libcFunc("putchar", types.I32, false, ir.NewParam("", types.I32))

	fn := g.Module.NewFunc("putchard", types.Double, ir.NewParam("x", types.Double))
	entry := fn.NewBlock("entry")
	asInt := entry.NewFPToUI(fn.Params[0], types.I32)
	entry.NewCall(putchar, asInt)
	entry.NewRet(constant.NewFloat(types.Double, 0))
	return fn
}

func (g *Generator) genPrintd() *ir.Func {
	printf := g.libcFunc("printf", types.I32, true, ir.NewParam("", types.I8Ptr))
	format := g.cString("%f\n")

	fn := g.Module.NewFunc("printd", types.Double, ir.NewParam("x", types.Double))
	entry := fn.NewBlock("entry")
	entry.NewCall(printf, format, fn.Params[0])
	entry.NewRet(constant.NewFloat(types.Double, 0))
	return fn
}
