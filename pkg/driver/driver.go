// Package driver implements the REPL loop: it owns every piece of
// process-wide state this module's components would otherwise reach
// for as a global — the operator table, the host IR module, the
// parser's lookahead, and the JIT engine — for the lifetime of one
// run, and threads it through the parser and code generator as an
// explicit value rather than letting any package below it keep its
// own globals.
package driver

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/repr"
	"github.com/kartiknair/kale/pkg/ast"
	"github.com/kartiknair/kale/pkg/codegen"
	"github.com/kartiknair/kale/pkg/config"
	"github.com/kartiknair/kale/pkg/jit"
	"github.com/kartiknair/kale/pkg/lexer"
	"github.com/kartiknair/kale/pkg/operator"
	"github.com/kartiknair/kale/pkg/parser"
	"github.com/llir/llvm/ir"
	"github.com/ztrue/tracerr"
)

// Context is the single struct that owns the operator table, the host
// module (via its Generator), the parser, and the JIT engine for one
// REPL process. Nothing here is a package-level variable.
type Context struct {
	Config  *config.Config
	Ops     *operator.Table
	Gen     *codegen.Generator
	Parser  *parser.Parser
	Engine  *jit.Engine
	Out     io.Writer
	debugOn bool
}

// New wires up a fresh Context reading from src and configured by cfg.
func New(src io.Reader, cfg *config.Config) *Context {
	ops := operator.New()
	lex := lexer.NewFromReader(src)

	return &Context{
		Config:  cfg,
		Ops:     ops,
		Gen:     codegen.New(ops, cfg),
		Parser:  parser.New(lex, ops),
		Engine:  jit.New(cfg.LLIPath),
		Out:     os.Stderr,
		debugOn: os.Getenv("KALE_DEBUG_AST") != "",
	}
}

// Run drives the REPL until the input is exhausted and always returns
// nil: parse, lowering and JIT failures are reported and the loop moves
// on to the next form. Each turn of the loop, including one that only
// consumes a bare ';' and the final one that finds EOF, prints a
// prompt. A missing lli is detected by cmd/kale before Run starts.
func (c *Context) Run() error {
	for {
		fmt.Fprint(c.Out, c.Config.Prompt)

		if c.Parser.AtEOF() {
			return nil
		}

		fn, err := c.Parser.ParseTop()
		if err != nil {
			fmt.Fprintln(c.Out, err)
			c.Parser.Recover()
			continue
		}
		if fn == nil {
			// a bare ';' — nothing to lower.
			continue
		}

		c.handleForm(fn)
	}
}

func (c *Context) handleForm(fn *ast.Function) {
	if c.debugOn {
		repr.Println(fn)
	}

	irFn, err := c.genWithRecover(fn)
	if err != nil {
		fmt.Fprintln(c.Out, err)
		return
	}

	c.dump(irFn)

	if fn.Body == nil || fn.Proto.Name != "" {
		// `extern` or a named `def`: installed in the module, nothing
		// to JIT yet.
		return
	}

	result, err := c.Engine.Run(c.Gen.Module, irFn)
	if err != nil {
		tracerr.PrintSourceColor(err)
		return
	}

	fmt.Fprintf(c.Out, "Evaluated to %f\n", result)
}

// genWithRecover converts an unexpected panic from the IR builder
// while a form is being lowered (an instruction it cannot build from
// the operands it is given, for instance) into an internal diagnostic
// instead of letting it cross the package boundary. Rendering IR to
// text happens later, in dump and in the JIT engine, outside this
// recovery. The
// distilled spec treats this class of failure as a bug in the
// lowering rules, not a user-facing error, so it is reported with a
// stack trace rather than the one-line syntax/semantic contract.
func (c *Context) genWithRecover(fn *ast.Function) (irFn *ir.Func, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = tracerr.Wrap(fmt.Errorf("internal: %v", r))
		}
	}()
	return c.Gen.GenFunction(fn)
}

func (c *Context) dump(fn *ir.Func) {
	if !c.Config.EmitIR {
		return
	}
	fmt.Fprintln(c.Out, fn.String())
}
