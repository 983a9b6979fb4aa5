package ast

import (
	"fmt"
	"strings"
)

// Expr is a Kaleidoscope expression. It is a pure tree: every node owns
// its children exclusively, with no sharing and no back-pointers, so
// nothing here needs a visitor — the code generator dispatches on the
// concrete type with a single type-switch.
type Expr interface {
	isExpr()
	String() string
}

type Number struct {
	Value float64
}

type Variable struct {
	Name string
}

type Binary struct {
	Op  byte
	LHS Expr
	RHS Expr
}

type Unary struct {
	Op      byte
	Operand Expr
}

type Call struct {
	Callee string
	Args   []Expr
}

type If struct {
	Cond Expr
	Then Expr
	Else Expr
}

type For struct {
	Var   string
	Start Expr
	End   Expr
	Step  Expr // nil means the default step of 1.0
	Body  Expr
}

// Binding is one name/initializer pair inside a Var expression. Init is
// nil when the source omitted an initializer, which defaults to 0.0.
type Binding struct {
	Name string
	Init Expr
}

type Var struct {
	Bindings []Binding
	Body     Expr
}

func (*Number) isExpr()   {}
func (*Variable) isExpr() {}
func (*Binary) isExpr()   {}
func (*Unary) isExpr()    {}
func (*Call) isExpr()     {}
func (*If) isExpr()       {}
func (*For) isExpr()      {}
func (*Var) isExpr()      {}

func (n *Number) String() string { return fmt.Sprintf("%v", n.Value) }
func (v *Variable) String() string { return v.Name }
func (b *Binary) String() string {
	return fmt.Sprintf("(%c %s %s)", b.Op, b.LHS.String(), b.RHS.String())
}
func (u *Unary) String() string { return fmt.Sprintf("(%c %s)", u.Op, u.Operand.String()) }
func (c *Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", c.Callee, strings.Join(args, ", "))
}
func (i *If) String() string {
	return fmt.Sprintf("if %s then %s else %s", i.Cond.String(), i.Then.String(), i.Else.String())
}
func (f *For) String() string {
	step := ""
	if f.Step != nil {
		step = ", " + f.Step.String()
	}
	return fmt.Sprintf("for %s = %s, %s%s in %s", f.Var, f.Start.String(), f.End.String(), step, f.Body.String())
}
func (v *Var) String() string {
	bindings := make([]string, len(v.Bindings))
	for i, b := range v.Bindings {
		if b.Init == nil {
			bindings[i] = b.Name
		} else {
			bindings[i] = fmt.Sprintf("%s = %s", b.Name, b.Init.String())
		}
	}
	return fmt.Sprintf("var %s in %s", strings.Join(bindings, ", "), v.Body.String())
}

// ProtoKind distinguishes a plain function prototype from the
// synthetic prototypes of user-defined operators.
type ProtoKind int

const (
	ProtoRegular ProtoKind = iota
	ProtoUnary
	ProtoBinary
)

// Prototype is a function signature: its name, its parameter names,
// and, for operator definitions, the operator's kind and precedence.
// For ProtoUnary/ProtoBinary prototypes Name carries the synthetic
// "unary"+c or "binary"+c form and OperatorChar carries the bare
// operator character.
type Prototype struct {
	Name         string
	Params       []string
	Kind         ProtoKind
	OperatorChar byte
	Precedence   int
}

func (p *Prototype) IsUnaryOp() bool  { return p.Kind == ProtoUnary }
func (p *Prototype) IsBinaryOp() bool { return p.Kind == ProtoBinary }
func (p *Prototype) IsOperator() bool { return p.Kind != ProtoRegular }

func (p *Prototype) String() string {
	return fmt.Sprintf("%s(%s)", p.Name, strings.Join(p.Params, ", "))
}

// Function is a prototype paired with the single expression that is
// its body. A top-level expression is represented as a Function whose
// Prototype has an empty name and no parameters.
type Function struct {
	Proto *Prototype
	Body  Expr
}

func (f *Function) String() string {
	return fmt.Sprintf("def %s %s", f.Proto.String(), f.Body.String())
}

// IsAnonymous reports whether f represents a bare top-level expression
// rather than a named `def`.
func (f *Function) IsAnonymous() bool {
	return f.Proto.Name == ""
}
