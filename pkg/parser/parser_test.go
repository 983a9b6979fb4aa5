package parser

import (
	"testing"

	"github.com/kartiknair/kale/pkg/ast"
	"github.com/kartiknair/kale/pkg/lexer"
	"github.com/kartiknair/kale/pkg/operator"
	"github.com/stretchr/testify/assert"
)

func parse(t *testing.T, src string) *ast.Function {
	t.Helper()
	p := New(lexer.NewFromString(src), operator.New())
	fn, err := p.ParseTop()
	assert.NoError(t, err)
	assert.NotNil(t, fn)
	return fn
}

func TestParseTopLevelExpressionIsAnonymous(t *testing.T) {
	fn := parse(t, "4 + 5;")
	assert.True(t, fn.IsAnonymous())
	assert.Equal(t, "(+ 4 5)", fn.Body.String())
}

// TestPrecedenceLeftAssociatesEqualOperators exercises testable
// property 3: equal-precedence operators associate left.
func TestPrecedenceLeftAssociatesEqualOperators(t *testing.T) {
	fn := parse(t, "1 + 2 - 3;")
	assert.Equal(t, "(- (+ 1 2) 3)", fn.Body.String())
}

func TestPrecedenceHigherBindsTighter(t *testing.T) {
	fn := parse(t, "1 + 2 * 3;")
	assert.Equal(t, "(+ 1 (* 2 3))", fn.Body.String())
}

func TestUnaryPrefixAppliesAtPrimaryPosition(t *testing.T) {
	fn := parse(t, "-4 + 5;")
	binary, ok := fn.Body.(*ast.Binary)
	assert.True(t, ok)
	assert.Equal(t, byte('+'), binary.Op)

	unary, ok := binary.LHS.(*ast.Unary)
	assert.True(t, ok)
	assert.Equal(t, byte('-'), unary.Op)
}

func TestParseDefinitionAndCall(t *testing.T) {
	fn := parse(t, "def foo(a b) a*a + 2*a*b + b*b;")
	assert.Equal(t, "foo", fn.Proto.Name)
	assert.Equal(t, []string{"a", "b"}, fn.Proto.Params)

	p := New(lexer.NewFromString("foo(1, 2);"), operator.New())
	call, err := p.ParseTop()
	assert.NoError(t, err)
	c, ok := call.Body.(*ast.Call)
	assert.True(t, ok)
	assert.Equal(t, "foo", c.Callee)
	assert.Len(t, c.Args, 2)
}

func TestParseIf(t *testing.T) {
	fn := parse(t, "if n < 2 then n else n;")
	ifExpr, ok := fn.Body.(*ast.If)
	assert.True(t, ok)
	assert.NotNil(t, ifExpr.Cond)
	assert.NotNil(t, ifExpr.Then)
	assert.NotNil(t, ifExpr.Else)
}

func TestParseForWithDefaultStep(t *testing.T) {
	fn := parse(t, "for i = 1, i < 10 in i;")
	forExpr, ok := fn.Body.(*ast.For)
	assert.True(t, ok)
	assert.Equal(t, "i", forExpr.Var)
	assert.Nil(t, forExpr.Step)
}

func TestParseForWithExplicitStep(t *testing.T) {
	fn := parse(t, "for i = 1, i < 10, 2 in i;")
	forExpr, ok := fn.Body.(*ast.For)
	assert.True(t, ok)
	assert.NotNil(t, forExpr.Step)
}

func TestParseVarWithMultipleBindings(t *testing.T) {
	fn := parse(t, "var a = 1, b in a + b;")
	varExpr, ok := fn.Body.(*ast.Var)
	assert.True(t, ok)
	assert.Len(t, varExpr.Bindings, 2)
	assert.Equal(t, "a", varExpr.Bindings[0].Name)
	assert.NotNil(t, varExpr.Bindings[0].Init)
	assert.Equal(t, "b", varExpr.Bindings[1].Name)
	assert.Nil(t, varExpr.Bindings[1].Init)
}

func TestParseVarMissingInIsError(t *testing.T) {
	p := New(lexer.NewFromString("var a = 1 a;"), operator.New())
	_, err := p.ParseTop()
	assert.Error(t, err)
}

// TestOperatorExtensibility exercises testable property 4: once a
// binary operator is installed in the shared table, a later parse
// honors its precedence.
func TestOperatorExtensibility(t *testing.T) {
	ops := operator.New()
	ops.Define(':', 1)

	p := New(lexer.NewFromString("x : y + z;"), ops)
	fn, err := p.ParseTop()
	assert.NoError(t, err)

	// ':' has lower precedence than '+', so it should be the outermost node.
	top, ok := fn.Body.(*ast.Binary)
	assert.True(t, ok)
	assert.Equal(t, byte(':'), top.Op)
}

func TestParseBinaryOperatorPrototype(t *testing.T) {
	p := New(lexer.NewFromString("def binary : 1 (x y) y;"), operator.New())
	fn, err := p.ParseTop()
	assert.NoError(t, err)
	assert.Equal(t, "binary:", fn.Proto.Name)
	assert.Equal(t, ast.ProtoBinary, fn.Proto.Kind)
	assert.Equal(t, byte(':'), fn.Proto.OperatorChar)
	assert.Equal(t, 1, fn.Proto.Precedence)
}

func TestParseUnaryOperatorPrototype(t *testing.T) {
	p := New(lexer.NewFromString("def unary!(x) 0-x;"), operator.New())
	fn, err := p.ParseTop()
	assert.NoError(t, err)
	assert.Equal(t, "unary!", fn.Proto.Name)
	assert.Equal(t, ast.ProtoUnary, fn.Proto.Kind)
}

func TestBareSemicolonYieldsNothing(t *testing.T) {
	p := New(lexer.NewFromString(";"), operator.New())
	fn, err := p.ParseTop()
	assert.NoError(t, err)
	assert.Nil(t, fn)
}

func TestParserRecoversAfterError(t *testing.T) {
	p := New(lexer.NewFromString(", 4;"), operator.New())
	_, err := p.ParseTop()
	assert.Error(t, err)

	p.Recover()
	fn, err := p.ParseTop()
	assert.NoError(t, err)
	assert.Equal(t, "4", fn.Body.String())
}
