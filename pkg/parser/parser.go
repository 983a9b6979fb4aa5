package parser

import (
	"fmt"

	"github.com/kartiknair/kale/pkg/ast"
	"github.com/kartiknair/kale/pkg/lexer"
	"github.com/kartiknair/kale/pkg/operator"
	"github.com/kartiknair/kale/pkg/token"
)

// Parser is a recursive-descent, one-token-lookahead parser over a
// Lexer. It never owns the operator table itself — the table is
// handed in at construction and shared with the code generator through
// the driver, so a successful `binary` definition is immediately
// visible to later parses in the same process.
type Parser struct {
	lex *lexer.Lexer
	ops *operator.Table
	cur token.Token
}

// New constructs a Parser and primes its one token of lookahead.
func New(lex *lexer.Lexer, ops *operator.Table) *Parser {
	p := &Parser{lex: lex, ops: ops}
	p.advance()
	return p
}

// AtEOF reports whether the parser has consumed the entire input.
func (p *Parser) AtEOF() bool {
	return p.cur.Type == token.EOF
}

// Recover implements the driver's token-level panic-mode recovery:
// after a parse error it consumes exactly one token so the next call
// to ParseTop has a chance to find the start of a fresh top-level
// form.
func (p *Parser) Recover() {
	if !p.AtEOF() {
		p.advance()
	}
}

func (p *Parser) advance() token.Token {
	old := p.cur
	p.cur = p.lex.Next()
	return old
}

func (p *Parser) isChar(c byte) bool {
	return p.cur.Type == token.CHAR && p.cur.Char == c
}

func (p *Parser) expectChar(c byte, what string) error {
	if !p.isChar(c) {
		return fmt.Errorf("expected %q %s, got %q", c, what, p.cur.Lexeme)
	}
	p.advance()
	return nil
}

func (p *Parser) expectIdent(what string) (string, error) {
	if p.cur.Type != token.IDENTIFIER {
		return "", fmt.Errorf("expected identifier %s, got %q", what, p.cur.Lexeme)
	}
	name := p.cur.Lexeme
	p.advance()
	return name, nil
}

// ParseTop parses exactly one top-level form: a bare `;`, a `def`, an
// `extern`, or a top-level expression. A bare `;` yields (nil, nil) —
// there is nothing for the driver to codegen.
func (p *Parser) ParseTop() (*ast.Function, error) {
	switch {
	case p.isChar(';'):
		p.advance()
		return nil, nil
	case p.cur.Type == token.DEF:
		return p.parseDefinition()
	case p.cur.Type == token.EXTERN:
		proto, err := p.parseExtern()
		if err != nil {
			return nil, err
		}
		return &ast.Function{Proto: proto, Body: nil}, nil
	default:
		return p.parseTopLevelExpr()
	}
}

func (p *Parser) parseDefinition() (*ast.Function, error) {
	p.advance() // 'def'
	proto, err := p.parsePrototype()
	if err != nil {
		return nil, err
	}
	body, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ast.Function{Proto: proto, Body: body}, nil
}

func (p *Parser) parseExtern() (*ast.Prototype, error) {
	p.advance() // 'extern'
	return p.parsePrototype()
}

func (p *Parser) parseTopLevelExpr() (*ast.Function, error) {
	body, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ast.Function{
		Proto: &ast.Prototype{Name: "", Params: nil, Kind: ast.ProtoRegular},
		Body:  body,
	}, nil
}

// prototype ::= ident '(' ident* ')'
//             | 'unary' CHAR '(' ident ')'
//             | 'binary' CHAR number? '(' ident ident ')'
func (p *Parser) parsePrototype() (*ast.Prototype, error) {
	var name string
	kind := ast.ProtoRegular
	var opChar byte
	precedence := 30 // default precedence for a binary op that omits one

	switch p.cur.Type {
	case token.IDENTIFIER:
		name = p.cur.Lexeme
		p.advance()
	case token.UNARY:
		p.advance()
		if p.cur.Type != token.CHAR {
			return nil, fmt.Errorf("expected an operator character after 'unary'")
		}
		opChar = p.cur.Char
		p.advance()
		kind = ast.ProtoUnary
		name = "unary" + string(opChar)
	case token.BINARY:
		p.advance()
		if p.cur.Type != token.CHAR {
			return nil, fmt.Errorf("expected an operator character after 'binary'")
		}
		opChar = p.cur.Char
		p.advance()
		kind = ast.ProtoBinary
		name = "binary" + string(opChar)

		if p.cur.Type == token.NUMBER {
			precedence = int(p.cur.Number)
			if precedence < 1 || precedence > 100 {
				return nil, fmt.Errorf("invalid precedence: must be 1..100")
			}
			p.advance()
		}
	default:
		return nil, fmt.Errorf("expected function name in prototype")
	}

	if err := p.expectChar('(', "to start the parameter list"); err != nil {
		return nil, err
	}

	var params []string
	for p.cur.Type == token.IDENTIFIER {
		params = append(params, p.cur.Lexeme)
		p.advance()
	}

	if err := p.expectChar(')', "to end the parameter list"); err != nil {
		return nil, err
	}

	if kind == ast.ProtoUnary && len(params) != 1 {
		return nil, fmt.Errorf("invalid number of operands for unary operator")
	}
	if kind == ast.ProtoBinary && len(params) != 2 {
		return nil, fmt.Errorf("invalid number of operands for binary operator")
	}

	return &ast.Prototype{
		Name:         name,
		Params:       params,
		Kind:         kind,
		OperatorChar: opChar,
		Precedence:   precedence,
	}, nil
}

// expression ::= unary binoprhs
func (p *Parser) parseExpression() (ast.Expr, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return p.parseBinOpRHS(0, lhs)
}

// binoprhs implements Pratt's precedence-climbing loop: it keeps
// folding `lhs op rhs` into a new lhs for as long as the next
// operator's precedence is at least minPrec.
func (p *Parser) parseBinOpRHS(minPrec int, lhs ast.Expr) (ast.Expr, error) {
	for {
		if p.cur.Type != token.CHAR {
			return lhs, nil
		}

		prec, ok := p.ops.Precedence(p.cur.Char)
		if !ok || prec < minPrec {
			return lhs, nil
		}

		op := p.cur.Char
		p.advance()

		rhs, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		if p.cur.Type == token.CHAR {
			nextPrec, ok := p.ops.Precedence(p.cur.Char)
			if ok && nextPrec > prec {
				rhs, err = p.parseBinOpRHS(prec+1, rhs)
				if err != nil {
					return nil, err
				}
			}
		}

		lhs = &ast.Binary{Op: op, LHS: lhs, RHS: rhs}
	}
}

// unary ::= primary | CHAR unary
// Any ASCII byte that isn't '(' or ',' is accepted as a unary prefix
// when a primary was expected, so `-x` parses as a unary `-` even
// though `-` also has a binary meaning elsewhere.
func (p *Parser) parseUnary() (ast.Expr, error) {
	if p.cur.Type != token.CHAR || p.isChar('(') || p.isChar(',') {
		return p.parsePrimary()
	}

	op := p.cur.Char
	p.advance()
	operand, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &ast.Unary{Op: op, Operand: operand}, nil
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	switch {
	case p.cur.Type == token.NUMBER:
		v := p.cur.Number
		p.advance()
		return &ast.Number{Value: v}, nil
	case p.cur.Type == token.IDENTIFIER:
		return p.parseIdentifierExpr()
	case p.isChar('('):
		return p.parseParenExpr()
	case p.cur.Type == token.IF:
		return p.parseIfExpr()
	case p.cur.Type == token.FOR:
		return p.parseForExpr()
	case p.cur.Type == token.VAR:
		return p.parseVarExpr()
	default:
		return nil, fmt.Errorf("unexpected token %q while expecting an expression", p.cur.Lexeme)
	}
}

// primary ::= ident | ident '(' args? ')'
func (p *Parser) parseIdentifierExpr() (ast.Expr, error) {
	name := p.cur.Lexeme
	p.advance()

	if !p.isChar('(') {
		return &ast.Variable{Name: name}, nil
	}

	p.advance() // '('
	var args []ast.Expr

	if !p.isChar(')') {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)

			if p.isChar(')') {
				break
			}
			if err := p.expectChar(',', "or ')' in argument list"); err != nil {
				return nil, err
			}
		}
	}

	if err := p.expectChar(')', "to end argument list"); err != nil {
		return nil, err
	}

	return &ast.Call{Callee: name, Args: args}, nil
}

func (p *Parser) parseParenExpr() (ast.Expr, error) {
	p.advance() // '('
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectChar(')', "to close parenthesized expression"); err != nil {
		return nil, err
	}
	return expr, nil
}

// primary ::= 'if' expression 'then' expression 'else' expression
func (p *Parser) parseIfExpr() (ast.Expr, error) {
	p.advance() // 'if'
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if p.cur.Type != token.THEN {
		return nil, fmt.Errorf("expected 'then'")
	}
	p.advance()
	then, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if p.cur.Type != token.ELSE {
		return nil, fmt.Errorf("expected 'else'")
	}
	p.advance()
	els, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ast.If{Cond: cond, Then: then, Else: els}, nil
}

// primary ::= 'for' ident '=' expression ',' expression
//                            (',' expression)? 'in' expression
func (p *Parser) parseForExpr() (ast.Expr, error) {
	p.advance() // 'for'

	name, err := p.expectIdent("after 'for'")
	if err != nil {
		return nil, err
	}

	if err := p.expectChar('=', "after the loop variable"); err != nil {
		return nil, err
	}

	start, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectChar(',', "after the start value in a for loop"); err != nil {
		return nil, err
	}

	end, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	var step ast.Expr
	if p.isChar(',') {
		p.advance()
		step, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}

	if p.cur.Type != token.IN {
		return nil, fmt.Errorf("expected 'in' after for")
	}
	p.advance()

	body, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	return &ast.For{Var: name, Start: start, End: end, Step: step, Body: body}, nil
}

// primary ::= 'var' binding (',' binding)* 'in' expression
// binding ::= ident ('=' expression)?
func (p *Parser) parseVarExpr() (ast.Expr, error) {
	p.advance() // 'var'

	if p.cur.Type != token.IDENTIFIER {
		return nil, fmt.Errorf("expected identifier after var")
	}

	var bindings []ast.Binding
	for {
		name, err := p.expectIdent("in var binding")
		if err != nil {
			return nil, err
		}

		var init ast.Expr
		if p.isChar('=') {
			p.advance()
			init, err = p.parseExpression()
			if err != nil {
				return nil, err
			}
		}

		bindings = append(bindings, ast.Binding{Name: name, Init: init})

		if !p.isChar(',') {
			break
		}
		p.advance()
	}

	if p.cur.Type != token.IN {
		return nil, fmt.Errorf("expected 'in' keyword after 'var'")
	}
	p.advance()

	body, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	return &ast.Var{Bindings: bindings, Body: body}, nil
}
