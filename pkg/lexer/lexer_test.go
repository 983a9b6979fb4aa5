package lexer

import (
	"testing"

	"github.com/kartiknair/kale/pkg/token"
	"github.com/stretchr/testify/assert"
)

func TestLexerTokens(t *testing.T) {
	cases := []struct {
		src    string
		expect []token.Token
	}{
		{
			"def foo(a b) a+b;",
			[]token.Token{
				{Type: token.DEF, Lexeme: "def"},
				{Type: token.IDENTIFIER, Lexeme: "foo"},
				{Type: token.CHAR, Char: '(', Lexeme: "("},
				{Type: token.IDENTIFIER, Lexeme: "a"},
				{Type: token.IDENTIFIER, Lexeme: "b"},
				{Type: token.CHAR, Char: ')', Lexeme: ")"},
				{Type: token.IDENTIFIER, Lexeme: "a"},
				{Type: token.CHAR, Char: '+', Lexeme: "+"},
				{Type: token.IDENTIFIER, Lexeme: "b"},
				{Type: token.CHAR, Char: ';', Lexeme: ";"},
				{Type: token.EOF},
			},
		},
		{
			"4.5 # a comment\n2",
			[]token.Token{
				{Type: token.NUMBER, Lexeme: "4.5", Number: 4.5},
				{Type: token.NUMBER, Lexeme: "2", Number: 2},
				{Type: token.EOF},
			},
		},
		{
			"var unary binary for in if then else extern",
			[]token.Token{
				{Type: token.VAR, Lexeme: "var"},
				{Type: token.UNARY, Lexeme: "unary"},
				{Type: token.BINARY, Lexeme: "binary"},
				{Type: token.FOR, Lexeme: "for"},
				{Type: token.IN, Lexeme: "in"},
				{Type: token.IF, Lexeme: "if"},
				{Type: token.THEN, Lexeme: "then"},
				{Type: token.ELSE, Lexeme: "else"},
				{Type: token.EXTERN, Lexeme: "extern"},
				{Type: token.EOF},
			},
		},
	}

	for _, c := range cases {
		l := NewFromString(c.src)
		var got []token.Token
		for {
			tok := l.Next()
			got = append(got, token.Token{Type: tok.Type, Lexeme: tok.Lexeme, Number: tok.Number, Char: tok.Char})
			if tok.Type == token.EOF {
				break
			}
		}
		assert.Equal(t, c.expect, got)
	}
}

// TestLexerTotality exercises property 1 from this module's testable
// properties: for any finite input the lexer eventually yields Eof,
// and keeps yielding it forever after.
func TestLexerTotality(t *testing.T) {
	l := NewFromString("4 + 5;")

	var sawEOF bool
	for i := 0; i < 64; i++ {
		tok := l.Next()
		if tok.Type == token.EOF {
			sawEOF = true
		}
	}

	assert.True(t, sawEOF)
	assert.Equal(t, token.EOF, l.Next().Type)
	assert.Equal(t, token.EOF, l.Next().Type)
}

func TestLexerEmptyInputIsImmediatelyEOF(t *testing.T) {
	l := NewFromString("")
	assert.Equal(t, token.EOF, l.Next().Type)
}
