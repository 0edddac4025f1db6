package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func collect(src string) []Token {
	s := New(src)
	var toks []Token
	for {
		tok := s.NextToken()
		toks = append(toks, tok)
		if tok.Type == EOF || tok.Type == Error {
			break
		}
	}
	return toks
}

func TestScannerKeywords(t *testing.T) {
	toks := collect(`class fun if else while for var return print true false nil and or this super break continue`)
	want := []TokenType{Class, Fun, If, Else, While, For, Var, Return, Print, True, False, Nil, And, Or, This, Super, Break, Continue, EOF}
	require.Len(t, toks, len(want))
	for i, w := range want {
		require.Equalf(t, w, toks[i].Type, "token %d (%q)", i, toks[i].Lexeme)
	}
}

func TestScannerNumberAndString(t *testing.T) {
	toks := collect(`123 45.6 "hello world"`)
	require.Equal(t, Number, toks[0].Type)
	require.Equal(t, "123", toks[0].Lexeme)
	require.Equal(t, Number, toks[1].Type)
	require.Equal(t, "45.6", toks[1].Lexeme)
	require.Equal(t, String, toks[2].Type)
	require.Equal(t, `"hello world"`, toks[2].Lexeme)
}

func TestScannerTwoCharOperators(t *testing.T) {
	toks := collect(`== != <= >= << >>`)
	want := []TokenType{EqualEqual, BangEqual, LessEqual, GreaterEqual, LessLess, GreaterGreater, EOF}
	for i, w := range want {
		require.Equal(t, w, toks[i].Type)
	}
}

func TestScannerSkipsCommentsAndWhitespace(t *testing.T) {
	toks := collect("// a comment\n  1 + 2 // trailing\n")
	require.Equal(t, Number, toks[0].Type)
	require.Equal(t, Plus, toks[1].Type)
	require.Equal(t, Number, toks[2].Type)
	require.Equal(t, EOF, toks[3].Type)
}

func TestScannerUnterminatedString(t *testing.T) {
	toks := collect(`"unterminated`)
	require.Equal(t, Error, toks[0].Type)
	require.Contains(t, toks[0].Lexeme, "Unterminated")
}

func TestScannerLineTracking(t *testing.T) {
	s := New("1\n2\n3")
	first := s.NextToken()
	second := s.NextToken()
	third := s.NextToken()
	require.Equal(t, 1, first.Line)
	require.Equal(t, 2, second.Line)
	require.Equal(t, 3, third.Line)
}
