package lexer_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/libklein/hackjack/internal/lexer"
	"github.com/libklein/hackjack/internal/token"
)

func scanAll(t *testing.T, src string) []token.Token {
	t.Helper()
	l := lexer.New(strings.NewReader(src))
	var toks []token.Token
	for l.Scan() {
		toks = append(toks, l.Token())
	}
	require.NoError(t, l.Err())
	return toks
}

func TestLexer_KeywordsSymbolsIdentifiers(t *testing.T) {
	toks := scanAll(t, "class Foo { field int x; }")
	require.Equal(t, []string{"class", "Foo", "{", "field", "int", "x", ";", "}"}, terminals(toks))
	require.Equal(t, token.Keyword, toks[0].Type)
	require.Equal(t, token.Identifier, toks[1].Type)
	require.Equal(t, token.Symbol, toks[2].Type)
}

func TestLexer_IntegerConstant(t *testing.T) {
	toks := scanAll(t, "42")
	require.Len(t, toks, 1)
	require.Equal(t, token.IntConst, toks[0].Type)
	require.Equal(t, 42, toks[0].Int())
}

func TestLexer_IntegerConstantOutOfRangeIsError(t *testing.T) {
	l := lexer.New(strings.NewReader("32768"))
	require.False(t, l.Scan())
	require.Error(t, l.Err())
}

func TestLexer_StringConstantStripsQuotes(t *testing.T) {
	toks := scanAll(t, `"hello world"`)
	require.Len(t, toks, 1)
	require.Equal(t, token.StrConst, toks[0].Type)
	require.Equal(t, "hello world", toks[0].Terminal)
}

func TestLexer_StripsLineComments(t *testing.T) {
	toks := scanAll(t, "let x = 1; // assign x\nlet y = 2;")
	require.Equal(t, []string{"let", "x", "=", "1", ";", "let", "y", "=", "2", ";"}, terminals(toks))
}

func TestLexer_StripsBlockComments(t *testing.T) {
	toks := scanAll(t, "let /* comment\nspans lines */ x = 1;")
	require.Equal(t, []string{"let", "x", "=", "1", ";"}, terminals(toks))
}

func TestLexer_UnclosedBlockCommentIsError(t *testing.T) {
	l := lexer.New(strings.NewReader("let x = 1; /* never closed"))
	for l.Scan() {
	}
	require.Error(t, l.Err())
}

func terminals(toks []token.Token) []string {
	out := make([]string, len(toks))
	for i, tok := range toks {
		out[i] = tok.Terminal
	}
	return out
}
