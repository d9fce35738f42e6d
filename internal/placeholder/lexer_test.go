package placeholder

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexer_PlainText(t *testing.T) {
	input := "The bugs themselves."
	tokens, err := NewLexer(input, "").Tokenize()
	require.NoError(t, err, "unexpected error")

	require.Len(t, tokens, 2, "expected 2 tokens") // TEXT + EOF
	assert.Equal(t, TokenText, tokens[0].Type, "expected TEXT")
	assert.Equal(t, input, tokens[0].Value, "expected input value")
	assert.Equal(t, TokenEOF, tokens[1].Type, "expected EOF")
}

func TestLexer_Placeholders(t *testing.T) {
	input := "%(VERSION_STRING)sforeign key %(column-bugs-bug_id)s, 100%% done"
	tokens, err := NewLexer(input, "").Tokenize()
	require.NoError(t, err, "unexpected error")

	expected := []struct {
		typ TokenType
		val string
	}{
		{TokenKey, "VERSION_STRING"},
		{TokenText, "foreign key "},
		{TokenKey, "column-bugs-bug_id"},
		{TokenText, ", 100"},
		{TokenPercent, "%"},
		{TokenText, " done"},
		{TokenEOF, ""},
	}

	require.Len(t, tokens, len(expected), "wrong number of tokens")
	for i, exp := range expected {
		assert.Equal(t, exp.typ, tokens[i].Type, "token[%d] type", i)
		assert.Equal(t, exp.val, tokens[i].Value, "token[%d] value", i)
	}
}

func TestLexer_Positions(t *testing.T) {
	input := "line one\nsee %(table-bugs)s"
	tokens, err := NewLexer(input, "remark").Tokenize()
	require.NoError(t, err)
	require.Len(t, tokens, 3)

	key := tokens[1]
	assert.Equal(t, TokenKey, key.Type)
	assert.Equal(t, 2, key.Pos.Line)
	assert.Equal(t, 5, key.Pos.Column)
	assert.Equal(t, 13, key.Pos.Offset)
	assert.Equal(t, "remark", key.Pos.Source)
}

func TestLexer_Errors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		errMsg string
		col    int
	}{
		{"stray percent", "50% of bugs", "stray '%'", 3},
		{"trailing percent", "oops %", "stray '%'", 6},
		{"unclosed", "see %(table-bugs", "unclosed placeholder", 5},
		{"unclosed before newline", "%(table\n-bugs)s", "unclosed placeholder", 1},
		{"missing s", "%(table-bugs)d", "must end with ')s'", 1},
		{"missing s at end", "%(table-bugs)", "must end with ')s'", 1},
		{"empty key", "x %()s", "empty placeholder key", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLexer(tt.input, "").Tokenize()
			require.Error(t, err)

			var se *SyntaxError
			require.True(t, errors.As(err, &se), "expected SyntaxError, got %T", err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.Equal(t, tt.col, se.Position().Column)
		})
	}
}

func TestTokenTypeString(t *testing.T) {
	assert.Equal(t, "KEY", TokenKey.String())
	assert.Equal(t, "UNKNOWN", TokenType(99).String())
}
