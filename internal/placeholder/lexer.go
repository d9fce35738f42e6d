package placeholder

import (
	"strings"
	"unicode/utf8"
)

// TokenType identifies the type of token.
type TokenType int

// TokenType constants for placeholder token types.
const (
	TokenText    TokenType = iota // Literal text
	TokenPercent                  // %% escape
	TokenKey                      // Key of a %(key)s placeholder
	TokenEOF                      // End of input
)

func (t TokenType) String() string {
	switch t {
	case TokenText:
		return "TEXT"
	case TokenPercent:
		return "PERCENT"
	case TokenKey:
		return "KEY"
	case TokenEOF:
		return "EOF"
	default:
		return "UNKNOWN"
	}
}

// Token represents a lexical token.
type Token struct {
	Type  TokenType
	Value string
	Pos   Position
}

// Lexer tokenizes remark text.
type Lexer struct {
	input    string
	source   string
	pos      int // current position in input
	line     int // current line number (1-based)
	col      int // current column number (1-based)
	lastPos  int // offset at start of current token
	lastLine int // line at start of current token
	lastCol  int // column at start of current token
}

// NewLexer creates a new lexer. source names the text in error messages
// and may be empty.
func NewLexer(input, source string) *Lexer {
	return &Lexer{
		input:  input,
		source: source,
		line:   1,
		col:    1,
	}
}

// Tokenize converts the input into a slice of tokens.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token

	for {
		tok, err := l.nextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
	}

	return tokens, nil
}

func (l *Lexer) nextToken() (Token, error) {
	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.position()}, nil
	}

	if l.peek() == '%' {
		return l.scanPercent()
	}

	return l.scanText()
}

// scanText scans literal text up to the next % or EOF.
func (l *Lexer) scanText() (Token, error) {
	l.markStart()
	start := l.pos

	for l.pos < len(l.input) && l.peek() != '%' {
		l.advance()
	}

	return Token{
		Type:  TokenText,
		Value: l.input[start:l.pos],
		Pos:   l.startPosition(),
	}, nil
}

// scanPercent scans %% or %(key)s.
func (l *Lexer) scanPercent() (Token, error) {
	l.markStart()
	l.advance() // %

	switch l.peek() {
	case '%':
		l.advance()
		return Token{Type: TokenPercent, Value: "%", Pos: l.startPosition()}, nil
	case '(':
		l.advance()
	default:
		return Token{}, NewSyntaxError(l.startPosition(), "stray '%': write %% for a literal percent sign")
	}

	keyStart := l.pos
	for l.pos < len(l.input) {
		r := l.peek()
		if r == ')' {
			break
		}
		if r == '\n' || r == '(' || r == '%' {
			return Token{}, NewSyntaxError(l.startPosition(), "unclosed placeholder: missing ')s'")
		}
		l.advance()
	}
	if l.pos >= len(l.input) {
		return Token{}, NewSyntaxError(l.startPosition(), "unclosed placeholder: missing ')s'")
	}

	key := l.input[keyStart:l.pos]
	l.advance() // )

	if !strings.HasPrefix(l.input[l.pos:], "s") {
		return Token{}, NewSyntaxErrorf(l.startPosition(), "placeholder %q must end with ')s'", key)
	}
	l.advance() // s

	if key == "" {
		return Token{}, NewSyntaxError(l.startPosition(), "empty placeholder key")
	}

	return Token{Type: TokenKey, Value: key, Pos: l.startPosition()}, nil
}

// Helper methods

// peek returns the current rune without advancing.
func (l *Lexer) peek() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return r
}

// advance moves to the next rune, updating position tracking.
func (l *Lexer) advance() {
	if l.pos >= len(l.input) {
		return
	}

	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += size

	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

// markStart records the start position for the current token.
func (l *Lexer) markStart() {
	l.lastPos = l.pos
	l.lastLine = l.line
	l.lastCol = l.col
}

// position returns the current position.
func (l *Lexer) position() Position {
	return Position{Source: l.source, Line: l.line, Column: l.col, Offset: l.pos}
}

// startPosition returns the position where the current token started.
func (l *Lexer) startPosition() Position {
	return Position{Source: l.source, Line: l.lastLine, Column: l.lastCol, Offset: l.lastPos}
}
