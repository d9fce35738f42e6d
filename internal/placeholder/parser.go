package placeholder

import (
	"strings"
)

var refPrefixes = []struct {
	prefix string
	kind   RefKind
	parts  int
}{
	{"the-table-", RefTheTable, 1},
	{"table-", RefTable, 1},
	{"column-", RefColumn, 2},
	{"index-", RefIndex, 2},
}

// Parse lexes and parses text into a Template.
func Parse(text, source string) (*Template, error) {
	tokens, err := NewLexer(text, source).Tokenize()
	if err != nil {
		return nil, err
	}

	t := &Template{Source: source}
	var pending *TextNode

	flush := func() {
		if pending != nil {
			t.Nodes = append(t.Nodes, pending)
			pending = nil
		}
	}

	for _, tok := range tokens {
		switch tok.Type {
		case TokenText, TokenPercent:
			if pending == nil {
				pending = &TextNode{nodeBase: nodeBase{pos: tok.Pos}}
			}
			pending.Text += tok.Value
		case TokenKey:
			flush()
			n, err := parseKey(tok.Value, tok.Pos)
			if err != nil {
				return nil, err
			}
			t.Nodes = append(t.Nodes, n)
		case TokenEOF:
			flush()
		}
	}

	return t, nil
}

// MustParse is like Parse but panics on error.
func MustParse(text string) *Template {
	t, err := Parse(text, "")
	if err != nil {
		panic(err)
	}
	return t
}

func parseKey(key string, pos Position) (Node, error) {
	for _, p := range refPrefixes {
		if !strings.HasPrefix(key, p.prefix) {
			continue
		}
		parts := strings.Split(strings.TrimPrefix(key, p.prefix), "-")
		if len(parts) != p.parts {
			return nil, NewSyntaxErrorf(pos, "malformed %s reference %q", p.kind, key)
		}
		for _, part := range parts {
			if !isName(part) {
				return nil, NewSyntaxErrorf(pos, "malformed %s reference %q", p.kind, key)
			}
		}
		ref := &RefNode{nodeBase: nodeBase{pos: pos}, Key: key, Kind: p.kind, Table: parts[0]}
		if p.parts == 2 {
			ref.Name = parts[1]
		}
		return ref, nil
	}

	if !isName(key) {
		return nil, NewSyntaxErrorf(pos, "malformed placeholder key %q", key)
	}
	return &ScalarNode{nodeBase: nodeBase{pos: pos}, Name: key}, nil
}

// isName reports whether s is a non-empty run of letters, digits and
// underscores.
func isName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}
