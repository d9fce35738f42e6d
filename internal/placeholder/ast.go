// Package placeholder parses remark text containing %(key)s placeholders
// into a small AST and expands it into HTML.
//
// Keys are either references to schema elements (table-T, the-table-T,
// column-T-C, index-T-I), which become hyperlinks, or upper-case scalar
// names such as VERSION_STRING. A doubled %% is a literal percent sign.
package placeholder

import "fmt"

// Position tracks source location for error reporting.
type Position struct {
	Source string
	Line   int
	Column int
	Offset int
}

func (p Position) String() string {
	if p.Source != "" {
		return fmt.Sprintf("%s:%d:%d", p.Source, p.Line, p.Column)
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Node is the interface for all placeholder AST nodes.
type Node interface {
	Pos() Position
	node() // marker method to restrict implementation
}

// nodeBase provides common Position handling for all nodes.
type nodeBase struct {
	pos Position
}

func (n *nodeBase) Pos() Position { return n.pos }
func (n *nodeBase) node()         {}

// TextNode is literal text, copied to the output unchanged. A %% escape
// has already been reduced to a single % here.
type TextNode struct {
	nodeBase
	Text string
}

// RefKind identifies the form of a reference placeholder.
type RefKind int

// RefKind constants.
const (
	RefTable    RefKind = iota // table-T
	RefTheTable                // the-table-T
	RefColumn                  // column-T-C
	RefIndex                   // index-T-I
)

func (k RefKind) String() string {
	switch k {
	case RefTable:
		return "table"
	case RefTheTable:
		return "the-table"
	case RefColumn:
		return "column"
	case RefIndex:
		return "index"
	default:
		return "unknown"
	}
}

// RefNode is a reference to a schema element.
type RefNode struct {
	nodeBase
	Key   string // the raw key, e.g. "column-bugs-bug_id"
	Kind  RefKind
	Table string
	Name  string // column or index name; empty for table references
}

// ScalarNode is a named value such as VERSION_STRING or DATE.
type ScalarNode struct {
	nodeBase
	Name string
}

// Template is parsed remark text.
type Template struct {
	Source string
	Nodes  []Node
}

// Refs returns the reference nodes of t in order.
func (t *Template) Refs() []*RefNode {
	var refs []*RefNode
	for _, n := range t.Nodes {
		if r, ok := n.(*RefNode); ok {
			refs = append(refs, r)
		}
	}
	return refs
}

// Scalars returns the scalar nodes of t in order.
func (t *Template) Scalars() []*ScalarNode {
	var out []*ScalarNode
	for _, n := range t.Nodes {
		if s, ok := n.(*ScalarNode); ok {
			out = append(out, s)
		}
	}
	return out
}
