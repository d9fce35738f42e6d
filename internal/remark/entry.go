// Package remark holds the annotated prose attached to schema elements and
// resolves it against a version window.
package remark

import (
	"fmt"

	"github.com/leapstack-labs/schemadoc/internal/version"
	"gopkg.in/yaml.v3"
)

// Kind distinguishes the three states a remark can be in.
type Kind int

// Kind constants. Missing is the zero value so an absent or null remark
// decodes to it.
const (
	Missing Kind = iota
	Todo
	Text
)

func (k Kind) String() string {
	switch k {
	case Missing:
		return "missing"
	case Todo:
		return "todo"
	case Text:
		return "text"
	default:
		return "unknown"
	}
}

// TodoText is the literal placeholder authors write for an unfinished remark.
const TodoText = "TODO"

// Node is one fragment of a remark. A literal node is emitted for every
// window; a versioned node only when its range overlaps the window.
type Node struct {
	Versioned bool
	Range     version.Range
	Text      string
}

// Literal returns a node emitted regardless of window.
func Literal(text string) Node { return Node{Text: text} }

// Versioned returns a node emitted only when r overlaps the window.
func Versioned(r version.Range, text string) Node {
	return Node{Versioned: true, Range: r, Text: text}
}

// Entry is the remark for one schema element.
type Entry struct {
	kind  Kind
	nodes []Node
}

// MissingEntry returns the entry for an element nobody has described yet.
func MissingEntry() Entry { return Entry{} }

// TodoEntry returns an entry marked as unfinished.
func TodoEntry() Entry { return Entry{kind: Todo} }

// TextEntry returns an entry made of the given nodes in declaration order.
func TextEntry(nodes ...Node) Entry {
	cp := make([]Node, len(nodes))
	copy(cp, nodes)
	return Entry{kind: Text, nodes: cp}
}

// Plain is shorthand for a single-literal entry.
func Plain(text string) Entry { return TextEntry(Literal(text)) }

// Kind reports which state the entry is in.
func (e Entry) Kind() Kind { return e.kind }

// IsMissing reports whether no remark has been written.
func (e Entry) IsMissing() bool { return e.kind == Missing }

// Nodes returns the entry's fragments in declaration order.
func (e Entry) Nodes() []Node { return e.nodes }

// UnmarshalYAML decodes a scalar, the TODO marker, or a list of fragments.
// A fragment is either a plain string or a {from, to, text} mapping whose
// null bounds are open.
func (e *Entry) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.ShortTag() == "!!null" {
			*e = MissingEntry()
			return nil
		}
		if value.Value == TodoText {
			*e = TodoEntry()
			return nil
		}
		*e = Plain(value.Value)
		return nil

	case yaml.SequenceNode:
		nodes := make([]Node, 0, len(value.Content))
		for _, item := range value.Content {
			n, err := decodeNode(item)
			if err != nil {
				return err
			}
			nodes = append(nodes, n)
		}
		*e = TextEntry(nodes...)
		return nil

	default:
		return fmt.Errorf("line %d: remark must be a string or a list of fragments", value.Line)
	}
}

type rawFragment struct {
	From *string `yaml:"from"`
	To   *string `yaml:"to"`
	Text *string `yaml:"text"`
}

func decodeNode(item *yaml.Node) (Node, error) {
	switch item.Kind {
	case yaml.ScalarNode:
		if item.ShortTag() == "!!null" {
			return Node{}, fmt.Errorf("line %d: null remark fragment", item.Line)
		}
		return Literal(item.Value), nil

	case yaml.MappingNode:
		var raw rawFragment
		if err := item.Decode(&raw); err != nil {
			return Node{}, fmt.Errorf("line %d: %w", item.Line, err)
		}
		if raw.Text == nil {
			return Node{}, fmt.Errorf("line %d: versioned fragment has no text", item.Line)
		}
		var r version.Range
		if raw.From != nil {
			r.Lo = version.Version(*raw.From)
		}
		if raw.To != nil {
			r.Hi = version.Version(*raw.To)
		}
		return Versioned(r, *raw.Text), nil

	default:
		return Node{}, fmt.Errorf("line %d: remark fragment must be a string or a mapping", item.Line)
	}
}

// MarshalYAML writes the entry back in the form UnmarshalYAML accepts.
func (e Entry) MarshalYAML() (interface{}, error) {
	switch e.kind {
	case Missing:
		return nil, nil
	case Todo:
		return TodoText, nil
	}

	if len(e.nodes) == 1 && !e.nodes[0].Versioned {
		return e.nodes[0].Text, nil
	}

	out := make([]interface{}, 0, len(e.nodes))
	for _, n := range e.nodes {
		if !n.Versioned {
			out = append(out, n.Text)
			continue
		}
		out = append(out, map[string]interface{}{
			"from": boundValue(n.Range.Lo),
			"to":   boundValue(n.Range.Hi),
			"text": n.Text,
		})
	}
	return out, nil
}

func boundValue(v version.Version) interface{} {
	if v == "" {
		return nil
	}
	return string(v)
}
