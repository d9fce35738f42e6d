// Package schema describes the documented database schema as it stood at each
// release: which tables, columns and indexes existed and how they were
// defined. It provides in-memory snapshot sets, a SQLite snapshot store and a
// live PostgreSQL introspector.
package schema

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/schemadoc/internal/version"
)

// Kind is the type of a schema element.
type Kind int

// Kind constants.
const (
	KindTable Kind = iota
	KindColumn
	KindIndex
)

func (k Kind) String() string {
	switch k {
	case KindTable:
		return "table"
	case KindColumn:
		return "column"
	case KindIndex:
		return "index"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// ParseKind maps "table", "column" or "index" to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "table":
		return KindTable, nil
	case "column":
		return KindColumn, nil
	case "index":
		return KindIndex, nil
	default:
		return 0, fmt.Errorf("unknown element kind %q", s)
	}
}

// Element identifies a table, or a column or index owned by a table.
// For tables Name is empty.
type Element struct {
	Kind  Kind   `json:"kind"`
	Table string `json:"table"`
	Name  string `json:"name,omitempty"`
}

// TableElem returns the element for table t.
func TableElem(t string) Element { return Element{Kind: KindTable, Table: t} }

// ColumnElem returns the element for column c of table t.
func ColumnElem(t, c string) Element { return Element{Kind: KindColumn, Table: t, Name: c} }

// IndexElem returns the element for index i of table t.
func IndexElem(t, i string) Element { return Element{Kind: KindIndex, Table: t, Name: i} }

// Anchor is the HTML fragment identifier of the element, for example
// "column-bugs-bug_id".
func (e Element) Anchor() string {
	if e.Kind == KindTable {
		return "table-" + e.Table
	}
	return e.Kind.String() + "-" + e.Table + "-" + e.Name
}

// Label is the link text of the element: "bugs" or "bugs.bug_id".
func (e Element) Label() string {
	if e.Kind == KindTable {
		return e.Table
	}
	return e.Table + "." + e.Name
}

func (e Element) String() string { return e.Anchor() }

// ParseAnchor is the inverse of Anchor. It also accepts the label forms
// "bugs" for a table and "column:bugs.bug_id" for a column or index.
func ParseAnchor(s string) (Element, error) {
	if kind, label, ok := strings.Cut(s, ":"); ok {
		k, err := ParseKind(kind)
		if err != nil {
			return Element{}, err
		}
		return fromParts(k, s, strings.SplitN(label, ".", 2))
	}

	parts := strings.SplitN(s, "-", 3)
	if len(parts) == 1 {
		return fromParts(KindTable, s, parts)
	}
	k, err := ParseKind(parts[0])
	if err != nil {
		return Element{}, fmt.Errorf("invalid element %q: %w", s, err)
	}
	return fromParts(k, s, parts[1:])
}

func fromParts(k Kind, s string, parts []string) (Element, error) {
	for _, p := range parts {
		if p == "" {
			return Element{}, fmt.Errorf("invalid element %q", s)
		}
	}
	switch {
	case k == KindTable && len(parts) == 1:
		return TableElem(parts[0]), nil
	case k != KindTable && len(parts) == 2:
		return Element{Kind: k, Table: parts[0], Name: parts[1]}, nil
	default:
		return Element{}, fmt.Errorf("invalid %s element %q", k, s)
	}
}

// Index answers existence and definition questions about schema elements
// at a given release.
type Index interface {
	// Exists reports whether el is part of the schema at release v.
	Exists(el Element, v version.Version) (bool, error)
	// Definition returns a canonical description of el at release v. The
	// boolean is false when el does not exist there.
	Definition(el Element, v version.Version) (string, bool, error)
}
