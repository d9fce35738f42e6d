package placeholder

import (
	"fmt"
	"sort"

	"github.com/leapstack-labs/schemadoc/internal/schema"
	"github.com/leapstack-labs/schemadoc/internal/version"
)

// Rename records that an element called From is called To from release
// Since onwards.
type Rename struct {
	From  string          `yaml:"from" json:"from"`
	To    string          `yaml:"to" json:"to"`
	Since version.Version `yaml:"since" json:"since"`
}

// RenameError reports an inconsistent rename history.
type RenameError struct {
	Kind   schema.Kind
	Table  string
	Rename Rename
	Reason string
}

func (e *RenameError) Error() string {
	return fmt.Sprintf("%s rename %s.%s -> %s at %s: %s",
		e.Kind, e.Table, e.Rename.From, e.Rename.To, e.Rename.Since, e.Reason)
}

// lineage is the succession of names one element has carried. since[i] is
// the position from which names[i] applies; since[0] is -1.
type lineage struct {
	names []string
	since []int
}

func (l *lineage) at(pos int) string {
	name := l.names[0]
	for i := 1; i < len(l.names); i++ {
		if l.since[i] <= pos {
			name = l.names[i]
		}
	}
	return name
}

func (l *lineage) latest() string { return l.names[len(l.names)-1] }

type scope struct {
	kind  schema.Kind
	table string
}

// Registry knows every rename of tables, columns and indexes and answers
// which name an element carried at a given release.
type Registry struct {
	order    *version.Order
	lineages map[scope]map[string]*lineage
}

// NewRegistry builds a registry. tables lists table renames; columns and
// indexes are keyed by owning table. Any argument may be nil.
func NewRegistry(order *version.Order, tables []Rename, columns, indexes map[string][]Rename) (*Registry, error) {
	r := &Registry{order: order, lineages: make(map[scope]map[string]*lineage)}

	if err := r.add(scope{kind: schema.KindTable}, tables); err != nil {
		return nil, err
	}
	for _, table := range sortedKeys(columns) {
		if err := r.add(scope{kind: schema.KindColumn, table: table}, columns[table]); err != nil {
			return nil, err
		}
	}
	for _, table := range sortedKeys(indexes) {
		if err := r.add(scope{kind: schema.KindIndex, table: table}, indexes[table]); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// EmptyRegistry returns a registry with no renames.
func EmptyRegistry(order *version.Order) *Registry {
	return &Registry{order: order, lineages: make(map[scope]map[string]*lineage)}
}

func (r *Registry) add(sc scope, renames []Rename) error {
	if len(renames) == 0 {
		return nil
	}

	type positioned struct {
		Rename
		pos int
	}
	ordered := make([]positioned, 0, len(renames))
	for _, rn := range renames {
		pos, err := r.order.IndexOf(rn.Since)
		if err != nil {
			return &RenameError{Kind: sc.kind, Table: sc.table, Rename: rn, Reason: err.Error()}
		}
		if rn.From == "" || rn.To == "" || rn.From == rn.To {
			return &RenameError{Kind: sc.kind, Table: sc.table, Rename: rn, Reason: "names must be distinct and non-empty"}
		}
		ordered = append(ordered, positioned{Rename: rn, pos: pos})
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].pos < ordered[j].pos })

	byName := r.lineages[sc]
	if byName == nil {
		byName = make(map[string]*lineage)
		r.lineages[sc] = byName
	}

	for _, rn := range ordered {
		if _, taken := byName[rn.To]; taken {
			return &RenameError{Kind: sc.kind, Table: sc.table, Rename: rn.Rename, Reason: fmt.Sprintf("%q already has a rename history", rn.To)}
		}

		l, ok := byName[rn.From]
		switch {
		case !ok:
			l = &lineage{names: []string{rn.From}, since: []int{-1}}
			byName[rn.From] = l
		case l.latest() != rn.From:
			return &RenameError{Kind: sc.kind, Table: sc.table, Rename: rn.Rename, Reason: fmt.Sprintf("%q was already renamed to %q", rn.From, l.latest())}
		case l.since[len(l.since)-1] >= rn.pos:
			return &RenameError{Kind: sc.kind, Table: sc.table, Rename: rn.Rename, Reason: "renames must take effect in version order"}
		}

		l.names = append(l.names, rn.To)
		l.since = append(l.since, rn.pos)
		byName[rn.To] = l
	}

	return nil
}

func (r *Registry) lookup(sc scope, name string) *lineage {
	return r.lineages[sc][name]
}

// NameAt returns the name that el carried at release v. Any name from the
// element's history may be used to identify it.
func (r *Registry) NameAt(el schema.Element, v version.Version) (schema.Element, error) {
	pos, err := r.order.IndexOf(v)
	if err != nil {
		return schema.Element{}, err
	}

	out := el
	if l := r.lookup(scope{kind: schema.KindTable}, el.Table); l != nil {
		out.Table = l.at(pos)
	}
	if el.Kind == schema.KindTable {
		return out, nil
	}

	l := r.lookup(scope{kind: el.Kind, table: el.Table}, el.Name)
	if l == nil && out.Table != el.Table {
		l = r.lookup(scope{kind: el.Kind, table: out.Table}, el.Name)
	}
	if l != nil {
		out.Name = l.at(pos)
	}
	return out, nil
}

// Canonical returns the most recent name of el.
func (r *Registry) Canonical(el schema.Element) schema.Element {
	out := el
	if l := r.lookup(scope{kind: schema.KindTable}, el.Table); l != nil {
		out.Table = l.latest()
	}
	if el.Kind == schema.KindTable {
		return out
	}

	l := r.lookup(scope{kind: el.Kind, table: el.Table}, el.Name)
	if l == nil && out.Table != el.Table {
		l = r.lookup(scope{kind: el.Kind, table: out.Table}, el.Name)
	}
	if l != nil {
		out.Name = l.latest()
	}
	return out
}

// Elements maps every element onto its canonical name and drops the
// duplicates this produces, so a renamed element appears once. The result is
// sorted with schema.SortElements.
func (r *Registry) Elements(els []schema.Element) []schema.Element {
	seen := make(map[schema.Element]bool, len(els))
	out := make([]schema.Element, 0, len(els))
	for _, el := range els {
		canon := r.Canonical(el)
		if seen[canon] {
			continue
		}
		seen[canon] = true
		out = append(out, canon)
	}
	schema.SortElements(out)
	return out
}

// Index wraps idx so that every question about an element is asked under
// the name the element carried at the release in question.
func (r *Registry) Index(idx schema.Index) schema.Index {
	return &renamedIndex{renames: r, index: idx}
}

type renamedIndex struct {
	renames *Registry
	index   schema.Index
}

func (ri *renamedIndex) Exists(el schema.Element, v version.Version) (bool, error) {
	named, err := ri.renames.NameAt(el, v)
	if err != nil {
		return false, err
	}
	return ri.index.Exists(named, v)
}

func (ri *renamedIndex) Definition(el schema.Element, v version.Version) (string, bool, error) {
	named, err := ri.renames.NameAt(el, v)
	if err != nil {
		return "", false, err
	}
	return ri.index.Definition(named, v)
}

// History returns the renames el went through, oldest first.
func (r *Registry) History(el schema.Element) []Rename {
	var l *lineage
	if el.Kind == schema.KindTable {
		l = r.lookup(scope{kind: schema.KindTable}, el.Table)
	} else {
		l = r.lookup(scope{kind: el.Kind, table: el.Table}, el.Name)
	}
	if l == nil {
		return nil
	}

	out := make([]Rename, 0, len(l.names)-1)
	for i := 1; i < len(l.names); i++ {
		out = append(out, Rename{From: l.names[i-1], To: l.names[i], Since: r.order.At(l.since[i])})
	}
	return out
}

func sortedKeys(m map[string][]Rename) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
