package schema

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/leapstack-labs/schemadoc/internal/version"
	"gopkg.in/yaml.v3"
)

// Column is a column definition within a snapshot.
type Column struct {
	Name     string  `yaml:"name" json:"name"`
	Type     string  `yaml:"type" json:"type"`
	Nullable bool    `yaml:"nullable,omitempty" json:"nullable,omitempty"`
	Default  *string `yaml:"default,omitempty" json:"default,omitempty"`
}

// Definition renders the column as "type [NOT NULL] [DEFAULT x]".
func (c Column) Definition() string {
	var sb strings.Builder
	sb.WriteString(c.Type)
	if !c.Nullable {
		sb.WriteString(" NOT NULL")
	}
	if c.Default != nil {
		sb.WriteString(" DEFAULT ")
		sb.WriteString(*c.Default)
	}
	return sb.String()
}

// IndexDef is an index definition within a snapshot.
type IndexDef struct {
	Name    string   `yaml:"name" json:"name"`
	Columns []string `yaml:"columns" json:"columns"`
	Unique  bool     `yaml:"unique,omitempty" json:"unique,omitempty"`
}

// Definition renders the index as "[UNIQUE ](a, b)".
func (i IndexDef) Definition() string {
	def := "(" + strings.Join(i.Columns, ", ") + ")"
	if i.Unique {
		return "UNIQUE " + def
	}
	return def
}

// TableDef is a table definition within a snapshot.
type TableDef struct {
	Name    string     `yaml:"name" json:"name"`
	Columns []Column   `yaml:"columns" json:"columns"`
	Indexes []IndexDef `yaml:"indexes,omitempty" json:"indexes,omitempty"`
}

// Definition lists the table's column names in declaration order.
func (t TableDef) Definition() string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return "(" + strings.Join(names, ", ") + ")"
}

// Snapshot is the schema as it stood at one release.
type Snapshot struct {
	Version version.Version `yaml:"version" json:"version"`
	Source  string          `yaml:"source,omitempty" json:"source,omitempty"`
	Tables  []TableDef      `yaml:"tables" json:"tables"`
}

// Definitions flattens the snapshot into element definitions.
func (s *Snapshot) Definitions() map[Element]string {
	defs := make(map[Element]string)
	for _, t := range s.Tables {
		defs[TableElem(t.Name)] = t.Definition()
		for _, c := range t.Columns {
			defs[ColumnElem(t.Name, c.Name)] = c.Definition()
		}
		for _, i := range t.Indexes {
			defs[IndexElem(t.Name, i.Name)] = i.Definition()
		}
	}
	return defs
}

type snapshotFile struct {
	Snapshots []*Snapshot `yaml:"snapshots"`
}

// LoadSnapshots decodes a YAML document holding a "snapshots" list.
func LoadSnapshots(r io.Reader) ([]*Snapshot, error) {
	var f snapshotFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode snapshots: %w", err)
	}
	return f.Snapshots, nil
}

// LoadSnapshotFile reads snapshots from a YAML file.
func LoadSnapshotFile(path string) ([]*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot file: %w", err)
	}
	defer f.Close()

	snaps, err := LoadSnapshots(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return snaps, nil
}

// NoSnapshotError reports a release earlier than every recorded snapshot.
type NoSnapshotError struct {
	Version version.Version
}

func (e *NoSnapshotError) Error() string {
	return fmt.Sprintf("no schema snapshot at or before %q", string(e.Version))
}

// IsNoSnapshot reports whether err is or wraps a *NoSnapshotError. Callers
// that ask about a single release treat such a release as having no
// elements at all.
func IsNoSnapshot(err error) bool {
	var ns *NoSnapshotError
	return errors.As(err, &ns)
}

type indexedSnapshot struct {
	pos  int
	snap *Snapshot
	defs map[Element]string
}

// Set is an Index backed by a collection of snapshots. Releases, including
// the ones snapshots are tagged with, map first to their schema version (the
// release that introduced their schema) and then to the latest snapshot at
// or before that version.
type Set struct {
	order          *version.Order
	schemaVersions map[version.Version]version.Version
	snaps          []indexedSnapshot
}

// NewSet indexes snaps against order. schemaVersions may be nil.
func NewSet(order *version.Order, schemaVersions map[version.Version]version.Version, snaps ...*Snapshot) (*Set, error) {
	s := &Set{
		order:          order,
		schemaVersions: schemaVersions,
		snaps:          make([]indexedSnapshot, 0, len(snaps)),
	}

	seen := make(map[version.Version]bool, len(snaps))
	for _, snap := range snaps {
		sv := s.schemaVersion(snap.Version)
		pos, err := order.IndexOf(sv)
		if err != nil {
			return nil, fmt.Errorf("snapshot: %w", err)
		}
		if seen[sv] {
			return nil, fmt.Errorf("duplicate snapshot for schema version %q", string(sv))
		}
		seen[sv] = true
		s.snaps = append(s.snaps, indexedSnapshot{pos: pos, snap: snap, defs: snap.Definitions()})
	}

	sort.Slice(s.snaps, func(i, j int) bool { return s.snaps[i].pos < s.snaps[j].pos })
	return s, nil
}

func (s *Set) schemaVersion(v version.Version) version.Version {
	if mapped, ok := s.schemaVersions[v]; ok {
		return mapped
	}
	return v
}

func (s *Set) at(v version.Version) (*indexedSnapshot, error) {
	pos, err := s.order.IndexOf(s.schemaVersion(v))
	if err != nil {
		return nil, err
	}

	i := sort.Search(len(s.snaps), func(i int) bool { return s.snaps[i].pos > pos })
	if i == 0 {
		return nil, &NoSnapshotError{Version: v}
	}
	return &s.snaps[i-1], nil
}

// Exists implements Index.
func (s *Set) Exists(el Element, v version.Version) (bool, error) {
	snap, err := s.at(v)
	if err != nil {
		return false, err
	}
	_, ok := snap.defs[el]
	return ok, nil
}

// Definition implements Index.
func (s *Set) Definition(el Element, v version.Version) (string, bool, error) {
	snap, err := s.at(v)
	if err != nil {
		return "", false, err
	}
	def, ok := snap.defs[el]
	return def, ok, nil
}

// Snapshots returns the indexed snapshots in version order.
func (s *Set) Snapshots() []*Snapshot {
	out := make([]*Snapshot, len(s.snaps))
	for i := range s.snaps {
		out[i] = s.snaps[i].snap
	}
	return out
}

// ElementsIn returns every element that exists at some release in window,
// sorted by table, then kind, then name.
func (s *Set) ElementsIn(window version.Range) ([]Element, error) {
	span, err := s.order.Span(window)
	if err != nil {
		return nil, err
	}

	seen := make(map[*indexedSnapshot]bool)
	set := make(map[Element]struct{})
	for _, v := range span {
		snap, err := s.at(v)
		if err != nil {
			if IsNoSnapshot(err) {
				continue
			}
			return nil, err
		}
		if seen[snap] {
			continue
		}
		seen[snap] = true
		for el := range snap.defs {
			set[el] = struct{}{}
		}
	}

	out := make([]Element, 0, len(set))
	for el := range set {
		out = append(out, el)
	}
	SortElements(out)
	return out, nil
}

// SortElements orders elements by table, then kind, then name.
func SortElements(els []Element) {
	sort.Slice(els, func(i, j int) bool {
		a, b := els[i], els[j]
		if a.Table != b.Table {
			return a.Table < b.Table
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Name < b.Name
	})
}
