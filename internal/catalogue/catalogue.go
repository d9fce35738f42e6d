// Package catalogue loads the remark catalogue: the canonical release
// sequence, release metadata, per-element remarks in their base, added and
// removed families, and the rename registries.
//
// The catalogue is immutable once loaded. The Bugzilla catalogue is embedded
// in the binary; another catalogue in the same format can be loaded from disk.
package catalogue

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/leapstack-labs/schemadoc/internal/placeholder"
	"github.com/leapstack-labs/schemadoc/internal/remark"
	"github.com/leapstack-labs/schemadoc/internal/schema"
	"github.com/leapstack-labs/schemadoc/internal/version"
	"gopkg.in/yaml.v3"
)

//go:embed data/bugzilla.yaml
var bugzillaYAML []byte

// EmbeddedSource is the Source of the built-in catalogue.
const EmbeddedSource = "embedded:bugzilla.yaml"

// Family selects which remark set of an element to consult.
type Family int

// Family constants.
const (
	Base Family = iota
	AddedFamily
	RemovedFamily
)

func (f Family) String() string {
	switch f {
	case Base:
		return "remarks"
	case AddedFamily:
		return "added"
	case RemovedFamily:
		return "removed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (f Family) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// Families lists every family in catalogue order.
var Families = []Family{Base, AddedFamily, RemovedFamily}

// Release is the metadata of one release.
type Release struct {
	Version version.Version `yaml:"version" json:"version"`
	Date    string          `yaml:"date" json:"date"`
	Note    string          `yaml:"remark" json:"note,omitempty"`
}

type flatSet struct {
	Remarks map[string]remark.Entry `yaml:"remarks"`
	Added   map[string]remark.Entry `yaml:"added"`
	Removed map[string]remark.Entry `yaml:"removed"`
	Renamed []placeholder.Rename    `yaml:"renamed"`
}

type nestedSet struct {
	Remarks map[string]map[string]remark.Entry `yaml:"remarks"`
	Added   map[string]map[string]remark.Entry `yaml:"added"`
	Removed map[string]map[string]remark.Entry `yaml:"removed"`
	Renamed map[string][]placeholder.Rename    `yaml:"renamed"`
}

type document struct {
	VersionOrder        []version.Version                   `yaml:"version_order"`
	DefaultFirstVersion version.Version                     `yaml:"default_first_version"`
	DefaultLastVersion  version.Version                     `yaml:"default_last_version"`
	SchemaVersions      map[version.Version]version.Version `yaml:"schema_versions"`
	Releases            []Release                           `yaml:"releases"`
	Tables              flatSet                             `yaml:"tables"`
	Columns             nestedSet                           `yaml:"columns"`
	Indexes             nestedSet                           `yaml:"indexes"`
	NotationGuide       string                              `yaml:"notation_guide"`
}

// Catalogue is a loaded remark catalogue.
type Catalogue struct {
	Source         string
	Order          *version.Order
	DefaultWindow  version.Range
	SchemaVersions map[version.Version]version.Version
	Releases       []Release
	Renames        *placeholder.Registry
	NotationGuide  string

	doc      document
	releases map[version.Version]Release
}

// Load reads the catalogue at path, or the embedded catalogue when path is
// empty.
func Load(path string) (*Catalogue, error) {
	if path == "" {
		return Embedded()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalogue: %w", err)
	}
	return Parse(data, path)
}

// Embedded returns the built-in Bugzilla catalogue.
func Embedded() (*Catalogue, error) {
	return Parse(bugzillaYAML, EmbeddedSource)
}

// Parse decodes catalogue YAML. source names the data in errors.
func Parse(data []byte, source string) (*Catalogue, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	order, err := version.NewOrder(doc.VersionOrder)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	window := version.Range{Lo: doc.DefaultFirstVersion, Hi: doc.DefaultLastVersion}
	if err := order.Validate(window); err != nil {
		return nil, fmt.Errorf("%s: default window: %w", source, err)
	}

	renames, err := placeholder.NewRegistry(order, doc.Tables.Renamed, doc.Columns.Renamed, doc.Indexes.Renamed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	c := &Catalogue{
		Source:         source,
		Order:          order,
		DefaultWindow:  window,
		SchemaVersions: doc.SchemaVersions,
		Releases:       doc.Releases,
		Renames:        renames,
		NotationGuide:  doc.NotationGuide,
		doc:            doc,
		releases:       make(map[version.Version]Release, len(doc.Releases)),
	}
	for _, r := range doc.Releases {
		c.releases[r.Version] = r
	}

	return c, nil
}

// Release returns the metadata of v.
func (c *Catalogue) Release(v version.Version) (Release, bool) {
	r, ok := c.releases[v]
	return r, ok
}

// Remark returns the remark of el in family f. el may be named by any name
// from its rename history: an entry under the given name wins, otherwise the
// most recent name is tried. The boolean reports whether the catalogue has
// a key for the element at all; a present key may still hold a Missing entry.
func (c *Catalogue) Remark(el schema.Element, f Family) (remark.Entry, bool) {
	if e, ok := c.lookup(el, f); ok {
		return e, true
	}
	if canon := c.Renames.Canonical(el); canon != el {
		return c.lookup(canon, f)
	}
	return remark.MissingEntry(), false
}

func (c *Catalogue) lookup(el schema.Element, f Family) (remark.Entry, bool) {
	switch el.Kind {
	case schema.KindTable:
		e, ok := c.flat(f)[el.Table]
		return e, ok
	case schema.KindColumn:
		e, ok := c.nested(&c.doc.Columns, f)[el.Table][el.Name]
		return e, ok
	case schema.KindIndex:
		e, ok := c.nested(&c.doc.Indexes, f)[el.Table][el.Name]
		return e, ok
	default:
		return remark.MissingEntry(), false
	}
}

func (c *Catalogue) flat(f Family) map[string]remark.Entry {
	switch f {
	case AddedFamily:
		return c.doc.Tables.Added
	case RemovedFamily:
		return c.doc.Tables.Removed
	default:
		return c.doc.Tables.Remarks
	}
}

func (c *Catalogue) nested(set *nestedSet, f Family) map[string]map[string]remark.Entry {
	switch f {
	case AddedFamily:
		return set.Added
	case RemovedFamily:
		return set.Removed
	default:
		return set.Remarks
	}
}

// Elements lists every element of kind k with an entry in family f, sorted.
func (c *Catalogue) Elements(k schema.Kind, f Family) []schema.Element {
	var out []schema.Element
	switch k {
	case schema.KindTable:
		for t := range c.flat(f) {
			out = append(out, schema.TableElem(t))
		}
	case schema.KindColumn:
		for t, cols := range c.nested(&c.doc.Columns, f) {
			for name := range cols {
				out = append(out, schema.ColumnElem(t, name))
			}
		}
	case schema.KindIndex:
		for t, idxs := range c.nested(&c.doc.Indexes, f) {
			for name := range idxs {
				out = append(out, schema.IndexElem(t, name))
			}
		}
	}
	schema.SortElements(out)
	return out
}

// ReleasesIn returns the releases within window in canonical order.
func (c *Catalogue) ReleasesIn(window version.Range) ([]Release, error) {
	span, err := c.Order.Span(window)
	if err != nil {
		return nil, err
	}
	out := make([]Release, 0, len(span))
	for _, v := range span {
		if r, ok := c.releases[v]; ok {
			out = append(out, r)
		} else {
			out = append(out, Release{Version: v})
		}
	}
	return out, nil
}

// VersionInfo describes one release of the version order.
type VersionInfo struct {
	Version version.Version `json:"version"`
	Date    string          `json:"date,omitempty"`
	Note    string          `json:"note,omitempty"`
	// SchemaVersion is the earlier release that introduced this release's
	// schema, if any.
	SchemaVersion version.Version `json:"schema_version,omitempty"`
	InWindow      bool            `json:"in_window"`
}

// Versions lists the version order with release metadata, marking the
// releases inside window. With windowOnly set, releases outside it are
// skipped.
func (c *Catalogue) Versions(window version.Range, windowOnly bool) ([]VersionInfo, error) {
	infos := make([]VersionInfo, 0, c.Order.Len())
	for _, v := range c.Order.Versions() {
		in, err := c.Order.InRange(v, window)
		if err != nil {
			return nil, err
		}
		if windowOnly && !in {
			continue
		}
		info := VersionInfo{Version: v, InWindow: in}
		if rel, ok := c.releases[v]; ok {
			info.Date = rel.Date
			info.Note = rel.Note
		}
		if sv, ok := c.SchemaVersions[v]; ok && sv != v {
			info.SchemaVersion = sv
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Stats summarises the catalogue for display.
type Stats struct {
	Versions int            `json:"versions"`
	Releases int            `json:"releases"`
	Remarks  map[string]int `json:"remarks"`
	Missing  int            `json:"missing"`
	Todo     int            `json:"todo"`
}

// Stats counts entries per kind and family.
func (c *Catalogue) Stats() Stats {
	s := Stats{
		Versions: c.Order.Len(),
		Releases: len(c.Releases),
		Remarks:  make(map[string]int),
	}
	for _, k := range []schema.Kind{schema.KindTable, schema.KindColumn, schema.KindIndex} {
		for _, f := range Families {
			els := c.Elements(k, f)
			s.Remarks[k.String()+"."+f.String()] = len(els)
			for _, el := range els {
				e, _ := c.Remark(el, f)
				switch e.Kind() {
				case remark.Missing:
					s.Missing++
				case remark.Todo:
					s.Todo++
				}
			}
		}
	}
	return s
}

// StatKeys returns the keys of Stats.Remarks in a stable order.
func (s Stats) StatKeys() []string {
	keys := make([]string, 0, len(s.Remarks))
	for k := range s.Remarks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
