// Package classify decides how a schema element changed across a version
// window and maps each outcome onto the colours of the notation guide.
package classify

import (
	"fmt"

	"github.com/leapstack-labs/schemadoc/internal/schema"
	"github.com/leapstack-labs/schemadoc/internal/version"
)

// Category is the change classification of an element or fragment.
type Category int

// Category constants.
const (
	Unchanged Category = iota
	Added
	Removed
	Changed
)

// Categories lists every category in order.
var Categories = []Category{Unchanged, Added, Removed, Changed}

var categoryNames = [...]string{"unchanged", "added", "removed", "changed"}

var categoryColours = [...]string{"#ffffff", "#ccffcc", "#ffcccc", "#ccccff"}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "unknown"
	}
	return categoryNames[c]
}

// Colour is the background colour the notation guide assigns to c.
func (c Category) Colour() string {
	if c < 0 || int(c) >= len(categoryColours) {
		return categoryColours[Unchanged]
	}
	return categoryColours[c]
}

// Attr renders c as an HTML attribute with a leading space, ready to be
// spliced into an opening tag.
func (c Category) Attr() string {
	return fmt.Sprintf(` bgcolor="%s"`, c.Colour())
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// ParseCategory is the inverse of Category.String.
func ParseCategory(s string) (Category, error) {
	for i, name := range categoryNames {
		if name == s {
			return Category(i), nil
		}
	}
	return Unchanged, fmt.Errorf("unknown category %q", s)
}

// RemarkAt returns the resolved remark text of an element at one version.
type RemarkAt func(v version.Version) (string, error)

// definition looks el up at v. A release older than every snapshot has no
// elements, so an element is simply absent there.
func definition(idx schema.Index, el schema.Element, v version.Version) (string, bool, error) {
	def, ok, err := idx.Definition(el, v)
	if err != nil && schema.IsNoSnapshot(err) {
		return "", false, nil
	}
	return def, ok, err
}

// Classify compares el at the two ends of window. An element present at
// only one end is added or removed. One present at both is changed when its
// definition or, if remarkAt is non-nil, its resolved remark differs.
// Releases before the first snapshot count as having no elements, so an
// element that exists at the upper end of such a window was added.
//
// idx is consulted under the names it is given; wrap it with a rename
// registry to follow elements across renames.
func Classify(order *version.Order, el schema.Element, window version.Range, idx schema.Index, remarkAt RemarkAt) (Category, error) {
	w := order.Close(window)
	if err := order.Validate(w); err != nil {
		return Unchanged, err
	}

	loDef, atLo, err := definition(idx, el, w.Lo)
	if err != nil {
		return Unchanged, err
	}
	hiDef, atHi, err := definition(idx, el, w.Hi)
	if err != nil {
		return Unchanged, err
	}

	switch {
	case atLo && !atHi:
		return Removed, nil
	case !atLo && atHi:
		return Added, nil
	case !atLo && !atHi:
		return Unchanged, nil
	}

	if loDef != hiDef {
		return Changed, nil
	}

	if remarkAt != nil {
		loText, err := remarkAt(w.Lo)
		if err != nil {
			return Unchanged, err
		}
		hiText, err := remarkAt(w.Hi)
		if err != nil {
			return Unchanged, err
		}
		if loText != hiText {
			return Changed, nil
		}
	}

	return Unchanged, nil
}

// Range classifies a versioned fragment relative to window: a range that
// starts inside the window was added, one that ends inside it was removed,
// and one that does both changed.
func Range(order *version.Order, r, window version.Range) (Category, error) {
	starts, ends, err := Edges(order, r, window)
	if err != nil {
		return Unchanged, err
	}

	switch {
	case starts && ends:
		return Changed, nil
	case starts:
		return Added, nil
	case ends:
		return Removed, nil
	default:
		return Unchanged, nil
	}
}

// Edges reports whether r begins strictly after the start of window and
// whether it ends strictly before the end of window. Open bounds never do.
func Edges(order *version.Order, r, window version.Range) (startsInside, endsInside bool, err error) {
	wlo, whi, err := order.Bounds(window)
	if err != nil {
		return false, false, err
	}

	if r.Lo != "" {
		lo, err := order.IndexOf(r.Lo)
		if err != nil {
			return false, false, err
		}
		startsInside = lo > wlo
	}
	if r.Hi != "" {
		hi, err := order.IndexOf(r.Hi)
		if err != nil {
			return false, false, err
		}
		endsInside = hi < whi
	}

	return startsInside, endsInside, nil
}

// ChangedWithin reports the positions inside window at which el appears or
// disappears. It is used to pick up columns and indexes added or removed
// part way through a window even when both ends agree.
func ChangedWithin(order *version.Order, el schema.Element, window version.Range, idx schema.Index) (added, removed bool, err error) {
	span, err := order.Span(window)
	if err != nil {
		return false, false, err
	}

	var prev bool
	for i, v := range span {
		_, ok, err := definition(idx, el, v)
		if err != nil {
			return false, false, err
		}
		if i > 0 {
			if ok && !prev {
				added = true
			}
			if !ok && prev {
				removed = true
			}
		}
		prev = ok
	}
	return added, removed, nil
}
