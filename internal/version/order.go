// Package version models the curated release sequence of the documented schema.
//
// A Version is an opaque token. Its only meaning is its position in the
// canonical sequence held by an Order: "5.2" may come before "5.1.1" because
// of a branch rename, so versions are never parsed or compared as strings.
package version

import "fmt"

// Version identifies a single release in the canonical sequence.
// The empty Version is reserved for open range bounds.
type Version string

// Relation is the outcome of comparing two versions in canonical order.
type Relation int

// Relation constants.
const (
	Before Relation = iota - 1
	Equal
	After
)

func (r Relation) String() string {
	switch r {
	case Before:
		return "before"
	case Equal:
		return "equal"
	case After:
		return "after"
	default:
		return "unknown"
	}
}

// Order is a total order over a fixed list of versions, defined by position.
// An Order is immutable once built and safe for concurrent use.
type Order struct {
	versions []Version
	index    map[Version]int
}

// NewOrder builds an Order from the canonical sequence.
// It rejects empty sequences, empty versions and duplicates.
func NewOrder(versions []Version) (*Order, error) {
	if len(versions) == 0 {
		return nil, fmt.Errorf("version order is empty")
	}

	o := &Order{
		versions: make([]Version, len(versions)),
		index:    make(map[Version]int, len(versions)),
	}
	copy(o.versions, versions)

	for i, v := range o.versions {
		if v == "" {
			return nil, fmt.Errorf("version order: empty version at position %d", i)
		}
		if prev, dup := o.index[v]; dup {
			return nil, &DuplicateVersionError{Version: v, First: prev, Second: i}
		}
		o.index[v] = i
	}

	return o, nil
}

// MustOrder is like NewOrder but panics on error. Intended for tests and
// package-level fixtures.
func MustOrder(versions ...Version) *Order {
	o, err := NewOrder(versions)
	if err != nil {
		panic(err)
	}
	return o
}

// Len returns the number of versions in the order.
func (o *Order) Len() int { return len(o.versions) }

// At returns the version at position i.
func (o *Order) At(i int) Version { return o.versions[i] }

// First returns the earliest recorded version.
func (o *Order) First() Version { return o.versions[0] }

// Last returns the most recent recorded version.
func (o *Order) Last() Version { return o.versions[len(o.versions)-1] }

// Versions returns a copy of the canonical sequence.
func (o *Order) Versions() []Version {
	out := make([]Version, len(o.versions))
	copy(out, o.versions)
	return out
}

// Contains reports whether v is part of the canonical sequence.
func (o *Order) Contains(v Version) bool {
	_, ok := o.index[v]
	return ok
}

// IndexOf returns the position of v in the canonical sequence.
func (o *Order) IndexOf(v Version) (int, error) {
	i, ok := o.index[v]
	if !ok {
		return 0, &UnknownVersionError{Version: v}
	}
	return i, nil
}

// Compare orders a and b by position.
func (o *Order) Compare(a, b Version) (Relation, error) {
	ia, err := o.IndexOf(a)
	if err != nil {
		return Equal, err
	}
	ib, err := o.IndexOf(b)
	if err != nil {
		return Equal, err
	}
	switch {
	case ia < ib:
		return Before, nil
	case ia > ib:
		return After, nil
	default:
		return Equal, nil
	}
}

// Bounds returns the inclusive index interval covered by r.
// Open bounds resolve to the ends of the sequence.
func (o *Order) Bounds(r Range) (lo, hi int, err error) {
	lo, hi = 0, len(o.versions)-1
	if r.Lo != "" {
		if lo, err = o.IndexOf(r.Lo); err != nil {
			return 0, 0, err
		}
	}
	if r.Hi != "" {
		if hi, err = o.IndexOf(r.Hi); err != nil {
			return 0, 0, err
		}
	}
	return lo, hi, nil
}

// Validate checks that both bounds of r are known and that lo does not come
// after hi.
func (o *Order) Validate(r Range) error {
	lo, hi, err := o.Bounds(r)
	if err != nil {
		return err
	}
	if lo > hi {
		return &InvalidRangeError{Range: r}
	}
	return nil
}

// Intersects reports whether the closed intervals r and window overlap.
// Ranges that share a single boundary version intersect.
func (o *Order) Intersects(r, window Range) (bool, error) {
	rlo, rhi, err := o.Bounds(r)
	if err != nil {
		return false, err
	}
	wlo, whi, err := o.Bounds(window)
	if err != nil {
		return false, err
	}
	return rlo <= whi && wlo <= rhi, nil
}

// InRange reports whether v lies inside r.
func (o *Order) InRange(v Version, r Range) (bool, error) {
	return o.Intersects(At(v), r)
}

// Span returns every version covered by r, in canonical order.
func (o *Order) Span(r Range) ([]Version, error) {
	lo, hi, err := o.Bounds(r)
	if err != nil {
		return nil, err
	}
	if lo > hi {
		return nil, nil
	}
	out := make([]Version, hi-lo+1)
	copy(out, o.versions[lo:hi+1])
	return out, nil
}

// Close replaces the open bounds of r with the ends of the sequence.
func (o *Order) Close(r Range) Range {
	if !r.IsOpen() {
		return r
	}
	if r.Lo == "" {
		r.Lo = o.First()
	}
	if r.Hi == "" {
		r.Hi = o.Last()
	}
	return r
}
