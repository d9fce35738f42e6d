package remark

import (
	"strings"

	"github.com/leapstack-labs/schemadoc/internal/version"
)

// MissingMarker is the visible text substituted for a remark nobody has
// written yet.
const MissingMarker = `<span class="needs-remark">[no remark yet]</span>`

// Fragment is one emitted piece of a resolved remark. Versioned fragments
// keep their range so per-fragment placeholders can be expanded later.
type Fragment struct {
	Text      string
	Versioned bool
	Range     version.Range
}

// Resolution is the window-specific view of an Entry.
type Resolution struct {
	Kind      Kind
	Fragments []Fragment
}

// Text concatenates the fragments. A missing remark yields MissingMarker and
// a TODO remark yields TodoText unchanged.
func (r Resolution) Text() string {
	switch r.Kind {
	case Missing:
		return MissingMarker
	case Todo:
		return TodoText
	}

	var sb strings.Builder
	for _, f := range r.Fragments {
		sb.WriteString(f.Text)
	}
	return sb.String()
}

// Resolve selects the parts of e that apply to window. Literal fragments are
// always kept; versioned fragments are kept when their range intersects the
// window. Declaration order is preserved and overlapping ranges are not
// merged. A window that matches nothing resolves to an empty Text
// resolution.
func Resolve(order *version.Order, e Entry, window version.Range) (Resolution, error) {
	res := Resolution{Kind: e.kind}
	if e.kind != Text {
		return res, nil
	}

	for _, n := range e.nodes {
		if n.Versioned {
			ok, err := order.Intersects(n.Range, window)
			if err != nil {
				return Resolution{}, err
			}
			if !ok {
				continue
			}
		}
		res.Fragments = append(res.Fragments, Fragment{
			Text:      n.Text,
			Versioned: n.Versioned,
			Range:     n.Range,
		})
	}

	return res, nil
}

// TextAt resolves e at the single version v and returns the plain text.
func TextAt(order *version.Order, e Entry, v version.Version) (string, error) {
	res, err := Resolve(order, e, version.At(v))
	if err != nil {
		return "", err
	}
	return res.Text(), nil
}
