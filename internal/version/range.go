package version

import "fmt"

// Range is an inclusive interval over the canonical order.
// An empty Lo means "since the beginning of recorded history"; an empty Hi
// means "through the most recent recorded version".
type Range struct {
	Lo Version `yaml:"from" json:"from,omitempty"`
	Hi Version `yaml:"to" json:"to,omitempty"`
}

// All is the range covering every recorded version.
func All() Range { return Range{} }

// Since returns the range starting at v with an open upper bound.
func Since(v Version) Range { return Range{Lo: v} }

// Through returns the range ending at v with an open lower bound.
func Through(v Version) Range { return Range{Hi: v} }

// Between returns the closed range [lo, hi].
func Between(lo, hi Version) Range { return Range{Lo: lo, Hi: hi} }

// At returns the single-version range [v, v].
func At(v Version) Range { return Range{Lo: v, Hi: v} }

// IsOpen reports whether either bound is open.
func (r Range) IsOpen() bool { return r.Lo == "" || r.Hi == "" }

func (r Range) String() string {
	lo, hi := string(r.Lo), string(r.Hi)
	if lo == "" {
		lo = "…"
	}
	if hi == "" {
		hi = "…"
	}
	return fmt.Sprintf("[%s, %s]", lo, hi)
}
