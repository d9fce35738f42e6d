package version

import "fmt"

// UnknownVersionError reports a version that is not part of the canonical
// sequence.
type UnknownVersionError struct {
	Version Version
}

func (e *UnknownVersionError) Error() string {
	return fmt.Sprintf("unknown version %q", string(e.Version))
}

// InvalidRangeError reports a range whose lower bound comes after its upper
// bound.
type InvalidRangeError struct {
	Range Range
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid version range %s: lower bound comes after upper bound", e.Range)
}

// DuplicateVersionError reports a version listed twice in the canonical
// sequence.
type DuplicateVersionError struct {
	Version Version
	First   int
	Second  int
}

func (e *DuplicateVersionError) Error() string {
	return fmt.Sprintf("version %q listed twice (positions %d and %d)", string(e.Version), e.First, e.Second)
}
