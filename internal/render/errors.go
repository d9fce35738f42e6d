package render

import (
	"fmt"

	"github.com/leapstack-labs/schemadoc/internal/catalogue"
	"github.com/leapstack-labs/schemadoc/internal/schema"
	"github.com/leapstack-labs/schemadoc/internal/version"
)

// Error reports a fatal failure rendering one element. Callers inspect the
// cause with errors.As, for example for *version.UnknownVersionError or
// *placeholder.UnresolvedReferenceError.
type Error struct {
	Element schema.Element
	Family  catalogue.Family
	Window  version.Range
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("render %s (%s) in %s: %v", e.Element.Anchor(), e.Family, e.Window, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

func wrap(el schema.Element, f catalogue.Family, window version.Range, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Element: el, Family: f, Window: window, Err: err}
}
