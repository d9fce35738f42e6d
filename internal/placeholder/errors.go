package placeholder

import "fmt"

// Error is the base interface for positioned placeholder errors.
type Error interface {
	error
	Position() Position
}

// baseError provides common error functionality.
type baseError struct {
	pos Position
	msg string
}

func (e *baseError) Position() Position { return e.pos }
func (e *baseError) Error() string      { return fmt.Sprintf("%s: %s", e.pos, e.msg) }

// SyntaxError reports malformed placeholder syntax.
type SyntaxError struct {
	baseError
}

// NewSyntaxError creates a new syntax error.
func NewSyntaxError(pos Position, msg string) *SyntaxError {
	return &SyntaxError{baseError: baseError{pos: pos, msg: msg}}
}

// NewSyntaxErrorf creates a new syntax error with formatting.
func NewSyntaxErrorf(pos Position, format string, args ...any) *SyntaxError {
	return &SyntaxError{baseError: baseError{pos: pos, msg: fmt.Sprintf(format, args...)}}
}

// UnknownPlaceholderError reports a scalar name with no value.
type UnknownPlaceholderError struct {
	baseError
	Name string
}

// NewUnknownPlaceholderError creates a new unknown placeholder error.
func NewUnknownPlaceholderError(pos Position, name string) *UnknownPlaceholderError {
	return &UnknownPlaceholderError{
		baseError: baseError{pos: pos, msg: fmt.Sprintf("unknown placeholder %q", name)},
		Name:      name,
	}
}

// UnresolvedReferenceError reports a reference to an element that exists at
// no version of the window.
type UnresolvedReferenceError struct {
	baseError
	Key    string
	Window string
}

// NewUnresolvedReferenceError creates a new unresolved reference error.
func NewUnresolvedReferenceError(pos Position, key, window string) *UnresolvedReferenceError {
	return &UnresolvedReferenceError{
		baseError: baseError{pos: pos, msg: fmt.Sprintf("reference %q matches no element in %s", key, window)},
		Key:       key,
		Window:    window,
	}
}

// ExpandError wraps a failure from a collaborator while expanding a node.
type ExpandError struct {
	baseError
	Cause error
}

// WrapExpandError wraps an underlying error as an expand error.
func WrapExpandError(pos Position, msg string, cause error) *ExpandError {
	return &ExpandError{
		baseError: baseError{pos: pos, msg: msg},
		Cause:     cause,
	}
}

func (e *ExpandError) Error() string {
	base := e.baseError.Error()
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", base, e.Cause)
	}
	return base
}

func (e *ExpandError) Unwrap() error {
	return e.Cause
}
