// Package vferr defines the error Kinds shared by every layer of the
// planner. Kinds are declared once, package-level, exactly the way the
// teacher declares sql.ErrXxx = errors.NewKind("...") values: a Kind is
// a reusable error template, instantiated per occurrence with .New, and
// checked with kind.Is(err). Intermediate layers add breadcrumbs by
// wrapping with fmt.Errorf("%w: ...", err) rather than re-deriving a new
// Kind, so callers can still test the original Kind with errors.As/Is.
package vferr

import (
	stderrors "errors"
	"fmt"

	"gopkg.in/src-d/go-errors.v1"
)

// Kinds, one per spec §7 error category.
var (
	ErrParse          = errors.NewKind("parse error: %s")
	ErrCompilation    = errors.NewKind("compilation error: %s")
	ErrPlanSupport    = errors.NewKind("plan support error: %s")
	ErrSqlNotSupported = errors.NewKind("sql not supported: %s")
	ErrInternal       = errors.NewKind("internal error: %s")
	ErrExternal       = errors.NewKind("external error: %s")
	ErrPreTransform   = errors.NewKind("pre-transform error: %s")
	ErrSpecification  = errors.NewKind("specification error: %s")
)

// Span is a byte-offset range carried by position-bearing errors.
type Span struct {
	Start int
	End   int
}

func (s Span) String() string {
	return fmt.Sprintf("[%d:%d]", s.Start, s.End)
}

// WithSpan appends a position breadcrumb to an existing error without
// changing its Kind.
func WithSpan(err error, span Span) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w (at %s)", err, span)
}

// WithVariable appends a variable-name/scope breadcrumb.
func WithVariable(err error, name string, scope []uint32) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w (variable %q, scope %v)", err, name, scope)
}

// Is reports whether err (or any error it wraps) is an instance of kind.
func Is(kind *errors.Kind, err error) bool {
	for err != nil {
		if kind.Is(err) {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}
