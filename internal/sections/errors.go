package sections

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by section operations
var (
	// ErrAnchorItem is returned when removing the first entry of an experience or education list.
	ErrAnchorItem = errors.New("the first entry of this section cannot be removed")
	// ErrDuplicateContact is returned when adding a second contact section.
	ErrDuplicateContact = errors.New("a CV has exactly one contact section")
	// ErrContactRequired is returned when removing the contact section.
	ErrContactRequired = errors.New("the contact section cannot be removed")

	errUnknownField = errors.New("unknown field")
)

// NotFoundError indicates a section or list item id that does not exist
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// FieldError indicates a value that could not be written to a field path
type FieldError struct {
	SectionID string
	Path      string
	Cause     error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("cannot set %q on section %s: %v", e.Path, e.SectionID, e.Cause)
}

func (e *FieldError) Unwrap() error {
	return e.Cause
}

// OperationError indicates an operation that does not apply to the target section
type OperationError struct {
	Op      string
	Message string
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// InvariantError lists every structural problem found in a sections slice
type InvariantError struct {
	Problems []string
}

func (e *InvariantError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid sections: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid sections: %d problems, first: %s", len(e.Problems), e.Problems[0])
}
