package editor

import (
	"errors"
	"fmt"

	"github.com/jonathan/cv-builder/internal/validation"
)

// ErrBusy is returned when an action starts while another is still running.
var ErrBusy = errors.New("another action is in progress")

// ErrUnknownTemplate is returned by SetTemplate for unlisted template ids.
var ErrUnknownTemplate = errors.New("unknown template")

// InvalidError blocks an action because the CV has validation errors.
type InvalidError struct {
	Action string
	Errors validation.Errors
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("cannot %s: %v", e.Action, e.Errors)
}

func (e *InvalidError) Unwrap() error {
	return e.Errors
}

// ErrInvalid matches any *InvalidError with errors.Is.
var ErrInvalid = errors.New("CV has validation errors")

// Is makes errors.Is(err, ErrInvalid) true for every InvalidError.
func (e *InvalidError) Is(target error) bool {
	return target == ErrInvalid
}

// ActionError wraps a backend or sink failure with the action that hit it.
type ActionError struct {
	Action string
	Cause  error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Action, e.Cause)
}

func (e *ActionError) Unwrap() error {
	return e.Cause
}
