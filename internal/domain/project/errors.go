package project

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrProjectNotFound indicates the project doesn't exist.
	ErrProjectNotFound = errors.New("project not found")
	// ErrRejectedNotFound indicates the rejected snapshot doesn't exist.
	ErrRejectedNotFound = errors.New("rejected project not found")
	// ErrForbidden indicates the actor lacks a capability or is not the designated approver.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict indicates the record changed since it was read.
	ErrConflict = errors.New("project modified concurrently")
	// ErrDuplicateProject indicates another record shares kind, name, unit and year.
	ErrDuplicateProject = errors.New("duplicate project")
	// ErrReviewInFlight indicates a different request is already awaiting review.
	ErrReviewInFlight = errors.New("another request is awaiting review")
	// ErrNoPendingAction indicates there is nothing to approve or reject.
	ErrNoPendingAction = errors.New("no pending action")
	// ErrMissingReason indicates a rejection without a reason.
	ErrMissingReason = errors.New("rejection reason required")
	// ErrInvalidInput indicates invalid project input.
	ErrInvalidInput = errors.New("invalid project input")
)

// ValidationError lists the offending fields of a rejected payload.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid project input: " + strings.Join(e.Fields, ", ")
}

// Is makes a ValidationError match ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalidFields(fields ...string) error {
	return &ValidationError{Fields: fields}
}

func duplicateError(name string, year int) error {
	return fmt.Errorf("%w: %q already exists for financial year %d", ErrDuplicateProject, name, year)
}
