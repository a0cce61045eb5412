package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/worksreg/internal/domain/code"
	"github.com/rpggio/worksreg/internal/domain/notification"
	"github.com/rpggio/worksreg/internal/domain/project"
	"github.com/rpggio/worksreg/internal/domain/sequence"
	"github.com/rpggio/worksreg/internal/domain/user"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var verr *project.ValidationError
	switch {
	case errors.Is(err, errUnauthorized):
		return &APIError{Code: "UNAUTHORIZED", Message: err.Error(), RecoveryHint: "Send a valid bearer token"}
	case errors.As(err, &verr):
		return &APIError{Code: "VALIDATION_FAILED", Message: "invalid input", Details: map[string]any{"fields": verr.Fields}, RecoveryHint: "Fix the listed fields"}
	case errors.Is(err, project.ErrProjectNotFound), errors.Is(err, project.ErrRejectedNotFound),
		errors.Is(err, notification.ErrNotFound), errors.Is(err, user.ErrUserNotFound):
		return &APIError{Code: "NOT_FOUND", Message: err.Error(), RecoveryHint: "Check ID spelling"}
	case errors.Is(err, project.ErrForbidden):
		return &APIError{Code: "FORBIDDEN", Message: err.Error(), RecoveryHint: "Ask the designated approver or an administrator"}
	case errors.Is(err, project.ErrConflict):
		return &APIError{Code: "CONFLICT", Message: err.Error(), RecoveryHint: "Reload the project and retry with its current version"}
	case errors.Is(err, project.ErrReviewInFlight):
		return &APIError{Code: "CONFLICT", Message: err.Error(), RecoveryHint: "Wait for the pending request to be approved or rejected"}
	case errors.Is(err, project.ErrDuplicateProject):
		return &APIError{Code: "DUPLICATE", Message: err.Error(), RecoveryHint: "Use a different name or update the existing project"}
	case errors.Is(err, project.ErrNoPendingAction):
		return &APIError{Code: "NO_PENDING_ACTION", Message: err.Error(), RecoveryHint: "Reload the project; the request may already be resolved"}
	case errors.Is(err, project.ErrMissingReason):
		return &APIError{Code: "VALIDATION_FAILED", Message: err.Error(), Details: map[string]any{"fields": []string{"reason"}}}
	case errors.Is(err, project.ErrInvalidInput), errors.Is(err, code.ErrInvalidInput),
		errors.Is(err, notification.ErrInvalidInput), errors.Is(err, user.ErrInvalidInput):
		return &APIError{Code: "VALIDATION_FAILED", Message: err.Error()}
	case errors.Is(err, sequence.ErrAllocation), errors.Is(err, code.ErrAllocation):
		return &APIError{Code: "ALLOCATION_FAILED", Message: err.Error(), RecoveryHint: "Retry; the periodic sweep repairs serials"}
	default:
		return nil
	}
}
