package mcp

import (
	"errors"
	"fmt"

	"github.com/ganot/hourbank/internal/domain/project"
)

// APIError represents an MCP tool error payload.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to MCP error codes. Unknown errors become a
// generic INTERNAL error so storage details never reach the client.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	msg := project.Message(err)
	switch {
	case errors.Is(err, project.ErrValidation):
		return &APIError{Code: "VALIDATION", Message: msg, RecoveryHint: "Fix the arguments and retry"}
	case errors.Is(err, project.ErrNotFound):
		return &APIError{Code: "NOT_FOUND", Message: msg, RecoveryHint: "Check ID spelling or call list_projects"}
	case errors.Is(err, project.ErrConflict):
		return &APIError{Code: "CONFLICT", Message: msg, RecoveryHint: "Call get_project or get_valid_transitions and re-plan"}
	case errors.Is(err, project.ErrConcurrency):
		return &APIError{Code: "BUSY", Message: msg, RecoveryHint: "Retry shortly"}
	default:
		return &APIError{Code: "INTERNAL", Message: "internal error"}
	}
}
