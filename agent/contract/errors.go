package contract

import (
	"errors"
	"fmt"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrModelInvoke      = errors.New("model invoke failed")
	ErrSchemaViolation  = errors.New("model response violates schema")
	ErrUnknownOperation = errors.New("unknown tool operation")
)

// ToolErrorKind is the four-way failure classification for tool calls.
type ToolErrorKind string

const (
	ToolErrTransient      ToolErrorKind = "transient"
	ToolErrNotFound       ToolErrorKind = "not_found"
	ToolErrInvalidRequest ToolErrorKind = "invalid_request"
	ToolErrUnavailable    ToolErrorKind = "unavailable"
)

// Retryable reports whether an error of this kind may be retried.
func (k ToolErrorKind) Retryable() bool {
	return k == ToolErrTransient
}

// ToolError is a classified tool-subsystem failure. Attempts counts how
// many invocations were made before the error surfaced.
type ToolError struct {
	Kind      ToolErrorKind `json:"kind"`
	Operation string        `json:"operation"`
	Attempts  int           `json:"attempts"`
	Cause     error         `json:"-"`
}

func (e *ToolError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("tool %s failed (%s, %d attempts): %v", e.Operation, e.Kind, e.Attempts, e.Cause)
	}
	return fmt.Sprintf("tool %s failed (%s, %d attempts)", e.Operation, e.Kind, e.Attempts)
}

func (e *ToolError) Unwrap() error {
	return e.Cause
}

// NewToolError builds a classified tool failure.
func NewToolError(kind ToolErrorKind, operation string, cause error) *ToolError {
	return &ToolError{Kind: kind, Operation: operation, Cause: cause}
}

// AsToolError unwraps err into a *ToolError, or returns nil.
func AsToolError(err error) *ToolError {
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}
	return nil
}
