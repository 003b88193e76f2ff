package services

import "fmt"

// ErrorCategory classifies caller-visible signing failures. Per-field soft
// failures never surface through this type; they only reduce what ends up
// drawn.
type ErrorCategory string

const (
	// CategoryValidation is a malformed request, rejected before any I/O.
	CategoryValidation ErrorCategory = "validation"
	// CategoryResource is unreadable source bytes or a failed output write.
	CategoryResource ErrorCategory = "resource"
	// CategoryEncoding is a failure to parse or re-serialize the document.
	CategoryEncoding ErrorCategory = "encoding"
)

// OperationError carries a machine-readable category alongside the message.
type OperationError struct {
	Category ErrorCategory
	Message  string
	Err      error
}

func (e *OperationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *OperationError) Unwrap() error { return e.Err }

func validationError(format string, args ...interface{}) *OperationError {
	return &OperationError{Category: CategoryValidation, Message: fmt.Sprintf(format, args...)}
}

func resourceError(message string, err error) *OperationError {
	return &OperationError{Category: CategoryResource, Message: message, Err: err}
}

func encodingError(message string, err error) *OperationError {
	return &OperationError{Category: CategoryEncoding, Message: message, Err: err}
}
