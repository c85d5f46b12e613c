package ledger

import (
	"errors"
	"fmt"

	"github.com/yourusername/invoice-api/models"
)

var (
	// ErrValidation matches every *ValidationError. The caller can correct the input.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidState matches every *InvalidStateError. The operation is not
	// permitted for the current invoice or payment status.
	ErrInvalidState = errors.New("invalid state")
)

// ValidationError reports caller-correctable input, e.g. a payment exceeding the balance.
type ValidationError struct {
	Op      string
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s (value: %v)", e.Op, e.Field, e.Message, e.Value)
}

// Is makes errors.Is(err, ErrValidation) succeed.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func newValidationError(op, field string, value interface{}, format string, args ...interface{}) *ValidationError {
	return &ValidationError{
		Op:      op,
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf(format, args...),
	}
}

// InvalidStateError reports an operation that the state machine forbids.
type InvalidStateError struct {
	Op      string
	Status  models.InvoiceStatus
	Message string
}

// Error implements the error interface.
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s: %s (status: %s)", e.Op, e.Message, e.Status)
}

// Is makes errors.Is(err, ErrInvalidState) succeed.
func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}

func newInvalidStateError(op string, status models.InvoiceStatus, format string, args ...interface{}) *InvalidStateError {
	return &InvalidStateError{
		Op:      op,
		Status:  status,
		Message: fmt.Sprintf(format, args...),
	}
}
