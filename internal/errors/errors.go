package errors

import (
	"errors"
	"fmt"

	"github.com/riteshkumar/ledger-replay/internal/models"
)

// Domain errors for ledger replay. All of them are recoverable per event.
var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrForeignTransaction  = errors.New("transaction not owned by client")
	ErrAlreadyDisputed     = errors.New("transaction already disputed")
	ErrNotDisputed         = errors.New("transaction not disputed")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrAccountLocked       = errors.New("account locked")
)

// Errors raised outside of the replay pass itself.
var (
	ErrReplayNotFound      = errors.New("replay not found")
	ErrPersistenceDisabled = errors.New("replay persistence is disabled")
	ErrInvalidReplayID     = errors.New("invalid replay ID")
	ErrMalformedInput      = errors.New("malformed input")
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

func NewValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// EventError pairs a rejected event with its position in the input or in the
// event log. Event is nil when the input record could not be decoded.
type EventError struct {
	Position int
	Event    *models.Event
	Cause    error
}

func (e *EventError) Error() string {
	if e.Event == nil {
		return fmt.Sprintf("event #%d: %v", e.Position, e.Cause)
	}
	return fmt.Sprintf("event #%d (%s client=%d tx=%d): %v",
		e.Position, e.Event.Kind, e.Event.Client, e.Event.Tx, e.Cause)
}

func (e *EventError) Unwrap() error {
	return e.Cause
}

func NewEventError(position int, event *models.Event, cause error) *EventError {
	return &EventError{
		Position: position,
		Event:    event,
		Cause:    cause,
	}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrTransactionNotFound)
}

func IsForeignTransaction(err error) bool {
	return errors.Is(err, ErrForeignTransaction)
}

func IsAlreadyDisputed(err error) bool {
	return errors.Is(err, ErrAlreadyDisputed)
}

func IsNotDisputed(err error) bool {
	return errors.Is(err, ErrNotDisputed)
}

func IsInsufficientFunds(err error) bool {
	return errors.Is(err, ErrInsufficientFunds)
}

func IsAccountLocked(err error) bool {
	return errors.Is(err, ErrAccountLocked)
}

func IsMalformedInput(err error) bool {
	return errors.Is(err, ErrMalformedInput)
}

func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// IsRejection reports whether err is one of the per-event failures that the
// replay pass logs and skips.
func IsRejection(err error) bool {
	return IsNotFound(err) ||
		IsForeignTransaction(err) ||
		IsAlreadyDisputed(err) ||
		IsNotDisputed(err) ||
		IsInsufficientFunds(err) ||
		IsAccountLocked(err) ||
		IsValidationError(err)
}
