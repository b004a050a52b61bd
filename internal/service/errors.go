package service

import (
	"errors"
	"fmt"

	"flowershop/internal/database"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrProductInactive  = errors.New("product is not available for order")
	ErrSlotNotFound     = errors.New("delivery slot not found")
	ErrSlotUnavailable  = errors.New("delivery slot is no longer available")
	ErrInvalidSelection = errors.New("invalid delivery selection")
	ErrCourierRequired  = errors.New("courier is required for delivery status")
	ErrTerminalStatus   = errors.New("order is already closed")
	ErrCourierNotFound  = errors.New("courier not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrSessionNotFound  = errors.New("checkout session not found")
	ErrNotFound         = database.ErrNotFound
)

// ValidationError reports a bad or missing input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func newValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// translateNotFound replaces the storage sentinel with a domain one.
func translateNotFound(err, target error) error {
	if errors.Is(err, database.ErrNotFound) {
		return target
	}
	return err
}
