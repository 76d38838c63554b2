package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrAccessDenied     = errors.New("access denied")
	ErrQuoteNotFound    = errors.New("quote not found or access denied")
	ErrBookingExists    = errors.New("booking already exists for this quote")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrStatusChanged    = errors.New("booking status was changed by another request")
)

// AvailabilityError is returned when one or more quoted components can no longer be supplied
type AvailabilityError struct {
	Components  AvailabilityMap `json:"components,omitempty"`
	Unavailable []string        `json:"unavailable"`
}

func (e *AvailabilityError) Error() string {
	return "some components are no longer available: " + strings.Join(e.Unavailable, "; ")
}

// StoreWriteError wraps a failed write of a booking sub-entity
type StoreWriteError struct {
	Entity string // "component", "payment schedule", "traveler records", ...
	Err    error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("failed to create %s: %v", e.Entity, e.Err)
}

func (e *StoreWriteError) Unwrap() error {
	return e.Err
}

// ValidationError reports an invalid input field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// TransitionError is returned for a status change outside the transition table
type TransitionError struct {
	From BookingStatus
	To   BookingStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

// IsAvailabilityError unwraps an *AvailabilityError
func IsAvailabilityError(err error) (*AvailabilityError, bool) {
	var availErr *AvailabilityError
	if errors.As(err, &availErr) {
		return availErr, true
	}
	return nil, false
}
