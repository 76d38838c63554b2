package models

import (
	"time"

	"github.com/google/uuid"
)

// Activity types written to booking_activity_log
const (
	ActivityBookingCreated  = "booking_created"
	ActivityStatusChanged   = "status_changed"
	ActivityDepositPaid     = "deposit_paid"
	ActivityPaymentReceived = "payment_received"
)

// BookingActivity is an append-only audit entry
type BookingActivity struct {
	ID           string    `json:"id" db:"id"`
	BookingID    string    `json:"booking_id" db:"booking_id"`
	ActivityType string    `json:"activity_type" db:"activity_type"`
	Description  string    `json:"description" db:"description"`
	PerformedBy  string    `json:"performed_by" db:"performed_by"`
	Metadata     JSONMap   `json:"metadata,omitempty" db:"metadata"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Actor is the authenticated principal performing an operation
type Actor struct {
	UserID    uuid.UUID
	TeamID    uuid.UUID
	Email     string
	IPAddress string
	UserAgent string
}

// Authenticated reports whether both the user and the team scope are known
func (a Actor) Authenticated() bool {
	return a.UserID != uuid.Nil && a.TeamID != uuid.Nil
}
