package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// ============================================================================
// BOOKING STATUS
// ============================================================================

// BookingStatus represents the lifecycle status of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusRefunded  BookingStatus = "refunded"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed: {BookingStatusCompleted, BookingStatusCancelled, BookingStatusRefunded},
	BookingStatusCompleted: {BookingStatusRefunded},
	BookingStatusCancelled: {},
	BookingStatusRefunded:  {},
}

// IsValid reports whether the status is one of the known values
func (s BookingStatus) IsValid() bool {
	_, ok := bookingTransitions[s]
	return ok
}

// CanTransitionTo checks the transition table
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed
func (s BookingStatus) IsTerminal() bool {
	allowed, ok := bookingTransitions[s]
	return ok && len(allowed) == 0
}

// ReleasesInventory reports whether a booking in this status gives its capacity back
func (s BookingStatus) ReleasesInventory() bool {
	return s == BookingStatusCancelled || s == BookingStatusRefunded
}

// ParseBookingStatus converts a raw string into a known status
func ParseBookingStatus(raw string) (BookingStatus, error) {
	status := BookingStatus(raw)
	if !status.IsValid() {
		return "", &ValidationError{Field: "status", Message: "invalid booking status: " + raw}
	}
	return status, nil
}

// TravelerType distinguishes the lead traveler from guests
type TravelerType string

const (
	TravelerTypeLead  TravelerType = "lead"
	TravelerTypeGuest TravelerType = "guest"
)

// JSONMap is a free-form JSONB object
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value interface{}) error {
	return scanJSON(value, m, "JSONMap")
}

// ============================================================================
// BOOKING ENTITIES
// ============================================================================

// Booking is the header row materialized from an accepted quote.
// TotalPrice and Currency are frozen from the quote and never recomputed.
type Booking struct {
	ID               string        `json:"id" db:"id"`
	TeamID           string        `json:"team_id" db:"team_id"`
	QuoteID          string        `json:"quote_id" db:"quote_id"`
	BookingReference string        `json:"booking_reference" db:"booking_reference"`
	Status           BookingStatus `json:"status" db:"status"`

	ClientID  *string `json:"client_id,omitempty" db:"client_id"`
	EventID   *string `json:"event_id,omitempty" db:"event_id"`
	PackageID *string `json:"package_id,omitempty" db:"package_id"`
	TierID    *string `json:"tier_id,omitempty" db:"tier_id"`

	TotalPrice float64 `json:"total_price" db:"total_price"`
	Currency   string  `json:"currency" db:"currency"`

	LeadFirstName string  `json:"lead_first_name" db:"lead_first_name"`
	LeadLastName  string  `json:"lead_last_name" db:"lead_last_name"`
	LeadEmail     string  `json:"lead_email" db:"lead_email"`
	LeadPhone     *string `json:"lead_phone,omitempty" db:"lead_phone"`
	TravelerCount int     `json:"traveler_count" db:"traveler_count"`

	DepositPaid      bool       `json:"deposit_paid" db:"deposit_paid"`
	DepositPaidAt    *time.Time `json:"deposit_paid_at,omitempty" db:"deposit_paid_at"`
	DepositReference *string    `json:"deposit_reference,omitempty" db:"deposit_reference"`

	OriginalPaymentSchedule PaymentSchedule `json:"original_payment_schedule" db:"original_payment_schedule"`
	PaymentSchedule         PaymentSchedule `json:"payment_schedule" db:"payment_schedule"`
	ComponentAvailability   AvailabilityMap `json:"component_availability" db:"component_availability"`

	Notes     *string `json:"notes,omitempty" db:"notes"`
	CreatedBy string  `json:"created_by" db:"created_by"`

	ConfirmedAt *time.Time `json:"confirmed_at,omitempty" db:"confirmed_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// BookingComponent is one booked line, with the booking-time snapshot of its source record
type BookingComponent struct {
	ID            string        `json:"id" db:"id"`
	BookingID     string        `json:"booking_id" db:"booking_id"`
	ComponentType ComponentType `json:"component_type" db:"component_type"`
	ComponentID   string        `json:"component_id" db:"component_id"`
	ComponentName string        `json:"component_name" db:"component_name"`
	Quantity      int           `json:"quantity" db:"quantity"`
	UnitPrice     float64       `json:"unit_price" db:"unit_price"`
	TotalPrice    float64       `json:"total_price" db:"total_price"`
	ComponentData JSONMap       `json:"component_data" db:"component_data"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
}

// BookingPayment is one installment; only paid fields change after creation
type BookingPayment struct {
	ID               string      `json:"id" db:"id"`
	BookingID        string      `json:"booking_id" db:"booking_id"`
	PaymentType      PaymentType `json:"payment_type" db:"payment_type"`
	PaymentNumber    int         `json:"payment_number" db:"payment_number"`
	Amount           float64     `json:"amount" db:"amount"`
	Currency         string      `json:"currency" db:"currency"`
	DueDate          *time.Time  `json:"due_date,omitempty" db:"due_date"`
	Paid             bool        `json:"paid" db:"paid"`
	PaidAt           *time.Time  `json:"paid_at,omitempty" db:"paid_at"`
	PaymentReference *string     `json:"payment_reference,omitempty" db:"payment_reference"`
	Notes            *string     `json:"notes,omitempty" db:"notes"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at" db:"updated_at"`
}

// BookingTraveler is a traveler attached to a booking. Lead is number 1.
type BookingTraveler struct {
	ID             string       `json:"id" db:"id"`
	BookingID      string       `json:"booking_id" db:"booking_id"`
	TravelerType   TravelerType `json:"traveler_type" db:"traveler_type"`
	TravelerNumber int          `json:"traveler_number" db:"traveler_number"`
	FirstName      string       `json:"first_name" db:"first_name"`
	LastName       string       `json:"last_name" db:"last_name"`
	Email          *string      `json:"email,omitempty" db:"email"`
	Phone          *string      `json:"phone,omitempty" db:"phone"`
	DateOfBirth    *time.Time   `json:"date_of_birth,omitempty" db:"date_of_birth"`
	Nationality    *string      `json:"nationality,omitempty" db:"nationality"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
}

// BookingDraft is everything the materializer writes in one transaction
type BookingDraft struct {
	Booking    *Booking
	Components []BookingComponent
	Payments   []BookingPayment
	Travelers  []BookingTraveler
	// Selected drives in-transaction inventory consumption
	Selected SelectedComponents
}

// BookingDetails aggregates a booking and its dependent rows
type BookingDetails struct {
	Booking    *Booking           `json:"booking"`
	Components []BookingComponent `json:"components"`
	Payments   []BookingPayment   `json:"payments"`
	Travelers  []BookingTraveler  `json:"travelers"`
	Activity   []BookingActivity  `json:"activity"`
}

// BookingFilter narrows team booking listings
type BookingFilter struct {
	Status  *BookingStatus
	EventID *string
	Limit   int
	Offset  int
}

// BookingStats summarizes a team's bookings
type BookingStats struct {
	Total        int     `json:"total" db:"total"`
	Pending      int     `json:"pending" db:"pending"`
	Confirmed    int     `json:"confirmed" db:"confirmed"`
	Cancelled    int     `json:"cancelled" db:"cancelled"`
	Completed    int     `json:"completed" db:"completed"`
	Refunded     int     `json:"refunded" db:"refunded"`
	DepositsPaid int     `json:"deposits_paid" db:"deposits_paid"`
	TotalRevenue float64 `json:"total_revenue" db:"total_revenue"`
}

// ============================================================================
// REQUEST DTOs
// ============================================================================

// LeadTravelerInput is the lead traveler submitted when booking a quote
type LeadTravelerInput struct {
	FirstName   string     `json:"first_name" validate:"required,max=100"`
	LastName    string     `json:"last_name" validate:"required,max=100"`
	Email       string     `json:"email" validate:"required,email"`
	Phone       string     `json:"phone" validate:"required,phone"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Nationality *string    `json:"nationality,omitempty" validate:"omitempty,max=100"`
}

// GuestTravelerInput is an additional traveler
type GuestTravelerInput struct {
	FirstName   string     `json:"first_name" validate:"required,max=100"`
	LastName    string     `json:"last_name" validate:"required,max=100"`
	Email       *string    `json:"email,omitempty" validate:"omitempty,email"`
	Phone       *string    `json:"phone,omitempty" validate:"omitempty,phone"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Nationality *string    `json:"nationality,omitempty" validate:"omitempty,max=100"`
}

// CreateBookingRequest converts a quote into a booking
type CreateBookingRequest struct {
	QuoteID         string               `json:"quote_id" validate:"required"`
	LeadTraveler    LeadTravelerInput    `json:"lead_traveler" validate:"required"`
	GuestTravelers  []GuestTravelerInput `json:"guest_travelers" validate:"dive"`
	PaymentSchedule PaymentSchedule      `json:"payment_schedule,omitempty" validate:"dive"`
	Notes           *string              `json:"notes,omitempty"`
}

// UpdateBookingStatusRequest moves a booking through its lifecycle
type UpdateBookingStatusRequest struct {
	Status string  `json:"status" binding:"required"`
	Notes  *string `json:"notes,omitempty"`
}

// MarkDepositPaidRequest records an externally captured deposit
type MarkDepositPaidRequest struct {
	Reference string `json:"reference" binding:"required"`
}

// MarkPaymentPaidRequest records an externally captured installment
type MarkPaymentPaidRequest struct {
	Reference *string `json:"reference,omitempty"`
}
