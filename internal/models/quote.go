package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ============================================================================
// QUOTE TYPES & STATUSES
// ============================================================================

// QuoteStatus represents the status of a quote
type QuoteStatus string

const (
	QuoteStatusDraft     QuoteStatus = "draft"
	QuoteStatusSent      QuoteStatus = "sent"
	QuoteStatusAccepted  QuoteStatus = "accepted"
	QuoteStatusDeclined  QuoteStatus = "declined"
	QuoteStatusExpired   QuoteStatus = "expired"
	QuoteStatusConfirmed QuoteStatus = "confirmed" // Set when the booking is materialized
)

// ComponentType identifies the inventory source of a selected component
type ComponentType string

const (
	ComponentTicket          ComponentType = "ticket"
	ComponentHotelRoom       ComponentType = "hotel_room"
	ComponentCircuitTransfer ComponentType = "circuit_transfer"
	ComponentAirportTransfer ComponentType = "airport_transfer"
	ComponentFlight          ComponentType = "flight"
	ComponentLoungePass      ComponentType = "lounge_pass"
)

// ComponentTypes lists every supported component type in display order
var ComponentTypes = []ComponentType{
	ComponentTicket,
	ComponentHotelRoom,
	ComponentCircuitTransfer,
	ComponentAirportTransfer,
	ComponentFlight,
	ComponentLoungePass,
}

// IsValid checks the type against the supported inventory sources
func (t ComponentType) IsValid() bool {
	for _, known := range ComponentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Label is the human readable group name used in availability messages
func (t ComponentType) Label() string {
	switch t {
	case ComponentTicket:
		return "Tickets"
	case ComponentHotelRoom:
		return "Hotel rooms"
	case ComponentCircuitTransfer:
		return "Circuit transfers"
	case ComponentAirportTransfer:
		return "Airport transfers"
	case ComponentFlight:
		return "Flights"
	case ComponentLoungePass:
		return "Lounge passes"
	default:
		return string(t)
	}
}

// PaymentType identifies an entry of a payment schedule
type PaymentType string

const (
	PaymentTypeDeposit       PaymentType = "deposit"
	PaymentTypeSecondPayment PaymentType = "second_payment"
	PaymentTypeFinalPayment  PaymentType = "final_payment"
	PaymentTypeAdditional    PaymentType = "additional"
)

// ============================================================================
// JSONB PAYLOAD TYPES
// ============================================================================

// SelectedComponent is one frozen line of a quote
type SelectedComponent struct {
	Type      ComponentType          `json:"type"`
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Quantity  int                    `json:"quantity"`
	UnitPrice float64                `json:"unit_price"`
	Snapshot  map[string]interface{} `json:"snapshot,omitempty"` // Quote-time copy of the source record
}

// Key identifies the component in availability reports
func (c SelectedComponent) Key() string {
	return fmt.Sprintf("%s_%s", c.Type, c.ID)
}

// DisplayName is the quote-frozen name, or the id when none was frozen
func (c SelectedComponent) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}

// SelectedComponents is the ordered component list stored in quotes.selected_components
type SelectedComponents []SelectedComponent

// Merged sums repeated lines for the same component, keeping first-seen order
func (c SelectedComponents) Merged() SelectedComponents {
	merged := make(SelectedComponents, 0, len(c))
	index := map[string]int{}
	for _, component := range c {
		key := component.Key()
		if i, ok := index[key]; ok {
			merged[i].Quantity += component.Quantity
			if merged[i].Name == "" {
				merged[i].Name = component.Name
			}
			continue
		}
		index[key] = len(merged)
		merged = append(merged, component)
	}
	return merged
}

// PaymentScheduleItem is one installment of a schedule
type PaymentScheduleItem struct {
	PaymentType PaymentType `json:"payment_type" validate:"required,oneof=deposit second_payment final_payment additional"`
	Amount      float64     `json:"amount" validate:"gt=0"`
	DueDate     *time.Time  `json:"due_date,omitempty"`
	Notes       *string     `json:"notes,omitempty"`
}

// PaymentSchedule is an ordered list of installments
type PaymentSchedule []PaymentScheduleItem

// Total sums every installment
func (s PaymentSchedule) Total() float64 {
	var total float64
	for _, item := range s {
		total += item.Amount
	}
	return total
}

func (c SelectedComponents) Value() (driver.Value, error) {
	return json.Marshal(c)
}

func (c *SelectedComponents) Scan(value interface{}) error {
	return scanJSON(value, c, "SelectedComponents")
}

func (s PaymentSchedule) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *PaymentSchedule) Scan(value interface{}) error {
	return scanJSON(value, s, "PaymentSchedule")
}

// scanJSON decodes a JSONB column; lib/pq yields []byte, pgx may yield string
func scanJSON(value interface{}, dest interface{}, typeName string) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("type assertion to []byte failed for %s", typeName)
	}
}

// ============================================================================
// QUOTE
// ============================================================================

// Quote is an immutable, versioned offer. Revisions are new rows pointing at their parent.
type Quote struct {
	ID       string  `json:"id" db:"id"`
	TeamID   string  `json:"team_id" db:"team_id"`
	ClientID *string `json:"client_id,omitempty" db:"client_id"`

	ClientName  string  `json:"client_name" db:"client_name"`
	ClientEmail *string `json:"client_email,omitempty" db:"client_email"`
	ClientPhone *string `json:"client_phone,omitempty" db:"client_phone"`

	EventID   *string `json:"event_id,omitempty" db:"event_id"`
	EventName *string `json:"event_name,omitempty" db:"event_name"`
	PackageID *string `json:"package_id,omitempty" db:"package_id"`
	TierID    *string `json:"tier_id,omitempty" db:"tier_id"`

	Adults   int `json:"adults" db:"adults"`
	Children int `json:"children" db:"children"`

	SelectedComponents SelectedComponents `json:"selected_components" db:"selected_components"`

	TotalPrice float64 `json:"total_price" db:"total_price"`
	Currency   string  `json:"currency" db:"currency"`

	DepositAmount        float64    `json:"deposit_amount" db:"deposit_amount"`
	DepositDueDate       *time.Time `json:"deposit_due_date,omitempty" db:"deposit_due_date"`
	SecondPaymentAmount  float64    `json:"second_payment_amount" db:"second_payment_amount"`
	SecondPaymentDueDate *time.Time `json:"second_payment_due_date,omitempty" db:"second_payment_due_date"`
	FinalPaymentAmount   float64    `json:"final_payment_amount" db:"final_payment_amount"`
	FinalPaymentDueDate  *time.Time `json:"final_payment_due_date,omitempty" db:"final_payment_due_date"`

	Status        QuoteStatus `json:"status" db:"status"`
	Version       int         `json:"version" db:"version"`
	ParentQuoteID *string     `json:"parent_quote_id,omitempty" db:"parent_quote_id"`

	AcceptedAt  *time.Time `json:"accepted_at,omitempty" db:"accepted_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty" db:"confirmed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// OriginalPaymentSchedule derives the quote's installments; zero amounts are skipped
func (q *Quote) OriginalPaymentSchedule() PaymentSchedule {
	schedule := PaymentSchedule{}
	if q.DepositAmount > 0 {
		schedule = append(schedule, PaymentScheduleItem{
			PaymentType: PaymentTypeDeposit,
			Amount:      q.DepositAmount,
			DueDate:     q.DepositDueDate,
		})
	}
	if q.SecondPaymentAmount > 0 {
		schedule = append(schedule, PaymentScheduleItem{
			PaymentType: PaymentTypeSecondPayment,
			Amount:      q.SecondPaymentAmount,
			DueDate:     q.SecondPaymentDueDate,
		})
	}
	if q.FinalPaymentAmount > 0 {
		schedule = append(schedule, PaymentScheduleItem{
			PaymentType: PaymentTypeFinalPayment,
			Amount:      q.FinalPaymentAmount,
			DueDate:     q.FinalPaymentDueDate,
		})
	}
	return schedule
}

// QuoteRevision is a lightweight row of a quote's revision chain
type QuoteRevision struct {
	ID            string      `json:"id" db:"id"`
	Version       int         `json:"version" db:"version"`
	ParentQuoteID *string     `json:"parent_quote_id,omitempty" db:"parent_quote_id"`
	Status        QuoteStatus `json:"status" db:"status"`
	TotalPrice    float64     `json:"total_price" db:"total_price"`
	Currency      string      `json:"currency" db:"currency"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
}
