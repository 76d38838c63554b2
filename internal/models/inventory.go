package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ============================================================================
// INVENTORY SOURCE RECORDS
// ============================================================================

// InventoryRecord is the normalized view of a source record used by the availability checker.
// Remaining is meaningless when Bounded is false; those types are gated by Active only.
type InventoryRecord struct {
	Type       ComponentType          `json:"type"`
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	Bounded    bool                   `json:"bounded"`
	Remaining  int                    `json:"remaining"`
	Active     bool                   `json:"active"`
	Attributes map[string]interface{} `json:"attributes"`
}

// Ticket maps the tickets table
type Ticket struct {
	ID                string    `db:"id"`
	EventID           *string   `db:"event_id"`
	TicketName        string    `db:"ticket_name"`
	TicketType        *string   `db:"ticket_type"`
	QuantityAvailable int       `db:"quantity_available"`
	Price             float64   `db:"price"`
	Currency          string    `db:"currency"`
	UpdatedAt         time.Time `db:"updated_at"`
}

func (t *Ticket) Record() *InventoryRecord {
	return &InventoryRecord{
		Type:      ComponentTicket,
		ID:        t.ID,
		Name:      t.TicketName,
		Bounded:   true,
		Remaining: t.QuantityAvailable,
		Active:    true,
		Attributes: map[string]interface{}{
			"event_id":           t.EventID,
			"ticket_name":        t.TicketName,
			"ticket_type":        t.TicketType,
			"quantity_available": t.QuantityAvailable,
			"price":              t.Price,
			"currency":           t.Currency,
		},
	}
}

// HotelRoom maps the hotel_rooms table
type HotelRoom struct {
	ID                string     `db:"id"`
	HotelID           *string    `db:"hotel_id"`
	HotelName         string     `db:"hotel_name"`
	RoomType          string     `db:"room_type"`
	CheckIn           *time.Time `db:"check_in"`
	CheckOut          *time.Time `db:"check_out"`
	QuantityAvailable int        `db:"quantity_available"`
	PricePerNight     float64    `db:"price_per_night"`
	Currency          string     `db:"currency"`
}

func (r *HotelRoom) Record() *InventoryRecord {
	return &InventoryRecord{
		Type:      ComponentHotelRoom,
		ID:        r.ID,
		Name:      r.HotelName + " - " + r.RoomType,
		Bounded:   true,
		Remaining: r.QuantityAvailable,
		Active:    true,
		Attributes: map[string]interface{}{
			"hotel_id":           r.HotelID,
			"hotel_name":         r.HotelName,
			"room_type":          r.RoomType,
			"check_in":           r.CheckIn,
			"check_out":          r.CheckOut,
			"quantity_available": r.QuantityAvailable,
			"price_per_night":    r.PricePerNight,
			"currency":           r.Currency,
		},
	}
}

// CircuitTransfer maps the circuit_transfers table
type CircuitTransfer struct {
	ID            string  `db:"id"`
	EventID       *string `db:"event_id"`
	TransferName  string  `db:"transfer_name"`
	CoachCapacity int     `db:"coach_capacity"`
	Used          int     `db:"used"`
	Price         float64 `db:"price"`
	Currency      string  `db:"currency"`
}

func (t *CircuitTransfer) Record() *InventoryRecord {
	return &InventoryRecord{
		Type:      ComponentCircuitTransfer,
		ID:        t.ID,
		Name:      t.TransferName,
		Bounded:   true,
		Remaining: t.CoachCapacity - t.Used,
		Active:    true,
		Attributes: map[string]interface{}{
			"event_id":       t.EventID,
			"transfer_name":  t.TransferName,
			"coach_capacity": t.CoachCapacity,
			"used":           t.Used,
			"price":          t.Price,
			"currency":       t.Currency,
		},
	}
}

// AirportTransfer maps the airport_transfers table
type AirportTransfer struct {
	ID            string  `db:"id"`
	TransferName  string  `db:"transfer_name"`
	TransportType *string `db:"transport_type"`
	MaxCapacity   int     `db:"max_capacity"`
	Used          int     `db:"used"`
	Price         float64 `db:"price"`
	Currency      string  `db:"currency"`
}

func (t *AirportTransfer) Record() *InventoryRecord {
	return &InventoryRecord{
		Type:      ComponentAirportTransfer,
		ID:        t.ID,
		Name:      t.TransferName,
		Bounded:   true,
		Remaining: t.MaxCapacity - t.Used,
		Active:    true,
		Attributes: map[string]interface{}{
			"transfer_name":  t.TransferName,
			"transport_type": t.TransportType,
			"max_capacity":   t.MaxCapacity,
			"used":           t.Used,
			"price":          t.Price,
			"currency":       t.Currency,
		},
	}
}

// Flight maps the flights table
type Flight struct {
	ID               string     `db:"id"`
	Airline          string     `db:"airline"`
	FlightNumber     string     `db:"flight_number"`
	DepartureAirport string     `db:"departure_airport"`
	ArrivalAirport   string     `db:"arrival_airport"`
	DepartureTime    *time.Time `db:"departure_time"`
	Price            float64    `db:"price"`
	Currency         string     `db:"currency"`
	Active           bool       `db:"active"`
}

func (f *Flight) Record() *InventoryRecord {
	return &InventoryRecord{
		Type:   ComponentFlight,
		ID:     f.ID,
		Name:   f.Airline + " " + f.FlightNumber,
		Active: f.Active,
		Attributes: map[string]interface{}{
			"airline":           f.Airline,
			"flight_number":     f.FlightNumber,
			"departure_airport": f.DepartureAirport,
			"arrival_airport":   f.ArrivalAirport,
			"departure_time":    f.DepartureTime,
			"price":             f.Price,
			"currency":          f.Currency,
			"active":            f.Active,
		},
	}
}

// LoungePass maps the lounge_passes table
type LoungePass struct {
	ID         string  `db:"id"`
	LoungeName string  `db:"lounge_name"`
	Airport    *string `db:"airport"`
	Price      float64 `db:"price"`
	Currency   string  `db:"currency"`
	IsActive   bool    `db:"is_active"`
}

func (p *LoungePass) Record() *InventoryRecord {
	return &InventoryRecord{
		Type:   ComponentLoungePass,
		ID:     p.ID,
		Name:   p.LoungeName,
		Active: p.IsActive,
		Attributes: map[string]interface{}{
			"lounge_name": p.LoungeName,
			"airport":     p.Airport,
			"price":       p.Price,
			"currency":    p.Currency,
			"is_active":   p.IsActive,
		},
	}
}

// ============================================================================
// AVAILABILITY
// ============================================================================

// ComponentAvailability is the verdict for one selected component
type ComponentAvailability struct {
	Available         bool   `json:"available"`
	Requested         int    `json:"requested"`
	AvailableQuantity int    `json:"availableQuantity"`
	ComponentName     string `json:"componentName"`
}

// AvailabilityMap is keyed by "<type>_<id>"; stored in bookings.component_availability
type AvailabilityMap map[string]ComponentAvailability

func (m AvailabilityMap) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *AvailabilityMap) Scan(value interface{}) error {
	return scanJSON(value, m, "AvailabilityMap")
}

// AvailabilityReport is the checker's output
type AvailabilityReport struct {
	AllAvailable bool            `json:"allAvailable"`
	Components   AvailabilityMap `json:"components"`
	Unavailable  []string        `json:"unavailable"`
}

// DescribeShortfall renders the message used for an unavailable component
func DescribeShortfall(componentType ComponentType, name string, requested, available int) string {
	return fmt.Sprintf("%s - %s (requested: %d, available: %d)", componentType.Label(), name, requested, available)
}
