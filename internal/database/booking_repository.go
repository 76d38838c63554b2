package database

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/grandstand-travel/backoffice/internal/models"
)

// BookingRepository persists bookings and their dependent rows
type BookingRepository struct {
	db              *sqlx.DB
	quotes          *QuoteRepository
	inventory       *InventoryRepository
	referencePrefix string
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *sqlx.DB, quotes *QuoteRepository, inventory *InventoryRepository, referencePrefix string) *BookingRepository {
	if referencePrefix == "" {
		referencePrefix = "BK"
	}
	return &BookingRepository{
		db:              db,
		quotes:          quotes,
		inventory:       inventory,
		referencePrefix: referencePrefix,
	}
}

const bookingColumns = `
	id, team_id, quote_id, booking_reference, status,
	client_id, event_id, package_id, tier_id, total_price, currency,
	lead_first_name, lead_last_name, lead_email, lead_phone, traveler_count,
	deposit_paid, deposit_paid_at, deposit_reference,
	original_payment_schedule, payment_schedule, component_availability,
	notes, created_by, confirmed_at, cancelled_at, created_at, updated_at`

// ============================================================================
// BOOKING REFERENCE
// ============================================================================

// generateBookingReference creates a unique reference.
// Format: <PREFIX>-YYYYMMDD-XXXXXX (6 hex chars)
func (r *BookingRepository) generateBookingReference(ctx context.Context, tx *sqlx.Tx) (string, error) {
	todayStr := time.Now().Format("20060102")

	for attempts := 0; attempts < 10; attempts++ {
		randomBytes := make([]byte, 3)
		if _, err := rand.Read(randomBytes); err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}
		ref := fmt.Sprintf("%s-%s-%s", r.referencePrefix, todayStr, strings.ToUpper(hex.EncodeToString(randomBytes)))

		var exists bool
		err := tx.QueryRowxContext(ctx, `SELECT EXISTS(SELECT 1 FROM bookings WHERE booking_reference = $1)`, ref).Scan(&exists)
		if err != nil {
			return "", fmt.Errorf("failed to check reference uniqueness: %w", err)
		}
		if !exists {
			return ref, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique booking reference after 10 attempts")
}

// ============================================================================
// CREATE
// ============================================================================

// ExistsForQuote reports whether any booking references the quote
func (r *BookingRepository) ExistsForQuote(ctx context.Context, quoteID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM bookings WHERE quote_id = $1)`, quoteID)
	if err != nil {
		return false, fmt.Errorf("failed to check existing booking: %w", err)
	}
	return exists, nil
}

// CreateFromQuote writes the booking, its components, payments and travelers and confirms the
// quote in a single transaction. With reserve set, each selected component's capacity is
// consumed in the same transaction and any shortfall rolls everything back.
func (r *BookingRepository) CreateFromQuote(ctx context.Context, draft *models.BookingDraft, reserve bool) (*models.Booking, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	booking := draft.Booking

	ref, err := r.generateBookingReference(ctx, tx)
	if err != nil {
		return nil, err
	}
	booking.BookingReference = ref

	// 1. Header. The unique quote_id makes a concurrent second insert a no-op.
	bookingQuery := `
		INSERT INTO bookings (
			id, team_id, quote_id, booking_reference, status,
			client_id, event_id, package_id, tier_id, total_price, currency,
			lead_first_name, lead_last_name, lead_email, lead_phone, traveler_count,
			deposit_paid, original_payment_schedule, payment_schedule, component_availability,
			notes, created_by
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22
		)
		ON CONFLICT (quote_id) DO NOTHING
		RETURNING created_at, updated_at`

	err = tx.QueryRowxContext(ctx, bookingQuery,
		booking.ID, booking.TeamID, booking.QuoteID, booking.BookingReference, booking.Status,
		booking.ClientID, booking.EventID, booking.PackageID, booking.TierID, booking.TotalPrice, booking.Currency,
		booking.LeadFirstName, booking.LeadLastName, booking.LeadEmail, booking.LeadPhone, booking.TravelerCount,
		booking.DepositPaid, booking.OriginalPaymentSchedule, booking.PaymentSchedule, booking.ComponentAvailability,
		booking.Notes, booking.CreatedBy,
	).Scan(&booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || IsUniqueViolation(err) {
			return nil, models.ErrBookingExists
		}
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	// 2. Inventory
	if reserve {
		if err := r.reserveComponents(ctx, tx, draft.Selected); err != nil {
			return nil, err
		}
	}

	// 3. Components
	componentQuery := `
		INSERT INTO booking_components (
			id, booking_id, component_type, component_id, component_name,
			quantity, unit_price, total_price, component_data
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for i := range draft.Components {
		c := &draft.Components[i]
		c.BookingID = booking.ID
		_, err := tx.ExecContext(ctx, componentQuery,
			c.ID, c.BookingID, c.ComponentType, c.ComponentID, c.ComponentName,
			c.Quantity, c.UnitPrice, c.TotalPrice, c.ComponentData,
		)
		if err != nil {
			return nil, &models.StoreWriteError{Entity: "component", Err: err}
		}
	}

	// 4. Payment schedule
	paymentQuery := `
		INSERT INTO booking_payments (
			id, booking_id, payment_type, payment_number, amount, currency, due_date, paid, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8)`

	for i := range draft.Payments {
		p := &draft.Payments[i]
		p.BookingID = booking.ID
		_, err := tx.ExecContext(ctx, paymentQuery,
			p.ID, p.BookingID, p.PaymentType, p.PaymentNumber, p.Amount, p.Currency, p.DueDate, p.Notes,
		)
		if err != nil {
			return nil, &models.StoreWriteError{Entity: "payment schedule", Err: err}
		}
	}

	// 5. Travelers
	travelerQuery := `
		INSERT INTO booking_travelers (
			id, booking_id, traveler_type, traveler_number, first_name, last_name,
			email, phone, date_of_birth, nationality
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	for i := range draft.Travelers {
		t := &draft.Travelers[i]
		t.BookingID = booking.ID
		_, err := tx.ExecContext(ctx, travelerQuery,
			t.ID, t.BookingID, t.TravelerType, t.TravelerNumber, t.FirstName, t.LastName,
			t.Email, t.Phone, t.DateOfBirth, t.Nationality,
		)
		if err != nil {
			return nil, &models.StoreWriteError{Entity: "traveler records", Err: err}
		}
	}

	// 6. Quote
	if err := r.quotes.MarkConfirmedTx(ctx, tx, booking.QuoteID); err != nil {
		return nil, fmt.Errorf("failed to update quote status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return booking, nil
}

// ============================================================================
// READ
// ============================================================================

// GetBookingByID returns the booking within the team scope, nil if absent
func (r *BookingRepository) GetBookingByID(ctx context.Context, bookingID, teamID string) (*models.Booking, error) {
	query := `SELECT` + bookingColumns + ` FROM bookings WHERE id = $1 AND team_id = $2`

	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, bookingID, teamID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	return &booking, nil
}

// GetComponents returns the booked components in insertion order
func (r *BookingRepository) GetComponents(ctx context.Context, bookingID string) ([]models.BookingComponent, error) {
	query := `
		SELECT id, booking_id, component_type, component_id, component_name,
			quantity, unit_price, total_price, component_data, created_at
		FROM booking_components
		WHERE booking_id = $1
		ORDER BY created_at ASC, id ASC`

	components := []models.BookingComponent{}
	if err := r.db.SelectContext(ctx, &components, query, bookingID); err != nil {
		return nil, fmt.Errorf("failed to get booking components: %w", err)
	}
	return components, nil
}

// GetPayments returns the payment schedule ordered by payment number
func (r *BookingRepository) GetPayments(ctx context.Context, bookingID string) ([]models.BookingPayment, error) {
	query := `
		SELECT id, booking_id, payment_type, payment_number, amount, currency, due_date,
			paid, paid_at, payment_reference, notes, created_at, updated_at
		FROM booking_payments
		WHERE booking_id = $1
		ORDER BY payment_number ASC`

	payments := []models.BookingPayment{}
	if err := r.db.SelectContext(ctx, &payments, query, bookingID); err != nil {
		return nil, fmt.Errorf("failed to get booking payments: %w", err)
	}
	return payments, nil
}

// GetTravelers returns the travelers ordered by traveler number
func (r *BookingRepository) GetTravelers(ctx context.Context, bookingID string) ([]models.BookingTraveler, error) {
	query := `
		SELECT id, booking_id, traveler_type, traveler_number, first_name, last_name,
			email, phone, date_of_birth, nationality, created_at
		FROM booking_travelers
		WHERE booking_id = $1
		ORDER BY traveler_number ASC`

	travelers := []models.BookingTraveler{}
	if err := r.db.SelectContext(ctx, &travelers, query, bookingID); err != nil {
		return nil, fmt.Errorf("failed to get booking travelers: %w", err)
	}
	return travelers, nil
}

// ListTeamBookings returns the team's bookings, newest first
func (r *BookingRepository) ListTeamBookings(ctx context.Context, teamID string, filter models.BookingFilter) ([]models.Booking, error) {
	query := `SELECT` + bookingColumns + ` FROM bookings WHERE team_id = $1`
	args := []interface{}{teamID}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.EventID != nil {
		args = append(args, *filter.EventID)
		query += fmt.Sprintf(" AND event_id = $%d", len(args))
	}

	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	bookings := []models.Booking{}
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

// GetStats aggregates the team's bookings
func (r *BookingRepository) GetStats(ctx context.Context, teamID string) (*models.BookingStats, error) {
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'pending') AS pending,
			COUNT(*) FILTER (WHERE status = 'confirmed') AS confirmed,
			COUNT(*) FILTER (WHERE status = 'cancelled') AS cancelled,
			COUNT(*) FILTER (WHERE status = 'completed') AS completed,
			COUNT(*) FILTER (WHERE status = 'refunded') AS refunded,
			COUNT(*) FILTER (WHERE deposit_paid) AS deposits_paid,
			COALESCE(SUM(total_price) FILTER (WHERE status NOT IN ('cancelled', 'refunded')), 0) AS total_revenue
		FROM bookings
		WHERE team_id = $1`

	var stats models.BookingStats
	if err := r.db.GetContext(ctx, &stats, query, teamID); err != nil {
		return nil, fmt.Errorf("failed to get booking stats: %w", err)
	}
	return &stats, nil
}

// ============================================================================
// LIFECYCLE
// ============================================================================

// UpdateStatus moves the booking from the status the caller observed to the new one, stamping
// confirmed_at/cancelled_at when entering those states. The row is locked first and
// ErrStatusChanged is returned if another request already moved it.
// With manageInventory set, entering cancelled/refunded gives the booking's capacity back and
// leaving those states takes it again; a shortfall on the way out fails with an AvailabilityError.
func (r *BookingRepository) UpdateStatus(ctx context.Context, bookingID, teamID string, from, to models.BookingStatus, manageInventory bool) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current models.BookingStatus
	err = tx.GetContext(ctx, &current,
		`SELECT status FROM bookings WHERE id = $1 AND team_id = $2 FOR UPDATE`, bookingID, teamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrBookingNotFound
		}
		return fmt.Errorf("failed to lock booking: %w", err)
	}
	if current != from {
		return models.ErrStatusChanged
	}

	query := `
		UPDATE bookings
		SET status = $1,
			confirmed_at = CASE WHEN $1 = 'confirmed' THEN NOW() ELSE confirmed_at END,
			cancelled_at = CASE WHEN $1 = 'cancelled' THEN NOW() ELSE cancelled_at END,
			updated_at = NOW()
		WHERE id = $2 AND team_id = $3`

	if _, err := tx.ExecContext(ctx, query, string(to), bookingID, teamID); err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}

	if manageInventory && from.ReleasesInventory() != to.ReleasesInventory() {
		components, err := r.componentsTx(ctx, tx, bookingID)
		if err != nil {
			return err
		}

		if to.ReleasesInventory() {
			for _, c := range components {
				if err := r.inventory.ReleaseTx(ctx, tx, c.Type, c.ID, c.Quantity); err != nil {
					return err
				}
			}
		} else if err := r.reserveComponents(ctx, tx, components); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// reserveComponents consumes capacity for every component, summing repeated lines.
// All shortfalls are collected before failing so the caller can report them together.
func (r *BookingRepository) reserveComponents(ctx context.Context, tx *sqlx.Tx, components models.SelectedComponents) error {
	var shortfalls []string
	for _, component := range components.Merged() {
		ok, err := r.inventory.ReserveTx(ctx, tx, component)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		message, err := r.inventory.ShortfallTx(ctx, tx, component)
		if err != nil {
			return err
		}
		shortfalls = append(shortfalls, message)
	}
	if len(shortfalls) > 0 {
		return &models.AvailabilityError{Unavailable: shortfalls}
	}
	return nil
}

// componentsTx loads the booked components as reservable lines
func (r *BookingRepository) componentsTx(ctx context.Context, tx *sqlx.Tx, bookingID string) (models.SelectedComponents, error) {
	var rows []models.BookingComponent
	err := tx.SelectContext(ctx, &rows, `
		SELECT id, booking_id, component_type, component_id, component_name,
			quantity, unit_price, total_price, component_data, created_at
		FROM booking_components WHERE booking_id = $1
		ORDER BY created_at ASC, id ASC`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking components: %w", err)
	}

	components := make(models.SelectedComponents, 0, len(rows))
	for _, c := range rows {
		components = append(components, models.SelectedComponent{
			Type:     c.ComponentType,
			ID:       c.ComponentID,
			Name:     c.ComponentName,
			Quantity: c.Quantity,
		})
	}
	return components, nil
}

// MarkDepositPaid records the deposit. Repeated calls overwrite the timestamp and reference.
func (r *BookingRepository) MarkDepositPaid(ctx context.Context, bookingID, teamID, reference string) error {
	query := `
		UPDATE bookings
		SET deposit_paid = TRUE, deposit_paid_at = NOW(), deposit_reference = $1, updated_at = NOW()
		WHERE id = $2 AND team_id = $3`

	result, err := r.db.ExecContext(ctx, query, reference, bookingID, teamID)
	if err != nil {
		return fmt.Errorf("failed to mark deposit paid: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return models.ErrBookingNotFound
	}
	return nil
}

// MarkPaymentPaid marks a single installment of a team booking as paid
func (r *BookingRepository) MarkPaymentPaid(ctx context.Context, bookingID, teamID, paymentID string, reference *string) (*models.BookingPayment, error) {
	query := `
		UPDATE booking_payments p
		SET paid = TRUE, paid_at = NOW(), payment_reference = COALESCE($1, p.payment_reference), updated_at = NOW()
		FROM bookings b
		WHERE p.id = $2 AND p.booking_id = $3 AND b.id = p.booking_id AND b.team_id = $4
		RETURNING p.id, p.booking_id, p.payment_type, p.payment_number, p.amount, p.currency, p.due_date,
			p.paid, p.paid_at, p.payment_reference, p.notes, p.created_at, p.updated_at`

	var payment models.BookingPayment
	if err := r.db.GetContext(ctx, &payment, query, reference, paymentID, bookingID, teamID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to mark payment paid: %w", err)
	}
	return &payment, nil
}
