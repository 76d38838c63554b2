package services

import (
	"context"

	"github.com/grandstand-travel/backoffice/internal/models"
)

// QuoteStore is the read side of the quote subsystem
type QuoteStore interface {
	GetQuoteByID(ctx context.Context, quoteID, teamID string) (*models.Quote, error)
	ListRevisions(ctx context.Context, quoteID, teamID string) ([]models.QuoteRevision, error)
}

// InventoryStore looks up component source records
type InventoryStore interface {
	GetRecord(ctx context.Context, componentType models.ComponentType, componentID string) (*models.InventoryRecord, error)
}

// BookingStore persists bookings and their dependent rows
type BookingStore interface {
	ExistsForQuote(ctx context.Context, quoteID string) (bool, error)
	CreateFromQuote(ctx context.Context, draft *models.BookingDraft, reserve bool) (*models.Booking, error)

	GetBookingByID(ctx context.Context, bookingID, teamID string) (*models.Booking, error)
	GetComponents(ctx context.Context, bookingID string) ([]models.BookingComponent, error)
	GetPayments(ctx context.Context, bookingID string) ([]models.BookingPayment, error)
	GetTravelers(ctx context.Context, bookingID string) ([]models.BookingTraveler, error)
	ListTeamBookings(ctx context.Context, teamID string, filter models.BookingFilter) ([]models.Booking, error)
	GetStats(ctx context.Context, teamID string) (*models.BookingStats, error)

	UpdateStatus(ctx context.Context, bookingID, teamID string, from, to models.BookingStatus, manageInventory bool) error
	MarkDepositPaid(ctx context.Context, bookingID, teamID, reference string) error
	MarkPaymentPaid(ctx context.Context, bookingID, teamID, paymentID string, reference *string) (*models.BookingPayment, error)
}

// ActivityStore is the append-only booking activity log
type ActivityStore interface {
	Insert(ctx context.Context, activity *models.BookingActivity) error
	ListByBooking(ctx context.Context, bookingID string) ([]models.BookingActivity, error)
}

// StatsCache caches per-team booking stats. Implementations swallow their own errors.
type StatsCache interface {
	Get(ctx context.Context, teamID string) (*models.BookingStats, bool)
	Set(ctx context.Context, teamID string, stats *models.BookingStats)
	Invalidate(ctx context.Context, teamID string)
}
