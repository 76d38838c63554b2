package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/grandstand-travel/backoffice/internal/models"
	pkgvalidator "github.com/grandstand-travel/backoffice/pkg/validator"
)

// BookingServiceConfig holds booking engine switches
type BookingServiceConfig struct {
	// ReserveInventory consumes capacity inside the booking transaction
	ReserveInventory bool
	// StrictTransitions rejects status changes outside the transition table instead of warning
	StrictTransitions bool
	DefaultCurrency   string
}

// DefaultBookingServiceConfig returns sensible defaults
func DefaultBookingServiceConfig() BookingServiceConfig {
	return BookingServiceConfig{
		ReserveInventory:  true,
		StrictTransitions: false,
		DefaultCurrency:   "GBP",
	}
}

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// BookingService converts accepted quotes into bookings and manages their lifecycle
type BookingService struct {
	quotes    QuoteStore
	inventory InventoryStore
	bookings  BookingStore
	checker   *AvailabilityChecker
	activity  *ActivityLogger
	cache     StatsCache
	phones    *pkgvalidator.PhoneValidator
	validate  *validator.Validate
	config    BookingServiceConfig
	logger    *logrus.Logger
}

// NewBookingService creates a new BookingService
func NewBookingService(
	quotes QuoteStore,
	inventory InventoryStore,
	bookings BookingStore,
	checker *AvailabilityChecker,
	activity *ActivityLogger,
	cache StatsCache,
	phones *pkgvalidator.PhoneValidator,
	config BookingServiceConfig,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		quotes:    quotes,
		inventory: inventory,
		bookings:  bookings,
		checker:   checker,
		activity:  activity,
		cache:     cache,
		phones:    phones,
		validate:  newRequestValidator(phones),
		config:    config,
		logger:    logger,
	}
}

// ============================================================================
// CREATE BOOKING FROM QUOTE
// ============================================================================

// CreateBookingFromQuote materializes a booking from an accepted quote.
// Every precondition is checked before the first write; the writes happen in one transaction.
func (s *BookingService) CreateBookingFromQuote(ctx context.Context, actor models.Actor, req *models.CreateBookingRequest) (*models.Booking, error) {
	if !actor.Authenticated() {
		return nil, models.ErrNotAuthenticated
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, toValidationError(err)
	}

	teamID := actor.TeamID.String()
	log := s.logger.WithFields(logrus.Fields{
		"quote_id": req.QuoteID,
		"team_id":  teamID,
		"user_id":  actor.UserID.String(),
	})

	// 1. Quote in the actor's scope
	quote, err := s.quotes.GetQuoteByID(ctx, req.QuoteID, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	if quote == nil {
		return nil, models.ErrQuoteNotFound
	}
	if quote.Status != models.QuoteStatusAccepted {
		log.WithField("quote_status", quote.Status).Warn("Booking a quote that has not been accepted")
	}

	// 2. One booking per quote
	exists, err := s.bookings.ExistsForQuote(ctx, quote.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.ErrBookingExists
	}

	// 3. Re-validate inventory
	report, err := s.checker.Check(ctx, quote.SelectedComponents)
	if err != nil {
		return nil, err
	}
	if !report.AllAvailable {
		log.WithField("unavailable", report.Unavailable).Warn("Booking rejected: components no longer available")
		return nil, &models.AvailabilityError{
			Components:  report.Components,
			Unavailable: report.Unavailable,
		}
	}

	// 4. Build rows
	draft, err := s.buildDraft(ctx, actor, quote, req, report)
	if err != nil {
		return nil, err
	}

	// 5. Persist
	booking, err := s.bookings.CreateFromQuote(ctx, draft, s.config.ReserveInventory)
	if err != nil {
		var availErr *models.AvailabilityError
		if errors.As(err, &availErr) || errors.Is(err, models.ErrBookingExists) {
			log.WithError(err).Warn("Booking rejected during materialization")
		} else {
			log.WithError(err).Error("Failed to materialize booking")
		}
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"booking_id":        booking.ID,
		"booking_reference": booking.BookingReference,
		"total_price":       booking.TotalPrice,
	}).Info("Booking created from quote")

	// 6. Audit + cache, best-effort
	s.activity.Log(ctx, booking.ID, models.ActivityBookingCreated,
		fmt.Sprintf("Booking %s created from quote %s (%d components, %d travelers)",
			booking.BookingReference, quote.ID, len(draft.Components), len(draft.Travelers)),
		actor)
	s.cache.Invalidate(ctx, teamID)

	return booking, nil
}

func (s *BookingService) buildDraft(
	ctx context.Context,
	actor models.Actor,
	quote *models.Quote,
	req *models.CreateBookingRequest,
	report *models.AvailabilityReport,
) (*models.BookingDraft, error) {
	now := time.Now().UTC()

	currency := quote.Currency
	if currency == "" {
		currency = s.config.DefaultCurrency
	}

	original := quote.OriginalPaymentSchedule()
	schedule := req.PaymentSchedule
	if len(schedule) == 0 {
		schedule = original
	}

	leadPhone, err := s.phones.Validate(req.LeadTraveler.Phone)
	if err != nil {
		return nil, &models.ValidationError{Field: "lead_traveler.phone", Message: err.Error()}
	}

	booking := &models.Booking{
		ID:                      uuid.New().String(),
		TeamID:                  quote.TeamID,
		QuoteID:                 quote.ID,
		Status:                  models.BookingStatusPending,
		ClientID:                quote.ClientID,
		EventID:                 quote.EventID,
		PackageID:               quote.PackageID,
		TierID:                  quote.TierID,
		TotalPrice:              quote.TotalPrice,
		Currency:                currency,
		LeadFirstName:           req.LeadTraveler.FirstName,
		LeadLastName:            req.LeadTraveler.LastName,
		LeadEmail:               req.LeadTraveler.Email,
		LeadPhone:               &leadPhone,
		TravelerCount:           1 + len(req.GuestTravelers),
		OriginalPaymentSchedule: original,
		PaymentSchedule:         schedule,
		ComponentAvailability:   report.Components,
		Notes:                   req.Notes,
		CreatedBy:               actor.UserID.String(),
	}

	draft := &models.BookingDraft{
		Booking:  booking,
		Selected: quote.SelectedComponents,
	}

	// Components carry a booking-time snapshot next to the quote-time one
	for _, selected := range quote.SelectedComponents {
		record, err := s.inventory.GetRecord(ctx, selected.Type, selected.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to snapshot component %s: %w", selected.Key(), err)
		}

		data := models.JSONMap{"captured_at": now.Format(time.RFC3339)}
		if selected.Snapshot != nil {
			data["quote_snapshot"] = selected.Snapshot
		}
		name := selected.Name
		if record != nil {
			data["source"] = record.Attributes
			if name == "" {
				name = record.Name
			}
		}

		draft.Components = append(draft.Components, models.BookingComponent{
			ID:            uuid.New().String(),
			BookingID:     booking.ID,
			ComponentType: selected.Type,
			ComponentID:   selected.ID,
			ComponentName: name,
			Quantity:      selected.Quantity,
			UnitPrice:     selected.UnitPrice,
			TotalPrice:    float64(selected.Quantity) * selected.UnitPrice,
			ComponentData: data,
		})
	}

	for i, item := range schedule {
		draft.Payments = append(draft.Payments, models.BookingPayment{
			ID:            uuid.New().String(),
			BookingID:     booking.ID,
			PaymentType:   item.PaymentType,
			PaymentNumber: i + 1,
			Amount:        item.Amount,
			Currency:      currency,
			DueDate:       item.DueDate,
			Notes:         item.Notes,
		})
	}

	lead := req.LeadTraveler
	leadEmail := lead.Email
	draft.Travelers = append(draft.Travelers, models.BookingTraveler{
		ID:             uuid.New().String(),
		BookingID:      booking.ID,
		TravelerType:   models.TravelerTypeLead,
		TravelerNumber: 1,
		FirstName:      lead.FirstName,
		LastName:       lead.LastName,
		Email:          &leadEmail,
		Phone:          &leadPhone,
		DateOfBirth:    lead.DateOfBirth,
		Nationality:    lead.Nationality,
	})

	for i, guest := range req.GuestTravelers {
		phone := guest.Phone
		if phone != nil {
			normalized, err := s.phones.Validate(*phone)
			if err != nil {
				return nil, &models.ValidationError{Field: fmt.Sprintf("guest_travelers[%d].phone", i), Message: err.Error()}
			}
			phone = &normalized
		}

		draft.Travelers = append(draft.Travelers, models.BookingTraveler{
			ID:             uuid.New().String(),
			BookingID:      booking.ID,
			TravelerType:   models.TravelerTypeGuest,
			TravelerNumber: i + 2,
			FirstName:      guest.FirstName,
			LastName:       guest.LastName,
			Email:          guest.Email,
			Phone:          phone,
			DateOfBirth:    guest.DateOfBirth,
			Nationality:    guest.Nationality,
		})
	}

	return draft, nil
}

// ============================================================================
// READ ACCESSORS
// ============================================================================

// GetBookingByID returns a booking in the actor's team
func (s *BookingService) GetBookingByID(ctx context.Context, actor models.Actor, bookingID string) (*models.Booking, error) {
	if !actor.Authenticated() {
		return nil, models.ErrNotAuthenticated
	}

	booking, err := s.bookings.GetBookingByID(ctx, bookingID, actor.TeamID.String())
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, models.ErrBookingNotFound
	}
	return booking, nil
}

// GetBookingDetails returns the booking with components, payments, travelers and activity
func (s *BookingService) GetBookingDetails(ctx context.Context, actor models.Actor, bookingID string) (*models.BookingDetails, error) {
	booking, err := s.GetBookingByID(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}

	details := &models.BookingDetails{Booking: booking}

	if details.Components, err = s.bookings.GetComponents(ctx, booking.ID); err != nil {
		return nil, err
	}
	if details.Payments, err = s.bookings.GetPayments(ctx, booking.ID); err != nil {
		return nil, err
	}
	if details.Travelers, err = s.bookings.GetTravelers(ctx, booking.ID); err != nil {
		return nil, err
	}
	if details.Activity, err = s.activity.List(ctx, booking.ID); err != nil {
		return nil, err
	}

	return details, nil
}

// GetTeamBookings lists the actor's team bookings, newest first
func (s *BookingService) GetTeamBookings(ctx context.Context, actor models.Actor, filter models.BookingFilter) ([]models.Booking, error) {
	if !actor.Authenticated() {
		return nil, models.ErrNotAuthenticated
	}

	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, &models.ValidationError{Field: "status", Message: "invalid booking status: " + string(*filter.Status)}
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	return s.bookings.ListTeamBookings(ctx, actor.TeamID.String(), filter)
}

// GetBookingStats returns the team's booking summary, served from cache when possible
func (s *BookingService) GetBookingStats(ctx context.Context, actor models.Actor) (*models.BookingStats, error) {
	if !actor.Authenticated() {
		return nil, models.ErrNotAuthenticated
	}

	teamID := actor.TeamID.String()
	if stats, ok := s.cache.Get(ctx, teamID); ok {
		return stats, nil
	}

	stats, err := s.bookings.GetStats(ctx, teamID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, teamID, stats)

	return stats, nil
}

// CheckQuoteAvailability re-validates a quote's components without booking it
func (s *BookingService) CheckQuoteAvailability(ctx context.Context, actor models.Actor, quoteID string) (*models.AvailabilityReport, error) {
	if !actor.Authenticated() {
		return nil, models.ErrNotAuthenticated
	}

	quote, err := s.quotes.GetQuoteByID(ctx, quoteID, actor.TeamID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	if quote == nil {
		return nil, models.ErrQuoteNotFound
	}

	return s.checker.Check(ctx, quote.SelectedComponents)
}

// GetQuoteRevisions returns the revision chain of a quote in the actor's team
func (s *BookingService) GetQuoteRevisions(ctx context.Context, actor models.Actor, quoteID string) ([]models.QuoteRevision, error) {
	if !actor.Authenticated() {
		return nil, models.ErrNotAuthenticated
	}

	revisions, err := s.quotes.ListRevisions(ctx, quoteID, actor.TeamID.String())
	if err != nil {
		return nil, err
	}
	if len(revisions) == 0 {
		return nil, models.ErrQuoteNotFound
	}
	return revisions, nil
}
