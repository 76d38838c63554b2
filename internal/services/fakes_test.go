package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/grandstand-travel/backoffice/internal/models"
	pkgvalidator "github.com/grandstand-travel/backoffice/pkg/validator"
)

// In-memory stores shared by the service tests

type fakeQuoteStore struct {
	quotes    map[string]*models.Quote
	revisions map[string][]models.QuoteRevision
	err       error
}

func (f *fakeQuoteStore) GetQuoteByID(ctx context.Context, quoteID, teamID string) (*models.Quote, error) {
	if f.err != nil {
		return nil, f.err
	}
	q, ok := f.quotes[quoteID]
	if !ok || q.TeamID != teamID {
		return nil, nil
	}
	return q, nil
}

func (f *fakeQuoteStore) ListRevisions(ctx context.Context, quoteID, teamID string) ([]models.QuoteRevision, error) {
	return f.revisions[quoteID], nil
}

type fakeInventoryStore struct {
	mu      sync.Mutex
	records map[string]*models.InventoryRecord
}

func newFakeInventory(records ...*models.InventoryRecord) *fakeInventoryStore {
	f := &fakeInventoryStore{records: map[string]*models.InventoryRecord{}}
	for _, r := range records {
		f.records[string(r.Type)+"_"+r.ID] = r
	}
	return f
}

func (f *fakeInventoryStore) GetRecord(ctx context.Context, componentType models.ComponentType, componentID string) (*models.InventoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[string(componentType)+"_"+componentID]
	if !ok {
		return nil, nil
	}
	copied := *r
	return &copied, nil
}

func (f *fakeInventoryStore) remaining(componentType models.ComponentType, componentID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[string(componentType)+"_"+componentID].Remaining
}

// reserve takes capacity for every line or, on any shortfall, for none of them
func (f *fakeInventoryStore) reserve(lines models.SelectedComponents) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	merged := lines.Merged()
	var shortfalls []string
	for _, c := range merged {
		if r := f.records[c.Key()]; r != nil && r.Bounded && r.Remaining < c.Quantity {
			shortfalls = append(shortfalls, models.DescribeShortfall(c.Type, c.DisplayName(), c.Quantity, r.Remaining))
		}
	}
	if len(shortfalls) > 0 {
		return &models.AvailabilityError{Unavailable: shortfalls}
	}
	for _, c := range merged {
		if r := f.records[c.Key()]; r != nil && r.Bounded {
			r.Remaining -= c.Quantity
		}
	}
	return nil
}

func (f *fakeInventoryStore) release(lines models.SelectedComponents) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range lines {
		if r := f.records[c.Key()]; r != nil && r.Bounded {
			r.Remaining += c.Quantity
		}
	}
}

func (f *fakeInventoryStore) setRemaining(componentType models.ComponentType, componentID string, remaining int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[string(componentType)+"_"+componentID].Remaining = remaining
}

type fakeBookingStore struct {
	mu         sync.Mutex
	inventory  *fakeInventoryStore
	bookings   map[string]*models.Booking
	drafts     map[string]*models.BookingDraft
	byQuote    map[string]string
	createErr  error
	writes     int
	lastFilter models.BookingFilter
}

func newFakeBookingStore(inventory *fakeInventoryStore) *fakeBookingStore {
	return &fakeBookingStore{
		inventory: inventory,
		bookings:  map[string]*models.Booking{},
		drafts:    map[string]*models.BookingDraft{},
		byQuote:   map[string]string{},
	}
}

func (f *fakeBookingStore) ExistsForQuote(ctx context.Context, quoteID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.byQuote[quoteID]
	return ok, nil
}

func (f *fakeBookingStore) CreateFromQuote(ctx context.Context, draft *models.BookingDraft, reserve bool) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, ok := f.byQuote[draft.Booking.QuoteID]; ok {
		return nil, models.ErrBookingExists
	}

	if reserve {
		if err := f.inventory.reserve(draft.Selected); err != nil {
			return nil, err
		}
	}

	booking := *draft.Booking
	booking.BookingReference = "BK-20261015-" + booking.ID[:6]
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt
	f.bookings[booking.ID] = &booking
	f.drafts[booking.ID] = draft
	f.byQuote[booking.QuoteID] = booking.ID
	f.writes++

	out := booking
	return &out, nil
}

func (f *fakeBookingStore) GetBookingByID(ctx context.Context, bookingID, teamID string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[bookingID]
	if !ok || b.TeamID != teamID {
		return nil, nil
	}
	out := *b
	return &out, nil
}

func (f *fakeBookingStore) GetComponents(ctx context.Context, bookingID string) ([]models.BookingComponent, error) {
	return f.drafts[bookingID].Components, nil
}

func (f *fakeBookingStore) GetPayments(ctx context.Context, bookingID string) ([]models.BookingPayment, error) {
	return f.drafts[bookingID].Payments, nil
}

func (f *fakeBookingStore) GetTravelers(ctx context.Context, bookingID string) ([]models.BookingTraveler, error) {
	return f.drafts[bookingID].Travelers, nil
}

func (f *fakeBookingStore) ListTeamBookings(ctx context.Context, teamID string, filter models.BookingFilter) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	var out []models.Booking
	for _, b := range f.bookings {
		if b.TeamID == teamID && (filter.Status == nil || b.Status == *filter.Status) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBookingStore) GetStats(ctx context.Context, teamID string) (*models.BookingStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &models.BookingStats{}
	for _, b := range f.bookings {
		if b.TeamID != teamID {
			continue
		}
		stats.Total++
		switch b.Status {
		case models.BookingStatusPending:
			stats.Pending++
		case models.BookingStatusConfirmed:
			stats.Confirmed++
		case models.BookingStatusCancelled:
			stats.Cancelled++
		}
		if b.Status != models.BookingStatusCancelled && b.Status != models.BookingStatusRefunded {
			stats.TotalRevenue += b.TotalPrice
		}
	}
	return stats, nil
}

func (f *fakeBookingStore) UpdateStatus(ctx context.Context, bookingID, teamID string, from, to models.BookingStatus, manageInventory bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[bookingID]
	if !ok || b.TeamID != teamID {
		return models.ErrBookingNotFound
	}
	if b.Status != from {
		return models.ErrStatusChanged
	}

	if manageInventory && from.ReleasesInventory() != to.ReleasesInventory() {
		var lines models.SelectedComponents
		for _, c := range f.drafts[bookingID].Components {
			lines = append(lines, models.SelectedComponent{Type: c.ComponentType, ID: c.ComponentID, Name: c.ComponentName, Quantity: c.Quantity})
		}
		if to.ReleasesInventory() {
			f.inventory.release(lines)
		} else if err := f.inventory.reserve(lines); err != nil {
			return err
		}
	}

	now := time.Now()
	b.Status = to
	b.UpdatedAt = now
	switch to {
	case models.BookingStatusConfirmed:
		b.ConfirmedAt = &now
	case models.BookingStatusCancelled:
		b.CancelledAt = &now
	}
	return nil
}

func (f *fakeBookingStore) MarkDepositPaid(ctx context.Context, bookingID, teamID, reference string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[bookingID]
	if !ok || b.TeamID != teamID {
		return models.ErrBookingNotFound
	}
	now := time.Now()
	b.DepositPaid = true
	b.DepositPaidAt = &now
	b.DepositReference = &reference
	return nil
}

func (f *fakeBookingStore) MarkPaymentPaid(ctx context.Context, bookingID, teamID, paymentID string, reference *string) (*models.BookingPayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[bookingID]
	if !ok || b.TeamID != teamID {
		return nil, models.ErrPaymentNotFound
	}
	payments := f.drafts[bookingID].Payments
	for i := range payments {
		if payments[i].ID == paymentID {
			now := time.Now()
			payments[i].Paid = true
			payments[i].PaidAt = &now
			payments[i].PaymentReference = reference
			out := payments[i]
			return &out, nil
		}
	}
	return nil, models.ErrPaymentNotFound
}

type fakeActivityStore struct {
	mu      sync.Mutex
	entries []models.BookingActivity
	err     error
}

func (f *fakeActivityStore) Insert(ctx context.Context, activity *models.BookingActivity) error {
	if f.err != nil {
		return f.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	activity.CreatedAt = time.Now()
	f.entries = append(f.entries, *activity)
	return nil
}

func (f *fakeActivityStore) ListByBooking(ctx context.Context, bookingID string) ([]models.BookingActivity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.BookingActivity
	for _, e := range f.entries {
		if e.BookingID == bookingID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeActivityStore) ofType(activityType string) []models.BookingActivity {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.BookingActivity
	for _, e := range f.entries {
		if e.ActivityType == activityType {
			out = append(out, e)
		}
	}
	return out
}

type fakeStatsCache struct {
	stats       map[string]*models.BookingStats
	invalidated int
}

func (f *fakeStatsCache) Get(ctx context.Context, teamID string) (*models.BookingStats, bool) {
	s, ok := f.stats[teamID]
	return s, ok
}

func (f *fakeStatsCache) Set(ctx context.Context, teamID string, stats *models.BookingStats) {
	f.stats[teamID] = stats
}

func (f *fakeStatsCache) Invalidate(ctx context.Context, teamID string) {
	delete(f.stats, teamID)
	f.invalidated++
}

// ============================================================================
// FIXTURE
// ============================================================================

type serviceFixture struct {
	service   *BookingService
	quotes    *fakeQuoteStore
	inventory *fakeInventoryStore
	bookings  *fakeBookingStore
	activity  *fakeActivityStore
	cache     *fakeStatsCache
	logs      *test.Hook
	actor     models.Actor
}

var errStoreDown = errors.New("connection refused")

func newServiceFixture(config BookingServiceConfig, records ...*models.InventoryRecord) *serviceFixture {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	f := &serviceFixture{
		quotes:    &fakeQuoteStore{quotes: map[string]*models.Quote{}, revisions: map[string][]models.QuoteRevision{}},
		inventory: newFakeInventory(records...),
		activity:  &fakeActivityStore{},
		cache:     &fakeStatsCache{stats: map[string]*models.BookingStats{}},
		logs:      hook,
		actor: models.Actor{
			UserID:    uuid.New(),
			TeamID:    uuid.New(),
			Email:     "agent@grandstand.travel",
			IPAddress: "203.0.113.7",
			UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
	}
	f.bookings = newFakeBookingStore(f.inventory)

	checker := NewAvailabilityChecker(f.inventory, logger)
	activity := NewActivityLogger(f.activity, logger)
	f.service = NewBookingService(f.quotes, f.inventory, f.bookings, checker, activity, f.cache,
		pkgvalidator.NewPhoneValidator("44"), config, logger)
	return f
}

func (f *serviceFixture) addQuote(components ...models.SelectedComponent) *models.Quote {
	eventID := uuid.New().String()
	due := time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC)
	q := &models.Quote{
		ID:                  uuid.New().String(),
		TeamID:              f.actor.TeamID.String(),
		ClientName:          "Ada Lovelace",
		EventID:             &eventID,
		SelectedComponents:  components,
		TotalPrice:          2450.00,
		Currency:            "GBP",
		DepositAmount:       500,
		DepositDueDate:      &due,
		FinalPaymentAmount:  1950,
		FinalPaymentDueDate: &due,
		Status:              models.QuoteStatusAccepted,
		Version:             1,
	}
	f.quotes.quotes[q.ID] = q
	return q
}

func ticketRecord(id string, remaining int) *models.InventoryRecord {
	return &models.InventoryRecord{
		Type: models.ComponentTicket, ID: id, Name: "Grandstand Club", Bounded: true, Remaining: remaining, Active: true,
		Attributes: map[string]interface{}{"ticket_type": "Grandstand Club"},
	}
}

func roomRecord(id string, remaining int) *models.InventoryRecord {
	return &models.InventoryRecord{
		Type: models.ComponentHotelRoom, ID: id, Name: "Hotel Monaco - Deluxe Double", Bounded: true, Remaining: remaining, Active: true,
		Attributes: map[string]interface{}{"room_type": "Deluxe Double"},
	}
}

func bookingRequest(quoteID string, guests int) *models.CreateBookingRequest {
	req := &models.CreateBookingRequest{
		QuoteID: quoteID,
		LeadTraveler: models.LeadTravelerInput{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Email:     "ada@example.com",
			Phone:     "07700 900123",
		},
	}
	for i := 0; i < guests; i++ {
		req.GuestTravelers = append(req.GuestTravelers, models.GuestTravelerInput{
			FirstName: "Guest",
			LastName:  "Traveler",
		})
	}
	return req
}
