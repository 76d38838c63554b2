package services

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grandstand-travel/backoffice/internal/database"
	"github.com/grandstand-travel/backoffice/internal/models"
)

func newTestChecker(records ...*models.InventoryRecord) (*AvailabilityChecker, *test.Hook) {
	logger, hook := test.NewNullLogger()
	return NewAvailabilityChecker(newFakeInventory(records...), logger), hook
}

func TestCheck_AllAvailable(t *testing.T) {
	checker, _ := newTestChecker(ticketRecord("t1", 10), roomRecord("r1", 5))

	report, err := checker.Check(context.Background(), models.SelectedComponents{
		{Type: models.ComponentTicket, ID: "t1", Name: "Grandstand Club", Quantity: 2, UnitPrice: 650},
		{Type: models.ComponentHotelRoom, ID: "r1", Name: "Hotel Monaco - Deluxe Double", Quantity: 1, UnitPrice: 1150},
	})
	require.NoError(t, err)

	assert.True(t, report.AllAvailable)
	assert.Empty(t, report.Unavailable)
	require.Len(t, report.Components, 2)

	ticket := report.Components["ticket_t1"]
	assert.True(t, ticket.Available)
	assert.Equal(t, 2, ticket.Requested)
	assert.Equal(t, 10, ticket.AvailableQuantity)
}

func TestCheck_Shortfall(t *testing.T) {
	checker, _ := newTestChecker(ticketRecord("t1", 2))

	report, err := checker.Check(context.Background(), models.SelectedComponents{
		{Type: models.ComponentTicket, ID: "t1", Name: "Grandstand Club", Quantity: 5},
	})
	require.NoError(t, err)

	assert.False(t, report.AllAvailable)
	require.Len(t, report.Unavailable, 1)
	assert.Contains(t, report.Unavailable[0], "Tickets")
	assert.Contains(t, report.Unavailable[0], "(requested: 5, available: 2)")
	assert.Equal(t, "Tickets - Grandstand Club (requested: 5, available: 2)", report.Unavailable[0])
}

func TestCheck_MissingRecordReportsZero(t *testing.T) {
	checker, hook := newTestChecker()

	report, err := checker.Check(context.Background(), models.SelectedComponents{
		{Type: models.ComponentHotelRoom, ID: "gone", Name: "Hotel Monaco - Suite", Quantity: 1},
	})
	require.NoError(t, err)

	assert.False(t, report.AllAvailable)
	verdict := report.Components["hotel_room_gone"]
	assert.False(t, verdict.Available)
	assert.Equal(t, 0, verdict.AvailableQuantity)
	assert.Equal(t, "Hotel rooms - Hotel Monaco - Suite (requested: 1, available: 0)", report.Unavailable[0])
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestCheck_UnsupportedTypeIsUnavailable(t *testing.T) {
	checker, hook := newTestChecker()

	report, err := checker.Check(context.Background(), models.SelectedComponents{
		{Type: models.ComponentType("yacht_charter"), ID: "y1", Name: "Sunseeker", Quantity: 1},
	})
	require.NoError(t, err)

	assert.False(t, report.AllAvailable)
	assert.Len(t, report.Unavailable, 1)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "Quote references an unsupported component type", hook.LastEntry().Message)
}

func TestCheck_DuplicateLinesAreSummed(t *testing.T) {
	checker, _ := newTestChecker(ticketRecord("t1", 3))

	report, err := checker.Check(context.Background(), models.SelectedComponents{
		{Type: models.ComponentTicket, ID: "t1", Name: "Grandstand Club", Quantity: 2},
		{Type: models.ComponentTicket, ID: "t1", Name: "Grandstand Club", Quantity: 2},
	})
	require.NoError(t, err)

	assert.False(t, report.AllAvailable)
	assert.Equal(t, 4, report.Components["ticket_t1"].Requested)
	assert.Equal(t, 3, report.Components["ticket_t1"].AvailableQuantity)
}

func TestCheck_GatedTypes(t *testing.T) {
	flight := &models.InventoryRecord{Type: models.ComponentFlight, ID: "f1", Name: "BA 342", Active: true}
	lounge := &models.InventoryRecord{Type: models.ComponentLoungePass, ID: "l1", Name: "Nice Lounge", Active: false}
	checker, _ := newTestChecker(flight, lounge)

	report, err := checker.Check(context.Background(), models.SelectedComponents{
		{Type: models.ComponentFlight, ID: "f1", Quantity: 4},
		{Type: models.ComponentLoungePass, ID: "l1", Quantity: 2},
	})
	require.NoError(t, err)

	f := report.Components["flight_f1"]
	assert.True(t, f.Available)
	assert.Equal(t, 4, f.AvailableQuantity)
	assert.Equal(t, "BA 342", f.ComponentName)

	l := report.Components["lounge_pass_l1"]
	assert.False(t, l.Available)
	assert.Equal(t, []string{"Lounge passes - Nice Lounge (requested: 2, available: 0)"}, report.Unavailable)
}

func TestCheck_EmptyQuote(t *testing.T) {
	checker, _ := newTestChecker()

	report, err := checker.Check(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, report.AllAvailable)
	assert.Empty(t, report.Components)
}

func TestCheck_MalformedComponentIDFailsClosed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	logger, _ := test.NewNullLogger()
	checker := NewAvailabilityChecker(database.NewInventoryRepository(sqlx.NewDb(db, "sqlmock")), logger)

	// no query is expected: the id can never match a row
	report, err := checker.Check(context.Background(), models.SelectedComponents{
		{Type: models.ComponentTicket, ID: "grandstand-k", Name: "Grandstand K", Quantity: 2},
	})
	require.NoError(t, err)

	assert.False(t, report.AllAvailable)
	require.Len(t, report.Unavailable, 1)
	assert.Equal(t, "Tickets - Grandstand K (requested: 2, available: 0)", report.Unavailable[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheck_MergedLinesTakeNameFromLaterLine(t *testing.T) {
	checker, _ := newTestChecker(ticketRecord("t1", 1))

	report, err := checker.Check(context.Background(), models.SelectedComponents{
		{Type: models.ComponentTicket, ID: "t1", Quantity: 1},
		{Type: models.ComponentTicket, ID: "t1", Name: "Paddock Club", Quantity: 2},
	})
	require.NoError(t, err)

	require.Len(t, report.Unavailable, 1)
	assert.Equal(t, "Tickets - Paddock Club (requested: 3, available: 1)", report.Unavailable[0])
}
