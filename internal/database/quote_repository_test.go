package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grandstand-travel/backoffice/internal/models"
)

func TestGetQuoteByID(t *testing.T) {
	ctx := context.Background()
	columns := []string{
		"id", "team_id", "client_id", "client_name", "client_email", "client_phone",
		"event_id", "event_name", "package_id", "tier_id", "adults", "children",
		"selected_components", "total_price", "currency",
		"deposit_amount", "deposit_due_date", "second_payment_amount", "second_payment_due_date",
		"final_payment_amount", "final_payment_due_date",
		"status", "version", "parent_quote_id", "accepted_at", "confirmed_at", "created_at", "updated_at",
	}

	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewQuoteRepository(db)
		now := time.Now()

		mock.ExpectQuery(`FROM quotes WHERE id = \$1 AND team_id = \$2`).
			WithArgs("quote-1", "team-1").
			WillReturnRows(sqlmock.NewRows(columns).AddRow(
				"quote-1", "team-1", nil, "Ada Lovelace", "ada@example.com", nil,
				"event-1", "Italian Grand Prix", nil, nil, 2, 0,
				[]byte(`[{"type":"ticket","id":"t-1","name":"Grandstand K","quantity":2,"unit_price":450},
					{"type":"hotel_room","id":"h-1","name":"Hotel Monza","quantity":1,"unit_price":600}]`),
				1500.0, "GBP",
				500.0, nil, 0.0, nil, 1000.0, nil,
				"accepted", 2, "quote-0", now, nil, now, now,
			))

		quote, err := repo.GetQuoteByID(ctx, "quote-1", "team-1")
		require.NoError(t, err)
		require.NotNil(t, quote)
		assert.Equal(t, models.QuoteStatusAccepted, quote.Status)
		require.Len(t, quote.SelectedComponents, 2)
		assert.Equal(t, models.ComponentHotelRoom, quote.SelectedComponents[1].Type)
		assert.Len(t, quote.OriginalPaymentSchedule(), 2)
		assert.Equal(t, "quote-0", *quote.ParentQuoteID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Other Team", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewQuoteRepository(db)

		mock.ExpectQuery(`FROM quotes WHERE id = \$1 AND team_id = \$2`).
			WithArgs("quote-1", "team-2").
			WillReturnRows(sqlmock.NewRows(columns))

		quote, err := repo.GetQuoteByID(ctx, "quote-1", "team-2")
		assert.NoError(t, err)
		assert.Nil(t, quote)
	})
}

func TestListRevisions(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewQuoteRepository(db)
	now := time.Now()

	mock.ExpectQuery(`WITH RECURSIVE ancestors`).
		WithArgs("quote-2", "team-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "version", "parent_quote_id", "status", "total_price", "currency", "created_at",
		}).
			AddRow("quote-1", 1, nil, "declined", 1800.0, "GBP", now).
			AddRow("quote-2", 2, "quote-1", "accepted", 1500.0, "GBP", now))

	revisions, err := repo.ListRevisions(context.Background(), "quote-2", "team-1")
	require.NoError(t, err)
	require.Len(t, revisions, 2)
	assert.Nil(t, revisions[0].ParentQuoteID)
	assert.Equal(t, 2, revisions[1].Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}
