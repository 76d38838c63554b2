package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/grandstand-travel/backoffice/internal/models"
)

// QuoteRepository reads quotes. The only write it performs is the confirm flip inside a booking transaction.
type QuoteRepository struct {
	db *sqlx.DB
}

// NewQuoteRepository creates a new QuoteRepository
func NewQuoteRepository(db *sqlx.DB) *QuoteRepository {
	return &QuoteRepository{db: db}
}

const quoteColumns = `
	id, team_id, client_id, client_name, client_email, client_phone,
	event_id, event_name, package_id, tier_id, adults, children,
	selected_components, total_price, currency,
	deposit_amount, deposit_due_date, second_payment_amount, second_payment_due_date,
	final_payment_amount, final_payment_due_date,
	status, version, parent_quote_id, accepted_at, confirmed_at, created_at, updated_at`

// GetQuoteByID returns the quote if it belongs to the team, nil otherwise
func (r *QuoteRepository) GetQuoteByID(ctx context.Context, quoteID, teamID string) (*models.Quote, error) {
	query := `SELECT` + quoteColumns + ` FROM quotes WHERE id = $1 AND team_id = $2`

	var quote models.Quote
	err := r.db.GetContext(ctx, &quote, query, quoteID, teamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}

	return &quote, nil
}

// ListRevisions returns the whole revision chain containing the quote, oldest first
func (r *QuoteRepository) ListRevisions(ctx context.Context, quoteID, teamID string) ([]models.QuoteRevision, error) {
	query := `
		WITH RECURSIVE ancestors AS (
			SELECT id, parent_quote_id FROM quotes WHERE id = $1 AND team_id = $2
			UNION ALL
			SELECT q.id, q.parent_quote_id FROM quotes q JOIN ancestors a ON q.id = a.parent_quote_id
		),
		chain AS (
			SELECT q.id, q.version, q.parent_quote_id, q.status, q.total_price, q.currency, q.created_at
			FROM quotes q JOIN ancestors a ON q.id = a.id
			WHERE a.parent_quote_id IS NULL
			UNION ALL
			SELECT q.id, q.version, q.parent_quote_id, q.status, q.total_price, q.currency, q.created_at
			FROM quotes q JOIN chain c ON q.parent_quote_id = c.id
		)
		SELECT id, version, parent_quote_id, status, total_price, currency, created_at
		FROM chain
		ORDER BY version ASC, created_at ASC`

	revisions := []models.QuoteRevision{}
	if err := r.db.SelectContext(ctx, &revisions, query, quoteID, teamID); err != nil {
		return nil, fmt.Errorf("failed to list quote revisions: %w", err)
	}

	return revisions, nil
}

// MarkConfirmedTx flips the quote to confirmed as part of the booking transaction
func (r *QuoteRepository) MarkConfirmedTx(ctx context.Context, tx *sqlx.Tx, quoteID string) error {
	query := `
		UPDATE quotes
		SET status = $1, confirmed_at = NOW(), updated_at = NOW()
		WHERE id = $2`

	result, err := tx.ExecContext(ctx, query, models.QuoteStatusConfirmed, quoteID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.ErrQuoteNotFound
	}

	return nil
}
