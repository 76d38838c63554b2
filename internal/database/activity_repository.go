package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/grandstand-travel/backoffice/internal/models"
)

// ActivityRepository handles the append-only booking activity log
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Insert appends an activity entry
func (r *ActivityRepository) Insert(ctx context.Context, activity *models.BookingActivity) error {
	query := `
		INSERT INTO booking_activity_log (
			id, booking_id, activity_type, description, performed_by, metadata
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.db.QueryRowxContext(ctx, query,
		activity.ID,
		activity.BookingID,
		activity.ActivityType,
		activity.Description,
		activity.PerformedBy,
		activity.Metadata,
	).Scan(&activity.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert booking activity: %w", err)
	}

	return nil
}

// ListByBooking returns a booking's activity oldest first
func (r *ActivityRepository) ListByBooking(ctx context.Context, bookingID string) ([]models.BookingActivity, error) {
	query := `
		SELECT id, booking_id, activity_type, description, performed_by, metadata, created_at
		FROM booking_activity_log
		WHERE booking_id = $1
		ORDER BY created_at ASC`

	activity := []models.BookingActivity{}
	if err := r.db.SelectContext(ctx, &activity, query, bookingID); err != nil {
		return nil, fmt.Errorf("failed to list booking activity: %w", err)
	}

	return activity, nil
}
