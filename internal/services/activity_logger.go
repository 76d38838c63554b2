package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/grandstand-travel/backoffice/internal/models"
	"github.com/grandstand-travel/backoffice/internal/utils"
)

// ActivityLogger appends booking audit entries. Failures are logged and never returned.
type ActivityLogger struct {
	store  ActivityStore
	logger *logrus.Logger
}

// NewActivityLogger creates a new ActivityLogger
func NewActivityLogger(store ActivityStore, logger *logrus.Logger) *ActivityLogger {
	return &ActivityLogger{store: store, logger: logger}
}

// Log records one activity for the booking
func (l *ActivityLogger) Log(ctx context.Context, bookingID, activityType, description string, actor models.Actor) {
	activity := &models.BookingActivity{
		ID:           uuid.New().String(),
		BookingID:    bookingID,
		ActivityType: activityType,
		Description:  description,
		PerformedBy:  actor.UserID.String(),
		Metadata:     actorMetadata(actor),
	}

	// The business operation has already committed; a cancelled request must not drop its audit entry.
	if err := l.store.Insert(context.WithoutCancel(ctx), activity); err != nil {
		l.logger.WithError(err).WithFields(logrus.Fields{
			"booking_id":    bookingID,
			"activity_type": activityType,
			"performed_by":  activity.PerformedBy,
		}).Error("Failed to record booking activity")
	}
}

// List returns the booking's activity oldest first
func (l *ActivityLogger) List(ctx context.Context, bookingID string) ([]models.BookingActivity, error) {
	return l.store.ListByBooking(ctx, bookingID)
}

func actorMetadata(actor models.Actor) models.JSONMap {
	metadata := models.JSONMap{}
	if actor.Email != "" {
		metadata["email"] = actor.Email
	}
	if actor.IPAddress != "" {
		metadata["ip_address"] = actor.IPAddress
	}
	if actor.UserAgent != "" {
		metadata["device"] = utils.ParseUserAgent(actor.UserAgent).Map()
	}
	return metadata
}
