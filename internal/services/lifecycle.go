package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/grandstand-travel/backoffice/internal/models"
)

// UpdateBookingStatus moves a booking to a new status and records one activity entry.
// Transitions outside the table are rejected in strict mode and logged otherwise.
func (s *BookingService) UpdateBookingStatus(ctx context.Context, actor models.Actor, bookingID string, status models.BookingStatus, notes *string) (*models.Booking, error) {
	booking, err := s.GetBookingByID(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}
	if !status.IsValid() {
		return nil, &models.ValidationError{Field: "status", Message: "invalid booking status: " + string(status)}
	}

	log := s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"from":       booking.Status,
		"to":         status,
		"user_id":    actor.UserID.String(),
	})

	if !booking.Status.CanTransitionTo(status) {
		if s.config.StrictTransitions {
			return nil, &models.TransitionError{From: booking.Status, To: status}
		}
		log.Warn("Booking status change outside the transition table")
	}

	teamID := actor.TeamID.String()
	if err := s.bookings.UpdateStatus(ctx, booking.ID, teamID, booking.Status, status, s.config.ReserveInventory); err != nil {
		if availErr, ok := models.IsAvailabilityError(err); ok {
			log.WithField("unavailable", availErr.Unavailable).Warn("Booking cannot be reopened, capacity is gone")
		}
		return nil, err
	}

	inventoryChanged := s.config.ReserveInventory && booking.Status.ReleasesInventory() != status.ReleasesInventory()
	log.WithFields(logrus.Fields{
		"released_inventory":  inventoryChanged && status.ReleasesInventory(),
		"reclaimed_inventory": inventoryChanged && !status.ReleasesInventory(),
	}).Info("Booking status updated")

	description := fmt.Sprintf("Booking status changed from %s to %s", booking.Status, status)
	if notes != nil && strings.TrimSpace(*notes) != "" {
		description += ": " + strings.TrimSpace(*notes)
	}
	s.activity.Log(ctx, booking.ID, models.ActivityStatusChanged, description, actor)
	s.cache.Invalidate(ctx, teamID)

	return s.GetBookingByID(ctx, actor, booking.ID)
}

// MarkDepositPaid flags the deposit as received. Calling it again overwrites the
// timestamp and reference and records another activity entry.
func (s *BookingService) MarkDepositPaid(ctx context.Context, actor models.Actor, bookingID, reference string) (*models.Booking, error) {
	if !actor.Authenticated() {
		return nil, models.ErrNotAuthenticated
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, &models.ValidationError{Field: "reference", Message: "is required"}
	}

	teamID := actor.TeamID.String()
	if err := s.bookings.MarkDepositPaid(ctx, bookingID, teamID, reference); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"reference":  reference,
		"user_id":    actor.UserID.String(),
	}).Info("Deposit marked as paid")

	s.activity.Log(ctx, bookingID, models.ActivityDepositPaid,
		fmt.Sprintf("Deposit marked as paid (reference: %s)", reference), actor)
	s.cache.Invalidate(ctx, teamID)

	return s.GetBookingByID(ctx, actor, bookingID)
}

// MarkPaymentPaid flags one installment of the schedule as received
func (s *BookingService) MarkPaymentPaid(ctx context.Context, actor models.Actor, bookingID, paymentID string, reference *string) (*models.BookingPayment, error) {
	if !actor.Authenticated() {
		return nil, models.ErrNotAuthenticated
	}

	payment, err := s.bookings.MarkPaymentPaid(ctx, bookingID, actor.TeamID.String(), paymentID, reference)
	if err != nil {
		return nil, err
	}

	description := fmt.Sprintf("Payment #%d (%s) of %.2f %s marked as paid",
		payment.PaymentNumber, payment.PaymentType, payment.Amount, payment.Currency)
	if reference != nil && *reference != "" {
		description += fmt.Sprintf(" (reference: %s)", *reference)
	}
	s.activity.Log(ctx, bookingID, models.ActivityPaymentReceived, description, actor)

	return payment, nil
}
