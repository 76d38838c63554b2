package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/grandstand-travel/backoffice/internal/middleware"
	"github.com/grandstand-travel/backoffice/internal/models"
	"github.com/grandstand-travel/backoffice/internal/utils"
)

type bookingService interface {
	CreateBookingFromQuote(ctx context.Context, actor models.Actor, req *models.CreateBookingRequest) (*models.Booking, error)
	CheckQuoteAvailability(ctx context.Context, actor models.Actor, quoteID string) (*models.AvailabilityReport, error)
	GetQuoteRevisions(ctx context.Context, actor models.Actor, quoteID string) ([]models.QuoteRevision, error)

	GetBookingByID(ctx context.Context, actor models.Actor, bookingID string) (*models.Booking, error)
	GetBookingDetails(ctx context.Context, actor models.Actor, bookingID string) (*models.BookingDetails, error)
	GetTeamBookings(ctx context.Context, actor models.Actor, filter models.BookingFilter) ([]models.Booking, error)
	GetBookingStats(ctx context.Context, actor models.Actor) (*models.BookingStats, error)

	UpdateBookingStatus(ctx context.Context, actor models.Actor, bookingID string, status models.BookingStatus, notes *string) (*models.Booking, error)
	MarkDepositPaid(ctx context.Context, actor models.Actor, bookingID, reference string) (*models.Booking, error)
	MarkPaymentPaid(ctx context.Context, actor models.Actor, bookingID, paymentID string, reference *string) (*models.BookingPayment, error)
}

// BookingHandler exposes quote conversion and booking lifecycle endpoints
type BookingHandler struct {
	service bookingService
	logger  *logrus.Logger
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(service bookingService, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{service: service, logger: logger}
}

// RegisterRoutes mounts the booking endpoints on an authenticated group
func (h *BookingHandler) RegisterRoutes(rg *gin.RouterGroup, createLimiter gin.HandlerFunc) {
	quotes := rg.Group("/quotes")
	{
		if createLimiter != nil {
			quotes.POST("/:id/booking", createLimiter, h.CreateBookingFromQuote)
		} else {
			quotes.POST("/:id/booking", h.CreateBookingFromQuote)
		}
		quotes.GET("/:id/availability", h.CheckQuoteAvailability)
		quotes.GET("/:id/revisions", h.GetQuoteRevisions)
	}

	bookings := rg.Group("/bookings")
	{
		bookings.GET("", h.ListBookings)
		bookings.GET("/stats", h.GetBookingStats)
		bookings.GET("/:id", h.GetBooking)
		bookings.GET("/:id/details", h.GetBookingDetails)
		bookings.PATCH("/:id/status", h.UpdateBookingStatus)
		bookings.POST("/:id/deposit-paid", h.MarkDepositPaid)
		bookings.POST("/:id/payments/:payment_id/paid", h.MarkPaymentPaid)
	}
}

// actorFromContext builds the acting principal from the auth middleware and request metadata
func actorFromContext(c *gin.Context) (models.Actor, bool) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		return models.Actor{}, false
	}
	return models.Actor{
		UserID:    userCtx.UserID,
		TeamID:    userCtx.TeamID,
		Email:     userCtx.Email,
		IPAddress: utils.GetRealIP(c),
		UserAgent: c.Request.UserAgent(),
	}, true
}

// pathID parses a UUID path parameter. An id that does not parse cannot name anything in the
// team's scope, so it is answered with the same not-found error the lookup would produce.
func (h *BookingHandler) pathID(c *gin.Context, name string, notFound error) (string, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.respondError(c, notFound)
		return "", false
	}
	return id.String(), true
}

// CreateBookingFromQuote converts an accepted quote into a booking
// POST /api/v1/quotes/:id/booking
func (h *BookingHandler) CreateBookingFromQuote(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Authentication required"})
		return
	}

	quoteID, ok := h.pathID(c, "id", models.ErrQuoteNotFound)
	if !ok {
		return
	}

	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "Invalid request body", "details": err.Error()})
		return
	}
	// The path wins over any body value
	req.QuoteID = quoteID

	booking, err := h.service.CreateBookingFromQuote(c.Request.Context(), actor, &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Booking created successfully",
		"booking": booking,
	})
}

// CheckQuoteAvailability re-validates a quote's components
// GET /api/v1/quotes/:id/availability
func (h *BookingHandler) CheckQuoteAvailability(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Authentication required"})
		return
	}

	quoteID, ok := h.pathID(c, "id", models.ErrQuoteNotFound)
	if !ok {
		return
	}

	report, err := h.service.CheckQuoteAvailability(c.Request.Context(), actor, quoteID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetQuoteRevisions returns the quote's revision chain
// GET /api/v1/quotes/:id/revisions
func (h *BookingHandler) GetQuoteRevisions(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Authentication required"})
		return
	}

	quoteID, ok := h.pathID(c, "id", models.ErrQuoteNotFound)
	if !ok {
		return
	}

	revisions, err := h.service.GetQuoteRevisions(c.Request.Context(), actor, quoteID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"revisions": revisions, "count": len(revisions)})
}

// ListBookings lists the team's bookings
// GET /api/v1/bookings?status=&event_id=&limit=&offset=
func (h *BookingHandler) ListBookings(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Authentication required"})
		return
	}

	filter := models.BookingFilter{}
	if raw := c.Query("status"); raw != "" {
		status, err := models.ParseBookingStatus(raw)
		if err != nil {
			h.respondError(c, err)
			return
		}
		filter.Status = &status
	}
	if raw := c.Query("event_id"); raw != "" {
		eventID, err := uuid.Parse(raw)
		if err != nil {
			h.respondError(c, &models.ValidationError{Field: "event_id", Message: "must be a valid UUID"})
			return
		}
		id := eventID.String()
		filter.EventID = &id
	}
	if raw := c.Query("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			filter.Limit = limit
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if offset, err := strconv.Atoi(raw); err == nil {
			filter.Offset = offset
		}
	}

	bookings, err := h.service.GetTeamBookings(c.Request.Context(), actor, filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings, "count": len(bookings)})
}

// GetBookingStats returns the team's booking summary
// GET /api/v1/bookings/stats
func (h *BookingHandler) GetBookingStats(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Authentication required"})
		return
	}

	stats, err := h.service.GetBookingStats(c.Request.Context(), actor)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetBooking returns a single booking
// GET /api/v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Authentication required"})
		return
	}

	bookingID, ok := h.pathID(c, "id", models.ErrBookingNotFound)
	if !ok {
		return
	}

	booking, err := h.service.GetBookingByID(c.Request.Context(), actor, bookingID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// GetBookingDetails returns a booking with its components, payments, travelers and activity
// GET /api/v1/bookings/:id/details
func (h *BookingHandler) GetBookingDetails(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Authentication required"})
		return
	}

	bookingID, ok := h.pathID(c, "id", models.ErrBookingNotFound)
	if !ok {
		return
	}

	details, err := h.service.GetBookingDetails(c.Request.Context(), actor, bookingID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, details)
}

// UpdateBookingStatus moves a booking through its lifecycle
// PATCH /api/v1/bookings/:id/status
func (h *BookingHandler) UpdateBookingStatus(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Authentication required"})
		return
	}

	bookingID, ok := h.pathID(c, "id", models.ErrBookingNotFound)
	if !ok {
		return
	}

	var req models.UpdateBookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "Invalid request body", "details": err.Error()})
		return
	}

	status, err := models.ParseBookingStatus(req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}

	booking, err := h.service.UpdateBookingStatus(c.Request.Context(), actor, bookingID, status, req.Notes)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Booking status updated",
		"booking": booking,
	})
}

// MarkDepositPaid records the deposit as received
// POST /api/v1/bookings/:id/deposit-paid
func (h *BookingHandler) MarkDepositPaid(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Authentication required"})
		return
	}

	bookingID, ok := h.pathID(c, "id", models.ErrBookingNotFound)
	if !ok {
		return
	}

	var req models.MarkDepositPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "Invalid request body", "details": err.Error()})
		return
	}

	booking, err := h.service.MarkDepositPaid(c.Request.Context(), actor, bookingID, req.Reference)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Deposit marked as paid",
		"booking": booking,
	})
}

// MarkPaymentPaid records one installment as received
// POST /api/v1/bookings/:id/payments/:payment_id/paid
func (h *BookingHandler) MarkPaymentPaid(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Authentication required"})
		return
	}

	bookingID, ok := h.pathID(c, "id", models.ErrBookingNotFound)
	if !ok {
		return
	}
	paymentID, ok := h.pathID(c, "payment_id", models.ErrPaymentNotFound)
	if !ok {
		return
	}

	var req models.MarkPaymentPaidRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "Invalid request body", "details": err.Error()})
			return
		}
	}

	payment, err := h.service.MarkPaymentPaid(c.Request.Context(), actor, bookingID, paymentID, req.Reference)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment marked as paid",
		"payment": payment,
	})
}

// respondError maps service errors onto HTTP responses
func (h *BookingHandler) respondError(c *gin.Context, err error) {
	var (
		availErr      *models.AvailabilityError
		validationErr *models.ValidationError
		transitionErr *models.TransitionError
	)

	switch {
	case errors.Is(err, models.ErrNotAuthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": err.Error()})
	case errors.Is(err, models.ErrAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": err.Error()})
	case errors.Is(err, models.ErrQuoteNotFound),
		errors.Is(err, models.ErrBookingNotFound),
		errors.Is(err, models.ErrPaymentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": err.Error()})
	case errors.Is(err, models.ErrBookingExists):
		c.JSON(http.StatusConflict, gin.H{"error": "booking_exists", "message": err.Error()})
	case errors.Is(err, models.ErrStatusChanged):
		c.JSON(http.StatusConflict, gin.H{"error": "status_changed", "message": err.Error()})
	case errors.As(err, &availErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":       "components_unavailable",
			"message":     availErr.Error(),
			"unavailable": availErr.Unavailable,
			"components":  availErr.Components,
		})
	case errors.As(err, &transitionErr):
		c.JSON(http.StatusConflict, gin.H{"error": "invalid_transition", "message": transitionErr.Error()})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"message": validationErr.Error(),
			"field":   validationErr.Field,
		})
	default:
		h.logger.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("Booking request failed")
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "An unexpected error occurred"})
	}
}
