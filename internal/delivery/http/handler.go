package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	apperrors "github.com/VaibhavVermaa16/AtomicSeats/internal/errors"
	"github.com/VaibhavVermaa16/AtomicSeats/internal/service"
	"github.com/VaibhavVermaa16/AtomicSeats/pkg/logger"
)

type HTTPHandler struct {
	admissionService   service.AdmissionService
	reservationService service.ReservationService
	eventService       service.EventService
	reconciler         service.ReconcileTrigger
	logger             logger.Logger
	validator          *validator.Validate
}

func NewHTTPHandler(
	admissionService service.AdmissionService,
	reservationService service.ReservationService,
	eventService service.EventService,
	reconciler service.ReconcileTrigger,
	logger logger.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		admissionService:   admissionService,
		reservationService: reservationService,
		eventService:       eventService,
		reconciler:         reconciler,
		logger:             logger,
		validator:          validator.New(),
	}
}

// HealthCheck handles health check requests
func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":  "healthy",
		"service": "atomicseats",
		"version": "1.0.0",
	}
	h.respondJSON(w, http.StatusOK, response)
}

type submitBookingRequest struct {
	EventID       int64 `json:"event_id" validate:"required"`
	NumberOfSeats int   `json:"number_of_seats" validate:"required,gt=0"`
}

// SubmitBooking admits a booking request into the queue. The response
// acknowledges admission, not a reservation; the outcome arrives through
// the notification channel.
func (h *HTTPHandler) SubmitBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	var req submitBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	response, err := h.admissionService.SubmitBooking(r.Context(), service.SubmitBookingInput{
		UserID:        id.UserID,
		EventID:       req.EventID,
		NumberOfSeats: req.NumberOfSeats,
		UserEmail:     id.Email,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSeatsOutOfRange),
			errors.Is(err, service.ErrMissingUser),
			errors.Is(err, service.ErrMissingEvent):
			h.respondError(w, http.StatusBadRequest, err.Error(), err)
		case errors.Is(err, service.ErrPublishFailed):
			h.respondError(w, http.StatusServiceUnavailable, "Booking queue is unavailable", err)
		default:
			h.logger.Errorf(r.Context(), "delivery.http.SubmitBooking: %v", err)
			h.respondError(w, http.StatusInternalServerError, "Failed to submit booking", err)
		}
		return
	}

	h.respondJSON(w, http.StatusOK, response)
}

type cancelBookingRequest struct {
	EventID   int64  `json:"event_id" validate:"required"`
	BookingID *int64 `json:"booking_id,omitempty"`
	CancelAll bool   `json:"cancel_all,omitempty"`
}

// CancelBooking releases the caller's seats synchronously.
func (h *HTTPHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	var req cancelBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	response, err := h.reservationService.CancelBooking(r.Context(), id.UserID, service.CancelBookingInput{
		EventID:   req.EventID,
		BookingID: req.BookingID,
		CancelAll: req.CancelAll,
	})
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrEventNotFound):
			h.respondError(w, http.StatusNotFound, "Event not found", err)
		case errors.Is(err, apperrors.ErrBookingNotFound):
			h.respondError(w, http.StatusNotFound, "No matching confirmed booking", err)
		default:
			h.logger.Errorf(r.Context(), "delivery.http.CancelBooking: %v", err)
			h.respondError(w, http.StatusInternalServerError, "Failed to cancel booking", err)
		}
		return
	}

	h.respondJSON(w, http.StatusOK, response)
}

// ListMyBookings returns the caller's bookings, cancelled ones included.
func (h *HTTPHandler) ListMyBookings(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	bookings, err := h.eventService.ListUserBookings(r.Context(), id.UserID)
	if err != nil {
		h.logger.Errorf(r.Context(), "delivery.http.ListMyBookings: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to list bookings", err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (h *HTTPHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.eventService.ListEvents(r.Context())
	if err != nil {
		h.logger.Errorf(r.Context(), "delivery.http.ListEvents: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to list events", err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *HTTPHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := h.eventIDParam(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid event id", err)
		return
	}

	event, err := h.eventService.GetEvent(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, apperrors.ErrEventNotFound) {
			h.respondError(w, http.StatusNotFound, "Event not found", err)
			return
		}
		h.logger.Errorf(r.Context(), "delivery.http.GetEvent: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to get event", err)
		return
	}

	h.respondJSON(w, http.StatusOK, event)
}

type createEventRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"required"`
	Venue       string `json:"venue" validate:"required"`
	StartsAt    string `json:"starts_at" validate:"required"`
	EndsAt      string `json:"ends_at" validate:"required"`
	Capacity    int    `json:"capacity" validate:"required,gt=0"`
	Price       string `json:"price" validate:"required"`
}

// CreateEvent registers a new event with the caller as host.
func (h *HTTPHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	in, err := parseCreateEventRequest(req)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid event fields", err)
		return
	}

	event, err := h.eventService.CreateEvent(r.Context(), id.UserID, in)
	if err != nil {
		h.logger.Errorf(r.Context(), "delivery.http.CreateEvent: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to create event", err)
		return
	}

	h.respondJSON(w, http.StatusCreated, event)
}

func (h *HTTPHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := h.eventIDParam(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid event id", err)
		return
	}

	if err := h.eventService.DeleteEvent(r.Context(), eventID); err != nil {
		if errors.Is(err, apperrors.ErrEventNotFound) {
			h.respondError(w, http.StatusNotFound, "Event not found", err)
			return
		}
		h.logger.Errorf(r.Context(), "delivery.http.DeleteEvent: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to delete event", err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{"deleted": eventID})
}

type updateCapacityRequest struct {
	Capacity int `json:"capacity" validate:"required,gt=0"`
}

// UpdateCapacity resizes an event. Growth wakes the waitlist allocator.
func (h *HTTPHandler) UpdateCapacity(w http.ResponseWriter, r *http.Request) {
	eventID, err := h.eventIDParam(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid event id", err)
		return
	}

	var req updateCapacityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	event, err := h.reservationService.UpdateCapacity(r.Context(), eventID, req.Capacity)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrEventNotFound):
			h.respondError(w, http.StatusNotFound, "Event not found", err)
		case errors.Is(err, apperrors.ErrCapacityBelowReserved):
			h.respondError(w, http.StatusConflict, "Capacity cannot drop below reserved seats", err)
		default:
			h.logger.Errorf(r.Context(), "delivery.http.UpdateCapacity: %v", err)
			h.respondError(w, http.StatusInternalServerError, "Failed to update capacity", err)
		}
		return
	}

	h.respondJSON(w, http.StatusOK, event)
}

type waitlistStatusRequest struct {
	Closed *bool `json:"closed" validate:"required"`
}

// SetWaitlistStatus opens or closes an event's waitlist for new entries.
func (h *HTTPHandler) SetWaitlistStatus(w http.ResponseWriter, r *http.Request) {
	eventID, err := h.eventIDParam(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid event id", err)
		return
	}

	var req waitlistStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	if err := h.reservationService.SetWaitlistClosed(r.Context(), eventID, *req.Closed); err != nil {
		if errors.Is(err, apperrors.ErrEventNotFound) {
			h.respondError(w, http.StatusNotFound, "Event not found", err)
			return
		}
		h.logger.Errorf(r.Context(), "delivery.http.SetWaitlistStatus: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to update waitlist status", err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{"event_id": eventID, "closed": *req.Closed})
}

// GetEventWaitlist lists pending entries in queue order.
func (h *HTTPHandler) GetEventWaitlist(w http.ResponseWriter, r *http.Request) {
	eventID, err := h.eventIDParam(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid event id", err)
		return
	}

	entries, err := h.eventService.ListEventWaitlist(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, apperrors.ErrEventNotFound) {
			h.respondError(w, http.StatusNotFound, "Event not found", err)
			return
		}
		h.logger.Errorf(r.Context(), "delivery.http.GetEventWaitlist: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to list waitlist", err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{"event_id": eventID, "waitlist": entries})
}

// TriggerReconcile schedules an asynchronous cache rebuild.
func (h *HTTPHandler) TriggerReconcile(w http.ResponseWriter, r *http.Request) {
	h.reconciler.Trigger()
	h.respondJSON(w, http.StatusAccepted, map[string]any{"status": "reconciliation scheduled"})
}

// Helper functions

func (h *HTTPHandler) eventIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "eventId"), 10, 64)
}

func (h *HTTPHandler) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Errorf(context.Background(), "delivery.http.respondJSON: %v", err)
	}
}

func (h *HTTPHandler) respondError(w http.ResponseWriter, statusCode int, message string, err error) {
	response := map[string]any{
		"error": message,
		"code":  statusCode,
	}

	if err != nil {
		h.logger.Debugf(context.Background(), "delivery.http.respondError: %s: %v", message, err)
	}

	h.respondJSON(w, statusCode, response)
}
