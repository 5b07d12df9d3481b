package http

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/VaibhavVermaa16/AtomicSeats/pkg/logger"
)

// NewRouter wires all routes. Event reads and health are public; booking
// routes need a valid token; admin routes additionally need the admin role.
func NewRouter(h *HTTPHandler, jwtSecret string, l logger.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/events", h.ListEvents)
		r.Get("/events/{eventId}", h.GetEvent)

		r.Group(func(r chi.Router) {
			r.Use(Authenticator(jwtSecret, l))

			r.Post("/bookings", h.SubmitBooking)
			r.Post("/bookings/cancel", h.CancelBooking)
			r.Get("/bookings", h.ListMyBookings)

			r.Group(func(r chi.Router) {
				r.Use(RequireAdmin)

				r.Post("/events", h.CreateEvent)
				r.Delete("/events/{eventId}", h.DeleteEvent)
				r.Patch("/events/{eventId}/capacity", h.UpdateCapacity)
				r.Put("/events/{eventId}/waitlist/status", h.SetWaitlistStatus)
				r.Get("/events/{eventId}/waitlist", h.GetEventWaitlist)
				r.Post("/admin/reconcile", h.TriggerReconcile)
			})
		})
	})

	return r
}
