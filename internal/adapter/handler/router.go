package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Handlers struct {
	Reservations *ReservationHandler
	Payments     *PaymentHandler
	Webhooks     *WebhookHandler
	Auth         *Authenticator
}

func NewRouter(h Handlers, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", HealthCheck)
	r.Post("/webhooks/stripe", h.Webhooks.Handle)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/events/{id}/availability", h.Reservations.Availability)

		r.Group(func(r chi.Router) {
			r.Use(h.Auth.Middleware)

			r.Route("/reservations", func(r chi.Router) {
				r.Post("/", h.Reservations.Create)
				r.Get("/mine", h.Reservations.ListMine)
				r.Get("/{id}", h.Reservations.Get)
				r.Delete("/{id}", h.Reservations.Cancel)
			})

			r.Post("/payments/intents", h.Payments.OpenIntent)
			r.Post("/payments/confirm", h.Payments.Confirm)

			r.Group(func(r chi.Router) {
				r.Use(RequireAdmin)

				r.Get("/events/{id}/reservations", h.Reservations.ListByEvent)
				r.Post("/admin/reservations/{id}/refund", h.Reservations.Refund)
			})
		})
	})

	return r
}

// HealthCheck handles GET /healthz
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
