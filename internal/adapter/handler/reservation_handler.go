package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/srgjo27/scalable_rsvp/internal/core/domain"
	"github.com/srgjo27/scalable_rsvp/internal/core/services"
	"go.uber.org/zap"
)

type ReservationHandler struct {
	ledger       *services.ReservationService
	compensation *services.CompensationService
	log          *zap.Logger
}

func NewReservationHandler(ledger *services.ReservationService, compensation *services.CompensationService, log *zap.Logger) *ReservationHandler {
	return &ReservationHandler{ledger: ledger, compensation: compensation, log: log}
}

type createReservationRequest struct {
	EventID string `json:"event_id"`
	Notes   string `json:"notes"`
}

// Create handles POST /api/v1/reservations
func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, err := requireIdentity(r)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	var req createReservationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	eventID, err := parseID(req.EventID, domain.ErrInvalidEventID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	res, err := h.ledger.Create(r.Context(), eventID, id.UserID, req.Notes)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

// ListMine handles GET /api/v1/reservations/mine
func (h *ReservationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	id, err := requireIdentity(r)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	list, err := h.ledger.ListByUser(r.Context(), id.UserID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	if list == nil {
		list = []domain.Reservation{}
	}

	writeJSON(w, http.StatusOK, list)
}

// Get handles GET /api/v1/reservations/{id}. Only the owner or an admin may
// read a reservation.
func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := requireIdentity(r)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	reservationID, err := parseID(chi.URLParam(r, "id"), domain.ErrInvalidID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	res, err := h.ledger.Get(r.Context(), reservationID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	if !res.IsOwnedBy(id.UserID) && !id.IsAdmin() {
		writeServiceError(w, h.log, domain.ErrForbidden)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// Cancel handles DELETE /api/v1/reservations/{id}
func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := requireIdentity(r)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	reservationID, err := parseID(chi.URLParam(r, "id"), domain.ErrInvalidID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	res, err := h.ledger.Cancel(r.Context(), reservationID, id.UserID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// ListByEvent handles GET /api/v1/events/{id}/reservations (admin)
func (h *ReservationHandler) ListByEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseID(chi.URLParam(r, "id"), domain.ErrInvalidEventID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	list, err := h.ledger.ListByEvent(r.Context(), eventID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	if list == nil {
		list = []domain.Reservation{}
	}

	writeJSON(w, http.StatusOK, list)
}

// Availability handles GET /api/v1/events/{id}/availability
func (h *ReservationHandler) Availability(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseID(chi.URLParam(r, "id"), domain.ErrInvalidEventID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	availability, err := h.ledger.Availability(r.Context(), eventID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, availability)
}

// Refund handles POST /api/v1/admin/reservations/{id}/refund
func (h *ReservationHandler) Refund(w http.ResponseWriter, r *http.Request) {
	reservationID, err := parseID(chi.URLParam(r, "id"), domain.ErrInvalidID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	res, err := h.compensation.Refund(r.Context(), reservationID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}
