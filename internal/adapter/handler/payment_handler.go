package handler

import (
	"net/http"

	"github.com/srgjo27/scalable_rsvp/internal/core/domain"
	"github.com/srgjo27/scalable_rsvp/internal/core/services"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	payments *services.PaymentService
	log      *zap.Logger
}

func NewPaymentHandler(payments *services.PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, log: log}
}

type openIntentRequest struct {
	ReservationID string `json:"reservation_id"`
}

type confirmPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id"`
}

// OpenIntent handles POST /api/v1/payments/intents
func (h *PaymentHandler) OpenIntent(w http.ResponseWriter, r *http.Request) {
	id, err := requireIdentity(r)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	var req openIntentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	reservationID, err := parseID(req.ReservationID, domain.ErrInvalidID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	session, err := h.payments.OpenIntent(r.Context(), reservationID, id.UserID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// Confirm handles POST /api/v1/payments/confirm
func (h *PaymentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, err := requireIdentity(r)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	var req confirmPaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := h.payments.ConfirmFromClient(r.Context(), req.PaymentIntentID, id.UserID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}
