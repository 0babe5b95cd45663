package handler

import (
	"io"
	"net/http"

	"github.com/srgjo27/scalable_rsvp/internal/core/domain"
	"github.com/srgjo27/scalable_rsvp/internal/core/ports"
	"github.com/srgjo27/scalable_rsvp/internal/core/services"
	"go.uber.org/zap"
)

const maxWebhookBody = 64 << 10

// WebhookHandler receives gateway notifications. A 2xx tells the gateway to
// stop redelivering, so it is only sent once the outcome is in the ledger.
type WebhookHandler struct {
	verifier   ports.WebhookVerifier
	reconciler *services.Reconciler
	dedup      ports.WebhookDeduplicator
	log        *zap.Logger
}

func NewWebhookHandler(verifier ports.WebhookVerifier, reconciler *services.Reconciler, dedup ports.WebhookDeduplicator, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{verifier: verifier, reconciler: reconciler, dedup: dedup, log: log}
}

// Handle handles POST /webhooks/stripe
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	event, err := h.verifier.Verify(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.log.Warn("webhook rejected", zap.Error(err))
		writeError(w, http.StatusBadRequest, domain.ErrWebhookVerification.Error())
		return
	}

	log := h.log.With(
		zap.String("delivery_id", event.ID),
		zap.String("type", event.Type),
		zap.String("payment_intent_id", event.IntentID))

	if event.Kind == ports.WebhookIgnored {
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	seen, err := h.dedup.Seen(r.Context(), event.ID)
	if err != nil {
		// the ledger transitions are conditional, so processing again is safe
		log.Warn("webhook dedup lookup failed", zap.Error(err))
	}
	if seen {
		log.Debug("webhook redelivery skipped")
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	outcome := domain.OutcomeFailed
	if event.Kind == ports.WebhookIntentSucceeded {
		outcome = domain.OutcomeSucceeded
	}

	if _, err := h.reconciler.ApplyOutcome(r.Context(), event.IntentID, outcome); err != nil {
		log.Error("failed to apply webhook outcome", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := h.dedup.MarkProcessed(r.Context(), event.ID); err != nil {
		log.Warn("failed to record webhook delivery", zap.Error(err))
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
