package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/srgjo27/scalable_rsvp/internal/core/domain"
	"github.com/srgjo27/scalable_rsvp/internal/core/ports"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// payment_intent.payment_failed is not terminal: the intent returns to
// requires_payment_method and can still be confirmed with another method.
const (
	eventIntentSucceeded = "payment_intent.succeeded"
	eventIntentCanceled  = "payment_intent.canceled"
)

// StripeWebhookVerifier checks the Stripe-Signature header of webhook
// deliveries and extracts the payment intent they refer to.
type StripeWebhookVerifier struct {
	secret    string
	tolerance time.Duration
}

func NewStripeWebhookVerifier(secret string) *StripeWebhookVerifier {
	return &StripeWebhookVerifier{
		secret:    secret,
		tolerance: webhook.DefaultTolerance,
	}
}

func (v *StripeWebhookVerifier) Verify(payload []byte, signatureHeader string) (*ports.WebhookEvent, error) {
	if signatureHeader == "" {
		return nil, fmt.Errorf("%w: missing signature header", domain.ErrWebhookVerification)
	}

	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrWebhookVerification, err)
	}

	out := &ports.WebhookEvent{
		ID:   event.ID,
		Type: string(event.Type),
		Kind: ports.WebhookIgnored,
	}

	switch out.Type {
	case eventIntentSucceeded:
		out.Kind = ports.WebhookIntentSucceeded
	case eventIntentCanceled:
		out.Kind = ports.WebhookIntentFailed
	default:
		return out, nil
	}

	var pi stripe.PaymentIntent
	if event.Data == nil {
		return nil, fmt.Errorf("%w: event %s has no data", domain.ErrWebhookVerification, event.ID)
	}
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("%w: malformed payment intent: %v", domain.ErrWebhookVerification, err)
	}
	if pi.ID == "" {
		return nil, fmt.Errorf("%w: event %s carries no payment intent id", domain.ErrWebhookVerification, event.ID)
	}

	out.IntentID = pi.ID

	return out, nil
}
