package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/srgjo27/scalable_rsvp/internal/core/ports"
	"github.com/srgjo27/scalable_rsvp/internal/platform/retry"
	"github.com/srgjo27/scalable_rsvp/internal/platform/telemetry"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/refund"
	"go.opentelemetry.io/otel/attribute"
)

type StripeGatewayConfig struct {
	SecretKey string
}

// StripeGateway implements ports.PaymentGateway with Stripe PaymentIntents.
// Amounts are already in the smallest currency unit.
type StripeGateway struct{}

func NewStripeGateway(cfg StripeGatewayConfig) (*StripeGateway, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("stripe secret key is required")
	}

	stripe.Key = cfg.SecretKey

	return &StripeGateway{}, nil
}

func (g *StripeGateway) Name() string {
	return "stripe"
}

func (g *StripeGateway) CreateIntent(ctx context.Context, req ports.IntentRequest) (intent *ports.Intent, err error) {
	ctx, span := telemetry.StartSpan(ctx, "gateway.stripe.create_intent",
		attribute.Int64("amount", req.Amount),
		attribute.String("currency", req.Currency))
	defer func() { telemetry.EndSpan(span, err) }()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: make(map[string]string, len(req.Metadata)),
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.Metadata[k] = v
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to create payment intent: %w", err))
	}

	return toIntent(pi), nil
}

func (g *StripeGateway) RetrieveIntent(ctx context.Context, intentID string) (intent *ports.Intent, err error) {
	ctx, span := telemetry.StartSpan(ctx, "gateway.stripe.retrieve_intent",
		attribute.String("payment_intent_id", intentID))
	defer func() { telemetry.EndSpan(span, err) }()

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(intentID, params)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to get payment intent: %w", err))
	}

	return toIntent(pi), nil
}

func (g *StripeGateway) CancelIntent(ctx context.Context, intentID string) error {
	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonAbandoned)),
	}
	params.Context = ctx

	if _, err := paymentintent.Cancel(intentID, params); err != nil {
		return classify(fmt.Errorf("failed to cancel payment intent: %w", err))
	}

	return nil
}

func (g *StripeGateway) Refund(ctx context.Context, intentID string, amount int64) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(intentID),
		Amount:        stripe.Int64(amount),
	}
	params.Context = ctx
	params.SetIdempotencyKey("refund:" + intentID)

	if _, err := refund.New(params); err != nil {
		return classify(fmt.Errorf("failed to create refund: %w", err))
	}

	return nil
}

func toIntent(pi *stripe.PaymentIntent) *ports.Intent {
	return &ports.Intent{
		ID:          pi.ID,
		ClientToken: pi.ClientSecret,
		Status:      intentStatus(pi.Status),
		Amount:      pi.Amount,
		Currency:    string(pi.Currency),
		Metadata:    pi.Metadata,
	}
}

func intentStatus(status stripe.PaymentIntentStatus) ports.IntentStatus {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return ports.IntentSucceeded
	case stripe.PaymentIntentStatusCanceled:
		return ports.IntentFailed
	default:
		// requires_payment_method, requires_action, processing, ... can
		// still end up captured
		return ports.IntentPending
	}
}

// classify marks client errors as permanent so the caller does not retry a
// request Stripe already rejected. Rate limits and 5xx stay retryable.
func classify(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		code := stripeErr.HTTPStatusCode
		if code >= http.StatusBadRequest && code < http.StatusInternalServerError && code != http.StatusTooManyRequests {
			return retry.Permanent(err)
		}
	}

	return err
}
