package ports

import (
	"context"
)

type IntentStatus string

const (
	IntentSucceeded IntentStatus = "succeeded"
	IntentFailed    IntentStatus = "failed"
	IntentPending   IntentStatus = "pending"
)

type IntentRequest struct {
	Amount         int64
	Currency       string
	Description    string
	Metadata       map[string]string
	IdempotencyKey string
}

type Intent struct {
	ID          string
	ClientToken string
	Status      IntentStatus
	Amount      int64
	Currency    string
	Metadata    map[string]string
}

type PaymentGateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	RetrieveIntent(ctx context.Context, intentID string) (*Intent, error)
	CancelIntent(ctx context.Context, intentID string) error
	Refund(ctx context.Context, intentID string, amount int64) error
	Name() string
}

type WebhookKind string

const (
	WebhookIntentSucceeded WebhookKind = "intent.succeeded"
	WebhookIntentFailed    WebhookKind = "intent.failed"
	WebhookIgnored         WebhookKind = "ignored"
)

// WebhookEvent is a verified gateway notification.
type WebhookEvent struct {
	ID       string
	Type     string
	Kind     WebhookKind
	IntentID string
}

type WebhookVerifier interface {
	// Verify authenticates payload against the signature header. It returns
	// domain.ErrWebhookVerification on any signature or parse failure.
	Verify(payload []byte, signatureHeader string) (*WebhookEvent, error)
}
