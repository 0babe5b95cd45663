package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/srgjo27/scalable_rsvp/internal/core/ports"
)

// FakeGateway is an in-process PaymentGateway for local runs and tests.
// Intents stay pending until Settle is called.
type FakeGateway struct {
	mu        sync.Mutex
	intents   map[string]*ports.Intent
	byKey     map[string]string
	refunds   map[string]int64
	cancelled map[string]bool
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		intents:   make(map[string]*ports.Intent),
		byKey:     make(map[string]string),
		refunds:   make(map[string]int64),
		cancelled: make(map[string]bool),
	}
}

func (g *FakeGateway) Name() string {
	return "fake"
}

func (g *FakeGateway) CreateIntent(_ context.Context, req ports.IntentRequest) (*ports.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if req.IdempotencyKey != "" {
		if id, ok := g.byKey[req.IdempotencyKey]; ok {
			return copyIntent(g.intents[id]), nil
		}
	}

	id := "pi_fake_" + uuid.NewString()
	metadata := make(map[string]string, len(req.Metadata))
	for k, v := range req.Metadata {
		metadata[k] = v
	}

	intent := &ports.Intent{
		ID:          id,
		ClientToken: id + "_secret",
		Status:      ports.IntentPending,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Metadata:    metadata,
	}
	g.intents[id] = intent
	if req.IdempotencyKey != "" {
		g.byKey[req.IdempotencyKey] = id
	}

	return copyIntent(intent), nil
}

func (g *FakeGateway) RetrieveIntent(_ context.Context, intentID string) (*ports.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	intent, ok := g.intents[intentID]
	if !ok {
		return nil, fmt.Errorf("no such payment intent: %s", intentID)
	}

	return copyIntent(intent), nil
}

func (g *FakeGateway) CancelIntent(_ context.Context, intentID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	intent, ok := g.intents[intentID]
	if !ok {
		return fmt.Errorf("no such payment intent: %s", intentID)
	}
	if intent.Status == ports.IntentSucceeded {
		return fmt.Errorf("payment intent %s already captured", intentID)
	}

	intent.Status = ports.IntentFailed
	g.cancelled[intentID] = true

	return nil
}

func (g *FakeGateway) Refund(_ context.Context, intentID string, amount int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	intent, ok := g.intents[intentID]
	if !ok {
		return fmt.Errorf("no such payment intent: %s", intentID)
	}
	if intent.Status != ports.IntentSucceeded {
		return fmt.Errorf("payment intent %s was not captured", intentID)
	}

	g.refunds[intentID] = amount

	return nil
}

// Settle moves an intent to a terminal status, as the payer's bank would.
func (g *FakeGateway) Settle(intentID string, status ports.IntentStatus) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	intent, ok := g.intents[intentID]
	if !ok {
		return fmt.Errorf("no such payment intent: %s", intentID)
	}
	intent.Status = status

	return nil
}

func (g *FakeGateway) Refunded(intentID string) (int64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	amount, ok := g.refunds[intentID]
	return amount, ok
}

func (g *FakeGateway) Cancelled(intentID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.cancelled[intentID]
}

func copyIntent(in *ports.Intent) *ports.Intent {
	out := *in
	out.Metadata = make(map[string]string, len(in.Metadata))
	for k, v := range in.Metadata {
		out.Metadata[k] = v
	}
	return &out
}
