package gateway

import (
	"errors"
	"fmt"
	"testing"

	"github.com/srgjo27/scalable_rsvp/internal/core/ports"
	"github.com/srgjo27/scalable_rsvp/internal/platform/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v82"
)

func TestIntentStatus(t *testing.T) {
	assert.Equal(t, ports.IntentSucceeded, intentStatus(stripe.PaymentIntentStatusSucceeded))
	assert.Equal(t, ports.IntentFailed, intentStatus(stripe.PaymentIntentStatusCanceled))
	assert.Equal(t, ports.IntentPending, intentStatus(stripe.PaymentIntentStatusProcessing))
	assert.Equal(t, ports.IntentPending, intentStatus(stripe.PaymentIntentStatusRequiresPaymentMethod))
	assert.Equal(t, ports.IntentPending, intentStatus(stripe.PaymentIntentStatusRequiresAction))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantPermanent bool
	}{
		{"card declined", &stripe.Error{HTTPStatusCode: 402, Msg: "card declined"}, true},
		{"bad request", &stripe.Error{HTTPStatusCode: 400, Msg: "invalid amount"}, true},
		{"rate limited", &stripe.Error{HTTPStatusCode: 429, Msg: "slow down"}, false},
		{"server error", &stripe.Error{HTTPStatusCode: 503, Msg: "unavailable"}, false},
		{"network", errors.New("connection reset"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(fmt.Errorf("failed to create payment intent: %w", tt.err))

			var permanent *retry.PermanentError
			assert.Equal(t, tt.wantPermanent, errors.As(got, &permanent))
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestNewStripeGateway_RequiresKey(t *testing.T) {
	_, err := NewStripeGateway(StripeGatewayConfig{})

	assert.Error(t, err)
}
