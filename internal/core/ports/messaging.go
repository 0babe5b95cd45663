package ports

import (
	"context"

	"github.com/srgjo27/scalable_rsvp/internal/core/domain"
)

type CompensationPublisher interface {
	Publish(ctx context.Context, event *domain.CompensationEvent) error
}

// WebhookDeduplicator remembers gateway deliveries that were fully applied so
// that redeliveries can be acknowledged without touching the ledger.
type WebhookDeduplicator interface {
	Seen(ctx context.Context, deliveryID string) (bool, error)
	MarkProcessed(ctx context.Context, deliveryID string) error
}
