package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const webhookDeliveryKeyPrefix = "webhook:delivery:"

// WebhookDeduplicator remembers processed gateway deliveries in Redis for
// ttl. It only short-circuits redeliveries; the ledger transitions stay
// conditional either way.
type WebhookDeduplicator struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewWebhookDeduplicator(client redis.Cmdable, ttl time.Duration) *WebhookDeduplicator {
	return &WebhookDeduplicator{client: client, ttl: ttl}
}

func (d *WebhookDeduplicator) Seen(ctx context.Context, deliveryID string) (bool, error) {
	n, err := d.client.Exists(ctx, webhookDeliveryKeyPrefix+deliveryID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check webhook delivery: %w", err)
	}

	return n > 0, nil
}

func (d *WebhookDeduplicator) MarkProcessed(ctx context.Context, deliveryID string) error {
	if err := d.client.SetNX(ctx, webhookDeliveryKeyPrefix+deliveryID, 1, d.ttl).Err(); err != nil {
		return fmt.Errorf("failed to record webhook delivery: %w", err)
	}

	return nil
}

// NoopDeduplicator is used when Redis is disabled.
type NoopDeduplicator struct{}

func (NoopDeduplicator) Seen(context.Context, string) (bool, error) { return false, nil }

func (NoopDeduplicator) MarkProcessed(context.Context, string) error { return nil }
