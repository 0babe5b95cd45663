package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/srgjo27/scalable_rsvp/internal/core/domain"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

type KafkaConfig struct {
	Brokers  []string
	ClientID string
	Topic    string
}

type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaCompensationPublisher emits compensation events keyed by reservation
// id, so every event of one reservation lands on the same partition.
type KafkaCompensationPublisher struct {
	producer producer
	close    func()
	topic    string
	log      *zap.Logger
}

func NewKafkaCompensationPublisher(ctx context.Context, cfg KafkaConfig, log *zap.Logger) (*KafkaCompensationPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.DefaultProduceTopic(cfg.Topic),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka client: %w", err)
	}

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Kafka: %w", err)
	}

	return &KafkaCompensationPublisher{
		producer: client,
		close:    client.Close,
		topic:    cfg.Topic,
		log:      log,
	}, nil
}

func (p *KafkaCompensationPublisher) Publish(ctx context.Context, event *domain.CompensationEvent) error {
	record, err := encodeRecord(p.topic, event)
	if err != nil {
		return err
	}

	if err := p.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to publish %s for reservation %s: %w", event.Type, event.ReservationID, err)
	}

	p.log.Info("compensation event published",
		zap.String("type", event.Type),
		zap.String("reservation_id", event.ReservationID.String()),
		zap.String("topic", p.topic))

	return nil
}

func (p *KafkaCompensationPublisher) Close() {
	if p.close != nil {
		p.close()
	}
}

func encodeRecord(topic string, event *domain.CompensationEvent) (*kgo.Record, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to encode compensation event: %w", err)
	}

	return &kgo.Record{
		Topic: topic,
		Key:   []byte(event.ReservationID.String()),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}, nil
}

// LogPublisher writes compensation events to the log when no broker is
// configured. Operators pick them up from there.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, event *domain.CompensationEvent) error {
	p.log.Warn("compensation event",
		zap.String("type", event.Type),
		zap.String("reservation_id", event.ReservationID.String()),
		zap.String("event_id", event.EventID.String()),
		zap.String("user_id", event.UserID.String()),
		zap.String("payment_intent_id", event.PaymentIntentID),
		zap.Int64("amount", event.Amount),
		zap.String("currency", event.Currency),
		zap.String("reason", event.Reason))

	return nil
}
