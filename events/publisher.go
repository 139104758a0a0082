package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/twmb/franz-go/pkg/kgo"
)

// OrderPaidEvent is published once per order after it moves to paid
type OrderPaidEvent struct {
	Reference  string          `json:"reference"`
	OrderID    uint            `json:"order_id"`
	UserID     *uint           `json:"user_id"`
	Total      decimal.Decimal `json:"total"`
	AmountKobo int64           `json:"amount_kobo"`
	PaidAt     time.Time       `json:"paid_at"`
}

// Publisher sends a keyed message to a topic
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
	Close()
}

// PublishJSON marshals v and publishes it under key
func PublishJSON(ctx context.Context, p Publisher, topic, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return p.Publish(ctx, topic, []byte(key), data)
}

// Noop drops every message; used when no brokers are configured
type Noop struct{}

func (Noop) Publish(context.Context, string, []byte, []byte) error { return nil }
func (Noop) Close()                                                {}

const DefaultDeliveryTimeout = 10 * time.Second

// Kafka produces synchronously so callers learn about delivery failures.
// Every publish gives up after the delivery timeout, even when the caller's
// context has no deadline.
type Kafka struct {
	client  *kgo.Client
	timeout time.Duration
}

func NewKafka(brokers []string, deliveryTimeout time.Duration) (*Kafka, error) {
	if deliveryTimeout <= 0 {
		deliveryTimeout = DefaultDeliveryTimeout
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.AllowAutoTopicCreation(),
		kgo.ProduceRequestTimeout(deliveryTimeout),
		kgo.RecordDeliveryTimeout(deliveryTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}
	return &Kafka{client: client, timeout: deliveryTimeout}, nil
}

func (k *Kafka) Publish(ctx context.Context, topic string, key, value []byte) error {
	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()
	record := &kgo.Record{Topic: topic, Key: key, Value: value}
	if err := k.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to produce to %s: %w", topic, err)
	}
	return nil
}

func (k *Kafka) Close() {
	k.client.Close()
}
