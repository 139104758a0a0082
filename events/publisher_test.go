package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capture struct {
	topic string
	key   []byte
	value []byte
}

func (c *capture) Publish(_ context.Context, topic string, key, value []byte) error {
	c.topic, c.key, c.value = topic, key, value
	return nil
}

func (c *capture) Close() {}

func TestPublishJSON(t *testing.T) {
	c := &capture{}
	uid := uint(7)
	ev := OrderPaidEvent{
		Reference:  "ref-1",
		OrderID:    3,
		UserID:     &uid,
		Total:      decimal.NewFromInt(8000),
		AmountKobo: 800000,
		PaidAt:     time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, PublishJSON(context.Background(), c, "orders.paid", ev.Reference, ev))

	assert.Equal(t, "orders.paid", c.topic)
	assert.Equal(t, []byte("ref-1"), c.key)
	var got map[string]any
	require.NoError(t, json.Unmarshal(c.value, &got))
	assert.Equal(t, "8000", got["total"])
	assert.Equal(t, float64(800000), got["amount_kobo"])
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = Noop{}
	assert.NoError(t, p.Publish(context.Background(), "t", nil, nil))
	p.Close()
}

func TestKafkaPublishGivesUpOnUnreachableBroker(t *testing.T) {
	k, err := NewKafka([]string{"127.0.0.1:1"}, 300*time.Millisecond)
	require.NoError(t, err)
	defer k.Close()

	done := make(chan error, 1)
	go func() {
		done <- k.Publish(context.Background(), "orders.paid", []byte("ref-1"), []byte("{}"))
	}()
	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("publish did not return against an unreachable broker")
	}
}
