package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-faster/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xenking/threadcraft/internal/domain/order"
)

type published struct {
	exchange, key string
	msg           amqp.Publishing
}

type mockChannel struct {
	sent   []published
	err    error
	closed bool
}

func (m *mockChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (m *mockChannel) Close() error {
	m.closed = true
	return nil
}

var reviewed = order.Event{
	Type:       order.EventDesignReviewed,
	OrderID:    "o-1",
	Status:     order.StatusProcessing,
	Version:    3,
	ActorID:    "admin-1",
	DesignID:   "d-1",
	Review:     order.ReviewApproved,
	Total:      32000,
	OccurredAt: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
}

func TestAMQPPublisher_Publish(t *testing.T) {
	ch := &mockChannel{}
	p := newAMQPPublisher(ch, "orders")

	require.NoError(t, p.Publish(context.Background(), reviewed))
	require.Len(t, ch.sent, 1)

	got := ch.sent[0]
	assert.Equal(t, "orders", got.exchange)
	assert.Equal(t, "order.design_reviewed", got.key)
	assert.Equal(t, "o-1/3", got.msg.MessageId)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
	assert.Equal(t, "application/json", got.msg.ContentType)

	var body map[string]any
	require.NoError(t, json.Unmarshal(got.msg.Body, &body))
	assert.Equal(t, "o-1", body["order_id"])
	assert.Equal(t, "APPROVED", body["review"])
	assert.NotContains(t, body, "item_id")
}

func TestAMQPPublisher_Error(t *testing.T) {
	ch := &mockChannel{err: errors.New("channel closed")}
	p := newAMQPPublisher(ch, "orders")

	err := p.Publish(context.Background(), reviewed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order.design_reviewed")
}

func TestAMQPPublisher_Close(t *testing.T) {
	ch := &mockChannel{}
	p := newAMQPPublisher(ch, "orders")

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
	require.Error(t, p.Ping(context.Background()))
}

func TestLogPublisher(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := NewLogPublisher(zap.New(core))

	require.NoError(t, p.Publish(context.Background(), reviewed))
	require.Equal(t, 1, logs.Len())

	entry := logs.All()[0]
	assert.Equal(t, "order.design_reviewed", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, "o-1", fields["order_id"])
	assert.Equal(t, "d-1", fields["design_id"])
	assert.NotContains(t, fields, "item_id")
}
