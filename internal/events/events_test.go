package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type sent struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeChannel struct {
	out    []sent
	err    error
	closed bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.out = append(f.out, sent{exchange, key, msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestAMQPPublishRoutesByType(t *testing.T) {
	ch := &fakeChannel{}
	p := newAMQPPublisher(ch, "itsa.lifecycle")

	err := p.Publish(context.Background(), Event{Type: DocumentReviewed, ApplicationID: "app-1", Data: map[string]any{"status": "approved"}})
	require.NoError(t, err)
	require.Len(t, ch.out, 1)

	got := ch.out[0]
	assert.Equal(t, "itsa.lifecycle", got.exchange)
	assert.Equal(t, DocumentReviewed, got.key)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
	assert.False(t, got.msg.Timestamp.IsZero())

	var ev Event
	require.NoError(t, json.Unmarshal(got.msg.Body, &ev))
	assert.Equal(t, "app-1", ev.ApplicationID)
	assert.Equal(t, "approved", ev.Data["status"])
}

func TestAMQPPublishKeepsTimestamp(t *testing.T) {
	ch := &fakeChannel{}
	p := newAMQPPublisher(ch, "x")
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, p.Publish(context.Background(), Event{Type: MessageSent, At: at}))
	assert.True(t, ch.out[0].msg.Timestamp.Equal(at))
}

func TestAMQPPublishError(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	p := newAMQPPublisher(ch, "x")

	assert.EqualError(t, p.Publish(context.Background(), Event{Type: MessageSent}), "channel closed")
	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestLogPublisher(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := NewLogPublisher(zap.New(core).Sugar())

	require.NoError(t, p.Publish(context.Background(), Event{Type: ApplicationSubmitted, ClientID: "c-1"}))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "lifecycle event", entry.Message)
	assert.Equal(t, ApplicationSubmitted, entry.ContextMap()["type"])
	assert.Equal(t, "c-1", entry.ContextMap()["client_id"])
}
