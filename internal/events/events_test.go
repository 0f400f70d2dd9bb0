package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeKafkaWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeKafkaWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeKafkaWriter) Close() error { return nil }

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeKafkaWriter{}
	p := &KafkaPublisher{writer: w}

	at := time.Date(2025, 4, 1, 6, 0, 0, 0, time.UTC)
	err := p.Publish(context.Background(), Event{
		Type:        TypePaymentRecorded,
		AggregateID: "order-1",
		OccurredAt:  at,
		Data:        map[string]any{"stage": "COMMITMENT"},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "order-1", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, TypePaymentRecorded, string(msg.Headers[0].Value))

	var got Event
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, TypePaymentRecorded, got.Type)
	assert.Equal(t, "COMMITMENT", got.Data["stage"])
	assert.True(t, got.OccurredAt.Equal(at))
}

func TestKafkaPublisher_WrapsWriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := &KafkaPublisher{writer: &fakeKafkaWriter{err: boom}}

	err := p.Publish(context.Background(), Event{Type: TypeOrderPlaced, AggregateID: "o"})
	assert.ErrorIs(t, err, boom)
}

func TestLogPublisher(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := NewLogPublisher(zap.New(core))

	require.NoError(t, p.Publish(context.Background(), Event{Type: TypeOrderCancelled, AggregateID: "o-9"}))
	entries := logs.FilterField(zap.String("type", TypeOrderCancelled)).All()
	require.Len(t, entries, 1)
	assert.Equal(t, "event", entries[0].Message)
}
