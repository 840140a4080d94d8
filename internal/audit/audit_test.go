package audit_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"go-pointage/internal/audit"
	"go-pointage/internal/shared/contextutil"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeWriter struct {
	mu    sync.Mutex
	msgs  []kafka.Message
	err   error
	block chan struct{}
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msgs...)
	return f.err
}

func (f *fakeWriter) written() []kafka.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]kafka.Message(nil), f.msgs...)
}

type captureLogger struct{ records []audit.Record }

func (c *captureLogger) Log(ctx context.Context, rec audit.Record) { c.records = append(c.records, rec) }

func TestKafkaLogger_PublishesStampedRecord(t *testing.T) {
	w := &fakeWriter{}
	l := audit.NewKafkaLogger(w, "hr.pointage.audit.v1", zap.NewNop())

	ctx := contextutil.WithRequestID(context.Background(), "REQ-1")
	ctx = contextutil.WithActor(ctx, contextutil.Actor{UserID: "user-9"})

	l.Log(ctx, audit.Record{
		EntityType: audit.EntityTimesheet,
		EntityID:   "ts-1",
		Action:     "validate",
		Payload:    map[string]any{"month": 1},
	})
	l.Close()

	msgs := w.written()
	if assert.Len(t, msgs, 1) {
		msg := msgs[0]
		assert.Equal(t, "hr.pointage.audit.v1", msg.Topic)
		assert.Equal(t, "timesheet:ts-1", string(msg.Key))

		var got audit.Record
		assert.NoError(t, json.Unmarshal(msg.Value, &got))
		assert.Equal(t, "user-9", got.Actor)
		assert.Equal(t, "REQ-1", got.RequestID)
		assert.Equal(t, "validate", got.Action)
		assert.False(t, got.OccurredAt.IsZero())
	}
}

func TestKafkaLogger_WriteFailureDoesNotPanic(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	l := audit.NewKafkaLogger(w, "topic", zap.NewNop())

	assert.NotPanics(t, func() {
		l.Log(context.Background(), audit.Record{EntityType: audit.EntityMonth, EntityID: "2024-01", Action: "close"})
		l.Close()
	})
}

func TestKafkaLogger_LogDoesNotWaitForBroker(t *testing.T) {
	w := &fakeWriter{block: make(chan struct{})}
	l := audit.NewKafkaLogger(w, "topic", zap.NewNop())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 3; i++ {
			l.Log(context.Background(), audit.Record{EntityType: audit.EntityTimesheet, EntityID: "ts-1", Action: "upsert"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Log blocked on a stalled writer")
	}
	assert.Empty(t, w.written())

	close(w.block)
	l.Close()
	assert.Len(t, w.written(), 3)
}

func TestCompletionLogger(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	complete := audit.CompletionLogger(zap.New(core))

	complete([]kafka.Message{{Topic: "t", Key: []byte("month:2024-01")}}, nil)
	assert.Equal(t, 0, logs.Len())

	complete([]kafka.Message{{Topic: "t", Key: []byte("a")}, {Topic: "t", Key: []byte("b")}}, errors.New("leader not available"))
	assert.Equal(t, 2, logs.Len())
	assert.Equal(t, "b", logs.All()[1].ContextMap()["key"])
}

func TestMulti(t *testing.T) {
	a, b := &captureLogger{}, &captureLogger{}
	audit.Multi(a, audit.Nop(), b).Log(context.Background(), audit.Record{Action: "x"})

	assert.Len(t, a.records, 1)
	assert.Len(t, b.records, 1)
}
