// Package audit emits append-only records of mutating pointage operations.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go-pointage/internal/shared/contextutil"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	EntityTimesheet  = "timesheet"
	EntityDailyEntry = "daily_entry"
	EntityHourBank   = "hour_bank"
	EntityMonth      = "month"
	EntityEmployee   = "employee"
	EntityServer     = "server"
)

type Record struct {
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Action     string         `json:"action"`
	Actor      string         `json:"actor,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Logger receives records after the owning transaction has committed.
// Implementations must not block the caller on delivery failures.
type Logger interface {
	Log(ctx context.Context, rec Record)
}

// Stamp fills actor, request id and timestamp from ctx when unset.
func Stamp(ctx context.Context, rec Record) Record {
	if rec.Actor == "" {
		rec.Actor = contextutil.GetUserID(ctx)
	}
	if rec.RequestID == "" {
		rec.RequestID = contextutil.GetRequestID(ctx)
	}
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = time.Now().UTC()
	}
	return rec
}

type nopLogger struct{}

func (nopLogger) Log(context.Context, Record) {}

func Nop() Logger { return nopLogger{} }

// MessageWriter is the subset of *kafka.Writer used here.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// queueSize bounds the records waiting for the broker; beyond it records are dropped.
const queueSize = 1024

// KafkaLogger publishes records to a topic from a background goroutine.
// Log only enqueues, so a slow or unreachable broker never delays the caller.
type KafkaLogger struct {
	writer MessageWriter
	topic  string
	logger *zap.Logger
	queue  chan kafka.Message
	done   chan struct{}
	once   sync.Once
}

func NewKafkaLogger(writer MessageWriter, topic string, logger ...*zap.Logger) *KafkaLogger {
	l := zap.L().Named("audit.kafka")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("audit.kafka")
	}
	k := &KafkaLogger{
		writer: writer,
		topic:  topic,
		logger: l,
		queue:  make(chan kafka.Message, queueSize),
		done:   make(chan struct{}),
	}
	go k.run()
	return k
}

func (k *KafkaLogger) Log(ctx context.Context, rec Record) {
	rec = Stamp(ctx, rec)
	payload, err := json.Marshal(rec)
	if err != nil {
		k.logger.Error("marshal audit record failed", zap.String("action", rec.Action), zap.Error(err))
		return
	}

	msg := kafka.Message{
		Topic: k.topic,
		Key:   []byte(rec.EntityType + ":" + rec.EntityID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(rec.Action)},
			{Key: "request_id", Value: []byte(rec.RequestID)},
		},
	}
	select {
	case k.queue <- msg:
	default:
		k.logger.Warn("audit queue full, record dropped",
			zap.String("request_id", rec.RequestID),
			zap.String("action", rec.Action),
			zap.String("entity_id", rec.EntityID),
		)
	}
}

// Close stops accepting records and waits until the queued ones were handed to the writer.
// Log must not be called after Close.
func (k *KafkaLogger) Close() {
	k.once.Do(func() { close(k.queue) })
	<-k.done
}

func (k *KafkaLogger) run() {
	defer close(k.done)
	for msg := range k.queue {
		// context.Background: the request is usually finished by now
		if err := k.writer.WriteMessages(context.Background(), msg); err != nil {
			k.logger.Error("publish audit record failed",
				zap.String("key", string(msg.Key)),
				zap.Error(err),
			)
		}
	}
}

// CompletionLogger reports delivery failures of an Async kafka.Writer.
func CompletionLogger(logger *zap.Logger) func(messages []kafka.Message, err error) {
	return func(messages []kafka.Message, err error) {
		if err == nil {
			return
		}
		for _, m := range messages {
			logger.Error("deliver audit record failed",
				zap.String("topic", m.Topic),
				zap.String("key", string(m.Key)),
				zap.Error(err),
			)
		}
	}
}

// Multi fans a record out to several sinks.
func Multi(loggers ...Logger) Logger {
	return multiLogger(loggers)
}

type multiLogger []Logger

func (m multiLogger) Log(ctx context.Context, rec Record) {
	for _, l := range m {
		l.Log(ctx, rec)
	}
}
