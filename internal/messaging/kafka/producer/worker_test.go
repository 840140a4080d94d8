package producer

import (
	"context"
	"errors"
	"testing"

	"go-pointage/internal/messaging/kafka"
	"go-pointage/internal/messaging/kafka/mock"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

type fakeWriter struct {
	msgs []kafkago.Message
	fail map[string]error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	for _, m := range msgs {
		if err := w.fail[string(m.Key)]; err != nil {
			return err
		}
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func headerValue(m kafkago.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestProcessPendingEvents(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes and marks sent", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mock.NewMockOutboxRepository(ctrl)
		writer := &fakeWriter{}

		repo.EXPECT().ListPending(ctx, outboxBatchSize).Return([]kafka.OutboxEvent{
			{ID: "ob-1", RequestID: "req-1", AggregateType: "month", AggregateID: "2024-01", EventType: "month_closed", Topic: "hr.pointage.month.v1", Payload: []byte(`{}`)},
		}, nil)
		repo.EXPECT().MarkSent(ctx, "ob-1").Return(nil)

		require.NoError(t, processPendingEvents(ctx, repo, writer, zap.NewNop()))

		require.Len(t, writer.msgs, 1)
		msg := writer.msgs[0]
		assert.Equal(t, "hr.pointage.month.v1", msg.Topic)
		assert.Equal(t, "2024-01", string(msg.Key))
		assert.Equal(t, "month_closed", headerValue(msg, "event_type"))
		assert.Equal(t, "req-1", headerValue(msg, "request_id"))
	})

	t.Run("publish failure marks failed and continues", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mock.NewMockOutboxRepository(ctrl)
		writer := &fakeWriter{fail: map[string]error{"bad": errors.New("broker down")}}

		repo.EXPECT().ListPending(ctx, outboxBatchSize).Return([]kafka.OutboxEvent{
			{ID: "ob-1", AggregateID: "bad", Topic: "t", Payload: []byte(`{}`)},
			{ID: "ob-2", AggregateID: "good", Topic: "t", Payload: []byte(`{}`)},
		}, nil)
		repo.EXPECT().MarkFailed(ctx, "ob-1", "broker down").Return(nil)
		repo.EXPECT().MarkSent(ctx, "ob-2").Return(nil)

		require.NoError(t, processPendingEvents(ctx, repo, writer, zap.NewNop()))
		require.Len(t, writer.msgs, 1)
		assert.Empty(t, headerValue(writer.msgs[0], "request_id"))
	})

	t.Run("list failure is returned", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mock.NewMockOutboxRepository(ctrl)
		boom := errors.New("db down")

		repo.EXPECT().ListPending(ctx, outboxBatchSize).Return(nil, boom)

		assert.ErrorIs(t, processPendingEvents(ctx, repo, &fakeWriter{}, zap.NewNop()), boom)
	})
}

func TestProcessOutboxEvents_StopsOnCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mock.NewMockOutboxRepository(ctrl)
	repo.EXPECT().ListPending(gomock.Any(), outboxBatchSize).Return(nil, nil).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ProcessOutboxEvents(ctx, repo, &fakeWriter{}, zap.NewNop(), 0)
		close(done)
	}()
	cancel()
	<-done
}
