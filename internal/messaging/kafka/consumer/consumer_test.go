package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"go-pointage/internal/events"
	"go-pointage/internal/shared/contextutil"
	"go-pointage/internal/timesheet"
	timesheeterrors "go-pointage/internal/timesheet/errors"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafkago.Message
	committed []kafkago.Message
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		m := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafkago.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

type openCall struct {
	employeeID  string
	month, year int
	requestID   string
}

type fakeOpener struct {
	calls []openCall
	err   error
}

func (o *fakeOpener) OpenMonth(ctx context.Context, employeeID string, month, year int) (timesheet.TimesheetResponse, error) {
	o.calls = append(o.calls, openCall{employeeID, month, year, contextutil.GetRequestID(ctx)})
	return timesheet.TimesheetResponse{}, o.err
}

func employeeCreated(t *testing.T, employeeID string, at time.Time) kafkago.Message {
	t.Helper()
	raw, err := json.Marshal(events.EmployeeCreatedEvent{
		EventType:  events.EmployeeCreatedEventType,
		RequestID:  "req-7",
		EmployeeID: employeeID,
		OccurredAt: at,
	})
	require.NoError(t, err)
	return kafkago.Message{Topic: events.EmployeeLifecycleTopic, Value: raw}
}

func TestHandleEmployeeLifecycle(t *testing.T) {
	ctx := context.Background()
	log := zap.NewNop()

	t.Run("opens month of the event", func(t *testing.T) {
		reader := &fakeReader{}
		opener := &fakeOpener{}
		at := time.Date(2024, time.March, 31, 23, 30, 0, 0, time.FixedZone("UTC-2", -2*3600))

		handleEmployeeLifecycle(ctx, reader, opener, employeeCreated(t, "emp-1", at), log)

		require.Len(t, opener.calls, 1)
		assert.Equal(t, openCall{"emp-1", 4, 2024, "req-7"}, opener.calls[0])
		assert.Len(t, reader.committed, 1)
	})

	t.Run("client error is committed and skipped", func(t *testing.T) {
		reader := &fakeReader{}
		opener := &fakeOpener{err: timesheeterrors.ErrEmployeeNotFound}

		handleEmployeeLifecycle(ctx, reader, opener, employeeCreated(t, "emp-1", time.Now()), log)
		assert.Len(t, reader.committed, 1)
	})

	t.Run("server error is retried", func(t *testing.T) {
		reader := &fakeReader{}
		opener := &fakeOpener{err: errors.New("db down")}

		handleEmployeeLifecycle(ctx, reader, opener, employeeCreated(t, "emp-1", time.Now()), log)
		assert.Empty(t, reader.committed)
	})

	t.Run("garbage and foreign events are committed", func(t *testing.T) {
		reader := &fakeReader{}
		opener := &fakeOpener{}

		handleEmployeeLifecycle(ctx, reader, opener, kafkago.Message{Value: []byte("{")}, log)
		handleEmployeeLifecycle(ctx, reader, opener, kafkago.Message{Value: []byte(`{"event_type":"employee_deleted"}`)}, log)

		assert.Empty(t, opener.calls)
		assert.Len(t, reader.committed, 2)
	})
}

func TestConsumeEmployeeLifecycle(t *testing.T) {
	reader := &fakeReader{queue: []kafkago.Message{
		employeeCreated(t, "emp-1", time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)),
		employeeCreated(t, "emp-2", time.Date(2024, time.January, 11, 0, 0, 0, 0, time.UTC)),
	}}
	opener := &fakeOpener{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ConsumeEmployeeLifecycle(ctx, reader, opener, zap.NewNop())
		close(done)
	}()

	require.Eventually(t, func() bool {
		reader.mu.Lock()
		defer reader.mu.Unlock()
		return len(reader.committed) == 2
	}, time.Second, 10*time.Millisecond)
	cancel()
	<-done

	require.Len(t, opener.calls, 2)
	assert.Equal(t, "emp-2", opener.calls[1].employeeID)
}
