package consumer

import (
	"context"
	"encoding/json"
	"time"

	"go-pointage/internal/events"
	"go-pointage/internal/shared/apperror"
	"go-pointage/internal/shared/contextutil"
	"go-pointage/internal/timesheet"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageReader is satisfied by *kafkago.Reader.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// MonthOpener is the slice of timesheet.Service the consumer needs.
type MonthOpener interface {
	OpenMonth(ctx context.Context, employeeID string, month, year int) (timesheet.TimesheetResponse, error)
}

// ConsumeEmployeeLifecycle opens the current month's timesheet for every
// newly created employee so the sheet exists before the first entry.
func ConsumeEmployeeLifecycle(
	ctx context.Context,
	reader MessageReader,
	opener MonthOpener,
	logger *zap.Logger,
) {
	log := logger.Named("kafka.consumer.employee_lifecycle")
	log.Info("employee lifecycle consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("employee lifecycle consumer stopped")
				return
			}
			log.Error("fetch employee lifecycle message failed", zap.Error(err))
			continue
		}

		handleEmployeeLifecycle(ctx, reader, opener, msg, log)
	}
}

func handleEmployeeLifecycle(
	ctx context.Context,
	reader MessageReader,
	opener MonthOpener,
	msg kafkago.Message,
	log *zap.Logger,
) {
	var event events.EmployeeCreatedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.Error("decode employee lifecycle event failed", zap.Error(err))
		_ = reader.CommitMessages(ctx, msg)
		return
	}
	if event.EventType != events.EmployeeCreatedEventType {
		log.Debug("skip employee lifecycle event", zap.String("event_type", event.EventType))
		_ = reader.CommitMessages(ctx, msg)
		return
	}

	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	occurred = occurred.UTC()

	opCtx := ctx
	if event.RequestID != "" {
		opCtx = contextutil.WithRequestID(ctx, event.RequestID)
	}

	// OpenMonth is idempotent, so a redelivered event is harmless.
	_, err := opener.OpenMonth(opCtx, event.EmployeeID, int(occurred.Month()), occurred.Year())
	if err != nil {
		if apperror.ToHTTP(err).Status < 500 {
			log.Warn("employee_created event rejected, skipping",
				zap.String("employee_id", event.EmployeeID),
				zap.Error(err),
			)
			_ = reader.CommitMessages(ctx, msg)
			return
		}
		log.Error("open month from employee_created event failed",
			zap.String("employee_id", event.EmployeeID),
			zap.Error(err),
		)
		return
	}

	if err := reader.CommitMessages(ctx, msg); err != nil {
		log.Error("commit employee lifecycle message failed", zap.Error(err))
		return
	}

	log.Info("timesheet opened from employee_created event",
		zap.String("employee_id", event.EmployeeID),
		zap.Int("month", int(occurred.Month())),
		zap.Int("year", occurred.Year()),
	)
}
