package bootstrap

import (
	"context"
	"time"

	"go-pointage/internal/audit"

	"go.uber.org/zap"
)

// StdoutAuditLogger writes audit records through zap, used when no broker is configured.
type StdoutAuditLogger struct {
	logger *zap.Logger
}

func NewStdoutAuditLogger(logger ...*zap.Logger) *StdoutAuditLogger {
	l := zap.L()
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	return &StdoutAuditLogger{logger: l.Named("audit")}
}

func (l *StdoutAuditLogger) Log(ctx context.Context, rec audit.Record) {
	rec = audit.Stamp(ctx, rec)
	l.logger.Info("audit event",
		zap.String("timestamp", rec.OccurredAt.Format(time.RFC3339)),
		zap.String("request_id", rec.RequestID),
		zap.String("actor", rec.Actor),
		zap.String("entity_type", rec.EntityType),
		zap.String("entity_id", rec.EntityID),
		zap.String("action", rec.Action),
		zap.Any("payload", rec.Payload),
	)
}
