package bootstrap

import (
	"context"
	"testing"

	"go-pointage/internal/audit"
	"go-pointage/internal/shared/contextutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStdoutAuditLogger_Log(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := NewStdoutAuditLogger(zap.New(core))

	ctx := contextutil.WithActor(context.Background(), contextutil.Actor{UserID: "sup-1"})
	ctx = contextutil.WithRequestID(ctx, "req-9")
	l.Log(ctx, audit.Record{EntityType: audit.EntityMonth, EntityID: "2024-01", Action: "close"})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "audit", entries[0].LoggerName)

	fields := entries[0].ContextMap()
	assert.Equal(t, "sup-1", fields["actor"])
	assert.Equal(t, "req-9", fields["request_id"])
	assert.Equal(t, "2024-01", fields["entity_id"])
	assert.NotEmpty(t, fields["timestamp"])
}
