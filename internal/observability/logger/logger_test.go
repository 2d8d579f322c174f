package logger

import (
	"context"
	"testing"

	"github.com/srithedesigner/credmatrix-backend/internal/identity"
	obscontext "github.com/srithedesigner/credmatrix-backend/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContextAttachesCaller(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := obscontext.WithRequestID(context.Background(), "req-1")
	ctx = identity.WithActor(ctx, identity.Actor{UserID: 7, EntityID: 9, Role: identity.RoleAdmin})

	WithContext(ctx, zap.New(core)).Info("report.initiated")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "7", fields["user_id"])
	assert.Equal(t, "9", fields["entity_id"])
	assert.Equal(t, "admin", fields["role"])
	assert.NotContains(t, fields, "trace_id")
}

func TestWithContextOmitsAbsentFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	WithContext(context.Background(), zap.New(core)).Info("startup")
	WithContext(obscontext.WithEntityID(context.Background(), "42"), zap.New(core)).Info("signup")

	require.Equal(t, 2, logs.Len())
	assert.Empty(t, logs.All()[0].ContextMap())
	assert.Equal(t, map[string]any{"entity_id": "42"}, logs.All()[1].ContextMap())
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(nil, Config{Level: "loud"})
	assert.Error(t, err)

	log, err := New(nil, Config{Level: "debug", Format: "console", Debug: true})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}
