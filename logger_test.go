package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	auth "github.com/goliatone/go-classroom-auth"
)

func TestZapLogger_KeyValues(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := auth.NewZapLogger(zap.New(core)).Named("auth")

	logger.Info("login", "user_id", "u1", "role", "student")
	logger.Warn("revocation failed", "error", "redis down")
	logger.Debug("noise")
	logger.Error("boom")

	require.Equal(t, 4, logs.Len())

	entry := logs.All()[0]
	assert.Equal(t, "login", entry.Message)
	assert.Equal(t, "auth", entry.LoggerName)
	assert.Equal(t, map[string]any{"user_id": "u1", "role": "student"}, entry.ContextMap())

	assert.Equal(t, zapcore.WarnLevel, logs.All()[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[3].Level)
}

func TestZapLogger_NilIsNop(t *testing.T) {
	assert.NotPanics(t, func() {
		auth.NewZapLogger(nil).Info("dropped", "k", "v")
	})
}

func TestNewProductionLogger(t *testing.T) {
	l, err := auth.NewProductionLogger("debug")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = auth.NewProductionLogger("nonsense")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
}

func TestLoggerActivitySink(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sink := auth.LoggerActivitySink(auth.NewZapLogger(zap.New(core)))

	auth.RecordActivity(context.Background(), sink, nil, auth.ActivityEvent{
		EventType: auth.ActivityEventRoleSelected,
		Actor:     auth.ActorRef{Type: "user", ID: "u1"},
		UserID:    "u1",
		Metadata:  map[string]any{"role": "student"},
	})

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "auth.role.selected", fields["event"])
	assert.Equal(t, "u1", fields["user_id"])
	assert.Equal(t, "student", fields["role"])
}

func TestRecordActivity(t *testing.T) {
	var got auth.ActivityEvent
	sink := auth.ActivitySinkFunc(func(_ context.Context, evt auth.ActivityEvent) error {
		got = evt
		return nil
	})

	before := time.Now()
	auth.RecordActivity(context.Background(), sink, nopLogger{}, auth.ActivityEvent{EventType: auth.ActivityEventLogout})
	assert.NotNil(t, got.Metadata)
	assert.False(t, got.OccurredAt.Before(before))

	core, logs := observer.New(zapcore.WarnLevel)
	failing := auth.ActivitySinkFunc(func(context.Context, auth.ActivityEvent) error {
		return errors.New("sink down")
	})
	auth.RecordActivity(context.Background(), failing, auth.NewZapLogger(zap.New(core)), auth.ActivityEvent{})
	assert.Equal(t, 1, logs.Len())

	assert.NotPanics(t, func() {
		auth.RecordActivity(context.Background(), nil, nil, auth.ActivityEvent{})
		var nilFunc auth.ActivitySinkFunc
		auth.RecordActivity(context.Background(), nilFunc, nil, auth.ActivityEvent{})
	})
}
