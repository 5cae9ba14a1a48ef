package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func resetLogger(t *testing.T) {
	t.Helper()
	SetLogger(nil)
	once = sync.Once{}
	t.Cleanup(func() {
		SetLogger(nil)
		once = sync.Once{}
	})
}

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	resetLogger(t)
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	return logs
}

func TestGetLogger_NopBeforeInit(t *testing.T) {
	resetLogger(t)
	require.NotNil(t, GetLogger())
	Info(context.Background(), "dropped")
}

func TestInit_DevelopmentAndProduction(t *testing.T) {
	resetLogger(t)
	Init("development")
	require.NotNil(t, GetLogger())

	resetLogger(t)
	Init("production")
	require.NotNil(t, GetLogger())
	LogRequest(context.Background(), "GET", "/health", 200, time.Millisecond, "127.0.0.1")
}

func TestWithContext_RequestAndUserFields(t *testing.T) {
	logs := observe(t)

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, UserIDKey, "User101")
	Warn(ctx, "card sweep failed")

	entries := logs.FilterMessage("card sweep failed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "User101", fields["user_id"])
}

func TestWithContext_GinStyleKey(t *testing.T) {
	logs := observe(t)

	ctx := context.WithValue(context.Background(), "request_id", "gin-req")
	Error(ctx, "boom")
	Debug(nil, "no context")

	entries := logs.FilterMessage("boom").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "gin-req", entries[0].ContextMap()["request_id"])
	assert.Equal(t, 1, logs.FilterMessage("no context").Len())
}

func TestInit_PanicWhenLoggerBuildFails(t *testing.T) {
	resetLogger(t)
	origBuild := buildLogger
	t.Cleanup(func() { buildLogger = origBuild })

	buildLogger = func(zap.Config) (*zap.Logger, error) {
		return nil, errors.New("build failed")
	}

	assert.Panics(t, func() { Init("production") })
}
