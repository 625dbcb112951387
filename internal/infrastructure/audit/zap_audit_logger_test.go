package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/researchguru/authsvc/domain"
	"github.com/researchguru/authsvc/internal/logger"
)

func TestZapAuditLogger_LogEvent(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	reg := prometheus.NewRegistry()
	a, err := NewZapAuditLogger(zap.New(core), reg)
	require.NoError(t, err)

	ctx := logger.WithRequestID(context.Background(), "req-1")
	a.LogEvent(ctx, domain.NewAuditEvent(domain.UserLoginEvent, 7).WithEmail("ada@example.com"))
	a.LogEvent(ctx, domain.NewAuditEvent(domain.UserLoginFailureEvent, 7).WithError(domain.ErrInvalidCredentials))
	a.LogEvent(ctx, nil)

	entries := logs.All()
	require.Len(t, entries, 2)

	first := entries[0].ContextMap()
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "USER_LOGIN", first["event"])
	assert.Equal(t, uint64(7), first["account_id"])
	assert.Equal(t, "ada***@example.com", first["email"])
	assert.Equal(t, "req-1", first["request_id"])

	second := entries[1].ContextMap()
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "invalid credentials", second["error"])

	events := a.events
	assert.Equal(t, 1.0, testutil.ToFloat64(events.WithLabelValues("USER_LOGIN", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(events.WithLabelValues("USER_LOGIN_FAILED", "false")))
}

func TestNewZapAuditLogger_Registration(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewZapAuditLogger(nil, reg)
	require.NoError(t, err)
	second, err := NewZapAuditLogger(nil, reg)
	require.NoError(t, err)
	assert.Same(t, first.events, second.events)

	noMetrics, err := NewZapAuditLogger(nil, nil)
	require.NoError(t, err)
	noMetrics.LogEvent(context.Background(), domain.NewAuditEvent(domain.UserLogoutEvent, 1).WithError(errors.New("x")))
	assert.Nil(t, noMetrics.events)
}
