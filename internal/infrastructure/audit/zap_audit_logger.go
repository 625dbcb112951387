// Package audit writes account audit events to the structured log.
package audit

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/researchguru/authsvc/domain"
	"github.com/researchguru/authsvc/internal/logger"
)

// ZapAuditLogger implements domain.AuditLogger on top of zap. Emails are
// masked; the request id is taken from the context.
type ZapAuditLogger struct {
	logger *zap.Logger
	events *prometheus.CounterVec
}

// NewZapAuditLogger creates a new audit logger. A nil registerer skips the
// events counter.
func NewZapAuditLogger(log *zap.Logger, reg prometheus.Registerer) (*ZapAuditLogger, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &ZapAuditLogger{logger: log.Named("audit")}
	if reg == nil {
		return a, nil
	}

	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "authsvc",
		Name:      "audit_events_total",
		Help:      "Total number of account audit events",
	}, []string{"event", "success"})
	if err := reg.Register(events); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			events = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	a.events = events
	return a, nil
}

// LogEvent implements domain.AuditLogger
func (a *ZapAuditLogger) LogEvent(ctx context.Context, event *domain.AuditEvent) {
	if event == nil {
		return
	}

	fields := []zap.Field{
		zap.String("event", string(event.EventType)),
		zap.Bool("success", event.Success),
		zap.Time("timestamp", event.Timestamp),
	}
	if event.AccountID != 0 {
		fields = append(fields, zap.Uint("account_id", event.AccountID))
	}
	if event.Email != "" {
		fields = append(fields, zap.String("email", logger.MaskEmail(event.Email)))
	}
	if event.ErrorMsg != "" {
		fields = append(fields, zap.String("error", event.ErrorMsg))
	}
	if len(event.Metadata) > 0 {
		fields = append(fields, zap.Any("metadata", event.Metadata))
	}

	log := logger.WithContext(ctx, a.logger)
	if event.Success {
		log.Info("audit event", fields...)
	} else {
		log.Warn("audit event", fields...)
	}

	if a.events != nil {
		a.events.WithLabelValues(string(event.EventType), strconv.FormatBool(event.Success)).Inc()
	}
}

var _ domain.AuditLogger = (*ZapAuditLogger)(nil)
