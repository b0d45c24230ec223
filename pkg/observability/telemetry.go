// Package observability turns dashboard telemetry events into zap log lines
// and Prometheus counters.
package observability

import (
	"context"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/goliatone/go-campaign-dashboard/components/dashboard"
)

var _ dashboard.Telemetry = (*ZapTelemetry)(nil)

// NewLogger builds a zap logger. Unknown levels fall back to info.
func NewLogger(level string, development bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if development {
		config = zap.NewDevelopmentConfig()
	}
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(lvl)
	return config.Build()
}

// ZapTelemetry writes every event as a structured log entry. Events whose
// name ends in "_error" are logged at warn level.
type ZapTelemetry struct {
	logger *zap.Logger
}

// NewZapTelemetry wraps logger; a nil logger discards events.
func NewZapTelemetry(logger *zap.Logger) *ZapTelemetry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapTelemetry{logger: logger}
}

func (t *ZapTelemetry) Record(_ context.Context, event string, payload map[string]any) {
	fields := make([]zap.Field, 0, len(payload))
	for _, key := range sortedKeys(payload) {
		fields = append(fields, zap.Any(key, payload[key]))
	}
	if strings.HasSuffix(event, "_error") {
		t.logger.Warn(event, fields...)
		return
	}
	t.logger.Info(event, fields...)
}

// PrometheusTelemetry counts events by name.
type PrometheusTelemetry struct {
	events *prometheus.CounterVec
}

// NewPrometheusTelemetry registers the event counter on reg.
func NewPrometheusTelemetry(reg prometheus.Registerer) (*PrometheusTelemetry, error) {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "campaign_dashboard_events_total",
		Help: "Dashboard telemetry events by name",
	}, []string{"event"})
	if reg != nil {
		if err := reg.Register(events); err != nil {
			return nil, err
		}
	}
	return &PrometheusTelemetry{events: events}, nil
}

func (t *PrometheusTelemetry) Record(_ context.Context, event string, _ map[string]any) {
	t.events.WithLabelValues(event).Inc()
}

// Counter exposes the underlying vector for tests and custom collectors.
func (t *PrometheusTelemetry) Counter() *prometheus.CounterVec {
	return t.events
}

// Multi fans events out to every non-nil sink.
type Multi []dashboard.Telemetry

func (m Multi) Record(ctx context.Context, event string, payload map[string]any) {
	for _, sink := range m {
		if sink != nil {
			sink.Record(ctx, event, payload)
		}
	}
}

func sortedKeys(payload map[string]any) []string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
