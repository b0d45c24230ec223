package commands

import (
	"context"

	dashboard "github.com/goliatone/go-campaign-dashboard/components/dashboard"
)

// Telemetry is the sink commands report executed actions to.
type Telemetry = dashboard.Telemetry

func normalizeTelemetry(t Telemetry) Telemetry {
	if t == nil {
		return dashboard.NopTelemetry
	}
	return t
}

func recordViewer(ctx context.Context, t Telemetry, event string, viewer dashboard.ViewerContext, fields map[string]any) {
	t.Record(ctx, event, dashboard.ViewerPayload(viewer, fields))
}
