package dashboard

import (
	"context"
	"maps"
)

// Telemetry records dashboard events: widget mutations, filter and
// preference writes, provider failures and cache purges.
type Telemetry interface {
	Record(ctx context.Context, event string, payload map[string]any)
}

// TelemetryFunc adapts a function to Telemetry.
type TelemetryFunc func(ctx context.Context, event string, payload map[string]any)

// Record calls f.
func (f TelemetryFunc) Record(ctx context.Context, event string, payload map[string]any) {
	f(ctx, event, payload)
}

// NopTelemetry discards every event.
var NopTelemetry Telemetry = TelemetryFunc(func(context.Context, string, map[string]any) {})

// ViewerPayload copies fields and stamps them with the viewer's user id and
// preference namespace.
func ViewerPayload(viewer ViewerContext, fields map[string]any) map[string]any {
	payload := make(map[string]any, len(fields)+2)
	maps.Copy(payload, fields)
	payload["user_id"] = viewer.UserID
	payload["viewer"] = viewerNamespace(viewer)
	return payload
}

func normalizeTelemetry(t Telemetry) Telemetry {
	if t == nil {
		return NopTelemetry
	}
	return t
}
