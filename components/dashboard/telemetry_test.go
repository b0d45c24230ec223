package dashboard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestViewerPayloadStampsNamespace(t *testing.T) {
	fields := map[string]any{"campaign": "Amazon"}
	payload := ViewerPayload(ViewerContext{UserID: "maria"}, fields)
	assert.Equal(t, map[string]any{"campaign": "Amazon", "user_id": "maria", "viewer": "maria"}, payload)
	assert.Len(t, fields, 1)

	anonymous := ViewerPayload(ViewerContext{}, nil)
	assert.Equal(t, DefaultViewerID, anonymous["viewer"])
	assert.Equal(t, "", anonymous["user_id"])
}

func TestServiceRecordsFilterTelemetryWithViewer(t *testing.T) {
	var events []string
	var last map[string]any
	telemetry := TelemetryFunc(func(_ context.Context, event string, payload map[string]any) {
		events = append(events, event)
		last = payload
	})
	service := NewService(Options{WidgetStore: NewInMemoryWidgetStoreStub(), Telemetry: telemetry})
	ctx := context.Background()
	viewer := ViewerContext{UserID: "ivan"}

	assert.NoError(t, service.ResetFilters(ctx, viewer))
	assert.Equal(t, []string{"dashboard.filters.reset"}, events)
	assert.Equal(t, "ivan", last["viewer"])

	normalizeTelemetry(nil).Record(ctx, "ignored", nil)
}
