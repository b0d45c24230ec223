package dashboard

import (
	"context"
	"errors"
)

// MultiRefreshHook forwards every event to each hook in order and joins the
// errors.
type MultiRefreshHook []RefreshHook

// WidgetUpdated satisfies RefreshHook.
func (m MultiRefreshHook) WidgetUpdated(ctx context.Context, event WidgetEvent) error {
	var err error
	for _, hook := range m {
		if hook == nil {
			continue
		}
		err = errors.Join(err, hook.WidgetUpdated(ctx, event))
	}
	return err
}

// EventPublisher is the minimal surface of an external event bus.
type EventPublisher interface {
	PublishDashboardEvent(ctx context.Context, event WidgetEvent) error
}

// PublisherHook forwards widget events to an external publisher.
type PublisherHook struct {
	Publisher EventPublisher
}

// WidgetUpdated publishes events to the configured publisher.
func (h *PublisherHook) WidgetUpdated(ctx context.Context, event WidgetEvent) error {
	if h == nil || h.Publisher == nil {
		return nil
	}
	return h.Publisher.PublishDashboardEvent(ctx, event)
}

// BridgeStorageEvents relays writes observed by notifier (for example another
// process editing the same preference files) to hook as "storage" events.
// The returned func stops the relay.
func BridgeStorageEvents(ctx context.Context, notifier StorageNotifier, hook RefreshHook, telemetry Telemetry) func() {
	if notifier == nil || hook == nil {
		return func() {}
	}
	telemetry = normalizeTelemetry(telemetry)
	return notifier.Watch(func(ev StorageEvent) {
		err := hook.WidgetUpdated(ctx, WidgetEvent{
			Reason:   "storage",
			ViewerID: ev.Namespace,
			Key:      ev.Key,
		})
		if err != nil {
			telemetry.Record(ctx, "dashboard.preferences.bridge_error", map[string]any{
				"namespace": ev.Namespace,
				"key":       ev.Key,
				"error":     err.Error(),
			})
		}
	})
}
