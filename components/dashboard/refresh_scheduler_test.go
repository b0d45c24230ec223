package dashboard

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanHook struct {
	events chan WidgetEvent
}

func (h chanHook) WidgetUpdated(_ context.Context, event WidgetEvent) error {
	select {
	case h.events <- event:
	default:
	}
	return nil
}

type countingPurger struct {
	calls atomic.Int32
}

func (p *countingPurger) Purge() int {
	p.calls.Add(1)
	return 0
}

func TestRefreshSchedulerTick(t *testing.T) {
	hook := &collectingHook{}
	scheduler := NewRefreshScheduler(RefreshSchedulerOptions{Hook: hook, Areas: []string{AreaCharts, AreaTiles}})
	scheduler.Tick(context.Background())

	require.Len(t, hook.all, 2)
	assert.Equal(t, WidgetEvent{AreaCode: AreaCharts, Reason: "tick"}, hook.all[0])
	assert.Equal(t, AreaTiles, hook.all[1].AreaCode)
}

func TestRefreshSchedulerTickRecordsErrors(t *testing.T) {
	telemetry := &recordingTelemetry{}
	scheduler := NewRefreshScheduler(RefreshSchedulerOptions{
		Hook:      failingHook{err: errors.New("down")},
		Telemetry: telemetry,
	})
	scheduler.Tick(context.Background())
	assert.Equal(t, []string{"dashboard.refresh.error"}, telemetry.events)
}

func TestRefreshSchedulerStartStop(t *testing.T) {
	hook := chanHook{events: make(chan WidgetEvent, 16)}
	purger := &countingPurger{}
	scheduler := NewRefreshScheduler(RefreshSchedulerOptions{
		Hook:          hook,
		Interval:      20 * time.Millisecond,
		Cache:         purger,
		PurgeInterval: 20 * time.Millisecond,
		Location:      time.UTC,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, scheduler.Start(ctx))
	assert.Error(t, scheduler.Start(ctx))

	select {
	case event := <-hook.events:
		assert.Equal(t, AreaCharts, event.AreaCode)
		assert.Equal(t, "tick", event.Reason)
	case <-time.After(2 * time.Second):
		t.Fatalf("expected a tick event")
	}
	require.Eventually(t, func() bool { return purger.calls.Load() > 0 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.Eventually(t, func() bool {
		scheduler.mu.Lock()
		defer scheduler.mu.Unlock()
		return !scheduler.running
	}, time.Second, 10*time.Millisecond)
	scheduler.Stop()
}
