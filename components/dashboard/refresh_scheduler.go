package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

const (
	defaultTickInterval  = 30 * time.Second
	defaultPurgeInterval = 5 * time.Minute
)

// Purger drops expired render cache entries.
type Purger interface {
	Purge() int
}

// RefreshSchedulerOptions configures periodic refresh events.
type RefreshSchedulerOptions struct {
	Hook          RefreshHook
	Areas         []string
	Interval      time.Duration
	Cache         Purger
	PurgeInterval time.Duration
	Telemetry     Telemetry
	Location      *time.Location
}

// RefreshScheduler emits "tick" events for live areas and purges the chart
// cache on a fixed cadence.
type RefreshScheduler struct {
	mu        sync.Mutex
	scheduler *gocron.Scheduler
	opts      RefreshSchedulerOptions
	running   bool
}

// NewRefreshScheduler builds a scheduler; the charts area ticks by default.
func NewRefreshScheduler(opts RefreshSchedulerOptions) *RefreshScheduler {
	if opts.Hook == nil {
		opts.Hook = noopRefreshHook{}
	}
	if len(opts.Areas) == 0 {
		opts.Areas = []string{AreaCharts}
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultTickInterval
	}
	if opts.PurgeInterval <= 0 {
		opts.PurgeInterval = defaultPurgeInterval
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	return &RefreshScheduler{
		scheduler: gocron.NewScheduler(opts.Location),
		opts:      opts,
	}
}

// Start schedules the jobs and stops them when ctx is done.
func (s *RefreshScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("dashboard: refresh scheduler already running")
	}
	s.scheduler.SingletonModeAll()
	if _, err := s.scheduler.Every(s.opts.Interval).Do(func() { s.Tick(ctx) }); err != nil {
		return err
	}
	if s.opts.Cache != nil {
		if _, err := s.scheduler.Every(s.opts.PurgeInterval).Do(s.purge, ctx); err != nil {
			s.scheduler.Clear()
			return err
		}
	}
	s.scheduler.StartAsync()
	s.running = true
	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop halts the scheduler. It is safe to call more than once.
func (s *RefreshScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.scheduler.Stop()
	s.scheduler.Clear()
	s.running = false
}

// Tick emits one refresh event per configured area.
func (s *RefreshScheduler) Tick(ctx context.Context) {
	for _, area := range s.opts.Areas {
		if err := s.opts.Hook.WidgetUpdated(ctx, WidgetEvent{AreaCode: area, Reason: "tick"}); err != nil {
			s.opts.Telemetry.Record(ctx, "dashboard.refresh.error", map[string]any{
				"area_code": area,
				"error":     err.Error(),
			})
		}
	}
}

func (s *RefreshScheduler) purge(ctx context.Context) {
	removed := s.opts.Cache.Purge()
	s.opts.Telemetry.Record(ctx, "dashboard.render_cache.purge", map[string]any{"removed": removed})
}
