// Package dashboard assembles a ready-to-serve campaign dashboard from the
// components/dashboard building blocks.
package dashboard

import (
	"context"
	"time"

	core "github.com/goliatone/go-campaign-dashboard/components/dashboard"
	"github.com/goliatone/go-campaign-dashboard/components/dashboard/commands"
	"github.com/goliatone/go-campaign-dashboard/components/dashboard/httpapi"
)

// Service exposes the underlying components/dashboard.Service type.
type Service = core.Service

// Options re-export for convenience.
type Options = core.Options

// NewService proxies to the internal constructor.
func NewService(opts Options) *Service {
	return core.NewService(opts)
}

// AppOptions configures New. Zero values select in-memory defaults.
type AppOptions struct {
	KeyValueStore   core.KeyValueStore
	Dataset         core.DatasetSource
	Telemetry       core.Telemetry
	Clock           func() time.Time
	WeekStart       time.Weekday
	RenderCache     core.RenderCache
	ChartOptions    []core.ChartRendererOption
	Renderer        core.Renderer
	Manifest        *core.WidgetManifestDocument
	RefreshInterval time.Duration
	PurgeInterval   time.Duration
	// Publisher receives every widget event next to the broadcast subscribers.
	Publisher core.EventPublisher
}

// App is a seeded dashboard with its transport adapters.
type App struct {
	Service     *core.Service
	Registry    *core.Registry
	Store       *core.MemoryWidgetStore
	Preferences *core.Preferences
	Broadcast   *core.BroadcastHook
	Controller  *core.Controller
	Executor    *httpapi.CommandExecutor
	Reader      *httpapi.QueryReader
	Scheduler   *core.RefreshScheduler

	kv        core.KeyValueStore
	telemetry core.Telemetry
	stops     []func()
}

// New wires stores, providers and the service, then seeds the default layout
// plus any manifest placements.
func New(ctx context.Context, opts AppOptions) (*App, error) {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.KeyValueStore == nil {
		opts.KeyValueStore = core.NewInMemoryKeyValueStore()
	}
	if opts.Dataset == nil {
		opts.Dataset = core.StaticDatasetSource{Data: core.DefaultDataset(opts.Clock())}
	}
	if opts.RenderCache == nil {
		opts.RenderCache = core.NewChartCache(5 * time.Minute)
	}
	renderer := opts.Renderer
	if renderer == nil {
		r, err := core.NewTemplateRenderer()
		if err != nil {
			return nil, err
		}
		renderer = r
	}

	hook := core.NewBroadcastHook()
	var refresh core.RefreshHook = hook
	if opts.Publisher != nil {
		refresh = core.MultiRefreshHook{hook, &core.PublisherHook{Publisher: opts.Publisher}}
	}
	prefs := core.NewPreferences(core.PreferencesOptions{
		Store:       opts.KeyValueStore,
		RefreshHook: refresh,
		Telemetry:   opts.Telemetry,
		Clock:       opts.Clock,
	})
	charts := core.NewChartRenderer(append([]core.ChartRendererOption{core.WithRenderCache(opts.RenderCache)}, opts.ChartOptions...)...)

	registry := core.NewRegistry()
	if err := registry.RegisterProviders(core.CampaignProviders(core.CampaignProviderOptions{
		Dataset:     opts.Dataset,
		Preferences: prefs,
		Charts:      charts,
		Clock:       opts.Clock,
		WeekStart:   opts.WeekStart,
	})); err != nil {
		return nil, err
	}
	if opts.Manifest != nil {
		if err := registry.LoadManifestDocument(opts.Manifest); err != nil {
			return nil, err
		}
	}
	if missing := registry.Unattached(); len(missing) > 0 && opts.Telemetry != nil {
		opts.Telemetry.Record(ctx, "dashboard.providers_missing", map[string]any{"codes": missing})
	}

	store := core.NewMemoryWidgetStore()
	service := core.NewService(core.Options{
		WidgetStore:     store,
		PreferenceStore: core.NewKVPreferenceStore(opts.KeyValueStore, opts.Telemetry),
		Providers:       registry,
		RefreshHook:     refresh,
		Telemetry:       opts.Telemetry,
		Preferences:     prefs,
		Dataset:         opts.Dataset,
		Clock:           opts.Clock,
		WeekStart:       opts.WeekStart,
	})

	seed := commands.NewSeedDashboardCommand(store, registry, service, opts.Telemetry)
	if err := seed.Execute(ctx, commands.SeedDashboardInput{SeedLayout: true, Manifest: opts.Manifest}); err != nil {
		return nil, err
	}

	app := &App{
		Service:     service,
		Registry:    registry,
		Store:       store,
		Preferences: prefs,
		Broadcast:   hook,
		Controller: core.NewController(core.ControllerOptions{
			Service:  service,
			Renderer: renderer,
		}),
		Executor:  httpapi.NewServiceExecutor(service, opts.Telemetry),
		Reader:    httpapi.NewServiceReader(service),
		kv:        opts.KeyValueStore,
		telemetry: opts.Telemetry,
	}
	if opts.RefreshInterval > 0 {
		purger, _ := opts.RenderCache.(core.Purger)
		app.Scheduler = core.NewRefreshScheduler(core.RefreshSchedulerOptions{
			Hook:          refresh,
			Interval:      opts.RefreshInterval,
			Cache:         purger,
			PurgeInterval: opts.PurgeInterval,
			Telemetry:     opts.Telemetry,
		})
	}
	return app, nil
}

// Start launches the refresh scheduler and relays external preference writes
// to subscribers. Both stop when ctx ends or Close is called.
func (a *App) Start(ctx context.Context) error {
	if notifier, ok := a.kv.(core.StorageNotifier); ok {
		a.stops = append(a.stops, core.BridgeStorageEvents(ctx, notifier, a.Broadcast, a.telemetry))
	}
	if a.Scheduler != nil {
		if err := a.Scheduler.Start(ctx); err != nil {
			return err
		}
		a.stops = append(a.stops, a.Scheduler.Stop)
	}
	return nil
}

// Close stops background work, disconnects subscribers and closes the
// preference store when it holds resources.
func (a *App) Close() error {
	for i := len(a.stops) - 1; i >= 0; i-- {
		a.stops[i]()
	}
	a.stops = nil
	a.Broadcast.Close()
	if closer, ok := a.kv.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
