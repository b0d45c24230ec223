package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	router "github.com/goliatone/go-router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	core "github.com/goliatone/go-campaign-dashboard/components/dashboard"
	"github.com/goliatone/go-campaign-dashboard/components/dashboard/gorouter"
	"github.com/goliatone/go-campaign-dashboard/pkg/analytics"
	"github.com/goliatone/go-campaign-dashboard/pkg/config"
	pkgdashboard "github.com/goliatone/go-campaign-dashboard/pkg/dashboard"
	"github.com/goliatone/go-campaign-dashboard/pkg/observability"
)

const shutdownTimeout = 5 * time.Second

type serveCmd struct {
	Addr     string `help:"Listen address (overrides server.addr)."`
	Manifest string `type:"existingfile" help:"Widget manifest whose placements are seeded on start."`
}

func (cmd *serveCmd) Run(ctx context.Context, g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	if cmd.Addr != "" {
		cfg.Server.Addr = cmd.Addr
	}

	logger, err := observability.NewLogger(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	registry := prometheus.NewRegistry()
	telemetry := observability.Multi{observability.NewZapTelemetry(logger)}
	if cfg.Metrics.Enabled {
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		prom, err := observability.NewPrometheusTelemetry(registry)
		if err != nil {
			return err
		}
		telemetry = append(telemetry, prom)
	}

	opts, err := appOptions(ctx, cfg, telemetry)
	if err != nil {
		return err
	}
	if cmd.Manifest != "" {
		doc, err := core.ReadManifest(cmd.Manifest)
		if err != nil {
			return err
		}
		opts.Manifest = doc
	}
	app, err := pkgdashboard.New(ctx, opts)
	if err != nil {
		if closer, ok := opts.KeyValueStore.(interface{ Close() error }); ok {
			closer.Close()
		}
		return err
	}
	defer app.Close()
	if err := app.Start(ctx); err != nil {
		return err
	}

	server := router.NewFiberAdapter()
	if err := gorouter.Register(gorouter.Config[*fiber.App]{
		Router:     server.Router(),
		Controller: app.Controller,
		API:        app.Executor,
		Reader:     app.Reader,
		Broadcast:  app.Broadcast,
		BasePath:   cfg.Server.BasePath,
	}); err != nil {
		return err
	}

	errs := make(chan error, 2)
	var metrics *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		metrics = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs <- err
			}
		}()
		logger.Info("metrics listening", zap.String("addr", cfg.Metrics.Addr), zap.String("path", cfg.Metrics.Path))
	}
	go func() {
		errs <- server.Serve(cfg.Server.Addr)
	}()
	logger.Info("dashboard listening",
		zap.String("addr", cfg.Server.Addr),
		zap.String("dashboard", cfg.Server.BasePath+"/dashboard"),
		zap.String("storage", cfg.Storage.Driver),
	)

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if metrics != nil {
		_ = metrics.Shutdown(shutdownCtx)
	}
	if s, ok := any(server).(interface{ Shutdown(context.Context) error }); ok {
		return s.Shutdown(shutdownCtx)
	}
	return nil
}

// appOptions maps configuration onto the dashboard assembly.
func appOptions(ctx context.Context, cfg config.Config, telemetry core.Telemetry) (pkgdashboard.AppOptions, error) {
	opts := pkgdashboard.AppOptions{
		Telemetry:       telemetry,
		WeekStart:       cfg.WeekStart(),
		RefreshInterval: cfg.Refresh.Interval,
		PurgeInterval:   cfg.Cache.TTL,
		ChartOptions:    []core.ChartRendererOption{core.WithChartTheme(cfg.Charts.Theme)},
	}
	if cfg.Charts.AssetsHost != "" {
		opts.ChartOptions = append(opts.ChartOptions, core.WithChartAssetsHost(cfg.Charts.AssetsHost))
	}
	if cfg.Cache.SizeMB > 0 {
		opts.RenderCache = core.NewFreeCacheRenderCache(cfg.Cache.SizeMB, cfg.Cache.TTL, telemetry)
	} else {
		opts.RenderCache = core.NewChartCache(cfg.Cache.TTL)
	}
	switch {
	case cfg.Dataset.URL != "":
		client, err := analytics.NewHTTPClient(analytics.HTTPConfig{BaseURL: cfg.Dataset.URL, APIKey: cfg.Dataset.APIKey})
		if err != nil {
			return opts, err
		}
		opts.Dataset = client
	case cfg.Dataset.Path != "":
		opts.Dataset = core.FileDatasetSource{Path: cfg.Dataset.Path}
	}
	if cfg.Storage.Driver != config.DriverMemory {
		store, err := openStore(ctx, cfg, telemetry)
		if err != nil {
			return opts, err
		}
		opts.KeyValueStore = store
	}
	return opts, nil
}
