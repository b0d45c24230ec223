package dashboard

import (
	"context"
	"errors"
	"time"
)

// CampaignProviderOptions wires the campaign widget providers to their data.
type CampaignProviderOptions struct {
	Dataset     DatasetSource
	Preferences *Preferences
	Charts      *ChartRenderer
	Clock       func() time.Time
	WeekStart   time.Weekday
}

type filtersConfig struct {
	ShowDatePresets bool `mapstructure:"show_date_presets"`
}

type tilesConfig struct {
	Compare bool `mapstructure:"compare"`
}

type chartConfig struct {
	Height  string   `mapstructure:"height"`
	Theme   string   `mapstructure:"theme"`
	Metrics []string `mapstructure:"metrics"`
}

type gridConfig struct {
	PageSize int `mapstructure:"page_size"`
}

type campaignProviders struct {
	dataset   DatasetSource
	prefs     *Preferences
	charts    *ChartRenderer
	now       func() time.Time
	weekStart time.Weekday
}

// CampaignProviders returns the providers for every campaign widget keyed by
// definition code.
func CampaignProviders(opts CampaignProviderOptions) map[string]Provider {
	if opts.Dataset == nil {
		opts.Dataset = StaticDatasetSource{Data: DefaultDataset(time.Now())}
	}
	if opts.Preferences == nil {
		opts.Preferences = NewPreferences(PreferencesOptions{})
	}
	if opts.Charts == nil {
		opts.Charts = NewChartRenderer()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	p := &campaignProviders{
		dataset:   opts.Dataset,
		prefs:     opts.Preferences,
		charts:    opts.Charts,
		now:       opts.Clock,
		weekStart: opts.WeekStart,
	}
	return map[string]Provider{
		WidgetFilters:          ProviderFunc(p.filters),
		WidgetMetricTiles:      ProviderFunc(p.tiles),
		WidgetUnifiedChart:     ProviderFunc(p.unifiedChart),
		WidgetPerformanceChart: ProviderFunc(p.performanceChart),
		WidgetEngagementChart:  ProviderFunc(p.engagementChart),
		WidgetDetailsGrid:      ProviderFunc(p.detailsGrid),
		WidgetContentGrid:      ProviderFunc(p.contentGrid),
		WidgetSummary:          ProviderFunc(p.summary),
	}
}

func (p *campaignProviders) filters(ctx context.Context, meta WidgetContext) (WidgetData, error) {
	ds, err := p.dataset.Load(ctx)
	if err != nil {
		return nil, err
	}
	cfg := filtersConfig{ShowDatePresets: true}
	if err := DecodeConfig(meta.Instance.Configuration, &cfg); err != nil {
		return nil, err
	}
	locale := meta.Viewer.Locale
	options := BuildFilterOptions(ds, p.now(), p.weekStart)
	if !cfg.ShowDatePresets {
		options.DatePresets = nil
	}
	for i, preset := range options.DatePresets {
		options.DatePresets[i].Label = translateOrFallback(ctx, meta.Translator, datePresetLabelKey+string(preset.Key), locale, preset.Label, nil)
	}
	fallback := translateOrFallback(ctx, meta.Translator, "dashboard.filters.period_fallback", locale, summaryPeriodFallback, nil)
	return WidgetData{
		"options":  options,
		"selected": meta.Filters,
		"period":   FormatPeriod(meta.Filters.DateRange, fallback),
	}, nil
}

func (p *campaignProviders) tiles(ctx context.Context, meta WidgetContext) (WidgetData, error) {
	ds, err := p.dataset.Load(ctx)
	if err != nil {
		return nil, err
	}
	cfg := tilesConfig{Compare: true}
	if err := DecodeConfig(meta.Instance.Configuration, &cfg); err != nil {
		return nil, err
	}
	layout := p.prefs.TileLayout(ctx, meta.Viewer)
	tiles := BuildTiles(ds.Current, ds.Previous, layout)
	for i := range tiles {
		tiles[i].Title = translateOrFallback(ctx, meta.Translator, metricLabelKey+tiles[i].Key, meta.Viewer.Locale, tiles[i].Key, nil)
		if !cfg.Compare {
			tiles[i].Diff, tiles[i].Direction, tiles[i].Arrow, tiles[i].Color = "", "", "", ""
		}
	}
	return WidgetData{
		"tiles":   tiles,
		"layout":  layout,
		"metrics": AllMetrics(ds.Current),
		"presets": p.prefs.TilePresets(ctx, meta.Viewer),
	}, nil
}

func (p *campaignProviders) unifiedChart(ctx context.Context, meta WidgetContext) (WidgetData, error) {
	cfg := chartConfig{}
	if err := DecodeConfig(meta.Instance.Configuration, &cfg); err != nil {
		return nil, err
	}
	collapsed := p.prefs.Flag(ctx, meta.Viewer, PrefChartsCollapsed)
	labels := meta.Filters.DateRange.DailyLabels(p.now())
	renderer := p.charts.With(WithChartTheme(cfg.Theme), WithChartHeight(cfg.Height))

	set := p.prefs.Charts(ctx, meta.Viewer)
	entries := make([]map[string]any, 0, len(set))
	for _, entry := range set {
		data := UnifiedChart(entry.ID, entry.Checks, labels)
		item := map[string]any{
			"id":        entry.ID,
			"title":     data.Title,
			"checks":    entry.Checks,
			"axes":      data.Axes,
			"removable": entry.ID != MainChartID,
		}
		if !collapsed {
			html, err := renderer.Render(data)
			if err != nil {
				return nil, err
			}
			item["chart_html"] = html
		}
		entries = append(entries, item)
	}
	return WidgetData{
		"charts":    entries,
		"collapsed": collapsed,
		"labels":    labels,
	}, nil
}

func (p *campaignProviders) performanceChart(ctx context.Context, meta WidgetContext) (WidgetData, error) {
	ds, err := p.dataset.Load(ctx)
	if err != nil {
		return nil, err
	}
	return p.legacyChart(meta, func(id string, checks ChartChecks, labels []string) ChartData {
		return PerformanceChart(id, checks, ds.Current, labels)
	}, "performance")
}

func (p *campaignProviders) engagementChart(_ context.Context, meta WidgetContext) (WidgetData, error) {
	return p.legacyChart(meta, EngagementChart, "engagement")
}

func (p *campaignProviders) legacyChart(meta WidgetContext, build func(string, ChartChecks, []string) ChartData, prefix string) (WidgetData, error) {
	cfg := chartConfig{}
	if err := DecodeConfig(meta.Instance.Configuration, &cfg); err != nil {
		return nil, err
	}
	checks, err := checksFromMetrics(cfg.Metrics)
	if err != nil {
		return nil, err
	}
	id := prefix
	if meta.Instance.ID != "" {
		id = prefix + "-" + meta.Instance.ID
	}
	data := build(id, checks, meta.Filters.DateRange.DailyLabels(p.now()))
	html, err := p.charts.With(WithChartTheme(cfg.Theme), WithChartHeight(cfg.Height)).Render(data)
	if err != nil {
		return nil, err
	}
	return WidgetData{
		"chart_html": html,
		"title":      data.Title,
		"checks":     checks,
		"axes":       data.Axes,
	}, nil
}

// checksFromMetrics enables the listed metrics; an empty list selects None.
func checksFromMetrics(metrics []string) (ChartChecks, error) {
	if len(metrics) == 0 {
		return ChartChecks{None: true}, nil
	}
	checks := ChartChecks{}
	var errs error
	for _, m := range metrics {
		next, err := checks.Toggle(ChartMetric(m), true)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		checks = next
	}
	return checks, errs
}

func (p *campaignProviders) detailsGrid(ctx context.Context, meta WidgetContext) (WidgetData, error) {
	ds, err := p.dataset.Load(ctx)
	if err != nil {
		return nil, err
	}
	cfg := gridConfig{PageSize: DefaultPageSize}
	if err := DecodeConfig(meta.Instance.Configuration, &cfg); err != nil {
		return nil, err
	}
	mode := p.prefs.ViewMode(ctx, meta.Viewer)
	layout := p.prefs.ColumnLayout(ctx, meta.Viewer, TableDetails)
	return WidgetData{
		"grid":            BuildDetailGrid(ds.DetailRows, meta.Filters, mode, layout, 1, cfg.PageSize),
		"visible":         p.prefs.Flag(ctx, meta.Viewer, PrefDetailsVisible),
		"presets":         p.prefs.TablePresets(ctx, meta.Viewer, TableDetails).Sorted(),
		"selected_preset": layout.Selected,
		"view_mode":       mode,
	}, nil
}

func (p *campaignProviders) contentGrid(ctx context.Context, meta WidgetContext) (WidgetData, error) {
	ds, err := p.dataset.Load(ctx)
	if err != nil {
		return nil, err
	}
	cfg := gridConfig{PageSize: DefaultPageSize}
	if err := DecodeConfig(meta.Instance.Configuration, &cfg); err != nil {
		return nil, err
	}
	layout := p.prefs.ColumnLayout(ctx, meta.Viewer, TableContent)
	return WidgetData{
		"grid":            BuildContentGrid(ds.ContentRows, meta.Filters, layout, 1, cfg.PageSize),
		"collapsed":       p.prefs.Flag(ctx, meta.Viewer, PrefContentCollapsed),
		"presets":         p.prefs.TablePresets(ctx, meta.Viewer, TableContent).Sorted(),
		"selected_preset": layout.Selected,
	}, nil
}

func (p *campaignProviders) summary(ctx context.Context, meta WidgetContext) (WidgetData, error) {
	ds, err := p.dataset.Load(ctx)
	if err != nil {
		return nil, err
	}
	locale := meta.Viewer.Locale
	summary := BuildSummary(ds.Current, meta.Filters.DateRange)
	if meta.Filters.DateRange == nil {
		summary.Period = translateOrFallback(ctx, meta.Translator, "dashboard.summary.period_fallback", locale, summaryPeriodFallback, nil)
	}
	return WidgetData{
		"title":   translateOrFallback(ctx, meta.Translator, "dashboard.summary.title", locale, "Summary", nil),
		"summary": summary,
		"open":    p.prefs.Flag(ctx, meta.Viewer, PrefSummaryOpen),
	}, nil
}
