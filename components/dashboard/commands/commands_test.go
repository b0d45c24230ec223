package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dashboard "github.com/goliatone/go-campaign-dashboard/components/dashboard"
)

func TestSeedDashboardCommand(t *testing.T) {
	store := newStubStore()
	reg := &stubRegistry{}
	service := dashboard.NewService(dashboard.Options{WidgetStore: store})
	telemetry := &stubTelemetry{}
	cmd := NewSeedDashboardCommand(store, reg, service, telemetry)
	if err := cmd.Execute(context.Background(), SeedDashboardInput{SeedLayout: true}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if store.ensureAreaCalls != len(dashboard.DefaultAreaDefinitions()) {
		t.Fatalf("expected %d areas, got %d", len(dashboard.DefaultAreaDefinitions()), store.ensureAreaCalls)
	}
	if reg.count != len(dashboard.DefaultWidgetDefinitions()) {
		t.Fatalf("expected registry count %d, got %d", len(dashboard.DefaultWidgetDefinitions()), reg.count)
	}
	if store.assignCalls != len(dashboard.DefaultSeedWidgets()) {
		t.Fatalf("expected %d assign calls, got %d", len(dashboard.DefaultSeedWidgets()), store.assignCalls)
	}
	if telemetry.calls == 0 {
		t.Fatalf("expected telemetry to record events")
	}
}

func TestSeedDashboardCommandSeedsManifestPlacements(t *testing.T) {
	store := newStubStore()
	service := dashboard.NewService(dashboard.Options{WidgetStore: store})
	cmd := NewSeedDashboardCommand(store, nil, service, nil)
	manifest := &dashboard.WidgetManifestDocument{
		Widgets: []dashboard.ManifestWidget{{
			Definition: dashboard.WidgetDefinition{Code: dashboard.WidgetPerformanceChart},
			Placements: []dashboard.ManifestPlacement{{Area: dashboard.AreaCharts}},
		}},
	}
	err := cmd.Execute(context.Background(), SeedDashboardInput{Manifest: manifest})
	require.NoError(t, err)
	assert.Equal(t, 1, store.assignCalls)
}

func TestSeedDashboardCommandRequiresStore(t *testing.T) {
	cmd := NewSeedDashboardCommand(nil, nil, nil, nil)
	if err := cmd.Execute(context.Background(), SeedDashboardInput{}); err == nil {
		t.Fatalf("expected error without a store")
	}
}

func TestAssignWidgetCommand(t *testing.T) {
	service := &stubService{}
	telemetry := &stubTelemetry{}
	cmd := NewAssignWidgetCommand(service, telemetry)
	req := dashboard.AddWidgetRequest{DefinitionID: dashboard.WidgetSummary, AreaCode: dashboard.AreaSidebar}
	if err := cmd.Execute(context.Background(), req); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if service.addCalls != 1 {
		t.Fatalf("expected add call")
	}
	if telemetry.last != "dashboard.widget.assign" {
		t.Fatalf("unexpected telemetry event %q", telemetry.last)
	}
}

func TestRemoveWidgetCommand(t *testing.T) {
	service := &stubService{}
	cmd := NewRemoveWidgetCommand(service, nil)
	if err := cmd.Execute(context.Background(), RemoveWidgetInput{WidgetID: "widget-1"}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if service.removeCalls != 1 {
		t.Fatalf("expected remove call")
	}
	if err := cmd.Execute(context.Background(), RemoveWidgetInput{}); err == nil {
		t.Fatalf("expected error for empty widget id")
	}
	if service.removeCalls != 1 {
		t.Fatalf("empty id must not reach the service")
	}
}

func TestUpdateWidgetCommand(t *testing.T) {
	service := &stubService{}
	cmd := NewUpdateWidgetCommand(service, nil)
	input := UpdateWidgetInput{WidgetID: "widget-1", Configuration: map[string]any{"height": "240px"}}
	require.NoError(t, cmd.Execute(context.Background(), input))
	assert.Equal(t, "widget-1", service.lastUpdate.WidgetID)
	assert.Equal(t, "240px", service.lastUpdate.Configuration["height"])

	assert.Error(t, cmd.Execute(context.Background(), UpdateWidgetInput{}))
}

func TestReorderWidgetsCommand(t *testing.T) {
	service := &stubService{}
	cmd := NewReorderWidgetsCommand(service, nil)
	if err := cmd.Execute(context.Background(), ReorderWidgetsInput{
		AreaCode:  dashboard.AreaGrids,
		WidgetIDs: []string{"w1", "w2"},
	}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if service.reorderCalls != 1 {
		t.Fatalf("expected reorder call")
	}
}

func TestRefreshWidgetCommand(t *testing.T) {
	service := &stubService{}
	cmd := NewRefreshWidgetCommand(service, nil)
	event := dashboard.WidgetEvent{AreaCode: dashboard.AreaCharts}
	if err := cmd.Execute(context.Background(), RefreshWidgetInput{Event: event}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if service.refreshCalls != 1 {
		t.Fatalf("expected refresh call")
	}
}

func TestWidgetCommandsRejectInvalidInput(t *testing.T) {
	ctx := context.Background()
	service := &stubService{}
	checks := map[string]error{
		"assign unknown area": NewAssignWidgetCommand(service, nil).Execute(ctx,
			dashboard.AddWidgetRequest{DefinitionID: dashboard.WidgetSummary, AreaCode: "admin.dashboard.main"}),
		"assign without definition": NewAssignWidgetCommand(service, nil).Execute(ctx,
			dashboard.AddWidgetRequest{AreaCode: dashboard.AreaSidebar}),
		"reorder duplicates": NewReorderWidgetsCommand(service, nil).Execute(ctx,
			ReorderWidgetsInput{AreaCode: dashboard.AreaGrids, WidgetIDs: []string{"w1", "w1"}}),
		"update without id": NewUpdateWidgetCommand(service, nil).Execute(ctx, UpdateWidgetInput{}),
	}
	for name, err := range checks {
		if !dashboard.IsInvalidInput(err) {
			t.Fatalf("%s: expected invalid input, got %v", name, err)
		}
	}
	assert.Zero(t, service.addCalls)
	assert.Zero(t, service.reorderCalls)
}

func TestRefreshWidgetCommandDefaultsReason(t *testing.T) {
	service := &stubService{}
	cmd := NewRefreshWidgetCommand(service, nil)
	require.NoError(t, cmd.Execute(context.Background(), RefreshWidgetInput{}))
	assert.Equal(t, "manual", service.lastEvent.Reason)

	require.NoError(t, cmd.Execute(context.Background(), RefreshWidgetInput{Event: dashboard.WidgetEvent{Reason: "tick"}}))
	assert.Equal(t, "tick", service.lastEvent.Reason)
}

func TestCommandsRequireService(t *testing.T) {
	ctx := context.Background()
	checks := []struct {
		name string
		run  func() error
	}{
		{"assign", func() error { return NewAssignWidgetCommand(nil, nil).Execute(ctx, dashboard.AddWidgetRequest{}) }},
		{"remove", func() error { return NewRemoveWidgetCommand(nil, nil).Execute(ctx, RemoveWidgetInput{WidgetID: "w"}) }},
		{"update", func() error { return NewUpdateWidgetCommand(nil, nil).Execute(ctx, UpdateWidgetInput{WidgetID: "w"}) }},
		{"reorder", func() error { return NewReorderWidgetsCommand(nil, nil).Execute(ctx, ReorderWidgetsInput{}) }},
		{"refresh", func() error { return NewRefreshWidgetCommand(nil, nil).Execute(ctx, RefreshWidgetInput{}) }},
		{"layout", func() error {
			return NewSaveLayoutPreferencesCommand(nil, nil).Execute(ctx, SaveLayoutPreferencesInput{})
		}},
		{"filters", func() error { return NewUpdateFiltersCommand(nil, nil).Execute(ctx, UpdateFiltersInput{}) }},
		{"reset filters", func() error { return NewResetFiltersCommand(nil, nil).Execute(ctx, ResetFiltersInput{}) }},
		{"flag", func() error { return NewSetFlagCommand(nil, nil).Execute(ctx, SetFlagInput{}) }},
		{"tiles", func() error { return NewUpdateTilesCommand(nil, nil).Execute(ctx, UpdateTilesInput{}) }},
		{"columns", func() error { return NewUpdateColumnsCommand(nil, nil).Execute(ctx, UpdateColumnsInput{}) }},
		{"view mode", func() error { return NewSetViewModeCommand(nil, nil).Execute(ctx, SetViewModeInput{}) }},
		{"charts", func() error { return NewUpdateChartsCommand(nil, nil).Execute(ctx, UpdateChartsInput{}) }},
	}
	for _, check := range checks {
		if err := check.run(); err == nil {
			t.Fatalf("%s: expected error without service", check.name)
		}
	}
}

func TestSaveLayoutPreferencesCommand(t *testing.T) {
	store := dashboard.NewInMemoryPreferenceStore()
	service := dashboard.NewService(dashboard.Options{PreferenceStore: store})
	cmd := NewSaveLayoutPreferencesCommand(service, nil)
	viewer := dashboard.ViewerContext{UserID: "ivan"}

	err := cmd.Execute(context.Background(), SaveLayoutPreferencesInput{
		Viewer:        viewer,
		AreaOrder:     map[string][]string{dashboard.AreaGrids: {"content", "details"}},
		HiddenWidgets: []string{"summary"},
	})
	require.NoError(t, err)

	overrides, err := store.LayoutOverrides(context.Background(), viewer)
	require.NoError(t, err)
	assert.Equal(t, []string{"content", "details"}, overrides.AreaOrder[dashboard.AreaGrids])
	assert.True(t, overrides.HiddenWidgets["summary"])
}

func TestSaveLayoutPreferencesCommandUsesLocalViewer(t *testing.T) {
	store := dashboard.NewInMemoryPreferenceStore()
	service := dashboard.NewService(dashboard.Options{PreferenceStore: store})
	cmd := NewSaveLayoutPreferencesCommand(service, nil)

	err := cmd.Execute(context.Background(), SaveLayoutPreferencesInput{HiddenWidgets: []string{"summary"}})
	require.NoError(t, err)

	overrides, err := store.LayoutOverrides(context.Background(), dashboard.ViewerContext{UserID: dashboard.DefaultViewerID})
	require.NoError(t, err)
	assert.True(t, overrides.HiddenWidgets["summary"])
}

func TestFilterCommands(t *testing.T) {
	ctx := context.Background()
	service := dashboard.NewService(dashboard.Options{})
	viewer := dashboard.ViewerContext{UserID: "ivan"}
	amazon := "Amazon"

	update := NewUpdateFiltersCommand(service, nil)
	require.NoError(t, update.Execute(ctx, UpdateFiltersInput{
		Viewer: viewer,
		Update: dashboard.FilterUpdate{Campaign: &amazon},
	}))
	state, err := service.Filters(ctx, viewer)
	require.NoError(t, err)
	assert.Equal(t, "Amazon", state.Campaign)

	unknown := "Etsy"
	err = update.Execute(ctx, UpdateFiltersInput{Viewer: viewer, Update: dashboard.FilterUpdate{Campaign: &unknown}})
	assert.ErrorIs(t, err, dashboard.ErrUnknownFilterValue)

	reset := NewResetFiltersCommand(service, nil)
	require.NoError(t, reset.Execute(ctx, ResetFiltersInput{Viewer: viewer}))
	state, err = service.Filters(ctx, viewer)
	require.NoError(t, err)
	assert.True(t, state.IsZero())
}

func TestSetFlagCommand(t *testing.T) {
	ctx := context.Background()
	prefs := newTestPreferences()
	viewer := dashboard.ViewerContext{UserID: "ivan"}
	telemetry := &stubTelemetry{}
	cmd := NewSetFlagCommand(prefs, telemetry)

	require.NoError(t, cmd.Execute(ctx, SetFlagInput{Viewer: viewer, Key: dashboard.PrefChartsCollapsed}))
	assert.True(t, prefs.Flag(ctx, viewer, dashboard.PrefChartsCollapsed))

	off := false
	require.NoError(t, cmd.Execute(ctx, SetFlagInput{Viewer: viewer, Key: dashboard.PrefChartsCollapsed, Value: &off}))
	assert.False(t, prefs.Flag(ctx, viewer, dashboard.PrefChartsCollapsed))
	assert.Equal(t, "dashboard.preferences.flag", telemetry.last)

	err := cmd.Execute(ctx, SetFlagInput{Viewer: viewer, Key: "sidebarWidth", Value: &off})
	assert.ErrorIs(t, err, dashboard.ErrUnknownFlag)
}

func TestUpdateTilesCommand(t *testing.T) {
	ctx := context.Background()
	prefs := newTestPreferences()
	viewer := dashboard.ViewerContext{UserID: "ivan"}
	cmd := NewUpdateTilesCommand(prefs, nil)

	require.NoError(t, cmd.Execute(ctx, UpdateTilesInput{Viewer: viewer, Action: TileToggle, Key: dashboard.MetricSpend}))
	assert.False(t, prefs.TileLayout(ctx, viewer).IsVisible(dashboard.MetricSpend))

	require.NoError(t, cmd.Execute(ctx, UpdateTilesInput{Viewer: viewer, Action: TileSavePreset, Name: " Lean "}))
	presets := prefs.TilePresets(ctx, viewer)
	require.Len(t, presets, 1)
	assert.Equal(t, "Lean", presets[0].Name)

	require.NoError(t, cmd.Execute(ctx, UpdateTilesInput{Viewer: viewer, Action: TileReset}))
	assert.True(t, prefs.TileLayout(ctx, viewer).IsVisible(dashboard.MetricSpend))

	require.NoError(t, cmd.Execute(ctx, UpdateTilesInput{Viewer: viewer, Action: TileApplyPreset, Index: 0}))
	assert.False(t, prefs.TileLayout(ctx, viewer).IsVisible(dashboard.MetricSpend))

	require.NoError(t, cmd.Execute(ctx, UpdateTilesInput{Viewer: viewer, Action: TileMove, From: dashboard.MetricProfit, To: dashboard.MetricClicks}))
	assert.Equal(t, dashboard.MetricProfit, prefs.TileLayout(ctx, viewer).VisibleOrdered()[0])

	require.NoError(t, cmd.Execute(ctx, UpdateTilesInput{Viewer: viewer, Action: TileDeletePreset, Index: 0}))
	assert.Empty(t, prefs.TilePresets(ctx, viewer))

	err := cmd.Execute(ctx, UpdateTilesInput{Viewer: viewer, Action: TileDeletePreset, Index: 3})
	assert.True(t, dashboard.IsInvalidInput(err))

	err = cmd.Execute(ctx, UpdateTilesInput{Viewer: viewer, Action: "shuffle"})
	assert.ErrorIs(t, err, dashboard.ErrInvalidInput)
}

func TestUpdateColumnsCommand(t *testing.T) {
	ctx := context.Background()
	prefs := newTestPreferences()
	viewer := dashboard.ViewerContext{UserID: "ivan"}
	cmd := NewUpdateColumnsCommand(prefs, nil)
	base := UpdateColumnsInput{Viewer: viewer, TableID: dashboard.TableDetails}

	hide := base
	hide.Action, hide.Column = ColumnVisibility, "clicks"
	require.NoError(t, cmd.Execute(ctx, hide))
	assert.False(t, prefs.ColumnLayout(ctx, viewer, dashboard.TableDetails).IsVisible("clicks"))

	resize := base
	resize.Action, resize.Column, resize.Width = ColumnResize, "orders", 10
	require.NoError(t, cmd.Execute(ctx, resize))
	assert.Equal(t, 80, prefs.ColumnLayout(ctx, viewer, dashboard.TableDetails).Widths["orders"])

	save := base
	save.Action, save.Name = ColumnSavePreset, "compact"
	require.NoError(t, cmd.Execute(ctx, save))

	reset := base
	reset.Action = ColumnReset
	require.NoError(t, cmd.Execute(ctx, reset))
	assert.True(t, prefs.ColumnLayout(ctx, viewer, dashboard.TableDetails).IsVisible("clicks"))

	apply := base
	apply.Action, apply.Name = ColumnApplyPreset, "compact"
	require.NoError(t, cmd.Execute(ctx, apply))
	layout := prefs.ColumnLayout(ctx, viewer, dashboard.TableDetails)
	assert.False(t, layout.IsVisible("clicks"))
	assert.Equal(t, "compact", layout.Selected)

	remove := base
	remove.Action, remove.Name = ColumnDeletePreset, "compact"
	require.NoError(t, cmd.Execute(ctx, remove))
	assert.Empty(t, prefs.TablePresets(ctx, viewer, dashboard.TableDetails))

	unknownTable := base
	unknownTable.TableID, unknownTable.Action = "orders", ColumnReset
	assert.ErrorIs(t, cmd.Execute(ctx, unknownTable), dashboard.ErrInvalidInput)

	unknownColumn := base
	unknownColumn.Action, unknownColumn.Column = ColumnVisibility, "margin_total"
	assert.True(t, dashboard.IsInvalidInput(cmd.Execute(ctx, unknownColumn)))
}

func TestSetViewModeCommand(t *testing.T) {
	ctx := context.Background()
	prefs := newTestPreferences()
	viewer := dashboard.ViewerContext{UserID: "ivan"}
	cmd := NewSetViewModeCommand(prefs, nil)

	require.NoError(t, cmd.Execute(ctx, SetViewModeInput{Viewer: viewer, Mode: "blogger"}))
	assert.Equal(t, dashboard.ViewModeBlogger, prefs.ViewMode(ctx, viewer))

	assert.ErrorIs(t, cmd.Execute(ctx, SetViewModeInput{Viewer: viewer, Mode: "campaign"}), dashboard.ErrInvalidInput)
	assert.Equal(t, dashboard.ViewModeBlogger, prefs.ViewMode(ctx, viewer))
}

func TestUpdateChartsCommand(t *testing.T) {
	ctx := context.Background()
	prefs := newTestPreferences()
	viewer := dashboard.ViewerContext{UserID: "ivan"}
	telemetry := &stubTelemetry{}
	cmd := NewUpdateChartsCommand(prefs, telemetry)

	require.NoError(t, cmd.Execute(ctx, UpdateChartsInput{Viewer: viewer, Action: ChartAdd}))
	charts := prefs.Charts(ctx, viewer)
	require.Len(t, charts, 2)
	assert.Equal(t, "chart-fixed", charts[1].ID)
	assert.Equal(t, "chart-fixed", telemetry.payload["chart_id"])
	assert.Equal(t, "ivan", telemetry.payload["user_id"])
	assert.Equal(t, "ivan", telemetry.payload["viewer"])

	require.NoError(t, cmd.Execute(ctx, UpdateChartsInput{
		Viewer: viewer, Action: ChartToggle, ChartID: "chart-fixed", Metric: dashboard.ChartClicks, On: false,
	}))
	entry, ok := prefs.Charts(ctx, viewer).Find("chart-fixed")
	require.True(t, ok)
	assert.False(t, entry.Checks.Clicks)

	checks := dashboard.ChartChecks{Spend: true}
	require.NoError(t, cmd.Execute(ctx, UpdateChartsInput{
		Viewer: viewer, Action: ChartChecks, ChartID: dashboard.MainChartID, Checks: &checks,
	}))
	entry, _ = prefs.Charts(ctx, viewer).Find(dashboard.MainChartID)
	assert.Equal(t, checks, entry.Checks)

	err := cmd.Execute(ctx, UpdateChartsInput{Viewer: viewer, Action: ChartChecks, ChartID: dashboard.MainChartID})
	assert.ErrorIs(t, err, dashboard.ErrInvalidInput)

	err = cmd.Execute(ctx, UpdateChartsInput{Viewer: viewer, Action: ChartRemove, ChartID: dashboard.MainChartID})
	assert.ErrorIs(t, err, dashboard.ErrMainChartRequired)

	require.NoError(t, cmd.Execute(ctx, UpdateChartsInput{Viewer: viewer, Action: ChartRemove, ChartID: "chart-fixed"}))
	assert.Len(t, prefs.Charts(ctx, viewer), 1)

	err = cmd.Execute(ctx, UpdateChartsInput{Viewer: viewer, Action: ChartRemove, ChartID: "chart-gone"})
	assert.True(t, dashboard.IsNotFound(err))
}

func newTestPreferences() *dashboard.Preferences {
	return dashboard.NewPreferences(dashboard.PreferencesOptions{
		Clock:   func() time.Time { return time.Date(2025, time.October, 15, 12, 0, 0, 0, time.UTC) },
		ChartID: func() (string, error) { return "chart-fixed", nil },
	})
}

type stubService struct {
	addCalls     int
	removeCalls  int
	reorderCalls int
	refreshCalls int
	lastUpdate   dashboard.UpdateWidgetRequest
	lastEvent    dashboard.WidgetEvent
}

func (s *stubService) AddWidget(context.Context, dashboard.AddWidgetRequest) error {
	s.addCalls++
	return nil
}

func (s *stubService) UpdateWidget(_ context.Context, req dashboard.UpdateWidgetRequest) error {
	s.lastUpdate = req
	return nil
}

func (s *stubService) RemoveWidget(context.Context, string) error {
	s.removeCalls++
	return nil
}

func (s *stubService) ReorderWidgets(context.Context, string, []string) error {
	s.reorderCalls++
	return nil
}

func (s *stubService) NotifyWidgetUpdated(_ context.Context, event dashboard.WidgetEvent) error {
	s.refreshCalls++
	s.lastEvent = event
	return nil
}

type stubRegistry struct {
	count int
}

func (s *stubRegistry) RegisterDefinition(def dashboard.WidgetDefinition) error {
	s.count++
	return nil
}

func (s *stubRegistry) RegisterProvider(string, dashboard.Provider) error { return nil }
func (s *stubRegistry) Definition(string) (dashboard.WidgetDefinition, bool) {
	return dashboard.WidgetDefinition{}, false
}
func (s *stubRegistry) Provider(string) (dashboard.Provider, bool) { return nil, false }
func (s *stubRegistry) Definitions() []dashboard.WidgetDefinition  { return nil }

type stubStore struct {
	ensureAreaCalls int
	assignCalls     int
}

func newStubStore() *stubStore { return &stubStore{} }

func (s *stubStore) EnsureArea(context.Context, dashboard.WidgetAreaDefinition) (bool, error) {
	s.ensureAreaCalls++
	return true, nil
}

func (s *stubStore) EnsureDefinition(context.Context, dashboard.WidgetDefinition) (bool, error) {
	return true, nil
}

func (s *stubStore) CreateInstance(ctx context.Context, input dashboard.CreateWidgetInstanceInput) (dashboard.WidgetInstance, error) {
	return dashboard.WidgetInstance{ID: input.DefinitionID + "-instance", DefinitionID: input.DefinitionID}, nil
}

func (s *stubStore) GetInstance(context.Context, string) (dashboard.WidgetInstance, error) {
	return dashboard.WidgetInstance{}, errors.New("not stored")
}

func (s *stubStore) UpdateInstance(context.Context, dashboard.UpdateWidgetInstanceInput) (dashboard.WidgetInstance, error) {
	return dashboard.WidgetInstance{}, errors.New("not stored")
}

func (s *stubStore) DeleteInstance(context.Context, string) error { return nil }

func (s *stubStore) AssignInstance(context.Context, dashboard.AssignWidgetInput) error {
	s.assignCalls++
	return nil
}

func (s *stubStore) ReorderArea(context.Context, dashboard.ReorderAreaInput) error { return nil }

func (s *stubStore) ResolveArea(context.Context, dashboard.ResolveAreaInput) (dashboard.ResolvedArea, error) {
	return dashboard.ResolvedArea{}, nil
}

type stubTelemetry struct {
	calls   int
	last    string
	payload map[string]any
}

func (s *stubTelemetry) Record(_ context.Context, event string, payload map[string]any) {
	s.calls++
	s.last = event
	s.payload = payload
}
