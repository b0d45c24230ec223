package dashboard

import (
	"context"
	"errors"
	"maps"
	"time"
)

var (
	errMissingWidgetStore = errors.New("dashboard: widget store not configured")
	errInvalidArea        = errors.New("dashboard: area code is required")
	errInvalidDefinition  = errors.New("dashboard: definition id is required")
	errInvalidWidgetID    = errors.New("dashboard: widget id is required")
)

// Options configures the dashboard Service. Every collaborator is provided via
// interface so applications can swap implementations.
type Options struct {
	WidgetStore     WidgetStore
	Authorizer      Authorizer
	PreferenceStore PreferenceStore
	Providers       ProviderRegistry
	ConfigValidator ConfigValidator
	RefreshHook     RefreshHook
	Telemetry       Telemetry
	FilterStore     FilterStore
	Preferences     *Preferences
	Dataset         DatasetSource
	Translator      TranslationService
	Clock           func() time.Time
	WeekStart       time.Weekday
	Areas           []string
}

// Service orchestrates campaign widgets, the shared filter selection and
// viewer preferences.
type Service struct {
	opts Options
}

// NewService builds a Service instance with safe defaults.
func NewService(opts Options) *Service {
	if opts.Authorizer == nil {
		opts.Authorizer = allowAllAuthorizer{}
	}
	if opts.RefreshHook == nil {
		opts.RefreshHook = noopRefreshHook{}
	}
	if opts.Providers == nil {
		opts.Providers = NewRegistry()
	}
	if opts.ConfigValidator == nil {
		opts.ConfigValidator = NewJSONSchemaValidator()
	}
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	if opts.PreferenceStore == nil {
		opts.PreferenceStore = NewInMemoryPreferenceStore()
	}
	if opts.FilterStore == nil {
		opts.FilterStore = NewInMemoryFilterStore(opts.RefreshHook)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Dataset == nil {
		opts.Dataset = StaticDatasetSource{Data: DefaultDataset(opts.Clock())}
	}
	if opts.Preferences == nil {
		opts.Preferences = NewPreferences(PreferencesOptions{
			RefreshHook: opts.RefreshHook,
			Telemetry:   opts.Telemetry,
			Clock:       opts.Clock,
		})
	}
	return &Service{opts: opts}
}

// AddWidgetRequest captures the data required to create widget assignments.
type AddWidgetRequest struct {
	DefinitionID  string
	AreaCode      string
	Configuration map[string]any
	Position      *int
	Roles         []string
	StartAt       *time.Time
	EndAt         *time.Time
	UserID        string
}

// AddWidget creates a widget instance and assigns it to an area. Missing
// configuration fields are filled from the definition schema defaults.
func (s *Service) AddWidget(ctx context.Context, req AddWidgetRequest) error {
	store, err := s.widgetStore()
	if err != nil {
		return err
	}
	if req.AreaCode == "" {
		return errInvalidArea
	}
	if req.DefinitionID == "" {
		return errInvalidDefinition
	}
	config, err := s.prepareConfiguration(req.DefinitionID, req.Configuration)
	if err != nil {
		return err
	}
	instance, err := store.CreateInstance(ctx, CreateWidgetInstanceInput{
		DefinitionID:  req.DefinitionID,
		Configuration: config,
		Visibility: WidgetVisibility{
			Roles:   req.Roles,
			StartAt: req.StartAt,
			EndAt:   req.EndAt,
		},
		Metadata: map[string]any{
			"user_id": req.UserID,
		},
	})
	if err != nil {
		return err
	}
	if err := store.AssignInstance(ctx, AssignWidgetInput{
		AreaCode:   req.AreaCode,
		InstanceID: instance.ID,
		Position:   req.Position,
	}); err != nil {
		return err
	}
	instance.AreaCode = req.AreaCode
	if err := s.opts.RefreshHook.WidgetUpdated(ctx, WidgetEvent{
		AreaCode: req.AreaCode,
		Instance: instance,
		Reason:   "add",
	}); err != nil {
		return err
	}
	s.recordTelemetry(ctx, "dashboard.widget.add", map[string]any{
		"area_code":     req.AreaCode,
		"definition_id": req.DefinitionID,
	})
	return nil
}

// UpdateWidgetRequest replaces the configuration of a placed widget.
type UpdateWidgetRequest struct {
	WidgetID      string
	Configuration map[string]any
}

// UpdateWidget validates and stores a new configuration.
func (s *Service) UpdateWidget(ctx context.Context, req UpdateWidgetRequest) error {
	store, err := s.widgetStore()
	if err != nil {
		return err
	}
	if req.WidgetID == "" {
		return errInvalidWidgetID
	}
	current, err := store.GetInstance(ctx, req.WidgetID)
	if err != nil {
		return err
	}
	config, err := s.prepareConfiguration(current.DefinitionID, req.Configuration)
	if err != nil {
		return err
	}
	updated, err := store.UpdateInstance(ctx, UpdateWidgetInstanceInput{
		InstanceID:    req.WidgetID,
		Configuration: config,
	})
	if err != nil {
		return err
	}
	if err := s.opts.RefreshHook.WidgetUpdated(ctx, WidgetEvent{
		AreaCode: updated.AreaCode,
		Instance: updated,
		Reason:   "update",
	}); err != nil {
		return err
	}
	s.recordTelemetry(ctx, "dashboard.widget.update", map[string]any{
		"widget_id":     req.WidgetID,
		"definition_id": current.DefinitionID,
	})
	return nil
}

func (s *Service) recordTelemetry(ctx context.Context, event string, payload map[string]any) {
	s.opts.Telemetry.Record(ctx, event, payload)
}

// RemoveWidget deletes the widget instance.
func (s *Service) RemoveWidget(ctx context.Context, widgetID string) error {
	store, err := s.widgetStore()
	if err != nil {
		return err
	}
	if widgetID == "" {
		return errInvalidWidgetID
	}
	if err := store.DeleteInstance(ctx, widgetID); err != nil {
		return err
	}
	if err := s.opts.RefreshHook.WidgetUpdated(ctx, WidgetEvent{
		Instance: WidgetInstance{ID: widgetID},
		Reason:   "delete",
	}); err != nil {
		return err
	}
	s.recordTelemetry(ctx, "dashboard.widget.remove", map[string]any{"widget_id": widgetID})
	return nil
}

// ReorderWidgets changes widget ordering within an area.
func (s *Service) ReorderWidgets(ctx context.Context, areaCode string, widgetIDs []string) error {
	store, err := s.widgetStore()
	if err != nil {
		return err
	}
	if areaCode == "" {
		return errInvalidArea
	}
	if err := store.ReorderArea(ctx, ReorderAreaInput{
		AreaCode:  areaCode,
		WidgetIDs: widgetIDs,
	}); err != nil {
		return err
	}
	if err := s.opts.RefreshHook.WidgetUpdated(ctx, WidgetEvent{
		AreaCode: areaCode,
		Reason:   "reorder",
	}); err != nil {
		return err
	}
	s.recordTelemetry(ctx, "dashboard.widget.reorder", map[string]any{
		"area_code": areaCode,
		"count":     len(widgetIDs),
	})
	return nil
}

// ConfigureLayout resolves widgets for each dashboard area against the
// viewer's filters, flags, preferences and authorization.
func (s *Service) ConfigureLayout(ctx context.Context, viewer ViewerContext) (Layout, error) {
	store, err := s.widgetStore()
	if err != nil {
		return Layout{}, err
	}
	overrides, err := s.opts.PreferenceStore.LayoutOverrides(ctx, viewer)
	if err != nil {
		return Layout{}, err
	}
	filters, err := s.opts.FilterStore.Filters(ctx, viewer)
	if err != nil {
		return Layout{}, err
	}
	flags := s.opts.Preferences.Flags(ctx, viewer)
	layout := Layout{
		Areas:   make(map[string][]WidgetInstance),
		Filters: filters,
		Flags:   flags,
	}
	for _, area := range s.areaList() {
		resolved, err := store.ResolveArea(ctx, ResolveAreaInput{
			AreaCode: area,
			Audience: viewer.Roles,
			Locale:   viewer.Locale,
		})
		if err != nil {
			return Layout{}, err
		}
		for i := range resolved.Widgets {
			resolved.Widgets[i].AreaCode = area
		}
		visible := s.authorized(ctx, viewer, resolved.Widgets)
		visible = applyOrderOverride(visible, overrides.AreaOrder[area])
		visible = applyHiddenFilter(visible, overrides.HiddenWidgets)
		visible = applyFlagFilter(visible, flags)
		layout.Areas[area] = s.attachProviderData(ctx, viewer, filters, visible)
	}
	s.recordTelemetry(ctx, "dashboard.layout.resolve", ViewerPayload(viewer, nil))
	return layout, nil
}

// ResolveArea retrieves a single area layout for the viewer.
func (s *Service) ResolveArea(ctx context.Context, viewer ViewerContext, areaCode string) (ResolvedArea, error) {
	store, err := s.widgetStore()
	if err != nil {
		return ResolvedArea{}, err
	}
	if areaCode == "" {
		return ResolvedArea{}, errInvalidArea
	}
	filters, err := s.opts.FilterStore.Filters(ctx, viewer)
	if err != nil {
		return ResolvedArea{}, err
	}
	resolved, err := store.ResolveArea(ctx, ResolveAreaInput{
		AreaCode: areaCode,
		Audience: viewer.Roles,
		Locale:   viewer.Locale,
	})
	if err != nil {
		return ResolvedArea{}, err
	}
	for i := range resolved.Widgets {
		resolved.Widgets[i].AreaCode = areaCode
	}
	resolved.Widgets = s.attachProviderData(ctx, viewer, filters, s.authorized(ctx, viewer, resolved.Widgets))
	s.recordTelemetry(ctx, "dashboard.area.resolve", ViewerPayload(viewer, map[string]any{
		"area_code": areaCode,
	}))
	return resolved, nil
}

func (s *Service) widgetStore() (WidgetStore, error) {
	if s.opts.WidgetStore == nil {
		return nil, errMissingWidgetStore
	}
	return s.opts.WidgetStore, nil
}

func (s *Service) prepareConfiguration(definitionID string, config map[string]any) (map[string]any, error) {
	def, ok := s.opts.Providers.Definition(definitionID)
	if !ok {
		return config, nil
	}
	config = ApplyDefaults(def, config)
	if err := s.opts.ConfigValidator.Validate(def, config); err != nil {
		return nil, err
	}
	return config, nil
}

func (s *Service) areaList() []string {
	if len(s.opts.Areas) > 0 {
		return s.opts.Areas
	}
	return defaultAreas
}

func (s *Service) authorized(ctx context.Context, viewer ViewerContext, widgets []WidgetInstance) []WidgetInstance {
	if len(widgets) == 0 {
		return widgets
	}
	var filtered []WidgetInstance
	for _, w := range widgets {
		if s.opts.Authorizer.CanViewWidget(ctx, viewer, w) {
			filtered = append(filtered, w)
		}
	}
	return filtered
}

func (s *Service) attachProviderData(ctx context.Context, viewer ViewerContext, filters FilterState, widgets []WidgetInstance) []WidgetInstance {
	if len(widgets) == 0 {
		return widgets
	}
	enriched := make([]WidgetInstance, len(widgets))
	copy(enriched, widgets)
	for i, inst := range enriched {
		provider, ok := s.opts.Providers.Provider(inst.DefinitionID)
		if !ok || provider == nil {
			continue
		}
		data, err := provider.Fetch(ctx, WidgetContext{
			Instance:   inst,
			Viewer:     viewer,
			Filters:    filters,
			Translator: s.opts.Translator,
		})
		metadata := maps.Clone(inst.Metadata)
		if metadata == nil {
			metadata = make(map[string]any, 1)
		}
		if err != nil {
			s.recordTelemetry(ctx, "dashboard.widget.provider_error", map[string]any{
				"definition_id": inst.DefinitionID,
				"widget_id":     inst.ID,
				"error":         err.Error(),
			})
			delete(metadata, "data")
			metadata["error"] = err.Error()
		} else {
			metadata["data"] = data
		}
		enriched[i].Metadata = metadata
	}
	return enriched
}

// NotifyWidgetUpdated exposes refresh hook invocation for commands/transports.
func (s *Service) NotifyWidgetUpdated(ctx context.Context, event WidgetEvent) error {
	if err := s.opts.RefreshHook.WidgetUpdated(ctx, event); err != nil {
		return err
	}
	s.recordTelemetry(ctx, "dashboard.widget.event", map[string]any{
		"area_code": event.AreaCode,
		"widget_id": event.Instance.ID,
		"reason":    event.Reason,
	})
	return nil
}

// SavePreferences persists per-viewer layout overrides.
func (s *Service) SavePreferences(ctx context.Context, viewer ViewerContext, overrides LayoutOverrides) error {
	if err := s.opts.PreferenceStore.SaveLayoutOverrides(ctx, viewer, normalizeOverrides(overrides, viewer)); err != nil {
		return err
	}
	return s.opts.RefreshHook.WidgetUpdated(ctx, WidgetEvent{
		Reason:   "storage",
		ViewerID: viewerNamespace(viewer),
		Key:      PrefLayout,
	})
}

// Filters returns the viewer's current selection.
func (s *Service) Filters(ctx context.Context, viewer ViewerContext) (FilterState, error) {
	return s.opts.FilterStore.Filters(ctx, viewer)
}

// UpdateFilters resolves presets, validates the update against the dataset
// and stores it.
func (s *Service) UpdateFilters(ctx context.Context, viewer ViewerContext, update FilterUpdate) (FilterState, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return FilterState{}, err
	}
	update, err = update.ResolvePreset(s.opts.Clock(), s.opts.WeekStart)
	if err != nil {
		return FilterState{}, err
	}
	if err := update.Validate(ds); err != nil {
		return FilterState{}, err
	}
	state, err := s.opts.FilterStore.UpdateFilters(ctx, viewer, update)
	if err != nil {
		return FilterState{}, err
	}
	s.recordTelemetry(ctx, "dashboard.filters.update", ViewerPayload(viewer, map[string]any{
		"campaign": state.Campaign,
		"blogger":  state.Blogger,
		"asin":     state.ASIN,
		"link":     state.Link,
	}))
	return state, nil
}

// ResetFilters clears the viewer's selection.
func (s *Service) ResetFilters(ctx context.Context, viewer ViewerContext) error {
	if err := s.opts.FilterStore.ResetFilters(ctx, viewer); err != nil {
		return err
	}
	s.recordTelemetry(ctx, "dashboard.filters.reset", ViewerPayload(viewer, nil))
	return nil
}

// FilterOptions lists the values the filter bar offers.
func (s *Service) FilterOptions(ctx context.Context) (FilterOptions, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return FilterOptions{}, err
	}
	return BuildFilterOptions(ds, s.opts.Clock(), s.opts.WeekStart), nil
}

// DetailsGrid returns one page of the details grid for the viewer.
func (s *Service) DetailsGrid(ctx context.Context, viewer ViewerContext, page, size int) (GridView, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return GridView{}, err
	}
	filters, err := s.opts.FilterStore.Filters(ctx, viewer)
	if err != nil {
		return GridView{}, err
	}
	prefs := s.opts.Preferences
	return BuildDetailGrid(ds.DetailRows, filters, prefs.ViewMode(ctx, viewer), prefs.ColumnLayout(ctx, viewer, TableDetails), page, size), nil
}

// ContentGrid returns one page of the content grid for the viewer.
func (s *Service) ContentGrid(ctx context.Context, viewer ViewerContext, page, size int) (GridView, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return GridView{}, err
	}
	filters, err := s.opts.FilterStore.Filters(ctx, viewer)
	if err != nil {
		return GridView{}, err
	}
	return BuildContentGrid(ds.ContentRows, filters, s.opts.Preferences.ColumnLayout(ctx, viewer, TableContent), page, size), nil
}

// Summary returns the summary panel for the viewer's period.
func (s *Service) Summary(ctx context.Context, viewer ViewerContext) (Summary, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return Summary{}, err
	}
	filters, err := s.opts.FilterStore.Filters(ctx, viewer)
	if err != nil {
		return Summary{}, err
	}
	return BuildSummary(ds.Current, filters.DateRange), nil
}

// Preferences exposes the typed preference facade.
func (s *Service) Preferences() *Preferences {
	return s.opts.Preferences
}

// Dataset loads the dataset every widget derives from.
func (s *Service) Dataset(ctx context.Context) (Dataset, error) {
	return s.opts.Dataset.Load(ctx)
}

// Providers exposes the registry backing the service.
func (s *Service) Providers() ProviderRegistry {
	return s.opts.Providers
}

type allowAllAuthorizer struct{}

func (allowAllAuthorizer) CanViewWidget(context.Context, ViewerContext, WidgetInstance) bool {
	return true
}

type noopRefreshHook struct{}

func (noopRefreshHook) WidgetUpdated(context.Context, WidgetEvent) error {
	return nil
}
