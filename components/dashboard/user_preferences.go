package dashboard

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// Preference keys stored per viewer namespace.
const (
	PrefChartsCollapsed  = "chartsCollapsed"
	PrefContentCollapsed = "contentCollapsed"
	PrefSummaryOpen      = "summaryOpen"
	PrefDetailsVisible   = "detailsVisible"
	PrefTileLayout       = "tileLayout"
	PrefTilePresets      = "tilesPresets"
	PrefViewMode         = "detailsViewMode"
	PrefCharts           = "charts"
	PrefLayout           = "layout"

	tablePresetsPrefix = "table-presets-"
	tableColumnsPrefix = "table-columns-"
)

// FlagKeys lists the boolean toggles, all defaulting to false.
var FlagKeys = []string{PrefChartsCollapsed, PrefContentCollapsed, PrefSummaryOpen, PrefDetailsVisible}

// ErrUnknownFlag is returned for flag keys outside FlagKeys.
var ErrUnknownFlag = errors.New("dashboard: unknown preference flag")

var errInvalidPreferenceValue = errors.New("dashboard: preference value must be valid JSON")

// TablePresetsKey is the key holding the named presets of a grid.
func TablePresetsKey(tableID string) string { return tablePresetsPrefix + tableID }

// TableColumnsKey is the key holding the current column layout of a grid.
func TableColumnsKey(tableID string) string { return tableColumnsPrefix + tableID }

// PreferencesOptions configures the Preferences facade.
type PreferencesOptions struct {
	Store       KeyValueStore
	RefreshHook RefreshHook
	Telemetry   Telemetry
	// Metrics is the canonical tile order.
	Metrics []string
	Clock   func() time.Time
	ChartID func() (string, error)
}

// Preferences reads and writes the typed per-viewer preferences. Reads are
// best effort: missing or corrupt blobs yield defaults. Every write emits a
// "storage" WidgetEvent carrying the key.
type Preferences struct {
	mu        sync.Mutex
	store     KeyValueStore
	hook      RefreshHook
	telemetry Telemetry
	metrics   []string
	now       func() time.Time
	chartID   func() (string, error)
}

// NewPreferences builds the facade, defaulting to an in-memory store.
func NewPreferences(opts PreferencesOptions) *Preferences {
	if opts.Store == nil {
		opts.Store = NewInMemoryKeyValueStore()
	}
	if opts.RefreshHook == nil {
		opts.RefreshHook = noopRefreshHook{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.ChartID == nil {
		opts.ChartID = NewChartID
	}
	if len(opts.Metrics) == 0 {
		opts.Metrics = DefaultMetrics
	}
	return &Preferences{
		store:     opts.Store,
		hook:      opts.RefreshHook,
		telemetry: normalizeTelemetry(opts.Telemetry),
		metrics:   slices.Clone(opts.Metrics),
		now:       opts.Clock,
		chartID:   opts.ChartID,
	}
}

// Store exposes the underlying key/value store.
func (p *Preferences) Store() KeyValueStore {
	return p.store
}

func readPreference[T any](ctx context.Context, p *Preferences, viewer ViewerContext, key string, fallback T) T {
	ns := viewerNamespace(viewer)
	raw, ok, err := p.store.Get(ctx, ns, key)
	if err != nil {
		p.telemetry.Record(ctx, "dashboard.preferences.read_error", map[string]any{
			"namespace": ns,
			"key":       key,
			"error":     err.Error(),
		})
		return fallback
	}
	if !ok {
		return fallback
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		p.telemetry.Record(ctx, "dashboard.preferences.decode_error", map[string]any{
			"namespace": ns,
			"key":       key,
			"error":     err.Error(),
		})
		return fallback
	}
	return out
}

func (p *Preferences) write(ctx context.Context, viewer ViewerContext, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("dashboard: encode preference %q: %w", key, err)
	}
	ns := viewerNamespace(viewer)
	if err := p.store.Set(ctx, ns, key, raw); err != nil {
		return fmt.Errorf("dashboard: store preference %q: %w", key, err)
	}
	return p.notify(ctx, ns, key)
}

func (p *Preferences) notify(ctx context.Context, ns, key string) error {
	return p.hook.WidgetUpdated(ctx, WidgetEvent{Reason: "storage", ViewerID: ns, Key: key})
}

// Get returns the raw blob stored under key.
func (p *Preferences) Get(ctx context.Context, viewer ViewerContext, key string) (json.RawMessage, bool, error) {
	raw, ok, err := p.store.Get(ctx, viewerNamespace(viewer), key)
	if err != nil || !ok {
		return nil, ok, err
	}
	return json.RawMessage(raw), true, nil
}

// Set stores a raw JSON blob under key.
func (p *Preferences) Set(ctx context.Context, viewer ViewerContext, key string, value []byte) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("dashboard: preference key is required")
	}
	if !json.Valid(value) {
		return errInvalidPreferenceValue
	}
	ns := viewerNamespace(viewer)
	if err := p.store.Set(ctx, ns, key, value); err != nil {
		return err
	}
	return p.notify(ctx, ns, key)
}

// Delete removes key so reads fall back to the default.
func (p *Preferences) Delete(ctx context.Context, viewer ViewerContext, key string) error {
	ns := viewerNamespace(viewer)
	if err := p.store.Delete(ctx, ns, key); err != nil {
		return err
	}
	return p.notify(ctx, ns, key)
}

// Keys lists the keys stored for the viewer.
func (p *Preferences) Keys(ctx context.Context, viewer ViewerContext) ([]string, error) {
	return p.store.Keys(ctx, viewerNamespace(viewer))
}

// Flag returns a boolean toggle, false when unset or unreadable.
func (p *Preferences) Flag(ctx context.Context, viewer ViewerContext, key string) bool {
	if !slices.Contains(FlagKeys, key) {
		return false
	}
	return readPreference(ctx, p, viewer, key, false)
}

// Flags returns every toggle.
func (p *Preferences) Flags(ctx context.Context, viewer ViewerContext) map[string]bool {
	out := make(map[string]bool, len(FlagKeys))
	for _, key := range FlagKeys {
		out[key] = p.Flag(ctx, viewer, key)
	}
	return out
}

// SetFlag stores a toggle.
func (p *Preferences) SetFlag(ctx context.Context, viewer ViewerContext, key string, value bool) error {
	if !slices.Contains(FlagKeys, key) {
		return fmt.Errorf("%w: %q", ErrUnknownFlag, key)
	}
	return p.write(ctx, viewer, key, value)
}

// ToggleFlag inverts a toggle and returns the new value.
func (p *Preferences) ToggleFlag(ctx context.Context, viewer ViewerContext, key string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := !p.Flag(ctx, viewer, key)
	if err := p.SetFlag(ctx, viewer, key, next); err != nil {
		return false, err
	}
	return next, nil
}

// TileLayout returns the tile layout, all metrics visible by default.
func (p *Preferences) TileLayout(ctx context.Context, viewer ViewerContext) TileLayout {
	layout := readPreference(ctx, p, viewer, PrefTileLayout, DefaultTileLayout(p.metrics))
	if layout.VisibleTiles == nil || layout.TileOrder == nil {
		return DefaultTileLayout(p.metrics)
	}
	return layout
}

// SaveTileLayout stores layout.
func (p *Preferences) SaveTileLayout(ctx context.Context, viewer ViewerContext, layout TileLayout) error {
	if layout.VisibleTiles == nil {
		layout.VisibleTiles = []string{}
	}
	if layout.TileOrder == nil {
		layout.TileOrder = []string{}
	}
	return p.write(ctx, viewer, PrefTileLayout, layout)
}

// ToggleTile shows or hides a tile.
func (p *Preferences) ToggleTile(ctx context.Context, viewer ViewerContext, key string, on bool) (TileLayout, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	next, err := ToggleTile(p.TileLayout(ctx, viewer), key, on, p.metrics)
	if err != nil {
		return TileLayout{}, err
	}
	return next, p.SaveTileLayout(ctx, viewer, next)
}

// MoveTile drags tile from onto the position of tile to.
func (p *Preferences) MoveTile(ctx context.Context, viewer ViewerContext, from, to string) (TileLayout, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := MoveTile(p.TileLayout(ctx, viewer), from, to)
	return next, p.SaveTileLayout(ctx, viewer, next)
}

// TilePresets returns the saved tile presets.
func (p *Preferences) TilePresets(ctx context.Context, viewer ViewerContext) []TilePreset {
	presets := readPreference(ctx, p, viewer, PrefTilePresets, []TilePreset{})
	if presets == nil {
		return []TilePreset{}
	}
	return presets
}

// SaveTilePreset stores the current tile layout under name.
func (p *Preferences) SaveTilePreset(ctx context.Context, viewer ViewerContext, name string) ([]TilePreset, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	next, err := SaveTilePreset(p.TilePresets(ctx, viewer), name, p.TileLayout(ctx, viewer))
	if err != nil {
		return nil, err
	}
	return next, p.write(ctx, viewer, PrefTilePresets, next)
}

// DeleteTilePreset removes the preset at index.
func (p *Preferences) DeleteTilePreset(ctx context.Context, viewer ViewerContext, index int) ([]TilePreset, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	next, err := DeleteTilePreset(p.TilePresets(ctx, viewer), index)
	if err != nil {
		return nil, err
	}
	return next, p.write(ctx, viewer, PrefTilePresets, next)
}

// ApplyTilePreset makes the preset at index the current tile layout.
func (p *Preferences) ApplyTilePreset(ctx context.Context, viewer ViewerContext, index int) (TileLayout, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	presets := p.TilePresets(ctx, viewer)
	if index < 0 || index >= len(presets) {
		return TileLayout{}, fmt.Errorf("%w: tile preset index %d out of range", ErrInvalidInput, index)
	}
	layout := presets[index].Layout()
	return layout, p.SaveTileLayout(ctx, viewer, layout)
}

// ResetTiles shows every metric in canonical order.
func (p *Preferences) ResetTiles(ctx context.Context, viewer ViewerContext) (TileLayout, error) {
	layout := DefaultTileLayout(p.metrics)
	return layout, p.SaveTileLayout(ctx, viewer, layout)
}

// ColumnLayout returns the current column layout of a grid.
func (p *Preferences) ColumnLayout(ctx context.Context, viewer ViewerContext, tableID string) ColumnLayout {
	return readPreference(ctx, p, viewer, TableColumnsKey(tableID), ResetColumnLayout()).clone()
}

// SaveColumnLayout stores the column layout of a grid.
func (p *Preferences) SaveColumnLayout(ctx context.Context, viewer ViewerContext, tableID string, layout ColumnLayout) error {
	if _, err := TableColumns(tableID, ViewModeProduct); err != nil {
		return err
	}
	return p.write(ctx, viewer, TableColumnsKey(tableID), layout.clone())
}

func (p *Preferences) updateColumns(ctx context.Context, viewer ViewerContext, tableID string, fn func([]ColumnDef, ColumnLayout) (ColumnLayout, error)) (ColumnLayout, error) {
	defs, err := TableColumns(tableID, ViewModeProduct)
	if err != nil {
		return ColumnLayout{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	next, err := fn(defs, p.ColumnLayout(ctx, viewer, tableID))
	if err != nil {
		return ColumnLayout{}, err
	}
	return next, p.SaveColumnLayout(ctx, viewer, tableID, next)
}

// SetColumnVisible shows or hides a column.
func (p *Preferences) SetColumnVisible(ctx context.Context, viewer ViewerContext, tableID, column string, visible bool) (ColumnLayout, error) {
	return p.updateColumns(ctx, viewer, tableID, func(defs []ColumnDef, l ColumnLayout) (ColumnLayout, error) {
		return l.SetVisible(defs, column, visible)
	})
}

// ResizeColumn stores a column width.
func (p *Preferences) ResizeColumn(ctx context.Context, viewer ViewerContext, tableID, column string, width int) (ColumnLayout, error) {
	return p.updateColumns(ctx, viewer, tableID, func(defs []ColumnDef, l ColumnLayout) (ColumnLayout, error) {
		return l.Resize(defs, column, width)
	})
}

// MoveColumn places a column at index.
func (p *Preferences) MoveColumn(ctx context.Context, viewer ViewerContext, tableID, column string, index int) (ColumnLayout, error) {
	return p.updateColumns(ctx, viewer, tableID, func(defs []ColumnDef, l ColumnLayout) (ColumnLayout, error) {
		return l.Move(defs, column, index)
	})
}

// TablePresets returns the named presets of a grid.
func (p *Preferences) TablePresets(ctx context.Context, viewer ViewerContext, tableID string) TablePresets {
	presets := readPreference(ctx, p, viewer, TablePresetsKey(tableID), TablePresets{})
	if presets == nil {
		return TablePresets{}
	}
	return presets
}

// SaveTablePreset stores the current column layout of a grid under name.
func (p *Preferences) SaveTablePreset(ctx context.Context, viewer ViewerContext, tableID, name string) (TablePresets, error) {
	if _, err := TableColumns(tableID, ViewModeProduct); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	next, err := p.TablePresets(ctx, viewer, tableID).Save(name, p.ColumnLayout(ctx, viewer, tableID), p.now())
	if err != nil {
		return nil, err
	}
	return next, p.write(ctx, viewer, TablePresetsKey(tableID), next)
}

// DeleteTablePreset removes a preset, clearing the selection when it pointed
// at the removed preset.
func (p *Preferences) DeleteTablePreset(ctx context.Context, viewer ViewerContext, tableID, name string) (TablePresets, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	layout := p.ColumnLayout(ctx, viewer, tableID)
	next, selected := p.TablePresets(ctx, viewer, tableID).Delete(name, layout.Selected)
	if err := p.write(ctx, viewer, TablePresetsKey(tableID), next); err != nil {
		return nil, err
	}
	if selected != layout.Selected {
		layout.Selected = selected
		if err := p.SaveColumnLayout(ctx, viewer, tableID, layout); err != nil {
			return nil, err
		}
	}
	return next, nil
}

// ApplyTablePreset makes a preset the current column layout and selects it.
func (p *Preferences) ApplyTablePreset(ctx context.Context, viewer ViewerContext, tableID, name string) (ColumnLayout, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	layout, err := p.TablePresets(ctx, viewer, tableID).Apply(name)
	if err != nil {
		return ColumnLayout{}, err
	}
	return layout, p.SaveColumnLayout(ctx, viewer, tableID, layout)
}

// ResetTable restores the default column layout and clears the selection.
func (p *Preferences) ResetTable(ctx context.Context, viewer ViewerContext, tableID string) (ColumnLayout, error) {
	layout := ResetColumnLayout()
	return layout, p.SaveColumnLayout(ctx, viewer, tableID, layout)
}

// ViewMode returns the details grid view mode.
func (p *Preferences) ViewMode(ctx context.Context, viewer ViewerContext) ViewMode {
	mode, err := ParseViewMode(string(readPreference(ctx, p, viewer, PrefViewMode, ViewModeProduct)))
	if err != nil {
		return ViewModeProduct
	}
	return mode
}

// SetViewMode stores the details grid view mode.
func (p *Preferences) SetViewMode(ctx context.Context, viewer ViewerContext, mode ViewMode) error {
	parsed, err := ParseViewMode(string(mode))
	if err != nil {
		return err
	}
	return p.write(ctx, viewer, PrefViewMode, parsed)
}

// Charts returns the unified chart block, always starting with main.
func (p *Preferences) Charts(ctx context.Context, viewer ViewerContext) ChartSet {
	return readPreference(ctx, p, viewer, PrefCharts, DefaultChartSet()).Normalize()
}

// AddChart appends a chart copying the main chart's checks.
func (p *Preferences) AddChart(ctx context.Context, viewer ViewerContext) (ChartEntry, error) {
	id, err := p.chartID()
	if err != nil {
		return ChartEntry{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	next := p.Charts(ctx, viewer).Add(id)
	if err := p.write(ctx, viewer, PrefCharts, next); err != nil {
		return ChartEntry{}, err
	}
	return next[len(next)-1], nil
}

// RemoveChart deletes a chart other than main.
func (p *Preferences) RemoveChart(ctx context.Context, viewer ViewerContext, id string) (ChartSet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	next, err := p.Charts(ctx, viewer).Remove(id)
	if err != nil {
		return nil, err
	}
	return next, p.write(ctx, viewer, PrefCharts, next)
}

// UpdateChartChecks replaces the metric checks of a chart.
func (p *Preferences) UpdateChartChecks(ctx context.Context, viewer ViewerContext, id string, checks ChartChecks) (ChartSet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	next, err := p.Charts(ctx, viewer).UpdateChecks(id, checks)
	if err != nil {
		return nil, err
	}
	return next, p.write(ctx, viewer, PrefCharts, next)
}

// ToggleChartMetric flips one checkbox of a chart.
func (p *Preferences) ToggleChartMetric(ctx context.Context, viewer ViewerContext, id string, metric ChartMetric, on bool) (ChartSet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	charts := p.Charts(ctx, viewer)
	entry, ok := charts.Find(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", errUnknownChart, id)
	}
	checks, err := entry.Checks.Toggle(metric, on)
	if err != nil {
		return nil, err
	}
	next, err := charts.UpdateChecks(id, checks)
	if err != nil {
		return nil, err
	}
	return next, p.write(ctx, viewer, PrefCharts, next)
}

// TablePreferences groups the column state of one grid.
type TablePreferences struct {
	Columns ColumnLayout  `json:"columns"`
	Presets []TablePreset `json:"presets"`
}

// PreferenceSnapshot is every typed preference of a viewer.
type PreferenceSnapshot struct {
	Flags       map[string]bool             `json:"flags"`
	TileLayout  TileLayout                  `json:"tileLayout"`
	TilePresets []TilePreset                `json:"tilesPresets"`
	Tables      map[string]TablePreferences `json:"tables"`
	ViewMode    ViewMode                    `json:"detailsViewMode"`
	Charts      ChartSet                    `json:"charts"`
}

// Snapshot reads every typed preference.
func (p *Preferences) Snapshot(ctx context.Context, viewer ViewerContext) PreferenceSnapshot {
	tables := make(map[string]TablePreferences, 2)
	for _, id := range []string{TableDetails, TableContent} {
		tables[id] = TablePreferences{
			Columns: p.ColumnLayout(ctx, viewer, id),
			Presets: p.TablePresets(ctx, viewer, id).Sorted(),
		}
	}
	return PreferenceSnapshot{
		Flags:       p.Flags(ctx, viewer),
		TileLayout:  p.TileLayout(ctx, viewer),
		TilePresets: p.TilePresets(ctx, viewer),
		Tables:      tables,
		ViewMode:    p.ViewMode(ctx, viewer),
		Charts:      p.Charts(ctx, viewer),
	}
}
