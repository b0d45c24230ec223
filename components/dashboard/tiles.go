package dashboard

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrEmptyPresetName is returned when a preset is saved without a name.
var ErrEmptyPresetName = errors.New("dashboard: preset name is required")

// ErrUnknownMetric is returned for tile or chart keys that are not metrics.
var ErrUnknownMetric = errors.New("dashboard: unknown metric")

const (
	tileColorUp   = "#00b746"
	tileColorDown = "#dd0404"
)

// DefaultMetrics is the canonical tile order of the demo snapshots.
var DefaultMetrics = []string{
	MetricSpend, MetricClicks, MetricOrders, MetricSales,
	MetricConversion, MetricCommissionRate, MetricProfit, MetricPromotionalCosts,
}

// AllMetrics returns the canonical tile order.
func AllMetrics(snapshot MetricSnapshot) []string {
	return snapshot.Names()
}

// TileLayout is the persisted tile visibility and order.
type TileLayout struct {
	VisibleTiles []string `json:"visibleTiles"`
	TileOrder    []string `json:"tileOrder"`
}

// DefaultTileLayout shows every metric in canonical order.
func DefaultTileLayout(all []string) TileLayout {
	return TileLayout{
		VisibleTiles: slices.Clone(all),
		TileOrder:    slices.Clone(all),
	}
}

// IsVisible reports whether key is shown.
func (l TileLayout) IsVisible(key string) bool {
	return slices.Contains(l.VisibleTiles, key)
}

// VisibleOrdered returns the visible tiles in display order.
func (l TileLayout) VisibleOrdered() []string {
	out := make([]string, 0, len(l.VisibleTiles))
	for _, key := range l.TileOrder {
		if l.IsVisible(key) && !slices.Contains(out, key) {
			out = append(out, key)
		}
	}
	for _, key := range l.VisibleTiles {
		if !slices.Contains(out, key) {
			out = append(out, key)
		}
	}
	return out
}

// ToggleTile shows or hides key and resets the order to the canonical order
// of the visible tiles.
func ToggleTile(layout TileLayout, key string, on bool, all []string) (TileLayout, error) {
	if !slices.Contains(all, key) {
		return layout, fmt.Errorf("%w: %q", ErrUnknownMetric, key)
	}
	visible := slices.DeleteFunc(slices.Clone(layout.VisibleTiles), func(k string) bool { return k == key })
	if on {
		visible = append(visible, key)
	}
	order := make([]string, 0, len(visible))
	for _, m := range all {
		if slices.Contains(visible, m) {
			order = append(order, m)
		}
	}
	return TileLayout{VisibleTiles: visible, TileOrder: order}, nil
}

// MoveTile drops the visible tile from onto the position of the visible tile
// to. Hidden tiles keep their relative order at the end.
func MoveTile(layout TileLayout, from, to string) TileLayout {
	if from == to {
		return layout
	}
	current := make([]string, 0, len(layout.TileOrder))
	hidden := make([]string, 0)
	for _, key := range layout.TileOrder {
		if layout.IsVisible(key) {
			current = append(current, key)
		} else {
			hidden = append(hidden, key)
		}
	}
	fromIdx := slices.Index(current, from)
	toIdx := slices.Index(current, to)
	if fromIdx == -1 || toIdx == -1 {
		return layout
	}
	moved := current[fromIdx]
	current = slices.Delete(current, fromIdx, fromIdx+1)
	current = slices.Insert(current, toIdx, moved)
	return TileLayout{
		VisibleTiles: slices.Clone(layout.VisibleTiles),
		TileOrder:    append(current, hidden...),
	}
}

// MetricTile is a rendered tile.
type MetricTile struct {
	Key       string `json:"key"`
	Title     string `json:"title"`
	Display   string `json:"display"`
	Diff      string `json:"diff,omitempty"`
	Direction string `json:"direction,omitempty"`
	Arrow     string `json:"arrow,omitempty"`
	Color     string `json:"color,omitempty"`
}

// BuildTiles renders the visible tiles comparing current against previous.
func BuildTiles(current, previous MetricSnapshot, layout TileLayout) []MetricTile {
	keys := layout.VisibleOrdered()
	tiles := make([]MetricTile, 0, len(keys))
	for _, key := range keys {
		value, ok := current.Get(key)
		if !ok {
			continue
		}
		tile := MetricTile{Key: key, Title: key, Display: displayMetric(key, value)}
		prev, _ := previous.Get(key)
		cur, curOK := value.Float()
		old, oldOK := prev.Float()
		if curOK && oldOK {
			diff := decimal.NewFromFloat(cur).Sub(decimal.NewFromFloat(old))
			tile.Diff = FormatAmount(diff.Abs())
			if diff.IsNegative() {
				tile.Direction, tile.Arrow, tile.Color = "down", "↓", tileColorDown
			} else {
				tile.Direction, tile.Arrow, tile.Color = "up", "↑", tileColorUp
			}
		}
		tiles = append(tiles, tile)
	}
	return tiles
}

func displayMetric(key string, value MetricValue) string {
	f, ok := value.Float()
	if !ok {
		return value.Text
	}
	if key == MetricClicks || key == MetricOrders {
		return FormatCount(decimal.NewFromFloat(f).Round(0).IntPart())
	}
	return FormatMoney(decimal.NewFromFloat(f))
}

// TilePreset is a named tile layout.
type TilePreset struct {
	Name         string   `json:"name"`
	VisibleTiles []string `json:"visibleTiles"`
	TileOrder    []string `json:"tileOrder"`
}

// Layout returns the preset as a TileLayout.
func (p TilePreset) Layout() TileLayout {
	return TileLayout{VisibleTiles: slices.Clone(p.VisibleTiles), TileOrder: slices.Clone(p.TileOrder)}
}

// SaveTilePreset appends the current layout under a trimmed, non-empty name.
func SaveTilePreset(presets []TilePreset, name string, layout TileLayout) ([]TilePreset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return presets, ErrEmptyPresetName
	}
	next := slices.Clone(presets)
	return append(next, TilePreset{
		Name:         name,
		VisibleTiles: slices.Clone(layout.VisibleTiles),
		TileOrder:    slices.Clone(layout.TileOrder),
	}), nil
}

// DeleteTilePreset removes the preset at index.
func DeleteTilePreset(presets []TilePreset, index int) ([]TilePreset, error) {
	if index < 0 || index >= len(presets) {
		return presets, fmt.Errorf("%w: tile preset index %d out of range", ErrInvalidInput, index)
	}
	next := slices.Clone(presets)
	return slices.Delete(next, index, index+1), nil
}
