package dashboard

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/ettle/strcase"
	"github.com/shopspring/decimal"
)

// Grid identifiers used in preference keys.
const (
	TableDetails = "details"
	TableContent = "content"
)

var errUnknownColumn = errors.New("dashboard: unknown column")

// ColumnDef describes a grid column.
type ColumnDef struct {
	ID       string `json:"id"`
	Header   string `json:"header"`
	MinWidth int    `json:"min_width"`
	Flex     int    `json:"flex"`
	Pinned   bool   `json:"pinned,omitempty"`
}

// DetailColumns returns the details grid columns for the view mode.
func DetailColumns(mode ViewMode) []ColumnDef {
	first := "Product"
	if mode == ViewModeBlogger {
		first = "Blogger"
	}
	return []ColumnDef{
		{ID: "productOrBlogger", Header: first, MinWidth: 300, Flex: 2, Pinned: true},
		{ID: "orders", Header: "Orders", MinWidth: 80, Flex: 1},
		{ID: "clicks", Header: "Clicks", MinWidth: 80, Flex: 1},
		{ID: "conversion", Header: "Conversion, %", MinWidth: 100, Flex: 1},
		{ID: "rate", Header: "Commission Rate, %", MinWidth: 120, Flex: 1},
		{ID: "margin", Header: "Margin, %", MinWidth: 100, Flex: 1},
		{ID: "spend", Header: "Spend, $", MinWidth: 100, Flex: 1},
		{ID: "promoCosts", Header: "Promotional costs, $", MinWidth: 140, Flex: 1},
		{ID: "sales", Header: "Sales, $", MinWidth: 100, Flex: 1},
		{ID: "profit", Header: "Profit, $", MinWidth: 100, Flex: 1},
	}
}

// ContentColumns returns the content grid columns.
func ContentColumns() []ColumnDef {
	return []ColumnDef{
		{ID: "asin", Header: "ASIN", MinWidth: 100, Flex: 1},
		{ID: "blogger", Header: "Blogger", MinWidth: 120, Flex: 1},
		{ID: "date", Header: "Date", MinWidth: 100, Flex: 1},
		{ID: "campaign", Header: "Campaign", MinWidth: 100, Flex: 1},
		{ID: "link", Header: "Content link", MinWidth: 200, Flex: 2},
	}
}

// TableColumns returns the column set of a grid by id.
func TableColumns(tableID string, mode ViewMode) ([]ColumnDef, error) {
	switch tableID {
	case TableDetails:
		return DetailColumns(mode), nil
	case TableContent:
		return ContentColumns(), nil
	default:
		return nil, fmt.Errorf("%w: unknown table %q", ErrInvalidInput, tableID)
	}
}

// ColumnLayout is the persisted column state of one grid. Columns absent from
// Visibility are visible; an empty Order means definition order.
type ColumnLayout struct {
	Visibility map[string]bool `json:"visibility"`
	Widths     map[string]int  `json:"widths"`
	Order      []string        `json:"order"`
	Selected   string          `json:"selected,omitempty"`
}

func (l ColumnLayout) clone() ColumnLayout {
	out := ColumnLayout{
		Visibility: maps.Clone(l.Visibility),
		Widths:     maps.Clone(l.Widths),
		Order:      slices.Clone(l.Order),
		Selected:   l.Selected,
	}
	if out.Visibility == nil {
		out.Visibility = map[string]bool{}
	}
	if out.Widths == nil {
		out.Widths = map[string]int{}
	}
	return out
}

// IsVisible reports whether column id is shown.
func (l ColumnLayout) IsVisible(id string) bool {
	visible, ok := l.Visibility[id]
	return !ok || visible
}

// SetVisible shows or hides a column.
func (l ColumnLayout) SetVisible(defs []ColumnDef, id string, visible bool) (ColumnLayout, error) {
	if _, ok := findColumn(defs, id); !ok {
		return l, fmt.Errorf("%w: %q", errUnknownColumn, id)
	}
	next := l.clone()
	next.Visibility[id] = visible
	return next, nil
}

// Resize stores a width, clamped to the column's minimum.
func (l ColumnLayout) Resize(defs []ColumnDef, id string, width int) (ColumnLayout, error) {
	def, ok := findColumn(defs, id)
	if !ok {
		return l, fmt.Errorf("%w: %q", errUnknownColumn, id)
	}
	next := l.clone()
	next.Widths[id] = max(width, def.MinWidth)
	return next, nil
}

// Move places column id at index within the full column order.
func (l ColumnLayout) Move(defs []ColumnDef, id string, index int) (ColumnLayout, error) {
	if _, ok := findColumn(defs, id); !ok {
		return l, fmt.Errorf("%w: %q", errUnknownColumn, id)
	}
	next := l.clone()
	order := l.orderedIDs(defs)
	order = slices.DeleteFunc(order, func(c string) bool { return c == id })
	index = max(0, min(index, len(order)))
	next.Order = slices.Insert(order, index, id)
	return next, nil
}

func (l ColumnLayout) orderedIDs(defs []ColumnDef) []string {
	out := make([]string, 0, len(defs))
	for _, id := range l.Order {
		if _, ok := findColumn(defs, id); ok && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	for _, def := range defs {
		if !slices.Contains(out, def.ID) {
			out = append(out, def.ID)
		}
	}
	return out
}

// ResolvedColumn is a visible column ready for rendering. Width is zero when
// the column should size itself by flex.
type ResolvedColumn struct {
	ColumnDef
	Width int `json:"width,omitempty"`
}

// Resolve returns the visible columns in display order.
func (l ColumnLayout) Resolve(defs []ColumnDef) []ResolvedColumn {
	ids := l.orderedIDs(defs)
	out := make([]ResolvedColumn, 0, len(ids))
	for _, id := range ids {
		if !l.IsVisible(id) {
			continue
		}
		def, _ := findColumn(defs, id)
		if def.Header == "" {
			def.Header = strcase.ToCase(def.ID, strcase.TitleCase, ' ')
		}
		out = append(out, ResolvedColumn{ColumnDef: def, Width: l.Widths[id]})
	}
	return out
}

func findColumn(defs []ColumnDef, id string) (ColumnDef, bool) {
	for _, def := range defs {
		if def.ID == id {
			return def, true
		}
	}
	return ColumnDef{}, false
}

// TablePreset is a named column layout.
type TablePreset struct {
	Name       string          `json:"name"`
	Visibility map[string]bool `json:"visibility"`
	Widths     map[string]int  `json:"widths"`
	Order      []string        `json:"order"`
	Timestamp  int64           `json:"timestamp"`
}

// TablePresets are the presets of one grid keyed by name.
type TablePresets map[string]TablePreset

// Sorted returns the presets ordered by save time, then name.
func (p TablePresets) Sorted() []TablePreset {
	out := slices.Collect(maps.Values(p))
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Save stores layout under a trimmed, non-empty name, replacing any preset with the same name.
func (p TablePresets) Save(name string, layout ColumnLayout, now time.Time) (TablePresets, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return p, ErrEmptyPresetName
	}
	next := maps.Clone(p)
	if next == nil {
		next = TablePresets{}
	}
	snapshot := layout.clone()
	next[name] = TablePreset{
		Name:       name,
		Visibility: snapshot.Visibility,
		Widths:     snapshot.Widths,
		Order:      snapshot.Order,
		Timestamp:  now.UnixMilli(),
	}
	return next, nil
}

// Delete removes a preset and returns the selection to keep; the selection is
// cleared when it named the deleted preset.
func (p TablePresets) Delete(name, selected string) (TablePresets, string) {
	next := maps.Clone(p)
	delete(next, name)
	if selected == name {
		selected = ""
	}
	return next, selected
}

// Apply returns the layout stored under name.
func (p TablePresets) Apply(name string) (ColumnLayout, error) {
	preset, ok := p[name]
	if !ok {
		return ColumnLayout{}, fmt.Errorf("%w: table preset %q", ErrNotFound, name)
	}
	layout := ColumnLayout{
		Visibility: preset.Visibility,
		Widths:     preset.Widths,
		Order:      preset.Order,
	}.clone()
	layout.Selected = name
	return layout, nil
}

// ResetColumnLayout is the default layout: every column visible, no widths,
// definition order, no preset selected.
func ResetColumnLayout() ColumnLayout {
	return ColumnLayout{Visibility: map[string]bool{}, Widths: map[string]int{}}
}

// GridView is a rendered page of a grid.
type GridView struct {
	TableID string              `json:"table_id"`
	Columns []ResolvedColumn    `json:"columns"`
	Rows    []map[string]string `json:"rows"`
	Page    Page                `json:"page"`
	Mode    ViewMode            `json:"view_mode,omitempty"`
}

// Table returns the row cells in column order.
func (g GridView) Table() [][]string {
	out := make([][]string, len(g.Rows))
	for i, row := range g.Rows {
		cells := make([]string, len(g.Columns))
		for j, col := range g.Columns {
			cells[j] = row[col.ID]
		}
		out[i] = cells
	}
	return out
}

// BuildDetailGrid filters, paginates and formats the details grid.
func BuildDetailGrid(rows []DetailRow, state FilterState, mode ViewMode, layout ColumnLayout, page, size int) GridView {
	filtered := FilterDetailRows(rows, state, mode)
	p := Paginate(len(filtered), page, size)
	cells := make([]map[string]string, 0, p.End-p.Offset)
	for _, row := range filtered[p.Offset:p.End] {
		cells = append(cells, DetailCells(row, mode))
	}
	return GridView{
		TableID: TableDetails,
		Columns: layout.Resolve(DetailColumns(mode)),
		Rows:    cells,
		Page:    p,
		Mode:    mode,
	}
}

// BuildContentGrid filters, paginates and formats the content grid.
func BuildContentGrid(rows []ContentRow, state FilterState, layout ColumnLayout, page, size int) GridView {
	filtered := FilterContentRows(rows, state)
	p := Paginate(len(filtered), page, size)
	cells := make([]map[string]string, 0, p.End-p.Offset)
	for _, row := range filtered[p.Offset:p.End] {
		cells = append(cells, ContentCells(row))
	}
	return GridView{
		TableID: TableContent,
		Columns: layout.Resolve(ContentColumns()),
		Rows:    cells,
		Page:    p,
	}
}

// DetailCells formats one details row keyed by column id. Product mode adds
// the parsed product parts under product_* keys.
func DetailCells(row DetailRow, mode ViewMode) map[string]string {
	cells := map[string]string{
		"key":        row.Key,
		"orders":     FormatCount(int64(row.Orders)),
		"clicks":     FormatCount(int64(row.Clicks)),
		"conversion": formatFloat(row.Conversion, 1),
		"rate":       formatFloat(row.Rate, 0),
		"margin":     formatFloat(row.Margin, 0),
		"spend":      FormatAmount(decimal.NewFromFloat(row.Spend)),
		"promoCosts": FormatAmount(decimal.NewFromFloat(row.PromoCosts)),
		"sales":      FormatAmount(decimal.NewFromFloat(row.Sales)),
		"profit":     FormatAmount(decimal.NewFromFloat(row.Profit)),
	}
	if mode == ViewModeBlogger {
		cells["productOrBlogger"] = row.Blogger
		return cells
	}
	info := ParseProduct(row.Product)
	cells["productOrBlogger"] = info.Name
	cells["product_asin"] = info.ASIN
	cells["product_sku"] = info.SKU
	cells["product_image"] = row.Image
	return cells
}

// ContentCells formats one content row keyed by column id.
func ContentCells(row ContentRow) map[string]string {
	return map[string]string{
		"key":      row.Key,
		"asin":     row.ASIN,
		"blogger":  row.Blogger,
		"date":     row.Date.Format("02.01.2006"),
		"campaign": row.Campaign,
		"link":     row.Link,
	}
}
