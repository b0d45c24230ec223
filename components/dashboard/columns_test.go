package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func columnIDs(cols []ResolvedColumn) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.ID
	}
	return out
}

func TestColumnLayoutResolve(t *testing.T) {
	defs := ContentColumns()
	layout := ResetColumnLayout()
	assert.Equal(t, []string{"asin", "blogger", "date", "campaign", "link"}, columnIDs(layout.Resolve(defs)))

	layout, err := layout.Move(defs, "link", 0)
	require.NoError(t, err)
	layout, err = layout.SetVisible(defs, "date", false)
	require.NoError(t, err)
	layout, err = layout.Resize(defs, "blogger", 400)
	require.NoError(t, err)

	cols := layout.Resolve(defs)
	assert.Equal(t, []string{"link", "asin", "blogger", "campaign"}, columnIDs(cols))
	assert.Equal(t, 400, cols[2].Width)
	assert.Zero(t, cols[0].Width)

	moved, err := layout.Move(defs, "asin", 99)
	require.NoError(t, err)
	assert.Equal(t, "asin", moved.Order[len(moved.Order)-1])

	_, err = layout.Resize(defs, "views", 10)
	assert.ErrorIs(t, err, errUnknownColumn)
	_, err = layout.Move(defs, "views", 0)
	assert.ErrorIs(t, err, errUnknownColumn)
}

func TestColumnLayoutIgnoresStaleOrder(t *testing.T) {
	layout := ColumnLayout{Order: []string{"removed", "campaign", "campaign"}}
	assert.Equal(t, []string{"campaign", "asin", "blogger", "date", "link"}, columnIDs(layout.Resolve(ContentColumns())))
}

func TestDetailColumnsFollowViewMode(t *testing.T) {
	assert.Equal(t, "Product", DetailColumns(ViewModeProduct)[0].Header)
	assert.Equal(t, "Blogger", DetailColumns(ViewModeBlogger)[0].Header)
	_, err := TableColumns("orders", ViewModeProduct)
	assert.Error(t, err)
}

func TestTablePresetsSaveApplyDelete(t *testing.T) {
	now := time.Date(2025, time.October, 15, 9, 0, 0, 0, time.UTC)
	layout := ColumnLayout{Visibility: map[string]bool{"link": false}, Widths: map[string]int{"asin": 150}}

	presets, err := TablePresets{}.Save(" Narrow ", layout, now)
	require.NoError(t, err)
	layout.Visibility["link"] = true
	require.Contains(t, presets, "Narrow")
	assert.False(t, presets["Narrow"].Visibility["link"])
	assert.Equal(t, now.UnixMilli(), presets["Narrow"].Timestamp)

	_, err = presets.Save("  ", layout, now)
	assert.ErrorIs(t, err, ErrEmptyPresetName)

	applied, err := presets.Apply("Narrow")
	require.NoError(t, err)
	assert.Equal(t, "Narrow", applied.Selected)
	assert.Equal(t, 150, applied.Widths["asin"])

	_, err = presets.Apply("Wide")
	assert.Error(t, err)

	next, selected := presets.Delete("Narrow", "Narrow")
	assert.Empty(t, next)
	assert.Empty(t, selected)
	_, selected = presets.Delete("Narrow", "Other")
	assert.Equal(t, "Other", selected)
}

func TestBuildDetailGrid(t *testing.T) {
	rows := DefaultDataset(time.Now()).DetailRows
	grid := BuildDetailGrid(rows, FilterState{}, ViewModeProduct, ResetColumnLayout(), 1, 10)

	assert.Equal(t, TableDetails, grid.TableID)
	require.Len(t, grid.Rows, 4)
	assert.Equal(t, 4, grid.Page.Total)
	second := grid.Rows[1]
	assert.Equal(t, "720° Rotating Faucet Aerator – Splash-proof Smart Filter", second["productOrBlogger"])
	assert.Equal(t, "HVM-70002", second["product_sku"])
	assert.Equal(t, "6.7", second["conversion"])
	assert.Equal(t, "12.64", second["sales"])

	table := grid.Table()
	require.Len(t, table, 4)
	assert.Equal(t, len(grid.Columns), len(table[0]))
	assert.Equal(t, second["productOrBlogger"], table[1][0])

	blogger := BuildDetailGrid(rows, FilterState{Blogger: "Мария Смирнова"}, ViewModeBlogger, ResetColumnLayout(), 1, 10)
	require.Len(t, blogger.Rows, 2)
	assert.Equal(t, "Мария Смирнова", blogger.Rows[0]["productOrBlogger"])
	assert.Equal(t, "Blogger", blogger.Columns[0].Header)
}

func TestBuildContentGridPaginates(t *testing.T) {
	base := time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]ContentRow, 0, 25)
	for i := 0; i < 25; i++ {
		rows = append(rows, ContentRow{Key: string(rune('a' + i)), Date: base.AddDate(0, 0, i), Campaign: "Amazon"})
	}
	grid := BuildContentGrid(rows, FilterState{Campaign: "Amazon"}, ResetColumnLayout(), 3, 10)
	assert.Equal(t, 3, grid.Page.Number)
	require.Len(t, grid.Rows, 5)
	assert.Equal(t, "21.10.2025", grid.Rows[0]["date"])
}
