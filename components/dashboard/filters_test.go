package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestFilterUpdateApply(t *testing.T) {
	period, err := NewDateRange(day(2025, time.October, 1), day(2025, time.October, 2))
	require.NoError(t, err)
	state := FilterState{Campaign: "Amazon", Blogger: "Иван Иванов", DateRange: period}

	next := FilterUpdate{Blogger: strPtr(""), ASIN: strPtr("B0AAA11111")}.Apply(state)
	assert.Equal(t, "Amazon", next.Campaign)
	assert.Empty(t, next.Blogger)
	assert.Equal(t, "B0AAA11111", next.ASIN)
	assert.True(t, next.DateRange.Equal(period))

	cleared := FilterUpdate{ClearDateRange: true}.Apply(next)
	assert.Nil(t, cleared.DateRange)
	assert.False(t, cleared.IsZero())
	assert.True(t, FilterState{}.IsZero())
}

func TestFilterUpdateResolvePreset(t *testing.T) {
	update, err := FilterUpdate{DatePreset: PresetYesterday, ClearDateRange: true}.ResolvePreset(day(2025, time.October, 15), time.Sunday)
	require.NoError(t, err)
	assert.Empty(t, update.DatePreset)
	assert.False(t, update.ClearDateRange)
	assert.Equal(t, day(2025, time.October, 14), update.DateRange.Start)

	_, err = FilterUpdate{DatePreset: "soon"}.ResolvePreset(day(2025, time.October, 15), time.Sunday)
	assert.Error(t, err)
}

func TestFilterUpdateValidate(t *testing.T) {
	ds := DefaultDataset(day(2025, time.October, 15))
	require.NoError(t, FilterUpdate{
		Campaign: strPtr("eBay"),
		Blogger:  strPtr("Мария Смирнова"),
		ASIN:     strPtr("B0CCC33333"),
		Link:     strPtr("https://blog.example.com/post-1"),
	}.Validate(ds))
	require.NoError(t, FilterUpdate{Campaign: strPtr("")}.Validate(ds))

	for name, update := range map[string]FilterUpdate{
		"campaign": {Campaign: strPtr("Etsy")},
		"blogger":  {Blogger: strPtr("Nobody")},
		"asin":     {ASIN: strPtr("B000000000")},
		"link":     {Link: strPtr("https://example.com")},
	} {
		err := update.Validate(ds)
		if !errors.Is(err, ErrUnknownFilterValue) {
			t.Fatalf("%s: expected ErrUnknownFilterValue, got %v", name, err)
		}
	}
	inverted := FilterUpdate{DateRange: &DateRange{Start: day(2025, time.October, 2), End: day(2025, time.October, 1)}}
	assert.ErrorIs(t, inverted.Validate(ds), errInvertedDateRange)
}

func TestInMemoryFilterStoreNotifies(t *testing.T) {
	hook := &collectingHook{}
	store := NewInMemoryFilterStore(hook)
	ctx := context.Background()
	viewer := ViewerContext{UserID: "user-1", Locale: "en"}

	state, err := store.UpdateFilters(ctx, viewer, FilterUpdate{Campaign: strPtr("Amazon")})
	require.NoError(t, err)
	assert.Equal(t, "Amazon", state.Campaign)
	assert.Equal(t, WidgetEvent{Reason: "filters", ViewerID: "user-1"}, hook.last)

	shared, err := store.Filters(ctx, ViewerContext{UserID: "user-1", Locale: "de"})
	require.NoError(t, err)
	assert.Equal(t, "Amazon", shared.Campaign)

	other, err := store.Filters(ctx, ViewerContext{})
	require.NoError(t, err)
	assert.True(t, other.IsZero())

	require.NoError(t, store.ResetFilters(ctx, viewer))
	state, err = store.Filters(ctx, viewer)
	require.NoError(t, err)
	assert.True(t, state.IsZero())
	assert.Equal(t, 2, hook.events)
}

func TestBuildFilterOptions(t *testing.T) {
	now := day(2025, time.October, 15)
	opts := BuildFilterOptions(DefaultDataset(now), now, time.Monday)

	require.Len(t, opts.Campaigns, 3)
	assert.Equal(t, FilterOption{
		Value:  "Amazon",
		Label:  "Amazon",
		Status: "Active",
		Color:  "#00b746",
		Period: "25.09.25 - 25.10.25",
	}, opts.Campaigns[0])
	assert.Equal(t, "#f3af00", opts.Campaigns[1].Color)
	assert.Equal(t, "#8B0000", opts.Campaigns[2].Color)
	assert.Len(t, opts.Bloggers, 2)
	assert.Equal(t, []FilterOption{
		{Value: "B0AAA11111", Label: "B0AAA11111"},
		{Value: "B0BBB22222", Label: "B0BBB22222"},
		{Value: "B0CCC33333", Label: "B0CCC33333"},
		{Value: "B0DDD44444", Label: "B0DDD44444"},
	}, opts.ASINs)
	assert.Len(t, opts.Links, 5)
	assert.Len(t, opts.DatePresets, 8)
}

func TestFilterDetailRowsByViewMode(t *testing.T) {
	rows := DefaultDataset(day(2025, time.October, 15)).DetailRows
	state := FilterState{Blogger: "Иван Иванов", Campaign: "eBay"}

	assert.Len(t, FilterDetailRows(rows, state, ViewModeProduct), 4)
	blogger := FilterDetailRows(rows, state, ViewModeBlogger)
	require.Len(t, blogger, 2)
	assert.Equal(t, "1", blogger[0].Key)
	assert.Equal(t, "3", blogger[1].Key)

	byASIN := FilterDetailRows(rows, FilterState{ASIN: "B0DDD44444"}, ViewModeProduct)
	require.Len(t, byASIN, 1)
	assert.Equal(t, "4", byASIN[0].Key)
}

func TestFilterContentRows(t *testing.T) {
	now := day(2025, time.October, 15)
	rows := DefaultDataset(now).ContentRows

	assert.Len(t, FilterContentRows(rows, FilterState{}), 2)
	assert.Len(t, FilterContentRows(rows, FilterState{Campaign: "Amazon", Link: "https://youtube.com/watch?v=abc123"}), 1)
	assert.Empty(t, FilterContentRows(rows, FilterState{Campaign: "Amazon", Blogger: "Мария Смирнова"}))

	today := &DateRange{Start: now, End: now}
	inRange := FilterContentRows(rows, FilterState{DateRange: today})
	require.Len(t, inRange, 1)
	assert.Equal(t, "c2", inRange[0].Key)
}

func TestParseViewMode(t *testing.T) {
	mode, err := ParseViewMode("")
	require.NoError(t, err)
	assert.Equal(t, ViewModeProduct, mode)

	mode, err = ParseViewMode("blogger")
	require.NoError(t, err)
	assert.Equal(t, ViewModeBlogger, mode)

	_, err = ParseViewMode("asin")
	assert.Error(t, err)
}

func TestPaginate(t *testing.T) {
	empty := Paginate(0, 3, 20)
	assert.Equal(t, 1, empty.Number)
	assert.Equal(t, 1, empty.Pages)
	assert.Equal(t, 0, empty.End)

	p := Paginate(25, 5, 7)
	assert.Equal(t, DefaultPageSize, p.Size)
	assert.Equal(t, 3, p.Pages)
	assert.Equal(t, 3, p.Number)
	assert.Equal(t, 20, p.Offset)
	assert.Equal(t, 25, p.End)

	first := Paginate(25, 0, 20)
	assert.Equal(t, 1, first.Number)
	assert.Equal(t, 20, first.End)
	assert.Equal(t, PageSizes, first.Sizes)
}
