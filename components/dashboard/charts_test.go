package dashboard

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChartChecksToggle(t *testing.T) {
	checks := DefaultChartChecks()
	none, err := checks.Toggle(ChartNone, true)
	require.NoError(t, err)
	assert.Equal(t, ChartChecks{None: true}, none)

	cleared, err := checks.Toggle(ChartNone, false)
	require.NoError(t, err)
	assert.Equal(t, ChartChecks{}, cleared)
	assert.Empty(t, UnifiedChart(MainChartID, cleared, []string{"01.10"}).Series)

	spend, err := none.Toggle(ChartSpend, true)
	require.NoError(t, err)
	assert.True(t, spend.Spend)
	assert.False(t, spend.None)

	off, err := checks.Toggle(ChartClicks, false)
	require.NoError(t, err)
	assert.False(t, off.Enabled(ChartClicks))
	assert.True(t, off.Enabled(ChartOrders))

	_, err = checks.Toggle("impressions", true)
	assert.ErrorIs(t, err, ErrUnknownMetric)
}

func TestUnifiedAxes(t *testing.T) {
	axes := UnifiedAxes(ChartChecks{Conversion: true})
	assert.False(t, axes[AxisLeft].Show)
	assert.False(t, axes[AxisRight].Show)
	assert.True(t, axes[AxisPercent].Show)

	axes = UnifiedAxes(ChartChecks{Clicks: true, Conversion: true, Profit: true})
	assert.True(t, axes[AxisLeft].Show)
	assert.True(t, axes[AxisRight].Show)
	assert.False(t, axes[AxisPercent].Show)
}

func TestUnifiedChartSeries(t *testing.T) {
	labels := []string{"01.10", "02.10", "03.10", "04.10"}
	data := UnifiedChart(MainChartID, ChartChecks{Spend: true, Orders: true, Conversion: true}, labels)

	assert.Equal(t, "Unified Metrics Chart", data.Title)
	require.Len(t, data.Series, 6)
	lines := data.LineSeries()
	require.Len(t, lines, 3)
	assert.Equal(t, AxisLeft, lines[0].Axis)
	assert.Equal(t, AxisRight, lines[1].Axis)
	assert.Equal(t, AxisPercent, lines[2].Axis)
	for _, s := range data.Series {
		assert.Len(t, s.Values, len(labels))
	}
	assert.Equal(t, data.Series[0].Values, data.Series[1].Values)

	again := UnifiedChart(MainChartID, ChartChecks{Spend: true, Orders: true, Conversion: true}, labels)
	assert.Equal(t, data.Series, again.Series)

	other := UnifiedChart("chart-x", ChartChecks{Spend: true}, labels)
	assert.Equal(t, "Chart chart-x", other.Title)
	assert.NotEqual(t, data.Series[0].Values, other.Series[0].Values)

	assert.Empty(t, UnifiedChart(MainChartID, ChartChecks{None: true}, labels).Series)
}

func TestGenerateSeriesBounds(t *testing.T) {
	labels := make([]string, 14)
	spec := SeriesSpec{Base: 100, Volatility: 0.2, Decimals: 1}
	values := GenerateSeries(spec, labels, rand.New(rand.NewPCG(1, 2)))
	require.Len(t, values, 14)
	for i, v := range values {
		// trend ±0.1, noise ±0.1, weekend -0.1..+0.05
		assert.GreaterOrEqual(t, v, 70.0, i)
		assert.LessOrEqual(t, v, 125.0, i)
	}

	zero := GenerateSeries(SeriesSpec{Base: 0, Volatility: 1}, labels, rand.New(rand.NewPCG(1, 2)))
	for _, v := range zero {
		assert.Zero(t, v)
	}
}

func TestLegacyCharts(t *testing.T) {
	labels := []string{"01.10", "02.10"}
	current := DefaultDataset(day(2025, 10, 15)).Current

	perf := PerformanceChart("performance", ChartChecks{Spend: true, Orders: true}, current, labels)
	assert.True(t, perf.Axes[1].Show)
	lines := perf.LineSeries()
	require.Len(t, lines, 2)
	assert.Equal(t, AxisRight, lines[1].Axis)

	ordersOnly := PerformanceChart("performance", ChartChecks{Orders: true}, current, labels)
	assert.False(t, ordersOnly.Axes[1].Show)
	assert.Equal(t, AxisLeft, ordersOnly.LineSeries()[0].Axis)

	engagement := EngagementChart("engagement", ChartChecks{Conversion: true}, labels)
	assert.False(t, engagement.Axes[0].Show)
	assert.Equal(t, AxisLeft, engagement.LineSeries()[0].Axis)

	both := EngagementChart("engagement", ChartChecks{Clicks: true, Conversion: true}, labels)
	assert.Equal(t, AxisRight, both.LineSeries()[1].Axis)
}

func TestChartSet(t *testing.T) {
	set := ChartSet{{ID: "chart-a"}, {ID: MainChartID, Checks: ChartChecks{Profit: true}}}.Normalize()
	require.Len(t, set, 2)
	assert.Equal(t, MainChartID, set[0].ID)

	assert.Equal(t, MainChartID, ChartSet{{ID: "chart-b"}}.Normalize()[0].ID)

	set = set.Add("chart-c")
	added, ok := set.Find("chart-c")
	require.True(t, ok)
	assert.Equal(t, ChartChecks{Profit: true}, added.Checks)

	_, err := set.Remove(MainChartID)
	assert.ErrorIs(t, err, ErrMainChartRequired)
	_, err = set.Remove("chart-z")
	assert.ErrorIs(t, err, errUnknownChart)

	set, err = set.UpdateChecks("chart-a", ChartChecks{Clicks: true})
	require.NoError(t, err)
	a, _ := set.Find("chart-a")
	assert.True(t, a.Checks.Clicks)

	set, err = set.Remove("chart-a")
	require.NoError(t, err)
	assert.Len(t, set, 2)
}

func TestNewChartID(t *testing.T) {
	first, err := NewChartID()
	require.NoError(t, err)
	second, err := NewChartID()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first, "chart-"))
	assert.Len(t, first, len("chart-")+10)
	assert.NotEqual(t, first, second)
}
