package dashboard

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCache struct {
	calls int
	store map[string]string
}

func (c *countingCache) GetOrRender(key string, render func() (string, error)) (string, error) {
	if c.store == nil {
		c.store = map[string]string{}
	}
	if html, ok := c.store[key]; ok {
		return html, nil
	}
	c.calls++
	html, err := render()
	if err != nil {
		return "", err
	}
	c.store[key] = html
	return html, nil
}

func TestChartCacheStoresEntry(t *testing.T) {
	cache := NewChartCache(time.Minute)
	calls := 0
	render := func() (string, error) {
		calls++
		return "html", nil
	}

	val1, err := cache.GetOrRender("key", render)
	require.NoError(t, err)
	val2, err := cache.GetOrRender("key", render)
	require.NoError(t, err)

	assert.Equal(t, "html", val1)
	assert.Equal(t, val1, val2)
	assert.Equal(t, 1, calls)
}

func TestChartCacheExpiresAndPurges(t *testing.T) {
	cache := NewChartCache(2 * time.Millisecond)
	calls := 0
	render := func() (string, error) {
		calls++
		return "fresh", nil
	}

	_, err := cache.GetOrRender("key", render)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 1, cache.Purge())
	_, err = cache.GetOrRender("key", render)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
}

func TestChartCacheDoesNotStoreErrors(t *testing.T) {
	cache := NewChartCache(time.Minute)
	_, err := cache.GetOrRender("key", func() (string, error) { return "", errors.New("boom") })
	require.Error(t, err)
	html, err := cache.GetOrRender("key", func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", html)

	var disabled *ChartCache
	assert.Equal(t, 0, disabled.Purge())
}

func TestFreeCacheRenderCache(t *testing.T) {
	cache := NewFreeCacheRenderCache(1, time.Minute, nil)
	calls := 0
	render := func() (string, error) {
		calls++
		return "<div>chart</div>", nil
	}
	for i := 0; i < 3; i++ {
		html, err := cache.GetOrRender("chart:main", render)
		require.NoError(t, err)
		assert.Equal(t, "<div>chart</div>", html)
	}
	assert.Equal(t, 1, calls)
	assert.Equal(t, int64(1), cache.EntryCount())
}

func TestFreeCacheRenderCacheRecordsOversizedEntries(t *testing.T) {
	telemetry := &recordingTelemetry{}
	cache := NewFreeCacheRenderCache(1, time.Minute, telemetry)
	calls := 0
	large := strings.Repeat("x", 4096)
	render := func() (string, error) {
		calls++
		return large, nil
	}
	for i := 0; i < 2; i++ {
		html, err := cache.GetOrRender("chart:large", render)
		require.NoError(t, err)
		assert.Equal(t, large, html)
	}
	assert.Equal(t, 2, calls)
	assert.Equal(t, int64(0), cache.EntryCount())
	assert.Equal(t, []string{"dashboard.render_cache.store_error", "dashboard.render_cache.store_error"}, telemetry.events)
}

func TestChartRendererProducesEChartsHTML(t *testing.T) {
	renderer := NewChartRenderer(WithChartHeight("240px"))
	data := UnifiedChart("chart-ab12", DefaultChartChecks(), []string{"01.10", "02.10", "03.10"})

	html, err := renderer.Render(data)
	require.NoError(t, err)
	assert.Contains(t, html, "echarts")
	assert.Contains(t, html, "campaign_chart_chart_ab12")
	assert.Contains(t, html, "240px")
}

func TestYAxisOptsKeepsPercentLabelsInside(t *testing.T) {
	axes := UnifiedAxes(ChartChecks{Spend: true, Conversion: true})
	require.Len(t, axes, 3)

	money := yAxisOpts(axes[AxisLeft])
	assert.Equal(t, "left", money.Position)
	assert.Nil(t, money.AxisLabel)

	percent := yAxisOpts(axes[AxisPercent])
	assert.Equal(t, "right", percent.Position)
	require.NotNil(t, percent.AxisLabel)
	assert.Equal(t, true, *percent.AxisLabel.Inside)
	assert.Equal(t, "{value}%", string(percent.AxisLabel.Formatter))

	html, err := NewChartRenderer().Render(UnifiedChart(MainChartID, ChartChecks{Spend: true, Conversion: true}, []string{"01.10"}))
	require.NoError(t, err)
	assert.Contains(t, html, "{value}%")
}

func TestChartRendererUsesCache(t *testing.T) {
	cache := &countingCache{}
	renderer := NewChartRenderer(WithRenderCache(cache))
	data := EngagementChart("engagement", DefaultChartChecks(), []string{"01.10"})

	first, err := renderer.Render(data)
	require.NoError(t, err)
	second, err := renderer.Render(data)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, cache.calls)

	_, err = renderer.With(WithChartTheme("walden")).Render(data)
	require.NoError(t, err)
	assert.Equal(t, 2, cache.calls)
}

func TestConfigHash(t *testing.T) {
	assert.Equal(t, "empty", configHash(nil))
	assert.Equal(t, "empty", configHash(map[string]any{}))
	assert.Equal(t, configHash(map[string]any{"a": 1}), configHash(map[string]any{"a": 1}))
	assert.NotEqual(t, configHash(map[string]any{"a": 1}), configHash(map[string]any{"a": 2}))
}
