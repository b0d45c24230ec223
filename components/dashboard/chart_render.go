package dashboard

import (
	"bytes"
	"io"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

const defaultChartHeight = "360px"

// ChartRenderer turns ChartData into server-side go-echarts HTML.
type ChartRenderer struct {
	cache      RenderCache
	theme      string
	assetsHost string
	height     string
}

// ChartRendererOption customizes the renderer.
type ChartRendererOption func(*ChartRenderer)

// WithRenderCache injects a render cache; nil disables caching.
func WithRenderCache(cache RenderCache) ChartRendererOption {
	return func(r *ChartRenderer) {
		r.cache = cache
	}
}

// WithChartTheme sets the echarts theme (defaults to Westeros).
func WithChartTheme(theme string) ChartRendererOption {
	return func(r *ChartRenderer) {
		if theme != "" {
			r.theme = theme
		}
	}
}

// WithChartAssetsHost rewrites the assets host so ECharts JS loads from a CDN.
func WithChartAssetsHost(host string) ChartRendererOption {
	return func(r *ChartRenderer) {
		r.assetsHost = host
	}
}

// WithChartHeight sets the CSS height of rendered charts.
func WithChartHeight(height string) ChartRendererOption {
	return func(r *ChartRenderer) {
		if height != "" {
			r.height = height
		}
	}
}

// NewChartRenderer builds a renderer.
func NewChartRenderer(options ...ChartRendererOption) *ChartRenderer {
	r := &ChartRenderer{
		theme:  types.ThemeWesteros,
		height: defaultChartHeight,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// With returns a copy of the renderer with extra options applied. The copy
// shares the render cache.
func (r *ChartRenderer) With(options ...ChartRendererOption) *ChartRenderer {
	next := *r
	for _, opt := range options {
		opt(&next)
	}
	return &next
}

// Render draws every series as bars overlapped by lines sharing the
// configured axes. Output is cached by the chart content.
func (r *ChartRenderer) Render(data ChartData) (string, error) {
	render := func() (string, error) {
		return renderChart(r.build(data))
	}
	if r.cache == nil {
		return render()
	}
	key := "chart:" + data.ID + ":" + r.theme + ":" + r.height + ":" + configHash(data)
	return r.cache.GetOrRender(key, render)
}

func (r *ChartRenderer) build(data ChartData) *charts.Bar {
	legend := make([]string, 0, len(data.Series))
	for _, s := range data.LineSeries() {
		legend = append(legend, s.Name)
	}

	initOpts := opts.Initialization{
		Theme:   r.theme,
		Width:   "100%",
		Height:  r.height,
		ChartID: chartDOMID(data.ID),
	}
	if r.assetsHost != "" {
		initOpts.AssetsHost = r.assetsHost
	}

	bar := charts.NewBar()
	global := []charts.GlobalOpts{
		charts.WithInitializationOpts(initOpts),
		charts.WithTitleOpts(opts.Title{Title: data.Title}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Data: legend}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Date"}),
	}
	if len(data.Axes) > 0 {
		global = append(global, charts.WithYAxisOpts(yAxisOpts(data.Axes[0])))
	}
	bar.SetGlobalOptions(global...)
	bar.SetXAxis(data.Labels)

	for _, axis := range data.Axes[min(1, len(data.Axes)):] {
		bar.ExtendYAxis(yAxisOpts(axis))
	}

	for _, s := range data.Series {
		style := charts.WithItemStyleOpts(opts.ItemStyle{Color: s.Color})
		if s.Bar {
			bar.AddSeries(s.Name, barData(s.Values), charts.WithBarChartOpts(opts.BarChart{YAxisIndex: s.Axis}), style)
			continue
		}
		line := charts.NewLine()
		line.SetXAxis(data.Labels)
		line.AddSeries(s.Name, lineData(s.Values),
			charts.WithLineChartOpts(opts.LineChart{YAxisIndex: s.Axis, Smooth: opts.Bool(true)}),
			style,
		)
		bar.Overlap(line)
	}
	return bar
}

// yAxisOpts maps a ChartAxis onto go-echarts options. Percent axes draw
// their labels inside the grid so they never share a gutter with the count
// axis on the same side.
func yAxisOpts(axis ChartAxis) opts.YAxis {
	y := opts.YAxis{
		Name:     axis.Name,
		Type:     "value",
		Show:     opts.Bool(axis.Show),
		Position: axis.Position,
	}
	if axis.Format == "percent" {
		y.NameLocation = "end"
		y.AxisLabel = &opts.AxisLabel{Inside: opts.Bool(true), Formatter: "{value}%"}
	}
	return y
}

func barData(values []float64) []opts.BarData {
	out := make([]opts.BarData, len(values))
	for i, v := range values {
		out[i] = opts.BarData{Value: v}
	}
	return out
}

func lineData(values []float64) []opts.LineData {
	out := make([]opts.LineData, len(values))
	for i, v := range values {
		out[i] = opts.LineData{Value: v}
	}
	return out
}

func chartDOMID(id string) string {
	return "campaign_chart_" + strings.NewReplacer("-", "_", ".", "_").Replace(id)
}

func renderChart(renderable interface{ Render(io.Writer) error }) (string, error) {
	var buf bytes.Buffer
	if err := renderable.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
