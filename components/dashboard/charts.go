package dashboard

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"slices"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// MainChartID is the unified chart that always exists.
const MainChartID = "main"

const chartIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// ErrMainChartRequired is returned when removing the main chart.
var ErrMainChartRequired = errors.New("dashboard: the main chart cannot be removed")

var errUnknownChart = errors.New("dashboard: unknown chart")

// ChartMetric is a metric a chart can plot.
type ChartMetric string

const (
	ChartSpend      ChartMetric = "spend"
	ChartProfit     ChartMetric = "profit"
	ChartOrders     ChartMetric = "orders"
	ChartClicks     ChartMetric = "clicks"
	ChartConversion ChartMetric = "conversion"
	ChartNone       ChartMetric = "none"
)

// ChartChecks are the metric checkboxes of a chart.
type ChartChecks struct {
	Spend      bool `json:"spend"`
	Profit     bool `json:"profit"`
	Orders     bool `json:"orders"`
	Clicks     bool `json:"clicks"`
	Conversion bool `json:"conversion"`
	None       bool `json:"none"`
}

// DefaultChartChecks enables every metric.
func DefaultChartChecks() ChartChecks {
	return ChartChecks{Spend: true, Profit: true, Orders: true, Clicks: true, Conversion: true}
}

// Enabled reports whether metric is checked.
func (c ChartChecks) Enabled(metric ChartMetric) bool {
	switch metric {
	case ChartSpend:
		return c.Spend
	case ChartProfit:
		return c.Profit
	case ChartOrders:
		return c.Orders
	case ChartClicks:
		return c.Clicks
	case ChartConversion:
		return c.Conversion
	case ChartNone:
		return c.None
	default:
		return false
	}
}

// Toggle sets one checkbox. Checking a metric clears None; toggling None
// either way clears every metric.
func (c ChartChecks) Toggle(metric ChartMetric, on bool) (ChartChecks, error) {
	switch metric {
	case ChartSpend:
		c.Spend = on
	case ChartProfit:
		c.Profit = on
	case ChartOrders:
		c.Orders = on
	case ChartClicks:
		c.Clicks = on
	case ChartConversion:
		c.Conversion = on
	case ChartNone:
		return ChartChecks{None: on}, nil
	default:
		return c, fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
	}
	if on {
		c.None = false
	}
	return c, nil
}

// Axis indexes shared by the chart builders.
const (
	AxisLeft    = 0
	AxisRight   = 1
	AxisPercent = 2
)

// ChartAxis is a y axis of a chart.
type ChartAxis struct {
	Name     string `json:"name"`
	Show     bool   `json:"show"`
	Position string `json:"position"`
	Format   string `json:"format"`
}

// Series is one plotted data set. Bar series mirror a line series and are
// hidden from the legend and tooltip.
type Series struct {
	Name   string      `json:"name"`
	Metric ChartMetric `json:"metric"`
	Color  string      `json:"color"`
	Axis   int         `json:"axis"`
	Bar    bool        `json:"bar"`
	Values []float64   `json:"values"`
}

// ChartData is a chart ready for rendering.
type ChartData struct {
	ID     string      `json:"id"`
	Title  string      `json:"title"`
	Labels []string    `json:"labels"`
	Axes   []ChartAxis `json:"axes"`
	Series []Series    `json:"series"`
}

// LineSeries returns the non-bar series.
func (d ChartData) LineSeries() []Series {
	return slices.DeleteFunc(slices.Clone(d.Series), func(s Series) bool { return s.Bar })
}

// SeriesSpec parameterizes the synthetic daily generator.
type SeriesSpec struct {
	Metric     ChartMetric
	Name       string
	Base       float64
	Color      string
	Volatility float64
	Percent    bool
	// Decimals is the rounding precision; negative leaves values unrounded.
	Decimals int
}

// GenerateSeries produces one value per label:
// max(0, base*(1 + sin(i/n*2π)*0.1 + (r-0.5)*volatility + weekend)),
// where weekend is -0.1 for i%7 in {0,6} and +0.05 otherwise.
func GenerateSeries(spec SeriesSpec, labels []string, rng *rand.Rand) []float64 {
	n := len(labels)
	values := make([]float64, n)
	for i := range labels {
		trend := math.Sin(float64(i)/float64(n)*math.Pi*2) * 0.1
		random := (rng.Float64() - 0.5) * spec.Volatility
		weekend := 0.05
		if d := i % 7; d == 0 || d == 6 {
			weekend = -0.1
		}
		v := math.Max(0, spec.Base*(1+trend+random+weekend))
		if spec.Decimals >= 0 {
			scale := math.Pow(10, float64(spec.Decimals))
			v = math.Round(v*scale) / scale
		}
		values[i] = v
	}
	return values
}

// seededRand derives a deterministic generator from the chart identity so
// repeated renders of the same chart and range produce the same series.
func seededRand(parts ...string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(strings.Join(parts, "\x00")))
	sum := h.Sum64()
	return rand.New(rand.NewPCG(sum, sum>>1|1))
}

func seriesPair(chartID string, spec SeriesSpec, labels []string, axis int) []Series {
	rng := seededRand(chartID, string(spec.Metric), strings.Join(labels, ","))
	values := GenerateSeries(spec, labels, rng)
	return []Series{
		{Name: spec.Name + " bars", Metric: spec.Metric, Color: spec.Color, Axis: axis, Bar: true, Values: values},
		{Name: spec.Name, Metric: spec.Metric, Color: spec.Color, Axis: axis, Values: slices.Clone(values)},
	}
}

var unifiedSpecs = []SeriesSpec{
	{Metric: ChartSpend, Name: "Spend", Base: 500, Color: "#1890ff", Volatility: 0.2},
	{Metric: ChartProfit, Name: "Profit", Base: 200, Color: "#52c41a", Volatility: 0.25},
	{Metric: ChartOrders, Name: "Orders", Base: 15, Color: "#fa8c16", Volatility: 0.3},
	{Metric: ChartClicks, Name: "Clicks", Base: 100, Color: "#722ed1", Volatility: 0.2},
	{Metric: ChartConversion, Name: "Conversion", Base: 15, Color: "#eb2f96", Volatility: 0.15, Percent: true, Decimals: 1},
}

// UnifiedAxes reports which axes of the unified chart are displayed.
func UnifiedAxes(checks ChartChecks) []ChartAxis {
	money := checks.Spend || checks.Profit
	count := checks.Orders || checks.Clicks
	return []ChartAxis{
		{Name: "Spend & Profit ($)", Show: money, Position: "left", Format: "money"},
		{Name: "Orders & Clicks", Show: count, Position: "right", Format: "count"},
		{Name: "Conversion (%)", Show: checks.Conversion && !count, Position: "right", Format: "percent"},
	}
}

// ChartTitle returns the heading of a unified chart.
func ChartTitle(id string) string {
	if id == MainChartID {
		return "Unified Metrics Chart"
	}
	return "Chart " + id
}

// UnifiedChart builds the multi-metric chart: money on the left axis, counts
// on the right axis and conversion on the percent axis.
func UnifiedChart(id string, checks ChartChecks, labels []string) ChartData {
	data := ChartData{
		ID:     id,
		Title:  ChartTitle(id),
		Labels: slices.Clone(labels),
		Axes:   UnifiedAxes(checks),
	}
	for _, spec := range unifiedSpecs {
		if !checks.Enabled(spec.Metric) {
			continue
		}
		axis := AxisLeft
		switch spec.Metric {
		case ChartOrders, ChartClicks:
			axis = AxisRight
		case ChartConversion:
			axis = AxisPercent
		}
		data.Series = append(data.Series, seriesPair(id, spec, labels, axis)...)
	}
	return data
}

// PerformanceChart plots spend, profit and orders around the current
// snapshot values. Orders move to the right axis only when money metrics are
// also selected.
func PerformanceChart(id string, checks ChartChecks, current MetricSnapshot, labels []string) ChartData {
	money := checks.Spend || checks.Profit
	count := checks.Orders
	both := money && count
	data := ChartData{
		ID:     id,
		Title:  "Performance",
		Labels: slices.Clone(labels),
		Axes: []ChartAxis{
			{Name: "$", Show: money || !count, Position: "left", Format: "money"},
			{Name: "Orders", Show: both, Position: "right", Format: "count"},
		},
	}
	specs := []SeriesSpec{
		{Metric: ChartSpend, Name: "Spend", Base: snapshotNumber(current, MetricSpend), Color: "#1f77b4", Volatility: 0.2, Decimals: 2},
		{Metric: ChartProfit, Name: "Profit", Base: snapshotNumber(current, MetricProfit), Color: "#ff7f0e", Volatility: 0.25, Decimals: 2},
		{Metric: ChartOrders, Name: "Orders", Base: snapshotNumber(current, MetricOrders), Color: "#33a02c", Volatility: 0.3, Decimals: 2},
	}
	for _, spec := range specs {
		if !checks.Enabled(spec.Metric) {
			continue
		}
		axis := AxisLeft
		if spec.Metric == ChartOrders && both {
			axis = AxisRight
		}
		data.Series = append(data.Series, seriesPair(id, spec, labels, axis)...)
	}
	return data
}

// EngagementChart plots clicks, orders and conversion. Conversion moves to
// the right axis only when a count metric is also selected.
func EngagementChart(id string, checks ChartChecks, labels []string) ChartData {
	count := checks.Clicks || checks.Orders
	percent := checks.Conversion
	both := count && percent
	data := ChartData{
		ID:     id,
		Title:  "Engagement",
		Labels: slices.Clone(labels),
		Axes: []ChartAxis{
			{Name: "Clicks & Orders", Show: count || !percent, Position: "left", Format: "count"},
			{Name: "Conversion (%)", Show: both, Position: "right", Format: "percent"},
		},
	}
	specs := []SeriesSpec{
		{Metric: ChartClicks, Name: "Clicks", Base: 200, Color: "#1f77b4", Volatility: 0.2},
		{Metric: ChartOrders, Name: "Orders", Base: 50, Color: "#33a02c", Volatility: 0.3},
		{Metric: ChartConversion, Name: "Conversion", Base: 5, Color: "#ff7f0e", Volatility: 0.2, Percent: true, Decimals: 1},
	}
	for _, spec := range specs {
		if !checks.Enabled(spec.Metric) {
			continue
		}
		axis := AxisLeft
		if spec.Metric == ChartConversion && both {
			axis = AxisRight
		}
		data.Series = append(data.Series, seriesPair(id, spec, labels, axis)...)
	}
	return data
}

func snapshotNumber(s MetricSnapshot, name string) float64 {
	v, _ := s.Number(name)
	return v
}

// ChartEntry is one unified chart in the chart block.
type ChartEntry struct {
	ID     string      `json:"id"`
	Checks ChartChecks `json:"checks"`
}

// ChartSet is the ordered list of unified charts, main first.
type ChartSet []ChartEntry

// DefaultChartSet holds only the main chart with every metric enabled.
func DefaultChartSet() ChartSet {
	return ChartSet{{ID: MainChartID, Checks: DefaultChartChecks()}}
}

// Normalize guarantees the main chart exists and comes first.
func (s ChartSet) Normalize() ChartSet {
	idx := slices.IndexFunc(s, func(e ChartEntry) bool { return e.ID == MainChartID })
	if idx == -1 {
		return append(DefaultChartSet(), s...)
	}
	if idx == 0 {
		return s
	}
	out := ChartSet{s[idx]}
	out = append(out, s[:idx]...)
	return append(out, s[idx+1:]...)
}

// Find returns the chart with id.
func (s ChartSet) Find(id string) (ChartEntry, bool) {
	idx := slices.IndexFunc(s, func(e ChartEntry) bool { return e.ID == id })
	if idx == -1 {
		return ChartEntry{}, false
	}
	return s[idx], true
}

// Add appends a chart copying the main chart's checks.
func (s ChartSet) Add(id string) ChartSet {
	s = s.Normalize()
	return append(slices.Clone(s), ChartEntry{ID: id, Checks: s[0].Checks})
}

// Remove deletes a chart; the main chart cannot be removed.
func (s ChartSet) Remove(id string) (ChartSet, error) {
	if id == MainChartID {
		return s, ErrMainChartRequired
	}
	if _, ok := s.Find(id); !ok {
		return s, fmt.Errorf("%w: %q", errUnknownChart, id)
	}
	return slices.DeleteFunc(slices.Clone(s), func(e ChartEntry) bool { return e.ID == id }), nil
}

// UpdateChecks replaces the checks of chart id.
func (s ChartSet) UpdateChecks(id string, checks ChartChecks) (ChartSet, error) {
	next := slices.Clone(s.Normalize())
	idx := slices.IndexFunc(next, func(e ChartEntry) bool { return e.ID == id })
	if idx == -1 {
		return s, fmt.Errorf("%w: %q", errUnknownChart, id)
	}
	next[idx].Checks = checks
	return next, nil
}

// NewChartID returns a fresh "chart-<id>" identifier.
func NewChartID() (string, error) {
	id, err := gonanoid.Generate(chartIDAlphabet, 10)
	if err != nil {
		return "", fmt.Errorf("dashboard: generate chart id: %w", err)
	}
	return "chart-" + id, nil
}
