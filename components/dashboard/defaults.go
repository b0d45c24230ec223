package dashboard

import (
	"slices"

	"github.com/go-echarts/go-echarts/v2/types"
)

// Dashboard areas in render order.
const (
	AreaToolbar = "campaign.dashboard.toolbar"
	AreaTiles   = "campaign.dashboard.tiles"
	AreaCharts  = "campaign.dashboard.charts"
	AreaSidebar = "campaign.dashboard.sidebar"
	AreaGrids   = "campaign.dashboard.grids"
)

// Widget definition codes.
const (
	WidgetFilters          = "campaign.widget.filters"
	WidgetMetricTiles      = "campaign.widget.metric_tiles"
	WidgetUnifiedChart     = "campaign.widget.unified_chart"
	WidgetPerformanceChart = "campaign.widget.performance_chart"
	WidgetEngagementChart  = "campaign.widget.engagement_chart"
	WidgetDetailsGrid      = "campaign.widget.details_grid"
	WidgetContentGrid      = "campaign.widget.content_grid"
	WidgetSummary          = "campaign.widget.summary"
)

var defaultAreas = []string{AreaToolbar, AreaTiles, AreaCharts, AreaSidebar, AreaGrids}

var defaultAreaDefinitions = []WidgetAreaDefinition{
	{Code: AreaToolbar, Name: "Toolbar", Description: "Campaign, blogger, ASIN, link and period filters"},
	{Code: AreaTiles, Name: "Metric tiles", Description: "Current period metrics compared with the previous period"},
	{Code: AreaCharts, Name: "Charts", Description: "Collapsible unified chart block"},
	{Code: AreaSidebar, Name: "Sidebar", Description: "Summary panel"},
	{Code: AreaGrids, Name: "Grids", Description: "Details and content tables"},
}

var chartThemes = []string{
	string(types.ThemeWesteros),
	string(types.ThemeWalden),
	string(types.ThemeWonderland),
	string(types.ThemeChalk),
}

var defaultWidgetDefinitions = []WidgetDefinition{
	{
		Code:          WidgetFilters,
		Name:          "Filters",
		NameLocalized: map[string]string{"ru": "Фильтры"},
		Description:   "Selection shared by every widget",
		Category:      "filters",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"show_date_presets": map[string]any{"type": "boolean", "default": true},
			},
			"additionalProperties": false,
		},
	},
	{
		Code:          WidgetMetricTiles,
		Name:          "Metric Tiles",
		NameLocalized: map[string]string{"ru": "Показатели"},
		Description:   "Configurable metric cards with period comparison",
		Category:      "stats",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"compare": map[string]any{"type": "boolean", "default": true},
			},
			"additionalProperties": false,
		},
	},
	{
		Code:                 WidgetUnifiedChart,
		Name:                 "Unified Metrics Chart",
		NameLocalized:        map[string]string{"ru": "Сводный график"},
		Description:          "Spend, profit, orders, clicks and conversion on shared axes",
		DescriptionLocalized: map[string]string{"ru": "Расходы, прибыль, заказы, клики и конверсия"},
		Category:             "charts",
		Schema:               chartSchema(nil),
	},
	{
		Code:        WidgetPerformanceChart,
		Name:        "Performance",
		Description: "Spend, profit and orders over the selected period",
		Category:    "charts",
		Schema:      chartSchema([]string{string(ChartSpend), string(ChartProfit), string(ChartOrders)}),
	},
	{
		Code:        WidgetEngagementChart,
		Name:        "Engagement",
		Description: "Clicks, orders and conversion over the selected period",
		Category:    "charts",
		Schema:      chartSchema([]string{string(ChartClicks), string(ChartOrders), string(ChartConversion)}),
	},
	{
		Code:          WidgetDetailsGrid,
		Name:          "Details",
		NameLocalized: map[string]string{"ru": "Детализация"},
		Description:   "Per product or per blogger results",
		Category:      "grids",
		Schema:        gridSchema(),
	},
	{
		Code:          WidgetContentGrid,
		Name:          "Content",
		NameLocalized: map[string]string{"ru": "Контент"},
		Description:   "Published blogger content",
		Category:      "grids",
		Schema:        gridSchema(),
	},
	{
		Code:          WidgetSummary,
		Name:          "Summary",
		NameLocalized: map[string]string{"ru": "Сводка"},
		Description:   "Sales breakdown for the selected period",
		Category:      "stats",
		Schema: map[string]any{
			"type":                 "object",
			"properties":           map[string]any{},
			"additionalProperties": false,
		},
	},
}

func chartSchema(metrics []string) map[string]any {
	props := map[string]any{
		"height": map[string]any{"type": "string", "default": defaultChartHeight},
		"theme":  map[string]any{"type": "string", "enum": chartThemes},
	}
	if len(metrics) > 0 {
		props["metrics"] = map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string", "enum": metrics},
			"uniqueItems": true,
			"default":     metrics,
		}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
}

func gridSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"page_size": map[string]any{
				"type":    "integer",
				"enum":    PageSizes,
				"default": DefaultPageSize,
			},
		},
		"additionalProperties": false,
	}
}

var defaultSeedConfigs = []AddWidgetRequest{
	{DefinitionID: WidgetFilters, AreaCode: AreaToolbar},
	{DefinitionID: WidgetMetricTiles, AreaCode: AreaTiles},
	{DefinitionID: WidgetUnifiedChart, AreaCode: AreaCharts},
	{DefinitionID: WidgetSummary, AreaCode: AreaSidebar},
	{DefinitionID: WidgetDetailsGrid, AreaCode: AreaGrids},
	{DefinitionID: WidgetContentGrid, AreaCode: AreaGrids},
}

// DefaultAreaDefinitions returns copies of built-in area definitions.
func DefaultAreaDefinitions() []WidgetAreaDefinition {
	return slices.Clone(defaultAreaDefinitions)
}

// DefaultAreas returns the built-in area codes in render order.
func DefaultAreas() []string {
	return slices.Clone(defaultAreas)
}

// DefaultWidgetDefinitions returns copies of built-in widget definitions.
func DefaultWidgetDefinitions() []WidgetDefinition {
	return slices.Clone(defaultWidgetDefinitions)
}

// DefaultSeedWidgets returns the starter widget placements. The legacy
// performance and engagement charts are registered but not seeded.
func DefaultSeedWidgets() []AddWidgetRequest {
	out := slices.Clone(defaultSeedConfigs)
	for i := range out {
		out[i].Configuration = map[string]any{}
	}
	return out
}
