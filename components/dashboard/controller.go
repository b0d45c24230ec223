package dashboard

import (
	"context"
	"errors"
	"io"
	"slices"
	"sort"
	"strings"
)

const (
	defaultDashboardTemplate = "dashboard"
	defaultDashboardTitle    = "Campaign Dashboard"
)

// LayoutResolver resolves the widget layout for a viewer.
type LayoutResolver interface {
	ConfigureLayout(ctx context.Context, viewer ViewerContext) (Layout, error)
}

// ControllerOptions wires the controller collaborators.
type ControllerOptions struct {
	Service     LayoutResolver
	Renderer    Renderer
	Template    string
	Title       string
	Description string
}

// Controller turns resolved layouts into template payloads and HTML.
type Controller struct {
	opts ControllerOptions
}

// NewController wires the service into a controller.
func NewController(opts ControllerOptions) *Controller {
	if opts.Template == "" {
		opts.Template = defaultDashboardTemplate
	}
	if opts.Title == "" {
		opts.Title = defaultDashboardTitle
	}
	return &Controller{opts: opts}
}

// Render resolves the layout for a viewer and returns it to the caller.
func (c *Controller) Render(ctx context.Context, viewer ViewerContext) (Layout, error) {
	if c.opts.Service == nil {
		return Layout{}, errors.New("dashboard: controller requires a layout resolver")
	}
	return c.opts.Service.ConfigureLayout(ctx, viewer)
}

// LayoutPayload returns the JSON/template friendly view of the layout.
// Areas are keyed by their short name (toolbar, tiles, charts, ...).
func (c *Controller) LayoutPayload(ctx context.Context, viewer ViewerContext) (map[string]any, error) {
	layout, err := c.Render(ctx, viewer)
	if err != nil {
		return nil, err
	}
	areas := make(map[string]any, len(layout.Areas))
	list := make([]any, 0, len(layout.Areas))
	for _, code := range areaCodes(layout) {
		key := areaKey(code)
		widgets := make([]any, 0, len(layout.Areas[code]))
		for _, inst := range layout.Areas[code] {
			widgets = append(widgets, widgetPayload(inst))
		}
		area := map[string]any{
			"key":     key,
			"code":    code,
			"widgets": widgets,
		}
		areas[key] = area
		list = append(list, area)
	}
	return map[string]any{
		"title":       c.opts.Title,
		"description": c.opts.Description,
		"locale":      viewer.Locale,
		"viewer":      viewerNamespace(viewer),
		"filters":     layout.Filters,
		"period":      FormatPeriod(layout.Filters.DateRange, summaryPeriodFallback),
		"flags":       layout.Flags,
		"areas":       areas,
		"area_list":   list,
	}, nil
}

// RenderTemplate renders the dashboard template for the viewer into out.
func (c *Controller) RenderTemplate(ctx context.Context, viewer ViewerContext, out io.Writer) error {
	if c.opts.Renderer == nil {
		return errors.New("dashboard: controller requires a renderer")
	}
	payload, err := c.LayoutPayload(ctx, viewer)
	if err != nil {
		return err
	}
	_, err = c.opts.Renderer.Render(c.opts.Template, payload, out)
	return err
}

func widgetPayload(inst WidgetInstance) map[string]any {
	payload := map[string]any{
		"id":         inst.ID,
		"definition": inst.DefinitionID,
		"area_code":  inst.AreaCode,
		"template":   "widgets/" + widgetKey(inst.DefinitionID) + ".html",
		"config":     inst.Configuration,
	}
	if data, ok := inst.Metadata["data"]; ok {
		if wd, ok := data.(WidgetData); ok {
			payload["data"] = map[string]any(wd)
		} else {
			payload["data"] = data
		}
	}
	if msg, ok := inst.Metadata["error"].(string); ok {
		payload["error"] = msg
	}
	return payload
}

func areaCodes(layout Layout) []string {
	out := make([]string, 0, len(layout.Areas))
	for _, code := range defaultAreas {
		if _, ok := layout.Areas[code]; ok {
			out = append(out, code)
		}
	}
	var extra []string
	for code := range layout.Areas {
		if !slices.Contains(out, code) {
			extra = append(extra, code)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

func areaKey(code string) string {
	return code[strings.LastIndex(code, ".")+1:]
}

func widgetKey(definition string) string {
	return definition[strings.LastIndex(definition, ".")+1:]
}
