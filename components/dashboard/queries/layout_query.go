package queries

import (
	"context"
	"slices"

	dashboard "github.com/goliatone/go-campaign-dashboard/components/dashboard"
	gocommand "github.com/goliatone/go-command"
)

// LayoutInput requests the viewer's layout. Areas narrows the result to the
// listed area codes; empty returns every area.
type LayoutInput struct {
	Viewer dashboard.ViewerContext
	Areas  []string
}

type layoutService interface {
	ConfigureLayout(ctx context.Context, viewer dashboard.ViewerContext) (dashboard.Layout, error)
}

// LayoutQuery resolves the layout with filters, flags and provider data.
type LayoutQuery struct {
	service layoutService
}

// NewLayoutQuery builds the query.
func NewLayoutQuery(service layoutService) *LayoutQuery {
	return &LayoutQuery{service: service}
}

var _ gocommand.Querier[LayoutInput, dashboard.Layout] = (*LayoutQuery)(nil)

// Query resolves the layout and drops areas the input did not ask for.
func (q *LayoutQuery) Query(ctx context.Context, input LayoutInput) (dashboard.Layout, error) {
	layout, err := q.service.ConfigureLayout(ctx, input.Viewer)
	if err != nil || len(input.Areas) == 0 {
		return layout, err
	}
	for code := range layout.Areas {
		if !slices.Contains(input.Areas, code) {
			delete(layout.Areas, code)
		}
	}
	return layout, nil
}

// WidgetAreaInput identifies an area request for a viewer. Definition keeps
// only widgets of that definition, e.g. the unified chart of the charts area.
type WidgetAreaInput struct {
	Viewer     dashboard.ViewerContext
	AreaCode   string
	Definition string
}

type areaService interface {
	ResolveArea(ctx context.Context, viewer dashboard.ViewerContext, areaCode string) (dashboard.ResolvedArea, error)
}

// WidgetAreaQuery fetches widgets for a specific area.
type WidgetAreaQuery struct {
	service areaService
}

// NewWidgetAreaQuery builds the query.
func NewWidgetAreaQuery(service areaService) *WidgetAreaQuery {
	return &WidgetAreaQuery{service: service}
}

var _ gocommand.Querier[WidgetAreaInput, dashboard.ResolvedArea] = (*WidgetAreaQuery)(nil)

// Query resolves an individual area for the viewer.
func (q *WidgetAreaQuery) Query(ctx context.Context, input WidgetAreaInput) (dashboard.ResolvedArea, error) {
	resolved, err := q.service.ResolveArea(ctx, input.Viewer, input.AreaCode)
	if err != nil || input.Definition == "" {
		return resolved, err
	}
	resolved.Widgets = slices.DeleteFunc(resolved.Widgets, func(w dashboard.WidgetInstance) bool {
		return w.DefinitionID != input.Definition
	})
	return resolved, nil
}
