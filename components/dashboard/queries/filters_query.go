package queries

import (
	"context"

	dashboard "github.com/goliatone/go-campaign-dashboard/components/dashboard"
	gocommand "github.com/goliatone/go-command"
)

type filterReader interface {
	Filters(ctx context.Context, viewer dashboard.ViewerContext) (dashboard.FilterState, error)
}

// FiltersQuery returns the viewer's filter selection.
type FiltersQuery struct {
	service filterReader
}

// NewFiltersQuery builds the query.
func NewFiltersQuery(service filterReader) *FiltersQuery {
	return &FiltersQuery{service: service}
}

var _ gocommand.Querier[dashboard.ViewerContext, dashboard.FilterState] = (*FiltersQuery)(nil)

// Query reads the selection.
func (q *FiltersQuery) Query(ctx context.Context, viewer dashboard.ViewerContext) (dashboard.FilterState, error) {
	return q.service.Filters(ctx, viewer)
}

// FilterOptionsInput requests the filter bar options. It carries no fields;
// options do not depend on the viewer.
type FilterOptionsInput struct{}

type filterOptionsReader interface {
	FilterOptions(ctx context.Context) (dashboard.FilterOptions, error)
}

// FilterOptionsQuery lists campaigns, bloggers, ASINs, links and date presets.
type FilterOptionsQuery struct {
	service filterOptionsReader
}

// NewFilterOptionsQuery builds the query.
func NewFilterOptionsQuery(service filterOptionsReader) *FilterOptionsQuery {
	return &FilterOptionsQuery{service: service}
}

var _ gocommand.Querier[FilterOptionsInput, dashboard.FilterOptions] = (*FilterOptionsQuery)(nil)

// Query builds the options from the dataset.
func (q *FilterOptionsQuery) Query(ctx context.Context, _ FilterOptionsInput) (dashboard.FilterOptions, error) {
	return q.service.FilterOptions(ctx)
}
