package queries

import (
	"context"
	"fmt"

	dashboard "github.com/goliatone/go-campaign-dashboard/components/dashboard"
	gocommand "github.com/goliatone/go-command"
)

// GridInput selects one page of a grid for a viewer.
type GridInput struct {
	Viewer  dashboard.ViewerContext `json:"viewer"`
	TableID string                  `json:"table_id"`
	Page    int                     `json:"page"`
	Size    int                     `json:"size"`
}

type gridService interface {
	DetailsGrid(ctx context.Context, viewer dashboard.ViewerContext, page, size int) (dashboard.GridView, error)
	ContentGrid(ctx context.Context, viewer dashboard.ViewerContext, page, size int) (dashboard.GridView, error)
}

// GridQuery returns filtered, paginated rows of the details or content grid.
type GridQuery struct {
	service gridService
}

// NewGridQuery builds the query.
func NewGridQuery(service gridService) *GridQuery {
	return &GridQuery{service: service}
}

var _ gocommand.Querier[GridInput, dashboard.GridView] = (*GridQuery)(nil)

// Query dispatches on the table id.
func (q *GridQuery) Query(ctx context.Context, input GridInput) (dashboard.GridView, error) {
	switch input.TableID {
	case dashboard.TableDetails:
		return q.service.DetailsGrid(ctx, input.Viewer, input.Page, input.Size)
	case dashboard.TableContent:
		return q.service.ContentGrid(ctx, input.Viewer, input.Page, input.Size)
	default:
		return dashboard.GridView{}, fmt.Errorf("%w: unknown table %q", dashboard.ErrInvalidInput, input.TableID)
	}
}
