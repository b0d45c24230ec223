package queries

import (
	"context"

	dashboard "github.com/goliatone/go-campaign-dashboard/components/dashboard"
	gocommand "github.com/goliatone/go-command"
)

type summaryService interface {
	Summary(ctx context.Context, viewer dashboard.ViewerContext) (dashboard.Summary, error)
}

// SummaryQuery returns the summary panel rows for the viewer's period.
type SummaryQuery struct {
	service summaryService
}

// NewSummaryQuery builds the query.
func NewSummaryQuery(service summaryService) *SummaryQuery {
	return &SummaryQuery{service: service}
}

var _ gocommand.Querier[dashboard.ViewerContext, dashboard.Summary] = (*SummaryQuery)(nil)

// Query builds the summary.
func (q *SummaryQuery) Query(ctx context.Context, viewer dashboard.ViewerContext) (dashboard.Summary, error) {
	return q.service.Summary(ctx, viewer)
}
