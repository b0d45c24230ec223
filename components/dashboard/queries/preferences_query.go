package queries

import (
	"context"
	"errors"

	dashboard "github.com/goliatone/go-campaign-dashboard/components/dashboard"
	gocommand "github.com/goliatone/go-command"
)

type snapshotReader interface {
	Snapshot(ctx context.Context, viewer dashboard.ViewerContext) dashboard.PreferenceSnapshot
}

// PreferencesQuery returns every typed preference of a viewer.
type PreferencesQuery struct {
	prefs snapshotReader
}

// NewPreferencesQuery builds the query over a preference facade.
func NewPreferencesQuery(prefs snapshotReader) *PreferencesQuery {
	return &PreferencesQuery{prefs: prefs}
}

var _ gocommand.Querier[dashboard.ViewerContext, dashboard.PreferenceSnapshot] = (*PreferencesQuery)(nil)

// Query reads the snapshot. Reads never fail; unreadable values fall back to
// their defaults.
func (q *PreferencesQuery) Query(ctx context.Context, viewer dashboard.ViewerContext) (dashboard.PreferenceSnapshot, error) {
	if q.prefs == nil {
		return dashboard.PreferenceSnapshot{}, errors.New("preferences query requires preferences")
	}
	return q.prefs.Snapshot(ctx, viewer), nil
}
