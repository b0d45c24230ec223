package dashboard

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

// ErrUnknownFilterValue is returned when a filter selects a value absent from the dataset.
var ErrUnknownFilterValue = errors.New("dashboard: unknown filter value")

// FilterState is the shared selection every widget derives its rows from.
// Empty strings mean "any".
type FilterState struct {
	Campaign  string     `json:"campaign,omitempty"`
	Blogger   string     `json:"blogger,omitempty"`
	ASIN      string     `json:"asin,omitempty"`
	Link      string     `json:"link,omitempty"`
	DateRange *DateRange `json:"date_range,omitempty"`
}

// IsZero reports whether nothing is selected.
func (s FilterState) IsZero() bool {
	return s.Campaign == "" && s.Blogger == "" && s.ASIN == "" && s.Link == "" && s.DateRange == nil
}

// FilterUpdate is a partial change to a FilterState. Nil fields are left
// untouched; a pointer to "" clears the selection.
type FilterUpdate struct {
	Campaign       *string    `json:"campaign,omitempty"`
	Blogger        *string    `json:"blogger,omitempty"`
	ASIN           *string    `json:"asin,omitempty"`
	Link           *string    `json:"link,omitempty"`
	DateRange      *DateRange `json:"date_range,omitempty"`
	DatePreset     DatePreset `json:"date_preset,omitempty"`
	ClearDateRange bool       `json:"clear_date_range,omitempty"`
}

// Apply returns state with the update applied.
func (u FilterUpdate) Apply(state FilterState) FilterState {
	if u.Campaign != nil {
		state.Campaign = *u.Campaign
	}
	if u.Blogger != nil {
		state.Blogger = *u.Blogger
	}
	if u.ASIN != nil {
		state.ASIN = *u.ASIN
	}
	if u.Link != nil {
		state.Link = *u.Link
	}
	switch {
	case u.ClearDateRange:
		state.DateRange = nil
	case u.DateRange != nil:
		r := *u.DateRange
		state.DateRange = &r
	}
	return state
}

// ResolvePreset replaces DatePreset with the concrete range it names.
func (u FilterUpdate) ResolvePreset(now time.Time, weekStart time.Weekday) (FilterUpdate, error) {
	if u.DatePreset == "" {
		return u, nil
	}
	r, err := ResolveDatePreset(u.DatePreset, now, weekStart)
	if err != nil {
		return u, err
	}
	u.DateRange = r
	u.DatePreset = ""
	u.ClearDateRange = false
	return u, nil
}

// Validate rejects selections that do not exist in the dataset.
func (u FilterUpdate) Validate(ds Dataset) error {
	if u.Campaign != nil && *u.Campaign != "" {
		if _, ok := ds.Campaign(*u.Campaign); !ok {
			return fmt.Errorf("%w: campaign %q", ErrUnknownFilterValue, *u.Campaign)
		}
	}
	if u.Blogger != nil && *u.Blogger != "" && !slices.Contains(ds.Bloggers, *u.Blogger) {
		return fmt.Errorf("%w: blogger %q", ErrUnknownFilterValue, *u.Blogger)
	}
	if u.ASIN != nil && *u.ASIN != "" && !slices.Contains(ds.ASINs(), *u.ASIN) {
		return fmt.Errorf("%w: asin %q", ErrUnknownFilterValue, *u.ASIN)
	}
	if u.Link != nil && *u.Link != "" && !slices.Contains(ds.Links, *u.Link) {
		return fmt.Errorf("%w: link %q", ErrUnknownFilterValue, *u.Link)
	}
	if u.DateRange != nil && u.DateRange.End.Before(u.DateRange.Start) {
		return errInvertedDateRange
	}
	return nil
}

// FilterStore holds the filter selection per viewer.
type FilterStore interface {
	Filters(ctx context.Context, viewer ViewerContext) (FilterState, error)
	UpdateFilters(ctx context.Context, viewer ViewerContext, update FilterUpdate) (FilterState, error)
	ResetFilters(ctx context.Context, viewer ViewerContext) error
}

// InMemoryFilterStore keeps filter selections in process memory and emits a
// "filters" event after every change.
type InMemoryFilterStore struct {
	mu    sync.RWMutex
	state map[string]FilterState
	hook  RefreshHook
}

// NewInMemoryFilterStore builds an empty store; hook may be nil.
func NewInMemoryFilterStore(hook RefreshHook) *InMemoryFilterStore {
	if hook == nil {
		hook = noopRefreshHook{}
	}
	return &InMemoryFilterStore{
		state: make(map[string]FilterState),
		hook:  hook,
	}
}

// Filters returns the viewer's selection, empty when none was made.
func (s *InMemoryFilterStore) Filters(_ context.Context, viewer ViewerContext) (FilterState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state[viewerNamespace(viewer)], nil
}

// UpdateFilters applies a partial update and returns the new state.
func (s *InMemoryFilterStore) UpdateFilters(ctx context.Context, viewer ViewerContext, update FilterUpdate) (FilterState, error) {
	key := viewerNamespace(viewer)
	s.mu.Lock()
	next := update.Apply(s.state[key])
	s.state[key] = next
	s.mu.Unlock()
	return next, s.hook.WidgetUpdated(ctx, WidgetEvent{Reason: "filters", ViewerID: key})
}

// ResetFilters clears the viewer's selection.
func (s *InMemoryFilterStore) ResetFilters(ctx context.Context, viewer ViewerContext) error {
	key := viewerNamespace(viewer)
	s.mu.Lock()
	delete(s.state, key)
	s.mu.Unlock()
	return s.hook.WidgetUpdated(ctx, WidgetEvent{Reason: "filters", ViewerID: key})
}

// FilterOption is one selectable value in the filter bar.
type FilterOption struct {
	Value  string `json:"value"`
	Label  string `json:"label"`
	Status string `json:"status,omitempty"`
	Color  string `json:"color,omitempty"`
	Period string `json:"period,omitempty"`
}

// FilterOptions lists every value the filter bar offers.
type FilterOptions struct {
	Campaigns   []FilterOption     `json:"campaigns"`
	Bloggers    []FilterOption     `json:"bloggers"`
	ASINs       []FilterOption     `json:"asins"`
	Links       []FilterOption     `json:"links"`
	DatePresets []DatePresetOption `json:"date_presets"`
}

// BuildFilterOptions derives the filter bar options from the dataset.
func BuildFilterOptions(ds Dataset, now time.Time, weekStart time.Weekday) FilterOptions {
	opts := FilterOptions{
		Campaigns:   make([]FilterOption, 0, len(ds.Campaigns)),
		Bloggers:    plainOptions(ds.Bloggers),
		ASINs:       plainOptions(ds.ASINs()),
		Links:       plainOptions(ds.Links),
		DatePresets: DatePresets(now, weekStart),
	}
	for _, c := range ds.Campaigns {
		opts.Campaigns = append(opts.Campaigns, FilterOption{
			Value:  c.Name,
			Label:  c.Name,
			Status: string(c.Status),
			Color:  c.Status.Color(),
			Period: c.Period(),
		})
	}
	return opts
}

func plainOptions(values []string) []FilterOption {
	out := make([]FilterOption, len(values))
	for i, v := range values {
		out[i] = FilterOption{Value: v, Label: v}
	}
	return out
}
