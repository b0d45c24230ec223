package httpapi

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-campaign-dashboard/components/dashboard"
	"github.com/goliatone/go-campaign-dashboard/components/dashboard/commands"
	"github.com/goliatone/go-campaign-dashboard/components/dashboard/queries"
)

// ErrUnavailable is returned when the executor or reader was built without
// the commander or querier an operation needs.
var ErrUnavailable = errors.New("httpapi: operation not configured")

// Executor runs dashboard mutations on behalf of a transport.
type Executor interface {
	Assign(ctx context.Context, req dashboard.AddWidgetRequest) error
	Update(ctx context.Context, input commands.UpdateWidgetInput) error
	Remove(ctx context.Context, input commands.RemoveWidgetInput) error
	Reorder(ctx context.Context, input commands.ReorderWidgetsInput) error
	Refresh(ctx context.Context, input commands.RefreshWidgetInput) error
	Preferences(ctx context.Context, input commands.SaveLayoutPreferencesInput) error
	UpdateFilters(ctx context.Context, input commands.UpdateFiltersInput) error
	ResetFilters(ctx context.Context, input commands.ResetFiltersInput) error
	SetFlag(ctx context.Context, input commands.SetFlagInput) error
	Tiles(ctx context.Context, input commands.UpdateTilesInput) error
	Columns(ctx context.Context, input commands.UpdateColumnsInput) error
	ViewMode(ctx context.Context, input commands.SetViewModeInput) error
	Charts(ctx context.Context, input commands.UpdateChartsInput) error
}

// Reader serves the read models behind the dashboard.
type Reader interface {
	Layout(ctx context.Context, input queries.LayoutInput) (dashboard.Layout, error)
	Area(ctx context.Context, input queries.WidgetAreaInput) (dashboard.ResolvedArea, error)
	Filters(ctx context.Context, viewer dashboard.ViewerContext) (dashboard.FilterState, error)
	FilterOptions(ctx context.Context) (dashboard.FilterOptions, error)
	Preferences(ctx context.Context, viewer dashboard.ViewerContext) (dashboard.PreferenceSnapshot, error)
	Grid(ctx context.Context, input queries.GridInput) (dashboard.GridView, error)
	Summary(ctx context.Context, viewer dashboard.ViewerContext) (dashboard.Summary, error)
}

// CommandExecutor adapts go-command commanders to Executor. Nil commanders
// report ErrUnavailable.
type CommandExecutor struct {
	AssignCommander       gocommand.Commander[dashboard.AddWidgetRequest]
	UpdateCommander       gocommand.Commander[commands.UpdateWidgetInput]
	RemoveCommander       gocommand.Commander[commands.RemoveWidgetInput]
	ReorderCommander      gocommand.Commander[commands.ReorderWidgetsInput]
	RefreshCommander      gocommand.Commander[commands.RefreshWidgetInput]
	PreferencesCommander  gocommand.Commander[commands.SaveLayoutPreferencesInput]
	FiltersCommander      gocommand.Commander[commands.UpdateFiltersInput]
	ResetFiltersCommander gocommand.Commander[commands.ResetFiltersInput]
	FlagCommander         gocommand.Commander[commands.SetFlagInput]
	TilesCommander        gocommand.Commander[commands.UpdateTilesInput]
	ColumnsCommander      gocommand.Commander[commands.UpdateColumnsInput]
	ViewModeCommander     gocommand.Commander[commands.SetViewModeInput]
	ChartsCommander       gocommand.Commander[commands.UpdateChartsInput]
}

var _ Executor = (*CommandExecutor)(nil)

// NewServiceExecutor wires every command against a service and its
// preference facade.
func NewServiceExecutor(service *dashboard.Service, telemetry commands.Telemetry) *CommandExecutor {
	prefs := service.Preferences()
	return &CommandExecutor{
		AssignCommander:       commands.NewAssignWidgetCommand(service, telemetry),
		UpdateCommander:       commands.NewUpdateWidgetCommand(service, telemetry),
		RemoveCommander:       commands.NewRemoveWidgetCommand(service, telemetry),
		ReorderCommander:      commands.NewReorderWidgetsCommand(service, telemetry),
		RefreshCommander:      commands.NewRefreshWidgetCommand(service, telemetry),
		PreferencesCommander:  commands.NewSaveLayoutPreferencesCommand(service, telemetry),
		FiltersCommander:      commands.NewUpdateFiltersCommand(service, telemetry),
		ResetFiltersCommander: commands.NewResetFiltersCommand(service, telemetry),
		FlagCommander:         commands.NewSetFlagCommand(prefs, telemetry),
		TilesCommander:        commands.NewUpdateTilesCommand(prefs, telemetry),
		ColumnsCommander:      commands.NewUpdateColumnsCommand(prefs, telemetry),
		ViewModeCommander:     commands.NewSetViewModeCommand(prefs, telemetry),
		ChartsCommander:       commands.NewUpdateChartsCommand(prefs, telemetry),
	}
}

func execute[T any](ctx context.Context, cmd gocommand.Commander[T], msg T) error {
	if cmd == nil {
		return ErrUnavailable
	}
	return cmd.Execute(ctx, msg)
}

func (e *CommandExecutor) Assign(ctx context.Context, req dashboard.AddWidgetRequest) error {
	return execute(ctx, e.AssignCommander, req)
}

func (e *CommandExecutor) Update(ctx context.Context, input commands.UpdateWidgetInput) error {
	return execute(ctx, e.UpdateCommander, input)
}

func (e *CommandExecutor) Remove(ctx context.Context, input commands.RemoveWidgetInput) error {
	return execute(ctx, e.RemoveCommander, input)
}

func (e *CommandExecutor) Reorder(ctx context.Context, input commands.ReorderWidgetsInput) error {
	return execute(ctx, e.ReorderCommander, input)
}

func (e *CommandExecutor) Refresh(ctx context.Context, input commands.RefreshWidgetInput) error {
	return execute(ctx, e.RefreshCommander, input)
}

func (e *CommandExecutor) Preferences(ctx context.Context, input commands.SaveLayoutPreferencesInput) error {
	return execute(ctx, e.PreferencesCommander, input)
}

func (e *CommandExecutor) UpdateFilters(ctx context.Context, input commands.UpdateFiltersInput) error {
	return execute(ctx, e.FiltersCommander, input)
}

func (e *CommandExecutor) ResetFilters(ctx context.Context, input commands.ResetFiltersInput) error {
	return execute(ctx, e.ResetFiltersCommander, input)
}

func (e *CommandExecutor) SetFlag(ctx context.Context, input commands.SetFlagInput) error {
	return execute(ctx, e.FlagCommander, input)
}

func (e *CommandExecutor) Tiles(ctx context.Context, input commands.UpdateTilesInput) error {
	return execute(ctx, e.TilesCommander, input)
}

func (e *CommandExecutor) Columns(ctx context.Context, input commands.UpdateColumnsInput) error {
	return execute(ctx, e.ColumnsCommander, input)
}

func (e *CommandExecutor) ViewMode(ctx context.Context, input commands.SetViewModeInput) error {
	return execute(ctx, e.ViewModeCommander, input)
}

func (e *CommandExecutor) Charts(ctx context.Context, input commands.UpdateChartsInput) error {
	return execute(ctx, e.ChartsCommander, input)
}

// QueryReader adapts go-command queriers to Reader.
type QueryReader struct {
	LayoutQuerier      gocommand.Querier[queries.LayoutInput, dashboard.Layout]
	AreaQuerier        gocommand.Querier[queries.WidgetAreaInput, dashboard.ResolvedArea]
	FiltersQuerier     gocommand.Querier[dashboard.ViewerContext, dashboard.FilterState]
	OptionsQuerier     gocommand.Querier[queries.FilterOptionsInput, dashboard.FilterOptions]
	PreferencesQuerier gocommand.Querier[dashboard.ViewerContext, dashboard.PreferenceSnapshot]
	GridQuerier        gocommand.Querier[queries.GridInput, dashboard.GridView]
	SummaryQuerier     gocommand.Querier[dashboard.ViewerContext, dashboard.Summary]
}

var _ Reader = (*QueryReader)(nil)

// NewServiceReader wires every query against a service.
func NewServiceReader(service *dashboard.Service) *QueryReader {
	return &QueryReader{
		LayoutQuerier:      queries.NewLayoutQuery(service),
		AreaQuerier:        queries.NewWidgetAreaQuery(service),
		FiltersQuerier:     queries.NewFiltersQuery(service),
		OptionsQuerier:     queries.NewFilterOptionsQuery(service),
		PreferencesQuerier: queries.NewPreferencesQuery(service.Preferences()),
		GridQuerier:        queries.NewGridQuery(service),
		SummaryQuerier:     queries.NewSummaryQuery(service),
	}
}

func query[In, Out any](ctx context.Context, q gocommand.Querier[In, Out], input In) (Out, error) {
	if q == nil {
		var zero Out
		return zero, ErrUnavailable
	}
	return q.Query(ctx, input)
}

func (r *QueryReader) Layout(ctx context.Context, input queries.LayoutInput) (dashboard.Layout, error) {
	return query(ctx, r.LayoutQuerier, input)
}

func (r *QueryReader) Area(ctx context.Context, input queries.WidgetAreaInput) (dashboard.ResolvedArea, error) {
	return query(ctx, r.AreaQuerier, input)
}

func (r *QueryReader) Filters(ctx context.Context, viewer dashboard.ViewerContext) (dashboard.FilterState, error) {
	return query(ctx, r.FiltersQuerier, viewer)
}

func (r *QueryReader) FilterOptions(ctx context.Context) (dashboard.FilterOptions, error) {
	return query(ctx, r.OptionsQuerier, queries.FilterOptionsInput{})
}

func (r *QueryReader) Preferences(ctx context.Context, viewer dashboard.ViewerContext) (dashboard.PreferenceSnapshot, error) {
	return query(ctx, r.PreferencesQuerier, viewer)
}

func (r *QueryReader) Grid(ctx context.Context, input queries.GridInput) (dashboard.GridView, error) {
	return query(ctx, r.GridQuerier, input)
}

func (r *QueryReader) Summary(ctx context.Context, viewer dashboard.ViewerContext) (dashboard.Summary, error) {
	return query(ctx, r.SummaryQuerier, viewer)
}
