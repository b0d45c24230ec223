package commands

import (
	"context"
	"errors"

	dashboard "github.com/goliatone/go-campaign-dashboard/components/dashboard"
	gocommand "github.com/goliatone/go-command"
)

// UpdateFiltersInput applies a partial filter selection for a viewer.
type UpdateFiltersInput struct {
	Viewer dashboard.ViewerContext `json:"viewer"`
	Update dashboard.FilterUpdate  `json:"update"`
}

// ResetFiltersInput clears a viewer's filter selection.
type ResetFiltersInput struct {
	Viewer dashboard.ViewerContext `json:"viewer"`
}

type filterService interface {
	UpdateFilters(ctx context.Context, viewer dashboard.ViewerContext, update dashboard.FilterUpdate) (dashboard.FilterState, error)
	ResetFilters(ctx context.Context, viewer dashboard.ViewerContext) error
}

// UpdateFiltersCommand validates and stores a filter update.
type UpdateFiltersCommand struct {
	service   filterService
	telemetry Telemetry
}

// NewUpdateFiltersCommand creates the command.
func NewUpdateFiltersCommand(service filterService, telemetry Telemetry) *UpdateFiltersCommand {
	return &UpdateFiltersCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[UpdateFiltersInput] = (*UpdateFiltersCommand)(nil)

// Execute stores the update.
func (c *UpdateFiltersCommand) Execute(ctx context.Context, msg UpdateFiltersInput) error {
	if c.service == nil {
		return errors.New("filters command requires service")
	}
	state, err := c.service.UpdateFilters(ctx, msg.Viewer, msg.Update)
	if err != nil {
		return err
	}
	recordViewer(ctx, c.telemetry, "dashboard.filters.apply", msg.Viewer, map[string]any{
		"date_range": state.DateRange != nil,
		"preset":     string(msg.Update.DatePreset),
	})
	return nil
}

// ResetFiltersCommand clears the selection.
type ResetFiltersCommand struct {
	service   filterService
	telemetry Telemetry
}

// NewResetFiltersCommand creates the command.
func NewResetFiltersCommand(service filterService, telemetry Telemetry) *ResetFiltersCommand {
	return &ResetFiltersCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[ResetFiltersInput] = (*ResetFiltersCommand)(nil)

// Execute clears the selection.
func (c *ResetFiltersCommand) Execute(ctx context.Context, msg ResetFiltersInput) error {
	if c.service == nil {
		return errors.New("filters command requires service")
	}
	if err := c.service.ResetFilters(ctx, msg.Viewer); err != nil {
		return err
	}
	recordViewer(ctx, c.telemetry, "dashboard.filters.clear", msg.Viewer, nil)
	return nil
}
