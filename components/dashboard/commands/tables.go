package commands

import (
	"context"
	"errors"
	"fmt"

	dashboard "github.com/goliatone/go-campaign-dashboard/components/dashboard"
	gocommand "github.com/goliatone/go-command"
)

// ColumnAction names a grid column mutation.
type ColumnAction string

const (
	ColumnVisibility   ColumnAction = "visibility"
	ColumnResize       ColumnAction = "resize"
	ColumnMove         ColumnAction = "move"
	ColumnReset        ColumnAction = "reset"
	ColumnSavePreset   ColumnAction = "save_preset"
	ColumnDeletePreset ColumnAction = "delete_preset"
	ColumnApplyPreset  ColumnAction = "apply_preset"
)

// UpdateColumnsInput carries one column or table preset mutation for a grid.
type UpdateColumnsInput struct {
	Viewer  dashboard.ViewerContext `json:"viewer"`
	TableID string                  `json:"table_id"`
	Action  ColumnAction            `json:"action"`
	Column  string                  `json:"column,omitempty"`
	Visible bool                    `json:"visible,omitempty"`
	Width   int                     `json:"width,omitempty"`
	Index   int                     `json:"index,omitempty"`
	Name    string                  `json:"name,omitempty"`
}

type columnService interface {
	SetColumnVisible(ctx context.Context, viewer dashboard.ViewerContext, tableID, column string, visible bool) (dashboard.ColumnLayout, error)
	ResizeColumn(ctx context.Context, viewer dashboard.ViewerContext, tableID, column string, width int) (dashboard.ColumnLayout, error)
	MoveColumn(ctx context.Context, viewer dashboard.ViewerContext, tableID, column string, index int) (dashboard.ColumnLayout, error)
	ResetTable(ctx context.Context, viewer dashboard.ViewerContext, tableID string) (dashboard.ColumnLayout, error)
	SaveTablePreset(ctx context.Context, viewer dashboard.ViewerContext, tableID, name string) (dashboard.TablePresets, error)
	DeleteTablePreset(ctx context.Context, viewer dashboard.ViewerContext, tableID, name string) (dashboard.TablePresets, error)
	ApplyTablePreset(ctx context.Context, viewer dashboard.ViewerContext, tableID, name string) (dashboard.ColumnLayout, error)
}

// UpdateColumnsCommand applies column layout and table preset changes.
type UpdateColumnsCommand struct {
	service   columnService
	telemetry Telemetry
}

// NewUpdateColumnsCommand creates the command.
func NewUpdateColumnsCommand(service columnService, telemetry Telemetry) *UpdateColumnsCommand {
	return &UpdateColumnsCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[UpdateColumnsInput] = (*UpdateColumnsCommand)(nil)

// Execute dispatches on the action.
func (c *UpdateColumnsCommand) Execute(ctx context.Context, msg UpdateColumnsInput) error {
	if c.service == nil {
		return errors.New("columns command requires service")
	}
	if _, err := dashboard.TableColumns(msg.TableID, dashboard.ViewModeProduct); err != nil {
		return err
	}
	var err error
	switch msg.Action {
	case ColumnVisibility:
		_, err = c.service.SetColumnVisible(ctx, msg.Viewer, msg.TableID, msg.Column, msg.Visible)
	case ColumnResize:
		_, err = c.service.ResizeColumn(ctx, msg.Viewer, msg.TableID, msg.Column, msg.Width)
	case ColumnMove:
		_, err = c.service.MoveColumn(ctx, msg.Viewer, msg.TableID, msg.Column, msg.Index)
	case ColumnReset:
		_, err = c.service.ResetTable(ctx, msg.Viewer, msg.TableID)
	case ColumnSavePreset:
		_, err = c.service.SaveTablePreset(ctx, msg.Viewer, msg.TableID, msg.Name)
	case ColumnDeletePreset:
		_, err = c.service.DeleteTablePreset(ctx, msg.Viewer, msg.TableID, msg.Name)
	case ColumnApplyPreset:
		_, err = c.service.ApplyTablePreset(ctx, msg.Viewer, msg.TableID, msg.Name)
	default:
		err = fmt.Errorf("%w: unknown column action %q", dashboard.ErrInvalidInput, msg.Action)
	}
	if err != nil {
		return err
	}
	recordViewer(ctx, c.telemetry, "dashboard.preferences.columns", msg.Viewer, map[string]any{
		"table_id": msg.TableID,
		"action":   string(msg.Action),
	})
	return nil
}

// SetViewModeInput switches the details grid between product and blogger rows.
type SetViewModeInput struct {
	Viewer dashboard.ViewerContext `json:"viewer"`
	Mode   string                  `json:"mode"`
}

type viewModeService interface {
	SetViewMode(ctx context.Context, viewer dashboard.ViewerContext, mode dashboard.ViewMode) error
}

// SetViewModeCommand stores the details grid view mode.
type SetViewModeCommand struct {
	service   viewModeService
	telemetry Telemetry
}

// NewSetViewModeCommand creates the command.
func NewSetViewModeCommand(service viewModeService, telemetry Telemetry) *SetViewModeCommand {
	return &SetViewModeCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SetViewModeInput] = (*SetViewModeCommand)(nil)

// Execute parses and stores the mode.
func (c *SetViewModeCommand) Execute(ctx context.Context, msg SetViewModeInput) error {
	if c.service == nil {
		return errors.New("view mode command requires service")
	}
	mode, err := dashboard.ParseViewMode(msg.Mode)
	if err != nil {
		return err
	}
	if err := c.service.SetViewMode(ctx, msg.Viewer, mode); err != nil {
		return err
	}
	recordViewer(ctx, c.telemetry, "dashboard.preferences.view_mode", msg.Viewer, map[string]any{
		"mode": string(mode),
	})
	return nil
}
