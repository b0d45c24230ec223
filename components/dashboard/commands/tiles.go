package commands

import (
	"context"
	"errors"
	"fmt"

	dashboard "github.com/goliatone/go-campaign-dashboard/components/dashboard"
	gocommand "github.com/goliatone/go-command"
)

// TileAction names a tile layout mutation.
type TileAction string

const (
	TileToggle       TileAction = "toggle"
	TileMove         TileAction = "move"
	TileReset        TileAction = "reset"
	TileSavePreset   TileAction = "save_preset"
	TileDeletePreset TileAction = "delete_preset"
	TileApplyPreset  TileAction = "apply_preset"
)

// UpdateTilesInput carries one tile layout mutation. Key and Visible drive
// toggle; From and To drive move; Name drives save_preset; Index addresses
// the preset for delete_preset and apply_preset.
type UpdateTilesInput struct {
	Viewer  dashboard.ViewerContext `json:"viewer"`
	Action  TileAction              `json:"action"`
	Key     string                  `json:"key,omitempty"`
	Visible bool                    `json:"visible,omitempty"`
	From    string                  `json:"from,omitempty"`
	To      string                  `json:"to,omitempty"`
	Name    string                  `json:"name,omitempty"`
	Index   int                     `json:"index,omitempty"`
}

type tileService interface {
	ToggleTile(ctx context.Context, viewer dashboard.ViewerContext, key string, on bool) (dashboard.TileLayout, error)
	MoveTile(ctx context.Context, viewer dashboard.ViewerContext, from, to string) (dashboard.TileLayout, error)
	ResetTiles(ctx context.Context, viewer dashboard.ViewerContext) (dashboard.TileLayout, error)
	SaveTilePreset(ctx context.Context, viewer dashboard.ViewerContext, name string) ([]dashboard.TilePreset, error)
	DeleteTilePreset(ctx context.Context, viewer dashboard.ViewerContext, index int) ([]dashboard.TilePreset, error)
	ApplyTilePreset(ctx context.Context, viewer dashboard.ViewerContext, index int) (dashboard.TileLayout, error)
}

// UpdateTilesCommand applies tile visibility, order and preset changes.
type UpdateTilesCommand struct {
	service   tileService
	telemetry Telemetry
}

// NewUpdateTilesCommand creates the command.
func NewUpdateTilesCommand(service tileService, telemetry Telemetry) *UpdateTilesCommand {
	return &UpdateTilesCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[UpdateTilesInput] = (*UpdateTilesCommand)(nil)

// Execute dispatches on the action.
func (c *UpdateTilesCommand) Execute(ctx context.Context, msg UpdateTilesInput) error {
	if c.service == nil {
		return errors.New("tiles command requires service")
	}
	var err error
	switch msg.Action {
	case TileToggle:
		_, err = c.service.ToggleTile(ctx, msg.Viewer, msg.Key, msg.Visible)
	case TileMove:
		_, err = c.service.MoveTile(ctx, msg.Viewer, msg.From, msg.To)
	case TileReset:
		_, err = c.service.ResetTiles(ctx, msg.Viewer)
	case TileSavePreset:
		_, err = c.service.SaveTilePreset(ctx, msg.Viewer, msg.Name)
	case TileDeletePreset:
		_, err = c.service.DeleteTilePreset(ctx, msg.Viewer, msg.Index)
	case TileApplyPreset:
		_, err = c.service.ApplyTilePreset(ctx, msg.Viewer, msg.Index)
	default:
		err = fmt.Errorf("%w: unknown tile action %q", dashboard.ErrInvalidInput, msg.Action)
	}
	if err != nil {
		return err
	}
	recordViewer(ctx, c.telemetry, "dashboard.preferences.tiles", msg.Viewer, map[string]any{
		"action": string(msg.Action),
	})
	return nil
}
