package commands

import (
	"context"
	"errors"

	dashboard "github.com/goliatone/go-campaign-dashboard/components/dashboard"
	gocommand "github.com/goliatone/go-command"
)

// SetFlagInput sets a collapse flag. A nil Value toggles the stored one.
type SetFlagInput struct {
	Viewer dashboard.ViewerContext `json:"viewer"`
	Key    string                  `json:"key"`
	Value  *bool                   `json:"value,omitempty"`
}

type flagService interface {
	SetFlag(ctx context.Context, viewer dashboard.ViewerContext, key string, value bool) error
	ToggleFlag(ctx context.Context, viewer dashboard.ViewerContext, key string) (bool, error)
}

// SetFlagCommand writes boolean view preferences such as chartsCollapsed.
type SetFlagCommand struct {
	service   flagService
	telemetry Telemetry
}

// NewSetFlagCommand creates the command.
func NewSetFlagCommand(service flagService, telemetry Telemetry) *SetFlagCommand {
	return &SetFlagCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SetFlagInput] = (*SetFlagCommand)(nil)

// Execute stores or toggles the flag.
func (c *SetFlagCommand) Execute(ctx context.Context, msg SetFlagInput) error {
	if c.service == nil {
		return errors.New("flag command requires service")
	}
	var value bool
	if msg.Value == nil {
		next, err := c.service.ToggleFlag(ctx, msg.Viewer, msg.Key)
		if err != nil {
			return err
		}
		value = next
	} else {
		value = *msg.Value
		if err := c.service.SetFlag(ctx, msg.Viewer, msg.Key, value); err != nil {
			return err
		}
	}
	recordViewer(ctx, c.telemetry, "dashboard.preferences.flag", msg.Viewer, map[string]any{
		"key":   msg.Key,
		"value": value,
	})
	return nil
}
