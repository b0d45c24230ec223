package commands

import (
	"context"
	"errors"
	"fmt"
	"slices"

	dashboard "github.com/goliatone/go-campaign-dashboard/components/dashboard"
	gocommand "github.com/goliatone/go-command"
)

// RemoveWidgetInput identifies the widget instance to remove.
type RemoveWidgetInput struct {
	WidgetID string `json:"widget_id"`
}

// UpdateWidgetInput replaces a widget's configuration.
type UpdateWidgetInput struct {
	WidgetID      string         `json:"widget_id"`
	Configuration map[string]any `json:"configuration"`
}

// ReorderWidgetsInput lists an area's widgets in their new order.
type ReorderWidgetsInput struct {
	AreaCode  string   `json:"area_code"`
	WidgetIDs []string `json:"widget_ids"`
}

// RefreshWidgetInput asks subscribers to re-fetch a widget or area.
type RefreshWidgetInput struct {
	Event dashboard.WidgetEvent `json:"event"`
}

// manualRefresh tags refresh events that did not state a reason.
const manualRefresh = "manual"

type (
	widgetAdder interface {
		AddWidget(context.Context, dashboard.AddWidgetRequest) error
	}
	widgetUpdater interface {
		UpdateWidget(context.Context, dashboard.UpdateWidgetRequest) error
	}
	widgetRemover interface {
		RemoveWidget(context.Context, string) error
	}
	widgetReorderer interface {
		ReorderWidgets(context.Context, string, []string) error
	}
	widgetNotifier interface {
		NotifyWidgetUpdated(context.Context, dashboard.WidgetEvent) error
	}
)

// AssignWidgetCommand places a widget definition into a campaign area.
type AssignWidgetCommand struct {
	service   widgetAdder
	telemetry Telemetry
}

// UpdateWidgetCommand replaces an instance configuration.
type UpdateWidgetCommand struct {
	service   widgetUpdater
	telemetry Telemetry
}

// RemoveWidgetCommand deletes an instance from its area.
type RemoveWidgetCommand struct {
	service   widgetRemover
	telemetry Telemetry
}

// ReorderWidgetsCommand rewrites the order of one area.
type ReorderWidgetsCommand struct {
	service   widgetReorderer
	telemetry Telemetry
}

// RefreshWidgetCommand pushes a refresh event to subscribers.
type RefreshWidgetCommand struct {
	service   widgetNotifier
	telemetry Telemetry
}

var (
	_ gocommand.Commander[dashboard.AddWidgetRequest] = (*AssignWidgetCommand)(nil)
	_ gocommand.Commander[UpdateWidgetInput]          = (*UpdateWidgetCommand)(nil)
	_ gocommand.Commander[RemoveWidgetInput]          = (*RemoveWidgetCommand)(nil)
	_ gocommand.Commander[ReorderWidgetsInput]        = (*ReorderWidgetsCommand)(nil)
	_ gocommand.Commander[RefreshWidgetInput]         = (*RefreshWidgetCommand)(nil)
)

func NewAssignWidgetCommand(service widgetAdder, telemetry Telemetry) *AssignWidgetCommand {
	return &AssignWidgetCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

func NewUpdateWidgetCommand(service widgetUpdater, telemetry Telemetry) *UpdateWidgetCommand {
	return &UpdateWidgetCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

func NewRemoveWidgetCommand(service widgetRemover, telemetry Telemetry) *RemoveWidgetCommand {
	return &RemoveWidgetCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

func NewReorderWidgetsCommand(service widgetReorderer, telemetry Telemetry) *ReorderWidgetsCommand {
	return &ReorderWidgetsCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

func NewRefreshWidgetCommand(service widgetNotifier, telemetry Telemetry) *RefreshWidgetCommand {
	return &RefreshWidgetCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

// Execute adds the widget after checking the target area exists.
func (c *AssignWidgetCommand) Execute(ctx context.Context, msg dashboard.AddWidgetRequest) error {
	if c.service == nil {
		return errors.New("assign command requires service")
	}
	if msg.DefinitionID == "" {
		return fmt.Errorf("%w: definition id is required", dashboard.ErrInvalidInput)
	}
	if err := knownArea(msg.AreaCode); err != nil {
		return err
	}
	if err := c.service.AddWidget(ctx, msg); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.widget.assign", map[string]any{
		"definition_id": msg.DefinitionID,
		"area_code":     msg.AreaCode,
	})
	return nil
}

func (c *UpdateWidgetCommand) Execute(ctx context.Context, msg UpdateWidgetInput) error {
	if c.service == nil {
		return errors.New("update command requires service")
	}
	if msg.WidgetID == "" {
		return fmt.Errorf("%w: widget id is required", dashboard.ErrInvalidInput)
	}
	err := c.service.UpdateWidget(ctx, dashboard.UpdateWidgetRequest{
		WidgetID:      msg.WidgetID,
		Configuration: msg.Configuration,
	})
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.widget.update", map[string]any{
		"widget_id": msg.WidgetID,
		"keys":      len(msg.Configuration),
	})
	return nil
}

func (c *RemoveWidgetCommand) Execute(ctx context.Context, msg RemoveWidgetInput) error {
	if c.service == nil {
		return errors.New("remove command requires service")
	}
	if msg.WidgetID == "" {
		return fmt.Errorf("%w: widget id is required", dashboard.ErrInvalidInput)
	}
	if err := c.service.RemoveWidget(ctx, msg.WidgetID); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.widget.remove", map[string]any{"widget_id": msg.WidgetID})
	return nil
}

// Execute applies the new ordering. Duplicate ids are rejected.
func (c *ReorderWidgetsCommand) Execute(ctx context.Context, msg ReorderWidgetsInput) error {
	if c.service == nil {
		return errors.New("reorder command requires service")
	}
	if err := knownArea(msg.AreaCode); err != nil {
		return err
	}
	sorted := slices.Sorted(slices.Values(msg.WidgetIDs))
	if len(slices.Compact(sorted)) != len(msg.WidgetIDs) {
		return fmt.Errorf("%w: duplicate widget ids in reorder of %s", dashboard.ErrInvalidInput, msg.AreaCode)
	}
	if err := c.service.ReorderWidgets(ctx, msg.AreaCode, msg.WidgetIDs); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.widget.reorder", map[string]any{
		"area_code": msg.AreaCode,
		"count":     len(msg.WidgetIDs),
	})
	return nil
}

// Execute forwards the event; an empty reason becomes "manual".
func (c *RefreshWidgetCommand) Execute(ctx context.Context, msg RefreshWidgetInput) error {
	if c.service == nil {
		return errors.New("refresh command requires service")
	}
	event := msg.Event
	if event.Reason == "" {
		event.Reason = manualRefresh
	}
	if err := c.service.NotifyWidgetUpdated(ctx, event); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.widget.refresh", map[string]any{
		"area_code": event.AreaCode,
		"widget_id": event.Instance.ID,
		"reason":    event.Reason,
	})
	return nil
}

func knownArea(code string) error {
	if !slices.Contains(dashboard.DefaultAreas(), code) {
		return fmt.Errorf("%w: unknown area %q", dashboard.ErrInvalidInput, code)
	}
	return nil
}
