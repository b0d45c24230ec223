package commands

import (
	"context"
	"errors"
	"fmt"

	dashboard "github.com/goliatone/go-campaign-dashboard/components/dashboard"
	gocommand "github.com/goliatone/go-command"
)

// ChartAction names a chart set mutation.
type ChartAction string

const (
	ChartAdd    ChartAction = "add"
	ChartRemove ChartAction = "remove"
	ChartChecks ChartAction = "checks"
	ChartToggle ChartAction = "toggle"
)

// UpdateChartsInput carries one chart set mutation. Checks replaces the
// metric selection of ChartID; Metric and On toggle a single metric.
type UpdateChartsInput struct {
	Viewer  dashboard.ViewerContext `json:"viewer"`
	Action  ChartAction             `json:"action"`
	ChartID string                  `json:"chart_id,omitempty"`
	Checks  *dashboard.ChartChecks  `json:"checks,omitempty"`
	Metric  dashboard.ChartMetric   `json:"metric,omitempty"`
	On      bool                    `json:"on,omitempty"`
}

type chartService interface {
	AddChart(ctx context.Context, viewer dashboard.ViewerContext) (dashboard.ChartEntry, error)
	RemoveChart(ctx context.Context, viewer dashboard.ViewerContext, id string) (dashboard.ChartSet, error)
	UpdateChartChecks(ctx context.Context, viewer dashboard.ViewerContext, id string, checks dashboard.ChartChecks) (dashboard.ChartSet, error)
	ToggleChartMetric(ctx context.Context, viewer dashboard.ViewerContext, id string, metric dashboard.ChartMetric, on bool) (dashboard.ChartSet, error)
}

// UpdateChartsCommand adds, removes and reconfigures unified charts.
type UpdateChartsCommand struct {
	service   chartService
	telemetry Telemetry
}

// NewUpdateChartsCommand creates the command.
func NewUpdateChartsCommand(service chartService, telemetry Telemetry) *UpdateChartsCommand {
	return &UpdateChartsCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[UpdateChartsInput] = (*UpdateChartsCommand)(nil)

// Execute dispatches on the action.
func (c *UpdateChartsCommand) Execute(ctx context.Context, msg UpdateChartsInput) error {
	if c.service == nil {
		return errors.New("charts command requires service")
	}
	chartID := msg.ChartID
	var err error
	switch msg.Action {
	case ChartAdd:
		var entry dashboard.ChartEntry
		entry, err = c.service.AddChart(ctx, msg.Viewer)
		chartID = entry.ID
	case ChartRemove:
		_, err = c.service.RemoveChart(ctx, msg.Viewer, msg.ChartID)
	case ChartChecks:
		if msg.Checks == nil {
			return fmt.Errorf("%w: checks are required", dashboard.ErrInvalidInput)
		}
		_, err = c.service.UpdateChartChecks(ctx, msg.Viewer, msg.ChartID, *msg.Checks)
	case ChartToggle:
		_, err = c.service.ToggleChartMetric(ctx, msg.Viewer, msg.ChartID, msg.Metric, msg.On)
	default:
		err = fmt.Errorf("%w: unknown chart action %q", dashboard.ErrInvalidInput, msg.Action)
	}
	if err != nil {
		return err
	}
	recordViewer(ctx, c.telemetry, "dashboard.preferences.charts", msg.Viewer, map[string]any{
		"action":   string(msg.Action),
		"chart_id": chartID,
	})
	return nil
}
