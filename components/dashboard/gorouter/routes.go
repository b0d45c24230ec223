package gorouter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	router "github.com/goliatone/go-router"

	"github.com/goliatone/go-campaign-dashboard/components/dashboard"
	"github.com/goliatone/go-campaign-dashboard/components/dashboard/commands"
	"github.com/goliatone/go-campaign-dashboard/components/dashboard/httpapi"
	"github.com/goliatone/go-campaign-dashboard/components/dashboard/queries"
)

// ViewerResolver converts a router.Context into a dashboard.ViewerContext.
type ViewerResolver func(router.Context) dashboard.ViewerContext

// Config wires go-router with the campaign dashboard controller, API and hooks.
type Config[T any] struct {
	Router         router.Router[T]
	Controller     *dashboard.Controller
	API            httpapi.Executor
	Reader         httpapi.Reader
	Broadcast      *dashboard.BroadcastHook
	ViewerResolver ViewerResolver
	BasePath       string
	Routes         RouteConfig
}

// RouteConfig customizes the relative paths used for dashboard endpoints.
type RouteConfig struct {
	HTML          string
	Layout        string
	Widgets       string
	WidgetID      string
	Reorder       string
	Refresh       string
	Preferences   string
	Layouts       string
	Flags         string
	Tiles         string
	Tables        string
	ViewMode      string
	Charts        string
	Filters       string
	FilterOptions string
	Grids         string
	Summary       string
	WebSocket     string
}

// requestContext is the part of router.Context the handlers use.
type requestContext interface {
	Context() context.Context
	Body() []byte
	Param(name string, defaultValue ...string) string
	Query(name string, defaultValue ...string) string
	JSON(code int, v any) error
	Send(body []byte) error
	SetHeader(key, value string) router.Context
}

// Register mounts dashboard routes (HTML, JSON, REST, WebSocket) on a go-router router.
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.Controller == nil {
		return errors.New("gorouter: controller is required")
	}
	routes := defaultRouteConfig(cfg.Routes)
	base := cfg.BasePath
	if base == "" {
		base = "/campaigns"
	}
	resolver := cfg.ViewerResolver
	if resolver == nil {
		resolver = defaultViewerResolver
	}
	h := handlers{controller: cfg.Controller, api: cfg.API, reader: cfg.Reader}
	wrap := func(fn func(requestContext, dashboard.ViewerContext) error) router.HandlerFunc {
		return router.WrapHandler(func(ctx router.Context) error {
			return fn(ctx, resolver(ctx))
		})
	}

	group := cfg.Router.Group(base)
	group.Get(routes.HTML, wrap(h.html))
	group.Get(routes.Layout, wrap(h.layout))

	if cfg.API != nil {
		group.Post(routes.Widgets, wrap(h.assign))
		group.Put(routes.WidgetID, wrap(h.update))
		group.Delete(routes.WidgetID, wrap(h.remove))
		group.Post(routes.Reorder, wrap(h.reorder))
		group.Post(routes.Refresh, wrap(h.refresh))
		group.Post(routes.Layouts, wrap(h.saveLayout))
		group.Put(routes.Filters, wrap(h.updateFilters))
		group.Delete(routes.Filters, wrap(h.resetFilters))
		group.Post(routes.Flags, wrap(h.setFlag))
		group.Post(routes.Tiles, wrap(h.tiles))
		group.Post(routes.Tables, wrap(h.columns))
		group.Post(routes.ViewMode, wrap(h.viewMode))
		group.Post(routes.Charts, wrap(h.charts))
	}
	if cfg.Reader != nil {
		group.Get(routes.Filters, wrap(h.filters))
		group.Get(routes.FilterOptions, wrap(h.filterOptions))
		group.Get(routes.Preferences, wrap(h.preferences))
		group.Get(routes.Grids, wrap(h.grid))
		group.Get(routes.Summary, wrap(h.summary))
	}
	if cfg.Broadcast != nil {
		registerWebSocket(group, cfg.Broadcast, routes.WebSocket, resolver)
	}
	return nil
}

type handlers struct {
	controller *dashboard.Controller
	api        httpapi.Executor
	reader     httpapi.Reader
}

func (h handlers) html(ctx requestContext, viewer dashboard.ViewerContext) error {
	var buf bytes.Buffer
	if err := h.controller.RenderTemplate(ctx.Context(), viewer, &buf); err != nil {
		return respondError(ctx, err)
	}
	ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
	return ctx.Send(buf.Bytes())
}

func (h handlers) layout(ctx requestContext, viewer dashboard.ViewerContext) error {
	payload, err := h.controller.LayoutPayload(ctx.Context(), viewer)
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(200, payload)
}

func (h handlers) assign(ctx requestContext, viewer dashboard.ViewerContext) error {
	var payload dashboard.AddWidgetRequest
	if err := decode(ctx, &payload); err != nil {
		return respondError(ctx, err)
	}
	if payload.UserID == "" {
		payload.UserID = viewer.UserID
	}
	if err := h.api.Assign(ctx.Context(), payload); err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(201, map[string]string{"status": "created"})
}

func (h handlers) update(ctx requestContext, _ dashboard.ViewerContext) error {
	var payload commands.UpdateWidgetInput
	if err := decode(ctx, &payload); err != nil {
		return respondError(ctx, err)
	}
	payload.WidgetID = ctx.Param("id")
	if err := h.api.Update(ctx.Context(), payload); err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(200, map[string]string{"status": "updated"})
}

func (h handlers) remove(ctx requestContext, _ dashboard.ViewerContext) error {
	id := ctx.Param("id")
	if id == "" {
		return respondError(ctx, dashboard.ErrInvalidInput)
	}
	if err := h.api.Remove(ctx.Context(), commands.RemoveWidgetInput{WidgetID: id}); err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(200, map[string]string{"status": "removed"})
}

func (h handlers) reorder(ctx requestContext, _ dashboard.ViewerContext) error {
	var payload commands.ReorderWidgetsInput
	if err := decode(ctx, &payload); err != nil {
		return respondError(ctx, err)
	}
	if err := h.api.Reorder(ctx.Context(), payload); err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(200, map[string]string{"status": "reordered"})
}

func (h handlers) refresh(ctx requestContext, _ dashboard.ViewerContext) error {
	var payload commands.RefreshWidgetInput
	if err := decode(ctx, &payload); err != nil {
		return respondError(ctx, err)
	}
	if err := h.api.Refresh(ctx.Context(), payload); err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(202, map[string]string{"status": "queued"})
}

func (h handlers) saveLayout(ctx requestContext, viewer dashboard.ViewerContext) error {
	var payload commands.SaveLayoutPreferencesInput
	if err := decode(ctx, &payload); err != nil {
		return respondError(ctx, err)
	}
	payload.Viewer = viewer
	if err := h.api.Preferences(ctx.Context(), payload); err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(200, map[string]string{"status": "saved"})
}

func (h handlers) updateFilters(ctx requestContext, viewer dashboard.ViewerContext) error {
	var update dashboard.FilterUpdate
	if err := decode(ctx, &update); err != nil {
		return respondError(ctx, err)
	}
	if err := h.api.UpdateFilters(ctx.Context(), commands.UpdateFiltersInput{Viewer: viewer, Update: update}); err != nil {
		return respondError(ctx, err)
	}
	return h.filters(ctx, viewer)
}

func (h handlers) resetFilters(ctx requestContext, viewer dashboard.ViewerContext) error {
	if err := h.api.ResetFilters(ctx.Context(), commands.ResetFiltersInput{Viewer: viewer}); err != nil {
		return respondError(ctx, err)
	}
	return h.filters(ctx, viewer)
}

func (h handlers) filters(ctx requestContext, viewer dashboard.ViewerContext) error {
	if h.reader == nil {
		return ctx.JSON(200, map[string]string{"status": "ok"})
	}
	state, err := h.reader.Filters(ctx.Context(), viewer)
	return respond(ctx, state, err)
}

func (h handlers) filterOptions(ctx requestContext, _ dashboard.ViewerContext) error {
	options, err := h.reader.FilterOptions(ctx.Context())
	return respond(ctx, options, err)
}

func (h handlers) preferences(ctx requestContext, viewer dashboard.ViewerContext) error {
	if h.reader == nil {
		return ctx.JSON(200, map[string]string{"status": "saved"})
	}
	snapshot, err := h.reader.Preferences(ctx.Context(), viewer)
	return respond(ctx, snapshot, err)
}

func (h handlers) setFlag(ctx requestContext, viewer dashboard.ViewerContext) error {
	var payload commands.SetFlagInput
	if err := decode(ctx, &payload); err != nil {
		return respondError(ctx, err)
	}
	payload.Viewer = viewer
	if err := h.api.SetFlag(ctx.Context(), payload); err != nil {
		return respondError(ctx, err)
	}
	return h.preferences(ctx, viewer)
}

func (h handlers) tiles(ctx requestContext, viewer dashboard.ViewerContext) error {
	var payload commands.UpdateTilesInput
	if err := decode(ctx, &payload); err != nil {
		return respondError(ctx, err)
	}
	payload.Viewer = viewer
	if err := h.api.Tiles(ctx.Context(), payload); err != nil {
		return respondError(ctx, err)
	}
	return h.preferences(ctx, viewer)
}

func (h handlers) columns(ctx requestContext, viewer dashboard.ViewerContext) error {
	var payload commands.UpdateColumnsInput
	if err := decode(ctx, &payload); err != nil {
		return respondError(ctx, err)
	}
	payload.Viewer = viewer
	payload.TableID = ctx.Param("table")
	if err := h.api.Columns(ctx.Context(), payload); err != nil {
		return respondError(ctx, err)
	}
	return h.preferences(ctx, viewer)
}

func (h handlers) viewMode(ctx requestContext, viewer dashboard.ViewerContext) error {
	var payload commands.SetViewModeInput
	if err := decode(ctx, &payload); err != nil {
		return respondError(ctx, err)
	}
	payload.Viewer = viewer
	if err := h.api.ViewMode(ctx.Context(), payload); err != nil {
		return respondError(ctx, err)
	}
	return h.preferences(ctx, viewer)
}

func (h handlers) charts(ctx requestContext, viewer dashboard.ViewerContext) error {
	var payload commands.UpdateChartsInput
	if err := decode(ctx, &payload); err != nil {
		return respondError(ctx, err)
	}
	payload.Viewer = viewer
	if err := h.api.Charts(ctx.Context(), payload); err != nil {
		return respondError(ctx, err)
	}
	return h.preferences(ctx, viewer)
}

func (h handlers) grid(ctx requestContext, viewer dashboard.ViewerContext) error {
	input := queries.GridInput{
		Viewer:  viewer,
		TableID: ctx.Param("table"),
		Page:    atoi(ctx.Query("page", "1")),
		Size:    atoi(ctx.Query("size", "10")),
	}
	grid, err := h.reader.Grid(ctx.Context(), input)
	return respond(ctx, grid, err)
}

func (h handlers) summary(ctx requestContext, viewer dashboard.ViewerContext) error {
	summary, err := h.reader.Summary(ctx.Context(), viewer)
	return respond(ctx, summary, err)
}

func registerWebSocket[T any](r router.Router[T], hook *dashboard.BroadcastHook, path string, resolver ViewerResolver) {
	cfg := router.DefaultWebSocketConfig()
	r.WebSocket(path, cfg, func(ws router.WebSocketContext) error {
		events, cancel := hook.SubscribeViewer(resolver(ws))
		defer cancel()
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return nil
				}
				if err := ws.WriteJSON(event); err != nil {
					return err
				}
			case <-ws.Context().Done():
				return ws.Close()
			}
		}
	})
}

func defaultViewerResolver(ctx router.Context) dashboard.ViewerContext {
	var viewer dashboard.ViewerContext
	if v, ok := ctx.Locals("user_id").(string); ok {
		viewer.UserID = v
	} else {
		viewer.UserID = strings.TrimSpace(ctx.Header(httpapi.UserHeader))
	}
	if roles, ok := ctx.Locals("roles").([]string); ok {
		viewer.Roles = roles
	}
	viewer.Locale = inferLocale(ctx)
	return viewer
}

func inferLocale(ctx router.Context) string {
	if locale, ok := ctx.Locals("locale").(string); ok && locale != "" {
		return locale
	}
	if locale := strings.TrimSpace(ctx.Param("locale")); locale != "" {
		return strings.ToLower(locale)
	}
	if locale := strings.TrimSpace(ctx.Query("locale")); locale != "" {
		return strings.ToLower(locale)
	}
	return httpapi.AcceptLanguage(ctx.Header("Accept-Language"))
}

func decode(ctx requestContext, out any) error {
	body := ctx.Body()
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", dashboard.ErrInvalidInput, err)
	}
	return nil
}

func respond(ctx requestContext, payload any, err error) error {
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(200, payload)
}

func respondError(ctx requestContext, err error) error {
	return ctx.JSON(httpapi.StatusFor(err), map[string]string{"error": err.Error()})
}

func atoi(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}

func defaultRouteConfig(routes RouteConfig) RouteConfig {
	defaults := RouteConfig{
		HTML:          "/dashboard",
		Layout:        "/dashboard/_layout",
		Widgets:       "/dashboard/widgets",
		WidgetID:      "/dashboard/widgets/:id",
		Reorder:       "/dashboard/widgets/reorder",
		Refresh:       "/dashboard/widgets/refresh",
		Preferences:   "/dashboard/preferences",
		Layouts:       "/dashboard/preferences/layout",
		Flags:         "/dashboard/preferences/flags",
		Tiles:         "/dashboard/preferences/tiles",
		Tables:        "/dashboard/preferences/tables/:table",
		ViewMode:      "/dashboard/preferences/view-mode",
		Charts:        "/dashboard/preferences/charts",
		Filters:       "/dashboard/filters",
		FilterOptions: "/dashboard/filters/options",
		Grids:         "/dashboard/grids/:table",
		Summary:       "/dashboard/summary",
		WebSocket:     "/dashboard/ws",
	}
	fill := func(dst *string, fallback string) {
		if *dst == "" {
			*dst = fallback
		}
	}
	fill(&routes.HTML, defaults.HTML)
	fill(&routes.Layout, defaults.Layout)
	fill(&routes.Widgets, defaults.Widgets)
	fill(&routes.WidgetID, defaults.WidgetID)
	fill(&routes.Reorder, defaults.Reorder)
	fill(&routes.Refresh, defaults.Refresh)
	fill(&routes.Preferences, defaults.Preferences)
	fill(&routes.Layouts, defaults.Layouts)
	fill(&routes.Flags, defaults.Flags)
	fill(&routes.Tiles, defaults.Tiles)
	fill(&routes.Tables, defaults.Tables)
	fill(&routes.ViewMode, defaults.ViewMode)
	fill(&routes.Charts, defaults.Charts)
	fill(&routes.Filters, defaults.Filters)
	fill(&routes.FilterOptions, defaults.FilterOptions)
	fill(&routes.Grids, defaults.Grids)
	fill(&routes.Summary, defaults.Summary)
	fill(&routes.WebSocket, defaults.WebSocket)
	return routes
}
