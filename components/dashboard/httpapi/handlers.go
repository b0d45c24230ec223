package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"golang.org/x/text/language"

	"github.com/goliatone/go-campaign-dashboard/components/dashboard"
	"github.com/goliatone/go-campaign-dashboard/components/dashboard/commands"
	"github.com/goliatone/go-campaign-dashboard/components/dashboard/queries"
)

// UserHeader carries the viewer id when no ViewerFunc is configured.
const UserHeader = "X-Dashboard-User"

// ViewerFunc resolves the viewer of a request.
type ViewerFunc func(*http.Request) dashboard.ViewerContext

// Handlers exposes the dashboard over net/http. Mutations of viewer
// preferences and filters answer with the refreshed read model when a Reader
// is configured.
type Handlers struct {
	API    Executor
	Reader Reader
	Viewer ViewerFunc
	Events *dashboard.BroadcastHook
}

// Register mounts every handler on mux below base.
func (h *Handlers) Register(mux *http.ServeMux, base string) {
	base = strings.TrimRight(base, "/")
	route := func(method, path string, fn http.HandlerFunc) {
		mux.HandleFunc(method+" "+base+path, fn)
	}
	route(http.MethodPost, "/widgets", h.HandleAssignWidget)
	route(http.MethodPost, "/widgets/reorder", h.HandleReorderWidgets)
	route(http.MethodPost, "/widgets/refresh", h.HandleRefreshWidget)
	route(http.MethodPut, "/widgets/{id}", func(w http.ResponseWriter, r *http.Request) {
		h.HandleUpdateWidget(w, r, r.PathValue("id"))
	})
	route(http.MethodDelete, "/widgets/{id}", func(w http.ResponseWriter, r *http.Request) {
		h.HandleRemoveWidget(w, r, r.PathValue("id"))
	})
	route(http.MethodGet, "/layout", h.HandleLayout)
	route(http.MethodGet, "/areas/{area}", func(w http.ResponseWriter, r *http.Request) {
		h.HandleArea(w, r, r.PathValue("area"))
	})
	route(http.MethodGet, "/filters", h.HandleFilters)
	route(http.MethodPut, "/filters", h.HandleUpdateFilters)
	route(http.MethodDelete, "/filters", h.HandleResetFilters)
	route(http.MethodGet, "/filters/options", h.HandleFilterOptions)
	route(http.MethodGet, "/preferences", h.HandlePreferences)
	route(http.MethodPost, "/preferences/layout", h.HandleSaveLayout)
	route(http.MethodPost, "/preferences/flags", h.HandleSetFlag)
	route(http.MethodPost, "/preferences/tiles", h.HandleTiles)
	route(http.MethodPost, "/preferences/tables/{table}", func(w http.ResponseWriter, r *http.Request) {
		h.HandleColumns(w, r, r.PathValue("table"))
	})
	route(http.MethodPost, "/preferences/view-mode", h.HandleViewMode)
	route(http.MethodPost, "/preferences/charts", h.HandleCharts)
	route(http.MethodGet, "/grids/{table}", func(w http.ResponseWriter, r *http.Request) {
		h.HandleGrid(w, r, r.PathValue("table"))
	})
	route(http.MethodGet, "/summary", h.HandleSummary)
	if h.Events != nil {
		route(http.MethodGet, "/events", func(w http.ResponseWriter, r *http.Request) {
			h.Events.ServeSSE(w, r, h.viewer(r))
		})
		route(http.MethodGet, "/ws", func(w http.ResponseWriter, r *http.Request) {
			h.Events.ServeWebSocket(w, r, h.viewer(r))
		})
	}
}

func (h *Handlers) HandleAssignWidget(w http.ResponseWriter, r *http.Request) {
	var payload dashboard.AddWidgetRequest
	if !decode(w, r, &payload) {
		return
	}
	if err := h.API.Assign(r.Context(), payload); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handlers) HandleUpdateWidget(w http.ResponseWriter, r *http.Request, widgetID string) {
	var payload commands.UpdateWidgetInput
	if !decode(w, r, &payload) {
		return
	}
	payload.WidgetID = widgetID
	if err := h.API.Update(r.Context(), payload); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) HandleRemoveWidget(w http.ResponseWriter, r *http.Request, widgetID string) {
	input := commands.RemoveWidgetInput{WidgetID: widgetID}
	if err := h.API.Remove(r.Context(), input); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) HandleReorderWidgets(w http.ResponseWriter, r *http.Request) {
	var payload commands.ReorderWidgetsInput
	if !decode(w, r, &payload) {
		return
	}
	if err := h.API.Reorder(r.Context(), payload); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) HandleRefreshWidget(w http.ResponseWriter, r *http.Request) {
	var payload commands.RefreshWidgetInput
	if !decode(w, r, &payload) {
		return
	}
	if err := h.API.Refresh(r.Context(), payload); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// HandleLayout serves the resolved layout, optionally narrowed by repeated
// area query parameters.
func (h *Handlers) HandleLayout(w http.ResponseWriter, r *http.Request) {
	layout, err := h.Reader.Layout(r.Context(), queries.LayoutInput{
		Viewer: h.viewer(r),
		Areas:  r.URL.Query()["area"],
	})
	respond(w, layout, err)
}

func (h *Handlers) HandleArea(w http.ResponseWriter, r *http.Request, area string) {
	resolved, err := h.Reader.Area(r.Context(), queries.WidgetAreaInput{
		Viewer:     h.viewer(r),
		AreaCode:   area,
		Definition: r.URL.Query().Get("definition"),
	})
	respond(w, resolved, err)
}

func (h *Handlers) HandleFilters(w http.ResponseWriter, r *http.Request) {
	state, err := h.Reader.Filters(r.Context(), h.viewer(r))
	respond(w, state, err)
}

// HandleUpdateFilters applies a partial FilterUpdate body.
func (h *Handlers) HandleUpdateFilters(w http.ResponseWriter, r *http.Request) {
	var update dashboard.FilterUpdate
	if !decode(w, r, &update) {
		return
	}
	viewer := h.viewer(r)
	if err := h.API.UpdateFilters(r.Context(), commands.UpdateFiltersInput{Viewer: viewer, Update: update}); err != nil {
		writeError(w, err)
		return
	}
	h.respondFilters(w, r, viewer)
}

func (h *Handlers) HandleResetFilters(w http.ResponseWriter, r *http.Request) {
	viewer := h.viewer(r)
	if err := h.API.ResetFilters(r.Context(), commands.ResetFiltersInput{Viewer: viewer}); err != nil {
		writeError(w, err)
		return
	}
	h.respondFilters(w, r, viewer)
}

func (h *Handlers) HandleFilterOptions(w http.ResponseWriter, r *http.Request) {
	options, err := h.Reader.FilterOptions(r.Context())
	respond(w, options, err)
}

func (h *Handlers) HandlePreferences(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.Reader.Preferences(r.Context(), h.viewer(r))
	respond(w, snapshot, err)
}

func (h *Handlers) HandleSaveLayout(w http.ResponseWriter, r *http.Request) {
	var payload commands.SaveLayoutPreferencesInput
	if !decode(w, r, &payload) {
		return
	}
	payload.Viewer = h.viewer(r)
	if err := h.API.Preferences(r.Context(), payload); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) HandleSetFlag(w http.ResponseWriter, r *http.Request) {
	var payload commands.SetFlagInput
	if !decode(w, r, &payload) {
		return
	}
	payload.Viewer = h.viewer(r)
	h.mutatePreferences(w, r, payload.Viewer, h.API.SetFlag(r.Context(), payload))
}

func (h *Handlers) HandleTiles(w http.ResponseWriter, r *http.Request) {
	var payload commands.UpdateTilesInput
	if !decode(w, r, &payload) {
		return
	}
	payload.Viewer = h.viewer(r)
	h.mutatePreferences(w, r, payload.Viewer, h.API.Tiles(r.Context(), payload))
}

func (h *Handlers) HandleColumns(w http.ResponseWriter, r *http.Request, tableID string) {
	var payload commands.UpdateColumnsInput
	if !decode(w, r, &payload) {
		return
	}
	payload.Viewer = h.viewer(r)
	payload.TableID = tableID
	h.mutatePreferences(w, r, payload.Viewer, h.API.Columns(r.Context(), payload))
}

func (h *Handlers) HandleViewMode(w http.ResponseWriter, r *http.Request) {
	var payload commands.SetViewModeInput
	if !decode(w, r, &payload) {
		return
	}
	payload.Viewer = h.viewer(r)
	h.mutatePreferences(w, r, payload.Viewer, h.API.ViewMode(r.Context(), payload))
}

func (h *Handlers) HandleCharts(w http.ResponseWriter, r *http.Request) {
	var payload commands.UpdateChartsInput
	if !decode(w, r, &payload) {
		return
	}
	payload.Viewer = h.viewer(r)
	h.mutatePreferences(w, r, payload.Viewer, h.API.Charts(r.Context(), payload))
}

// HandleGrid serves one page of a grid; page and size come from the query string.
func (h *Handlers) HandleGrid(w http.ResponseWriter, r *http.Request, tableID string) {
	input := queries.GridInput{
		Viewer:  h.viewer(r),
		TableID: tableID,
		Page:    intParam(r, "page"),
		Size:    intParam(r, "size"),
	}
	grid, err := h.Reader.Grid(r.Context(), input)
	respond(w, grid, err)
}

func (h *Handlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Reader.Summary(r.Context(), h.viewer(r))
	respond(w, summary, err)
}

func (h *Handlers) mutatePreferences(w http.ResponseWriter, r *http.Request, viewer dashboard.ViewerContext, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	if h.Reader == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	snapshot, err := h.Reader.Preferences(r.Context(), viewer)
	respond(w, snapshot, err)
}

func (h *Handlers) respondFilters(w http.ResponseWriter, r *http.Request, viewer dashboard.ViewerContext) {
	if h.Reader == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	state, err := h.Reader.Filters(r.Context(), viewer)
	respond(w, state, err)
}

func (h *Handlers) viewer(r *http.Request) dashboard.ViewerContext {
	if h.Viewer != nil {
		return h.Viewer(r)
	}
	return ViewerFromRequest(r)
}

// ViewerFromRequest reads the viewer id from UserHeader and the locale from
// the locale query parameter or the Accept-Language header.
func ViewerFromRequest(r *http.Request) dashboard.ViewerContext {
	viewer := dashboard.ViewerContext{UserID: strings.TrimSpace(r.Header.Get(UserHeader))}
	if locale := strings.TrimSpace(r.URL.Query().Get("locale")); locale != "" {
		viewer.Locale = strings.ToLower(locale)
		return viewer
	}
	viewer.Locale = AcceptLanguage(r.Header.Get("Accept-Language"))
	return viewer
}

// AcceptLanguage returns the base language of the preferred tag, or "".
func AcceptLanguage(header string) string {
	if strings.TrimSpace(header) == "" {
		return ""
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return ""
	}
	base, confidence := tags[0].Base()
	if confidence == language.No {
		return ""
	}
	return base.String()
}

func intParam(r *http.Request, name string) int {
	value, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return value
}

func decode(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return false
	}
	return true
}

func respond(w http.ResponseWriter, payload any, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// StatusFor maps a command or query error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnavailable):
		return http.StatusNotImplemented
	case dashboard.IsInvalidInput(err):
		return http.StatusBadRequest
	case dashboard.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, StatusFor(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
