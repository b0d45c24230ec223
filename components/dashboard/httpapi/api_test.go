package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-campaign-dashboard/components/dashboard"
	"github.com/goliatone/go-campaign-dashboard/components/dashboard/commands"
)

type stubCommander[T any] struct {
	last  T
	calls int
	err   error
}

func (s *stubCommander[T]) Execute(ctx context.Context, msg T) error {
	s.last = msg
	s.calls++
	return s.err
}

func TestHandleAssignWidget(t *testing.T) {
	assign := &stubCommander[dashboard.AddWidgetRequest]{}
	api := &Handlers{API: &CommandExecutor{AssignCommander: assign}}
	payload := dashboard.AddWidgetRequest{DefinitionID: dashboard.WidgetSummary, AreaCode: dashboard.AreaSidebar}
	buf, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/widgets", bytes.NewReader(buf))
	rec := httptest.NewRecorder()
	api.HandleAssignWidget(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if assign.calls != 1 {
		t.Fatalf("expected assign to execute")
	}
}

func TestHandleRemoveWidget(t *testing.T) {
	remove := &stubCommander[commands.RemoveWidgetInput]{}
	api := &Handlers{API: &CommandExecutor{RemoveCommander: remove}}
	mux := http.NewServeMux()
	api.Register(mux, "/dashboard")

	req := httptest.NewRequest(http.MethodDelete, "/dashboard/widgets/w1", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if remove.last.WidgetID != "w1" {
		t.Fatalf("expected widget id propagation")
	}
}

func TestHandleUpdateWidget(t *testing.T) {
	update := &stubCommander[commands.UpdateWidgetInput]{}
	api := &Handlers{API: &CommandExecutor{UpdateCommander: update}}
	mux := http.NewServeMux()
	api.Register(mux, "/dashboard/")

	body := strings.NewReader(`{"configuration":{"height":"240px"}}`)
	req := httptest.NewRequest(http.MethodPut, "/dashboard/widgets/w7", body)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "w7", update.last.WidgetID)
	assert.Equal(t, "240px", update.last.Configuration["height"])
}

func TestHandleReorderWidgets(t *testing.T) {
	reorder := &stubCommander[commands.ReorderWidgetsInput]{}
	api := &Handlers{API: &CommandExecutor{ReorderCommander: reorder}}
	payload := commands.ReorderWidgetsInput{AreaCode: dashboard.AreaGrids, WidgetIDs: []string{"w1", "w2"}}
	buf, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/widgets/reorder", bytes.NewReader(buf))
	rec := httptest.NewRecorder()
	api.HandleReorderWidgets(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if reorder.calls != 1 || reorder.last.AreaCode != dashboard.AreaGrids {
		t.Fatalf("expected reorder to execute with the decoded payload")
	}
}

func TestHandleRefreshWidget(t *testing.T) {
	refresh := &stubCommander[commands.RefreshWidgetInput]{}
	api := &Handlers{API: &CommandExecutor{RefreshCommander: refresh}}
	payload := commands.RefreshWidgetInput{Event: dashboard.WidgetEvent{AreaCode: dashboard.AreaCharts}}
	buf, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/widgets/refresh", bytes.NewReader(buf))
	rec := httptest.NewRecorder()
	api.HandleRefreshWidget(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if refresh.calls != 1 {
		t.Fatalf("expected refresh to execute")
	}
}

func TestHandlersRejectMalformedBody(t *testing.T) {
	assign := &stubCommander[dashboard.AddWidgetRequest]{}
	api := &Handlers{API: &CommandExecutor{AssignCommander: assign}}
	req := httptest.NewRequest(http.MethodPost, "/widgets", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	api.HandleAssignWidget(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, assign.calls)
}

func TestCommandExecutorReportsMissingCommanders(t *testing.T) {
	executor := &CommandExecutor{}
	err := executor.Charts(context.Background(), commands.UpdateChartsInput{})
	assert.ErrorIs(t, err, ErrUnavailable)

	reader := &QueryReader{}
	_, err = reader.Summary(context.Background(), dashboard.ViewerContext{})
	assert.ErrorIs(t, err, ErrUnavailable)

	api := &Handlers{API: executor}
	rec := httptest.NewRecorder()
	api.HandleAssignWidget(rec, httptest.NewRequest(http.MethodPost, "/widgets", strings.NewReader("{}")))
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusFor(dashboard.ErrEmptyPresetName))
	assert.Equal(t, http.StatusNotFound, StatusFor(dashboard.ErrNotFound))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("disk full")))
}

func newServiceMux(t *testing.T) *http.ServeMux {
	t.Helper()
	now := time.Date(2025, time.October, 15, 12, 0, 0, 0, time.UTC)
	service := dashboard.NewService(dashboard.Options{
		Clock: func() time.Time { return now },
		Preferences: dashboard.NewPreferences(dashboard.PreferencesOptions{
			Clock:   func() time.Time { return now },
			ChartID: func() (string, error) { return "chart-http", nil },
		}),
	})
	api := &Handlers{
		API:    NewServiceExecutor(service, nil),
		Reader: NewServiceReader(service),
	}
	mux := http.NewServeMux()
	api.Register(mux, "/dashboard")
	return mux
}

func serve(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(UserHeader, "ivan")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestFilterEndpoints(t *testing.T) {
	mux := newServiceMux(t)

	rec := serve(mux, http.MethodPut, "/dashboard/filters", `{"campaign":"Amazon","date_preset":"yesterday"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var state dashboard.FilterState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, "Amazon", state.Campaign)
	require.NotNil(t, state.DateRange)
	assert.Equal(t, 14, state.DateRange.Start.Day())

	rec = serve(mux, http.MethodPut, "/dashboard/filters", `{"campaign":"Etsy"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown filter value")

	rec = serve(mux, http.MethodDelete, "/dashboard/filters", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())

	rec = serve(mux, http.MethodGet, "/dashboard/filters/options", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"value":"Shopify"`)
}

func TestPreferenceEndpoints(t *testing.T) {
	mux := newServiceMux(t)

	rec := serve(mux, http.MethodPost, "/dashboard/preferences/flags", `{"key":"chartsCollapsed"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var snapshot dashboard.PreferenceSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	assert.True(t, snapshot.Flags[dashboard.PrefChartsCollapsed])

	rec = serve(mux, http.MethodPost, "/dashboard/preferences/charts", `{"action":"add"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	require.Len(t, snapshot.Charts, 2)
	assert.Equal(t, "chart-http", snapshot.Charts[1].ID)

	rec = serve(mux, http.MethodPost, "/dashboard/preferences/charts", `{"action":"remove","chart_id":"main"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(mux, http.MethodPost, "/dashboard/preferences/charts", `{"action":"remove","chart_id":"chart-gone"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(mux, http.MethodPost, "/dashboard/preferences/tables/details", `{"action":"visibility","column":"clicks"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	assert.False(t, snapshot.Tables[dashboard.TableDetails].Columns.IsVisible("clicks"))

	rec = serve(mux, http.MethodPost, "/dashboard/preferences/view-mode", `{"mode":"blogger"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	assert.Equal(t, dashboard.ViewModeBlogger, snapshot.ViewMode)

	rec = serve(mux, http.MethodPost, "/dashboard/preferences/tiles", `{"action":"save_preset","name":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(mux, http.MethodGet, "/dashboard/preferences", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	assert.True(t, snapshot.Flags[dashboard.PrefChartsCollapsed])
}

func TestGridAndSummaryEndpoints(t *testing.T) {
	mux := newServiceMux(t)

	rec := serve(mux, http.MethodGet, "/dashboard/grids/details?page=1&size=20", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var grid dashboard.GridView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &grid))
	assert.Equal(t, 20, grid.Page.Size)
	assert.Len(t, grid.Rows, 4)

	rec = serve(mux, http.MethodGet, "/dashboard/grids/orders", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(mux, http.MethodGet, "/dashboard/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Period not selected")
}

func TestViewerFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/dashboard/summary", nil)
	req.Header.Set(UserHeader, " maria ")
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9,en;q=0.8")
	viewer := ViewerFromRequest(req)
	assert.Equal(t, "maria", viewer.UserID)
	assert.Equal(t, "ru", viewer.Locale)

	req = httptest.NewRequest(http.MethodGet, "/dashboard/summary?locale=EN", nil)
	req.Header.Set("Accept-Language", "ru")
	assert.Equal(t, "en", ViewerFromRequest(req).Locale)

	assert.Equal(t, "", AcceptLanguage(""))
}

func TestEventsStreamOnlyCarriesViewerEvents(t *testing.T) {
	hook := dashboard.NewBroadcastHook()
	api := &Handlers{Events: hook}
	mux := http.NewServeMux()
	api.Register(mux, "/dashboard")
	srv := httptest.NewServer(mux)
	defer srv.Close()
	defer hook.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/dashboard/events", nil)
	require.NoError(t, err)
	req.Header.Set(UserHeader, "ana")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Eventually(t, func() bool { return hook.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
	ctx := context.Background()
	require.NoError(t, hook.WidgetUpdated(ctx, dashboard.WidgetEvent{Reason: "storage", ViewerID: "ivan", Key: dashboard.PrefViewMode}))
	require.NoError(t, hook.WidgetUpdated(ctx, dashboard.WidgetEvent{Reason: "storage", ViewerID: "ana", Key: dashboard.PrefSummaryOpen}))

	reader := bufio.NewReader(resp.Body)
	var data string
	for !strings.HasPrefix(data, "data: ") {
		data, err = reader.ReadString('\n')
		require.NoError(t, err)
	}
	assert.Contains(t, data, `"viewer_id":"ana"`)
	assert.NotContains(t, data, "ivan")
}

func TestLayoutAndAreaEndpointsNarrowResults(t *testing.T) {
	ctx := context.Background()
	store := dashboard.NewMemoryWidgetStore()
	registry := dashboard.NewRegistry()
	service := dashboard.NewService(dashboard.Options{WidgetStore: store, Providers: registry})
	require.NoError(t, dashboard.RegisterAreas(ctx, store))
	require.NoError(t, dashboard.RegisterDefinitions(ctx, store, registry))
	require.NoError(t, dashboard.SeedLayout(ctx, service))
	api := &Handlers{Reader: NewServiceReader(service)}
	mux := http.NewServeMux()
	api.Register(mux, "/dashboard")

	rec := serve(mux, http.MethodGet, "/dashboard/layout?area="+dashboard.AreaGrids, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var layout dashboard.Layout
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &layout))
	require.Len(t, layout.Areas, 1)
	assert.Len(t, layout.Areas[dashboard.AreaGrids], 2)

	rec = serve(mux, http.MethodGet, "/dashboard/areas/"+dashboard.AreaGrids+"?definition="+dashboard.WidgetContentGrid, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var area dashboard.ResolvedArea
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &area))
	require.Len(t, area.Widgets, 1)
	assert.Equal(t, dashboard.WidgetContentGrid, area.Widgets[0].DefinitionID)
}
