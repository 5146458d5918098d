package httpcontroller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecovision/mantaview/internal/conf"
	"github.com/ecovision/mantaview/internal/dashboard"
	"github.com/ecovision/mantaview/internal/dataset"
	"github.com/ecovision/mantaview/internal/datastore"
	"github.com/ecovision/mantaview/internal/exportsink"
	"github.com/ecovision/mantaview/internal/mutation"
	"github.com/ecovision/mantaview/internal/observability"
	"github.com/ecovision/mantaview/internal/session"
	"github.com/ecovision/mantaview/internal/tide"
)

const storeCSV = `Date,Year,Month,Manta Individual,Sex,Age Class,Latitude,Longitude,Disc Width (m),Water Depth (m),Water Temperature (°C),Encounter Length (minutes),New Injury?,Which Pier
2021-05-01,2021,May,M1,F,Adult,26.70,-80.03,3.1,4,27.5,10,yes,Lake Worth
2021-06-02,2021,June,M2,M,Juvenile,26.71,-80.04,1.2,3,28,20,no,Juno
2022-05-03,2022.0,May,M1,F,Adult,,,3.3,5,26,,Y,Lake Worth
`

type testEnv struct {
	server    *Server
	storePath string
	exportDir string
}

type stubFetcher struct{}

func (stubFetcher) FetchTide(_ context.Context, stationID string, _ tide.DateRange) ([]tide.Prediction, error) {
	if stationID == "8723214" {
		return nil, &tide.StatusError{StationID: stationID, StatusCode: http.StatusInternalServerError}
	}
	return []tide.Prediction{{Time: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), Value: 1.5}}, nil
}

type stubAudit struct {
	records []datastore.AppendRecord
}

func (a *stubAudit) Recent(_ context.Context, limit int) ([]datastore.AppendRecord, error) {
	return a.records[:min(limit, len(a.records))], nil
}

func testSettings() *conf.Settings {
	return &conf.Settings{
		Main:      conf.MainSettings{Name: "mantaview"},
		WebServer: conf.WebServerSettings{Port: "0", BodyLimit: "1M"},
		Dashboard: conf.DashboardSettings{
			Title:       "Manta Ray Encounter Dashboard",
			Tabs:        conf.DefaultTabs,
			PreviewRows: 5,
			Map:         conf.MapSettings{CenterLatitude: 26.7153, CenterLongitude: -80.0534, Zoom: 10},
		},
		Metrics: conf.MetricsSettings{Enabled: true, Path: "/metrics"},
	}
}

func newTestEnv(t *testing.T, settings *conf.Settings, opts ...Option) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, settings, storeCSV, opts...)
}

func newTestEnvWithStore(t *testing.T, settings *conf.Settings, content string, opts ...Option) *testEnv {
	t.Helper()
	dir := t.TempDir()
	storePath := filepath.Join(dir, "encounters.csv")
	require.NoError(t, os.WriteFile(storePath, []byte(content), 0o600))

	store := dataset.NewStore(storePath)
	sessions := session.NewManager(store, session.Config{TTL: time.Minute, CookieName: "mv_test"})
	t.Cleanup(sessions.Close)

	gateway := mutation.NewGateway(store, mutation.WithRequiredColumns(conf.DefaultRequiredColumns))
	s, err := New(settings, sessions, gateway, opts...)
	require.NoError(t, err)
	return &testEnv{server: s, storePath: storePath, exportDir: filepath.Join(dir, "exports")}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.server.Echo.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, httptest.NewRequest(http.MethodGet, target, http.NoBody))
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func uploadRequest(t *testing.T, target, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(uploadFormField, "upload.csv")
	require.NoError(t, err)
	_, err = io.WriteString(part, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestDashboardPageRendersTabs(t *testing.T) {
	env := newTestEnv(t, testSettings())

	rec := env.get(t, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, title := range []string{"Map", "Visualizations", "Data View", "Upload Data", "Current Tides"} {
		assert.Contains(t, body, ">"+title+"</button>")
	}
	assert.Contains(t, body, "<title>Manta Ray Encounter Dashboard</title>")
	assert.Contains(t, body, "3 records loaded.")
	assert.NotEmpty(t, rec.Result().Cookies(), "first visit starts a session")
}

func TestDashboardPageEscapesDatasetValues(t *testing.T) {
	hostile := "<img src=x onerror=alert(1)>"
	content := storeCSV + "2022-08-01,2022,\"" + hostile + "\",M4,\"" + hostile + "\",Adult,,,,,,,no,Juno\n"
	env := newTestEnvWithStore(t, testSettings(), content)

	body := env.get(t, "/").Body.String()
	assert.NotContains(t, body, hostile)
	assert.Contains(t, body, "&lt;img src=x onerror=alert(1)&gt;")

	// Values fetched by the page script go through esc before innerHTML.
	for _, fragment := range []string{
		`">" + esc(v) + "</option>"`,
		`"<label>" + esc(h) + " <input name='" + esc(h) + "'>`,
		`"<h3>" + esc(r.station.name) + "</h3>"`,
		`"<p class='error'>" + esc(r.error) + "</p>"`,
		`esc(p.missing_columns.join(", "))`,
		`"<p class='error'>" + esc(p.message) + "</p>"`,
	} {
		assert.Contains(t, body, fragment)
	}
}

func TestDashboardPageHonorsDisabledTabs(t *testing.T) {
	settings := testSettings()
	settings.Dashboard.Tabs = []string{"data"}
	env := newTestEnv(t, settings)

	body := env.get(t, "/").Body.String()
	assert.Contains(t, body, ">Data View</button>")
	assert.NotContains(t, body, ">Upload Data</button>")

	rec := env.do(t, uploadRequest(t, "/api/v1/upload", storeCSV))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, env.get(t, "/api/v1/tides").Code)
}

func TestEncountersSelectionParameters(t *testing.T) {
	env := newTestEnv(t, testSettings())

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"absent parameters select everything observed", "", 3},
		{"year filter", "?year=2022", 1},
		{"normalized year", "?year=2022&sex=F", 1},
		{"repeated values", "?year=2021&year=2022&sex=M", 1},
		{"comma is part of the value", "?sex=F,M", 0},
		{"empty parameter selects nothing", "?sex=", 0},
		{"unknown value", "?age_class=Calf", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.get(t, "/api/v1/encounters"+tt.query)
			require.Equal(t, http.StatusOK, rec.Code)
			table := decode[dashboard.Table](t, rec)
			assert.Len(t, table.Rows, tt.want)
			assert.Equal(t, 3, table.Total)
		})
	}
}

func TestSelectValueContainingComma(t *testing.T) {
	content := storeCSV + "2022-07-04,2022,July,M3,F,\"Juvenile, tagged\",26.72,-80.05,1.5,4,27,15,no,Juno\n"
	env := newTestEnvWithStore(t, testSettings(), content)

	facets := decode[dashboard.Facets](t, env.get(t, "/api/v1/facets"))
	assert.Contains(t, facets.AgeClasses, "Juvenile, tagged")

	q := url.Values{}
	q.Add("age_class", "Juvenile, tagged")
	table := decode[dashboard.Table](t, env.get(t, "/api/v1/encounters?"+q.Encode()))
	require.Len(t, table.Rows, 1)
	assert.Contains(t, table.Rows[0], "M3")

	// Every option sent explicitly keeps the record in view.
	q = url.Values{}
	for _, v := range facets.AgeClasses {
		q.Add("age_class", v)
	}
	table = decode[dashboard.Table](t, env.get(t, "/api/v1/encounters?"+q.Encode()))
	assert.Len(t, table.Rows, 4)
}

func TestSessionRemembersSelection(t *testing.T) {
	env := newTestEnv(t, testSettings())

	first := env.get(t, "/api/v1/encounters?sex=M")
	cookies := first.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/encounters", http.NoBody)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	table := decode[dashboard.Table](t, env.do(t, req))
	assert.Len(t, table.Rows, 1)
}

// summaryBody mirrors the summary JSON; the mean is read as its display text.
type summaryBody struct {
	TotalEncounters   int      `json:"total_encounters"`
	UniqueIndividuals int      `json:"unique_individuals"`
	AvgEncounterText  string   `json:"avg_encounter_length_display"`
	NewInjuries       int      `json:"new_injuries"`
	Months            []string `json:"months"`
	Years             []string `json:"years"`
}

func TestSummaryScorecardFilter(t *testing.T) {
	env := newTestEnv(t, testSettings())

	all := decode[summaryBody](t, env.get(t, "/api/v1/summary"))
	assert.Equal(t, 3, all.TotalEncounters)
	assert.Equal(t, 2, all.UniqueIndividuals)
	assert.Equal(t, "15.0", all.AvgEncounterText)
	assert.Equal(t, 2, all.NewInjuries)
	assert.Equal(t, []string{"May", "June"}, all.Months)
	assert.Equal(t, []string{"2021", "2022"}, all.Years)

	may := decode[summaryBody](t, env.get(t, "/api/v1/summary?month=May&scorecard_year=2021"))
	assert.Equal(t, 1, may.TotalEncounters)
	assert.Equal(t, 1, may.NewInjuries)

	none := decode[summaryBody](t, env.get(t, "/api/v1/summary?sex="))
	assert.Equal(t, 0, none.TotalEncounters)
	assert.Equal(t, "N/A", none.AvgEncounterText)
}

func TestVisualizationsAndMap(t *testing.T) {
	env := newTestEnv(t, testSettings())

	viz := decode[dashboard.Visualizations](t, env.get(t, "/api/v1/visualizations"))
	assert.Equal(t, []string{"May", "June"}, viz.Heatmap.Months)
	assert.Len(t, viz.InjuryByPier, 1)
	assert.Len(t, viz.DepthTemperature, 3)

	m := decode[dashboard.MapView](t, env.get(t, "/api/v1/map"))
	assert.Equal(t, 10, m.Zoom)
	assert.Len(t, m.Points, 2)
}

func TestExportCSVRoundTrips(t *testing.T) {
	env := newTestEnv(t, testSettings())

	rec := env.get(t, "/api/v1/export.csv?year=2021")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), exportsink.DownloadName)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv"))

	c, err := dataset.Parse(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "26.70", c.At(0).Raw(dataset.ColumnLatitude))
}

func TestArchiveExport(t *testing.T) {
	env := newTestEnv(t, testSettings())
	rec := env.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/export/archive", http.NoBody))
	assert.Equal(t, http.StatusNotFound, rec.Code, "no sink configured")

	dir := t.TempDir()
	env = newTestEnv(t, testSettings(), WithExportSink(exportsink.NewFileSink(dir)))
	env.server.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

	rec = env.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/export/archive?sex=F", http.NoBody))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	loc := decode[exportsink.Location](t, rec)
	assert.Equal(t, "file", loc.Sink)
	assert.Equal(t, filepath.Join(dir, "filtered_manta_data_20240601T120000Z.csv"), loc.URI)

	f, err := os.Open(loc.URI)
	require.NoError(t, err)
	defer f.Close()
	c, err := dataset.Parse(f)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
}

func TestManualEntryAppendsWithoutRefreshing(t *testing.T) {
	env := newTestEnv(t, testSettings())

	first := env.get(t, "/api/v1/encounters")
	cookies := first.Result().Cookies()

	form := url.Values{}
	form.Set("Date", "2023-01-01")
	form.Set("Year", "2023")
	form.Set("Sex", "M")
	form.Set("Age Class", "Adult")
	form.Set("Manta Individual", "M9")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/encounters", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := env.do(t, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[AppendResponse](t, rec)
	assert.Equal(t, 1, resp.Rows)
	assert.Contains(t, resp.MissingColumns, "Latitude")

	withCookies := func(r *http.Request) *http.Request {
		for _, c := range cookies {
			r.AddCookie(c)
		}
		return r
	}

	table := decode[dashboard.Table](t, env.do(t, withCookies(httptest.NewRequest(http.MethodGet, "/api/v1/encounters", http.NoBody))))
	assert.Equal(t, 3, table.Total, "session keeps its snapshot until reload")

	rec = env.do(t, withCookies(httptest.NewRequest(http.MethodPost, "/api/v1/session/reload", http.NoBody)))
	require.Equal(t, http.StatusOK, rec.Code)

	table = decode[dashboard.Table](t, env.do(t, withCookies(httptest.NewRequest(http.MethodGet, "/api/v1/encounters", http.NoBody))))
	assert.Equal(t, 4, table.Total)
}

func TestManualEntryJSON(t *testing.T) {
	env := newTestEnv(t, testSettings())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/encounters",
		strings.NewReader(`{"Date":"2023-02-02","Sex":"F","Color":"grey"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := env.do(t, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"Color"}, decode[AppendResponse](t, rec).IgnoredColumns)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/encounters", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec = env.do(t, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decode[ErrorResponse](t, rec).CorrelationID)
}

func TestUnreadableStoreIsServerError(t *testing.T) {
	env := newTestEnvWithStore(t, testSettings(), "")

	assert.Equal(t, http.StatusInternalServerError, env.get(t, "/api/v1/encounters").Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/encounters", strings.NewReader(`{"Date":"2023-02-02"}`))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusInternalServerError, env.do(t, req).Code)

	healthy := newTestEnv(t, testSettings())
	rec := healthy.do(t, uploadRequest(t, "/api/v1/upload", ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "an unreadable upload stays a client error")
}

func TestUploadPreviewReportsMissingColumns(t *testing.T) {
	env := newTestEnv(t, testSettings())

	rec := env.do(t, uploadRequest(t, "/api/v1/upload/preview", "Date,Sex\n2024-01-01,F\n2024-01-02\n"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	preview := decode[mutation.Preview](t, rec)
	assert.Equal(t, []string{"Date", "Sex"}, preview.Header)
	assert.Len(t, preview.Rows, 2)
	assert.Contains(t, preview.MissingColumns, "Year")

	rec = env.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/upload/preview", http.NoBody))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadAppendsAlignedRows(t *testing.T) {
	env := newTestEnv(t, testSettings())

	rec := env.do(t, uploadRequest(t, "/api/v1/upload", "Sex,Date,Name\nF,2024-01-01,M7\nM,2024-01-02,M8\n"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 2, decode[AppendResponse](t, rec).Rows)

	store := dataset.NewStore(env.storePath)
	c, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5, c.Len())
	assert.Equal(t, "M7", c.At(3).Raw(dataset.ColumnIndividual))
	assert.Equal(t, "F", c.At(3).Raw(dataset.ColumnSex))
}

func TestTidesReportPerStation(t *testing.T) {
	lookup := tide.NewLookup(stubFetcher{}, tide.DefaultStations)
	env := newTestEnv(t, testSettings(), WithTides(lookup))

	rec := env.get(t, "/api/v1/tides")
	require.Equal(t, http.StatusOK, rec.Code)
	results := decode[[]tide.StationResult](t, rec)
	require.Len(t, results, 3)
	assert.Equal(t, tide.StatusFailed, results[0].Status)
	assert.NotEmpty(t, results[0].Error)
	assert.Equal(t, tide.StatusOK, results[1].Status)
	assert.Equal(t, tide.StatusOK, results[2].Status)
}

func TestAuditEndpoint(t *testing.T) {
	audit := &stubAudit{records: []datastore.AppendRecord{{ID: 2, Source: "upload", Rows: 3}, {ID: 1, Source: "manual", Rows: 1}}}
	env := newTestEnv(t, testSettings(), WithAudit(audit))

	records := decode[[]datastore.AppendRecord](t, env.get(t, "/api/v1/audit?limit=1"))
	require.Len(t, records, 1)
	assert.Equal(t, "upload", records[0].Source)

	assert.Equal(t, http.StatusBadRequest, env.get(t, "/api/v1/audit?limit=zero").Code)
}

func TestMetricsEndpointCountsRequests(t *testing.T) {
	m, err := observability.NewMetrics()
	require.NoError(t, err)
	env := newTestEnv(t, testSettings(), WithMetrics(m))

	require.Equal(t, http.StatusOK, env.get(t, "/api/v1/health").Code)

	rec := env.get(t, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(),
		`mantaview_http_requests_total{method="GET",path="/api/v1/health",status_code="200"} 1`)
}

func TestRateLimitRejectsBursts(t *testing.T) {
	settings := testSettings()
	settings.WebServer.RateLimit = conf.RateLimitSettings{Enabled: true, RequestsPerSecond: 0.001, Burst: 1}
	env := newTestEnv(t, settings)

	assert.Equal(t, http.StatusOK, env.get(t, "/api/v1/facets").Code)
	rec := env.get(t, "/api/v1/facets")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, decode[ErrorResponse](t, rec).CorrelationID)

	assert.Equal(t, http.StatusOK, env.get(t, "/api/v1/health").Code, "health is not throttled")
}

func TestUnknownAPIRouteReturnsJSONError(t *testing.T) {
	env := newTestEnv(t, testSettings())

	rec := env.get(t, "/api/v1/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Len(t, resp.CorrelationID, 8)
}

func TestStoreFailureIsServerError(t *testing.T) {
	env := newTestEnv(t, testSettings())
	require.NoError(t, os.Remove(env.storePath))

	rec := env.get(t, "/api/v1/encounters")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, decode[ErrorResponse](t, rec).CorrelationID)
}
