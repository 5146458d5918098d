package httpcontroller

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ecovision/mantaview/internal/dashboard"
	"github.com/ecovision/mantaview/internal/dataset"
	"github.com/ecovision/mantaview/internal/exportsink"
	"github.com/ecovision/mantaview/internal/logger"
	"github.com/ecovision/mantaview/internal/session"
)

const (
	uploadFormField   = "file"
	defaultAuditLimit = 50
	maxAuditLimit     = 500
	reloadHint        = "Reload the dashboard to include the new data."
)

// AppendResponse reports a committed append.
type AppendResponse struct {
	Rows           int      `json:"rows"`
	IgnoredColumns []string `json:"ignored_columns"`
	MissingColumns []string `json:"missing_columns"`
	Message        string   `json:"message"`
}

// SummaryResponse carries the scorecards with the scorecard filter options.
type SummaryResponse struct {
	dashboard.Scorecards
	Months []string `json:"months"`
	Years  []string `json:"years"`
}

// query resolves the request's filter state. A request naming no sidebar
// facet reuses the selection stored on the session.
func (s *Server) query(c echo.Context, sess *session.Session) dashboard.Query {
	q := c.QueryParams()
	sel, explicit := parseSelection(q, sess.Collection().View())
	switch {
	case explicit:
		sess.SetSelection(sel)
	case sess.Selection() != nil:
		sel = sess.Selection()
	}
	return dashboard.Query{Selection: sel, Scorecard: parseScorecardSelection(q)}
}

// filteredView returns the session collection narrowed by the request.
func (s *Server) filteredView(c echo.Context) (*dataset.Collection, *dataset.View, dashboard.Query) {
	sess := currentSession(c)
	q := s.query(c, sess)
	coll := sess.Collection()
	return coll, dashboard.Filtered(coll, q), q
}

func (s *Server) observeView(endpoint string, records int, start time.Time) {
	if s.metrics != nil {
		s.metrics.Dashboard.ObserveView(endpoint, records, time.Since(start))
	}
}

// GetFacets returns the filter options.
func (s *Server) GetFacets(c echo.Context) error {
	coll, filtered, _ := s.filteredView(c)
	return c.JSON(http.StatusOK, dashboard.BuildFacets(coll, filtered))
}

// GetEncounters returns the filtered data table.
func (s *Server) GetEncounters(c echo.Context) error {
	start := time.Now()
	_, filtered, _ := s.filteredView(c)
	s.observeView("encounters", filtered.Len(), start)
	return c.JSON(http.StatusOK, dashboard.BuildTable(filtered))
}

// GetSummary returns the scorecards of the scorecard sub-view.
func (s *Server) GetSummary(c echo.Context) error {
	start := time.Now()
	coll, filtered, q := s.filteredView(c)
	sub := dashboard.ScorecardView(filtered, q.Scorecard)
	facets := dashboard.BuildFacets(coll, filtered)

	s.observeView("summary", sub.Len(), start)
	return c.JSON(http.StatusOK, SummaryResponse{
		Scorecards: dashboard.BuildScorecards(sub),
		Months:     facets.ScorecardMonths,
		Years:      facets.ScorecardYears,
	})
}

// GetVisualizations returns the chart feeds.
func (s *Server) GetVisualizations(c echo.Context) error {
	start := time.Now()
	_, filtered, _ := s.filteredView(c)
	s.observeView("visualizations", filtered.Len(), start)
	return c.JSON(http.StatusOK, dashboard.BuildVisualizations(filtered))
}

// GetMap returns the geolocated encounters.
func (s *Server) GetMap(c echo.Context) error {
	start := time.Now()
	_, filtered, _ := s.filteredView(c)
	s.observeView("map", filtered.Len(), start)
	return c.JSON(http.StatusOK, dashboard.BuildMap(filtered, s.Settings.Dashboard.Map))
}

// ExportCSV streams the filtered view as a CSV attachment.
func (s *Server) ExportCSV(c echo.Context) error {
	_, filtered, _ := s.filteredView(c)

	var buf bytes.Buffer
	if err := dataset.WriteCSV(&buf, filtered); err != nil {
		return s.handleServiceError(c, err, "Failed to encode export")
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", exportsink.DownloadName))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// ArchiveExport writes the filtered view to the configured export sink.
func (s *Server) ArchiveExport(c echo.Context) error {
	if s.sink == nil {
		return s.HandleError(c, nil, "Export archiving is not configured", http.StatusNotFound)
	}
	_, filtered, _ := s.filteredView(c)

	loc, err := exportsink.Archive(c.Request().Context(), s.sink, filtered, s.now())
	if err != nil {
		return s.handleServiceError(c, err, "Failed to archive export")
	}
	return c.JSON(http.StatusCreated, loc)
}

// CreateEncounter appends one manually entered record. The body is a JSON
// object or a form, both mapping column names to cell text.
func (s *Server) CreateEncounter(c echo.Context) error {
	fields, err := bindFields(c)
	if err != nil {
		return s.HandleError(c, err, "Invalid manual entry", http.StatusBadRequest)
	}
	if len(fields) == 0 {
		return s.HandleError(c, nil, "Manual entry has no fields", http.StatusBadRequest)
	}

	res, err := s.Gateway.AppendRecord(c.Request().Context(), fields)
	if err != nil {
		return s.handleServiceError(c, err, "Failed to save manual entry")
	}
	return c.JSON(http.StatusCreated, AppendResponse{
		Rows:           res.Rows,
		IgnoredColumns: res.IgnoredColumns,
		MissingColumns: res.MissingColumns,
		Message:        "Manual entry saved. " + reloadHint,
	})
}

func bindFields(c echo.Context) (map[string]string, error) {
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		fields := map[string]string{}
		if err := (&echo.DefaultBinder{}).BindBody(c, &fields); err != nil {
			return nil, err
		}
		return fields, nil
	}

	form, err := c.FormParams()
	if err != nil {
		return nil, err
	}
	fields := make(map[string]string, len(form))
	for key, values := range form {
		if len(values) > 0 {
			fields[key] = values[0]
		}
	}
	return fields, nil
}

// PreviewUpload returns the head of an uploaded CSV and the store columns it lacks.
func (s *Server) PreviewUpload(c echo.Context) error {
	fh, err := c.FormFile(uploadFormField)
	if err != nil {
		return s.HandleError(c, err, "Upload requires a CSV file in the 'file' field", http.StatusBadRequest)
	}
	f, err := fh.Open()
	if err != nil {
		return s.HandleError(c, err, "Failed to read upload", http.StatusBadRequest)
	}
	defer f.Close()

	preview, err := s.Gateway.Preview(f, s.Settings.Dashboard.PreviewRows)
	if err != nil {
		return s.handleServiceError(c, err, "Upload is not a readable CSV file")
	}
	return c.JSON(http.StatusOK, preview)
}

// AppendUpload appends every row of an uploaded CSV to the store.
func (s *Server) AppendUpload(c echo.Context) error {
	fh, err := c.FormFile(uploadFormField)
	if err != nil {
		return s.HandleError(c, err, "Upload requires a CSV file in the 'file' field", http.StatusBadRequest)
	}
	f, err := fh.Open()
	if err != nil {
		return s.HandleError(c, err, "Failed to read upload", http.StatusBadRequest)
	}
	defer f.Close()

	upload, err := dataset.Parse(f)
	if err != nil {
		return s.HandleError(c, err, "Upload is not a readable CSV file", http.StatusBadRequest)
	}

	res, err := s.Gateway.AppendCollection(c.Request().Context(), upload)
	if err != nil {
		return s.handleServiceError(c, err, "Failed to append upload")
	}

	s.log.Info("upload appended",
		logger.String("file", fh.Filename),
		logger.Int("rows", res.Rows))
	return c.JSON(http.StatusCreated, AppendResponse{
		Rows:           res.Rows,
		IgnoredColumns: res.IgnoredColumns,
		MissingColumns: res.MissingColumns,
		Message:        "Data appended. " + reloadHint,
	})
}

// ReloadSession re-reads the store into the visitor's session.
func (s *Server) ReloadSession(c echo.Context) error {
	sess := currentSession(c)
	sess, err := s.Sessions.Reload(c.Request().Context(), sess.ID)
	if err != nil {
		return s.handleServiceError(c, err, "Failed to reload encounter data")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"session_id": sess.ID,
		"records":    sess.Collection().Len(),
		"loaded_at":  sess.LoadedAt(),
	})
}

// GetTides returns today's predictions for every configured station.
// Station failures are reported per station.
func (s *Server) GetTides(c echo.Context) error {
	start := time.Now()
	results := s.tides.FetchAll(c.Request().Context(), s.now())
	s.observeView("tides", len(results), start)
	return c.JSON(http.StatusOK, results)
}

// GetAudit lists the most recent appends.
func (s *Server) GetAudit(c echo.Context) error {
	limit := defaultAuditLimit
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return s.HandleError(c, err, "limit must be a positive integer", http.StatusBadRequest)
		}
		limit = min(n, maxAuditLimit)
	}

	records, err := s.audit.Recent(c.Request().Context(), limit)
	if err != nil {
		return s.handleServiceError(c, err, "Failed to read audit trail")
	}
	return c.JSON(http.StatusOK, records)
}

// HealthCheck reports liveness and the number of live sessions.
func (s *Server) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.Sessions.Count(),
		"time":     s.now().UTC().Format(time.RFC3339),
	})
}
