package httpcontroller

import (
	"github.com/labstack/echo/v4"

	"github.com/ecovision/mantaview/internal/dashboard"
)

const apiPrefix = "/api/v1"

// initRoutes registers the page, the API and the scrape endpoint. Routes of
// disabled tabs and unconfigured services are left out.
func (s *Server) initRoutes() {
	withSession := s.SessionMiddleware()

	s.Echo.GET("/", s.DashboardPage, withSession)

	api := s.Echo.Group(apiPrefix)
	if s.Settings.WebServer.RateLimit.Enabled {
		api.Use(s.RateLimitMiddleware())
	}
	api.GET("/health", s.HealthCheck)

	data := api.Group("", withSession)
	data.GET("/facets", s.GetFacets)
	data.GET("/encounters", s.GetEncounters)
	data.GET("/summary", s.GetSummary)
	data.GET("/visualizations", s.GetVisualizations)
	data.GET("/map", s.GetMap)
	data.GET("/export.csv", s.ExportCSV)
	data.POST("/export/archive", s.ArchiveExport)
	data.POST("/session/reload", s.ReloadSession)

	if s.tabEnabled("upload") {
		data.POST("/encounters", s.CreateEncounter)
		data.POST("/upload/preview", s.PreviewUpload)
		data.POST("/upload", s.AppendUpload)
	}
	if s.tides != nil && s.tabEnabled("tides") {
		api.GET("/tides", s.GetTides)
	}
	if s.audit != nil {
		api.GET("/audit", s.GetAudit)
	}

	if s.metrics != nil {
		s.Echo.GET(s.metricsPath(), echo.WrapHandler(s.metrics.Handler()))
	}
}

func (s *Server) tabEnabled(id string) bool {
	return dashboard.HasTab(s.tabs, id)
}

func (s *Server) metricsPath() string {
	if p := s.Settings.Metrics.Path; p != "" {
		return p
	}
	return "/metrics"
}
