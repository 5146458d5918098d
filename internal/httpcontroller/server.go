// Package httpcontroller serves the dashboard page and its JSON API.
package httpcontroller

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/ecovision/mantaview/internal/conf"
	"github.com/ecovision/mantaview/internal/dashboard"
	"github.com/ecovision/mantaview/internal/datastore"
	"github.com/ecovision/mantaview/internal/errors"
	"github.com/ecovision/mantaview/internal/exportsink"
	"github.com/ecovision/mantaview/internal/logger"
	"github.com/ecovision/mantaview/internal/mutation"
	"github.com/ecovision/mantaview/internal/observability"
	"github.com/ecovision/mantaview/internal/session"
	"github.com/ecovision/mantaview/internal/tide"
)

// AuditReader lists recent appends.
type AuditReader interface {
	Recent(ctx context.Context, limit int) ([]datastore.AppendRecord, error)
}

// Server encapsulates the Echo server and the services behind its routes.
type Server struct {
	Echo     *echo.Echo
	Settings *conf.Settings
	Sessions *session.Manager
	Gateway  *mutation.Gateway

	tides   *tide.Lookup
	audit   AuditReader
	sink    exportsink.Sink
	metrics *observability.Metrics

	tabs   []dashboard.Tab
	log    logger.Logger
	access logger.Logger
	now    func() time.Time
}

// Option configures optional collaborators of the Server.
type Option func(*Server)

// WithTides enables the tides endpoint.
func WithTides(l *tide.Lookup) Option {
	return func(s *Server) { s.tides = l }
}

// WithAudit enables the audit endpoint.
func WithAudit(a AuditReader) Option {
	return func(s *Server) { s.audit = a }
}

// WithExportSink enables archiving of filtered exports.
func WithExportSink(sink exportsink.Sink) Option {
	return func(s *Server) { s.sink = sink }
}

// WithMetrics records request metrics and serves the scrape endpoint.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New builds the server and registers every route.
func New(settings *conf.Settings, sessions *session.Manager, gateway *mutation.Gateway, opts ...Option) (*Server, error) {
	s := &Server{
		Echo:     echo.New(),
		Settings: settings,
		Sessions: sessions,
		Gateway:  gateway,
		tabs:     dashboard.EnabledTabs(settings.Dashboard.Tabs),
		log:      GetLogger(),
		access:   accessLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.Echo.HideBanner = true
	s.Echo.HidePort = true
	s.Echo.Logger.SetPrefix("echo")
	if settings.WebServer.Debug {
		s.Echo.Logger.SetLevel(log.DEBUG)
	} else {
		s.Echo.Logger.SetLevel(log.WARN)
	}
	s.Echo.HTTPErrorHandler = s.httpErrorHandler

	if err := s.setupTemplateRenderer(); err != nil {
		return nil, err
	}
	s.configureMiddleware()
	s.initRoutes()
	return s, nil
}

// Start listens on the configured port and blocks until the server stops.
func (s *Server) Start() error {
	addr := ":" + s.Settings.WebServer.Port
	s.log.Info("HTTP server starting", logger.String("address", addr))
	if err := s.Echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("HTTP server shutting down")
	return s.Echo.Shutdown(ctx)
}
