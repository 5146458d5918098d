// Package app assembles the dashboard services from settings.
package app

import (
	"context"
	"time"

	"github.com/ecovision/mantaview/internal/conf"
	"github.com/ecovision/mantaview/internal/dataset"
	"github.com/ecovision/mantaview/internal/datastore"
	"github.com/ecovision/mantaview/internal/events"
	"github.com/ecovision/mantaview/internal/exportsink"
	"github.com/ecovision/mantaview/internal/logger"
	"github.com/ecovision/mantaview/internal/mutation"
	"github.com/ecovision/mantaview/internal/observability"
	"github.com/ecovision/mantaview/internal/session"
	"github.com/ecovision/mantaview/internal/tide"
)

// App holds the services shared by the server and the CLI commands.
// Optional services are nil when disabled in settings.
type App struct {
	Settings *conf.Settings
	Store    *dataset.Store
	Gateway  *mutation.Gateway

	Metrics   *observability.Metrics
	Audit     *datastore.AuditStore
	Publisher *events.Publisher
	Sink      exportsink.Sink

	// Set by WithSessions and WithTides.
	Sessions   *session.Manager
	Tides      *tide.Lookup
	tideClient *tide.Client

	log logger.Logger
}

// Option selects the services a command needs beyond the store and gateway.
type Option func(*options)

type options struct {
	sessions bool
	tides    bool
	sink     bool
}

// WithSessions enables the session manager.
func WithSessions() Option { return func(o *options) { o.sessions = true } }

// WithTides enables the tide lookup when tides are enabled in settings.
func WithTides() Option { return func(o *options) { o.tides = true } }

// WithExportSink builds the configured export sink.
func WithExportSink() Option { return func(o *options) { o.sink = true } }

// New builds the services. On error every service built so far is closed.
func New(ctx context.Context, settings *conf.Settings, opts ...Option) (_ *App, err error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		Settings: settings,
		Store:    dataset.NewStore(settings.Dataset.Path),
		log:      GetLogger(),
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if settings.Metrics.Enabled {
		if a.Metrics, err = observability.NewMetrics(); err != nil {
			return nil, err
		}
	}

	gatewayOpts := []mutation.Option{mutation.WithRequiredColumns(settings.Dataset.RequiredColumns)}
	if a.Metrics != nil {
		gatewayOpts = append(gatewayOpts, mutation.WithRecorder(a.Metrics.Dashboard))
	}

	if settings.Audit.Enabled {
		if a.Audit, err = datastore.OpenAudit(settings.Audit.Path, settings.Audit.SlowQueryThreshold); err != nil {
			return nil, err
		}
		gatewayOpts = append(gatewayOpts, mutation.WithAuditor(a.Audit))
	}

	if settings.MQTT.Enabled {
		a.Publisher = events.NewPublisher(events.Config{
			Broker:   settings.MQTT.Broker,
			ClientID: settings.MQTT.ClientID,
			Username: settings.MQTT.Username,
			Password: settings.MQTT.Password,
			Topic:    settings.MQTT.Topic,
			QoS:      settings.MQTT.QoS,
			Retain:   settings.MQTT.Retain,
		})
		// An unreachable broker must not keep the dashboard from starting.
		if connErr := a.Publisher.Connect(ctx); connErr != nil {
			a.log.Warn("MQTT broker unavailable, append events will not be published",
				logger.String("broker", settings.MQTT.Broker),
				logger.Error(connErr))
		}
		gatewayOpts = append(gatewayOpts, mutation.WithPublisher(a.Publisher))
	}

	a.Gateway = mutation.NewGateway(a.Store, gatewayOpts...)

	if o.sessions {
		var sessOpts []session.Option
		if a.Metrics != nil {
			sessOpts = append(sessOpts, session.WithRecorder(a.Metrics.Dashboard))
		}
		a.Sessions = session.NewManager(a.Store, session.ConfigFromSettings(&settings.Session), sessOpts...)
	}

	if o.tides && settings.Tides.Enabled {
		if a.tideClient, err = tide.NewClientFromSettings(settings); err != nil {
			return nil, err
		}
		loc, _ := settings.Tides.LoadLocation()
		lookupOpts := []tide.LookupOption{tide.WithSunEvents(loc)}
		if a.Metrics != nil {
			lookupOpts = append(lookupOpts, tide.WithRecorder(a.Metrics.Tide))
		}
		a.Tides = tide.NewLookup(a.tideClient, tide.StationsFromSettings(&settings.Tides), lookupOpts...)
	}

	if o.sink {
		if a.Sink, err = exportsink.New(ctx, &settings.Export); err != nil {
			return nil, err
		}
	}

	a.log.Info("services ready",
		logger.String("dataset", settings.Dataset.Path),
		logger.Bool("metrics", a.Metrics != nil),
		logger.Bool("audit", a.Audit != nil),
		logger.Bool("mqtt", a.Publisher != nil),
		logger.Bool("tides", a.Tides != nil))
	return a, nil
}

// Close releases every service. It is safe to call on a partly built App.
func (a *App) Close() {
	if a.Sessions != nil {
		a.Sessions.Close()
	}
	if a.tideClient != nil {
		a.tideClient.Close()
	}
	if a.Publisher != nil {
		a.Publisher.Disconnect()
	}
	if a.Audit != nil {
		if err := a.Audit.Close(); err != nil {
			a.log.Warn("audit store close failed", logger.Error(err))
		}
	}
}

// ShutdownTimeout bounds graceful shutdown of the HTTP server.
const ShutdownTimeout = 10 * time.Second
