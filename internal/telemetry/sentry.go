// Package telemetry provides opt-in, privacy-filtered error reporting to Sentry.
package telemetry

import (
	"fmt"
	"runtime"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/ecovision/mantaview/internal/buildinfo"
	"github.com/ecovision/mantaview/internal/conf"
	"github.com/ecovision/mantaview/internal/errors"
	"github.com/ecovision/mantaview/internal/logger"
	"github.com/ecovision/mantaview/internal/privacy"
)

// allowedExtra are the only extra fields kept on outgoing events.
var allowedExtra = map[string]bool{
	"error_type": true,
	"component":  true,
}

// InitSentry initializes the Sentry SDK and routes enhanced errors to it.
// It does nothing unless telemetry is enabled with a DSN.
func InitSentry(settings *conf.Settings, info *buildinfo.Context) error {
	return initSentry(settings, info, nil)
}

func initSentry(settings *conf.Settings, info *buildinfo.Context, transport sentry.Transport) error {
	log := GetLogger()
	if !settings.Sentry.Enabled {
		log.Info("Sentry telemetry is disabled (opt-in required)")
		return nil
	}
	if settings.Sentry.DSN == "" {
		return errors.Newf("sentry is enabled but no DSN is configured").
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.Sentry.DSN,
		SampleRate:       settings.Sentry.SampleRate,
		AttachStacktrace: false,
		Environment:      settings.Sentry.Environment,
		ServerName:       "",
		Release:          info.Release(),
		BeforeSend:       beforeSend,
		Transport:        transport,
	})
	if err != nil {
		return errors.New(fmt.Errorf("sentry initialization failed: %w", err)).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
		scope.SetContext("application", map[string]any{
			"name":    settings.Main.Name,
			"version": info.GetVersion(),
		})
	})

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))

	log.Info("Sentry telemetry initialized",
		logger.String("release", info.Release()),
		logger.String("environment", settings.Sentry.Environment))
	return nil
}

func beforeSend(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	return applyPrivacyFilters(event)
}

// applyPrivacyFilters strips host and user identifying data from an event
// and scrubs URLs out of its messages.
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""
	event.Message = privacy.ScrubMessage(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = privacy.ScrubMessage(event.Exception[i].Value)
	}

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}
	for k := range event.Extra {
		if !allowedExtra[k] {
			delete(event.Extra, k)
		}
	}
	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}
	return event
}

// Flush waits for queued events to be sent, up to timeout.
func Flush(timeout time.Duration) {
	if !sentry.Flush(timeout) {
		GetLogger().Warn("Sentry flush timed out", logger.Duration("timeout", timeout))
	}
}
