// conf/validate.go
package conf

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings checks every section and reports all problems at once.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	collect := func(errs []string) {
		ve.Errors = append(ve.Errors, errs...)
	}

	collect(validateDatasetSettings(&settings.Dataset))
	collect(validateWebServerSettings(&settings.WebServer))
	collect(validateSessionSettings(&settings.Session))
	collect(validateDashboardSettings(&settings.Dashboard))
	collect(validateTideSettings(&settings.Tides))
	collect(validateIntegrationSettings(settings))

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateDatasetSettings(settings *DatasetSettings) []string {
	if strings.TrimSpace(settings.Path) == "" {
		return []string{"dataset.path must not be empty"}
	}
	return nil
}

func validateWebServerSettings(settings *WebServerSettings) []string {
	var errs []string

	port, err := strconv.Atoi(settings.Port)
	if err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("webserver.port %q must be a number between 1 and 65535", settings.Port))
	}

	if settings.RateLimit.Enabled {
		if settings.RateLimit.RequestsPerSecond <= 0 {
			errs = append(errs, "webserver.ratelimit.requestspersecond must be positive")
		}
		if settings.RateLimit.Burst < 1 {
			errs = append(errs, "webserver.ratelimit.burst must be at least 1")
		}
	}

	return errs
}

func validateSessionSettings(settings *SessionSettings) []string {
	var errs []string
	if settings.TTL <= 0 {
		errs = append(errs, "session.ttl must be positive")
	}
	if settings.CookieName == "" {
		errs = append(errs, "session.cookiename must not be empty")
	}
	return errs
}

func validateDashboardSettings(settings *DashboardSettings) []string {
	var errs []string

	if len(settings.Tabs) == 0 {
		errs = append(errs, "dashboard.tabs must enable at least one tab")
	}
	seen := make(map[string]bool, len(settings.Tabs))
	for _, tab := range settings.Tabs {
		if !slices.Contains(DefaultTabs, tab) {
			errs = append(errs, fmt.Sprintf("dashboard.tabs: unknown tab %q (valid: %s)", tab, strings.Join(DefaultTabs, ", ")))
		}
		if seen[tab] {
			errs = append(errs, fmt.Sprintf("dashboard.tabs: tab %q listed twice", tab))
		}
		seen[tab] = true
	}

	if settings.PreviewRows < 1 {
		errs = append(errs, "dashboard.previewrows must be at least 1")
	}

	if settings.Map.CenterLatitude < -90 || settings.Map.CenterLatitude > 90 {
		errs = append(errs, "dashboard.map.centerlatitude must be between -90 and 90")
	}
	if settings.Map.CenterLongitude < -180 || settings.Map.CenterLongitude > 180 {
		errs = append(errs, "dashboard.map.centerlongitude must be between -180 and 180")
	}

	return errs
}

func validateTideSettings(settings *TideSettings) []string {
	if !settings.Enabled {
		return nil
	}

	var errs []string

	if u, err := url.Parse(settings.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("tides.endpoint %q is not an absolute URL", settings.Endpoint))
	}
	if settings.Timeout <= 0 {
		errs = append(errs, "tides.timeout must be positive")
	}
	if settings.Location != "" {
		if _, err := time.LoadLocation(settings.Location); err != nil {
			errs = append(errs, fmt.Sprintf("tides.location %q is not a valid time zone", settings.Location))
		}
	}
	if len(settings.Stations) == 0 {
		errs = append(errs, "tides.stations must list at least one station")
	}

	ids := make(map[string]bool, len(settings.Stations))
	for i, station := range settings.Stations {
		if station.ID == "" {
			errs = append(errs, fmt.Sprintf("tides.stations[%d] has no id", i))
			continue
		}
		if ids[station.ID] {
			errs = append(errs, fmt.Sprintf("tides.stations: duplicate station id %s", station.ID))
		}
		ids[station.ID] = true
		if station.Latitude < -90 || station.Latitude > 90 || station.Longitude < -180 || station.Longitude > 180 {
			errs = append(errs, fmt.Sprintf("tides.stations[%d] has invalid coordinates", i))
		}
	}

	return errs
}

func validateIntegrationSettings(settings *Settings) []string {
	var errs []string

	if settings.Audit.Enabled && settings.Audit.Path == "" {
		errs = append(errs, "audit.path must be set when audit is enabled")
	}

	if settings.MQTT.Enabled {
		if settings.MQTT.Broker == "" {
			errs = append(errs, "mqtt.broker must be set when mqtt is enabled")
		}
		if settings.MQTT.Topic == "" {
			errs = append(errs, "mqtt.topic must be set when mqtt is enabled")
		}
		if settings.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1 or 2")
		}
	}

	switch settings.Export.Sink {
	case "file":
		if settings.Export.Dir == "" {
			errs = append(errs, "export.dir must be set for the file sink")
		}
	case "s3":
		if settings.Export.S3.Bucket == "" {
			errs = append(errs, "export.s3.bucket must be set for the s3 sink")
		}
	default:
		errs = append(errs, fmt.Sprintf("export.sink %q must be file or s3", settings.Export.Sink))
	}

	if settings.Metrics.Enabled && !strings.HasPrefix(settings.Metrics.Path, "/") {
		errs = append(errs, "metrics.path must start with /")
	}

	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		errs = append(errs, "sentry.dsn must be set when sentry is enabled")
	}

	return errs
}
