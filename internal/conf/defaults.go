// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// DefaultTabs lists every dashboard tab in display order.
var DefaultTabs = []string{"map", "visualizations", "data", "upload", "tides"}

// DefaultRequiredColumns are the store columns the dashboard relies on.
var DefaultRequiredColumns = []string{
	"Date", "Year", "Month", "Sex", "Age Class",
	"Latitude", "Longitude", "Which Pier", "New Injury?",
	"Disc Width (m)", "Water Depth (m)", "Water Temperature (°C)",
	"Encounter Length (minutes)", "Manta Individual",
}

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "mantaview")

	viper.SetDefault("dataset.path", "data/manta_encounters.csv")
	viper.SetDefault("dataset.requiredcolumns", DefaultRequiredColumns)

	viper.SetDefault("webserver.port", "8080")
	viper.SetDefault("webserver.debug", false)
	viper.SetDefault("webserver.bodylimit", "10M")
	viper.SetDefault("webserver.ratelimit.enabled", true)
	viper.SetDefault("webserver.ratelimit.requestspersecond", 10.0)
	viper.SetDefault("webserver.ratelimit.burst", 30)

	viper.SetDefault("session.ttl", 30*time.Minute)
	viper.SetDefault("session.cleanupinterval", 10*time.Minute)
	viper.SetDefault("session.cookiename", "mantaview_session")
	viper.SetDefault("session.secret", "")
	viper.SetDefault("session.secure", false)

	viper.SetDefault("dashboard.title", "Manta Ray Encounter Dashboard")
	viper.SetDefault("dashboard.tabs", DefaultTabs)
	viper.SetDefault("dashboard.previewrows", 5)
	viper.SetDefault("dashboard.map.centerlatitude", 26.7153)
	viper.SetDefault("dashboard.map.centerlongitude", -80.0534)
	viper.SetDefault("dashboard.map.zoom", 10)

	viper.SetDefault("tides.enabled", true)
	viper.SetDefault("tides.endpoint", "https://api.tidesandcurrents.noaa.gov/api/prod/datagetter")
	viper.SetDefault("tides.product", "predictions")
	viper.SetDefault("tides.datum", "MLLW")
	viper.SetDefault("tides.units", "english")
	viper.SetDefault("tides.timezone", "lst_ldt")
	viper.SetDefault("tides.location", "America/New_York")
	viper.SetDefault("tides.format", "json")
	viper.SetDefault("tides.timeout", 30*time.Second)
	viper.SetDefault("tides.stations", []map[string]any{
		{"name": "Miami Beach", "id": "8723214", "latitude": 25.7683, "longitude": -80.1317},
		{"name": "Pompano Beach", "id": "8722670", "latitude": 26.2283, "longitude": -80.0933},
		{"name": "Satellite Beach", "id": "8721604", "latitude": 28.1750, "longitude": -80.5933},
	})

	viper.SetDefault("audit.enabled", false)
	viper.SetDefault("audit.path", "data/audit.db")
	viper.SetDefault("audit.slowquerythreshold", 200*time.Millisecond)

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.topic", "mantaview/encounters/appended")
	viper.SetDefault("mqtt.clientid", "mantaview")
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")
	viper.SetDefault("mqtt.qos", 1)
	viper.SetDefault("mqtt.retain", false)

	viper.SetDefault("export.sink", "file")
	viper.SetDefault("export.dir", "exports")
	viper.SetDefault("export.s3.bucket", "")
	viper.SetDefault("export.s3.prefix", "mantaview/")
	viper.SetDefault("export.s3.region", "us-east-1")
	viper.SetDefault("export.s3.endpoint", "")
	viper.SetDefault("export.s3.usepathstyle", false)

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.environment", "production")
	viper.SetDefault("sentry.samplerate", 1.0)

	viper.SetDefault("logging.default_level", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.file_output.enabled", true)
	viper.SetDefault("logging.file_output.path", "logs/mantaview.log")
	viper.SetDefault("logging.file_output.level", "info")
}
