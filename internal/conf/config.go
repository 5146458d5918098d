// config.go: settings struct for mantaview and the functions that load it.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ecovision/mantaview/internal/errors"
	"github.com/ecovision/mantaview/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// EnvPrefix is the prefix for environment overrides, e.g. MANTAVIEW_WEBSERVER_PORT.
const EnvPrefix = "MANTAVIEW"

// MainSettings contains identity settings for the instance.
type MainSettings struct {
	Name string `yaml:"name" mapstructure:"name"` // shown in page title and used as client identifier
}

// DatasetSettings points at the encounter store.
type DatasetSettings struct {
	Path            string   `yaml:"path" mapstructure:"path"`                       // CSV file holding encounter records
	RequiredColumns []string `yaml:"requiredcolumns" mapstructure:"requiredcolumns"` // columns an upload preview checks for
}

// RateLimitSettings throttles API requests per client address.
type RateLimitSettings struct {
	Enabled           bool    `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSecond float64 `yaml:"requestspersecond" mapstructure:"requestspersecond"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// WebServerSettings contains settings for the HTTP server.
type WebServerSettings struct {
	Port      string            `yaml:"port" mapstructure:"port"`
	Debug     bool              `yaml:"debug" mapstructure:"debug"`
	BodyLimit string            `yaml:"bodylimit" mapstructure:"bodylimit"` // maximum request size, e.g. "10M"
	RateLimit RateLimitSettings `yaml:"ratelimit" mapstructure:"ratelimit"`
}

// SessionSettings controls how long a loaded collection stays in memory.
type SessionSettings struct {
	TTL             time.Duration `yaml:"ttl" mapstructure:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanupinterval" mapstructure:"cleanupinterval"`
	CookieName      string        `yaml:"cookiename" mapstructure:"cookiename"`
	Secret          string        `yaml:"secret" mapstructure:"secret"` // cookie signing key
	Secure          bool          `yaml:"secure" mapstructure:"secure"`
}

// MapSettings holds the initial map viewport.
type MapSettings struct {
	CenterLatitude  float64 `yaml:"centerlatitude" mapstructure:"centerlatitude"`
	CenterLongitude float64 `yaml:"centerlongitude" mapstructure:"centerlongitude"`
	Zoom            int     `yaml:"zoom" mapstructure:"zoom"`
}

// DashboardSettings contains settings for the web dashboard.
type DashboardSettings struct {
	Title       string      `yaml:"title" mapstructure:"title"`
	Tabs        []string    `yaml:"tabs" mapstructure:"tabs"`               // enabled tabs, in display order
	PreviewRows int         `yaml:"previewrows" mapstructure:"previewrows"` // rows shown in upload preview
	Map         MapSettings `yaml:"map" mapstructure:"map"`
}

// TideStation is one tide-prediction source.
type TideStation struct {
	Name      string  `yaml:"name" mapstructure:"name"`
	ID        string  `yaml:"id" mapstructure:"id"`
	Latitude  float64 `yaml:"latitude" mapstructure:"latitude"`
	Longitude float64 `yaml:"longitude" mapstructure:"longitude"`
}

// TideSettings configures the tide-prediction lookup.
type TideSettings struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
	Endpoint string        `yaml:"endpoint" mapstructure:"endpoint"`
	Product  string        `yaml:"product" mapstructure:"product"`
	Datum    string        `yaml:"datum" mapstructure:"datum"`
	Units    string        `yaml:"units" mapstructure:"units"`
	TimeZone string        `yaml:"timezone" mapstructure:"timezone"` // time_zone query value, lst_ldt is station local time
	Location string        `yaml:"location" mapstructure:"location"` // IANA zone used to interpret station local time
	Format   string        `yaml:"format" mapstructure:"format"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Stations []TideStation `yaml:"stations" mapstructure:"stations"`
}

// AuditSettings configures the SQLite append audit trail.
type AuditSettings struct {
	Enabled            bool          `yaml:"enabled" mapstructure:"enabled"`
	Path               string        `yaml:"path" mapstructure:"path"`
	SlowQueryThreshold time.Duration `yaml:"slowquerythreshold" mapstructure:"slowquerythreshold"`
}

// MQTTSettings configures publishing of append events.
type MQTTSettings struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Broker   string `yaml:"broker" mapstructure:"broker"`
	Topic    string `yaml:"topic" mapstructure:"topic"`
	ClientID string `yaml:"clientid" mapstructure:"clientid"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	QoS      byte   `yaml:"qos" mapstructure:"qos"`
	Retain   bool   `yaml:"retain" mapstructure:"retain"`
}

// S3Settings configures an S3 (or compatible) export bucket.
type S3Settings struct {
	Bucket       string `yaml:"bucket" mapstructure:"bucket"`
	Prefix       string `yaml:"prefix" mapstructure:"prefix"`
	Region       string `yaml:"region" mapstructure:"region"`
	Endpoint     string `yaml:"endpoint" mapstructure:"endpoint"` // custom endpoint for MinIO and similar
	UsePathStyle bool   `yaml:"usepathstyle" mapstructure:"usepathstyle"`
}

// ExportSettings configures where archived exports are written.
type ExportSettings struct {
	Sink string     `yaml:"sink" mapstructure:"sink"` // "file" or "s3"
	Dir  string     `yaml:"dir" mapstructure:"dir"`
	S3   S3Settings `yaml:"s3" mapstructure:"s3"`
}

// MetricsSettings configures the Prometheus endpoint.
type MetricsSettings struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// SentrySettings configures error telemetry.
type SentrySettings struct {
	Enabled     bool    `yaml:"enabled" mapstructure:"enabled"`
	DSN         string  `yaml:"dsn" mapstructure:"dsn"`
	Environment string  `yaml:"environment" mapstructure:"environment"`
	SampleRate  float64 `yaml:"samplerate" mapstructure:"samplerate"`
}

// Settings contains all configuration options for mantaview.
type Settings struct {
	Debug     bool                 `yaml:"debug" mapstructure:"debug"`
	Main      MainSettings         `yaml:"main" mapstructure:"main"`
	Dataset   DatasetSettings      `yaml:"dataset" mapstructure:"dataset"`
	WebServer WebServerSettings    `yaml:"webserver" mapstructure:"webserver"`
	Session   SessionSettings      `yaml:"session" mapstructure:"session"`
	Dashboard DashboardSettings    `yaml:"dashboard" mapstructure:"dashboard"`
	Tides     TideSettings         `yaml:"tides" mapstructure:"tides"`
	Audit     AuditSettings        `yaml:"audit" mapstructure:"audit"`
	MQTT      MQTTSettings         `yaml:"mqtt" mapstructure:"mqtt"`
	Export    ExportSettings       `yaml:"export" mapstructure:"export"`
	Metrics   MetricsSettings      `yaml:"metrics" mapstructure:"metrics"`
	Sentry    SentrySettings       `yaml:"sentry" mapstructure:"sentry"`
	Logging   logger.LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into a Settings value.
// When no config file exists a default one is written first.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper registers defaults and environment overrides, then reads the
// config file set with viper.SetConfigFile or found on the default paths.
func initViper() error {
	setDefaultConfig()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if viper.ConfigFileUsed() == "" {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")

		configPaths, err := GetDefaultConfigPaths()
		if err != nil {
			return fmt.Errorf("error getting default config paths: %w", err)
		}
		for _, path := range configPaths {
			viper.AddConfigPath(path)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig()
		}
		return errors.New(fmt.Errorf("fatal error reading config file: %w", err)).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Build()
	}

	return nil
}

// createDefaultConfig writes the embedded config.yaml to the first default path and reads it.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	defaultConfig, err := getDefaultConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o750); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}
	if err := os.WriteFile(configPath, defaultConfig, 0o600); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	fmt.Println("Created default config file at:", configPath)
	viper.SetConfigFile(configPath)
	return viper.ReadInConfig()
}

// getDefaultConfig returns the embedded default config.yaml.
func getDefaultConfig() ([]byte, error) {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return nil, fmt.Errorf("error reading embedded config: %w", err)
	}
	return data, nil
}

// GetSettings returns the settings loaded by the last successful Load.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// MarshalYAML renders settings the way they would be written to config.yaml.
// Secrets are masked.
func MarshalYAML(settings *Settings) ([]byte, error) {
	masked := *settings
	masked.Session.Secret = maskSecret(masked.Session.Secret)
	masked.MQTT.Password = maskSecret(masked.MQTT.Password)
	masked.Sentry.DSN = maskSecret(masked.Sentry.DSN)

	data, err := yaml.Marshal(&masked)
	if err != nil {
		return nil, fmt.Errorf("error marshaling settings to YAML: %w", err)
	}
	return data, nil
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}

// LoadLocation returns the zone tide timestamps are interpreted in, UTC when unset.
func (t *TideSettings) LoadLocation() (*time.Location, error) {
	if t.Location == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(t.Location)
}
