package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config is the runtime configuration of the smokefree backend.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Push          PushConfig          `mapstructure:"push"`
	Milestones    MilestonesConfig    `mapstructure:"milestones"`
	Maintenance   MaintenanceConfig   `mapstructure:"maintenance"`
	Monitoring    MonitoringConfig    `mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	LogLevel       string   `mapstructure:"log_level"`
	LogFormat      string   `mapstructure:"log_format"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// StorageConfig selects where per-user notification collections are persisted.
type StorageConfig struct {
	Driver    string `mapstructure:"driver"` // database | memory
	KeyPrefix string `mapstructure:"key_prefix"`
	// TTL is how long an untouched collection is kept; every rewrite renews it. Zero keeps it forever.
	TTL time.Duration `mapstructure:"ttl"`
}

// AuthConfig captures session identity settings.
type AuthConfig struct {
	JWT JWTSettings `mapstructure:"jwt"`
}

// JWTSettings configures access token validation.
type JWTSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"access_token_ttl"`
}

// NotificationsConfig controls how notification records are built.
type NotificationsConfig struct {
	Timezone         string `mapstructure:"timezone"`
	DateLayout       string `mapstructure:"date_layout"`
	TimeLayout       string `mapstructure:"time_layout"`
	DefaultPushTitle string `mapstructure:"default_push_title"`
}

// PushConfig controls the push bridge.
type PushConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	VAPIDPublicKey     string `mapstructure:"vapid_public_key"`
	DefaultClickURL    string `mapstructure:"default_click_url"`
	Icon               string `mapstructure:"icon"`
	RateLimitPerMinute int    `mapstructure:"rate_limit_per_minute"`
}

// MilestonesConfig controls the scheduled milestone sweep.
type MilestonesConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// MaintenanceConfig controls housekeeping jobs.
type MaintenanceConfig struct {
	StoragePurgeSchedule string `mapstructure:"storage_purge_schedule"`
}

// MonitoringConfig enables metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig toggles the metrics endpoint.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// LoadConfig reads config.yaml from ./config and the supplied paths, then applies SMOKEFREE_* overrides.
// A missing file is not an error.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("SMOKEFREE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

// Location resolves the configured display timezone, falling back to UTC.
func (c NotificationsConfig) Location() *time.Location {
	name := strings.TrimSpace(c.Timezone)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/smokefree.sqlite")

	v.SetDefault("storage.driver", "database")
	v.SetDefault("storage.key_prefix", "notifications_")
	v.SetDefault("storage.ttl", "2160h")

	v.SetDefault("auth.jwt.issuer", "")
	v.SetDefault("auth.jwt.access_token_ttl", "15m")

	v.SetDefault("notifications.timezone", "UTC")
	v.SetDefault("notifications.date_layout", "Jan 2, 2006")
	v.SetDefault("notifications.time_layout", "3:04 PM")
	v.SetDefault("notifications.default_push_title", "New Notification")

	v.SetDefault("push.enabled", true)
	v.SetDefault("push.vapid_public_key", "")
	v.SetDefault("push.default_click_url", "/notifications")
	v.SetDefault("push.icon", "/icon-192x192.png")
	v.SetDefault("push.rate_limit_per_minute", 60)

	v.SetDefault("milestones.enabled", true)
	v.SetDefault("milestones.schedule", "@daily")

	v.SetDefault("maintenance.storage_purge_schedule", "@hourly")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
