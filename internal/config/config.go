package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var ErrMissingEnvironmentVariables = errors.New("missing required environment variables")

// Config holds application configuration loaded from files and environment variables.
type Config struct {
	Env        string     `mapstructure:"env"`         // current application environment (local, dev, prod etc)
	SQLitePath string     `mapstructure:"sqlite_path"` // path to the local authoritative database file
	DB         DB         `mapstructure:"database"`    // remote mirror configuration section
	Queue      Queue      `mapstructure:"queue"`       // review queue generation parameters
	Sync       Sync       `mapstructure:"sync"`        // outbox worker parameters
	Scheduling Scheduling `mapstructure:"scheduling"`  // spaced repetition parameters
}

// DB contains remote mirror configuration. The mirror is optional: when no
// connection string is set, the application runs local-only.
type DB struct {
	URL             string        `mapstructure:"-"`                 // mirror connection string loaded from environment
	MaxConnections  int32         `mapstructure:"max_connections"`   // maximum number of open connections in the pool
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"` // maximum lifetime of a single connection
}

// MirrorEnabled reports whether a remote mirror is configured.
func (db DB) MirrorEnabled() bool {
	return db.URL != ""
}

// MirrorEnabled reports whether remote mirroring is active: the premium
// entitlement must be on and a mirror connection string configured.
func (c *Config) MirrorEnabled() bool {
	return c.Sync.Premium && c.DB.MirrorEnabled()
}

// DSN returns the mirror connection string if it is configured.
func (db DB) DSN() (string, error) {
	if db.URL == "" {
		return "", ErrMissingEnvironmentVariables
	}
	return db.URL, nil
}

// Queue contains review queue generation parameters.
type Queue struct {
	SessionSize   int           `mapstructure:"session_size"`   // default number of items per session
	MaxNewItems   int           `mapstructure:"max_new_items"`  // cap on never-reviewed items mixed into a session
	ShuffleWindow int           `mapstructure:"shuffle_window"` // max positions an item may drift during shuffling
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`      // how long a generated queue stays cached
}

// Sync contains outbox worker parameters.
type Sync struct {
	Premium     bool          `mapstructure:"premium"`      // remote mirroring entitlement; off means local-only
	Interval    time.Duration `mapstructure:"interval"`     // how often the worker drains the outbox
	Timeout     time.Duration `mapstructure:"timeout"`      // per-op mirror write timeout
	MaxAttempts int           `mapstructure:"max_attempts"` // retry budget before an op is marked failed
	BaseBackoff time.Duration `mapstructure:"base_backoff"` // first retry delay, doubled per attempt
}

// Scheduling contains spaced repetition parameters.
type Scheduling struct {
	GraduatingInterval int `mapstructure:"graduating_interval"` // days until first review after the learning ladder
	MaxIntervalDays    int `mapstructure:"max_interval_days"`   // hard cap on review intervals
	LeechThreshold     int `mapstructure:"leech_threshold"`     // lapses before an item is flagged a leech
}

// Load reads configuration from config files and environment variables.
func Load() (*Config, error) {
	// Initialize Viper instance and base config options.
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")

	// Set default values for configuration keys.
	v.SetDefault("env", "local")
	v.SetDefault("sqlite_path", "data/review.db")
	v.SetDefault("database.max_connections", 20)
	v.SetDefault("database.max_conn_lifetime", "30s")
	v.SetDefault("queue.session_size", 20)
	v.SetDefault("queue.max_new_items", 5)
	v.SetDefault("queue.shuffle_window", 3)
	v.SetDefault("queue.cache_ttl", "5m")
	v.SetDefault("sync.premium", false)
	v.SetDefault("sync.interval", "30s")
	v.SetDefault("sync.timeout", "5s")
	v.SetDefault("sync.max_attempts", 5)
	v.SetDefault("sync.base_backoff", "10s")
	v.SetDefault("scheduling.graduating_interval", 1)
	v.SetDefault("scheduling.max_interval_days", 365)
	v.SetDefault("scheduling.leech_threshold", 8)

	// Configure environment variable handling and key mapping.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // map nested keys to ENV style names
	v.AutomaticEnv()

	// Bind explicit environment variables to configuration keys.
	_ = v.BindEnv("database_url", "DATABASE_URL")
	_ = v.BindEnv("sqlite_path", "SQLITE_PATH")
	_ = v.BindEnv("env", "APP_ENV")

	// Try to read configuration file if present.
	if err := v.ReadInConfig(); err != nil {
		var fileLookupErr viper.ConfigFileNotFoundError
		if !errors.As(err, &fileLookupErr) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	// Unmarshal configuration into strongly typed struct.
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	// The mirror connection string is sensitive and only ever comes from the
	// environment. It may legitimately be absent.
	cfg.DB.URL = v.GetString("database_url")

	if cfg.SQLitePath == "" {
		return nil, ErrMissingEnvironmentVariables
	}

	return &cfg, nil
}
