// Package config loads runtime configuration.
//
// Precedence is flags > environment > config file > defaults. Flags are
// applied by the caller after Load; environment variables use the WARDEN_
// prefix with dots replaced by underscores (WARDEN_LOG_LEVEL).
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/roach88/warden/internal/catalog"
	"github.com/roach88/warden/internal/track"
)

// Defaults.
const (
	DefaultDatabase      = "warden.db"
	DefaultTickInterval  = 2 * time.Second
	DefaultLoginGrace    = catalog.DefaultLoginGrace
	DefaultMergeInterval = time.Minute
	DefaultEdgeThreshold = 90
)

// Config is the resolved configuration.
type Config struct {
	// Database is a file path or a sqlite:// or postgres:// URL.
	Database string
	// Subject is the member number owning the stored state.
	Subject      int64
	PlayerName   string
	TickInterval time.Duration
	LoginGrace   time.Duration
	Track        TrackConfig
	Log          LogConfig
}

// TrackConfig tunes the status-tracking accumulator.
type TrackConfig struct {
	MergeThreshold time.Duration
	EdgeThreshold  int64
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from path (optional), the environment and the
// defaults, then validates it.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("database", DefaultDatabase)
	v.SetDefault("subject", 0)
	v.SetDefault("player_name", "")
	v.SetDefault("tick_interval", DefaultTickInterval.String())
	v.SetDefault("login_grace", DefaultLoginGrace.String())
	v.SetDefault("track.merge_threshold", DefaultMergeInterval.String())
	v.SetDefault("track.edge_threshold", DefaultEdgeThreshold)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetEnvPrefix("WARDEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Database:     v.GetString("database"),
		Subject:      v.GetInt64("subject"),
		PlayerName:   v.GetString("player_name"),
		TickInterval: v.GetDuration("tick_interval"),
		LoginGrace:   v.GetDuration("login_grace"),
		Track: TrackConfig{
			MergeThreshold: v.GetDuration("track.merge_threshold"),
			EdgeThreshold:  v.GetInt64("track.edge_threshold"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("database must not be empty")
	}
	if c.Subject < 0 {
		return fmt.Errorf("subject must not be negative, got %d", c.Subject)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive, got %v", c.TickInterval)
	}
	if c.LoginGrace <= 0 {
		return fmt.Errorf("login_grace must be positive, got %v", c.LoginGrace)
	}
	if c.Track.MergeThreshold <= 0 {
		return fmt.Errorf("track.merge_threshold must be positive, got %v", c.Track.MergeThreshold)
	}
	if c.Track.EdgeThreshold < 0 || c.Track.EdgeThreshold > 100 {
		return fmt.Errorf("track.edge_threshold must be between 0 and 100, got %d", c.Track.EdgeThreshold)
	}
	if _, err := c.Log.level(); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// CatalogOptions maps the tuning keys onto the rule catalogue.
func (c *Config) CatalogOptions() catalog.Options {
	return catalog.Options{
		LoginGrace: c.LoginGrace,
		Track: []track.Option{
			track.WithMergeThreshold(c.Track.MergeThreshold),
			track.WithEdgeThreshold(c.Track.EdgeThreshold),
		},
	}
}

func (l LogConfig) level() (slog.Level, error) {
	switch l.Level {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("log.level must be debug, info, warn or error, got %q", l.Level)
}

// NewLogger builds a logger writing to w. verbose forces debug level.
func (l LogConfig) NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level, err := l.level()
	if err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
