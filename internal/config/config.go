// Package config loads injtracker settings from an optional YAML file,
// INJTRACKER_* environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"injtracker/internal/domain"
	"injtracker/internal/logging"
)

const envPrefix = "INJTRACKER"

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverJSON     = "json"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the complete application configuration.
type Config struct {
	Server  ServerConfig   `mapstructure:"server"`
	Storage StorageConfig  `mapstructure:"storage"`
	Log     logging.Config `mapstructure:"log"`
	Tracker TrackerConfig  `mapstructure:"tracker"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	// Path is the history file for the json driver and the database file for
	// the sqlite driver.
	Path        string `mapstructure:"path"`
	DatabaseURL string `mapstructure:"database_url"`
}

// TrackerConfig holds the body geometry and the scoring constants.
type TrackerConfig struct {
	CenterX             float64 `mapstructure:"center_x"`
	CenterY             float64 `mapstructure:"center_y"`
	RadiusX             float64 `mapstructure:"radius_x"`
	RadiusY             float64 `mapstructure:"radius_y"`
	ExclusionRatio      float64 `mapstructure:"exclusion_ratio"`
	RecoveryDays        int     `mapstructure:"recovery_days"`
	Sigma               float64 `mapstructure:"sigma"`
	CycleDays           int     `mapstructure:"cycle_days"`
	ProximityRadius     float64 `mapstructure:"proximity_radius"`
	QuadrantWarningDays int     `mapstructure:"quadrant_warning_days"`
	HeatmapResolution   int     `mapstructure:"heatmap_resolution"`
}

// Engine converts the tracker section into a scoring engine.
func (t TrackerConfig) Engine() domain.Engine {
	return domain.Engine{
		Influence: domain.Influence{
			Geometry: domain.Geometry{
				CX:             t.CenterX,
				CY:             t.CenterY,
				RX:             t.RadiusX,
				RY:             t.RadiusY,
				ExclusionRatio: t.ExclusionRatio,
			},
			RecoveryDays: t.RecoveryDays,
			Sigma:        t.Sigma,
		},
		CycleDays:           t.CycleDays,
		ProximityRadius:     t.ProximityRadius,
		QuadrantWarningDays: t.QuadrantWarningDays,
	}
}

func setDefaults(v *viper.Viper) {
	eng := domain.DefaultEngine()
	g := eng.Influence.Geometry

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("storage.driver", DriverJSON)
	v.SetDefault("storage.path", "")
	v.SetDefault("storage.database_url", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", []string{})

	v.SetDefault("tracker.center_x", g.CX)
	v.SetDefault("tracker.center_y", g.CY)
	v.SetDefault("tracker.radius_x", g.RX)
	v.SetDefault("tracker.radius_y", g.RY)
	v.SetDefault("tracker.exclusion_ratio", g.ExclusionRatio)
	v.SetDefault("tracker.recovery_days", eng.Influence.RecoveryDays)
	v.SetDefault("tracker.sigma", eng.Influence.Sigma)
	v.SetDefault("tracker.cycle_days", eng.CycleDays)
	v.SetDefault("tracker.proximity_radius", eng.ProximityRadius)
	v.SetDefault("tracker.quadrant_warning_days", eng.QuadrantWarningDays)
	v.SetDefault("tracker.heatmap_resolution", 60)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// Load reads the YAML file at path (skipped when path is empty), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %q: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = DefaultStoragePath(cfg.Storage.Driver)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// DefaultStoragePath is the file used by file-backed drivers when none is
// configured.
func DefaultStoragePath(driver string) string {
	switch driver {
	case DriverJSON:
		return "data/injections.json"
	case DriverSQLite:
		return "data/injections.db"
	}
	return ""
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverJSON, DriverSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the %s driver", c.Storage.Driver)
		}
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("storage.database_url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Tracker.HeatmapResolution <= 0 {
		return errors.New("tracker.heatmap_resolution must be > 0")
	}
	if err := c.Tracker.Engine().Validate(); err != nil {
		return fmt.Errorf("tracker: %w", err)
	}
	return nil
}
