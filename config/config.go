// Package config loads stamp's settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/slackpad/stamp/timeinfo"
	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable that points at the config file.
const EnvPath = "STAMP_CONFIG"

// DefaultPath is read when EnvPath is unset.
const DefaultPath = "stamp.yaml"

// Config is the top-level configuration.
type Config struct {
	DBPath              string `yaml:"db_path"`
	LogLevel            string `yaml:"log_level"`
	ExiftoolPath        string `yaml:"exiftool_path"`
	Workers             int    `yaml:"workers"`
	FallbackTimezone    string `yaml:"fallback_timezone"`
	GPSToleranceSeconds int    `yaml:"gps_tolerance_seconds"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		DBPath:              "stamp.db",
		LogLevel:            "INFO",
		Workers:             4,
		GPSToleranceSeconds: int(timeinfo.DefaultTolerance / time.Second),
	}
}

// Path returns the config file location from the environment, or DefaultPath.
func Path() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads the config file at path over the defaults. A missing file is
// not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var result *multierror.Error
	if c.DBPath == "" {
		result = multierror.Append(result, errors.New("db_path must be set"))
	}
	if hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
		result = multierror.Append(result, fmt.Errorf("unknown log_level %q", c.LogLevel))
	}
	if c.Workers < 1 {
		result = multierror.Append(result, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.GPSToleranceSeconds < 0 {
		result = multierror.Append(result, fmt.Errorf("gps_tolerance_seconds must not be negative, got %d", c.GPSToleranceSeconds))
	}
	if _, err := c.fallbackLocation(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// Level returns the configured log level.
func (c *Config) Level() hclog.Level {
	return hclog.LevelFromString(c.LogLevel)
}

// ResolverOptions builds resolver options from the configuration.
func (c *Config) ResolverOptions(logger hclog.Logger) (timeinfo.Options, error) {
	loc, err := c.fallbackLocation()
	if err != nil {
		return timeinfo.Options{}, err
	}
	return timeinfo.Options{
		Tolerance:        time.Duration(c.GPSToleranceSeconds) * time.Second,
		FallbackLocation: loc,
		Logger:           logger,
	}, nil
}

func (c *Config) fallbackLocation() (*time.Location, error) {
	if c.FallbackTimezone == "" {
		return nil, nil
	}
	loc, err := time.LoadLocation(c.FallbackTimezone)
	if err != nil {
		return nil, fmt.Errorf("unknown fallback_timezone %q: %w", c.FallbackTimezone, err)
	}
	return loc, nil
}
