package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"tablebook/internal/availability"
)

const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"interval_hours"`
	StoragePath   string `yaml:"storage_path"`
	RetentionDays int    `yaml:"retention_days"`
}

// Interval returns the time between backups, one day when unset.
func (b BackupConfig) Interval() time.Duration {
	if b.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(b.IntervalHours) * time.Hour
}

type Config struct {
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Server struct {
		Port           int     `yaml:"port"`
		RateLimitRPS   float64 `yaml:"rate_limit_rps"`
		RateLimitBurst int     `yaml:"rate_limit_burst"`
	} `yaml:"server"`

	Storage struct {
		Driver   string `yaml:"driver"`
		Timezone string `yaml:"timezone"`
	} `yaml:"storage"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Mongo struct {
		URL  string `yaml:"url"`
		Name string `yaml:"name"`
	} `yaml:"mongo"`

	Backup BackupConfig `yaml:"backup"`

	Redis struct {
		Address        string `yaml:"address"`
		Password       string `yaml:"password"`
		DB             int    `yaml:"db"`
		LockTTLSeconds int    `yaml:"lock_ttl_seconds"`
	} `yaml:"redis"`

	NATS struct {
		URL                string `yaml:"url"`
		ReservationSubject string `yaml:"reservation_subject"`
		OrderSubject       string `yaml:"order_subject"`
	} `yaml:"nats"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Availability availability.Policy `yaml:"availability"`
}

// Load reads the YAML config at path. Variables from a .env file next to the working
// directory are loaded first so ${ENV_VAR} placeholders can refer to them.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	if cfg.Storage.Driver == DriverSQLite {
		if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Parse expands ${ENV_VAR} placeholders in data, decodes it and applies defaults.
func Parse(data []byte) (*Config, error) {
	data = []byte(os.ExpandEnv(string(data)))

	// Decoding over the default policy keeps omitted keys at their defaults while an
	// explicit buffer_minutes: 0 survives.
	cfg := Config{Availability: availability.DefaultPolicy()}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.RateLimitBurst <= 0 {
		c.Server.RateLimitBurst = 20
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverSQLite
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/tablebook.db"
	}
	if c.Mongo.URL == "" {
		c.Mongo.URL = "mongodb://localhost:27017"
	}
	if c.Mongo.Name == "" {
		c.Mongo.Name = "tablebook"
	}
	if c.Backup.IntervalHours <= 0 {
		c.Backup.IntervalHours = 24
	}
	if c.Backup.StoragePath == "" {
		c.Backup.StoragePath = "data/backups"
	}
	if c.Redis.LockTTLSeconds <= 0 {
		c.Redis.LockTTLSeconds = 10
	}
	if c.NATS.ReservationSubject == "" {
		c.NATS.ReservationSubject = "reservations"
	}
	if c.NATS.OrderSubject == "" {
		c.NATS.OrderSubject = "orders.status"
	}
	if c.Monitoring.HealthCheckPort == 0 {
		c.Monitoring.HealthCheckPort = 8090
	}
	if c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	c.Availability = c.Availability.WithDefaults()
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Storage.Driver != DriverSQLite && c.Storage.Driver != DriverMongo {
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return c.Availability.Validate()
}

// Location returns the time zone calendar dates are interpreted in.
func (c *Config) Location() (*time.Location, error) {
	if c.Storage.Timezone == "" || c.Storage.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Storage.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Storage.Timezone, err)
	}
	return loc, nil
}

func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.Redis.LockTTLSeconds) * time.Second
}
