// Package config provides configuration management for the AgriSense
// classification service.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// DateLayout is the calendar date format used in configuration and requests.
const DateLayout = "2006-01-02"

// Config holds the complete application configuration loaded from environment variables.
type Config struct {
	Server      ServerConfig      `envPrefix:"SERVER_"`
	SentinelHub SentinelHubConfig `envPrefix:"SENTINELHUB_"`
	Pipeline    PipelineConfig    `envPrefix:"PIPELINE_"`
	Catalog     CatalogConfig     `envPrefix:"CATALOG_"`
	Database    DatabaseConfig    `envPrefix:"DATABASE_"`
	Products    ProductsConfig    `envPrefix:"PRODUCTS_"`
	Logging     LoggingConfig     `envPrefix:"LOG_"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `env:"HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"180s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`
}

// SentinelHubConfig contains the imagery provider client configuration.
type SentinelHubConfig struct {
	BaseURL      string `env:"BASE_URL" envDefault:"https://services.sentinel-hub.com"`
	TokenURL     string `env:"TOKEN_URL" envDefault:"https://services.sentinel-hub.com/auth/realms/main/protocol/openid-connect/token"`
	ClientID     string `env:"CLIENT_ID"`     // required
	ClientSecret string `env:"CLIENT_SECRET"` // required

	// Timeout bounds a single fetch attempt.
	Timeout       time.Duration `env:"TIMEOUT" envDefault:"60s"`
	MaxRetries    uint64        `env:"MAX_RETRIES" envDefault:"2"`
	RetryInterval time.Duration `env:"RETRY_INTERVAL" envDefault:"200ms"`

	// Width and Height are the output raster size in pixels.
	Width  int `env:"WIDTH" envDefault:"512"`
	Height int `env:"HEIGHT" envDefault:"354"`
}

// PipelineConfig contains classification pipeline settings.
type PipelineConfig struct {
	Concurrency int `env:"CONCURRENCY" envDefault:"4"`
	MaxSamples  int `env:"MAX_SAMPLES" envDefault:"1000"`
	// Seed fixes forecast sampling. Zero draws a fresh seed per run.
	Seed uint64 `env:"SEED" envDefault:"0"`
}

// CatalogConfig contains settings for the acquisition availability search.
type CatalogConfig struct {
	Collection string        `env:"COLLECTION" envDefault:"sentinel-2-l2a"`
	StartDate  string        `env:"START_DATE" envDefault:"2023-01-01"`
	PageLimit  int           `env:"PAGE_LIMIT" envDefault:"100"`
	CacheTTL   time.Duration `env:"CACHE_TTL" envDefault:"15m"`
}

// Start returns StartDate as a UTC time.
func (c *CatalogConfig) Start() (time.Time, error) {
	return time.Parse(DateLayout, c.StartDate)
}

// DatabaseConfig contains the optional PostGIS run archive settings.
type DatabaseConfig struct {
	// URL enables the archive when set.
	URL      string `env:"URL" envDefault:""`
	MaxConns int32  `env:"MAX_CONNS" envDefault:"4"`
}

// Enabled reports whether runs are archived.
func (d *DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// ProductsConfig points at optional product definition overrides.
type ProductsConfig struct {
	Dir string `env:"DIR" envDefault:""`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

// Load parses configuration from environment variables.
// It returns an error if required fields are missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}

	opts := env.Options{
		RequiredIfNoDef: true,
	}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive, got %s", c.Server.ReadTimeout)
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive, got %s", c.Server.WriteTimeout)
	}

	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server shutdown timeout must be positive, got %s", c.Server.ShutdownTimeout)
	}

	// Validate Sentinel Hub config
	if c.SentinelHub.BaseURL == "" {
		return fmt.Errorf("Sentinel Hub base URL is required")
	}

	if c.SentinelHub.TokenURL == "" {
		return fmt.Errorf("Sentinel Hub token URL is required")
	}

	if c.SentinelHub.ClientID == "" || c.SentinelHub.ClientSecret == "" {
		return fmt.Errorf("Sentinel Hub client credentials are required")
	}

	if c.SentinelHub.Timeout <= 0 {
		return fmt.Errorf("Sentinel Hub timeout must be positive, got %s", c.SentinelHub.Timeout)
	}

	if c.SentinelHub.Width < 1 || c.SentinelHub.Height < 1 || c.SentinelHub.Width > 2500 || c.SentinelHub.Height > 2500 {
		return fmt.Errorf("raster size must be between 1 and 2500 pixels per side, got %dx%d", c.SentinelHub.Width, c.SentinelHub.Height)
	}

	// Validate pipeline config
	if c.Pipeline.Concurrency < 1 {
		return fmt.Errorf("pipeline concurrency must be at least 1, got %d", c.Pipeline.Concurrency)
	}

	if c.Pipeline.MaxSamples < 1 {
		return fmt.Errorf("forecast sample cap must be at least 1, got %d", c.Pipeline.MaxSamples)
	}

	// Validate catalog config
	if _, err := c.Catalog.Start(); err != nil {
		return fmt.Errorf("catalog start date %q must be YYYY-MM-DD: %w", c.Catalog.StartDate, err)
	}

	if c.Catalog.PageLimit < 1 {
		return fmt.Errorf("catalog page limit must be at least 1, got %d", c.Catalog.PageLimit)
	}

	if c.Catalog.CacheTTL < 0 {
		return fmt.Errorf("catalog cache TTL must not be negative, got %s", c.Catalog.CacheTTL)
	}

	if c.Database.Enabled() && c.Database.MaxConns < 1 {
		return fmt.Errorf("database max connections must be at least 1, got %d", c.Database.MaxConns)
	}

	// Validate logging config
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format %q, must be one of: json, text", c.Logging.Format)
	}

	return nil
}

// Address returns the server listen address in the format "host:port".
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
