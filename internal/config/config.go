package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Scraper  ScraperConfig  `yaml:"scraper"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Timezone string         `yaml:"timezone"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Type      string          `yaml:"type"`
	MySQL     MySQLConfig     `yaml:"mysql"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	LockRetry LockRetryConfig `yaml:"lock_retry"`
	LogLevel  string          `yaml:"log_level"`
}

// MySQLConfig contains MySQL connection settings
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// PostgresConfig contains PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// LockRetryConfig bounds the wait-and-retry applied to lock wait timeouts
type LockRetryConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
	BaseDelayMs int `yaml:"base_delay_ms"`
	MaxDelayMs  int `yaml:"max_delay_ms"`
}

// ScraperConfig contains scraper-specific settings
type ScraperConfig struct {
	TimeoutSeconds          int            `yaml:"timeout_seconds"`
	RetryPasses             int            `yaml:"retry_passes"`
	RequestDelayMs          int            `yaml:"request_delay_ms"`
	MaxRequestsPerDay       int            `yaml:"max_requests_per_day"`
	UserAgent               string         `yaml:"user_agent"`
	BreakerFailureThreshold int            `yaml:"breaker_failure_threshold"`
	BreakerResetSeconds     int            `yaml:"breaker_reset_seconds"`
	Categories              []CategoryRule `yaml:"categories"`
}

// CategoryRule maps a URL fragment to a (country, brand) storefront
type CategoryRule struct {
	Fragment string `yaml:"fragment"`
	Country  string `yaml:"country"`
	Brand    string `yaml:"brand"`
}

// ScheduleConfig contains the cron settings of the stock check
type ScheduleConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// MetricsConfig contains the Prometheus textfile export settings
type MetricsConfig struct {
	TextfilePath string `yaml:"textfile_path"`
}

// DefaultCategories is the storefront table used when the config file has none
func DefaultCategories() []CategoryRule {
	return []CategoryRule{
		{Fragment: "ninjakitchen.fr", Country: "FR", Brand: "Ninja"},
		{Fragment: "sharkclean.fr", Country: "FR", Brand: "Shark"},
		{Fragment: "ninjakitchen.be", Country: "BE", Brand: "Ninja"},
		{Fragment: "sharkclean.be", Country: "BE", Brand: "Shark"},
		{Fragment: "ninjakitchen.nl", Country: "NL", Brand: "Ninja"},
		{Fragment: "sharkclean.nl", Country: "NL", Brand: "Shark"},
	}
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Type: "mysql",
			MySQL: MySQLConfig{
				Host:     "localhost",
				Port:     3306,
				User:     "stockwatch",
				Database: "stockwatch",
			},
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "stockwatch",
				Database: "stockwatch",
				SSLMode:  "disable",
			},
			LockRetry: LockRetryConfig{
				MaxAttempts: 5,
				BaseDelayMs: 1000,
				MaxDelayMs:  8000,
			},
			LogLevel: "warn",
		},
		Scraper: ScraperConfig{
			TimeoutSeconds:          3,
			RetryPasses:             2,
			RequestDelayMs:          0,
			MaxRequestsPerDay:       0,
			UserAgent:               "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
			BreakerFailureThreshold: 5,
			BreakerResetSeconds:     300,
			Categories:              DefaultCategories(),
		},
		Schedule: ScheduleConfig{
			Enabled: false,
			Cron:    "0 */4 * * *",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Timezone: "Europe/Amsterdam",
	}
}

// LoadConfig loads configuration from a YAML file and applies environment overrides.
// A missing file yields the defaults.
func LoadConfig(filepath string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	config := DefaultConfig()

	if _, err := os.Stat(filepath); err == nil {
		data, err := os.ReadFile(filepath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	config.applyEnv()

	if len(config.Scraper.Categories) == 0 {
		config.Scraper.Categories = DefaultCategories()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnv overrides connection settings from the environment
func (c *Config) applyEnv() {
	c.Database.Type = getEnvOrConfig(c.Database.Type, "DB_TYPE")
	c.Logging.Level = getEnvOrConfig(c.Logging.Level, "LOG_LEVEL")

	switch c.Database.Type {
	case "postgres":
		pg := &c.Database.Postgres
		pg.Host = getEnvOrConfig(pg.Host, "DB_HOST")
		pg.Port = getEnvIntOrConfig(pg.Port, "DB_PORT")
		pg.User = getEnvOrConfig(pg.User, "DB_USER")
		pg.Password = getEnvOrConfig(pg.Password, "DB_PASSWORD")
		pg.Database = getEnvOrConfig(pg.Database, "DB_NAME")
		pg.SSLMode = getEnvOrConfig(pg.SSLMode, "DB_SSLMODE")
	default:
		my := &c.Database.MySQL
		my.Host = getEnvOrConfig(my.Host, "DB_HOST")
		my.Port = getEnvIntOrConfig(my.Port, "DB_PORT")
		my.User = getEnvOrConfig(my.User, "DB_USER")
		my.Password = getEnvOrConfig(my.Password, "DB_PASSWORD")
		my.Database = getEnvOrConfig(my.Database, "DB_NAME")
	}
}

// Validate rejects settings the engine cannot run with
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported database type %q", c.Database.Type)
	}
	if c.Scraper.TimeoutSeconds <= 0 {
		return fmt.Errorf("scraper.timeout_seconds must be positive")
	}
	if c.Scraper.RetryPasses < 0 {
		return fmt.Errorf("scraper.retry_passes must not be negative")
	}
	if c.Database.LockRetry.MaxAttempts < 1 {
		return fmt.Errorf("database.lock_retry.max_attempts must be at least 1")
	}
	for i, rule := range c.Scraper.Categories {
		if rule.Fragment == "" || rule.Country == "" || rule.Brand == "" {
			return fmt.Errorf("scraper.categories[%d] needs fragment, country and brand", i)
		}
	}
	return nil
}

// Location returns the configured timezone, falling back to local time
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// GetTimeout returns the per-request timeout as a duration
func (c *ScraperConfig) GetTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GetRequestDelay returns the minimum delay between requests
func (c *ScraperConfig) GetRequestDelay() time.Duration {
	return time.Duration(c.RequestDelayMs) * time.Millisecond
}

// GetBreakerReset returns how long an open circuit stays open
func (c *ScraperConfig) GetBreakerReset() time.Duration {
	return time.Duration(c.BreakerResetSeconds) * time.Second
}

// GetBaseDelay returns the first lock retry backoff
func (c *LockRetryConfig) GetBaseDelay() time.Duration {
	return time.Duration(c.BaseDelayMs) * time.Millisecond
}

// GetMaxDelay returns the backoff cap
func (c *LockRetryConfig) GetMaxDelay() time.Duration {
	return time.Duration(c.MaxDelayMs) * time.Millisecond
}

func getEnvOrConfig(configValue, envKey string) string {
	if value := os.Getenv(envKey); value != "" {
		return value
	}
	return configValue
}

func getEnvIntOrConfig(configValue int, envKey string) int {
	if value := os.Getenv(envKey); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return configValue
}
