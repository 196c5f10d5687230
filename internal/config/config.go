package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Search    SearchConfig    `yaml:"search"`
	Auth      AuthConfig      `yaml:"auth"`
	Listings  ListingsConfig  `yaml:"listings"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Notify    NotifyConfig    `yaml:"notify"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port           string   `yaml:"port" env:"PORT"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
}

// DatabaseConfig contains MongoDB connection settings
type DatabaseConfig struct {
	URI      string `yaml:"uri" env:"MONGODB_URI"`
	Database string `yaml:"database" env:"MONGODB_DATABASE"`
}

// SearchConfig contains search engine settings
type SearchConfig struct {
	Meilisearch MeilisearchConfig `yaml:"meilisearch"`
}

// MeilisearchConfig contains Meilisearch connection settings
type MeilisearchConfig struct {
	Enabled bool   `yaml:"enabled" env:"MEILISEARCH_ENABLED"`
	Host    string `yaml:"host" env:"MEILISEARCH_HOST"`
	APIKey  string `yaml:"api_key" env:"MEILISEARCH_KEY"`
}

// AuthConfig contains JWT settings
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET"`
}

// LocationMatch selects how location filters compare values:
// "regex" matches case-insensitively, "exact" matches the literal string.
type LocationMatch string

const (
	LocationMatchRegex LocationMatch = "regex"
	LocationMatchExact LocationMatch = "exact"
)

// ListingsConfig contains listing query and posting settings
type ListingsConfig struct {
	FreePostLimit      int           `yaml:"free_post_limit" env:"FREE_POST_LIMIT"`
	FreePostPeriodDays int           `yaml:"free_post_period_days" env:"FREE_POST_PERIOD_DAYS"`
	DefaultPageSize    int           `yaml:"default_page_size" env:"DEFAULT_PAGE_SIZE"`
	MaxPageSize        int           `yaml:"max_page_size" env:"MAX_PAGE_SIZE"`
	LocationMatch      LocationMatch `yaml:"location_match" env:"LOCATION_MATCH"`
}

// RateLimitConfig contains write-endpoint rate limiting settings
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" env:"RATE_LIMIT_ENABLED"`
	RequestsPerMinute int  `yaml:"requests_per_minute" env:"RATE_LIMIT_PER_MINUTE"`
	RequestsPerHour   int  `yaml:"requests_per_hour" env:"RATE_LIMIT_PER_HOUR"`
}

// SchedulerConfig contains maintenance job settings
type SchedulerConfig struct {
	Enabled           bool   `yaml:"enabled" env:"SCHEDULER_ENABLED"`
	PackageExpiryTime string `yaml:"package_expiry_time" env:"PACKAGE_EXPIRY_TIME"`
	ReindexTime       string `yaml:"reindex_time" env:"REINDEX_TIME"`
}

// NotifyConfig contains push dispatch settings
type NotifyConfig struct {
	PushEnabled bool   `yaml:"push_enabled" env:"PUSH_ENABLED"`
	PushURL     string `yaml:"push_url" env:"PUSH_URL"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8080",
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Database: DatabaseConfig{
			URI:      "mongodb://localhost:27017",
			Database: "gharbazaar",
		},
		Search: SearchConfig{
			Meilisearch: MeilisearchConfig{
				Enabled: true,
				Host:    "http://localhost:7700",
				APIKey:  "masterKey",
			},
		},
		Listings: ListingsConfig{
			FreePostLimit:      5,
			FreePostPeriodDays: 30,
			DefaultPageSize:    20,
			MaxPageSize:        100,
			LocationMatch:      LocationMatchRegex,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 30,
			RequestsPerHour:   600,
		},
		Scheduler: SchedulerConfig{
			Enabled:           true,
			PackageExpiryTime: "01:30",
			ReindexTime:       "03:00",
		},
		Notify: NotifyConfig{
			PushEnabled: false,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from a YAML file, then applies
// environment variable overrides on top.
func LoadConfig(filepath string) (*Config, error) {
	config := DefaultConfig()

	if filepath != "" {
		if _, err := os.Stat(filepath); err == nil {
			data, err := os.ReadFile(filepath)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment overrides: %w", err)
	}

	return config, nil
}
