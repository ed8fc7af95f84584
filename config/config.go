package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Vision    VisionConfig
	Catalog   CatalogConfig
	Cache     CacheConfig
	Pipeline  PipelineConfig
	RateLimit RateLimitConfig
	Events    EventsConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Environment     string        `mapstructure:"environment"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// VisionConfig holds vision model configuration.
// An empty APIKey is allowed; identify requests then fail with 500.
type VisionConfig struct {
	Provider string `mapstructure:"provider"`
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
	BaseURL  string `mapstructure:"base_url"`
}

// CatalogConfig selects where the product catalog is read from
type CatalogConfig struct {
	Source      string `mapstructure:"source"` // "postgres" or "file"
	DatabaseURL string `mapstructure:"database_url"`
	FilePath    string `mapstructure:"file_path"`
	Table       string `mapstructure:"table"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL string        `mapstructure:"redis_url"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// PipelineConfig holds per-image analysis limits
type PipelineConfig struct {
	FetchTimeout  time.Duration `mapstructure:"fetch_timeout"`
	VisionTimeout time.Duration `mapstructure:"vision_timeout"`
	VisionRPS     float64       `mapstructure:"vision_rps"`
	MaxImageBytes int64         `mapstructure:"max_image_bytes"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute, 0 disables
}

// EventsConfig holds batch event publishing configuration
type EventsConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Brokers        []string      `mapstructure:"brokers"`
	Topic          string        `mapstructure:"topic"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

// IsProduction reports whether the server runs in production mode
func (c ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

// Load loads configuration from a .env file, environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/shoplens/")

	// Environment variable settings: SHOPLENS_CACHE_REDIS_URL -> cache.redis_url
	v.SetEnvPrefix("SHOPLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads ./.env into the process environment when it exists.
// Variables that are already set are not overridden.
func loadEnvFile() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error reading .env file: %w", err)
	}
	return nil
}

// setDefaults sets default configuration values. Keys without a meaningful
// default are still registered so AutomaticEnv can see them on Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.shutdown_timeout", "30s")

	// Vision defaults
	v.SetDefault("vision.provider", "gemini")
	v.SetDefault("vision.api_key", "")
	v.SetDefault("vision.model", "gemini-2.5-flash")
	v.SetDefault("vision.base_url", "")

	// Catalog defaults
	v.SetDefault("catalog.source", "postgres")
	v.SetDefault("catalog.database_url", "")
	v.SetDefault("catalog.file_path", "")
	v.SetDefault("catalog.table", "products")

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.prefix", "shoplens:")
	v.SetDefault("cache.ttl", "5m")

	// Pipeline defaults
	v.SetDefault("pipeline.fetch_timeout", "15s")
	v.SetDefault("pipeline.vision_timeout", "60s")
	v.SetDefault("pipeline.vision_rps", 0)
	v.SetDefault("pipeline.max_image_bytes", 10<<20)

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 30)

	// Events defaults
	v.SetDefault("events.enabled", false)
	v.SetDefault("events.brokers", []string{})
	v.SetDefault("events.topic", "shoplens.photo-identification")
	v.SetDefault("events.publish_timeout", 2*time.Second)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Vision.Provider != "gemini" {
		return fmt.Errorf("vision provider must be 'gemini', got: %s", config.Vision.Provider)
	}

	switch config.Catalog.Source {
	case "postgres":
		if config.Catalog.DatabaseURL == "" {
			return fmt.Errorf("database URL is required when catalog source is 'postgres' (set SHOPLENS_CATALOG_DATABASE_URL)")
		}
	case "file":
		if config.Catalog.FilePath == "" {
			return fmt.Errorf("file path is required when catalog source is 'file' (set SHOPLENS_CATALOG_FILE_PATH)")
		}
	default:
		return fmt.Errorf("catalog source must be 'postgres' or 'file', got: %s", config.Catalog.Source)
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when cache type is 'redis'")
	}

	if config.Pipeline.FetchTimeout <= 0 || config.Pipeline.VisionTimeout <= 0 {
		return fmt.Errorf("pipeline timeouts must be positive")
	}

	if config.Pipeline.MaxImageBytes <= 0 {
		return fmt.Errorf("pipeline max_image_bytes must be positive, got: %d", config.Pipeline.MaxImageBytes)
	}

	if config.Pipeline.VisionRPS < 0 {
		return fmt.Errorf("pipeline vision_rps must not be negative")
	}

	if config.RateLimit.PerIP < 0 {
		return fmt.Errorf("ratelimit per_ip must not be negative")
	}

	if config.Events.Enabled {
		if len(config.Events.Brokers) == 0 {
			return fmt.Errorf("at least one broker is required when events are enabled")
		}
		if config.Events.Topic == "" {
			return fmt.Errorf("events topic is required when events are enabled")
		}
	}

	return nil
}
