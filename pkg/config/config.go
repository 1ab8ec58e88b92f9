package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Application settings
type Config struct {
	Server   ServerConfig
	Logging  LoggingConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Assets   AssetConfig
	Cache    CacheConfig
}

// Server settings
type ServerConfig struct {
	Port               string
	RateLimitPerSecond int
	RateLimitBurst     int
	ShutdownTimeout    time.Duration
}

// Logging settings
type LoggingConfig struct {
	Level  string
	Format string
}

// JSON collection files live under DataDir.
type StorageConfig struct {
	DataDir string
}

// Revenue ledger database
type DatabaseConfig struct {
	Driver string // sqlite or postgres
	DSN    string
}

// Campaign logo storage
type AssetConfig struct {
	Backend  string // local or s3
	Dir      string
	Bucket   string
	Region   string
	Endpoint string
	Prefix   string
}

// Report summary cache
type CacheConfig struct {
	Backend       string // memory or redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

func Load() (*Config, error) {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", "data")

	config := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			RateLimitPerSecond: getIntEnv("RATE_LIMIT_PER_SECOND", 50),
			RateLimitBurst:     getIntEnv("RATE_LIMIT_BURST", 100),
			ShutdownTimeout:    getDurationEnv("SHUTDOWN_TIMEOUT", "10s"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Storage: StorageConfig{
			DataDir: dataDir,
		},
		Database: DatabaseConfig{
			Driver: getEnv("DATABASE_DRIVER", "sqlite"),
			DSN:    getEnv("DATABASE_DSN", filepath.Join(dataDir, "revenue.db")),
		},
		Assets: AssetConfig{
			Backend:  getEnv("ASSET_BACKEND", "local"),
			Dir:      getEnv("ASSET_DIR", filepath.Join(dataDir, "logos")),
			Bucket:   getEnv("S3_BUCKET", ""),
			Region:   getEnv("S3_REGION", "us-east-1"),
			Endpoint: getEnv("S3_ENDPOINT", ""),
			Prefix:   getEnv("S3_PREFIX", "logos/"),
		},
		Cache: CacheConfig{
			Backend:       getEnv("CACHE_BACKEND", "memory"),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getIntEnv("REDIS_DB", 0),
			TTL:           getDurationEnv("CACHE_TTL", "5m"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if c.Storage.DataDir == "" {
		errs = append(errs, errors.New("DATA_DIR must not be empty"))
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER must be sqlite or postgres, got %q", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN must not be empty"))
	}
	switch c.Assets.Backend {
	case "local":
	case "s3":
		if c.Assets.Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required when ASSET_BACKEND=s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("ASSET_BACKEND must be local or s3, got %q", c.Assets.Backend))
	}
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("CACHE_BACKEND must be memory or redis, got %q", c.Cache.Backend))
	}
	if c.Server.RateLimitPerSecond <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_SECOND must be positive"))
	}
	if c.Server.RateLimitBurst <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_BURST must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
