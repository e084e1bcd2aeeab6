// Package config provides configuration management for the job insights service.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"math"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/job-insights/internal/types"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Source    SourceConfig
	Redis     RedisConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
	Weights   types.Weights
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           string
	Host           string
	MaxUploadBytes int64
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

// SourceConfig selects where job records come from.
// A CSV path wins over a URL; with neither, MockJobs records are generated.
type SourceConfig struct {
	CSVPath         string
	CSVURL          string
	FetchTimeout    time.Duration
	MockJobs        int
	MockSeed        int64
	RefreshSchedule string // cron spec, empty disables scheduled reloads
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled        bool
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// Addr returns the Redis address
func (r RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, r.Port)
}

// CacheConfig holds report cache configuration
type CacheConfig struct {
	TTL time.Duration
}

// RateLimitConfig holds per-client request limits
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// .env file is optional; environment variables can be set directly
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			MaxUploadBytes: getEnvAsInt64("MAX_UPLOAD_BYTES", 32<<20),
		},
		Source: SourceConfig{
			CSVPath:         getEnv("JOBS_CSV_PATH", ""),
			CSVURL:          getEnv("JOBS_CSV_URL", ""),
			FetchTimeout:    getEnvAsDuration("JOBS_FETCH_TIMEOUT", 30*time.Second),
			MockJobs:        getEnvAsInt("MOCK_JOBS", 500),
			MockSeed:        getEnvAsInt64("MOCK_SEED", 1),
			RefreshSchedule: getEnv("REFRESH_SCHEDULE", ""),
		},
		Redis: RedisConfig{
			Enabled:        getEnvAsBool("REDIS_ENABLED", false),
			Host:           getEnv("REDIS_HOST", "localhost"),
			Port:           getEnv("REDIS_PORT", "6379"),
			Password:       getEnv("REDIS_PASSWORD", ""),
			DB:             getEnvAsInt("REDIS_DB", 0),
			MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 20),
		},
		Cache: CacheConfig{
			TTL: getEnvAsDuration("CACHE_TTL", 5*time.Minute),
		},
		RateLimit: RateLimitConfig{
			RPS:   getEnvAsFloat("RATE_LIMIT_RPS", 20),
			Burst: getEnvAsInt("RATE_LIMIT_BURST", 40),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Weights: types.DefaultWeights(),
	}

	if path := getEnv("WEIGHTS_FILE", ""); path != "" {
		weights, err := LoadWeightsFile(path)
		if err != nil {
			return nil, err
		}
		config.Weights = weights
	}

	// Individual env weights override the file
	config.Weights.Success = getEnvAsFloat("WEIGHT_SUCCESS", config.Weights.Success)
	config.Weights.Queue = getEnvAsFloat("WEIGHT_QUEUE", config.Weights.Queue)
	config.Weights.Exec = getEnvAsFloat("WEIGHT_EXEC", config.Weights.Exec)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks values that would otherwise fail later at startup
func (c *Config) Validate() error {
	if err := ValidateWeights(c.Weights); err != nil {
		return err
	}
	if c.RateLimit.RPS <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive, got %v", c.RateLimit.RPS)
	}
	if c.RateLimit.Burst <= 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be positive, got %d", c.RateLimit.Burst)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.Server.MaxUploadBytes)
	}
	if c.Source.MockJobs < 0 {
		return fmt.Errorf("MOCK_JOBS must not be negative, got %d", c.Source.MockJobs)
	}
	return nil
}

// ValidateWeights rejects negative or non-finite weights
func ValidateWeights(w types.Weights) error {
	for name, v := range map[string]float64{"success": w.Success, "queue": w.Queue, "exec": w.Exec} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("weight %s must be a non-negative number, got %v", name, v)
		}
	}
	return nil
}

// LoadWeightsFile reads a YAML weight profile. Keys left out keep their default value.
func LoadWeightsFile(path string) (types.Weights, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Weights{}, fmt.Errorf("error reading weights file: %w", err)
	}

	weights := types.DefaultWeights()
	if err := yaml.Unmarshal(data, &weights); err != nil {
		return types.Weights{}, fmt.Errorf("error parsing weights file %s: %w", path, err)
	}
	if err := ValidateWeights(weights); err != nil {
		return types.Weights{}, fmt.Errorf("invalid weights file %s: %w", path, err)
	}
	return weights, nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsInt64 gets an environment variable as an int64 with a default value
func getEnvAsInt64(key string, defaultValue int64) int64 {
	value, err := strconv.ParseInt(getEnv(key, ""), 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool accepts 1/0, true/false, yes/no, on/off
func getEnvAsBool(key string, defaultValue bool) bool {
	switch strings.ToLower(getEnv(key, "")) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultValue
	}
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
