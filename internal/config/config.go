package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds runtime configuration for the vacancy report service.
type Config struct {
	Env       string
	HTTPPort  string
	LogLevel  string
	LogFormat string

	// External HR data source.
	SourceBaseURL  string
	SourceUsername string
	SourcePassword string
	SourceTimeout  time.Duration

	// Pipeline tuning.
	PageSize         int
	StageConcurrency int

	// Submit-side rate limiting (disabled when RedisAddr is empty).
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	RateLimitCapacity int
	RateLimitRefill   float64
	RateLimitTTL      time.Duration

	// Optional S3 bucket for finished report payloads.
	ReportBucket string
}

// Load reads configuration from environment variables with sane defaults for local development.
func Load() Config {
	return Config{
		Env:               getEnv("APP_ENV", "dev"),
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
		SourceBaseURL:     getEnv("SOURCE_BASE_URL", "http://localhost:4004/odata/v2"),
		SourceUsername:    getEnv("SOURCE_USERNAME", ""),
		SourcePassword:    getEnv("SOURCE_PASSWORD", ""),
		SourceTimeout:     getEnvDuration("SOURCE_TIMEOUT", 60*time.Second),
		PageSize:          getEnvInt("SOURCE_PAGE_SIZE", 2000),
		StageConcurrency:  getEnvInt("STAGE_CONCURRENCY", 10),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		RateLimitCapacity: getEnvInt("RATE_LIMIT_CAPACITY", 20),
		RateLimitRefill:   getEnvFloat("RATE_LIMIT_REFILL_PER_SEC", 1),
		RateLimitTTL:      getEnvDuration("RATE_LIMIT_TTL", time.Hour),
		ReportBucket:      getEnv("REPORT_BUCKET", ""),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
