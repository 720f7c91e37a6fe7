// Package config loads process configuration from .env and the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds runtime settings shared by the server and the CLI
type Config struct {
	DatabaseURL string
	Port        string
	Env         string
	LogLevel    string

	ModelDir string
	ModelID  string

	NATSURL           string
	NATSSubjectPrefix string

	RoadGraphFile string

	HistoryDays        int
	HistoryCacheTTL    time.Duration
	HistoryCacheSize   int
	MaxForecastHorizon int
}

// Load reads .env if present, then the environment. It reports whether a .env file was found.
func Load() (*Config, bool) {
	found := godotenv.Load() == nil

	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("GO_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		ModelDir: getEnv("MODEL_DIR", "models"),
		ModelID:  getEnv("MODEL_ID", "speed_model"),

		NATSURL:           getEnv("NATS_URL", ""),
		NATSSubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "traffic"),

		RoadGraphFile: getEnv("ROAD_GRAPH_FILE", ""),

		HistoryDays:        getEnvInt("HISTORY_DAYS", 30),
		HistoryCacheTTL:    getEnvDuration("HISTORY_CACHE_TTL", 5*time.Minute),
		HistoryCacheSize:   getEnvInt("HISTORY_CACHE_SIZE", 1024),
		MaxForecastHorizon: getEnvInt("FORECAST_MAX_HORIZON", 24),
	}, found
}

// IsProduction reports whether GO_ENV selects production behaviour
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
