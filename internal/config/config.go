// Package config loads runtime configuration from the environment, an
// optional .env file and the persisted settings file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Port     int
	DataDir  string
	Version  string
	Offline  bool
	LogLevel string
	// LogFormat is "json" or "console".
	LogFormat string

	Census CensusConfig
	Cache  CacheConfig

	// StageTablePath is a YAML stage table; empty uses the built-in one.
	StageTablePath string
	// ProfileDB is the SQLite city profile database.
	ProfileDB string
}

// CensusConfig configures the ACS client.
type CensusConfig struct {
	BaseURL    string
	APIKey     string
	RateLimit  float64
	Timeout    time.Duration
	MaxRetries int
}

// CacheConfig selects the profile cache. An empty RedisURL keeps the cache
// in process.
type CacheConfig struct {
	RedisURL string
	TTL      time.Duration
	Size     int
}

// Load reads .env (if present), then the environment, falling back to saved
// settings and defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	settings, err := LoadSettings()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	cfg := &Config{
		Port:           getEnvInt("PORT", 8080),
		DataDir:        getEnv("DATA_DIR", settings.DataDir, "./data"),
		Offline:        getEnvBool("OFFLINE", settings.Offline),
		LogLevel:       getEnv("LOG_LEVEL", "", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "", "json"),
		StageTablePath: getEnv("STAGE_TABLE_PATH", settings.StageTablePath, ""),
		Census: CensusConfig{
			BaseURL:    getEnv("CENSUS_BASE_URL", "", "https://api.census.gov/data/2022/acs/acs1"),
			APIKey:     getEnv("CENSUS_API_KEY", settings.CensusAPIKey, ""),
			RateLimit:  getEnvFloat("CENSUS_RATE_LIMIT", 5),
			Timeout:    getEnvDuration("CENSUS_TIMEOUT", 30*time.Second),
			MaxRetries: getEnvInt("CENSUS_MAX_RETRIES", 3),
		},
		Cache: CacheConfig{
			RedisURL: getEnv("REDIS_URL", "", ""),
			TTL:      getEnvDuration("CACHE_TTL", 24*time.Hour),
			Size:     getEnvInt("CACHE_SIZE", 256),
		},
	}
	cfg.ProfileDB = getEnv("PROFILE_DB", "", DefaultProfileDB(cfg.DataDir))

	return cfg, nil
}

// DefaultProfileDB is the city database path inside dataDir.
func DefaultProfileDB(dataDir string) string {
	return filepath.Join(dataDir, "cities.db")
}

// Validate returns every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Sprintf("PORT must be 1-65535 (got %d)", c.Port))
	}
	if strings.TrimSpace(c.DataDir) == "" {
		errs = append(errs, "DATA_DIR is required")
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		errs = append(errs, fmt.Sprintf("LOG_FORMAT must be json or console (got %q)", c.LogFormat))
	}
	if !c.Offline {
		if c.Census.BaseURL == "" {
			errs = append(errs, "CENSUS_BASE_URL is required unless OFFLINE is set")
		}
		if c.Census.RateLimit <= 0 {
			errs = append(errs, "CENSUS_RATE_LIMIT must be positive")
		}
		if c.Census.MaxRetries < 0 {
			errs = append(errs, "CENSUS_MAX_RETRIES must not be negative")
		}
	}
	if c.Cache.Size <= 0 {
		errs = append(errs, "CACHE_SIZE must be positive")
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, "CACHE_TTL must be positive")
	}
	if c.Cache.RedisURL != "" && !strings.HasPrefix(c.Cache.RedisURL, "redis://") && !strings.HasPrefix(c.Cache.RedisURL, "rediss://") {
		errs = append(errs, "REDIS_URL must start with redis:// or rediss://")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// --- Helper functions for environment variable parsing ---

// getEnv returns the variable, else the saved value, else the default.
func getEnv(key, saved, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if saved != "" {
		return saved
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}
