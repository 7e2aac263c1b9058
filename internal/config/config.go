package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
// It is the single source of truth for runtime parameters.
type Config struct {
	Port      string
	Env       string
	JWTSecret string

	// CORSOrigins lists the browser origins (host[:port]) allowed to call the API.
	CORSOrigins []string

	DB       DatabaseConfig
	Redis    RedisConfig
	Geocode  GeocodeConfig
	Location LocationConfig
	Worker   WorkerConfig
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig contains Redis connection parameters.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// GeocodeConfig contains the reverse-geocoding provider settings.
type GeocodeConfig struct {
	PrimaryURL   string
	SecondaryURL string
	SecondaryKey string
	Language     string
	Timeout      time.Duration
	GeoIPDBPath  string // optional MaxMind City database, empty disables it
}

// LocationConfig contains the tunables of location resolution.
type LocationConfig struct {
	HomeCity           string // id or slug of the default city
	GeolocationTimeout time.Duration
	HierarchyMaxAge    time.Duration
	SelectionTTL       time.Duration
	SessionIdleTTL     time.Duration
}

// WorkerConfig contains interval configuration for background workers.
type WorkerConfig struct {
	HierarchyRefreshInterval time.Duration
	SessionSweepInterval     time.Duration
}

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first. It returns a populated
// Config or an error with a human-friendly message.
func Load() (*Config, error) {
	// Load .env if present; ignore error if file is missing so that production
	// environments relying solely on real environment variables keep working.
	_ = godotenv.Load()

	cfg := &Config{}

	// Server
	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "development")
	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	cfg.CORSOrigins = getEnvList("CORS_ALLOWED_ORIGINS", "localhost:3000,127.0.0.1:3000")

	// Database
	cfg.DB = DatabaseConfig{
		Host:     getEnv("DB_HOST", ""),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", ""),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", ""),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	// Redis
	cfg.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", "redis"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	// Reverse geocoding providers
	cfg.Geocode = GeocodeConfig{
		PrimaryURL:   getEnv("GEOCODE_PRIMARY_URL", "https://api.bigdatacloud.net/data/reverse-geocode-client"),
		SecondaryURL: getEnv("GEOCODE_SECONDARY_URL", "https://ipapi.co"),
		SecondaryKey: getEnv("GEOCODE_SECONDARY_KEY", ""),
		Language:     getEnv("GEOCODE_LANGUAGE", "en"),
		GeoIPDBPath:  getEnv("GEOIP_DB_PATH", ""),
	}

	cfg.Location = LocationConfig{
		HomeCity: getEnv("LOCATION_HOME_CITY", ""),
	}

	var err error
	if cfg.Geocode.Timeout, err = parseDurationEnv("GEOCODE_TIMEOUT", "10s"); err != nil {
		return nil, fmt.Errorf("invalid GEOCODE_TIMEOUT: %w", err)
	}
	if cfg.Location.GeolocationTimeout, err = parseDurationEnv("GEOLOCATION_TIMEOUT", "15s"); err != nil {
		return nil, fmt.Errorf("invalid GEOLOCATION_TIMEOUT: %w", err)
	}
	if cfg.Location.HierarchyMaxAge, err = parseDurationEnv("HIERARCHY_MAX_AGE", "1h"); err != nil {
		return nil, fmt.Errorf("invalid HIERARCHY_MAX_AGE: %w", err)
	}
	if cfg.Location.SelectionTTL, err = parseDurationEnv("SELECTION_TTL", "24h"); err != nil {
		return nil, fmt.Errorf("invalid SELECTION_TTL: %w", err)
	}
	if cfg.Location.SessionIdleTTL, err = parseDurationEnv("SESSION_IDLE_TTL", "30m"); err != nil {
		return nil, fmt.Errorf("invalid SESSION_IDLE_TTL: %w", err)
	}

	// Workers (durations)
	if cfg.Worker.HierarchyRefreshInterval, err = parseDurationEnv("HIERARCHY_REFRESH_INTERVAL", "1h"); err != nil {
		return nil, fmt.Errorf("invalid HIERARCHY_REFRESH_INTERVAL: %w", err)
	}
	if cfg.Worker.SessionSweepInterval, err = parseDurationEnv("SESSION_SWEEP_INTERVAL", "1m"); err != nil {
		return nil, fmt.Errorf("invalid SESSION_SWEEP_INTERVAL: %w", err)
	}

	if cfg.Location.GeolocationTimeout <= 0 {
		return nil, errors.New("GEOLOCATION_TIMEOUT must be greater than zero")
	}
	if cfg.Worker.HierarchyRefreshInterval <= 0 {
		return nil, errors.New("HIERARCHY_REFRESH_INTERVAL must be greater than zero")
	}
	if cfg.Worker.SessionSweepInterval <= 0 {
		return nil, errors.New("SESSION_SWEEP_INTERVAL must be greater than zero")
	}

	// Basic validation for DB parameters
	if cfg.DB.Host == "" || cfg.DB.User == "" || cfg.DB.Name == "" {
		return nil, errors.New("database configuration incomplete: ensure DB_HOST, DB_USER, and DB_NAME are set")
	}

	// Validate JWT_SECRET
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must be set for the admin endpoints")
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// getEnvList splits a comma-separated environment variable, dropping blanks.
func getEnvList(key, def string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, def), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}
