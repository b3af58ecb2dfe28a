package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Storage drivers.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

// DefaultOriginPattern matches the local development front-ends.
const DefaultOriginPattern = `^https?://(localhost|127\.0\.0\.1):(5173|3000)$`

// Config holds all application configuration
type Config struct {
	Storage   StorageConfig
	Database  DatabaseConfig
	Server    ServerConfig
	Security  SecurityConfig
	CORS      CORSConfig
	Logging   LoggingConfig
	RateLimit RateLimitConfig
}

// StorageConfig selects the persistence backend and where flat files live.
type StorageConfig struct {
	Driver   string // file, postgres
	DataDir  string
	AudioDir string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL      string // Full PostgreSQL URL
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port int
	Host string
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig holds session settings
type SecurityConfig struct {
	JWTSecret      string
	TokenTTL       time.Duration
	CookieSecure   bool
	CookieSameSite string // lax, strict, none
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	OriginPattern string
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// RateLimitConfig throttles the credential endpoints per client address.
type RateLimitConfig struct {
	AuthPerMinute int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.loadStorage()

	if err := cfg.loadDatabase(); err != nil {
		return nil, fmt.Errorf("load database config: %w", err)
	}

	if err := cfg.loadServer(); err != nil {
		return nil, fmt.Errorf("load server config: %w", err)
	}

	if err := cfg.loadSecurity(); err != nil {
		return nil, fmt.Errorf("load security config: %w", err)
	}

	cfg.CORS.OriginPattern = getEnvOrDefault("CORS_ORIGIN_PATTERN", DefaultOriginPattern)

	cfg.Logging.Level = getEnvOrDefault("LOG_LEVEL", "info")
	cfg.Logging.Format = getEnvOrDefault("LOG_FORMAT", "json")

	perMinute, err := strconv.Atoi(getEnvOrDefault("AUTH_RATE_PER_MINUTE", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTH_RATE_PER_MINUTE: %w", err)
	}
	cfg.RateLimit.AuthPerMinute = perMinute

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// LoadDatabase reads only the database settings, for tools that never serve.
func LoadDatabase() (DatabaseConfig, error) {
	var c Config
	if err := c.loadDatabase(); err != nil {
		return DatabaseConfig{}, fmt.Errorf("load database config: %w", err)
	}
	if c.Database.URL == "" {
		return DatabaseConfig{}, errors.New("DATABASE_URL is required (or DB_HOST, DB_USER, DB_NAME)")
	}
	return c.Database, nil
}

func (c *Config) loadStorage() {
	c.Storage.Driver = strings.ToLower(getEnvOrDefault("STORAGE_DRIVER", DriverFile))
	c.Storage.DataDir = getEnvOrDefault("DATA_DIR", "DB")
	c.Storage.AudioDir = getEnvOrDefault("AUDIO_DIR", "audio")
}

func (c *Config) loadDatabase() error {
	// Try to load DATABASE_URL first
	c.Database.URL = os.Getenv("DATABASE_URL")
	if c.Database.URL != "" {
		return nil
	}

	c.Database.Host = getEnvOrDefault("DB_HOST", "localhost")
	c.Database.User = os.Getenv("DB_USER")
	c.Database.Password = os.Getenv("DB_PASSWORD")
	c.Database.Name = os.Getenv("DB_NAME")
	c.Database.SSLMode = getEnvOrDefault("DB_SSLMODE", "disable")

	port, err := strconv.Atoi(getEnvOrDefault("DB_PORT", "5432"))
	if err != nil {
		return fmt.Errorf("invalid DB_PORT: %w", err)
	}
	c.Database.Port = port

	// Construct URL if all components are present
	if c.Database.User != "" && c.Database.Name != "" {
		c.Database.URL = fmt.Sprintf(
			"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
			c.Database.User,
			c.Database.Password,
			c.Database.Host,
			c.Database.Port,
			c.Database.Name,
			c.Database.SSLMode,
		)
	}
	return nil
}

func (c *Config) loadServer() error {
	port, err := strconv.Atoi(getEnvOrDefault("PORT", "8000"))
	if err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}
	c.Server.Port = port
	c.Server.Host = getEnvOrDefault("HOST", "0.0.0.0")
	return nil
}

func (c *Config) loadSecurity() error {
	c.Security.JWTSecret = os.Getenv("JWT_SECRET")

	minutes, err := strconv.Atoi(getEnvOrDefault("ACCESS_TOKEN_EXPIRE_MINUTES", "60"))
	if err != nil {
		return fmt.Errorf("invalid ACCESS_TOKEN_EXPIRE_MINUTES: %w", err)
	}
	c.Security.TokenTTL = time.Duration(minutes) * time.Minute

	c.Security.CookieSecure = strings.EqualFold(getEnvOrDefault("COOKIE_SECURE", "false"), "true")
	c.Security.CookieSameSite = strings.ToLower(getEnvOrDefault("COOKIE_SAMESITE", "lax"))
	return nil
}

// Validate checks that all required configuration is present and valid
func (c *Config) Validate() error {
	var problems []string

	switch c.Storage.Driver {
	case DriverFile:
		if c.Storage.DataDir == "" {
			problems = append(problems, "DATA_DIR is required for the file driver")
		}
	case DriverPostgres:
		if c.Database.URL == "" {
			problems = append(problems, "DATABASE_URL is required (or DB_HOST, DB_USER, DB_NAME)")
		}
	default:
		problems = append(problems, "STORAGE_DRIVER must be one of: file, postgres")
	}

	if len(c.Security.JWTSecret) < 16 {
		problems = append(problems, "JWT_SECRET must be at least 16 characters")
	}
	if c.Security.TokenTTL <= 0 {
		problems = append(problems, "ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}
	switch c.Security.CookieSameSite {
	case "lax", "strict", "none":
	default:
		problems = append(problems, "COOKIE_SAMESITE must be one of: lax, strict, none")
	}

	if _, err := regexp.Compile(c.CORS.OriginPattern); err != nil {
		problems = append(problems, "CORS_ORIGIN_PATTERN is not a valid regular expression")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, "PORT must be between 1 and 65535")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		problems = append(problems, "LOG_LEVEL must be one of: debug, info, warn, error")
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		problems = append(problems, "LOG_FORMAT must be one of: json, text")
	}

	if c.RateLimit.AuthPerMinute < 0 {
		problems = append(problems, "AUTH_RATE_PER_MINUTE must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
