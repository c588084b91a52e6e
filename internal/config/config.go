package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// HTTP server (remote collection)
	Port string

	// Client side
	APIURL      string
	HTTPTimeout time.Duration

	// Storage
	StorageDriver string
	SeedFile      string
	SQLiteDBPath  string
	PostgresURL   string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	// Server tuning
	RateLimitPerMinute int
	CacheTTL           time.Duration
	TrustedProxies     []string // peers allowed to set X-Forwarded-For

	LogLevel string
}

// StorageDrivers lists the supported STORAGE_DRIVER values.
var StorageDrivers = []string{"memory", "sqlite", "postgres"}

// LoadEnvFile loads a .env file for local development. A missing file is not
// an error.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "3333"),

		APIURL:      getEnv("API_URL", "http://localhost:3333"),
		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		StorageDriver: getEnv("STORAGE_DRIVER", "memory"),
		SeedFile:      getEnv("SEED_FILE", ""),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/dtmoney.db"),
		PostgresURL:   getEnv("POSTGRES_URL", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "dtmoney"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "transaction_events"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Transactions"),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		CacheTTL:           getEnvDuration("CACHE_TTL", 30*time.Second),
		TrustedProxies:     getEnvList("TRUSTED_PROXIES"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.APIURL != "" {
		if u, err := url.Parse(c.APIURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid API URL '%s': %v", c.APIURL, err))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid API URL scheme '%s': must be 'http' or 'https'", u.Scheme))
		}
	}

	if c.HTTPTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid HTTP timeout %v: must be positive", c.HTTPTimeout))
	}

	if !slices.Contains(StorageDrivers, c.StorageDriver) {
		errors = append(errors, fmt.Sprintf("invalid storage driver '%s': must be one of %v", c.StorageDriver, StorageDrivers))
	}

	switch c.StorageDriver {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite storage")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	case "postgres":
		if c.PostgresURL == "" {
			errors = append(errors, "POSTGRES_URL is required when using postgres storage")
		}
	}

	if c.SeedFile != "" {
		if _, err := os.Stat(c.SeedFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("seed file does not exist: %s", c.SeedFile))
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleSpreadsheetID != "" {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when a spreadsheet ID is set")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimitPerMinute))
	}
	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}
	for _, p := range c.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be an IP or CIDR", p))
			}
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ClientConfig is the subset of settings the dtmoney CLI reads. It never
// touches storage, AMQP or Sheets settings.
type ClientConfig struct {
	APIURL      string
	HTTPTimeout time.Duration
	LogLevel    string
}

// LoadClient reads the client settings. LOG_LEVEL defaults to warn so that
// logs stay out of the way of rendered tables.
func LoadClient() *ClientConfig {
	return &ClientConfig{
		APIURL:      getEnv("API_URL", "http://localhost:3333"),
		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),
		LogLevel:    getEnv("LOG_LEVEL", "warn"),
	}
}

func (c *ClientConfig) Validate() error {
	var errors []string
	if u, err := url.Parse(c.APIURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid API URL '%s': %v", c.APIURL, err))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid API URL scheme '%s': must be 'http' or 'https'", u.Scheme))
	} else if u.Host == "" {
		errors = append(errors, fmt.Sprintf("invalid API URL '%s': missing host", c.APIURL))
	}
	if c.HTTPTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid HTTP timeout %v: must be positive", c.HTTPTimeout))
	}
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// Addr returns the listen address for the server.
func (c *Config) Addr() string {
	return ":" + c.Port
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

// getEnvList splits a comma separated value, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
