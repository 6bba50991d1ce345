package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Data backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendSheets = "sheets"
	BackendREST   = "rest"
)

var validBackends = []string{BackendMemory, BackendSQLite, BackendSheets, BackendREST}

type Config struct {
	// HTTP Server
	Port               string
	LogLevel           string
	RateLimitPerMinute int

	// Backend selection
	DataBackend string

	// Memory backend seed files
	DataDir string

	// Database
	SQLiteDBPath string

	// REST transaction/category service
	RESTBaseURL     string
	RESTPageSize    int
	RESTConcurrency int
	RESTTimeout     time.Duration

	// AMQP, optional: dataset change notifications
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID       string
	GoogleSheetName           string
	GoogleCategoriesSheetName string
	GoogleServiceAccountJSON  string
	GoogleServiceAccountFile  string

	// Refresh worker and bucket cache
	RefreshInterval time.Duration
	BucketCacheSize int
	BucketCacheTTL  time.Duration
}

func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8081"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),

		DataBackend: getEnv("DATA_BACKEND", BackendMemory),
		DataDir:     getEnv("DATA_DIR", "./data"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/finboard.db"),

		RESTBaseURL:     getEnv("REST_BASE_URL", ""),
		RESTPageSize:    getEnvInt("REST_PAGE_SIZE", 500),
		RESTConcurrency: getEnvInt("REST_CONCURRENCY", 4),
		RESTTimeout:     getEnvDuration("REST_TIMEOUT", 30*time.Second),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finboard"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "timeline_refresh"),

		GoogleSpreadsheetID:       getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:           getEnv("GOOGLE_SHEET_NAME", "Transactions"),
		GoogleCategoriesSheetName: getEnv("GOOGLE_CATEGORIES_SHEET_NAME", "Categories"),
		GoogleServiceAccountJSON:  getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile:  getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),

		RefreshInterval: getEnvDuration("REFRESH_INTERVAL", 5*time.Minute),
		BucketCacheSize: getEnvInt("BUCKET_CACHE_SIZE", 64),
		BucketCacheTTL:  getEnvDuration("BUCKET_CACHE_TTL", 10*time.Minute),
	}
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	if c.RateLimitPerMinute < 1 || c.RateLimitPerMinute > 100000 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be between 1 and 100000 requests per minute", c.RateLimitPerMinute))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendMemory:
		if c.DataDir == "" {
			errors = append(errors, "data directory cannot be empty when using memory backend")
		}
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	case BackendREST:
		if c.RESTBaseURL == "" {
			errors = append(errors, "REST base URL is required when using rest backend")
		} else if u, err := url.Parse(c.RESTBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errors = append(errors, fmt.Sprintf("invalid REST base URL '%s': must be an http or https URL", c.RESTBaseURL))
		}
		if c.RESTPageSize < 1 || c.RESTPageSize > 10000 {
			errors = append(errors, fmt.Sprintf("invalid REST page size %d: must be between 1 and 10000", c.RESTPageSize))
		}
		if c.RESTConcurrency < 1 || c.RESTConcurrency > 32 {
			errors = append(errors, fmt.Sprintf("invalid REST concurrency %d: must be between 1 and 32", c.RESTConcurrency))
		}
		if c.RESTTimeout < time.Second {
			errors = append(errors, fmt.Sprintf("invalid REST timeout %v: must be at least 1 second", c.RESTTimeout))
		}
	case BackendSheets:
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when using sheets backend")
		}
		if c.GoogleCategoriesSheetName == "" {
			errors = append(errors, "Google categories sheet name is required when using sheets backend")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheets backend")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
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

	if c.RefreshInterval != 0 && c.RefreshInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be 0 (disabled) or at least 1 second", c.RefreshInterval))
	} else if c.RefreshInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be at most 24 hours", c.RefreshInterval))
	}

	if c.BucketCacheSize < 1 || c.BucketCacheSize > 10000 {
		errors = append(errors, fmt.Sprintf("invalid bucket cache size %d: must be between 1 and 10000", c.BucketCacheSize))
	}
	if c.BucketCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid bucket cache TTL %v: must be at least 1 second", c.BucketCacheTTL))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// AMQPEnabled reports whether dataset change notifications are configured.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
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
