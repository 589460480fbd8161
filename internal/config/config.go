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

// Backend drivers accepted in BACKEND_DRIVER.
const (
	DriverMongoDB = "mongodb"
	DriverRemote  = "remote"
	DriverMemory  = "memory"
)

// Config represents the full application configuration surface.
type Config struct {
	Server     ServerConfig
	Backend    BackendConfig
	MongoDB    MongoDBConfig
	Pagination PaginationConfig
	Cache      CacheConfig
	WhatsApp   WhatsAppConfig
	Sheets     SheetsConfig
	Reporting  ReportingConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port     string
	LogLevel string
}

// BackendConfig selects where farmer, collection and ledger records live.
type BackendConfig struct {
	Driver string
	URL    string
	Token  string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// PaginationConfig controls how multi-page reads are aggregated.
type PaginationConfig struct {
	PageSize   int
	MaxPages   int
	FetchAhead int
}

// CacheConfig enables the redis read cache when URL is set.
type CacheConfig struct {
	RedisURL string
	TTL      time.Duration
}

// WhatsAppConfig contains credentials and options for the Meta WhatsApp Cloud API.
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	VerifyToken   string
	BaseURL       string
	APIVersion    string
	ManagerPhone  string
}

// Enabled reports whether outbound messaging is configured.
func (c WhatsAppConfig) Enabled() bool {
	return c.AccessToken != "" && c.PhoneNumberID != ""
}

// SheetsConfig contains configuration required to interact with Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// Enabled reports whether report export is configured.
func (c SheetsConfig) Enabled() bool {
	return c.CredentialsPath != "" && c.SpreadsheetID != ""
}

// ReportingConfig holds scheduler and document settings.
type ReportingConfig struct {
	MorningCron string
	EveningCron string
	Timezone    string
	DairyName   string
	PortalURL   string
}

// Location resolves the configured timezone.
func (c ReportingConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", c.Timezone, err)
	}
	return loc, nil
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	pageSize, err := getenvInt("PAGE_SIZE", 50)
	if err != nil {
		return nil, err
	}
	maxPages, err := getenvInt("MAX_PAGES", 0)
	if err != nil {
		return nil, err
	}
	fetchAhead, err := getenvInt("FETCH_AHEAD", 1)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := getenvInt("CACHE_TTL_SECONDS", 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:     getenvWithDefault("APP_PORT", "8080"),
			LogLevel: getenvWithDefault("LOG_LEVEL", "info"),
		},
		Backend: BackendConfig{
			Driver: strings.ToLower(getenvWithDefault("BACKEND_DRIVER", DriverMongoDB)),
			URL:    os.Getenv("BACKEND_URL"),
			Token:  os.Getenv("BACKEND_TOKEN"),
		},
		MongoDB: MongoDBConfig{
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "dairy"),
		},
		Pagination: PaginationConfig{
			PageSize:   pageSize,
			MaxPages:   maxPages,
			FetchAhead: fetchAhead,
		},
		Cache: CacheConfig{
			RedisURL: os.Getenv("REDIS_URL"),
			TTL:      time.Duration(cacheTTL) * time.Second,
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:   os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			VerifyToken:   os.Getenv("META_VERIFY_TOKEN"),
			BaseURL:       getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:    getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
			ManagerPhone:  os.Getenv("MANAGER_PHONE"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
		},
		Reporting: ReportingConfig{
			MorningCron: getenvWithDefault("MORNING_REPORT_CRON", "0 15 * * *"),
			EveningCron: getenvWithDefault("EVENING_REPORT_CRON", "0 3 * * *"),
			Timezone:    getenvWithDefault("TIMEZONE", "Asia/Kolkata"),
			DairyName:   getenvWithDefault("DAIRY_NAME", "ANMOL DAIRY LIFE"),
			PortalURL:   os.Getenv("PORTAL_URL"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch c.Backend.Driver {
	case DriverMongoDB:
		if c.MongoDB.URI == "" {
			return errors.New("MONGODB_URI must be provided")
		}
		if c.MongoDB.DBName == "" {
			return errors.New("MONGODB_DB_NAME must be provided")
		}
	case DriverRemote:
		if c.Backend.URL == "" {
			return errors.New("BACKEND_URL must be provided when BACKEND_DRIVER=remote")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("BACKEND_DRIVER must be one of %s, %s, %s", DriverMongoDB, DriverRemote, DriverMemory)
	}

	switch {
	case c.Pagination.PageSize <= 0:
		return errors.New("PAGE_SIZE must be positive")
	case c.Pagination.MaxPages < 0:
		return errors.New("MAX_PAGES must not be negative")
	case c.Pagination.FetchAhead < 1:
		return errors.New("FETCH_AHEAD must be at least 1")
	}

	if c.WhatsApp.Enabled() {
		if c.WhatsApp.BaseURL == "" {
			return errors.New("WHATSAPP_BASE_URL must not be empty")
		}
		if c.WhatsApp.APIVersion == "" {
			return errors.New("WHATSAPP_API_VERSION must not be empty")
		}
	}

	if (c.Sheets.CredentialsPath == "") != (c.Sheets.SpreadsheetID == "") {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH and GOOGLE_SHEET_DATABASE_ID must be set together")
	}

	if c.Reporting.MorningCron == "" || c.Reporting.EveningCron == "" {
		return errors.New("MORNING_REPORT_CRON and EVENING_REPORT_CRON must be provided")
	}

	if _, err := c.Reporting.Location(); err != nil {
		return err
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
