package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/ulule/limiter/v3"
)

// Redemption policies.
const (
	PolicyStrict   = "strict"
	PolicyTolerant = "tolerant"
)

var validBackends = []string{"memory", "csv", "sheets", "sqlite"}

type Config struct {
	// HTTP Server
	Port      string
	RateLimit string

	// Household
	Users            []string
	RedemptionPolicy string
	PointsPerYen     float64
	CatalogFile      string
	Timezone         string

	// Backend selection
	DataBackend string

	// CSV
	CSVPath string

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Worker
	SyncBatchSize int
	SyncInterval  time.Duration

	LogLevel string
}

// Load reads .env (if present), an optional CONFIG_FILE and the environment,
// in increasing order of precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(viper.New(), os.Getenv("CONFIG_FILE"))
}

func load(v *viper.Viper, file string) (*Config, error) {
	setDefaults(v)
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	interval, err := time.ParseDuration(v.GetString("SYNC_INTERVAL"))
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_INTERVAL %q: %w", v.GetString("SYNC_INTERVAL"), err)
	}
	ppy, err := strconv.ParseFloat(strings.TrimSpace(v.GetString("POINTS_PER_YEN")), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid POINTS_PER_YEN %q: %w", v.GetString("POINTS_PER_YEN"), err)
	}

	return &Config{
		Port:      v.GetString("PORT"),
		RateLimit: v.GetString("RATE_LIMIT"),

		Users:            splitUsers(v.GetString("HOUSEHOLD_USERS")),
		RedemptionPolicy: strings.ToLower(strings.TrimSpace(v.GetString("REDEMPTION_POLICY"))),
		PointsPerYen:     ppy,
		CatalogFile:      v.GetString("CATALOG_FILE"),
		Timezone:         v.GetString("TIMEZONE"),

		DataBackend: strings.ToLower(strings.TrimSpace(v.GetString("DATA_BACKEND"))),
		CSVPath:     v.GetString("CSV_PATH"),

		SQLiteDBPath: v.GetString("SQLITE_DB_PATH"),

		AMQPURL:      v.GetString("AMQP_URL"),
		AMQPExchange: v.GetString("AMQP_EXCHANGE"),
		AMQPQueue:    v.GetString("AMQP_QUEUE"),

		GoogleSpreadsheetID:      v.GetString("GOOGLE_SPREADSHEET_ID"),
		GoogleSheetName:          v.GetString("GOOGLE_SHEET_NAME"),
		GoogleServiceAccountJSON: v.GetString("GOOGLE_SERVICE_ACCOUNT_JSON"),
		GoogleServiceAccountFile: v.GetString("GOOGLE_SERVICE_ACCOUNT_FILE"),

		SyncBatchSize: v.GetInt("SYNC_BATCH_SIZE"),
		SyncInterval:  interval,

		LogLevel: v.GetString("LOG_LEVEL"),
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8081")
	v.SetDefault("RATE_LIMIT", "30-M")
	v.SetDefault("HOUSEHOLD_USERS", "阿部,あや")
	v.SetDefault("REDEMPTION_POLICY", PolicyStrict)
	v.SetDefault("POINTS_PER_YEN", "1")
	v.SetDefault("CATALOG_FILE", "")
	v.SetDefault("TIMEZONE", "")
	v.SetDefault("DATA_BACKEND", "csv")
	v.SetDefault("CSV_PATH", "./data/ledger.csv")
	v.SetDefault("SQLITE_DB_PATH", "./data/futurebank.db")
	v.SetDefault("AMQP_URL", "")
	v.SetDefault("AMQP_EXCHANGE", "futurebank")
	v.SetDefault("AMQP_QUEUE", "sync_entries")
	v.SetDefault("GOOGLE_SPREADSHEET_ID", "")
	v.SetDefault("GOOGLE_SHEET_NAME", "Ledger")
	v.SetDefault("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	v.SetDefault("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	v.SetDefault("SYNC_BATCH_SIZE", 10)
	v.SetDefault("SYNC_INTERVAL", "30s")
	v.SetDefault("LOG_LEVEL", "info")
}

func splitUsers(s string) []string {
	var out []string
	for _, u := range strings.Split(s, ",") {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}

// Location resolves Timezone; empty means the process local zone.
func (c *Config) Location() (*time.Location, error) {
	if strings.TrimSpace(c.Timezone) == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Validate validates the configuration and returns an error listing every problem.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if _, err := limiter.NewRateFromFormatted(c.RateLimit); err != nil {
		errs = append(errs, fmt.Sprintf("invalid rate limit '%s': %v", c.RateLimit, err))
	}

	if len(c.Users) != 2 {
		errs = append(errs, fmt.Sprintf("HOUSEHOLD_USERS must name exactly 2 users, got %d", len(c.Users)))
	} else if c.Users[0] == c.Users[1] {
		errs = append(errs, fmt.Sprintf("HOUSEHOLD_USERS must be distinct, got %q twice", c.Users[0]))
	}

	if c.RedemptionPolicy != PolicyStrict && c.RedemptionPolicy != PolicyTolerant {
		errs = append(errs, fmt.Sprintf("invalid redemption policy '%s': must be '%s' or '%s'", c.RedemptionPolicy, PolicyStrict, PolicyTolerant))
	}
	if c.PointsPerYen <= 0 {
		errs = append(errs, fmt.Sprintf("invalid points per yen %v: must be positive", c.PointsPerYen))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}
	if c.CatalogFile != "" {
		if _, err := os.Stat(c.CatalogFile); err != nil {
			errs = append(errs, fmt.Sprintf("catalog file not readable: %v", err))
		}
	}

	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "csv":
		if c.CSVPath == "" {
			errs = append(errs, "CSV path cannot be empty when using csv backend")
		}
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
		} else if err := ensureDir(c.SQLiteDBPath); err != nil {
			errs = append(errs, err.Error())
		}
	case "sheets":
		errs = append(errs, c.validateSheets()...)
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SyncBatchSize < 1 {
		errs = append(errs, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errs = append(errs, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}

	if c.SyncInterval < time.Second {
		errs = append(errs, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// ValidateWorker checks what the sync worker needs on top of Validate.
func (c *Config) ValidateWorker() error {
	var errs []string
	if c.DataBackend != "sqlite" {
		errs = append(errs, "worker requires DATA_BACKEND=sqlite")
	}
	errs = append(errs, c.validateSheets()...)
	if len(errs) > 0 {
		return fmt.Errorf("worker configuration invalid:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func (c *Config) validateSheets() []string {
	var errs []string
	if c.GoogleSpreadsheetID == "" {
		errs = append(errs, "Google Spreadsheet ID is required when using sheets")
	}
	if c.GoogleSheetName == "" {
		errs = append(errs, "Google Sheet name is required when using sheets")
	}
	if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		errs = append(errs, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheets")
	}
	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}
	return errs
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("cannot create SQLite database directory '%s': %v", dir, err)
		}
	}
	return nil
}
