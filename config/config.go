package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/yourusername/invoice-api/logger"
	"github.com/yourusername/invoice-api/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Config struct {
	Port               string
	DatabaseURL        string
	DBDriver           string
	JWTSecret          string
	JWTRefreshSecret   string
	InvoicePrefix      string
	DefaultCurrency    string
	DefaultVATRate     decimal.Decimal
	CORSAllowedOrigins []string
	Log                logger.LogConfig
}

func LoadConfig() (*Config, error) {
	godotenv.Load()

	vatRate, err := decimal.NewFromString(getEnvOrDefault("DEFAULT_VAT_RATE", "15.00"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_VAT_RATE: %w", err)
	}
	if vatRate.IsNegative() || vatRate.GreaterThan(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("DEFAULT_VAT_RATE must be between 0 and 100, got %s", vatRate)
	}

	driver := strings.ToLower(getEnvOrDefault("DB_DRIVER", "postgres"))
	if driver != "postgres" && driver != "sqlite" {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = getEnvOrDefault("LOG_LEVEL", logCfg.Level)
	logCfg.Format = getEnvOrDefault("LOG_FORMAT", logCfg.Format)
	logCfg.Output = getEnvOrDefault("LOG_OUTPUT", logCfg.Output)

	return &Config{
		Port:               getEnvOrDefault("PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		DBDriver:           driver,
		JWTSecret:          os.Getenv("JWT_SECRET"),
		JWTRefreshSecret:   os.Getenv("JWT_REFRESH_SECRET"),
		InvoicePrefix:      strings.ToUpper(getEnvOrDefault("INVOICE_NUMBER_PREFIX", "INV")),
		DefaultCurrency:    strings.ToUpper(getEnvOrDefault("DEFAULT_CURRENCY", "ZAR")),
		DefaultVATRate:     vatRate,
		CORSAllowedOrigins: splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
		Log:                logCfg,
	}, nil
}

// AuthEnabled reports whether the bearer-token gate protects the API.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "sqlite":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = "invoices.db"
		}
		dialector = sqlite.Open(dsn)
	default:
		dialector = postgres.Open(cfg.DatabaseURL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormLogLevel(cfg.Log.Level)),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.DBDriver == "sqlite" {
		// one writer at a time, row locks are not available
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql.DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Company{},
		&models.Client{},
		&models.Invoice{},
		&models.LineItem{},
		&models.Payment{},
		&models.InvoiceSequence{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func gormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "trace":
		return gormlogger.Info
	case "debug", "info", "warn":
		return gormlogger.Warn
	default:
		return gormlogger.Error
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
