package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // Asia/Kolkata must resolve on hosts without a zoneinfo database

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"sentimentEdge/internal/adapters/logger" // Import the logger package for LogLevel
	"sentimentEdge/internal/analytics"
	"sentimentEdge/internal/domain"
	"sentimentEdge/internal/ports"
)

// Config holds all application configuration.
type Config struct {
	// Inputs. Timezone is the zone of the "Timestamp IST" column.
	TradesCSV    string         `default:"historical_data.csv" validate:"required"`
	SentimentCSV string         `default:"fear_greed_index.csv" validate:"required"`
	Timezone     string         `default:"Asia/Kolkata" validate:"required"`
	Location     *time.Location `validate:"-"`

	// Regimes
	RegimeTablePath string             // Optional YAML file; the canonical table is used when empty
	Regimes         domain.RegimeTable `validate:"-"`

	// Hypothesis test
	Alpha       float64 `default:"0.05" validate:"gt=0,lt=1"`
	Alternative string  `default:"greater" validate:"oneof=two-sided greater"`
	PairA       string  `default:"Extreme Greed" validate:"required"`
	PairB       string  `default:"Extreme Fear" validate:"required,nefield=PairA"`

	// Sizing. RewardRisk 0 estimates reward:risk per regime; regimes below MinWinRate are
	// flagged; Kelly allocations are clamped to [KellyFloor, KellyCap] for display only.
	RiskFreeRate float64
	RewardRisk   float64 `validate:"gte=0"`
	MinWinRate   float64 `default:"0.37" validate:"gte=0,lte=1"`
	KellyFloor   float64 `default:"0" validate:"gte=0,lte=1"`
	KellyCap     float64 `default:"1" validate:"gte=0,lte=1,gtfield=KellyFloor"`

	// Database
	DBPath          string `default:"./data/sentiment_edge.db" validate:"required"`
	RunHistoryLimit int    `default:"20" validate:"gte=0"`

	// Logging
	LogLevel  logger.LogLevel `validate:"-"`
	LogFormat string          `default:"console" validate:"oneof=console json"`

	// Metrics
	MetricsTextfile string // Prometheus textfile written after each run when set
}

// regimeFile is the YAML layout of REGIME_TABLE_PATH.
type regimeFile struct {
	Regimes []domain.Regime `yaml:"regimes"`
}

var validate = validator.New()

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply configuration defaults: %v: %w", err, ports.ErrConfigurationError)
	}

	var errs []string // Collect validation errors
	var err error

	// Inputs
	cfg.TradesCSV = getEnv("TRADES_CSV", cfg.TradesCSV)
	cfg.SentimentCSV = getEnv("SENTIMENT_CSV", cfg.SentimentCSV)
	cfg.Timezone = getEnv("TIMEZONE", cfg.Timezone)

	// Regimes
	cfg.RegimeTablePath = getEnv("REGIME_TABLE_PATH", cfg.RegimeTablePath)

	// Hypothesis test
	if cfg.Alpha, err = getEnvAsFloatRequired("ALPHA", cfg.Alpha); err != nil {
		errs = append(errs, fmt.Sprintf("invalid ALPHA: %v", err))
	}
	cfg.Alternative = strings.ToLower(getEnv("TEST_ALTERNATIVE", cfg.Alternative))
	cfg.PairA = getEnv("TEST_REGIME_A", cfg.PairA)
	cfg.PairB = getEnv("TEST_REGIME_B", cfg.PairB)

	// Sizing
	if cfg.RiskFreeRate, err = getEnvAsFloatRequired("RISK_FREE_RATE", cfg.RiskFreeRate); err != nil {
		errs = append(errs, fmt.Sprintf("invalid RISK_FREE_RATE: %v", err))
	}
	if cfg.RewardRisk, err = getEnvAsFloatRequired("REWARD_RISK", cfg.RewardRisk); err != nil {
		errs = append(errs, fmt.Sprintf("invalid REWARD_RISK: %v", err))
	}
	if cfg.MinWinRate, err = getEnvAsFloatRequired("MIN_WIN_RATE", cfg.MinWinRate); err != nil {
		errs = append(errs, fmt.Sprintf("invalid MIN_WIN_RATE: %v", err))
	}
	if cfg.KellyFloor, err = getEnvAsFloatRequired("KELLY_FLOOR", cfg.KellyFloor); err != nil {
		errs = append(errs, fmt.Sprintf("invalid KELLY_FLOOR: %v", err))
	}
	if cfg.KellyCap, err = getEnvAsFloatRequired("KELLY_CAP", cfg.KellyCap); err != nil {
		errs = append(errs, fmt.Sprintf("invalid KELLY_CAP: %v", err))
	}

	// Database
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	if cfg.RunHistoryLimit, err = getEnvAsIntRequired("RUN_HISTORY_LIMIT", cfg.RunHistoryLimit); err != nil {
		errs = append(errs, fmt.Sprintf("invalid RUN_HISTORY_LIMIT: %v", err))
	}

	// Logging
	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))
	cfg.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", cfg.LogFormat))

	// Metrics
	cfg.MetricsTextfile = getEnv("METRICS_TEXTFILE", cfg.MetricsTextfile)

	// Struct tag rules
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, fmt.Errorf("configuration validation failed: %v: %w", err, ports.ErrConfigurationError)
		}
		for _, fe := range verrs {
			errs = append(errs, validationMessage(fe))
		}
	}

	// Cross-field rules that need loaded resources
	if loc, err := time.LoadLocation(cfg.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("invalid TIMEZONE %q: %v", cfg.Timezone, err))
	} else {
		cfg.Location = loc
	}

	cfg.Regimes = domain.DefaultRegimeTable()
	if cfg.RegimeTablePath != "" {
		if cfg.Regimes, err = LoadRegimeTable(cfg.RegimeTablePath); err != nil {
			errs = append(errs, fmt.Sprintf("invalid REGIME_TABLE_PATH: %v", err))
		}
	}
	if cfg.Regimes != nil {
		if !cfg.Regimes.Has(domain.RegimeLabel(cfg.PairA)) {
			errs = append(errs, fmt.Sprintf("TEST_REGIME_A %q is not a configured regime", cfg.PairA))
		}
		if !cfg.Regimes.Has(domain.RegimeLabel(cfg.PairB)) {
			errs = append(errs, fmt.Sprintf("TEST_REGIME_B %q is not a configured regime", cfg.PairB))
		}
	}

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s: %w", strings.Join(errs, "; "), ports.ErrConfigurationError)
	}

	return cfg, nil
}

// LoadRegimeTable reads and validates a regime table from a YAML file of the form
//
//	regimes:
//	  - {label: Fear, low: 0, high: 50}
//	  - {label: Greed, low: 50, high: 100}
func LoadRegimeTable(path string) (domain.RegimeTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read regime table: %w", err)
	}
	var file regimeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse regime table %s: %v: %w", path, err, ports.ErrConfigurationError)
	}
	table := domain.RegimeTable(file.Regimes)
	if err := analytics.ValidateTable(table); err != nil {
		return nil, fmt.Errorf("regime table %s: %w", path, err)
	}
	return table, nil
}

// envNames maps struct fields to the variables that set them, for error messages.
var envNames = map[string]string{
	"TradesCSV":       "TRADES_CSV",
	"SentimentCSV":    "SENTIMENT_CSV",
	"Timezone":        "TIMEZONE",
	"Alpha":           "ALPHA",
	"Alternative":     "TEST_ALTERNATIVE",
	"PairA":           "TEST_REGIME_A",
	"PairB":           "TEST_REGIME_B",
	"RewardRisk":      "REWARD_RISK",
	"MinWinRate":      "MIN_WIN_RATE",
	"KellyFloor":      "KELLY_FLOOR",
	"KellyCap":        "KELLY_CAP",
	"DBPath":          "DB_PATH",
	"RunHistoryLimit": "RUN_HISTORY_LIMIT",
	"LogFormat":       "LOG_FORMAT",
}

func validationMessage(fe validator.FieldError) string {
	field := fe.Field()
	if name, ok := envNames[field]; ok {
		field = name
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s must be set", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "gtfield":
		return fmt.Sprintf("%s must be greater than %s", field, envNames[fe.Param()])
	case "nefield":
		return fmt.Sprintf("%s must differ from %s", field, envNames[fe.Param()])
	default:
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s=%q failed validation: %s", field, fe.Value(), fe.Tag())
		}
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}
