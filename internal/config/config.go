// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/aristath/marketdoctor/internal/domain"
)

// S3Config holds settings for the S3-compatible backup target.
type S3Config struct {
	Enabled       bool
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	Bucket        string
	RetentionDays int
}

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for databases and exports (always absolute)
	Port     int
	LogLevel string
	DevMode  bool

	Symbols          []string           // symbols diagnosed each cycle
	Timeframes       []domain.Timeframe // timeframes fetched and scored
	TargetTimeframes []domain.Timeframe // timeframes a snapshot is produced for
	BarWindow        int                // bars fetched per (symbol, timeframe)
	MaxParallel      int                // concurrent symbol tasks per run
	RunTimeoutSec    int                // deadline for one full diagnostic run

	// Cron schedules (six-field, seconds first).
	DiagnoseSchedule    string
	OutcomeSchedule     string
	CalibrationSchedule string
	ExportSchedule      string
	BackupSchedule      string
	HealthSchedule      string

	CalibrationAutoApply    bool // activate recommended weights after each calibration run
	CalibrationMinSamples   int
	CalibrationLookbackDays int

	GlobalRegime domain.GlobalRegime // broad risk environment fed to the planner

	S3 S3Config

	Thresholds Thresholds
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("DOCTOR_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	timeframes, err := parseTimeframes(getEnv("DOCTOR_TIMEFRAMES", "1h,4h,1d,1w"))
	if err != nil {
		return nil, fmt.Errorf("invalid DOCTOR_TIMEFRAMES: %w", err)
	}

	targets, err := parseTimeframes(getEnv("DOCTOR_TARGET_TIMEFRAMES", "1h,4h"))
	if err != nil {
		return nil, fmt.Errorf("invalid DOCTOR_TARGET_TIMEFRAMES: %w", err)
	}

	// Horizons are wall-clock hours; the outcome evaluator derives per-
	// timeframe bar counts from them.
	horizonHours, err := parseHorizonHours(getEnv("DOCTOR_HORIZONS", "24,72,168"))
	if err != nil {
		return nil, fmt.Errorf("invalid DOCTOR_HORIZONS: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("DOCTOR_PORT", 8090),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DevMode:  getEnvAsBool("DEV_MODE", false),

		Symbols:          splitSymbols(getEnv("DOCTOR_SYMBOLS", "BTCUSDT,ETHUSDT")),
		Timeframes:       timeframes,
		TargetTimeframes: targets,
		BarWindow:        getEnvAsInt("DOCTOR_BAR_WINDOW", 300),
		MaxParallel:      getEnvAsInt("DOCTOR_MAX_PARALLEL", 4),
		RunTimeoutSec:    getEnvAsInt("DOCTOR_RUN_TIMEOUT_SEC", 600),

		DiagnoseSchedule:    getEnv("DOCTOR_DIAGNOSE_SCHEDULE", "@every 30m"),
		OutcomeSchedule:     getEnv("DOCTOR_OUTCOME_SCHEDULE", "@every 1h"),
		CalibrationSchedule: getEnv("DOCTOR_CALIBRATION_SCHEDULE", "0 0 4 * * *"),
		ExportSchedule:      getEnv("DOCTOR_EXPORT_SCHEDULE", "0 30 0 * * *"),
		BackupSchedule:      getEnv("DOCTOR_BACKUP_SCHEDULE", "0 0 2 * * *"),
		HealthSchedule:      getEnv("DOCTOR_HEALTH_SCHEDULE", "@every 1h"),

		CalibrationAutoApply:    getEnvAsBool("DOCTOR_CALIBRATION_AUTO_APPLY", true),
		CalibrationMinSamples:   getEnvAsInt("DOCTOR_CALIBRATION_MIN_SAMPLES", 10),
		CalibrationLookbackDays: getEnvAsInt("DOCTOR_CALIBRATION_LOOKBACK_DAYS", 30),

		GlobalRegime: domain.GlobalRegime(strings.ToUpper(getEnv("DOCTOR_GLOBAL_REGIME", string(domain.GlobalNeutral)))),

		S3: S3Config{
			Enabled:       getEnvAsBool("DOCTOR_BACKUP_ENABLED", false),
			Endpoint:      getEnv("DOCTOR_S3_ENDPOINT", ""),
			Region:        getEnv("DOCTOR_S3_REGION", "auto"),
			AccessKey:     getEnv("DOCTOR_S3_ACCESS_KEY", ""),
			SecretKey:     getEnv("DOCTOR_S3_SECRET_KEY", ""),
			Bucket:        getEnv("DOCTOR_S3_BUCKET", ""),
			RetentionDays: getEnvAsInt("DOCTOR_BACKUP_RETENTION_DAYS", 14),
		},

		Thresholds: DefaultThresholds(),
	}
	cfg.Thresholds.OutcomeHorizonHours = horizonHours

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration. Misconfiguration is fatal at process
// start, never at per-cycle time.
func (c *Config) Validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("no symbols configured")
	}
	if len(c.Timeframes) == 0 {
		return fmt.Errorf("no timeframes configured")
	}
	for _, tf := range c.Timeframes {
		if !tf.Valid() {
			return fmt.Errorf("unknown timeframe %q", tf)
		}
	}
	if len(c.TargetTimeframes) == 0 {
		return fmt.Errorf("no target timeframes configured")
	}
	for _, tf := range c.TargetTimeframes {
		if !tf.Valid() {
			return fmt.Errorf("unknown target timeframe %q", tf)
		}
		if !containsTF(c.Timeframes, tf) {
			return fmt.Errorf("target timeframe %q is not in the configured timeframes", tf)
		}
	}
	if c.BarWindow < c.Thresholds.MinFullBars {
		return fmt.Errorf("bar window %d is below min full bars %d", c.BarWindow, c.Thresholds.MinFullBars)
	}
	if c.MaxParallel <= 0 {
		return fmt.Errorf("max parallel must be positive")
	}
	switch c.GlobalRegime {
	case domain.GlobalNeutral, domain.GlobalRiskOn, domain.GlobalRiskOff, domain.GlobalPanic, domain.GlobalAltSeason:
	default:
		return fmt.Errorf("unknown global regime %q", c.GlobalRegime)
	}
	if c.S3.Enabled {
		if c.S3.Endpoint == "" || c.S3.Bucket == "" || c.S3.AccessKey == "" || c.S3.SecretKey == "" {
			return fmt.Errorf("backup enabled but S3 endpoint, bucket or credentials missing")
		}
	}
	if err := c.Thresholds.Validate(); err != nil {
		return fmt.Errorf("invalid thresholds: %w", err)
	}
	return nil
}

// MarketDBPath returns the path of the bars database.
func (c *Config) MarketDBPath() string {
	return filepath.Join(c.DataDir, "market.db")
}

// DiagnosticsDBPath returns the path of the snapshots/outcomes/weights database.
func (c *Config) DiagnosticsDBPath() string {
	return filepath.Join(c.DataDir, "diagnostics.db")
}

// ExportDir returns the directory report archives are written to.
func (c *Config) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func splitSymbols(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, strings.ToUpper(part))
		}
	}
	return out
}

func parseTimeframes(s string) ([]domain.Timeframe, error) {
	var out []domain.Timeframe
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		tf := domain.Timeframe(part)
		if !tf.Valid() {
			return nil, fmt.Errorf("unknown timeframe %q", part)
		}
		out = append(out, tf)
	}
	return out, nil
}

// parseHorizonHours parses a comma list of hour spans, e.g. "24,72,168".
func parseHorizonHours(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		hours, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("horizon %q: want hours: %w", part, err)
		}
		out = append(out, hours)
	}
	return out, nil
}

func containsTF(tfs []domain.Timeframe, tf domain.Timeframe) bool {
	for _, t := range tfs {
		if t == tf {
			return true
		}
	}
	return false
}
