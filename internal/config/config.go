// Package config provides configuration management for the signal engine.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"signal-engine/internal/analysis/indicators"
	"signal-engine/internal/analysis/patterns"
	"signal-engine/internal/analysis/scoring"
	"signal-engine/internal/engine"
	apperrors "signal-engine/internal/errors"
	"signal-engine/internal/logging"
	"signal-engine/internal/models"
	"signal-engine/internal/provider"
	"signal-engine/internal/resilience"
	"signal-engine/internal/trading"
	"signal-engine/pkg/utils"
)

// Environment overrides applied after the config file and .env.
const (
	EnvDB       = "SIGNAL_ENGINE_DB"
	EnvLogLevel = "SIGNAL_ENGINE_LOG_LEVEL"
	EnvWorkers  = "SIGNAL_ENGINE_WORKERS"
)

// Config holds all application configuration.
type Config struct {
	Indicators    IndicatorConfig     `mapstructure:"indicators"`
	Signals       SignalConfig        `mapstructure:"signals"`
	Consolidation ConsolidationConfig `mapstructure:"consolidation"`
	Scoring       ScoringConfig       `mapstructure:"scoring"`
	Exit          ExitConfig          `mapstructure:"exit"`
	Batch         BatchConfig         `mapstructure:"batch"`
	Provider      ProviderConfig      `mapstructure:"provider"`
	Schedule      ScheduleConfig      `mapstructure:"schedule"`
	Store         StoreConfig         `mapstructure:"store"`
	Log           LogConfig           `mapstructure:"log"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`

	// Dir is the directory the configuration was loaded from.
	Dir string `mapstructure:"-"`
}

// IndicatorConfig holds indicator lookbacks.
type IndicatorConfig struct {
	EMAShort             int     `mapstructure:"ema_short"`
	EMAMedium            int     `mapstructure:"ema_medium"`
	Trend                int     `mapstructure:"trend"`
	SMAMedium            int     `mapstructure:"sma_medium"`
	SMALong              int     `mapstructure:"sma_long"`
	RSIPeriod            int     `mapstructure:"rsi_period"`
	MACDFast             int     `mapstructure:"macd_fast"`
	MACDSlow             int     `mapstructure:"macd_slow"`
	MACDSignal           int     `mapstructure:"macd_signal"`
	BollingerPeriod      int     `mapstructure:"bollinger_period"`
	BollingerStdDev      float64 `mapstructure:"bollinger_stddev"`
	SuperTrendPeriod     int     `mapstructure:"supertrend_period"`
	SuperTrendMultiplier float64 `mapstructure:"supertrend_multiplier"`
}

// SignalConfig holds volume anomaly settings.
type SignalConfig struct {
	VolumeSpikeMultiple  float64 `mapstructure:"volume_spike_multiple"`
	VolumeBaselinePeriod int     `mapstructure:"volume_baseline_period"`
}

// ConsolidationConfig holds consolidation-box settings.
type ConsolidationConfig struct {
	MinDays               int     `mapstructure:"min_days"`
	MaxRangePercent       float64 `mapstructure:"max_range_percent"`
	FalseBreakoutWindow   int     `mapstructure:"false_breakout_window"`
	VolumeConfirmMultiple float64 `mapstructure:"volume_confirm_multiple"`
}

// ScoringConfig holds composite scoring settings.
type ScoringConfig struct {
	RSIOversold   float64 `mapstructure:"rsi_oversold"`
	RSIOverbought float64 `mapstructure:"rsi_overbought"`
}

// ExitConfig holds position exit settings.
type ExitConfig struct {
	ProximityPercent float64  `mapstructure:"proximity_percent"`
	DefaultCriteria  []string `mapstructure:"default_criteria"`
}

// BatchConfig holds batch runner and fetch guard settings.
type BatchConfig struct {
	Workers         int           `mapstructure:"workers"`
	LookbackDays    int           `mapstructure:"lookback_days"`
	FetchTimeout    time.Duration `mapstructure:"fetch_timeout"`
	RetryAttempts   int           `mapstructure:"retry_attempts"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	RetryMaxBackoff time.Duration `mapstructure:"retry_max_backoff"`
	BreakerFailures int           `mapstructure:"breaker_failures"`
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown"`
	RateLimit       float64       `mapstructure:"rate_limit"`
	RateBurst       int           `mapstructure:"rate_burst"`
}

// ProviderConfig selects where bars and fundamentals come from.
type ProviderConfig struct {
	Source string `mapstructure:"source"` // "sqlite" or "csv"
	CSVDir string `mapstructure:"csv_dir"`
}

// ScheduleConfig holds cron specs for the daemon. Specs include a seconds field.
type ScheduleConfig struct {
	BatchCron string `mapstructure:"batch_cron"`
	SweepCron string `mapstructure:"sweep_cron"`
}

// StoreConfig holds database settings.
type StoreConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level    string `mapstructure:"level"`
	Console  bool   `mapstructure:"console"`
	File     bool   `mapstructure:"file"`
	FilePath string `mapstructure:"file_path"`
}

// MetricsConfig holds the metrics endpoint settings.
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/signal-engine"
	}
	return filepath.Join(home, ".config", "signal-engine")
}

// ConfigPath returns the config file path inside configDir.
func ConfigPath(configDir string) string {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	return filepath.Join(configDir, "config.toml")
}

func setDefaults(v *viper.Viper, configDir string) {
	ind := indicators.DefaultSettings()
	v.SetDefault("indicators.ema_short", ind.EMAShort)
	v.SetDefault("indicators.ema_medium", ind.EMAMedium)
	v.SetDefault("indicators.trend", ind.Trend)
	v.SetDefault("indicators.sma_medium", ind.SMAMedium)
	v.SetDefault("indicators.sma_long", ind.SMALong)
	v.SetDefault("indicators.rsi_period", ind.RSIPeriod)
	v.SetDefault("indicators.macd_fast", ind.MACDFast)
	v.SetDefault("indicators.macd_slow", ind.MACDSlow)
	v.SetDefault("indicators.macd_signal", ind.MACDSignal)
	v.SetDefault("indicators.bollinger_period", ind.BollingerPeriod)
	v.SetDefault("indicators.bollinger_stddev", ind.BollingerStdDev)
	v.SetDefault("indicators.supertrend_period", ind.SuperTrendPeriod)
	v.SetDefault("indicators.supertrend_multiplier", ind.SuperTrendMultiplier)

	v.SetDefault("signals.volume_spike_multiple", patterns.DefaultSpikeMultiple)
	v.SetDefault("signals.volume_baseline_period", ind.VolumePeriod)

	box := patterns.DefaultBoxConfig()
	v.SetDefault("consolidation.min_days", box.MinDays)
	v.SetDefault("consolidation.max_range_percent", box.MaxRangePercent)
	v.SetDefault("consolidation.false_breakout_window", box.FalseBreakoutWindow)
	v.SetDefault("consolidation.volume_confirm_multiple", box.VolumeConfirmMultiple)

	v.SetDefault("scoring.rsi_oversold", scoring.DefaultRSIOversold)
	v.SetDefault("scoring.rsi_overbought", scoring.DefaultRSIOverbought)

	v.SetDefault("exit.proximity_percent", trading.DefaultProximityPercent)
	v.SetDefault("exit.default_criteria", []string{"stop_loss", "target"})

	v.SetDefault("batch.workers", 4)
	v.SetDefault("batch.lookback_days", 400)
	v.SetDefault("batch.fetch_timeout", "15s")
	v.SetDefault("batch.retry_attempts", 3)
	v.SetDefault("batch.retry_backoff", "500ms")
	v.SetDefault("batch.retry_max_backoff", "10s")
	v.SetDefault("batch.breaker_failures", 5)
	v.SetDefault("batch.breaker_cooldown", "1m")
	v.SetDefault("batch.rate_limit", 0.0)
	v.SetDefault("batch.rate_burst", 1)

	v.SetDefault("provider.source", "sqlite")
	v.SetDefault("provider.csv_dir", filepath.Join(configDir, "data"))

	v.SetDefault("schedule.batch_cron", "0 30 18 * * 1-5")
	v.SetDefault("schedule.sweep_cron", "0 0 * * * *")

	v.SetDefault("store.db_path", filepath.Join(configDir, "signal-engine.db"))

	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", true)
	v.SetDefault("log.file", true)
	v.SetDefault("log.file_path", filepath.Join(configDir, "logs", "signal-engine.log"))

	v.SetDefault("metrics.listen_addr", ":9108")
}

// Load loads configuration from the specified directory. A missing config
// file is replaced by the template and defaults apply. An optional .env in
// the directory is loaded before environment overrides. The returned config
// has been validated; any error is fatal for the caller.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
		if _, err := WriteTemplate(configDir); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config.toml: %w", err)
	}
	cfg.Dir = configDir

	if err := godotenv.Load(filepath.Join(configDir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns the default configuration rooted at configDir without
// touching the filesystem.
func Default(configDir string) (*Config, error) {
	v := viper.New()
	setDefaults(v, configDir)
	cfg := &Config{Dir: configDir}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding defaults: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv(EnvDB); v != "" {
		cfg.Store.DBPath = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return apperrors.NewValidationError(EnvWorkers, v, "must be an integer")
		}
		cfg.Batch.Workers = n
	}
	return nil
}

// Validate rejects non-positive periods and multiples, and unknown exit
// criteria.
func (c *Config) Validate() error {
	positiveInts := []struct {
		field string
		value int
	}{
		{"indicators.ema_short", c.Indicators.EMAShort},
		{"indicators.ema_medium", c.Indicators.EMAMedium},
		{"indicators.trend", c.Indicators.Trend},
		{"indicators.sma_medium", c.Indicators.SMAMedium},
		{"indicators.sma_long", c.Indicators.SMALong},
		{"indicators.rsi_period", c.Indicators.RSIPeriod},
		{"indicators.macd_fast", c.Indicators.MACDFast},
		{"indicators.macd_slow", c.Indicators.MACDSlow},
		{"indicators.macd_signal", c.Indicators.MACDSignal},
		{"indicators.bollinger_period", c.Indicators.BollingerPeriod},
		{"indicators.supertrend_period", c.Indicators.SuperTrendPeriod},
		{"signals.volume_baseline_period", c.Signals.VolumeBaselinePeriod},
		{"consolidation.min_days", c.Consolidation.MinDays},
		{"consolidation.false_breakout_window", c.Consolidation.FalseBreakoutWindow},
		{"batch.workers", c.Batch.Workers},
		{"batch.retry_attempts", c.Batch.RetryAttempts},
		{"batch.breaker_failures", c.Batch.BreakerFailures},
		{"batch.rate_burst", c.Batch.RateBurst},
	}
	for _, p := range positiveInts {
		if p.value <= 0 {
			return apperrors.NewValidationError(p.field, p.value, "must be positive")
		}
	}

	positiveFloats := []struct {
		field string
		value float64
	}{
		{"indicators.bollinger_stddev", c.Indicators.BollingerStdDev},
		{"indicators.supertrend_multiplier", c.Indicators.SuperTrendMultiplier},
		{"signals.volume_spike_multiple", c.Signals.VolumeSpikeMultiple},
		{"consolidation.max_range_percent", c.Consolidation.MaxRangePercent},
		{"consolidation.volume_confirm_multiple", c.Consolidation.VolumeConfirmMultiple},
		{"exit.proximity_percent", c.Exit.ProximityPercent},
	}
	for _, p := range positiveFloats {
		if p.value <= 0 {
			return apperrors.NewValidationError(p.field, p.value, "must be positive")
		}
	}

	if c.Indicators.MACDFast >= c.Indicators.MACDSlow {
		return apperrors.NewValidationError("indicators.macd_fast", c.Indicators.MACDFast, "must be below macd_slow")
	}
	if c.Scoring.RSIOversold <= 0 || c.Scoring.RSIOverbought >= 100 || c.Scoring.RSIOversold >= c.Scoring.RSIOverbought {
		return apperrors.NewValidationError("scoring", fmt.Sprintf("%g/%g", c.Scoring.RSIOversold, c.Scoring.RSIOverbought),
			"need 0 < rsi_oversold < rsi_overbought < 100")
	}
	if c.Batch.FetchTimeout <= 0 {
		return apperrors.NewValidationError("batch.fetch_timeout", c.Batch.FetchTimeout, "must be positive")
	}
	if c.Batch.RateLimit < 0 {
		return apperrors.NewValidationError("batch.rate_limit", c.Batch.RateLimit, "must not be negative")
	}

	if _, err := c.ExitCriteria(); err != nil {
		return &apperrors.ValidationError{
			Field:   "exit.default_criteria",
			Value:   c.Exit.DefaultCriteria,
			Message: err.Error(),
			Err:     err,
		}
	}

	switch c.Provider.Source {
	case "sqlite":
	case "csv":
		if c.Provider.CSVDir == "" {
			return apperrors.NewValidationError("provider.csv_dir", "", "required for the csv source")
		}
	default:
		return apperrors.NewValidationError("provider.source", c.Provider.Source, "must be sqlite or csv")
	}
	return nil
}

// ExitCriteria parses the default exit criteria names.
func (c *Config) ExitCriteria() (models.ExitCriteria, error) {
	return trading.ParseCriteria(c.Exit.DefaultCriteria)
}

// IndicatorSettings converts the indicator section.
func (c *Config) IndicatorSettings() indicators.Settings {
	return indicators.Settings{
		EMAShort:             c.Indicators.EMAShort,
		EMAMedium:            c.Indicators.EMAMedium,
		Trend:                c.Indicators.Trend,
		SMAMedium:            c.Indicators.SMAMedium,
		SMALong:              c.Indicators.SMALong,
		RSIPeriod:            c.Indicators.RSIPeriod,
		MACDFast:             c.Indicators.MACDFast,
		MACDSlow:             c.Indicators.MACDSlow,
		MACDSignal:           c.Indicators.MACDSignal,
		BollingerPeriod:      c.Indicators.BollingerPeriod,
		BollingerStdDev:      c.Indicators.BollingerStdDev,
		SuperTrendPeriod:     c.Indicators.SuperTrendPeriod,
		SuperTrendMultiplier: c.Indicators.SuperTrendMultiplier,
		VolumePeriod:         c.Signals.VolumeBaselinePeriod,
	}
}

// EngineConfig converts the pipeline sections.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		Indicators:    c.IndicatorSettings(),
		SpikeMultiple: c.Signals.VolumeSpikeMultiple,
		Box: patterns.BoxConfig{
			MinDays:               c.Consolidation.MinDays,
			MaxRangePercent:       c.Consolidation.MaxRangePercent,
			FalseBreakoutWindow:   c.Consolidation.FalseBreakoutWindow,
			VolumeConfirmMultiple: c.Consolidation.VolumeConfirmMultiple,
		},
		RSI:          scoring.RSIBands{Oversold: c.Scoring.RSIOversold, Overbought: c.Scoring.RSIOverbought},
		Workers:      c.Batch.Workers,
		LookbackDays: c.Batch.LookbackDays,
		PersistBars:  c.Provider.Source != "sqlite",
	}
}

// GuardConfig converts the fetch guard settings.
func (c *Config) GuardConfig() provider.GuardConfig {
	retry := utils.DefaultRetryConfig()
	retry.MaxAttempts = c.Batch.RetryAttempts
	retry.InitialDelay = c.Batch.RetryBackoff
	retry.MaxDelay = c.Batch.RetryMaxBackoff

	breaker := resilience.DefaultCircuitBreakerConfig()
	breaker.FailureThreshold = c.Batch.BreakerFailures
	breaker.Cooldown = c.Batch.BreakerCooldown

	return provider.GuardConfig{
		Timeout:   c.Batch.FetchTimeout,
		Retry:     retry,
		Breaker:   breaker,
		RateLimit: c.Batch.RateLimit,
		RateBurst: c.Batch.RateBurst,
	}
}

// LogConfig converts the log section.
func (c *Config) LogConfig() logging.LogConfig {
	lc := logging.DefaultLogConfig()
	lc.Level = c.Log.Level
	lc.Console = c.Log.Console
	lc.File = c.Log.File
	if c.Log.FilePath != "" {
		lc.FilePath = c.Log.FilePath
	}
	return lc
}
