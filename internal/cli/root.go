// Package cli provides the command-line interface for the signal engine.
package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"signal-engine/internal/config"
	"signal-engine/internal/engine"
	"signal-engine/internal/logging"
	"signal-engine/internal/metrics"
	"signal-engine/internal/provider"
	"signal-engine/internal/store"
	"signal-engine/internal/trading"
)

// Version information
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
)

// skipSetup marks commands that run without config, store or engine.
const skipSetup = "skip-setup"

// App holds the application dependencies.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Store   store.DataStore
	Metrics *metrics.Metrics
	Guard   *provider.Guard
	Engine  *engine.Engine
	Monitor *trading.Monitor
}

// Close releases the store.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}

// Context returns ctx carrying the app logger.
func (a *App) Context(ctx context.Context) context.Context {
	return logging.WithLogger(ctx, a.Logger)
}

// setup loads configuration and wires the store, providers, engine and
// monitor. Configuration errors are returned unchanged and are fatal.
func (a *App) setup(configDir string, debug bool) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}
	a.Config = cfg

	lc := cfg.LogConfig()
	if debug {
		lc.Level = "debug"
	}
	a.Logger = logging.NewLoggerWithConfig(lc)

	ds, err := store.NewSQLiteStore(cfg.Store.DBPath)
	if err != nil {
		return fmt.Errorf("opening store %s: %w", cfg.Store.DBPath, err)
	}
	a.Store = ds
	a.Logger.Debug().Str("path", cfg.Store.DBPath).Msg("SQLite store initialized")

	a.Metrics = metrics.New()
	a.Guard = provider.NewGuard(cfg.GuardConfig(), a.Metrics)

	sources := engine.Sources{}
	switch cfg.Provider.Source {
	case "csv":
		csv := provider.NewCSVProvider(cfg.Provider.CSVDir)
		sources.Bars, sources.Fundamentals = csv, csv
	default:
		sp := provider.NewStoreProvider(ds, ds)
		sources.Bars, sources.Fundamentals = sp, sp
	}
	a.Engine = engine.New(cfg.EngineConfig(), ds, sources, a.Guard, a.Metrics)
	a.Monitor = trading.NewMonitor(ds, ds, trading.NewExitEvaluator(cfg.Exit.ProximityPercent), a.Metrics)

	a.Logger.Debug().Str("source", cfg.Provider.Source).Int("workers", cfg.Batch.Workers).Msg("Engine initialized")
	return nil
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd() *cobra.Command {
	app := &App{Logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "signal-engine",
		Short: "Technical and fundamental signal engine for daily bars",
		Long: `Signal Engine turns daily OHLCV bars and fundamental ratios into
indicator snapshots, crossover and volume events, consolidation breakouts,
composite BUY/SELL signals, investor-profile recommendations and exit alerts
for open positions.

Import data with 'signal-engine import', run 'signal-engine batch' daily,
then read results with 'analyze', 'screen', 'recommend' and 'positions check'.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipSetup] == "true" {
				return nil
			}
			configDir, _ := cmd.Flags().GetString("config")
			debug, _ := cmd.Flags().GetBool("debug")
			return app.setup(configDir, debug)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/signal-engine)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newAnalyzeCmd(app))
	rootCmd.AddCommand(newRecommendCmd(app))
	rootCmd.AddCommand(newBatchCmd(app))
	rootCmd.AddCommand(newScreenCmd(app))
	rootCmd.AddCommand(newEventsCmd(app))
	rootCmd.AddCommand(newPositionsCmd(app))
	rootCmd.AddCommand(newImportCmd(app))
	rootCmd.AddCommand(newScheduleCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{skipSetup: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("signal-engine v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func configDirFlag(cmd *cobra.Command) string {
	dir, _ := cmd.Flags().GetString("config")
	if dir == "" {
		return config.DefaultConfigDir()
	}
	return dir
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate the configuration file.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:         "path",
		Short:       "Show configuration file path",
		Annotations: map[string]string{skipSetup: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			path := config.ConfigPath(configDirFlag(cmd))
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": path})
			}
			output.Println(path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:         "init",
		Short:       "Write the commented configuration template",
		Annotations: map[string]string{skipSetup: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			path, err := config.WriteTemplate(configDirFlag(cmd))
			if err != nil {
				return err
			}
			output.Success("✓ Configuration at %s", path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:         "validate",
		Short:       "Validate the configuration file",
		Annotations: map[string]string{skipSetup: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if _, err := config.Load(configDirFlag(cmd)); err != nil {
				if output.IsJSON() {
					_ = output.JSON(map[string]interface{}{"valid": false, "error": err.Error()})
				} else {
					output.Error("✗ Configuration validation failed: %v", err)
				}
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Configuration (%s)", config.ConfigPath(cfg.Dir))
	output.Println()

	output.Bold("Indicators")
	output.Printf("  EMA:             %d / %d / %d\n", cfg.Indicators.EMAShort, cfg.Indicators.EMAMedium, cfg.Indicators.Trend)
	output.Printf("  SMA:             %d / %d / %d\n", cfg.Indicators.Trend, cfg.Indicators.SMAMedium, cfg.Indicators.SMALong)
	output.Printf("  RSI:             %d\n", cfg.Indicators.RSIPeriod)
	output.Printf("  MACD:            %d, %d, %d\n", cfg.Indicators.MACDFast, cfg.Indicators.MACDSlow, cfg.Indicators.MACDSignal)
	output.Printf("  Bollinger:       %d, %.1f\n", cfg.Indicators.BollingerPeriod, cfg.Indicators.BollingerStdDev)
	output.Printf("  SuperTrend:      %d, %.1f\n", cfg.Indicators.SuperTrendPeriod, cfg.Indicators.SuperTrendMultiplier)
	output.Println()

	output.Bold("Signals")
	output.Printf("  Volume spike:    %.1fx over %d-day baseline\n", cfg.Signals.VolumeSpikeMultiple, cfg.Signals.VolumeBaselinePeriod)
	output.Printf("  Box:             %d days within %.1f%%, %d-day false-breakout window\n",
		cfg.Consolidation.MinDays, cfg.Consolidation.MaxRangePercent, cfg.Consolidation.FalseBreakoutWindow)
	output.Printf("  RSI bands:       %.0f / %.0f\n", cfg.Scoring.RSIOversold, cfg.Scoring.RSIOverbought)
	output.Printf("  Exit band:       %.1f%%\n", cfg.Exit.ProximityPercent)
	output.Println()

	output.Bold("Runtime")
	output.Printf("  Source:          %s\n", cfg.Provider.Source)
	if cfg.Provider.Source == "csv" {
		output.Printf("  CSV dir:         %s\n", cfg.Provider.CSVDir)
	}
	output.Printf("  Database:        %s\n", cfg.Store.DBPath)
	output.Printf("  Workers:         %d\n", cfg.Batch.Workers)
	output.Printf("  Fetch timeout:   %s (%d attempts)\n", cfg.Batch.FetchTimeout, cfg.Batch.RetryAttempts)
	output.Printf("  Batch cron:      %s\n", cfg.Schedule.BatchCron)
	output.Printf("  Sweep cron:      %s\n", cfg.Schedule.SweepCron)
	output.Printf("  Metrics:         %s\n", cfg.Metrics.ListenAddr)
	output.Printf("  Log:             %s (%s)\n", cfg.Log.Level, filepath.Clean(cfg.Log.FilePath))
}
