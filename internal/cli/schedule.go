package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"signal-engine/internal/scheduler"
	"signal-engine/internal/security"
)

const shutdownTimeout = 30 * time.Second

func newScheduleCmd(app *App) *cobra.Command {
	var runNow bool
	var symbols []string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the batch and position sweep on their cron schedules",
		Long: `Start a long-running process that runs the daily batch and the
position sweep on the cron specs in the [schedule] section, and serves
Prometheus metrics on [metrics].listen_addr. Stops on SIGINT or SIGTERM.`,
		Example: `  signal-engine schedule
  signal-engine schedule --run-now --symbols INFY,TCS`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, stop := signal.NotifyContext(app.Context(cmd.Context()), os.Interrupt, syscall.SIGTERM)
			defer stop()

			symbols, err := security.ValidateSymbols(symbols)
			if err != nil {
				return err
			}

			sched := scheduler.NewScheduler(ctx, app.Engine, app.Monitor, symbols)
			cfg := app.Config.Schedule
			if err := sched.RegisterAll(cfg.BatchCron, cfg.SweepCron); err != nil {
				return err
			}

			var srv *http.Server
			if addr := app.Config.Metrics.ListenAddr; addr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", app.Metrics.Handler())
				srv = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						app.Logger.Error().Err(err).Str("addr", addr).Msg("Metrics server failed")
					}
				}()
			}

			if runNow {
				sched.RunBatchNow()
				sched.RunSweepNow()
			}

			sched.Start()
			if !output.IsJSON() {
				output.Success("Scheduler running (batch %q, sweep %q)", cfg.BatchCron, cfg.SweepCron)
				if srv != nil {
					output.Dim("Metrics on %s/metrics", srv.Addr)
				}
			}

			<-ctx.Done()
			app.Logger.Info().Msg("Shutdown signal received")

			sched.Stop(shutdownTimeout)
			if srv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					app.Logger.Warn().Err(err).Msg("Metrics server shutdown")
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&runNow, "run-now", false, "Run the batch and sweep once before waiting")
	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "Symbols for the batch (default all stored)")
	return cmd
}
