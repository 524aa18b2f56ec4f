package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"signal-engine/internal/models"
	"signal-engine/internal/security"
	"signal-engine/internal/trading"
	"signal-engine/pkg/utils"
)

func newPositionsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "positions",
		Aliases: []string{"pos"},
		Short:   "Track open positions and their exit alerts",
	}
	cmd.AddCommand(
		newPositionsCheckCmd(app),
		newPositionsAddCmd(app),
		newPositionsListCmd(app),
		newPositionsCloseCmd(app),
	)
	return cmd
}

func newPositionsCheckCmd(app *App) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "check [id]",
		Short: "Evaluate exit criteria against the latest snapshots",
		Example: `  signal-engine positions check
  signal-engine positions check 3f2a9c1e --all`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := app.Context(cmd.Context())

			var results []trading.PositionAlerts
			if len(args) == 1 {
				if err := security.ValidatePositionID(args[0]); err != nil {
					return err
				}
				pa, err := app.Monitor.Check(ctx, args[0])
				if err != nil {
					return err
				}
				if output.IsJSON() {
					return output.JSON(pa)
				}
				results = []trading.PositionAlerts{pa}
			} else {
				swept, err := app.Monitor.Sweep(ctx)
				if err != nil {
					return err
				}
				results = swept
			}

			if output.IsJSON() {
				return output.JSON(results)
			}
			if len(results) == 0 {
				output.Info("No open positions")
				return nil
			}
			for _, pa := range results {
				pos := pa.Position
				output.Bold("%s  %s  %d @ %s", pos.ID, pos.Symbol, pos.Quantity, utils.FormatPrice(pos.EntryPrice))
				shown := 0
				for _, a := range pa.Alerts {
					if a.Severity == models.SeverityInfo && !all {
						continue
					}
					shown++
					output.Printf("  %-8s %-20s %s\n", output.Severity(a.Severity), a.TriggeringCriterion, a.Message)
				}
				if shown == 0 {
					output.Dim("  no alerts")
				}
				output.Println()
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include info-level alerts")
	return cmd
}

func newPositionsAddCmd(app *App) *cobra.Command {
	var (
		entry       float64
		qty         int
		stop        float64
		target      float64
		criteria    []string
		customPrice float64
	)

	cmd := &cobra.Command{
		Use:   "add <symbol>",
		Short: "Record a new open position",
		Example: `  signal-engine positions add INFY --entry 1520 --qty 10 --stop 1450 --target 1700
  signal-engine positions add TCS --entry 3900 --qty 5 --criteria below_sma_200,supertrend_bearish
  signal-engine positions add ITC --entry 440 --qty 50 --custom-price 420`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := app.Context(cmd.Context())

			symbol, err := security.ValidateSymbol(args[0])
			if err != nil {
				return err
			}
			if entry <= 0 {
				return fmt.Errorf("--entry must be positive")
			}
			if err := security.ValidateQuantity(qty); err != nil {
				return err
			}
			for name, v := range map[string]float64{"entry": entry, "stop": stop, "target": target, "custom_price": customPrice} {
				if err := security.ValidatePrice(name, v); err != nil {
					return err
				}
			}

			var exit models.ExitCriteria
			if cmd.Flags().Changed("criteria") {
				exit, err = trading.ParseCriteria(criteria)
			} else {
				exit, err = app.Config.ExitCriteria()
			}
			if err != nil {
				return err
			}

			pos := models.Position{
				ID:           uuid.NewString()[:8],
				Symbol:       symbol,
				EntryPrice:   entry,
				Quantity:     qty,
				ExitCriteria: exit,
				Status:       models.PositionOpen,
				OpenedAt:     time.Now(),
			}
			if stop > 0 {
				pos.StopLoss = models.Some(stop)
			}
			if target > 0 {
				pos.Target = models.Some(target)
			}
			if customPrice > 0 {
				pos.ExitCriteria.CustomPrice = models.Some(customPrice)
			}

			if err := app.Store.SavePosition(ctx, pos); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(pos)
			}
			output.Success("Added position %s: %s %d @ %s", pos.ID, pos.Symbol, pos.Quantity, utils.FormatPrice(pos.EntryPrice))
			output.Dim("Exit criteria: %s", FormatCriteria(pos.ExitCriteria))
			return nil
		},
	}

	cmd.Flags().Float64Var(&entry, "entry", 0, "Entry price (required)")
	cmd.Flags().IntVar(&qty, "qty", 0, "Quantity (required)")
	cmd.Flags().Float64Var(&stop, "stop", 0, "Stop-loss price")
	cmd.Flags().Float64Var(&target, "target", 0, "Target price")
	cmd.Flags().StringSliceVar(&criteria, "criteria", nil, "Exit criteria (default from config)")
	cmd.Flags().Float64Var(&customPrice, "custom-price", 0, "Custom exit price")
	_ = cmd.MarkFlagRequired("entry")
	_ = cmd.MarkFlagRequired("qty")
	return cmd
}

func newPositionsListCmd(app *App) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := app.Context(cmd.Context())

			var filter models.PositionStatus
			switch status {
			case "all":
			case string(models.PositionOpen), string(models.PositionClosed):
				filter = models.PositionStatus(status)
			default:
				return fmt.Errorf("unknown status %q (open, closed, all)", status)
			}

			positions, err := app.Store.ListPositions(ctx, filter)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(positions)
			}
			if len(positions) == 0 {
				output.Info("No positions")
				return nil
			}
			t := NewTable(output, "ID", "Symbol", "Qty", "Entry", "Stop", "Target", "Criteria", "Status", "Opened")
			for _, p := range positions {
				t.AddRow(p.ID, p.Symbol, fmt.Sprintf("%d", p.Quantity), utils.FormatPrice(p.EntryPrice),
					FormatLevel(p.StopLoss), FormatLevel(p.Target), Truncate(FormatCriteria(p.ExitCriteria), 40),
					string(p.Status), FormatAgo(p.OpenedAt))
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "open", "open, closed or all")
	return cmd
}

func newPositionsCloseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "close <id>",
		Short: "Mark a position closed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := app.Context(cmd.Context())

			if err := security.ValidatePositionID(args[0]); err != nil {
				return err
			}
			pos, err := app.Store.GetPosition(ctx, args[0])
			if err != nil {
				return err
			}
			if pos.Status == models.PositionClosed {
				output.Warning("Position %s is already closed", pos.ID)
				return nil
			}
			pos.Status = models.PositionClosed
			if err := app.Store.SavePosition(ctx, *pos); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(pos)
			}
			output.Success("Closed position %s (%s)", pos.ID, pos.Symbol)
			return nil
		},
	}
}
