package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"signal-engine/internal/analysis/scoring"
	"signal-engine/internal/engine"
	"signal-engine/internal/models"
	"signal-engine/internal/security"
	"signal-engine/internal/store"
	"signal-engine/pkg/utils"
)

func newBatchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [symbols...]",
		Short: "Run the daily analysis across a set of symbols",
		Long: `Analyze every listed symbol, or every symbol with stored bars when none
are given. Symbols run concurrently; a failing symbol is reported and does
not stop the rest of the batch.`,
		Example: `  signal-engine batch
  signal-engine batch INFY TCS WIPRO --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := app.Context(cmd.Context())

			symbols, err := security.ValidateSymbols(args)
			if err != nil {
				return err
			}
			if !output.IsJSON() {
				output.Info("Running batch analysis...")
			}
			report, err := app.Engine.RunBatch(ctx, symbols)
			if report == nil {
				output.Error("Batch failed: %v", err)
				return err
			}
			if output.IsJSON() {
				if jerr := output.JSON(report); jerr != nil {
					return jerr
				}
				return err
			}

			output.Printf("%d symbols, %d processed, %d failed in %s\n",
				report.Symbols, report.Processed, report.Failed, FormatDuration(report.Duration))
			if len(report.Results) > 0 {
				output.Println()
				t := NewTable(output, "Symbol", "Close", "Signal", "Score", "Events")
				for _, a := range report.Results {
					events := len(a.Crosses) + len(a.BoxEvents)
					if a.VolumeSpike != nil {
						events++
					}
					t.AddRow(a.Record.Snapshot.Symbol, utils.FormatPrice(a.Record.Snapshot.Close),
						output.Label(a.Record.Composite.Label), utils.FormatScore(a.Record.Composite.Score),
						fmt.Sprintf("%d", events))
				}
				t.Render()
			}
			if report.Failed > 0 {
				output.Println()
				output.Warning("Failures:")
				symbols := make([]string, 0, len(report.FailuresBySymbol))
				for s := range report.FailuresBySymbol {
					symbols = append(symbols, s)
				}
				sort.Strings(symbols)
				for _, s := range symbols {
					output.Printf("  %-12s %s\n", s, report.FailuresBySymbol[s])
				}
			}
			if err != nil {
				output.Error("Batch interrupted: %v", err)
			}
			return err
		},
	}
	return cmd
}

func newScreenCmd(app *App) *cobra.Command {
	var preset string
	var filters []string
	var list bool

	cmd := &cobra.Command{
		Use:   "screen",
		Short: "Filter the latest technical records",
		Long: `Screen the most recent stored technical record of every symbol. Filters
have the form "type op value" and are combined with AND.

Types: rsi, price, score, macd, supertrend, sma200_distance, volume_ratio, percent_b`,
		Example: `  signal-engine screen --preset oversold
  signal-engine screen --filter "rsi < 40" --filter "score >= 2"
  signal-engine screen --list`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := app.Context(cmd.Context())

			if list {
				presets := scoring.GetPresetScreeners()
				if output.IsJSON() {
					return output.JSON(presets)
				}
				for _, p := range presets {
					output.Printf("%-16s %s\n", output.Cyan(p.Name), p.Description)
				}
				return nil
			}

			var active []scoring.Filter
			if preset != "" {
				p, err := scoring.GetPresetByName(preset)
				if err != nil {
					return err
				}
				active = append(active, p.Filters...)
			}
			for _, expr := range filters {
				f, err := scoring.ParseFilter(expr)
				if err != nil {
					return err
				}
				active = append(active, f)
			}

			records, err := app.Store.LatestTechnicalRecords(ctx)
			if err != nil {
				return fmt.Errorf("load technical records: %w", err)
			}
			results := scoring.NewScreener().Screen(records, active)

			if output.IsJSON() {
				return output.JSON(results)
			}
			if len(results) == 0 {
				output.Warning("No symbols match %d filter(s) across %d records", len(active), len(records))
				return nil
			}
			t := NewTable(output, "Symbol", "Signal", "Score", "Matched")
			for _, r := range results {
				matched := make([]string, 0, len(r.Matches))
				for name, v := range r.Matches {
					matched = append(matched, fmt.Sprintf("%s (%.2f)", name, v))
				}
				sort.Strings(matched)
				t.AddRow(r.Symbol, output.Label(r.Label), utils.FormatScore(r.Score), Truncate(strings.Join(matched, ", "), 60))
			}
			t.Render()
			output.Dim("%d of %d symbols matched, last batch %s", len(results), len(records),
				FormatAgo(app.Store.GetLastSync(engine.SyncBatch)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&preset, "preset", "p", "", "Preset screener name")
	cmd.Flags().StringArrayVarP(&filters, "filter", "f", nil, "Filter expression, repeatable")
	cmd.Flags().BoolVar(&list, "list", false, "List preset screeners")
	return cmd
}

type eventsView struct {
	Crosses []models.CrossEvent       `json:"crosses"`
	Spikes  []models.VolumeSpike      `json:"volume_spikes"`
	Boxes   []models.ConsolidationBox `json:"boxes"`
}

func newEventsCmd(app *App) *cobra.Command {
	var sinceDays int
	var limit int

	cmd := &cobra.Command{
		Use:   "events [symbol]",
		Short: "Show stored crossovers, volume spikes and consolidation boxes",
		Example: `  signal-engine events INFY
  signal-engine events --since 5 --limit 20`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(app.Context(cmd.Context()), commandTimeout)
			defer cancel()

			filter := store.EventFilter{Limit: limit}
			if len(args) == 1 {
				symbol, err := security.ValidateSymbol(args[0])
				if err != nil {
					return err
				}
				filter.Symbol = symbol
			}
			if sinceDays > 0 {
				filter.Since = utils.TradingDaysBack(time.Now(), sinceDays)
			}

			crosses, err := app.Store.GetCrossEvents(ctx, filter)
			if err != nil {
				return fmt.Errorf("load cross events: %w", err)
			}
			spikes, err := app.Store.GetVolumeSpikes(ctx, filter)
			if err != nil {
				return fmt.Errorf("load volume spikes: %w", err)
			}
			boxes, err := app.Store.GetBoxes(ctx, filter)
			if err != nil {
				return fmt.Errorf("load boxes: %w", err)
			}

			if output.IsJSON() {
				return output.JSON(eventsView{Crosses: crosses, Spikes: spikes, Boxes: boxes})
			}

			output.Bold("Crossovers")
			if len(crosses) == 0 {
				output.Dim("  none")
			} else {
				t := NewTable(output, "Date", "Symbol", "Kind", "Direction", "Reference", "Magnitude")
				for _, ev := range crosses {
					t.AddRow(FormatDate(ev.Date), ev.Symbol, string(ev.Kind), output.Direction(ev.Direction),
						utils.FormatPrice(ev.ReferenceLevel), utils.FormatPercent(ev.MagnitudePercent))
				}
				t.Render()
			}
			output.Println()

			output.Bold("Volume spikes")
			if len(spikes) == 0 {
				output.Dim("  none")
			} else {
				t := NewTable(output, "Date", "Symbol", "Volume", "Baseline", "Spike", "Price")
				for _, s := range spikes {
					t.AddRow(FormatDate(s.Date), s.Symbol, utils.FormatVolume(float64(s.TodayVolume)),
						utils.FormatVolume(s.BaselineVolume), utils.FormatPercent(s.SpikePercent),
						FormatOptionalPercent(s.PriceChangePercent))
				}
				t.Render()
			}
			output.Println()

			output.Bold("Consolidation boxes")
			if len(boxes) == 0 {
				output.Dim("  none")
				return nil
			}
			t := NewTable(output, "Formed", "Symbol", "Range", "Days", "Status", "Breakout", "Resolved")
			for _, b := range boxes {
				t.AddRow(FormatDate(b.FormationDate), b.Symbol,
					utils.FormatPrice(b.BoxLow)+" - "+utils.FormatPrice(b.BoxHigh),
					fmt.Sprintf("%d", b.ConsolidationDays), string(b.Status),
					FormatDatePtr(b.BreakoutDate), FormatDatePtr(b.ResolvedDate))
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&sinceDays, "since", 0, "Only events in the last N trading days")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum rows per event type")
	return cmd
}
