package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"signal-engine/internal/engine"
	"signal-engine/internal/models"
	"signal-engine/internal/security"
	"signal-engine/pkg/utils"
)

const commandTimeout = 2 * time.Minute

func newAnalyzeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <symbol>",
		Short: "Run the daily analysis for one symbol",
		Long: `Compute the indicator snapshot, crossover and volume events, the
consolidation box and the composite signal for the latest bar of a symbol.
The result is stored like a batch run.`,
		Example: `  signal-engine analyze INFY
  signal-engine analyze TCS --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(app.Context(cmd.Context()), commandTimeout)
			defer cancel()

			symbol, err := security.ValidateSymbol(args[0])
			if err != nil {
				return err
			}
			a, err := app.Engine.AnalyzeSymbol(ctx, symbol)
			if err != nil {
				output.Error("Analysis of %s failed: %v", symbol, err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(a)
			}
			printAnalysis(output, a)
			return nil
		},
	}
}

func printAnalysis(output *Output, a *engine.Analysis) {
	snap := a.Record.Snapshot
	output.Bold("%s  %s  close %s  volume %s", snap.Symbol, FormatDate(snap.AsOf),
		utils.FormatPrice(snap.Close), utils.FormatVolume(float64(snap.Volume)))
	output.Dim("%d bars of history", snap.Bars)
	output.Println()

	t := NewTable(output, "Indicator", "Value", "vs close")
	maRow := func(name string, v models.Float) {
		t.AddRow(name, FormatLevel(v), distance(output, snap.Close, v))
	}
	maRow("EMA 9", snap.MovingAverages.EMA9)
	maRow("EMA 21", snap.MovingAverages.EMA21)
	maRow("SMA 50", snap.MovingAverages.SMA50)
	maRow("EMA 50", snap.MovingAverages.EMA50)
	maRow("SMA 100", snap.MovingAverages.SMA100)
	maRow("SMA 200", snap.MovingAverages.SMA200)
	t.AddRow("RSI", FormatFloat(snap.RSI, 2), "")
	t.AddRow("MACD line / signal", FormatFloat(snap.MACD.Line, 3)+" / "+FormatFloat(snap.MACD.Signal, 3), "")
	hist := snap.MACD.Histogram
	t.AddRow("MACD histogram", output.Signed(hist.Or(0), FormatFloat(hist, 3)), "")
	t.AddRow("Bollinger", FormatLevel(snap.Bollinger.Lower)+" - "+FormatLevel(snap.Bollinger.Upper), "")
	t.AddRow("Bollinger %B", FormatFloat(snap.Bollinger.PercentB, 2), "")
	t.AddRow("SuperTrend", FormatLevel(snap.Supertrend.Value), output.Direction(snap.Supertrend.Direction))
	t.AddRow("Volume baseline", FormatFloat(snap.VolumeBaseline, 0), "")
	t.Render()
	output.Println()

	if len(a.Crosses) > 0 {
		output.Bold("Crossovers")
		for _, ev := range a.Crosses {
			output.Printf("  %-16s %s  ref %s  (%s)\n", ev.Kind, output.Direction(ev.Direction),
				utils.FormatPrice(ev.ReferenceLevel), utils.FormatPercent(ev.MagnitudePercent))
		}
		output.Println()
	}
	if s := a.VolumeSpike; s != nil {
		output.Bold("Volume spike")
		output.Printf("  %s vs baseline %s (%s), price %s\n", utils.FormatVolume(float64(s.TodayVolume)),
			utils.FormatVolume(s.BaselineVolume), utils.FormatPercent(s.SpikePercent), FormatOptionalPercent(s.PriceChangePercent))
		output.Println()
	}
	if b := a.Box; b != nil {
		output.Bold("Consolidation box")
		output.Printf("  %s - %s, %d days, %s since %s\n", utils.FormatPrice(b.BoxLow), utils.FormatPrice(b.BoxHigh),
			b.ConsolidationDays, b.Status, FormatDate(b.FormationDate))
		for _, ev := range a.BoxEvents {
			output.Printf("  %s %s\n", FormatDate(ev.Date), ev.Kind)
		}
		output.Println()
	}
	if a.StateWarning != "" {
		output.Warning("Consolidation state not advanced: %s", a.StateWarning)
		output.Println()
	}

	printComposite(output, a.Record.Composite)
}

func printComposite(output *Output, c models.CompositeSignal) {
	output.Bold("Composite signal: %s (%s)", output.Label(c.Label), utils.FormatScore(c.Score))
	names := make([]string, 0, len(c.Contributions))
	for name := range c.Contributions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v := c.Contributions[name]
		if v == 0 {
			continue
		}
		output.Printf("  %-20s %s\n", name, output.Signed(float64(v), utils.FormatScore(v)))
	}
}

func distance(output *Output, close float64, level models.Float) string {
	lv, ok := level.Get()
	if !ok || lv == 0 {
		return ""
	}
	pct := (close - lv) / lv * 100
	return output.Signed(pct, utils.FormatPercent(pct))
}

func newRecommendCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "recommend <symbol>",
		Short: "Rate fundamentals and score investor-profile suitability",
		Example: `  signal-engine recommend HDFCBANK
  signal-engine recommend ITC --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(app.Context(cmd.Context()), commandTimeout)
			defer cancel()

			symbol, err := security.ValidateSymbol(args[0])
			if err != nil {
				return err
			}
			rec, err := app.Engine.Recommend(ctx, symbol)
			if err != nil {
				output.Error("Recommendation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(rec)
			}
			printRecommendation(output, rec)
			return nil
		},
	}
}

func printRecommendation(output *Output, rec *engine.Recommendation) {
	inv := rec.Investor
	output.Bold("%s", rec.Symbol)

	if rec.Technical != nil {
		output.Printf("Technical:   %s (%s) as of %s\n", output.Label(rec.Technical.Composite.Label),
			utils.FormatScore(rec.Technical.Composite.Score), FormatDate(rec.Technical.Snapshot.AsOf))
	} else {
		output.Printf("Technical:   %s\n", output.DimText("data not available"))
	}

	if rec.Rating != nil && rec.Rating.Rated {
		output.Printf("Fundamental: %s (%.2f / 4)\n", output.Tier(rec.Rating.Tier), rec.Rating.Score)
		t := NewTable(output, "Ratio", "Value", "Band", "Weight")
		for _, c := range rec.Rating.Components {
			if c.Missing {
				t.AddRow(c.Name, output.DimText(NA), output.DimText("missing"), fmt.Sprintf("%.2f", c.Weight))
				continue
			}
			t.AddRow(c.Name, FormatFloat(c.Value, 2), fmt.Sprintf("%d", c.BandScore), fmt.Sprintf("%.2f", c.Weight))
		}
		t.Render()
	} else {
		output.Printf("Fundamental: %s\n", output.DimText("data not available"))
	}
	output.Println()

	if inv.InsufficientData {
		output.Warning("%s", inv.Rationale)
		return
	}

	t := NewTable(output, "Profile", "Score", "Passed", "Evaluated", "Rationale")
	for _, p := range models.Profiles {
		ps := inv.PerProfile[p]
		name := string(p)
		if p == inv.BestProfile {
			name = output.Green(name + " *")
		}
		t.AddRow(name, fmt.Sprintf("%.0f", ps.Score), fmt.Sprintf("%d/%d", ps.Passed, ps.Evaluated),
			fmt.Sprintf("%d/%d", ps.Evaluated, ps.Criteria), Truncate(ps.Rationale, 60))
	}
	t.Render()
	output.Println()
	output.Bold("Overall: %s for %s investors", output.Label(inv.OverallCall), inv.BestProfile)
	output.Dim("%s", inv.Rationale)
}
