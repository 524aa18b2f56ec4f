package cli

import (
	"sort"

	"github.com/spf13/cobra"

	"signal-engine/internal/provider"
)

func newImportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load bars or fundamentals from CSV into the store",
	}
	cmd.AddCommand(newImportBarsCmd(app), newImportFundamentalsCmd(app))
	return cmd
}

type importResult struct {
	File    string         `json:"file"`
	Symbols int            `json:"symbols"`
	Rows    int            `json:"rows"`
	Counts  map[string]int `json:"counts,omitempty"`
}

func newImportBarsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "bars <file.csv>",
		Short: "Import daily OHLCV bars",
		Long: `Import daily bars from a CSV file with the header
symbol,date,open,high,low,close,volume. A file without a symbol column
takes its symbol from the file name. Existing bars for the same dates are
replaced.`,
		Example: `  signal-engine import bars data/nifty50.csv
  signal-engine import bars INFY.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := app.Context(cmd.Context())

			bySymbol, err := provider.ReadBarsFile(args[0])
			if err != nil {
				return err
			}
			symbols := make([]string, 0, len(bySymbol))
			for s := range bySymbol {
				symbols = append(symbols, s)
			}
			sort.Strings(symbols)

			res := importResult{File: args[0], Counts: make(map[string]int, len(symbols))}
			for _, s := range symbols {
				if err := app.Store.SaveBars(ctx, s, bySymbol[s]); err != nil {
					return err
				}
				res.Symbols++
				res.Rows += len(bySymbol[s])
				res.Counts[s] = len(bySymbol[s])
			}

			if output.IsJSON() {
				return output.JSON(res)
			}
			output.Success("Imported %d bars for %d symbols from %s", res.Rows, res.Symbols, res.File)
			return nil
		},
	}
}

func newImportFundamentalsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "fundamentals <file.csv>",
		Short: "Import fundamental ratios",
		Long: `Import one row of ratios per symbol. Empty, "na" and "null" cells are
stored as missing values.`,
		Example: `  signal-engine import fundamentals data/fundamentals.csv`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := app.Context(cmd.Context())

			rows, err := provider.ReadFundamentalsFile(args[0])
			if err != nil {
				return err
			}
			for _, f := range rows {
				if err := app.Store.SaveFundamentals(ctx, f); err != nil {
					return err
				}
			}

			res := importResult{File: args[0], Symbols: len(rows), Rows: len(rows)}
			if output.IsJSON() {
				return output.JSON(res)
			}
			output.Success("Imported fundamentals for %d symbols from %s", res.Symbols, res.File)
			return nil
		},
	}
}
