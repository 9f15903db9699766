package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/deepfolio/internal/market"
)

func importCmd(a *app) *cobra.Command {
	var symbol, csvPath string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load OHLCV bars for one symbol from CSV into the bar store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(csvPath)
			if err != nil {
				return fmt.Errorf("failed to open bars: %w", err)
			}
			defer f.Close()

			frame, err := market.ReadCSV(f)
			if err != nil {
				return err
			}
			bars, err := market.BarsFromFrame(symbol, frame)
			if err != nil {
				return err
			}

			db, repo, err := a.openHistory()
			if err != nil {
				return err
			}
			defer db.Close()

			written, err := repo.Upsert(cmd.Context(), bars)
			if err != nil {
				return err
			}
			a.log.Info().Str("symbol", symbol).Int64("bars", written).Msg("Bars imported")
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d bars for %s\n", written, symbol)
			return nil
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "", "asset identifier the bars belong to")
	cmd.Flags().StringVar(&csvPath, "csv", "", "CSV with a time column and open, high, low, close, volume")
	_ = cmd.MarkFlagRequired("symbol")
	_ = cmd.MarkFlagRequired("csv")
	return cmd
}

func featuresCmd(a *app) *cobra.Command {
	var assets []string
	var out string

	cmd := &cobra.Command{
		Use:   "features",
		Short: "Export the engineered feature table built from the bar store as CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setAssets(assets); err != nil {
				return err
			}

			db, repo, err := a.openHistory()
			if err != nil {
				return err
			}
			defer db.Close()

			frame, err := market.BuildFrame(cmd.Context(), repo, market.AssetSet(a.cfg.Rollout.Assets), time.Time{}, time.Time{})
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}
			return market.WriteCSV(w, frame)
		},
	}
	cmd.Flags().StringSliceVar(&assets, "assets", nil, "asset set, overrides DEEPFOLIO_ASSETS")
	cmd.Flags().StringVar(&out, "out", "", "output file; stdout when empty")
	return cmd
}
