package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/deepfolio/internal/market"
	"github.com/aristath/deepfolio/internal/rollout"
)

type simulateOptions struct {
	csvPath  string
	assets   []string
	episodes int
	policy   string
	seed     uint64
	workers  int
	weights  []float64
	out      string
	detail   bool
}

func simulateCmd(a *app) *cobra.Command {
	var opts simulateOptions

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run policy episodes over a feature table and print a summary",
		Long: `Loads a feature table from --csv or, without it, builds one from the bar
store, runs the requested number of episodes and prints a JSON summary.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setAssets(opts.assets); err != nil {
				return err
			}
			if opts.episodes == 0 {
				opts.episodes = a.cfg.Rollout.Episodes
			}
			if opts.policy == "" {
				opts.policy = a.cfg.Rollout.Policy
			}
			if opts.workers == 0 {
				opts.workers = a.cfg.Rollout.Workers
			}
			if opts.out == "" {
				opts.out = a.cfg.Rollout.RecordPath
			}

			table, err := a.loadTable(cmd.Context(), opts.csvPath)
			if err != nil {
				return err
			}
			return a.simulate(cmd, table, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.csvPath, "csv", "", "feature table CSV; the bar store is used when empty")
	f.StringSliceVar(&opts.assets, "assets", nil, "asset set, overrides DEEPFOLIO_ASSETS")
	f.IntVar(&opts.episodes, "episodes", 0, "number of episodes")
	f.StringVar(&opts.policy, "policy", "", "encoder, uniform or constant")
	f.Uint64Var(&opts.seed, "seed", 0, "seed of the first episode")
	f.IntVar(&opts.workers, "workers", 0, "episodes run concurrently")
	f.Float64SliceVar(&opts.weights, "weights", nil, "fixed allocation for the constant policy")
	f.StringVar(&opts.out, "out", "", "append recorded episodes to this msgpack file")
	f.BoolVar(&opts.detail, "episodes-detail", false, "include per-episode results in the output")
	return cmd
}

func (a *app) loadTable(ctx context.Context, csvPath string) (*market.Table, error) {
	assets := market.AssetSet(a.cfg.Rollout.Assets)
	if csvPath != "" {
		f, err := os.Open(csvPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open feature table: %w", err)
		}
		defer f.Close()
		frame, err := market.ReadCSV(f)
		if err != nil {
			return nil, err
		}
		return market.TableFromFrame(frame, assets)
	}

	db, bars, err := a.openHistory()
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return market.BuildTable(ctx, bars, assets, time.Time{}, time.Time{})
}

func (a *app) simulate(cmd *cobra.Command, table *market.Table, opts simulateOptions) error {
	var policy rollout.Policy
	if opts.policy == rollout.PolicyConstant && len(opts.weights) > 0 {
		if len(opts.weights) != table.NumAssets() {
			return fmt.Errorf("--weights has %d entries, table has %d assets", len(opts.weights), table.NumAssets())
		}
		policy = rollout.NewConstantPolicy(opts.weights)
	} else {
		var err error
		policy, err = rollout.NewPolicy(opts.policy, table.NumAssets(), a.cfg.Env.WindowSize,
			table.FeaturesPerAsset(), a.cfg.Network, a.log)
		if err != nil {
			return err
		}
	}

	runnerOpts := []rollout.RunnerOption{rollout.WithWorkers(opts.workers)}
	if opts.out != "" {
		rec, err := rollout.OpenMsgpackFile(opts.out)
		if err != nil {
			return err
		}
		defer rec.Close()
		runnerOpts = append(runnerOpts, rollout.WithRecorder(rec))
	}
	runner := rollout.NewRunner(a.log, runnerOpts...)

	jobs, err := rollout.Jobs(table, a.cfg.Env, policy, opts.episodes, opts.seed, a.log)
	if err != nil {
		return err
	}
	episodes, err := runner.RunParallel(cmd.Context(), jobs)
	if err != nil {
		return err
	}

	out := struct {
		Summary  rollout.Summary    `json:"summary"`
		Episodes []*rollout.Episode `json:"episodes,omitempty"`
	}{Summary: rollout.Summarize(episodes)}
	if opts.detail {
		out.Episodes = episodes
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
