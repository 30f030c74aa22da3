package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/baldhumanity/neat-drive/drive"
	"github.com/baldhumanity/neat-drive/runner"
)

type sweepOptions struct {
	seeds       []int64
	generations int
	tickLimit   int
	parallel    int
	format      string
}

type sweepReport struct {
	BestSeed    int64            `json:"best_seed" yaml:"best_seed"`
	BestFitness float64          `json:"best_fitness" yaml:"best_fitness"`
	Runs        []runner.Summary `json:"runs" yaml:"runs"`
}

func newSweepCmd(a *app) *cobra.Command {
	opts := sweepOptions{}
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run independent headless games for several seeds in parallel.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sweep(cmd, a, opts)
		},
	}
	f := cmd.Flags()
	f.Int64SliceVar(&opts.seeds, "seeds", []int64{1, 2, 3, 4}, "seeds to run")
	f.IntVar(&opts.generations, "generations", 5, "generations per seed")
	f.IntVar(&opts.tickLimit, "tick-limit", defaultTickLimit, "force a new generation after this many ticks (0 = never)")
	f.IntVar(&opts.parallel, "parallel", runtime.NumCPU(), "games run at once")
	f.StringVar(&opts.format, "format", "yaml", "report format (yaml, json)")
	return cmd
}

func sweep(cmd *cobra.Command, a *app, opts sweepOptions) error {
	if len(opts.seeds) == 0 {
		return fmt.Errorf("sweep needs at least one seed")
	}
	if opts.generations <= 0 {
		return fmt.Errorf("sweep needs a positive --generations")
	}
	for _, seed := range opts.seeds {
		if seed == 0 {
			return fmt.Errorf("seed 0 is reserved for clock seeding")
		}
	}

	summaries := make([]runner.Summary, len(opts.seeds))
	g, ctx := errgroup.WithContext(cmd.Context())
	if opts.parallel > 0 {
		g.SetLimit(opts.parallel)
	}

	for i, seed := range opts.seeds {
		i, seed := i, seed
		g.Go(func() error {
			cfg := a.config.Copy()
			cfg.Simulation.Seed = seed
			logger := a.logger.With(zap.Int64("seed", seed))

			game, err := drive.NewGame(cfg, drive.WithLogger(logger))
			if err != nil {
				return err
			}
			r := runner.New(game, logger, runner.Options{
				MaxGenerations:      opts.generations,
				GenerationTickLimit: opts.tickLimit,
			})
			if err := r.Run(ctx); err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			summaries[i] = runner.Summarize(game)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	report := sweepReport{Runs: summaries, BestSeed: summaries[0].Seed, BestFitness: summaries[0].BestFitness}
	for _, s := range summaries[1:] {
		if s.BestFitness > report.BestFitness {
			report.BestSeed = s.Seed
			report.BestFitness = s.BestFitness
		}
	}
	a.logger.Info("Sweep finished", zap.Int("runs", len(summaries)), zap.Int64("best_seed", report.BestSeed))
	return runner.Encode(cmd.OutOrStdout(), opts.format, report)
}
