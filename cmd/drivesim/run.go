package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/baldhumanity/neat-drive/drive"
	"github.com/baldhumanity/neat-drive/runner"
	"github.com/baldhumanity/neat-drive/transport"
)

// defaultTickLimit ends generations whose surviving cars never crash (a car that
// never presses forward stays on the road forever).
const defaultTickLimit = 3000

type runOptions struct {
	generations    int
	ticks          int
	tickLimit      int
	ticksPerSecond float64
	format         string
	trace          string
	traceEvery     int
}

func newRunCmd(a *app) *cobra.Command {
	opts := runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation headless and print a summary.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHeadless(cmd, a, opts)
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.generations, "generations", 10, "stop after this many generations (0 = no limit)")
	f.IntVar(&opts.ticks, "ticks", 0, "stop after this many ticks (0 = no limit)")
	f.IntVar(&opts.tickLimit, "tick-limit", defaultTickLimit, "force a new generation after this many ticks (0 = never)")
	f.Float64Var(&opts.ticksPerSecond, "tps", 0, "ticks per second (0 = as fast as possible)")
	f.StringVar(&opts.format, "format", "yaml", "summary format (yaml, json)")
	f.StringVar(&opts.trace, "trace", "", "write snapshots as JSON lines to this file")
	f.IntVar(&opts.traceEvery, "trace-every", 10, "write every n-th snapshot to the trace")
	return cmd
}

func runHeadless(cmd *cobra.Command, a *app, opts runOptions) error {
	if opts.generations <= 0 && opts.ticks <= 0 {
		return fmt.Errorf("run needs --generations or --ticks")
	}

	gameOpts := []drive.Option{drive.WithLogger(a.logger)}

	var trace *transport.JSONLinesRenderer
	if opts.trace != "" {
		path, err := homedir.Expand(opts.trace)
		if err != nil {
			return fmt.Errorf("failed to expand trace path: %w", err)
		}
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create trace file: %w", err)
		}
		defer file.Close()
		buf := bufio.NewWriter(file)
		defer buf.Flush()

		trace = transport.NewJSONLinesRenderer(buf, opts.traceEvery)
		gameOpts = append(gameOpts, drive.WithRenderer(trace))
	}

	game, err := drive.NewGame(a.config, gameOpts...)
	if err != nil {
		return err
	}

	r := runner.New(game, a.logger, runner.Options{
		TicksPerSecond:      opts.ticksPerSecond,
		MaxTicks:            opts.ticks,
		MaxGenerations:      opts.generations,
		GenerationTickLimit: opts.tickLimit,
	})
	if err := r.Run(cmd.Context()); err != nil {
		return err
	}
	if trace != nil && trace.Err() != nil {
		return trace.Err()
	}

	summary := runner.Summarize(game)
	a.logger.Info("Run finished",
		zap.Int64("seed", summary.Seed),
		zap.Int("generations", summary.Generations),
		zap.Float64("best_fitness", summary.BestFitness))
	return summary.Encode(cmd.OutOrStdout(), opts.format)
}
