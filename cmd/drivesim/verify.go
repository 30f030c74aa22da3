package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/spf13/cobra"

	"github.com/baldhumanity/neat-drive/drive"
	"github.com/baldhumanity/neat-drive/runner"
)

func newVerifyCmd(a *app) *cobra.Command {
	var ticks, tickLimit int
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Run the same seed twice and check that both runs end in the same state.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return verify(cmd, a, ticks, tickLimit)
		},
	}
	cmd.Flags().IntVar(&ticks, "ticks", 2000, "ticks per run")
	cmd.Flags().IntVar(&tickLimit, "tick-limit", defaultTickLimit, "force a new generation after this many ticks (0 = never)")
	return cmd
}

func verify(cmd *cobra.Command, a *app, ticks, tickLimit int) error {
	if ticks <= 0 {
		return fmt.Errorf("verify needs a positive --ticks")
	}
	cfg := a.config.Copy()
	if cfg.Simulation.Seed == 0 {
		cfg.Simulation.Seed = time.Now().UnixNano()
	}

	first, err := simulate(cmd.Context(), cfg, ticks, tickLimit)
	if err != nil {
		return err
	}
	second, err := simulate(cmd.Context(), cfg, ticks, tickLimit)
	if err != nil {
		return err
	}

	if diff := cmp.Diff(first, second, cmpopts.IgnoreFields(drive.CarView{}, "ID")); diff != "" {
		return fmt.Errorf("runs with seed %d diverged (-first +second):\n%s", cfg.Simulation.Seed, diff)
	}
	if first.Fingerprint() != second.Fingerprint() {
		return fmt.Errorf("runs with seed %d produced different fingerprints", cfg.Simulation.Seed)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "deterministic: seed %d, %d ticks, generation %d, fingerprint %016x\n",
		cfg.Simulation.Seed, first.TotalTicks, first.Generation, first.Fingerprint())
	return nil
}

func simulate(ctx context.Context, cfg *drive.Config, ticks, tickLimit int) (*drive.Snapshot, error) {
	game, err := drive.NewGame(cfg)
	if err != nil {
		return nil, err
	}
	r := runner.New(game, nil, runner.Options{MaxTicks: ticks, GenerationTickLimit: tickLimit})
	if err := r.Run(ctx); err != nil {
		return nil, err
	}
	if game.TotalTicks() < ticks {
		return nil, ctx.Err()
	}
	return game.Snapshot(), nil
}
