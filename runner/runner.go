// Package runner drives a drive.Game from a single goroutine: it paces ticks,
// applies queued commands between ticks and stops on tick or generation limits.
package runner

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/baldhumanity/neat-drive/drive"
)

// ErrQueueFull is returned by Submit when the command queue has no room.
var ErrQueueFull = errors.New("command queue is full")

// DefaultQueueSize is used when Options.QueueSize is not positive.
const DefaultQueueSize = 64

// Options controls pacing and stop conditions. Zero values mean "unlimited".
type Options struct {
	TicksPerSecond      float64
	MaxTicks            int
	MaxGenerations      int
	GenerationTickLimit int // force a rollover after this many ticks in one generation
	QueueSize           int
}

// Runner owns the only goroutine that touches its game.
type Runner struct {
	game     *drive.Game
	logger   *zap.Logger
	limiter  *rate.Limiter
	commands chan Command
	opts     Options
}

// New creates a runner for game. A nil logger discards output.
func New(game *drive.Game, logger *zap.Logger, opts Options) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if opts.TicksPerSecond > 0 {
		limit = rate.Limit(opts.TicksPerSecond)
	}
	size := opts.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Runner{
		game:     game,
		logger:   logger.Named("runner"),
		limiter:  rate.NewLimiter(limit, 1),
		commands: make(chan Command, size),
		opts:     opts,
	}
}

// Submit queues cmd to run before the next tick. It never blocks.
func (r *Runner) Submit(cmd Command) error {
	select {
	case r.commands <- cmd:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run ticks the game until a limit is reached or ctx is cancelled. Cancellation
// is a normal stop and returns nil; a failing tick is returned as an error.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("Runner started",
		zap.Float64("ticks_per_second", r.opts.TicksPerSecond),
		zap.Int("max_ticks", r.opts.MaxTicks),
		zap.Int("max_generations", r.opts.MaxGenerations))

	for {
		if ctx.Err() != nil {
			r.logger.Info("Runner stopped", zap.String("reason", "cancelled"), zap.Int("ticks", r.game.TotalTicks()))
			return nil
		}
		if reason, done := r.finished(); done {
			r.logger.Info("Runner stopped", zap.String("reason", reason), zap.Int("ticks", r.game.TotalTicks()))
			return nil
		}

		if err := r.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			return fmt.Errorf("tick pacing failed: %w", err)
		}

		r.drain()

		if err := r.game.Tick(); err != nil {
			return fmt.Errorf("tick %d failed: %w", r.game.TotalTicks()+1, err)
		}
		if r.opts.GenerationTickLimit > 0 && r.game.GenerationTicks() >= r.opts.GenerationTickLimit {
			if err := r.game.EvolveOnTickLimit(); err != nil {
				return fmt.Errorf("tick limit rollover failed: %w", err)
			}
		}
	}
}

func (r *Runner) finished() (string, bool) {
	if r.opts.MaxTicks > 0 && r.game.TotalTicks() >= r.opts.MaxTicks {
		return "max_ticks", true
	}
	if r.opts.MaxGenerations > 0 && r.game.Generation() >= r.opts.MaxGenerations {
		return "max_generations", true
	}
	return "", false
}

// drain applies every queued command. Command errors are logged, not fatal.
func (r *Runner) drain() {
	for {
		select {
		case cmd := <-r.commands:
			if err := cmd(r.game); err != nil {
				r.logger.Warn("Command failed", zap.Error(err))
			}
		default:
			return
		}
	}
}

// Game returns the game driven by r. It must only be touched from Run's goroutine
// or after Run has returned.
func (r *Runner) Game() *drive.Game { return r.game }
