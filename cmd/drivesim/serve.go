package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/baldhumanity/neat-drive/drive"
	"github.com/baldhumanity/neat-drive/runner"
	"github.com/baldhumanity/neat-drive/transport"
)

type serveOptions struct {
	addr           string
	ticksPerSecond float64
	tickLimit      int
	every          int
}

func newServeCmd(a *app) *cobra.Command {
	opts := serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the simulation in real time and stream it over a websocket.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), a, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.addr, "addr", "127.0.0.1:8080", "listen address")
	f.Float64Var(&opts.ticksPerSecond, "tps", 60, "ticks per second")
	f.IntVar(&opts.tickLimit, "tick-limit", defaultTickLimit, "force a new generation after this many ticks (0 = never)")
	f.IntVar(&opts.every, "every", 1, "broadcast every n-th snapshot")
	return cmd
}

func serve(ctx context.Context, a *app, opts serveOptions) error {
	hub := transport.NewHub(a.logger, nil, opts.every)

	game, err := drive.NewGame(a.config,
		drive.WithLogger(a.logger),
		drive.WithRenderer(hub),
		drive.WithInput(hub),
		drive.WithAudio(hub))
	if err != nil {
		return err
	}

	r := runner.New(game, a.logger, runner.Options{
		TicksPerSecond:      opts.ticksPerSecond,
		GenerationTickLimit: opts.tickLimit,
	})
	hub.SetSubmitter(r)

	listener, err := net.Listen("tcp", opts.addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: hub.Routes(), ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return r.Run(gctx)
	})
	g.Go(func() error {
		a.logger.Info("Serving", zap.String("addr", listener.Addr().String()))
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	a.logger.Info("Server stopped", zap.Int("generation", game.Generation()), zap.Int("ticks", game.TotalTicks()))
	return err
}
