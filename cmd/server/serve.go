package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"complyledger/internal/platform/config"
	"complyledger/internal/platform/httpserver"
	"complyledger/internal/platform/logger"
)

func serveCmd() *cobra.Command {
	var skipSeed bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the review scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, !skipSeed)
		},
	}
	cmd.Flags().String("addr", "", "listen address (overrides COMPLY_ADDR)")
	cmd.Flags().BoolVar(&skipSeed, "skip-seed", false, "do not seed baseline jurisdiction rules on start")
	return cmd
}

func serve(ctx context.Context, cfg config.Server, seed bool) error {
	log := logger.New(cfg.LogLevel)

	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if seed {
		if err := seedRules(ctx, a); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	if a.worker != nil {
		g.Go(func() error {
			if err := a.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		srv := httpserver.New(cfg.Addr, a.router())
		return httpserver.Run(ctx, srv, cfg.ShutdownGrace, log)
	})
	log.InfoContext(ctx, "complyledger started",
		"addr", cfg.Addr,
		"version", Version,
		"policy_version", cfg.Policy.Version,
		"review_worker", a.worker != nil,
	)
	return g.Wait()
}
