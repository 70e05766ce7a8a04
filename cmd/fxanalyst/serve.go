package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pario-ai/fxanalyst/pkg/config"
	"github.com/pario-ai/fxanalyst/pkg/server"
)

func newServeCmd(configPath *string) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the analysis HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if listen != "" {
				cfg.Listen = listen
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			requester, c, err := newRequester(ctx, cfg, true)
			if err != nil {
				return err
			}

			var stats server.StatsSource
			if c != nil {
				defer func() { _ = c.Close() }()
				stats = c
			}

			srv := server.New(cfg, requester, stats)

			log.Printf("starting fxanalyst with config: %s (cache store: %s)", *configPath, cfg.Cache.Store)
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "listen address (overrides config)")
	return cmd
}
