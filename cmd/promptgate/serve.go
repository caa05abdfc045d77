package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/promptgate-ai/promptgate/pkg/audit"
	"github.com/promptgate-ai/promptgate/pkg/detector"
	"github.com/promptgate-ai/promptgate/pkg/proxy"
	"github.com/promptgate-ai/promptgate/pkg/tracker"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		listen     string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the screening proxy in front of the provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}

			det, err := detector.NewWithRules(cfg.Detector.RulesByCategory())
			if err != nil {
				return err
			}

			logger, err := audit.Default(cfg.LogDir)
			if err != nil {
				return err
			}

			tr, err := tracker.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer tr.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := proxy.New(cfg, det, logger, tr)
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides config)")
	return cmd
}
