package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/promptgate-ai/promptgate/pkg/audit"
)

func newLogsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show row counts for the CSV audit logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			logger, err := audit.New(cfg.LogDir)
			if err != nil {
				return err
			}

			stats, err := logger.Stats()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "LOG\tROWS")
			fmt.Fprintf(w, "metrics.csv\t%d\n", stats.MetricsCount)
			fmt.Fprintf(w, "errors.csv\t%d\n", stats.ErrorCount)
			fmt.Fprintf(w, "adversarial.csv\t%d\n", stats.AdversarialCount)
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	return cmd
}
