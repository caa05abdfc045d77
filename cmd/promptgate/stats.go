package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/promptgate-ai/promptgate/pkg/tracker"
)

func newStatsCmd() *cobra.Command {
	var (
		configPath  string
		model       string
		adversarial bool
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show usage, cost, and blocked-prompt statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			tr, err := tracker.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer tr.Close()

			ctx := context.Background()

			if adversarial {
				events, err := tr.RecentAdversarial(ctx, limit)
				if err != nil {
					return err
				}
				if len(events) == 0 {
					fmt.Println("No blocked prompts recorded.")
					return nil
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "TIME\tPATTERNS\tQUESTION")
				for _, ev := range events {
					fmt.Fprintf(w, "%s\t%d\t%s\n",
						ev.CreatedAt.Format("2006-01-02T15:04:05"), ev.PatternCount, ev.Question)
				}
				return w.Flush()
			}

			summaries, err := tr.Summary(ctx, model)
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Println("No usage data found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MODEL\tREQUESTS\tFAILURES\tPROMPT\tTOTAL\tCOST (USD)")
			for _, s := range summaries {
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%.5f\n",
					s.Model, s.RequestCount, s.Failures, s.TotalPrompt, s.TotalTokens, s.TotalCostUSD)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&model, "model", "", "filter by model")
	cmd.Flags().BoolVar(&adversarial, "adversarial", false, "list recent blocked prompts")
	cmd.Flags().IntVar(&limit, "limit", 20, "max blocked prompts to show")
	return cmd
}
