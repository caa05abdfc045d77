package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/promptgate-ai/promptgate/pkg/audit"
	"github.com/promptgate-ai/promptgate/pkg/config"
	"github.com/promptgate-ai/promptgate/pkg/detector"
	"github.com/promptgate-ai/promptgate/pkg/pipeline"
	"github.com/promptgate-ai/promptgate/pkg/provider"
	"github.com/promptgate-ai/promptgate/pkg/tracker"
)

func newAskCmd() *cobra.Command {
	var (
		configPath string
		technique  string
		model      string
	)

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Screen a question and, if clean, answer it via the provider",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if model != "" {
				cfg.Model = model
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

			client := provider.New(cfg.Provider.URL, cfg.Provider.APIKey)
			p := pipeline.New(cfg, det, client, logger, tr)

			question := strings.Join(args, " ")
			result := p.Process(context.Background(), question, technique)

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("encode result: %w", err)
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&technique, "technique", "", "prompting technique (few_shot, simple, chain_of_thought)")
	cmd.Flags().StringVar(&model, "model", "", "override the configured model")
	return cmd
}

// loadConfig loads YAML config from path, falling back to
// promptgate.yaml in the working directory, then to defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	if _, err := os.Stat("promptgate.yaml"); err == nil {
		return config.Load("promptgate.yaml")
	}
	return config.Default(), nil
}
