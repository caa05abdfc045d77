package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "promptgate",
		Short:   "Adversarial prompt screening gate with an audit trail",
		Version: version,
	}

	root.AddCommand(
		newAskCmd(),
		newServeCmd(),
		newStatsCmd(),
		newLogsCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
