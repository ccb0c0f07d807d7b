package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/momentics/hioload-relay/control"
)

var rootCmd = &cobra.Command{
	Use:   "relayctl",
	Short: "relayctl runs and inspects hioload-relay runtimes",
	Long: `relayctl hosts a request machine on a single event loop: producers push
requests into a funnel and the machine turns some of them into job machines.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "YAML configuration file")
}

// loadConfig returns the defaults when no file is given.
func loadConfig(cmd *cobra.Command) (*control.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	if path == "" {
		return control.DefaultConfig(), nil
	}
	return control.LoadConfig(path)
}
