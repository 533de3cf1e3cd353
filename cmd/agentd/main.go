// Package main implements the agentd CLI: a daemon that turns model
// responses into gated, audited workspace actions.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "agentd",
	Short: "Agent action daemon",
	Long: `agentd parses actions out of model-generated text, risk-classifies
them, gates them behind rate limits and approval policy, and executes
approved actions against a sandboxed workspace.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show detailed version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("agentd %s\n  commit: %s\n  built:  %s\n", version, gitCommit, buildDate)
	},
}
