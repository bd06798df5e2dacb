// Package main provides the entry point for the newsroom CLI and trigger server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "newsroom",
	Short: "Automated editorial pipeline for the jobs board",
	Long: `newsroom turns recent job listings into published articles: job roundups,
company spotlights, and market trend pieces, one article per run.

Configuration comes from environment variables (a .env file is loaded if present),
optionally layered over a JSON file passed with --config.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a JSON config file (environment variables take priority)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
