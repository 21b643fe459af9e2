// Package main provides the rootsearch CLI entry point.
package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	configPath string
	verbose    bool
	logger     *log.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "rootsearch",
	Short: "Entity resolution and leverage scoring for research problem graphs",
	Long: `rootsearch deduplicates extracted research problems into canonical
nodes, assembles the dependency graph and ranks every node by its
leverage: cascade reach, cross-field span and bottleneck centrality.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "rootsearch"})
		if verbose {
			logger.SetLevel(log.DebugLevel)
		}
		if err := godotenv.Load(); err != nil {
			logger.Debug("no .env file found, using environment")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to TOML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.Version = Version
}
