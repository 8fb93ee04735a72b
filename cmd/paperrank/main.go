// Package main is the entry point for the paperrank CLI. It ranks paper
// records offline and queries the configured paper sources without running
// the HTTP server.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/helixir/paper-rank-service/internal/config"
	"github.com/helixir/paper-rank-service/internal/observability"
)

// rootCmd is the base command for the paperrank CLI.
var rootCmd = &cobra.Command{
	Use:   "paperrank",
	Short: "Rank research papers against a descriptive query",
	Long: `paperrank scores paper abstracts against a verbose research description
with Okapi BM25, and searches PubMed, arXiv, Semantic Scholar, CrossRef and
Google Scholar for candidate papers.

Records are read and written as JSON arrays in the same shape the HTTP API
uses, so the output of "search" can be piped into "rank".`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./config.yaml, ./config/config.yaml or /etc/paper-rank-service/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level written to stderr")
}

// loadConfig reads the configuration named by --config, or the default
// search paths when the flag is empty.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	file, _ := cmd.Flags().GetString("config")
	if file == "" {
		return config.Load()
	}
	return config.LoadFrom(file)
}

// newLogger returns a console logger on stderr so stdout stays valid JSON.
func newLogger(cmd *cobra.Command) zerolog.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	return observability.NewLogger(observability.LoggingConfig{
		Level:  level,
		Format: "console",
		Output: "stderr",
	}).With().Str("component", "cli").Logger()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
