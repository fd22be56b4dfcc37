// Package main implements the priorityforge command. It serves the ranking
// engine over HTTP or MCP stdio, manages the database schema, and ranks YAML
// task files offline.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Unobtainiumrock/priority-forge-sub000/internal/config"
)

// version is reported by --version.
var version = "1.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "priorityforge",
		Short: "Priority ranking engine for cross-project task queues",
		Long: `priorityforge keeps tasks ranked by priority and heuristic factors and
learns heuristic weights from manual reorders.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"config file (defaults to ./config.yaml or ./config/config.yaml)")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newMCPCmd(opts),
		newMigrateCmd(opts),
		newRankCmd(),
	)
	return rootCmd
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}
