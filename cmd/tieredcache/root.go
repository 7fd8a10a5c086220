package main

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags.
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "tieredcache",
	Short: "Tiered memoization cache with a local and a Redis tier",
	Long: `tieredcache runs a two-tier cache: an in-process store in front of an
optional shared Redis tier. Remote failures degrade to the local tier and
are never fatal.

Examples:
  # Run a node with health, metrics and stats endpoints
  tieredcache serve --config tieredcache.yaml

  # Walk through set, get, expiry and memoization on a fresh engine
  tieredcache demo`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file (default $TIEREDCACHE_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override observe.log_level")
}
