// Package main provides the tieredcache CLI: a long-running cache node that
// exposes health probes, metrics and statistics, plus a self-contained demo.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
