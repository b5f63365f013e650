// Package main provides the statetable CLI: render a configured table against its data
// endpoint, or serve the reference endpoint over a SQL database.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Global flag values.
var (
	flagConfig    string
	flagLogLevel  string
	flagLogFormat string
	flagOTel      bool
)

var rootCmd = &cobra.Command{
	Use:           "statetable",
	Short:         "Render and serve state-synchronised data tables",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "table configuration file (yaml or json)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "log format: text or json")
	rootCmd.PersistentFlags().BoolVar(&flagOTel, "otel", false, "log through the OpenTelemetry bridge and report metrics and spans to the global providers")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
