package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath  string
	logFile     string
	metricsAddr string

	rootCmd = &cobra.Command{
		Use:           "repairdesk",
		Short:         "Search repair tickets and purchases of a repair shop",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default $REPAIRDESK_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this file instead of stderr")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve /metrics and /healthz on this address while the command runs")

	rootCmd.AddCommand(
		newSearchCmd("tickets", "Interactive repair ticket search", kindTicket),
		newSearchCmd("purchases", "Interactive purchase search", kindPurchase),
		newFacetsCmd(),
		newLookupCmd(),
		newDiagnosticsCmd(),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
