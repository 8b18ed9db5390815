package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var (
	flagURL        string
	flagAccessCode string
	flagJSON       bool
	flagDebug      bool
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "deskctl",
		Short: "CLI for the Repair Desk backend",
		Long:  "A command-line interface for booking in repair jobs, moving them through their statuses, printing receipts and exporting the job list.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&flagURL, "url", "", "API server URL (env: REPAIR_DESK_URL)")
	rootCmd.PersistentFlags().StringVar(&flagAccessCode, "access-code", "", "Shop access code (env: REPAIR_DESK_ACCESS_CODE)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug output")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "deskctl %s (commit: %s, built: %s)\n", Version, Commit, BuildDate)
		},
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newJobsCmd())
	rootCmd.AddCommand(newExportCmd())
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
