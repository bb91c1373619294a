package main

import (
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "cardpipe",
	Short:         "Customer and card extract pipeline",
	Long:          "cardpipe ingests the semicolon-delimited customer and card extracts,\ncleans and validates them, writes cleaned and rejected outputs, and loads\nthe survivors into Postgres.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the pipeline JSON file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}
