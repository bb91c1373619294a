package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cardpipe/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the pipeline configuration and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		issues := config.ValidatePipeline(cfg)
		for _, issue := range issues {
			fmt.Fprintln(cmd.OutOrStdout(), issue.Error())
		}
		if config.HasErrors(issues) {
			return fmt.Errorf("configuration is invalid")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "configuration OK")
		return nil
	},
}
