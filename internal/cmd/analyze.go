package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jobinsight/jobinsight/internal/config"
)

var analyzeDays int

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run one analysis over the recent activity window",
	Long: `Analyze the collector's event database for the recent lookback window,
extract job-interest keywords through the configured LLM provider, and push
the result to Feishu if configured.`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().IntVarP(&analyzeDays, "days", "d", 0, "Days of activity to analyze (default: config lookback_days)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	days := analyzeDays
	if days <= 0 {
		days = cfg.Collector.LookbackDays
	}
	if days <= 0 {
		return fmt.Errorf("lookback window must be at least one day")
	}

	_, err = runOnce(cmd.Context(), cfg, days)
	return err
}
