package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobinsight/jobinsight/internal/config"
)

var scheduleTimeFormat = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the daily analysis scheduler",
	Long: `Run in the foreground and trigger the analysis pipeline once a day at the
configured time (schedule.time, HH:MM). Each trigger runs a 1-day and a
7-day analysis back to back. The config file is re-read on every tick, so
edits apply without a restart.`,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if !scheduleTimeFormat.MatchString(cfg.Schedule.Time) {
		return fmt.Errorf("invalid schedule.time %q, expected HH:MM", cfg.Schedule.Time)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Scheduler started, daily trigger at %s. Press Ctrl+C to exit.\n", cfg.Schedule.Time)

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	var lastFired string
	for {
		select {
		case <-ctx.Done():
			fmt.Println("Scheduler stopped")
			return nil
		case now := <-ticker.C:
			cfg, err := config.Load(configPath)
			if err != nil {
				logger.Warn("config reload failed", zap.Error(err))
				continue
			}
			target := cfg.Schedule.Time
			if !scheduleTimeFormat.MatchString(target) {
				logger.Warn("invalid schedule time in config", zap.String("time", target))
				continue
			}

			stamp := now.Format("2006-01-02") + " " + target
			if now.Format("15:04") != target || stamp == lastFired {
				continue
			}
			lastFired = stamp

			for _, days := range []int{1, 7} {
				if _, err := runOnce(ctx, cfg, days); err != nil {
					logger.Error("scheduled run failed", zap.Int("days", days), zap.Error(err))
				}
			}
		}
	}
}
