package main

import (
	"context"
	"fmt"
	"time"

	"fleet-assistant/internal/chat/retention"
	"fleet-assistant/internal/common/logger"

	"github.com/spf13/cobra"
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete conversations older than the retention period and exit",
	RunE:  runPurge,
}

var purgeDays int

func init() {
	purgeCmd.Flags().IntVar(&purgeDays, "days", 0, "retention in days (default: chat.retention_days)")
}

func runPurge(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	if purgeDays > 0 {
		cfg.Chat.RetentionDays = purgeDays
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	in, err := connect(ctx, cfg, zapLog, false)
	if err != nil {
		return err
	}
	defer in.close()

	job := retention.NewJob(buildStore(cfg, in, log), nil,
		time.Duration(cfg.Chat.RetentionDays)*24*time.Hour, 0, log)
	res, err := job.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "purged %d conversations older than %d days\n", res.Purged, cfg.Chat.RetentionDays)
	return nil
}
