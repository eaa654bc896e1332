package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lectern-ai/lectern/internal/app"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show course analytics for the configured docs directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStats(cmd)
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx := cmd.Context()
	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}

	if err := ingestStartupDocs(ctx, a, logger); err != nil {
		return err
	}

	total, titles := a.System.Stats()
	cmd.Printf("Courses: %d\n", total)
	for _, title := range titles {
		cmd.Printf("  - %s\n", title)
	}
	return nil
}
