package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lectern-ai/lectern/internal/app"
)

var ingestClear bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Parse and embed course documents from a folder",
	Long: `Reads every .txt course document in the folder, chunks it and embeds
it into the vector index. Without an argument the configured docs
directory is used. Already-indexed course titles are skipped unless
--clear is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := ""
		if len(args) > 0 {
			dir = args[0]
		}
		return runIngest(cmd, dir)
	},
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestClear, "clear", false, "drop all indexed data before ingesting")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, dir string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	if dir == "" {
		dir = cfg.DocsDir
	}

	ctx := cmd.Context()
	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}

	res, err := a.System.AddCourseFolder(ctx, dir, ingestClear)
	if err != nil {
		return fmt.Errorf("ingesting %s: %w", dir, err)
	}

	cmd.Printf("Ingested %d courses (%d chunks) from %s in %s\n",
		res.CoursesAdded, res.ChunksAdded, dir, res.Duration.Round(time.Millisecond))
	if res.CoursesSkipped > 0 {
		cmd.Printf("Skipped %d already-indexed courses\n", res.CoursesSkipped)
	}
	if res.FilesFailed > 0 {
		cmd.Printf("Failed to process %d files (see logs)\n", res.FilesFailed)
	}
	return nil
}
