package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lectern-ai/lectern/internal/app"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a one-shot question about the indexed courses",
	Long: `Ingests the configured docs directory, answers a single question and
prints the answer with its citations.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsk(cmd, strings.Join(args, " "))
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, question string) error {
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

	res, err := a.System.Query(ctx, question, "")
	if err != nil {
		return fmt.Errorf("answering question: %w", err)
	}

	cmd.Println(res.Answer)
	if len(res.Sources) > 0 {
		cmd.Println("\nSources:")
		for _, src := range res.Sources {
			if src.URL != "" {
				cmd.Printf("  - %s (%s)\n", src.Title(), src.URL)
			} else {
				cmd.Printf("  - %s\n", src.Title())
			}
		}
	}
	return nil
}
