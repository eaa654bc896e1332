package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version information (injected at build time via ldflags).
var (
	Version   = "development"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVersion(cmd)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command) error {
	cmd.Printf("Lectern %s\n", Version)
	cmd.Printf("Build Time: %s\n", BuildTime)
	cmd.Printf("Git Commit: %s\n", GitCommit)

	cfg, err := loadConfig()
	if err != nil {
		// Version must print even with broken configuration.
		cmd.Printf("\nConfiguration: unavailable (%v)\n", err)
		return nil
	}

	cmd.Println("\nConfiguration:")
	cmd.Printf("  Provider: %s\n", cfg.Provider)
	cmd.Printf("  Model: %s\n", cfg.ModelName)
	cmd.Printf("  Embedder: %s\n", cfg.EmbedderModel)
	cmd.Printf("  Max tokens: %d\n", cfg.MaxTokens)
	cmd.Printf("  Docs dir: %s\n", cfg.DocsDir)

	if key := os.Getenv("GEMINI_API_KEY"); key != "" && len(key) >= 8 {
		cmd.Printf("  GEMINI_API_KEY: %s...%s (configured)\n", key[:4], key[len(key)-4:])
	} else {
		cmd.Println("  GEMINI_API_KEY: Not set")
	}
	return nil
}
