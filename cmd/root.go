package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/caroline-springs-cc/pitchbot/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "pitchbot",
	Short: "Fixtures and stats answering service for a community cricket club",
	Long:  "Syncs the club's fixtures, ladder, rosters, and scorecards from the PlayHQ API into a retrieval index, and answers questions over HTTP and chat.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
