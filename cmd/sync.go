package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/caroline-springs-cc/pitchbot/internal/syncer"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync pass and exit",
	Long:  "Pulls the club's season data from the upstream API, reindexes what changed, and exits. Suitable for cron.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.orch.RunOnce(ctx, syncer.ReasonManual); err != nil {
			return err
		}

		fmt.Printf("sync complete: %d documents indexed\n", a.index.Size())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
