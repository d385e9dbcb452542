package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/caroline-springs-cc/pitchbot/internal/syncer"
)

var askSync bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer one question from the terminal",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if askSync {
			if err := a.orch.RunOnce(ctx, syncer.ReasonManual); err != nil {
				return err
			}
		}

		env := a.svc.Ask(ctx, strings.Join(args, " "))
		fmt.Println(env.Answer)
		fmt.Printf("\n[intent=%s source=%s latency=%dms]\n", env.Intent, env.Source, env.LatencyMS)
		return nil
	},
}

func init() {
	askCmd.Flags().BoolVar(&askSync, "sync", false, "run a sync pass before answering")
	rootCmd.AddCommand(askCmd)
}
