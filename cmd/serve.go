package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/caroline-springs-cc/pitchbot/internal/bridge"
	"github.com/caroline-springs-cc/pitchbot/internal/gateway"
	"github.com/caroline-springs-cc/pitchbot/internal/syncer"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP gateway, sync scheduler, and optional chat bridge",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		// A fresh deployment has nothing indexed; an old one has stale
		// data. Either way kick a pass without blocking startup.
		a.orch.Trigger(syncer.ReasonStartup)

		sched := syncer.NewScheduler(a.orch, a.cache,
			cfg.Sync.NightlyHourUTC,
			time.Duration(cfg.Sync.MatchDayIntervalMins)*time.Minute,
		)

		srv := gateway.New(a.svc, a.orch, a.store, gateway.Config{
			Port:           cfg.Server.Port,
			RefreshToken:   cfg.Server.RefreshToken,
			RequestTimeout: time.Duration(cfg.Server.RequestTimeoutSecs) * time.Second,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		})

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			sched.Run(ctx)
			return nil
		})
		g.Go(func() error {
			return srv.Start(ctx)
		})

		if cfg.Bridge.Enabled {
			session := bridge.NewWSSession(cfg.Bridge.GatewayURL, cfg.Bridge.Token)
			br := bridge.New(session, a.svc, bridge.Config{
				BotID:            cfg.Bridge.BotID,
				CommandPrefix:    cfg.Bridge.CommandPrefix,
				Mention:          cfg.Bridge.Mention,
				Workers:          cfg.Bridge.Workers,
				InboundBuffer:    cfg.Bridge.InboundBuffer,
				ReconnectInitial: time.Duration(cfg.Bridge.ReconnectInitialMS) * time.Millisecond,
				ReconnectMax:     time.Duration(cfg.Bridge.ReconnectMaxMS) * time.Millisecond,
			})
			g.Go(func() error {
				defer session.Close()
				return br.Run(ctx)
			})
		}

		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		zap.L().Info("shutdown complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
