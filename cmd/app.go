package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/caroline-springs-cc/pitchbot/internal/answer"
	"github.com/caroline-springs-cc/pitchbot/internal/index"
	"github.com/caroline-springs-cc/pitchbot/internal/resilience"
	"github.com/caroline-springs-cc/pitchbot/internal/store"
	"github.com/caroline-springs-cc/pitchbot/internal/syncer"
	"github.com/caroline-springs-cc/pitchbot/pkg/anthropic"
	"github.com/caroline-springs-cc/pitchbot/pkg/playhq"
)

// app holds the wired core shared by serve, sync, and ask.
type app struct {
	store store.Store
	index *index.Index
	cache *answer.EntityCache
	orch  *syncer.Orchestrator
	svc   *answer.Service
}

// buildApp constructs and warms the core: store, index, upstream client,
// orchestrator, and answer service.
func buildApp(ctx context.Context) (*app, error) {
	st, err := newStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	emb, err := index.NewEmbedder(
		cfg.Embedding.Provider,
		cfg.Embedding.Key,
		cfg.Embedding.Model,
		cfg.Embedding.Dimensions,
	)
	if err != nil {
		st.Close()
		return nil, err
	}

	ix := index.New(st, emb)
	if err := ix.Load(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "warm index")
	}

	client := playhq.NewClient(
		cfg.PlayHQ.BaseURL,
		cfg.PlayHQ.APIKey,
		cfg.PlayHQ.Tenant,
		playhq.WithRequestsPerMinute(cfg.PlayHQ.RequestsPerMinute),
		playhq.WithRetryConfig(retryConfig()),
		playhq.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.PlayHQ.TimeoutSecs) * time.Second,
		}),
	)

	cache := answer.NewEntityCache()
	orch := syncer.New(client, ix, st, cache, syncer.Config{
		ClubName:            cfg.Club.Name,
		OrganisationID:      cfg.Club.OrganisationID,
		SeasonName:          cfg.Club.SeasonName,
		MaxSnippetTokens:    cfg.Answer.MaxSnippetTokens,
		SummaryLookbackDays: cfg.Sync.SummaryLookbackDays,
		GradeConcurrency:    cfg.Sync.GradeConcurrency,
	})

	gen := anthropic.NewGenerator(
		anthropic.NewClient(cfg.Anthropic.Key),
		cfg.Anthropic.Model,
		cfg.Anthropic.MaxTokens,
	)
	svc := answer.NewService(cache, ix, gen, cfg.Club.Name, cfg.Answer.TopK)

	zap.L().Info("core ready",
		zap.String("club", cfg.Club.Name),
		zap.String("store", cfg.Store.Driver),
		zap.Int("indexed_documents", ix.Size()),
	)

	return &app{store: st, index: ix, cache: cache, orch: orch, svc: svc}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}

func newStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func retryConfig() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    cfg.PlayHQ.MaxAttempts,
		InitialBackoff: time.Duration(cfg.PlayHQ.InitialBackoffMS) * time.Millisecond,
		MaxBackoff:     time.Duration(cfg.PlayHQ.MaxBackoffMS) * time.Millisecond,
		Multiplier:     cfg.PlayHQ.BackoffMultiplier,
		JitterFraction: cfg.PlayHQ.JitterFraction,
	}
}
