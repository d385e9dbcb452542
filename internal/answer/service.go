package answer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/caroline-springs-cc/pitchbot/internal/index"
)

// Answer sources.
const (
	SourceAPI   = "api"
	SourceIndex = "index"
	SourceCache = "cache"
)

// Envelope wraps every answer with routing metadata.
type Envelope struct {
	Answer    string `json:"answer"`
	Intent    Intent `json:"intent"`
	LatencyMS int64  `json:"latency_ms"`
	Source    string `json:"source"`
}

// Generator phrases a grounded answer from retrieved facts. Satisfied by
// pkg/anthropic.Generator.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// Retriever is the slice of the index the service queries.
type Retriever interface {
	Query(ctx context.Context, text string, filter index.Filter, k int) ([]index.Hit, error)
}

// Service answers questions: deterministic resolvers for the closed intent
// set, retrieval plus generation for everything else.
type Service struct {
	cache     *EntityCache
	retriever Retriever
	generator Generator
	clubName  string
	topK      int
}

// NewService wires the answer service.
func NewService(cache *EntityCache, retriever Retriever, generator Generator, clubName string, topK int) *Service {
	if topK <= 0 {
		topK = 6
	}
	return &Service{
		cache:     cache,
		retriever: retriever,
		generator: generator,
		clubName:  clubName,
		topK:      topK,
	}
}

const generateSystem = `You answer questions for a community cricket club using ONLY the facts provided in the user message. Rules:
- Use only the provided facts. If the facts do not answer the question, say you don't know and suggest asking about fixtures, ladder position, or recent results.
- Copy every number exactly as it appears in the facts. Never compute, estimate, or invent numbers.
- Answer in one to three friendly sentences.`

// Ask routes and answers one question.
func (s *Service) Ask(ctx context.Context, text string) Envelope {
	started := time.Now()
	env := s.ask(ctx, text, started)
	env.LatencyMS = time.Since(started).Milliseconds()

	zap.L().Info("question answered",
		zap.String("intent", string(env.Intent)),
		zap.String("source", env.Source),
		zap.Int64("latency_ms", env.LatencyMS))
	return env
}

func (s *Service) ask(ctx context.Context, text string, now time.Time) Envelope {
	snap := s.cache.Get()
	if snap == nil {
		// No snapshot yet (process restarted before its first sync), but
		// the index is warm-started from the store: serve whatever it
		// already holds and apologize only when that too is empty.
		return s.retrieve(ctx, text, IntentGeneric, apologyNoData)
	}

	cls := Classify(text, snap)
	env := Envelope{Intent: cls.Intent, Source: SourceCache}

	var answer string
	var ok bool
	switch cls.Intent {
	case IntentNextFixture:
		answer, ok = resolveNextFixture(snap, cls.Team, now)
	case IntentFixturesList:
		answer, ok = resolveFixturesList(snap, cls.Team, now)
	case IntentLadderPosition:
		answer, ok = resolveLadderPosition(snap, cls.Team)
	case IntentTeamRoster:
		answer, ok = resolveTeamRoster(snap, cls.Team)
	case IntentPlayerTeam:
		if cls.PlayerMentioned {
			return envelopeWith(env, clarifyPlayer)
		}
		answer, ok = resolvePlayerTeam(snap, cls.Player)
	case IntentPlayerLastRuns:
		if cls.PlayerMentioned {
			return envelopeWith(env, clarifyPlayer)
		}
		answer, ok = resolvePlayerLastRuns(snap, cls.Player)
	}

	if ok {
		return envelopeWith(env, answer)
	}

	// Deterministic path came up empty (or the intent was generic):
	// retrieve and phrase.
	return s.generic(ctx, text, cls.Intent)
}

func envelopeWith(env Envelope, answer string) Envelope {
	env.Answer = answer
	return env
}

func (s *Service) generic(ctx context.Context, text string, intent Intent) Envelope {
	return s.retrieve(ctx, text, intent, fmt.Sprintf(
		"I don't have anything on that yet. Try asking about %s fixtures, ladder position, or recent results.",
		s.clubName))
}

// retrieve runs the retrieval-plus-generation path, answering noHits when
// the index returns nothing.
func (s *Service) retrieve(ctx context.Context, text string, intent Intent, noHits string) Envelope {
	env := Envelope{Intent: intent, Source: SourceIndex}

	hits, err := s.retriever.Query(ctx, text, index.Filter{}, s.topK)
	if err != nil {
		zap.L().Warn("retrieval failed", zap.Error(err))
		return envelopeWith(env, apologyNoData)
	}
	if len(hits) == 0 {
		return envelopeWith(env, noHits)
	}

	var facts strings.Builder
	facts.WriteString("Facts:\n")
	for _, h := range hits {
		facts.WriteString("- ")
		facts.WriteString(h.Document.Text)
		facts.WriteString("\n")
	}
	facts.WriteString("\nQuestion: ")
	facts.WriteString(text)

	answer, err := s.generator.Generate(ctx, generateSystem, facts.String())
	if err != nil {
		zap.L().Warn("answer generation failed", zap.Error(err))
		// Fall back to the raw top fact rather than failing the question.
		return envelopeWith(env, hits[0].Document.Text)
	}
	return envelopeWith(env, answer)
}
