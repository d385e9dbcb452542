// Package syncer pulls the club's data from the upstream API and keeps the
// retrieval index and entity cache current. At most one sync pass runs at a
// time; triggers arriving mid-pass coalesce into a single follow-up pass.
package syncer

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/caroline-springs-cc/pitchbot/internal/answer"
	"github.com/caroline-springs-cc/pitchbot/internal/club"
	"github.com/caroline-springs-cc/pitchbot/internal/index"
	"github.com/caroline-springs-cc/pitchbot/internal/model"
	"github.com/caroline-springs-cc/pitchbot/internal/store"
	"github.com/caroline-springs-cc/pitchbot/pkg/playhq"
)

// State is the orchestrator's run state.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

// Outcome of the most recent completed pass.
const (
	OutcomeNever     = "never"
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// Status is a point-in-time snapshot of the orchestrator.
type Status struct {
	State        State      `json:"state"`
	LastOutcome  string     `json:"last_outcome"`
	LastStarted  *time.Time `json:"last_started,omitempty"`
	LastFinished *time.Time `json:"last_finished,omitempty"`
	Pending      bool       `json:"pending"`
}

// Config holds the knobs a sync pass needs.
type Config struct {
	ClubName            string
	OrganisationID      string
	SeasonName          string
	MaxSnippetTokens    int
	SummaryLookbackDays int
	GradeConcurrency    int
	PassTimeout         time.Duration
}

// Orchestrator owns the sync lifecycle.
type Orchestrator struct {
	client *playhq.Client
	index  *index.Index
	store  store.Store
	cache  *answer.EntityCache
	chunk  *club.Chunker
	cfg    Config

	mu            sync.Mutex
	state         State
	pending       bool
	pendingReason string
	lastOutcome   string
	lastStarted   *time.Time
	lastFinished  *time.Time
}

// New builds an idle orchestrator.
func New(client *playhq.Client, ix *index.Index, st store.Store, cache *answer.EntityCache, cfg Config) *Orchestrator {
	if cfg.GradeConcurrency <= 0 {
		cfg.GradeConcurrency = 4
	}
	if cfg.SummaryLookbackDays <= 0 {
		cfg.SummaryLookbackDays = 28
	}
	if cfg.PassTimeout <= 0 {
		cfg.PassTimeout = 15 * time.Minute
	}
	return &Orchestrator{
		client:      client,
		index:       ix,
		store:       st,
		cache:       cache,
		chunk:       club.NewChunker(cfg.MaxSnippetTokens),
		cfg:         cfg,
		state:       StateIdle,
		lastOutcome: OutcomeNever,
	}
}

// Status returns the current orchestrator state.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.statusLocked()
}

func (o *Orchestrator) statusLocked() Status {
	return Status{
		State:        o.state,
		LastOutcome:  o.lastOutcome,
		LastStarted:  o.lastStarted,
		LastFinished: o.lastFinished,
		Pending:      o.pending,
	}
}

// Trigger requests a sync pass and returns immediately with the current
// status. If a pass is already running the request is coalesced: any number
// of triggers during a pass produce exactly one follow-up pass.
func (o *Orchestrator) Trigger(reason string) Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == StateRunning {
		o.pending = true
		o.pendingReason = reason
		zap.L().Debug("sync trigger coalesced", zap.String("reason", reason))
		return o.statusLocked()
	}

	o.state = StateRunning
	now := time.Now().UTC()
	o.lastStarted = &now
	go o.runLoop(reason)
	return o.statusLocked()
}

// RunOnce executes a single blocking pass. Used by the one-shot CLI command;
// the serving path goes through Trigger.
func (o *Orchestrator) RunOnce(ctx context.Context, reason string) error {
	o.mu.Lock()
	if o.state == StateRunning {
		o.mu.Unlock()
		return eris.New("syncer: pass already running")
	}
	o.state = StateRunning
	now := time.Now().UTC()
	o.lastStarted = &now
	o.mu.Unlock()

	// Same coalescing contract as runLoop: a trigger landing mid-pass
	// yields one follow-up pass, not a dropped request.
	for {
		err := o.pass(ctx, reason)

		o.mu.Lock()
		o.recordOutcome(err)
		if !o.pending {
			o.state = StateIdle
			o.mu.Unlock()
			return err
		}
		o.pending = false
		reason = o.pendingReason
		started := time.Now().UTC()
		o.lastStarted = &started
		o.mu.Unlock()
	}
}

// runLoop executes the triggered pass plus at most one coalesced follow-up
// per completed pass.
func (o *Orchestrator) runLoop(reason string) {
	for {
		ctx, cancel := context.WithTimeout(context.Background(), o.cfg.PassTimeout)
		err := o.pass(ctx, reason)
		cancel()

		o.mu.Lock()
		o.recordOutcome(err)
		if !o.pending {
			o.state = StateIdle
			o.mu.Unlock()
			return
		}
		o.pending = false
		reason = o.pendingReason
		now := time.Now().UTC()
		o.lastStarted = &now
		o.mu.Unlock()
	}
}

func (o *Orchestrator) recordOutcome(err error) {
	now := time.Now().UTC()
	o.lastFinished = &now
	if err != nil {
		o.lastOutcome = OutcomeFailed
	} else {
		o.lastOutcome = OutcomeSucceeded
	}
}

// pass pulls, normalizes, chunks, and indexes one full snapshot of the
// club's data. On upstream failure the pass aborts without deleting
// anything, so previously indexed documents keep serving.
func (o *Orchestrator) pass(ctx context.Context, reason string) (err error) {
	log := zap.L().With(zap.String("reason", reason))
	log.Info("sync pass started")
	started := time.Now()

	syncID, logErr := o.store.StartSync(ctx, reason)
	if logErr != nil {
		return logErr
	}
	defer func() {
		if err != nil {
			log.Error("sync pass failed", zap.Error(err), zap.Duration("elapsed", time.Since(started)))
			if ferr := o.store.FailSync(context.WithoutCancel(ctx), syncID, err.Error()); ferr != nil {
				log.Warn("record sync failure", zap.Error(ferr))
			}
		}
	}()

	pull, err := o.pull(ctx)
	if err != nil {
		return err
	}

	docs, snap := o.assemble(pull)

	res, err := o.index.Upsert(ctx, docs)
	if err != nil {
		return err
	}

	// Deletion only runs after a fully successful pull: a partial pull must
	// never interpret missing data as deleted entities.
	seen := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		seen[d.EntityKey] = struct{}{}
	}
	known, err := o.store.ListSyncKeys(ctx)
	if err != nil {
		return err
	}
	var stale []string
	for _, key := range known {
		if _, ok := seen[key]; !ok {
			stale = append(stale, key)
		}
	}
	if err := o.index.Delete(ctx, stale); err != nil {
		return err
	}

	o.cache.Swap(snap)

	if err := o.store.CompleteSync(ctx, syncID, int64(res.Upserted+res.Skipped)); err != nil {
		return err
	}

	log.Info("sync pass complete",
		zap.Int("upserted", res.Upserted),
		zap.Int("skipped", res.Skipped),
		zap.Int("deleted", len(stale)),
		zap.Duration("elapsed", time.Since(started)))
	return nil
}

// pullResult is everything a pass fetched, normalized, before chunking.
type pullResult struct {
	season    model.Season
	grades    []model.Grade
	teams     []model.Team // club teams only
	fixtures  map[string][]model.Fixture
	ladders   map[string][]model.LadderEntry
	rosters   map[string][]model.RosterEntry
	summaries map[string]model.GameSummary
}

func (o *Orchestrator) pull(ctx context.Context) (*pullResult, error) {
	rawSeasons, err := o.client.Seasons(ctx, o.cfg.OrganisationID)
	if err != nil {
		return nil, err
	}
	season, ok := pickSeason(club.NormalizeSeasons(rawSeasons), o.cfg.SeasonName, time.Now().UTC())
	if !ok {
		return nil, eris.Errorf("syncer: no season matching %q", o.cfg.SeasonName)
	}

	rawGrades, err := o.client.Grades(ctx, season.ID)
	if err != nil {
		return nil, err
	}
	grades := club.NormalizeGrades(rawGrades, season.ID)

	res := &pullResult{
		season:    season,
		fixtures:  make(map[string][]model.Fixture),
		ladders:   make(map[string][]model.LadderEntry),
		rosters:   make(map[string][]model.RosterEntry),
		summaries: make(map[string]model.GameSummary),
	}

	var resMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.GradeConcurrency)

	for _, grade := range grades {
		g.Go(func() error {
			rawTeams, err := o.client.Teams(gctx, grade.ID)
			if err != nil {
				return err
			}
			var ours []model.Team
			for _, t := range club.NormalizeTeams(rawTeams, grade.ID) {
				if club.NameMatches(t.Name, o.cfg.ClubName) {
					ours = append(ours, t)
				}
			}
			if len(ours) == 0 {
				return nil
			}

			rawLadder, err := o.client.Ladder(gctx, grade.ID)
			if err != nil {
				return err
			}
			ladder := club.NormalizeLadder(rawLadder, grade.ID)

			type teamData struct {
				team     model.Team
				fixtures []model.Fixture
				roster   []model.RosterEntry
			}
			perTeam := make([]teamData, 0, len(ours))
			for _, team := range ours {
				rawFixtures, err := o.client.TeamFixtures(gctx, team.ID, season.ID)
				if err != nil {
					return err
				}
				fixtures := club.NormalizeFixtures(rawFixtures, grade.ID)
				sort.Slice(fixtures, func(i, j int) bool {
					return fixtures[i].ScheduledAt.Before(fixtures[j].ScheduledAt)
				})

				rawRoster, err := o.client.TeamRoster(gctx, team.ID)
				if err != nil {
					return err
				}
				perTeam = append(perTeam, teamData{
					team:     team,
					fixtures: fixtures,
					roster:   club.NormalizeRoster(rawRoster, team.ID),
				})
			}

			summaries := make(map[string]model.GameSummary)
			cutoff := time.Now().UTC().AddDate(0, 0, -o.cfg.SummaryLookbackDays)
			for _, td := range perTeam {
				for _, f := range td.fixtures {
					if f.Status != model.FixtureCompleted || f.ScheduledAt.Before(cutoff) {
						continue
					}
					if _, done := summaries[f.ID]; done {
						continue
					}
					rawSummary, err := o.client.GameSummary(gctx, f.ID)
					if err != nil {
						return err
					}
					if s := club.NormalizeSummary(rawSummary, f.ID); s != nil {
						summaries[f.ID] = *s
					}
				}
			}

			resMu.Lock()
			defer resMu.Unlock()
			res.grades = append(res.grades, grade)
			res.ladders[grade.ID] = ladder
			for _, td := range perTeam {
				res.teams = append(res.teams, td.team)
				res.fixtures[td.team.ID] = td.fixtures
				res.rosters[td.team.ID] = td.roster
			}
			for id, s := range summaries {
				res.summaries[id] = s
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(res.grades, func(i, j int) bool { return res.grades[i].Name < res.grades[j].Name })
	sort.Slice(res.teams, func(i, j int) bool { return res.teams[i].Name < res.teams[j].Name })
	return res, nil
}

// assemble renders the pull into index documents and the entity snapshot.
func (o *Orchestrator) assemble(pull *pullResult) ([]model.Document, *answer.Snapshot) {
	now := time.Now().UTC()
	gradeNames := make(map[string]string, len(pull.grades))
	for _, g := range pull.grades {
		gradeNames[g.ID] = g.Name
	}

	var docs []model.Document
	// Two club teams can share a fixture (an intra-club derby); chunk each
	// fixture and its summary exactly once.
	chunked := make(map[string]struct{})
	for _, team := range pull.teams {
		for _, f := range pull.fixtures[team.ID] {
			if _, done := chunked[f.ID]; done {
				continue
			}
			chunked[f.ID] = struct{}{}
			docs = append(docs, o.chunk.Fixture(f, pull.season.ID, team.ID, now))
			if s, ok := pull.summaries[f.ID]; ok {
				docs = append(docs, o.chunk.Summary(s, f, team.ID, pull.season.ID, now)...)
			}
		}
		docs = append(docs, o.chunk.Roster(team, pull.rosters[team.ID], pull.season.ID, now)...)
	}
	for gradeID, ladder := range pull.ladders {
		for _, row := range ladder {
			docs = append(docs, o.chunk.LadderEntry(row, gradeNames[gradeID], pull.season.ID, len(ladder), now))
		}
	}

	snap := &answer.Snapshot{
		SeasonID:   pull.season.ID,
		SeasonName: pull.season.Name,
		GradeNames: gradeNames,
		Teams:      pull.teams,
		Fixtures:   pull.fixtures,
		Ladders:    pull.ladders,
		Rosters:    pull.rosters,
		Summaries:  pull.summaries,
		BuiltAt:    now,
	}
	return docs, snap
}

// pickSeason selects the season by name when configured, otherwise the
// season covering now, otherwise the most recently started one.
func pickSeason(seasons []model.Season, name string, now time.Time) (model.Season, bool) {
	if len(seasons) == 0 {
		return model.Season{}, false
	}
	if name != "" {
		for _, s := range seasons {
			if club.FoldName(s.Name) == club.FoldName(name) {
				return s, true
			}
		}
		return model.Season{}, false
	}
	sort.Slice(seasons, func(i, j int) bool { return seasons[i].StartDate.After(seasons[j].StartDate) })
	for _, s := range seasons {
		if !now.Before(s.StartDate) && !now.After(s.EndDate) {
			return s, true
		}
	}
	return seasons[0], true
}
