package syncer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/caroline-springs-cc/pitchbot/internal/answer"
	"github.com/caroline-springs-cc/pitchbot/internal/model"
)

// Trigger reasons recorded in the sync log.
const (
	ReasonNightly  = "nightly"
	ReasonMatchDay = "match_day"
	ReasonManual   = "manual"
	ReasonStartup  = "startup"
)

// NextNightly returns the next occurrence of the nightly sync hour (UTC)
// strictly after now.
func NextNightly(now time.Time, hourUTC int) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hourUTC, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// IsMatchDay reports whether any fixture is scheduled on the same day as
// now, compared in the fixture's own local time. Cancelled fixtures don't
// make a match day.
func IsMatchDay(fixtures []model.Fixture, now time.Time) bool {
	for _, f := range fixtures {
		if f.Status == model.FixtureCancelled {
			continue
		}
		local := now.In(f.ScheduledAt.Location())
		fy, fm, fd := f.ScheduledAt.Date()
		ny, nm, nd := local.Date()
		if fy == ny && fm == nm && fd == nd {
			return true
		}
	}
	return false
}

// NextRun picks the next wake-up: the nightly tick, tightened to the
// match-day interval when today has a fixture.
func NextRun(now time.Time, fixtures []model.Fixture, nightlyHourUTC int, matchDayInterval time.Duration) (time.Time, string) {
	nightly := NextNightly(now, nightlyHourUTC)
	if matchDayInterval > 0 && IsMatchDay(fixtures, now) {
		dense := now.Add(matchDayInterval)
		if dense.Before(nightly) {
			return dense, ReasonMatchDay
		}
	}
	return nightly, ReasonNightly
}

// Scheduler drives the orchestrator on the nightly + match-day cadence.
type Scheduler struct {
	orch             *Orchestrator
	cache            *answer.EntityCache
	nightlyHourUTC   int
	matchDayInterval time.Duration
}

// NewScheduler wires a scheduler over an orchestrator. The entity cache
// supplies the fixture list that decides whether today is a match day.
func NewScheduler(orch *Orchestrator, cache *answer.EntityCache, nightlyHourUTC int, matchDayInterval time.Duration) *Scheduler {
	return &Scheduler{
		orch:             orch,
		cache:            cache,
		nightlyHourUTC:   nightlyHourUTC,
		matchDayInterval: matchDayInterval,
	}
}

// Run blocks until ctx is done, triggering syncs on cadence. Triggers are
// fire-and-forget; if a pass is still running when the next tick fires, the
// trigger coalesces instead of stacking.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		next, reason := NextRun(time.Now().UTC(), s.fixtures(), s.nightlyHourUTC, s.matchDayInterval)
		timer := time.NewTimer(time.Until(next))
		zap.L().Debug("sync scheduled", zap.Time("at", next), zap.String("reason", reason))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.orch.Trigger(reason)
		}
	}
}

func (s *Scheduler) fixtures() []model.Fixture {
	snap := s.cache.Get()
	if snap == nil {
		return nil
	}
	var all []model.Fixture
	for _, fs := range snap.Fixtures {
		all = append(all, fs...)
	}
	return all
}
