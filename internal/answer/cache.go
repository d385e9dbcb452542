// Package answer routes questions to deterministic resolvers or the
// retrieval-backed generative path, and composes the final reply.
package answer

import (
	"sync"
	"time"

	"github.com/caroline-springs-cc/pitchbot/internal/model"
)

// Snapshot is a read-only view of the club's current entities, rebuilt by
// each successful sync pass. Resolvers read numbers straight from it, never
// from generated text.
type Snapshot struct {
	SeasonID   string
	SeasonName string

	// GradeNames maps grade ID to display name.
	GradeNames map[string]string

	// Teams are the club's teams across all grades.
	Teams []model.Team

	// Fixtures per club team, sorted by scheduled time ascending.
	Fixtures map[string][]model.Fixture

	// Ladders per grade, sorted by position ascending.
	Ladders map[string][]model.LadderEntry

	// Rosters per club team.
	Rosters map[string][]model.RosterEntry

	// Summaries of completed fixtures, keyed by fixture ID.
	Summaries map[string]model.GameSummary

	BuiltAt time.Time
}

// TeamByID returns the club team with the given ID.
func (s *Snapshot) TeamByID(id string) (model.Team, bool) {
	for _, t := range s.Teams {
		if t.ID == id {
			return t, true
		}
	}
	return model.Team{}, false
}

// EntityCache hands out the latest snapshot to concurrent readers while the
// syncer swaps in new ones. Readers always see a complete snapshot, never a
// half-built one.
type EntityCache struct {
	mu   sync.RWMutex
	snap *Snapshot
}

// NewEntityCache returns an empty cache. Get returns nil until the first
// Swap.
func NewEntityCache() *EntityCache {
	return &EntityCache{}
}

// Get returns the current snapshot, or nil when no sync has completed yet.
func (c *EntityCache) Get() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Swap publishes a new snapshot.
func (c *EntityCache) Swap(snap *Snapshot) {
	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()
}
