package syncer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/caroline-springs-cc/pitchbot/internal/model"
)

func TestNextNightly(t *testing.T) {
	now := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)

	next := NextNightly(now, 16)
	assert.Equal(t, time.Date(2026, 1, 15, 16, 0, 0, 0, time.UTC), next)

	// Past today's tick: tomorrow.
	next = NextNightly(now, 9)
	assert.Equal(t, time.Date(2026, 1, 16, 9, 0, 0, 0, time.UTC), next)

	// Exactly on the tick: tomorrow, never now.
	onTick := time.Date(2026, 1, 15, 16, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 1, 16, 16, 0, 0, 0, time.UTC), NextNightly(onTick, 16))
}

func TestIsMatchDay(t *testing.T) {
	melbourne, err := time.LoadLocation("Australia/Melbourne")
	assert.NoError(t, err)

	saturdayGame := model.Fixture{
		ID:          "fx-1",
		Status:      model.FixtureScheduled,
		ScheduledAt: time.Date(2026, 1, 17, 9, 0, 0, 0, melbourne),
	}
	cancelled := model.Fixture{
		ID:          "fx-2",
		Status:      model.FixtureCancelled,
		ScheduledAt: time.Date(2026, 1, 18, 9, 0, 0, 0, melbourne),
	}

	// Friday 23:30 UTC is already Saturday morning in Melbourne.
	fridayUTC := time.Date(2026, 1, 16, 23, 30, 0, 0, time.UTC)
	assert.True(t, IsMatchDay([]model.Fixture{saturdayGame}, fridayUTC))

	monday := time.Date(2026, 1, 19, 10, 0, 0, 0, time.UTC)
	assert.False(t, IsMatchDay([]model.Fixture{saturdayGame}, monday))

	// A cancelled fixture does not make its day a match day.
	sundayUTC := time.Date(2026, 1, 18, 1, 0, 0, 0, time.UTC)
	assert.False(t, IsMatchDay([]model.Fixture{cancelled}, sundayUTC))

	assert.False(t, IsMatchDay(nil, fridayUTC))
}

func TestNextRun(t *testing.T) {
	now := time.Date(2026, 1, 17, 1, 0, 0, 0, time.UTC) // Saturday in Melbourne
	melbourne, _ := time.LoadLocation("Australia/Melbourne")
	game := model.Fixture{
		Status:      model.FixtureScheduled,
		ScheduledAt: time.Date(2026, 1, 17, 14, 0, 0, 0, melbourne),
	}

	// Match day tightens the cadence to the interval.
	at, reason := NextRun(now, []model.Fixture{game}, 16, 30*time.Minute)
	assert.Equal(t, ReasonMatchDay, reason)
	assert.Equal(t, now.Add(30*time.Minute), at)

	// No fixtures today: nightly tick.
	at, reason = NextRun(now, nil, 16, 30*time.Minute)
	assert.Equal(t, ReasonNightly, reason)
	assert.Equal(t, time.Date(2026, 1, 17, 16, 0, 0, 0, time.UTC), at)

	// Interval disabled: always nightly.
	at, reason = NextRun(now, []model.Fixture{game}, 16, 0)
	assert.Equal(t, ReasonNightly, reason)
	assert.Equal(t, time.Date(2026, 1, 17, 16, 0, 0, 0, time.UTC), at)
}
