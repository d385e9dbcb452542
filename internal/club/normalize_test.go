package club

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caroline-springs-cc/pitchbot/internal/model"
)

func raw(t *testing.T, items ...string) []json.RawMessage {
	t.Helper()
	out := make([]json.RawMessage, len(items))
	for i, s := range items {
		out[i] = json.RawMessage(s)
	}
	return out
}

func TestNormalizeSeasons_SkipsInvalid(t *testing.T) {
	records := raw(t,
		`{"id":"s1","name":"Summer 2025/26","startDate":"2025-10-01","endDate":"2026-03-31"}`,
		`{"name":"missing id","startDate":"2025-10-01","endDate":"2026-03-31"}`,
		`{"id":"s3","name":"bad dates","startDate":"October","endDate":"March"}`,
		`not even json`,
	)

	seasons := NormalizeSeasons(records)
	require.Len(t, seasons, 1)
	assert.Equal(t, "s1", seasons[0].ID)
	assert.Equal(t, "Summer 2025/26", seasons[0].Name)
	assert.Equal(t, 2025, seasons[0].StartDate.Year())
}

func TestNormalizeFixtures(t *testing.T) {
	records := raw(t,
		`{
			"id":"f1","status":"UPCOMING",
			"schedule":{"date":"2025-11-02","time":"09:00","timezone":"Australia/Melbourne"},
			"venue":{"name":"Caroline Springs Oval"},
			"round":{"name":"Round 5"},
			"competitors":[
				{"id":"t1","name":"Caroline Springs Blue U10","isHomeTeam":true},
				{"id":"t2","name":"Essendon U10","isHomeTeam":false}
			]
		}`,
		`{"id":"f2","status":"SOMETHING_NEW","schedule":{"date":"2025-11-02","time":"09:00","timezone":"UTC"},"competitors":[{"id":"a","isHomeTeam":true},{"id":"b"}]}`,
		`{"id":"f3","status":"UPCOMING","schedule":{"date":"2025-11-02","time":"09:00","timezone":"UTC"},"competitors":[{"id":"a","isHomeTeam":true}]}`,
	)

	fixtures := NormalizeFixtures(records, "g1")
	require.Len(t, fixtures, 1)

	f := fixtures[0]
	assert.Equal(t, "f1", f.ID)
	assert.Equal(t, "g1", f.GradeID)
	assert.Equal(t, model.FixtureScheduled, f.Status)
	assert.Equal(t, "t1", f.HomeTeamID)
	assert.Equal(t, "Essendon U10", f.AwayTeam)
	assert.Equal(t, "Caroline Springs Oval", f.Venue)

	// Scheduled time is resolved in the venue's timezone.
	loc, err := time.LoadLocation("Australia/Melbourne")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 11, 2, 9, 0, 0, 0, loc).Unix(), f.ScheduledAt.Unix())
}

func TestNormalizeFixtures_StatusMapping(t *testing.T) {
	tests := []struct {
		upstream string
		want     model.FixtureStatus
	}{
		{"UPCOMING", model.FixtureScheduled},
		{"LIVE", model.FixtureInProgress},
		{"COMPLETED", model.FixtureCompleted},
		{"FINAL", model.FixtureCompleted},
		{"CANCELLED", model.FixtureCancelled},
		{"ABANDONED", model.FixtureCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.upstream, func(t *testing.T) {
			rec := raw(t, `{
				"id":"f1","status":"`+tt.upstream+`",
				"schedule":{"date":"2025-11-02","time":"09:00","timezone":"UTC"},
				"competitors":[{"id":"a","name":"A","isHomeTeam":true},{"id":"b","name":"B","isHomeTeam":false}]
			}`)
			fixtures := NormalizeFixtures(rec, "g1")
			require.Len(t, fixtures, 1)
			assert.Equal(t, tt.want, fixtures[0].Status)
		})
	}
}

func TestNormalizeLadder_VerbatimFields(t *testing.T) {
	records := raw(t,
		`{"team":{"id":"t1","name":"Caroline Springs Blue U10"},"position":3,"points":12,"played":5,"won":4,"lost":1,"scoreFor":412,"scoreAgainst":300,"netRunRate":1.254,"updatedAt":"2025-11-01T09:00:00Z"}`,
		`{"team":{"id":""},"position":4}`,
	)

	entries := NormalizeLadder(records, "g1")
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, 3, e.Position)
	assert.Equal(t, 12.0, e.Points)
	assert.Equal(t, 5, e.Played)
	assert.Equal(t, 4, e.Won)
	assert.Equal(t, 1, e.Lost)
	assert.Equal(t, 412, e.PointsFor)
	assert.Equal(t, 1.254, e.NetRunRate)
	assert.Equal(t, "2025-11-01T09:00:00Z", e.AsOf.Format(time.RFC3339))
}

func TestNormalizeSummary(t *testing.T) {
	payload := json.RawMessage(`{
		"id":"g1","result":"Caroline Springs Blue U10 won by 5 runs",
		"batting":[
			{"playerName":"Harshvardhan","runsScored":23,"ballsFaced":18,"fours":3,"sixes":1},
			{"playerName":"","runsScored":5}
		],
		"bowling":[{"playerName":"Arjun","oversBowled":4.0,"wickets":2,"runsConceded":15}]
	}`)

	s := NormalizeSummary(payload, "f1")
	require.NotNil(t, s)
	assert.Equal(t, "f1", s.FixtureID)
	require.Len(t, s.Batting, 1)
	assert.Equal(t, "Harshvardhan", s.Batting[0].PlayerName)
	assert.Equal(t, 23, s.Batting[0].Runs)
	assert.Equal(t, 18, s.Batting[0].Balls)
	require.Len(t, s.Bowling, 1)
	assert.Equal(t, 2, s.Bowling[0].Wickets)
}

func TestNormalizeSummary_EmptyPayload(t *testing.T) {
	assert.Nil(t, NormalizeSummary(nil, "f1"))
	assert.Nil(t, NormalizeSummary(json.RawMessage(`null`), "f1"))
	assert.Nil(t, NormalizeSummary(json.RawMessage(`{}`), "f1"))
}

func TestNormalizeRoster(t *testing.T) {
	records := raw(t,
		`{"firstName":"Harshvardhan","lastName":"Patel","role":"BATTER"}`,
		`{"firstName":"Arjun","lastName":"Singh","role":"BOWLER"}`,
		`{"firstName":"Maya","lastName":"Nair","role":"CHEER_SQUAD"}`,
		`{"firstName":"","lastName":""}`,
	)

	roster := NormalizeRoster(records, "t1")
	require.Len(t, roster, 3)
	assert.Equal(t, "Harshvardhan Patel", roster[0].PlayerName)
	assert.Equal(t, model.RoleBatter, roster[0].Role)
	assert.Equal(t, model.RoleBowler, roster[1].Role)
	// Unknown roles degrade to unspecified instead of dropping the player.
	assert.Equal(t, model.RoleUnspecified, roster[2].Role)
}
