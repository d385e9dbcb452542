package club

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caroline-springs-cc/pitchbot/internal/model"
)

var testNow = time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC)

func testFixture() model.Fixture {
	return model.Fixture{
		ID:          "f1",
		GradeID:     "g1",
		HomeTeamID:  "t1",
		HomeTeam:    "Caroline Springs Blue U10",
		AwayTeamID:  "t2",
		AwayTeam:    "Essendon U10",
		ScheduledAt: time.Date(2025, 11, 2, 9, 0, 0, 0, time.UTC),
		Venue:       "Caroline Springs Oval",
		Status:      model.FixtureScheduled,
		Round:       "Round 5",
	}
}

func TestChunker_FixtureSnippet(t *testing.T) {
	c := NewChunker(1000)
	doc := c.Fixture(testFixture(), "s1", "t1", testNow)

	assert.Equal(t, "fixture/f1#0", doc.ID)
	assert.Equal(t, "fixture/f1", doc.EntityKey)
	assert.Contains(t, doc.Text, "Caroline Springs Blue U10")
	assert.Contains(t, doc.Text, "Essendon U10")
	assert.Contains(t, doc.Text, "Caroline Springs Oval")
	assert.Equal(t, model.KindFixture, doc.Metadata.EntityType)
	assert.Equal(t, "t1", doc.Metadata.TeamID)
	assert.Equal(t, "g1", doc.Metadata.GradeID)
	assert.NotEmpty(t, doc.Metadata.ContentHash)
}

func TestChunker_AllDocumentsUnderTokenCapWithSingleTeam(t *testing.T) {
	c := NewChunker(1000)

	summary := model.GameSummary{FixtureID: "f1", Result: "won"}
	for i := 0; i < 200; i++ {
		summary.Batting = append(summary.Batting, model.BattingEntry{
			PlayerName: fmt.Sprintf("Player Number %d With A Fairly Long Name", i),
			Runs:       i, Balls: i + 1, Fours: 1, Sixes: 0,
		})
	}
	for i := 0; i < 200; i++ {
		summary.Bowling = append(summary.Bowling, model.BowlingEntry{
			PlayerName: fmt.Sprintf("Bowler Number %d With A Fairly Long Name", i),
			Overs:      4, Wickets: 1, RunsConceded: 20,
		})
	}

	team := model.Team{ID: "t1", GradeID: "g1", Name: "Caroline Springs Blue U10"}
	var roster []model.RosterEntry
	for i := 0; i < 500; i++ {
		roster = append(roster, model.RosterEntry{
			TeamID: "t1", PlayerName: fmt.Sprintf("Roster Player %d", i), Role: model.RoleBatter,
		})
	}

	var docs []model.Document
	docs = append(docs, c.Fixture(testFixture(), "s1", "t1", testNow))
	docs = append(docs, c.Summary(summary, testFixture(), "t1", "s1", testNow)...)
	docs = append(docs, c.Roster(team, roster, "s1", testNow)...)
	docs = append(docs, c.LadderEntry(model.LadderEntry{
		GradeID: "g1", TeamID: "t1", TeamName: "Caroline Springs Blue U10",
		Position: 3, Points: 12, Played: 5, Won: 4, Lost: 1, NetRunRate: 1.25,
	}, "Under 10s Blue", "s1", 8, testNow))

	for _, doc := range docs {
		assert.Less(t, EstimateTokens(doc.Text), 1000, "doc %s over token cap", doc.ID)
		// Exactly one team and one grade per document.
		assert.Equal(t, "t1", doc.Metadata.TeamID, "doc %s", doc.ID)
		assert.Equal(t, "g1", doc.Metadata.GradeID, "doc %s", doc.ID)
	}
}

func TestChunker_OversizeSummarySplitsAlongInnings(t *testing.T) {
	c := NewChunker(120)
	summary := model.GameSummary{FixtureID: "f1", Result: "won"}
	for i := 0; i < 12; i++ {
		summary.Batting = append(summary.Batting, model.BattingEntry{
			PlayerName: fmt.Sprintf("Batting Player %d", i), Runs: 10, Balls: 12,
		})
	}
	for i := 0; i < 12; i++ {
		summary.Bowling = append(summary.Bowling, model.BowlingEntry{
			PlayerName: fmt.Sprintf("Bowling Player %d", i), Overs: 4, Wickets: 1, RunsConceded: 18,
		})
	}

	docs := c.Summary(summary, testFixture(), "t1", "s1", testNow)
	require.Greater(t, len(docs), 1)

	for i, doc := range docs {
		assert.LessOrEqual(t, EstimateTokens(doc.Text), 120, "doc %d", i)
		assert.Equal(t, "summary/f1", doc.EntityKey)
	}
	// Ordinals are unique within the entity.
	seen := map[string]bool{}
	for _, doc := range docs {
		assert.False(t, seen[doc.ID], "duplicate id %s", doc.ID)
		seen[doc.ID] = true
	}
}

func TestContentHash_StableAcrossCosmeticChanges(t *testing.T) {
	f1 := testFixture()
	f2 := testFixture()
	assert.Equal(t, ContentHash(f1), ContentHash(f2))

	f2.Venue = "Different Oval"
	assert.NotEqual(t, ContentHash(f1), ContentHash(f2))
}

func TestOrdinal(t *testing.T) {
	tests := map[int]string{1: "1st", 2: "2nd", 3: "3rd", 4: "4th", 11: "11th", 12: "12th", 13: "13th", 21: "21st", 22: "22nd", 103: "103rd"}
	for n, want := range tests {
		assert.Equal(t, want, Ordinal(n))
	}
}
