package club

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/caroline-springs-cc/pitchbot/internal/model"
)

// approxCharsPerToken is the rough character budget per token used to keep
// snippets under the index's token cap without a tokenizer dependency.
const approxCharsPerToken = 4

// EstimateTokens approximates the token count of a snippet.
func EstimateTokens(s string) int {
	return (len(s) + approxCharsPerToken - 1) / approxCharsPerToken
}

// ContentHash computes a stable hash over an entity's normalized fields.
// Cosmetic upstream formatting changes do not alter normalized fields, so
// they never trigger re-indexing.
func ContentHash(entity any) string {
	b, _ := json.Marshal(entity)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Chunker renders domain entities into bounded-length Documents. One
// Document always references exactly one team and grade.
type Chunker struct {
	maxTokens int
}

// NewChunker creates a chunker with the given per-document token cap.
func NewChunker(maxTokens int) *Chunker {
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	return &Chunker{maxTokens: maxTokens}
}

func (c *Chunker) doc(entityKey string, ordinal int, text string, meta model.DocumentMetadata, now time.Time) model.Document {
	return model.Document{
		ID:        fmt.Sprintf("%s#%d", entityKey, ordinal),
		EntityKey: entityKey,
		Text:      text,
		Metadata:  meta,
		IndexedAt: now,
	}
}

// Fixture renders one fixture into a single snippet from the perspective of
// teamID (the club's team in the fixture).
func (c *Chunker) Fixture(f model.Fixture, seasonID, teamID string, now time.Time) model.Document {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s vs %s", f.Round, f.HomeTeam, f.AwayTeam)
	fmt.Fprintf(&b, " on %s at %s.", f.ScheduledAt.Format("Monday 2 January 2006 3:04 PM"), f.Venue)
	fmt.Fprintf(&b, " Status: %s.", f.Status)

	key := model.EntityKey(model.KindFixture, f.ID)
	return c.doc(key, 0, b.String(), model.DocumentMetadata{
		EntityType:  model.KindFixture,
		TeamID:      teamID,
		GradeID:     f.GradeID,
		SeasonID:    seasonID,
		ContentHash: ContentHash(f),
	}, now)
}

// LadderEntry renders one standings row into a single snippet. of is the
// total number of teams on the ladder.
func (c *Chunker) LadderEntry(e model.LadderEntry, gradeName, seasonID string, of int, now time.Time) model.Document {
	text := fmt.Sprintf(
		"%s sit %s of %d on the %s ladder with %s points: played %d, won %d, lost %d, net run rate %.3f.",
		e.TeamName, Ordinal(e.Position), of, gradeName, FormatPoints(e.Points), e.Played, e.Won, e.Lost, e.NetRunRate,
	)

	key := model.EntityKey(model.KindLadder, e.GradeID+":"+e.TeamID)
	return c.doc(key, 0, text, model.DocumentMetadata{
		EntityType:  model.KindLadder,
		TeamID:      e.TeamID,
		GradeID:     e.GradeID,
		SeasonID:    seasonID,
		ContentHash: ContentHash(e),
	}, now)
}

// Summary renders a scorecard into snippets, splitting along innings
// boundaries (batting card, bowling card) when one rendering would exceed
// the token cap, and further into entry runs if a single card is too long.
func (c *Chunker) Summary(s model.GameSummary, f model.Fixture, teamID, seasonID string, now time.Time) []model.Document {
	key := model.EntityKey(model.KindSummary, s.FixtureID)
	meta := model.DocumentMetadata{
		EntityType:  model.KindSummary,
		TeamID:      teamID,
		GradeID:     f.GradeID,
		SeasonID:    seasonID,
		ContentHash: ContentHash(s),
	}

	header := fmt.Sprintf("%s, %s vs %s at %s on %s.",
		f.Round, f.HomeTeam, f.AwayTeam, f.Venue, f.ScheduledAt.Format("2 January 2006"))
	if s.Result != "" {
		header += " Result: " + s.Result + "."
	}

	battingLines := make([]string, 0, len(s.Batting))
	for _, b := range s.Batting {
		battingLines = append(battingLines, fmt.Sprintf(
			"%s scored %d runs from %d balls (%d fours, %d sixes).",
			b.PlayerName, b.Runs, b.Balls, b.Fours, b.Sixes))
	}
	bowlingLines := make([]string, 0, len(s.Bowling))
	for _, b := range s.Bowling {
		bowlingLines = append(bowlingLines, fmt.Sprintf(
			"%s took %d wickets for %d runs from %.1f overs.",
			b.PlayerName, b.Wickets, b.RunsConceded, b.Overs))
	}

	combined := header
	if len(battingLines) > 0 {
		combined += " Batting: " + strings.Join(battingLines, " ")
	}
	if len(bowlingLines) > 0 {
		combined += " Bowling: " + strings.Join(bowlingLines, " ")
	}

	if EstimateTokens(combined) <= c.maxTokens {
		return []model.Document{c.doc(key, 0, combined, meta, now)}
	}

	var docs []model.Document
	ordinalN := 0
	for _, part := range c.splitLines(header+" Batting:", battingLines) {
		docs = append(docs, c.doc(key, ordinalN, part, meta, now))
		ordinalN++
	}
	for _, part := range c.splitLines(header+" Bowling:", bowlingLines) {
		docs = append(docs, c.doc(key, ordinalN, part, meta, now))
		ordinalN++
	}
	if len(docs) == 0 {
		docs = append(docs, c.doc(key, 0, header, meta, now))
	}
	return docs
}

// Roster renders a team roster, splitting across documents when the player
// list would exceed the token cap.
func (c *Chunker) Roster(team model.Team, entries []model.RosterEntry, seasonID string, now time.Time) []model.Document {
	key := model.EntityKey(model.KindRoster, team.ID)
	meta := model.DocumentMetadata{
		EntityType:  model.KindRoster,
		TeamID:      team.ID,
		GradeID:     team.GradeID,
		SeasonID:    seasonID,
		ContentHash: ContentHash(entries),
	}

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Role == model.RoleUnspecified {
			lines = append(lines, fmt.Sprintf("%s plays for %s.", e.PlayerName, team.Name))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s plays for %s as a %s.", e.PlayerName, team.Name, e.Role))
	}

	header := fmt.Sprintf("Roster for %s:", team.Name)
	var docs []model.Document
	for i, part := range c.splitLines(header, lines) {
		docs = append(docs, c.doc(key, i, part, meta, now))
	}
	return docs
}

// splitLines packs lines after the header into documents below the token
// cap, starting a new document at each natural line boundary that would
// overflow.
func (c *Chunker) splitLines(header string, lines []string) []string {
	if len(lines) == 0 {
		return nil
	}
	budget := c.maxTokens * approxCharsPerToken

	var parts []string
	current := header
	for _, line := range lines {
		if len(current)+1+len(line) > budget && current != header {
			parts = append(parts, current)
			current = header
		}
		current += " " + line
	}
	parts = append(parts, current)
	return parts
}

// Ordinal renders 1 as "1st", 2 as "2nd", and so on.
func Ordinal(n int) string {
	suffix := "th"
	switch {
	case n%100 >= 11 && n%100 <= 13:
	case n%10 == 1:
		suffix = "st"
	case n%10 == 2:
		suffix = "nd"
	case n%10 == 3:
		suffix = "rd"
	}
	return fmt.Sprintf("%d%s", n, suffix)
}

// FormatPoints renders ladder points without a trailing ".0" when whole.
func FormatPoints(p float64) string {
	if p == float64(int(p)) {
		return fmt.Sprintf("%d", int(p))
	}
	return fmt.Sprintf("%.1f", p)
}
