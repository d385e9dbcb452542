// Package club converts raw upstream records into typed domain entities and
// renders them into short indexable snippets. The schema-validation boundary
// lives here: a record that fails validation is skipped and logged, never
// failing the batch.
package club

import (
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/caroline-springs-cc/pitchbot/internal/model"
)

type rawSeason struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type rawGrade struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type rawTeam struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Club struct {
		ID string `json:"id"`
	} `json:"club"`
}

type rawFixture struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Schedule struct {
		Date     string `json:"date"`
		Time     string `json:"time"`
		Timezone string `json:"timezone"`
	} `json:"schedule"`
	Venue struct {
		Name string `json:"name"`
	} `json:"venue"`
	Round struct {
		Name string `json:"name"`
	} `json:"round"`
	Competitors []struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		IsHomeTeam bool   `json:"isHomeTeam"`
	} `json:"competitors"`
}

type rawLadderRow struct {
	Team struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"team"`
	Position     int     `json:"position"`
	Points       float64 `json:"points"`
	Played       int     `json:"played"`
	Won          int     `json:"won"`
	Lost         int     `json:"lost"`
	ScoreFor     int     `json:"scoreFor"`
	ScoreAgainst int     `json:"scoreAgainst"`
	NetRunRate   float64 `json:"netRunRate"`
	UpdatedAt    string  `json:"updatedAt"`
}

type rawSummary struct {
	ID      string `json:"id"`
	Result  string `json:"result"`
	Batting []struct {
		PlayerName string `json:"playerName"`
		RunsScored int    `json:"runsScored"`
		BallsFaced int    `json:"ballsFaced"`
		Fours      int    `json:"fours"`
		Sixes      int    `json:"sixes"`
	} `json:"batting"`
	Bowling []struct {
		PlayerName   string  `json:"playerName"`
		OversBowled  float64 `json:"oversBowled"`
		Wickets      int     `json:"wickets"`
		RunsConceded int     `json:"runsConceded"`
	} `json:"bowling"`
}

type rawRosterEntry struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

func skip(kind, reason string, rec json.RawMessage) {
	zap.L().Warn("skipping invalid upstream record",
		zap.String("entity", kind),
		zap.String("reason", reason),
		zap.ByteString("record", truncateRaw(rec, 300)),
	)
}

func truncateRaw(b json.RawMessage, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}

// NormalizeSeasons validates and converts raw season records.
func NormalizeSeasons(records []json.RawMessage) []model.Season {
	out := make([]model.Season, 0, len(records))
	for _, rec := range records {
		var raw rawSeason
		if err := json.Unmarshal(rec, &raw); err != nil {
			skip("season", "malformed json", rec)
			continue
		}
		if raw.ID == "" || raw.Name == "" {
			skip("season", "missing id or name", rec)
			continue
		}
		start, err1 := time.Parse("2006-01-02", raw.StartDate)
		end, err2 := time.Parse("2006-01-02", raw.EndDate)
		if err1 != nil || err2 != nil {
			skip("season", "bad date range", rec)
			continue
		}
		out = append(out, model.Season{ID: raw.ID, Name: raw.Name, StartDate: start, EndDate: end})
	}
	return out
}

// NormalizeGrades validates and converts raw grade records.
func NormalizeGrades(records []json.RawMessage, seasonID string) []model.Grade {
	out := make([]model.Grade, 0, len(records))
	for _, rec := range records {
		var raw rawGrade
		if err := json.Unmarshal(rec, &raw); err != nil {
			skip("grade", "malformed json", rec)
			continue
		}
		if raw.ID == "" || raw.Name == "" {
			skip("grade", "missing id or name", rec)
			continue
		}
		out = append(out, model.Grade{ID: raw.ID, SeasonID: seasonID, Name: raw.Name})
	}
	return out
}

// NormalizeTeams validates and converts raw team records.
func NormalizeTeams(records []json.RawMessage, gradeID string) []model.Team {
	out := make([]model.Team, 0, len(records))
	for _, rec := range records {
		var raw rawTeam
		if err := json.Unmarshal(rec, &raw); err != nil {
			skip("team", "malformed json", rec)
			continue
		}
		if raw.ID == "" || raw.Name == "" {
			skip("team", "missing id or name", rec)
			continue
		}
		out = append(out, model.Team{ID: raw.ID, GradeID: gradeID, ClubID: raw.Club.ID, Name: raw.Name})
	}
	return out
}

var fixtureStatuses = map[string]model.FixtureStatus{
	"upcoming":    model.FixtureScheduled,
	"scheduled":   model.FixtureScheduled,
	"live":        model.FixtureInProgress,
	"in_progress": model.FixtureInProgress,
	"completed":   model.FixtureCompleted,
	"final":       model.FixtureCompleted,
	"cancelled":   model.FixtureCancelled,
	"abandoned":   model.FixtureCancelled,
}

// NormalizeFixtures validates and converts raw fixture records. The
// scheduled time is resolved in the venue's timezone; records with an
// unknown status or competitor count other than two are skipped.
func NormalizeFixtures(records []json.RawMessage, gradeID string) []model.Fixture {
	out := make([]model.Fixture, 0, len(records))
	for _, rec := range records {
		var raw rawFixture
		if err := json.Unmarshal(rec, &raw); err != nil {
			skip("fixture", "malformed json", rec)
			continue
		}
		if raw.ID == "" {
			skip("fixture", "missing id", rec)
			continue
		}
		status, ok := fixtureStatuses[strings.ToLower(raw.Status)]
		if !ok {
			skip("fixture", "unknown status "+raw.Status, rec)
			continue
		}
		if len(raw.Competitors) != 2 {
			skip("fixture", "expected two competitors", rec)
			continue
		}

		loc, err := time.LoadLocation(raw.Schedule.Timezone)
		if err != nil {
			loc = time.UTC
		}
		scheduledAt, err := time.ParseInLocation("2006-01-02 15:04", raw.Schedule.Date+" "+raw.Schedule.Time, loc)
		if err != nil {
			skip("fixture", "bad schedule", rec)
			continue
		}

		f := model.Fixture{
			ID:          raw.ID,
			GradeID:     gradeID,
			ScheduledAt: scheduledAt,
			Venue:       raw.Venue.Name,
			Status:      status,
			Round:       raw.Round.Name,
		}
		for _, comp := range raw.Competitors {
			if comp.IsHomeTeam {
				f.HomeTeamID, f.HomeTeam = comp.ID, comp.Name
			} else {
				f.AwayTeamID, f.AwayTeam = comp.ID, comp.Name
			}
		}
		if f.HomeTeamID == "" || f.AwayTeamID == "" {
			skip("fixture", "competitors missing home/away split", rec)
			continue
		}
		out = append(out, f)
	}
	return out
}

// NormalizeLadder validates and converts raw standings rows. Rows come back
// in upstream order; position is taken verbatim and never recomputed.
func NormalizeLadder(records []json.RawMessage, gradeID string) []model.LadderEntry {
	out := make([]model.LadderEntry, 0, len(records))
	for _, rec := range records {
		var raw rawLadderRow
		if err := json.Unmarshal(rec, &raw); err != nil {
			skip("ladder", "malformed json", rec)
			continue
		}
		if raw.Team.ID == "" || raw.Position < 1 {
			skip("ladder", "missing team or position", rec)
			continue
		}
		asOf, err := time.Parse(time.RFC3339, raw.UpdatedAt)
		if err != nil {
			asOf = time.Time{}
		}
		out = append(out, model.LadderEntry{
			GradeID:       gradeID,
			TeamID:        raw.Team.ID,
			TeamName:      raw.Team.Name,
			Position:      raw.Position,
			Points:        raw.Points,
			Played:        raw.Played,
			Won:           raw.Won,
			Lost:          raw.Lost,
			PointsFor:     raw.ScoreFor,
			PointsAgainst: raw.ScoreAgainst,
			NetRunRate:    raw.NetRunRate,
			AsOf:          asOf,
		})
	}
	return out
}

// NormalizeSummary converts a raw game summary. A nil or empty payload
// (game without a public scorecard) returns nil.
func NormalizeSummary(raw json.RawMessage, fixtureID string) *model.GameSummary {
	if len(raw) == 0 || string(raw) == "null" || string(raw) == "{}" {
		return nil
	}
	var rs rawSummary
	if err := json.Unmarshal(raw, &rs); err != nil {
		skip("summary", "malformed json", raw)
		return nil
	}
	s := &model.GameSummary{FixtureID: fixtureID, Result: rs.Result}
	for _, b := range rs.Batting {
		if b.PlayerName == "" {
			skip("summary", "batting entry without player name", raw)
			continue
		}
		s.Batting = append(s.Batting, model.BattingEntry{
			PlayerName: b.PlayerName,
			Runs:       b.RunsScored,
			Balls:      b.BallsFaced,
			Fours:      b.Fours,
			Sixes:      b.Sixes,
		})
	}
	for _, b := range rs.Bowling {
		if b.PlayerName == "" {
			skip("summary", "bowling entry without player name", raw)
			continue
		}
		s.Bowling = append(s.Bowling, model.BowlingEntry{
			PlayerName:   b.PlayerName,
			Overs:        b.OversBowled,
			Wickets:      b.Wickets,
			RunsConceded: b.RunsConceded,
		})
	}
	if len(s.Batting) == 0 && len(s.Bowling) == 0 && s.Result == "" {
		return nil
	}
	return s
}

var playerRoles = map[string]model.PlayerRole{
	"batter":       model.RoleBatter,
	"batsman":      model.RoleBatter,
	"bowler":       model.RoleBowler,
	"all-rounder":  model.RoleAllRounder,
	"all_rounder":  model.RoleAllRounder,
	"allrounder":   model.RoleAllRounder,
	"keeper":       model.RoleKeeper,
	"wicketkeeper": model.RoleKeeper,
}

// NormalizeRoster validates and converts raw roster records. Unknown roles
// map to unspecified rather than being skipped.
func NormalizeRoster(records []json.RawMessage, teamID string) []model.RosterEntry {
	out := make([]model.RosterEntry, 0, len(records))
	for _, rec := range records {
		var raw rawRosterEntry
		if err := json.Unmarshal(rec, &raw); err != nil {
			skip("roster", "malformed json", rec)
			continue
		}
		name := strings.TrimSpace(raw.FirstName + " " + raw.LastName)
		if name == "" {
			skip("roster", "missing player name", rec)
			continue
		}
		role, ok := playerRoles[strings.ToLower(raw.Role)]
		if !ok {
			role = model.RoleUnspecified
		}
		out = append(out, model.RosterEntry{TeamID: teamID, PlayerName: name, Role: role})
	}
	return out
}
