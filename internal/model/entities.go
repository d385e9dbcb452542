// Package model defines the core data structures shared across the sync,
// index, and answer layers. All IDs are upstream PlayHQ identifiers or
// deterministically derived from them.
package model

import (
	"fmt"
	"time"
)

// Season is a competition season as exposed by the upstream provider.
type Season struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// Grade is an age/skill division within a season (e.g. "Under 10s Blue").
type Grade struct {
	ID       string `json:"id"`
	SeasonID string `json:"season_id"`
	Name     string `json:"name"`
}

// Team is a club team registered in a grade.
type Team struct {
	ID      string `json:"id"`
	GradeID string `json:"grade_id"`
	ClubID  string `json:"club_id"`
	Name    string `json:"name"`
}

// FixtureStatus is the lifecycle state of a fixture.
type FixtureStatus string

const (
	FixtureScheduled  FixtureStatus = "scheduled"
	FixtureInProgress FixtureStatus = "in_progress"
	FixtureCompleted  FixtureStatus = "completed"
	FixtureCancelled  FixtureStatus = "cancelled"
)

// Fixture is a scheduled or completed match between two teams.
type Fixture struct {
	ID          string        `json:"id"`
	GradeID     string        `json:"grade_id"`
	HomeTeamID  string        `json:"home_team_id"`
	HomeTeam    string        `json:"home_team"`
	AwayTeamID  string        `json:"away_team_id"`
	AwayTeam    string        `json:"away_team"`
	ScheduledAt time.Time     `json:"scheduled_at"`
	Venue       string        `json:"venue"`
	Status      FixtureStatus `json:"status"`
	Round       string        `json:"round"`
}

// Opponent returns the name of the other team in the fixture, or "" when
// teamID is not a competitor.
func (f Fixture) Opponent(teamID string) string {
	switch teamID {
	case f.HomeTeamID:
		return f.AwayTeam
	case f.AwayTeamID:
		return f.HomeTeam
	}
	return ""
}

// Involves reports whether teamID is one of the fixture's competitors.
func (f Fixture) Involves(teamID string) bool {
	return teamID == f.HomeTeamID || teamID == f.AwayTeamID
}

// BattingEntry is one batting line in a public scorecard.
type BattingEntry struct {
	PlayerName string `json:"player_name"`
	Runs       int    `json:"runs"`
	Balls      int    `json:"balls"`
	Fours      int    `json:"fours"`
	Sixes      int    `json:"sixes"`
}

// BowlingEntry is one bowling line in a public scorecard.
type BowlingEntry struct {
	PlayerName   string  `json:"player_name"`
	Overs        float64 `json:"overs"`
	Wickets      int     `json:"wickets"`
	RunsConceded int     `json:"runs_conceded"`
}

// GameSummary is the public scorecard for a completed fixture.
type GameSummary struct {
	FixtureID string         `json:"fixture_id"`
	Batting   []BattingEntry `json:"batting"`
	Bowling   []BowlingEntry `json:"bowling"`
	Result    string         `json:"result"`
}

// LadderEntry is one row of a grade's standings table.
type LadderEntry struct {
	GradeID       string    `json:"grade_id"`
	TeamID        string    `json:"team_id"`
	TeamName      string    `json:"team_name"`
	Position      int       `json:"position"`
	Points        float64   `json:"points"`
	Played        int       `json:"played"`
	Won           int       `json:"won"`
	Lost          int       `json:"lost"`
	PointsFor     int       `json:"points_for"`
	PointsAgainst int       `json:"points_against"`
	NetRunRate    float64   `json:"net_run_rate"`
	AsOf          time.Time `json:"as_of"`
}

// PlayerRole is a roster player's listed role.
type PlayerRole string

const (
	RoleBatter      PlayerRole = "batter"
	RoleBowler      PlayerRole = "bowler"
	RoleAllRounder  PlayerRole = "all-rounder"
	RoleKeeper      PlayerRole = "keeper"
	RoleUnspecified PlayerRole = "unspecified"
)

// RosterEntry links a player to a team.
type RosterEntry struct {
	TeamID     string     `json:"team_id"`
	PlayerName string     `json:"player_name"`
	Role       PlayerRole `json:"role"`
}

// EntityKind identifies the upstream entity type backing a document.
type EntityKind string

const (
	KindSeason  EntityKind = "season"
	KindGrade   EntityKind = "grade"
	KindTeam    EntityKind = "team"
	KindFixture EntityKind = "fixture"
	KindLadder  EntityKind = "ladder"
	KindSummary EntityKind = "summary"
	KindRoster  EntityKind = "roster"
)

// EntityKey builds the stable composite key used by sync records and
// document ownership (e.g. "fixture/abc123").
func EntityKey(kind EntityKind, id string) string {
	return fmt.Sprintf("%s/%s", kind, id)
}
