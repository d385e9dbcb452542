package answer

import (
	"fmt"
	"strings"
	"time"

	"github.com/caroline-springs-cc/pitchbot/internal/club"
	"github.com/caroline-springs-cc/pitchbot/internal/model"
)

// Clarification texts. Deliberately free of digits: when we can't identify
// an entity we never surface a number that could be mistaken for an answer.
const (
	clarifyPlayer = "I couldn't find a player by that name on any of our teams. Could you check the spelling or tell me which team they play for?"
	clarifyTeam   = "I'm not sure which of our teams you mean. Could you name the team, for example with its grade?"
	apologyNoData = "Sorry, I don't have any club data yet. Please try again after the next sync."
)

// resolveNextFixture names the opponent, venue, and start time of the
// team's next non-cancelled fixture.
func resolveNextFixture(snap *Snapshot, team *model.Team, now time.Time) (string, bool) {
	if team == nil {
		return clarifyTeam, true
	}
	for _, f := range snap.Fixtures[team.ID] {
		if f.Status == model.FixtureCancelled || f.ScheduledAt.Before(now) {
			continue
		}
		opponent := f.Opponent(team.ID)
		if opponent == "" {
			continue
		}
		return fmt.Sprintf("%s's next game is %s against %s at %s on %s.",
			team.Name, f.Round, opponent, f.Venue,
			f.ScheduledAt.Format("Monday 2 January at 3:04 PM")), true
	}
	return fmt.Sprintf("%s has no upcoming fixtures on the calendar.", team.Name), true
}

// resolveFixturesList renders the team's remaining fixtures under an
// "Upcoming Fixtures" heading.
func resolveFixturesList(snap *Snapshot, team *model.Team, now time.Time) (string, bool) {
	if team == nil {
		return clarifyTeam, true
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Upcoming Fixtures — %s\n", team.Name)
	n := 0
	for _, f := range snap.Fixtures[team.ID] {
		if f.Status == model.FixtureCancelled || f.ScheduledAt.Before(now) {
			continue
		}
		fmt.Fprintf(&b, "- %s: vs %s at %s, %s\n",
			f.Round, f.Opponent(team.ID), f.Venue,
			f.ScheduledAt.Format("Mon 2 Jan 3:04 PM"))
		n++
	}
	if n == 0 {
		return fmt.Sprintf("%s has no upcoming fixtures on the calendar.", team.Name), true
	}
	return strings.TrimRight(b.String(), "\n"), true
}

// resolveLadderPosition reports position, ladder size, and points, all
// copied verbatim from the ladder row.
func resolveLadderPosition(snap *Snapshot, team *model.Team) (string, bool) {
	if team == nil {
		return clarifyTeam, true
	}
	ladder := snap.Ladders[team.GradeID]
	for _, row := range ladder {
		if row.TeamID != team.ID {
			continue
		}
		return fmt.Sprintf("%s are %s of %d on the %s ladder with %s points (played %d, won %d, lost %d).",
			team.Name, club.Ordinal(row.Position), len(ladder),
			snap.GradeNames[team.GradeID], club.FormatPoints(row.Points),
			row.Played, row.Won, row.Lost), true
	}
	return "", false
}

// resolveTeamRoster lists the team's registered players and roles.
func resolveTeamRoster(snap *Snapshot, team *model.Team) (string, bool) {
	if team == nil {
		return clarifyTeam, true
	}
	roster := snap.Rosters[team.ID]
	if len(roster) == 0 {
		return "", false
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s squad:\n", team.Name)
	for _, p := range roster {
		if p.Role != model.RoleUnspecified {
			fmt.Fprintf(&b, "- %s (%s)\n", p.PlayerName, p.Role)
		} else {
			fmt.Fprintf(&b, "- %s\n", p.PlayerName)
		}
	}
	return strings.TrimRight(b.String(), "\n"), true
}

// resolvePlayerTeam names the team a roster player belongs to.
func resolvePlayerTeam(snap *Snapshot, player *model.RosterEntry) (string, bool) {
	team, ok := snap.TeamByID(player.TeamID)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%s plays for %s.", player.PlayerName, team.Name), true
}

// resolvePlayerLastRuns reports the player's batting line from their team's
// most recent summarized game. Runs and balls are copied verbatim; strike
// rate is runs/balls x 100 to one decimal.
func resolvePlayerLastRuns(snap *Snapshot, player *model.RosterEntry) (string, bool) {
	fixtures := snap.Fixtures[player.TeamID]
	for i := len(fixtures) - 1; i >= 0; i-- {
		f := fixtures[i]
		summary, ok := snap.Summaries[f.ID]
		if !ok {
			continue
		}
		for _, bat := range summary.Batting {
			if club.FoldName(bat.PlayerName) != club.FoldName(player.PlayerName) &&
				!playerMentioned(club.FoldName(bat.PlayerName), player.PlayerName) {
				continue
			}
			line := fmt.Sprintf("%s scored %d runs off %d balls", bat.PlayerName, bat.Runs, bat.Balls)
			if bat.Balls > 0 {
				line += fmt.Sprintf(" (strike rate %.1f)", float64(bat.Runs)/float64(bat.Balls)*100)
			}
			opponent := f.Opponent(player.TeamID)
			if opponent != "" {
				line += fmt.Sprintf(" in %s against %s", f.Round, opponent)
			}
			return line + ".", true
		}
	}
	return "", false
}
