package answer

import (
	"regexp"
	"strings"

	"github.com/caroline-springs-cc/pitchbot/internal/club"
	"github.com/caroline-springs-cc/pitchbot/internal/model"
)

// Intent is the closed set of question categories the router recognizes.
// Anything that doesn't match a deterministic intent with an unambiguous
// entity falls through to IntentGeneric.
type Intent string

const (
	IntentPlayerTeam     Intent = "player_team"
	IntentPlayerLastRuns Intent = "player_last_runs"
	IntentFixturesList   Intent = "fixtures_list"
	IntentLadderPosition Intent = "ladder_position"
	IntentNextFixture    Intent = "next_fixture"
	IntentTeamRoster     Intent = "team_roster"
	IntentGeneric        Intent = "generic"
)

// Classification is the routing decision for one question.
type Classification struct {
	Intent Intent

	// Team is set for team-scoped intents when exactly one team matched.
	Team *model.Team

	// Player is set for player-scoped intents when exactly one roster
	// player matched.
	Player *model.RosterEntry

	// PlayerMentioned is true when the question shape names a player that
	// no roster entry matches. Resolvers answer with a clarification
	// instead of guessing.
	PlayerMentioned bool
}

// Matchers run in order; first hit wins. Each pattern works on the folded
// question text.
var (
	reNextFixture = regexp.MustCompile(`\bnext\b.*\b(game|match|fixture)\b|\bwho\b.*\bplay(ing)?\b.*\bnext\b|\bwhen\b.*\b(next|play)\b`)
	reFixtures    = regexp.MustCompile(`\bfixtures?\b|\bschedule\b|\bupcoming\b|\bgames? (this|coming)\b`)
	reLadder      = regexp.MustCompile(`\bladder\b|\bstandings?\b|\btable\b|\bposition\b|\brank(ed|ing)?\b`)
	reRoster      = regexp.MustCompile(`\broster\b|\bsquad\b|\bline.?up\b|\bwho plays for\b|\bplayers\b`)
	rePlayerTeam  = regexp.MustCompile(`\b(what|which|whose) team\b|\bteam (is|does)\b|\bplay(s)? for\b`)
	reLastRuns    = regexp.MustCompile(`\bruns?\b|\bscored?\b|\bstrike rate\b|\bbatting\b|\bhow did\b.*\b(go|bat)\b`)
)

// Classify routes a question against the current entity snapshot. A nil
// snapshot routes everything to IntentGeneric.
func Classify(text string, snap *Snapshot) Classification {
	folded := club.FoldName(text)
	if snap == nil {
		return Classification{Intent: IntentGeneric}
	}

	team, teamAmbiguous := matchTeam(folded, snap)
	player := matchPlayer(folded, snap)

	switch {
	case reNextFixture.MatchString(folded):
		if teamAmbiguous {
			return Classification{Intent: IntentGeneric}
		}
		return Classification{Intent: IntentNextFixture, Team: team}

	case reFixtures.MatchString(folded):
		if teamAmbiguous {
			return Classification{Intent: IntentGeneric}
		}
		return Classification{Intent: IntentFixturesList, Team: team}

	case reLadder.MatchString(folded):
		if teamAmbiguous {
			return Classification{Intent: IntentGeneric}
		}
		return Classification{Intent: IntentLadderPosition, Team: team}

	case reRoster.MatchString(folded):
		if teamAmbiguous {
			return Classification{Intent: IntentGeneric}
		}
		return Classification{Intent: IntentTeamRoster, Team: team}

	case rePlayerTeam.MatchString(folded):
		if player != nil {
			return Classification{Intent: IntentPlayerTeam, Player: player}
		}
		if looksLikePlayerQuestion(folded, snap) {
			return Classification{Intent: IntentPlayerTeam, PlayerMentioned: true}
		}
		return Classification{Intent: IntentGeneric}

	case reLastRuns.MatchString(folded):
		if player != nil {
			return Classification{Intent: IntentPlayerLastRuns, Player: player}
		}
		if looksLikePlayerQuestion(folded, snap) {
			return Classification{Intent: IntentPlayerLastRuns, PlayerMentioned: true}
		}
		return Classification{Intent: IntentGeneric}
	}

	return Classification{Intent: IntentGeneric}
}

// matchTeam finds the club team the question refers to. Partial names match
// ("caroline springs" → "Caroline Springs Blue U10") as long as exactly one
// team fits; several candidates mean ambiguity, and no mention at all means
// the club's sole team when there is only one. Returns (nil, true) on
// ambiguity.
func matchTeam(folded string, snap *Snapshot) (*model.Team, bool) {
	var hits []model.Team
	for _, t := range snap.Teams {
		if teamMentioned(folded, t.Name) {
			hits = append(hits, t)
		}
	}
	switch len(hits) {
	case 1:
		return &hits[0], false
	case 0:
		if len(snap.Teams) == 1 {
			return &snap.Teams[0], false
		}
		return nil, len(snap.Teams) > 1
	default:
		// Prefer an exact full-name hit over partial overlaps.
		for i, t := range hits {
			if strings.Contains(folded, club.FoldName(t.Name)) {
				return &hits[i], false
			}
		}
		return nil, true
	}
}

// teamMentioned reports whether any leading word run of the team name (at
// least two words, or the whole name) appears in the question. "caroline
// springs" mentions "Caroline Springs Blue U10"; "blue" alone does not.
func teamMentioned(folded, teamName string) bool {
	words := strings.Fields(club.FoldName(teamName))
	for n := len(words); n >= 2; n-- {
		if strings.Contains(folded, strings.Join(words[:n], " ")) {
			return true
		}
	}
	return false
}

// matchPlayer finds the unique roster player the question names. Both the
// full name and individual name parts match; two distinct players matching
// means ambiguity and returns nil.
func matchPlayer(folded string, snap *Snapshot) *model.RosterEntry {
	var hit *model.RosterEntry
	for teamID := range snap.Rosters {
		roster := snap.Rosters[teamID]
		for i := range roster {
			if !playerMentioned(folded, roster[i].PlayerName) {
				continue
			}
			if hit != nil && club.FoldName(hit.PlayerName) != club.FoldName(roster[i].PlayerName) {
				return nil
			}
			hit = &roster[i]
		}
	}
	return hit
}

func playerMentioned(folded, playerName string) bool {
	name := club.FoldName(playerName)
	if strings.Contains(folded, name) {
		return true
	}
	for _, part := range strings.Fields(name) {
		if len(part) >= 3 && containsWord(folded, part) {
			return true
		}
	}
	return false
}

// looksLikePlayerQuestion reports whether the question names somebody who is
// not on any roster: it contains a capitalized-word shape that matches no
// known team or player. The folded text has lost case, so this keys off
// leftover words that aren't question vocabulary.
func looksLikePlayerQuestion(folded string, snap *Snapshot) bool {
	for _, w := range strings.Fields(folded) {
		if questionVocabulary[w] || len(w) < 3 {
			continue
		}
		if anyTeamWord(w, snap) || anyPlayerWord(w, snap) {
			continue
		}
		return true
	}
	return false
}

var questionVocabulary = map[string]bool{
	"what": true, "which": true, "whose": true, "who": true, "how": true,
	"many": true, "much": true, "did": true, "does": true, "do": true,
	"is": true, "are": true, "was": true, "the": true, "a": true, "an": true,
	"in": true, "on": true, "for": true, "of": true, "at": true, "to": true,
	"team": true, "player": true, "play": true, "plays": true, "playing": true,
	"runs": true, "run": true, "score": true, "scored": true, "get": true,
	"make": true, "made": true, "last": true, "game": true, "match": true,
	"his": true, "her": true, "their": true, "week": true, "weekend": true,
	"and": true, "strike": true, "rate": true, "batting": true, "bat": true,
	"this": true, "that": true, "when": true, "where": true, "why": true,
	"our": true, "your": true, "my": true, "we": true, "us": true,
	"saturday": true, "sunday": true, "today": true, "tomorrow": true,
	"yesterday": true, "balls": true, "against": true, "season": true,
}

func anyTeamWord(w string, snap *Snapshot) bool {
	for _, t := range snap.Teams {
		if containsWord(club.FoldName(t.Name), w) {
			return true
		}
	}
	return false
}

func anyPlayerWord(w string, snap *Snapshot) bool {
	for _, roster := range snap.Rosters {
		for _, p := range roster {
			if containsWord(club.FoldName(p.PlayerName), w) {
				return true
			}
		}
	}
	return false
}

func containsWord(haystack, word string) bool {
	for _, w := range strings.Fields(haystack) {
		if w == word {
			return true
		}
	}
	return false
}
