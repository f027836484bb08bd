// Package play models the observed play-by-play record of a game.
//
// A Record captures only what the event log states for one play: who batted,
// who pitched, who stood where, and what the play produced. Everything the
// log does not state (substitutions, lineup state) is inferred elsewhere.
package play

// Half identifies the half-inning of a play.
type Half string

const (
	// HalfTop is the top of an inning; the visiting team bats.
	HalfTop Half = "TOP"
	// HalfBottom is the bottom of an inning; the home team bats.
	HalfBottom Half = "BOTTOM"
)

// Defensive positions use standard baseball numbering. Position 1 (pitcher)
// is tracked through Record.PitcherID, so fielder maps cover 2 through 9.
const (
	PositionMin = 2
	PositionMax = 9
)

var positionLabels = map[int]string{
	1: "P",
	2: "C",
	3: "1B",
	4: "2B",
	5: "3B",
	6: "SS",
	7: "LF",
	8: "CF",
	9: "RF",
}

// PositionLabel returns the conventional label for a numbered defensive
// position, or an empty string for numbers outside 1-9.
func PositionLabel(position int) string {
	return positionLabels[position]
}

// Record is one observed play. Records are immutable and owned by the play
// source; play indexes are 1-based and monotonic, with 0 reserved for the
// pre-game state.
type Record struct {
	GameID string
	Index  int

	Inning int
	Half   Half

	BattingTeamID  string
	FieldingTeamID string

	BatterID  string
	PitcherID string

	// Outs recorded before this play started.
	Outs int
	// Runs scored on this play, credited to the batting team.
	Runs int

	// Pre-play base occupants; empty when the base is unoccupied or the
	// log omitted it.
	RunnerFirstID  string
	RunnerSecondID string
	RunnerThirdID  string

	// Fielders maps defensive positions 2-9 to player ids when the log
	// recorded them.
	Fielders map[int]string

	// EventCode is the raw scoring notation for the play, when present.
	EventCode string
}

// HomeTeamID derives the home side from the half-inning flag: the home team
// fields the top and bats the bottom.
func (r Record) HomeTeamID() string {
	if r.Half == HalfBottom {
		return r.BattingTeamID
	}
	return r.FieldingTeamID
}

// VisitingTeamID derives the visiting side from the half-inning flag.
func (r Record) VisitingTeamID() string {
	if r.Half == HalfBottom {
		return r.FieldingTeamID
	}
	return r.BattingTeamID
}

// SameBattingTeam reports whether both plays belong to the same half-inning
// side, i.e. no turnover happened between them.
func (r Record) SameBattingTeam(other Record) bool {
	return r.BattingTeamID == other.BattingTeamID
}

// FielderAt returns the recorded fielder for a position and whether the log
// recorded one.
func (r Record) FielderAt(position int) (string, bool) {
	id, ok := r.Fielders[position]
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// RunnerAt returns the recorded pre-play occupant of base 1, 2, or 3 and
// whether the log recorded one.
func (r Record) RunnerAt(base int) (string, bool) {
	var id string
	switch base {
	case 1:
		id = r.RunnerFirstID
	case 2:
		id = r.RunnerSecondID
	case 3:
		id = r.RunnerThirdID
	}
	if id == "" {
		return "", false
	}
	return id, true
}

// StartingSlot is one entry of a team's official starting lineup. Batting
// orders run 1-9; order 0 marks a floating pitcher that does not bat under
// designated-hitter rules.
type StartingSlot struct {
	TeamID       string
	PlayerID     string
	BattingOrder int
	Position     string
}
