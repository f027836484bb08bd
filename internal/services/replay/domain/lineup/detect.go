package lineup

import (
	"fmt"

	"github.com/louisbranch/dugout/internal/services/replay/domain/play"
)

// DetectChanges compares the latest snapshot against the next play and
// returns every lineup change the transition implies. Zero, one, or several
// changes may result. Detection is stateless given its two play inputs and
// the snapshot; it never looks further back than the immediately preceding
// play.
func DetectChanges(snap Snapshot, current, next play.Record) []Change {
	var changes []Change
	if change, ok := DetectPitchingChange(current, next); ok {
		changes = append(changes, change)
	}
	if change, ok := DetectBattingSubstitution(snap, next); ok {
		changes = append(changes, change)
	}
	changes = append(changes, DetectFieldingChanges(current, next)...)
	return changes
}

// DetectPitchingChange reports a pitching change when the pitcher differs
// between two plays of the same half-inning side. A pitcher difference across
// a turnover is the ordinary handoff between fielding teams, not a change.
func DetectPitchingChange(current, next play.Record) (Change, bool) {
	if current.PitcherID == next.PitcherID {
		return Change{}, false
	}
	if !current.SameBattingTeam(next) {
		return Change{}, false
	}
	return Change{
		Kind:             ChangePitching,
		TeamID:           next.FieldingTeamID,
		IncomingPlayerID: next.PitcherID,
		OutgoingPlayerID: current.PitcherID,
		Description:      fmt.Sprintf("pitching change: %s replaces %s", next.PitcherID, current.PitcherID),
	}, true
}

// DetectBattingSubstitution reports a batting substitution when the observed
// batter is neither the expected rotation slot nor any already-rostered
// player of the batting team.
//
// An already-rostered batter out of the naively expected order is normal play
// (the rotation expectation is naive at half-inning boundaries); only a
// brand-new player id is a substitution.
func DetectBattingSubstitution(snap Snapshot, next play.Record) (Change, bool) {
	slots := snap.BattingOrderSlots(next.BattingTeamID)
	expected, ok := NextBatter(slots)
	if !ok {
		return Change{}, false
	}
	if next.BatterID == expected.PlayerID {
		return Change{}, false
	}
	if snap.HasPlayer(next.BattingTeamID, next.BatterID) {
		return Change{}, false
	}
	return Change{
		Kind:             ChangeSubstitution,
		TeamID:           next.BattingTeamID,
		IncomingPlayerID: next.BatterID,
		OutgoingPlayerID: expected.PlayerID,
		BattingOrder:     expected.BattingOrder,
		Description:      fmt.Sprintf("substitution: %s bats for %s (order %d)", next.BatterID, expected.PlayerID, expected.BattingOrder),
	}, true
}

// DetectFieldingChanges reports a position change for every defensive
// position (2-9) where both plays record a fielder and the ids differ. The
// whole check is skipped when the half-inning turned over, since fielding
// assignments necessarily differ across sides.
func DetectFieldingChanges(current, next play.Record) []Change {
	if !current.SameBattingTeam(next) {
		return nil
	}
	var changes []Change
	for position := play.PositionMin; position <= play.PositionMax; position++ {
		before, okBefore := current.FielderAt(position)
		after, okAfter := next.FielderAt(position)
		if !okBefore || !okAfter || before == after {
			continue
		}
		changes = append(changes, Change{
			Kind:             ChangePosition,
			TeamID:           next.FieldingTeamID,
			IncomingPlayerID: after,
			OutgoingPlayerID: before,
			Position:         position,
			Description:      fmt.Sprintf("position change: %s takes over %s from %s", after, play.PositionLabel(position), before),
		})
	}
	return changes
}
