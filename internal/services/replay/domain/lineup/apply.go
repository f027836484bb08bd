package lineup

import (
	"fmt"

	platformerrors "github.com/louisbranch/dugout/internal/platform/errors"
	"github.com/louisbranch/dugout/internal/services/replay/domain/play"
)

// RepairKind classifies an invariant self-correction performed by Apply.
type RepairKind string

const (
	// RepairMissingBatter means no slot was flagged current batter; the
	// lowest batting order was flagged.
	RepairMissingBatter RepairKind = "MISSING_CURRENT_BATTER"
	// RepairMultipleBatters means more than one slot was flagged; only the
	// lowest batting order was kept.
	RepairMultipleBatters RepairKind = "MULTIPLE_CURRENT_BATTERS"
	// RepairMultiplePitchers means more than one pitcher entry was flagged;
	// the floating entry (or lowest order) was kept.
	RepairMultiplePitchers RepairKind = "MULTIPLE_CURRENT_PITCHERS"
)

// Repair records one invariant self-correction. Repairs never fail the
// operation, but they must be observable: callers surface them as
// warning-level telemetry.
type Repair struct {
	Kind         RepairKind
	TeamID       string
	BattingOrder int
}

// Apply folds a set of detected changes into the next snapshot.
//
// When the change list carries no batting substitution, the current-batter
// pointer is still advanced for the batting team of next; on a half-inning
// turnover the team that just finished batting is advanced instead, and the
// team coming up keeps the pointer from its previous turn (or defaults to
// slot 1 on its first time up, via invariant enforcement).
//
// Invariant enforcement runs last and makes Apply total: after it, every
// team has exactly one current batter, lowest batting order winning ties.
func Apply(prev Snapshot, changes []Change, next play.Record) (Snapshot, []Repair) {
	snap := Snapshot{
		GameID:    prev.GameID,
		SessionID: prev.SessionID,
		PlayIndex: next.Index,
		Inning:    next.Inning,
		Half:      next.Half,
		Outs:      next.Outs,
		Slots:     cloneSlots(prev.Slots),
		Changes:   changes,
	}

	batterPlaced := false
	for _, change := range changes {
		switch change.Kind {
		case ChangePitching:
			applyPitchingChange(&snap, change)
		case ChangeSubstitution:
			applyBattingSubstitution(&snap, change)
			batterPlaced = true
		case ChangePosition:
			applyPositionChange(&snap, change)
		}
	}

	if !batterPlaced {
		turnover := prev.Half != next.Half || prev.Inning != next.Inning
		if turnover {
			// The side that just finished batting is advanced so its
			// expectation is correct next time it comes up. The side about
			// to bat keeps whatever pointer its last turn left behind.
			advanceBatter(&snap, next.FieldingTeamID)
			placeObservedBatter(&snap, next.BattingTeamID, next.BatterID)
		} else {
			advanceToObservedBatter(&snap, next.BattingTeamID, next.BatterID)
		}
	}

	repairs := enforceInvariants(&snap)
	return snap, repairs
}

// Initialize builds the first snapshot of a replay session from the official
// starting lineups. The team batting the first recorded play gets its batter
// pointer on that play's batter; the other side starts at slot 1.
func Initialize(gameID, sessionID string, starting []play.StartingSlot, first play.Record) (Snapshot, error) {
	if err := validateStartingSlots(starting); err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		GameID:    gameID,
		SessionID: sessionID,
		PlayIndex: first.Index,
		Inning:    first.Inning,
		Half:      first.Half,
		Outs:      first.Outs,
	}

	teams := map[string]bool{}
	for _, slot := range starting {
		teams[slot.TeamID] = true
		snap.Slots = append(snap.Slots, Slot{
			TeamID:         slot.TeamID,
			PlayerID:       slot.PlayerID,
			BattingOrder:   slot.BattingOrder,
			Position:       slot.Position,
			CurrentPitcher: slot.Position == play.PositionLabel(1),
		})
	}

	for teamID := range teams {
		snap.Changes = append(snap.Changes, Change{
			Kind:        ChangeInitialLineup,
			TeamID:      teamID,
			Description: fmt.Sprintf("starting lineup for %s", teamID),
		})
	}

	placeObservedBatter(&snap, first.BattingTeamID, first.BatterID)
	enforceInvariants(&snap)
	return snap, nil
}

func validateStartingSlots(starting []play.StartingSlot) error {
	orders := map[string]map[int]bool{}
	pitchers := map[string]bool{}
	for _, slot := range starting {
		if slot.TeamID == "" || slot.PlayerID == "" {
			return platformerrors.New(platformerrors.CodeLineupIncomplete, "starting slot is missing team or player id")
		}
		if slot.BattingOrder < FloatingPitcherOrder || slot.BattingOrder > BattingSlots {
			return platformerrors.WithMetadata(platformerrors.CodeBattingOrderInvalid,
				fmt.Sprintf("batting order %d is out of range", slot.BattingOrder),
				map[string]string{"team_id": slot.TeamID, "player_id": slot.PlayerID})
		}
		if slot.BattingOrder != FloatingPitcherOrder {
			if orders[slot.TeamID] == nil {
				orders[slot.TeamID] = map[int]bool{}
			}
			if orders[slot.TeamID][slot.BattingOrder] {
				return platformerrors.WithMetadata(platformerrors.CodeBattingOrderInvalid,
					fmt.Sprintf("duplicate batting order %d", slot.BattingOrder),
					map[string]string{"team_id": slot.TeamID})
			}
			orders[slot.TeamID][slot.BattingOrder] = true
		}
		if slot.Position == play.PositionLabel(1) {
			pitchers[slot.TeamID] = true
		}
	}

	if len(orders) != 2 {
		return platformerrors.New(platformerrors.CodeLineupIncomplete,
			fmt.Sprintf("expected starting lineups for 2 teams, found %d", len(orders)))
	}
	for teamID, teamOrders := range orders {
		if len(teamOrders) != BattingSlots {
			return platformerrors.WithMetadata(platformerrors.CodeLineupIncomplete,
				fmt.Sprintf("team %s has %d of %d batting slots", teamID, len(teamOrders), BattingSlots),
				map[string]string{"team_id": teamID})
		}
		if !pitchers[teamID] {
			return platformerrors.WithMetadata(platformerrors.CodeLineupIncomplete,
				fmt.Sprintf("team %s has no starting pitcher", teamID),
				map[string]string{"team_id": teamID})
		}
	}
	return nil
}

func applyPitchingChange(snap *Snapshot, change Change) {
	for i := range snap.Slots {
		slot := &snap.Slots[i]
		if slot.TeamID == change.TeamID && slot.CurrentPitcher {
			slot.PlayerID = change.IncomingPlayerID
			return
		}
	}
	// No flagged pitcher to replace: the substitute enters as a floating
	// entry outside the batting order.
	snap.Slots = append(snap.Slots, Slot{
		TeamID:         change.TeamID,
		PlayerID:       change.IncomingPlayerID,
		BattingOrder:   FloatingPitcherOrder,
		Position:       play.PositionLabel(1),
		CurrentPitcher: true,
	})
}

func applyBattingSubstitution(snap *Snapshot, change Change) {
	for i := range snap.Slots {
		slot := &snap.Slots[i]
		if slot.TeamID != change.TeamID {
			continue
		}
		if slot.BattingOrder == change.BattingOrder {
			slot.PlayerID = change.IncomingPlayerID
			slot.CurrentBatter = true
		} else {
			slot.CurrentBatter = false
		}
	}
}

func applyPositionChange(snap *Snapshot, change Change) {
	label := play.PositionLabel(change.Position)
	for i := range snap.Slots {
		slot := &snap.Slots[i]
		if slot.TeamID != change.TeamID {
			continue
		}
		if slot.Position == label || slot.PlayerID == change.OutgoingPlayerID {
			slot.PlayerID = change.IncomingPlayerID
			slot.Position = label
			return
		}
	}
}

// advanceBatter moves the team's pointer to the next rotation slot. A team
// with no determinable pointer is left alone; invariant enforcement handles
// it.
func advanceBatter(snap *Snapshot, teamID string) {
	expected, ok := NextBatter(snap.BattingOrderSlots(teamID))
	if !ok {
		return
	}
	setCurrentBatter(snap, teamID, expected.BattingOrder)
}

// advanceToObservedBatter flags the slot occupied by the observed batter, or
// the next rotation slot when the batter is not on the roster (the
// substitution detector owns that case).
func advanceToObservedBatter(snap *Snapshot, teamID, batterID string) {
	if placeObservedBatter(snap, teamID, batterID) {
		return
	}
	advanceBatter(snap, teamID)
}

func placeObservedBatter(snap *Snapshot, teamID, batterID string) bool {
	for _, slot := range snap.BattingOrderSlots(teamID) {
		if slot.PlayerID == batterID {
			setCurrentBatter(snap, teamID, slot.BattingOrder)
			return true
		}
	}
	return false
}

func setCurrentBatter(snap *Snapshot, teamID string, battingOrder int) {
	for i := range snap.Slots {
		slot := &snap.Slots[i]
		if slot.TeamID != teamID || slot.Floating() {
			continue
		}
		slot.CurrentBatter = slot.BattingOrder == battingOrder
	}
}

func enforceInvariants(snap *Snapshot) []Repair {
	var repairs []Repair
	for _, teamID := range snap.TeamIDs() {
		repairs = append(repairs, enforceBatterInvariant(snap, teamID)...)
		repairs = append(repairs, enforcePitcherInvariant(snap, teamID)...)
	}
	return repairs
}

// enforceBatterInvariant guarantees exactly one current batter per team,
// lowest batting order winning. Masking inconsistent intermediate state with
// a deterministic repair keeps Apply total; the repair itself is reported.
func enforceBatterInvariant(snap *Snapshot, teamID string) []Repair {
	slots := snap.BattingOrderSlots(teamID)
	if len(slots) == 0 {
		return nil
	}

	flagged := 0
	for _, slot := range slots {
		if slot.CurrentBatter {
			flagged++
		}
	}
	if flagged == 1 {
		return nil
	}

	repair := Repair{TeamID: teamID}
	if flagged == 0 {
		repair.Kind = RepairMissingBatter
		repair.BattingOrder = slots[0].BattingOrder
		setCurrentBatter(snap, teamID, slots[0].BattingOrder)
	} else {
		repair.Kind = RepairMultipleBatters
		for _, slot := range slots {
			if slot.CurrentBatter {
				repair.BattingOrder = slot.BattingOrder
				break
			}
		}
		setCurrentBatter(snap, teamID, repair.BattingOrder)
	}
	return []Repair{repair}
}

func enforcePitcherInvariant(snap *Snapshot, teamID string) []Repair {
	flagged := 0
	for _, slot := range snap.Slots {
		if slot.TeamID == teamID && slot.CurrentPitcher {
			flagged++
		}
	}
	if flagged <= 1 {
		return nil
	}

	// Keep the floating entry when present, otherwise the lowest batting
	// order; clear the rest.
	keep := -1
	for i, slot := range snap.Slots {
		if slot.TeamID != teamID || !slot.CurrentPitcher {
			continue
		}
		if keep == -1 {
			keep = i
			continue
		}
		if !snap.Slots[keep].Floating() && (slot.Floating() || slot.BattingOrder < snap.Slots[keep].BattingOrder) {
			keep = i
		}
	}
	for i := range snap.Slots {
		slot := &snap.Slots[i]
		if slot.TeamID == teamID && slot.CurrentPitcher && i != keep {
			slot.CurrentPitcher = false
		}
	}
	return []Repair{{Kind: RepairMultiplePitchers, TeamID: teamID, BattingOrder: snap.Slots[keep].BattingOrder}}
}
