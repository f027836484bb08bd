// Package lineup reconstructs batting-order and pitching state from the
// observed play log.
//
// The log never tags substitutions. This package infers them: the rotation
// calculator predicts the next batter, the detector compares prediction to
// observation, and the applier folds detected changes into a new immutable
// snapshot. Snapshots form an append-only log keyed by play index.
package lineup

import (
	"sort"

	"github.com/louisbranch/dugout/internal/services/replay/domain/play"
)

// FloatingPitcherOrder is the batting-order value of a pitcher entry that
// does not occupy one of the nine batting slots (designated-hitter games).
const FloatingPitcherOrder = 0

// BattingSlots is the number of batting-order positions per team.
const BattingSlots = 9

// Slot is one lineup entry for one team at one snapshot: either a
// batting-order position (order 1-9) or a floating pitcher (order 0).
type Slot struct {
	TeamID         string
	PlayerID       string
	BattingOrder   int
	Position       string
	CurrentBatter  bool
	CurrentPitcher bool
}

// Floating reports whether the slot is a pitcher entry outside the batting
// order.
func (s Slot) Floating() bool {
	return s.BattingOrder == FloatingPitcherOrder
}

// Snapshot is the full lineup state attributed to one play index. Snapshots
// are never mutated; the applier always produces a fresh one.
type Snapshot struct {
	GameID    string
	SessionID string
	PlayIndex int

	Inning int
	Half   play.Half
	Outs   int

	Slots []Slot

	// Changes is this snapshot's diff from its predecessor.
	Changes []Change
}

// BattingOrderSlots returns the team's batting slots (orders 1-9) sorted by
// batting order. Floating pitcher entries are excluded.
func (s Snapshot) BattingOrderSlots(teamID string) []Slot {
	var slots []Slot
	for _, slot := range s.Slots {
		if slot.TeamID == teamID && !slot.Floating() {
			slots = append(slots, slot)
		}
	}
	sort.Slice(slots, func(i, j int) bool {
		return slots[i].BattingOrder < slots[j].BattingOrder
	})
	return slots
}

// CurrentBatter returns the team's flagged batter, when exactly determinable.
func (s Snapshot) CurrentBatter(teamID string) (Slot, bool) {
	for _, slot := range s.Slots {
		if slot.TeamID == teamID && !slot.Floating() && slot.CurrentBatter {
			return slot, true
		}
	}
	return Slot{}, false
}

// CurrentPitcher returns the team's flagged pitcher, batting slot or
// floating.
func (s Snapshot) CurrentPitcher(teamID string) (Slot, bool) {
	for _, slot := range s.Slots {
		if slot.TeamID == teamID && slot.CurrentPitcher {
			return slot, true
		}
	}
	return Slot{}, false
}

// HasPlayer reports whether the player already occupies any of the team's
// slots, floating pitcher included.
func (s Snapshot) HasPlayer(teamID, playerID string) bool {
	for _, slot := range s.Slots {
		if slot.TeamID == teamID && slot.PlayerID == playerID {
			return true
		}
	}
	return false
}

// TeamIDs returns the distinct team ids present in the snapshot.
func (s Snapshot) TeamIDs() []string {
	var ids []string
	for _, slot := range s.Slots {
		found := false
		for _, id := range ids {
			if id == slot.TeamID {
				found = true
				break
			}
		}
		if !found {
			ids = append(ids, slot.TeamID)
		}
	}
	sort.Strings(ids)
	return ids
}

func cloneSlots(slots []Slot) []Slot {
	cloned := make([]Slot, len(slots))
	copy(cloned, slots)
	return cloned
}
