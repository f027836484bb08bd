// Package narrate turns lineup transitions into human-readable substitution
// previews. It is strictly read-only: it reuses the lineup detectors and adds
// pinch-runner detection, but never produces or mutates snapshots.
package narrate

import (
	"github.com/louisbranch/dugout/internal/services/replay/domain/lineup"
	"github.com/louisbranch/dugout/internal/services/replay/domain/play"
	"github.com/louisbranch/dugout/internal/services/replay/i18n"
)

// Kind is the closed set of narrated substitution kinds.
type Kind string

const (
	KindPitching    Kind = "PITCHING_CHANGE"
	KindBatting     Kind = "BATTING_SUBSTITUTION"
	KindPosition    Kind = "POSITION_CHANGE"
	KindPinchRunner Kind = "PINCH_RUNNER"
)

// Substitution is one narrated lineup event for the upcoming play.
type Substitution struct {
	Kind             Kind
	TeamID           string
	IncomingPlayerID string
	OutgoingPlayerID string

	// BattingOrder is set for batting substitutions.
	BattingOrder int
	// Position is set for position changes (defensive positions 2-9).
	Position int
	// Base is set for pinch runners (1-3).
	Base int

	Description string
}

// Summary is the narration of everything that changes between two consecutive
// plays, with per-kind flags so callers can branch without scanning the list.
type Summary struct {
	PlayIndex     int
	Substitutions []Substitution

	HasPitchingChange bool
	HasPinchHitter    bool
	HasPinchRunner    bool
}

// Names resolves player ids to display names. A missing entry narrates by id.
type Names map[string]string

func (n Names) display(playerID string) string {
	if name, ok := n[playerID]; ok && name != "" {
		return name
	}
	return playerID
}

// Between narrates the transition from the current play to the next one,
// given the latest snapshot. The same detectors that drive snapshot
// production run here, so a preview always agrees with the changes a
// subsequent advance would record.
func Between(snap lineup.Snapshot, current, next play.Record, catalog *i18n.Catalog, locale string, names Names) Summary {
	summary := Summary{PlayIndex: next.Index}

	if change, ok := lineup.DetectPitchingChange(current, next); ok {
		summary.HasPitchingChange = true
		summary.Substitutions = append(summary.Substitutions, Substitution{
			Kind:             KindPitching,
			TeamID:           change.TeamID,
			IncomingPlayerID: change.IncomingPlayerID,
			OutgoingPlayerID: change.OutgoingPlayerID,
			Description: catalog.Format(locale, "replay.narrate.pitching_change",
				change.TeamID, names.display(change.IncomingPlayerID), names.display(change.OutgoingPlayerID)),
		})
	}

	if change, ok := lineup.DetectBattingSubstitution(snap, next); ok {
		summary.HasPinchHitter = true
		summary.Substitutions = append(summary.Substitutions, Substitution{
			Kind:             KindBatting,
			TeamID:           change.TeamID,
			IncomingPlayerID: change.IncomingPlayerID,
			OutgoingPlayerID: change.OutgoingPlayerID,
			BattingOrder:     change.BattingOrder,
			Description: catalog.Format(locale, "replay.narrate.batting_substitution",
				names.display(change.IncomingPlayerID), names.display(change.OutgoingPlayerID), change.BattingOrder),
		})
	}

	for _, change := range lineup.DetectFieldingChanges(current, next) {
		summary.Substitutions = append(summary.Substitutions, Substitution{
			Kind:             KindPosition,
			TeamID:           change.TeamID,
			IncomingPlayerID: change.IncomingPlayerID,
			OutgoingPlayerID: change.OutgoingPlayerID,
			Position:         change.Position,
			Description: catalog.Format(locale, "replay.narrate.position_change",
				names.display(change.IncomingPlayerID), play.PositionLabel(change.Position), names.display(change.OutgoingPlayerID)),
		})
	}

	if runners := pinchRunners(current, next, catalog, locale, names); len(runners) > 0 {
		summary.HasPinchRunner = true
		summary.Substitutions = append(summary.Substitutions, runners...)
	}

	return summary
}

// pinchRunners diffs base occupants between consecutive plays of the same
// half-inning. A new occupant who was nowhere in the previous play (no base,
// not the batter) can only have entered as a pinch runner; ordinary runner
// advances and batters reaching base never satisfy that.
func pinchRunners(current, next play.Record, catalog *i18n.Catalog, locale string, names Names) []Substitution {
	if !current.SameBattingTeam(next) {
		return nil
	}
	var subs []Substitution
	for base := 1; base <= 3; base++ {
		before, okBefore := current.RunnerAt(base)
		after, okAfter := next.RunnerAt(base)
		if !okBefore || !okAfter || before == after {
			continue
		}
		if onPlay(current, after) {
			continue
		}
		subs = append(subs, Substitution{
			Kind:             KindPinchRunner,
			TeamID:           next.BattingTeamID,
			IncomingPlayerID: after,
			OutgoingPlayerID: before,
			Base:             base,
			Description: catalog.Format(locale, "replay.narrate.pinch_runner",
				names.display(after), names.display(before), baseLabel(catalog, locale, base)),
		})
	}
	return subs
}

func onPlay(record play.Record, playerID string) bool {
	if record.BatterID == playerID {
		return true
	}
	for base := 1; base <= 3; base++ {
		if runner, ok := record.RunnerAt(base); ok && runner == playerID {
			return true
		}
	}
	return false
}

func baseLabel(catalog *i18n.Catalog, locale string, base int) string {
	keys := map[int]string{1: "replay.base.first", 2: "replay.base.second", 3: "replay.base.third"}
	return catalog.Format(locale, keys[base])
}
