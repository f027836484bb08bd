// Package score keeps the running score of a replayed game.
//
// Scores are never stored; they are pure aggregations over the play log's
// per-play run deltas. Both computation paths (per-boundary summation and the
// preloaded prefix table) must agree exactly.
package score

import (
	"strconv"

	platformerrors "github.com/louisbranch/dugout/internal/platform/errors"
	"github.com/louisbranch/dugout/internal/services/replay/domain/play"
)

// Result holds home and visitor run totals immediately before and after one
// play boundary.
type Result struct {
	HomeBefore    int
	VisitorBefore int
	HomeAfter     int
	VisitorAfter  int
}

// At computes the score at the boundary of the play with the given index:
// "before" sums runs over all plays with a lower index, "after" adds the
// boundary play's runs to whichever side bats it. Absent runs count as zero;
// negative run values are ignored.
func At(plays []play.Record, playIndex int) (Result, error) {
	if playIndex < 1 {
		return Result{}, platformerrors.New(platformerrors.CodePlayIndexInvalid, "play index must be positive")
	}
	if len(plays) == 0 {
		return Result{}, platformerrors.New(platformerrors.CodePlayNotFound, "no plays recorded")
	}

	homeTeamID := plays[0].HomeTeamID()
	var result Result
	found := false
	for _, record := range plays {
		runs := record.Runs
		if runs < 0 {
			runs = 0
		}
		if record.Index < playIndex {
			if record.BattingTeamID == homeTeamID {
				result.HomeBefore += runs
			} else {
				result.VisitorBefore += runs
			}
			continue
		}
		if record.Index == playIndex {
			found = true
			result.HomeAfter = result.HomeBefore
			result.VisitorAfter = result.VisitorBefore
			if record.BattingTeamID == homeTeamID {
				result.HomeAfter += runs
			} else {
				result.VisitorAfter += runs
			}
			break
		}
	}
	if !found {
		return Result{}, platformerrors.WithMetadata(platformerrors.CodePlayNotFound,
			"play boundary not in log", map[string]string{"play_index": strconv.Itoa(playIndex)})
	}
	return result, nil
}

// Table holds precomputed cumulative run totals for a whole game, avoiding
// quadratic re-summation during a sequential replay.
type Table struct {
	results map[int]Result
}

// BuildTable computes every boundary's result in one pass over the log.
// Plays must be ordered by index, which is how the play source returns them.
func BuildTable(plays []play.Record) *Table {
	table := &Table{results: make(map[int]Result, len(plays))}
	if len(plays) == 0 {
		return table
	}

	homeTeamID := plays[0].HomeTeamID()
	home, visitor := 0, 0
	for _, record := range plays {
		runs := record.Runs
		if runs < 0 {
			runs = 0
		}
		result := Result{HomeBefore: home, VisitorBefore: visitor}
		if record.BattingTeamID == homeTeamID {
			home += runs
		} else {
			visitor += runs
		}
		result.HomeAfter = home
		result.VisitorAfter = visitor
		table.results[record.Index] = result
	}
	return table
}

// At returns the precomputed result for a play boundary.
func (t *Table) At(playIndex int) (Result, error) {
	if playIndex < 1 {
		return Result{}, platformerrors.New(platformerrors.CodePlayIndexInvalid, "play index must be positive")
	}
	result, ok := t.results[playIndex]
	if !ok {
		return Result{}, platformerrors.WithMetadata(platformerrors.CodePlayNotFound,
			"play boundary not in log", map[string]string{"play_index": strconv.Itoa(playIndex)})
	}
	return result, nil
}
