package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/dugout/internal/services/replay/domain/lineup"
	"github.com/louisbranch/dugout/internal/services/replay/domain/play"
	"github.com/louisbranch/dugout/internal/services/replay/storage"
)

// AppendSnapshot writes a snapshot with its slots and changes in one
// transaction. A snapshot already present at the same play index surfaces as
// storage.ErrConflict, which is how a stale concurrent advance loses.
func (s *Store) AppendSnapshot(ctx context.Context, snapshot lineup.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(snapshot.GameID) == "" {
		return fmt.Errorf("game id is required")
	}
	if strings.TrimSpace(snapshot.SessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	if snapshot.PlayIndex < 0 {
		return fmt.Errorf("play index cannot be negative")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
INSERT INTO lineup_snapshots (game_id, session_id, play_index, inning, half, outs, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`,
		snapshot.GameID,
		snapshot.SessionID,
		snapshot.PlayIndex,
		snapshot.Inning,
		string(snapshot.Half),
		snapshot.Outs,
		toMillis(time.Now()),
	)
	if isConstraintConflict(err) {
		return storage.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	for _, slot := range snapshot.Slots {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO lineup_slots (
	game_id, session_id, play_index,
	team_id, player_id, batting_order, position, current_batter, current_pitcher
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
			snapshot.GameID,
			snapshot.SessionID,
			snapshot.PlayIndex,
			slot.TeamID,
			slot.PlayerID,
			slot.BattingOrder,
			slot.Position,
			boolToInt(slot.CurrentBatter),
			boolToInt(slot.CurrentPitcher),
		); err != nil {
			return fmt.Errorf("insert slot: %w", err)
		}
	}

	for seq, change := range snapshot.Changes {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO lineup_changes (
	game_id, session_id, play_index, seq,
	kind, team_id, incoming_player_id, outgoing_player_id, batting_order, position, description
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
			snapshot.GameID,
			snapshot.SessionID,
			snapshot.PlayIndex,
			seq,
			string(change.Kind),
			change.TeamID,
			change.IncomingPlayerID,
			change.OutgoingPlayerID,
			change.BattingOrder,
			change.Position,
			change.Description,
		); err != nil {
			return fmt.Errorf("insert change: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the session's highest-indexed snapshot.
func (s *Store) LatestSnapshot(ctx context.Context, gameID, sessionID string) (lineup.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return lineup.Snapshot{}, err
	}
	if s == nil || s.sqlDB == nil {
		return lineup.Snapshot{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(gameID) == "" {
		return lineup.Snapshot{}, fmt.Errorf("game id is required")
	}
	if strings.TrimSpace(sessionID) == "" {
		return lineup.Snapshot{}, fmt.Errorf("session id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT game_id, session_id, play_index, inning, half, outs
FROM lineup_snapshots
WHERE game_id = ? AND session_id = ?
ORDER BY play_index DESC
LIMIT 1
`, gameID, sessionID)
	return s.loadSnapshot(ctx, row)
}

// SnapshotAt returns the snapshot recorded at an exact play index.
func (s *Store) SnapshotAt(ctx context.Context, gameID, sessionID string, playIndex int) (lineup.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return lineup.Snapshot{}, err
	}
	if s == nil || s.sqlDB == nil {
		return lineup.Snapshot{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(gameID) == "" {
		return lineup.Snapshot{}, fmt.Errorf("game id is required")
	}
	if strings.TrimSpace(sessionID) == "" {
		return lineup.Snapshot{}, fmt.Errorf("session id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT game_id, session_id, play_index, inning, half, outs
FROM lineup_snapshots
WHERE game_id = ? AND session_id = ? AND play_index = ?
`, gameID, sessionID, playIndex)
	return s.loadSnapshot(ctx, row)
}

func (s *Store) loadSnapshot(ctx context.Context, row *sql.Row) (lineup.Snapshot, error) {
	var snapshot lineup.Snapshot
	var half string
	err := row.Scan(
		&snapshot.GameID,
		&snapshot.SessionID,
		&snapshot.PlayIndex,
		&snapshot.Inning,
		&half,
		&snapshot.Outs,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return lineup.Snapshot{}, storage.ErrNotFound
	}
	if err != nil {
		return lineup.Snapshot{}, fmt.Errorf("get snapshot: %w", err)
	}
	snapshot.Half = play.Half(half)

	if snapshot.Slots, err = s.loadSlots(ctx, snapshot.GameID, snapshot.SessionID, snapshot.PlayIndex); err != nil {
		return lineup.Snapshot{}, err
	}
	if snapshot.Changes, err = s.loadChanges(ctx, snapshot.GameID, snapshot.SessionID, snapshot.PlayIndex); err != nil {
		return lineup.Snapshot{}, err
	}
	return snapshot, nil
}

func (s *Store) loadSlots(ctx context.Context, gameID, sessionID string, playIndex int) ([]lineup.Slot, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT team_id, player_id, batting_order, position, current_batter, current_pitcher
FROM lineup_slots
WHERE game_id = ? AND session_id = ? AND play_index = ?
ORDER BY team_id, batting_order
`, gameID, sessionID, playIndex)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var slots []lineup.Slot
	for rows.Next() {
		var slot lineup.Slot
		var currentBatter, currentPitcher int
		if err := rows.Scan(
			&slot.TeamID,
			&slot.PlayerID,
			&slot.BattingOrder,
			&slot.Position,
			&currentBatter,
			&currentPitcher,
		); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slot.CurrentBatter = currentBatter != 0
		slot.CurrentPitcher = currentPitcher != 0
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read slots: %w", err)
	}
	return slots, nil
}

func (s *Store) loadChanges(ctx context.Context, gameID, sessionID string, playIndex int) ([]lineup.Change, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT kind, team_id, incoming_player_id, outgoing_player_id, batting_order, position, description
FROM lineup_changes
WHERE game_id = ? AND session_id = ? AND play_index = ?
ORDER BY seq
`, gameID, sessionID, playIndex)
	if err != nil {
		return nil, fmt.Errorf("list changes: %w", err)
	}
	defer rows.Close()

	var changes []lineup.Change
	for rows.Next() {
		var change lineup.Change
		var kind string
		if err := rows.Scan(
			&kind,
			&change.TeamID,
			&change.IncomingPlayerID,
			&change.OutgoingPlayerID,
			&change.BattingOrder,
			&change.Position,
			&change.Description,
		); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		change.Kind = lineup.ChangeKind(kind)
		changes = append(changes, change)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read changes: %w", err)
	}
	return changes, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
