package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/dugout/internal/services/replay/domain/play"
	"github.com/louisbranch/dugout/internal/services/replay/storage"
)

// PutPlay upserts one observed play record.
func (s *Store) PutPlay(ctx context.Context, record play.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(record.GameID) == "" {
		return fmt.Errorf("game id is required")
	}
	if record.Index < 1 {
		return fmt.Errorf("play index must be positive")
	}

	fieldersJSON := []byte("{}")
	if len(record.Fielders) > 0 {
		payload, err := json.Marshal(record.Fielders)
		if err != nil {
			return fmt.Errorf("marshal fielders: %w", err)
		}
		fieldersJSON = payload
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO plays (
	game_id,
	play_index,
	inning,
	half,
	batting_team_id,
	fielding_team_id,
	batter_id,
	pitcher_id,
	outs,
	runs,
	runner_first_id,
	runner_second_id,
	runner_third_id,
	fielders_json,
	event_code
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (game_id, play_index) DO UPDATE SET
	inning = excluded.inning,
	half = excluded.half,
	batting_team_id = excluded.batting_team_id,
	fielding_team_id = excluded.fielding_team_id,
	batter_id = excluded.batter_id,
	pitcher_id = excluded.pitcher_id,
	outs = excluded.outs,
	runs = excluded.runs,
	runner_first_id = excluded.runner_first_id,
	runner_second_id = excluded.runner_second_id,
	runner_third_id = excluded.runner_third_id,
	fielders_json = excluded.fielders_json,
	event_code = excluded.event_code
`,
		record.GameID,
		record.Index,
		record.Inning,
		string(record.Half),
		record.BattingTeamID,
		record.FieldingTeamID,
		record.BatterID,
		record.PitcherID,
		record.Outs,
		record.Runs,
		record.RunnerFirstID,
		record.RunnerSecondID,
		record.RunnerThirdID,
		string(fieldersJSON),
		record.EventCode,
	)
	if err != nil {
		return fmt.Errorf("put play: %w", err)
	}
	return nil
}

const playColumns = `
	game_id,
	play_index,
	inning,
	half,
	batting_team_id,
	fielding_team_id,
	batter_id,
	pitcher_id,
	outs,
	runs,
	runner_first_id,
	runner_second_id,
	runner_third_id,
	fielders_json,
	event_code
`

func scanPlay(scan func(dest ...any) error) (play.Record, error) {
	var record play.Record
	var half string
	var fieldersJSON string
	if err := scan(
		&record.GameID,
		&record.Index,
		&record.Inning,
		&half,
		&record.BattingTeamID,
		&record.FieldingTeamID,
		&record.BatterID,
		&record.PitcherID,
		&record.Outs,
		&record.Runs,
		&record.RunnerFirstID,
		&record.RunnerSecondID,
		&record.RunnerThirdID,
		&fieldersJSON,
		&record.EventCode,
	); err != nil {
		return play.Record{}, err
	}
	record.Half = play.Half(half)
	if fieldersJSON != "" && fieldersJSON != "{}" {
		if err := json.Unmarshal([]byte(fieldersJSON), &record.Fielders); err != nil {
			return play.Record{}, fmt.Errorf("unmarshal fielders: %w", err)
		}
	}
	return record, nil
}

// PlayByIndex returns one play, or storage.ErrNotFound past the end of the
// log.
func (s *Store) PlayByIndex(ctx context.Context, gameID string, index int) (play.Record, error) {
	if err := ctx.Err(); err != nil {
		return play.Record{}, err
	}
	if s == nil || s.sqlDB == nil {
		return play.Record{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(gameID) == "" {
		return play.Record{}, fmt.Errorf("game id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+playColumns+" FROM plays WHERE game_id = ? AND play_index = ?", gameID, index)
	record, err := scanPlay(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return play.Record{}, storage.ErrNotFound
	}
	if err != nil {
		return play.Record{}, fmt.Errorf("get play: %w", err)
	}
	return record, nil
}

// ListPlays returns the whole play log ordered by play index.
func (s *Store) ListPlays(ctx context.Context, gameID string) ([]play.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(gameID) == "" {
		return nil, fmt.Errorf("game id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT "+playColumns+" FROM plays WHERE game_id = ? ORDER BY play_index", gameID)
	if err != nil {
		return nil, fmt.Errorf("list plays: %w", err)
	}
	defer rows.Close()

	var records []play.Record
	for rows.Next() {
		record, err := scanPlay(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan play: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read plays: %w", err)
	}
	return records, nil
}

// FirstPlay returns the lowest-indexed play of a game.
func (s *Store) FirstPlay(ctx context.Context, gameID string) (play.Record, error) {
	if err := ctx.Err(); err != nil {
		return play.Record{}, err
	}
	if s == nil || s.sqlDB == nil {
		return play.Record{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(gameID) == "" {
		return play.Record{}, fmt.Errorf("game id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+playColumns+" FROM plays WHERE game_id = ? ORDER BY play_index LIMIT 1", gameID)
	record, err := scanPlay(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return play.Record{}, storage.ErrNotFound
	}
	if err != nil {
		return play.Record{}, fmt.Errorf("get first play: %w", err)
	}
	return record, nil
}

// PutStartingSlot upserts one starting lineup entry.
func (s *Store) PutStartingSlot(ctx context.Context, gameID string, slot play.StartingSlot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(gameID) == "" {
		return fmt.Errorf("game id is required")
	}
	if strings.TrimSpace(slot.TeamID) == "" {
		return fmt.Errorf("team id is required")
	}
	if strings.TrimSpace(slot.PlayerID) == "" {
		return fmt.Errorf("player id is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO starting_slots (game_id, team_id, player_id, batting_order, position)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (game_id, team_id, player_id) DO UPDATE SET
	batting_order = excluded.batting_order,
	position = excluded.position
`,
		gameID,
		slot.TeamID,
		slot.PlayerID,
		slot.BattingOrder,
		slot.Position,
	)
	if err != nil {
		return fmt.Errorf("put starting slot: %w", err)
	}
	return nil
}

// StartingLineup returns both teams' starting slots, or storage.ErrNotFound
// when the game has none recorded.
func (s *Store) StartingLineup(ctx context.Context, gameID string) ([]play.StartingSlot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(gameID) == "" {
		return nil, fmt.Errorf("game id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT team_id, player_id, batting_order, position
FROM starting_slots
WHERE game_id = ?
ORDER BY team_id, batting_order
`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list starting slots: %w", err)
	}
	defer rows.Close()

	var slots []play.StartingSlot
	for rows.Next() {
		var slot play.StartingSlot
		if err := rows.Scan(&slot.TeamID, &slot.PlayerID, &slot.BattingOrder, &slot.Position); err != nil {
			return nil, fmt.Errorf("scan starting slot: %w", err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read starting slots: %w", err)
	}
	if len(slots) == 0 {
		return nil, storage.ErrNotFound
	}
	return slots, nil
}
