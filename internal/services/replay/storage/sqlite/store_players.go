package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/louisbranch/dugout/internal/services/replay/storage"
)

// PutPlayer upserts one roster record.
func (s *Store) PutPlayer(ctx context.Context, player storage.Player) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(player.ID) == "" {
		return fmt.Errorf("player id is required")
	}
	if strings.TrimSpace(player.Name) == "" {
		return fmt.Errorf("player name is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO players (id, name, team_id)
VALUES (?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	name = excluded.name,
	team_id = excluded.team_id
`,
		player.ID,
		player.Name,
		player.TeamID,
	)
	if err != nil {
		return fmt.Errorf("put player: %w", err)
	}
	return nil
}

// PlayerNames resolves ids to display names; unknown ids are omitted.
func (s *Store) PlayerNames(ctx context.Context, ids []string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if len(ids) == 0 {
		return map[string]string{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT id, name FROM players WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("list player names: %w", err)
	}
	defer rows.Close()

	names := make(map[string]string, len(ids))
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan player name: %w", err)
		}
		names[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read player names: %w", err)
	}
	return names, nil
}
