package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/dugout/internal/services/replay/storage"
)

// PutSession upserts a replay session cursor.
func (s *Store) PutSession(ctx context.Context, session storage.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(session.ID) == "" {
		return fmt.Errorf("session id is required")
	}
	if strings.TrimSpace(session.GameID) == "" {
		return fmt.Errorf("game id is required")
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = now
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO replay_sessions (id, game_id, play_index, locale, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	game_id = excluded.game_id,
	play_index = excluded.play_index,
	locale = excluded.locale,
	updated_at = excluded.updated_at
`,
		session.ID,
		session.GameID,
		session.PlayIndex,
		session.Locale,
		toMillis(session.CreatedAt),
		toMillis(session.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

// GetSession returns one session cursor.
func (s *Store) GetSession(ctx context.Context, id string) (storage.Session, error) {
	if err := ctx.Err(); err != nil {
		return storage.Session{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Session{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(id) == "" {
		return storage.Session{}, fmt.Errorf("session id is required")
	}

	var session storage.Session
	var createdAt, updatedAt int64
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT id, game_id, play_index, locale, created_at, updated_at
FROM replay_sessions
WHERE id = ?
`, id).Scan(
		&session.ID,
		&session.GameID,
		&session.PlayIndex,
		&session.Locale,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Session{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Session{}, fmt.Errorf("get session: %w", err)
	}
	session.CreatedAt = fromMillis(createdAt)
	session.UpdatedAt = fromMillis(updatedAt)
	return session, nil
}

// AdvanceSession moves the cursor from fromIndex to toIndex. The update is
// conditional on the stored cursor still being fromIndex; losing that race
// surfaces as storage.ErrConflict.
func (s *Store) AdvanceSession(ctx context.Context, id string, fromIndex, toIndex int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("session id is required")
	}
	if toIndex <= fromIndex {
		return fmt.Errorf("session cursor can only move forward")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE replay_sessions
SET play_index = ?, updated_at = ?
WHERE id = ? AND play_index = ?
`,
		toIndex,
		toMillis(time.Now()),
		id,
		fromIndex,
	)
	if err != nil {
		return fmt.Errorf("advance session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("advance session result: %w", err)
	}
	if affected == 0 {
		// Either the session is missing or its cursor moved.
		if _, err := s.GetSession(ctx, id); err != nil {
			return err
		}
		return storage.ErrConflict
	}
	return nil
}
