package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/dugout/internal/services/replay/storage"
)

// AppendTelemetryEvent records one operational telemetry event.
func (s *Store) AppendTelemetryEvent(ctx context.Context, event storage.TelemetryEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(event.EventName) == "" {
		return fmt.Errorf("event name is required")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	attributesJSON := []byte("{}")
	if len(event.Attributes) > 0 {
		payload, err := json.Marshal(event.Attributes)
		if err != nil {
			return fmt.Errorf("marshal telemetry attributes: %w", err)
		}
		attributesJSON = payload
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO telemetry_events (timestamp, event_name, game_id, session_id, attributes_json)
VALUES (?, ?, ?, ?, ?)
`,
		toMillis(event.Timestamp),
		event.EventName,
		event.GameID,
		event.SessionID,
		string(attributesJSON),
	)
	if err != nil {
		return fmt.Errorf("append telemetry event: %w", err)
	}
	return nil
}
