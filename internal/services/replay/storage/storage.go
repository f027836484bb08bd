// Package storage defines the persistence interfaces of the replay service.
// Implementations live in subpackages; the orchestrator only depends on these
// interfaces.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/dugout/internal/services/replay/domain/lineup"
	"github.com/louisbranch/dugout/internal/services/replay/domain/play"
)

// ErrNotFound indicates a requested persistence record is missing. Callers
// use this to differentiate legitimate "no such record" states (end of game,
// unknown session) from transport failures.
var ErrNotFound = errors.New("record not found")

// ErrConflict indicates a conditional write lost to a concurrent one: a
// snapshot already exists at the play index, or a session advanced past the
// expected index.
var ErrConflict = errors.New("record conflicts with existing state")

// Player is the roster record used to resolve display names.
type Player struct {
	ID     string
	Name   string
	TeamID string
}

// Session is one replay session's cursor over a game's play log. PlayIndex
// always matches the play index of the session's latest snapshot.
type Session struct {
	ID        string
	GameID    string
	PlayIndex int
	Locale    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TelemetryEvent is one operational telemetry record.
type TelemetryEvent struct {
	Timestamp  time.Time
	EventName  string
	GameID     string
	SessionID  string
	Attributes map[string]string
}

// PlayStore persists the observed play log and starting lineups per game.
type PlayStore interface {
	PutPlay(ctx context.Context, record play.Record) error
	// PlayByIndex returns ErrNotFound past the end of the log.
	PlayByIndex(ctx context.Context, gameID string, index int) (play.Record, error)
	// ListPlays returns the whole log ordered by play index.
	ListPlays(ctx context.Context, gameID string) ([]play.Record, error)
	FirstPlay(ctx context.Context, gameID string) (play.Record, error)
	PutStartingSlot(ctx context.Context, gameID string, slot play.StartingSlot) error
	StartingLineup(ctx context.Context, gameID string) ([]play.StartingSlot, error)
}

// PlayerStore persists roster records.
type PlayerStore interface {
	PutPlayer(ctx context.Context, player Player) error
	// PlayerNames resolves ids to names. Unknown ids are omitted from the
	// result rather than reported as errors.
	PlayerNames(ctx context.Context, ids []string) (map[string]string, error)
}

// SnapshotStore persists the append-only lineup snapshot log.
type SnapshotStore interface {
	// AppendSnapshot writes a snapshot with its slots and changes
	// atomically. Returns ErrConflict when the session already has a
	// snapshot at the same play index.
	AppendSnapshot(ctx context.Context, snapshot lineup.Snapshot) error
	LatestSnapshot(ctx context.Context, gameID, sessionID string) (lineup.Snapshot, error)
	SnapshotAt(ctx context.Context, gameID, sessionID string, playIndex int) (lineup.Snapshot, error)
}

// SessionStore persists replay session cursors.
type SessionStore interface {
	PutSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, id string) (Session, error)
	// AdvanceSession moves the cursor from fromIndex to toIndex. Returns
	// ErrConflict when the stored cursor is not fromIndex, which is how a
	// stale concurrent advance surfaces.
	AdvanceSession(ctx context.Context, id string, fromIndex, toIndex int) error
}

// TelemetryStore records operational telemetry events.
type TelemetryStore interface {
	AppendTelemetryEvent(ctx context.Context, event TelemetryEvent) error
}

// Store aggregates every persistence interface of the replay service.
type Store interface {
	PlayStore
	PlayerStore
	SnapshotStore
	SessionStore
	TelemetryStore
	Close() error
}
