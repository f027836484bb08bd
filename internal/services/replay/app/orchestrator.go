// Package app orchestrates replay sessions over the stored play log.
//
// The orchestrator is the only writer of snapshots and session cursors. All
// mutating work for one session is serialized behind a per-session lock, and
// the storage layer's conditional writes catch whatever races past it.
package app

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	platformerrors "github.com/louisbranch/dugout/internal/platform/errors"
	"github.com/louisbranch/dugout/internal/platform/id"
	"github.com/louisbranch/dugout/internal/services/replay/commentary"
	"github.com/louisbranch/dugout/internal/services/replay/domain/lineup"
	"github.com/louisbranch/dugout/internal/services/replay/domain/narrate"
	"github.com/louisbranch/dugout/internal/services/replay/domain/play"
	"github.com/louisbranch/dugout/internal/services/replay/domain/score"
	"github.com/louisbranch/dugout/internal/services/replay/i18n"
	"github.com/louisbranch/dugout/internal/services/replay/players"
	"github.com/louisbranch/dugout/internal/services/replay/storage"
	"github.com/louisbranch/dugout/internal/services/replay/telemetry"
)

// Config wires the orchestrator's collaborators. Store and Catalog are
// required; the rest degrade to no-ops when absent.
type Config struct {
	Store      storage.Store
	Catalog    *i18n.Catalog
	Names      *players.Resolver
	Commentary commentary.Generator
	Telemetry  *telemetry.Emitter
}

// Orchestrator coordinates session initialization, advancement, and preview.
type Orchestrator struct {
	store      storage.Store
	catalog    *i18n.Catalog
	names      *players.Resolver
	commentary commentary.Generator
	emitter    *telemetry.Emitter
	tracer     trace.Tracer

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	scoreMu sync.Mutex
	scores  map[string]*score.Table
}

// New builds an orchestrator from its configuration.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Store == nil {
		return nil, platformerrors.New(platformerrors.CodeUnknown, "storage is required")
	}
	catalog := cfg.Catalog
	if catalog == nil {
		loaded, err := i18n.Load()
		if err != nil {
			return nil, platformerrors.Wrap(platformerrors.CodeUnknown, "load message catalog", err)
		}
		catalog = loaded
	}
	gen := cfg.Commentary
	if gen == nil {
		gen = commentary.Noop{}
	}
	return &Orchestrator{
		store:      cfg.Store,
		catalog:    catalog,
		names:      cfg.Names,
		commentary: gen,
		emitter:    cfg.Telemetry,
		tracer:     otel.Tracer("replay"),
		locks:      map[string]*sync.Mutex{},
		scores:     map[string]*score.Table{},
	}, nil
}

// State is the replay state visible to clients after an operation.
type State struct {
	SessionID string
	GameID    string
	PlayIndex int

	Inning int
	Half   play.Half
	Outs   int

	HomeTeamID     string
	VisitingTeamID string
	Score          score.Result

	// Resolved display names for the play boundary; player ids stand in
	// when resolution comes up empty.
	HomeBatterName     string
	HomePitcherName    string
	VisitorBatterName  string
	VisitorPitcherName string
	RunnerFirstName    string
	RunnerSecondName   string
	RunnerThirdName    string

	EventCode string

	Slots   []lineup.Slot
	Changes []lineup.Change
	Repairs []lineup.Repair

	PlayerNames map[string]string
	Commentary  string
}

// InitializeSession starts a replay session for a game. An empty sessionID
// gets a generated one; re-initializing an existing session fails.
func (o *Orchestrator) InitializeSession(ctx context.Context, gameID, sessionID, locale string) (*State, error) {
	ctx, span := o.tracer.Start(ctx, "replay.InitializeSession")
	defer span.End()

	if gameID == "" {
		return nil, platformerrors.New(platformerrors.CodeGameIDEmpty, "game id is required")
	}
	if sessionID == "" {
		generated, err := id.NewID()
		if err != nil {
			return nil, platformerrors.Wrap(platformerrors.CodeUnknown, "generate session id", err)
		}
		sessionID = generated
	}
	locale = o.catalog.Resolve(locale)

	unlock := o.lockSession(sessionID)
	defer unlock()

	starting, err := o.store.StartingLineup(ctx, gameID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, platformerrors.WithMetadata(platformerrors.CodeLineupNotFound,
			"no starting lineup recorded", map[string]string{"game_id": gameID})
	}
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.CodeUnknown, "load starting lineup", err)
	}

	first, err := o.store.FirstPlay(ctx, gameID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, platformerrors.WithMetadata(platformerrors.CodeGameNotFound,
			"game has no recorded plays", map[string]string{"game_id": gameID})
	}
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.CodeUnknown, "load first play", err)
	}

	snapshot, err := lineup.Initialize(gameID, sessionID, starting, first)
	if err != nil {
		return nil, err
	}

	// The snapshot append is the commit point: re-initializing an existing
	// session conflicts here, before its cursor is touched.
	if err := o.store.AppendSnapshot(ctx, snapshot); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, platformerrors.WithMetadata(platformerrors.CodeSnapshotConflict,
				"session is already initialized", map[string]string{"session_id": sessionID})
		}
		return nil, platformerrors.Wrap(platformerrors.CodeUnknown, "persist snapshot", err)
	}
	if err := o.store.PutSession(ctx, storage.Session{
		ID:        sessionID,
		GameID:    gameID,
		PlayIndex: snapshot.PlayIndex,
		Locale:    locale,
	}); err != nil {
		return nil, platformerrors.Wrap(platformerrors.CodeUnknown, "persist session", err)
	}

	o.emit(ctx, telemetry.EventSessionInitialized, gameID, sessionID, map[string]string{
		"play_index": strconv.Itoa(snapshot.PlayIndex),
	})

	return o.buildState(ctx, snapshot, first, nil, locale, false)
}

// Advance applies the next play to the session and returns the resulting
// state. Reaching the end of the play log surfaces as a PLAY_NOT_FOUND
// error, which clients treat as end of game.
func (o *Orchestrator) Advance(ctx context.Context, sessionID string) (*State, error) {
	ctx, span := o.tracer.Start(ctx, "replay.Advance")
	defer span.End()

	if sessionID == "" {
		return nil, platformerrors.New(platformerrors.CodeSessionIDEmpty, "session id is required")
	}

	unlock := o.lockSession(sessionID)
	defer unlock()

	session, latest, err := o.loadCursor(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	current, err := o.store.PlayByIndex(ctx, session.GameID, session.PlayIndex)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.CodeUnknown, "load current play", err)
	}
	next, err := o.store.PlayByIndex(ctx, session.GameID, session.PlayIndex+1)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, platformerrors.WithMetadata(platformerrors.CodePlayNotFound,
			"no play beyond the current index", map[string]string{
				"game_id":    session.GameID,
				"play_index": strconv.Itoa(session.PlayIndex + 1),
			})
	}
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.CodeUnknown, "load next play", err)
	}

	changes := lineup.DetectChanges(latest, current, next)
	snapshot, repairs := lineup.Apply(latest, changes, next)

	if err := o.store.AppendSnapshot(ctx, snapshot); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			o.emit(ctx, telemetry.EventStaleAdvance, session.GameID, sessionID, nil)
			return nil, staleSessionError(sessionID, session.PlayIndex)
		}
		return nil, platformerrors.Wrap(platformerrors.CodeUnknown, "persist snapshot", err)
	}
	if err := o.store.AdvanceSession(ctx, sessionID, session.PlayIndex, snapshot.PlayIndex); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			o.emit(ctx, telemetry.EventStaleAdvance, session.GameID, sessionID, nil)
			return nil, staleSessionError(sessionID, session.PlayIndex)
		}
		return nil, platformerrors.Wrap(platformerrors.CodeUnknown, "advance session cursor", err)
	}

	o.emit(ctx, telemetry.EventAdvance, session.GameID, sessionID, map[string]string{
		"play_index": strconv.Itoa(snapshot.PlayIndex),
		"changes":    strconv.Itoa(len(changes)),
	})
	for _, repair := range repairs {
		o.emit(ctx, telemetry.EventInvariantRepair, session.GameID, sessionID, map[string]string{
			"kind":          string(repair.Kind),
			"team_id":       repair.TeamID,
			"batting_order": strconv.Itoa(repair.BattingOrder),
		})
	}

	state, err := o.buildState(ctx, snapshot, next, repairs, session.Locale, true)
	if err != nil {
		return nil, err
	}
	return state, nil
}

// PreviewSubstitutions narrates the lineup changes the next play implies
// without advancing the session.
func (o *Orchestrator) PreviewSubstitutions(ctx context.Context, sessionID string) (narrate.Summary, error) {
	ctx, span := o.tracer.Start(ctx, "replay.PreviewSubstitutions")
	defer span.End()

	if sessionID == "" {
		return narrate.Summary{}, platformerrors.New(platformerrors.CodeSessionIDEmpty, "session id is required")
	}

	session, latest, err := o.loadCursor(ctx, sessionID)
	if err != nil {
		return narrate.Summary{}, err
	}

	current, err := o.store.PlayByIndex(ctx, session.GameID, session.PlayIndex)
	if err != nil {
		return narrate.Summary{}, platformerrors.Wrap(platformerrors.CodeUnknown, "load current play", err)
	}
	next, err := o.store.PlayByIndex(ctx, session.GameID, session.PlayIndex+1)
	if errors.Is(err, storage.ErrNotFound) {
		return narrate.Summary{}, platformerrors.WithMetadata(platformerrors.CodePlayNotFound,
			"no play beyond the current index", map[string]string{
				"game_id":    session.GameID,
				"play_index": strconv.Itoa(session.PlayIndex + 1),
			})
	}
	if err != nil {
		return narrate.Summary{}, platformerrors.Wrap(platformerrors.CodeUnknown, "load next play", err)
	}

	names := o.names.Names(ctx, playerIDs(current, next))
	summary := narrate.Between(latest, current, next, o.catalog, session.Locale, names)

	o.emit(ctx, telemetry.EventPreview, session.GameID, sessionID, map[string]string{
		"play_index":    strconv.Itoa(next.Index),
		"substitutions": strconv.Itoa(len(summary.Substitutions)),
	})
	return summary, nil
}

// SnapshotAt returns the lineup state the session recorded at an exact play
// index.
func (o *Orchestrator) SnapshotAt(ctx context.Context, sessionID string, playIndex int) (lineup.Snapshot, error) {
	if sessionID == "" {
		return lineup.Snapshot{}, platformerrors.New(platformerrors.CodeSessionIDEmpty, "session id is required")
	}
	if playIndex < 0 {
		return lineup.Snapshot{}, platformerrors.New(platformerrors.CodePlayIndexInvalid, "play index cannot be negative")
	}

	session, err := o.loadSession(ctx, sessionID)
	if err != nil {
		return lineup.Snapshot{}, err
	}
	snapshot, err := o.store.SnapshotAt(ctx, session.GameID, sessionID, playIndex)
	if errors.Is(err, storage.ErrNotFound) {
		return lineup.Snapshot{}, platformerrors.WithMetadata(platformerrors.CodeLineupNotFound,
			"no snapshot at play index", map[string]string{
				"session_id": sessionID,
				"play_index": strconv.Itoa(playIndex),
			})
	}
	if err != nil {
		return lineup.Snapshot{}, platformerrors.Wrap(platformerrors.CodeUnknown, "load snapshot", err)
	}
	return snapshot, nil
}

func (o *Orchestrator) loadSession(ctx context.Context, sessionID string) (storage.Session, error) {
	session, err := o.store.GetSession(ctx, sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.Session{}, platformerrors.WithMetadata(platformerrors.CodeSessionNotFound,
			"unknown session", map[string]string{"session_id": sessionID})
	}
	if err != nil {
		return storage.Session{}, platformerrors.Wrap(platformerrors.CodeUnknown, "load session", err)
	}
	return session, nil
}

// loadCursor loads the session and its latest snapshot and verifies they
// agree. A cursor that points anywhere but the latest snapshot means another
// writer got ahead, so the caller fails fast instead of guessing.
func (o *Orchestrator) loadCursor(ctx context.Context, sessionID string) (storage.Session, lineup.Snapshot, error) {
	session, err := o.loadSession(ctx, sessionID)
	if err != nil {
		return storage.Session{}, lineup.Snapshot{}, err
	}

	latest, err := o.store.LatestSnapshot(ctx, session.GameID, sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.Session{}, lineup.Snapshot{}, platformerrors.WithMetadata(platformerrors.CodeLineupNotFound,
			"session has no snapshots", map[string]string{"session_id": sessionID})
	}
	if err != nil {
		return storage.Session{}, lineup.Snapshot{}, platformerrors.Wrap(platformerrors.CodeUnknown, "load latest snapshot", err)
	}
	if latest.PlayIndex != session.PlayIndex {
		return storage.Session{}, lineup.Snapshot{}, staleSessionError(sessionID, session.PlayIndex)
	}
	return session, latest, nil
}

func staleSessionError(sessionID string, playIndex int) error {
	return platformerrors.WithMetadata(platformerrors.CodeStaleSession,
		"session cursor is stale", map[string]string{
			"session_id": sessionID,
			"play_index": strconv.Itoa(playIndex),
		})
}

// buildState assembles the client-visible state for a snapshot and the play
// at its boundary. Name resolution and commentary are cosmetic and never fail
// the operation.
func (o *Orchestrator) buildState(ctx context.Context, snapshot lineup.Snapshot, boundary play.Record, repairs []lineup.Repair, locale string, withCommentary bool) (*State, error) {
	result, err := o.scoreAt(ctx, snapshot.GameID, snapshot.PlayIndex)
	if err != nil {
		return nil, err
	}

	state := &State{
		SessionID:      snapshot.SessionID,
		GameID:         snapshot.GameID,
		PlayIndex:      snapshot.PlayIndex,
		Inning:         snapshot.Inning,
		Half:           snapshot.Half,
		Outs:           snapshot.Outs,
		HomeTeamID:     boundary.HomeTeamID(),
		VisitingTeamID: boundary.VisitingTeamID(),
		Score:          result,
		EventCode:      boundary.EventCode,
		Slots:          snapshot.Slots,
		Changes:        snapshot.Changes,
		Repairs:        repairs,
	}

	ids := make([]string, 0, len(snapshot.Slots)+5)
	for _, slot := range snapshot.Slots {
		ids = append(ids, slot.PlayerID)
	}
	ids = append(ids, boundary.BatterID, boundary.PitcherID,
		boundary.RunnerFirstID, boundary.RunnerSecondID, boundary.RunnerThirdID)
	state.PlayerNames = o.names.Names(ctx, ids)

	display := func(playerID string) string {
		if playerID == "" {
			return ""
		}
		if name := state.PlayerNames[playerID]; name != "" {
			return name
		}
		return playerID
	}
	state.RunnerFirstName = display(boundary.RunnerFirstID)
	state.RunnerSecondName = display(boundary.RunnerSecondID)
	state.RunnerThirdName = display(boundary.RunnerThirdID)
	for _, slot := range snapshot.Slots {
		home := slot.TeamID == state.HomeTeamID
		if slot.CurrentBatter {
			if home {
				state.HomeBatterName = display(slot.PlayerID)
			} else {
				state.VisitorBatterName = display(slot.PlayerID)
			}
		}
		if slot.CurrentPitcher {
			if home {
				state.HomePitcherName = display(slot.PlayerID)
			} else {
				state.VisitorPitcherName = display(slot.PlayerID)
			}
		}
	}

	if withCommentary {
		var descriptions []string
		for _, change := range snapshot.Changes {
			descriptions = append(descriptions, change.Description)
		}
		text, err := o.commentary.Comment(ctx, commentary.PlayContext{
			Play:          boundary,
			HomeScore:     result.HomeAfter,
			VisitorScore:  result.VisitorAfter,
			BatterName:    state.PlayerNames[boundary.BatterID],
			PitcherName:   state.PlayerNames[boundary.PitcherID],
			Substitutions: descriptions,
			Locale:        locale,
		})
		if err == nil {
			state.Commentary = text
		}
	}

	return state, nil
}

// scoreAt serves score results from a per-game preloaded table, building it
// on first use.
func (o *Orchestrator) scoreAt(ctx context.Context, gameID string, playIndex int) (score.Result, error) {
	o.scoreMu.Lock()
	table, ok := o.scores[gameID]
	o.scoreMu.Unlock()

	if !ok {
		plays, err := o.store.ListPlays(ctx, gameID)
		if err != nil {
			return score.Result{}, platformerrors.Wrap(platformerrors.CodeUnknown, "load plays for score", err)
		}
		table = score.BuildTable(plays)
		o.scoreMu.Lock()
		o.scores[gameID] = table
		o.scoreMu.Unlock()
	}
	return table.At(playIndex)
}

func (o *Orchestrator) lockSession(sessionID string) func() {
	o.mu.Lock()
	lock, ok := o.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[sessionID] = lock
	}
	o.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func (o *Orchestrator) emit(ctx context.Context, name, gameID, sessionID string, attributes map[string]string) {
	_ = o.emitter.Emit(ctx, storage.TelemetryEvent{
		EventName:  name,
		GameID:     gameID,
		SessionID:  sessionID,
		Attributes: attributes,
	})
}

func playerIDs(records ...play.Record) []string {
	var ids []string
	for _, record := range records {
		ids = append(ids, record.BatterID, record.PitcherID,
			record.RunnerFirstID, record.RunnerSecondID, record.RunnerThirdID)
		for _, fielder := range record.Fielders {
			ids = append(ids, fielder)
		}
	}
	return ids
}
