package app

import (
	"context"
	"fmt"
	"sort"
	"testing"

	platformerrors "github.com/louisbranch/dugout/internal/platform/errors"
	"github.com/louisbranch/dugout/internal/services/replay/domain/lineup"
	"github.com/louisbranch/dugout/internal/services/replay/domain/play"
	"github.com/louisbranch/dugout/internal/services/replay/storage"
)

type memStore struct {
	plays     map[string][]play.Record
	starting  map[string][]play.StartingSlot
	players   map[string]storage.Player
	snapshots map[string]lineup.Snapshot
	sessions  map[string]storage.Session
	events    []storage.TelemetryEvent
}

func newMemStore() *memStore {
	return &memStore{
		plays:     map[string][]play.Record{},
		starting:  map[string][]play.StartingSlot{},
		players:   map[string]storage.Player{},
		snapshots: map[string]lineup.Snapshot{},
		sessions:  map[string]storage.Session{},
	}
}

func snapshotKey(gameID, sessionID string, playIndex int) string {
	return fmt.Sprintf("%s/%s/%d", gameID, sessionID, playIndex)
}

func (m *memStore) PutPlay(_ context.Context, record play.Record) error {
	m.plays[record.GameID] = append(m.plays[record.GameID], record)
	sort.Slice(m.plays[record.GameID], func(i, j int) bool {
		return m.plays[record.GameID][i].Index < m.plays[record.GameID][j].Index
	})
	return nil
}

func (m *memStore) PlayByIndex(_ context.Context, gameID string, index int) (play.Record, error) {
	for _, record := range m.plays[gameID] {
		if record.Index == index {
			return record, nil
		}
	}
	return play.Record{}, storage.ErrNotFound
}

func (m *memStore) ListPlays(_ context.Context, gameID string) ([]play.Record, error) {
	return m.plays[gameID], nil
}

func (m *memStore) FirstPlay(_ context.Context, gameID string) (play.Record, error) {
	if len(m.plays[gameID]) == 0 {
		return play.Record{}, storage.ErrNotFound
	}
	return m.plays[gameID][0], nil
}

func (m *memStore) PutStartingSlot(_ context.Context, gameID string, slot play.StartingSlot) error {
	m.starting[gameID] = append(m.starting[gameID], slot)
	return nil
}

func (m *memStore) StartingLineup(_ context.Context, gameID string) ([]play.StartingSlot, error) {
	if len(m.starting[gameID]) == 0 {
		return nil, storage.ErrNotFound
	}
	return m.starting[gameID], nil
}

func (m *memStore) PutPlayer(_ context.Context, player storage.Player) error {
	m.players[player.ID] = player
	return nil
}

func (m *memStore) PlayerNames(_ context.Context, ids []string) (map[string]string, error) {
	names := map[string]string{}
	for _, id := range ids {
		if player, ok := m.players[id]; ok {
			names[id] = player.Name
		}
	}
	return names, nil
}

func (m *memStore) AppendSnapshot(_ context.Context, snapshot lineup.Snapshot) error {
	key := snapshotKey(snapshot.GameID, snapshot.SessionID, snapshot.PlayIndex)
	if _, exists := m.snapshots[key]; exists {
		return storage.ErrConflict
	}
	m.snapshots[key] = snapshot
	return nil
}

func (m *memStore) LatestSnapshot(_ context.Context, gameID, sessionID string) (lineup.Snapshot, error) {
	latest := lineup.Snapshot{PlayIndex: -1}
	for _, snapshot := range m.snapshots {
		if snapshot.GameID == gameID && snapshot.SessionID == sessionID && snapshot.PlayIndex > latest.PlayIndex {
			latest = snapshot
		}
	}
	if latest.PlayIndex < 0 {
		return lineup.Snapshot{}, storage.ErrNotFound
	}
	return latest, nil
}

func (m *memStore) SnapshotAt(_ context.Context, gameID, sessionID string, playIndex int) (lineup.Snapshot, error) {
	snapshot, ok := m.snapshots[snapshotKey(gameID, sessionID, playIndex)]
	if !ok {
		return lineup.Snapshot{}, storage.ErrNotFound
	}
	return snapshot, nil
}

func (m *memStore) PutSession(_ context.Context, session storage.Session) error {
	m.sessions[session.ID] = session
	return nil
}

func (m *memStore) GetSession(_ context.Context, id string) (storage.Session, error) {
	session, ok := m.sessions[id]
	if !ok {
		return storage.Session{}, storage.ErrNotFound
	}
	return session, nil
}

func (m *memStore) AdvanceSession(_ context.Context, id string, fromIndex, toIndex int) error {
	session, ok := m.sessions[id]
	if !ok {
		return storage.ErrNotFound
	}
	if session.PlayIndex != fromIndex {
		return storage.ErrConflict
	}
	session.PlayIndex = toIndex
	m.sessions[id] = session
	return nil
}

func (m *memStore) AppendTelemetryEvent(_ context.Context, event storage.TelemetryEvent) error {
	m.events = append(m.events, event)
	return nil
}

func (m *memStore) Close() error { return nil }

// seedGame loads a short two-team game: three visitor plays in the top of the
// first (one scoring), then two home plays in the bottom, the second by an
// unrostered pinch hitter.
func seedGame(t *testing.T, store *memStore) {
	t.Helper()
	ctx := context.Background()

	for _, teamID := range []string{"NYA", "BOS"} {
		for order := 1; order <= 9; order++ {
			position := play.PositionLabel(order%9 + 1)
			if err := store.PutStartingSlot(ctx, "g1", play.StartingSlot{
				TeamID:       teamID,
				PlayerID:     fmt.Sprintf("%s-%d", teamID, order),
				BattingOrder: order,
				Position:     position,
			}); err != nil {
				t.Fatalf("put starting slot: %v", err)
			}
		}
	}

	plays := []play.Record{
		{Index: 1, Inning: 1, Half: play.HalfTop, BattingTeamID: "NYA", FieldingTeamID: "BOS", BatterID: "NYA-1", PitcherID: "BOS-9"},
		{Index: 2, Inning: 1, Half: play.HalfTop, BattingTeamID: "NYA", FieldingTeamID: "BOS", BatterID: "NYA-2", PitcherID: "BOS-9", Runs: 1},
		{Index: 3, Inning: 1, Half: play.HalfTop, BattingTeamID: "NYA", FieldingTeamID: "BOS", BatterID: "NYA-3", PitcherID: "BOS-9", Outs: 2},
		{Index: 4, Inning: 1, Half: play.HalfBottom, BattingTeamID: "BOS", FieldingTeamID: "NYA", BatterID: "BOS-1", PitcherID: "NYA-9"},
		{Index: 5, Inning: 1, Half: play.HalfBottom, BattingTeamID: "BOS", FieldingTeamID: "NYA", BatterID: "BOS-ph", PitcherID: "NYA-9"},
	}
	for _, record := range plays {
		record.GameID = "g1"
		if err := store.PutPlay(ctx, record); err != nil {
			t.Fatalf("put play %d: %v", record.Index, err)
		}
	}
}

func newTestOrchestrator(t *testing.T, store *memStore) *Orchestrator {
	t.Helper()
	orch, err := New(Config{Store: store})
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	return orch
}

func TestInitializeSession(t *testing.T) {
	store := newMemStore()
	seedGame(t, store)
	orch := newTestOrchestrator(t, store)

	state, err := orch.InitializeSession(context.Background(), "g1", "s1", "en-US")
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if state.PlayIndex != 1 {
		t.Fatalf("play index = %d, want 1", state.PlayIndex)
	}
	if state.HomeTeamID != "BOS" || state.VisitingTeamID != "NYA" {
		t.Fatalf("unexpected teams %s/%s", state.HomeTeamID, state.VisitingTeamID)
	}
	if len(state.Changes) != 2 {
		t.Fatalf("changes len = %d, want 2 initial lineups", len(state.Changes))
	}
	if state.Score.HomeBefore != 0 || state.Score.VisitorBefore != 0 {
		t.Fatalf("unexpected score %+v", state.Score)
	}

	var flagged int
	for _, slot := range state.Slots {
		if slot.TeamID == "NYA" && slot.CurrentBatter {
			flagged++
			if slot.PlayerID != "NYA-1" {
				t.Fatalf("expected NYA-1 flagged, got %s", slot.PlayerID)
			}
		}
	}
	if flagged != 1 {
		t.Fatalf("flagged batters = %d, want 1", flagged)
	}
	// No resolver is wired, so names fall back to player ids.
	if state.VisitorBatterName != "NYA-1" {
		t.Fatalf("visitor batter = %q, want NYA-1", state.VisitorBatterName)
	}
	if state.HomePitcherName != "BOS-9" {
		t.Fatalf("home pitcher = %q, want BOS-9", state.HomePitcherName)
	}
}

func TestInitializeSessionGeneratesID(t *testing.T) {
	store := newMemStore()
	seedGame(t, store)
	orch := newTestOrchestrator(t, store)

	state, err := orch.InitializeSession(context.Background(), "g1", "", "")
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if state.SessionID == "" {
		t.Fatal("expected a generated session id")
	}
}

func TestInitializeSessionErrors(t *testing.T) {
	store := newMemStore()
	orch := newTestOrchestrator(t, store)

	_, err := orch.InitializeSession(context.Background(), "", "s1", "")
	if !platformerrors.IsCode(err, platformerrors.CodeGameIDEmpty) {
		t.Fatalf("expected GAME_ID_EMPTY, got %v", err)
	}

	_, err = orch.InitializeSession(context.Background(), "g1", "s1", "")
	if !platformerrors.IsCode(err, platformerrors.CodeLineupNotFound) {
		t.Fatalf("expected LINEUP_NOT_FOUND, got %v", err)
	}

	seedGame(t, store)
	if _, err := orch.InitializeSession(context.Background(), "g1", "s1", ""); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	_, err = orch.InitializeSession(context.Background(), "g1", "s1", "")
	if !platformerrors.IsCode(err, platformerrors.CodeSnapshotConflict) {
		t.Fatalf("expected SNAPSHOT_ALREADY_APPENDED, got %v", err)
	}
}

func TestReinitializeKeepsAdvancedCursor(t *testing.T) {
	store := newMemStore()
	seedGame(t, store)
	orch := newTestOrchestrator(t, store)
	ctx := context.Background()

	if _, err := orch.InitializeSession(ctx, "g1", "s1", "en-US"); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	for want := 2; want <= 3; want++ {
		if _, err := orch.Advance(ctx, "s1"); err != nil {
			t.Fatalf("advance to %d: %v", want, err)
		}
	}

	_, err := orch.InitializeSession(ctx, "g1", "s1", "en-US")
	if !platformerrors.IsCode(err, platformerrors.CodeSnapshotConflict) {
		t.Fatalf("expected SNAPSHOT_ALREADY_APPENDED, got %v", err)
	}
	session, err := store.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if session.PlayIndex != 3 {
		t.Fatalf("cursor after rejected re-initialize = %d, want 3", session.PlayIndex)
	}

	state, err := orch.Advance(ctx, "s1")
	if err != nil {
		t.Fatalf("advance after rejected re-initialize: %v", err)
	}
	if state.PlayIndex != 4 {
		t.Fatalf("play index = %d, want 4", state.PlayIndex)
	}
}

func TestAdvanceThroughGame(t *testing.T) {
	store := newMemStore()
	seedGame(t, store)
	orch := newTestOrchestrator(t, store)

	if _, err := orch.InitializeSession(context.Background(), "g1", "s1", ""); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	// Play 2 scores one visitor run.
	state, err := orch.Advance(context.Background(), "s1")
	if err != nil {
		t.Fatalf("advance to 2: %v", err)
	}
	if state.PlayIndex != 2 {
		t.Fatalf("play index = %d, want 2", state.PlayIndex)
	}
	if state.Score.VisitorBefore != 0 || state.Score.VisitorAfter != 1 {
		t.Fatalf("unexpected score %+v", state.Score)
	}

	// Plays 3 and 4 cross the half-inning turnover.
	for want := 3; want <= 4; want++ {
		state, err = orch.Advance(context.Background(), "s1")
		if err != nil {
			t.Fatalf("advance to %d: %v", want, err)
		}
		if state.PlayIndex != want {
			t.Fatalf("play index = %d, want %d", state.PlayIndex, want)
		}
	}
	if state.Half != play.HalfBottom {
		t.Fatalf("expected bottom half, got %s", state.Half)
	}

	// Play 5 brings an unrostered pinch hitter in for slot 2.
	state, err = orch.Advance(context.Background(), "s1")
	if err != nil {
		t.Fatalf("advance to 5: %v", err)
	}
	var substituted bool
	for _, change := range state.Changes {
		if change.Kind == lineup.ChangeSubstitution && change.IncomingPlayerID == "BOS-ph" {
			substituted = true
			if change.BattingOrder != 2 {
				t.Fatalf("substitution order = %d, want 2", change.BattingOrder)
			}
		}
	}
	if !substituted {
		t.Fatal("expected a substitution change for BOS-ph")
	}

	// Past the last play the session reports end of game.
	_, err = orch.Advance(context.Background(), "s1")
	if !platformerrors.IsCode(err, platformerrors.CodePlayNotFound) {
		t.Fatalf("expected PLAY_NOT_FOUND at end of game, got %v", err)
	}
}

func TestAdvanceStaleCursor(t *testing.T) {
	store := newMemStore()
	seedGame(t, store)
	orch := newTestOrchestrator(t, store)

	if _, err := orch.InitializeSession(context.Background(), "g1", "s1", ""); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	// Another writer moved the cursor without appending a snapshot.
	session := store.sessions["s1"]
	session.PlayIndex = 3
	store.sessions["s1"] = session

	_, err := orch.Advance(context.Background(), "s1")
	if !platformerrors.IsCode(err, platformerrors.CodeStaleSession) {
		t.Fatalf("expected SESSION_STALE_PLAY_INDEX, got %v", err)
	}
}

func TestAdvanceUnknownSession(t *testing.T) {
	store := newMemStore()
	orch := newTestOrchestrator(t, store)

	_, err := orch.Advance(context.Background(), "ghost")
	if !platformerrors.IsCode(err, platformerrors.CodeSessionNotFound) {
		t.Fatalf("expected SESSION_NOT_FOUND, got %v", err)
	}
	_, err = orch.Advance(context.Background(), "")
	if !platformerrors.IsCode(err, platformerrors.CodeSessionIDEmpty) {
		t.Fatalf("expected SESSION_ID_EMPTY, got %v", err)
	}
}

func TestPreviewSubstitutionsDoesNotAdvance(t *testing.T) {
	store := newMemStore()
	seedGame(t, store)
	orch := newTestOrchestrator(t, store)

	if _, err := orch.InitializeSession(context.Background(), "g1", "s1", ""); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := orch.Advance(context.Background(), "s1"); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}

	// Next play (5) is the pinch hitter; preview must see it without moving.
	summary, err := orch.PreviewSubstitutions(context.Background(), "s1")
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if summary.PlayIndex != 5 {
		t.Fatalf("preview play index = %d, want 5", summary.PlayIndex)
	}
	if len(summary.Substitutions) != 1 || summary.Substitutions[0].IncomingPlayerID != "BOS-ph" {
		t.Fatalf("unexpected substitutions %+v", summary.Substitutions)
	}

	session, err := store.GetSession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if session.PlayIndex != 4 {
		t.Fatalf("preview moved the cursor to %d", session.PlayIndex)
	}

	// Advancing afterwards records the same substitution.
	state, err := orch.Advance(context.Background(), "s1")
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	var found bool
	for _, change := range state.Changes {
		if change.Kind == lineup.ChangeSubstitution && change.IncomingPlayerID == "BOS-ph" {
			found = true
		}
	}
	if !found {
		t.Fatal("advance disagreed with the preview")
	}
}

func TestSnapshotAt(t *testing.T) {
	store := newMemStore()
	seedGame(t, store)
	orch := newTestOrchestrator(t, store)

	if _, err := orch.InitializeSession(context.Background(), "g1", "s1", ""); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := orch.Advance(context.Background(), "s1"); err != nil {
		t.Fatalf("advance: %v", err)
	}

	snapshot, err := orch.SnapshotAt(context.Background(), "s1", 1)
	if err != nil {
		t.Fatalf("snapshot at: %v", err)
	}
	if snapshot.PlayIndex != 1 {
		t.Fatalf("snapshot play index = %d, want 1", snapshot.PlayIndex)
	}

	_, err = orch.SnapshotAt(context.Background(), "s1", 42)
	if !platformerrors.IsCode(err, platformerrors.CodeLineupNotFound) {
		t.Fatalf("expected LINEUP_NOT_FOUND, got %v", err)
	}
	_, err = orch.SnapshotAt(context.Background(), "s1", -1)
	if !platformerrors.IsCode(err, platformerrors.CodePlayIndexInvalid) {
		t.Fatalf("expected PLAY_INDEX_INVALID, got %v", err)
	}
}
