package mcp

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	platformerrors "github.com/louisbranch/dugout/internal/platform/errors"
	"github.com/louisbranch/dugout/internal/services/replay/app"
	"github.com/louisbranch/dugout/internal/services/replay/domain/play"
	"github.com/louisbranch/dugout/internal/services/replay/storage"
	"github.com/louisbranch/dugout/internal/services/replay/storage/sqlite"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "replay.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	seedGame(t, store)

	orch, err := app.New(app.Config{Store: store})
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	server, err := NewServer(orch)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return server
}

func seedGame(t *testing.T, store storage.Store) {
	t.Helper()
	ctx := context.Background()

	for _, teamID := range []string{"NYA", "BOS"} {
		for order := 1; order <= 9; order++ {
			slot := play.StartingSlot{
				TeamID:       teamID,
				PlayerID:     fmt.Sprintf("%s-%d", teamID, order),
				BattingOrder: order,
				Position:     play.PositionLabel(order%9 + 1),
			}
			if err := store.PutStartingSlot(ctx, "g1", slot); err != nil {
				t.Fatalf("put starting slot: %v", err)
			}
		}
	}

	plays := []play.Record{
		{GameID: "g1", Index: 1, Inning: 1, Half: play.HalfTop, BattingTeamID: "NYA", FieldingTeamID: "BOS", BatterID: "NYA-1", PitcherID: "BOS-9"},
		{GameID: "g1", Index: 2, Inning: 1, Half: play.HalfTop, BattingTeamID: "NYA", FieldingTeamID: "BOS", BatterID: "NYA-2", PitcherID: "BOS-9", Runs: 2},
		{GameID: "g1", Index: 3, Inning: 1, Half: play.HalfTop, BattingTeamID: "NYA", FieldingTeamID: "BOS", BatterID: "NYA-bench", PitcherID: "BOS-9"},
	}
	for _, record := range plays {
		if err := store.PutPlay(ctx, record); err != nil {
			t.Fatalf("put play %d: %v", record.Index, err)
		}
	}

	if err := store.PutPlayer(ctx, storage.Player{ID: "NYA-bench", Name: "Bench Bat", TeamID: "NYA"}); err != nil {
		t.Fatalf("put player: %v", err)
	}
}

func TestInitializeAndAdvanceTools(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	_, state, err := server.initializeHandler()(ctx, nil, InitializeInput{GameID: "g1", SessionID: "s1"})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if state.SessionID != "s1" || state.PlayIndex != 1 {
		t.Fatalf("unexpected state %+v", state)
	}
	if state.HomeTeamID != "BOS" {
		t.Fatalf("home team = %s, want BOS", state.HomeTeamID)
	}
	if len(state.Slots) != 18 {
		t.Fatalf("slots len = %d, want 18", len(state.Slots))
	}

	_, state, err = server.advanceHandler()(ctx, nil, AdvanceInput{SessionID: "s1"})
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if state.PlayIndex != 2 {
		t.Fatalf("play index = %d, want 2", state.PlayIndex)
	}
	if state.VisitorAfter != 2 || state.VisitorBefore != 0 {
		t.Fatalf("unexpected score %+v", state)
	}
}

func TestPreviewToolNarratesSubstitution(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	if _, _, err := server.initializeHandler()(ctx, nil, InitializeInput{GameID: "g1", SessionID: "s1"}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, _, err := server.advanceHandler()(ctx, nil, AdvanceInput{SessionID: "s1"}); err != nil {
		t.Fatalf("advance: %v", err)
	}

	_, preview, err := server.previewHandler()(ctx, nil, PreviewInput{SessionID: "s1"})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if preview.PlayIndex != 3 {
		t.Fatalf("preview play index = %d, want 3", preview.PlayIndex)
	}
	if len(preview.Substitutions) != 1 {
		t.Fatalf("substitutions len = %d, want 1", len(preview.Substitutions))
	}
	sub := preview.Substitutions[0]
	if sub.Kind != "BATTING_SUBSTITUTION" || sub.IncomingPlayerID != "NYA-bench" {
		t.Fatalf("unexpected substitution %+v", sub)
	}
	if !preview.HasPinchHitter || preview.HasPitchingChange || preview.HasPinchRunner {
		t.Fatalf("unexpected flags %+v", preview)
	}
}

func TestSnapshotAtTool(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	if _, _, err := server.initializeHandler()(ctx, nil, InitializeInput{GameID: "g1", SessionID: "s1"}); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	_, snapshot, err := server.snapshotAtHandler()(ctx, nil, SnapshotAtInput{SessionID: "s1", PlayIndex: 1})
	if err != nil {
		t.Fatalf("snapshot at: %v", err)
	}
	if snapshot.PlayIndex != 1 || len(snapshot.Slots) != 18 {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}
}

func TestAdvanceToolEndOfGame(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	if _, _, err := server.initializeHandler()(ctx, nil, InitializeInput{GameID: "g1", SessionID: "s1"}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, _, err := server.advanceHandler()(ctx, nil, AdvanceInput{SessionID: "s1"}); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
	}

	_, _, err := server.advanceHandler()(ctx, nil, AdvanceInput{SessionID: "s1"})
	if !platformerrors.IsCode(err, platformerrors.CodePlayNotFound) {
		t.Fatalf("expected PLAY_NOT_FOUND, got %v", err)
	}
	// Tool errors carry the canonical gRPC code the domain code maps to.
	if !strings.Contains(err.Error(), "NotFound") {
		t.Fatalf("expected a NotFound status message, got %q", err.Error())
	}
}

func TestToolErrorsCarryGRPCStatus(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	_, _, err := server.initializeHandler()(ctx, nil, InitializeInput{GameID: ""})
	if !platformerrors.IsCode(err, platformerrors.CodeGameIDEmpty) {
		t.Fatalf("expected GAME_ID_EMPTY, got %v", err)
	}
	if got := status.Code(err); got != codes.InvalidArgument {
		t.Fatalf("status code = %s, want InvalidArgument", got)
	}
}
