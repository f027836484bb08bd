package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/grpc/status"

	platformerrors "github.com/louisbranch/dugout/internal/platform/errors"
	"github.com/louisbranch/dugout/internal/platform/timeouts"
	"github.com/louisbranch/dugout/internal/services/replay/app"
	"github.com/louisbranch/dugout/internal/services/replay/domain/lineup"
	"github.com/louisbranch/dugout/internal/services/replay/domain/narrate"
	"github.com/louisbranch/dugout/internal/services/replay/i18n"
)

// SlotResult is one lineup entry in a tool response.
type SlotResult struct {
	TeamID         string `json:"team_id" jsonschema:"team identifier"`
	PlayerID       string `json:"player_id" jsonschema:"player identifier"`
	PlayerName     string `json:"player_name,omitempty" jsonschema:"resolved display name, when known"`
	BattingOrder   int    `json:"batting_order" jsonschema:"batting order 1-9, or 0 for a non-batting pitcher"`
	Position       string `json:"position,omitempty" jsonschema:"defensive position label"`
	CurrentBatter  bool   `json:"current_batter,omitempty" jsonschema:"whether this slot holds the team's current batter"`
	CurrentPitcher bool   `json:"current_pitcher,omitempty" jsonschema:"whether this slot holds the team's current pitcher"`
}

// ChangeResult is one detected lineup change in a tool response.
type ChangeResult struct {
	Kind             string `json:"kind" jsonschema:"change kind (PITCHING_CHANGE, SUBSTITUTION, POSITION_CHANGE, INITIAL_LINEUP)"`
	TeamID           string `json:"team_id" jsonschema:"team identifier"`
	IncomingPlayerID string `json:"incoming_player_id,omitempty" jsonschema:"player entering"`
	OutgoingPlayerID string `json:"outgoing_player_id,omitempty" jsonschema:"player leaving"`
	BattingOrder     int    `json:"batting_order,omitempty" jsonschema:"batting order for substitutions"`
	Position         int    `json:"position,omitempty" jsonschema:"defensive position number for position changes"`
	Description      string `json:"description,omitempty" jsonschema:"human-readable description"`
}

// RepairResult is one invariant self-correction in a tool response.
type RepairResult struct {
	Kind         string `json:"kind" jsonschema:"repair kind"`
	TeamID       string `json:"team_id" jsonschema:"team identifier"`
	BattingOrder int    `json:"batting_order,omitempty" jsonschema:"batting order the repair settled on"`
}

// StateResult is the replay state returned by initialize and advance.
type StateResult struct {
	SessionID      string         `json:"session_id" jsonschema:"replay session identifier"`
	GameID         string         `json:"game_id" jsonschema:"game identifier"`
	PlayIndex      int            `json:"play_index" jsonschema:"play index the state is attributed to"`
	Inning         int            `json:"inning" jsonschema:"current inning"`
	Half           string         `json:"half" jsonschema:"half-inning (TOP or BOTTOM)"`
	Outs           int            `json:"outs" jsonschema:"outs recorded before the play"`
	HomeTeamID     string         `json:"home_team_id" jsonschema:"home team identifier"`
	VisitingTeamID string         `json:"visiting_team_id" jsonschema:"visiting team identifier"`
	HomeBefore     int            `json:"home_score_before" jsonschema:"home runs before the play"`
	VisitorBefore  int            `json:"visitor_score_before" jsonschema:"visitor runs before the play"`
	HomeAfter      int            `json:"home_score_after" jsonschema:"home runs after the play"`
	VisitorAfter   int            `json:"visitor_score_after" jsonschema:"visitor runs after the play"`

	HomeBatterName     string `json:"home_batter_name,omitempty" jsonschema:"home team's current batter"`
	HomePitcherName    string `json:"home_pitcher_name,omitempty" jsonschema:"home team's current pitcher"`
	VisitorBatterName  string `json:"visitor_batter_name,omitempty" jsonschema:"visiting team's current batter"`
	VisitorPitcherName string `json:"visitor_pitcher_name,omitempty" jsonschema:"visiting team's current pitcher"`
	RunnerFirstName    string `json:"runner_first_name,omitempty" jsonschema:"occupant of first base, when recorded"`
	RunnerSecondName   string `json:"runner_second_name,omitempty" jsonschema:"occupant of second base, when recorded"`
	RunnerThirdName    string `json:"runner_third_name,omitempty" jsonschema:"occupant of third base, when recorded"`
	EventCode          string `json:"event_code,omitempty" jsonschema:"raw scoring notation of the play"`

	Slots          []SlotResult   `json:"slots" jsonschema:"full lineup state for both teams"`
	Changes        []ChangeResult `json:"changes,omitempty" jsonschema:"lineup changes this play produced"`
	Repairs        []RepairResult `json:"repairs,omitempty" jsonschema:"invariant repairs performed while applying the play"`
	Commentary     string         `json:"commentary,omitempty" jsonschema:"optional generated commentary"`
}

// InitializeInput is the replay_initialize tool input.
type InitializeInput struct {
	GameID    string `json:"game_id" jsonschema:"game identifier"`
	SessionID string `json:"session_id,omitempty" jsonschema:"optional session identifier; generated when omitted"`
	Locale    string `json:"locale,omitempty" jsonschema:"narration locale, e.g. en-US or pt-BR"`
}

// AdvanceInput is the replay_advance tool input.
type AdvanceInput struct {
	SessionID string `json:"session_id" jsonschema:"replay session identifier"`
}

// PreviewInput is the replay_preview_substitutions tool input.
type PreviewInput struct {
	SessionID string `json:"session_id" jsonschema:"replay session identifier"`
}

// SubstitutionResult is one narrated substitution in a preview response.
type SubstitutionResult struct {
	Kind             string `json:"kind" jsonschema:"substitution kind (PITCHING_CHANGE, BATTING_SUBSTITUTION, POSITION_CHANGE, PINCH_RUNNER)"`
	TeamID           string `json:"team_id" jsonschema:"team identifier"`
	IncomingPlayerID string `json:"incoming_player_id" jsonschema:"player entering"`
	OutgoingPlayerID string `json:"outgoing_player_id" jsonschema:"player leaving"`
	BattingOrder     int    `json:"batting_order,omitempty" jsonschema:"batting order for batting substitutions"`
	Position         int    `json:"position,omitempty" jsonschema:"defensive position for position changes"`
	Base             int    `json:"base,omitempty" jsonschema:"base 1-3 for pinch runners"`
	Description      string `json:"description" jsonschema:"localized narration"`
}

// PreviewResult is the replay_preview_substitutions tool output.
type PreviewResult struct {
	PlayIndex     int                  `json:"play_index" jsonschema:"index of the play the preview covers"`
	Substitutions []SubstitutionResult `json:"substitutions" jsonschema:"substitutions the next play implies"`

	HasPitchingChange bool `json:"has_pitching_change" jsonschema:"whether a pitching change was detected"`
	HasPinchHitter    bool `json:"has_pinch_hitter" jsonschema:"whether a batting substitution was detected"`
	HasPinchRunner    bool `json:"has_pinch_runner" jsonschema:"whether a pinch runner was detected"`
}

// SnapshotAtInput is the replay_snapshot_at tool input.
type SnapshotAtInput struct {
	SessionID string `json:"session_id" jsonschema:"replay session identifier"`
	PlayIndex int    `json:"play_index" jsonschema:"play index of the recorded snapshot"`
}

// SnapshotResult is the replay_snapshot_at tool output.
type SnapshotResult struct {
	GameID    string         `json:"game_id" jsonschema:"game identifier"`
	SessionID string         `json:"session_id" jsonschema:"replay session identifier"`
	PlayIndex int            `json:"play_index" jsonschema:"play index the snapshot is attributed to"`
	Inning    int            `json:"inning" jsonschema:"inning at the snapshot"`
	Half      string         `json:"half" jsonschema:"half-inning at the snapshot"`
	Slots     []SlotResult   `json:"slots" jsonschema:"full lineup state"`
	Changes   []ChangeResult `json:"changes,omitempty" jsonschema:"changes recorded with the snapshot"`
}

func initializeTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "replay_initialize",
		Description: "Starts a replay session for a game, reconstructing both starting lineups and placing the first batter.",
	}
}

func advanceTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "replay_advance",
		Description: "Applies the next play to a replay session, returning the updated lineup state, detected changes, and score. Fails with a not-found error at the end of the game.",
	}
}

func previewTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "replay_preview_substitutions",
		Description: "Narrates the substitutions the next play implies without advancing the session.",
	}
}

func snapshotAtTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "replay_snapshot_at",
		Description: "Returns the lineup snapshot a session recorded at an exact play index.",
	}
}

// toolError reports a failed tool call as the gRPC status its domain code
// maps to, so callers see the canonical code and structured details. The
// domain error stays in the chain for code checks.
type toolError struct {
	cause  error
	status *status.Status
}

func (e *toolError) Error() string { return e.status.Err().Error() }

func (e *toolError) Unwrap() error { return e.cause }

// GRPCStatus exposes the mapped status to status.FromError and status.Code.
func (e *toolError) GRPCStatus() *status.Status { return e.status }

func asToolError(err error) error {
	var domainErr *platformerrors.Error
	if err == nil || !errors.As(err, &domainErr) {
		return err
	}
	mapped := domainErr.ToGRPCStatus(i18n.BaseLocale, domainErr.Message)
	return &toolError{cause: err, status: status.Convert(mapped)}
}

func (s *Server) initializeHandler() mcp.ToolHandlerFor[InitializeInput, StateResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input InitializeInput) (*mcp.CallToolResult, StateResult, error) {
		ctx, cancel := context.WithTimeout(ctx, timeouts.ToolCall)
		defer cancel()

		state, err := s.orchestrator.InitializeSession(ctx, input.GameID, input.SessionID, input.Locale)
		if err != nil {
			return nil, StateResult{}, asToolError(err)
		}
		return nil, stateResult(state), nil
	}
}

func (s *Server) advanceHandler() mcp.ToolHandlerFor[AdvanceInput, StateResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input AdvanceInput) (*mcp.CallToolResult, StateResult, error) {
		ctx, cancel := context.WithTimeout(ctx, timeouts.ToolCall)
		defer cancel()

		state, err := s.orchestrator.Advance(ctx, input.SessionID)
		if err != nil {
			return nil, StateResult{}, asToolError(err)
		}
		return nil, stateResult(state), nil
	}
}

func (s *Server) previewHandler() mcp.ToolHandlerFor[PreviewInput, PreviewResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input PreviewInput) (*mcp.CallToolResult, PreviewResult, error) {
		ctx, cancel := context.WithTimeout(ctx, timeouts.ToolCall)
		defer cancel()

		summary, err := s.orchestrator.PreviewSubstitutions(ctx, input.SessionID)
		if err != nil {
			return nil, PreviewResult{}, asToolError(err)
		}
		return nil, previewResult(summary), nil
	}
}

func (s *Server) snapshotAtHandler() mcp.ToolHandlerFor[SnapshotAtInput, SnapshotResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SnapshotAtInput) (*mcp.CallToolResult, SnapshotResult, error) {
		ctx, cancel := context.WithTimeout(ctx, timeouts.ToolCall)
		defer cancel()

		snapshot, err := s.orchestrator.SnapshotAt(ctx, input.SessionID, input.PlayIndex)
		if err != nil {
			return nil, SnapshotResult{}, asToolError(err)
		}
		return nil, SnapshotResult{
			GameID:    snapshot.GameID,
			SessionID: snapshot.SessionID,
			PlayIndex: snapshot.PlayIndex,
			Inning:    snapshot.Inning,
			Half:      string(snapshot.Half),
			Slots:     slotResults(snapshot.Slots, nil),
			Changes:   changeResults(snapshot.Changes),
		}, nil
	}
}

func stateResult(state *app.State) StateResult {
	return StateResult{
		SessionID:      state.SessionID,
		GameID:         state.GameID,
		PlayIndex:      state.PlayIndex,
		Inning:         state.Inning,
		Half:           string(state.Half),
		Outs:           state.Outs,
		HomeTeamID:     state.HomeTeamID,
		VisitingTeamID: state.VisitingTeamID,
		HomeBefore:     state.Score.HomeBefore,
		VisitorBefore:  state.Score.VisitorBefore,
		HomeAfter:      state.Score.HomeAfter,
		VisitorAfter:   state.Score.VisitorAfter,

		HomeBatterName:     state.HomeBatterName,
		HomePitcherName:    state.HomePitcherName,
		VisitorBatterName:  state.VisitorBatterName,
		VisitorPitcherName: state.VisitorPitcherName,
		RunnerFirstName:    state.RunnerFirstName,
		RunnerSecondName:   state.RunnerSecondName,
		RunnerThirdName:    state.RunnerThirdName,
		EventCode:          state.EventCode,

		Slots:          slotResults(state.Slots, state.PlayerNames),
		Changes:        changeResults(state.Changes),
		Repairs:        repairResults(state.Repairs),
		Commentary:     state.Commentary,
	}
}

func slotResults(slots []lineup.Slot, names map[string]string) []SlotResult {
	out := make([]SlotResult, 0, len(slots))
	for _, slot := range slots {
		out = append(out, SlotResult{
			TeamID:         slot.TeamID,
			PlayerID:       slot.PlayerID,
			PlayerName:     names[slot.PlayerID],
			BattingOrder:   slot.BattingOrder,
			Position:       slot.Position,
			CurrentBatter:  slot.CurrentBatter,
			CurrentPitcher: slot.CurrentPitcher,
		})
	}
	return out
}

func changeResults(changes []lineup.Change) []ChangeResult {
	out := make([]ChangeResult, 0, len(changes))
	for _, change := range changes {
		out = append(out, ChangeResult{
			Kind:             string(change.Kind),
			TeamID:           change.TeamID,
			IncomingPlayerID: change.IncomingPlayerID,
			OutgoingPlayerID: change.OutgoingPlayerID,
			BattingOrder:     change.BattingOrder,
			Position:         change.Position,
			Description:      change.Description,
		})
	}
	return out
}

func repairResults(repairs []lineup.Repair) []RepairResult {
	out := make([]RepairResult, 0, len(repairs))
	for _, repair := range repairs {
		out = append(out, RepairResult{
			Kind:         string(repair.Kind),
			TeamID:       repair.TeamID,
			BattingOrder: repair.BattingOrder,
		})
	}
	return out
}

func previewResult(summary narrate.Summary) PreviewResult {
	out := PreviewResult{
		PlayIndex:         summary.PlayIndex,
		HasPitchingChange: summary.HasPitchingChange,
		HasPinchHitter:    summary.HasPinchHitter,
		HasPinchRunner:    summary.HasPinchRunner,
	}
	for _, sub := range summary.Substitutions {
		out.Substitutions = append(out.Substitutions, SubstitutionResult{
			Kind:             string(sub.Kind),
			TeamID:           sub.TeamID,
			IncomingPlayerID: sub.IncomingPlayerID,
			OutgoingPlayerID: sub.OutgoingPlayerID,
			BattingOrder:     sub.BattingOrder,
			Position:         sub.Position,
			Base:             sub.Base,
			Description:      sub.Description,
		})
	}
	return out
}
