package narrate

import (
	"strings"
	"testing"

	"github.com/louisbranch/dugout/internal/services/replay/domain/lineup"
	"github.com/louisbranch/dugout/internal/services/replay/domain/play"
	"github.com/louisbranch/dugout/internal/services/replay/i18n"
)

func testCatalog(t *testing.T) *i18n.Catalog {
	t.Helper()
	catalog, err := i18n.Load()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return catalog
}

func testSnapshot(battingTeam, fieldingTeam string, currentOrder int) lineup.Snapshot {
	snap := lineup.Snapshot{GameID: "g1", SessionID: "s1", PlayIndex: 10}
	for order := 1; order <= lineup.BattingSlots; order++ {
		snap.Slots = append(snap.Slots, lineup.Slot{
			TeamID:        battingTeam,
			PlayerID:      battingTeam + "-" + string(rune('0'+order)),
			BattingOrder:  order,
			CurrentBatter: order == currentOrder,
		})
		snap.Slots = append(snap.Slots, lineup.Slot{
			TeamID:       fieldingTeam,
			PlayerID:     fieldingTeam + "-" + string(rune('0'+order)),
			BattingOrder: order,
		})
	}
	return snap
}

func consecutivePlays(battingTeam, fieldingTeam string) (play.Record, play.Record) {
	current := play.Record{
		GameID:         "g1",
		Index:          10,
		Inning:         6,
		Half:           play.HalfTop,
		BattingTeamID:  battingTeam,
		FieldingTeamID: fieldingTeam,
		PitcherID:      fieldingTeam + "-sp",
	}
	next := current
	next.Index = 11
	return current, next
}

func TestBetweenNarratesPinchRunner(t *testing.T) {
	snap := testSnapshot("NYA", "BOS", 4)
	current, next := consecutivePlays("NYA", "BOS")
	current.RunnerSecondID = "NYA-2"
	next.RunnerSecondID = "NYA-bench-9"
	next.BatterID = "NYA-5"

	names := Names{"NYA-bench-9": "Quick Feet", "NYA-2": "Slow Legs"}
	summary := Between(snap, current, next, testCatalog(t), "en-US", names)
	if len(summary.Substitutions) != 1 {
		t.Fatalf("expected 1 substitution, got %d", len(summary.Substitutions))
	}
	sub := summary.Substitutions[0]
	if sub.Kind != KindPinchRunner {
		t.Fatalf("expected PINCH_RUNNER, got %s", sub.Kind)
	}
	if sub.Base != 2 {
		t.Fatalf("expected base 2, got %d", sub.Base)
	}
	if sub.IncomingPlayerID != "NYA-bench-9" || sub.OutgoingPlayerID != "NYA-2" {
		t.Fatalf("unexpected players %s/%s", sub.IncomingPlayerID, sub.OutgoingPlayerID)
	}
	if !strings.Contains(sub.Description, "Quick Feet") || !strings.Contains(sub.Description, "Slow Legs") {
		t.Fatalf("expected resolved names in %q", sub.Description)
	}
	if !strings.Contains(sub.Description, "second") {
		t.Fatalf("expected base label in %q", sub.Description)
	}
	if !summary.HasPinchRunner || summary.HasPitchingChange || summary.HasPinchHitter {
		t.Fatalf("unexpected flags %+v", summary)
	}
}

func TestBetweenIgnoresRunnerAdvance(t *testing.T) {
	snap := testSnapshot("NYA", "BOS", 4)
	current, next := consecutivePlays("NYA", "BOS")
	// The runner on first advances to second; the batter reaches first.
	current.BatterID = "NYA-4"
	current.RunnerFirstID = "NYA-3"
	next.BatterID = "NYA-5"
	next.RunnerFirstID = "NYA-4"
	next.RunnerSecondID = "NYA-3"

	summary := Between(snap, current, next, testCatalog(t), "en-US", nil)
	for _, sub := range summary.Substitutions {
		if sub.Kind == KindPinchRunner {
			t.Fatalf("runner advance narrated as pinch runner: %+v", sub)
		}
	}
}

func TestBetweenSkipsPinchRunnersAcrossTurnover(t *testing.T) {
	snap := testSnapshot("NYA", "BOS", 4)
	current, _ := consecutivePlays("NYA", "BOS")
	current.RunnerFirstID = "NYA-1"
	next := play.Record{
		GameID:         "g1",
		Index:          11,
		Inning:         6,
		Half:           play.HalfBottom,
		BattingTeamID:  "BOS",
		FieldingTeamID: "NYA",
		BatterID:       "BOS-1",
		RunnerFirstID:  "BOS-9",
	}

	summary := Between(snap, current, next, testCatalog(t), "en-US", nil)
	for _, sub := range summary.Substitutions {
		if sub.Kind == KindPinchRunner {
			t.Fatalf("turnover narrated as pinch runner: %+v", sub)
		}
	}
}

func TestBetweenAgreesWithDetectors(t *testing.T) {
	snap := testSnapshot("NYA", "BOS", 4)
	current, next := consecutivePlays("NYA", "BOS")
	current.PitcherID = "BOS-sp"
	next.PitcherID = "BOS-rp"
	next.BatterID = "NYA-bench-1"
	current.Fielders = map[int]string{6: "BOS-6"}
	next.Fielders = map[int]string{6: "BOS-bench-6"}

	summary := Between(snap, current, next, testCatalog(t), "en-US", nil)
	if !summary.HasPitchingChange || !summary.HasPinchHitter || summary.HasPinchRunner {
		t.Fatalf("unexpected flags %+v", summary)
	}
	detected := lineup.DetectChanges(snap, current, next)
	if len(summary.Substitutions) != len(detected) {
		t.Fatalf("narration found %d events, detector found %d", len(summary.Substitutions), len(detected))
	}
	for i, change := range detected {
		sub := summary.Substitutions[i]
		if sub.IncomingPlayerID != change.IncomingPlayerID || sub.OutgoingPlayerID != change.OutgoingPlayerID {
			t.Fatalf("event %d: narration %s/%s disagrees with detection %s/%s",
				i, sub.IncomingPlayerID, sub.OutgoingPlayerID, change.IncomingPlayerID, change.OutgoingPlayerID)
		}
	}
}

func TestBetweenLocalizesDescriptions(t *testing.T) {
	snap := testSnapshot("NYA", "BOS", 4)
	current, next := consecutivePlays("NYA", "BOS")
	current.PitcherID = "BOS-sp"
	next.PitcherID = "BOS-rp"
	next.BatterID = "NYA-5"

	summary := Between(snap, current, next, testCatalog(t), "pt-BR", nil)
	if len(summary.Substitutions) != 1 {
		t.Fatalf("expected 1 substitution, got %d", len(summary.Substitutions))
	}
	if !strings.Contains(summary.Substitutions[0].Description, "arremessador") {
		t.Fatalf("expected pt-BR description, got %q", summary.Substitutions[0].Description)
	}
}
