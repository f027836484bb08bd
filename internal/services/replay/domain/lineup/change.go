package lineup

// ChangeKind is the closed set of detected lineup change kinds.
type ChangeKind string

const (
	// ChangePitching replaces the current pitcher of a team.
	ChangePitching ChangeKind = "PITCHING_CHANGE"
	// ChangeSubstitution replaces the player at a batting-order slot.
	ChangeSubstitution ChangeKind = "SUBSTITUTION"
	// ChangePosition replaces the fielder at a defensive position.
	ChangePosition ChangeKind = "POSITION_CHANGE"
	// ChangeInitialLineup marks a team's starting lineup entry into the
	// snapshot log.
	ChangeInitialLineup ChangeKind = "INITIAL_LINEUP"
)

// Change is one detected lineup event. Changes are attached to the snapshot
// they produced and are immutable once written.
type Change struct {
	Kind   ChangeKind
	TeamID string

	IncomingPlayerID string
	OutgoingPlayerID string

	// BattingOrder is set for SUBSTITUTION changes.
	BattingOrder int
	// Position is set for POSITION_CHANGE changes (defensive positions 2-9).
	Position int

	Description string
}
