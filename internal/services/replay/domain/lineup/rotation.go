package lineup

// NextBatter computes the slot due up after the currently flagged batter,
// wrapping batting order 9 back to 1.
//
// The second return value is false when the expectation is undeterminable:
// no slot is flagged as current batter, or the wrapped order has no slot.
// Callers must treat that as "skip substitution detection for this team",
// not as an error.
func NextBatter(slots []Slot) (Slot, bool) {
	var current Slot
	found := false
	for _, slot := range slots {
		if slot.Floating() {
			continue
		}
		if slot.CurrentBatter {
			current = slot
			found = true
			break
		}
	}
	if !found {
		return Slot{}, false
	}

	expectedOrder := current.BattingOrder%BattingSlots + 1
	for _, slot := range slots {
		if slot.BattingOrder == expectedOrder {
			return slot, true
		}
	}
	return Slot{}, false
}
