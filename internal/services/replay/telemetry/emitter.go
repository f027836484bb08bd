// Package telemetry records operational replay telemetry events.
package telemetry

import (
	"context"
	"time"

	"github.com/louisbranch/dugout/internal/services/replay/storage"
)

// Event names recorded by the replay service.
const (
	EventSessionInitialized = "replay.session_initialized"
	EventAdvance            = "replay.advance"
	EventStaleAdvance       = "replay.stale_advance"
	EventInvariantRepair    = "replay.invariant_repair"
	EventPreview            = "replay.preview"
)

// Emitter records telemetry events to the store.
type Emitter struct {
	store storage.TelemetryStore
	clock func() time.Time
}

// NewEmitter creates a new telemetry emitter.
func NewEmitter(store storage.TelemetryStore) *Emitter {
	return &Emitter{store: store, clock: time.Now}
}

// Emit records a telemetry event. It is a no-op when the store is nil.
func (e *Emitter) Emit(ctx context.Context, event storage.TelemetryEvent) error {
	if e == nil || e.store == nil {
		return nil
	}
	if event.Timestamp.IsZero() {
		if e.clock == nil {
			event.Timestamp = time.Now().UTC()
		} else {
			event.Timestamp = e.clock().UTC()
		}
	}
	return e.store.AppendTelemetryEvent(ctx, event)
}
