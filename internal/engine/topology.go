package engine

import (
	"context"
	"log/slog"
	"time"

	"wallmotion/internal/platform"
)

// TopologyTracker polls the backend for the set of connected displays and
// publishes a snapshot whenever it changes. The first poll always publishes,
// so a consumer sees the initial topology without waiting for a change.
type TopologyTracker struct {
	backend  platform.Backend
	interval time.Duration
	logger   *slog.Logger
	updates  chan []platform.Display

	last []platform.Display
	sent bool
}

// NewTopologyTracker creates a tracker polling at interval.
func NewTopologyTracker(backend platform.Backend, interval time.Duration, logger *slog.Logger) *TopologyTracker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TopologyTracker{
		backend:  backend,
		interval: interval,
		logger:   logger,
		updates:  make(chan []platform.Display, 1),
	}
}

// Updates returns the channel topology snapshots are published on.
func (t *TopologyTracker) Updates() <-chan []platform.Display {
	return t.updates
}

// Run polls until the context is cancelled.
func (t *TopologyTracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.poll(ctx)
		}
	}
}

func (t *TopologyTracker) poll(ctx context.Context) {
	displays, err := t.backend.Displays()
	if err != nil {
		t.logger.Error("topology: failed to query displays", "error", err)
		return
	}
	if t.sent && displaysEqual(displays, t.last) {
		return
	}
	t.last = displays
	t.sent = true
	select {
	case t.updates <- displays:
	case <-ctx.Done():
	}
}

// displaysEqual compares full descriptors, so a resolution or arrangement
// change on a surviving display counts as a topology change.
func displaysEqual(a, b []platform.Display) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
