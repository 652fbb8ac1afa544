package engine

import (
	"context"
	"log/slog"
	"time"

	"wallmotion/internal/platform"
)

// OcclusionMonitor polls the backend for displays covered by fullscreen
// windows. A display is only reported occluded after it stays covered for the
// hold duration, which filters out brief fullscreen transitions; uncovering
// is reported immediately.
type OcclusionMonitor struct {
	backend  platform.Backend
	interval time.Duration
	logger   *slog.Logger
	updates  chan map[string]bool
	deb      *occlusionDebouncer
}

// NewOcclusionMonitor creates a monitor polling at interval with the given
// hold duration.
func NewOcclusionMonitor(backend platform.Backend, interval, hold time.Duration, logger *slog.Logger) *OcclusionMonitor {
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OcclusionMonitor{
		backend:  backend,
		interval: interval,
		logger:   logger,
		updates:  make(chan map[string]bool, 1),
		deb:      newOcclusionDebouncer(hold),
	}
}

// Updates returns the channel occlusion snapshots are published on. Each
// snapshot maps display ID to whether it is occluded; displays absent from
// the map are not occluded.
func (m *OcclusionMonitor) Updates() <-chan map[string]bool {
	return m.updates
}

// Run polls until the context is cancelled.
func (m *OcclusionMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

func (m *OcclusionMonitor) poll(ctx context.Context) {
	raw, err := m.backend.OccludedDisplays()
	if err != nil {
		m.logger.Error("occlusion: failed to scan fullscreen windows", "error", err)
		return
	}
	effective, changed := m.deb.observe(raw, time.Now())
	if !changed {
		return
	}
	select {
	case m.updates <- effective:
	case <-ctx.Done():
	}
}

// occlusionDebouncer applies the hold-down to raw occlusion observations.
// It is separate from the polling loop so it can be exercised without timers.
type occlusionDebouncer struct {
	hold     time.Duration
	since    map[string]time.Time
	reported map[string]bool
	sent     bool
}

func newOcclusionDebouncer(hold time.Duration) *occlusionDebouncer {
	return &occlusionDebouncer{
		hold:     hold,
		since:    make(map[string]time.Time),
		reported: make(map[string]bool),
	}
}

// observe folds one raw snapshot in and returns the effective occlusion map
// plus whether it differs from the last reported one.
func (d *occlusionDebouncer) observe(raw map[string]bool, now time.Time) (map[string]bool, bool) {
	effective := make(map[string]bool, len(raw))
	for id, occluded := range raw {
		if !occluded {
			delete(d.since, id)
			continue
		}
		start, ok := d.since[id]
		if !ok {
			start = now
			d.since[id] = start
		}
		if now.Sub(start) >= d.hold {
			effective[id] = true
		}
	}
	for id := range d.since {
		if !raw[id] {
			delete(d.since, id)
		}
	}

	changed := !d.sent || !boolMapsEqual(effective, d.reported)
	if changed {
		d.reported = effective
		d.sent = true
	}
	return effective, changed
}

func boolMapsEqual(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
