package engine

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const powerSupplyDir = "/sys/class/power_supply"

// PowerWatcher polls the kernel power-supply interface and publishes whether
// AC power is connected. Machines without a battery always report connected.
type PowerWatcher struct {
	dir      string
	interval time.Duration
	logger   *slog.Logger
	updates  chan bool

	last bool
	sent bool
}

// NewPowerWatcher creates a watcher polling at interval.
func NewPowerWatcher(interval time.Duration, logger *slog.Logger) *PowerWatcher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PowerWatcher{
		dir:      powerSupplyDir,
		interval: interval,
		logger:   logger,
		updates:  make(chan bool, 1),
	}
}

// Updates returns the channel AC state changes are published on. The initial
// state is always published.
func (w *PowerWatcher) Updates() <-chan bool {
	return w.updates
}

// Run polls until the context is cancelled.
func (w *PowerWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *PowerWatcher) poll(ctx context.Context) {
	online := readACOnline(w.dir)
	if w.sent && online == w.last {
		return
	}
	w.last = online
	w.sent = true
	select {
	case w.updates <- online:
	case <-ctx.Done():
	}
}

// readACOnline reports whether any mains supply under dir is online. When no
// mains supply exists (or dir is unreadable) it reports true, so desktops
// without power-supply reporting never pause.
func readACOnline(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return true
	}
	sawMains := false
	for _, entry := range entries {
		supply := filepath.Join(dir, entry.Name())
		kind, err := os.ReadFile(filepath.Join(supply, "type"))
		if err != nil || strings.TrimSpace(string(kind)) != "Mains" {
			continue
		}
		sawMains = true
		online, err := os.ReadFile(filepath.Join(supply, "online"))
		if err == nil && strings.TrimSpace(string(online)) == "1" {
			return true
		}
	}
	return !sawMains
}
