package engine

import (
	"testing"
	"time"
)

func TestOcclusionDebouncer_HoldBeforePause(t *testing.T) {
	d := newOcclusionDebouncer(300 * time.Millisecond)
	t0 := time.Now()

	// First observation always reports, so the consumer gets a baseline.
	eff, changed := d.observe(map[string]bool{}, t0)
	if !changed || len(eff) != 0 {
		t.Fatalf("baseline: eff=%v changed=%v", eff, changed)
	}

	// A display becoming occluded is held back until the hold elapses.
	eff, changed = d.observe(map[string]bool{"DP-1": true}, t0.Add(time.Second))
	if changed || eff["DP-1"] {
		t.Fatalf("occlusion reported before hold: eff=%v changed=%v", eff, changed)
	}
	eff, changed = d.observe(map[string]bool{"DP-1": true}, t0.Add(time.Second+299*time.Millisecond))
	if changed {
		t.Fatal("occlusion reported 1ms early")
	}
	eff, changed = d.observe(map[string]bool{"DP-1": true}, t0.Add(time.Second+300*time.Millisecond))
	if !changed || !eff["DP-1"] {
		t.Fatalf("occlusion not reported after hold: eff=%v changed=%v", eff, changed)
	}

	// Uncovering reports immediately.
	eff, changed = d.observe(map[string]bool{}, t0.Add(time.Second+301*time.Millisecond))
	if !changed || eff["DP-1"] {
		t.Fatalf("clear not immediate: eff=%v changed=%v", eff, changed)
	}
}

func TestOcclusionDebouncer_BriefFlickerSuppressed(t *testing.T) {
	d := newOcclusionDebouncer(300 * time.Millisecond)
	t0 := time.Now()
	d.observe(map[string]bool{}, t0)

	// Covered for one poll, then uncovered: never reported.
	if _, changed := d.observe(map[string]bool{"DP-1": true}, t0.Add(100*time.Millisecond)); changed {
		t.Fatal("flicker start reported")
	}
	if _, changed := d.observe(map[string]bool{}, t0.Add(200*time.Millisecond)); changed {
		t.Fatal("flicker end reported")
	}

	// The hold restarts on the next covering.
	if _, changed := d.observe(map[string]bool{"DP-1": true}, t0.Add(300*time.Millisecond)); changed {
		t.Fatal("hold did not restart")
	}
	eff, changed := d.observe(map[string]bool{"DP-1": true}, t0.Add(650*time.Millisecond))
	if !changed || !eff["DP-1"] {
		t.Fatal("occlusion not reported after restarted hold")
	}
}

func TestOcclusionDebouncer_ZeroHoldIsImmediate(t *testing.T) {
	d := newOcclusionDebouncer(0)
	t0 := time.Now()
	d.observe(map[string]bool{}, t0)

	eff, changed := d.observe(map[string]bool{"DP-1": true, "HDMI-1": false}, t0.Add(time.Millisecond))
	if !changed || !eff["DP-1"] || eff["HDMI-1"] {
		t.Fatalf("zero hold: eff=%v changed=%v", eff, changed)
	}
}

func TestOcclusionDebouncer_PerDisplayIndependence(t *testing.T) {
	d := newOcclusionDebouncer(300 * time.Millisecond)
	t0 := time.Now()
	d.observe(map[string]bool{}, t0)

	d.observe(map[string]bool{"DP-1": true}, t0.Add(100*time.Millisecond))
	d.observe(map[string]bool{"DP-1": true, "HDMI-1": true}, t0.Add(300*time.Millisecond))

	// DP-1's hold expires first; HDMI-1 is still pending.
	eff, changed := d.observe(map[string]bool{"DP-1": true, "HDMI-1": true}, t0.Add(450*time.Millisecond))
	if !changed || !eff["DP-1"] || eff["HDMI-1"] {
		t.Fatalf("staggered holds: eff=%v", eff)
	}
	eff, _ = d.observe(map[string]bool{"DP-1": true, "HDMI-1": true}, t0.Add(650*time.Millisecond))
	if !eff["DP-1"] || !eff["HDMI-1"] {
		t.Fatalf("second hold never expired: eff=%v", eff)
	}
}
