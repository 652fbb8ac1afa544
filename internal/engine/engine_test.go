package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"wallmotion/internal/platform"
	"wallmotion/internal/playback"
	"wallmotion/internal/scale"
	"wallmotion/internal/store"
)

// ---- fakes ----

type fakePlayer struct {
	mu          sync.Mutex
	path        string
	startPaused bool
	playing     bool
	playCalls   []bool
	crops       [][4]int
	released    bool
	done        chan struct{}
	ev          playback.Events
}

func (p *fakePlayer) Path() string { return p.path }

func (p *fakePlayer) State() playback.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return playback.StateReleased
	}
	if p.playing {
		return playback.StatePlaying
	}
	return playback.StatePaused
}

func (p *fakePlayer) SetPlaying(playing bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = playing
	p.playCalls = append(p.playCalls, playing)
	return nil
}

func (p *fakePlayer) SetCrop(w, h, x, y int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.crops = append(p.crops, [4]int{w, h, x, y})
	return nil
}

func (p *fakePlayer) Release() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.released {
		p.released = true
		close(p.done)
	}
	return nil
}

func (p *fakePlayer) Done() <-chan struct{} { return p.done }

func (p *fakePlayer) isPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing && !p.released
}

func (p *fakePlayer) isReleased() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.released
}

func (p *fakePlayer) lastCrop() ([4]int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.crops) == 0 {
		return [4]int{}, false
	}
	return p.crops[len(p.crops)-1], true
}

// loaded reports the natural size back to the engine the way a real session
// does once frames are flowing.
func (p *fakePlayer) loaded(w, h int) {
	p.ev.OnLoaded(w, h)
}

type fakeFactory struct {
	mu       sync.Mutex
	created  []*fakePlayer
	byWindow map[uint32]*fakePlayer
	overlap  bool
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{byWindow: make(map[uint32]*fakePlayer)}
}

func (f *fakeFactory) New(path string, windowID uint32, startPaused bool, ev playback.Events) (playback.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if prev, ok := f.byWindow[windowID]; ok && !prev.isReleased() {
		f.overlap = true
	}
	p := &fakePlayer{
		path:        path,
		startPaused: startPaused,
		playing:     !startPaused,
		done:        make(chan struct{}),
		ev:          ev,
	}
	f.created = append(f.created, p)
	f.byWindow[windowID] = p
	return p, nil
}

func (f *fakeFactory) players() []*fakePlayer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakePlayer(nil), f.created...)
}

func (f *fakeFactory) sawOverlap() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.overlap
}

type fakeBackend struct {
	mu         sync.Mutex
	displays   []platform.Display
	occluded   map[string]bool
	nextWin    platform.WindowID
	surfaces   map[platform.WindowID]platform.Rect
	videoRects map[platform.WindowID]platform.Rect
}

func newFakeBackend(displays ...platform.Display) *fakeBackend {
	return &fakeBackend{
		displays:   displays,
		occluded:   make(map[string]bool),
		nextWin:    100,
		surfaces:   make(map[platform.WindowID]platform.Rect),
		videoRects: make(map[platform.WindowID]platform.Rect),
	}
}

func (b *fakeBackend) Displays() ([]platform.Display, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]platform.Display(nil), b.displays...), nil
}

func (b *fakeBackend) CreateSurface(bounds platform.Rect) (platform.SurfaceHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h := platform.SurfaceHandle{Window: b.nextWin, Video: b.nextWin + 1}
	b.nextWin += 2
	b.surfaces[h.Window] = bounds
	b.videoRects[h.Video] = platform.Rect{Width: bounds.Width, Height: bounds.Height}
	return h, nil
}

func (b *fakeBackend) DestroySurface(h platform.SurfaceHandle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.surfaces, h.Window)
	delete(b.videoRects, h.Video)
	return nil
}

func (b *fakeBackend) MoveResizeSurface(h platform.SurfaceHandle, bounds platform.Rect) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.surfaces[h.Window] = bounds
	return nil
}

func (b *fakeBackend) MoveResizeVideo(h platform.SurfaceHandle, r platform.Rect) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.videoRects[h.Video] = r
	return nil
}

func (b *fakeBackend) OccludedDisplays() (map[string]bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]bool, len(b.occluded))
	for k, v := range b.occluded {
		out[k] = v
	}
	return out, nil
}

func (b *fakeBackend) surfaceCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.surfaces)
}

func (b *fakeBackend) videoRect(h platform.SurfaceHandle) platform.Rect {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.videoRects[h.Video]
}

// ---- harness ----

var (
	displayOne = platform.Display{ID: "DP-1", Bounds: platform.Rect{Width: 1920, Height: 1080}, ScaleFactor: 1.0}
	displayTwo = platform.Display{ID: "HDMI-1", Bounds: platform.Rect{X: 1920, Width: 2560, Height: 1440}, ScaleFactor: 1.0}
)

type harness struct {
	engine  *Engine
	backend *fakeBackend
	factory *fakeFactory
	store   *store.Store
	topo    chan []platform.Display
	occ     chan map[string]bool
	power   chan bool
	cancel  context.CancelFunc
}

func newHarness(t *testing.T, displays ...platform.Display) *harness {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "wallpapers.json"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	backend := newFakeBackend(displays...)
	factory := newFakeFactory()
	topo := make(chan []platform.Display, 1)
	occ := make(chan map[string]bool, 1)
	power := make(chan bool, 1)
	eng := New(Config{
		Backend:   backend,
		Factory:   factory,
		Store:     st,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Topology:  topo,
		Occlusion: occ,
		Power:     power,
	})
	ctx, cancel := context.WithCancel(context.Background())
	go eng.Run(ctx)
	t.Cleanup(func() {
		cancel()
		select {
		case <-eng.stopped:
		case <-time.After(2 * time.Second):
			t.Error("engine did not stop")
		}
	})
	h := &harness{engine: eng, backend: backend, factory: factory, store: st, topo: topo, occ: occ, power: power, cancel: cancel}
	if len(displays) > 0 {
		h.pushTopology(t, displays...)
	}
	return h
}

func (h *harness) pushTopology(t *testing.T, displays ...platform.Display) {
	t.Helper()
	h.topo <- displays
	h.waitFor(t, "topology applied", func() bool {
		return len(h.engine.displays) == len(displays)
	})
}

// waitFor polls cond on the engine goroutine until it holds.
func (h *harness) waitFor(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ok := false
		if err := h.engine.do(func() error { ok = cond(); return nil }); err != nil {
			t.Fatalf("engine command failed: %v", err)
		}
		if ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", desc)
}

func writeVideo(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("not really video"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// ---- tests ----

func TestAssignTwoDisplaysIndependently(t *testing.T) {
	h := newHarness(t, displayOne, displayTwo)
	videoA := writeVideo(t, "a.mp4")
	videoB := writeVideo(t, "b.mov")

	if err := h.engine.Assign(displayOne.ID, videoA, scale.ModeFill); err != nil {
		t.Fatalf("Assign DP-1: %v", err)
	}
	if err := h.engine.Assign(displayTwo.ID, videoB, scale.ModeFit); err != nil {
		t.Fatalf("Assign HDMI-1: %v", err)
	}

	players := h.factory.players()
	if len(players) != 2 {
		t.Fatalf("players = %d, want 2", len(players))
	}
	if players[0].path != videoA || players[1].path != videoB {
		t.Fatalf("player paths = %q, %q", players[0].path, players[1].path)
	}
	for _, p := range players {
		if !p.isPlaying() {
			t.Errorf("player %q not playing", p.path)
		}
	}

	// A 4:3 source on the 16:9 DP-1 under fill crops vertically and keeps
	// the video child covering the whole display.
	players[0].loaded(640, 480)
	h.waitFor(t, "DP-1 crop applied", func() bool {
		_, ok := players[0].lastCrop()
		return ok
	})
	if crop, _ := players[0].lastCrop(); crop != [4]int{640, 360, 0, 60} {
		t.Errorf("DP-1 crop = %v, want [640 360 0 60]", crop)
	}

	// The same source on HDMI-1 under fit letterboxes without cropping.
	players[1].loaded(640, 480)
	h.waitFor(t, "HDMI-1 crop applied", func() bool {
		_, ok := players[1].lastCrop()
		return ok
	})
	if crop, _ := players[1].lastCrop(); crop != [4]int{0, 0, 0, 0} {
		t.Errorf("HDMI-1 crop = %v, want cleared", crop)
	}
	var handle platform.SurfaceHandle
	h.engine.do(func() error {
		handle = h.engine.surfaces[displayTwo.ID].handle
		return nil
	})
	want := platform.Rect{X: 320, Y: 0, Width: 1920, Height: 1440}
	if got := h.backend.videoRect(handle); got != want {
		t.Errorf("HDMI-1 video rect = %+v, want %+v", got, want)
	}

	report, err := h.engine.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(report.Displays) != 2 {
		t.Fatalf("status displays = %d, want 2", len(report.Displays))
	}
	for _, ds := range report.Displays {
		if ds.State != "playing" {
			t.Errorf("display %s state = %q, want playing", ds.ID, ds.State)
		}
	}
}

func TestReassignReleasesOldSessionFirst(t *testing.T) {
	h := newHarness(t, displayOne)
	videoA := writeVideo(t, "a.mp4")
	videoB := writeVideo(t, "b.mp4")

	if err := h.engine.Assign(displayOne.ID, videoA, scale.ModeFill); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if err := h.engine.Assign(displayOne.ID, videoB, scale.ModeFill); err != nil {
		t.Fatalf("reassign: %v", err)
	}

	if h.factory.sawOverlap() {
		t.Fatal("second session created before first was released")
	}
	players := h.factory.players()
	if len(players) != 2 {
		t.Fatalf("players = %d, want 2", len(players))
	}
	if !players[0].isReleased() {
		t.Error("first player still live after reassign")
	}
	if players[1].isReleased() || !players[1].isPlaying() {
		t.Error("second player not playing")
	}
	if h.backend.surfaceCount() != 1 {
		t.Errorf("surfaces = %d, want 1", h.backend.surfaceCount())
	}
}

func TestRepeatAssignKeepsSession(t *testing.T) {
	h := newHarness(t, displayOne)
	video := writeVideo(t, "a.mp4")
	if err := h.engine.Assign(displayOne.ID, video, scale.ModeFill); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	players := h.factory.players()
	players[0].loaded(640, 480)
	h.waitFor(t, "loaded", func() bool {
		_, ok := players[0].lastCrop()
		return ok
	})

	if err := h.engine.Assign(displayOne.ID, video, scale.ModeFill); err != nil {
		t.Fatalf("repeat assign: %v", err)
	}
	if len(h.factory.players()) != 1 {
		t.Fatalf("players = %d, want 1 after identical assign", len(h.factory.players()))
	}
	if players[0].isReleased() || !players[0].isPlaying() {
		t.Error("identical assign disturbed the running session")
	}

	// Same media with a new mode repositions in place.
	if err := h.engine.Assign(displayOne.ID, video, scale.ModeFit); err != nil {
		t.Fatalf("mode-only assign: %v", err)
	}
	if len(h.factory.players()) != 1 {
		t.Fatal("mode-only assign created a new session")
	}
	if crop, _ := players[0].lastCrop(); crop != [4]int{0, 0, 0, 0} {
		t.Errorf("fit crop = %v, want cleared", crop)
	}

	assignments, err := h.store.LoadAssignments()
	if err != nil {
		t.Fatal(err)
	}
	if len(assignments) != 1 || assignments[0].ScaleMode != scale.ModeFit {
		t.Errorf("persisted assignment = %+v, want mode fit", assignments)
	}
}

func TestDisplayDisconnectReleasesSessionKeepsAssignment(t *testing.T) {
	h := newHarness(t, displayOne, displayTwo)
	video := writeVideo(t, "a.mp4")
	if err := h.engine.Assign(displayTwo.ID, video, scale.ModeFill); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	h.pushTopology(t, displayOne)

	players := h.factory.players()
	if len(players) != 1 || !players[0].isReleased() {
		t.Fatal("session for lost display not released")
	}
	if h.backend.surfaceCount() != 0 {
		t.Errorf("surfaces = %d, want 0", h.backend.surfaceCount())
	}

	assignments, err := h.store.LoadAssignments()
	if err != nil {
		t.Fatalf("LoadAssignments: %v", err)
	}
	if len(assignments) != 1 || assignments[0].DisplayID != displayTwo.ID {
		t.Fatalf("assignment for lost display was dropped: %+v", assignments)
	}

	// Reconnect restores the wallpaper.
	h.pushTopology(t, displayOne, displayTwo)
	h.waitFor(t, "wallpaper restored", func() bool {
		s, ok := h.engine.surfaces[displayTwo.ID]
		return ok && s.session != nil
	})
	players = h.factory.players()
	if len(players) != 2 || players[1].path != video {
		t.Fatalf("restore did not start a new session: %d players", len(players))
	}
}

func TestPauseAllThenConnectStartsPaused(t *testing.T) {
	h := newHarness(t, displayOne)
	video := writeVideo(t, "a.mp4")

	// Persist an assignment for a display that is not yet connected.
	if err := h.store.SaveAssignment(store.Assignment{
		DisplayID: displayTwo.ID,
		MediaPath: video,
		ScaleMode: scale.ModeFill,
	}); err != nil {
		t.Fatalf("SaveAssignment: %v", err)
	}

	if err := h.engine.PauseAll(); err != nil {
		t.Fatalf("PauseAll: %v", err)
	}
	h.pushTopology(t, displayOne, displayTwo)
	h.waitFor(t, "session bound", func() bool {
		s, ok := h.engine.surfaces[displayTwo.ID]
		return ok && s.session != nil
	})

	players := h.factory.players()
	if len(players) != 1 {
		t.Fatalf("players = %d, want 1", len(players))
	}
	if !players[0].startPaused {
		t.Error("session started playing while globally paused")
	}
	if players[0].isPlaying() {
		t.Error("paused session is playing")
	}

	if err := h.engine.ResumeAll(); err != nil {
		t.Fatalf("ResumeAll: %v", err)
	}
	if !players[0].isPlaying() {
		t.Error("session did not resume")
	}
}

func TestAssignUnreadableMedia(t *testing.T) {
	h := newHarness(t, displayOne)

	err := h.engine.Assign(displayOne.ID, filepath.Join(t.TempDir(), "missing.mp4"), scale.ModeFill)
	if !errors.Is(err, playback.ErrMediaUnreadable) {
		t.Fatalf("Assign error = %v, want ErrMediaUnreadable", err)
	}
	if len(h.factory.players()) != 0 {
		t.Error("player created for unreadable media")
	}
	assignments, _ := h.store.LoadAssignments()
	if len(assignments) != 0 {
		t.Error("unreadable media was persisted")
	}

	// Other displays keep running: a valid assign still works afterwards.
	video := writeVideo(t, "a.mp4")
	if err := h.engine.Assign(displayOne.ID, video, scale.ModeFill); err != nil {
		t.Fatalf("Assign after failure: %v", err)
	}
}

func TestAssignUnknownDisplay(t *testing.T) {
	h := newHarness(t, displayOne)
	video := writeVideo(t, "a.mp4")
	err := h.engine.Assign("DP-9", video, scale.ModeFill)
	if !errors.Is(err, ErrDisplayLost) {
		t.Fatalf("Assign error = %v, want ErrDisplayLost", err)
	}
}

func TestOcclusionPausesOnlyCoveredDisplay(t *testing.T) {
	h := newHarness(t, displayOne, displayTwo)
	videoA := writeVideo(t, "a.mp4")
	videoB := writeVideo(t, "b.mp4")
	if err := h.engine.Assign(displayOne.ID, videoA, scale.ModeFill); err != nil {
		t.Fatal(err)
	}
	if err := h.engine.Assign(displayTwo.ID, videoB, scale.ModeFill); err != nil {
		t.Fatal(err)
	}
	players := h.factory.players()

	h.occ <- map[string]bool{displayOne.ID: true}
	h.waitFor(t, "occlusion applied", func() bool {
		return h.engine.occluded[displayOne.ID]
	})
	if players[0].isPlaying() {
		t.Error("occluded display still playing")
	}
	if !players[1].isPlaying() {
		t.Error("unoccluded display paused")
	}

	h.occ <- map[string]bool{}
	h.waitFor(t, "occlusion cleared", func() bool {
		return !h.engine.occluded[displayOne.ID]
	})
	if !players[0].isPlaying() {
		t.Error("display did not resume after occlusion cleared")
	}
}

func TestSetScaleModeRepositionsWithoutRebind(t *testing.T) {
	h := newHarness(t, displayOne)
	video := writeVideo(t, "a.mp4")
	if err := h.engine.Assign(displayOne.ID, video, scale.ModeFill); err != nil {
		t.Fatal(err)
	}
	players := h.factory.players()
	players[0].loaded(640, 480)
	h.waitFor(t, "loaded", func() bool {
		_, ok := players[0].lastCrop()
		return ok
	})

	if err := h.engine.SetScaleMode(displayOne.ID, scale.ModeFit); err != nil {
		t.Fatalf("SetScaleMode: %v", err)
	}

	if len(h.factory.players()) != 1 {
		t.Fatal("scale mode change created a new session")
	}
	if crop, _ := players[0].lastCrop(); crop != [4]int{0, 0, 0, 0} {
		t.Errorf("fit crop = %v, want cleared", crop)
	}
	var handle platform.SurfaceHandle
	h.engine.do(func() error {
		handle = h.engine.surfaces[displayOne.ID].handle
		return nil
	})
	// 4:3 in 16:9 under fit is pillarboxed: 1440 wide, centered.
	want := platform.Rect{X: 240, Y: 0, Width: 1440, Height: 1080}
	if got := h.backend.videoRect(handle); got != want {
		t.Errorf("video rect = %+v, want %+v", got, want)
	}

	assignments, err := h.store.LoadAssignments()
	if err != nil {
		t.Fatal(err)
	}
	if assignments[0].ScaleMode != scale.ModeFit {
		t.Errorf("persisted mode = %q, want fit", assignments[0].ScaleMode)
	}
}

func TestClearTearsDownSurface(t *testing.T) {
	h := newHarness(t, displayOne)
	video := writeVideo(t, "a.mp4")
	if err := h.engine.Assign(displayOne.ID, video, scale.ModeFill); err != nil {
		t.Fatal(err)
	}
	if err := h.engine.Clear(displayOne.ID); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	if !h.factory.players()[0].isReleased() {
		t.Error("session not released on clear")
	}
	if h.backend.surfaceCount() != 0 {
		t.Errorf("surfaces = %d, want 0", h.backend.surfaceCount())
	}
	assignments, _ := h.store.LoadAssignments()
	if len(assignments) != 0 {
		t.Error("assignment not removed")
	}

	// Clearing again is a no-op.
	if err := h.engine.Clear(displayOne.ID); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
}

func TestGeometryChangeRepositionsWithoutRebind(t *testing.T) {
	h := newHarness(t, displayOne)
	video := writeVideo(t, "a.mp4")
	if err := h.engine.Assign(displayOne.ID, video, scale.ModeFit); err != nil {
		t.Fatal(err)
	}
	players := h.factory.players()
	players[0].loaded(640, 480)
	h.waitFor(t, "loaded", func() bool {
		_, ok := players[0].lastCrop()
		return ok
	})

	resized := displayOne
	resized.Bounds = platform.Rect{Width: 2560, Height: 1440}
	h.pushTopology(t, resized)
	h.waitFor(t, "bounds updated", func() bool {
		return h.engine.surfaces[displayOne.ID].bounds == resized.Bounds
	})

	if len(h.factory.players()) != 1 {
		t.Fatal("geometry change created a new session")
	}
	var handle platform.SurfaceHandle
	h.engine.do(func() error {
		handle = h.engine.surfaces[displayOne.ID].handle
		return nil
	})
	want := platform.Rect{X: 320, Y: 0, Width: 1920, Height: 1440}
	if got := h.backend.videoRect(handle); got != want {
		t.Errorf("video rect = %+v, want %+v", got, want)
	}
}

func TestPlaybackFailureMarksDisplayFailed(t *testing.T) {
	h := newHarness(t, displayOne, displayTwo)
	videoA := writeVideo(t, "a.mp4")
	videoB := writeVideo(t, "b.mp4")
	if err := h.engine.Assign(displayOne.ID, videoA, scale.ModeFill); err != nil {
		t.Fatal(err)
	}
	if err := h.engine.Assign(displayTwo.ID, videoB, scale.ModeFill); err != nil {
		t.Fatal(err)
	}
	players := h.factory.players()

	players[0].ev.OnFailure(fmt.Errorf("demux error: %w", playback.ErrMediaUnreadable))
	h.waitFor(t, "failure recorded", func() bool {
		return h.engine.surfaces[displayOne.ID].failure != nil
	})

	if !players[0].isReleased() {
		t.Error("failed session not released")
	}
	if !players[1].isPlaying() {
		t.Error("healthy display affected by another display's failure")
	}

	report, err := h.engine.Status()
	if err != nil {
		t.Fatal(err)
	}
	for _, ds := range report.Displays {
		switch ds.ID {
		case displayOne.ID:
			if ds.State != "failed" {
				t.Errorf("DP-1 state = %q, want failed", ds.State)
			}
		case displayTwo.ID:
			if ds.State != "playing" {
				t.Errorf("HDMI-1 state = %q, want playing", ds.State)
			}
		}
	}
}

func TestReloadAppliesStoreChanges(t *testing.T) {
	h := newHarness(t, displayOne)
	videoA := writeVideo(t, "a.mp4")
	videoB := writeVideo(t, "b.mp4")
	if err := h.engine.Assign(displayOne.ID, videoA, scale.ModeFill); err != nil {
		t.Fatal(err)
	}

	// Mutate the store behind the engine's back, as an external editor or
	// another client would.
	if err := h.store.SaveAssignment(store.Assignment{
		DisplayID: displayOne.ID,
		MediaPath: videoB,
		ScaleMode: scale.ModeStretch,
	}); err != nil {
		t.Fatal(err)
	}

	if err := h.engine.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	players := h.factory.players()
	if len(players) != 2 {
		t.Fatalf("players = %d, want 2 after reload rebind", len(players))
	}
	if !players[0].isReleased() {
		t.Error("old session survived reload")
	}
	if players[1].path != videoB {
		t.Errorf("new session path = %q, want %q", players[1].path, videoB)
	}
}

func TestPowerPauseHonorsPreference(t *testing.T) {
	h := newHarness(t, displayOne)
	video := writeVideo(t, "a.mp4")
	if err := h.store.SetPowerConnectedOnly(true); err != nil {
		t.Fatal(err)
	}
	if err := h.engine.Reload(); err != nil {
		t.Fatal(err)
	}
	if err := h.engine.Assign(displayOne.ID, video, scale.ModeFill); err != nil {
		t.Fatal(err)
	}
	players := h.factory.players()
	if !players[0].isPlaying() {
		t.Fatal("not playing on AC")
	}

	h.power <- false
	h.waitFor(t, "battery pause", func() bool {
		return !h.engine.acOnline
	})
	if players[0].isPlaying() {
		t.Error("still playing on battery with power_connected_only set")
	}

	h.power <- true
	h.waitFor(t, "AC resume", func() bool {
		return h.engine.acOnline
	})
	if !players[0].isPlaying() {
		t.Error("did not resume when AC returned")
	}
}
