// Package engine coordinates wallpaper surfaces across displays. All mutable
// state lives on a single goroutine; public methods hand commands to that
// goroutine and wait for the result.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"wallmotion/internal/platform"
	"wallmotion/internal/playback"
	"wallmotion/internal/scale"
	"wallmotion/internal/store"
)

// surface is one display's wallpaper: a backend window pair plus the
// playback session feeding it. A surface exists only while its display is
// connected and has an assignment.
type surface struct {
	displayID string
	bounds    platform.Rect
	handle    platform.SurfaceHandle

	session   playback.Player
	mediaPath string
	mode      scale.Mode
	natural   scale.Size
	gen       uint64
	failure   error
}

type eventKind int

const (
	evLoaded eventKind = iota
	evFailure
	evExit
)

// sessionEvent carries a playback callback onto the engine goroutine. gen
// identifies which bind the event belongs to; events from released sessions
// are dropped.
type sessionEvent struct {
	displayID     string
	gen           uint64
	kind          eventKind
	width, height int
	err           error
}

// DisplayStatus is one display's row in a status report.
type DisplayStatus struct {
	ID          string  `json:"id"`
	X           int     `json:"x"`
	Y           int     `json:"y"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	ScaleFactor float64 `json:"scale_factor"`
	MediaPath   string  `json:"media_path,omitempty"`
	ScaleMode   string  `json:"scale_mode,omitempty"`
	State       string  `json:"state"`
	Occluded    bool    `json:"occluded"`
	Error       string  `json:"error,omitempty"`
}

// StatusReport is the full engine state snapshot returned over IPC.
type StatusReport struct {
	Paused      bool            `json:"paused"`
	PowerPaused bool            `json:"power_paused"`
	Displays    []DisplayStatus `json:"displays"`
}

// Config wires an engine's collaborators. Topology, Occlusion and Power are
// the tracker channels; a nil channel simply never fires.
type Config struct {
	Backend   platform.Backend
	Factory   playback.Factory
	Store     *store.Store
	Logger    *slog.Logger
	Topology  <-chan []platform.Display
	Occlusion <-chan map[string]bool
	Power     <-chan bool
}

// Engine owns every wallpaper surface and reconciles them against topology,
// occlusion and power input.
type Engine struct {
	backend platform.Backend
	factory playback.Factory
	store   *store.Store
	logger  *slog.Logger

	topology  <-chan []platform.Display
	occlusion <-chan map[string]bool
	power     <-chan bool

	cmds    chan func()
	events  chan sessionEvent
	stopped chan struct{}

	// loop-owned state
	displays           map[string]platform.Display
	surfaces           map[string]*surface
	paused             bool
	occluded           map[string]bool
	acOnline           bool
	powerConnectedOnly bool
}

// New creates an engine. Run must be called before any command method.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		backend:   cfg.Backend,
		factory:   cfg.Factory,
		store:     cfg.Store,
		logger:    logger,
		topology:  cfg.Topology,
		occlusion: cfg.Occlusion,
		power:     cfg.Power,
		cmds:      make(chan func()),
		events:    make(chan sessionEvent, 16),
		stopped:   make(chan struct{}),
		displays:  make(map[string]platform.Display),
		surfaces:  make(map[string]*surface),
		occluded:  make(map[string]bool),
		acOnline:  true,
	}
}

// Run executes the engine loop until ctx is cancelled, then releases every
// session and destroys every surface.
func (e *Engine) Run(ctx context.Context) {
	defer close(e.stopped)
	e.powerConnectedOnly = e.loadPowerFlag()

	for {
		select {
		case <-ctx.Done():
			e.shutdown()
			return
		case fn := <-e.cmds:
			fn()
		case ev := <-e.events:
			e.handleSessionEvent(ev)
		case displays := <-e.topology:
			e.handleTopology(displays)
		case occluded := <-e.occlusion:
			e.handleOcclusion(occluded)
		case online := <-e.power:
			e.handlePower(online)
		}
	}
}

// do runs fn on the engine goroutine and returns its error.
func (e *Engine) do(fn func() error) error {
	done := make(chan error, 1)
	select {
	case e.cmds <- func() { done <- fn() }:
	case <-e.stopped:
		return ErrStopped
	}
	select {
	case err := <-done:
		return err
	case <-e.stopped:
		return ErrStopped
	}
}

// Assign sets path as the looping wallpaper for displayID, persists the
// assignment, and starts playback.
func (e *Engine) Assign(displayID, path string, mode scale.Mode) error {
	return e.do(func() error {
		d, ok := e.displays[displayID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrDisplayLost, displayID)
		}
		if err := playback.Probe(path); err != nil {
			return err
		}
		if err := e.store.SaveAssignment(store.Assignment{
			DisplayID: displayID,
			MediaPath: path,
			ScaleMode: mode,
		}); err != nil {
			return err
		}
		// A repeat of the current binding never restarts playback: an
		// identical assign is a no-op, a mode-only change repositions the
		// running session in place.
		if s, ok := e.surfaces[displayID]; ok && s.session != nil && s.failure == nil && s.mediaPath == path {
			if s.mode != mode {
				s.mode = mode
				e.applyPlacement(s)
			}
			return nil
		}
		return e.bindDisplay(d, path, mode)
	})
}

// Clear removes displayID's assignment and tears its surface down. Clearing
// a display with no assignment is a no-op.
func (e *Engine) Clear(displayID string) error {
	return e.do(func() error {
		if err := e.store.ClearAssignment(displayID); err != nil {
			return err
		}
		return e.dropSurface(displayID)
	})
}

// SetScaleMode changes how displayID's current wallpaper maps onto the
// display. The running session is repositioned in place, never rebound.
func (e *Engine) SetScaleMode(displayID string, mode scale.Mode) error {
	return e.do(func() error {
		assignments, err := e.store.LoadAssignments()
		if err != nil {
			return err
		}
		var current *store.Assignment
		for i := range assignments {
			if assignments[i].DisplayID == displayID {
				current = &assignments[i]
				break
			}
		}
		if current == nil {
			return fmt.Errorf("%w: %s", ErrNoAssignment, displayID)
		}
		current.ScaleMode = mode
		if err := e.store.SaveAssignment(*current); err != nil {
			return err
		}
		if s, ok := e.surfaces[displayID]; ok {
			s.mode = mode
			e.applyPlacement(s)
		}
		return nil
	})
}

// PauseAll pauses playback on every display.
func (e *Engine) PauseAll() error {
	return e.do(func() error {
		e.paused = true
		e.syncAllPlayback()
		return nil
	})
}

// ResumeAll resumes playback on every display not otherwise paused.
func (e *Engine) ResumeAll() error {
	return e.do(func() error {
		e.paused = false
		e.syncAllPlayback()
		return nil
	})
}

// Reload re-reads the persisted assignments and power preference and
// reconciles every connected display against them.
func (e *Engine) Reload() error {
	return e.do(func() error {
		e.powerConnectedOnly = e.loadPowerFlag()
		e.handlePower(e.acOnline)

		assignments, err := e.store.LoadAssignments()
		if err != nil {
			return err
		}
		byID := make(map[string]store.Assignment, len(assignments))
		for _, a := range assignments {
			byID[a.DisplayID] = a
		}

		var errs []error
		for id, d := range e.displays {
			want, ok := byID[id]
			s := e.surfaces[id]
			switch {
			case !ok && s != nil:
				errs = append(errs, e.dropSurface(id))
			case ok && (s == nil || s.mediaPath != want.MediaPath):
				errs = append(errs, e.bindDisplay(d, want.MediaPath, want.ScaleMode))
			case ok && s.mode != want.ScaleMode:
				s.mode = want.ScaleMode
				e.applyPlacement(s)
			}
		}
		return errors.Join(errs...)
	})
}

// Status returns a snapshot of engine state across all connected displays.
func (e *Engine) Status() (StatusReport, error) {
	var report StatusReport
	err := e.do(func() error {
		report = StatusReport{
			Paused:      e.paused,
			PowerPaused: e.powerPausedNow(),
		}
		ids := make([]string, 0, len(e.displays))
		for id := range e.displays {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			d := e.displays[id]
			ds := DisplayStatus{
				ID:          d.ID,
				X:           d.Bounds.X,
				Y:           d.Bounds.Y,
				Width:       d.Bounds.Width,
				Height:      d.Bounds.Height,
				ScaleFactor: d.ScaleFactor,
				Occluded:    e.occluded[id],
				State:       "idle",
			}
			if s, ok := e.surfaces[id]; ok {
				ds.MediaPath = s.mediaPath
				ds.ScaleMode = string(s.mode)
				switch {
				case s.failure != nil:
					ds.State = "failed"
					ds.Error = s.failure.Error()
				case e.playingAllowed(id):
					ds.State = "playing"
				default:
					ds.State = "paused"
				}
			}
			report.Displays = append(report.Displays, ds)
		}
		return nil
	})
	return report, err
}

// ---- loop internals ----

func (e *Engine) handleTopology(displays []platform.Display) {
	next := make(map[string]platform.Display, len(displays))
	for _, d := range displays {
		next[d.ID] = d
	}

	for id := range e.displays {
		if _, ok := next[id]; !ok {
			e.logger.Info("display disconnected", "display", id)
			if err := e.dropSurface(id); err != nil {
				e.logger.Error("failed to drop surface for lost display", "display", id, "error", err)
			}
			delete(e.displays, id)
			delete(e.occluded, id)
		}
	}

	assignments, err := e.store.LoadAssignments()
	if err != nil {
		e.logger.Error("failed to load assignments", "error", err)
		assignments = nil
	}
	byID := make(map[string]store.Assignment, len(assignments))
	for _, a := range assignments {
		byID[a.DisplayID] = a
	}

	for _, d := range displays {
		prev, known := e.displays[d.ID]
		e.displays[d.ID] = d

		if s, ok := e.surfaces[d.ID]; ok {
			if known && prev.Bounds != d.Bounds {
				e.logger.Info("display geometry changed", "display", d.ID, "bounds", d.Bounds)
				s.bounds = d.Bounds
				if err := e.backend.MoveResizeSurface(s.handle, d.Bounds); err != nil {
					e.logger.Error("failed to move surface", "display", d.ID, "error", err)
				}
				e.applyPlacement(s)
			}
			continue
		}

		if a, ok := byID[d.ID]; ok {
			e.logger.Info("display connected with stored wallpaper", "display", d.ID, "media", a.MediaPath)
			if err := e.bindDisplay(d, a.MediaPath, a.ScaleMode); err != nil {
				e.logger.Error("failed to restore wallpaper", "display", d.ID, "error", err)
			}
		}
	}
}

func (e *Engine) handleOcclusion(occluded map[string]bool) {
	e.occluded = occluded
	e.syncAllPlayback()
}

func (e *Engine) handlePower(online bool) {
	e.acOnline = online
	e.syncAllPlayback()
}

func (e *Engine) handleSessionEvent(ev sessionEvent) {
	s, ok := e.surfaces[ev.displayID]
	if !ok || s.gen != ev.gen {
		return
	}
	switch ev.kind {
	case evLoaded:
		e.logger.Debug("wallpaper loaded", "display", ev.displayID, "width", ev.width, "height", ev.height)
		s.natural = scale.Size{Width: ev.width, Height: ev.height}
		e.applyPlacement(s)
	case evFailure:
		e.logger.Error("wallpaper playback failed", "display", ev.displayID, "media", s.mediaPath, "error", ev.err)
		s.failure = ev.err
		e.releaseSession(s)
	case evExit:
		e.logger.Error("player process exited unexpectedly", "display", ev.displayID, "media", s.mediaPath, "error", ev.err)
		s.failure = ev.err
		e.releaseSession(s)
	}
}

// bindDisplay attaches media to a display, creating the surface on first
// use. Any previous session is fully released before the new one starts.
func (e *Engine) bindDisplay(d platform.Display, path string, mode scale.Mode) error {
	s, ok := e.surfaces[d.ID]
	if !ok {
		handle, err := e.backend.CreateSurface(d.Bounds)
		if err != nil {
			return fmt.Errorf("failed to create surface for %s: %w", d.ID, err)
		}
		s = &surface{displayID: d.ID, bounds: d.Bounds, handle: handle}
		e.surfaces[d.ID] = s
	}

	if err := e.releaseSession(s); err != nil {
		return err
	}

	s.gen++
	gen := s.gen
	id := d.ID
	ev := playback.Events{
		OnLoaded: func(w, h int) {
			e.postEvent(sessionEvent{displayID: id, gen: gen, kind: evLoaded, width: w, height: h})
		},
		OnFailure: func(err error) {
			e.postEvent(sessionEvent{displayID: id, gen: gen, kind: evFailure, err: err})
		},
		OnExit: func(err error) {
			e.postEvent(sessionEvent{displayID: id, gen: gen, kind: evExit, err: err})
		},
	}

	startPaused := !e.playingAllowed(d.ID)
	sess, err := e.factory.New(path, uint32(s.handle.Video), startPaused, ev)
	if err != nil {
		s.failure = err
		return err
	}
	s.session = sess
	s.mediaPath = path
	s.mode = mode
	s.natural = scale.Size{}
	s.failure = nil
	e.logger.Info("wallpaper bound", "display", d.ID, "media", path, "mode", mode, "paused", startPaused)
	return nil
}

// dropSurface releases a display's session and destroys its windows. The
// stored assignment is untouched.
func (e *Engine) dropSurface(displayID string) error {
	s, ok := e.surfaces[displayID]
	if !ok {
		return nil
	}
	releaseErr := e.releaseSession(s)
	delete(e.surfaces, displayID)
	if err := e.backend.DestroySurface(s.handle); err != nil {
		e.logger.Error("failed to destroy surface", "display", displayID, "error", err)
	}
	return releaseErr
}

// releaseSession tears the surface's session down and waits for it to be
// fully gone. No new session may start for this surface until it returns.
func (e *Engine) releaseSession(s *surface) error {
	if s.session == nil {
		return nil
	}
	sess := s.session
	s.session = nil
	s.natural = scale.Size{}
	if err := sess.Release(); err != nil {
		e.logger.Error("session release failed", "display", s.displayID, "error", err)
		if errors.Is(err, playback.ErrReleaseTimeout) {
			return err
		}
	}
	<-sess.Done()
	return nil
}

func (e *Engine) postEvent(ev sessionEvent) {
	select {
	case e.events <- ev:
	case <-e.stopped:
	}
}

// applyPlacement recomputes where the video child sits inside the surface
// and which source region the player shows. Requires the natural size; a
// not-yet-loaded session keeps the child covering the whole display.
func (e *Engine) applyPlacement(s *surface) {
	if s.session == nil || s.natural.IsZero() {
		return
	}
	target := scale.Size{Width: s.bounds.Width, Height: s.bounds.Height}
	pl := scale.Place(s.natural, target, s.mode)
	dest := platform.Rect{X: pl.Dest.X, Y: pl.Dest.Y, Width: pl.Dest.Width, Height: pl.Dest.Height}
	if err := e.backend.MoveResizeVideo(s.handle, dest); err != nil {
		e.logger.Error("failed to position video window", "display", s.displayID, "error", err)
	}
	var err error
	if pl.FullFrame(s.natural) {
		err = s.session.SetCrop(0, 0, 0, 0)
	} else {
		c := pl.SourceCrop
		err = s.session.SetCrop(c.Width, c.Height, c.X, c.Y)
	}
	if err != nil {
		e.logger.Error("failed to set source crop", "display", s.displayID, "error", err)
	}
}

func (e *Engine) powerPausedNow() bool {
	return e.powerConnectedOnly && !e.acOnline
}

// playingAllowed is the effective-playback rule: an assigned display plays
// unless globally paused, occluded, or battery-paused.
func (e *Engine) playingAllowed(displayID string) bool {
	return !e.paused && !e.occluded[displayID] && !e.powerPausedNow()
}

func (e *Engine) syncAllPlayback() {
	for _, s := range e.surfaces {
		e.syncPlayback(s)
	}
}

func (e *Engine) syncPlayback(s *surface) {
	if s.session == nil {
		return
	}
	if err := s.session.SetPlaying(e.playingAllowed(s.displayID)); err != nil {
		e.logger.Error("failed to toggle playback", "display", s.displayID, "error", err)
	}
}

func (e *Engine) loadPowerFlag() bool {
	enabled, err := e.store.PowerConnectedOnly()
	if err != nil {
		e.logger.Error("failed to read power preference", "error", err)
		return false
	}
	return enabled
}

func (e *Engine) shutdown() {
	for id := range e.surfaces {
		if err := e.dropSurface(id); err != nil {
			e.logger.Error("shutdown: failed to drop surface", "display", id, "error", err)
		}
	}
	e.logger.Info("engine stopped")
}
