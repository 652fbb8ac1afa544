package playback

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"
)

// State is the lifecycle of a playback session.
type State int

const (
	StateUnloaded State = iota
	StateLoading
	StatePlaying
	StatePaused
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateReleased:
		return "released"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Events carries session notifications. Callbacks fire on session worker
// goroutines; receivers must hand off to their own loop and never call back
// into the session from inside the callback.
type Events struct {
	// OnLoaded fires once when the video's natural size becomes known and
	// frames are flowing.
	OnLoaded func(width, height int)
	// OnFailure fires when loading or decoding fails. The session is dead
	// afterwards and only needs Release.
	OnFailure func(err error)
	// OnExit fires when the player process dies without Release having
	// been called.
	OnExit func(err error)
}

// Player is the surface-facing session contract. The production
// implementation is an mpv subprocess; tests substitute instrumented fakes.
type Player interface {
	Path() string
	State() State
	SetPlaying(playing bool) error
	// SetCrop restricts the visible source region (video frame
	// coordinates). Width/height of zero clears the crop.
	SetCrop(w, h, x, y int) error
	// Release tears the player down. Idempotent; when it returns, no
	// decoder or window resource of this session survives.
	Release() error
	// Done is closed once the session is fully released.
	Done() <-chan struct{}
}

// Factory creates players. The engine holds exactly one.
type Factory interface {
	New(path string, windowID uint32, startPaused bool, ev Events) (Player, error)
}

// Options configures the mpv-backed factory.
type Options struct {
	// MPVPath is the player binary. Defaults to "mpv" on PATH.
	MPVPath string
	// ExtraArgs are appended to the player command line.
	ExtraArgs []string
	// SocketDir is where per-session IPC sockets live. Defaults to the
	// system temp directory.
	SocketDir string
	// ReleaseTimeout bounds graceful shutdown before the process is
	// killed. Defaults to 3s.
	ReleaseTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.MPVPath == "" {
		o.MPVPath = "mpv"
	}
	if o.SocketDir == "" {
		o.SocketDir = os.TempDir()
	}
	if o.ReleaseTimeout <= 0 {
		o.ReleaseTimeout = 3 * time.Second
	}
	return o
}

// MPVFactory spawns one mpv process per session, embedded into the
// surface's video window via --wid and controlled over JSON IPC.
type MPVFactory struct {
	Options Options
}

var _ Factory = (*MPVFactory)(nil)

// New probes the media and starts a player for it.
func (f *MPVFactory) New(path string, windowID uint32, startPaused bool, ev Events) (Player, error) {
	if err := Probe(path); err != nil {
		return nil, err
	}
	return newSession(path, windowID, startPaused, f.Options.withDefaults(), ev)
}

// Session drives a single mpv process bound to one video file and one
// window. Looping is native (--loop-file=inf), so the loop boundary costs
// at most one frame.
type Session struct {
	path       string
	opts       Options
	ev         Events
	socketPath string

	mu          sync.Mutex
	state       State
	ipc         *mpvClient
	wantPlaying *bool
	pendingCrop *string
	releasing   bool

	cmd      *exec.Cmd
	procDone chan struct{}
	procErr  error

	releaseOnce sync.Once
	releaseErr  error
	done        chan struct{}
}

var _ Player = (*Session)(nil)

func newSession(path string, windowID uint32, startPaused bool, opts Options, ev Events) (*Session, error) {
	socketPath := filepath.Join(opts.SocketDir, fmt.Sprintf("wallmotion-mpv-%d.sock", windowID))
	os.Remove(socketPath)

	args := []string{
		fmt.Sprintf("--wid=%d", windowID),
		"--input-ipc-server=" + socketPath,
		"--loop-file=inf",
		"--no-audio",
		"--no-config",
		"--no-terminal",
		"--no-osc",
		"--no-osd-bar",
		"--no-input-default-bindings",
		"--no-stop-screensaver",
		// The video window is sized and the source cropped by the caller;
		// mpv just fills its window.
		"--keepaspect=no",
		"--hwdec=auto-safe",
	}
	if startPaused {
		args = append(args, "--pause=yes")
	}
	args = append(args, opts.ExtraArgs...)
	args = append(args, path)

	cmd := exec.Command(opts.MPVPath, args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start player %s: %w", opts.MPVPath, err)
	}

	s := &Session{
		path:       path,
		opts:       opts,
		ev:         ev,
		socketPath: socketPath,
		state:      StateLoading,
		cmd:        cmd,
		procDone:   make(chan struct{}),
		done:       make(chan struct{}),
	}

	go s.reapProcess()
	go s.initIPC(startPaused)

	return s, nil
}

// Path returns the media path this session plays.
func (s *Session) Path() string {
	return s.path
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed when the session is fully released.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// SetPlaying toggles between Playing and Paused without reloading or
// losing position. Safe to call while the session is still loading; the
// desired state is applied once the player is up.
func (s *Session) SetPlaying(playing bool) error {
	s.mu.Lock()
	if s.state == StateReleased {
		s.mu.Unlock()
		return nil
	}
	want := playing
	s.wantPlaying = &want
	if s.state == StatePlaying || s.state == StatePaused {
		if playing {
			s.state = StatePlaying
		} else {
			s.state = StatePaused
		}
	}
	ipc := s.ipc
	s.mu.Unlock()

	if ipc == nil {
		return nil
	}
	return ipc.SetProperty("pause", !playing)
}

// SetCrop restricts the visible source region. Zero width or height clears
// the crop.
func (s *Session) SetCrop(w, h, x, y int) error {
	crop := ""
	if w > 0 && h > 0 {
		crop = fmt.Sprintf("%dx%d+%d+%d", w, h, x, y)
	}

	s.mu.Lock()
	if s.state == StateReleased {
		s.mu.Unlock()
		return nil
	}
	s.pendingCrop = &crop
	ipc := s.ipc
	s.mu.Unlock()

	if ipc == nil {
		return nil
	}
	return ipc.SetProperty("video-crop", crop)
}

// Release tears the player down: graceful quit, bounded wait, kill as a
// last resort. Idempotent; repeated calls return the first result. When it
// returns, the process is reaped and the IPC socket removed.
func (s *Session) Release() error {
	s.releaseOnce.Do(func() {
		s.mu.Lock()
		s.state = StateReleased
		s.releasing = true
		ipc := s.ipc
		s.ipc = nil
		s.mu.Unlock()

		if ipc != nil {
			ipc.Quit() // best effort; the kill path below is authoritative
			ipc.Close()
		}

		graceful := true
		select {
		case <-s.procDone:
		case <-time.After(s.opts.ReleaseTimeout):
			graceful = false
			if s.cmd.Process != nil {
				s.cmd.Process.Kill()
			}
			select {
			case <-s.procDone:
			case <-time.After(2 * time.Second):
				// Even SIGKILL did not reap it; give up rather than block
				// the engine loop forever.
			}
		}

		os.Remove(s.socketPath)
		if !graceful {
			s.releaseErr = fmt.Errorf("%w: player for %s needed SIGKILL", ErrReleaseTimeout, s.path)
		}
		close(s.done)
	})
	return s.releaseErr
}

func (s *Session) reapProcess() {
	err := s.cmd.Wait()
	s.procErr = err
	close(s.procDone)

	s.mu.Lock()
	releasing := s.releasing
	s.mu.Unlock()
	if !releasing && s.ev.OnExit != nil {
		s.ev.OnExit(err)
	}
}

// initIPC connects to the player's IPC socket, subscribes to the
// properties the surface needs, and pumps events until the player goes
// away.
type videoParams struct {
	W int `json:"w"`
	H int `json:"h"`
}

// markLoaded records the natural size becoming known and settles the
// Loading state into Playing or Paused.
func (s *Session) markLoaded(w, h int, startPaused bool) {
	s.mu.Lock()
	if s.state == StateLoading {
		if s.wantPlaying != nil && !*s.wantPlaying || s.wantPlaying == nil && startPaused {
			s.state = StatePaused
		} else {
			s.state = StatePlaying
		}
	}
	s.mu.Unlock()
	if s.ev.OnLoaded != nil {
		s.ev.OnLoaded(w, h)
	}
}

func (s *Session) initIPC(startPaused bool) {
	ipc, err := dialMPV(s.socketPath, 5*time.Second)
	if err != nil {
		s.mu.Lock()
		releasing := s.releasing
		s.mu.Unlock()
		if !releasing && s.ev.OnFailure != nil {
			s.ev.OnFailure(fmt.Errorf("%w: player did not initialize for %s: %v",
				ErrMediaUnreadable, s.path, err))
		}
		return
	}

	s.mu.Lock()
	if s.releasing {
		s.mu.Unlock()
		ipc.Close()
		return
	}
	s.ipc = ipc
	wantPlaying := s.wantPlaying
	pendingCrop := s.pendingCrop
	s.mu.Unlock()

	ipc.ObserveProperty(1, "video-params")

	// Apply anything requested while the player was starting.
	if wantPlaying != nil && *wantPlaying == startPaused {
		ipc.SetProperty("pause", !*wantPlaying)
	}
	if pendingCrop != nil {
		ipc.SetProperty("video-crop", *pendingCrop)
	}

	// The player may have finished loading before the socket came up, in
	// which case no property-change for video-params is coming; read it once.
	loaded := false
	var initial videoParams
	if err := ipc.GetProperty("video-params", &initial); err == nil && initial.W > 0 && initial.H > 0 {
		loaded = true
		s.markLoaded(initial.W, initial.H, startPaused)
	}

	for ev := range ipc.Events() {
		switch ev.Event {
		case "property-change":
			if ev.Name != "video-params" || loaded {
				continue
			}
			var params videoParams
			if len(ev.Data) == 0 || json.Unmarshal(ev.Data, &params) != nil {
				continue
			}
			if params.W <= 0 || params.H <= 0 {
				continue
			}
			loaded = true
			s.markLoaded(params.W, params.H, startPaused)

		case "end-file":
			// loop-file=inf restarts EOF internally; an end-file with
			// reason "error" means the media is undecodable.
			if ev.Reason == "error" {
				s.mu.Lock()
				releasing := s.releasing
				s.mu.Unlock()
				if !releasing && s.ev.OnFailure != nil {
					s.ev.OnFailure(fmt.Errorf("%w: decode failed for %s",
						ErrMediaUnreadable, s.path))
				}
			}
		}
	}
}
