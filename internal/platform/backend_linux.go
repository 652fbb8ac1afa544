//go:build linux

package platform

import (
	"fmt"
	"sort"

	"github.com/BurntSushi/xgb/xproto"

	"wallmotion/internal/x11"
)

// LinuxBackend implements Backend on top of an X11 connection.
type LinuxBackend struct {
	conn *x11.Connection
}

var _ Backend = (*LinuxBackend)(nil)

// NewLinuxBackend wraps an existing X11 connection.
func NewLinuxBackend(conn *x11.Connection) *LinuxBackend {
	return &LinuxBackend{conn: conn}
}

// NewLinuxBackendFromDisplay opens a fresh X11 connection.
func NewLinuxBackendFromDisplay() (*LinuxBackend, error) {
	conn, err := x11.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return &LinuxBackend{conn: conn}, nil
}

// Disconnect closes the underlying X11 connection.
func (b *LinuxBackend) Disconnect() {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
}

// Displays returns all active displays, ordered by output name.
func (b *LinuxBackend) Displays() ([]Display, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}

	monitors, err := conn.GetMonitors()
	if err != nil {
		return nil, err
	}

	displays := make([]Display, 0, len(monitors))
	for _, m := range monitors {
		displays = append(displays, Display{
			ID: m.Output,
			Bounds: Rect{
				X:      m.X,
				Y:      m.Y,
				Width:  m.Width,
				Height: m.Height,
			},
			ScaleFactor: m.ScaleFactor,
		})
	}

	sort.Slice(displays, func(i, j int) bool {
		return displays[i].ID < displays[j].ID
	})

	return displays, nil
}

// CreateSurface creates the desktop-level window pair for one display.
func (b *LinuxBackend) CreateSurface(bounds Rect) (SurfaceHandle, error) {
	conn, err := b.connection()
	if err != nil {
		return SurfaceHandle{}, err
	}

	s, err := conn.CreateSurface(bounds.X, bounds.Y, bounds.Width, bounds.Height)
	if err != nil {
		return SurfaceHandle{}, err
	}
	return SurfaceHandle{Window: WindowID(s.Window), Video: WindowID(s.Video)}, nil
}

// DestroySurface tears down a surface's windows.
func (b *LinuxBackend) DestroySurface(h SurfaceHandle) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.DestroySurface(surfaceWindows(h))
}

// MoveResizeSurface repositions the outer surface window.
func (b *LinuxBackend) MoveResizeSurface(h SurfaceHandle, bounds Rect) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.MoveResizeSurface(surfaceWindows(h), bounds.X, bounds.Y, bounds.Width, bounds.Height)
}

// MoveResizeVideo positions the video child within its surface.
func (b *LinuxBackend) MoveResizeVideo(h SurfaceHandle, r Rect) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.MoveResizeVideo(surfaceWindows(h), r.X, r.Y, r.Width, r.Height)
}

// OccludedDisplays reports which displays are covered by a fullscreen
// application window.
func (b *LinuxBackend) OccludedDisplays() (map[string]bool, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}

	displays, err := b.Displays()
	if err != nil {
		return nil, err
	}

	rects, err := conn.FullscreenRects()
	if err != nil {
		return nil, err
	}

	occluded := make(map[string]bool, len(displays))
	for _, d := range displays {
		occluded[d.ID] = false
		for _, r := range rects {
			win := Rect{X: r[0], Y: r[1], Width: r[2], Height: r[3]}
			if win.Contains(d.Bounds) {
				occluded[d.ID] = true
				break
			}
		}
	}

	return occluded, nil
}

func (b *LinuxBackend) connection() (*x11.Connection, error) {
	if b == nil || b.conn == nil {
		return nil, fmt.Errorf("x11 backend connection is nil")
	}
	return b.conn, nil
}

func surfaceWindows(h SurfaceHandle) x11.SurfaceWindows {
	return x11.SurfaceWindows{
		Window: xproto.Window(h.Window),
		Video:  xproto.Window(h.Video),
	}
}
