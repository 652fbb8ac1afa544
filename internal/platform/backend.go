package platform

// WindowID is a platform-neutral window identifier.
type WindowID uint32

// Rect describes a rectangular region in global desktop coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Contains reports whether r fully contains other.
func (r Rect) Contains(other Rect) bool {
	return other.X >= r.X && other.Y >= r.Y &&
		other.X+other.Width <= r.X+r.Width &&
		other.Y+other.Height <= r.Y+r.Height
}

// Display describes a connected physical display.
type Display struct {
	// ID is a stable identifier for the physical connector (the RandR
	// output name on X11). It survives resolution and arrangement changes;
	// cable swaps count as disconnect+reconnect.
	ID          string
	Bounds      Rect
	ScaleFactor float64
}

// SurfaceHandle identifies one wallpaper surface's window pair.
type SurfaceHandle struct {
	Window WindowID
	Video  WindowID
}

// Backend abstracts the window system operations the wallpaper engine
// needs. The one production implementation is X11; tests substitute fakes.
type Backend interface {
	// Displays returns the currently connected displays, ordered by ID.
	Displays() ([]Display, error)

	// CreateSurface creates a desktop-level, click-through surface window
	// covering bounds, with an embedded child window for video output.
	CreateSurface(bounds Rect) (SurfaceHandle, error)

	// DestroySurface tears down both windows of a surface.
	DestroySurface(h SurfaceHandle) error

	// MoveResizeSurface repositions the outer surface window.
	MoveResizeSurface(h SurfaceHandle, bounds Rect) error

	// MoveResizeVideo positions the video child within its surface;
	// coordinates are surface-relative.
	MoveResizeVideo(h SurfaceHandle, r Rect) error

	// OccludedDisplays reports, per display ID, whether a fullscreen
	// application window currently covers that display.
	OccludedDisplays() (map[string]bool, error)
}
