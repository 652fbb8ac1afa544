package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// SurfaceWindows is the pair of X windows backing one wallpaper surface:
// an outer desktop-level window covering the display, and an inner child
// window that the video renderer is embedded into.
type SurfaceWindows struct {
	Window xproto.Window
	Video  xproto.Window
}

// CreateSurface creates a borderless, desktop-level, input-transparent
// window at the given root-relative geometry, plus a child window for the
// video. The surface is mapped and lowered below all application windows;
// the video child initially covers the whole surface.
func (c *Connection) CreateSurface(x, y, width, height int) (SurfaceWindows, error) {
	outer, err := xwindow.Generate(c.XUtil)
	if err != nil {
		return SurfaceWindows{}, fmt.Errorf("failed to allocate surface window id: %w", err)
	}

	black := c.XUtil.Screen().BlackPixel
	err = outer.CreateChecked(c.Root, x, y, width, height,
		xproto.CwBackPixel|xproto.CwOverrideRedirect, black, 1)
	if err != nil {
		return SurfaceWindows{}, fmt.Errorf("failed to create surface window: %w", err)
	}

	// Hints are advisory for an override-redirect window, but compositors
	// and some WMs still honor them for stacking and listing purposes.
	ewmh.WmWindowTypeSet(c.XUtil, outer.Id, []string{"_NET_WM_WINDOW_TYPE_DESKTOP"})
	ewmh.WmStateSet(c.XUtil, outer.Id, []string{
		"_NET_WM_STATE_BELOW",
		"_NET_WM_STATE_STICKY",
		"_NET_WM_STATE_SKIP_TASKBAR",
		"_NET_WM_STATE_SKIP_PAGER",
	})
	ewmh.WmNameSet(c.XUtil, outer.Id, "wallmotion")
	icccm.WmClassSet(c.XUtil, outer.Id, &icccm.WmClass{
		Instance: "wallmotion",
		Class:    "Wallmotion",
	})

	if c.hasShape {
		// Empty input region: clicks and keys pass through to the desktop.
		shape.Rectangles(c.XUtil.Conn(), shape.SoSet, shape.SkInput,
			xproto.ClipOrderingUnsorted, outer.Id, 0, 0, nil)
	}

	video, err := xwindow.Generate(c.XUtil)
	if err != nil {
		outer.Destroy()
		return SurfaceWindows{}, fmt.Errorf("failed to allocate video window id: %w", err)
	}
	err = video.CreateChecked(outer.Id, 0, 0, width, height,
		xproto.CwBackPixel, black)
	if err != nil {
		outer.Destroy()
		return SurfaceWindows{}, fmt.Errorf("failed to create video window: %w", err)
	}
	if c.hasShape {
		shape.Rectangles(c.XUtil.Conn(), shape.SoSet, shape.SkInput,
			xproto.ClipOrderingUnsorted, video.Id, 0, 0, nil)
	}

	video.Map()
	outer.Map()
	c.LowerWindow(outer.Id)

	return SurfaceWindows{Window: outer.Id, Video: video.Id}, nil
}

// DestroySurface unmaps and destroys both windows of a surface. Destroying
// the outer window destroys the child as well; the explicit unmap avoids a
// flash of the bare surface if the server reorders requests.
func (c *Connection) DestroySurface(s SurfaceWindows) error {
	win := xwindow.New(c.XUtil, s.Window)
	win.Unmap()
	win.Destroy()
	return c.Sync()
}

// MoveResizeSurface moves the outer window to new root-relative geometry.
// The video child keeps its surface-relative placement and is adjusted
// separately by the caller.
func (c *Connection) MoveResizeSurface(s SurfaceWindows, x, y, width, height int) error {
	xwindow.New(c.XUtil, s.Window).MoveResize(x, y, width, height)
	c.LowerWindow(s.Window)
	return c.Sync()
}

// MoveResizeVideo positions the video child within its surface.
func (c *Connection) MoveResizeVideo(s SurfaceWindows, x, y, width, height int) error {
	xwindow.New(c.XUtil, s.Video).MoveResize(x, y, width, height)
	return c.Sync()
}

// LowerWindow pushes a window to the bottom of the stacking order, below
// normal application windows.
func (c *Connection) LowerWindow(win xproto.Window) {
	xproto.ConfigureWindow(c.XUtil.Conn(), win,
		xproto.ConfigWindowStackMode, []uint32{xproto.StackModeBelow})
}
