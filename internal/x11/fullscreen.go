package x11

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
)

// FullscreenRects returns the root-relative geometry of every mapped client
// window currently carrying _NET_WM_STATE_FULLSCREEN. Minimized (hidden)
// fullscreen windows are excluded: they do not occlude anything.
func (c *Connection) FullscreenRects() ([][4]int, error) {
	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return nil, err
	}

	var rects [][4]int
	for _, windowID := range clients {
		states, err := ewmh.WmStateGet(c.XUtil, windowID)
		if err != nil {
			continue
		}
		fullscreen := false
		hidden := false
		for _, state := range states {
			switch state {
			case "_NET_WM_STATE_FULLSCREEN":
				fullscreen = true
			case "_NET_WM_STATE_HIDDEN":
				hidden = true
			}
		}
		if !fullscreen || hidden {
			continue
		}

		x, y, w, h, ok := c.windowRect(windowID)
		if !ok {
			continue
		}
		rects = append(rects, [4]int{x, y, w, h})
	}

	return rects, nil
}

// windowRect returns a window's geometry translated to root coordinates.
func (c *Connection) windowRect(windowID xproto.Window) (x, y, w, h int, ok bool) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(windowID)).Reply()
	if err != nil {
		return 0, 0, 0, 0, false
	}

	translate, err := xproto.TranslateCoordinates(
		c.XUtil.Conn(),
		windowID,
		c.Root,
		0, 0,
	).Reply()
	if err != nil {
		return 0, 0, 0, 0, false
	}

	return int(translate.DstX), int(translate.DstY), int(geom.Width), int(geom.Height), true
}
