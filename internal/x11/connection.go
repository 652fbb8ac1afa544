package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
)

// Connection manages the X11 connection and core X resources
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window

	hasShape bool
}

// NewConnection establishes a connection to the X11 server and initializes
// required extensions. The SHAPE extension is optional: without it surface
// windows are still created but are not input-transparent.
func NewConnection() (*Connection, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, err
	}

	c := &Connection{
		XUtil: xu,
		Root:  xu.RootWin(),
	}

	if err := shape.Init(xu.Conn()); err == nil {
		c.hasShape = true
	}
	// EWMH and RandR extensions are initialized on demand by xgbutil/xgb

	return c, nil
}

// Close cleanly disconnects from the X11 server
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}

// Sync flushes the request buffer and waits for the server to process it.
func (c *Connection) Sync() error {
	// GetInputFocus is the conventional no-op round trip.
	if _, err := xproto.GetInputFocus(c.XUtil.Conn()).Reply(); err != nil {
		return fmt.Errorf("x11 sync failed: %w", err)
	}
	return nil
}
