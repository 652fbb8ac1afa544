package x11

import (
	"fmt"
	"sync"

	"github.com/BurntSushi/xgb/randr"
)

// Monitor represents a connected physical display.
type Monitor struct {
	// Output is the RandR output name (e.g. "HDMI-1", "eDP-1"). It is the
	// most durable identifier X11 offers for a physical connector and
	// survives resolution and arrangement changes.
	Output string
	X      int
	Y      int
	Width  int
	Height int
	// ScaleFactor is derived from the output's reported physical size
	// against its pixel size, normalized to a 96 DPI baseline. 1.0 when the
	// physical size is unknown (projectors, some VMs).
	ScaleFactor float64
}

var randrInit sync.Once

// GetMonitors retrieves all active monitors using XRandR, one entry per
// enabled output mapped to a CRTC.
func (c *Connection) GetMonitors() ([]Monitor, error) {
	var initErr error
	randrInit.Do(func() {
		initErr = randr.Init(c.XUtil.Conn())
	})
	if initErr != nil {
		return nil, fmt.Errorf("randr init failed: %w", initErr)
	}

	resources, err := randr.GetScreenResources(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var monitors []Monitor

	for i, output := range resources.Outputs {
		outputInfo, err := randr.GetOutputInfo(c.XUtil.Conn(), output, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		if outputInfo.Connection != randr.ConnectionConnected || outputInfo.Crtc == 0 {
			continue
		}

		crtcInfo, err := randr.GetCrtcInfo(c.XUtil.Conn(), outputInfo.Crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		if crtcInfo.Width == 0 || crtcInfo.Height == 0 {
			continue
		}

		name := string(outputInfo.Name)
		if name == "" {
			name = fmt.Sprintf("output-%d", i)
		}

		monitors = append(monitors, Monitor{
			Output:      name,
			X:           int(crtcInfo.X),
			Y:           int(crtcInfo.Y),
			Width:       int(crtcInfo.Width),
			Height:      int(crtcInfo.Height),
			ScaleFactor: scaleFactor(int(crtcInfo.Width), int(outputInfo.MmWidth)),
		})
	}

	return monitors, nil
}

// scaleFactor estimates the display's scale from pixel width vs physical
// width in millimeters, against a 96 DPI baseline. Rounded to a quarter
// step so near-1.0 panels report exactly 1.0.
func scaleFactor(pixelWidth, mmWidth int) float64 {
	if pixelWidth <= 0 || mmWidth <= 0 {
		return 1.0
	}
	dpi := float64(pixelWidth) / (float64(mmWidth) / 25.4)
	factor := dpi / 96.0
	if factor < 1.0 {
		return 1.0
	}
	// Quantize to 0.25 steps (1.0, 1.25, 1.5, 2.0 ...).
	return float64(int(factor*4+0.5)) / 4
}
