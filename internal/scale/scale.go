package scale

import (
	"fmt"
	"strings"
)

// Mode defines how a video's natural size maps onto a display's pixel bounds.
type Mode string

const (
	// ModeFill scales uniformly to cover the whole surface and center-crops
	// the overflow.
	ModeFill Mode = "fill"
	// ModeFit scales uniformly so the whole frame is visible, letterboxing
	// or pillarboxing the remainder.
	ModeFit Mode = "fit"
	// ModeStretch scales each axis independently to exactly fill the
	// surface. Aspect ratio is not preserved.
	ModeStretch Mode = "stretch"
	// ModeCenter shows the frame at its native size, centered. Overflow is
	// cropped, underflow is letterboxed on both axes.
	ModeCenter Mode = "center"
)

// Modes lists all valid scale modes in display order.
func Modes() []Mode {
	return []Mode{ModeFill, ModeFit, ModeStretch, ModeCenter}
}

// ParseMode converts a string (as stored in config or given on the CLI)
// into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeFill:
		return ModeFill, nil
	case ModeFit:
		return ModeFit, nil
	case ModeStretch:
		return ModeStretch, nil
	case ModeCenter:
		return ModeCenter, nil
	}
	return "", fmt.Errorf("unknown scale mode %q (valid: fill, fit, stretch, center)", s)
}

// Size is a width/height pair in pixels.
type Size struct {
	Width  int
	Height int
}

// IsZero reports whether either dimension is missing.
func (s Size) IsZero() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Rect is an axis-aligned rectangle. For destination rectangles the origin
// is relative to the target surface; for source crops it is relative to the
// video frame.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Size returns the rectangle's dimensions.
func (r Rect) Size() Size {
	return Size{Width: r.Width, Height: r.Height}
}

// Placement is the result of mapping a video frame onto a surface: where
// the video lands on the surface, and which region of the frame is shown.
type Placement struct {
	// Dest is the rectangle on the target surface that the (cropped) frame
	// is drawn into.
	Dest Rect
	// SourceCrop is the visible region of the video frame. When it equals
	// the full natural size no cropping takes place.
	SourceCrop Rect
}

// FullFrame reports whether the placement shows the entire frame uncropped.
func (p Placement) FullFrame(natural Size) bool {
	return p.SourceCrop == Rect{X: 0, Y: 0, Width: natural.Width, Height: natural.Height}
}

// Place computes the placement of a video with the given natural size onto
// a target surface under the given scale mode. It is a pure function.
//
// A degenerate natural size (zero or negative dimension) falls back to
// stretch semantics: the destination covers the whole target with no crop.
func Place(natural, target Size, mode Mode) Placement {
	if natural.IsZero() || target.IsZero() {
		return Placement{
			Dest:       Rect{Width: target.Width, Height: target.Height},
			SourceCrop: Rect{Width: natural.Width, Height: natural.Height},
		}
	}

	fullCrop := Rect{Width: natural.Width, Height: natural.Height}

	switch mode {
	case ModeFit:
		// Uniform contain: destination is the largest centered rectangle
		// with the frame's aspect ratio that fits inside the target.
		dw := target.Width
		dh := natural.Height * target.Width / natural.Width
		if dh > target.Height {
			dh = target.Height
			dw = natural.Width * target.Height / natural.Height
		}
		return Placement{
			Dest: Rect{
				X:      (target.Width - dw) / 2,
				Y:      (target.Height - dh) / 2,
				Width:  dw,
				Height: dh,
			},
			SourceCrop: fullCrop,
		}

	case ModeStretch:
		return Placement{
			Dest:       Rect{Width: target.Width, Height: target.Height},
			SourceCrop: fullCrop,
		}

	case ModeCenter:
		// Native size, centered. The visible region of the frame is the
		// intersection of the centered frame with the target.
		dest := Rect{
			X:      (target.Width - natural.Width) / 2,
			Y:      (target.Height - natural.Height) / 2,
			Width:  natural.Width,
			Height: natural.Height,
		}
		crop := fullCrop
		if dest.X < 0 {
			crop.X = -dest.X
			crop.Width = target.Width
			dest.X = 0
			dest.Width = target.Width
		}
		if dest.Y < 0 {
			crop.Y = -dest.Y
			crop.Height = target.Height
			dest.Y = 0
			dest.Height = target.Height
		}
		return Placement{Dest: dest, SourceCrop: crop}

	default: // ModeFill and anything unrecognized
		// Uniform cover: scale so the target is fully covered, then crop
		// the source region that maps onto the target, centered.
		dest := Rect{Width: target.Width, Height: target.Height}
		// Compare aspect ratios without floats: natural is wider than the
		// target iff natural.W*target.H > target.W*natural.H.
		if natural.Width*target.Height > target.Width*natural.Height {
			// Frame is wider: full height visible, sides cropped.
			cw := natural.Height * target.Width / target.Height
			if cw > natural.Width {
				cw = natural.Width
			}
			return Placement{
				Dest: dest,
				SourceCrop: Rect{
					X:      (natural.Width - cw) / 2,
					Width:  cw,
					Height: natural.Height,
				},
			}
		}
		// Frame is taller (or same aspect): full width visible, top and
		// bottom cropped.
		ch := natural.Width * target.Height / target.Width
		if ch > natural.Height {
			ch = natural.Height
		}
		return Placement{
			Dest: dest,
			SourceCrop: Rect{
				Y:      (natural.Height - ch) / 2,
				Width:  natural.Width,
				Height: ch,
			},
		}
	}
}
