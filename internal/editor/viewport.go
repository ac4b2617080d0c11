package editor

import (
	"github.com/doodlekit/doodlekit/backend-go/internal/geom"
)

// Zoom limits and step factors. Wheel ticks use the 0.9/1.1 pair, the fixed
// zoom buttons use 1.2.
const (
	MinScale     = 0.25
	MaxScale     = 4.0
	WheelZoomOut = 0.9
	WheelZoomIn  = 1.1
	ButtonZoom   = 1.2
)

// Viewport maps between device (screen) coordinates and world coordinates
// given a pan offset and zoom scale. Shape geometry is always stored in
// world space; the viewport has no effect on it.
type Viewport struct {
	offset geom.Point
	scale  float64
}

// NewViewport returns an identity viewport (no pan, scale 1).
func NewViewport() *Viewport {
	return &Viewport{scale: 1}
}

// Scale returns the current zoom scale.
func (v *Viewport) Scale() float64 {
	return v.scale
}

// Offset returns the current pan offset in device units.
func (v *Viewport) Offset() geom.Point {
	return v.offset
}

// ScreenToWorld converts a device-space point to world space:
// world = (device - offset) / scale.
func (v *Viewport) ScreenToWorld(p geom.Point) geom.Point {
	return geom.Point{
		X: (p.X - v.offset.X) / v.scale,
		Y: (p.Y - v.offset.Y) / v.scale,
	}
}

// WorldToScreen is the inverse of ScreenToWorld.
func (v *Viewport) WorldToScreen(p geom.Point) geom.Point {
	return geom.Point{
		X: p.X*v.scale + v.offset.X,
		Y: p.Y*v.scale + v.offset.Y,
	}
}

// Matrix returns the whole-scene transform (translate by offset, then
// scale) applied once per frame by the renderer.
func (v *Viewport) Matrix() geom.Matrix2D {
	return geom.Translate(v.offset.X, v.offset.Y).Multiply(geom.Scale(v.scale, v.scale))
}

// ZoomBy multiplies the scale by factor, clamped to [MinScale, MaxScale].
// Zoom recenters on the coordinate origin, not the cursor; the scale never
// reaches zero so the transform stays invertible.
func (v *Viewport) ZoomBy(factor float64) {
	s := v.scale * factor
	if s < MinScale {
		s = MinScale
	}
	if s > MaxScale {
		s = MaxScale
	}
	v.scale = s
}

// PanBy adds to the pan offset. Invoked continuously while a pan gesture
// is active.
func (v *Viewport) PanBy(dx, dy float64) {
	v.offset.X += dx
	v.offset.Y += dy
}

// SetOffset replaces the pan offset, used when restoring a pan gesture
// from its captured start.
func (v *Viewport) SetOffset(p geom.Point) {
	v.offset = p
}
