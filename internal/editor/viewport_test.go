package editor

import (
	"math"
	"testing"

	"github.com/doodlekit/doodlekit/backend-go/internal/geom"
)

const eps = 1e-9

func TestScreenToWorldRoundTrip(t *testing.T) {
	v := NewViewport()
	v.PanBy(120, -40)
	v.ZoomBy(2)

	pts := []geom.Point{
		{X: 0, Y: 0},
		{X: 400, Y: 300},
		{X: -17.5, Y: 99.25},
	}
	for _, p := range pts {
		back := v.WorldToScreen(v.ScreenToWorld(p))
		if math.Abs(back.X-p.X) > eps || math.Abs(back.Y-p.Y) > eps {
			t.Errorf("round trip %+v = %+v", p, back)
		}
	}
}

func TestScreenToWorld(t *testing.T) {
	v := NewViewport()
	v.SetOffset(geom.Point{X: 100, Y: 50})
	v.ZoomBy(2)

	got := v.ScreenToWorld(geom.Point{X: 300, Y: 150})
	want := geom.Point{X: 100, Y: 50}
	if math.Abs(got.X-want.X) > eps || math.Abs(got.Y-want.Y) > eps {
		t.Errorf("ScreenToWorld = %+v, want %+v", got, want)
	}
}

func TestZoomClamp(t *testing.T) {
	v := NewViewport()
	for i := 0; i < 50; i++ {
		v.ZoomBy(WheelZoomIn)
	}
	if v.Scale() != MaxScale {
		t.Errorf("scale after many zoom-ins = %v, want %v", v.Scale(), MaxScale)
	}

	for i := 0; i < 50; i++ {
		v.ZoomBy(WheelZoomOut)
	}
	if v.Scale() != MinScale {
		t.Errorf("scale after many zoom-outs = %v, want %v", v.Scale(), MinScale)
	}
}

func TestWheelZoomSteps(t *testing.T) {
	v := NewViewport()
	v.ZoomBy(WheelZoomOut)
	v.ZoomBy(WheelZoomOut)
	v.ZoomBy(WheelZoomOut)

	want := 0.9 * 0.9 * 0.9
	if math.Abs(v.Scale()-want) > eps {
		t.Errorf("scale after three wheel-down ticks = %v, want %v", v.Scale(), want)
	}
}

func TestViewportMatrix(t *testing.T) {
	v := NewViewport()
	v.SetOffset(geom.Point{X: 10, Y: 20})
	v.ZoomBy(2)

	m := v.Matrix()
	p := geom.Point{X: 5, Y: 5}
	got := m.TransformPoint(p)
	want := v.WorldToScreen(p)
	if math.Abs(got.X-want.X) > eps || math.Abs(got.Y-want.Y) > eps {
		t.Errorf("Matrix transform = %+v, WorldToScreen = %+v", got, want)
	}
}
