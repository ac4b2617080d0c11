package scene

import (
	"github.com/doodlekit/doodlekit/backend-go/internal/geom"
)

// Kind identifies a shape variant. Behaviour differences between kinds
// (construction rule, hit-test, render primitive) are all data-driven and
// dispatched by a single switch per operation.
type Kind string

const (
	KindRectangle        Kind = "rectangle"
	KindRoundedRectangle Kind = "roundedRectangle"
	KindCircle           Kind = "circle"
	KindEllipse          Kind = "ellipse"
	KindDiamond          Kind = "diamond"
	KindTriangle         Kind = "triangle"
	KindArrow            Kind = "arrow"
	KindLine             Kind = "line"
	KindArrowLine        Kind = "arrowLine"
	KindText             Kind = "text"
	KindFreehand         Kind = "freehand"
)

// MinSize is the floor applied to width/height at creation so a zero-extent
// drag still produces a selectable shape.
const MinSize = 10.0

// Shape is a single element of the scene. All geometry is stored in world
// space; pan/zoom never touch these fields.
//
// Line-like kinds (line, arrowLine) store their second endpoint in X2/Y2 and
// leave Width/Height at 0. Freehand stores its sampled polyline in Points and
// ignores the rectangular extent.
type Shape struct {
	ID          string       `json:"id"`
	Kind        Kind         `json:"kind"`
	X           float64      `json:"x"`
	Y           float64      `json:"y"`
	Width       float64      `json:"width"`
	Height      float64      `json:"height"`
	Rotation    float64      `json:"rotation"` // reserved, always 0
	Fill        string       `json:"fill"`     // "" or "none" means unfilled
	Stroke      string       `json:"stroke"`
	StrokeWidth float64      `json:"strokeWidth"`
	Text        string       `json:"text,omitempty"`
	X2          float64      `json:"x2,omitempty"`
	Y2          float64      `json:"y2,omitempty"`
	Points      []geom.Point `json:"points,omitempty"`
}

// IsLineLike reports whether the shape is hit-tested by segment distance
// rather than bounding-box containment.
func (s *Shape) IsLineLike() bool {
	return s.Kind == KindLine || s.Kind == KindArrowLine
}

// HasTextSlot reports whether the shape can carry an editable label.
// Line-like and freehand shapes cannot.
func (s *Shape) HasTextSlot() bool {
	return !s.IsLineLike() && s.Kind != KindFreehand
}

// Bounds returns the shape's axis-aligned bounding box in world space.
// Line-like shapes span their two endpoints, freehand spans its sampled
// points; everything else is the stored rectangle.
func (s *Shape) Bounds() geom.Rect {
	switch s.Kind {
	case KindLine, KindArrowLine:
		return geom.RectFromPoints([]geom.Point{
			{X: s.X, Y: s.Y},
			{X: s.X2, Y: s.Y2},
		})
	case KindFreehand:
		return geom.RectFromPoints(s.Points)
	default:
		return geom.Rect{X: s.X, Y: s.Y, Width: s.Width, Height: s.Height}
	}
}

// HitTolerance is the selection distance for line-like shapes, in world
// units, independent of zoom.
const HitTolerance = 10.0

// HitTest reports whether a world-space point selects this shape.
// Non-rectangular silhouettes (ellipse, diamond, triangle, arrow) are
// deliberately approximated by their bounding box for uniform behaviour.
func (s *Shape) HitTest(p geom.Point) bool {
	if s.IsLineLike() {
		a := geom.Point{X: s.X, Y: s.Y}
		b := geom.Point{X: s.X2, Y: s.Y2}
		return geom.DistancePointToSegment(p, a, b) <= HitTolerance
	}
	return s.Bounds().Contains(p.X, p.Y)
}

// Clone returns a deep copy of the shape (the freehand point slice is not
// shared with the original).
func (s *Shape) Clone() Shape {
	out := *s
	if s.Points != nil {
		out.Points = make([]geom.Point, len(s.Points))
		copy(out.Points, s.Points)
	}
	return out
}

// TranslateBy shifts the shape rigidly by (dx, dy). Line-like shapes move
// both endpoints so segment length and direction are preserved; freehand
// moves every sampled point.
func (s *Shape) TranslateBy(dx, dy float64) {
	s.X += dx
	s.Y += dy
	switch s.Kind {
	case KindLine, KindArrowLine:
		s.X2 += dx
		s.Y2 += dy
	case KindFreehand:
		for i := range s.Points {
			s.Points[i].X += dx
			s.Points[i].Y += dy
		}
	}
}
