package render

import (
	"math"

	"github.com/doodlekit/doodlekit/backend-go/internal/geom"
	"github.com/doodlekit/doodlekit/backend-go/internal/scene"
)

// Magic number for bezier approximation of a circle/ellipse:
// k = 4 * (sqrt(2) - 1) / 3 ≈ 0.5522847498
const bezierCircleK = 0.5522847498

// CornerRadius is the fixed corner radius of rounded rectangles, clamped to
// half the smaller dimension for small shapes.
const CornerRadius = 8.0

// Arrow-head geometry for arrowLine: barb length and angle off the reversed
// segment direction.
const (
	ArrowBarbLength = 12.0
	ArrowBarbAngle  = 30.0 * math.Pi / 180.0
)

// ShapePath generates the Canvas2D path commands for a shape's geometric
// primitive, in world coordinates. Text shapes have no path: their label is
// emitted as a separate text command, and an empty text shape still
// hit-tests against its invisible bounding box.
func ShapePath(sh *scene.Shape) []PathCommand {
	switch sh.Kind {
	case scene.KindRectangle:
		return rectPath(sh.X, sh.Y, sh.Width, sh.Height)

	case scene.KindText:
		return nil

	case scene.KindRoundedRectangle:
		return roundedRectPath(sh.X, sh.Y, sh.Width, sh.Height)

	case scene.KindCircle, scene.KindEllipse:
		return ellipsePath(sh.X+sh.Width/2, sh.Y+sh.Height/2, sh.Width/2, sh.Height/2)

	case scene.KindDiamond:
		return polygonPath([]geom.Point{
			{X: sh.X + sh.Width/2, Y: sh.Y},
			{X: sh.X + sh.Width, Y: sh.Y + sh.Height/2},
			{X: sh.X + sh.Width/2, Y: sh.Y + sh.Height},
			{X: sh.X, Y: sh.Y + sh.Height/2},
		})

	case scene.KindTriangle:
		return polygonPath([]geom.Point{
			{X: sh.X + sh.Width/2, Y: sh.Y},
			{X: sh.X + sh.Width, Y: sh.Y + sh.Height},
			{X: sh.X, Y: sh.Y + sh.Height},
		})

	case scene.KindArrow:
		return polygonPath(blockArrowPoints(sh.X, sh.Y, sh.Width, sh.Height))

	case scene.KindLine, scene.KindArrowLine:
		return []PathCommand{
			{"M", sh.X, sh.Y},
			{"L", sh.X2, sh.Y2},
		}

	case scene.KindFreehand:
		return polylinePath(sh.Points)

	default:
		return nil
	}
}

func rectPath(x, y, w, h float64) []PathCommand {
	return []PathCommand{
		{"M", x, y},
		{"L", x + w, y},
		{"L", x + w, y + h},
		{"L", x, y + h},
		{"Z"},
	}
}

// roundedRectPath uses quadratic corners with a fixed radius.
func roundedRectPath(x, y, w, h float64) []PathCommand {
	r := math.Min(CornerRadius, math.Min(w, h)/2)
	return []PathCommand{
		{"M", x + r, y},
		{"L", x + w - r, y},
		{"Q", x + w, y, x + w, y + r},
		{"L", x + w, y + h - r},
		{"Q", x + w, y + h, x + w - r, y + h},
		{"L", x + r, y + h},
		{"Q", x, y + h, x, y + h - r},
		{"L", x, y + r},
		{"Q", x, y, x + r, y},
		{"Z"},
	}
}

// ellipsePath approximates an ellipse centred at (cx, cy) with four cubic
// bezier curves.
func ellipsePath(cx, cy, rx, ry float64) []PathCommand {
	kx, ky := rx*bezierCircleK, ry*bezierCircleK
	return []PathCommand{
		{"M", cx + rx, cy},
		{"C", cx + rx, cy + ky, cx + kx, cy + ry, cx, cy + ry},
		{"C", cx - kx, cy + ry, cx - rx, cy + ky, cx - rx, cy},
		{"C", cx - rx, cy - ky, cx - kx, cy - ry, cx, cy - ry},
		{"C", cx + kx, cy - ry, cx + rx, cy - ky, cx + rx, cy},
		{"Z"},
	}
}

// blockArrowPoints returns the seven corners of a right-pointing block
// arrow filling the given box: a shaft over the left 60% and a head over
// the rest.
func blockArrowPoints(x, y, w, h float64) []geom.Point {
	shaft := x + w*0.6
	return []geom.Point{
		{X: x, Y: y + h*0.25},
		{X: shaft, Y: y + h*0.25},
		{X: shaft, Y: y},
		{X: x + w, Y: y + h/2},
		{X: shaft, Y: y + h},
		{X: shaft, Y: y + h*0.75},
		{X: x, Y: y + h*0.75},
	}
}

// ArrowHeadPath returns the filled barb triangle for an arrowLine ending at
// b: two barb points at ArrowBarbLength and ±ArrowBarbAngle off the
// reversed segment direction, anchored at the end point.
func ArrowHeadPath(a, b geom.Point) []PathCommand {
	angle := math.Atan2(b.Y-a.Y, b.X-a.X)
	rev := angle + math.Pi

	p1 := geom.Point{
		X: b.X + ArrowBarbLength*math.Cos(rev+ArrowBarbAngle),
		Y: b.Y + ArrowBarbLength*math.Sin(rev+ArrowBarbAngle),
	}
	p2 := geom.Point{
		X: b.X + ArrowBarbLength*math.Cos(rev-ArrowBarbAngle),
		Y: b.Y + ArrowBarbLength*math.Sin(rev-ArrowBarbAngle),
	}

	return polygonPath([]geom.Point{b, p1, p2})
}

func polygonPath(pts []geom.Point) []PathCommand {
	if len(pts) == 0 {
		return nil
	}
	out := make([]PathCommand, 0, len(pts)+1)
	out = append(out, PathCommand{"M", pts[0].X, pts[0].Y})
	for _, p := range pts[1:] {
		out = append(out, PathCommand{"L", p.X, p.Y})
	}
	return append(out, PathCommand{"Z"})
}

func polylinePath(pts []geom.Point) []PathCommand {
	if len(pts) == 0 {
		return nil
	}
	out := make([]PathCommand, 0, len(pts))
	out = append(out, PathCommand{"M", pts[0].X, pts[0].Y})
	for _, p := range pts[1:] {
		out = append(out, PathCommand{"L", p.X, p.Y})
	}
	return out
}
