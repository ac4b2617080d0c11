package export

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/doodlekit/doodlekit/backend-go/internal/render"
	"github.com/doodlekit/doodlekit/backend-go/internal/scene"
)

// ErrEmptyScene is returned when there is nothing to rasterize. Callers
// treat it as a no-op, not a failure.
var ErrEmptyScene = errors.New("export: empty scene")

const (
	// Padding is added around the tight scene bounds, in world units.
	Padding = 20.0
	// SuperSample is the fixed raster scale of the export.
	SuperSample = 2.0
	// LabelSize is the label font size in world units.
	LabelSize = 14.0
)

// Exporter flattens a scene to a PNG on an opaque white background at
// SuperSample times the computed bounding-box resolution. Exports are
// serialized per exporter so concurrent requests on one session cannot
// interleave on the shared font face.
type Exporter struct {
	mu   sync.Mutex
	face font.Face
}

// NewExporter loads the label font face.
func NewExporter() (*Exporter, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	// Glyphs rasterize in device pixels, so the face carries the
	// supersampling factor.
	face := truetype.NewFace(f, &truetype.Options{Size: LabelSize * SuperSample})
	return &Exporter{face: face}, nil
}

// PNG renders the scene and writes the encoded image. An empty scene
// produces no output and returns ErrEmptyScene.
func (ex *Exporter) PNG(sc *scene.Scene, w io.Writer) error {
	ex.mu.Lock()
	defer ex.mu.Unlock()

	if sc.Len() == 0 {
		return ErrEmptyScene
	}

	bounds := sc.Bounds().Inflate(Padding)
	wpx := int(math.Ceil(bounds.Width * SuperSample))
	hpx := int(math.Ceil(bounds.Height * SuperSample))
	if wpx < 1 {
		wpx = 1
	}
	if hpx < 1 {
		hpx = 1
	}

	dc := gg.NewContext(wpx, hpx)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	dc.Scale(SuperSample, SuperSample)
	dc.Translate(-bounds.X, -bounds.Y)

	shapes := sc.Shapes()
	for i := range shapes {
		ex.drawShape(dc, &shapes[i])
	}

	return dc.EncodePNG(w)
}

func (ex *Exporter) drawShape(dc *gg.Context, sh *scene.Shape) {
	switch sh.Kind {
	case scene.KindRectangle:
		dc.DrawRectangle(sh.X, sh.Y, sh.Width, sh.Height)
		ex.paint(dc, sh)

	case scene.KindRoundedRectangle:
		r := math.Min(render.CornerRadius, math.Min(sh.Width, sh.Height)/2)
		dc.DrawRoundedRectangle(sh.X, sh.Y, sh.Width, sh.Height, r)
		ex.paint(dc, sh)

	case scene.KindCircle, scene.KindEllipse:
		dc.DrawEllipse(sh.X+sh.Width/2, sh.Y+sh.Height/2, sh.Width/2, sh.Height/2)
		ex.paint(dc, sh)

	case scene.KindDiamond:
		dc.MoveTo(sh.X+sh.Width/2, sh.Y)
		dc.LineTo(sh.X+sh.Width, sh.Y+sh.Height/2)
		dc.LineTo(sh.X+sh.Width/2, sh.Y+sh.Height)
		dc.LineTo(sh.X, sh.Y+sh.Height/2)
		dc.ClosePath()
		ex.paint(dc, sh)

	case scene.KindTriangle:
		dc.MoveTo(sh.X+sh.Width/2, sh.Y)
		dc.LineTo(sh.X+sh.Width, sh.Y+sh.Height)
		dc.LineTo(sh.X, sh.Y+sh.Height)
		dc.ClosePath()
		ex.paint(dc, sh)

	case scene.KindArrow:
		shaft := sh.X + sh.Width*0.6
		dc.MoveTo(sh.X, sh.Y+sh.Height*0.25)
		dc.LineTo(shaft, sh.Y+sh.Height*0.25)
		dc.LineTo(shaft, sh.Y)
		dc.LineTo(sh.X+sh.Width, sh.Y+sh.Height/2)
		dc.LineTo(shaft, sh.Y+sh.Height)
		dc.LineTo(shaft, sh.Y+sh.Height*0.75)
		dc.LineTo(sh.X, sh.Y+sh.Height*0.75)
		dc.ClosePath()
		ex.paint(dc, sh)

	case scene.KindLine, scene.KindArrowLine:
		dc.MoveTo(sh.X, sh.Y)
		dc.LineTo(sh.X2, sh.Y2)
		ex.strokeOnly(dc, sh)
		if sh.Kind == scene.KindArrowLine {
			ex.drawArrowHead(dc, sh)
		}

	case scene.KindFreehand:
		if len(sh.Points) == 0 {
			return
		}
		dc.MoveTo(sh.Points[0].X, sh.Points[0].Y)
		for _, p := range sh.Points[1:] {
			dc.LineTo(p.X, p.Y)
		}
		ex.strokeOnly(dc, sh)

	case scene.KindText:
		// Label only, drawn below.
	}

	if sh.Text != "" && sh.HasTextSlot() {
		cx, cy := sh.Bounds().Center()
		dc.SetHexColor(sh.Stroke)
		dc.SetFontFace(ex.face)
		dc.DrawStringAnchored(sh.Text, cx, cy, 0.5, 0.5)
	}
}

// paint fills-then-strokes the current path; "" and "none" mean unfilled.
func (ex *Exporter) paint(dc *gg.Context, sh *scene.Shape) {
	if sh.Fill != "" && sh.Fill != "none" {
		dc.SetHexColor(sh.Fill)
		dc.FillPreserve()
	}
	ex.strokeOnly(dc, sh)
}

func (ex *Exporter) strokeOnly(dc *gg.Context, sh *scene.Shape) {
	if sh.Stroke == "" {
		dc.ClearPath()
		return
	}
	dc.SetHexColor(sh.Stroke)
	dc.SetLineWidth(sh.StrokeWidth)
	dc.Stroke()
}

// drawArrowHead fills the barb triangle at the segment end, matching the
// live renderer's geometry.
func (ex *Exporter) drawArrowHead(dc *gg.Context, sh *scene.Shape) {
	angle := math.Atan2(sh.Y2-sh.Y, sh.X2-sh.X)
	rev := angle + math.Pi

	dc.MoveTo(sh.X2, sh.Y2)
	dc.LineTo(
		sh.X2+render.ArrowBarbLength*math.Cos(rev+render.ArrowBarbAngle),
		sh.Y2+render.ArrowBarbLength*math.Sin(rev+render.ArrowBarbAngle),
	)
	dc.LineTo(
		sh.X2+render.ArrowBarbLength*math.Cos(rev-render.ArrowBarbAngle),
		sh.Y2+render.ArrowBarbLength*math.Sin(rev-render.ArrowBarbAngle),
	)
	dc.ClosePath()
	dc.SetHexColor(sh.Stroke)
	dc.Fill()
}
