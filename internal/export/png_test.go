package export

import (
	"bytes"
	"errors"
	"image/png"
	"testing"

	"github.com/doodlekit/doodlekit/backend-go/internal/geom"
	"github.com/doodlekit/doodlekit/backend-go/internal/scene"
)

func newExporter(t *testing.T) *Exporter {
	t.Helper()
	ex, err := NewExporter()
	if err != nil {
		t.Fatalf("NewExporter: %v", err)
	}
	return ex
}

func TestPNGEmptySceneIsNoOp(t *testing.T) {
	ex := newExporter(t)

	var buf bytes.Buffer
	err := ex.PNG(scene.New(), &buf)
	if !errors.Is(err, ErrEmptyScene) {
		t.Fatalf("err = %v, want ErrEmptyScene", err)
	}
	if buf.Len() != 0 {
		t.Errorf("empty scene wrote %d bytes", buf.Len())
	}
}

func TestPNGDimensions(t *testing.T) {
	ex := newExporter(t)

	sc := scene.New()
	sc.Add(scene.Shape{
		ID: "shape_a", Kind: scene.KindRectangle,
		X: 100, Y: 200, Width: 150, Height: 80,
		Stroke: "#1a1a2e", StrokeWidth: 2,
	})

	var buf bytes.Buffer
	if err := ex.PNG(sc, &buf); err != nil {
		t.Fatalf("PNG: %v", err)
	}

	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	// Tight bounds (150x80) plus 20 padding on each side, at 2x.
	wantW := int((150 + 2*Padding) * SuperSample)
	wantH := int((80 + 2*Padding) * SuperSample)
	b := img.Bounds()
	if b.Dx() != wantW || b.Dy() != wantH {
		t.Errorf("image %dx%d, want %dx%d", b.Dx(), b.Dy(), wantW, wantH)
	}
}

func TestPNGFlatLineBounds(t *testing.T) {
	ex := newExporter(t)

	// A lone horizontal line has zero-height bounds; the image must still
	// cover its full length plus padding.
	sc := scene.New()
	sc.Add(scene.Shape{
		ID: "shape_l", Kind: scene.KindLine,
		X: 100, Y: 50, X2: 200, Y2: 50,
		Stroke: "#000000", StrokeWidth: 2,
	})

	var buf bytes.Buffer
	if err := ex.PNG(sc, &buf); err != nil {
		t.Fatalf("PNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	wantW := int((100 + 2*Padding) * SuperSample)
	wantH := int((0 + 2*Padding) * SuperSample)
	b := img.Bounds()
	if b.Dx() != wantW || b.Dy() != wantH {
		t.Errorf("image %dx%d, want %dx%d", b.Dx(), b.Dy(), wantW, wantH)
	}

	// The line's midpoint must carry ink: world (150,50) maps to
	// ((150-80)*2, (50-30)*2).
	r, g, bl, _ := img.At(140, 40).RGBA()
	if r > 0x8000 && g > 0x8000 && bl > 0x8000 {
		t.Errorf("midpoint pixel = %v %v %v, want stroke ink", r, g, bl)
	}
}

func TestPNGBackgroundIsWhite(t *testing.T) {
	ex := newExporter(t)

	sc := scene.New()
	sc.Add(scene.Shape{
		ID: "shape_a", Kind: scene.KindRectangle,
		X: 0, Y: 0, Width: 50, Height: 50,
		Stroke: "#000000", StrokeWidth: 2,
	})

	var buf bytes.Buffer
	if err := ex.PNG(sc, &buf); err != nil {
		t.Fatalf("PNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	// Corner pixel sits in the padding band and must be opaque white.
	r, g, b, a := img.At(0, 0).RGBA()
	if r != 0xffff || g != 0xffff || b != 0xffff || a != 0xffff {
		t.Errorf("corner pixel = %v %v %v %v, want opaque white", r, g, b, a)
	}
}

func TestPNGDrawsAllKinds(t *testing.T) {
	ex := newExporter(t)

	sc := scene.New()
	kinds := []scene.Kind{
		scene.KindRectangle, scene.KindRoundedRectangle, scene.KindCircle,
		scene.KindEllipse, scene.KindDiamond, scene.KindTriangle, scene.KindArrow,
	}
	for i, k := range kinds {
		sc.Add(scene.Shape{
			ID: "shape_" + string(k), Kind: k,
			X: float64(i * 60), Y: 0, Width: 50, Height: 50,
			Fill: "#e0e0ff", Stroke: "#1a1a2e", StrokeWidth: 2,
		})
	}
	sc.Add(scene.Shape{ID: "shape_l", Kind: scene.KindLine, X: 0, Y: 100, X2: 200, Y2: 100, Stroke: "#000", StrokeWidth: 2})
	sc.Add(scene.Shape{ID: "shape_al", Kind: scene.KindArrowLine, X: 0, Y: 120, X2: 200, Y2: 140, Stroke: "#000", StrokeWidth: 2})
	sc.Add(scene.Shape{ID: "shape_f", Kind: scene.KindFreehand, Stroke: "#000", StrokeWidth: 2,
		Points: []geom.Point{{X: 0, Y: 160}, {X: 40, Y: 180}, {X: 80, Y: 160}}})
	sc.Add(scene.Shape{ID: "shape_t", Kind: scene.KindText, X: 0, Y: 200, Width: 120, Height: 40, Stroke: "#1a1a2e", Text: "caption"})

	var buf bytes.Buffer
	if err := ex.PNG(sc, &buf); err != nil {
		t.Fatalf("PNG over all kinds: %v", err)
	}
	if _, err := png.Decode(&buf); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestPNGShapeInkPresent(t *testing.T) {
	ex := newExporter(t)

	sc := scene.New()
	sc.Add(scene.Shape{
		ID: "shape_a", Kind: scene.KindRectangle,
		X: 0, Y: 0, Width: 50, Height: 50,
		Fill: "#ff0000", Stroke: "#000000", StrokeWidth: 2,
	})

	var buf bytes.Buffer
	if err := ex.PNG(sc, &buf); err != nil {
		t.Fatalf("PNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	// Center of the filled rect: world (25,25) maps to ((25+20)*2, (25+20)*2).
	r, g, _, _ := img.At(90, 90).RGBA()
	if r < 0xf000 || g > 0x1000 {
		t.Errorf("fill pixel = r=%v g=%v, want red", r, g)
	}
}
