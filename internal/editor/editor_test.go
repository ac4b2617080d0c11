package editor

import (
	"errors"
	"math"
	"testing"

	"github.com/doodlekit/doodlekit/backend-go/internal/geom"
	"github.com/doodlekit/doodlekit/backend-go/internal/scene"
)

func pt(x, y float64) geom.Point { return geom.Point{X: x, Y: y} }

// drawShape runs a full down/move/up gesture with the given tool.
func drawShape(e *Editor, kind scene.Kind, from, to geom.Point) {
	e.SetTool(ToolFor(kind))
	e.PointerDown(from, ButtonLeft, Modifiers{})
	e.PointerMove(to)
	e.PointerUp(to)
}

func onlyShape(t *testing.T, e *Editor) scene.Shape {
	t.Helper()
	if e.Scene().Len() != 1 {
		t.Fatalf("scene has %d shapes, want 1", e.Scene().Len())
	}
	return e.Scene().Shapes()[0]
}

func TestDrawRectangle(t *testing.T) {
	e := New(nil)
	drawShape(e, scene.KindRectangle, pt(10, 10), pt(110, 60))

	sh := onlyShape(t, e)
	if sh.Kind != scene.KindRectangle {
		t.Errorf("kind = %q", sh.Kind)
	}
	if sh.X != 10 || sh.Y != 10 || sh.Width != 100 || sh.Height != 50 {
		t.Errorf("geometry = (%v,%v) %vx%v, want (10,10) 100x50", sh.X, sh.Y, sh.Width, sh.Height)
	}
	if e.State() != "idle" {
		t.Errorf("state = %q after commit", e.State())
	}
}

func TestDrawReversedDrag(t *testing.T) {
	e := New(nil)
	drawShape(e, scene.KindRectangle, pt(110, 60), pt(10, 10))

	sh := onlyShape(t, e)
	if sh.X != 10 || sh.Y != 10 || sh.Width != 100 || sh.Height != 50 {
		t.Errorf("reversed drag geometry = (%v,%v) %vx%v", sh.X, sh.Y, sh.Width, sh.Height)
	}
}

func TestZeroExtentDragGetsMinimumSize(t *testing.T) {
	e := New(nil)
	e.SetTool(ToolFor(scene.KindRectangle))
	e.PointerDown(pt(40, 40), ButtonLeft, Modifiers{})
	e.PointerUp(pt(40, 40))

	sh := onlyShape(t, e)
	if sh.Width != scene.MinSize || sh.Height != scene.MinSize {
		t.Errorf("size = %vx%v, want %vx%v", sh.Width, sh.Height, scene.MinSize, scene.MinSize)
	}
}

func TestCircleForcedSquare(t *testing.T) {
	e := New(nil)
	drawShape(e, scene.KindCircle, pt(0, 0), pt(80, 30))

	sh := onlyShape(t, e)
	if sh.Width != sh.Height {
		t.Errorf("circle %vx%v is not square", sh.Width, sh.Height)
	}
	if sh.Width != 80 {
		t.Errorf("circle side = %v, want 80 (larger extent)", sh.Width)
	}
}

func TestDrawLineKeepsEndpoints(t *testing.T) {
	e := New(nil)
	drawShape(e, scene.KindLine, pt(100, 100), pt(20, 40))

	sh := onlyShape(t, e)
	if sh.X != 100 || sh.Y != 100 || sh.X2 != 20 || sh.Y2 != 40 {
		t.Errorf("endpoints = (%v,%v)-(%v,%v)", sh.X, sh.Y, sh.X2, sh.Y2)
	}
	if sh.Width != 0 || sh.Height != 0 {
		t.Errorf("line-like width/height = %vx%v, want 0x0", sh.Width, sh.Height)
	}
}

func TestFreehandSamplesPoints(t *testing.T) {
	e := New(nil)
	e.SetTool(ToolFor(scene.KindFreehand))
	e.PointerDown(pt(0, 0), ButtonLeft, Modifiers{})
	e.PointerMove(pt(5, 5))
	e.PointerMove(pt(10, 3))
	e.PointerUp(pt(10, 3))

	sh := onlyShape(t, e)
	if len(sh.Points) != 3 {
		t.Fatalf("sampled %d points, want 3", len(sh.Points))
	}
	if sh.Points[0] != pt(0, 0) || sh.Points[2] != pt(10, 3) {
		t.Errorf("points = %+v", sh.Points)
	}
}

func TestNewShapeTakesCurrentStyle(t *testing.T) {
	e := New(nil)
	e.SetStyle(Style{Fill: "#ffcc00", Stroke: "#000000", StrokeWidth: 4})
	drawShape(e, scene.KindEllipse, pt(0, 0), pt(50, 50))

	sh := onlyShape(t, e)
	if sh.Fill != "#ffcc00" || sh.Stroke != "#000000" || sh.StrokeWidth != 4 {
		t.Errorf("style = %q/%q/%v", sh.Fill, sh.Stroke, sh.StrokeWidth)
	}
}

func TestSelectAndDrag(t *testing.T) {
	e := New(nil)
	drawShape(e, scene.KindRectangle, pt(10, 10), pt(60, 60))
	e.SetTool(ToolSelect)

	// Grab off-center; the grab point must stay under the cursor.
	e.PointerDown(pt(20, 20), ButtonLeft, Modifiers{})
	if e.State() != "dragging" {
		t.Fatalf("state = %q, want dragging", e.State())
	}
	e.PointerMove(pt(120, 70))
	e.PointerUp(pt(120, 70))

	sh := onlyShape(t, e)
	if sh.X != 110 || sh.Y != 60 {
		t.Errorf("origin after drag = (%v,%v), want (110,60)", sh.X, sh.Y)
	}
	if e.SelectedID() != sh.ID {
		t.Errorf("selection lost after drag")
	}
}

func TestDragLineRigid(t *testing.T) {
	e := New(nil)
	drawShape(e, scene.KindLine, pt(0, 0), pt(100, 0))
	e.SetTool(ToolSelect)

	e.PointerDown(pt(50, 0), ButtonLeft, Modifiers{})
	e.PointerMove(pt(80, 40))
	e.PointerUp(pt(80, 40))

	sh := onlyShape(t, e)
	length := geom.Distance(pt(sh.X, sh.Y), pt(sh.X2, sh.Y2))
	if math.Abs(length-100) > 1e-9 {
		t.Errorf("length after drag = %v, want 100", length)
	}
	if sh.Y2 != sh.Y {
		t.Errorf("direction changed: (%v,%v)-(%v,%v)", sh.X, sh.Y, sh.X2, sh.Y2)
	}
}

func TestClickEmptyClearsSelection(t *testing.T) {
	e := New(nil)
	drawShape(e, scene.KindRectangle, pt(10, 10), pt(60, 60))
	e.SetTool(ToolSelect)

	e.PointerDown(pt(30, 30), ButtonLeft, Modifiers{})
	e.PointerUp(pt(30, 30))
	if e.SelectedID() == "" {
		t.Fatal("click on shape did not select")
	}

	e.PointerDown(pt(500, 500), ButtonLeft, Modifiers{})
	e.PointerUp(pt(500, 500))
	if e.SelectedID() != "" {
		t.Errorf("selection = %q after clicking empty space", e.SelectedID())
	}
}

func TestDeleteSelected(t *testing.T) {
	e := New(nil)
	drawShape(e, scene.KindRectangle, pt(10, 10), pt(110, 60))
	e.SetTool(ToolSelect)
	e.PointerDown(pt(50, 30), ButtonLeft, Modifiers{})
	e.PointerUp(pt(50, 30))

	e.KeyDown(KeyDelete)
	if e.Scene().Len() != 0 {
		t.Errorf("scene has %d shapes after delete", e.Scene().Len())
	}
	if e.SelectedID() != "" {
		t.Errorf("selection = %q after delete", e.SelectedID())
	}

	// Delete with nothing selected is a no-op.
	e.KeyDown(KeyBackspace)
}

func TestEscapeResetsToolAndSelection(t *testing.T) {
	e := New(nil)
	drawShape(e, scene.KindDiamond, pt(0, 0), pt(50, 50))
	e.SetTool(ToolSelect)
	e.PointerDown(pt(25, 25), ButtonLeft, Modifiers{})
	e.PointerUp(pt(25, 25))

	e.SetTool(ToolFor(scene.KindTriangle))
	e.KeyDown(KeyEscape)

	if e.Tool() != ToolSelect {
		t.Errorf("tool = %q after escape", e.Tool())
	}
	if e.SelectedID() != "" {
		t.Errorf("selection = %q after escape", e.SelectedID())
	}
}

func TestPanWithMiddleButton(t *testing.T) {
	e := New(nil)
	e.PointerDown(pt(100, 100), ButtonMiddle, Modifiers{})
	if e.State() != "panning" {
		t.Fatalf("state = %q", e.State())
	}
	e.PointerMove(pt(130, 80))
	e.PointerUp(pt(130, 80))

	off := e.Viewport().Offset()
	if off.X != 30 || off.Y != -20 {
		t.Errorf("offset = %+v, want (30,-20)", off)
	}
}

func TestPanWithModifier(t *testing.T) {
	e := New(nil)
	e.PointerDown(pt(0, 0), ButtonLeft, Modifiers{Pan: true})
	if e.State() != "panning" {
		t.Fatalf("state = %q", e.State())
	}
	e.PointerMove(pt(10, 10))
	e.PointerLeave()
	if e.State() != "idle" {
		t.Errorf("state = %q after leave", e.State())
	}
}

func TestDrawingUnderZoomUsesWorldCoordinates(t *testing.T) {
	e := New(nil)
	e.ZoomIn() // scale 1.2

	e.SetTool(ToolFor(scene.KindRectangle))
	e.PointerDown(pt(12, 12), ButtonLeft, Modifiers{})
	e.PointerMove(pt(132, 72))
	e.PointerUp(pt(132, 72))

	sh := onlyShape(t, e)
	if math.Abs(sh.X-10) > 1e-9 || math.Abs(sh.Width-100) > 1e-9 {
		t.Errorf("world geometry under zoom = (%v,%v) %vx%v", sh.X, sh.Y, sh.Width, sh.Height)
	}
}

func TestTextShapeOpensEditor(t *testing.T) {
	e := New(nil)
	drawShape(e, scene.KindText, pt(10, 10), pt(90, 40))

	if e.State() != "editingText" {
		t.Fatalf("state = %q after text commit", e.State())
	}
	e.SetTextBuffer("  hello world  ")
	e.KeyDown(KeyEnter)

	sh := onlyShape(t, e)
	if sh.Text != "hello world" {
		t.Errorf("text = %q, want trimmed", sh.Text)
	}
	if e.State() != "idle" {
		t.Errorf("state = %q after enter", e.State())
	}
}

func TestDoubleClickEditsLabel(t *testing.T) {
	e := New(nil)
	drawShape(e, scene.KindRectangle, pt(10, 10), pt(110, 60))
	e.Scene().Update(e.Scene().Shapes()[0].ID, func(s *scene.Shape) { s.Text = "old" })
	e.SetTool(ToolSelect)

	e.DoubleClick(pt(50, 30))
	if e.State() != "editingText" {
		t.Fatalf("state = %q after double click", e.State())
	}
	if e.TextBuffer() != "old" {
		t.Errorf("buffer seeded with %q, want old", e.TextBuffer())
	}

	e.SetTextBuffer("new")
	e.Blur()
	sh := onlyShape(t, e)
	if sh.Text != "new" {
		t.Errorf("text = %q after blur commit", sh.Text)
	}
}

func TestDoubleClickOnLineIsNoOp(t *testing.T) {
	e := New(nil)
	drawShape(e, scene.KindLine, pt(0, 0), pt(100, 0))
	e.SetTool(ToolSelect)

	e.DoubleClick(pt(50, 0))
	if e.State() != "idle" {
		t.Errorf("state = %q, line has no text slot", e.State())
	}
}

func TestEscapeCancelsTextEdit(t *testing.T) {
	e := New(nil)
	drawShape(e, scene.KindRectangle, pt(10, 10), pt(110, 60))
	e.SetTool(ToolSelect)
	e.DoubleClick(pt(50, 30))
	e.SetTextBuffer("discard me")
	e.KeyDown(KeyEscape)

	sh := onlyShape(t, e)
	if sh.Text != "" {
		t.Errorf("text = %q after cancel", sh.Text)
	}
}

func TestEmptyTextEditDiscarded(t *testing.T) {
	e := New(nil)
	drawShape(e, scene.KindRectangle, pt(10, 10), pt(110, 60))
	e.SetTool(ToolSelect)
	e.DoubleClick(pt(50, 30))
	e.SetTextBuffer("   ")
	e.KeyDown(KeyEnter)

	sh := onlyShape(t, e)
	if sh.Text != "" {
		t.Errorf("whitespace-only edit stored %q", sh.Text)
	}
}

func TestDuplicateSelected(t *testing.T) {
	e := New(nil)
	drawShape(e, scene.KindRectangle, pt(10, 10), pt(60, 60))
	e.SetTool(ToolSelect)
	e.PointerDown(pt(30, 30), ButtonLeft, Modifiers{})
	e.PointerUp(pt(30, 30))
	srcID := e.SelectedID()

	newID := e.DuplicateSelected()
	if newID == "" || newID == srcID {
		t.Fatalf("duplicate id = %q", newID)
	}
	if e.SelectedID() != newID {
		t.Errorf("selection = %q, want the copy", e.SelectedID())
	}

	dup, _ := e.Scene().Get(newID)
	if dup.X != 30 || dup.Y != 30 {
		t.Errorf("copy at (%v,%v), want (30,30)", dup.X, dup.Y)
	}

	// Nothing selected: no-op.
	e.KeyDown(KeyEscape)
	if got := e.DuplicateSelected(); got != "" {
		t.Errorf("DuplicateSelected with no selection = %q", got)
	}
}

func TestSetStyleRetroactive(t *testing.T) {
	e := New(nil)
	drawShape(e, scene.KindRectangle, pt(10, 10), pt(60, 60))
	e.SetTool(ToolSelect)
	e.PointerDown(pt(30, 30), ButtonLeft, Modifiers{})
	e.PointerUp(pt(30, 30))

	e.SetStyle(Style{Fill: "#00ff00", Stroke: "#333333", StrokeWidth: 6})
	sh := onlyShape(t, e)
	if sh.Fill != "#00ff00" || sh.StrokeWidth != 6 {
		t.Errorf("style not applied to selection: %q/%v", sh.Fill, sh.StrokeWidth)
	}
}

func TestWheelZoom(t *testing.T) {
	e := New(nil)
	e.Wheel(100) // wheel down, zoom out
	e.Wheel(100)
	e.Wheel(100)

	want := 0.9 * 0.9 * 0.9
	if math.Abs(e.Viewport().Scale()-want) > 1e-9 {
		t.Errorf("scale = %v, want %v", e.Viewport().Scale(), want)
	}

	e.Wheel(0) // zero delta is a no-op
	if math.Abs(e.Viewport().Scale()-want) > 1e-9 {
		t.Errorf("zero delta changed scale to %v", e.Viewport().Scale())
	}

	e.Wheel(-100)
	if math.Abs(e.Viewport().Scale()-want*1.1) > 1e-9 {
		t.Errorf("scale after wheel up = %v", e.Viewport().Scale())
	}
}

func TestSaveHookCalledOnCommit(t *testing.T) {
	var saves int
	e := New(func(sc *scene.Scene) error {
		saves++
		return nil
	})

	drawShape(e, scene.KindRectangle, pt(10, 10), pt(60, 60))
	if saves != 1 {
		t.Fatalf("saves = %d after draw commit, want 1", saves)
	}

	e.SetTool(ToolSelect)
	e.PointerDown(pt(30, 30), ButtonLeft, Modifiers{})
	e.PointerMove(pt(40, 40)) // drag moves must not save per-move
	e.PointerMove(pt(50, 50))
	if saves != 1 {
		t.Errorf("saves = %d mid-drag, want 1", saves)
	}
	e.PointerUp(pt(50, 50))
	if saves != 2 {
		t.Errorf("saves = %d after drag end, want 2", saves)
	}

	e.KeyDown(KeyDelete)
	if saves != 3 {
		t.Errorf("saves = %d after delete, want 3", saves)
	}
}

func TestSaveErrorSwallowed(t *testing.T) {
	e := New(func(sc *scene.Scene) error {
		return errors.New("disk full")
	})
	drawShape(e, scene.KindRectangle, pt(10, 10), pt(60, 60))

	// The shape still commits despite the save failure.
	if e.Scene().Len() != 1 {
		t.Errorf("scene has %d shapes, want 1", e.Scene().Len())
	}
}

func TestSaveReceivesClone(t *testing.T) {
	var saved *scene.Scene
	e := New(func(sc *scene.Scene) error {
		saved = sc
		return nil
	})
	drawShape(e, scene.KindRectangle, pt(10, 10), pt(60, 60))

	if saved == e.Scene() {
		t.Error("save hook received the live scene, want a clone")
	}
	if saved.Len() != 1 {
		t.Errorf("clone has %d shapes", saved.Len())
	}
}

func TestLoadSceneResetsSession(t *testing.T) {
	e := New(nil)
	drawShape(e, scene.KindRectangle, pt(10, 10), pt(60, 60))
	e.SetTool(ToolSelect)
	e.PointerDown(pt(30, 30), ButtonLeft, Modifiers{})
	e.PointerUp(pt(30, 30))

	sc := scene.New()
	sc.Add(scene.Shape{ID: "shape_only", Kind: scene.KindEllipse, X: 0, Y: 0, Width: 20, Height: 20})
	e.LoadScene(sc)

	if e.Scene().Len() != 1 {
		t.Errorf("scene len = %d after load", e.Scene().Len())
	}
	if e.SelectedID() != "" || e.State() != "idle" || e.Tool() != ToolSelect {
		t.Errorf("session not reset: sel=%q state=%q tool=%q", e.SelectedID(), e.State(), e.Tool())
	}

	e.LoadScene(nil)
	if e.Scene().Len() != 0 {
		t.Errorf("LoadScene(nil) left %d shapes", e.Scene().Len())
	}
}
