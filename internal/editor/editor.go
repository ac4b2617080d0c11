package editor

import (
	"log/slog"
	"math"
	"strings"

	"github.com/doodlekit/doodlekit/backend-go/internal/geom"
	"github.com/doodlekit/doodlekit/backend-go/internal/scene"
	"github.com/doodlekit/doodlekit/backend-go/internal/typeid"
)

// SaveFunc persists a committed scene. Failures are logged and swallowed;
// a failed write never surfaces as a user-facing error from the editor.
type SaveFunc func(*scene.Scene) error

// Style holds the current fill/stroke values applied to new shapes and,
// when a shape is selected, retroactively to that shape.
type Style struct {
	Fill        string  `json:"fill"`
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"strokeWidth"`
}

// DefaultStyle is used until the frontend pushes style values.
var DefaultStyle = Style{Fill: "none", Stroke: "#1a1a2e", StrokeWidth: 2}

type sessionState int

const (
	stateIdle sessionState = iota
	statePanning
	stateDragging
	stateDrawing
	stateEditingText
)

func (s sessionState) String() string {
	switch s {
	case statePanning:
		return "panning"
	case stateDragging:
		return "dragging"
	case stateDrawing:
		return "drawing"
	case stateEditingText:
		return "editingText"
	default:
		return "idle"
	}
}

// Editor is the interaction state machine for one editing session. It owns
// the scene and the viewport and consumes pointer/keyboard events already
// split out by the transport (websocket or wasm bridge).
//
// All transitions run synchronously on the caller's event loop; mutations
// are applied atomically per event so renderer reads stay consistent.
type Editor struct {
	scene    *scene.Scene
	viewport *Viewport
	save     SaveFunc

	tool  Tool
	style Style

	state      sessionState
	selectedID string

	// Dragging
	grabOffset geom.Point

	// Drawing
	anchor geom.Point
	live   *scene.Shape

	// Text editing
	editingID  string
	textBuffer string

	// Panning: offset and device position captured at gesture start
	panStartOffset geom.Point
	panStartDevice geom.Point
}

// New creates an editor with an empty scene. The save hook may be nil.
func New(save SaveFunc) *Editor {
	return &Editor{
		scene:    scene.New(),
		viewport: NewViewport(),
		save:     save,
		tool:     ToolSelect,
		style:    DefaultStyle,
	}
}

// LoadScene replaces the scene, typically with one restored from the
// persistence adapter at startup. Resets the transient session state.
func (e *Editor) LoadScene(sc *scene.Scene) {
	if sc == nil {
		sc = scene.New()
	}
	e.scene = sc
	e.resetSession()
	e.tool = ToolSelect
}

func (e *Editor) Scene() *scene.Scene     { return e.scene }
func (e *Editor) Viewport() *Viewport     { return e.viewport }
func (e *Editor) Tool() Tool              { return e.tool }
func (e *Editor) Style() Style            { return e.style }
func (e *Editor) SelectedID() string      { return e.selectedID }
func (e *Editor) State() string           { return e.state.String() }
func (e *Editor) TextBuffer() string      { return e.textBuffer }
func (e *Editor) LiveShape() *scene.Shape { return e.live }
func (e *Editor) EditingShapeID() string  { return e.editingID }

// SetTool switches the active tool. The in-progress session (live shape,
// text edit, selection) is reset.
func (e *Editor) SetTool(t Tool) {
	e.resetSession()
	e.tool = t
}

// SetStyle updates the current style and applies it retroactively to the
// selected shape, if any.
func (e *Editor) SetStyle(st Style) {
	e.style = st
	if e.selectedID == "" {
		return
	}
	if e.scene.Update(e.selectedID, func(s *scene.Shape) {
		s.Fill = st.Fill
		s.Stroke = st.Stroke
		s.StrokeWidth = st.StrokeWidth
	}) {
		e.persist()
	}
}

// PointerDown handles a pointer press in device coordinates. The middle
// button, or the left button with the pan modifier, starts a pan from any
// state; otherwise behaviour depends on the active tool.
func (e *Editor) PointerDown(device geom.Point, button Button, mods Modifiers) {
	// A press anywhere blurs an active text edit.
	if e.state == stateEditingText {
		e.commitTextEdit()
	}

	if button == ButtonMiddle || (button == ButtonLeft && mods.Pan) {
		e.panStartOffset = e.viewport.Offset()
		e.panStartDevice = device
		e.state = statePanning
		return
	}

	if button != ButtonLeft || e.state != stateIdle {
		return
	}

	world := e.viewport.ScreenToWorld(device)

	if kind, ok := e.tool.Kind(); ok {
		if kind == scene.KindFreehand {
			// Freehand starts sampling immediately.
			e.live = &scene.Shape{
				ID:          typeid.NewShapeID(),
				Kind:        scene.KindFreehand,
				X:           world.X,
				Y:           world.Y,
				Fill:        e.style.Fill,
				Stroke:      e.style.Stroke,
				StrokeWidth: e.style.StrokeWidth,
				Points:      []geom.Point{world},
			}
		} else {
			e.live = nil
		}
		e.anchor = world
		e.state = stateDrawing
		return
	}

	// Select tool: hit-test, topmost wins.
	if id, ok := e.scene.FindShapeAt(world); ok {
		e.selectedID = id
		if sh, ok := e.scene.Get(id); ok {
			e.grabOffset = geom.Point{X: world.X - sh.X, Y: world.Y - sh.Y}
		}
		e.state = stateDragging
		return
	}
	e.selectedID = ""
}

// PointerMove handles pointer motion in device coordinates.
func (e *Editor) PointerMove(device geom.Point) {
	switch e.state {
	case statePanning:
		e.viewport.SetOffset(geom.Point{
			X: e.panStartOffset.X + device.X - e.panStartDevice.X,
			Y: e.panStartOffset.Y + device.Y - e.panStartDevice.Y,
		})

	case stateDragging:
		world := e.viewport.ScreenToWorld(device)
		target := world.Sub(e.grabOffset)
		// Missing id (deleted mid-drag) is a no-op.
		e.scene.Update(e.selectedID, func(s *scene.Shape) {
			s.TranslateBy(target.X-s.X, target.Y-s.Y)
		})

	case stateDrawing:
		world := e.viewport.ScreenToWorld(device)
		kind, ok := e.tool.Kind()
		if !ok {
			return
		}
		if kind == scene.KindFreehand {
			if e.live != nil {
				e.live.Points = append(e.live.Points, world)
			}
			return
		}
		sh := e.constructShape(kind, e.anchor, world)
		if e.live != nil {
			sh.ID = e.live.ID
		}
		e.live = &sh
	}
}

// PointerUp ends the active gesture.
func (e *Editor) PointerUp(device geom.Point) {
	switch e.state {
	case statePanning, stateDragging:
		if e.state == stateDragging {
			e.persist()
		}
		e.state = stateIdle

	case stateDrawing:
		e.commitLiveShape(device)
	}
}

// PointerLeave cancels pan/drag gestures when the pointer leaves the
// canvas. An in-flight drawing keeps going; the original tool behaves the
// same way.
func (e *Editor) PointerLeave() {
	if e.state == statePanning || e.state == stateDragging {
		if e.state == stateDragging {
			e.persist()
		}
		e.state = stateIdle
	}
}

// DoubleClick opens the text editor for box shapes under the select tool.
// Line-like and freehand shapes have no text slot.
func (e *Editor) DoubleClick(device geom.Point) {
	if e.state != stateIdle || e.tool != ToolSelect {
		return
	}

	world := e.viewport.ScreenToWorld(device)
	id, ok := e.scene.FindShapeAt(world)
	if !ok {
		return
	}
	sh, ok := e.scene.Get(id)
	if !ok || !sh.HasTextSlot() {
		return
	}

	e.selectedID = id
	e.editingID = id
	e.textBuffer = sh.Text
	e.state = stateEditingText
}

// KeyDown handles global key events. Delete/Backspace remove the selection
// when no text edit is active; Escape clears selection, resets the tool to
// select and cancels any in-progress gesture or edit.
func (e *Editor) KeyDown(key string) {
	if e.state == stateEditingText {
		switch key {
		case KeyEnter:
			e.commitTextEdit()
		case KeyEscape:
			e.cancelTextEdit()
		}
		return
	}

	switch key {
	case KeyEscape:
		e.resetSession()
		e.tool = ToolSelect

	case KeyDelete, KeyBackspace:
		if e.selectedID == "" {
			return
		}
		if e.scene.Remove(e.selectedID) {
			e.persist()
		}
		e.selectedID = ""
	}
}

// SetTextBuffer replaces the uncommitted text edit buffer.
func (e *Editor) SetTextBuffer(s string) {
	if e.state == stateEditingText {
		e.textBuffer = s
	}
}

// Blur commits an active text edit, mirroring the focus-loss behaviour of
// the frontend text input.
func (e *Editor) Blur() {
	if e.state == stateEditingText {
		e.commitTextEdit()
	}
}

// DuplicateSelected copies the selected shape with a fixed (20,20) offset
// and a fresh id, selects the copy, and returns its id.
func (e *Editor) DuplicateSelected() string {
	if e.selectedID == "" {
		return ""
	}
	newID, ok := e.scene.Duplicate(e.selectedID)
	if !ok {
		return ""
	}
	e.selectedID = newID
	e.persist()
	return newID
}

// Wheel applies one zoom tick: wheel-down (positive delta) zooms out by
// 0.9, wheel-up zooms in by 1.1.
func (e *Editor) Wheel(deltaY float64) {
	if deltaY > 0 {
		e.viewport.ZoomBy(WheelZoomOut)
	} else if deltaY < 0 {
		e.viewport.ZoomBy(WheelZoomIn)
	}
}

// ZoomIn applies the fixed zoom-in button step.
func (e *Editor) ZoomIn() { e.viewport.ZoomBy(ButtonZoom) }

// ZoomOut applies the fixed zoom-out button step.
func (e *Editor) ZoomOut() { e.viewport.ZoomBy(1 / ButtonZoom) }

// constructShape applies the shape-construction rule for non-freehand
// kinds: origin is the componentwise min of anchor and current, size is the
// componentwise extent floored at MinSize, and circles force a square.
// Line-like kinds keep the raw endpoints and leave width/height at 0.
func (e *Editor) constructShape(kind scene.Kind, anchor, current geom.Point) scene.Shape {
	sh := scene.Shape{
		ID:          typeid.NewShapeID(),
		Kind:        kind,
		Fill:        e.style.Fill,
		Stroke:      e.style.Stroke,
		StrokeWidth: e.style.StrokeWidth,
	}

	if kind == scene.KindLine || kind == scene.KindArrowLine {
		sh.X = anchor.X
		sh.Y = anchor.Y
		sh.X2 = current.X
		sh.Y2 = current.Y
		return sh
	}

	sh.X = math.Min(anchor.X, current.X)
	sh.Y = math.Min(anchor.Y, current.Y)
	sh.Width = math.Max(math.Abs(current.X-anchor.X), scene.MinSize)
	sh.Height = math.Max(math.Abs(current.Y-anchor.Y), scene.MinSize)

	if kind == scene.KindCircle {
		side := math.Max(sh.Width, sh.Height)
		sh.Width = side
		sh.Height = side
	}

	return sh
}

// commitLiveShape appends the in-progress shape to the scene. A zero-extent
// drag on a non-freehand tool still creates a shape thanks to the minimum
// size floor. A committed text shape goes straight into text editing.
func (e *Editor) commitLiveShape(device geom.Point) {
	kind, ok := e.tool.Kind()
	if !ok {
		e.state = stateIdle
		return
	}

	sh := e.live
	if sh == nil {
		if kind == scene.KindFreehand {
			e.state = stateIdle
			return
		}
		world := e.viewport.ScreenToWorld(device)
		built := e.constructShape(kind, e.anchor, world)
		sh = &built
	}

	e.scene.Add(*sh)
	e.live = nil
	e.persist()

	if kind == scene.KindText {
		e.selectedID = sh.ID
		e.editingID = sh.ID
		e.textBuffer = ""
		e.state = stateEditingText
		return
	}
	e.state = stateIdle
}

// commitTextEdit stores the trimmed buffer as the shape's text if non-empty,
// otherwise the edit is discarded.
func (e *Editor) commitTextEdit() {
	text := strings.TrimSpace(e.textBuffer)
	if text != "" {
		if e.scene.Update(e.editingID, func(s *scene.Shape) {
			s.Text = text
		}) {
			e.persist()
		}
	}
	e.editingID = ""
	e.textBuffer = ""
	e.state = stateIdle
}

func (e *Editor) cancelTextEdit() {
	e.editingID = ""
	e.textBuffer = ""
	e.state = stateIdle
}

// resetSession discards all transient interaction state.
func (e *Editor) resetSession() {
	e.state = stateIdle
	e.selectedID = ""
	e.editingID = ""
	e.textBuffer = ""
	e.live = nil
}

// persist saves the whole scene through the injected hook, at most once per
// committed mutation. Best effort: failures are logged and swallowed so the
// interaction loop is never blocked by storage.
func (e *Editor) persist() {
	if e.save == nil {
		return
	}
	if err := e.save(e.scene.Clone()); err != nil {
		slog.Warn("save scene", "error", err)
	}
}
