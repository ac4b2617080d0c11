package render

import (
	"encoding/json"

	"github.com/doodlekit/doodlekit/backend-go/internal/geom"
	"github.com/doodlekit/doodlekit/backend-go/internal/scene"
)

// SelectionMargin is how far the dashed selection outline sits outside the
// selected shape's bounds, in world units.
const SelectionMargin = 4.0

// SelectionStroke is the highlight colour of the selection outline.
const SelectionStroke = "#4f8ef7"

// PathCommand represents a single path segment for rendering.
// Format matches Canvas2D: ["M", x, y], ["L", x, y], ["Q", cx, cy, x, y],
// ["C", x1, y1, x2, y2, x, y], ["Z"].
type PathCommand []interface{}

// Command is a single drawing operation for the frontend to execute on a
// Canvas2D context. Paths are in world coordinates; the frame-level
// viewport transform is applied once for the whole scene.
type Command struct {
	Op          string        `json:"op"` // "path" or "text"
	ShapeID     string        `json:"shapeId,omitempty"`
	Path        []PathCommand `json:"path,omitempty"`
	Fill        string        `json:"fill,omitempty"`
	Stroke      string        `json:"stroke,omitempty"`
	StrokeWidth float64       `json:"strokeWidth,omitempty"`
	Dash        []float64     `json:"dash,omitempty"`
	Text        string        `json:"text,omitempty"`
	X           float64       `json:"x,omitempty"`
	Y           float64       `json:"y,omitempty"`
}

// Frame is one rendered view of the scene: the composed viewport transform
// plus the command buffer in painter's order (back to front).
type Frame struct {
	Transform []float64 `json:"transform"`
	Commands  []Command `json:"commands"`
}

// Compile generates the draw-command frame for a scene. The live
// (uncommitted) shape renders on top of the committed shapes, and the
// selection outline renders last. Line-like and freehand shapes get no
// bounding decoration.
func Compile(sc *scene.Scene, live *scene.Shape, selectedID string, viewport geom.Matrix2D) Frame {
	frame := Frame{Transform: viewport.ToSlice()}

	shapes := sc.Shapes()
	for i := range shapes {
		frame.Commands = append(frame.Commands, compileShape(&shapes[i])...)
	}
	if live != nil {
		frame.Commands = append(frame.Commands, compileShape(live)...)
	}

	if selectedID != "" {
		if sh, ok := sc.Get(selectedID); ok && !sh.IsLineLike() && sh.Kind != scene.KindFreehand {
			frame.Commands = append(frame.Commands, selectionOutline(&sh))
		}
	}

	return frame
}

// compileShape emits the command(s) for one shape: its geometric primitive,
// the arrow-head barbs for arrowLine, and a centred label when the shape
// carries text.
func compileShape(sh *scene.Shape) []Command {
	var out []Command

	path := ShapePath(sh)
	if len(path) > 0 {
		out = append(out, Command{
			Op:          "path",
			ShapeID:     sh.ID,
			Path:        path,
			Fill:        fillOf(sh),
			Stroke:      sh.Stroke,
			StrokeWidth: sh.StrokeWidth,
		})
	}

	if sh.Kind == scene.KindArrowLine {
		// Barbs are filled with the stroke colour.
		out = append(out, Command{
			Op:      "path",
			ShapeID: sh.ID,
			Path:    ArrowHeadPath(geom.Point{X: sh.X, Y: sh.Y}, geom.Point{X: sh.X2, Y: sh.Y2}),
			Fill:    sh.Stroke,
		})
	}

	if sh.Text != "" && sh.HasTextSlot() {
		cx, cy := sh.Bounds().Center()
		out = append(out, Command{
			Op:      "text",
			ShapeID: sh.ID,
			Text:    sh.Text,
			X:       cx,
			Y:       cy,
			Fill:    sh.Stroke,
		})
	}

	return out
}

func selectionOutline(sh *scene.Shape) Command {
	r := sh.Bounds().Inflate(SelectionMargin)
	return Command{
		Op:          "path",
		Path:        rectPath(r.X, r.Y, r.Width, r.Height),
		Stroke:      SelectionStroke,
		StrokeWidth: 1,
		Dash:        []float64{4, 4},
	}
}

// fillOf normalizes the nullable fill: "" and "none" both mean unfilled and
// are dropped from the command.
func fillOf(sh *scene.Shape) string {
	if sh.Fill == "none" {
		return ""
	}
	return sh.Fill
}

// ToJSON serializes a frame for the transport layer.
func (f Frame) ToJSON() (string, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return "{}", err
	}
	return string(data), nil
}
