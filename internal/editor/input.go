package editor

import "github.com/doodlekit/doodlekit/backend-go/internal/scene"

// Tool selects what pointer gestures mean: selection/dragging, drawing a
// particular shape kind, or freehand sketching.
type Tool string

const ToolSelect Tool = "select"

// ToolFor returns the drawing tool for a shape kind.
func ToolFor(kind scene.Kind) Tool {
	return Tool(kind)
}

// Kind returns the shape kind a drawing tool produces, or false for the
// select tool.
func (t Tool) Kind() (scene.Kind, bool) {
	if t == ToolSelect || t == "" {
		return "", false
	}
	return scene.Kind(t), true
}

// Button identifies which pointer button initiated a gesture.
type Button int

const (
	ButtonLeft Button = iota
	ButtonMiddle
	ButtonRight
)

// Modifiers are the keyboard modifiers held during a pointer event. Only
// the pan modifier (space/ctrl on the frontend) is meaningful here.
type Modifiers struct {
	Pan bool `json:"pan"`
}

// Key names follow the DOM KeyboardEvent.key convention since events arrive
// from a browser.
const (
	KeyDelete    = "Delete"
	KeyBackspace = "Backspace"
	KeyEscape    = "Escape"
	KeyEnter     = "Enter"
)
