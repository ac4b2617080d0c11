package session

import (
	"encoding/json"

	"github.com/doodlekit/doodlekit/backend-go/internal/editor"
)

// Message is the websocket envelope in both directions.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound message types: raw input events in device space, plus tool/style
// state pushed by the UI.
const (
	TypePointerDown     = "pointer.down"
	TypePointerMove     = "pointer.move"
	TypePointerUp       = "pointer.up"
	TypePointerLeave    = "pointer.leave"
	TypeDoubleClick     = "pointer.dblclick"
	TypeKeyDown         = "key.down"
	TypeWheel           = "wheel"
	TypeZoomIn          = "zoom.in"
	TypeZoomOut         = "zoom.out"
	TypeSetTool         = "tool.set"
	TypeSetStyle        = "style.set"
	TypeSetText         = "text.set"
	TypeTextBlur        = "text.blur"
	TypeDuplicate       = "shape.duplicate"
	TypeRequestExport   = "export.request"
)

// Outbound message types.
const (
	TypeWelcome   = "welcome"
	TypeFrame     = "frame"
	TypeSceneSync = "scene.sync"
	TypeExport    = "export.ready"
	TypeError     = "error"
)

// PointerPayload carries a pointer event in device coordinates.
type PointerPayload struct {
	X      float64          `json:"x"`
	Y      float64          `json:"y"`
	Button int              `json:"button"`
	Mods   editor.Modifiers `json:"mods"`
}

type KeyPayload struct {
	Key string `json:"key"`
}

type WheelPayload struct {
	DeltaY float64 `json:"deltaY"`
}

type ToolPayload struct {
	Tool string `json:"tool"`
}

type TextPayload struct {
	Text string `json:"text"`
}

// WelcomePayload announces the session id and the editor's initial state.
type WelcomePayload struct {
	SessionID string `json:"sessionId"`
	BoardID   string `json:"boardId"`
}

// ExportPayload carries the base64-encoded PNG produced by an export
// request. Empty scenes produce no export; Empty is set instead.
type ExportPayload struct {
	PNG   string `json:"png,omitempty"`
	Name  string `json:"name,omitempty"`
	Empty bool   `json:"empty,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
