package session

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/doodlekit/doodlekit/backend-go/internal/editor"
	"github.com/doodlekit/doodlekit/backend-go/internal/export"
	"github.com/doodlekit/doodlekit/backend-go/internal/geom"
	"github.com/doodlekit/doodlekit/backend-go/internal/render"
	"github.com/doodlekit/doodlekit/backend-go/internal/scene"
	"github.com/doodlekit/doodlekit/backend-go/internal/typeid"
)

// SceneLoader fetches the saved scene for a board slot; a slot that was
// never written returns (nil, nil) and the session starts empty.
type SceneLoader func(boardID string) (*scene.Scene, error)

// SceneSaver persists the scene for a board slot. Called synchronously on
// each committed mutation; the editor logs and swallows failures.
type SceneSaver func(boardID string, sc *scene.Scene) error

// Session is one live editing session: a single editor driven by a single
// websocket client. Multi-user rooms are out of scope; one session never
// has more than one client.
type Session struct {
	ID      string
	BoardID string
	UserID  string
	editor  *editor.Editor
	client  *Client
}

// Hub tracks live sessions and routes websocket traffic to their editors.
type Hub struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	loader   SceneLoader
	saver    SceneSaver
	exporter *export.Exporter
}

func NewHub(loader SceneLoader, saver SceneSaver, exporter *export.Exporter) *Hub {
	return &Hub{
		sessions:   make(map[string]*Session),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		loader:     loader,
		saver:      saver,
		exporter:   exporter,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.attachClient(client)
		case client := <-h.unregister:
			h.detachClient(client)
		case <-h.done:
			return
		}
	}
}

// Register hands a connected client to the hub loop.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Stop flushes every live session's scene and stops the hub loop.
func (h *Hub) Stop() {
	h.mu.Lock()
	for _, sess := range h.sessions {
		if err := h.saver(sess.BoardID, sess.editor.Scene().Clone()); err != nil {
			slog.Error("flush session", "session", sess.ID, "error", err)
		}
	}
	h.mu.Unlock()
	close(h.done)
}

// StartSession loads the board's scene and creates an editor session for
// it. The returned session id is what the websocket client registers with.
func (h *Hub) StartSession(boardID, userID string) (*Session, error) {
	sc, err := h.loader(boardID)
	if err != nil {
		return nil, err
	}

	ed := editor.New(func(s *scene.Scene) error {
		return h.saver(boardID, s)
	})
	if sc != nil {
		ed.LoadScene(sc)
	}

	sess := &Session{
		ID:      typeid.NewSessionID(),
		BoardID: boardID,
		UserID:  userID,
		editor:  ed,
	}

	h.mu.Lock()
	h.sessions[sess.ID] = sess
	h.mu.Unlock()

	return sess, nil
}

func (h *Hub) attachClient(client *Client) {
	h.mu.Lock()
	sess, ok := h.sessions[client.SessionID]
	if !ok {
		h.mu.Unlock()
		slog.Warn("client for unknown session", "session", client.SessionID)
		return
	}
	sess.client = client
	h.mu.Unlock()

	welcome, _ := json.Marshal(WelcomePayload{SessionID: sess.ID, BoardID: sess.BoardID})
	client.Send(&Message{Type: TypeWelcome, Payload: welcome})
	h.sendSceneSync(sess)
	h.sendFrame(sess)

	slog.Info("session attached", "session", sess.ID, "board", sess.BoardID, "user", sess.UserID)
}

func (h *Hub) detachClient(client *Client) {
	h.mu.Lock()
	sess, ok := h.sessions[client.SessionID]
	if ok && sess.client == client {
		delete(h.sessions, client.SessionID)
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	// Final flush so a crash of the frontend cannot lose the last gesture.
	if err := h.saver(sess.BoardID, sess.editor.Scene().Clone()); err != nil {
		slog.Warn("flush on detach", "session", sess.ID, "error", err)
	}

	slog.Info("session closed", "session", sess.ID, "board", sess.BoardID)
}

// handleMessage runs on the client's read pump, so each editor sees events
// strictly in order with no concurrency. After every event the session gets
// a fresh frame.
func (h *Hub) handleMessage(client *Client, msg *Message) {
	h.mu.RLock()
	sess, ok := h.sessions[client.SessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	ed := sess.editor

	switch msg.Type {
	case TypePointerDown:
		var p PointerPayload
		if !decode(msg.Payload, &p, sess.ID) {
			return
		}
		ed.PointerDown(geom.Point{X: p.X, Y: p.Y}, editor.Button(p.Button), p.Mods)

	case TypePointerMove:
		var p PointerPayload
		if !decode(msg.Payload, &p, sess.ID) {
			return
		}
		ed.PointerMove(geom.Point{X: p.X, Y: p.Y})

	case TypePointerUp:
		var p PointerPayload
		if !decode(msg.Payload, &p, sess.ID) {
			return
		}
		ed.PointerUp(geom.Point{X: p.X, Y: p.Y})

	case TypePointerLeave:
		ed.PointerLeave()

	case TypeDoubleClick:
		var p PointerPayload
		if !decode(msg.Payload, &p, sess.ID) {
			return
		}
		ed.DoubleClick(geom.Point{X: p.X, Y: p.Y})

	case TypeKeyDown:
		var p KeyPayload
		if !decode(msg.Payload, &p, sess.ID) {
			return
		}
		ed.KeyDown(p.Key)

	case TypeWheel:
		var p WheelPayload
		if !decode(msg.Payload, &p, sess.ID) {
			return
		}
		ed.Wheel(p.DeltaY)

	case TypeZoomIn:
		ed.ZoomIn()

	case TypeZoomOut:
		ed.ZoomOut()

	case TypeSetTool:
		var p ToolPayload
		if !decode(msg.Payload, &p, sess.ID) {
			return
		}
		ed.SetTool(editor.Tool(p.Tool))

	case TypeSetStyle:
		var st editor.Style
		if !decode(msg.Payload, &st, sess.ID) {
			return
		}
		ed.SetStyle(st)

	case TypeSetText:
		var p TextPayload
		if !decode(msg.Payload, &p, sess.ID) {
			return
		}
		ed.SetTextBuffer(p.Text)

	case TypeTextBlur:
		ed.Blur()

	case TypeDuplicate:
		ed.DuplicateSelected()

	case TypeRequestExport:
		h.handleExport(sess)
		return

	default:
		slog.Warn("unknown message type", "type", msg.Type, "session", sess.ID)
		return
	}

	h.sendFrame(sess)
}

func (h *Hub) sendFrame(sess *Session) {
	if sess.client == nil {
		return
	}
	ed := sess.editor
	frame := render.Compile(ed.Scene(), ed.LiveShape(), ed.SelectedID(), ed.Viewport().Matrix())
	payload, err := json.Marshal(frame)
	if err != nil {
		slog.Error("marshal frame", "error", err)
		return
	}
	sess.client.Send(&Message{Type: TypeFrame, Payload: payload})
}

func (h *Hub) sendSceneSync(sess *Session) {
	if sess.client == nil {
		return
	}
	payload, err := json.Marshal(sess.editor.Scene())
	if err != nil {
		slog.Error("marshal scene", "error", err)
		return
	}
	sess.client.Send(&Message{Type: TypeSceneSync, Payload: payload})
}

// handleExport rasterizes the session scene and ships it back encoded. The
// exporter already serializes concurrent requests; an empty scene simply
// reports back as empty with no image attached.
func (h *Hub) handleExport(sess *Session) {
	if sess.client == nil {
		return
	}

	var buf bytes.Buffer
	err := h.exporter.PNG(sess.editor.Scene(), &buf)
	if err != nil {
		if errors.Is(err, export.ErrEmptyScene) {
			payload, _ := json.Marshal(ExportPayload{Empty: true})
			sess.client.Send(&Message{Type: TypeExport, Payload: payload})
			return
		}
		slog.Error("export png", "session", sess.ID, "error", err)
		payload, _ := json.Marshal(ErrorPayload{Message: "export failed"})
		sess.client.Send(&Message{Type: TypeError, Payload: payload})
		return
	}

	payload, _ := json.Marshal(ExportPayload{
		PNG:  base64.StdEncoding.EncodeToString(buf.Bytes()),
		Name: typeid.NewExportID() + ".png",
	})
	sess.client.Send(&Message{Type: TypeExport, Payload: payload})
}

func decode(data json.RawMessage, v interface{}, sessionID string) bool {
	if err := json.Unmarshal(data, v); err != nil {
		slog.Warn("invalid payload", "error", err, "session", sessionID)
		return false
	}
	return true
}
