//go:build js && wasm

package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"syscall/js"

	"github.com/doodlekit/doodlekit/backend-go/internal/editor"
	"github.com/doodlekit/doodlekit/backend-go/internal/export"
	"github.com/doodlekit/doodlekit/backend-go/internal/geom"
	"github.com/doodlekit/doodlekit/backend-go/internal/render"
	"github.com/doodlekit/doodlekit/backend-go/internal/scene"
)

var (
	ed       *editor.Editor
	exporter *export.Exporter
	onSave   js.Value // JS callback receiving the serialized scene
)

func main() {
	ed = editor.New(saveScene)

	var err error
	exporter, err = export.NewExporter()
	if err != nil {
		js.Global().Set("doodlekitWasmError", js.ValueOf(err.Error()))
		return
	}

	engine := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	engine.Set("loadScene", js.FuncOf(loadScene))
	engine.Set("setSaveHandler", js.FuncOf(setSaveHandler))
	engine.Set("pointerDown", js.FuncOf(pointerDown))
	engine.Set("pointerMove", js.FuncOf(pointerMove))
	engine.Set("pointerUp", js.FuncOf(pointerUp))
	engine.Set("pointerLeave", js.FuncOf(pointerLeave))
	engine.Set("doubleClick", js.FuncOf(doubleClick))
	engine.Set("keyDown", js.FuncOf(keyDown))
	engine.Set("wheel", js.FuncOf(wheel))
	engine.Set("zoomIn", js.FuncOf(zoomIn))
	engine.Set("zoomOut", js.FuncOf(zoomOut))
	engine.Set("setTool", js.FuncOf(setTool))
	engine.Set("setStyle", js.FuncOf(setStyle))
	engine.Set("setText", js.FuncOf(setText))
	engine.Set("blurText", js.FuncOf(blurText))
	engine.Set("duplicateSelected", js.FuncOf(duplicateSelected))

	// --- Queries (engine → frontend) ---
	engine.Set("render", js.FuncOf(renderFrame))
	engine.Set("exportPNG", js.FuncOf(exportPNG))
	engine.Set("getScene", js.FuncOf(getScene))
	engine.Set("getSelection", js.FuncOf(getSelection))
	engine.Set("getState", js.FuncOf(getState))
	engine.Set("getTool", js.FuncOf(getTool))

	js.Global().Set("doodlekitEngine", engine)
	js.Global().Set("doodlekitWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

// saveScene forwards committed scenes to the registered JS handler, which
// owns the actual browser storage.
func saveScene(sc *scene.Scene) error {
	if onSave.IsUndefined() || onSave.IsNull() {
		return nil
	}
	data, err := json.Marshal(sc)
	if err != nil {
		return err
	}
	onSave.Invoke(string(data))
	return nil
}

func setSaveHandler(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	onSave = args[0]
	return nil
}

func loadScene(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		ed.LoadScene(nil)
		return js.ValueOf(map[string]interface{}{"ok": true})
	}

	var sc scene.Scene
	if err := json.Unmarshal([]byte(args[0].String()), &sc); err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}
	ed.LoadScene(&sc)
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func pointAt(args []js.Value) geom.Point {
	return geom.Point{X: args[0].Float(), Y: args[1].Float()}
}

func pointerDown(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return nil
	}
	mods := editor.Modifiers{}
	if len(args) > 3 {
		mods.Pan = args[3].Truthy()
	}
	ed.PointerDown(pointAt(args), editor.Button(args[2].Int()), mods)
	return nil
}

func pointerMove(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	ed.PointerMove(pointAt(args))
	return nil
}

func pointerUp(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	ed.PointerUp(pointAt(args))
	return nil
}

func pointerLeave(this js.Value, args []js.Value) interface{} {
	ed.PointerLeave()
	return nil
}

func doubleClick(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	ed.DoubleClick(pointAt(args))
	return nil
}

func keyDown(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	ed.KeyDown(args[0].String())
	return nil
}

func wheel(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	ed.Wheel(args[0].Float())
	return nil
}

func zoomIn(this js.Value, args []js.Value) interface{} {
	ed.ZoomIn()
	return nil
}

func zoomOut(this js.Value, args []js.Value) interface{} {
	ed.ZoomOut()
	return nil
}

func setTool(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	ed.SetTool(editor.Tool(args[0].String()))
	return nil
}

func setStyle(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	var st editor.Style
	if err := json.Unmarshal([]byte(args[0].String()), &st); err != nil {
		return nil
	}
	ed.SetStyle(st)
	return nil
}

func setText(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	ed.SetTextBuffer(args[0].String())
	return nil
}

func blurText(this js.Value, args []js.Value) interface{} {
	ed.Blur()
	return nil
}

func duplicateSelected(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(ed.DuplicateSelected())
}

func renderFrame(this js.Value, args []js.Value) interface{} {
	frame := render.Compile(ed.Scene(), ed.LiveShape(), ed.SelectedID(), ed.Viewport().Matrix())
	out, err := frame.ToJSON()
	if err != nil {
		return js.ValueOf("{}")
	}
	return js.ValueOf(out)
}

// exportPNG returns the base64-encoded image, or "" when the scene is
// empty and there is nothing to download.
func exportPNG(this js.Value, args []js.Value) interface{} {
	var buf bytes.Buffer
	if err := exporter.PNG(ed.Scene(), &buf); err != nil {
		if errors.Is(err, export.ErrEmptyScene) {
			return js.ValueOf("")
		}
		return js.ValueOf("")
	}
	return js.ValueOf(base64.StdEncoding.EncodeToString(buf.Bytes()))
}

func getScene(this js.Value, args []js.Value) interface{} {
	data, err := json.Marshal(ed.Scene())
	if err != nil {
		return js.ValueOf("[]")
	}
	return js.ValueOf(string(data))
}

func getSelection(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(ed.SelectedID())
}

func getState(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(ed.State())
}

func getTool(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(string(ed.Tool()))
}
