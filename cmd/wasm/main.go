//go:build js && wasm

package main

import (
	"encoding/json"
	"log/slog"
	"os"
	"syscall/js"

	"github.com/inamate/viewport/internal/config"
	"github.com/inamate/viewport/internal/engine"
	"github.com/inamate/viewport/internal/input"
)

var (
	ctrl *engine.Controller
	disp *input.Dispatcher
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	vp := config.DefaultViewport()

	var err error
	ctrl, err = engine.NewController(engine.WithOptions(vp.Options()), engine.WithLogger(log))
	if err != nil {
		log.Error("create controller", "error", err)
		return
	}
	disp = input.NewDispatcher(ctrl, vp.Gates, log)

	// Create the viewport API object
	api := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	api.Set("handleInput", js.FuncOf(handleInput))
	api.Set("zoomAbsolute", js.FuncOf(zoomAbsolute))
	api.Set("zoomRelative", js.FuncOf(zoomRelative))
	api.Set("zoomIn", js.FuncOf(zoomIn))
	api.Set("zoomOut", js.FuncOf(zoomOut))
	api.Set("panDelta", js.FuncOf(panDelta))
	api.Set("fit", js.FuncOf(fit))
	api.Set("autoFit", js.FuncOf(autoFit))
	api.Set("reset", js.FuncOf(reset))
	api.Set("restore", js.FuncOf(restore))
	api.Set("toggleStretchMode", js.FuncOf(toggleStretchMode))
	api.Set("setStretchMode", js.FuncOf(setStretchMode))
	api.Set("setBounds", js.FuncOf(setBounds))
	api.Set("setConstraintsEnabled", js.FuncOf(setConstraintsEnabled))
	api.Set("setOffset", js.FuncOf(setOffset))
	api.Set("setGates", js.FuncOf(setGates))

	// --- Queries (frontend ← engine) ---
	api.Set("getState", js.FuncOf(getState))
	api.Set("getTransform", js.FuncOf(getTransform))
	api.Set("contentPoint", js.FuncOf(contentPoint))

	// --- Notifications ---
	api.Set("onChange", js.FuncOf(onChange))
	api.Set("onScroll", js.FuncOf(onScroll))

	js.Global().Set("viewportEngine", api)
	js.Global().Set("viewportWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func ok() any { return js.ValueOf(map[string]any{"ok": true}) }

func fail(err error) any { return js.ValueOf(map[string]any{"error": err.Error()}) }

func missing(what string) any { return js.ValueOf(map[string]any{"error": "missing " + what}) }

// floats reads n numeric arguments.
func floats(args []js.Value, n int) ([]float64, bool) {
	if len(args) < n {
		return nil, false
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = args[i].Float()
	}
	return out, true
}

// --- Command Handlers ---

func handleInput(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return missing("event JSON")
	}
	var ev input.Event
	if err := json.Unmarshal([]byte(args[0].String()), &ev); err != nil {
		return fail(err)
	}
	if err := disp.Handle(ev); err != nil {
		return fail(err)
	}
	return ok()
}

func zoomAbsolute(this js.Value, args []js.Value) any {
	a, found := floats(args, 3)
	if !found {
		return missing("zoom, x, y")
	}
	ctrl.ZoomAbsolute(a[0], a[1], a[2])
	return nil
}

func zoomRelative(this js.Value, args []js.Value) any {
	a, found := floats(args, 3)
	if !found {
		return missing("ratio, x, y")
	}
	ctrl.ZoomRelative(a[0], a[1], a[2])
	return nil
}

func zoomIn(this js.Value, args []js.Value) any {
	ctrl.ZoomIn()
	return nil
}

func zoomOut(this js.Value, args []js.Value) any {
	ctrl.ZoomOut()
	return nil
}

func panDelta(this js.Value, args []js.Value) any {
	a, found := floats(args, 2)
	if !found {
		return missing("dx, dy")
	}
	ctrl.PanDelta(a[0], a[1])
	return nil
}

func fit(this js.Value, args []js.Value) any {
	a, found := floats(args, 4)
	if !found || len(args) < 5 {
		return missing("panel width, panel height, content width, content height, mode")
	}
	mode, err := engine.ParseStretchMode(args[4].String())
	if err != nil {
		return fail(err)
	}
	if err := ctrl.Fit(engine.Size{Width: a[0], Height: a[1]}, engine.Size{Width: a[2], Height: a[3]}, mode); err != nil {
		return fail(err)
	}
	return ok()
}

func autoFit(this js.Value, args []js.Value) any {
	a, found := floats(args, 4)
	if !found {
		return missing("panel width, panel height, content width, content height")
	}
	if err := ctrl.AutoFit(engine.Size{Width: a[0], Height: a[1]}, engine.Size{Width: a[2], Height: a[3]}); err != nil {
		return fail(err)
	}
	return ok()
}

func reset(this js.Value, args []js.Value) any {
	ctrl.Reset()
	return nil
}

func restore(this js.Value, args []js.Value) any {
	a, found := floats(args, 4)
	if !found {
		return missing("zoomX, zoomY, offsetX, offsetY")
	}
	ctrl.Restore(a[0], a[1], a[2], a[3])
	return nil
}

func toggleStretchMode(this js.Value, args []js.Value) any {
	return js.ValueOf(ctrl.ToggleStretchMode().String())
}

func setStretchMode(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return missing("mode")
	}
	mode, err := engine.ParseStretchMode(args[0].String())
	if err != nil {
		return fail(err)
	}
	ctrl.SetStretchMode(mode)
	return ok()
}

func setBounds(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return missing("bounds JSON")
	}
	b := engine.Unbounded()
	if err := json.Unmarshal([]byte(args[0].String()), &b); err != nil {
		return fail(err)
	}
	if err := ctrl.SetBounds(b); err != nil {
		return fail(err)
	}
	return ok()
}

func setConstraintsEnabled(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return missing("enabled")
	}
	ctrl.SetConstraintsEnabled(args[0].Bool())
	return nil
}

func setOffset(this js.Value, args []js.Value) any {
	a, found := floats(args, 2)
	if !found {
		return missing("x, y")
	}
	ctrl.SetOffset(engine.Pt(a[0], a[1]))
	return nil
}

func setGates(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return missing("gates JSON")
	}
	g := disp.Gates()
	if err := json.Unmarshal([]byte(args[0].String()), &g); err != nil {
		return fail(err)
	}
	disp.SetGates(g)
	return ok()
}

// --- Query Handlers ---

func getState(this js.Value, args []js.Value) any {
	return js.ValueOf(ctrl.StateJSON())
}

func getTransform(this js.Value, args []js.Value) any {
	m := ctrl.Transform()
	arr := make([]any, len(m))
	for i, v := range m {
		arr[i] = v
	}
	return js.ValueOf(arr)
}

func contentPoint(this js.Value, args []js.Value) any {
	a, found := floats(args, 2)
	if !found {
		return missing("x, y")
	}
	p, err := ctrl.ContentPoint(engine.Pt(a[0], a[1]))
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(map[string]any{"x": p.X, "y": p.Y})
}

// --- Notifications ---

// onChange registers a JS callback receiving each ChangeEvent as JSON and
// returns a function that unregisters it.
func onChange(this js.Value, args []js.Value) any {
	if len(args) < 1 || args[0].Type() != js.TypeFunction {
		return missing("callback")
	}
	cb := args[0]
	remove := ctrl.OnChange(func(ev engine.ChangeEvent) {
		data, err := engine.EventJSON(ev)
		if err != nil {
			return
		}
		cb.Invoke(data)
	})
	return unregister(remove)
}

func onScroll(this js.Value, args []js.Value) any {
	if len(args) < 1 || args[0].Type() != js.TypeFunction {
		return missing("callback")
	}
	cb := args[0]
	remove := ctrl.OnScroll(func(si engine.ScrollInfo) {
		data, err := json.Marshal(si)
		if err != nil {
			return
		}
		cb.Invoke(string(data))
	})
	return unregister(remove)
}

func unregister(remove func()) js.Func {
	var fn js.Func
	fn = js.FuncOf(func(this js.Value, args []js.Value) any {
		remove()
		fn.Release()
		return nil
	})
	return fn
}
