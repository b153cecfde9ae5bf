// Package input adapts host pointer and gesture events to viewport commands.
//
// Hosts deliver samples in viewport coordinates; the Dispatcher decides
// whether a sample qualifies (pan button, feature gates), converts it into
// the content space the engine works in and calls the matching Controller
// command. Every host (browser, websocket room) shares this one adapter.
package input

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/inamate/viewport/internal/engine"
)

// ErrUnknownKind is returned for events the dispatcher does not recognize.
var ErrUnknownKind = errors.New("unknown input kind")

// Gates are the host-side feature switches.
type Gates struct {
	PanButton                Button `envconfig:"PAN_BUTTON" default:"left" json:"panButton"`
	EnablePan                bool   `envconfig:"ENABLE_PAN" default:"true" json:"enablePan"`
	EnableZoom               bool   `envconfig:"ENABLE_ZOOM" default:"true" json:"enableZoom"`
	EnableGestureZoom        bool   `envconfig:"ENABLE_GESTURE_ZOOM" default:"true" json:"enableGestureZoom"`
	EnableGestureTranslation bool   `envconfig:"ENABLE_GESTURE_TRANSLATION" default:"true" json:"enableGestureTranslation"`
}

// DefaultGates enables everything and pans with the left button.
func DefaultGates() Gates {
	return Gates{
		PanButton:                ButtonLeft,
		EnablePan:                true,
		EnableZoom:               true,
		EnableGestureZoom:        true,
		EnableGestureTranslation: true,
	}
}

// Dispatcher routes Events to a Controller.
type Dispatcher struct {
	c     *engine.Controller
	gates Gates
	log   *slog.Logger

	// Last pointer position while panning, used to re-anchor the gesture
	// when the zoom changes mid-drag.
	pointer engine.Point
}

// NewDispatcher creates a dispatcher for c. A nil logger uses slog.Default().
func NewDispatcher(c *engine.Controller, gates Gates, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{c: c, gates: gates, log: log}
}

// Gates returns the active feature gates.
func (d *Dispatcher) Gates() Gates { return d.gates }

// SetGates replaces the feature gates. Disabling panning ends a pan in progress.
func (d *Dispatcher) SetGates(g Gates) {
	d.gates = g
	if !g.EnablePan {
		d.c.EndPan()
	}
}

// Handle applies one input sample. Samples that do not qualify are dropped
// silently. A sample that cannot be unprojected (singular transform) is
// skipped and the wrapped engine.ErrSingularMatrix returned so the host can
// log it; the viewport is left unchanged.
func (d *Dispatcher) Handle(ev Event) error {
	switch ev.Kind {
	case KindPress:
		return d.press(ev)
	case KindMove:
		return d.move(ev)
	case KindRelease:
		if ev.Button == d.gates.PanButton {
			d.c.EndPan()
		}
		return nil
	case KindCaptureLost:
		d.c.EndPan()
		return nil
	case KindWheel:
		return d.wheel(ev)
	case KindGesture:
		return d.gesture(ev)
	case KindScroll:
		return d.scroll(ev)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, ev.Kind)
	}
}

func (d *Dispatcher) press(ev Event) error {
	if !d.gates.EnablePan || ev.Button != d.gates.PanButton {
		return nil
	}
	p := engine.Pt(ev.X, ev.Y)
	v, err := d.c.ContentVector(p)
	if err != nil {
		return fmt.Errorf("press: %w", err)
	}
	d.pointer = p
	d.c.BeginPan(v.X, v.Y)
	return nil
}

func (d *Dispatcher) move(ev Event) error {
	if d.c.Phase() != engine.PhasePanning {
		return nil
	}
	p := engine.Pt(ev.X, ev.Y)
	v, err := d.c.ContentVector(p)
	if err != nil {
		return fmt.Errorf("move: %w", err)
	}
	d.pointer = p
	d.c.ContinuePan(v.X, v.Y)
	return nil
}

func (d *Dispatcher) wheel(ev Event) error {
	if !d.gates.EnableZoom || ev.Delta == 0 {
		return nil
	}
	anchor, err := d.c.ContentPoint(engine.Pt(ev.X, ev.Y))
	if err != nil {
		return fmt.Errorf("wheel: %w", err)
	}
	d.c.ZoomByWheelDelta(ev.Delta, anchor.X, anchor.Y)
	d.reanchor()
	return nil
}

func (d *Dispatcher) gesture(ev Event) error {
	if !d.gates.EnableGestureZoom && !d.gates.EnableGestureTranslation {
		return nil
	}
	origin, err := d.c.ContentPoint(engine.Pt(ev.X, ev.Y))
	if err != nil {
		return fmt.Errorf("gesture: %w", err)
	}
	g := engine.GestureDelta{Origin: origin, Scale: 1}
	if d.gates.EnableGestureZoom && ev.Scale > 0 {
		g.Scale = ev.Scale
	}
	if d.gates.EnableGestureTranslation {
		t, err := d.c.ContentVector(engine.Pt(ev.DeltaX, ev.DeltaY))
		if err != nil {
			return fmt.Errorf("gesture: %w", err)
		}
		g.Translation = t
	}
	d.c.ApplyGesture(g)
	d.reanchor()
	return nil
}

func (d *Dispatcher) scroll(ev Event) error {
	if !d.gates.EnableGestureTranslation || (ev.DeltaX == 0 && ev.DeltaY == 0) {
		return nil
	}
	t, err := d.c.ContentVector(engine.Pt(ev.DeltaX, ev.DeltaY))
	if err != nil {
		return fmt.Errorf("scroll: %w", err)
	}
	d.c.PanDelta(t.X, t.Y)
	return nil
}

// reanchor restarts a pan in progress at the last pointer position so the
// next move is measured in the new zoom's content units.
func (d *Dispatcher) reanchor() {
	if d.c.Phase() != engine.PhasePanning {
		return
	}
	v, err := d.c.ContentVector(d.pointer)
	if err != nil {
		d.log.Warn("re-anchor pan", "error", err)
		d.c.EndPan()
		return
	}
	d.c.EndPan()
	d.c.BeginPan(v.X, v.Y)
}
