package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
)

// Phase is the interaction state of a Controller.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePanning
)

func (p Phase) String() string {
	if p == PhasePanning {
		return "panning"
	}
	return "idle"
}

// Controller owns the viewport transform and the pan/zoom state machine.
// Hosts translate their input events into its commands and read the
// committed transform back after every change.
//
// A Controller is not safe for concurrent use; it expects every call to come
// from the goroutine that dispatches input for its viewport.
//
// Coordinates passed to zoom and pan commands are in content space (the
// coordinate system of the untransformed content). Hosts holding viewport
// coordinates convert them with ContentPoint and ContentVector.
type Controller struct {
	log *slog.Logger

	zoomSpeed           float64
	powerFactor         float64
	transitionThreshold float64
	stretch             StretchMode
	constraints         bool
	bounds              Bounds

	transform Matrix2D

	// Derived scalars, refreshed on every commit
	zoomX, zoomY     float64
	offsetX, offsetY float64

	// Pan gesture state
	phase     Phase
	panOrigin Point
	panAccum  Point
	panLast   Point

	// Layout as last reported by the host
	panel      Size
	content    Size
	haveLayout bool
	scroll     ScrollInfo

	listeners       []changeListener
	scrollListeners []scrollListener
	nextListenerID  int

	committing bool
}

type changeListener struct {
	id int
	fn func(ChangeEvent)
}

type scrollListener struct {
	id int
	fn func(ScrollInfo)
}

type commitFlags struct {
	suppressScroll bool
	transition     bool
}

// NewController creates a controller at the identity transform.
func NewController(opts ...Option) (*Controller, error) {
	co := controllerOptions{Options: DefaultOptions()}
	for _, opt := range opts {
		opt(&co)
	}
	if err := co.Validate(); err != nil {
		return nil, fmt.Errorf("new controller: %w", err)
	}

	log := co.logger
	if log == nil {
		log = slog.Default()
	}

	c := &Controller{
		log:                 log,
		zoomSpeed:           co.ZoomSpeed,
		powerFactor:         co.PowerFactor,
		transitionThreshold: co.TransitionThreshold,
		stretch:             co.Stretch,
		constraints:         co.EnableConstraints,
		bounds:              co.Bounds,
		transform:           Identity(),
		zoomX:               1,
		zoomY:               1,
	}
	c.scroll = Project(c.content.Bounds(), c.transform, c.panel)
	return c, nil
}

// --- Listeners ---

// OnChange registers fn to receive every ChangeEvent. The returned function
// removes the listener.
func (c *Controller) OnChange(fn func(ChangeEvent)) (remove func()) {
	c.nextListenerID++
	id := c.nextListenerID
	c.listeners = append(c.listeners, changeListener{id: id, fn: fn})
	return func() {
		for i, l := range c.listeners {
			if l.id == id {
				c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

// OnScroll registers fn to receive scroll projection updates. Updates caused
// by SetOffset are not delivered, so a scroll container writing offsets back
// never sees its own write echoed.
func (c *Controller) OnScroll(fn func(ScrollInfo)) (remove func()) {
	c.nextListenerID++
	id := c.nextListenerID
	c.scrollListeners = append(c.scrollListeners, scrollListener{id: id, fn: fn})
	return func() {
		for i, l := range c.scrollListeners {
			if l.id == id {
				c.scrollListeners = append(c.scrollListeners[:i:i], c.scrollListeners[i+1:]...)
				return
			}
		}
	}
}

// --- Commands (host → engine) ---

// ZoomAbsolute replaces the transform with a uniform zoom about (x, y),
// discarding any previous pan and zoom.
func (c *Controller) ZoomAbsolute(zoom, x, y float64) {
	if c.reentrant(OpZoomAbsolute) || !validRatio(zoom) || !finite(x, y) {
		return
	}
	c.commit(ScaleAt(zoom, zoom, x, y), OpZoomAbsolute, commitFlags{})
}

// ZoomRelative multiplies the current zoom by ratio, keeping the content
// point (x, y) fixed.
func (c *Controller) ZoomRelative(ratio, x, y float64) {
	c.zoomRelative(ratio, x, y, OpZoomRelative, commitFlags{})
}

// ZoomByWheelDelta maps a signed wheel delta to a zoom ratio with
// ZoomSpeed^(sign(delta)*|delta|^PowerFactor) and zooms about (x, y).
// Positive deltas zoom in.
func (c *Controller) ZoomByWheelDelta(delta, x, y float64) {
	if delta == 0 || math.IsNaN(delta) {
		return
	}
	exp := math.Copysign(math.Pow(math.Abs(delta), c.powerFactor), delta)
	ratio := math.Pow(c.zoomSpeed, exp)
	c.zoomRelative(ratio, x, y, OpZoomWheel, commitFlags{
		transition: math.Abs(exp) > c.transitionThreshold,
	})
}

// ZoomIn zooms by one ZoomSpeed step about the viewport center.
func (c *Controller) ZoomIn() {
	a := c.viewportAnchor()
	c.zoomRelative(c.zoomSpeed, a.X, a.Y, OpZoomIn, commitFlags{transition: true})
}

// ZoomOut zooms by the inverse of one ZoomSpeed step about the viewport center.
func (c *Controller) ZoomOut() {
	a := c.viewportAnchor()
	c.zoomRelative(1/c.zoomSpeed, a.X, a.Y, OpZoomOut, commitFlags{transition: true})
}

func (c *Controller) zoomRelative(ratio, x, y float64, op Operation, flags commitFlags) {
	if c.reentrant(op) {
		return
	}
	if !validRatio(ratio) || !finite(x, y) {
		c.log.Debug("ignoring invalid zoom", "ratio", ratio, "x", x, "y", y, "op", op)
		return
	}
	if c.atZoomLimit(ratio) {
		c.log.Debug("zoom limit reached", "ratio", ratio, "zoomX", c.zoomX, "zoomY", c.zoomY)
		return
	}
	c.commit(Compose(ScaleAt(ratio, ratio, x, y), c.transform), op, flags)
}

// atZoomLimit reports whether zooming by ratio would only push further past
// limits that both axes already sit on.
func (c *Controller) atZoomLimit(ratio float64) bool {
	if !c.constraints {
		return false
	}
	switch {
	case ratio > 1:
		return c.zoomX >= c.bounds.MaxZoomX && c.zoomY >= c.bounds.MaxZoomY
	case ratio < 1:
		return c.zoomX <= c.bounds.MinZoomX && c.zoomY <= c.bounds.MinZoomY
	}
	return false
}

// BeginPan starts a pan gesture at the content point (x, y). It is a no-op
// while a pan is already in progress.
func (c *Controller) BeginPan(x, y float64) {
	if c.reentrant(OpPan) || c.phase == PhasePanning || !finite(x, y) {
		return
	}
	c.phase = PhasePanning
	c.panOrigin = Point{X: x, Y: y}
	c.panAccum = Point{}
	c.panLast = Point{}
}

// ContinuePan moves the content by the distance from the previous sample to
// (x, y) and returns that incremental delta. It does nothing while idle.
func (c *Controller) ContinuePan(x, y float64) Point {
	if c.reentrant(OpPan) || c.phase != PhasePanning || !finite(x, y) {
		return Point{}
	}
	p := Point{X: x, Y: y}
	delta := p.Sub(c.panOrigin)
	c.panAccum = c.panAccum.Add(delta)
	c.panLast = delta
	c.commit(c.transform.Prepend(Translate(delta.X, delta.Y)), OpPan, commitFlags{})
	c.panOrigin = p
	return delta
}

// EndPan finishes the pan gesture. Pointer release and pointer capture loss
// must both end up here. The last committed transform is kept.
func (c *Controller) EndPan() {
	if c.reentrant(OpPan) || c.phase != PhasePanning {
		return
	}
	c.phase = PhaseIdle
}

// PanDelta moves the content by (dx, dy) content units without touching the
// pan gesture state. Used by inputs with no press/release lifecycle.
func (c *Controller) PanDelta(dx, dy float64) {
	c.panDelta(dx, dy, OpPanDelta, commitFlags{})
}

func (c *Controller) panDelta(dx, dy float64, op Operation, flags commitFlags) {
	if c.reentrant(op) {
		return
	}
	if !finite(dx, dy) {
		c.log.Debug("ignoring non-finite pan", "dx", dx, "dy", dy, "op", op)
		return
	}
	c.commit(c.transform.Prepend(Translate(dx, dy)), op, flags)
}

// GestureDelta is one step of a pinch or manipulation gesture, already
// recognized by the host. Origin is in content space.
type GestureDelta struct {
	Scale       float64 `json:"scale"`
	Translation Point   `json:"translation"`
	Origin      Point   `json:"origin"`
}

// ApplyGesture applies a scale about the gesture origin followed by a
// translation, as a single commit. A zero Scale is treated as 1.
func (c *Controller) ApplyGesture(g GestureDelta) {
	if c.reentrant(OpGesture) {
		return
	}
	m := c.transform
	scale := g.Scale
	if scale == 0 {
		scale = 1
	}
	if !finite(g.Origin.X, g.Origin.Y, g.Translation.X, g.Translation.Y) {
		c.log.Debug("ignoring non-finite gesture", "origin", g.Origin, "translation", g.Translation)
		return
	}
	if scale != 1 && validRatio(scale) && !c.atZoomLimit(scale) {
		m = Compose(ScaleAt(scale, scale, g.Origin.X, g.Origin.Y), m)
	}
	if g.Translation != (Point{}) {
		m = Compose(Translate(g.Translation.X, g.Translation.Y), m)
	}
	if m == c.transform {
		return
	}
	c.commit(m, OpGesture, commitFlags{})
}

// Fit replaces the transform with the fit of content into panel under mode.
// A degenerate size commits the identity and returns an error wrapping
// ErrDegenerateSize.
func (c *Controller) Fit(panel, content Size, mode StretchMode) error {
	return c.fit(panel, content, mode, OpFit)
}

// AutoFit records the current layout and refits using the configured stretch
// mode. Hosts call it whenever the panel or content size changes. With
// StretchNone the transform is left untouched and only the scroll projection
// is refreshed.
func (c *Controller) AutoFit(panel, content Size) error {
	if c.reentrant(OpAutoFit) {
		return nil
	}
	if c.stretch == StretchNone {
		c.setLayout(panel, content)
		c.refreshScroll()
		return nil
	}
	return c.fit(panel, content, c.stretch, OpAutoFit)
}

func (c *Controller) fit(panel, content Size, mode StretchMode, op Operation) error {
	if c.reentrant(op) {
		return nil
	}
	c.setLayout(panel, content)
	m, err := ComputeFit(panel, content, mode)
	if err != nil {
		c.log.Warn("fit degenerate, using identity", "error", err, "mode", mode)
	}
	c.commit(m, op, commitFlags{})
	return err
}

// Reset returns to the identity transform.
func (c *Controller) Reset() {
	if c.reentrant(OpReset) {
		return
	}
	c.commit(Identity(), OpReset, commitFlags{})
}

// Restore commits an explicit axis-aligned transform, e.g. a saved view.
func (c *Controller) Restore(zoomX, zoomY, offsetX, offsetY float64) {
	if c.reentrant(OpRestore) || !validRatio(zoomX) || !validRatio(zoomY) || !finite(offsetX, offsetY) {
		return
	}
	c.commit(Axis(zoomX, zoomY, offsetX, offsetY), OpRestore, commitFlags{})
}

// ToggleStretchMode advances None → Fill → Uniform → UniformToFill → None
// and refits when a layout is known. It returns the new mode.
func (c *Controller) ToggleStretchMode() StretchMode {
	if c.reentrant(OpAutoFit) {
		return c.stretch
	}
	c.stretch = c.stretch.Next()
	if c.haveLayout {
		if err := c.AutoFit(c.panel, c.content); err != nil {
			c.log.Debug("refit after stretch toggle", "error", err)
		}
	}
	return c.stretch
}

// SetStretchMode sets the AutoFit policy without refitting.
func (c *Controller) SetStretchMode(mode StretchMode) {
	c.stretch = mode
}

// SetBounds validates and installs new constraint bounds. When constraints
// are enabled the current transform is clamped immediately.
func (c *Controller) SetBounds(b Bounds) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("set bounds: %w", err)
	}
	if c.reentrant(OpConstraints) {
		return nil
	}
	c.bounds = b
	if c.constraints {
		c.commit(c.transform, OpConstraints, commitFlags{})
	}
	return nil
}

// SetConstraintsEnabled toggles clamping. Enabling clamps immediately.
func (c *Controller) SetConstraintsEnabled(enabled bool) {
	if c.reentrant(OpConstraints) {
		return
	}
	wasEnabled := c.constraints
	c.constraints = enabled
	if enabled && !wasEnabled {
		c.commit(c.transform, OpConstraints, commitFlags{})
	}
}

// SetOffset is the scroll adapter's write path: it pans so that the
// published offset becomes v. The offset is in viewport units, so the
// translation is appended after the zoom. The resulting scroll update is not
// echoed to scroll listeners.
func (c *Controller) SetOffset(v Point) {
	if c.reentrant(OpScroll) || !finite(v.X, v.Y) {
		return
	}
	dx := c.scroll.Offset.X - v.X
	dy := c.scroll.Offset.Y - v.Y
	if dx == 0 && dy == 0 {
		return
	}
	c.commit(c.transform.Append(Translate(dx, dy)), OpScroll, commitFlags{suppressScroll: true})
}

// --- Queries (host ← engine) ---

// Transform returns the committed transform.
func (c *Controller) Transform() Matrix2D { return c.transform }

// ZoomX returns the horizontal zoom.
func (c *Controller) ZoomX() float64 { return c.zoomX }

// ZoomY returns the vertical zoom.
func (c *Controller) ZoomY() float64 { return c.zoomY }

// OffsetX returns the horizontal offset.
func (c *Controller) OffsetX() float64 { return c.offsetX }

// OffsetY returns the vertical offset.
func (c *Controller) OffsetY() float64 { return c.offsetY }

// Scroll returns the current scroll projection.
func (c *Controller) Scroll() ScrollInfo { return c.scroll }

// Phase returns the pan gesture state.
func (c *Controller) Phase() Phase { return c.phase }

// StretchMode returns the AutoFit policy.
func (c *Controller) StretchMode() StretchMode { return c.stretch }

// Bounds returns the constraint bounds.
func (c *Controller) Bounds() Bounds { return c.bounds }

// ConstraintsEnabled reports whether commits clamp.
func (c *Controller) ConstraintsEnabled() bool { return c.constraints }

// ZoomSpeed returns the discrete zoom step.
func (c *Controller) ZoomSpeed() float64 { return c.zoomSpeed }

// LastPanDelta returns the delta applied by the most recent ContinuePan.
func (c *Controller) LastPanDelta() Point { return c.panLast }

// AccumulatedPan returns the total pan since BeginPan.
func (c *Controller) AccumulatedPan() Point { return c.panAccum }

// Layout returns the last panel and content sizes reported by the host.
func (c *Controller) Layout() (panel, content Size, ok bool) {
	return c.panel, c.content, c.haveLayout
}

// ContentPoint maps a viewport point into content space.
func (c *Controller) ContentPoint(p Point) (Point, error) {
	inv, err := c.transform.Invert()
	if err != nil {
		return p, err
	}
	return inv.TransformPoint(p), nil
}

// ContentVector maps a viewport displacement into content units.
func (c *Controller) ContentVector(v Point) (Point, error) {
	inv, err := c.transform.Invert()
	if err != nil {
		return v, err
	}
	return inv.TransformVector(v), nil
}

// --- internals ---

// commit is the single funnel for every transform change.
func (c *Controller) commit(m Matrix2D, op Operation, flags commitFlags) {
	clamped := false
	if c.constraints {
		cm, err := Clamp(m, c.bounds)
		if err != nil {
			// Bounds are validated on every write, so this is unreachable
			// unless the struct was mutated behind our back.
			c.log.Error("clamp", "error", err)
		} else {
			clamped = cm != m
			m = cm
		}
	}

	ev := ChangeEvent{
		PreviousZoomX:   c.zoomX,
		PreviousZoomY:   c.zoomY,
		PreviousOffsetX: c.offsetX,
		PreviousOffsetY: c.offsetY,
		Operation:       op,
		Clamped:         clamped,
		Transition:      flags.transition,
	}

	c.transform = m
	c.zoomX, c.zoomY = m.M11(), m.M22()
	c.offsetX, c.offsetY = m.OffsetX(), m.OffsetY()

	ev.ZoomX, ev.ZoomY = c.zoomX, c.zoomY
	ev.OffsetX, ev.OffsetY = c.offsetX, c.offsetY

	c.committing = true
	defer func() { c.committing = false }()

	scrollChanged := c.updateScroll()

	for _, l := range c.listeners {
		l.fn(ev)
	}
	if scrollChanged && !flags.suppressScroll {
		c.publishScroll()
	}
}

// reentrant reports (and logs) a mutating call made from inside a listener.
func (c *Controller) reentrant(op Operation) bool {
	if c.committing {
		c.log.Debug("ignoring re-entrant viewport call", "op", op)
		return true
	}
	return false
}

func (c *Controller) setLayout(panel, content Size) {
	c.panel = panel
	c.content = content
	c.haveLayout = true
}

func (c *Controller) updateScroll() bool {
	next := Project(c.content.Bounds(), c.transform, c.panel)
	if next == c.scroll {
		return false
	}
	c.scroll = next
	return true
}

func (c *Controller) refreshScroll() {
	if !c.updateScroll() {
		return
	}
	c.committing = true
	defer func() { c.committing = false }()
	c.publishScroll()
}

func (c *Controller) publishScroll() {
	for _, l := range c.scrollListeners {
		l.fn(c.scroll)
	}
}

// viewportAnchor returns the content point under the viewport center, or
// the origin when no layout is known or the transform is singular.
func (c *Controller) viewportAnchor() Point {
	if !c.haveLayout || c.panel.IsDegenerate() {
		return Point{}
	}
	p, err := c.ContentPoint(c.panel.Center())
	if err != nil {
		if errors.Is(err, ErrSingularMatrix) {
			c.log.Warn("singular transform, zooming about origin", "error", err)
		}
		return Point{}
	}
	return p
}

func validRatio(r float64) bool {
	return r > 0 && !math.IsInf(r, 0)
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
