package engine

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestController(t *testing.T, opts ...Option) *Controller {
	t.Helper()
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	c, err := NewController(opts...)
	require.NoError(t, err)
	return c
}

// recordEvents collects every ChangeEvent emitted by c.
func recordEvents(c *Controller) *[]ChangeEvent {
	var events []ChangeEvent
	c.OnChange(func(ev ChangeEvent) { events = append(events, ev) })
	return &events
}

func TestNewControllerDefaults(t *testing.T) {
	c := newTestController(t)
	assert.Equal(t, Identity(), c.Transform())
	assert.Equal(t, 1.0, c.ZoomX())
	assert.Equal(t, 1.0, c.ZoomY())
	assert.Equal(t, PhaseIdle, c.Phase())
	assert.Equal(t, StretchNone, c.StretchMode())
	assert.False(t, c.ConstraintsEnabled())
	assert.Equal(t, DefaultZoomSpeed, c.ZoomSpeed())
}

func TestNewControllerRejectsInvalidOptions(t *testing.T) {
	b := Unbounded()
	b.MinZoomX, b.MaxZoomX = 4, 2
	_, err := NewController(WithConstraints(b))
	assert.True(t, errors.Is(err, ErrInvalidRange), "%v", err)

	_, err = NewController(WithZoomSpeed(0))
	assert.True(t, errors.Is(err, ErrInvalidRange), "%v", err)

	o := DefaultOptions()
	o.PowerFactor = -1
	_, err = NewController(WithOptions(o))
	assert.True(t, errors.Is(err, ErrInvalidRange), "%v", err)
}

func TestPanAccumulation(t *testing.T) {
	c := newTestController(t)

	c.BeginPan(10, 20)
	assert.Equal(t, PhasePanning, c.Phase())

	d := c.ContinuePan(15, 25)
	assert.Equal(t, Pt(5, 5), d)
	assert.Equal(t, Pt(5, 5), c.LastPanDelta())
	assert.Equal(t, Pt(5, 5), c.AccumulatedPan())

	d = c.ContinuePan(15, 25)
	assert.Equal(t, Pt(0, 0), d)
	assert.Equal(t, Pt(5, 5), c.AccumulatedPan())

	assert.Equal(t, Translate(5, 5), c.Transform())

	c.EndPan()
	assert.Equal(t, PhaseIdle, c.Phase())
	assert.Equal(t, Translate(5, 5), c.Transform(), "ending a pan keeps the last commit")
}

func TestBeginPanWhilePanningIsNoop(t *testing.T) {
	c := newTestController(t)
	c.BeginPan(0, 0)
	c.BeginPan(100, 100)
	assert.Equal(t, Pt(10, 10), c.ContinuePan(10, 10))
}

func TestPanIgnoredWhileIdle(t *testing.T) {
	c := newTestController(t)
	events := recordEvents(c)

	c.EndPan()
	assert.Equal(t, Point{}, c.ContinuePan(50, 50))
	assert.Empty(t, *events)
	assert.Equal(t, Identity(), c.Transform())
}

func TestZoomRelativeKeepsAnchor(t *testing.T) {
	c := newTestController(t)
	c.PanDelta(30, 40)

	anchor := Pt(5, 5)
	before := c.Transform().TransformPoint(anchor)
	c.ZoomRelative(2, anchor.X, anchor.Y)
	after := c.Transform().TransformPoint(anchor)

	if diff := cmp.Diff(before, after, approx); diff != "" {
		t.Errorf("anchor moved (-before +after):\n%s", diff)
	}
	assert.Equal(t, 2.0, c.ZoomX())
	assert.Equal(t, 2.0, c.ZoomY())
}

func TestZoomAbsoluteDiscardsState(t *testing.T) {
	c := newTestController(t)
	c.PanDelta(100, 100)
	c.ZoomRelative(4, 0, 0)

	c.ZoomAbsolute(3, 10, 10)
	assert.Equal(t, Matrix2D{3, 0, 0, 3, -20, -20}, c.Transform())
}

func TestZoomMonotonicClamp(t *testing.T) {
	t.Run("max", func(t *testing.T) {
		b := Unbounded()
		b.MaxZoomX = 2
		c := newTestController(t, WithConstraints(b))
		for i := 0; i < 10; i++ {
			c.ZoomRelative(1.5, 20, 20)
			assert.LessOrEqual(t, c.ZoomX(), 2.0)
		}
		assert.Equal(t, 2.0, c.ZoomX())
	})

	t.Run("min", func(t *testing.T) {
		b := Unbounded()
		b.MinZoomX = 0.5
		c := newTestController(t, WithConstraints(b))
		for i := 0; i < 10; i++ {
			c.ZoomRelative(1/1.5, 20, 20)
			assert.GreaterOrEqual(t, c.ZoomX(), 0.5)
		}
		assert.Equal(t, 0.5, c.ZoomX())
	})
}

func TestZoomAtLimitIsNoop(t *testing.T) {
	b := Unbounded()
	b.MaxZoomX, b.MaxZoomY = 2, 2
	b.MinZoomX, b.MinZoomY = 0.5, 0.5
	c := newTestController(t, WithConstraints(b))
	events := recordEvents(c)

	for i := 0; i < 5; i++ {
		c.ZoomRelative(1.5, 0, 0)
	}
	// 1 → 1.5 → 2 (clamped), then every further step is refused.
	require.Len(t, *events, 2)
	assert.False(t, (*events)[0].Clamped)
	assert.True(t, (*events)[1].Clamped)

	// Zooming back out is still allowed.
	c.ZoomRelative(0.5, 0, 0)
	assert.Equal(t, 1.0, c.ZoomX())
	assert.Len(t, *events, 3)
}

func TestResetAfterPanAndZoom(t *testing.T) {
	c := newTestController(t)
	c.ZoomRelative(2.0, 100, 100)
	c.PanDelta(50, 50)
	require.NotEqual(t, Identity(), c.Transform())

	c.Reset()
	assert.Equal(t, Matrix2D{1, 0, 0, 1, 0, 0}, c.Transform())
}

func TestFitFill(t *testing.T) {
	c := newTestController(t)
	events := recordEvents(c)

	require.NoError(t, c.Fit(Size{400, 300}, Size{200, 150}, StretchFill))
	assert.Equal(t, 2.0, c.ZoomX())
	assert.Equal(t, 2.0, c.ZoomY())
	require.Len(t, *events, 1)
	assert.Equal(t, OpFit, (*events)[0].Operation)
}

func TestFitDegenerateCommitsIdentity(t *testing.T) {
	c := newTestController(t)
	c.ZoomRelative(3, 0, 0)

	err := c.Fit(Size{400, 300}, Size{0, 150}, StretchUniform)
	assert.True(t, errors.Is(err, ErrDegenerateSize))
	assert.Equal(t, Identity(), c.Transform())
}

func TestFitNoneResets(t *testing.T) {
	c := newTestController(t)
	c.PanDelta(10, 10)
	require.NoError(t, c.Fit(Size{400, 300}, Size{200, 150}, StretchNone))
	assert.Equal(t, Identity(), c.Transform())
}

func TestAutoFit(t *testing.T) {
	t.Run("none preserves state", func(t *testing.T) {
		c := newTestController(t)
		c.PanDelta(10, 10)
		events := recordEvents(c)

		require.NoError(t, c.AutoFit(Size{400, 300}, Size{200, 150}))
		assert.Equal(t, Translate(10, 10), c.Transform())
		assert.Empty(t, *events)

		panel, content, ok := c.Layout()
		assert.True(t, ok)
		assert.Equal(t, Size{400, 300}, panel)
		assert.Equal(t, Size{200, 150}, content)
	})

	t.Run("uniform replaces state", func(t *testing.T) {
		c := newTestController(t, WithStretch(StretchUniform))
		c.PanDelta(10, 10)

		require.NoError(t, c.AutoFit(Size{400, 100}, Size{200, 200}))
		assert.Equal(t, 0.5, c.ZoomX())
		assert.Equal(t, 0.5, c.ZoomY())
	})
}

func TestToggleStretchMode(t *testing.T) {
	c := newTestController(t)
	require.NoError(t, c.AutoFit(Size{400, 100}, Size{200, 200}))

	assert.Equal(t, StretchFill, c.ToggleStretchMode())
	assert.Equal(t, 2.0, c.ZoomX())
	assert.Equal(t, 0.5, c.ZoomY())

	assert.Equal(t, StretchUniform, c.ToggleStretchMode())
	assert.Equal(t, 0.5, c.ZoomX())

	assert.Equal(t, StretchUniformToFill, c.ToggleStretchMode())
	assert.Equal(t, 2.0, c.ZoomX())

	assert.Equal(t, StretchNone, c.ToggleStretchMode())
	assert.Equal(t, 2.0, c.ZoomX(), "none leaves the last fit in place")
}

func TestZoomByWheelDelta(t *testing.T) {
	c := newTestController(t)
	events := recordEvents(c)

	c.ZoomByWheelDelta(1, 0, 0)
	assert.InDelta(t, 1.2, c.ZoomX(), 1e-12)
	require.Len(t, *events, 1)
	assert.Equal(t, OpZoomWheel, (*events)[0].Operation)
	assert.True(t, (*events)[0].Transition)

	c.ZoomByWheelDelta(-1, 0, 0)
	assert.InDelta(t, 1.0, c.ZoomX(), 1e-12)

	c.ZoomByWheelDelta(0.05, 0, 0)
	require.Len(t, *events, 3)
	assert.False(t, (*events)[2].Transition, "small deltas skip transitions")

	c.ZoomByWheelDelta(0, 0, 0)
	assert.Len(t, *events, 3, "zero delta is ignored")
}

func TestZoomByWheelDeltaPowerFactor(t *testing.T) {
	o := DefaultOptions()
	o.ZoomSpeed = 2
	o.PowerFactor = 0.5
	c := newTestController(t, WithOptions(o))

	c.ZoomByWheelDelta(4, 0, 0) // 2^(4^0.5) = 4
	assert.InDelta(t, 4.0, c.ZoomX(), 1e-12)

	c.ZoomByWheelDelta(-9, 0, 0) // 2^(-3) = 1/8
	assert.InDelta(t, 0.5, c.ZoomX(), 1e-12)
}

func TestZoomInOutAboutViewportCenter(t *testing.T) {
	c := newTestController(t)
	require.NoError(t, c.AutoFit(Size{200, 100}, Size{200, 100}))

	c.ZoomIn()
	assert.InDelta(t, 1.2, c.ZoomX(), 1e-12)
	center := c.Transform().TransformPoint(Pt(100, 50))
	assert.InDelta(t, 100, center.X, 1e-9)
	assert.InDelta(t, 50, center.Y, 1e-9)

	c.ZoomOut()
	assert.InDelta(t, 1.0, c.ZoomX(), 1e-12)
}

func TestApplyGesture(t *testing.T) {
	c := newTestController(t)
	events := recordEvents(c)

	c.ApplyGesture(GestureDelta{Scale: 2, Translation: Pt(5, 0), Origin: Pt(10, 10)})
	assert.Equal(t, Matrix2D{2, 0, 0, 2, 0, -10}, c.Transform())
	require.Len(t, *events, 1)
	assert.Equal(t, OpGesture, (*events)[0].Operation)

	c.ApplyGesture(GestureDelta{})
	assert.Len(t, *events, 1, "empty gesture does not commit")
}

func TestRestore(t *testing.T) {
	c := newTestController(t)
	c.Restore(2, 3, -40, 15)
	assert.Equal(t, Axis(2, 3, -40, 15), c.Transform())

	c.Restore(0, 1, 0, 0)
	assert.Equal(t, Axis(2, 3, -40, 15), c.Transform(), "zero zoom is refused")
}

func TestChangeEventFields(t *testing.T) {
	c := newTestController(t)
	events := recordEvents(c)

	c.ZoomRelative(2, 0, 0)
	c.PanDelta(3, 4)

	want := []ChangeEvent{
		{ZoomX: 2, ZoomY: 2, PreviousZoomX: 1, PreviousZoomY: 1, Operation: OpZoomRelative},
		{ZoomX: 2, ZoomY: 2, OffsetX: 6, OffsetY: 8, PreviousZoomX: 2, PreviousZoomY: 2, Operation: OpPanDelta},
	}
	if diff := cmp.Diff(want, *events, approx); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, (*events)[1].Changed())
}

func TestListenerRemoval(t *testing.T) {
	c := newTestController(t)
	n := 0
	remove := c.OnChange(func(ChangeEvent) { n++ })
	c.Reset()
	remove()
	c.Reset()
	assert.Equal(t, 1, n)
}

func TestReentrantCallsAreIgnored(t *testing.T) {
	c := newTestController(t)
	events := recordEvents(c)
	c.OnChange(func(ChangeEvent) {
		c.PanDelta(1000, 1000)
		c.ContinuePan(500, 500)
		c.BeginPan(500, 500)
	})

	c.BeginPan(0, 0)
	assert.Equal(t, Pt(10, 0), c.ContinuePan(10, 0))
	assert.Equal(t, Pt(10, 0), c.ContinuePan(20, 0), "pan origin survives listener feedback")
	assert.Equal(t, Translate(20, 0), c.Transform())
	assert.Len(t, *events, 2)
}

func TestScrollProjectionAndSetOffset(t *testing.T) {
	c := newTestController(t)
	require.NoError(t, c.AutoFit(Size{300, 300}, Size{300, 300}))

	var published []ScrollInfo
	c.OnScroll(func(s ScrollInfo) { published = append(published, s) })
	events := recordEvents(c)

	c.PanDelta(-100, 0)
	want := ScrollInfo{Extent: Size{400, 300}, Viewport: Size{300, 300}, Offset: Pt(100, 0)}
	assert.Equal(t, want, c.Scroll())
	require.Len(t, published, 1)
	assert.Equal(t, want, published[0])

	c.SetOffset(Pt(150, 0))
	assert.Equal(t, -150.0, c.OffsetX())
	assert.Equal(t, Pt(150, 0), c.Scroll().Offset)
	assert.Len(t, published, 1, "offset writes are not echoed back")
	require.Len(t, *events, 2)
	assert.Equal(t, OpScroll, (*events)[1].Operation)

	c.SetOffset(Pt(150, 0))
	assert.Len(t, *events, 2, "unchanged offset is ignored")
}

func TestSetOffsetWhileZoomed(t *testing.T) {
	tests := []struct {
		name    string
		zoom    float64
		offsetX float64
		offsetY float64
		write   Point
	}{
		{"zoomed in", 2, -100, 0, Pt(150, 0)},
		{"zoomed out", 0.5, -40, -20, Pt(10, 30)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestController(t)
			require.NoError(t, c.AutoFit(Size{300, 300}, Size{300, 300}))
			c.Restore(tt.zoom, tt.zoom, tt.offsetX, tt.offsetY)

			c.SetOffset(tt.write)
			assert.Equal(t, tt.write, c.Scroll().Offset)
			assert.Equal(t, -tt.write.X, c.OffsetX())
			assert.Equal(t, -tt.write.Y, c.OffsetY())
			assert.Equal(t, tt.zoom, c.ZoomX(), "scroll writes keep the zoom")
		})
	}
}

func TestNonFiniteInputsAreIgnored(t *testing.T) {
	c := newTestController(t)
	require.NoError(t, c.AutoFit(Size{300, 300}, Size{300, 300}))
	c.Restore(2, 2, -10, -10)
	before := c.Transform()
	events := recordEvents(c)

	nan, inf := math.NaN(), math.Inf(1)
	c.PanDelta(nan, 0)
	c.PanDelta(0, -inf)
	c.ZoomAbsolute(2, nan, 0)
	c.ZoomRelative(2, 0, inf)
	c.ApplyGesture(GestureDelta{Scale: 2, Origin: Pt(nan, 0)})
	c.ApplyGesture(GestureDelta{Translation: Pt(inf, 0)})
	c.SetOffset(Pt(nan, 0))
	c.Restore(1, 1, inf, 0)
	c.BeginPan(0, 0)
	c.ContinuePan(nan, 0)
	c.EndPan()

	assert.Equal(t, before, c.Transform())
	assert.Empty(t, *events)
}

func TestSetOffsetFromListenerIsIgnored(t *testing.T) {
	c := newTestController(t)
	require.NoError(t, c.AutoFit(Size{300, 300}, Size{300, 300}))
	c.OnScroll(func(s ScrollInfo) {
		// A naive scroll container echoing every update back.
		c.SetOffset(Pt(s.Offset.X+1, s.Offset.Y))
	})

	c.PanDelta(-100, 0)
	assert.Equal(t, -100.0, c.OffsetX())
}

func TestContentPoint(t *testing.T) {
	c := newTestController(t)
	c.Restore(2, 2, 10, 10)

	p, err := c.ContentPoint(Pt(30, 30))
	require.NoError(t, err)
	assert.Equal(t, Pt(10, 10), p)

	v, err := c.ContentVector(Pt(30, 30))
	require.NoError(t, err)
	assert.Equal(t, Pt(15, 15), v)
}

func TestContentPointSingular(t *testing.T) {
	b := Unbounded()
	b.MinZoomX, b.MaxZoomX = 0, 0
	c := newTestController(t, WithConstraints(b))
	c.Reset()
	require.Equal(t, 0.0, c.ZoomX())

	_, err := c.ContentPoint(Pt(1, 1))
	assert.True(t, errors.Is(err, ErrSingularMatrix))
}

func TestSetBounds(t *testing.T) {
	c := newTestController(t)
	c.ZoomRelative(10, 0, 0)

	b := Unbounded()
	b.MaxZoomX, b.MaxZoomY = 4, 4
	require.NoError(t, c.SetBounds(b))
	assert.Equal(t, 10.0, c.ZoomX(), "disabled constraints do not clamp")

	c.SetConstraintsEnabled(true)
	assert.Equal(t, 4.0, c.ZoomX())

	bad := Unbounded()
	bad.MinOffsetX, bad.MaxOffsetX = 1, -1
	err := c.SetBounds(bad)
	assert.True(t, errors.Is(err, ErrInvalidRange))
	assert.Equal(t, b, c.Bounds(), "invalid bounds are not installed")
}

func TestStateJSON(t *testing.T) {
	c := newTestController(t)
	c.SetStretchMode(StretchUniform)
	c.Restore(2, 2, 0, 0)

	s := c.StateJSON()
	assert.True(t, strings.Contains(s, `"stretch":"uniform"`), s)
	assert.True(t, strings.Contains(s, `"transform":[2,0,0,2,0,0]`), s)
	assert.True(t, strings.Contains(s, `"phase":"idle"`), s)

	js, err := EventJSON(ChangeEvent{ZoomX: 1, Operation: OpReset})
	require.NoError(t, err)
	assert.True(t, strings.Contains(js, `"operation":"reset"`), js)
	assert.False(t, strings.Contains(js, "transition"), js)
}

func TestWheelIgnoresNaN(t *testing.T) {
	c := newTestController(t)
	c.ZoomByWheelDelta(math.NaN(), 0, 0)
	c.ZoomRelative(math.Inf(1), 0, 0)
	c.ZoomRelative(-1, 0, 0)
	assert.Equal(t, Identity(), c.Transform())
}
