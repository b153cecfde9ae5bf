package engine

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func TestInvertRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		m    Matrix2D
	}{
		{"identity", Identity()},
		{"translation", Translate(10, -20)},
		{"scale at", ScaleAt(2, 3, 10, 20)},
		{"scale then translate", Compose(ScaleAt(0.25, 4, -3, 7), Translate(5, -7))},
		{"general", Matrix2D{1, 2, 3, 4, 5, 6}},
		{"tiny but regular", Scale(1e-3, 1e-3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := tt.m.Invert()
			require.NoError(t, err)
			if diff := cmp.Diff(Identity(), Compose(tt.m, inv), approx); diff != "" {
				t.Errorf("m·m⁻¹ mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(Identity(), Compose(inv, tt.m), approx); diff != "" {
				t.Errorf("m⁻¹·m mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInvertSingular(t *testing.T) {
	for _, m := range []Matrix2D{Scale(0, 1), Scale(1, 0), {}, {1, 2, 2, 4, 0, 0}} {
		_, err := m.Invert()
		assert.True(t, errors.Is(err, ErrSingularMatrix), "Invert(%v) = %v", m, err)
	}
}

func TestScaleAtFixedPoint(t *testing.T) {
	tests := []struct{ sx, sy, cx, cy float64 }{
		{2, 2, 0, 0},
		{2, 3, 10, 20},
		{0.5, 0.25, -40, 13},
		{10, 0.1, 1e4, -1e4},
		{1, 1, 5, 5},
	}
	for _, tt := range tests {
		c := Pt(tt.cx, tt.cy)
		got := ScaleAt(tt.sx, tt.sy, tt.cx, tt.cy).TransformPoint(c)
		if diff := cmp.Diff(c, got, approx); diff != "" {
			t.Errorf("ScaleAt(%v) moved its center (-want +got):\n%s", tt, diff)
		}
	}
}

func TestComposeOrder(t *testing.T) {
	p := Pt(1, 1)

	// Translate first, then scale.
	got := Compose(Translate(10, 0), Scale(2, 2)).TransformPoint(p)
	assert.Equal(t, Pt(22, 2), got)

	// Scale first, then translate.
	got = Compose(Scale(2, 2), Translate(10, 0)).TransformPoint(p)
	assert.Equal(t, Pt(12, 2), got)

	m := Scale(3, 3)
	assert.Equal(t, Compose(Translate(1, 1), m), m.Prepend(Translate(1, 1)))
	assert.Equal(t, Compose(m, Translate(1, 1)), m.Append(Translate(1, 1)))
}

func TestComposeAssociative(t *testing.T) {
	a := ScaleAt(2, 3, 4, 5)
	b := Translate(-7, 11)
	c := Matrix2D{1, 0.5, -0.25, 2, 3, -1}
	if diff := cmp.Diff(Compose(Compose(a, b), c), Compose(a, Compose(b, c)), approx); diff != "" {
		t.Errorf("compose not associative (-left +right):\n%s", diff)
	}
}

func TestTransformRect(t *testing.T) {
	r := Rect{X: 0, Y: 0, Width: 10, Height: 5}
	got := Axis(2, 3, 1, 1).TransformRect(r)
	assert.Equal(t, Rect{X: 1, Y: 1, Width: 20, Height: 15}, got)

	// Negative scale flips but the bounding box stays positive.
	got = Scale(-1, 1).TransformRect(r)
	assert.Equal(t, Rect{X: -10, Y: 0, Width: 10, Height: 5}, got)
}

func TestTransformVectorIgnoresTranslation(t *testing.T) {
	m := Axis(2, 4, 100, 200)
	assert.Equal(t, Pt(2, 4), m.TransformVector(Pt(1, 1)))
}
