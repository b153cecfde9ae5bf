package engine

import (
	"fmt"
	"math"
)

// Bounds holds the constraint ranges applied when constraints are enabled.
// Every range defaults to (-Inf, +Inf).
type Bounds struct {
	MinZoomX   float64 `json:"minZoomX"`
	MaxZoomX   float64 `json:"maxZoomX"`
	MinZoomY   float64 `json:"minZoomY"`
	MaxZoomY   float64 `json:"maxZoomY"`
	MinOffsetX float64 `json:"minOffsetX"`
	MaxOffsetX float64 `json:"maxOffsetX"`
	MinOffsetY float64 `json:"minOffsetY"`
	MaxOffsetY float64 `json:"maxOffsetY"`
}

// Unbounded returns bounds that accept every transform.
func Unbounded() Bounds {
	inf := math.Inf(1)
	return Bounds{
		MinZoomX: -inf, MaxZoomX: inf,
		MinZoomY: -inf, MaxZoomY: inf,
		MinOffsetX: -inf, MaxOffsetX: inf,
		MinOffsetY: -inf, MaxOffsetY: inf,
	}
}

// Validate reports ErrInvalidRange for the first axis with min > max.
func (b Bounds) Validate() error {
	ranges := []struct {
		name     string
		min, max float64
	}{
		{"zoomX", b.MinZoomX, b.MaxZoomX},
		{"zoomY", b.MinZoomY, b.MaxZoomY},
		{"offsetX", b.MinOffsetX, b.MaxOffsetX},
		{"offsetY", b.MinOffsetY, b.MaxOffsetY},
	}
	for _, r := range ranges {
		if math.IsNaN(r.min) || math.IsNaN(r.max) || r.min > r.max {
			return fmt.Errorf("%s [%g, %g]: %w", r.name, r.min, r.max, ErrInvalidRange)
		}
	}
	return nil
}

// Clamp forces t into b. Scale and translation components are clamped
// independently and the off-diagonal terms are zeroed.
func Clamp(t Matrix2D, b Bounds) (Matrix2D, error) {
	if err := b.Validate(); err != nil {
		return t, err
	}
	return Matrix2D{
		clampFloat(t[0], b.MinZoomX, b.MaxZoomX),
		0,
		0,
		clampFloat(t[3], b.MinZoomY, b.MaxZoomY),
		clampFloat(t[4], b.MinOffsetX, b.MaxOffsetX),
		clampFloat(t[5], b.MinOffsetY, b.MaxOffsetY),
	}, nil
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
