package engine

import "math"

// Point is a position in viewport or content coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height pair supplied by the host for panels and content.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect represents an axis-aligned bounding box.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Add returns p + q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// IsDegenerate reports whether either dimension is zero, negative or NaN.
func (s Size) IsDegenerate() bool {
	return !(s.Width > 0) || !(s.Height > 0) || math.IsInf(s.Width, 0) || math.IsInf(s.Height, 0)
}

// Center returns the midpoint of the extent.
func (s Size) Center() Point {
	return Point{X: s.Width / 2, Y: s.Height / 2}
}

// Bounds returns the rect at the origin with this size.
func (s Size) Bounds() Rect {
	return Rect{Width: s.Width, Height: s.Height}
}

// Size returns the rect's extent.
func (r Rect) Size() Size {
	return Size{Width: r.Width, Height: r.Height}
}
