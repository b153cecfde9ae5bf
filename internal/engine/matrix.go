package engine

import (
	"fmt"
	"math"
)

// singularEpsilon is the determinant magnitude below which Invert refuses.
const singularEpsilon = 1e-12

// Matrix2D represents a 2D affine transformation matrix.
// Layout: [m11, m12, m21, m22, dx, dy] using the row-vector convention:
//
//	p' = p · | m11 m12 | + (dx, dy)
//	         | m21 m22 |
//
// so x' = m11*x + m21*y + dx and y' = m12*x + m22*y + dy.
// The viewport engine only produces axis-aligned transforms (m12 == m21 == 0)
// but composition and inversion are general.
type Matrix2D [6]float64

// Identity returns the identity matrix.
func Identity() Matrix2D {
	return Matrix2D{1, 0, 0, 1, 0, 0}
}

// Translate returns a translation matrix.
func Translate(dx, dy float64) Matrix2D {
	return Matrix2D{1, 0, 0, 1, dx, dy}
}

// Scale returns a scale matrix about the origin.
func Scale(sx, sy float64) Matrix2D {
	return Matrix2D{sx, 0, 0, sy, 0, 0}
}

// ScaleAt returns a scale matrix that keeps (cx, cy) fixed.
func ScaleAt(sx, sy, cx, cy float64) Matrix2D {
	return Matrix2D{sx, 0, 0, sy, cx - sx*cx, cy - sy*cy}
}

// Axis returns an axis-aligned matrix from zoom and offset scalars.
func Axis(zoomX, zoomY, offsetX, offsetY float64) Matrix2D {
	return Matrix2D{zoomX, 0, 0, zoomY, offsetX, offsetY}
}

// Compose returns the row-vector product a · b: a point is transformed by a
// first, then by b. Compose(delta, current) prepends delta to current.
func Compose(a, b Matrix2D) Matrix2D {
	return Matrix2D{
		a[0]*b[0] + a[1]*b[2],        // m11
		a[0]*b[1] + a[1]*b[3],        // m12
		a[2]*b[0] + a[3]*b[2],        // m21
		a[2]*b[1] + a[3]*b[3],        // m22
		a[4]*b[0] + a[5]*b[2] + b[4], // dx
		a[4]*b[1] + a[5]*b[3] + b[5], // dy
	}
}

// Prepend returns Compose(other, m): other is applied before m.
func (m Matrix2D) Prepend(other Matrix2D) Matrix2D {
	return Compose(other, m)
}

// Append returns Compose(m, other): other is applied after m.
func (m Matrix2D) Append(other Matrix2D) Matrix2D {
	return Compose(m, other)
}

// M11 returns the horizontal scale.
func (m Matrix2D) M11() float64 { return m[0] }

// M12 returns the first off-diagonal term.
func (m Matrix2D) M12() float64 { return m[1] }

// M21 returns the second off-diagonal term.
func (m Matrix2D) M21() float64 { return m[2] }

// M22 returns the vertical scale.
func (m Matrix2D) M22() float64 { return m[3] }

// OffsetX returns the horizontal translation.
func (m Matrix2D) OffsetX() float64 { return m[4] }

// OffsetY returns the vertical translation.
func (m Matrix2D) OffsetY() float64 { return m[5] }

// TransformPoint applies the matrix to a point.
func (m Matrix2D) TransformPoint(p Point) Point {
	return Point{
		X: m[0]*p.X + m[2]*p.Y + m[4],
		Y: m[1]*p.X + m[3]*p.Y + m[5],
	}
}

// TransformVector applies the linear part only (no translation).
func (m Matrix2D) TransformVector(v Point) Point {
	return Point{
		X: m[0]*v.X + m[2]*v.Y,
		Y: m[1]*v.X + m[3]*v.Y,
	}
}

// TransformRect transforms a rectangle and returns its axis-aligned bounding box.
func (m Matrix2D) TransformRect(r Rect) Rect {
	p0 := m.TransformPoint(Point{r.X, r.Y})
	p1 := m.TransformPoint(Point{r.X + r.Width, r.Y})
	p2 := m.TransformPoint(Point{r.X + r.Width, r.Y + r.Height})
	p3 := m.TransformPoint(Point{r.X, r.Y + r.Height})

	minX := min(p0.X, p1.X, p2.X, p3.X)
	minY := min(p0.Y, p1.Y, p2.Y, p3.Y)
	maxX := max(p0.X, p1.X, p2.X, p3.X)
	maxY := max(p0.Y, p1.Y, p2.Y, p3.Y)

	return Rect{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX,
		Height: maxY - minY,
	}
}

// Determinant returns the determinant of the linear part.
func (m Matrix2D) Determinant() float64 {
	return m[0]*m[3] - m[1]*m[2]
}

// Invert returns the inverse of the matrix.
func (m Matrix2D) Invert() (Matrix2D, error) {
	det := m.Determinant()
	if math.Abs(det) < singularEpsilon || math.IsNaN(det) {
		return Identity(), fmt.Errorf("invert %v: %w", m, ErrSingularMatrix)
	}

	invDet := 1.0 / det
	return Matrix2D{
		m[3] * invDet,
		-m[1] * invDet,
		-m[2] * invDet,
		m[0] * invDet,
		(m[2]*m[5] - m[3]*m[4]) * invDet,
		(m[1]*m[4] - m[0]*m[5]) * invDet,
	}, nil
}

// ToSlice returns the matrix as a float64 slice for JSON serialization.
func (m Matrix2D) ToSlice() []float64 {
	return []float64{m[0], m[1], m[2], m[3], m[4], m[5]}
}
