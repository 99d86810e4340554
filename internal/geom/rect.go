package geom

import "github.com/go-gl/mathgl/mgl64"

// Vector is a 2D displacement in world units.
type Vector = mgl64.Vec2

// Point is a 2D position in world units.
type Point = mgl64.Vec2

// AaRect represents an axis-aligned rectangle anchored at its top-left corner.
type AaRect struct {
	TopLeft Point  `json:"topLeft" msgpack:"topLeft"`
	Size    Vector `json:"size" msgpack:"size"`
}

// NewTopLeft builds a rectangle from its top-left corner and size.
func NewTopLeft(topLeft Point, size Vector) AaRect {
	return AaRect{TopLeft: topLeft, Size: size}
}

// NewCenter builds a rectangle of the given size centered on center.
func NewCenter(center Point, size Vector) AaRect {
	return AaRect{TopLeft: center.Sub(size.Mul(0.5)), Size: size}
}

// BottomRight returns the corner opposite TopLeft.
func (r AaRect) BottomRight() Point {
	return r.TopLeft.Add(r.Size)
}

// Center returns the midpoint of the rectangle.
func (r AaRect) Center() Point {
	return r.TopLeft.Add(r.Size.Mul(0.5))
}

// ContainsPoint reports whether p lies inside the rectangle, edges included.
func (r AaRect) ContainsPoint(p Point) bool {
	br := r.BottomRight()
	return p[0] >= r.TopLeft[0] && p[0] <= br[0] &&
		p[1] >= r.TopLeft[1] && p[1] <= br[1]
}

// Overlaps checks for AABB overlap between two rectangles.
func (r AaRect) Overlaps(other AaRect) bool {
	a := r.BottomRight()
	b := other.BottomRight()
	return r.TopLeft[0] < b[0] && a[0] > other.TopLeft[0] &&
		r.TopLeft[1] < b[1] && a[1] > other.TopLeft[1]
}

// Clamp limits value to the range [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
