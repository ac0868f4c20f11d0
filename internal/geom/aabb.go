package geom

import "github.com/go-gl/mathgl/mgl64"

// AABB is an axis-aligned bounding box. It is the only collision primitive
// the simulation uses.
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// FromCenterExtent builds a box around center. extent is the full
// width/height/depth, not the half extent.
func FromCenterExtent(center, extent mgl64.Vec3) AABB {
	half := extent.Mul(0.5)
	return AABB{
		Min: center.Sub(half),
		Max: center.Add(half),
	}
}

// Center returns the midpoint of the box.
func (b AABB) Center() mgl64.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Extent returns the full size of the box on each axis.
func (b AABB) Extent() mgl64.Vec3 {
	return b.Max.Sub(b.Min)
}

// Intersects reports whether a and b overlap on all three axes. Touching
// faces count as an overlap. A zero-extent box behaves as a point.
func Intersects(a, b AABB) bool {
	for i := 0; i < 3; i++ {
		if a.Max[i] < b.Min[i] || a.Min[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// Intersects is the method form of the package-level Intersects.
func (b AABB) Intersects(other AABB) bool {
	return Intersects(b, other)
}

// ContainsPoint reports whether p lies inside or on the surface of b.
func (b AABB) ContainsPoint(p mgl64.Vec3) bool {
	return p[0] >= b.Min[0] && p[0] <= b.Max[0] &&
		p[1] >= b.Min[1] && p[1] <= b.Max[1] &&
		p[2] >= b.Min[2] && p[2] <= b.Max[2]
}
