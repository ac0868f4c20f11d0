package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// up is the world Y axis; every facing in the game is a rotation about it.
var up = mgl64.Vec3{0, 1, 0}

// PlanarDistSq is the squared distance between a and b on the ground (XZ)
// plane. Height is ignored.
func PlanarDistSq(a, b mgl64.Vec3) float64 {
	dx := a[0] - b[0]
	dz := a[2] - b[2]
	return dx*dx + dz*dz
}

// PlanarDist is the ground-plane distance between a and b.
func PlanarDist(a, b mgl64.Vec3) float64 {
	return math.Sqrt(PlanarDistSq(a, b))
}

// YawQuat returns a rotation of yaw radians about the Y axis.
func YawQuat(yaw float64) mgl64.Quat {
	return mgl64.QuatRotate(yaw, up)
}

// Yaw extracts the rotation angle about Y from a yaw-only quaternion.
// The result is in (-pi, pi].
func Yaw(q mgl64.Quat) float64 {
	yaw := 2 * math.Atan2(q.V[1], q.W)
	if yaw > math.Pi {
		yaw -= 2 * math.Pi
	} else if yaw <= -math.Pi {
		yaw += 2 * math.Pi
	}
	return yaw
}

// SlerpShortest interpolates from a toward b by t along the shorter arc.
// mgl64.QuatSlerp does not flip hemispheres on its own, so b is negated when
// the two rotations sit on opposite sides.
func SlerpShortest(a, b mgl64.Quat, t float64) mgl64.Quat {
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl64.QuatSlerp(a, b, t).Normalize()
}

// IsFinite reports whether every component of v is a finite number.
func IsFinite(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
