package world

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/storechase/server/internal/geom"
)

// Transform is a character's resolved pose. Position is the ground-contact
// point; Facing is a rotation about Y only.
type Transform struct {
	Position mgl64.Vec3
	Facing   mgl64.Quat
}

func NewTransform(pos mgl64.Vec3) Transform {
	return Transform{Position: pos, Facing: mgl64.QuatIdent()}
}

// Yaw is the facing angle in radians; 0 looks down +Z.
func (t Transform) Yaw() float64 { return geom.Yaw(t.Facing) }
