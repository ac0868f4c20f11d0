package system

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/storechase/server/internal/scripting"
)

func point(v mgl64.Vec3) scripting.Point {
	return scripting.Point{X: v[0], Y: v[1], Z: v[2]}
}
