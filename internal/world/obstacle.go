package world

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/storechase/server/internal/geom"
)

// Category tags an obstacle for presentation. Collision treats every
// category the same.
type Category uint8

const (
	CategoryWall Category = iota
	CategoryProp
)

func (c Category) String() string {
	switch c {
	case CategoryWall:
		return "wall"
	case CategoryProp:
		return "prop"
	}
	return fmt.Sprintf("category(%d)", uint8(c))
}

// ParseCategory maps a level-file category name. An empty name is a wall.
func ParseCategory(s string) (Category, error) {
	switch s {
	case "", "wall":
		return CategoryWall, nil
	case "prop":
		return CategoryProp, nil
	}
	return 0, fmt.Errorf("unknown obstacle category %q", s)
}

// Obstacle is a piece of static level geometry. Extent is the full size on
// each axis.
type Obstacle struct {
	Center   mgl64.Vec3
	Extent   mgl64.Vec3
	Category Category
	Color    string // presentation only
}

func NewObstacle(center, extent mgl64.Vec3, cat Category) Obstacle {
	return Obstacle{
		Center:   center,
		Extent:   extent,
		Category: cat,
	}
}

// Bounds is the obstacle's collision box.
func (o Obstacle) Bounds() geom.AABB {
	return geom.FromCenterExtent(o.Center, o.Extent)
}
