package softengine

import (
	"math"
	"time"

	"github.com/izzarra/Vertigini-VR/internal/spatial"
)

// Spatializer is the soft binaural rendering context. It has no warm-up of
// its own and reports ready from construction.
type Spatializer struct{}

func NewSpatializer() *Spatializer { return &Spatializer{} }

func (s *Spatializer) Ready() bool { return true }

// OrbitTransform supplies a listener pose moving on a horizontal circle
// around the room center, facing inward. It gives the frame-update path a
// continuously changing pose without host input.
type OrbitTransform struct {
	radius float64
	height float64
	period time.Duration
	start  time.Time
}

// NewOrbitTransform builds a transform orbiting at the given radius and
// height, completing one revolution per period.
func NewOrbitTransform(radius, height float64, period time.Duration) *OrbitTransform {
	if radius <= 0 {
		radius = 2
	}
	if period <= 0 {
		period = 30 * time.Second
	}
	return &OrbitTransform{
		radius: radius,
		height: height,
		period: period,
		start:  time.Now(),
	}
}

func (o *OrbitTransform) Pose() spatial.Pose {
	angle := 2 * math.Pi * time.Since(o.start).Seconds() / o.period.Seconds()
	sin, cos := math.Sincos(angle)
	return spatial.Pose{
		Position: [3]float32{float32(o.radius * cos), float32(o.height), float32(o.radius * sin)},
		Forward:  [3]float32{float32(-cos), 0, float32(-sin)},
		Up:       [3]float32{0, 1, 0},
	}
}
