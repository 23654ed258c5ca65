package softengine

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOrbitTransformPose(t *testing.T) {
	o := NewOrbitTransform(3, 1.7, time.Minute)

	pose := o.Pose()
	radius := math.Hypot(float64(pose.Position[0]), float64(pose.Position[2]))
	assert.InDelta(t, 3.0, radius, 1e-3)
	assert.InDelta(t, 1.7, float64(pose.Position[1]), 1e-6)
	assert.Equal(t, [3]float32{0, 1, 0}, pose.Up)

	// Facing inward: forward opposes the horizontal position.
	dot := pose.Position[0]*pose.Forward[0] + pose.Position[2]*pose.Forward[2]
	assert.Less(t, dot, float32(0))
}

func TestOrbitTransformDefaults(t *testing.T) {
	o := NewOrbitTransform(0, 0, 0)

	pose := o.Pose()
	radius := math.Hypot(float64(pose.Position[0]), float64(pose.Position[2]))
	assert.InDelta(t, 2.0, radius, 1e-3)
}
