package softengine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSceneFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSceneDescriptor(t *testing.T) {
	t.Run("full document", func(t *testing.T) {
		path := writeSceneFile(t, `
name: warehouse
room:
  width: 24
  height: 8
  depth: 16
absorption: 0.15
readiness_delay_frames: 5
probes:
  - name: loading-dock
    center: [8, 2, 0]
    radius: 6
  - name: office
    center: [-10, 2, 4]
    radius: 3
`)
		desc, err := LoadSceneDescriptor(path)
		require.NoError(t, err)

		assert.Equal(t, "warehouse", desc.Name)
		assert.Equal(t, 24.0, desc.Room.Width)
		assert.Equal(t, 8.0, desc.Room.Height)
		assert.Equal(t, 16.0, desc.Room.Depth)
		assert.Equal(t, 0.15, desc.Absorption)
		assert.Equal(t, 5, desc.ReadinessDelayFrames)
		require.Len(t, desc.Probes, 2)
		assert.Equal(t, "loading-dock", desc.Probes[0].Name)
		assert.Equal(t, [3]float32{8, 2, 0}, desc.Probes[0].Center)
		assert.Equal(t, float32(6), desc.Probes[0].Radius)
	})

	t.Run("minimal document gets defaults", func(t *testing.T) {
		desc, err := LoadSceneDescriptor(writeSceneFile(t, "name: bare\n"))
		require.NoError(t, err)

		assert.Equal(t, "bare", desc.Name)
		assert.Equal(t, 10.0, desc.Room.Width)
		assert.Equal(t, 3.0, desc.Room.Height)
		assert.Equal(t, 10.0, desc.Room.Depth)
		assert.Equal(t, 0.3, desc.Absorption)
		assert.Zero(t, desc.ReadinessDelayFrames)

		require.Len(t, desc.Probes, 1, "a probe must be synthesized for probe-less scenes")
		assert.Equal(t, "center", desc.Probes[0].Name)
		assert.Equal(t, [3]float32{0, 1.5, 0}, desc.Probes[0].Center)
		assert.Equal(t, float32(5), desc.Probes[0].Radius)
	})

	t.Run("absorption is clamped", func(t *testing.T) {
		desc, err := LoadSceneDescriptor(writeSceneFile(t, "absorption: 3.5\n"))
		require.NoError(t, err)
		assert.Equal(t, 0.95, desc.Absorption)

		desc, err = LoadSceneDescriptor(writeSceneFile(t, "absorption: 0.001\n"))
		require.NoError(t, err)
		assert.Equal(t, 0.05, desc.Absorption)
	})

	t.Run("negative readiness delay resets to zero", func(t *testing.T) {
		desc, err := LoadSceneDescriptor(writeSceneFile(t, "readiness_delay_frames: -3\n"))
		require.NoError(t, err)
		assert.Zero(t, desc.ReadinessDelayFrames)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadSceneDescriptor(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := LoadSceneDescriptor(writeSceneFile(t, "room: [not, a, mapping\n"))
		require.Error(t, err)
	})
}

func TestSceneGeometry(t *testing.T) {
	desc := &SceneDescriptor{
		Room:       RoomDimensions{Width: 10, Height: 3, Depth: 10},
		Absorption: 0.3,
	}

	assert.Equal(t, 300.0, desc.Volume())
	assert.Equal(t, 2*(10*3+10*10+3*10.0), desc.SurfaceArea())
	assert.Equal(t, 10.0, desc.MaxDimension())
}

func TestReverbTime(t *testing.T) {
	t.Run("sabine estimate", func(t *testing.T) {
		desc := &SceneDescriptor{
			Room:       RoomDimensions{Width: 10, Height: 3, Depth: 10},
			Absorption: 0.3,
		}
		rt := desc.ReverbTime()
		assert.InDelta(t, 0.161*300/(0.3*320), rt, 1e-9)
	})

	t.Run("more absorption means a shorter tail", func(t *testing.T) {
		live := &SceneDescriptor{Room: RoomDimensions{Width: 20, Height: 6, Depth: 20}, Absorption: 0.1}
		dead := &SceneDescriptor{Room: RoomDimensions{Width: 20, Height: 6, Depth: 20}, Absorption: 0.8}
		assert.Greater(t, live.ReverbTime(), dead.ReverbTime())
	})

	t.Run("clamped to the handled range", func(t *testing.T) {
		cathedral := &SceneDescriptor{Room: RoomDimensions{Width: 100, Height: 40, Depth: 200}, Absorption: 0.05}
		assert.Equal(t, 8.0, cathedral.ReverbTime())

		booth := &SceneDescriptor{Room: RoomDimensions{Width: 1, Height: 1, Depth: 1}, Absorption: 0.95}
		assert.Equal(t, 0.2, booth.ReverbTime())
	})
}

func TestProbeRegions(t *testing.T) {
	desc := DefaultScene()
	regions := desc.ProbeRegions()

	require.Len(t, regions, 1)
	assert.Equal(t, "center", regions[0].Name)
	assert.Equal(t, desc.Probes[0].Center, regions[0].Center)
	assert.Equal(t, desc.Probes[0].Radius, regions[0].Radius)
}
