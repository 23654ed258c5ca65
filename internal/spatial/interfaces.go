package spatial

import (
	"context"
	"log/slog"

	"github.com/izzarra/Vertigini-VR/internal/observability/metrics"
)

// SceneHandle is a non-owning reference to scene geometry held by the
// environment. An invalid handle means the scene has not finished loading or
// exporting; the listener keeps polling until it turns valid.
type SceneHandle interface {
	Valid() bool
}

// Environment owns scene geometry and the environmental renderer. The
// listener never frees it.
type Environment interface {
	// ResolveScene returns the current scene handle. The handle may be
	// invalid for any number of frames while the scene streams in.
	ResolveScene() SceneHandle
	// RendererReady reports whether the environmental renderer can accept
	// simulation work.
	RendererReady() bool
	// ProbeRegions lists every bakeable probe region in the scene.
	ProbeRegions() []ProbeRegion
}

// Spatializer is an opaque handle to the binaural rendering context.
type Spatializer interface {
	Ready() bool
}

// IndirectSimulator drives the non-accelerated reverb simulation. Its
// AudioFrameUpdate is called under the listener's render lock; everything
// else runs on the frame path. Implementations guard their own internal
// state against the frame/render overlap.
type IndirectSimulator interface {
	Initialize(format AudioFormat, settings RenderSettings) error
	LazyInitialize(params LazyInitParams) error
	// FrameUpdate advances the simulation one frame. Never called
	// concurrently with itself.
	FrameUpdate(params FrameParams)
	// AudioFrameUpdate produces the wet signal for one block. A nil or empty
	// return means no wet signal is available yet.
	AudioFrameUpdate(buffer []float32, channels int, pose Pose, reverbEnabled bool, mixFraction float32, binauralEnabled bool) []float32
	Flush()
	Destroy()
}

// IndirectMixer drives the accelerated mixing path. Its AudioFrameUpdate
// writes final output directly into the buffer; the listener applies no
// blend on top.
type IndirectMixer interface {
	Initialize(format AudioFormat, settings RenderSettings) error
	LazyInitialize(params LazyInitParams) error
	AudioFrameUpdate(buffer []float32, channels int, scene SceneHandle, pose Pose, binauralEnabled bool)
	Flush()
	Destroy()
}

// Baker performs offline probe-based reverb baking. Bake control is
// fire-and-forget and never touches the render path.
type Baker interface {
	// BeginBake starts a bake job and returns its identifier without waiting
	// for completion.
	BeginBake(ctx context.Context, req BakeRequest) (string, error)
	// EndBake cancels any in-flight bake job.
	EndBake()
}

// Transform supplies the listener pose once per frame tick.
type Transform interface {
	Pose() Pose
}

// Dependencies carries everything a listener consumes. Environment and
// Spatializer are required; a missing simulator or mixer is only an error
// when the configured mode needs it. Logger and Metrics may be nil.
type Dependencies struct {
	Environment Environment
	Spatializer Spatializer
	Simulator   IndirectSimulator
	Mixer       IndirectMixer
	Baker       Baker
	Transform   Transform
	Logger      *slog.Logger
	Metrics     *metrics.SpatialMetrics
}
