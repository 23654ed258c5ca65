package spatial

// ReverbStreamID is the reserved stream identifier that namespaces the
// listener's reverb stream. The realtime render path and the bake path both
// tag their work with it so baked assets line up with the stream that
// consumes them.
const ReverbStreamID = "listener-reverb-stream"

// LifecycleState tracks the listener through lazy initialization and teardown.
type LifecycleState int32

const (
	// StateUninitialized means required dependencies were absent at
	// construction. The listener stays in this state permanently and renders
	// silence.
	StateUninitialized LifecycleState = iota
	// StateInitializing means dependencies are present and the listener is
	// polling for the environment and spatializer to become ready.
	StateInitializing
	// StateReady means the simulator and mixer are constructed and rendering
	// is live.
	StateReady
	// StateDestroying means Detach has begun releasing resources.
	StateDestroying
	// StateDestroyed means teardown finished.
	StateDestroyed
)

// String returns a human-readable state name for logs and status reports.
func (s LifecycleState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateDestroying:
		return "destroying"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// MixingMode selects how the render path treats the output buffer. The mode
// is derived from the reverb and accelerated configuration flags on every
// render call and never stored.
type MixingMode int

const (
	// MixingDisabled passes the input through unchanged.
	MixingDisabled MixingMode = iota
	// MixingRealtimeReverbBlend blends the dry input with the simulator's wet
	// signal sample by sample.
	MixingRealtimeReverbBlend
	// MixingAccelerated delegates the whole output to the indirect mixer.
	MixingAccelerated
)

// String returns a metrics-friendly mode name.
func (m MixingMode) String() string {
	switch m {
	case MixingDisabled:
		return "disabled"
	case MixingRealtimeReverbBlend:
		return "reverb_blend"
	case MixingAccelerated:
		return "accelerated"
	default:
		return "unknown"
	}
}

// Pose is the listener transform snapshot taken once per frame tick. The
// render path reads the most recently published snapshot; a block rendered
// during a tick may use the previous frame's pose, which is acceptable
// position jitter of one block.
type Pose struct {
	Position [3]float32
	Forward  [3]float32
	Up       [3]float32
}

// AudioFormat describes the stream the listener renders.
type AudioFormat struct {
	SampleRate int
	Channels   int
	BlockSize  int
}

// RenderSettings carries the mode flags the simulator and mixer need at
// initialization time.
type RenderSettings struct {
	StreamID        string
	ReverbEnabled   bool
	BinauralEnabled bool
	ReverbType      string
	Simulation      string
}

// LazyInitParams is passed to the simulator and mixer once the environment
// scene resolves.
type LazyInitParams struct {
	Scene    SceneHandle
	Format   AudioFormat
	Settings RenderSettings
}

// FrameParams is passed to the simulator on every frame tick.
type FrameParams struct {
	Pose            Pose
	ReverbEnabled   bool
	MixFraction     float32
	BinauralEnabled bool
}

// ProbeRegion names a bakeable volume in the scene.
type ProbeRegion struct {
	Name   string
	Center [3]float32
	Radius float32
}

// BakeMode selects what a bake job precomputes.
type BakeMode string

// BakeModeReverb bakes per-probe reverb impulse responses.
const BakeModeReverb BakeMode = "reverb"

// BakeRequest describes one bake job handed to the baker. An empty Regions
// slice means the baker should cover every probe region it can see.
type BakeRequest struct {
	Regions  []ProbeRegion
	Mode     BakeMode
	StreamID string
}

// Status is a read-only snapshot of the listener for the API and tests.
type Status struct {
	State             LifecycleState `json:"state"`
	Mode              MixingMode     `json:"-"`
	ModeName          string         `json:"mode"`
	FramesAdvanced    uint64         `json:"frames_advanced"`
	RendersServed     uint64         `json:"renders_served"`
	SilenceRenders    uint64         `json:"silence_renders"`
	DiagnosticFired   bool           `json:"diagnostic_fired"`
	AcceleratedReady  bool           `json:"accelerated_ready"`
	DryMixFraction    float32        `json:"dry_mix_fraction"`
	ReverbMixFraction float32        `json:"reverb_mix_fraction"`
}
