// Package spatial implements the audio listener runtime for Vertigini-VR.
// A Listener binds one audio stream to an environment scene, lazily
// initializes its indirect-sound engines, renders audio blocks in place, and
// tears everything down on detach.
//
// # Architecture Overview
//
// The package is built around a small set of injected contracts:
//
//   - Environment: owns scene geometry and the environmental renderer
//   - Spatializer: the binaural rendering context
//   - IndirectSimulator: realtime reverb simulation (blend path)
//   - IndirectMixer: accelerated mixing (delegated full-output path)
//   - Baker: offline probe-based reverb baking
//   - Transform: per-frame listener pose source
//
// The Listener never constructs these itself; the host wires them in through
// Dependencies and keeps ownership of the environment and spatializer. The
// mixing mode is derived from the configuration flags on every render call:
// accelerated mixing wins over the realtime reverb blend, and with neither
// flag set the listener passes audio through unchanged.
//
// # Lifecycle
//
// A listener moves through five states:
//
//	Uninitialized -> Initializing -> Ready -> Destroying -> Destroyed
//
// Construction with a missing required dependency parks the listener in
// Uninitialized permanently; it logs the problem once and renders silence.
// Initializing listeners poll for scene and renderer readiness on every
// frame tick and flip to Ready exactly once, after the simulator and mixer
// are constructed and published. Detach owns the two terminal states.
//
// # Concurrency Model
//
// Three goroutines touch a listener concurrently:
//
//   - the scheduler goroutine calling FrameUpdate once per host frame
//   - the audio device goroutine calling RenderAudio once per block
//   - any goroutine calling Detach during shutdown
//
// One mutex serializes RenderAudio against Detach; nothing else takes it.
// The frame path is lock-free: lifecycle state lives in an atomic, and the
// simulator, mixer, scene and pose are published through atomic pointers so
// a reader that observes Ready also observes fully constructed engines. The
// pose snapshot is written once per frame tick and read per render block; a
// block may render with the previous tick's pose, which is one frame of
// position jitter and inaudible.
//
// RenderAudio never panics, never blocks beyond the teardown lock, and never
// returns errors: every failure mode degrades to silence (buffer zeroed) or
// to the unmodified input. The only user-visible diagnostic is a one-shot
// log entry when reverb is enabled but the scene handle never turns valid.
package spatial
