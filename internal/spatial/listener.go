package spatial

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/izzarra/Vertigini-VR/internal/errors"
	"github.com/izzarra/Vertigini-VR/internal/logging"
	"github.com/izzarra/Vertigini-VR/internal/observability/metrics"
)

// Listener owns the spatial render state for one audio stream. It is created
// on attach, lazily initializes its simulator and mixer once the environment
// scene resolves, renders audio blocks in place, and releases everything on
// Detach.
//
// Concurrency contract: FrameUpdate runs on a single scheduler goroutine and
// never blocks. RenderAudio runs on the audio device callback goroutine.
// Detach may run on any goroutine. The only lock serializes destruction
// against rendering; the frame path stays lock-free.
type Listener struct {
	cfg     Config
	deps    Dependencies
	logger  *slog.Logger
	metrics *metrics.SpatialMetrics

	// dryMix and reverbMix are copies of the clamped config fractions, fixed
	// at attach so the render path reads them without synchronization.
	dryMix    float32
	reverbMix float32

	// state holds a LifecycleState value.
	state atomic.Int32

	// simulator, mixer and scene are published only after engine
	// construction completes, so both the frame path and the render path
	// observe fully initialized objects.
	simulator atomic.Pointer[IndirectSimulator]
	mixer     atomic.Pointer[IndirectMixer]
	scene     atomic.Pointer[SceneHandle]

	// pose holds the most recent frame-tick snapshot. A render call may see
	// the previous tick's pose, never a torn one.
	pose atomic.Pointer[Pose]

	acceleratedFrameReady atomic.Bool
	sceneErrorLogged      atomic.Bool
	initErrorLogged       atomic.Bool

	framesAdvanced atomic.Uint64
	rendersServed  atomic.Uint64
	silenceRenders atomic.Uint64

	// mu serializes Detach against RenderAudio. The frame path never takes
	// it.
	mu sync.Mutex
}

// NewListener builds a listener from an explicit dependency set. Missing
// required dependencies do not fail construction: the listener is returned in
// the Uninitialized state, logs the problem once, and renders silence
// forever. Which engines are required depends on the configured mode: the
// mixer for accelerated mixing, the simulator for the realtime reverb blend.
func NewListener(cfg Config, deps Dependencies) *Listener {
	logger := deps.Logger
	if logger == nil {
		logger = logging.ForService("spatial")
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.normalize(logger)

	l := &Listener{
		cfg:       cfg,
		deps:      deps,
		logger:    logger,
		metrics:   deps.Metrics,
		dryMix:    cfg.DryMixFraction,
		reverbMix: cfg.ReverbMixFraction,
	}

	if err := l.validateDependencies(); err != nil {
		// Stays Uninitialized permanently; every render yields silence.
		l.logger.Error("listener dependencies incomplete, rendering silence",
			"listener", cfg.Name,
			"error", err)
	} else {
		l.state.Store(int32(StateInitializing))
	}

	if l.metrics != nil {
		l.metrics.UpdateLifecycleState(cfg.Name, int(l.state.Load()))
		l.metrics.UpdateMixFraction(cfg.Name, "dry", float64(l.dryMix))
		l.metrics.UpdateMixFraction(cfg.Name, "reverb", float64(l.reverbMix))
	}
	return l
}

func (l *Listener) validateDependencies() error {
	missing := ""
	switch {
	case l.deps.Environment == nil:
		missing = "environment"
	case l.deps.Spatializer == nil:
		missing = "spatializer"
	case l.cfg.AcceleratedEnabled && l.deps.Mixer == nil:
		missing = "mixer"
	case l.cfg.ReverbEnabled && !l.cfg.AcceleratedEnabled && l.deps.Simulator == nil:
		missing = "simulator"
	default:
		return nil
	}
	return errors.Newf("required dependency %s not attached", missing).
		Component(ComponentSpatial).
		Category(errors.CategoryValidation).
		Context("listener", l.cfg.Name).
		Context("resource", missing).
		Build()
}

// currentMode derives the mixing mode from the configuration flags.
// Accelerated mixing wins over the reverb blend; neither flag means
// pass-through. The mode is computed on demand and never stored.
func (l *Listener) currentMode() MixingMode {
	switch {
	case l.cfg.AcceleratedEnabled:
		return MixingAccelerated
	case l.cfg.ReverbEnabled:
		return MixingRealtimeReverbBlend
	default:
		return MixingDisabled
	}
}

// FrameUpdate advances the listener one host frame: it polls lazy
// initialization, snapshots the pose from the transform source, and drives
// the simulator's per-frame advance. It never blocks and never takes the
// render lock. Callers run it from a single goroutine once per frame, after
// all transform mutations for that frame. After Detach it is a harmless
// no-op.
func (l *Listener) FrameUpdate() {
	state := LifecycleState(l.state.Load())
	if state == StateUninitialized || state >= StateDestroying {
		l.recordFrameUpdate("not_ready")
		return
	}
	start := time.Now()

	scene := l.deps.Environment.ResolveScene()
	sceneValid := scene != nil && scene.Valid()

	l.lazyInitialize(scene, sceneValid)

	// One-shot diagnostic: reverb wants a scene and there is none. Logged a
	// single time over the listener's life so a misconfigured scene does not
	// spam every frame.
	if l.cfg.ReverbEnabled && !sceneValid && l.sceneErrorLogged.CompareAndSwap(false, true) {
		err := errors.Newf("reverb enabled but scene handle is not valid").
			Component(ComponentSpatial).
			Category(errors.CategoryScene).
			Context("listener", l.cfg.Name).
			Context("stream_id", ReverbStreamID).
			Build()
		l.logger.Error("scene unavailable for reverb rendering",
			"listener", l.cfg.Name,
			"error", err)
	}

	if l.deps.Transform != nil {
		p := l.deps.Transform.Pose()
		l.pose.Store(&p)
	}

	if sp := l.simulator.Load(); sp != nil {
		var pose Pose
		if pp := l.pose.Load(); pp != nil {
			pose = *pp
		}
		(*sp).FrameUpdate(FrameParams{
			Pose:            pose,
			ReverbEnabled:   l.cfg.ReverbEnabled,
			MixFraction:     l.reverbMix,
			BinauralEnabled: l.cfg.BinauralEnabled,
		})
		l.recordFrameUpdate("ok")
	} else if LifecycleState(l.state.Load()) == StateReady {
		l.recordFrameUpdate("ok")
	} else {
		l.recordFrameUpdate("awaiting_scene")
	}

	l.framesAdvanced.Add(1)
	if l.metrics != nil {
		l.metrics.RecordFrameUpdateDuration(l.cfg.Name, time.Since(start).Seconds())
	}
}

// lazyInitialize performs the one-time construction of the simulator and
// mixer once the scene, environmental renderer and spatializer are all
// ready. It is called every frame tick until it succeeds; repeat calls after
// success are no-ops, detected by the published handles rather than a
// separate flag. Engine construction failures are logged once and retried on
// the next tick.
func (l *Listener) lazyInitialize(scene SceneHandle, sceneValid bool) {
	if LifecycleState(l.state.Load()) != StateInitializing {
		return
	}
	if l.simulator.Load() != nil || l.mixer.Load() != nil {
		return
	}
	if !sceneValid {
		l.recordLazyInit("scene_unavailable")
		return
	}
	if !l.deps.Environment.RendererReady() || !l.deps.Spatializer.Ready() {
		l.recordLazyInit("awaiting_renderer")
		return
	}

	settings := RenderSettings{
		StreamID:        ReverbStreamID,
		ReverbEnabled:   l.cfg.ReverbEnabled,
		BinauralEnabled: l.cfg.BinauralEnabled,
		ReverbType:      l.cfg.ReverbType,
		Simulation:      l.cfg.Simulation,
	}
	params := LazyInitParams{Scene: scene, Format: l.cfg.Format, Settings: settings}

	if sim := l.deps.Simulator; sim != nil {
		if err := sim.Initialize(l.cfg.Format, settings); err != nil {
			l.logInitFailure("simulator", err)
			return
		}
		if err := sim.LazyInitialize(params); err != nil {
			l.logInitFailure("simulator", err)
			return
		}
	}
	if mix := l.deps.Mixer; mix != nil {
		if err := mix.Initialize(l.cfg.Format, settings); err != nil {
			l.logInitFailure("mixer", err)
			return
		}
		if err := mix.LazyInitialize(params); err != nil {
			l.logInitFailure("mixer", err)
			return
		}
	}

	// Publish handles before flipping to Ready so a render call that
	// observes Ready also observes the constructed engines.
	l.scene.Store(&scene)
	if sim := l.deps.Simulator; sim != nil {
		l.simulator.Store(&sim)
	}
	if mix := l.deps.Mixer; mix != nil {
		l.mixer.Store(&mix)
	}

	if !l.state.CompareAndSwap(int32(StateInitializing), int32(StateReady)) {
		// Detach raced ahead of the Ready flip. Take the handles back and
		// release them here; the Swap guarantees exactly one side destroys
		// each engine.
		if sp := l.simulator.Swap(nil); sp != nil {
			(*sp).Flush()
			(*sp).Destroy()
		}
		if mp := l.mixer.Swap(nil); mp != nil {
			(*mp).Flush()
			(*mp).Destroy()
		}
		l.scene.Store(nil)
		l.recordLazyInit("aborted")
		return
	}

	l.recordLazyInit("initialized")
	if l.metrics != nil {
		l.metrics.UpdateLifecycleState(l.cfg.Name, int(StateReady))
	}
	l.logger.Info("listener ready",
		"listener", l.cfg.Name,
		"mode", l.currentMode().String(),
		"sample_rate", l.cfg.Format.SampleRate,
		"channels", l.cfg.Format.Channels,
		"stream_id", ReverbStreamID)
}

func (l *Listener) logInitFailure(stage string, err error) {
	l.recordLazyInit("error")
	if !l.initErrorLogged.CompareAndSwap(false, true) {
		return
	}
	enhanced := errors.New(err).
		Component(ComponentSpatial).
		Category(errors.CategorySimulation).
		Context("listener", l.cfg.Name).
		Context("stage", stage).
		Build()
	l.logger.Error("listener engine initialization failed, will retry",
		"listener", l.cfg.Name,
		"stage", stage,
		"error", enhanced)
}

// RenderAudio renders one audio block in place. It never panics and never
// returns an error: every failure mode degrades to silence or to the
// unmodified input. The buffer is interleaved float32 samples.
//
// The render lock is shared only with Detach, so the call blocks at most for
// the duration of teardown.
func (l *Listener) RenderAudio(buffer []float32, channels int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if buffer == nil {
		return
	}

	mode := l.currentMode()

	if state := LifecycleState(l.state.Load()); state != StateReady {
		reason := "not_ready"
		if state >= StateDestroying {
			reason = "destroying"
		}
		l.renderSilence(buffer, mode, reason)
		return
	}

	// Accelerated mixing needs the host's mixed-audio signal for this
	// block. Without it stale mixer output would be worse than silence.
	if mode == MixingAccelerated && !l.acceleratedFrameReady.Load() {
		l.renderSilence(buffer, mode, "accelerated_pending")
		return
	}

	start := time.Now()
	var pose Pose
	if pp := l.pose.Load(); pp != nil {
		pose = *pp
	}

	outcome := "rendered"
	switch mode {
	case MixingAccelerated:
		mp := l.mixer.Load()
		if mp == nil {
			l.renderSilence(buffer, mode, "not_ready")
			return
		}
		var scene SceneHandle
		if sp := l.scene.Load(); sp != nil {
			scene = *sp
		}
		(*mp).AudioFrameUpdate(buffer, channels, scene, pose, l.cfg.BinauralEnabled)

	case MixingRealtimeReverbBlend:
		sp := l.simulator.Load()
		if sp == nil {
			l.renderSilence(buffer, mode, "not_ready")
			return
		}
		wet := (*sp).AudioFrameUpdate(buffer, channels, pose, true, l.reverbMix, l.cfg.BinauralEnabled)
		if len(wet) == 0 {
			// Simulator not warmed up: leave the input untouched. The dry
			// fraction is deliberately not applied here, so a fraction
			// below one never dims audio that has no wet signal to blend
			// with.
			outcome = "unmodified"
			if l.metrics != nil {
				l.metrics.RecordWetBufferMissing(l.cfg.Name)
			}
		} else {
			n := min(len(buffer), len(wet))
			for i := 0; i < n; i++ {
				buffer[i] = buffer[i]*l.dryMix + wet[i]
			}
		}

	default:
		outcome = "passthrough"
	}

	l.rendersServed.Add(1)
	if l.metrics != nil {
		l.metrics.RecordRenderCall(mode.String(), outcome)
		l.metrics.RecordRenderDuration(mode.String(), time.Since(start).Seconds())
	}
}

func (l *Listener) renderSilence(buffer []float32, mode MixingMode, reason string) {
	zeroFill(buffer)
	l.silenceRenders.Add(1)
	if l.metrics != nil {
		l.metrics.RecordRenderZeroFill(reason)
		l.metrics.RecordRenderCall(mode.String(), "silence")
	}
}

// SetAcceleratedFrameReady signals whether the host has produced mixed audio
// for the current block. Accelerated-mode rendering outputs silence while
// the flag is false. The flag is level-triggered: it stays set until the
// host clears it.
func (l *Listener) SetAcceleratedFrameReady(ready bool) {
	l.acceleratedFrameReady.Store(ready)
}

// Detach releases the simulator and mixer and retires the listener. It is
// idempotent and safe to call concurrently with rendering and frame updates:
// renders that observe the Destroying or Destroyed state produce silence.
// The environment and spatializer are never freed here; the listener does
// not own them.
func (l *Listener) Detach() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if LifecycleState(l.state.Load()) == StateDestroyed {
		if l.metrics != nil {
			l.metrics.RecordDetach(l.cfg.Name, "already_destroyed")
		}
		return
	}

	l.state.Store(int32(StateDestroying))
	if l.metrics != nil {
		l.metrics.UpdateLifecycleState(l.cfg.Name, int(StateDestroying))
	}

	if sp := l.simulator.Swap(nil); sp != nil {
		(*sp).Flush()
		(*sp).Destroy()
	}
	if mp := l.mixer.Swap(nil); mp != nil {
		(*mp).Flush()
		(*mp).Destroy()
	}
	l.scene.Store(nil)

	l.state.Store(int32(StateDestroyed))
	if l.metrics != nil {
		l.metrics.UpdateLifecycleState(l.cfg.Name, int(StateDestroyed))
		l.metrics.RecordDetach(l.cfg.Name, "ok")
	}
	l.logger.Info("listener detached", "listener", l.cfg.Name)
}

// BeginBake starts an offline reverb bake covering the named probe regions,
// or every region the environment reports when names is empty and no region
// selection is configured. It returns the job identifier immediately; the
// bake runs in the background. Must not be called concurrently with Detach.
func (l *Listener) BeginBake(ctx context.Context, names []string) (string, error) {
	if l.deps.Baker == nil {
		return "", ErrNoBaker
	}
	if LifecycleState(l.state.Load()) >= StateDestroying {
		return "", ErrListenerDestroyed
	}

	if len(names) == 0 {
		names = l.cfg.BakeRegions
	}
	regions := l.deps.Environment.ProbeRegions()
	if len(names) > 0 {
		regions = filterRegions(regions, names)
	}
	if len(regions) == 0 {
		return "", errors.Newf("no probe regions matched the bake request").
			Component(ComponentSpatial).
			Category(errors.CategoryBake).
			Context("listener", l.cfg.Name).
			Build()
	}

	req := BakeRequest{
		Regions:  regions,
		Mode:     BakeModeReverb,
		StreamID: ReverbStreamID,
	}
	jobID, err := l.deps.Baker.BeginBake(ctx, req)
	if err != nil {
		if l.metrics != nil {
			l.metrics.RecordBakeOperation("begin", "error")
		}
		return "", err
	}
	if l.metrics != nil {
		l.metrics.RecordBakeOperation("begin", "started")
	}
	l.logger.Info("bake started",
		"listener", l.cfg.Name,
		"job_id", jobID,
		"regions", len(regions),
		"stream_id", ReverbStreamID)
	return jobID, nil
}

// EndBake cancels any in-flight bake job. Must not be called concurrently
// with Detach.
func (l *Listener) EndBake() {
	if l.deps.Baker == nil {
		return
	}
	l.deps.Baker.EndBake()
	if l.metrics != nil {
		l.metrics.RecordBakeOperation("end", "ok")
	}
	l.logger.Debug("bake end requested", "listener", l.cfg.Name)
}

// Status returns a point-in-time snapshot for the API and tests. Counters
// are read individually, so a snapshot taken during rendering may straddle a
// block boundary.
func (l *Listener) Status() Status {
	mode := l.currentMode()
	return Status{
		State:             LifecycleState(l.state.Load()),
		Mode:              mode,
		ModeName:          mode.String(),
		FramesAdvanced:    l.framesAdvanced.Load(),
		RendersServed:     l.rendersServed.Load(),
		SilenceRenders:    l.silenceRenders.Load(),
		DiagnosticFired:   l.sceneErrorLogged.Load(),
		AcceleratedReady:  l.acceleratedFrameReady.Load(),
		DryMixFraction:    l.dryMix,
		ReverbMixFraction: l.reverbMix,
	}
}

// Name returns the listener's configured name.
func (l *Listener) Name() string {
	return l.cfg.Name
}

func (l *Listener) recordFrameUpdate(outcome string) {
	if l.metrics != nil {
		l.metrics.RecordFrameUpdate(outcome)
	}
}

func (l *Listener) recordLazyInit(result string) {
	if l.metrics != nil {
		l.metrics.RecordLazyInit(result)
	}
}

func filterRegions(all []ProbeRegion, names []string) []ProbeRegion {
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}
	out := make([]ProbeRegion, 0, len(all))
	for _, r := range all {
		if _, ok := want[r.Name]; ok {
			out = append(out, r)
		}
	}
	return out
}

func zeroFill(buffer []float32) {
	for i := range buffer {
		buffer[i] = 0
	}
}
