package softengine

import (
	"log/slog"
	"math"
	"sync"

	"github.com/izzarra/Vertigini-VR/internal/errors"
	"github.com/izzarra/Vertigini-VR/internal/logging"
	"github.com/izzarra/Vertigini-VR/internal/spatial"
)

// Schroeder reverberator layout: four parallel feedback combs into two
// serial allpass diffusers, behind a short pre-delay. Delay times follow the
// classic millisecond spread and are nudged to prime sample counts so the
// comb tails do not share periodicity.
var (
	combDelaysMs    = [4]float64{29.7, 34.3, 39.1, 44.7}
	allpassDelaysMs = [2]float64{5.0, 1.7}
)

const (
	allpassGain         = 0.7
	preDelayMs          = 12.0
	defaultWarmupBlocks = 2
)

type combFilter struct {
	buf      []float32
	idx      int
	feedback float32
}

func (c *combFilter) process(x float32) float32 {
	y := c.buf[c.idx]
	c.buf[c.idx] = x + y*c.feedback
	c.idx++
	if c.idx == len(c.buf) {
		c.idx = 0
	}
	return y
}

type allpassFilter struct {
	buf  []float32
	idx  int
	gain float32
}

func (a *allpassFilter) process(x float32) float32 {
	vd := a.buf[a.idx]
	v := x - a.gain*vd
	a.buf[a.idx] = v
	a.idx++
	if a.idx == len(a.buf) {
		a.idx = 0
	}
	return a.gain*v + vd
}

type delayLine struct {
	buf []float32
	idx int
}

func (d *delayLine) process(x float32) float32 {
	y := d.buf[d.idx]
	d.buf[d.idx] = x
	d.idx++
	if d.idx == len(d.buf) {
		d.idx = 0
	}
	return y
}

// SimulatorParams configures a SoftSimulator.
type SimulatorParams struct {
	Scene *SceneDescriptor
	// WarmupBlocks is how many initial blocks prime the filters without
	// producing a wet signal. Zero applies the default.
	WarmupBlocks int
}

// SoftSimulator is a Schroeder-style reverberator implementing
// spatial.IndirectSimulator. One mutex guards all internal state: the frame
// path and the render path may overlap, and a render that lands mid
// frame-update must see consistent filter state, never torn memory.
type SoftSimulator struct {
	mu sync.Mutex

	desc         *SceneDescriptor
	warmupBlocks int
	logger       *slog.Logger

	format spatial.AudioFormat
	combs  [4]*combFilter
	aps    [2]*allpassFilter
	pre    *delayLine

	// attenuation scales indirect energy by listener distance from the room
	// center; updated once per frame tick.
	attenuation float32
	blocksSeen  int
	wet         []float32

	built       bool
	initialized bool
	destroyed   bool
}

// NewSoftSimulator builds a simulator for the given scene. A nil scene gets
// the default demo room.
func NewSoftSimulator(p SimulatorParams) *SoftSimulator {
	desc := p.Scene
	if desc == nil {
		desc = DefaultScene()
	}
	warm := p.WarmupBlocks
	if warm <= 0 {
		warm = defaultWarmupBlocks
	}
	logger := logging.ForService("softengine")
	if logger == nil {
		logger = slog.Default()
	}
	return &SoftSimulator{
		desc:         desc,
		warmupBlocks: warm,
		attenuation:  1,
		logger:       logger,
	}
}

// Initialize builds the filter graph for the stream format. Calling it again
// with the same format is a no-op, so a failed initialization round can be
// retried.
func (s *SoftSimulator) Initialize(format spatial.AudioFormat, _ spatial.RenderSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return errors.Newf("simulator already destroyed").
			Component(ComponentSoftengine).
			Category(errors.CategoryState).
			Build()
	}
	if format.SampleRate <= 0 || format.Channels <= 0 {
		return errors.Newf("invalid audio format %dHz/%dch", format.SampleRate, format.Channels).
			Component(ComponentSoftengine).
			Category(errors.CategoryValidation).
			Build()
	}
	if s.built && s.format == format {
		return nil
	}

	sr := float64(format.SampleRate)
	rt60 := s.desc.ReverbTime()
	for i, ms := range combDelaysMs {
		delay := nextPrime(int(ms / 1000 * sr))
		// Feedback chosen so the comb tail falls 60 dB over RT60.
		feedback := float32(math.Pow(10, -3*float64(delay)/(rt60*sr)))
		s.combs[i] = &combFilter{buf: make([]float32, delay), feedback: feedback}
	}
	for i, ms := range allpassDelaysMs {
		delay := nextPrime(int(ms / 1000 * sr))
		s.aps[i] = &allpassFilter{buf: make([]float32, delay), gain: allpassGain}
	}
	s.pre = &delayLine{buf: make([]float32, nextPrime(int(preDelayMs/1000*sr)))}

	s.format = format
	s.built = true
	s.logger.Debug("reverberator built",
		"scene", s.desc.Name,
		"rt60_s", rt60,
		"sample_rate", format.SampleRate)
	return nil
}

// LazyInitialize binds the simulator to a resolved scene and arms rendering.
func (s *SoftSimulator) LazyInitialize(params spatial.LazyInitParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return errors.Newf("simulator already destroyed").
			Component(ComponentSoftengine).
			Category(errors.CategoryState).
			Build()
	}
	if !s.built {
		return errors.Newf("reverberator not built, initialize first").
			Component(ComponentSoftengine).
			Category(errors.CategoryState).
			Build()
	}
	if params.Scene == nil || !params.Scene.Valid() {
		return errors.Newf("scene handle is not valid").
			Component(ComponentSoftengine).
			Category(errors.CategoryScene).
			Context("scene", s.desc.Name).
			Build()
	}

	s.initialized = true
	return nil
}

// FrameUpdate advances per-frame simulation state: the listener's distance
// from the room center shapes the indirect energy.
func (s *SoftSimulator) FrameUpdate(params spatial.FrameParams) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized || s.destroyed {
		return
	}
	p := params.Pose.Position
	dist := math.Sqrt(float64(p[0]*p[0] + p[1]*p[1] + p[2]*p[2]))
	s.attenuation = float32(1 / (1 + dist/s.desc.MaxDimension()))
}

// AudioFrameUpdate feeds one block through the reverberator and returns the
// wet signal scaled by the forwarded mix fraction, or nil while warming up.
// The returned slice is reused across calls; callers consume it before the
// next block.
func (s *SoftSimulator) AudioFrameUpdate(buffer []float32, channels int, _ spatial.Pose, reverbEnabled bool, mixFraction float32, _ bool) []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized || s.destroyed || !reverbEnabled || channels <= 0 {
		return nil
	}

	if cap(s.wet) < len(buffer) {
		s.wet = make([]float32, len(buffer))
	}
	wet := s.wet[:len(buffer)]

	warm := s.blocksSeen < s.warmupBlocks
	s.blocksSeen++

	frames := len(buffer) / channels
	gain := mixFraction * s.attenuation
	for f := range frames {
		base := f * channels
		var mono float32
		for c := range channels {
			mono += buffer[base+c]
		}
		mono /= float32(channels)

		x := s.pre.process(mono)
		var acc float32
		for _, cb := range s.combs {
			acc += cb.process(x)
		}
		acc *= 0.25
		for _, ap := range s.aps {
			acc = ap.process(acc)
		}
		w := acc * gain
		for c := range channels {
			wet[base+c] = w
		}
	}
	// The wet slice is reused; a trailing partial frame must not leak the
	// previous block's samples.
	for i := frames * channels; i < len(wet); i++ {
		wet[i] = 0
	}

	if warm {
		return nil
	}
	return wet
}

// Flush clears all filter memory and restarts the warm-up.
func (s *SoftSimulator) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cb := range s.combs {
		if cb != nil {
			clearSamples(cb.buf)
			cb.idx = 0
		}
	}
	for _, ap := range s.aps {
		if ap != nil {
			clearSamples(ap.buf)
			ap.idx = 0
		}
	}
	if s.pre != nil {
		clearSamples(s.pre.buf)
		s.pre.idx = 0
	}
	s.blocksSeen = 0
}

// Destroy releases filter memory. The simulator cannot be reused afterwards.
func (s *SoftSimulator) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.destroyed = true
	s.initialized = false
	s.built = false
	for i := range s.combs {
		s.combs[i] = nil
	}
	for i := range s.aps {
		s.aps[i] = nil
	}
	s.pre = nil
	s.wet = nil
}

func clearSamples(buf []float32) {
	for i := range buf {
		buf[i] = 0
	}
}

// nextPrime returns the smallest prime >= n.
func nextPrime(n int) int {
	if n < 2 {
		return 2
	}
	for !isPrime(n) {
		n++
	}
	return n
}

func isPrime(n int) bool {
	if n < 2 {
		return false
	}
	for d := 2; d*d <= n; d++ {
		if n%d == 0 {
			return false
		}
	}
	return true
}
