package softengine

import (
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/go-audio/wav"

	"github.com/izzarra/Vertigini-VR/internal/errors"
	"github.com/izzarra/Vertigini-VR/internal/logging"
	"github.com/izzarra/Vertigini-VR/internal/privacy"
	"github.com/izzarra/Vertigini-VR/internal/spatial"
)

// defaultMaxIRSeconds caps the convolution length. Direct convolution cost
// grows with the tap count, so long baked tails are truncated.
const defaultMaxIRSeconds = 0.25

type impulseResponse struct {
	probe      string
	sampleRate int
	samples    []float32
}

// MixerParams configures a SoftMixer.
type MixerParams struct {
	Scene *SceneDescriptor
	// MaxIRSeconds truncates loaded impulse responses. Zero applies the
	// default.
	MaxIRSeconds float64
}

// SoftMixer implements spatial.IndirectMixer: it owns the full output of the
// accelerated path, convolving the input block with a baked impulse
// response. Without an IR it writes silence, so the output is always a
// deterministic full write. The IR is published through an atomic pointer
// and can be swapped while rendering.
type SoftMixer struct {
	desc         *SceneDescriptor
	maxIRSeconds float64
	logger       *slog.Logger

	ir atomic.Pointer[impulseResponse]

	mu          sync.Mutex
	format      spatial.AudioFormat
	history     []float32
	histIdx     int
	initialized bool
	destroyed   bool
}

// NewSoftMixer builds a mixer for the given scene. A nil scene gets the
// default demo room.
func NewSoftMixer(p MixerParams) *SoftMixer {
	desc := p.Scene
	if desc == nil {
		desc = DefaultScene()
	}
	maxIR := p.MaxIRSeconds
	if maxIR <= 0 {
		maxIR = defaultMaxIRSeconds
	}
	logger := logging.ForService("softengine")
	if logger == nil {
		logger = slog.Default()
	}
	return &SoftMixer{desc: desc, maxIRSeconds: maxIR, logger: logger}
}

// Initialize sizes the convolution history for the stream format.
func (m *SoftMixer) Initialize(format spatial.AudioFormat, _ spatial.RenderSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.destroyed {
		return errors.Newf("mixer already destroyed").
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

	m.format = format
	m.history = make([]float32, m.maxIRSamples(format.SampleRate))
	m.histIdx = 0
	return nil
}

// LazyInitialize binds the mixer to a resolved scene and arms rendering.
func (m *SoftMixer) LazyInitialize(params spatial.LazyInitParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.destroyed {
		return errors.Newf("mixer already destroyed").
			Component(ComponentSoftengine).
			Category(errors.CategoryState).
			Build()
	}
	if m.history == nil {
		return errors.Newf("mixer not built, initialize first").
			Component(ComponentSoftengine).
			Category(errors.CategoryState).
			Build()
	}
	if params.Scene == nil || !params.Scene.Valid() {
		return errors.Newf("scene handle is not valid").
			Component(ComponentSoftengine).
			Category(errors.CategoryScene).
			Context("scene", m.desc.Name).
			Build()
	}

	m.initialized = true
	return nil
}

// LoadImpulseResponse reads a baked WAV impulse response and publishes it to
// the render path. Stereo files are downmixed to mono and long tails are
// truncated to the configured cap. Safe to call while rendering.
func (m *SoftMixer) LoadImpulseResponse(path, probe string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.New(err).
			Component(ComponentSoftengine).
			Category(errors.CategoryFileIO).
			Context("ir", privacy.SanitizePath(path)).
			Build()
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return errors.Newf("not a valid WAV file").
			Component(ComponentSoftengine).
			Category(errors.CategoryFileParsing).
			Context("ir", privacy.SanitizePath(path)).
			Build()
	}
	if decoder.BitDepth != 16 && decoder.BitDepth != 24 && decoder.BitDepth != 32 {
		return errors.Newf("unsupported bit depth %d", decoder.BitDepth).
			Component(ComponentSoftengine).
			Category(errors.CategoryFileParsing).
			Context("ir", privacy.SanitizePath(path)).
			Build()
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return errors.New(err).
			Component(ComponentSoftengine).
			Category(errors.CategoryFileParsing).
			Context("ir", privacy.SanitizePath(path)).
			Build()
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}
	scale := float32(int(1) << (decoder.BitDepth - 1))
	frames := len(buf.Data) / channels

	sampleRate := int(decoder.SampleRate)
	maxSamples := m.maxIRSamples(sampleRate)
	if frames > maxSamples {
		frames = maxSamples
	}

	samples := make([]float32, frames)
	var peak float32
	for i := range frames {
		var mono float32
		for c := range channels {
			mono += float32(buf.Data[i*channels+c]) / scale
		}
		mono /= float32(channels)
		samples[i] = mono
		if a := abs32(mono); a > peak {
			peak = a
		}
	}
	// Keep convolution output bounded for hot IRs.
	if peak > 1 {
		for i := range samples {
			samples[i] /= peak
		}
	}

	m.ir.Store(&impulseResponse{probe: probe, sampleRate: sampleRate, samples: samples})
	m.logger.Info("impulse response loaded",
		"ir", privacy.SanitizePath(path),
		"probe", probe,
		"taps", len(samples),
		"sample_rate", sampleRate)
	return nil
}

// AudioFrameUpdate writes the convolved output over the whole buffer, or
// silence when no impulse response is loaded.
func (m *SoftMixer) AudioFrameUpdate(buffer []float32, channels int, _ spatial.SceneHandle, _ spatial.Pose, _ bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ir := m.ir.Load()
	if !m.initialized || m.destroyed || ir == nil || channels <= 0 {
		clearSamples(buffer)
		return
	}

	histLen := len(m.history)
	taps := len(ir.samples)
	if taps > histLen {
		taps = histLen
	}

	frames := len(buffer) / channels
	for f := range frames {
		base := f * channels
		var mono float32
		for c := range channels {
			mono += buffer[base+c]
		}
		mono /= float32(channels)

		m.history[m.histIdx] = mono
		var acc float32
		for k := range taps {
			j := m.histIdx - k
			if j < 0 {
				j += histLen
			}
			acc += ir.samples[k] * m.history[j]
		}
		m.histIdx++
		if m.histIdx == histLen {
			m.histIdx = 0
		}

		for c := range channels {
			buffer[base+c] = acc
		}
	}
	// A trailing partial frame still gets a deterministic write.
	for i := frames * channels; i < len(buffer); i++ {
		buffer[i] = 0
	}
}

// Flush clears convolution history. The loaded impulse response stays.
func (m *SoftMixer) Flush() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clearSamples(m.history)
	m.histIdx = 0
}

// Destroy releases the history and IR. The mixer cannot be reused.
func (m *SoftMixer) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.destroyed = true
	m.initialized = false
	m.history = nil
	m.ir.Store(nil)
}

func (m *SoftMixer) maxIRSamples(sampleRate int) int {
	n := int(m.maxIRSeconds * float64(sampleRate))
	if n < 1 {
		n = 1
	}
	return n
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
