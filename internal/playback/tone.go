package playback

import "math"

// ToneSource is a sine oscillator used when no audio file is configured. It
// never reaches end of stream.
type ToneSource struct {
	freq       float64
	amplitude  float32
	sampleRate int
	channels   int
	phase      float64
}

// NewToneSource builds an oscillator at the given frequency. Out-of-range
// parameters fall back to a 440 Hz tone at moderate level.
func NewToneSource(freq float64, sampleRate, channels int) *ToneSource {
	if freq <= 0 || freq >= float64(sampleRate)/2 {
		freq = 440
	}
	if channels <= 0 {
		channels = 2
	}
	return &ToneSource{
		freq:       freq,
		amplitude:  0.4,
		sampleRate: sampleRate,
		channels:   channels,
	}
}

func (t *ToneSource) ReadSamples(out []float32) (int, error) {
	step := 2 * math.Pi * t.freq / float64(t.sampleRate)
	frames := len(out) / t.channels
	for f := range frames {
		s := t.amplitude * float32(math.Sin(t.phase))
		t.phase += step
		if t.phase > 2*math.Pi {
			t.phase -= 2 * math.Pi
		}
		base := f * t.channels
		for c := range t.channels {
			out[base+c] = s
		}
	}
	return frames * t.channels, nil
}

func (t *ToneSource) SampleRate() int { return t.sampleRate }

func (t *ToneSource) Channels() int { return t.channels }

func (t *ToneSource) Close() error { return nil }
