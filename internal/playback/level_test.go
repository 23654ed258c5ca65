package playback

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func constantSamples(v float32, n int) []float32 {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = v
	}
	return samples
}

func TestCalculateAudioLevel(t *testing.T) {
	t.Run("empty block", func(t *testing.T) {
		got := CalculateAudioLevel(nil, "mix")
		assert.Equal(t, AudioLevelData{Level: 0, Clipping: false, Source: "mix"}, got)
	})

	t.Run("silence", func(t *testing.T) {
		got := CalculateAudioLevel(constantSamples(0, 512), "mix")
		assert.Equal(t, 0, got.Level)
		assert.False(t, got.Clipping)
	})

	t.Run("scale anchor at -20 dBFS", func(t *testing.T) {
		// RMS 0.1 is -20 dBFS, which the -60..-10 window maps to 80.
		got := CalculateAudioLevel(constantSamples(0.1, 512), "mix")
		assert.Equal(t, 80, got.Level)
		assert.False(t, got.Clipping)
	})

	t.Run("bottom of the window", func(t *testing.T) {
		got := CalculateAudioLevel(constantSamples(0.001, 512), "mix")
		assert.Equal(t, 0, got.Level)
	})

	t.Run("below the window clamps to zero", func(t *testing.T) {
		got := CalculateAudioLevel(constantSamples(0.0001, 512), "mix")
		assert.Equal(t, 0, got.Level)
	})

	t.Run("full scale clips and pegs the gauge", func(t *testing.T) {
		got := CalculateAudioLevel(constantSamples(1.0, 512), "mix")
		assert.Equal(t, 100, got.Level)
		assert.True(t, got.Clipping)
	})

	t.Run("negative full scale clips too", func(t *testing.T) {
		got := CalculateAudioLevel(constantSamples(-1.0, 512), "mix")
		assert.True(t, got.Clipping)
	})

	t.Run("clipping floors the level at 95", func(t *testing.T) {
		// A single full-scale spike in an otherwise quiet block: the RMS
		// level alone would sit far below 95.
		samples := constantSamples(0.0001, 256)
		samples[0] = 1.0
		got := CalculateAudioLevel(samples, "mix")
		assert.Equal(t, 95, got.Level)
		assert.True(t, got.Clipping)
	})

	t.Run("source is carried through", func(t *testing.T) {
		got := CalculateAudioLevel(constantSamples(0.1, 8), "file:ambience")
		assert.Equal(t, "file:ambience", got.Source)
	})
}
