package playback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToneSource(t *testing.T) {
	t.Run("fills whole frames", func(t *testing.T) {
		tone := NewToneSource(440, 48000, 2)

		out := make([]float32, 101)
		n, err := tone.ReadSamples(out)
		require.NoError(t, err)
		assert.Equal(t, 100, n, "the dangling sample is not part of a frame")
	})

	t.Run("channels carry the same signal", func(t *testing.T) {
		tone := NewToneSource(440, 48000, 2)

		out := make([]float32, 200)
		_, err := tone.ReadSamples(out)
		require.NoError(t, err)
		for f := range 100 {
			assert.Equal(t, out[f*2], out[f*2+1], "frame %d", f)
		}
	})

	t.Run("stays within amplitude bounds", func(t *testing.T) {
		tone := NewToneSource(440, 48000, 2)

		out := make([]float32, 4800)
		_, err := tone.ReadSamples(out)
		require.NoError(t, err)
		var peak float32
		for _, s := range out {
			if a := s; a < 0 {
				a = -a
				if a > peak {
					peak = a
				}
			} else if a > peak {
				peak = a
			}
		}
		assert.LessOrEqual(t, peak, float32(0.4))
		assert.Greater(t, peak, float32(0.35), "a full cycle reaches the configured amplitude")
	})

	t.Run("phase continues across reads", func(t *testing.T) {
		tone := NewToneSource(440, 48000, 1)

		first := make([]float32, 32)
		second := make([]float32, 32)
		_, err := tone.ReadSamples(first)
		require.NoError(t, err)
		_, err = tone.ReadSamples(second)
		require.NoError(t, err)

		whole := NewToneSource(440, 48000, 1)
		all := make([]float32, 64)
		_, err = whole.ReadSamples(all)
		require.NoError(t, err)

		assert.InDeltaSlice(t, all[32:], second, 1e-5, "split reads must continue the waveform")
	})

	t.Run("invalid frequency falls back", func(t *testing.T) {
		tone := NewToneSource(-5, 48000, 2)
		out := make([]float32, 96)
		n, err := tone.ReadSamples(out)
		require.NoError(t, err)
		assert.Equal(t, 96, n)

		// Above Nyquist falls back too.
		tone = NewToneSource(30000, 48000, 2)
		_, err = tone.ReadSamples(out)
		require.NoError(t, err)
	})
}
