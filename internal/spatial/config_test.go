package spatial

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigNormalize(t *testing.T) {
	logger := slog.New(&countingHandler{})

	t.Run("fills defaults", func(t *testing.T) {
		cfg := Config{}
		cfg.normalize(logger)
		assert.Equal(t, "default", cfg.Name)
		assert.Equal(t, 48000, cfg.Format.SampleRate)
		assert.Equal(t, 2, cfg.Format.Channels)
		assert.Equal(t, 512, cfg.Format.BlockSize)
	})

	t.Run("keeps explicit format", func(t *testing.T) {
		cfg := Config{Name: "hmd", Format: AudioFormat{SampleRate: 44100, Channels: 1, BlockSize: 256}}
		cfg.normalize(logger)
		assert.Equal(t, "hmd", cfg.Name)
		assert.Equal(t, 44100, cfg.Format.SampleRate)
		assert.Equal(t, 1, cfg.Format.Channels)
		assert.Equal(t, 256, cfg.Format.BlockSize)
	})

	t.Run("clamps mix fractions", func(t *testing.T) {
		tests := []struct {
			name        string
			dry, reverb float32
			wantDry     float32
			wantReverb  float32
		}{
			{"dry above range", 1.5, 1.0, 1.0, 1.0},
			{"dry below range", -0.2, 1.0, 0, 1.0},
			{"reverb above range", 0.5, 12, 0.5, 10},
			{"reverb below range", 0.5, -3, 0.5, 0},
			{"both in range", 0.25, 9.5, 0.25, 9.5},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				cfg := Config{DryMixFraction: tt.dry, ReverbMixFraction: tt.reverb}
				cfg.normalize(logger)
				assert.InDelta(t, tt.wantDry, cfg.DryMixFraction, 1e-6)
				assert.InDelta(t, tt.wantReverb, cfg.ReverbMixFraction, 1e-6)
			})
		}
	})
}
