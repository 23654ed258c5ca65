package playback

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/flac"
)

func TestFLACDecodeFrame(t *testing.T) {
	t.Run("16 bit", func(t *testing.T) {
		src := &FLACSource{decoder: &flac.Decoder{BitsPerSample: 16}, scale: 1 << 15}
		// 8192 and -16384 as little-endian int16.
		frame := []byte{0x00, 0x20, 0x00, 0xC0}
		assert.InDeltaSlice(t, []float32{0.25, -0.5}, src.decodeFrame(frame), 1e-6)
	})

	t.Run("24 bit sign extension", func(t *testing.T) {
		src := &FLACSource{decoder: &flac.Decoder{BitsPerSample: 24}, scale: 1 << 23}
		// 0x400000 is +0.5; 0xC00000 is -0.5 once the sign bit is extended.
		frame := []byte{0x00, 0x00, 0x40, 0x00, 0x00, 0xC0, 0xFF, 0xFF, 0xFF}
		got := src.decodeFrame(frame)
		require.Len(t, got, 3)
		assert.InDelta(t, 0.5, got[0], 1e-6)
		assert.InDelta(t, -0.5, got[1], 1e-6, "negative samples must not decode as large positives")
		assert.InDelta(t, -1.0/float64(1<<23), got[2], 1e-9)
	})

	t.Run("32 bit", func(t *testing.T) {
		src := &FLACSource{decoder: &flac.Decoder{BitsPerSample: 32}, scale: 1 << 31}
		frame := []byte{0x00, 0x00, 0x00, 0x40, 0x00, 0x00, 0x00, 0xC0}
		assert.InDeltaSlice(t, []float32{0.5, -0.5}, src.decodeFrame(frame), 1e-6)
	})

	t.Run("drops trailing partial sample", func(t *testing.T) {
		src := &FLACSource{decoder: &flac.Decoder{BitsPerSample: 16}, scale: 1 << 15}
		got := src.decodeFrame([]byte{0x00, 0x20, 0x7F})
		assert.Len(t, got, 1)
	})
}

func TestFLACLeftoverDrain(t *testing.T) {
	src := &FLACSource{eof: true, leftover: []float32{0.1, 0.2, 0.3}}

	out := make([]float32, 2)
	n, err := src.ReadSamples(out)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	assert.InDeltaSlice(t, []float32{0.1, 0.2}, out, 1e-6)

	n, err = src.ReadSamples(out)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.InDelta(t, 0.3, out[0], 1e-6)

	_, err = src.ReadSamples(out)
	assert.ErrorIs(t, err, io.EOF)
}

func TestNewFLACSourceErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := NewFLACSource(filepath.Join(t.TempDir(), "absent.flac"))
		require.Error(t, err)
	})

	t.Run("not a flac file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bogus.flac")
		require.NoError(t, os.WriteFile(path, []byte("definitely not flac"), 0o644))
		_, err := NewFLACSource(path)
		require.Error(t, err)
	})
}
