package playback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleCodecRoundTrip(t *testing.T) {
	samples := []float32{0, 1, -1, 0.5, -0.25, 3.1415927, -1e-7}
	raw := make([]byte, len(samples)*bytesPerSample)

	written := encodeSamples(samples, raw)
	require.Equal(t, len(raw), written)

	decoded := make([]float32, len(samples))
	n := decodeSamples(raw, decoded)
	require.Equal(t, len(samples), n)
	assert.Equal(t, samples, decoded, "float32 bits survive the round trip exactly")
}

func TestEncodeSamplesShortDestination(t *testing.T) {
	samples := []float32{1, 2, 3, 4}

	// Room for two samples plus a stray byte: the stray byte stays untouched.
	dst := make([]byte, 2*bytesPerSample+1)
	dst[len(dst)-1] = 0xAA
	written := encodeSamples(samples, dst)
	assert.Equal(t, 2*bytesPerSample, written)
	assert.Equal(t, byte(0xAA), dst[len(dst)-1])

	assert.Equal(t, 0, encodeSamples(samples, nil))
	assert.Equal(t, 0, encodeSamples(nil, dst))
}

func TestDecodeSamplesShortInputs(t *testing.T) {
	raw := make([]byte, 3*bytesPerSample)
	encodeSamples([]float32{7, 8, 9}, raw)

	dst := make([]float32, 2)
	assert.Equal(t, 2, decodeSamples(raw, dst), "capped by the destination")
	assert.Equal(t, []float32{7, 8}, dst)

	wide := make([]float32, 8)
	assert.Equal(t, 3, decodeSamples(raw, wide), "capped by the source")
	assert.Equal(t, []float32{7, 8, 9}, wide[:3])

	// Trailing partial sample bytes are ignored.
	assert.Equal(t, 1, decodeSamples(raw[:bytesPerSample+2], wide))
	assert.Equal(t, 0, decodeSamples(nil, wide))
}
