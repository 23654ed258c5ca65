package playback

import (
	"encoding/binary"
	"math"
)

// bytesPerSample is the wire size of one float32 sample in the ring buffer
// and on a FormatF32 device.
const bytesPerSample = 4

// encodeSamples packs float32 samples into little-endian bytes and returns
// the number of bytes written.
func encodeSamples(samples []float32, dst []byte) int {
	n := min(len(samples), len(dst)/bytesPerSample)
	for i := range n {
		binary.LittleEndian.PutUint32(dst[i*bytesPerSample:], math.Float32bits(samples[i]))
	}
	return n * bytesPerSample
}

// decodeSamples unpacks little-endian float32 bytes and returns the number
// of samples written.
func decodeSamples(src []byte, dst []float32) int {
	n := min(len(src)/bytesPerSample, len(dst))
	for i := range n {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*bytesPerSample:]))
	}
	return n
}
