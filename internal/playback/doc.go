// Package playback connects the listener to real audio output. A malgo
// playback device pulls interleaved float32 frames from a ring buffer that a
// feeder goroutine keeps topped up from a Source (WAV file, FLAC file or
// tone generator). The device's data callback renders each block through the
// listener before handing it to the hardware, so spatial processing happens
// on the audio thread at device pace.
package playback
