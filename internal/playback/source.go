package playback

import (
	"path/filepath"
	"strings"

	"github.com/izzarra/Vertigini-VR/internal/errors"
)

// Component name for error tracking.
const ComponentPlayback = "playback"

// Source produces interleaved float32 samples in the [-1, 1] range.
// Implementations are consumed by a single feeder goroutine and need no
// internal locking.
type Source interface {
	// ReadSamples fills out with up to len(out) samples and returns how many
	// were written. io.EOF signals the source is exhausted; a short read
	// without an error is not an end-of-stream marker.
	ReadSamples(out []float32) (int, error)
	SampleRate() int
	Channels() int
	Close() error
}

// NewFileSource opens an audio file as a Source, dispatching on the file
// extension.
func NewFileSource(path string) (Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return NewWAVSource(path)
	case ".flac":
		return NewFLACSource(path)
	default:
		return nil, errors.Newf("unsupported audio file type: %s", filepath.Ext(path)).
			Component(ComponentPlayback).
			Category(errors.CategoryValidation).
			Build()
	}
}
