package playback

import (
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/izzarra/Vertigini-VR/internal/errors"
	"github.com/izzarra/Vertigini-VR/internal/privacy"
)

// WAVSource streams PCM samples from a WAV file.
type WAVSource struct {
	file    *os.File
	decoder *wav.Decoder
	scale   float32
	scratch []int
	buf     *audio.IntBuffer
	eof     bool
}

// NewWAVSource opens a WAV file for streaming playback. 16, 24 and 32 bit
// PCM files are supported.
func NewWAVSource(path string) (*WAVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component(ComponentPlayback).
			Category(errors.CategoryFileIO).
			Context("source", privacy.SanitizePath(path)).
			Build()
	}

	decoder := wav.NewDecoder(f)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		_ = f.Close()
		return nil, errors.Newf("not a valid WAV file").
			Component(ComponentPlayback).
			Category(errors.CategoryFileParsing).
			Context("source", privacy.SanitizePath(path)).
			Build()
	}
	if decoder.BitDepth != 16 && decoder.BitDepth != 24 && decoder.BitDepth != 32 {
		_ = f.Close()
		return nil, errors.Newf("unsupported bit depth %d", decoder.BitDepth).
			Component(ComponentPlayback).
			Category(errors.CategoryFileParsing).
			Context("source", privacy.SanitizePath(path)).
			Build()
	}

	return &WAVSource{
		file:    f,
		decoder: decoder,
		scale:   float32(int(1) << (decoder.BitDepth - 1)),
		buf:     &audio.IntBuffer{},
	}, nil
}

func (s *WAVSource) ReadSamples(out []float32) (int, error) {
	if s.eof || len(out) == 0 {
		return 0, io.EOF
	}

	if cap(s.scratch) < len(out) {
		s.scratch = make([]int, len(out))
	}
	// The decoder shrinks Data on short reads, so it is resized every call.
	s.buf.Data = s.scratch[:len(out)]

	n, err := s.decoder.PCMBuffer(s.buf)
	if err != nil {
		return 0, errors.New(err).
			Component(ComponentPlayback).
			Category(errors.CategoryFileParsing).
			Context("source", privacy.SanitizePath(s.file.Name())).
			Build()
	}
	if n == 0 {
		s.eof = true
		return 0, io.EOF
	}

	for i := range n {
		out[i] = float32(s.buf.Data[i]) / s.scale
	}
	return n, nil
}

func (s *WAVSource) SampleRate() int { return int(s.decoder.SampleRate) }

func (s *WAVSource) Channels() int { return int(s.decoder.NumChans) }

func (s *WAVSource) Close() error { return s.file.Close() }
