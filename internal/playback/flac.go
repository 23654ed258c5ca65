package playback

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/tphakala/flac"

	"github.com/izzarra/Vertigini-VR/internal/errors"
	"github.com/izzarra/Vertigini-VR/internal/privacy"
)

// FLACSource streams decoded samples from a FLAC file. Frames are decoded
// whole, so samples past the caller's request are kept for the next read.
type FLACSource struct {
	file     *os.File
	decoder  *flac.Decoder
	scale    float32
	leftover []float32
	eof      bool
}

// NewFLACSource opens a FLAC file for streaming playback.
func NewFLACSource(path string) (*FLACSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component(ComponentPlayback).
			Category(errors.CategoryFileIO).
			Context("source", privacy.SanitizePath(path)).
			Build()
	}

	decoder, err := flac.NewDecoder(f)
	if err != nil {
		_ = f.Close()
		return nil, errors.New(err).
			Component(ComponentPlayback).
			Category(errors.CategoryFileParsing).
			Context("source", privacy.SanitizePath(path)).
			Build()
	}
	if decoder.BitsPerSample != 16 && decoder.BitsPerSample != 24 && decoder.BitsPerSample != 32 {
		_ = f.Close()
		return nil, errors.Newf("unsupported bit depth %d", decoder.BitsPerSample).
			Component(ComponentPlayback).
			Category(errors.CategoryFileParsing).
			Context("source", privacy.SanitizePath(path)).
			Build()
	}

	return &FLACSource{
		file:    f,
		decoder: decoder,
		scale:   float32(int(1) << (decoder.BitsPerSample - 1)),
	}, nil
}

func (s *FLACSource) ReadSamples(out []float32) (int, error) {
	copied := copy(out, s.leftover)
	s.leftover = s.leftover[copied:]

	for copied < len(out) && !s.eof {
		frame, err := s.decoder.Next()
		if err == io.EOF {
			s.eof = true
			break
		}
		if err != nil {
			return copied, errors.New(err).
				Component(ComponentPlayback).
				Category(errors.CategoryFileParsing).
				Context("source", privacy.SanitizePath(s.file.Name())).
				Build()
		}

		samples := s.decodeFrame(frame)
		n := copy(out[copied:], samples)
		copied += n
		if n < len(samples) {
			s.leftover = append(s.leftover[:0], samples[n:]...)
		}
	}

	if copied == 0 {
		return 0, io.EOF
	}
	return copied, nil
}

// decodeFrame converts one frame of interleaved little-endian PCM bytes to
// float32 samples, keeping every channel.
func (s *FLACSource) decodeFrame(frame []byte) []float32 {
	bps := s.decoder.BitsPerSample / 8
	samples := make([]float32, 0, len(frame)/bps)
	for i := 0; i+bps <= len(frame); i += bps {
		var sample int32
		switch s.decoder.BitsPerSample {
		case 16:
			sample = int32(int16(binary.LittleEndian.Uint16(frame[i:])))
		case 24:
			sample = int32(frame[i]) | int32(frame[i+1])<<8 | int32(frame[i+2])<<16
			// Sign-extend from 24 bits.
			sample = (sample << 8) >> 8
		case 32:
			sample = int32(binary.LittleEndian.Uint32(frame[i:]))
		}
		samples = append(samples, float32(sample)/s.scale)
	}
	return samples
}

func (s *FLACSource) SampleRate() int { return s.decoder.SampleRate }

func (s *FLACSource) Channels() int { return s.decoder.NChannels }

func (s *FLACSource) Close() error { return s.file.Close() }
