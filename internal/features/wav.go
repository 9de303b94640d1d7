package features

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ReadWAV decodes up to FrameSize frames of a 16 kHz PCM WAV stream into
// samples normalised to [-1, 1]. Only the first channel is kept.
func ReadWAV(r io.ReadSeeker) ([]float32, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: not a PCM WAV stream", ErrInvalidSampleData)
	}
	if d.SampleRate != SampleRate {
		return nil, fmt.Errorf("%w: sample rate %d Hz, want %d Hz", ErrInvalidSampleData, d.SampleRate, SampleRate)
	}
	if d.BitDepth == 0 || d.BitDepth > 32 {
		return nil, fmt.Errorf("%w: unsupported bit depth %d", ErrInvalidSampleData, d.BitDepth)
	}

	channels := int(d.NumChans)
	if channels < 1 {
		channels = 1
	}

	buf := &audio.IntBuffer{
		Format:         d.Format(),
		Data:           make([]int, FrameSize*channels),
		SourceBitDepth: int(d.BitDepth),
	}
	n, err := d.PCMBuffer(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: reading PCM data: %v", ErrInvalidSampleData, err)
	}

	return toMono(buf.Data[:n], channels, int(d.BitDepth)), nil
}

// toMono takes the first channel of interleaved integer PCM and scales it
// to [-1, 1]. 8-bit WAV data is unsigned and is re-centred first.
func toMono(data []int, channels, bitDepth int) []float32 {
	frames := len(data) / channels
	full := float32(int64(1) << (bitDepth - 1))

	out := make([]float32, frames)
	for i := range out {
		v := data[i*channels]
		if bitDepth == 8 {
			v -= 128
		}
		out[i] = float32(v) / full
	}
	return out
}
