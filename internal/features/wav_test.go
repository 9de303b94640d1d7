package features

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeWAV encodes interleaved 16-bit samples to a temporary file.
func writeWAV(t *testing.T, sampleRate, channels int, data []int) *os.File {
	t.Helper()

	f, err := os.Create(filepath.Join(t.TempDir(), "clip.wav"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Cleanup(func() { f.Close() })

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		t.Fatalf("seek: %v", err)
	}
	return f
}

func TestReadWAV(t *testing.T) {
	data := make([]int, 3000)
	for i := range data {
		data[i] = 16384
	}

	samples, err := ReadWAV(writeWAV(t, SampleRate, 1, data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(samples) != FrameSize {
		t.Fatalf("len = %d, want %d", len(samples), FrameSize)
	}
	if samples[0] != 0.5 {
		t.Errorf("samples[0] = %v, want 0.5", samples[0])
	}
}

func TestReadWAV_StereoTakesFirstChannel(t *testing.T) {
	data := make([]int, 200)
	for i := range data {
		if i%2 == 0 {
			data[i] = -8192
		} else {
			data[i] = 8192
		}
	}

	samples, err := ReadWAV(writeWAV(t, SampleRate, 2, data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(samples) != 100 {
		t.Fatalf("len = %d, want 100", len(samples))
	}
	for i, s := range samples {
		if s != -0.25 {
			t.Fatalf("samples[%d] = %v, want -0.25", i, s)
		}
	}
}

func TestReadWAV_Invalid(t *testing.T) {
	t.Run("wrong sample rate", func(t *testing.T) {
		_, err := ReadWAV(writeWAV(t, 44100, 1, make([]int, 100)))
		if !errors.Is(err, ErrInvalidSampleData) {
			t.Errorf("err = %v, want ErrInvalidSampleData", err)
		}
	})

	t.Run("not a wav", func(t *testing.T) {
		_, err := ReadWAV(bytes.NewReader([]byte("definitely not RIFF data")))
		if !errors.Is(err, ErrInvalidSampleData) {
			t.Errorf("err = %v, want ErrInvalidSampleData", err)
		}
	})
}
