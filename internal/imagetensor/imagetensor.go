// Package imagetensor turns a captured camera frame into the channel-planar
// float tensor consumed by the face mood model.
package imagetensor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Model input geometry.
const (
	Size     = 224
	Channels = 3
)

// ErrDecode is returned when a frame cannot be turned into pixel data.
var ErrDecode = errors.New("cannot decode image")

// Frame is an 8-bit RGB image of arbitrary size. Pix holds Width*Height
// interleaved R, G, B triples in row-major order.
type Frame struct {
	Width  int
	Height int
	Pix    []uint8
}

// Validate checks that the pixel buffer matches the declared geometry.
func (f Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: empty frame %dx%d", ErrDecode, f.Width, f.Height)
	}
	if len(f.Pix) != f.Width*f.Height*Channels {
		return fmt.Errorf("%w: %d bytes for %dx%d RGB frame", ErrDecode, len(f.Pix), f.Width, f.Height)
	}
	return nil
}

// FrameFromImage copies any image.Image into an RGB Frame, dropping alpha.
func FrameFromImage(img image.Image) Frame {
	b := img.Bounds()
	f := Frame{
		Width:  b.Dx(),
		Height: b.Dy(),
		Pix:    make([]uint8, b.Dx()*b.Dy()*Channels),
	}
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			f.Pix[i] = uint8(r >> 8)
			f.Pix[i+1] = uint8(g >> 8)
			f.Pix[i+2] = uint8(bl >> 8)
			i += Channels
		}
	}
	return f
}

// DecodeFrame decodes a JPEG, PNG, GIF, BMP or WebP stream into a Frame.
func DecodeFrame(r io.Reader) (Frame, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if img.Bounds().Empty() {
		return Frame{}, fmt.Errorf("%w: empty %s image", ErrDecode, format)
	}
	return FrameFromImage(img), nil
}

// DecodeFrameBytes is DecodeFrame over an in-memory buffer.
func DecodeFrameBytes(b []byte) (Frame, error) {
	return DecodeFrame(bytes.NewReader(b))
}

// Tensor is a [1, 3, Size, Size] float32 tensor laid out channel-planar:
// every red value, then every green value, then every blue value.
type Tensor struct {
	data []float32
}

// Shape returns the tensor shape.
func (t Tensor) Shape() []int64 {
	return []int64{1, Channels, Size, Size}
}

// Data returns the tensor values.
func (t Tensor) Data() []float32 {
	return t.data
}

// At returns the value for channel c at row y, column x.
func (t Tensor) At(c, y, x int) float32 {
	return t.data[c*Size*Size+y*Size+x]
}

// Build resizes f to Size x Size with bilinear interpolation and writes
// each channel divided by 255 into a planar tensor.
func Build(f Frame) (Tensor, error) {
	if err := f.Validate(); err != nil {
		return Tensor{}, err
	}

	src := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for i, j := 0, 0; i < len(f.Pix); i, j = i+Channels, j+4 {
		src.Pix[j] = f.Pix[i]
		src.Pix[j+1] = f.Pix[i+1]
		src.Pix[j+2] = f.Pix[i+2]
		src.Pix[j+3] = 0xff
	}

	dst := image.NewRGBA(image.Rect(0, 0, Size, Size))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	const plane = Size * Size
	data := make([]float32, Channels*plane)
	for p := 0; p < plane; p++ {
		px := dst.Pix[p*4 : p*4+3 : p*4+3]
		data[p] = float32(px[0]) / 255
		data[plane+p] = float32(px[1]) / 255
		data[2*plane+p] = float32(px[2]) / 255
	}
	return Tensor{data: data}, nil
}
