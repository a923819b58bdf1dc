// Package frame holds decoded video frames and the region-of-interest crop
// the color extractors work on.
//
// Pixels are kept in the decoder's native channel order (blue, green, red).
// Nothing in this package reorders channels; that happens once, when a pixel
// is turned into a lights.Color.
package frame

import (
	"errors"
	"fmt"
)

// Channels per pixel.
const Channels = 3

var ErrOutOfBounds = errors.New("region out of frame bounds")

// Pixel is one BGR pixel.
type Pixel [Channels]uint8

// Frame is a packed BGR image, Width*Height*3 bytes, rows top to bottom.
type Frame struct {
	Width  int
	Height int
	Pix    []uint8
}

// New allocates a black frame.
func New(width, height int) Frame {
	return Frame{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*Channels),
	}
}

// FromBGR wraps an existing packed BGR buffer.
func FromBGR(width, height int, pix []uint8) (Frame, error) {
	if width < 0 || height < 0 {
		return Frame{}, fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	if len(pix) != width*height*Channels {
		return Frame{}, fmt.Errorf("frame buffer has %d bytes, want %d for %dx%d", len(pix), width*height*Channels, width, height)
	}
	return Frame{Width: width, Height: height, Pix: pix}, nil
}

func (f Frame) offset(x, y int) int {
	return (y*f.Width + x) * Channels
}

func (f Frame) At(x, y int) Pixel {
	o := f.offset(x, y)
	return Pixel{f.Pix[o], f.Pix[o+1], f.Pix[o+2]}
}

func (f Frame) Set(x, y int, p Pixel) {
	o := f.offset(x, y)
	copy(f.Pix[o:o+Channels], p[:])
}

// Empty reports whether the frame has no pixels.
func (f Frame) Empty() bool {
	return f.Width == 0 || f.Height == 0
}
