package frame

import (
	"context"
	"image"
)

// Source opens captures on a stream URL.
type Source interface {
	Open(ctx context.Context, url string) (Capture, error)
}

// Capture is an open stream. It is owned by a single caller and must be
// closed once that caller is done reading.
type Capture interface {
	Read() (Frame, error)
	Close() error
}

// FromRGBA converts an RGBA image to a packed BGR frame, dropping alpha.
func FromRGBA(img *image.RGBA) Frame {
	b := img.Bounds()
	f := New(b.Dx(), b.Dy())
	for y := 0; y < f.Height; y++ {
		src := img.Pix[y*img.Stride:]
		dst := f.Pix[y*f.Width*Channels:]
		for x := 0; x < f.Width; x++ {
			dst[x*Channels+0] = src[x*4+2]
			dst[x*Channels+1] = src[x*4+1]
			dst[x*Channels+2] = src[x*4+0]
		}
	}
	return f
}
