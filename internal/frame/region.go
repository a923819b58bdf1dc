package frame

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/scheerer/lamp-mirror/internal/logging"
)

var logger = logging.New("frame")

// Bounds is a half-open rectangle: x in [XStart, XEnd), y in [YStart, YEnd).
type Bounds struct {
	XStart int
	XEnd   int
	YStart int
	YEnd   int
}

func (b Bounds) Width() int {
	return b.XEnd - b.XStart
}

func (b Bounds) Height() int {
	return b.YEnd - b.YStart
}

// Empty reports a degenerate rectangle. Cropping one yields no pixels.
func (b Bounds) Empty() bool {
	return b.Width() <= 0 || b.Height() <= 0
}

func (b Bounds) String() string {
	return fmt.Sprintf("x[%d:%d] y[%d:%d]", b.XStart, b.XEnd, b.YStart, b.YEnd)
}

// Fits reports whether b lies inside a width x height frame.
func (b Bounds) Fits(width, height int) bool {
	return b.XStart >= 0 && b.YStart >= 0 &&
		b.XStart <= b.XEnd && b.YStart <= b.YEnd &&
		b.XEnd <= width && b.YEnd <= height
}

// Region is the cropped region of interest.
type Region struct {
	Frame
	Bounds Bounds
}

// Len is the number of pixels in the region.
func (r Region) Len() int {
	return r.Width * r.Height
}

// Pixels returns the region's pixels in scan order (row by row, left to right).
func (r Region) Pixels() []Pixel {
	pixels := make([]Pixel, 0, r.Len())
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			pixels = append(pixels, r.At(x, y))
		}
	}
	return pixels
}

// Dumper persists frames for debugging.
type Dumper interface {
	Dump(name string, f Frame) error
}

// Selector crops the configured region out of each frame.
type Selector struct {
	bounds Bounds
	dumper Dumper
}

// NewSelector returns a Selector for bounds. dumper may be nil.
func NewSelector(bounds Bounds, dumper Dumper) *Selector {
	return &Selector{bounds: bounds, dumper: dumper}
}

func (s *Selector) Bounds() Bounds {
	return s.bounds
}

// Select crops the region and, with a dumper configured, writes both the full
// frame and the crop out. Dump failures are logged and ignored.
func (s *Selector) Select(f Frame) (Region, error) {
	s.dump("frame", f)

	region, err := Crop(f, s.bounds)
	if err != nil {
		return Region{}, err
	}

	s.dump("rectangle", region.Frame)
	return region, nil
}

func (s *Selector) dump(name string, f Frame) {
	if s.dumper == nil || f.Empty() {
		return
	}
	if err := s.dumper.Dump(name, f); err != nil {
		logger.With(zap.String("name", name), zap.Error(err)).Warn("Failed to write debug image")
	}
}

// Crop copies the pixels within b out of f. A degenerate b gives an empty
// region; b reaching outside f is ErrOutOfBounds.
func Crop(f Frame, b Bounds) (Region, error) {
	if !b.Fits(f.Width, f.Height) {
		return Region{}, fmt.Errorf("%w: %s does not fit %dx%d frame", ErrOutOfBounds, b, f.Width, f.Height)
	}

	w, h := b.Width(), b.Height()
	out := New(w, h)
	rowBytes := w * Channels
	for y := 0; y < h; y++ {
		src := f.offset(b.XStart, b.YStart+y)
		copy(out.Pix[y*rowBytes:(y+1)*rowBytes], f.Pix[src:src+rowBytes])
	}

	return Region{Frame: out, Bounds: b}, nil
}
