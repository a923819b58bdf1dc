package extract

import (
	"go.uber.org/zap"

	"github.com/scheerer/lamp-mirror/internal/frame"
	"github.com/scheerer/lamp-mirror/internal/lights"
	"github.com/scheerer/lamp-mirror/internal/util"
)

const (
	// QuantizeStep is the channel rounding step for Mode.
	QuantizeStep = 5
	// DefaultModeBrightness is the brightness Mode reports unless told otherwise.
	DefaultModeBrightness = 100
)

// Mode picks the most common color after rounding every channel to a
// multiple of QuantizeStep. Ties go to the smallest color in (R, G, B) order.
//
// Mode computes a brightness from the chosen color's magnitude, but by
// default reports FixedBrightness instead. Set FixedBrightness to 0 to use the
// computed value.
type Mode struct {
	FixedBrightness int

	state *State
}

func NewMode(state *State) *Mode {
	return &Mode{FixedBrightness: DefaultModeBrightness, state: state}
}

func (m *Mode) Extract(region frame.Region) (lights.Command, error) {
	pixels := region.Pixels()
	if len(pixels) == 0 {
		return lights.Command{}, ErrEmptyRegion
	}

	counts := make(map[frame.Pixel]int)
	for _, p := range pixels {
		var q frame.Pixel
		for i := range p {
			q[i] = util.Quantize(p[i], QuantizeStep)
		}
		counts[q]++
	}

	var mode frame.Pixel
	maxCount := 0
	for p, count := range counts {
		if count > maxCount || (count == maxCount && rgbLess(p, mode)) {
			maxCount = count
			mode = p
		}
	}
	m.state.Store(mode)

	computed := util.RelativeBrightness(mode)
	brightness := computed
	if m.FixedBrightness > 0 {
		brightness = m.FixedBrightness
	}

	color := lights.FromBGR(mode)
	logger.With(zap.Stringer("color", color),
		zap.Int("count", maxCount),
		zap.Int("computedBrightness", computed),
		zap.Int("brightness", brightness)).
		Debug("Mode color")

	return lights.Command{Brightness: brightness, Color: color}, nil
}

// rgbLess compares two BGR pixels in conventional (R, G, B) order.
func rgbLess(a, b frame.Pixel) bool {
	for i := frame.Channels - 1; i >= 0; i-- {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
