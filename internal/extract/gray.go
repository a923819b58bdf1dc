package extract

import (
	"go.uber.org/zap"

	"github.com/scheerer/lamp-mirror/internal/frame"
	"github.com/scheerer/lamp-mirror/internal/lights"
	"github.com/scheerer/lamp-mirror/internal/util"
)

// Magnitude band for candidate pixels. Both ends are exclusive.
const (
	MinMagnitude = 150
	MaxMagnitude = 245
)

// GrayDistance picks the pixel furthest from gray among those that are
// neither near black nor near white. Brightness comes from the per-channel
// maximum of the whole region, not from the chosen pixel.
type GrayDistance struct {
	state *State
}

func NewGrayDistance(state *State) *GrayDistance {
	return &GrayDistance{state: state}
}

func (g *GrayDistance) Extract(region frame.Region) (lights.Command, error) {
	pixels := region.Pixels()
	if len(pixels) == 0 {
		return lights.Command{}, ErrEmptyRegion
	}

	var brightest frame.Pixel
	var best frame.Pixel
	bestScore, candidates := -1, 0
	for _, p := range pixels {
		for i := range p {
			if p[i] > brightest[i] {
				brightest[i] = p[i]
			}
		}

		m := util.Magnitude(p)
		if m <= MinMagnitude || m >= MaxMagnitude {
			continue
		}
		candidates++

		// strictly greater keeps the first pixel on ties
		if score := util.GrayDistance(p); score > bestScore {
			bestScore = score
			best = p
		}
	}

	if candidates == 0 {
		best = g.state.Last()
		logger.With(zap.Stringer("fallback", lights.FromBGR(best))).Debug("No pixel in brightness band, reusing last color")
	}
	g.state.Store(best)

	return lights.Command{
		Brightness: bandBrightness(brightest),
		Color:      lights.FromBGR(best),
	}, nil
}

// bandBrightness is floor(floor(mean channel) / 256 * 100).
func bandBrightness(p frame.Pixel) int {
	mean := (int(p[0]) + int(p[1]) + int(p[2])) / 3
	return mean * 100 / 256
}
