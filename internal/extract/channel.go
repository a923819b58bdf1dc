package extract

import (
	"sort"

	"github.com/scheerer/lamp-mirror/internal/frame"
	"github.com/scheerer/lamp-mirror/internal/lights"
	"github.com/scheerer/lamp-mirror/internal/util"
)

// ChannelStat reduces each channel independently (mean or median) and
// reports the result's magnitude as brightness.
type ChannelStat struct {
	state  *State
	reduce func(values []uint8) uint8
}

func (c *ChannelStat) Extract(region frame.Region) (lights.Command, error) {
	pixels := region.Pixels()
	if len(pixels) == 0 {
		return lights.Command{}, ErrEmptyRegion
	}

	var channels [frame.Channels][]uint8
	for i := range channels {
		channels[i] = make([]uint8, 0, len(pixels))
	}
	for _, p := range pixels {
		for i := range p {
			channels[i] = append(channels[i], p[i])
		}
	}

	var result frame.Pixel
	for i := range channels {
		result[i] = c.reduce(channels[i])
	}
	c.state.Store(result)

	return lights.Command{
		Brightness: util.RelativeBrightness(result),
		Color:      lights.FromBGR(result),
	}, nil
}

func mean(values []uint8) uint8 {
	var sum uint64
	for _, v := range values {
		sum += uint64(v)
	}
	return uint8(sum / uint64(len(values)))
}

func median(values []uint8) uint8 {
	sorted := append([]uint8(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	n := len(sorted)
	if n%2 == 0 {
		return uint8((int(sorted[n/2-1]) + int(sorted[n/2])) / 2)
	}
	return sorted[n/2]
}
