// Package extract reduces a region of interest to a single lamp command.
//
// Several strategies are available, chosen by name with New:
//
//	FURTHEST_FROM_GRAY  most saturated pixel within a brightness band (default)
//	QUANTIZED_MODE      most frequent color after rounding channels to multiples of 5
//	AVERAGE             per-channel mean
//	MEDIAN              per-channel median
//
// Every strategy records the color it picked in a State.
package extract

import (
	"errors"
	"fmt"
	"sort"

	"github.com/scheerer/lamp-mirror/internal/frame"
	"github.com/scheerer/lamp-mirror/internal/lights"
	"github.com/scheerer/lamp-mirror/internal/logging"
)

var logger = logging.New("extract")

const (
	FurthestFromGray = "FURTHEST_FROM_GRAY"
	QuantizedMode    = "QUANTIZED_MODE"
	Average          = "AVERAGE"
	Median           = "MEDIAN"
)

var ErrEmptyRegion = errors.New("region of interest has no pixels")

// Extractor turns a region into a lamp command. Implementations are not
// required to be safe for concurrent use.
type Extractor interface {
	Extract(region frame.Region) (lights.Command, error)
}

// Options tune individual strategies.
type Options struct {
	// ModeFixedBrightness replaces the brightness QUANTIZED_MODE computes.
	// Zero keeps the computed value.
	ModeFixedBrightness int
}

// Names lists the strategies New accepts.
func Names() []string {
	names := []string{FurthestFromGray, QuantizedMode, Average, Median}
	sort.Strings(names)
	return names
}

// New builds the named strategy around state.
func New(name string, state *State, opts Options) (Extractor, error) {
	if state == nil {
		state = NewState()
	}
	switch name {
	case FurthestFromGray:
		return NewGrayDistance(state), nil
	case QuantizedMode:
		m := NewMode(state)
		m.FixedBrightness = opts.ModeFixedBrightness
		return m, nil
	case Average:
		return &ChannelStat{state: state, reduce: mean}, nil
	case Median:
		return &ChannelStat{state: state, reduce: median}, nil
	default:
		return nil, fmt.Errorf("unknown color algorithm %q, valid values are %v", name, Names())
	}
}
