// Package mirror runs the capture, extract and apply loop that keeps a lamp
// in step with a video stream.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/scheerer/lamp-mirror/internal/extract"
	"github.com/scheerer/lamp-mirror/internal/frame"
	"github.com/scheerer/lamp-mirror/internal/lights"
	"github.com/scheerer/lamp-mirror/internal/logging"
	"github.com/scheerer/lamp-mirror/internal/stream"
)

var logger = logging.New("mirror")

// slowWarningInterval limits how often a slow iteration is reported.
const slowWarningInterval = 10 * time.Second

// Lamp applies commands to the light.
type Lamp interface {
	Apply(ctx context.Context, cmd lights.Command) error
}

type Config struct {
	Channel  string
	Interval time.Duration
}

// Stats counts what happened to each iteration.
type Stats struct {
	Iterations int
	Applied    int
	Skipped    int
	Rejected   int
}

type Mirror struct {
	config    Config
	resolver  stream.Resolver
	source    frame.Source
	selector  *frame.Selector
	extractor extract.Extractor
	lamp      Lamp

	stats Stats
}

func New(config Config, resolver stream.Resolver, source frame.Source, selector *frame.Selector, extractor extract.Extractor, lamp Lamp) *Mirror {
	return &Mirror{
		config:    config,
		resolver:  resolver,
		source:    source,
		selector:  selector,
		extractor: extractor,
		lamp:      lamp,
	}
}

// Stats is only meaningful once Run has returned.
func (m *Mirror) Stats() Stats {
	return m.stats
}

// Run resolves the stream once, then loops until ctx is done or the stream
// cannot be opened. A failed resolve is not fatal by itself: the empty URL is
// passed on and the open fails instead. Returns nil on cancellation.
func (m *Mirror) Run(ctx context.Context) error {
	url, err := m.resolver.Resolve(ctx, m.config.Channel)
	if err != nil {
		logger.With(zap.String("channel", m.config.Channel), zap.Error(err)).Error("Failed to get stream URL")
	}

	var lastWarning time.Time
	for {
		if ctx.Err() != nil {
			return nil
		}

		startTime := time.Now()
		if err := m.iterate(ctx, url); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		totalDuration := time.Since(startTime)
		if totalDuration > m.config.Interval && time.Since(lastWarning) > slowWarningInterval {
			logger.With(zap.Stringer("totalDuration", totalDuration), zap.Stringer("interval", m.config.Interval)).
				Warn("Iteration took longer than UPDATE_INTERVAL")
			lastWarning = time.Now()
		}

		if !sleep(ctx, m.config.Interval) {
			return nil
		}
	}
}

// iterate runs one capture cycle. Only a failure to open the stream is
// returned; everything else is logged and the cycle skipped. The capture is
// released before returning.
func (m *Mirror) iterate(ctx context.Context, url string) error {
	m.stats.Iterations++
	logger.Debug("Capturing new frame")

	capture, err := m.source.Open(ctx, url)
	if err != nil {
		return fmt.Errorf("unable to open the stream: %w", err)
	}
	defer func() {
		if err := capture.Close(); err != nil {
			logger.With(zap.Error(err)).Warn("Failed to release capture")
		}
	}()

	f, err := capture.Read()
	if err != nil {
		m.stats.Skipped++
		logger.With(zap.Error(err)).Error("Unable to capture a frame")
		return nil
	}

	region, err := m.selector.Select(f)
	if err != nil {
		m.stats.Skipped++
		logger.With(zap.Stringer("roi", m.selector.Bounds()), zap.Int("width", f.Width), zap.Int("height", f.Height), zap.Error(err)).
			Error("Failed to select region of interest")
		return nil
	}

	cmd, err := m.extractor.Extract(region)
	if err != nil {
		m.stats.Skipped++
		logger.With(zap.Error(err)).Error("Failed to extract lamp color")
		return nil
	}

	if err := m.lamp.Apply(ctx, cmd); err != nil {
		if errors.Is(err, lights.ErrInvalidBrightness) {
			m.stats.Rejected++
			return nil
		}
		m.stats.Skipped++
		logger.With(zap.Error(err)).Error("Failed to update lamp")
		return nil
	}

	m.stats.Applied++
	return nil
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
