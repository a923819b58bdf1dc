package mirror

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scheerer/lamp-mirror/internal/extract"
	"github.com/scheerer/lamp-mirror/internal/frame"
	"github.com/scheerer/lamp-mirror/internal/lights"
	"github.com/scheerer/lamp-mirror/internal/stream"
)

type fakeResolver struct {
	url string
	err error
}

func (r fakeResolver) Resolve(ctx context.Context, channel string) (string, error) {
	return r.url, r.err
}

type result struct {
	frame frame.Frame
	err   error
}

// fakeSource hands out one capture per Open, reading results in order.
type fakeSource struct {
	results []result
	openErr error
	urls    []string
	opens   int
	closes  int
}

func (s *fakeSource) Open(ctx context.Context, url string) (frame.Capture, error) {
	s.urls = append(s.urls, url)
	if s.openErr != nil {
		return nil, s.openErr
	}
	if s.opens >= len(s.results) {
		return nil, errors.New("stream ended")
	}
	r := s.results[s.opens]
	s.opens++
	return &fakeCapture{source: s, result: r}, nil
}

type fakeCapture struct {
	source *fakeSource
	result result
}

func (c *fakeCapture) Read() (frame.Frame, error) { return c.result.frame, c.result.err }

func (c *fakeCapture) Close() error {
	c.source.closes++
	return nil
}

type driverCall struct {
	brightness int
	color      lights.Color
}

type fakeDriver struct {
	calls  []driverCall
	cancel context.CancelFunc
	stopAt int
}

func (d *fakeDriver) SetBrightness(ctx context.Context, brightness int) error {
	d.calls = append(d.calls, driverCall{brightness: brightness})
	return nil
}

func (d *fakeDriver) SetColor(ctx context.Context, color lights.Color) error {
	d.calls[len(d.calls)-1].color = color
	if d.cancel != nil && len(d.calls) >= d.stopAt {
		d.cancel()
	}
	return nil
}

func (d *fakeDriver) Close() error { return nil }

type fixedExtractor struct {
	cmd lights.Command
}

func (e fixedExtractor) Extract(region frame.Region) (lights.Command, error) {
	return e.cmd, nil
}

func solid(w, h int, p frame.Pixel) frame.Frame {
	f := frame.New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			f.Set(x, y, p)
		}
	}
	return f
}

func newMirror(source frame.Source, bounds frame.Bounds, extractor extract.Extractor, driver lights.Driver) *Mirror {
	return New(
		Config{Channel: "vedal987", Interval: 0},
		fakeResolver{url: "https://example/stream.m3u8"},
		source,
		frame.NewSelector(bounds, nil),
		extractor,
		lights.NewController(driver),
	)
}

func TestRunForwardsReversedColor(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := &fakeSource{results: []result{{frame: solid(8, 8, frame.Pixel{10, 20, 200})}}}
	driver := &fakeDriver{cancel: cancel, stopAt: 1}
	m := newMirror(source, frame.Bounds{XStart: 2, XEnd: 6, YStart: 2, YEnd: 6}, extract.NewGrayDistance(extract.NewState()), driver)

	require.NoError(t, m.Run(ctx))

	require.Len(t, driver.calls, 1)
	assert.Equal(t, lights.Color{Red: 200, Green: 20, Blue: 10}, driver.calls[0].color)
	// brightest (10, 20, 200) -> 230/3 = 76 -> 76*100/256
	assert.Equal(t, 29, driver.calls[0].brightness)
	assert.Equal(t, []string{"https://example/stream.m3u8"}, source.urls)
	assert.Equal(t, source.opens, source.closes)
}

func TestRunOpenFailureIsFatal(t *testing.T) {
	source := &fakeSource{openErr: errors.New("connection refused")}
	driver := &fakeDriver{}
	m := newMirror(source, frame.Bounds{XEnd: 1, YEnd: 1}, extract.NewGrayDistance(extract.NewState()), driver)

	err := m.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Empty(t, driver.calls)
}

func TestRunResolveFailureDefersToOpen(t *testing.T) {
	source := &fakeSource{openErr: errors.New("empty url")}
	m := New(
		Config{Channel: "vedal987"},
		fakeResolver{err: stream.ErrNoStream},
		source,
		frame.NewSelector(frame.Bounds{XEnd: 1, YEnd: 1}, nil),
		extract.NewGrayDistance(extract.NewState()),
		lights.NewController(&fakeDriver{}),
	)

	err := m.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{""}, source.urls)
}

func TestRunSkipsBadIterations(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	good := solid(4, 4, frame.Pixel{10, 20, 200})
	source := &fakeSource{results: []result{
		{err: errors.New("no frame decoded")},
		{frame: solid(2, 2, frame.Pixel{10, 20, 200})}, // smaller than the ROI
		{frame: good},
	}}
	driver := &fakeDriver{cancel: cancel, stopAt: 1}
	m := newMirror(source, frame.Bounds{XEnd: 4, YEnd: 4}, extract.NewGrayDistance(extract.NewState()), driver)

	require.NoError(t, m.Run(ctx))

	assert.Len(t, driver.calls, 1)
	assert.Equal(t, 3, source.closes)
	assert.Equal(t, Stats{Iterations: 3, Applied: 1, Skipped: 2}, m.Stats())
}

func TestRunEmptyRegionSkips(t *testing.T) {
	source := &fakeSource{results: []result{
		{frame: solid(4, 4, frame.Pixel{10, 20, 200})},
	}}
	driver := &fakeDriver{}
	m := newMirror(source, frame.Bounds{XStart: 2, XEnd: 2, YEnd: 4}, extract.NewGrayDistance(extract.NewState()), driver)

	// second Open fails once results run out, which ends the loop
	err := m.Run(context.Background())
	require.Error(t, err)

	assert.Empty(t, driver.calls)
	assert.Equal(t, 1, m.Stats().Skipped)
	assert.Equal(t, 1, source.closes)
}

func TestRunSubstitutesInvalidColor(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := &fakeSource{results: []result{{frame: solid(2, 2, frame.Pixel{})}}}
	driver := &fakeDriver{cancel: cancel, stopAt: 1}
	cmd := lights.Command{Brightness: 50, Color: lights.Color{Red: 300, Green: 10, Blue: 10}}
	m := newMirror(source, frame.Bounds{XEnd: 2, YEnd: 2}, fixedExtractor{cmd: cmd}, driver)

	require.NoError(t, m.Run(ctx))
	require.Len(t, driver.calls, 1)
	assert.Equal(t, driverCall{brightness: 50, color: lights.Gray(50)}, driver.calls[0])
}

func TestRunRejectsInvalidBrightness(t *testing.T) {
	source := &fakeSource{results: []result{
		{frame: solid(2, 2, frame.Pixel{})},
		{frame: solid(2, 2, frame.Pixel{})},
	}}
	driver := &fakeDriver{}
	cmd := lights.Command{Brightness: 0, Color: lights.Color{Red: 10, Green: 10, Blue: 10}}
	m := newMirror(source, frame.Bounds{XEnd: 2, YEnd: 2}, fixedExtractor{cmd: cmd}, driver)

	require.Error(t, m.Run(context.Background()))
	assert.Empty(t, driver.calls)
	assert.Equal(t, 2, m.Stats().Rejected)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := &fakeSource{}
	m := newMirror(source, frame.Bounds{XEnd: 1, YEnd: 1}, extract.NewGrayDistance(extract.NewState()), &fakeDriver{})

	require.NoError(t, m.Run(ctx))
	assert.Equal(t, 0, source.opens)
}
