package capture

import (
	"context"
	"fmt"

	"github.com/kbinani/screenshot"

	"github.com/scheerer/lamp-mirror/internal/frame"
)

// Screen captures a local display instead of a stream. The URL passed to
// Open is ignored.
type Screen struct {
	Display int
}

var _ frame.Source = Screen{}

func (s Screen) Open(ctx context.Context, url string) (frame.Capture, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n := screenshot.NumActiveDisplays(); s.Display < 0 || s.Display >= n {
		return nil, fmt.Errorf("display %d not available, %d active", s.Display, n)
	}
	return screenCapture{display: s.Display}, nil
}

type screenCapture struct {
	display int
}

func (c screenCapture) Read() (frame.Frame, error) {
	img, err := screenshot.CaptureDisplay(c.display)
	if err != nil {
		return frame.Frame{}, fmt.Errorf("failed to capture screen: %w", err)
	}
	return frame.FromRGBA(img), nil
}

func (screenCapture) Close() error {
	return nil
}
