// Package capture provides frame sources backed by OpenCV video decoding and
// desktop screenshots.
package capture

import (
	"context"
	"errors"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/scheerer/lamp-mirror/internal/frame"
	"github.com/scheerer/lamp-mirror/internal/logging"
)

var logger = logging.New("capture")

var (
	ErrNotOpened  = errors.New("video capture is not opened")
	ErrEmptyFrame = errors.New("empty frame captured")
)

// Video opens a fresh OpenCV capture for every Open call.
type Video struct{}

var _ frame.Source = Video{}

func (Video) Open(ctx context.Context, url string) (frame.Capture, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vc, err := gocv.OpenVideoCapture(url)
	if err != nil {
		return nil, fmt.Errorf("failed to open video capture: %w", err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, ErrNotOpened
	}

	return &videoCapture{vc: vc, img: gocv.NewMat()}, nil
}

type videoCapture struct {
	vc  *gocv.VideoCapture
	img gocv.Mat
}

func (c *videoCapture) Read() (frame.Frame, error) {
	if !c.vc.Read(&c.img) {
		return frame.Frame{}, errors.New("failed to read frame from video stream")
	}
	if c.img.Empty() {
		return frame.Frame{}, ErrEmptyFrame
	}
	return matToFrame(c.img)
}

func (c *videoCapture) Close() error {
	c.img.Close()
	return c.vc.Close()
}

// matToFrame copies a decoded Mat into a packed BGR frame. Decoders normally
// produce 8-bit BGR already; gray and BGRA inputs are converted.
func matToFrame(m gocv.Mat) (frame.Frame, error) {
	src := m
	switch m.Channels() {
	case 3:
	case 1, 4:
		code := gocv.ColorGrayToBGR
		if m.Channels() == 4 {
			code = gocv.ColorBGRAToBGR
		}
		converted := gocv.NewMat()
		defer converted.Close()
		gocv.CvtColor(m, &converted, code)
		src = converted
	default:
		return frame.Frame{}, fmt.Errorf("unsupported channel count %d", m.Channels())
	}

	if src.Type() != gocv.MatTypeCV8UC3 {
		return frame.Frame{}, fmt.Errorf("unsupported mat type %v", src.Type())
	}
	if !src.IsContinuous() {
		cont := src.Clone()
		defer cont.Close()
		src = cont
	}

	return frame.FromBGR(src.Cols(), src.Rows(), src.ToBytes())
}
