package capture

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/scheerer/lamp-mirror/internal/frame"
)

// ImageDumper writes frames as PNG files into Dir, overwriting the previous
// file of the same name.
type ImageDumper struct {
	Dir string
}

var _ frame.Dumper = ImageDumper{}

func (d ImageDumper) Dump(name string, f frame.Frame) error {
	mat, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, f.Pix)
	if err != nil {
		return fmt.Errorf("wrap frame: %w", err)
	}
	defer mat.Close()

	path := filepath.Join(d.Dir, name+".png")
	logger.With(zap.String("path", path)).Debug("Saving debug image")
	if !gocv.IMWrite(path, mat) {
		return fmt.Errorf("failed to write %s", path)
	}
	return nil
}
