package lights

import (
	"context"
	"fmt"

	"github.com/scheerer/lamp-mirror/internal/logging"
)

var logger = logging.New("lights")

// Color is a conventional RGB color. Channels are ints so that out of range
// values survive until validation.
type Color struct {
	Red   int
	Green int
	Blue  int
}

// FromBGR converts a pixel in decoder order (blue, green, red) to a Color.
// This is the only place channel order is reversed.
func FromBGR(p [3]uint8) Color {
	return Color{Red: int(p[2]), Green: int(p[1]), Blue: int(p[0])}
}

// Gray returns a color with every channel set to v.
func Gray(v int) Color {
	return Color{Red: v, Green: v, Blue: v}
}

// Int packs the color as 0xRRGGBB.
func (c Color) Int() int {
	return c.Red<<16 | c.Green<<8 | c.Blue
}

func (c Color) String() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", c.Red, c.Green, c.Blue)
}

// Command is one brightness and color update for the lamp.
type Command struct {
	Brightness int
	Color      Color
}

// Driver talks to a physical bulb. Brightness is a percentage, color channels
// are 0-255.
type Driver interface {
	SetBrightness(ctx context.Context, brightness int) error
	SetColor(ctx context.Context, color Color) error
	Close() error
}
