package lights

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

const (
	MinBrightness = 1
	MaxBrightness = 100
	MinChannel    = 1
	MaxChannel    = 255
)

var ErrInvalidBrightness = errors.New("invalid brightness")

// Controller validates commands before handing them to a Driver.
type Controller struct {
	driver Driver
}

func NewController(driver Driver) *Controller {
	return &Controller{driver: driver}
}

// Apply sends cmd to the driver as two calls, brightness first. Commands with
// a brightness outside [1, 100] are dropped. A color with any channel outside
// [1, 255] is replaced by gray at the brightness level.
//
// The two driver calls are not atomic. When setting the color fails the
// lamp keeps the new brightness with its old color.
func (c *Controller) Apply(ctx context.Context, cmd Command) error {
	log := logger.With(zap.Int("brightness", cmd.Brightness), zap.Stringer("color", cmd.Color))
	log.Info("Updating lamp")

	if !validBrightness(cmd.Brightness) {
		log.Warn("Invalid brightness value - skipping update")
		return fmt.Errorf("%w: %d", ErrInvalidBrightness, cmd.Brightness)
	}

	color := cmd.Color
	if !validColor(color) {
		color = Gray(cmd.Brightness)
		log.With(zap.Stringer("substitute", color)).Warn("Invalid RGB value, defaulting to brightness")
	}

	if err := c.driver.SetBrightness(ctx, cmd.Brightness); err != nil {
		return fmt.Errorf("set brightness: %w", err)
	}
	if err := c.driver.SetColor(ctx, color); err != nil {
		return fmt.Errorf("set color: %w", err)
	}
	return nil
}

func (c *Controller) Close() error {
	return c.driver.Close()
}

func validBrightness(b int) bool {
	return b >= MinBrightness && b <= MaxBrightness
}

func validColor(c Color) bool {
	for _, v := range []int{c.Red, c.Green, c.Blue} {
		if v < MinChannel || v > MaxChannel {
			return false
		}
	}
	return true
}
