package lifx

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/pdf/golifx"
	"github.com/pdf/golifx/common"
	"github.com/pdf/golifx/protocol"
	"go.uber.org/zap"

	"github.com/scheerer/lamp-mirror/internal/lights"
	"github.com/scheerer/lamp-mirror/internal/logging"
	"github.com/scheerer/lamp-mirror/internal/util"
)

var logger = logging.New("lifx")

const kelvin = 3500

var ErrNoGroup = errors.New("LIFX group not discovered yet")

// group is the part of common.Group the driver uses.
type group interface {
	GetLabel() string
	Lights() []common.Light
	SetColor(color common.Color, duration time.Duration) error
}

// LifxLights drives every bulb in a LIFX group as one lamp. Brightness and
// color are tracked together since LIFX sets both in a single HSBK message.
type LifxLights struct {
	config Config
	client *golifx.Client

	lightsMu sync.RWMutex
	group    group
	current  common.Color
}

var _ lights.Driver = (*LifxLights)(nil)

type Config struct {
	GroupName     string
	MaxBrightness float64
	MinBrightness float64
	Transition    time.Duration
}

func NewLifx(ctx context.Context, config Config) (*LifxLights, error) {
	client, err := golifx.NewClient(&protocol.V2{})
	if err != nil {
		return nil, err
	}

	l := newLifx(config)
	l.client = client
	go l.Start(ctx)
	return l, nil
}

func newLifx(config Config) *LifxLights {
	if config.MaxBrightness <= 0 {
		config.MaxBrightness = 1
	}
	return &LifxLights{
		config:  config,
		current: common.Color{Kelvin: kelvin},
	}
}

func (l *LifxLights) Start(ctx context.Context) {
	discoveryInterval := 15 * time.Second
	ticker := time.NewTicker(discoveryInterval)
	defer ticker.Stop()

	l.client.SetDiscoveryInterval(discoveryInterval)

	timeout := 5 * time.Second
	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
	l.discover(ctxWithTimeout)
	cancel()

	for {
		select {
		case <-ticker.C:
			ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
			l.discover(ctxWithTimeout)
			cancel()
		case <-ctx.Done():
			return
		}
	}
}

func (l *LifxLights) discover(ctx context.Context) {
	logger.With(zap.String("group", l.config.GroupName)).Debug("LIFX discovery starting...")

	type result struct {
		group common.Group
		err   error
	}
	completed := make(chan result, 1)
	go func() {
		g, err := l.client.GetGroupByLabel(l.config.GroupName)
		completed <- result{g, err}
	}()

	select {
	case <-ctx.Done():
		logger.With(zap.Error(ctx.Err())).Warn("LIFX discovery timed out.")
	case r := <-completed:
		if r.err != nil || r.group == nil {
			logger.With(zap.Error(r.err)).Warn("Couldn't discover group.")
			return
		}
		l.lightsMu.Lock()
		if l.group == nil {
			logger.With(zap.String("group", r.group.GetLabel())).Info("LIFX group found")
		}
		l.group = r.group
		l.lightsMu.Unlock()
	}
}

func (l *LifxLights) LightCount() int {
	l.lightsMu.RLock()
	defer l.lightsMu.RUnlock()
	if l.group == nil {
		return 0
	}
	return len(l.group.Lights())
}

func (l *LifxLights) SetBrightness(ctx context.Context, brightness int) error {
	l.lightsMu.Lock()
	defer l.lightsMu.Unlock()

	next := l.current
	next.Brightness = uint16(math.Round(float64(brightness) / 100 * 0xFFFF))
	return l.apply(next)
}

func (l *LifxLights) SetColor(ctx context.Context, color lights.Color) error {
	l.lightsMu.Lock()
	defer l.lightsMu.Unlock()

	hue, saturation, _ := util.RgbToHsb(uint8(color.Red), uint8(color.Green), uint8(color.Blue))
	next := l.current
	next.Hue, next.Saturation = hue, saturation
	return l.apply(next)
}

// apply sends c to the group and remembers it. Callers hold lightsMu.
func (l *LifxLights) apply(c common.Color) error {
	if l.group == nil {
		return ErrNoGroup
	}

	adjusted := adjustColor(c, l.config)
	logger.With(zap.Any("lifxColor", adjusted), zap.Int("lights", len(l.group.Lights()))).
		Debug("Setting LIFX group color")

	if err := l.group.SetColor(adjusted, l.config.Transition); err != nil {
		return err
	}
	l.current = c
	return nil
}

func (l *LifxLights) Close() error {
	if l.client == nil {
		return nil
	}
	return l.client.Close()
}

// adjustColor keeps brightness within the configured limits.
func adjustColor(color common.Color, config Config) common.Color {
	color.Brightness = uint16(math.Round(math.Min(config.MaxBrightness*0xFFFF, math.Max(config.MinBrightness*0xFFFF, float64(color.Brightness)))))
	return color
}
