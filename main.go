package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/scheerer/lamp-mirror/internal/capture"
	"github.com/scheerer/lamp-mirror/internal/config"
	"github.com/scheerer/lamp-mirror/internal/extract"
	"github.com/scheerer/lamp-mirror/internal/frame"
	"github.com/scheerer/lamp-mirror/internal/lights"
	"github.com/scheerer/lamp-mirror/internal/lights/lifx"
	"github.com/scheerer/lamp-mirror/internal/lights/yeelight"
	"github.com/scheerer/lamp-mirror/internal/logging"
	"github.com/scheerer/lamp-mirror/internal/mirror"
	"github.com/scheerer/lamp-mirror/internal/stream"
)

var logger = logging.New("main")

func main() {
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.With(zap.Error(err)).Fatal("Failed to load configuration")
	}
	logging.GetLeveler().SetAll(logging.ParseLevel(cfg.LogLevel))

	logger.With(zap.Any("settings", cfg.Settings), zap.Stringer("roi", cfg.ROI), zap.String("lampIP", cfg.LampIP)).
		Info("Starting lamp mirror")

	logger.Info("Adjust CONFIG_FILE to point at the device file holding the region and lamp credentials.")
	logger.Info("Adjust STREAM_CHANNEL to follow a different channel, or set STREAM_URL to skip streamlink entirely.")
	logger.Infof("Adjust COLOR_ALGO to change color algorithm. Valid values are: [%s]", strings.Join(extract.Names(), ", "))
	logger.Info("Adjust MODE_FIXED_BRIGHTNESS between 0 and 100. 0 keeps the brightness QUANTIZED_MODE computes.")
	logger.Info("Adjust FRAME_SOURCE to VIDEO or SCREEN. SCREEN_NUMBER picks the display, 0 being the primary.")
	logger.Info("Adjust LAMP_TYPE to YEELIGHT or LIFX. LIFX uses LIGHT_GROUP_NAME, MIN_BRIGHTNESS and MAX_BRIGHTNESS.")
	logger.Info("Adjust UPDATE_INTERVAL to change how often the lamp is updated.")
	logger.Info("Set DEBUG_DUMP=true to write frame.png and rectangle.png into DEBUG_DUMP_DIR.")
	logger.Info("Press Ctrl+C to stop")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, cfg)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-shutdown:
		logger.Info("Shutting down")
		cancel()
		<-done
	case err := <-done:
		if err != nil {
			logger.With(zap.Error(err)).Fatal("Lamp mirror stopped")
		}
	}
}

// Run wires the configured collaborators together and blocks until ctx is
// done or the loop fails.
func Run(ctx context.Context, cfg config.Config) error {
	var resolver stream.Resolver
	if cfg.StreamURL != "" {
		resolver = stream.Static(cfg.StreamURL)
	} else {
		resolver = stream.NewStreamlink(cfg.StreamlinkPath, cfg.StreamQuality, cfg.StreamResolveTimeout)
	}

	var source frame.Source
	switch cfg.FrameSource {
	case "VIDEO":
		source = capture.Video{}
	case "SCREEN":
		source = capture.Screen{Display: cfg.ScreenNumber}
	default:
		logger.Fatalf("unknown frame source: %v", cfg.FrameSource)
	}

	var dumper frame.Dumper
	if cfg.DebugDump {
		dumper = capture.ImageDumper{Dir: cfg.DebugDumpDir}
	}

	extractor, err := extract.New(cfg.ColorAlgo, extract.NewState(), extract.Options{
		ModeFixedBrightness: cfg.ModeFixedBrightness,
	})
	if err != nil {
		logger.With(zap.Error(err)).Fatal("Failed to create color extractor")
	}

	var driver lights.Driver
	switch cfg.LampType {
	case "YEELIGHT":
		driver, err = yeelight.New(cfg.LampIP, cfg.LampToken, cfg.LampTimeout)
		if err != nil {
			logger.With(zap.Error(err)).Fatal("Failed to create Yeelight driver")
		}
	case "LIFX":
		driver, err = lifx.NewLifx(ctx, lifx.Config{
			GroupName:     cfg.LightGroupName,
			MinBrightness: cfg.MinBrightness,
			MaxBrightness: cfg.MaxBrightness,
		})
		if err != nil {
			logger.With(zap.Error(err)).Fatal("Failed to create LIFX light service")
		}
	default:
		logger.Fatalf("unknown lamp type: %v", cfg.LampType)
	}

	controller := lights.NewController(driver)
	defer func() {
		if err := controller.Close(); err != nil {
			logger.With(zap.Error(err)).Warn("Failed to close lamp")
		}
	}()

	m := mirror.New(
		mirror.Config{Channel: cfg.StreamChannel, Interval: cfg.UpdateInterval},
		resolver,
		source,
		frame.NewSelector(cfg.ROI, dumper),
		extractor,
		controller,
	)

	err = m.Run(ctx)
	logger.With(zap.Any("stats", m.Stats())).Info("Lamp mirror stopped")
	return err
}
