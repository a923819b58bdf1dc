// Package config loads the lamp mirror's configuration once at startup.
//
// Device and region settings come from a JSON (or YAML) file with the keys
// x_start, x_end, y_start, y_end, lamp_ip and lamp_token, all required.
// Runtime tuning comes from environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/scheerer/lamp-mirror/internal/frame"
)

// Settings are the environment driven knobs.
type Settings struct {
	ConfigFile string `env:"CONFIG_FILE" envDefault:"config.json"`

	StreamChannel        string        `env:"STREAM_CHANNEL" envDefault:"vedal987"`
	StreamURL            string        `env:"STREAM_URL"`
	StreamQuality        string        `env:"STREAM_QUALITY" envDefault:"best"`
	StreamlinkPath       string        `env:"STREAMLINK_PATH" envDefault:"streamlink"`
	StreamResolveTimeout time.Duration `env:"STREAM_RESOLVE_TIMEOUT" envDefault:"30s"`

	FrameSource  string `env:"FRAME_SOURCE" envDefault:"VIDEO"`
	ScreenNumber int    `env:"SCREEN_NUMBER" envDefault:"0"`

	ColorAlgo           string `env:"COLOR_ALGO" envDefault:"FURTHEST_FROM_GRAY"`
	ModeFixedBrightness int    `env:"MODE_FIXED_BRIGHTNESS" envDefault:"100"`

	LampType       string        `env:"LAMP_TYPE" envDefault:"YEELIGHT"`
	LightGroupName string        `env:"LIGHT_GROUP_NAME" envDefault:"LAMP"`
	MaxBrightness  float64       `env:"MAX_BRIGHTNESS" envDefault:"1"`
	MinBrightness  float64       `env:"MIN_BRIGHTNESS" envDefault:"0"`
	LampTimeout    time.Duration `env:"LAMP_TIMEOUT" envDefault:"2s"`

	UpdateInterval time.Duration `env:"UPDATE_INTERVAL" envDefault:"1s"`

	DebugDump    bool   `env:"DEBUG_DUMP" envDefault:"false"`
	DebugDumpDir string `env:"DEBUG_DUMP_DIR" envDefault:"."`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Device is the contents of the config file.
type Device struct {
	ROI       frame.Bounds
	LampIP    string
	LampToken string
}

// Config is everything the process needs. It is not modified after Load.
type Config struct {
	Settings
	Device
}

// Load reads the environment, then the file it names.
func Load() (Config, error) {
	var settings Settings
	if err := env.Parse(&settings); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment variables: %w", err)
	}
	if err := settings.validate(); err != nil {
		return Config{}, err
	}

	device, err := LoadDevice(settings.ConfigFile)
	if err != nil {
		return Config{}, err
	}

	return Config{Settings: settings, Device: device}, nil
}

func (s Settings) validate() error {
	var err error
	if s.UpdateInterval < 0 {
		err = multierr.Append(err, fmt.Errorf("UPDATE_INTERVAL must not be negative, got %s", s.UpdateInterval))
	}
	if s.ModeFixedBrightness < 0 || s.ModeFixedBrightness > 100 {
		err = multierr.Append(err, fmt.Errorf("MODE_FIXED_BRIGHTNESS must be within [0, 100], got %d", s.ModeFixedBrightness))
	}
	if s.MinBrightness < 0 || s.MaxBrightness > 1 || s.MinBrightness > s.MaxBrightness {
		err = multierr.Append(err, fmt.Errorf("need 0 <= MIN_BRIGHTNESS <= MAX_BRIGHTNESS <= 1, got %v and %v", s.MinBrightness, s.MaxBrightness))
	}
	return err
}

// deviceFile uses pointers so missing keys can be told apart from zeros.
type deviceFile struct {
	XStart    *int    `yaml:"x_start"`
	XEnd      *int    `yaml:"x_end"`
	YStart    *int    `yaml:"y_start"`
	YEnd      *int    `yaml:"y_end"`
	LampIP    *string `yaml:"lamp_ip"`
	LampToken *string `yaml:"lamp_token"`
}

func LoadDevice(path string) (Device, error) {
	f, err := os.Open(path)
	if err != nil {
		return Device{}, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	d, err := ParseDevice(f)
	if err != nil {
		return Device{}, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// ParseDevice decodes and validates a device file. Every problem found is
// reported, not just the first.
func ParseDevice(r io.Reader) (Device, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Device{}, err
	}

	var raw deviceFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return Device{}, errors.New("config file is empty")
		}
		return Device{}, fmt.Errorf("malformed config: %w", err)
	}

	var errs error
	intKey := func(name string, v *int) int {
		if v == nil {
			errs = multierr.Append(errs, fmt.Errorf("missing required key %q", name))
			return 0
		}
		if *v < 0 {
			errs = multierr.Append(errs, fmt.Errorf("%q must not be negative, got %d", name, *v))
		}
		return *v
	}
	stringKey := func(name string, v *string) string {
		if v == nil || *v == "" {
			errs = multierr.Append(errs, fmt.Errorf("missing required key %q", name))
			return ""
		}
		return *v
	}

	d := Device{
		ROI: frame.Bounds{
			XStart: intKey("x_start", raw.XStart),
			XEnd:   intKey("x_end", raw.XEnd),
			YStart: intKey("y_start", raw.YStart),
			YEnd:   intKey("y_end", raw.YEnd),
		},
		LampIP:    stringKey("lamp_ip", raw.LampIP),
		LampToken: stringKey("lamp_token", raw.LampToken),
	}

	if raw.XStart != nil && raw.XEnd != nil && d.ROI.XStart > d.ROI.XEnd {
		errs = multierr.Append(errs, fmt.Errorf("x_start %d is after x_end %d", d.ROI.XStart, d.ROI.XEnd))
	}
	if raw.YStart != nil && raw.YEnd != nil && d.ROI.YStart > d.ROI.YEnd {
		errs = multierr.Append(errs, fmt.Errorf("y_start %d is after y_end %d", d.ROI.YStart, d.ROI.YEnd))
	}

	if errs != nil {
		return Device{}, errs
	}
	return d, nil
}
