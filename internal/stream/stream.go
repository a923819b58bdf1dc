// Package stream resolves a channel name to a playable video URL.
package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/scheerer/lamp-mirror/internal/logging"
)

var logger = logging.New("stream")

var ErrNoStream = errors.New("no stream available")

// Resolver looks up a playable URL for a channel.
type Resolver interface {
	Resolve(ctx context.Context, channel string) (string, error)
}

// Static always resolves to the same URL.
type Static string

func (s Static) Resolve(ctx context.Context, channel string) (string, error) {
	if s == "" {
		return "", ErrNoStream
	}
	return string(s), nil
}

// runFunc runs a command and returns its stdout.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Streamlink resolves Twitch channels with the streamlink CLI.
type Streamlink struct {
	Path    string
	Quality string
	Timeout time.Duration

	run runFunc
}

func NewStreamlink(path, quality string, timeout time.Duration) *Streamlink {
	return &Streamlink{
		Path:    path,
		Quality: quality,
		Timeout: timeout,
		run:     runCommand,
	}
}

// ChannelURL is the page streamlink is pointed at.
func ChannelURL(channel string) string {
	return "https://www.twitch.tv/" + channel
}

func (s *Streamlink) Resolve(ctx context.Context, channel string) (string, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	out, err := s.run(ctx, s.Path, "--stream-url", ChannelURL(channel), s.Quality)
	text := strings.TrimSpace(string(out))
	if err != nil {
		// streamlink prints "error: ..." on stdout and exits non-zero
		if strings.Contains(text, "No playable streams") || strings.Contains(text, "could not be found") {
			return "", fmt.Errorf("%w: %s", ErrNoStream, text)
		}
		return "", fmt.Errorf("streamlink failed: %w: %s", err, text)
	}

	url := lastLine(text)
	if !strings.HasPrefix(url, "http") {
		return "", fmt.Errorf("%w: %q quality not offered: %s", ErrNoStream, s.Quality, text)
	}

	logger.With(zap.String("channel", channel), zap.String("url", url)).Info("Stream URL resolved")
	return url, nil
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			stdout.WriteString(stderr.String())
		}
		return stdout.Bytes(), err
	}
	return stdout.Bytes(), nil
}
