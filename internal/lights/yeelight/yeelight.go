// Package yeelight drives a Yeelight bulb over the token-authenticated miIO
// protocol on UDP port 54321.
package yeelight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/scheerer/lamp-mirror/internal/lights"
	"github.com/scheerer/lamp-mirror/internal/logging"
)

var logger = logging.New("yeelight")

const (
	DefaultPort    = "54321"
	DefaultTimeout = 2 * time.Second
)

// Yeelight is a lights.Driver. Calls are serialized; a failed call drops the
// session so the next call handshakes again.
type Yeelight struct {
	addr    string
	codec   *codec
	timeout time.Duration

	mu        sync.Mutex
	conn      net.Conn
	deviceID  uint32
	stamp     uint32
	stampedAt time.Time
	nextID    int
}

var _ lights.Driver = (*Yeelight)(nil)

// New prepares a driver for the bulb at ip (optionally host:port) with its
// 32 character hex token. No traffic is sent until the first command.
func New(ip, token string, timeout time.Duration) (*Yeelight, error) {
	tok, err := parseToken(token)
	if err != nil {
		return nil, err
	}

	addr := ip
	if _, _, err := net.SplitHostPort(ip); err != nil {
		addr = net.JoinHostPort(ip, DefaultPort)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Yeelight{
		addr:    addr,
		codec:   newCodec(tok),
		timeout: timeout,
	}, nil
}

func (y *Yeelight) SetBrightness(ctx context.Context, brightness int) error {
	return y.send(ctx, "set_bright", []any{brightness})
}

func (y *Yeelight) SetColor(ctx context.Context, color lights.Color) error {
	return y.send(ctx, "set_rgb", []any{color.Int()})
}

func (y *Yeelight) Close() error {
	y.mu.Lock()
	defer y.mu.Unlock()
	return y.reset()
}

type request struct {
	ID     int    `json:"id"`
	Method string `json:"method"`
	Params []any  `json:"params"`
}

type response struct {
	ID     int             `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (y *Yeelight) send(ctx context.Context, method string, params []any) error {
	y.mu.Lock()
	defer y.mu.Unlock()

	err := y.call(ctx, method, params)
	if err != nil {
		_ = y.reset()
		return fmt.Errorf("yeelight %s: %w", method, err)
	}
	return nil
}

func (y *Yeelight) call(ctx context.Context, method string, params []any) error {
	if y.conn == nil {
		if err := y.handshake(ctx); err != nil {
			return fmt.Errorf("handshake: %w", err)
		}
	}

	y.nextID++
	req := request{ID: y.nextID, Method: method, Params: params}
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}

	stamp := y.stamp + uint32(time.Since(y.stampedAt)/time.Second) + 1
	if err := y.roundTrip(ctx, y.codec.seal(y.deviceID, stamp, payload), func(p []byte) error {
		h, body, err := y.codec.open(p)
		if err != nil {
			return err
		}
		y.stamp, y.stampedAt = h.Stamp, time.Now()

		var resp response
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		if resp.ID != req.ID {
			return errStale
		}
		if resp.Error != nil {
			return fmt.Errorf("device error %d: %s", resp.Error.Code, resp.Error.Message)
		}
		return nil
	}); err != nil {
		return err
	}

	logger.With(zap.String("method", method), zap.Any("params", params)).Debug("Yeelight command sent")
	return nil
}

func (y *Yeelight) handshake(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", y.addr)
	if err != nil {
		return err
	}
	y.conn = conn

	return y.roundTrip(ctx, helloPacket(), func(p []byte) error {
		h, err := parseHeader(p)
		if err != nil {
			return err
		}
		y.deviceID, y.stamp, y.stampedAt = h.DeviceID, h.Stamp, time.Now()
		logger.With(zap.String("addr", y.addr), zap.Uint32("deviceID", h.DeviceID)).Debug("miIO handshake complete")
		return nil
	})
}

// errStale marks a reply to an earlier request; roundTrip keeps reading.
var errStale = errors.New("stale response")

// roundTrip writes packet and feeds replies to handle until it accepts one or
// the deadline passes.
func (y *Yeelight) roundTrip(ctx context.Context, packet []byte, handle func([]byte) error) error {
	deadline := time.Now().Add(y.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := y.conn.SetDeadline(deadline); err != nil {
		return err
	}

	if _, err := y.conn.Write(packet); err != nil {
		return err
	}

	buf := make([]byte, 4096)
	for {
		n, err := y.conn.Read(buf)
		if err != nil {
			return err
		}
		if err := handle(buf[:n]); err != errStale {
			return err
		}
	}
}

func (y *Yeelight) reset() error {
	if y.conn == nil {
		return nil
	}
	err := y.conn.Close()
	y.conn = nil
	return err
}
