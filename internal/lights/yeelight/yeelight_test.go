package yeelight

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scheerer/lamp-mirror/internal/lights"
)

const testToken = "00112233445566778899aabbccddeeff"

// fakeBulb answers miIO hellos and requests on a local UDP socket.
type fakeBulb struct {
	conn     net.PacketConn
	codec    *codec
	deviceID uint32

	mu       sync.Mutex
	requests []request
	hellos   int
	failWith string
}

func newFakeBulb(t *testing.T) *fakeBulb {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	tok, err := parseToken(testToken)
	require.NoError(t, err)

	b := &fakeBulb{conn: conn, codec: newCodec(tok), deviceID: 0x04a1b2c3}
	t.Cleanup(func() { conn.Close() })
	go b.serve()
	return b
}

func (b *fakeBulb) addr() string {
	return b.conn.LocalAddr().String()
}

func (b *fakeBulb) serve() {
	buf := make([]byte, 4096)
	for {
		n, from, err := b.conn.ReadFrom(buf)
		if err != nil {
			return
		}
		packet := append([]byte(nil), buf[:n]...)

		if n == headerLen {
			b.mu.Lock()
			b.hellos++
			b.mu.Unlock()

			reply := helloPacket()
			binary.BigEndian.PutUint32(reply[4:], 0)
			binary.BigEndian.PutUint32(reply[8:], b.deviceID)
			binary.BigEndian.PutUint32(reply[12:], 1000)
			b.conn.WriteTo(reply, from)
			continue
		}

		h, body, err := b.codec.open(packet)
		if err != nil || h.DeviceID != b.deviceID {
			continue
		}
		var req request
		if err := json.Unmarshal(body, &req); err != nil {
			continue
		}

		b.mu.Lock()
		b.requests = append(b.requests, req)
		failWith := b.failWith
		b.mu.Unlock()

		resp := map[string]any{"id": req.ID, "result": []string{"ok"}}
		if failWith != "" {
			resp = map[string]any{"id": req.ID, "error": map[string]any{"code": -5001, "message": failWith}}
		}
		payload, _ := json.Marshal(resp)
		b.conn.WriteTo(b.codec.seal(b.deviceID, h.Stamp, payload), from)
	}
}

func (b *fakeBulb) snapshot() ([]request, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]request(nil), b.requests...), b.hellos
}

func TestYeelightCommands(t *testing.T) {
	bulb := newFakeBulb(t)
	y, err := New(bulb.addr(), testToken, time.Second)
	require.NoError(t, err)
	defer y.Close()

	ctx := context.Background()
	require.NoError(t, y.SetBrightness(ctx, 50))
	require.NoError(t, y.SetColor(ctx, lights.Color{Red: 200, Green: 20, Blue: 10}))

	reqs, hellos := bulb.snapshot()
	assert.Equal(t, 1, hellos)
	require.Len(t, reqs, 2)

	assert.Equal(t, "set_bright", reqs[0].Method)
	assert.Equal(t, []any{float64(50)}, reqs[0].Params)
	assert.Equal(t, "set_rgb", reqs[1].Method)
	assert.Equal(t, []any{float64(200<<16 | 20<<8 | 10)}, reqs[1].Params)
	assert.Less(t, reqs[0].ID, reqs[1].ID)
}

func TestYeelightDeviceError(t *testing.T) {
	bulb := newFakeBulb(t)
	bulb.mu.Lock()
	bulb.failWith = "invalid params"
	bulb.mu.Unlock()

	y, err := New(bulb.addr(), testToken, time.Second)
	require.NoError(t, err)
	defer y.Close()

	err = y.SetBrightness(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid params")

	// session dropped, next command handshakes again
	bulb.mu.Lock()
	bulb.failWith = ""
	bulb.mu.Unlock()
	require.NoError(t, y.SetBrightness(context.Background(), 10))
	_, hellos := bulb.snapshot()
	assert.Equal(t, 2, hellos)
}

func TestYeelightTimeout(t *testing.T) {
	// a socket nobody answers on
	silent, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer silent.Close()

	y, err := New(silent.LocalAddr().String(), testToken, 50*time.Millisecond)
	require.NoError(t, err)

	start := time.Now()
	err = y.SetBrightness(context.Background(), 10)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewValidatesToken(t *testing.T) {
	_, err := New("192.168.1.20", "not-hex", 0)
	assert.Error(t, err)

	_, err = New("192.168.1.20", "0011", 0)
	assert.Error(t, err)

	y, err := New("192.168.1.20", testToken, 0)
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.20:54321", y.addr)
	assert.Equal(t, DefaultTimeout, y.timeout)
}

func TestCodecRejectsTamperedPacket(t *testing.T) {
	tok, err := parseToken(testToken)
	require.NoError(t, err)
	c := newCodec(tok)

	p := c.seal(7, 42, []byte(`{"id":1,"method":"set_bright","params":[5]}`))
	h, body, err := c.open(p)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), h.DeviceID)
	assert.Equal(t, uint32(42), h.Stamp)
	assert.JSONEq(t, `{"id":1,"method":"set_bright","params":[5]}`, string(body))

	p[len(p)-1] ^= 0xff
	_, _, err = c.open(p)
	assert.ErrorIs(t, err, errChecksum)
}
