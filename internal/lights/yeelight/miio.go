package yeelight

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
)

// miIO framing: a 32 byte big-endian header followed by an AES-128-CBC
// encrypted JSON payload.
//
//	0  magic 0x2131
//	2  packet length including header
//	4  unknown, 0 (0xFFFFFFFF in hello)
//	8  device id
//	12 stamp, seconds since device boot
//	16 md5 checksum of the packet with the token in this field
const (
	headerLen = 32
	magic     = 0x2131
	tokenLen  = 16
)

var errChecksum = errors.New("miio: checksum mismatch")

type header struct {
	Length   uint16
	Unknown  uint32
	DeviceID uint32
	Stamp    uint32
	Checksum [16]byte
}

func parseHeader(p []byte) (header, error) {
	if len(p) < headerLen {
		return header{}, fmt.Errorf("miio: short packet of %d bytes", len(p))
	}
	if m := binary.BigEndian.Uint16(p[0:]); m != magic {
		return header{}, fmt.Errorf("miio: bad magic %#04x", m)
	}
	h := header{
		Length:   binary.BigEndian.Uint16(p[2:]),
		Unknown:  binary.BigEndian.Uint32(p[4:]),
		DeviceID: binary.BigEndian.Uint32(p[8:]),
		Stamp:    binary.BigEndian.Uint32(p[12:]),
	}
	copy(h.Checksum[:], p[16:32])
	if int(h.Length) != len(p) {
		return header{}, fmt.Errorf("miio: length field %d, packet has %d bytes", h.Length, len(p))
	}
	return h, nil
}

func helloPacket() []byte {
	p := bytes.Repeat([]byte{0xff}, headerLen)
	binary.BigEndian.PutUint16(p[0:], magic)
	binary.BigEndian.PutUint16(p[2:], headerLen)
	return p
}

// codec seals and opens packets for one device token.
type codec struct {
	token []byte
	key   []byte
	iv    []byte
}

func parseToken(s string) ([]byte, error) {
	token, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("miio: token is not hex: %w", err)
	}
	if len(token) != tokenLen {
		return nil, fmt.Errorf("miio: token has %d bytes, want %d", len(token), tokenLen)
	}
	return token, nil
}

func newCodec(token []byte) *codec {
	key := md5.Sum(token)
	iv := md5.Sum(append(key[:], token...))
	return &codec{token: token, key: key[:], iv: iv[:]}
}

func (c *codec) encrypt(plain []byte) []byte {
	block, _ := aes.NewCipher(c.key)
	pad := aes.BlockSize - len(plain)%aes.BlockSize
	buf := append(append([]byte(nil), plain...), bytes.Repeat([]byte{byte(pad)}, pad)...)
	cipher.NewCBCEncrypter(block, c.iv).CryptBlocks(buf, buf)
	return buf
}

func (c *codec) decrypt(data []byte) ([]byte, error) {
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("miio: payload of %d bytes is not block aligned", len(data))
	}
	block, _ := aes.NewCipher(c.key)
	buf := append([]byte(nil), data...)
	cipher.NewCBCDecrypter(block, c.iv).CryptBlocks(buf, buf)

	pad := int(buf[len(buf)-1])
	if pad == 0 || pad > aes.BlockSize || pad > len(buf) {
		return nil, errors.New("miio: bad padding")
	}
	return buf[:len(buf)-pad], nil
}

// seal builds a request packet around payload.
func (c *codec) seal(deviceID, stamp uint32, payload []byte) []byte {
	enc := c.encrypt(payload)
	p := make([]byte, headerLen+len(enc))
	binary.BigEndian.PutUint16(p[0:], magic)
	binary.BigEndian.PutUint16(p[2:], uint16(len(p)))
	binary.BigEndian.PutUint32(p[8:], deviceID)
	binary.BigEndian.PutUint32(p[12:], stamp)
	copy(p[16:32], c.token)
	copy(p[32:], enc)

	sum := md5.Sum(p)
	copy(p[16:32], sum[:])
	return p
}

// open verifies and decrypts a packet. Header-only packets carry no payload.
func (c *codec) open(p []byte) (header, []byte, error) {
	h, err := parseHeader(p)
	if err != nil {
		return header{}, nil, err
	}
	if len(p) == headerLen {
		return h, nil, nil
	}

	check := append([]byte(nil), p...)
	copy(check[16:32], c.token)
	if md5.Sum(check) != h.Checksum {
		return header{}, nil, errChecksum
	}

	payload, err := c.decrypt(p[headerLen:])
	if err != nil {
		return header{}, nil, err
	}
	return h, bytes.TrimRight(payload, "\x00"), nil
}
