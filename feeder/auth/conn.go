package auth

import (
	"bytes"
	"crypto/cipher"
	"encoding/binary"
	"io"
	"net"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
)

// Frames larger than this are treated as a protocol violation.
const maxSealedFrame = 2 * 1024 * 1024

// SealedConn wraps a net.Conn so that every Write becomes one
// length-prefixed AEAD frame: len[4] | nonce[12] | ciphertext.
// The nonce carries a monotonically increasing send counter.
type SealedConn struct {
	net.Conn
	aead    cipher.AEAD
	sendCtr uint64
	recvBuf bytes.Buffer
	mu      sync.Mutex
}

// WrapConn seals conn with the given 32-byte session key.
func WrapConn(conn net.Conn, sessionKey []byte) (net.Conn, error) {
	aead, err := chacha20poly1305.New(sessionKey)
	if err != nil {
		return nil, err
	}
	return &SealedConn{Conn: conn, aead: aead}, nil
}

func (c *SealedConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	nonce := make([]byte, chacha20poly1305.NonceSize)
	binary.BigEndian.PutUint64(nonce[4:], c.sendCtr)
	c.sendCtr++

	ct := c.aead.Seal(nil, nonce, p, nil)

	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(nonce)+len(ct)))

	for _, chunk := range [][]byte{hdr[:], nonce, ct} {
		if n, err := c.Conn.Write(chunk); err != nil {
			return n, err
		}
	}
	return len(p), nil
}

func (c *SealedConn) Read(p []byte) (int, error) {
	if c.recvBuf.Len() == 0 {
		var hdr [4]byte
		if n, err := io.ReadFull(c.Conn, hdr[:]); err != nil {
			return n, err
		}
		length := binary.BigEndian.Uint32(hdr[:])
		if length < chacha20poly1305.NonceSize || length > maxSealedFrame {
			return 0, io.ErrUnexpectedEOF
		}

		frame := make([]byte, length)
		if n, err := io.ReadFull(c.Conn, frame); err != nil {
			return n, err
		}

		pt, err := c.aead.Open(nil, frame[:chacha20poly1305.NonceSize], frame[chacha20poly1305.NonceSize:], nil)
		if err != nil {
			return 0, err
		}
		c.recvBuf.Write(pt)
	}
	return c.recvBuf.Read(p)
}
