package feeder

import (
	"context"
	"encoding"
	"fmt"
	"net"
	"sync"
	"time"
)

// FeedStream is a long-lived connection that pushes input reports to
// one virtual device slot.
type FeedStream struct {
	conn  net.Conn
	DevID int

	mu     sync.Mutex
	closed bool
}

// OpenFeed connects to the stream endpoint of an existing device slot.
// The slot must have been claimed first (see Client.DeviceAdd).
func (c *Client) OpenFeed(ctx context.Context, devID int) (*FeedStream, error) {
	if c.transport.mock != nil {
		return nil, fmt.Errorf("feed streams not supported with mock transport")
	}

	conn, err := c.transport.dial(ctx)
	if err != nil {
		return nil, err
	}
	// Stream connections reuse the request framing for their first and
	// only request line; the connection then stays open for reports.
	path := fmt.Sprintf("device/%d/feed\x00", devID)
	if _, err := conn.Write([]byte(path)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write feed path: %w", err)
	}

	return &FeedStream{conn: conn, DevID: devID}, nil
}

// Write sends raw report bytes to the device slot.
func (s *FeedStream) Write(data []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, fmt.Errorf("stream closed")
	}
	return s.conn.Write(data)
}

// WriteBinary marshals and sends one report. This is the preferred way
// to feed device state.
func (s *FeedStream) WriteBinary(v encoding.BinaryMarshaler) error {
	data, err := v.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	_, err = s.Write(data)
	return err
}

// SetWriteDeadline sets the write deadline on the underlying
// connection.
func (s *FeedStream) SetWriteDeadline(t time.Time) error {
	return s.conn.SetWriteDeadline(t)
}

// Close closes the stream connection. Closing twice is a no-op.
func (s *FeedStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}
