package feeder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Client is the high-level interface to the feed server management
// API, handling request formatting, response parsing and errors.
type Client struct{ transport *Transport }

// New constructs a client for the feed server at addr (host:port).
func New(addr string) *Client { return &Client{transport: NewTransport(addr)} }

// NewWithConfig constructs a client with custom transport settings,
// including password authentication.
func NewWithConfig(addr string, cfg *Config) *Client {
	return &Client{transport: NewTransportWithConfig(addr, cfg)}
}

// WithTransport constructs a Client over a custom Transport, mainly
// for tests using NewMockTransport.
func WithTransport(t *Transport) *Client { return &Client{transport: t} }

// Ping returns the identity and version of the feed server.
func (c *Client) Ping(ctx context.Context) (*PingResponse, error) {
	raw, err := c.transport.DoCtx(ctx, "ping", nil, nil)
	if err != nil {
		return nil, err
	}
	return parse[PingResponse](raw)
}

// DeviceAdd claims the virtual device slot id on the feed server,
// creating a device of the given type (e.g. "joystick"). Adding a slot
// that already holds a device of the same type is idempotent.
func (c *Client) DeviceAdd(ctx context.Context, id int, devType string) (*Device, error) {
	pathParams := map[string]string{"id": fmt.Sprintf("%d", id)}
	req := Device{Id: id, Type: devType}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal device add request: %w", err)
	}
	raw, err := c.transport.DoCtx(ctx, "device/{id}/add", string(payload), pathParams)
	if err != nil {
		return nil, err
	}
	return parse[Device](raw)
}

// DeviceRemove releases the virtual device slot id. Streams feeding
// the device are closed by the server.
func (c *Client) DeviceRemove(ctx context.Context, id int) (*DeviceRemoveResponse, error) {
	pathParams := map[string]string{"id": fmt.Sprintf("%d", id)}
	raw, err := c.transport.DoCtx(ctx, "device/{id}/remove", nil, pathParams)
	if err != nil {
		return nil, err
	}
	return parse[DeviceRemoveResponse](raw)
}

// DevicesList returns all claimed device slots.
func (c *Client) DevicesList(ctx context.Context) (*DevicesListResponse, error) {
	raw, err := c.transport.DoCtx(ctx, "device/list", nil, nil)
	if err != nil {
		return nil, err
	}
	return parse[DevicesListResponse](raw)
}

func parse[T any](data string) (*T, error) {
	if data == "" {
		return nil, errors.New("empty response")
	}
	var problem ApiError
	if err := json.Unmarshal([]byte(data), &problem); err == nil && (problem.Status != 0 || problem.Title != "") {
		return nil, &problem
	}
	var out T
	if err := json.NewDecoder(bytes.NewReader([]byte(data))).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &out, nil
}
