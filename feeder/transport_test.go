package feeder_test

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"rudderwalk/feeder"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestServer(t *testing.T, response string) (addr string, gotReqLine *string, closeFn func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	got := new(string)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		var buf []byte
		var tmp [1]byte
		for {
			_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			if _, rerr := conn.Read(tmp[:]); rerr != nil {
				break
			}
			buf = append(buf, tmp[0])
			if tmp[0] == '\x00' {
				break
			}
		}
		*got = string(buf)
		if response != "" {
			_, _ = conn.Write([]byte(response))
		}
	}()
	return ln.Addr().String(), got, func() { _ = ln.Close() }
}

func TestTransportPayloadEncoding(t *testing.T) {
	type S struct {
		A int    `json:"a"`
		B string `json:"b"`
	}
	cases := []struct {
		name         string
		payload      any
		expectedLine string
		validateJSON bool
	}{
		{name: "nil payload", payload: nil, expectedLine: "echo\x00"},
		{name: "empty string payload", payload: "", expectedLine: "echo\x00"},
		{name: "bytes payload", payload: []byte("rawbytes"), expectedLine: "echo rawbytes\x00"},
		{name: "string payload", payload: "hello world", expectedLine: "echo hello world\x00"},
		{name: "string payload with newline", payload: "multi\nline", expectedLine: "echo multi\nline\x00"},
		{name: "struct payload json marshaled", payload: S{A: 7, B: "zzz"}, validateJSON: true},
	}

	for _, tc := range cases {
		addr, got, closeFn := startTestServer(t, "ok\n")
		tr := feeder.NewTransport(addr)
		out, err := tr.Do("echo", tc.payload, nil)
		closeFn()
		assert.NoError(t, err, tc.name)
		assert.Equal(t, "ok", out, tc.name)

		if tc.validateJSON {
			b, merr := json.Marshal(tc.payload)
			assert.NoError(t, merr, tc.name)
			assert.Equal(t, "echo "+string(b)+"\x00", *got, tc.name)
			continue
		}
		assert.Equal(t, tc.expectedLine, *got, tc.name)
	}
}

func TestTransportPathParams(t *testing.T) {
	addr, got, closeFn := startTestServer(t, "{}\n")
	defer closeFn()

	tr := feeder.NewTransport(addr)
	_, err := tr.Do("device/{id}/add", nil, map[string]string{"id": "3"})
	require.NoError(t, err)
	assert.Equal(t, "device/3/add\x00", *got)
}

func TestClientParsesApiError(t *testing.T) {
	tr := feeder.NewMockTransport(func(path string, payload any, pathParams map[string]string) (string, error) {
		return `{"status":404,"title":"not found","detail":"no such device"}`, nil
	})
	c := feeder.WithTransport(tr)

	_, err := c.DevicesList(context.Background())
	require.Error(t, err)
	var apiErr *feeder.ApiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.Status)
	assert.Equal(t, "not found", apiErr.Title)
}

func TestClientDeviceAdd(t *testing.T) {
	var gotPath string
	var gotPayload any
	tr := feeder.NewMockTransport(func(path string, payload any, pathParams map[string]string) (string, error) {
		gotPath = path
		gotPayload = payload
		return `{"id":1,"type":"joystick"}`, nil
	})
	c := feeder.WithTransport(tr)

	dev, err := c.DeviceAdd(context.Background(), 1, "joystick")
	require.NoError(t, err)
	assert.Equal(t, 1, dev.Id)
	assert.Equal(t, "joystick", dev.Type)
	assert.Equal(t, "device/{id}/add", gotPath)

	var req feeder.Device
	require.NoError(t, json.Unmarshal([]byte(gotPayload.(string)), &req))
	assert.Equal(t, feeder.Device{Id: 1, Type: "joystick"}, req)
}

func TestClientPing(t *testing.T) {
	tr := feeder.NewMockTransport(func(path string, payload any, pathParams map[string]string) (string, error) {
		assert.Equal(t, "ping", path)
		return `{"server":"feedd","version":"1.2.0"}`, nil
	})
	c := feeder.WithTransport(tr)

	resp, err := c.Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "feedd", resp.Server)
	assert.Equal(t, "1.2.0", resp.Version)
}
