package feeder

import "fmt"

// PingResponse reports the feed server's identity and version.
type PingResponse struct {
	Server  string `json:"server"`
	Version string `json:"version"`
}

// Device describes one virtual device slot on the feed server.
type Device struct {
	Id   int    `json:"id"`
	Type string `json:"type"`
}

// DevicesListResponse is the reply to device/list.
type DevicesListResponse struct {
	Devices []Device `json:"devices"`
}

// DeviceRemoveResponse is the reply to device/{id}/remove.
type DeviceRemoveResponse struct {
	Id int `json:"id"`
}

// ApiError is the problem-details style error payload the feed server
// returns in place of a success response.
type ApiError struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
}

func (e *ApiError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (%d): %s", e.Title, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s (%d)", e.Title, e.Status)
}
