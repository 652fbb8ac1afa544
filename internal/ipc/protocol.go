package ipc

import (
	"encoding/json"
	"fmt"

	"wallmotion/internal/engine"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandAssign       CommandType = "ASSIGN"
	CommandClear        CommandType = "CLEAR"
	CommandSetScaleMode CommandType = "SET_SCALE_MODE"
	CommandPauseAll     CommandType = "PAUSE_ALL"
	CommandResumeAll    CommandType = "RESUME_ALL"
	CommandListDisplays CommandType = "LIST_DISPLAYS"
	CommandGetStatus    CommandType = "GET_STATUS"
	CommandGetRecent    CommandType = "GET_RECENT"
	CommandPreview      CommandType = "PREVIEW"
	CommandReload       CommandType = "RELOAD"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// AssignPayload represents the payload for the ASSIGN command
type AssignPayload struct {
	Display   string `json:"display"`
	MediaPath string `json:"media_path"`
	ScaleMode string `json:"scale_mode,omitempty"`
}

// ClearPayload represents the payload for the CLEAR command
type ClearPayload struct {
	Display string `json:"display"`
}

// SetScaleModePayload represents the payload for SET_SCALE_MODE
type SetScaleModePayload struct {
	Display   string `json:"display"`
	ScaleMode string `json:"scale_mode"`
}

// PreviewPayload represents the payload for the PREVIEW command
type PreviewPayload struct {
	MediaPath string `json:"media_path"`
}

// PreviewData is returned by PREVIEW: a still frame extracted from the media.
type PreviewData struct {
	ImagePath string `json:"image_path"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	DaemonRunning bool  `json:"daemon_running"`
	UptimeSeconds int64 `json:"uptime_seconds"`
	engine.StatusReport
}

// DisplaysData represents the data returned by LIST_DISPLAYS
type DisplaysData struct {
	Displays []engine.DisplayStatus `json:"displays"`
}

// RecentData represents the data returned by GET_RECENT
type RecentData struct {
	Paths []string `json:"paths"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
