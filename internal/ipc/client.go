package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"wallmotion/internal/runtimepath"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new IPC client on the standard socket path.
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClientForSocket(socketPath)
}

// NewClientForSocket creates a client talking to an explicit socket path.
func NewClientForSocket(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    10 * time.Second,
	}
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request) (*Response, error) {
	// Connect to socket
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	// Set deadline
	conn.SetDeadline(time.Now().Add(c.timeout))

	// Marshal request
	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	// Send request
	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	// Read response
	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	// Parse response
	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	// Check for error response
	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}

	return &resp, nil
}

// Assign sets a looping wallpaper for a display.
func (c *Client) Assign(display, mediaPath, scaleMode string) error {
	payload, err := json.Marshal(AssignPayload{
		Display:   display,
		MediaPath: mediaPath,
		ScaleMode: scaleMode,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal assign payload: %w", err)
	}

	_, err = c.sendRequest(&Request{Command: CommandAssign, Payload: payload})
	return err
}

// Clear removes a display's wallpaper.
func (c *Client) Clear(display string) error {
	payload, err := json.Marshal(ClearPayload{Display: display})
	if err != nil {
		return fmt.Errorf("failed to marshal clear payload: %w", err)
	}

	_, err = c.sendRequest(&Request{Command: CommandClear, Payload: payload})
	return err
}

// SetScaleMode changes how a display's wallpaper maps onto the screen.
func (c *Client) SetScaleMode(display, scaleMode string) error {
	payload, err := json.Marshal(SetScaleModePayload{Display: display, ScaleMode: scaleMode})
	if err != nil {
		return fmt.Errorf("failed to marshal scale mode payload: %w", err)
	}

	_, err = c.sendRequest(&Request{Command: CommandSetScaleMode, Payload: payload})
	return err
}

// PauseAll pauses playback on every display.
func (c *Client) PauseAll() error {
	_, err := c.sendRequest(&Request{Command: CommandPauseAll})
	return err
}

// ResumeAll resumes playback on every display.
func (c *Client) ResumeAll() error {
	_, err := c.sendRequest(&Request{Command: CommandResumeAll})
	return err
}

// Reload asks the daemon to re-read its configuration and assignments.
func (c *Client) Reload() error {
	_, err := c.sendRequest(&Request{Command: CommandReload})
	return err
}

// ListDisplays retrieves connected display information.
func (c *Client) ListDisplays() (*DisplaysData, error) {
	resp, err := c.sendRequest(&Request{Command: CommandListDisplays})
	if err != nil {
		return nil, err
	}

	var data DisplaysData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse displays data: %w", err)
	}
	return &data, nil
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*StatusData, error) {
	resp, err := c.sendRequest(&Request{Command: CommandGetStatus})
	if err != nil {
		return nil, err
	}

	var status StatusData
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status data: %w", err)
	}
	return &status, nil
}

// GetRecent retrieves recently used wallpaper paths.
func (c *Client) GetRecent() ([]string, error) {
	resp, err := c.sendRequest(&Request{Command: CommandGetRecent})
	if err != nil {
		return nil, err
	}

	var data RecentData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse recent data: %w", err)
	}
	return data.Paths, nil
}

// Preview extracts a still frame from a media file via the daemon.
func (c *Client) Preview(mediaPath string) (string, error) {
	payload, err := json.Marshal(PreviewPayload{MediaPath: mediaPath})
	if err != nil {
		return "", fmt.Errorf("failed to marshal preview payload: %w", err)
	}

	resp, err := c.sendRequest(&Request{Command: CommandPreview, Payload: payload})
	if err != nil {
		return "", err
	}

	var data PreviewData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return "", fmt.Errorf("failed to parse preview data: %w", err)
	}
	return data.ImagePath, nil
}

// Ping checks if the daemon is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
