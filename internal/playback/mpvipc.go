package playback

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"
)

// mpvClient speaks mpv's JSON IPC protocol over a unix socket: one JSON
// object per line, requests carry a request_id echoed in the response,
// property-change notifications and player events arrive asynchronously.
type mpvClient struct {
	conn   net.Conn
	events chan mpvEvent

	mu      sync.Mutex
	nextID  int
	pending map[int]chan mpvMessage

	closeOnce sync.Once
	closed    chan struct{}
}

// mpvMessage is the union of response and event fields; mpv sends both on
// the same stream.
type mpvMessage struct {
	Event     string          `json:"event,omitempty"`
	Name      string          `json:"name,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	Error     string          `json:"error,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	RequestID int             `json:"request_id,omitempty"`
}

// mpvEvent is an asynchronous notification from the player.
type mpvEvent struct {
	Event  string
	Name   string
	Reason string
	Data   json.RawMessage
}

// mpvRequest is the wire form of a command.
type mpvRequest struct {
	Command   []interface{} `json:"command"`
	RequestID int           `json:"request_id"`
}

const mpvCommandTimeout = 2 * time.Second

// dialMPV connects to mpv's IPC socket, retrying until the deadline. The
// socket appears only after the player has initialized.
func dialMPV(socketPath string, deadline time.Duration) (*mpvClient, error) {
	var conn net.Conn
	var err error

	end := time.Now().Add(deadline)
	for {
		conn, err = net.DialTimeout("unix", socketPath, time.Second)
		if err == nil {
			break
		}
		if time.Now().After(end) {
			return nil, fmt.Errorf("mpv ipc socket did not appear: %w", err)
		}
		time.Sleep(50 * time.Millisecond)
	}

	c := &mpvClient{
		conn:    conn,
		events:  make(chan mpvEvent, 64),
		pending: make(map[int]chan mpvMessage),
		closed:  make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Events returns the asynchronous event stream. The channel is closed when
// the connection goes down.
func (c *mpvClient) Events() <-chan mpvEvent {
	return c.events
}

func (c *mpvClient) readLoop() {
	defer func() {
		c.Close()
		close(c.events)
	}()

	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var msg mpvMessage
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			continue
		}

		if msg.Event != "" {
			select {
			case c.events <- mpvEvent{Event: msg.Event, Name: msg.Name, Reason: msg.Reason, Data: msg.Data}:
			default:
				// Slow consumer: drop rather than stall the player.
			}
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[msg.RequestID]
		if ok {
			delete(c.pending, msg.RequestID)
		}
		c.mu.Unlock()
		if ok {
			ch <- msg
		}
	}
}

// command sends one mpv command and waits for its response.
func (c *mpvClient) command(args ...interface{}) (json.RawMessage, error) {
	select {
	case <-c.closed:
		return nil, fmt.Errorf("mpv ipc connection closed")
	default:
	}

	ch := make(chan mpvMessage, 1)
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.pending[id] = ch
	c.mu.Unlock()

	payload, err := json.Marshal(mpvRequest{Command: args, RequestID: id})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal mpv command: %w", err)
	}
	payload = append(payload, '\n')

	if _, err := c.conn.Write(payload); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, fmt.Errorf("failed to send mpv command: %w", err)
	}

	select {
	case msg := <-ch:
		if msg.Error != "" && msg.Error != "success" {
			return nil, fmt.Errorf("mpv: %s", msg.Error)
		}
		return msg.Data, nil
	case <-time.After(mpvCommandTimeout):
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, fmt.Errorf("mpv command timed out")
	case <-c.closed:
		return nil, fmt.Errorf("mpv ipc connection closed")
	}
}

// SetProperty sets an mpv property.
func (c *mpvClient) SetProperty(name string, value interface{}) error {
	_, err := c.command("set_property", name, value)
	return err
}

// GetProperty reads an mpv property into out.
func (c *mpvClient) GetProperty(name string, out interface{}) error {
	data, err := c.command("get_property", name)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

// ObserveProperty subscribes to property-change events for name.
func (c *mpvClient) ObserveProperty(id int, name string) error {
	_, err := c.command("observe_property", id, name)
	return err
}

// Quit asks the player to exit.
func (c *mpvClient) Quit() error {
	_, err := c.command("quit")
	return err
}

// Close shuts the connection down. Safe to call multiple times.
func (c *mpvClient) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.conn.Close()
	})
}
