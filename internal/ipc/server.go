package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"wallmotion/internal/engine"
	"wallmotion/internal/runtimepath"
	"wallmotion/internal/scale"
	"wallmotion/internal/store"
)

// Engine is the wallpaper operations surface the server drives. The daemon
// passes the real engine; tests substitute fakes.
type Engine interface {
	Assign(displayID, path string, mode scale.Mode) error
	Clear(displayID string) error
	SetScaleMode(displayID string, mode scale.Mode) error
	PauseAll() error
	ResumeAll() error
	Reload() error
	Status() (engine.StatusReport, error)
}

// Previewer extracts a still frame from a media file and returns the image
// path.
type Previewer interface {
	Frame(mediaPath string) (string, error)
}

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	eng          Engine
	store        *store.Store
	preview      Previewer
	startTime    time.Time
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server on the standard socket path.
func NewServer(eng Engine, st *store.Store, preview Previewer) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}
	return NewServerAt(socketPath, eng, st, preview), nil
}

// NewServerAt creates a new IPC server on an explicit socket path.
func NewServerAt(socketPath string, eng Engine, st *store.Store, preview Previewer) *Server {
	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		eng:        eng,
		store:      st,
		preview:    preview,
		startTime:  time.Now(),
	}
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	log.Printf("IPC server listening on %s", s.socketPath)

	// Accept connections
	go s.acceptLoop()

	return nil
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			log.Printf("IPC accept error: %v", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		log.Printf("IPC read error: %v", err)
		return
	}

	// Parse request
	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	// Handle command
	resp := s.handleCommand(req)

	// Send response
	respData, err := resp.Marshal()
	if err != nil {
		log.Printf("Failed to marshal response: %v", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		log.Printf("Failed to send response: %v", err)
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandAssign:
		return s.handleAssign(req.Payload)
	case CommandClear:
		return s.handleClear(req.Payload)
	case CommandSetScaleMode:
		return s.handleSetScaleMode(req.Payload)
	case CommandPauseAll:
		return s.handleSimple(s.eng.PauseAll)
	case CommandResumeAll:
		return s.handleSimple(s.eng.ResumeAll)
	case CommandListDisplays:
		return s.handleListDisplays()
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandGetRecent:
		return s.handleGetRecent()
	case CommandPreview:
		return s.handlePreview(req.Payload)
	case CommandReload:
		return s.handleSimple(s.eng.Reload)
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func (s *Server) handleSimple(op func() error) *Response {
	if err := op(); err != nil {
		return NewErrorResponse(err.Error())
	}
	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleAssign(payload json.RawMessage) *Response {
	var p AssignPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid assign payload: %v", err))
	}
	if p.Display == "" {
		return NewErrorResponse("display is required")
	}
	if p.MediaPath == "" {
		return NewErrorResponse("media_path is required")
	}
	mode := scale.ModeFill
	if p.ScaleMode != "" {
		var err error
		if mode, err = scale.ParseMode(p.ScaleMode); err != nil {
			return NewErrorResponse(err.Error())
		}
	}

	if err := s.eng.Assign(p.Display, p.MediaPath, mode); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to assign wallpaper: %v", err))
	}
	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleClear(payload json.RawMessage) *Response {
	var p ClearPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid clear payload: %v", err))
	}
	if p.Display == "" {
		return NewErrorResponse("display is required")
	}
	if err := s.eng.Clear(p.Display); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to clear wallpaper: %v", err))
	}
	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleSetScaleMode(payload json.RawMessage) *Response {
	var p SetScaleModePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid scale mode payload: %v", err))
	}
	if p.Display == "" {
		return NewErrorResponse("display is required")
	}
	mode, err := scale.ParseMode(p.ScaleMode)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	if err := s.eng.SetScaleMode(p.Display, mode); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to set scale mode: %v", err))
	}
	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleListDisplays() *Response {
	report, err := s.eng.Status()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to list displays: %v", err))
	}
	resp, _ := NewOKResponse(DisplaysData{Displays: report.Displays})
	return resp
}

func (s *Server) handleGetStatus() *Response {
	report, err := s.eng.Status()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to get status: %v", err))
	}
	status := StatusData{
		DaemonRunning: true,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		StatusReport:  report,
	}
	resp, _ := NewOKResponse(status)
	return resp
}

func (s *Server) handleGetRecent() *Response {
	paths, err := s.store.Recents()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to read recent wallpapers: %v", err))
	}
	resp, _ := NewOKResponse(RecentData{Paths: paths})
	return resp
}

func (s *Server) handlePreview(payload json.RawMessage) *Response {
	var p PreviewPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid preview payload: %v", err))
	}
	if p.MediaPath == "" {
		return NewErrorResponse("media_path is required")
	}
	if s.preview == nil {
		return NewErrorResponse("preview unavailable")
	}
	imagePath, err := s.preview.Frame(p.MediaPath)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to extract preview frame: %v", err))
	}
	resp, _ := NewOKResponse(PreviewData{ImagePath: imagePath})
	return resp
}

// sendError sends an error response
func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}
