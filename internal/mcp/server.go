// Package mcp exposes the wallpaper daemon to MCP clients as a small tool
// surface over the daemon's IPC socket.
package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"wallmotion/internal/engine"
	"wallmotion/internal/ipc"
)

const (
	ServerName    = "wallmotion"
	ServerVersion = "0.1.0"
)

// Client is the slice of the daemon IPC client the tools need. Tests
// substitute fakes.
type Client interface {
	Assign(display, mediaPath, scaleMode string) error
	Clear(display string) error
	SetScaleMode(display, scaleMode string) error
	PauseAll() error
	ResumeAll() error
	ListDisplays() (*ipc.DisplaysData, error)
	GetStatus() (*ipc.StatusData, error)
	GetRecent() ([]string, error)
	Preview(mediaPath string) (string, error)
}

// Server is the MCP server for wallpaper control.
type Server struct {
	mcpServer *mcpsdk.Server
	client    Client
}

// NewServer creates an MCP server that talks to a running daemon through
// client.
func NewServer(client Client) *Server {
	s := &Server{client: client}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_displays",
		Description: "List connected displays with their geometry and current wallpaper state (media path, scale mode, playing/paused/failed).",
	}, s.handleListDisplays)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "assign_wallpaper",
		Description: "Assign a looping video wallpaper to a display. The video starts playing immediately and the assignment persists across daemon restarts and display reconnects.",
	}, s.handleAssignWallpaper)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "clear_wallpaper",
		Description: "Remove a display's wallpaper and stop its playback.",
	}, s.handleClearWallpaper)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_scale_mode",
		Description: "Change how a display's wallpaper video maps onto the screen without restarting playback.",
	}, s.handleSetScaleMode)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "pause_wallpapers",
		Description: "Pause wallpaper playback on every display.",
	}, s.handlePause)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "resume_wallpapers",
		Description: "Resume wallpaper playback on every display.",
	}, s.handleResume)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "recent_wallpapers",
		Description: "List recently assigned wallpaper video paths, most recent first.",
	}, s.handleRecentWallpapers)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "preview_wallpaper",
		Description: "Extract a still frame from a video file and return the PNG path, without assigning it to any display.",
	}, s.handlePreviewWallpaper)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_status",
		Description: "Get daemon status: uptime, global pause state, power pause state and per-display wallpaper state.",
	}, s.handleGetStatus)
}

func displayInfos(displays []engine.DisplayStatus) []DisplayInfo {
	infos := make([]DisplayInfo, 0, len(displays))
	for _, d := range displays {
		infos = append(infos, DisplayInfo{
			ID:          d.ID,
			X:           d.X,
			Y:           d.Y,
			Width:       d.Width,
			Height:      d.Height,
			ScaleFactor: d.ScaleFactor,
			MediaPath:   d.MediaPath,
			ScaleMode:   d.ScaleMode,
			State:       d.State,
			Occluded:    d.Occluded,
		})
	}
	return infos
}

func (s *Server) handleListDisplays(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListDisplaysInput) (*mcpsdk.CallToolResult, ListDisplaysOutput, error) {
	data, err := s.client.ListDisplays()
	if err != nil {
		return nil, ListDisplaysOutput{}, err
	}
	return nil, ListDisplaysOutput{Displays: displayInfos(data.Displays)}, nil
}

func (s *Server) handleAssignWallpaper(_ context.Context, _ *mcpsdk.CallToolRequest, args AssignWallpaperInput) (*mcpsdk.CallToolResult, AssignWallpaperOutput, error) {
	if args.Display == "" {
		return nil, AssignWallpaperOutput{}, fmt.Errorf("display is required")
	}
	if args.MediaPath == "" {
		return nil, AssignWallpaperOutput{}, fmt.Errorf("media_path is required")
	}
	mode := args.ScaleMode
	if mode == "" {
		mode = "fill"
	}
	if err := s.client.Assign(args.Display, args.MediaPath, mode); err != nil {
		return nil, AssignWallpaperOutput{}, err
	}
	return nil, AssignWallpaperOutput{
		Display:   args.Display,
		MediaPath: args.MediaPath,
		ScaleMode: mode,
	}, nil
}

func (s *Server) handleClearWallpaper(_ context.Context, _ *mcpsdk.CallToolRequest, args ClearWallpaperInput) (*mcpsdk.CallToolResult, ClearWallpaperOutput, error) {
	if args.Display == "" {
		return nil, ClearWallpaperOutput{}, fmt.Errorf("display is required")
	}
	if err := s.client.Clear(args.Display); err != nil {
		return nil, ClearWallpaperOutput{}, err
	}
	return nil, ClearWallpaperOutput{Display: args.Display}, nil
}

func (s *Server) handleSetScaleMode(_ context.Context, _ *mcpsdk.CallToolRequest, args SetScaleModeInput) (*mcpsdk.CallToolResult, SetScaleModeOutput, error) {
	if args.Display == "" {
		return nil, SetScaleModeOutput{}, fmt.Errorf("display is required")
	}
	if args.ScaleMode == "" {
		return nil, SetScaleModeOutput{}, fmt.Errorf("scale_mode is required")
	}
	if err := s.client.SetScaleMode(args.Display, args.ScaleMode); err != nil {
		return nil, SetScaleModeOutput{}, err
	}
	return nil, SetScaleModeOutput{Display: args.Display, ScaleMode: args.ScaleMode}, nil
}

func (s *Server) handlePause(_ context.Context, _ *mcpsdk.CallToolRequest, _ PauseInput) (*mcpsdk.CallToolResult, PauseOutput, error) {
	if err := s.client.PauseAll(); err != nil {
		return nil, PauseOutput{}, err
	}
	return nil, PauseOutput{Paused: true}, nil
}

func (s *Server) handleResume(_ context.Context, _ *mcpsdk.CallToolRequest, _ PauseInput) (*mcpsdk.CallToolResult, PauseOutput, error) {
	if err := s.client.ResumeAll(); err != nil {
		return nil, PauseOutput{}, err
	}
	return nil, PauseOutput{Paused: false}, nil
}

func (s *Server) handleRecentWallpapers(_ context.Context, _ *mcpsdk.CallToolRequest, _ RecentWallpapersInput) (*mcpsdk.CallToolResult, RecentWallpapersOutput, error) {
	paths, err := s.client.GetRecent()
	if err != nil {
		return nil, RecentWallpapersOutput{}, err
	}
	return nil, RecentWallpapersOutput{Paths: paths}, nil
}

func (s *Server) handlePreviewWallpaper(_ context.Context, _ *mcpsdk.CallToolRequest, args PreviewWallpaperInput) (*mcpsdk.CallToolResult, PreviewWallpaperOutput, error) {
	if args.MediaPath == "" {
		return nil, PreviewWallpaperOutput{}, fmt.Errorf("media_path is required")
	}
	imagePath, err := s.client.Preview(args.MediaPath)
	if err != nil {
		return nil, PreviewWallpaperOutput{}, err
	}
	return nil, PreviewWallpaperOutput{ImagePath: imagePath}, nil
}

func (s *Server) handleGetStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ GetStatusInput) (*mcpsdk.CallToolResult, GetStatusOutput, error) {
	status, err := s.client.GetStatus()
	if err != nil {
		return nil, GetStatusOutput{}, err
	}
	return nil, GetStatusOutput{
		DaemonRunning: status.DaemonRunning,
		UptimeSeconds: status.UptimeSeconds,
		Paused:        status.Paused,
		PowerPaused:   status.PowerPaused,
		Displays:      displayInfos(status.Displays),
	}, nil
}
