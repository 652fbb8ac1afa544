// Package manager is the interactive wallpaper manager: a terminal UI over
// the daemon's IPC socket for browsing displays and assigning wallpapers.
package manager

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"wallmotion/internal/ipc"
)

// Client is the slice of the daemon IPC client the manager needs. Tests
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
}

// Run starts the manager UI, blocking until the user quits.
func Run() error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("manager requires an interactive terminal (stdin/stdout must be TTYs)")
	}

	client := ipc.NewClient()
	if err := client.Ping(); err != nil {
		return fmt.Errorf("cannot reach daemon: %w", err)
	}

	p := tea.NewProgram(newModel(client), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
