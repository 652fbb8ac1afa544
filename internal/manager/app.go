package manager

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)
	helpBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Padding(0, 1)
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))
)

// displayItem implements list.Item for the display picker.
type displayItem struct {
	id        string
	width     int
	height    int
	mediaPath string
	scaleMode string
	state     string
	occluded  bool
}

func (i displayItem) Title() string {
	marker := " "
	switch i.state {
	case "playing":
		marker = "▶"
	case "paused":
		marker = "⏸"
	case "failed":
		marker = "✗"
	}
	return fmt.Sprintf("%s %s  %dx%d", marker, i.id, i.width, i.height)
}

func (i displayItem) Description() string {
	if i.mediaPath == "" {
		return "no wallpaper"
	}
	desc := fmt.Sprintf("%s (%s)", i.mediaPath, i.scaleMode)
	if i.occluded {
		desc += " — occluded"
	}
	return desc
}

func (i displayItem) FilterValue() string { return i.id }

// statusMsg is sent after an IPC action completes.
type statusMsg struct {
	text  string
	isErr bool
}

// clearStatusMsg clears the status message after a delay.
type clearStatusMsg struct{}

// refreshMsg triggers a refresh of display data from the daemon.
type refreshMsg struct{}

// displaysMsg carries refreshed display data.
type displaysMsg struct {
	items  []list.Item
	paused bool
	err    error
}

// model is the root bubbletea model for the manager.
type model struct {
	client Client
	list   list.Model

	assign *assignForm

	paused     bool
	statusText string
	statusErr  bool

	width  int
	height int
}

func newModel(client Client) model {
	delegate := list.NewDefaultDelegate()
	delegate.SetSpacing(0)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Displays"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	return model{client: client, list: l}
}

func (m model) refreshDisplays() tea.Msg {
	data, err := m.client.ListDisplays()
	if err != nil {
		return displaysMsg{err: err}
	}
	status, err := m.client.GetStatus()
	if err != nil {
		return displaysMsg{err: err}
	}

	items := make([]list.Item, 0, len(data.Displays))
	for _, d := range data.Displays {
		items = append(items, displayItem{
			id:        d.ID,
			width:     d.Width,
			height:    d.Height,
			mediaPath: d.MediaPath,
			scaleMode: d.ScaleMode,
			state:     d.State,
			occluded:  d.Occluded,
		})
	}
	return displaysMsg{items: items, paused: status.Paused}
}

func scheduleRefresh() tea.Cmd {
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return refreshMsg{}
	})
}

func clearStatusLater() tea.Cmd {
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return tea.Batch(m.refreshDisplays, scheduleRefresh())
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// The assign form captures all input when active.
	if m.assign != nil {
		switch msg := msg.(type) {
		case tea.KeyMsg:
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			if msg.String() == "esc" {
				m.assign = nil
				return m, nil
			}
		case tea.WindowSizeMsg:
			m.width = msg.Width
			m.height = msg.Height
		}
		form, cmd := m.assign.Update(msg)
		m.assign = form
		if m.assign != nil && m.assign.completed {
			display := m.assign.display
			path := m.assign.mediaPath
			mode := m.assign.scaleMode
			m.assign = nil
			return m, func() tea.Msg {
				if err := m.client.Assign(display, path, mode); err != nil {
					return statusMsg{text: err.Error(), isErr: true}
				}
				return statusMsg{text: fmt.Sprintf("assigned %s to %s", path, display)}
			}
		}
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "a":
			item, ok := m.list.SelectedItem().(displayItem)
			if !ok {
				return m, nil
			}
			form := newAssignForm(m.client, item.id, item.scaleMode)
			m.assign = form
			return m, form.Init()

		case "c":
			item, ok := m.list.SelectedItem().(displayItem)
			if !ok {
				return m, nil
			}
			return m, func() tea.Msg {
				if err := m.client.Clear(item.id); err != nil {
					return statusMsg{text: err.Error(), isErr: true}
				}
				return statusMsg{text: "cleared " + item.id}
			}

		case "s":
			item, ok := m.list.SelectedItem().(displayItem)
			if !ok || item.mediaPath == "" {
				return m, nil
			}
			next := nextScaleMode(item.scaleMode)
			return m, func() tea.Msg {
				if err := m.client.SetScaleMode(item.id, next); err != nil {
					return statusMsg{text: err.Error(), isErr: true}
				}
				return statusMsg{text: item.id + " scale mode: " + next}
			}

		case "p":
			paused := m.paused
			return m, func() tea.Msg {
				var err error
				if paused {
					err = m.client.ResumeAll()
				} else {
					err = m.client.PauseAll()
				}
				if err != nil {
					return statusMsg{text: err.Error(), isErr: true}
				}
				if paused {
					return statusMsg{text: "resumed all displays"}
				}
				return statusMsg{text: "paused all displays"}
			}

		case "r":
			return m, m.refreshDisplays
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, m.contentHeight())
		return m, nil

	case displaysMsg:
		if msg.err != nil {
			m.statusText = msg.err.Error()
			m.statusErr = true
			return m, clearStatusLater()
		}
		m.paused = msg.paused
		m.list.SetItems(msg.items)
		return m, nil

	case refreshMsg:
		return m, tea.Batch(m.refreshDisplays, scheduleRefresh())

	case statusMsg:
		m.statusText = msg.text
		m.statusErr = msg.isErr
		return m, tea.Batch(m.refreshDisplays, clearStatusLater())

	case clearStatusMsg:
		m.statusText = ""
		m.statusErr = false
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) contentHeight() int {
	// status bar (1) + help bar (1)
	h := m.height - 2
	if h < 1 {
		h = 1
	}
	return h
}

// View implements tea.Model.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	title := "wallmotion"
	if m.paused {
		title += " — PAUSED"
	}
	statusBar := statusBarStyle.Width(m.width).Render(title)

	var content string
	if m.assign != nil {
		content = m.assign.View()
	} else {
		content = m.list.View()
	}

	help := m.statusText
	if help == "" {
		help = "a assign · c clear · s scale mode · p pause/resume · r refresh · q quit"
	}
	helpBar := helpBarStyle.Width(m.width).Render(help)
	if m.statusText != "" {
		if m.statusErr {
			helpBar = helpBarStyle.Width(m.width).Render(errorStyle.Render(m.statusText))
		} else {
			helpBar = helpBarStyle.Width(m.width).Render(okStyle.Render(m.statusText))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, statusBar, content, helpBar)
}

func nextScaleMode(current string) string {
	order := []string{"fill", "fit", "stretch", "center"}
	for i, mode := range order {
		if mode == current {
			return order[(i+1)%len(order)]
		}
	}
	return "fill"
}
