package manager

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
)

// assignForm is the overlay for picking a wallpaper video and scale mode for
// one display.
type assignForm struct {
	display   string
	form      *huh.Form
	completed bool

	// Form-bound values.
	mediaPath string
	scaleMode string
}

func newAssignForm(client Client, display, currentMode string) *assignForm {
	a := &assignForm{display: display, scaleMode: currentMode}
	if a.scaleMode == "" {
		a.scaleMode = "fill"
	}

	pathOpts := recentOptions(client)
	modeOpts := []huh.Option[string]{
		huh.NewOption("fill — cover the display, crop overflow", "fill"),
		huh.NewOption("fit — letterbox, no cropping", "fit"),
		huh.NewOption("stretch — ignore aspect ratio", "stretch"),
		huh.NewOption("center — native size, centered", "center"),
	}

	fields := []huh.Field{
		huh.NewInput().
			Key("media_path").
			Title("Video file").
			Description("Absolute path of a .mp4 or .mov file").
			Suggestions(pathOpts).
			Value(&a.mediaPath),

		huh.NewSelect[string]().
			Key("scale_mode").
			Title("Scale mode").
			Options(modeOpts...).
			Value(&a.scaleMode),
	}

	a.form = huh.NewForm(huh.NewGroup(fields...)).WithShowHelp(true)
	return a
}

// recentOptions fetches recent wallpaper paths for input suggestions.
// A daemon error just means no suggestions.
func recentOptions(client Client) []string {
	recent, err := client.GetRecent()
	if err != nil {
		return nil
	}
	return recent
}

func (a *assignForm) Init() tea.Cmd {
	return a.form.Init()
}

func (a *assignForm) Update(msg tea.Msg) (*assignForm, tea.Cmd) {
	form, cmd := a.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.form = f
	}
	if a.form.State == huh.StateCompleted {
		a.mediaPath = strings.TrimSpace(a.mediaPath)
		a.completed = a.mediaPath != ""
	}
	return a, cmd
}

func (a *assignForm) View() string {
	return "Assign wallpaper to " + a.display + "\n\n" + a.form.View()
}
