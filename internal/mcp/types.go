package mcp

// ListDisplaysInput is the input for the list_displays tool.
type ListDisplaysInput struct{}

// DisplayInfo describes one connected display and its wallpaper.
type DisplayInfo struct {
	ID          string  `json:"id"`
	X           int     `json:"x"`
	Y           int     `json:"y"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	ScaleFactor float64 `json:"scale_factor"`
	MediaPath   string  `json:"media_path,omitempty"`
	ScaleMode   string  `json:"scale_mode,omitempty"`
	State       string  `json:"state"`
	Occluded    bool    `json:"occluded"`
}

// ListDisplaysOutput is the output for the list_displays tool.
type ListDisplaysOutput struct {
	Displays []DisplayInfo `json:"displays"`
}

// AssignWallpaperInput is the input for the assign_wallpaper tool.
type AssignWallpaperInput struct {
	Display   string `json:"display" jsonschema:"required,Display ID to assign the wallpaper to (see list_displays)"`
	MediaPath string `json:"media_path" jsonschema:"required,Absolute path of the video file (.mp4 or .mov)"`
	ScaleMode string `json:"scale_mode,omitempty" jsonschema:"How the video maps onto the display: fill, fit, stretch or center (default: fill)"`
}

// AssignWallpaperOutput is the output for the assign_wallpaper tool.
type AssignWallpaperOutput struct {
	Display   string `json:"display"`
	MediaPath string `json:"media_path"`
	ScaleMode string `json:"scale_mode"`
}

// ClearWallpaperInput is the input for the clear_wallpaper tool.
type ClearWallpaperInput struct {
	Display string `json:"display" jsonschema:"required,Display ID to clear"`
}

// ClearWallpaperOutput is the output for the clear_wallpaper tool.
type ClearWallpaperOutput struct {
	Display string `json:"display"`
}

// SetScaleModeInput is the input for the set_scale_mode tool.
type SetScaleModeInput struct {
	Display   string `json:"display" jsonschema:"required,Display ID to adjust"`
	ScaleMode string `json:"scale_mode" jsonschema:"required,One of fill, fit, stretch, center"`
}

// SetScaleModeOutput is the output for the set_scale_mode tool.
type SetScaleModeOutput struct {
	Display   string `json:"display"`
	ScaleMode string `json:"scale_mode"`
}

// PauseInput is the input for pause_wallpapers and resume_wallpapers.
type PauseInput struct{}

// PauseOutput is the output for pause_wallpapers and resume_wallpapers.
type PauseOutput struct {
	Paused bool `json:"paused"`
}

// RecentWallpapersInput is the input for the recent_wallpapers tool.
type RecentWallpapersInput struct{}

// RecentWallpapersOutput is the output for the recent_wallpapers tool.
type RecentWallpapersOutput struct {
	Paths []string `json:"paths"`
}

// PreviewWallpaperInput is the input for the preview_wallpaper tool.
type PreviewWallpaperInput struct {
	MediaPath string `json:"media_path" jsonschema:"required,Absolute path of the video file to preview"`
}

// PreviewWallpaperOutput is the output for the preview_wallpaper tool.
type PreviewWallpaperOutput struct {
	ImagePath string `json:"image_path"`
}

// GetStatusInput is the input for the get_status tool.
type GetStatusInput struct{}

// GetStatusOutput is the output for the get_status tool.
type GetStatusOutput struct {
	DaemonRunning bool          `json:"daemon_running"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	Paused        bool          `json:"paused"`
	PowerPaused   bool          `json:"power_paused"`
	Displays      []DisplayInfo `json:"displays"`
}
