// Package preview extracts still frames from wallpaper media for display in
// pickers and the manager UI.
package preview

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"wallmotion/internal/playback"
)

// ErrPreviewUnavailable reports that no frame could be extracted.
var ErrPreviewUnavailable = errors.New("preview unavailable")

// Extractor renders one frame of a media file to a PNG using the player
// binary. Frames are cached by media path and reused until the media file
// changes.
type Extractor struct {
	// MPVPath is the player binary. Defaults to "mpv".
	MPVPath string
	// OutDir is where frames are written. Required.
	OutDir string
	// Timeout bounds one extraction. Defaults to 10s.
	Timeout time.Duration
}

func (e *Extractor) mpvPath() string {
	if e.MPVPath == "" {
		return "mpv"
	}
	return e.MPVPath
}

func (e *Extractor) timeout() time.Duration {
	if e.Timeout <= 0 {
		return 10 * time.Second
	}
	return e.Timeout
}

// Frame returns the path of a PNG still for mediaPath, extracting it if no
// fresh cached frame exists.
func (e *Extractor) Frame(mediaPath string) (string, error) {
	if err := playback.Probe(mediaPath); err != nil {
		return "", fmt.Errorf("%w: %w", ErrPreviewUnavailable, err)
	}

	frame := filepath.Join(e.OutDir, cacheKey(mediaPath)+".png")
	if fresh(frame, mediaPath) {
		return frame, nil
	}

	// Render into a scratch dir first; mpv picks its own output names.
	scratch, err := os.MkdirTemp(e.OutDir, "extract-")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPreviewUnavailable, err)
	}
	defer os.RemoveAll(scratch)

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout())
	defer cancel()
	cmd := exec.CommandContext(ctx, e.mpvPath(),
		"--no-config",
		"--no-terminal",
		"--no-audio",
		"--start=1",
		"--frames=1",
		"--vo=image",
		"--vo-image-format=png",
		"--vo-image-outdir="+scratch,
		mediaPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("%w: %s failed: %v (%s)", ErrPreviewUnavailable, e.mpvPath(), err, firstLine(out))
	}

	rendered, err := firstPNG(scratch)
	if err != nil {
		return "", err
	}
	if err := os.Rename(rendered, frame); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPreviewUnavailable, err)
	}
	return frame, nil
}

// fresh reports whether the cached frame exists and is newer than the media.
func fresh(frame, mediaPath string) bool {
	fi, err := os.Stat(frame)
	if err != nil {
		return false
	}
	mi, err := os.Stat(mediaPath)
	if err != nil {
		return false
	}
	return fi.ModTime().After(mi.ModTime())
}

func firstPNG(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.png"))
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("%w: player produced no frame", ErrPreviewUnavailable)
	}
	return matches[0], nil
}

func cacheKey(mediaPath string) string {
	sum := sha1.Sum([]byte(filepath.Clean(mediaPath)))
	return hex.EncodeToString(sum[:])
}

func firstLine(out []byte) string {
	for i, b := range out {
		if b == '\n' {
			return string(out[:i])
		}
	}
	return string(out)
}
