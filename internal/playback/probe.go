package playback

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// allowedExtensions lists the container formats accepted for wallpaper
// video (MPEG-4 and QuickTime; H.264/HEVC payloads).
var allowedExtensions = []string{".mp4", ".mov"}

// Probe checks that a media path looks playable before any decoder is
// started: non-empty, allowed extension, existing regular file, readable.
// Deeper validation (codec support, corruption) is left to the player and
// surfaces asynchronously as a load failure.
//
// All failures wrap ErrMediaUnreadable.
func Probe(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: no file given", ErrMediaUnreadable)
	}

	ext := strings.ToLower(filepath.Ext(path))
	supported := false
	for _, allowed := range allowedExtensions {
		if ext == allowed {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("%w: unsupported format %q (use %s)",
			ErrMediaUnreadable, ext, strings.Join(allowedExtensions, ", "))
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: file not found: %s", ErrMediaUnreadable, path)
		}
		return fmt.Errorf("%w: cannot stat %s: %v", ErrMediaUnreadable, path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: not a regular file: %s", ErrMediaUnreadable, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: cannot open %s: %v", ErrMediaUnreadable, path, err)
	}
	f.Close()

	return nil
}
