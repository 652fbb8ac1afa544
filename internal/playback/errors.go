package playback

import "errors"

// ErrMediaUnreadable marks a missing, unsupported, or corrupt media file.
// It is recoverable: the caller keeps its surface alive and unbound.
var ErrMediaUnreadable = errors.New("media unreadable")

// ErrReleaseTimeout means the player process failed to shut down within the
// configured bound and was force-killed. The underlying resources are freed
// by the kill, but callers should log the condition.
var ErrReleaseTimeout = errors.New("playback release timed out")
