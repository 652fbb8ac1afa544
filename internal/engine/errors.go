package engine

import "errors"

// ErrDisplayLost reports an operation that targeted a display that is not
// currently connected.
var ErrDisplayLost = errors.New("display not connected")

// ErrNoAssignment reports an operation that requires an existing wallpaper
// assignment for the display.
var ErrNoAssignment = errors.New("display has no wallpaper assigned")

// ErrStopped reports a command issued while the engine loop is not running.
var ErrStopped = errors.New("engine is not running")
