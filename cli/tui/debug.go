package tui

import "github.com/mwantia/histfs/log"

// NewDebugLogger returns a logger for the browser that never writes to the
// terminal, which is owned by bubbletea while the program runs. An empty file
// discards everything.
func NewDebugLogger(file string, level log.LogLevel) *log.Logger {
	if file == "" {
		return log.NewNop()
	}
	return log.NewLogger("histfs", level, file, true)
}
