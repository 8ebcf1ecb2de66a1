package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Message types delivered to the update loop from other goroutines
type (
	// callbackMsg is work posted onto the update loop, such as a finished
	// dump or a file found by the folder watcher
	callbackMsg func()

	// logChangedMsg indicates the operator log has new content
	logChangedMsg struct{}

	// TickMsg is sent periodically for spinner animation
	TickMsg time.Time
)

// tickCmd creates a ticker for spinner animation
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
