package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Spinner represents a loading spinner
type Spinner struct {
	frames []string
	frame  int
}

// NewSpinner creates a new spinner
func NewSpinner() *Spinner {
	return &Spinner{
		frames: []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"},
	}
}

// Next advances the spinner to the next frame
func (s *Spinner) Next() {
	s.frame = (s.frame + 1) % len(s.frames)
}

// View returns the current spinner frame
func (s *Spinner) View() string {
	return s.frames[s.frame]
}

// LoadingIndicator shows a spinner next to a message
type LoadingIndicator struct {
	spinner *Spinner
	message string
}

// NewLoadingIndicator creates a loading indicator sharing spinner
func NewLoadingIndicator(spinner *Spinner, message string) *LoadingIndicator {
	return &LoadingIndicator{
		spinner: spinner,
		message: message,
	}
}

// View renders the loading indicator
func (l *LoadingIndicator) View() string {
	spinnerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("212"))

	messageStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("250"))

	return fmt.Sprintf("%s %s",
		spinnerStyle.Render(l.spinner.View()),
		messageStyle.Render(l.message))
}

// LoadingOverlay centers the indicator in a width x height box
func LoadingOverlay(width, height int, indicator *LoadingIndicator) string {
	style := lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center)

	return style.Render(indicator.View())
}
