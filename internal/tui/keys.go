package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Open     key.Binding
	Focus    key.Binding
	Back     key.Binding
	NextTab  key.Binding
	PrevTab  key.Binding
	Save     key.Binding
	CloseTab key.Binding
	ClearLog key.Binding
	AddFiles key.Binding
	Quit     key.Binding
	ForceQ   key.Binding
}

var keys = keyMap{
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Open:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
	Focus:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch pane")),
	Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "file list")),
	NextTab:  key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "next tab")),
	PrevTab:  key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "prev tab")),
	Save:     key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
	CloseTab: key.NewBinding(key.WithKeys("ctrl+w"), key.WithHelp("ctrl+w", "close tab")),
	ClearLog: key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "clear log")),
	AddFiles: key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "add files")),
	Quit:     key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
	ForceQ:   key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
}

func helpLine(bindings ...key.Binding) string {
	out := ""
	for i, b := range bindings {
		if i > 0 {
			out += " • "
		}
		h := b.Help()
		out += h.Key + ": " + h.Desc
	}
	return out
}
