package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/afero"
	"github.com/strrl/hkanno-tui/internal/oplog"
	"github.com/strrl/hkanno-tui/internal/registry"
	"github.com/strrl/hkanno-tui/internal/sessions"
	"github.com/strrl/hkanno-tui/internal/viewsync"
	"github.com/strrl/hkanno-tui/internal/watch"
	"github.com/strrl/hkanno-tui/pkg/models"
)

type focusArea int

const (
	listFocus focusArea = iota
	editorFocus
	promptFocus
)

// Options wires the TUI to the rest of the application
type Options struct {
	Registry  *registry.Registry
	Converter sessions.Converter
	Fs        afero.Fs
	Log       *oplog.Log
	Logger    *slog.Logger
	WatchDirs []string
}

type editorTab struct {
	id    models.EditorID
	entry models.EntryID
	title string
	area  textarea.Model
	dirty bool
}

type model struct {
	ctx    context.Context
	reg    *registry.Registry
	mgr    *sessions.Manager
	ctrl   *viewsync.Controller
	log    *oplog.Log
	fs     afero.Fs
	logger *slog.Logger

	entries []models.FileEntry
	dirty   map[models.EntryID]bool
	cursor  int
	listTop int

	tabs   []*editorTab
	active int // index into tabs, -1 when none

	focus    focusArea
	prompt   textinput.Model
	logView  viewport.Model
	spinner  *Spinner
	ticking  bool
	quitWarn bool

	ready       bool
	quitting    bool
	width       int
	height      int
	listWidth   int
	editorWidth int
	bodyHeight  int
	logHeight   int
}

func newModel(ctx context.Context, opts Options, post sessions.Poster) *model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	fsys := opts.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	prompt := textinput.New()
	prompt.Prompt = "add: "
	prompt.Placeholder = "file.hkx or folder; separate several with ;"
	prompt.CharLimit = 4096

	m := &model{
		ctx:     ctx,
		reg:     opts.Registry,
		log:     opts.Log,
		fs:      fsys,
		logger:  logger,
		dirty:   make(map[models.EntryID]bool),
		active:  -1,
		prompt:  prompt,
		spinner: NewSpinner(),
	}
	m.mgr = sessions.NewManager(sessions.Options{
		Converter: opts.Converter,
		Entries:   opts.Registry,
		Fs:        fsys,
		Log:       opts.Log,
		Logger:    logger,
		Post:      post,
	})
	m.ctrl = viewsync.New(m.mgr, m, logger)
	m.mgr.OnDirtyChanged(m.ctrl.DirtyChanged)

	m.entries = opts.Registry.Entries()
	opts.Registry.OnAdded(func(e models.FileEntry) {
		m.entries = append(m.entries, e)
	})
	return m
}

func (m *model) Init() tea.Cmd {
	return nil
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.logView = viewport.New(msg.Width, 1)
			m.ready = true
		}
		m.layout()
		m.refreshLog()

	case callbackMsg:
		msg()
		cmds = append(cmds, m.startTicking())

	case logChangedMsg:
		m.refreshLog()

	case TickMsg:
		m.spinner.Next()
		if m.anyLoading() {
			cmds = append(cmds, tickCmd())
		} else {
			m.ticking = false
		}

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
		cmds = append(cmds, m.forwardKey(msg))
	}

	return m, tea.Batch(cmds...)
}

// handleKey processes the bindings that are not text input for a widget.
func (m *model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	if key.Matches(msg, keys.ForceQ) {
		return m.quit(), true
	}

	if m.focus == promptFocus {
		switch msg.Type {
		case tea.KeyEnter:
			m.submitPrompt()
			return nil, true
		case tea.KeyEsc:
			m.closePrompt()
			return nil, true
		}
		return nil, false
	}

	switch {
	case key.Matches(msg, keys.Save):
		m.saveCurrent()
		return nil, true
	case key.Matches(msg, keys.CloseTab):
		m.closeCurrentTab()
		return nil, true
	case key.Matches(msg, keys.NextTab):
		m.switchTab(1)
		return nil, true
	case key.Matches(msg, keys.PrevTab):
		m.switchTab(-1)
		return nil, true
	case key.Matches(msg, keys.ClearLog):
		m.log.Clear()
		m.refreshLog()
		return nil, true
	case key.Matches(msg, keys.AddFiles):
		m.openPrompt()
		return textinput.Blink, true
	case key.Matches(msg, keys.Focus):
		if m.focus == listFocus && m.activeTab() != nil {
			m.setFocus(editorFocus)
		} else {
			m.setFocus(listFocus)
		}
		return nil, true
	}

	if m.focus == editorFocus {
		if key.Matches(msg, keys.Back) {
			m.setFocus(listFocus)
			return nil, true
		}
		return nil, false
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return m.quit(), true
	case key.Matches(msg, keys.Up):
		m.moveCursor(-1)
		return nil, true
	case key.Matches(msg, keys.Down):
		m.moveCursor(1)
		return nil, true
	case key.Matches(msg, keys.Open):
		return m.activateSelected(), true
	}
	return nil, false
}

// forwardKey hands text input to the focused widget.
func (m *model) forwardKey(msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	switch m.focus {
	case promptFocus:
		m.prompt, cmd = m.prompt.Update(msg)
	case editorFocus:
		tab := m.activeTab()
		if tab == nil {
			return nil
		}
		before := tab.area.Value()
		tab.area, cmd = tab.area.Update(msg)
		if after := tab.area.Value(); after != before {
			if err := m.ctrl.Edit(tab.id, after); err != nil {
				m.logger.Warn("edit rejected", "editor", tab.id, "error", err)
			}
		}
	}
	return cmd
}

func (m *model) quit() tea.Cmd {
	unsaved := 0
	for _, d := range m.dirty {
		if d {
			unsaved++
		}
	}
	if unsaved > 0 && !m.quitWarn {
		m.quitWarn = true
		m.log.Append(fmt.Sprintf("%d file(s) have unsaved changes; quit again to discard them", unsaved))
		return nil
	}
	m.quitting = true
	return tea.Quit
}

func (m *model) moveCursor(delta int) {
	next := m.cursor + delta
	if next < 0 || next >= len(m.entries) {
		return
	}
	m.cursor = next
	m.ctrl.SelectEntry(m.entries[next].ID)
}

func (m *model) activateSelected() tea.Cmd {
	if m.cursor >= len(m.entries) {
		return nil
	}
	id := m.entries[m.cursor].ID
	if err := m.ctrl.ActivateEntry(m.ctx, id); err != nil {
		m.logger.Debug("activate failed", "entry", id, "error", err)
		return nil
	}
	if _, ok := m.ctrl.EditorFor(id); ok {
		m.setFocus(editorFocus)
	}
	return m.startTicking()
}

func (m *model) saveCurrent() {
	if _, err := m.ctrl.SaveCurrent(m.ctx); err != nil {
		m.logger.Debug("save failed", "editor", m.ctrl.CurrentEditor(), "error", err)
	}
}

func (m *model) closeCurrentTab() {
	tab := m.activeTab()
	if tab == nil {
		return
	}
	if err := m.ctrl.CloseEditor(tab.id); err != nil {
		return
	}
	if next := m.activeTab(); next != nil {
		_ = m.ctrl.SelectEditor(next.id)
	} else if m.focus == editorFocus {
		m.setFocus(listFocus)
	}
}

func (m *model) switchTab(delta int) {
	if len(m.tabs) < 2 {
		return
	}
	m.active = (m.active + delta + len(m.tabs)) % len(m.tabs)
	m.applyFocus()
	_ = m.ctrl.SelectEditor(m.tabs[m.active].id)
}

func (m *model) openPrompt() {
	m.prompt.Reset()
	m.setFocus(promptFocus)
}

func (m *model) closePrompt() {
	m.prompt.Reset()
	m.setFocus(listFocus)
}

func (m *model) submitPrompt() {
	var items []string
	for _, part := range strings.Split(m.prompt.Value(), ";") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	m.closePrompt()
	if len(items) > 0 {
		m.addPaths(items)
	}
}

// addPaths expands folders and adds the result as one batch.
func (m *model) addPaths(items []string) {
	paths, err := watch.Expand(m.fs, items)
	if err == nil {
		_, err = m.reg.AddBatch(paths)
	}
	if err != nil {
		m.log.Append(err.Error())
	}
}

func (m *model) setFocus(f focusArea) {
	m.focus = f
	m.applyFocus()
}

// applyFocus moves the cursor focus to the widget matching m.focus.
func (m *model) applyFocus() {
	for i, t := range m.tabs {
		if m.focus == editorFocus && i == m.active {
			t.area.Focus()
		} else {
			t.area.Blur()
		}
	}
	if m.focus == promptFocus {
		m.prompt.Focus()
	} else {
		m.prompt.Blur()
	}
}

func (m *model) activeTab() *editorTab {
	if m.active < 0 || m.active >= len(m.tabs) {
		return nil
	}
	return m.tabs[m.active]
}

func (m *model) tabIndex(eid models.EditorID) int {
	for i, t := range m.tabs {
		if t.id == eid {
			return i
		}
	}
	return -1
}

func (m *model) anyLoading() bool {
	for _, e := range m.entries {
		if m.mgr.State(e.ID) == models.StateLoading {
			return true
		}
	}
	return false
}

func (m *model) startTicking() tea.Cmd {
	if m.ticking || !m.anyLoading() {
		return nil
	}
	m.ticking = true
	return tickCmd()
}

func (m *model) layout() {
	m.listWidth = max(20, m.width/3)
	m.editorWidth = max(10, m.width-m.listWidth-1)
	m.logHeight = max(3, m.height/4)
	m.bodyHeight = max(2, m.height-m.logHeight-3)

	m.logView.Width = m.width
	m.logView.Height = m.logHeight
	m.prompt.Width = max(10, m.width-len(m.prompt.Prompt)-1)
	for _, t := range m.tabs {
		m.sizeEditor(&t.area)
	}
}

func (m *model) sizeEditor(area *textarea.Model) {
	area.SetWidth(m.editorWidth)
	area.SetHeight(max(1, m.bodyHeight-1))
}

func (m *model) refreshLog() {
	if !m.ready {
		return
	}
	m.logView.SetContent(m.log.String())
	m.logView.GotoBottom()
}

// viewsync.View

func (m *model) SelectEntry(id models.EntryID) {
	for i, e := range m.entries {
		if e.ID == id {
			m.cursor = i
			return
		}
	}
}

func (m *model) OpenEditor(eid models.EditorID, s *sessions.Session) {
	area := textarea.New()
	area.CharLimit = 0
	area.MaxHeight = 0
	area.ShowLineNumbers = true
	area.Placeholder = "empty annotation"
	m.sizeEditor(&area)
	area.SetValue(s.Text())
	area.Blur()

	title := s.Path()
	if e, err := m.reg.Get(s.Entry()); err == nil {
		title = e.Name
	}
	m.tabs = append(m.tabs, &editorTab{
		id:    eid,
		entry: s.Entry(),
		title: title,
		area:  area,
		dirty: s.Dirty(),
	})
}

func (m *model) FocusEditor(eid models.EditorID) {
	if i := m.tabIndex(eid); i >= 0 {
		m.active = i
		m.applyFocus()
	}
}

func (m *model) CloseEditor(eid models.EditorID) {
	i := m.tabIndex(eid)
	if i < 0 {
		return
	}
	m.tabs = append(m.tabs[:i], m.tabs[i+1:]...)
	switch {
	case len(m.tabs) == 0:
		m.active = -1
	case m.active >= len(m.tabs):
		m.active = len(m.tabs) - 1
	case i < m.active:
		m.active--
	}
	m.applyFocus()
}

func (m *model) SetDirty(id models.EntryID, eid models.EditorID, dirty bool) {
	m.dirty[id] = dirty
	if i := m.tabIndex(eid); i >= 0 {
		m.tabs[i].dirty = dirty
	}
	if !dirty {
		m.quitWarn = false
	}
}

func (m *model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	body := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderList(),
		m.renderDivider(),
		m.renderEditor(),
	)
	return strings.Join([]string{
		m.renderHeader(),
		body,
		m.renderLogTitle(),
		m.logView.View(),
		m.renderFooter(),
	}, "\n")
}

func (m *model) renderHeader() string {
	title := "hkanno"
	if tab := m.activeTab(); tab != nil {
		title = fmt.Sprintf("hkanno - %s", tab.title)
	}

	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("63")).
		Width(m.width)

	return style.Render(title)
}

func (m *model) renderList() string {
	height := m.bodyHeight
	if m.cursor < m.listTop {
		m.listTop = m.cursor
	}
	if m.cursor >= m.listTop+height {
		m.listTop = m.cursor - height + 1
	}

	var s strings.Builder
	if len(m.entries) == 0 {
		emptyStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
		s.WriteString(emptyStyle.Render("No files. ctrl+o to add"))
	}

	end := min(len(m.entries), m.listTop+height)
	for i := m.listTop; i < end; i++ {
		e := m.entries[i]
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}

		marker := " "
		switch {
		case m.mgr.State(e.ID) == models.StateLoading:
			marker = m.spinner.View()
		case m.dirty[e.ID]:
			marker = "*"
		}

		style := lipgloss.NewStyle()
		if i == m.cursor {
			style = style.Foreground(lipgloss.Color("212")).Bold(true)
		} else if _, open := m.ctrl.EditorFor(e.ID); open {
			style = style.Foreground(lipgloss.Color("252"))
		} else {
			style = style.Foreground(lipgloss.Color("245"))
		}

		line := truncate(fmt.Sprintf("%s%s %s", cursor, marker, e.Name), m.listWidth)
		s.WriteString(style.Render(line))
		if i < end-1 {
			s.WriteString("\n")
		}
	}

	return lipgloss.NewStyle().
		Width(m.listWidth).
		Height(height).
		Render(s.String())
}

func (m *model) renderDivider() string {
	divider := strings.TrimSuffix(strings.Repeat("│\n", m.bodyHeight), "\n")
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("238")).
		Render(divider)
}

func (m *model) renderEditor() string {
	box := lipgloss.NewStyle().
		Width(m.editorWidth).
		Height(m.bodyHeight)

	tab := m.activeTab()
	if tab == nil {
		id := m.ctrl.CurrentEntry()
		if id != 0 && m.mgr.State(id) == models.StateLoading {
			name := ""
			if e, err := m.reg.Get(id); err == nil {
				name = e.Name
			}
			indicator := NewLoadingIndicator(m.spinner, "Loading "+name)
			return LoadingOverlay(m.editorWidth, m.bodyHeight, indicator)
		}
		hint := lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			Render("enter: open the selected file")
		return box.Render(hint)
	}

	return box.Render(m.renderTabs() + "\n" + tab.area.View())
}

func (m *model) renderTabs() string {
	activeStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("63"))
	inactiveStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("250"))

	parts := make([]string, len(m.tabs))
	for i, t := range m.tabs {
		label := " " + t.title
		if t.dirty {
			label += "*"
		}
		label += " "
		if i == m.active {
			parts[i] = activeStyle.Render(label)
		} else {
			parts[i] = inactiveStyle.Render(label)
		}
	}
	return strings.Join(parts, "│")
}

func (m *model) renderLogTitle() string {
	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("229"))
	return style.Render("Log") + " " + strings.Repeat("─", max(0, m.width-4))
}

func (m *model) renderFooter() string {
	if m.focus == promptFocus {
		return m.prompt.View()
	}

	var info string
	if m.focus == editorFocus {
		info = helpLine(keys.Save, keys.CloseTab, keys.NextTab, keys.Back, keys.ClearLog, keys.ForceQ)
	} else {
		info = helpLine(keys.Up, keys.Down, keys.Open, keys.Focus, keys.AddFiles, keys.ClearLog, keys.Quit)
	}

	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	return style.Render(info)
}

// truncate cuts s to maxLen runes.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen || maxLen < 4 {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

// ShowTUI runs the editor until the user quits or ctx is cancelled.
func ShowTUI(ctx context.Context, opts Options) error {
	var p *tea.Program
	post := func(fn func()) { p.Send(callbackMsg(fn)) }

	m := newModel(ctx, opts, post)
	p = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	// Appends also happen inside Update, where a blocking Send would
	// deadlock the event loop.
	opts.Log.OnChange(func() { go p.Send(logChangedMsg{}) })
	defer opts.Log.OnChange(nil)

	if len(opts.WatchDirs) > 0 {
		w, err := watch.New(opts.WatchDirs, post, func(path string) {
			m.addPaths([]string{path})
		}, m.logger)
		if err != nil {
			return err
		}
		defer w.Close()
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
