// Package sessions owns the editor sessions: one per file entry at most,
// each moving through Closed → Loading → Clean ⇄ Dirty → Saving.
//
// Manager is driven from a single control thread. The only concurrency is the
// converter's dump goroutine, whose result is posted back to that thread
// through a Poster before any session state is touched.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/strrl/hkanno-tui/internal/converter"
	"github.com/strrl/hkanno-tui/pkg/models"
)

var (
	ErrMissingSource = errors.New("source file does not exist")
	ErrNotEditable   = errors.New("session is not editable")
)

// Converter is the part of converter.Converter the manager needs
type Converter interface {
	Dump(ctx context.Context, source string, done converter.DoneFunc)
	Update(ctx context.Context, target, text string) error
}

// EntryLookup resolves entry ids to file entries
type EntryLookup interface {
	Get(id models.EntryID) (models.FileEntry, error)
}

// LogSink receives operator-visible messages
type LogSink interface {
	Append(text string)
}

// Poster runs fn on the control thread. The TUI implements it with
// tea.Program.Send; tests may run fn inline.
type Poster func(fn func())

// ReadyFunc is the continuation of an activation. It runs once, on the
// control thread, with either the loaded session or the load error.
type ReadyFunc func(s *Session, err error)

// Options configures a Manager
type Options struct {
	Converter Converter
	Entries   EntryLookup
	Fs        afero.Fs // used to check that sources exist
	Log       LogSink
	Logger    *slog.Logger
	Post      Poster // defaults to calling fn inline
}

// Manager maps file entries to their sessions
type Manager struct {
	conv    Converter
	entries EntryLookup
	fs      afero.Fs
	log     LogSink
	logger  *slog.Logger
	post    Poster

	sessions map[models.EntryID]*Session
	onDirty  func(id models.EntryID, dirty bool)
}

// NewManager creates a Manager.
func NewManager(opts Options) *Manager {
	fsys := opts.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	post := opts.Post
	if post == nil {
		post = func(fn func()) { fn() }
	}
	return &Manager{
		conv:     opts.Converter,
		entries:  opts.Entries,
		fs:       fsys,
		log:      opts.Log,
		logger:   logger,
		post:     post,
		sessions: make(map[models.EntryID]*Session),
	}
}

// OnDirtyChanged registers the dirty marker observer. fn runs only when the
// marker actually flips: once when a clean session is first edited and once
// per successful save.
func (m *Manager) OnDirtyChanged(fn func(id models.EntryID, dirty bool)) {
	m.onDirty = fn
}

// Session returns the live session for id.
func (m *Manager) Session(id models.EntryID) (*Session, bool) {
	s, ok := m.sessions[id]
	return s, ok
}

// State returns the lifecycle state for id; StateClosed if no session exists.
func (m *Manager) State(id models.EntryID) models.SessionState {
	if s, ok := m.sessions[id]; ok {
		return s.state
	}
	return models.StateClosed
}

// Activate returns the session for id, loading it first if needed.
//
// A live session is returned as is and onReady is not called; a session that
// is still loading keeps its original continuation. For a closed entry the
// source must exist, then a dump is issued and the returned session is in
// StateLoading until onReady runs.
func (m *Manager) Activate(ctx context.Context, id models.EntryID, onReady ReadyFunc) (*Session, error) {
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}

	entry, err := m.entries.Get(id)
	if err != nil {
		m.report(err)
		return nil, err
	}

	if ok, err := afero.Exists(m.fs, entry.Path); err != nil || !ok {
		err = fmt.Errorf("%w: %s", ErrMissingSource, entry.Path)
		m.report(err)
		return nil, err
	}

	s := &Session{
		entry:     id,
		path:      entry.Path,
		state:     models.StateLoading,
		requestID: uuid.NewString(),
	}
	m.sessions[id] = s
	m.logger.Debug("dump issued", "entry", id, "path", s.path, "request", s.requestID)

	requestID := s.requestID
	m.conv.Dump(ctx, s.path, func(text string, err error) {
		m.post(func() {
			m.finishLoad(s, requestID, text, err, onReady)
		})
	})
	return s, nil
}

func (m *Manager) finishLoad(s *Session, requestID, text string, err error, onReady ReadyFunc) {
	if s.state != models.StateLoading || s.requestID != requestID {
		m.logger.Warn("stale dump result dropped", "entry", s.entry, "request", requestID)
		return
	}
	s.requestID = ""

	if err != nil {
		delete(m.sessions, s.entry)
		s.state = models.StateClosed
		m.report(fmt.Errorf("open %s: %w", s.path, err))
		if onReady != nil {
			onReady(nil, err)
		}
		return
	}

	s.text = text
	s.state = models.StateClean
	m.logger.Debug("session loaded", "entry", s.entry, "bytes", len(text))
	if onReady != nil {
		onReady(s, nil)
	}
}

// Edit replaces the buffer of id. The first change after a load or save
// marks the session dirty; further edits keep it dirty. Setting the text it
// already has is not a change.
func (m *Manager) Edit(id models.EntryID, text string) error {
	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("%w: entry %d has no session", ErrNotEditable, id)
	}

	switch s.state {
	case models.StateClean:
		if text == s.text {
			return nil
		}
		s.text = text
		s.state = models.StateDirty
		m.markDirty(id, true)
	case models.StateDirty:
		s.text = text
	default:
		return fmt.Errorf("%w: %s is %s", ErrNotEditable, s.path, s.state)
	}
	return nil
}

// Save writes a dirty session back through the converter and blocks until
// it finishes. It returns saved=false without error when there is nothing to
// save. On failure the session stays dirty and keeps its buffer.
func (m *Manager) Save(ctx context.Context, id models.EntryID) (saved bool, err error) {
	s, ok := m.sessions[id]
	if !ok || s.state != models.StateDirty {
		return false, nil
	}

	s.state = models.StateSaving
	s.requestID = uuid.NewString()
	m.logger.Debug("update issued", "entry", id, "path", s.path, "request", s.requestID)

	err = m.conv.Update(ctx, s.path, s.text)
	s.requestID = ""
	if err != nil {
		s.state = models.StateDirty
		err = fmt.Errorf("save %s: %w", s.path, err)
		m.report(err)
		return false, err
	}

	s.state = models.StateClean
	m.markDirty(id, false)
	m.notice(fmt.Sprintf("%s saved", s.path))
	return true, nil
}

// Len returns the number of live sessions, including ones still loading.
func (m *Manager) Len() int {
	return len(m.sessions)
}

func (m *Manager) markDirty(id models.EntryID, dirty bool) {
	if m.onDirty != nil {
		m.onDirty(id, dirty)
	}
}

func (m *Manager) report(err error) {
	m.logger.Warn("session error", "error", err)
	m.notice(err.Error())
}

func (m *Manager) notice(text string) {
	if m.log != nil {
		m.log.Append(text)
	}
}
