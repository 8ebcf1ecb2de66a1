package sessions

import (
	"github.com/strrl/hkanno-tui/pkg/models"
)

// Session is the editable text of one file entry. It is created by Manager
// and only changed through it; callers get read access.
type Session struct {
	entry     models.EntryID
	path      string
	text      string
	state     models.SessionState
	requestID string // outstanding conversion, empty when idle
}

// Entry returns the id of the file entry that owns the session.
func (s *Session) Entry() models.EntryID {
	return s.entry
}

// Path returns the .hkx file the session edits.
func (s *Session) Path() string {
	return s.path
}

// Text returns the current buffer.
func (s *Session) Text() string {
	return s.text
}

// State returns the lifecycle state.
func (s *Session) State() models.SessionState {
	return s.state
}

// Dirty reports whether the buffer changed since the last successful load or
// save. A session being saved is still dirty until the save succeeds.
func (s *Session) Dirty() bool {
	return s.state == models.StateDirty || s.state == models.StateSaving
}

// Ready reports whether the session has text to show.
func (s *Session) Ready() bool {
	switch s.state {
	case models.StateClean, models.StateDirty, models.StateSaving:
		return true
	}
	return false
}
