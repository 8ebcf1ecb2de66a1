// Package viewsync keeps the file list and the editor tabs pointing at the
// same entry. It owns the editor ids and the entry/editor side table; the
// views only render what the controller tells them.
package viewsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/strrl/hkanno-tui/internal/sessions"
	"github.com/strrl/hkanno-tui/pkg/models"
)

var ErrUnknownEditor = errors.New("unknown editor")

// View is the presentation side. Calls arrive on the control thread.
type View interface {
	// SelectEntry moves the file list selection.
	SelectEntry(id models.EntryID)
	// OpenEditor creates a tab showing s.
	OpenEditor(eid models.EditorID, s *sessions.Session)
	// FocusEditor makes eid the visible tab.
	FocusEditor(eid models.EditorID)
	// CloseEditor removes the tab.
	CloseEditor(eid models.EditorID)
	// SetDirty updates the markers of an entry and of its editor, if one is
	// open (eid is zero otherwise).
	SetDirty(id models.EntryID, eid models.EditorID, dirty bool)
}

// Sessions is the part of sessions.Manager the controller drives.
type Sessions interface {
	Activate(ctx context.Context, id models.EntryID, onReady sessions.ReadyFunc) (*sessions.Session, error)
	Session(id models.EntryID) (*sessions.Session, bool)
	Edit(id models.EntryID, text string) error
	Save(ctx context.Context, id models.EntryID) (bool, error)
}

// Controller routes selection between the list and the editors.
type Controller struct {
	sessions Sessions
	view     View
	logger   *slog.Logger

	editorOf map[models.EntryID]models.EditorID
	entryOf  map[models.EditorID]models.EntryID
	lastID   models.EditorID

	currentEntry  models.EntryID
	currentEditor models.EditorID

	// set while the controller pushes selection into the views, so that
	// the views' own change notifications are not fed back in
	syncing bool
}

// New creates a Controller. logger may be nil.
func New(s Sessions, view View, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Controller{
		sessions: s,
		view:     view,
		logger:   logger,
		editorOf: make(map[models.EntryID]models.EditorID),
		entryOf:  make(map[models.EditorID]models.EntryID),
	}
}

// CurrentEntry returns the selected entry, zero if none.
func (c *Controller) CurrentEntry() models.EntryID { return c.currentEntry }

// CurrentEditor returns the focused editor, zero if none.
func (c *Controller) CurrentEditor() models.EditorID { return c.currentEditor }

// EditorFor returns the open editor of an entry.
func (c *Controller) EditorFor(id models.EntryID) (models.EditorID, bool) {
	eid, ok := c.editorOf[id]
	return eid, ok
}

// EntryFor returns the entry behind an editor.
func (c *Controller) EntryFor(eid models.EditorID) (models.EntryID, error) {
	id, ok := c.entryOf[eid]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownEditor, eid)
	}
	return id, nil
}

// ActivateEntry opens id in an editor. If the session is already live its
// editor is focused, or reopened if it was closed. Otherwise the session is
// loaded and the editor appears once the load completes.
func (c *Controller) ActivateEntry(ctx context.Context, id models.EntryID) error {
	c.currentEntry = id
	if eid, ok := c.editorOf[id]; ok {
		c.focus(eid)
		return nil
	}

	s, err := c.sessions.Activate(ctx, id, func(s *sessions.Session, err error) {
		if err != nil {
			return
		}
		c.openEditor(s)
	})
	if err != nil {
		return err
	}
	// A synchronous load has already opened the editor from the callback.
	if _, open := c.editorOf[id]; !open && s.Ready() {
		c.openEditor(s)
	}
	return nil
}

// SelectEntry follows a selection change in the file list. The entry's
// editor is focused when one is open; no session is ever created here.
func (c *Controller) SelectEntry(id models.EntryID) {
	if c.syncing {
		return
	}
	c.currentEntry = id
	if eid, ok := c.editorOf[id]; ok {
		c.focus(eid)
	}
}

// SelectEditor follows a tab switch and moves the list selection to the
// editor's entry.
func (c *Controller) SelectEditor(eid models.EditorID) error {
	if c.syncing {
		return nil
	}
	id, err := c.EntryFor(eid)
	if err != nil {
		c.logger.Warn("select editor", "error", err)
		return err
	}
	c.currentEditor = eid
	c.currentEntry = id

	c.syncing = true
	defer func() { c.syncing = false }()
	c.view.SelectEntry(id)
	return nil
}

// CloseEditor drops an editor. The session stays as it is; activating the
// entry again reopens an editor on it.
func (c *Controller) CloseEditor(eid models.EditorID) error {
	id, err := c.EntryFor(eid)
	if err != nil {
		c.logger.Warn("close editor", "error", err)
		return err
	}
	delete(c.entryOf, eid)
	delete(c.editorOf, id)
	if c.currentEditor == eid {
		c.currentEditor = 0
	}

	c.syncing = true
	defer func() { c.syncing = false }()
	c.view.CloseEditor(eid)
	return nil
}

// Edit forwards new editor contents to the session behind eid.
func (c *Controller) Edit(eid models.EditorID, text string) error {
	id, err := c.EntryFor(eid)
	if err != nil {
		c.logger.Warn("edit", "error", err)
		return err
	}
	return c.sessions.Edit(id, text)
}

// SaveCurrent saves the session behind the focused editor.
func (c *Controller) SaveCurrent(ctx context.Context) (bool, error) {
	if c.currentEditor == 0 {
		return false, nil
	}
	id, err := c.EntryFor(c.currentEditor)
	if err != nil {
		return false, err
	}
	return c.sessions.Save(ctx, id)
}

// DirtyChanged is the sessions.Manager dirty observer.
func (c *Controller) DirtyChanged(id models.EntryID, dirty bool) {
	c.view.SetDirty(id, c.editorOf[id], dirty)
}

func (c *Controller) openEditor(s *sessions.Session) {
	if eid, ok := c.editorOf[s.Entry()]; ok {
		c.focus(eid)
		return
	}
	c.lastID++
	eid := c.lastID
	c.editorOf[s.Entry()] = eid
	c.entryOf[eid] = s.Entry()
	c.logger.Debug("editor opened", "editor", eid, "entry", s.Entry())

	c.syncing = true
	c.view.OpenEditor(eid, s)
	c.syncing = false
	c.focus(eid)
}

func (c *Controller) focus(eid models.EditorID) {
	id := c.entryOf[eid]
	c.currentEditor = eid
	c.currentEntry = id

	c.syncing = true
	defer func() { c.syncing = false }()
	c.view.FocusEditor(eid)
	c.view.SelectEntry(id)
}
