package viewsync

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/nalgeon/be"
	"github.com/spf13/afero"
	"github.com/strrl/hkanno-tui/internal/converter"
	"github.com/strrl/hkanno-tui/internal/registry"
	"github.com/strrl/hkanno-tui/internal/sessions"
	"github.com/strrl/hkanno-tui/pkg/models"
)

// recorder is a View that logs every call and echoes selection changes
// back into the controller the way a real widget would.
type recorder struct {
	ctrl  *Controller
	calls []string
	dirty map[models.EntryID]bool
}

func (r *recorder) SelectEntry(id models.EntryID) {
	r.calls = append(r.calls, fmt.Sprintf("select %d", id))
	r.ctrl.SelectEntry(id)
}

func (r *recorder) OpenEditor(eid models.EditorID, s *sessions.Session) {
	r.calls = append(r.calls, fmt.Sprintf("open %d %s", eid, s.Text()))
}

func (r *recorder) FocusEditor(eid models.EditorID) {
	r.calls = append(r.calls, fmt.Sprintf("focus %d", eid))
	_ = r.ctrl.SelectEditor(eid)
}

func (r *recorder) CloseEditor(eid models.EditorID) {
	r.calls = append(r.calls, fmt.Sprintf("close %d", eid))
}

func (r *recorder) SetDirty(id models.EntryID, eid models.EditorID, dirty bool) {
	r.calls = append(r.calls, fmt.Sprintf("dirty %d %d %t", id, eid, dirty))
	r.dirty[id] = dirty
}

func (r *recorder) reset() { r.calls = nil }

// syncConverter completes every dump immediately with the file name.
type syncConverter struct {
	dumps int
}

func (c *syncConverter) Dump(_ context.Context, source string, done converter.DoneFunc) {
	c.dumps++
	done("text of "+filepath.Base(source), nil)
}

func (c *syncConverter) Update(context.Context, string, string) error { return nil }

type fixture struct {
	reg  *registry.Registry
	conv *syncConverter
	mgr  *sessions.Manager
	view *recorder
	ctrl *Controller
}

func newFixture(t *testing.T, names ...string) (*fixture, []models.FileEntry) {
	t.Helper()
	fs := afero.NewMemMapFs()
	f := &fixture{reg: registry.New(), conv: &syncConverter{}}
	f.mgr = sessions.NewManager(sessions.Options{
		Converter: f.conv,
		Entries:   f.reg,
		Fs:        fs,
	})
	f.view = &recorder{dirty: make(map[models.EntryID]bool)}
	f.ctrl = New(f.mgr, f.view, nil)
	f.view.ctrl = f.ctrl
	f.mgr.OnDirtyChanged(f.ctrl.DirtyChanged)

	var entries []models.FileEntry
	for _, n := range names {
		path := filepath.Join(string(filepath.Separator), "mods", n)
		be.Err(t, afero.WriteFile(fs, path, []byte("hkx"), 0o644), nil)
		e, _, err := f.reg.Add(path)
		be.Err(t, err, nil)
		entries = append(entries, e)
	}
	return f, entries
}

func TestActivateOpensEditor(t *testing.T) {
	f, es := newFixture(t, "a.hkx")

	be.Err(t, f.ctrl.ActivateEntry(context.Background(), es[0].ID), nil)
	be.Equal(t, f.view.calls, []string{"open 1 text of a.hkx", "focus 1", "select 1"})
	be.Equal(t, f.ctrl.CurrentEditor(), models.EditorID(1))
	be.Equal(t, f.ctrl.CurrentEntry(), es[0].ID)

	eid, ok := f.ctrl.EditorFor(es[0].ID)
	be.True(t, ok)
	be.Equal(t, eid, models.EditorID(1))

	// Activating again only focuses.
	f.view.reset()
	be.Err(t, f.ctrl.ActivateEntry(context.Background(), es[0].ID), nil)
	be.Equal(t, f.view.calls, []string{"focus 1", "select 1"})
	be.Equal(t, f.conv.dumps, 1)
}

func TestSelectEntryNeverCreatesSession(t *testing.T) {
	f, es := newFixture(t, "a.hkx", "b.hkx")
	be.Err(t, f.ctrl.ActivateEntry(context.Background(), es[0].ID), nil)
	f.view.reset()

	f.ctrl.SelectEntry(es[1].ID)
	be.Equal(t, f.ctrl.CurrentEntry(), es[1].ID)
	be.Equal(t, len(f.view.calls), 0)
	_, ok := f.mgr.Session(es[1].ID)
	be.True(t, !ok)
	be.Equal(t, f.conv.dumps, 1)

	// Selecting an entry with an editor focuses it.
	f.ctrl.SelectEntry(es[0].ID)
	be.Equal(t, f.view.calls, []string{"focus 1", "select 1"})
	be.Equal(t, f.ctrl.CurrentEditor(), models.EditorID(1))
}

func TestSelectEditorMovesListSelection(t *testing.T) {
	f, es := newFixture(t, "a.hkx", "b.hkx")
	ctx := context.Background()
	be.Err(t, f.ctrl.ActivateEntry(ctx, es[0].ID), nil)
	be.Err(t, f.ctrl.ActivateEntry(ctx, es[1].ID), nil)
	f.view.reset()

	be.Err(t, f.ctrl.SelectEditor(1), nil)
	be.Equal(t, f.ctrl.CurrentEntry(), es[0].ID)
	be.Equal(t, f.ctrl.CurrentEditor(), models.EditorID(1))
	// The list echo does not bounce back into a focus call.
	be.Equal(t, f.view.calls, []string{"select 1"})
	be.Equal(t, f.mgr.Len(), 2)
}

func TestUnknownEditor(t *testing.T) {
	f, _ := newFixture(t)
	be.Err(t, f.ctrl.SelectEditor(7), ErrUnknownEditor)
	be.Err(t, f.ctrl.CloseEditor(7), ErrUnknownEditor)
	be.Err(t, f.ctrl.Edit(7, "x"), ErrUnknownEditor)
	_, err := f.ctrl.EntryFor(7)
	be.Err(t, err, ErrUnknownEditor)
}

func TestCloseEditorKeepsSession(t *testing.T) {
	f, es := newFixture(t, "a.hkx")
	ctx := context.Background()
	be.Err(t, f.ctrl.ActivateEntry(ctx, es[0].ID), nil)
	be.Err(t, f.ctrl.Edit(1, "changed"), nil)

	f.view.reset()
	be.Err(t, f.ctrl.CloseEditor(1), nil)
	be.Equal(t, f.view.calls, []string{"close 1"})
	be.Equal(t, f.ctrl.CurrentEditor(), models.EditorID(0))
	_, ok := f.ctrl.EditorFor(es[0].ID)
	be.True(t, !ok)
	be.Equal(t, f.mgr.State(es[0].ID), models.StateDirty)

	// Reopening shows the unsaved buffer and issues no new dump.
	f.view.reset()
	be.Err(t, f.ctrl.ActivateEntry(ctx, es[0].ID), nil)
	be.Equal(t, f.view.calls, []string{"open 2 changed", "focus 2", "select 1"})
	be.Equal(t, f.conv.dumps, 1)
}

func TestSaveCurrentAndDirtyMarkers(t *testing.T) {
	f, es := newFixture(t, "a.hkx")
	ctx := context.Background()

	saved, err := f.ctrl.SaveCurrent(ctx)
	be.Err(t, err, nil)
	be.True(t, !saved)

	be.Err(t, f.ctrl.ActivateEntry(ctx, es[0].ID), nil)
	f.view.reset()
	be.Err(t, f.ctrl.Edit(1, "changed"), nil)
	be.Equal(t, f.view.calls, []string{"dirty 1 1 true"})

	saved, err = f.ctrl.SaveCurrent(ctx)
	be.Err(t, err, nil)
	be.True(t, saved)
	be.Equal(t, f.view.calls, []string{"dirty 1 1 true", "dirty 1 1 false"})
	be.True(t, !f.view.dirty[es[0].ID])
}

func TestActivateMissingSourceOpensNothing(t *testing.T) {
	f, _ := newFixture(t)
	e, _, err := f.reg.Add(filepath.Join(string(filepath.Separator), "mods", "gone.hkx"))
	be.Err(t, err, nil)

	err = f.ctrl.ActivateEntry(context.Background(), e.ID)
	be.Err(t, err, sessions.ErrMissingSource)
	be.Equal(t, len(f.view.calls), 0)
	_, ok := f.ctrl.EditorFor(e.ID)
	be.True(t, !ok)
}
