// Package registry keeps the list of annotation files the user is working
// with. Every path appears at most once; entries are never removed.
package registry

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/strrl/hkanno-tui/pkg/models"
)

// Extension is the only file type the list accepts.
const Extension = ".hkx"

var (
	// ErrRejected is returned by AcceptBatch when any item fails the filter.
	ErrRejected = errors.New("not a local .hkx file")

	ErrUnknownEntry = errors.New("unknown file entry")
)

// Registry maps canonical paths to file entries. It is owned by the control
// thread and is not safe for concurrent use.
type Registry struct {
	byPath  map[string]models.EntryID
	entries []models.FileEntry // insertion order, index = ID-1
	onAdded func(models.FileEntry)
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{byPath: make(map[string]models.EntryID)}
}

// OnAdded registers the file list view. fn runs once per newly created entry.
func (r *Registry) OnAdded(fn func(models.FileEntry)) {
	r.onAdded = fn
}

// Canonical returns the absolute, cleaned form of path used as identity.
func Canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return filepath.Clean(abs), nil
}

// Add registers path. Adding a path that is already known returns the
// existing entry and added=false; nothing is published in that case.
func (r *Registry) Add(path string) (entry models.FileEntry, added bool, err error) {
	canonical, err := Canonical(path)
	if err != nil {
		return models.FileEntry{}, false, err
	}

	if id, ok := r.byPath[canonical]; ok {
		return r.entries[id-1], false, nil
	}

	entry = models.FileEntry{
		ID:   models.EntryID(len(r.entries) + 1),
		Path: canonical,
		Name: filepath.Base(canonical),
	}
	r.entries = append(r.entries, entry)
	r.byPath[canonical] = entry.ID

	if r.onAdded != nil {
		r.onAdded(entry)
	}
	return entry, true, nil
}

// Get returns the entry with the given id.
func (r *Registry) Get(id models.EntryID) (models.FileEntry, error) {
	if id == 0 || int(id) > len(r.entries) {
		return models.FileEntry{}, fmt.Errorf("%w: %d", ErrUnknownEntry, id)
	}
	return r.entries[id-1], nil
}

// Lookup finds the entry for path, if any.
func (r *Registry) Lookup(path string) (models.FileEntry, bool) {
	canonical, err := Canonical(path)
	if err != nil {
		return models.FileEntry{}, false
	}
	id, ok := r.byPath[canonical]
	if !ok {
		return models.FileEntry{}, false
	}
	return r.entries[id-1], true
}

// Entries returns all entries in the order they were added.
func (r *Registry) Entries() []models.FileEntry {
	out := make([]models.FileEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Accepts reports whether item is a local file with the .hkx extension.
// Items may be plain paths or file:// URLs.
func Accepts(item string) bool {
	path, ok := localPath(item)
	if !ok {
		return false
	}
	return strings.EqualFold(filepath.Ext(path), Extension)
}

// AcceptBatch checks a whole batch. If any item fails, the batch is rejected
// as a unit and the local paths are not returned.
func AcceptBatch(items []string) ([]string, error) {
	paths := make([]string, 0, len(items))
	for _, item := range items {
		if !Accepts(item) {
			return nil, fmt.Errorf("%w: %s", ErrRejected, item)
		}
		path, _ := localPath(item)
		paths = append(paths, path)
	}
	return paths, nil
}

// AddBatch filters items with AcceptBatch and adds every accepted path.
func (r *Registry) AddBatch(items []string) ([]models.FileEntry, error) {
	paths, err := AcceptBatch(items)
	if err != nil {
		return nil, err
	}
	out := make([]models.FileEntry, 0, len(paths))
	for _, p := range paths {
		entry, _, err := r.Add(p)
		if err != nil {
			return out, err
		}
		out = append(out, entry)
	}
	return out, nil
}

func localPath(item string) (string, bool) {
	item = strings.TrimSpace(item)
	if item == "" {
		return "", false
	}
	if !strings.Contains(item, "://") {
		return item, true
	}
	u, err := url.Parse(item)
	if err != nil || u.Scheme != "file" || (u.Host != "" && u.Host != "localhost") {
		return "", false
	}
	return filepath.FromSlash(u.Path), true
}
