// Package tempfile hands out staging file names for converter requests.
//
// The only guarantee is that two calls to Path never return the same name.
// Whoever asked for a path deletes it with Release on every exit path.
package tempfile

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// Manager creates staging names under a fixed directory
type Manager struct {
	fs  afero.Fs
	dir string
}

// New returns a Manager rooted at dir. Production code passes afero.NewOsFs
// because the converter process reads and writes the same files.
func New(fsys afero.Fs, dir string) *Manager {
	return &Manager{fs: fsys, dir: dir}
}

// Dir returns the staging directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Path returns a fresh staging path. Nothing is created on disk.
func (m *Manager) Path() string {
	return filepath.Join(m.dir, uuid.NewString())
}

// Write stores data at path, replacing any previous content.
func (m *Manager) Write(path string, data []byte) error {
	if err := afero.WriteFile(m.fs, path, data, 0o644); err != nil {
		return fmt.Errorf("write staging file %s: %w", path, err)
	}
	return nil
}

// Read returns the content of a staging file.
func (m *Manager) Read(path string) ([]byte, error) {
	b, err := afero.ReadFile(m.fs, path)
	if err != nil {
		return nil, fmt.Errorf("read staging file %s: %w", path, err)
	}
	return b, nil
}

// Release deletes a staging file. A file that was never created is fine.
func (m *Manager) Release(path string) error {
	if err := m.fs.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove staging file %s: %w", path, err)
	}
	return nil
}

// Exists reports whether path is present on the staging filesystem.
func (m *Manager) Exists(path string) bool {
	ok, err := afero.Exists(m.fs, path)
	return err == nil && ok
}
