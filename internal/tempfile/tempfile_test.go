package tempfile

import (
	"path/filepath"
	"testing"

	"github.com/nalgeon/be"
	"github.com/spf13/afero"
)

func TestPathIsUniqueAndRooted(t *testing.T) {
	m := New(afero.NewMemMapFs(), filepath.FromSlash("/tools/hkanno64"))

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		p := m.Path()
		be.Equal(t, filepath.Dir(p), m.Dir())
		be.True(t, !seen[p])
		seen[p] = true
	}
}

func TestPathDoesNotCreateFile(t *testing.T) {
	m := New(afero.NewMemMapFs(), "/staging")
	p := m.Path()
	be.True(t, !m.Exists(p))
}

func TestWriteReadRelease(t *testing.T) {
	m := New(afero.NewMemMapFs(), "/staging")
	p := m.Path()

	be.Err(t, m.Write(p, []byte("anno text")), nil)
	be.True(t, m.Exists(p))

	b, err := m.Read(p)
	be.Err(t, err, nil)
	be.Equal(t, string(b), "anno text")

	be.Err(t, m.Release(p), nil)
	be.True(t, !m.Exists(p))
}

func TestReleaseMissingIsNotAnError(t *testing.T) {
	m := New(afero.NewMemMapFs(), "/staging")
	be.Err(t, m.Release(m.Path()), nil)
}

func TestReadMissingFails(t *testing.T) {
	m := New(afero.NewMemMapFs(), "/staging")
	_, err := m.Read(m.Path())
	be.Err(t, err)
}

func TestWriteOnReadOnlyFsFails(t *testing.T) {
	m := New(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/staging")
	be.Err(t, m.Write(m.Path(), []byte("x")))
}

func TestOsFs(t *testing.T) {
	m := New(afero.NewOsFs(), t.TempDir())
	p := m.Path()
	be.Err(t, m.Write(p, []byte("on disk")), nil)
	be.True(t, m.Exists(p))
	be.Err(t, m.Release(p), nil)
	be.True(t, !m.Exists(p))
}
