package watch

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/strrl/hkanno-tui/internal/registry"
)

// Scan lists the annotation files directly inside dir, sorted by name.
// Subdirectories are not descended into.
func Scan(fsys afero.Fs, dir string) ([]string, error) {
	infos, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	var out []string
	for _, fi := range infos {
		if fi.IsDir() || !registry.Accepts(fi.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, fi.Name()))
	}
	return out, nil
}

// Expand replaces every directory in args with the annotation files it
// contains. Other arguments are passed through unchanged, so the batch
// filter still sees them.
func Expand(fsys afero.Fs, args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		isDir, err := afero.IsDir(fsys, arg)
		if err != nil || !isDir {
			out = append(out, arg)
			continue
		}
		files, err := Scan(fsys, arg)
		if err != nil {
			return nil, err
		}
		out = append(out, files...)
	}
	return out, nil
}
