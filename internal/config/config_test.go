package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nalgeon/be"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	be.Err(t, cfg.Validate(), nil)
	be.Equal(t, filepath.Base(cfg.Converter.ToolDir), "hkanno64")
	be.Equal(t, cfg.Log.Capacity, 500)
}

func TestLoadKeepsDefaultsForMissingFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := "\xEF\xBB\xBF" + `{"converter": {"tool_dir": "/opt/hkanno"}}`
	be.Err(t, os.WriteFile(path, []byte(body), 0o644), nil)

	cfg, err := Load(path)
	be.Err(t, err, nil)
	be.Equal(t, cfg.Converter.ToolDir, "/opt/hkanno")
	be.Equal(t, cfg.Converter.Executable, Default().Converter.Executable)
	be.Equal(t, cfg.Log.Capacity, 500)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{"converter":`},
		{"empty tool dir", `{"converter": {"tool_dir": " "}}`},
		{"zero capacity", `{"log": {"capacity": 0}}`},
		{"empty watch dir", `{"watch": {"dirs": [""]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			be.Err(t, os.WriteFile(path, []byte(tt.body), 0o644), nil)

			_, err := Load(path)
			be.Err(t, err)
		})
	}
}

func TestExecutablePath(t *testing.T) {
	c := Converter{ToolDir: filepath.FromSlash("/tools/hkanno64"), Executable: "hkanno64"}
	be.Equal(t, c.ExecutablePath(), filepath.Join(filepath.FromSlash("/tools/hkanno64"), "hkanno64"))

	abs := filepath.Join(t.TempDir(), "bin", "tool")
	c.Executable = abs
	be.Equal(t, c.ExecutablePath(), abs)
}

func TestNewLoggerWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	logger, closeFn, err := NewLogger(Log{File: path, Debug: true})
	be.Err(t, err, nil)

	logger.Debug("hello", "k", "v")
	be.Err(t, closeFn(), nil)

	b, err := os.ReadFile(path)
	be.Err(t, err, nil)
	be.True(t, len(b) > 0)
}

func TestNewLoggerWithoutFile(t *testing.T) {
	logger, closeFn, err := NewLogger(Log{})
	be.Err(t, err, nil)
	logger.Info("dropped")
	be.Err(t, closeFn(), nil)
}
