package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Config holds everything the editor needs at startup
type Config struct {
	Converter Converter `json:"converter"`
	Log       Log       `json:"log"`
	Watch     Watch     `json:"watch"`
}

// Converter locates the external hkanno tool
type Converter struct {
	// Install directory of the tool. Also used as the working directory and
	// as the root for staging files.
	ToolDir string `json:"tool_dir"`

	// Executable name or path. Relative names are resolved against ToolDir.
	Executable string `json:"executable"`
}

// Log configures the operator log and the diagnostic logger
type Log struct {
	// Number of operator log entries kept in memory.
	Capacity int `json:"capacity"`

	// Diagnostic log file. Empty disables diagnostic logging.
	File  string `json:"file"`
	Debug bool   `json:"debug"`
}

// Watch lists folders whose new .hkx files are added to the file list
type Watch struct {
	Dirs []string `json:"dirs"`
}

const defaultToolName = "hkanno64"

// Default returns the configuration used when no file is given. The tool is
// expected in a "hkanno64" folder next to our own executable.
func Default() Config {
	return Config{
		Converter: Converter{
			ToolDir:    filepath.Join(executableDir(), defaultToolName),
			Executable: defaultExecutable(),
		},
		Log: Log{
			Capacity: 500,
		},
	}
}

func defaultExecutable() string {
	if runtime.GOOS == "windows" {
		return defaultToolName + ".exe"
	}
	return defaultToolName
}

func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// Validate checks the configuration for values that cannot work
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Converter.ToolDir) == "" {
		return errors.New("converter.tool_dir is required")
	}
	if strings.TrimSpace(c.Converter.Executable) == "" {
		return errors.New("converter.executable is required")
	}
	if c.Log.Capacity < 1 {
		return fmt.Errorf("log.capacity must be positive, got %d", c.Log.Capacity)
	}
	for _, dir := range c.Watch.Dirs {
		if strings.TrimSpace(dir) == "" {
			return errors.New("watch.dirs must not contain empty entries")
		}
	}
	return nil
}

// ExecutablePath returns the absolute path of the converter executable.
func (c Converter) ExecutablePath() string {
	if filepath.IsAbs(c.Executable) {
		return filepath.Clean(c.Executable)
	}
	return filepath.Join(c.ToolDir, c.Executable)
}

// Load reads a JSON config file on top of Default and validates the result.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	// Strip UTF-8 BOM if present (common when editing JSON on Windows).
	b = stripBOM(b)

	// Start from defaults so missing JSON fields remain initialized.
	cfg := Default()
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// stripBOM removes a UTF-8 byte order mark if present.
func stripBOM(b []byte) []byte {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return b[3:]
	}
	return b
}
