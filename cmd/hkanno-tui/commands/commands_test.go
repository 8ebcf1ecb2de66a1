package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"github.com/strrl/hkanno-tui/internal/converter"
)

// installTool writes a shell script standing in for hkanno64 and returns
// its directory.
func installTool(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script converter needs a unix shell")
	}
	dir := t.TempDir()
	script := `#!/bin/sh
case "$1" in
dump)   cat "$4" > "$3"; echo "dumped $4" ;;
update) if grep -q BAD "$3"; then echo "bad annotation" >&2; exit 0; fi; cat "$3" > "$4" ;;
esac
`
	be.Err(t, os.WriteFile(filepath.Join(dir, "hkanno64"), []byte(script), 0o755), nil)
	return dir
}

func run(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err = root.Execute()
	return out.String(), errOut.String(), err
}

func TestDumpCommand(t *testing.T) {
	tools := installTool(t)
	src := filepath.Join(t.TempDir(), "attack.hkx")
	be.Err(t, os.WriteFile(src, []byte("0.5 Hit"), 0o644), nil)

	out, errOut, err := run(t, "", "--tool-dir", tools, "dump", src)
	be.Err(t, err, nil)
	be.Equal(t, out, "0.5 Hit")
	be.True(t, strings.Contains(errOut, "dumped "+src))

	dest := filepath.Join(t.TempDir(), "attack.txt")
	_, _, err = run(t, "", "--tool-dir", tools, "dump", "-o", dest, src)
	be.Err(t, err, nil)
	b, err := os.ReadFile(dest)
	be.Err(t, err, nil)
	be.Equal(t, string(b), "0.5 Hit")
}

func TestDumpMissingSource(t *testing.T) {
	tools := installTool(t)
	_, _, err := run(t, "", "--tool-dir", tools, "dump", filepath.Join(tools, "missing.hkx"))
	be.Err(t, err, os.ErrNotExist)
}

func TestUpdateCommand(t *testing.T) {
	tools := installTool(t)
	target := filepath.Join(t.TempDir(), "attack.hkx")
	be.Err(t, os.WriteFile(target, []byte("old"), 0o644), nil)

	out, _, err := run(t, "1.0 Land", "--tool-dir", tools, "update", target)
	be.Err(t, err, nil)
	be.True(t, strings.Contains(out, "saved"))
	b, _ := os.ReadFile(target)
	be.Equal(t, string(b), "1.0 Land")

	textFile := filepath.Join(t.TempDir(), "anno.txt")
	be.Err(t, os.WriteFile(textFile, []byte("BAD"), 0o644), nil)
	_, errOut, err := run(t, "", "--tool-dir", tools, "update", target, textFile)
	be.Err(t, err, converter.ErrToolReported)
	be.True(t, strings.Contains(errOut, "bad annotation"))
	b, _ = os.ReadFile(target)
	be.Equal(t, string(b), "1.0 Land")
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.json")
	be.Err(t, os.WriteFile(cfgPath, []byte(`{"converter":{"tool_dir":"/from/file","executable":"hk"}}`), 0o644), nil)

	root := NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--config", cfgPath, "--tool", "other", "dump", filepath.Join(t.TempDir(), "none.hkx")})
	cmd, err := root.ExecuteC()
	be.Err(t, err, os.ErrNotExist)

	cfg, err := loadConfig(cmd)
	be.Err(t, err, nil)
	be.Equal(t, cfg.Converter.ToolDir, "/from/file")
	be.Equal(t, cfg.Converter.Executable, "other")
}

func TestBadConfigFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.json")
	be.Err(t, os.WriteFile(cfgPath, []byte(`{"log":{"capacity":0}}`), 0o644), nil)

	_, _, err := run(t, "", "--config", cfgPath, "dump", "x.hkx")
	be.Err(t, err)
}
