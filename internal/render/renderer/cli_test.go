package renderer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mermaidrender/internal/pkg/logger"
)

// writeScript installs a shell script standing in for the Mermaid CLI.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh available")
	}
	path := filepath.Join(t.TempDir(), "fake-mmdc")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

const writesOutput = `
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then out="$2"; fi
  shift
done
printf '\211PNG\r\n\032\nfake' > "$out"
`

func newInvocation(t *testing.T) Invocation {
	dir := t.TempDir()
	return Invocation{
		InputPath:       filepath.Join(dir, "input_x.mmd"),
		OutputPath:      filepath.Join(dir, "output_x.png"),
		ConfigPath:      filepath.Join(dir, "config_x.json"),
		BackgroundColor: "#ffffff",
		Width:           2000,
		Height:          1400,
		Scale:           3,
		LaunchArgs:      []string{"--no-sandbox"},
	}
}

func TestArgs(t *testing.T) {
	c := NewCLI([]string{"npx", "mmdc"}, 0, logger.Nop())
	inv := Invocation{
		InputPath:       "temp/input_a.mmd",
		OutputPath:      "temp/output_a.png",
		ConfigPath:      "temp/config_a.json",
		BackgroundColor: "transparent",
		Width:           800,
		Height:          600,
		Scale:           1.5,
		LaunchArgs:      []string{"--no-sandbox", "--disable-gpu"},
	}

	require.Equal(t, "npx", c.Executable())
	require.Equal(t, []string{
		"mmdc",
		"-i", "temp/input_a.mmd",
		"-o", "temp/output_a.png",
		"-c", "temp/config_a.json",
		"-b", "transparent",
		"-w", "800",
		"-H", "600",
		"-s", "1.5",
		"--puppeteerArgs", "--no-sandbox", "--disable-gpu",
	}, c.Args(inv))

	inv.LaunchArgs = nil
	require.NotContains(t, c.Args(inv), "--puppeteerArgs")
}

func TestArgsKeepsHostileValuesIntact(t *testing.T) {
	c := NewCLI([]string{"mmdc"}, 0, logger.Nop())
	inv := Invocation{BackgroundColor: "red; rm -rf /", Scale: 1}
	args := c.Args(inv)
	require.Contains(t, args, "red; rm -rf /")
}

func TestRenderSuccess(t *testing.T) {
	c := NewCLI([]string{writeScript(t, writesOutput)}, 10*time.Second, logger.Nop())
	inv := newInvocation(t)

	require.NoError(t, c.Render(context.Background(), inv))

	data, err := os.ReadFile(inv.OutputPath)
	require.NoError(t, err)
	require.Equal(t, "\x89PNG\r\n\x1a\nfake", string(data))
}

func TestRenderNonZeroExit(t *testing.T) {
	c := NewCLI([]string{writeScript(t, "echo 'Parse error on line 1' >&2\nexit 1\n")}, 10*time.Second, logger.Nop())

	err := c.Render(context.Background(), newInvocation(t))
	require.Error(t, err)
	require.NotContains(t, err.Error(), "Parse error")
}

func TestRenderNoOutput(t *testing.T) {
	c := NewCLI([]string{writeScript(t, "exit 0\n")}, 10*time.Second, logger.Nop())

	err := c.Render(context.Background(), newInvocation(t))
	require.ErrorIs(t, err, ErrNoOutput)
}

func TestRenderEmptyOutput(t *testing.T) {
	inv := newInvocation(t)
	c := NewCLI([]string{writeScript(t, ": > '"+inv.OutputPath+"'\n")}, 10*time.Second, logger.Nop())

	err := c.Render(context.Background(), inv)
	require.ErrorIs(t, err, ErrNoOutput)
}

func TestRenderTimeout(t *testing.T) {
	c := NewCLI([]string{writeScript(t, "exec sleep 10\n")}, 100*time.Millisecond, logger.Nop())

	start := time.Now()
	err := c.Render(context.Background(), newInvocation(t))
	require.Error(t, err)
	require.Contains(t, err.Error(), "timed out")
	require.Less(t, time.Since(start), 8*time.Second)
}

func TestRenderMissingExecutable(t *testing.T) {
	c := NewCLI([]string{filepath.Join(t.TempDir(), "does-not-exist")}, time.Second, logger.Nop())
	require.Error(t, c.Render(context.Background(), newInvocation(t)))
}

func TestRenderEmptyCommand(t *testing.T) {
	c := NewCLI(nil, time.Second, logger.Nop())
	require.Equal(t, "", c.Executable())
	require.Error(t, c.Render(context.Background(), newInvocation(t)))
}
