// Package renderer runs the external Mermaid CLI for one job.
package renderer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"mermaidrender/internal/pkg/logger"
)

// waitDelay bounds how long Wait blocks on the tool's output pipes after the
// process was killed.
const waitDelay = 5 * time.Second

// maxLoggedOutput caps how much of the tool's stdout/stderr is logged.
const maxLoggedOutput = 4 << 10

// ErrNoOutput is returned when the tool exits 0 without writing an image.
var ErrNoOutput = errors.New("renderer exited successfully but produced no output")

// Invocation holds the per-job arguments of one renderer run.
type Invocation struct {
	InputPath       string
	OutputPath      string
	ConfigPath      string
	BackgroundColor string
	Width           int
	Height          int
	Scale           float64
	LaunchArgs      []string
}

// Client renders one job. A nil error means the output path holds an image.
type Client interface {
	Render(ctx context.Context, inv Invocation) error
}

// CLI runs the Mermaid CLI as a subprocess with an explicit argument vector.
type CLI struct {
	command []string
	timeout time.Duration
	log     *logger.Logger
}

// NewCLI returns a client running command (executable followed by leading
// arguments, e.g. "npx mmdc"). A zero timeout disables the deadline.
func NewCLI(command []string, timeout time.Duration, log *logger.Logger) *CLI {
	return &CLI{
		command: append([]string(nil), command...),
		timeout: timeout,
		log:     log.WithComponent("renderer"),
	}
}

// Executable returns the program that is spawned.
func (c *CLI) Executable() string {
	if len(c.command) == 0 {
		return ""
	}
	return c.command[0]
}

// Args returns the full argument vector after the executable.
func (c *CLI) Args(inv Invocation) []string {
	args := append([]string(nil), c.command[1:]...)
	args = append(args,
		"-i", inv.InputPath,
		"-o", inv.OutputPath,
		"-c", inv.ConfigPath,
		"-b", inv.BackgroundColor,
		"-w", strconv.Itoa(inv.Width),
		"-H", strconv.Itoa(inv.Height),
		"-s", strconv.FormatFloat(inv.Scale, 'f', -1, 64),
	)
	if len(inv.LaunchArgs) > 0 {
		args = append(args, "--puppeteerArgs")
		args = append(args, inv.LaunchArgs...)
	}
	return args
}

// Render spawns the tool and waits for it. Tool output is logged, never
// returned.
func (c *CLI) Render(ctx context.Context, inv Invocation) error {
	if len(c.command) == 0 {
		return errors.New("renderer command is empty")
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	log := c.log.FromContext(ctx)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.command[0], c.Args(inv)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		log.Error("renderer failed",
			"executable", c.command[0],
			"exit_code", exitCode,
			"duration_ms", duration.Milliseconds(),
			"stderr", tail(stderr.Bytes()),
			"stdout", tail(stdout.Bytes()),
			"error", err.Error(),
		)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("renderer timed out after %s: %w", c.timeout, err)
		}
		return fmt.Errorf("running renderer: %w", err)
	}

	info, err := os.Stat(inv.OutputPath)
	if err != nil || info.Size() == 0 {
		log.Error("renderer produced no output",
			"output", inv.OutputPath,
			"stderr", tail(stderr.Bytes()),
		)
		return ErrNoOutput
	}

	log.Debug("renderer finished",
		"duration_ms", duration.Milliseconds(),
		"bytes", info.Size(),
	)
	return nil
}

func tail(b []byte) string {
	if len(b) > maxLoggedOutput {
		b = b[len(b)-maxLoggedOutput:]
	}
	return string(bytes.TrimSpace(b))
}
