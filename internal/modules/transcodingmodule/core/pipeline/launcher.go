package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/streamin/internal/modules/transcodingmodule/core/stage"
	"github.com/mantonx/streamin/internal/modules/transcodingmodule/types"
)

// Process is a running stage program.
type Process interface {
	// Stdout and Stderr must be read while the process runs. Wait may be
	// called concurrently with those reads; once it returns, both streams
	// reach EOF.
	Stdout() io.Reader
	Stderr() io.Reader
	Wait() error
	Pid() int
}

// Launcher spawns the process for an invocation. Cancelling ctx must
// terminate the process.
type Launcher interface {
	Launch(ctx context.Context, inv *stage.Invocation) (Process, error)
}

var defaultTools = types.DefaultConfig().Tools

// WaitDelay bounds how long Wait waits for output pipes held open by
// descendants after the stage process has exited or been killed.
const WaitDelay = 5 * time.Second

// ExecLauncher runs invocations with os/exec.
type ExecLauncher struct {
	logger hclog.Logger
	paths  map[string]string
}

// NewExecLauncher resolves each tool from the configured paths. The
// FFMPEG_PATH, MP4FRAGMENT_PATH and MP4DASH_PATH environment variables take
// precedence.
func NewExecLauncher(tools types.ToolPaths, logger hclog.Logger) *ExecLauncher {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	paths := map[string]string{
		stage.ToolFFmpeg:      tools.FFmpeg,
		stage.ToolMP4Fragment: tools.MP4Fragment,
		stage.ToolMP4Dash:     tools.MP4Dash,
	}
	for tool := range paths {
		env := strings.ToUpper(tool) + "_PATH"
		if custom := os.Getenv(env); custom != "" {
			paths[tool] = custom
		}
		if paths[tool] == "" {
			paths[tool] = tool
		}
	}

	return &ExecLauncher{
		logger: logger.Named("launcher"),
		paths:  paths,
	}
}

// Path returns the executable used for a tool name.
func (l *ExecLauncher) Path(tool string) string {
	if path, ok := l.paths[tool]; ok {
		return path
	}
	return tool
}

// Launch starts the invocation with stdin bound to the null device and
// stdout and stderr piped. The process leads its own process group, and
// cancelling ctx kills the whole group.
func (l *ExecLauncher) Launch(ctx context.Context, inv *stage.Invocation) (Process, error) {
	cmd := exec.CommandContext(ctx, l.Path(inv.Binary), inv.Args...)
	setProcessGroup(cmd)
	cmd.WaitDelay = WaitDelay

	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		stdoutW.Close()
		stderrW.Close()
		return nil, fmt.Errorf("start %s: %w", inv.Binary, err)
	}

	l.logger.Debug("process started", "binary", cmd.Path, "pid", cmd.Process.Pid)

	return &execProcess{
		cmd:     cmd,
		stdout:  stdoutR,
		stderr:  stderrR,
		writers: []*io.PipeWriter{stdoutW, stderrW},
	}, nil
}

type execProcess struct {
	cmd     *exec.Cmd
	stdout  io.Reader
	stderr  io.Reader
	writers []*io.PipeWriter
}

func (p *execProcess) Stdout() io.Reader { return p.stdout }
func (p *execProcess) Stderr() io.Reader { return p.stderr }
func (p *execProcess) Pid() int          { return p.cmd.Process.Pid }

// Wait reaps the process, then ends both output streams.
func (p *execProcess) Wait() error {
	err := p.cmd.Wait()
	for _, w := range p.writers {
		w.Close()
	}
	return err
}

// exitCode extracts the exit status from a Wait error, or -1.
func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
