package toolchain

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"

	"github.com/oshokin/uwb-release/internal/domain/release"
	"github.com/oshokin/uwb-release/internal/logger"
)

// Command is one external tool invocation.
type Command struct {
	// Name is the executable to run.
	Name string
	// Args are passed to the executable as-is.
	Args []string
	// Dir is the working directory; empty means the current directory.
	Dir string
}

// Argv returns the full command line.
func (c Command) Argv() []string {
	return append([]string{c.Name}, c.Args...)
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.Join(c.Argv(), " ")
}

// Runner executes external commands synchronously.
//
//go:generate go run go.uber.org/mock/mockgen -source=runner.go -destination=mocks/mock_runner.go -package=mocks
type Runner interface {
	// Run blocks until the command exits. A non-zero exit is returned as *release.BuildError.
	Run(ctx context.Context, cmd Command) error
}

// ExecRunner implements Runner with os/exec and streams tool output into the logger.
type ExecRunner struct{}

// NewExecRunner creates an ExecRunner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes cmd and waits for it to finish.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) error {
	logger.DebugKV(ctx, "Running command", "command", cmd.String(), "dir", cmd.Dir)

	//nolint:gosec // Commands come from the pipeline settings.
	process := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	process.Dir = cmd.Dir

	stdout := &lineWriter{emit: func(line string) { logger.Info(ctx, line) }}
	stderr := &lineWriter{emit: func(line string) { logger.Warn(ctx, line) }}
	process.Stdout = stdout
	process.Stderr = stderr

	err := process.Run()

	stdout.Flush()
	stderr.Flush()

	if err == nil {
		return nil
	}

	exitCode := -1

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}

	return &release.BuildError{
		Command:  cmd.Argv(),
		ExitCode: exitCode,
		Err:      err,
	}
}

// lineWriter buffers partial writes and emits complete lines.
type lineWriter struct {
	mu      sync.Mutex
	pending bytes.Buffer
	emit    func(line string)
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending.Write(p)

	for {
		line, err := w.pending.ReadString('\n')
		if err != nil {
			// Incomplete line: keep it for the next write.
			w.pending.Reset()
			w.pending.WriteString(line)

			break
		}

		w.emit(strings.TrimRight(line, "\r\n"))
	}

	return len(p), nil
}

// Flush emits whatever is left without a trailing newline.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending.Len() > 0 {
		w.emit(strings.TrimRight(w.pending.String(), "\r\n"))
		w.pending.Reset()
	}
}
