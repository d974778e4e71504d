package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/uwb-release/internal/config"
	"github.com/oshokin/uwb-release/internal/logger"
)

// MarkerFilename marks that a pipeline owns the source tree right now.
const MarkerFilename = ".uwb-release.pid"

// ErrPipelineRunning is returned when a live pipeline already owns the source tree.
var ErrPipelineRunning = errors.New("another release pipeline is running")

// runMarker is the ownership file of the current run.
type runMarker struct {
	path string
}

// acquireMarker claims dir for this process. A marker left by a process that
// is gone, or whose PID now belongs to another program, is replaced.
func acquireMarker(ctx context.Context, dir string) (*runMarker, error) {
	path := filepath.Join(dir, MarkerFilename)

	contents, err := os.ReadFile(filepath.Clean(path))

	switch {
	case err == nil:
		if owner, alive := liveOwner(contents); alive {
			return nil, fmt.Errorf("%w: pid %d (%s) owns %s",
				ErrPipelineRunning, owner.Pid(), owner.Executable(), dir)
		}

		logger.InfoKV(ctx, "Replacing stale run marker", "path", path)
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read run marker: %w", err)
	}

	data := fmt.Sprintf("%d\n%s\n", os.Getpid(), selfExecutable())

	if err = os.WriteFile(path, []byte(data), config.DefaultFilePermissions); err != nil {
		return nil, fmt.Errorf("write run marker: %w", err)
	}

	return &runMarker{path: path}, nil
}

// release removes the marker.
func (m *runMarker) release(ctx context.Context) {
	if err := os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.WarnKV(ctx, "Unable to remove run marker", "path", m.path, "error", err)
	}
}

// liveOwner returns the process recorded in a marker if it is still running
// the same executable.
func liveOwner(contents []byte) (ps.Process, bool) {
	pidLine, executable, found := strings.Cut(strings.TrimSpace(string(contents)), "\n")
	if !found {
		return nil, false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(pidLine))
	if err != nil || pid == os.Getpid() {
		return nil, false
	}

	process, err := ps.FindProcess(pid)
	if err != nil || process == nil {
		return nil, false
	}

	return process, process.Executable() == strings.TrimSpace(executable)
}

// selfExecutable is the executable name as the process table reports it.
func selfExecutable() string {
	if process, err := ps.FindProcess(os.Getpid()); err == nil && process != nil {
		return process.Executable()
	}

	return filepath.Base(os.Args[0])
}
