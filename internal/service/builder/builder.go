package builder

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/uwb-release/internal/logger"
	"github.com/oshokin/uwb-release/internal/toolchain"
)

// ReleaseConfiguration is the compiler configuration used for distributable builds.
const ReleaseConfiguration = "Release"

var errProjectRequired = errors.New("project path must be provided")

// Request describes one compiler invocation.
type Request struct {
	// Project is the project file or directory to publish.
	Project string
	// RuntimeID is the target runtime identifier; empty builds a portable output.
	RuntimeID string
	// OutputDir receives the published binaries; empty keeps the compiler default.
	OutputDir string
	// Configuration is the build configuration, e.g. "Release"; empty keeps the compiler default.
	Configuration string
	// WorkDir is the working directory of the compiler process.
	WorkDir string
}

// Builder runs the compiler through a toolchain.Runner.
type Builder struct {
	runner   toolchain.Runner
	compiler string
}

// New creates a Builder invoking the given compiler executable.
func New(runner toolchain.Runner, compiler string) *Builder {
	return &Builder{
		runner:   runner,
		compiler: compiler,
	}
}

// Build publishes req.Project. It performs no retries: a failing compiler is
// reported as *release.BuildError carrying the exit status.
func (b *Builder) Build(ctx context.Context, req Request) error {
	if req.Project == "" {
		return errProjectRequired
	}

	cmd := toolchain.Command{
		Name: b.compiler,
		Args: publishArgs(req),
		Dir:  req.WorkDir,
	}

	logger.InfoKV(ctx, "Publishing project",
		"project", req.Project, "runtime", req.RuntimeID, "output", req.OutputDir)

	if err := b.runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("publish %s: %w", req.Project, err)
	}

	return nil
}

// publishArgs renders: publish <project> [-r=<rid>] [-p:PublishDir=<dir>] [-c=<cfg>] --nologo.
func publishArgs(req Request) []string {
	args := []string{"publish", req.Project}

	if req.RuntimeID != "" {
		args = append(args, "-r="+req.RuntimeID)
	}

	if req.OutputDir != "" {
		args = append(args, "-p:PublishDir="+req.OutputDir)
	}

	if req.Configuration != "" {
		args = append(args, "-c="+req.Configuration)
	}

	return append(args, "--nologo")
}
