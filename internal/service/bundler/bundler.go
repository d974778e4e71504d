package bundler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/uwb-release/internal/config"
	"github.com/oshokin/uwb-release/internal/domain/release"
	"github.com/oshokin/uwb-release/internal/fsutil"
	"github.com/oshokin/uwb-release/internal/logger"
)

// Request names the inputs and the destination of one assembly.
type Request struct {
	// BuildOutputDir holds the published executables, plists and icon; the bundle is staged here.
	BuildOutputDir string
	// FrameworkDir is the extracted CEF framework directory.
	FrameworkDir string
	// PackageDir receives the finished bundle, replacing any previous one.
	PackageDir string
	// Arch is only used for logging.
	Arch string
}

// Result describes an assembled bundle.
type Result struct {
	// Path is the bundle inside the package directory.
	Path string
	// Digest identifies the bundle contents; identical inputs give identical digests.
	Digest string
}

// Assembler builds macOS application bundles.
type Assembler struct {
	settings config.BundleSettings
}

var (
	errNotRegularFile = errors.New("expected a regular file")
	errNotDirectory   = errors.New("expected a directory")
)

// New creates an Assembler for the given bundle shape.
func New(settings config.BundleSettings) *Assembler {
	return &Assembler{settings: settings}
}

// Assemble builds the bundle and installs it into the package directory.
// Nothing is deleted when a source artifact is missing.
func (a *Assembler) Assemble(ctx context.Context, req Request) (*Result, error) {
	ctx = logger.WithKV(logger.WithName(ctx, "bundler"), "arch", req.Arch)

	root := Plan(a.settings, req.BuildOutputDir, req.FrameworkDir)

	if err := preflight(root); err != nil {
		return nil, err
	}

	staging := filepath.Join(req.BuildOutputDir, root.Name)

	logger.InfoKV(ctx, "Assembling bundle", "staging", staging)

	if err := os.RemoveAll(staging); err != nil {
		return nil, fmt.Errorf("clear staging bundle: %w", err)
	}

	if err := materialize(root, req.BuildOutputDir); err != nil {
		return nil, fmt.Errorf("stage bundle: %w", err)
	}

	if err := os.MkdirAll(req.PackageDir, config.DefaultDirPermissions); err != nil {
		return nil, fmt.Errorf("create package directory: %w", err)
	}

	destination := filepath.Join(req.PackageDir, root.Name)

	if err := fsutil.ReplaceTree(staging, destination); err != nil {
		return nil, fmt.Errorf("install bundle: %w", err)
	}

	digest, err := fsutil.DigestTree(destination)
	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Bundle installed", "path", destination, "digest", digest)

	return &Result{Path: destination, Digest: digest}, nil
}

// preflight checks every source of the plan and reports all that are missing.
func preflight(root *Node) error {
	var missing []string

	root.Walk(func(_ string, node *Node) {
		if node.Kind == KindDir {
			return
		}

		info, err := os.Stat(node.Source)

		switch {
		case err != nil:
			missing = append(missing, node.Source)
		case node.Kind == KindFile && !info.Mode().IsRegular():
			missing = append(missing, fmt.Sprintf("%s (%v)", node.Source, errNotRegularFile))
		case node.Kind == KindTree && !info.IsDir():
			missing = append(missing, fmt.Sprintf("%s (%v)", node.Source, errNotDirectory))
		}
	})

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", release.ErrMissingArtifact, strings.Join(missing, ", "))
	}

	return nil
}

// materialize creates node under parent.
func materialize(node *Node, parent string) error {
	target := filepath.Join(parent, node.Name)

	switch node.Kind {
	case KindDir:
		if err := os.MkdirAll(target, config.DefaultDirPermissions); err != nil {
			return err
		}

		for _, child := range node.Children {
			if err := materialize(child, target); err != nil {
				return err
			}
		}

		return nil
	case KindFile:
		return fsutil.CopyFile(node.Source, target)
	case KindTree:
		return fsutil.CopyTree(node.Source, target)
	default:
		return fmt.Errorf("unknown node kind %v", node.Kind)
	}
}
