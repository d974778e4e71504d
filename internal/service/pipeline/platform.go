package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/oshokin/uwb-release/internal/domain/release"
	"github.com/oshokin/uwb-release/internal/logger"
	"github.com/oshokin/uwb-release/internal/service/builder"
	"github.com/oshokin/uwb-release/internal/service/bundler"
)

// Platform is the host-specific part of a pipeline run.
type Platform interface {
	// Name identifies the platform in logs.
	Name() string
	// Targets lists the platform targets produced; empty for unsupported hosts.
	Targets() []release.PlatformTarget
	// Fetch downloads and extracts the CEF archives of every target.
	Fetch(ctx context.Context) error
	// Build compiles every target, assembling bundles where the target needs one.
	Build(ctx context.Context) error
}

// ForHost resolves the platform for a GOOS value. Hosts without targets get a
// platform that does nothing.
func ForHost(goos string, stages Stages) Platform {
	return ForTargets(goos, stages, release.TargetsForOS(goos)...)
}

// ForTargets returns a platform producing exactly the given targets.
func ForTargets(name string, stages Stages, targets ...release.PlatformTarget) Platform {
	return &targetPlatform{
		name:    name,
		targets: targets,
		stages:  stages,
	}
}

type targetPlatform struct {
	name    string
	targets []release.PlatformTarget
	stages  Stages
}

func (p *targetPlatform) Name() string {
	return p.name
}

func (p *targetPlatform) Targets() []release.PlatformTarget {
	return append([]release.PlatformTarget(nil), p.targets...)
}

// Fetch downloads every archive before any build starts.
func (p *targetPlatform) Fetch(ctx context.Context) error {
	for _, target := range p.targets {
		extracted, err := p.stages.Fetcher.Fetch(ctx, target.ArchiveToken)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", target.ID, err)
		}

		if !target.StripsSymbols() || p.stages.Config.StripCommand == "" {
			continue
		}

		if err = p.stages.Fetcher.StripBinaries(ctx, extracted); err != nil {
			return fmt.Errorf("strip %s: %w", target.ID, err)
		}
	}

	return nil
}

func (p *targetPlatform) Build(ctx context.Context) error {
	for _, target := range p.targets {
		ctx := logger.WithKV(ctx, "target", target.ID)

		var err error

		if target.Bundled() {
			err = p.buildBundle(ctx, target)
		} else {
			err = p.buildPayload(ctx, target)
		}

		if err != nil {
			return fmt.Errorf("build %s: %w", target.ID, err)
		}
	}

	return nil
}

// buildPayload publishes the engine straight into the package payload directory.
func (p *targetPlatform) buildPayload(ctx context.Context, target release.PlatformTarget) error {
	cfg := p.stages.Config

	return p.stages.Builder.Build(ctx, builder.Request{
		Project:   cfg.Path(cfg.EngineProject),
		RuntimeID: target.RuntimeID,
		OutputDir: cfg.PayloadPath(target.PackageDir),
	})
}

// buildBundle publishes the engine and its helper into a clean build
// directory and assembles the application bundle from it.
func (p *targetPlatform) buildBundle(ctx context.Context, target release.PlatformTarget) error {
	cfg := p.stages.Config
	output := cfg.MacBuildOutput(target.Arch)

	if err := os.RemoveAll(output); err != nil {
		return fmt.Errorf("clear build directory: %w", err)
	}

	for _, project := range []string{cfg.EngineProject, cfg.SubProcessProject} {
		err := p.stages.Builder.Build(ctx, builder.Request{
			Project:       cfg.Path(project),
			RuntimeID:     target.RuntimeID,
			OutputDir:     output,
			Configuration: builder.ReleaseConfiguration,
		})
		if err != nil {
			return err
		}
	}

	_, err := p.stages.Assembler.Assemble(ctx, bundler.Request{
		BuildOutputDir: output,
		FrameworkDir:   cfg.FrameworkPath(target.ArchiveToken),
		PackageDir:     cfg.PayloadPath(target.PackageDir),
		Arch:           target.Arch,
	})

	return err
}
