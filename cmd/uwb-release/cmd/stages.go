package cmd

import (
	"github.com/oshokin/uwb-release/internal/config"
	"github.com/oshokin/uwb-release/internal/domain/release"
	"github.com/oshokin/uwb-release/internal/service/builder"
	"github.com/oshokin/uwb-release/internal/service/bundler"
	"github.com/oshokin/uwb-release/internal/service/fetcher"
	"github.com/oshokin/uwb-release/internal/service/pipeline"
	"github.com/oshokin/uwb-release/internal/toolchain"
)

// newStages wires the production components.
func newStages(cfg *config.Config) pipeline.Stages {
	runner := toolchain.NewExecRunner()

	return pipeline.Stages{
		Config:    cfg,
		Fetcher:   fetcher.New(cfg, fetcher.WithRunner(runner)),
		Builder:   builder.New(runner, cfg.Compiler),
		Assembler: bundler.New(cfg.Bundle),
		Runner:    runner,
	}
}

// targetsFromArgs resolves platform target identifiers given on the command line.
func targetsFromArgs(args []string) ([]release.PlatformTarget, error) {
	targets := make([]release.PlatformTarget, 0, len(args))

	for _, id := range args {
		target, err := release.TargetByID(id)
		if err != nil {
			return nil, err
		}

		targets = append(targets, target)
	}

	return targets, nil
}

// targetIDs lists every known target identifier for help texts and completion.
func targetIDs() []string {
	all := release.Targets()
	ids := make([]string, 0, len(all))

	for _, target := range all {
		ids = append(ids, target.ID)
	}

	return ids
}
