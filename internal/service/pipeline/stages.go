package pipeline

import (
	"context"

	"github.com/oshokin/uwb-release/internal/config"
	"github.com/oshokin/uwb-release/internal/service/builder"
	"github.com/oshokin/uwb-release/internal/service/bundler"
	"github.com/oshokin/uwb-release/internal/toolchain"
)

// Fetcher downloads and prepares CEF archives.
type Fetcher interface {
	Fetch(ctx context.Context, platformToken string) (string, error)
	StripBinaries(ctx context.Context, extractedDir string) error
}

// Builder publishes a project with the external compiler.
type Builder interface {
	Build(ctx context.Context, req builder.Request) error
}

// Assembler builds a macOS application bundle.
type Assembler interface {
	Assemble(ctx context.Context, req bundler.Request) (*bundler.Result, error)
}

// Stages bundles the components the pipeline drives.
type Stages struct {
	Config    *config.Config
	Fetcher   Fetcher
	Builder   Builder
	Assembler Assembler
	// Runner executes git for the submodule step.
	Runner toolchain.Runner
}
