package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/uwb-release/internal/fsutil"
	"github.com/oshokin/uwb-release/internal/logger"
	"github.com/oshokin/uwb-release/internal/service/builder"
	"github.com/oshokin/uwb-release/internal/toolchain"
)

var errAlreadyStarted = errors.New("pipeline has already been started")

// Orchestrator drives one pipeline run.
type Orchestrator struct {
	// stages are the components invoked by the run.
	stages Stages
	// platform is resolved once before the run starts.
	platform Platform
	// state is the last reached state.
	state State
	// observe is called on every state transition.
	observe func(from, to State)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithObserver registers a callback invoked on every state transition.
func WithObserver(observe func(from, to State)) Option {
	return func(o *Orchestrator) {
		o.observe = observe
	}
}

// New creates an orchestrator for the given platform.
func New(stages Stages, platform Platform, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		stages:   stages,
		platform: platform,
		state:    StateInit,
		observe:  func(State, State) {},
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// State returns the last state the run reached.
func (o *Orchestrator) State() State {
	return o.state
}

// Run executes the pipeline once. The first failing step aborts the run and
// leaves the orchestrator in the last state it reached.
func (o *Orchestrator) Run(ctx context.Context) error {
	if o.state != StateInit {
		return errAlreadyStarted
	}

	ctx = logger.WithKV(logger.WithName(ctx, "pipeline"), "platform", o.platform.Name())

	marker, err := acquireMarker(ctx, o.stages.Config.SourceRoot)
	if err != nil {
		return err
	}

	defer marker.release(ctx)

	if err = o.ensureSubmodules(ctx); err != nil {
		return err
	}

	o.advance(ctx, StateSubmodulesChecked)

	if err = o.buildShared(ctx); err != nil {
		return err
	}

	o.advance(ctx, StateSharedBuilt)

	if len(o.platform.Targets()) == 0 {
		logger.Warn(ctx, "No platform targets for this host, skipping platform build")
	} else {
		if err = o.platform.Fetch(ctx); err != nil {
			return err
		}

		if err = o.platform.Build(ctx); err != nil {
			return err
		}
	}

	o.advance(ctx, StatePlatformBuilt)
	o.advance(ctx, StateDone)

	logger.Info(ctx, "Pipeline completed successfully")

	return nil
}

func (o *Orchestrator) advance(ctx context.Context, next State) {
	previous := o.state
	o.state = next

	logger.DebugKV(ctx, "State changed", "from", previous, "to", next)
	o.observe(previous, next)
}

// ensureSubmodules initializes git submodules when the third-party checkout is absent.
func (o *Orchestrator) ensureSubmodules(ctx context.Context) error {
	cfg := o.stages.Config
	checkout := cfg.Path(cfg.ThirdPartyCheckout)

	if fsutil.Exists(checkout) {
		return nil
	}

	logger.WarnKV(ctx, "Third-party checkout is missing, initializing submodules", "path", checkout)

	for _, args := range [][]string{{"submodule", "init"}, {"submodule", "update"}} {
		cmd := toolchain.Command{
			Name: cfg.GitCommand,
			Args: args,
			Dir:  cfg.SourceRoot,
		}

		if err := o.stages.Runner.Run(ctx, cmd); err != nil {
			return fmt.Errorf("git %s: %w", args[1], err)
		}
	}

	return nil
}

// buildShared publishes the project every platform depends on.
func (o *Orchestrator) buildShared(ctx context.Context) error {
	cfg := o.stages.Config

	err := o.stages.Builder.Build(ctx, builder.Request{
		Project:       cfg.Path(cfg.SharedProject),
		Configuration: builder.ReleaseConfiguration,
	})
	if err != nil {
		return fmt.Errorf("build shared project: %w", err)
	}

	return nil
}
