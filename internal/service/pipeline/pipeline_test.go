package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mitchellh/go-ps"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/oshokin/uwb-release/internal/config"
	"github.com/oshokin/uwb-release/internal/domain/release"
	"github.com/oshokin/uwb-release/internal/service/builder"
	"github.com/oshokin/uwb-release/internal/service/bundler"
	"github.com/oshokin/uwb-release/internal/toolchain"
	"github.com/oshokin/uwb-release/internal/toolchain/mocks"
)

// recorder captures the calls made by the pipeline in order.
type recorder struct {
	calls    []string
	builds   []builder.Request
	bundles  []bundler.Request
	failOn   string
	failWith error
}

func (r *recorder) record(call string) error {
	r.calls = append(r.calls, call)

	if call == r.failOn {
		return r.failWith
	}

	return nil
}

func (r *recorder) Fetch(_ context.Context, token string) (string, error) {
	return "/libs/" + token, r.record("fetch " + token)
}

func (r *recorder) StripBinaries(_ context.Context, dir string) error {
	return r.record("strip " + dir)
}

func (r *recorder) Build(_ context.Context, req builder.Request) error {
	r.builds = append(r.builds, req)

	return r.record(fmt.Sprintf("build %s %s", filepath.Base(req.Project), req.RuntimeID))
}

func (r *recorder) Assemble(_ context.Context, req bundler.Request) (*bundler.Result, error) {
	r.bundles = append(r.bundles, req)

	return &bundler.Result{}, r.record("assemble " + req.Arch)
}

func newStages(t *testing.T, rec *recorder, runner toolchain.Runner) Stages {
	t.Helper()

	cfg := config.Default()
	cfg.SourceRoot = t.TempDir()

	require.NoError(t, os.MkdirAll(cfg.Path(cfg.ThirdPartyCheckout), 0o755))

	return Stages{
		Config:    cfg,
		Fetcher:   rec,
		Builder:   rec,
		Assembler: rec,
		Runner:    runner,
	}
}

// TestForHost dispatches each host to its own sequence of steps.
func TestForHost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		goos string
		want []string
	}{
		{
			goos: "windows",
			want: []string{
				"build VoltstroStudios.UnityWebBrowser.Shared ",
				"fetch windows64",
				"build UnityWebBrowser.Engine.Cef.csproj win-x64",
			},
		},
		{
			goos: "linux",
			want: []string{
				"build VoltstroStudios.UnityWebBrowser.Shared ",
				"fetch linux64",
				"strip /libs/linux64",
				"build UnityWebBrowser.Engine.Cef.csproj linux-x64",
			},
		},
		{
			goos: "darwin",
			want: []string{
				"build VoltstroStudios.UnityWebBrowser.Shared ",
				"fetch macosx64",
				"fetch macosarm64",
				"build UnityWebBrowser.Engine.Cef.csproj osx-x64",
				"build SubProcess osx-x64",
				"assemble x64",
				"build UnityWebBrowser.Engine.Cef.csproj osx-arm64",
				"build SubProcess osx-arm64",
				"assemble arm64",
			},
		},
		{
			goos: "freebsd",
			want: []string{
				"build VoltstroStudios.UnityWebBrowser.Shared ",
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.goos, func(t *testing.T) {
			t.Parallel()

			rec := &recorder{}
			stages := newStages(t, rec, mocks.NewMockRunner(gomock.NewController(t)))

			var transitions []State

			orchestrator := New(stages, ForHost(tt.goos, stages), WithObserver(func(_, to State) {
				transitions = append(transitions, to)
			}))

			require.NoError(t, orchestrator.Run(context.Background()))
			require.Equal(t, tt.want, rec.calls)
			require.Equal(t, StateDone, orchestrator.State())
			require.Equal(t,
				[]State{StateSubmodulesChecked, StateSharedBuilt, StatePlatformBuilt, StateDone},
				transitions)
			require.NoFileExists(t, filepath.Join(stages.Config.SourceRoot, MarkerFilename))
		})
	}
}

// TestRun_PayloadAndBundlePaths publishes into the package payload directories.
func TestRun_PayloadAndBundlePaths(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	stages := newStages(t, rec, nil)
	cfg := stages.Config

	windows, err := release.TargetByID(release.TargetWindowsX64)
	require.NoError(t, err)

	mac, err := release.TargetByID(release.TargetMacOSARM64)
	require.NoError(t, err)

	stale := filepath.Join(cfg.MacBuildOutput("arm64"), "stale.dll")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o600))

	require.NoError(t, New(stages, ForTargets("mixed", stages, windows, mac)).Run(context.Background()))

	require.Equal(t, builder.Request{
		Project:       cfg.Path(cfg.SharedProject),
		Configuration: builder.ReleaseConfiguration,
	}, rec.builds[0])

	require.Equal(t, builder.Request{
		Project:   cfg.Path(cfg.EngineProject),
		RuntimeID: "win-x64",
		OutputDir: cfg.PayloadPath("UnityWebBrowser.Engine.Cef.Win-x64"),
	}, rec.builds[1])

	require.Equal(t, builder.Request{
		Project:       cfg.Path(cfg.SubProcessProject),
		RuntimeID:     "osx-arm64",
		OutputDir:     cfg.MacBuildOutput("arm64"),
		Configuration: builder.ReleaseConfiguration,
	}, rec.builds[3])

	require.Equal(t, []bundler.Request{{
		BuildOutputDir: cfg.MacBuildOutput("arm64"),
		FrameworkDir:   cfg.FrameworkPath("macosarm64"),
		PackageDir:     cfg.PayloadPath("UnityWebBrowser.Engine.Cef.MacOS-arm64"),
		Arch:           "arm64",
	}}, rec.bundles)

	require.NoFileExists(t, stale)
}

// TestRun_RelativeRootPublishesToAbsolutePaths hands the compiler absolute
// directories even when the source root is relative to the working directory.
func TestRun_RelativeRootPublishesToAbsolutePaths(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	stages := newStages(t, rec, nil)
	cfg := stages.Config
	root := cfg.SourceRoot

	wd, err := os.Getwd()
	require.NoError(t, err)

	cfg.SourceRoot, err = filepath.Rel(wd, root)
	require.NoError(t, err)
	require.False(t, filepath.IsAbs(cfg.SourceRoot))

	linux, err := release.TargetByID(release.TargetLinuxX64)
	require.NoError(t, err)

	mac, err := release.TargetByID(release.TargetMacOSX64)
	require.NoError(t, err)

	require.NoError(t, New(stages, ForTargets("mixed", stages, linux, mac)).Run(context.Background()))

	require.Len(t, rec.builds, 4)

	for _, req := range rec.builds {
		require.True(t, filepath.IsAbs(req.Project), req.Project)
		require.True(t, strings.HasPrefix(req.Project, root), req.Project)

		if req.RuntimeID == "" {
			continue
		}

		require.True(t, filepath.IsAbs(req.OutputDir), req.OutputDir)
		require.True(t, strings.HasPrefix(req.OutputDir, root), req.OutputDir)
	}

	require.Equal(t, filepath.Join(root, "Packages", "UnityWebBrowser.Engine.Cef.Linux-x64", "Engine~"), rec.builds[1].OutputDir)

	require.Len(t, rec.bundles, 1)
	require.Equal(t, rec.builds[2].OutputDir, rec.bundles[0].BuildOutputDir)

	for _, dir := range []string{rec.bundles[0].BuildOutputDir, rec.bundles[0].FrameworkDir, rec.bundles[0].PackageDir} {
		require.True(t, filepath.IsAbs(dir), dir)
		require.True(t, strings.HasPrefix(dir, root), dir)
	}
}

// TestRun_InitializesMissingSubmodules runs git before building anything.
func TestRun_InitializesMissingSubmodules(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)

	rec := &recorder{}
	stages := newStages(t, rec, runner)
	cfg := stages.Config

	require.NoError(t, os.RemoveAll(cfg.Path(cfg.ThirdPartyCheckout)))

	gomock.InOrder(
		runner.EXPECT().Run(gomock.Any(), toolchain.Command{
			Name: "git", Args: []string{"submodule", "init"}, Dir: cfg.SourceRoot,
		}).Return(nil),
		runner.EXPECT().Run(gomock.Any(), toolchain.Command{
			Name: "git", Args: []string{"submodule", "update"}, Dir: cfg.SourceRoot,
		}).Return(nil),
	)

	require.NoError(t, New(stages, ForHost("plan9", stages)).Run(context.Background()))
	require.Equal(t, []string{"build VoltstroStudios.UnityWebBrowser.Shared "}, rec.calls)
}

// TestRun_StopsOnFirstFailure leaves the orchestrator in the last reached state.
func TestRun_StopsOnFirstFailure(t *testing.T) {
	t.Parallel()

	buildErr := &release.BuildError{Command: []string{"dotnet", "publish"}, ExitCode: 1}

	tests := []struct {
		name      string
		failOn    string
		failWith  error
		wantState State
		wantErr   error
	}{
		{
			name:      "shared build",
			failOn:    "build VoltstroStudios.UnityWebBrowser.Shared ",
			failWith:  buildErr,
			wantState: StateSubmodulesChecked,
			wantErr:   release.ErrBuild,
		},
		{
			name:      "fetch",
			failOn:    "fetch macosx64",
			failWith:  fmt.Errorf("%w: not found", release.ErrFetch),
			wantState: StateSharedBuilt,
			wantErr:   release.ErrFetch,
		},
		{
			name:      "assemble",
			failOn:    "assemble x64",
			failWith:  fmt.Errorf("%w: icon.icns", release.ErrMissingArtifact),
			wantState: StateSharedBuilt,
			wantErr:   release.ErrMissingArtifact,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := &recorder{failOn: tt.failOn, failWith: tt.failWith}
			stages := newStages(t, rec, nil)

			orchestrator := New(stages, ForHost("darwin", stages))

			err := orchestrator.Run(context.Background())
			require.ErrorIs(t, err, tt.wantErr)
			require.Equal(t, tt.wantState, orchestrator.State())
			require.Equal(t, tt.failOn, rec.calls[len(rec.calls)-1], "no step may run after a failure")
			require.NoFileExists(t, filepath.Join(stages.Config.SourceRoot, MarkerFilename))
		})
	}
}

func TestRun_OnlyOnce(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	stages := newStages(t, rec, nil)
	orchestrator := New(stages, ForHost("plan9", stages))

	require.NoError(t, orchestrator.Run(context.Background()))
	require.ErrorIs(t, orchestrator.Run(context.Background()), errAlreadyStarted)
}

// TestRun_RefusesWhileAnotherPipelineRuns honours a marker owned by a live process.
func TestRun_RefusesWhileAnotherPipelineRuns(t *testing.T) {
	t.Parallel()

	parent, err := ps.FindProcess(os.Getppid())
	if err != nil || parent == nil {
		t.Skip("parent process is not visible in the process table")
	}

	rec := &recorder{}
	stages := newStages(t, rec, nil)
	marker := filepath.Join(stages.Config.SourceRoot, MarkerFilename)

	contents := fmt.Sprintf("%d\n%s\n", parent.Pid(), parent.Executable())
	require.NoError(t, os.WriteFile(marker, []byte(contents), 0o600))

	orchestrator := New(stages, ForHost("linux", stages))

	err = orchestrator.Run(context.Background())
	require.ErrorIs(t, err, ErrPipelineRunning)
	require.Empty(t, rec.calls)
	require.Equal(t, StateInit, orchestrator.State())
	require.FileExists(t, marker)
}

// TestRun_ReplacesStaleMarker ignores markers of processes that are gone or garbled.
func TestRun_ReplacesStaleMarker(t *testing.T) {
	t.Parallel()

	for _, contents := range []string{
		"garbage",
		"not-a-pid\nuwb-release\n",
		fmt.Sprintf("%d\n%s\n", os.Getppid(), "definitely-not-the-parent-executable"),
	} {
		rec := &recorder{}
		stages := newStages(t, rec, nil)
		marker := filepath.Join(stages.Config.SourceRoot, MarkerFilename)

		require.NoError(t, os.WriteFile(marker, []byte(contents), 0o600))
		require.NoError(t, New(stages, ForHost("plan9", stages)).Run(context.Background()))
		require.NoFileExists(t, marker)
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "init", StateInit.String())
	require.Equal(t, "platform-built", StatePlatformBuilt.String())
	require.Equal(t, "unknown", State(42).String())
	require.True(t, errors.Is(fmt.Errorf("wrap: %w", ErrPipelineRunning), ErrPipelineRunning))
}
