package bundler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/uwb-release/internal/config"
	"github.com/oshokin/uwb-release/internal/domain/release"
	"github.com/oshokin/uwb-release/internal/fsutil"
)

// fixture is a publish directory and an extracted framework as produced by the earlier stages.
type fixture struct {
	settings config.BundleSettings
	request  Request
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	root := t.TempDir()
	settings := config.Default().Bundle

	f := &fixture{
		settings: settings,
		request: Request{
			BuildOutputDir: filepath.Join(root, "publish", "osx-arm64"),
			FrameworkDir:   filepath.Join(root, "cef", "macosarm64", "Release", settings.FrameworkName+".framework"),
			PackageDir:     filepath.Join(root, "Packages", "UnityWebBrowser.Engine.Cef.MacOS-arm64", "Engine~"),
			Arch:           "arm64",
		},
	}

	write := func(path, contents string, mode os.FileMode) {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(contents), mode))
	}

	out := f.request.BuildOutputDir
	write(filepath.Join(out, settings.AppName), "main binary", 0o755)
	write(filepath.Join(out, settings.HelperName), "helper binary", 0o755)
	write(filepath.Join(out, settings.InfoPlist), "main plist", 0o644)
	write(filepath.Join(out, settings.Icon), "icon", 0o644)

	for _, variant := range settings.Variants {
		write(filepath.Join(out, variant.PlistFile()), "plist for "+variant.Suffix, 0o644)
	}

	framework := f.request.FrameworkDir
	write(filepath.Join(framework, "Chromium Embedded Framework"), "framework binary", 0o755)
	write(filepath.Join(framework, "Resources", "icudtl.dat"), "icu", 0o644)
	require.NoError(t, os.Symlink("Resources", filepath.Join(framework, "Current")))

	return f
}

func (f *fixture) bundlePath() string {
	return filepath.Join(f.request.PackageDir, f.settings.AppName+".app")
}

// TestPlan lists every entry of the bundle in creation order.
func TestPlan(t *testing.T) {
	t.Parallel()

	settings := config.Default().Bundle
	settings.Variants = []release.HelperVariant{{}, {Suffix: "GPU"}}

	var paths []string

	Plan(settings, "/out", "/cef.framework").Walk(func(rel string, _ *Node) {
		paths = append(paths, filepath.ToSlash(rel))
	})

	app := "UnityWebBrowser.Engine.Cef.app"
	helper := app + "/Contents/Frameworks/UnityWebBrowser.Engine.Cef.SubProcess"

	require.Equal(t, []string{
		app,
		app + "/Contents",
		app + "/Contents/Info.plist",
		app + "/Contents/MacOS",
		app + "/Contents/MacOS/UnityWebBrowser.Engine.Cef",
		app + "/Contents/Resources",
		app + "/Contents/Resources/icon.icns",
		app + "/Contents/Frameworks",
		app + "/Contents/Frameworks/Chromium Embedded Framework.framework",
		helper + ".app",
		helper + ".app/Contents",
		helper + ".app/Contents/Info.plist",
		helper + ".app/Contents/MacOS",
		helper + ".app/Contents/MacOS/UnityWebBrowser.Engine.Cef.SubProcess",
		helper + " (GPU).app",
		helper + " (GPU).app/Contents",
		helper + " (GPU).app/Contents/Info.plist",
		helper + " (GPU).app/Contents/MacOS",
		helper + " (GPU).app/Contents/MacOS/UnityWebBrowser.Engine.Cef.SubProcess (GPU)",
	}, paths)
}

// TestAssemble_AllHelperVariants produces one helper bundle per variant sharing one binary.
func TestAssemble_AllHelperVariants(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	result, err := New(f.settings).Assemble(context.Background(), f.request)
	require.NoError(t, err)
	require.Equal(t, f.bundlePath(), result.Path)

	contents := filepath.Join(result.Path, "Contents")

	requireFile(t, filepath.Join(contents, "Info.plist"), "main plist")
	requireFile(t, filepath.Join(contents, "MacOS", f.settings.AppName), "main binary")
	requireFile(t, filepath.Join(contents, "Resources", f.settings.Icon), "icon")

	framework := filepath.Join(contents, "Frameworks", f.settings.FrameworkName+".framework")
	requireFile(t, filepath.Join(framework, "Resources", "icudtl.dat"), "icu")

	link, err := os.Readlink(filepath.Join(framework, "Current"))
	require.NoError(t, err)
	require.Equal(t, "Resources", link)

	for _, variant := range f.settings.Variants {
		helper := filepath.Join(contents, "Frameworks", variant.BundleName(f.settings.HelperName), "Contents")

		requireFile(t, filepath.Join(helper, "Info.plist"), "plist for "+variant.Suffix)
		requireFile(t, filepath.Join(helper, "MacOS", variant.ExecutableName(f.settings.HelperName)), "helper binary")

		info, err := os.Stat(filepath.Join(helper, "MacOS", variant.ExecutableName(f.settings.HelperName)))
		require.NoError(t, err)
		require.NotZero(t, info.Mode().Perm()&0o100, "helper %q must stay executable", variant.Suffix)
	}

	helpers, err := os.ReadDir(filepath.Join(contents, "Frameworks"))
	require.NoError(t, err)
	require.Len(t, helpers, len(f.settings.Variants)+1)
}

// TestAssemble_Idempotent replaces the installed bundle instead of merging into it.
func TestAssemble_Idempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	assembler := New(f.settings)

	first, err := assembler.Assemble(context.Background(), f.request)
	require.NoError(t, err)

	stale := filepath.Join(first.Path, "Contents", "Resources", "stale.txt")
	require.NoError(t, os.WriteFile(stale, []byte("left over"), 0o600))

	second, err := assembler.Assemble(context.Background(), f.request)
	require.NoError(t, err)
	require.Equal(t, first.Digest, second.Digest)
	require.NoFileExists(t, stale)

	digest, err := fsutil.DigestTree(second.Path)
	require.NoError(t, err)
	require.Equal(t, second.Digest, digest)
}

// TestAssemble_MissingIconKeepsDestination fails before touching the package directory.
func TestAssemble_MissingIconKeepsDestination(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	marker := filepath.Join(f.bundlePath(), "previous-run.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(marker), 0o755))
	require.NoError(t, os.WriteFile(marker, []byte("previous"), 0o600))

	before, err := fsutil.DigestTree(f.request.PackageDir)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(f.request.BuildOutputDir, f.settings.Icon)))

	_, err = New(f.settings).Assemble(context.Background(), f.request)
	require.ErrorIs(t, err, release.ErrMissingArtifact)
	require.ErrorContains(t, err, f.settings.Icon)

	after, err := fsutil.DigestTree(f.request.PackageDir)
	require.NoError(t, err)
	require.Equal(t, before, after)
	require.NoDirExists(t, filepath.Join(f.request.BuildOutputDir, f.settings.AppName+".app"))
}

// TestAssemble_ReportsEveryMissingArtifact names each absent source.
func TestAssemble_ReportsEveryMissingArtifact(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	require.NoError(t, os.Remove(filepath.Join(f.request.BuildOutputDir, "info-subprocess-gpu.plist")))
	require.NoError(t, os.RemoveAll(f.request.FrameworkDir))

	_, err := New(f.settings).Assemble(context.Background(), f.request)
	require.ErrorIs(t, err, release.ErrMissingArtifact)
	require.ErrorContains(t, err, "info-subprocess-gpu.plist")
	require.ErrorContains(t, err, f.settings.FrameworkName+".framework")
	require.NoDirExists(t, f.request.PackageDir)
}

func requireFile(t *testing.T, path, want string) {
	t.Helper()

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, want, string(contents))
}
