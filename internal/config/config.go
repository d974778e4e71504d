package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/uwb-release/internal/domain/release"
)

// Config holds the settings shared by every pipeline stage.
// Relative paths are resolved against SourceRoot into absolute paths.
type Config struct {
	// SourceRoot is the directory containing the engine projects, packages and third-party checkouts.
	SourceRoot string `yaml:"source_root"`

	// CDNBaseURL is where prebuilt CEF archives are downloaded from.
	CDNBaseURL string `yaml:"cdn_base_url"`
	// ArchivePrefix is the leading part of every CEF archive name.
	ArchivePrefix string `yaml:"archive_prefix"`
	// VersionSourceFile holds the CEF_VERSION constant of the interop layer.
	VersionSourceFile string `yaml:"version_source_file"`
	// ThirdPartyCheckout is the git submodule that must exist before building.
	ThirdPartyCheckout string `yaml:"third_party_checkout"`
	// LibsDir receives extracted archives, one directory per archive platform token.
	LibsDir string `yaml:"libs_dir"`
	// StripCommand is run over Linux shared libraries after extraction; empty disables stripping.
	StripCommand string `yaml:"strip_command"`

	// Compiler is the external compiler executable invoked with "publish".
	Compiler string `yaml:"compiler"`
	// GitCommand is the git executable used to initialise submodules.
	GitCommand string `yaml:"git_command"`
	// SharedProject is built once before any platform-specific work.
	SharedProject string `yaml:"shared_project"`
	// EngineProject is the main engine project.
	EngineProject string `yaml:"engine_project"`
	// SubProcessProject is the helper-process project (macOS only).
	SubProcessProject string `yaml:"subprocess_project"`
	// MacBuildOutputDir is the publish directory for macOS builds; "{arch}" is replaced by the architecture.
	MacBuildOutputDir string `yaml:"mac_build_output_dir"`
	// PackagesDir holds one directory per distributable package.
	PackagesDir string `yaml:"packages_dir"`
	// PayloadDir is the directory inside an engine package receiving binaries.
	PayloadDir string `yaml:"payload_dir"`

	// Bundle describes the macOS application bundle shape.
	Bundle BundleSettings `yaml:"bundle"`

	// Sync describes the version synchronization inputs.
	Sync SyncSettings `yaml:"sync"`
}

// BundleSettings describes the macOS bundle produced by the assembler.
type BundleSettings struct {
	// AppName is the main executable name and the bundle base name.
	AppName string `yaml:"app_name"`
	// HelperName is the helper executable name shared by all helper variants.
	HelperName string `yaml:"helper_name"`
	// FrameworkName is the CEF framework name without the ".framework" extension.
	FrameworkName string `yaml:"framework_name"`
	// InfoPlist is the main Info.plist file name inside the build output.
	InfoPlist string `yaml:"info_plist"`
	// Icon is the icon resource file name inside the build output.
	Icon string `yaml:"icon"`
	// Variants lists helper-process roles, each producing one nested helper bundle.
	Variants []release.HelperVariant `yaml:"variants"`
}

// SyncSettings describes the manifests touched by version synchronization.
type SyncSettings struct {
	// RootManifest carries the authoritative base version.
	RootManifest string `yaml:"root_manifest"`
	// EngineManifest carries the "<base>-<engine>" compound version.
	EngineManifest string `yaml:"engine_manifest"`
	// ManifestName is the manifest file name inside each package directory.
	ManifestName string `yaml:"manifest_name"`
	// LicenseFile is copied into every package directory.
	LicenseFile string `yaml:"license_file"`
	// AssemblyInfoFile has its version attributes rewritten.
	AssemblyInfoFile string `yaml:"assembly_info_file"`
	// AssemblyAttributes are the line prefixes whose quoted value is replaced.
	AssemblyAttributes []string `yaml:"assembly_attributes"`
	// NamespacePrefix selects dependencies owned by the project.
	NamespacePrefix string `yaml:"namespace_prefix"`
	// EngineMarker identifies engine-variant dependencies by name.
	EngineMarker string `yaml:"engine_marker"`
	// Packages is the ordered list of packages to synchronize.
	Packages []release.PackageSpec `yaml:"packages"`
}

const (
	// DefaultConfigFilename is the default settings file name.
	DefaultConfigFilename = "uwb-release.yaml"

	// DefaultFilePermissions is used for files written by the pipeline.
	DefaultFilePermissions os.FileMode = 0o644

	// DefaultDirPermissions is used for directories created by the pipeline.
	DefaultDirPermissions os.FileMode = 0o755

	// ArchPlaceholder is replaced by the CPU architecture in MacBuildOutputDir.
	ArchPlaceholder = "{arch}"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errFieldRequired is returned when a mandatory setting is empty.
	errFieldRequired = errors.New("setting must be provided")
	// errNoVariants is returned when the bundle has no helper variants.
	errNoVariants = errors.New("at least one helper variant is required")
	// errDuplicatePackage is returned when a package is listed twice.
	errDuplicatePackage = errors.New("package listed more than once")
)

// Default returns the settings matching the upstream repository layout.
func Default() *Config {
	return &Config{
		SourceRoot:         ".",
		CDNBaseURL:         "https://cef-builds.spotifycdn.com",
		ArchivePrefix:      "cef_binary",
		VersionSourceFile:  "ThirdParty/CefGlue/CefGlue/Interop/version.g.cs",
		ThirdPartyCheckout: "ThirdParty/CefGlue",
		LibsDir:            "ThirdParty/Libs/cef",
		StripCommand:       "strip",
		Compiler:           "dotnet",
		GitCommand:         "git",
		SharedProject:      "VoltstroStudios.UnityWebBrowser.Shared",
		EngineProject:      "UnityWebBrowser.Engine.Cef/Main/UnityWebBrowser.Engine.Cef.csproj",
		SubProcessProject:  "UnityWebBrowser.Engine.Cef/SubProcess",
		MacBuildOutputDir:  "UnityWebBrowser.Engine.Cef/bin/Release/publish/osx-" + ArchPlaceholder,
		PackagesDir:        "Packages",
		PayloadDir:         "Engine~",
		Bundle: BundleSettings{
			AppName:       "UnityWebBrowser.Engine.Cef",
			HelperName:    "UnityWebBrowser.Engine.Cef.SubProcess",
			FrameworkName: "Chromium Embedded Framework",
			InfoPlist:     "info.plist",
			Icon:          "icon.icns",
			Variants:      release.DefaultHelperVariants(),
		},
		Sync: SyncSettings{
			RootManifest:     "version.json",
			EngineManifest:   "UnityWebBrowser.Engine.Cef/version.json",
			ManifestName:     "package.json",
			LicenseFile:      "../LICENSE.md",
			AssemblyInfoFile: "Packages/UnityWebBrowser/Runtime/AssemblyInfo.cs",
			AssemblyAttributes: []string{
				`[assembly: AssemblyVersion("`,
				`[assembly: AssemblyFileVersion("`,
			},
			NamespacePrefix: "dev.voltstro",
			EngineMarker:    "engine",
			Packages: []release.PackageSpec{
				{Name: "UnityWebBrowser"},
				{Name: "UnityWebBrowser.Communication.Pipes"},
				{Name: "UnityWebBrowser.Engine.Cef", SubVersioned: true},
				{Name: "UnityWebBrowser.Engine.Cef.Win-x64", SubVersioned: true},
				{Name: "UnityWebBrowser.Engine.Cef.Linux-x64", SubVersioned: true},
				{Name: "UnityWebBrowser.Engine.Cef.MacOS-x64", SubVersioned: true},
				{Name: "UnityWebBrowser.Engine.Cef.MacOS-arm64", SubVersioned: true},
			},
		},
	}
}

// Load reads settings from path on top of the defaults and validates them.
// A missing file at the default location is not an error: defaults are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	cfg := Default()

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && path == DefaultConfigFilename {
			return cfg, cfg.Absolutize()
		}

		return nil, fmt.Errorf("%w: read settings: %w", release.ErrConfiguration, err)
	}

	if err = yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("%w: unmarshal settings: %w", release.ErrConfiguration, err)
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	if err = cfg.Absolutize(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes settings to path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks mandatory settings and their formatting.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.SourceRoot == "" {
		cfg.SourceRoot = "."
	}

	required := map[string]string{
		"cdn_base_url":        cfg.CDNBaseURL,
		"archive_prefix":      cfg.ArchivePrefix,
		"version_source_file": cfg.VersionSourceFile,
		"libs_dir":            cfg.LibsDir,
		"compiler":            cfg.Compiler,
		"packages_dir":        cfg.PackagesDir,
		"bundle.app_name":     cfg.Bundle.AppName,
		"bundle.helper_name":  cfg.Bundle.HelperName,
		"sync.root_manifest":  cfg.Sync.RootManifest,
		"sync.manifest_name":  cfg.Sync.ManifestName,
		"sync.engine_marker":  cfg.Sync.EngineMarker,
		"sync.namespace":      cfg.Sync.NamespacePrefix,
		"sync.engine_version": cfg.Sync.EngineManifest,
	}

	keys := make([]string, 0, len(required))
	for key := range required {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	for _, key := range keys {
		if required[key] == "" {
			return fmt.Errorf("%w: %s: %w", release.ErrConfiguration, key, errFieldRequired)
		}
	}

	if _, err := url.ParseRequestURI(cfg.CDNBaseURL); err != nil {
		return fmt.Errorf("%w: invalid CDN URL: %w", release.ErrConfiguration, err)
	}

	if len(cfg.Bundle.Variants) == 0 {
		return fmt.Errorf("%w: %w", release.ErrConfiguration, errNoVariants)
	}

	seen := make(map[string]struct{}, len(cfg.Sync.Packages))
	for _, pkg := range cfg.Sync.Packages {
		if _, ok := seen[pkg.Name]; ok {
			return fmt.Errorf("%w: %s: %w", release.ErrConfiguration, pkg.Name, errDuplicatePackage)
		}

		seen[pkg.Name] = struct{}{}
	}

	return nil
}

// Absolutize replaces SourceRoot with its absolute form.
func (c *Config) Absolutize() error {
	root := c.SourceRoot
	if root == "" {
		root = "."
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("%w: resolve source root %q: %w", release.ErrConfiguration, root, err)
	}

	c.SourceRoot = abs

	return nil
}

// Path resolves a setting against SourceRoot and always returns an absolute path.
func (c *Config) Path(rel string) string {
	if filepath.IsAbs(rel) {
		return filepath.Clean(rel)
	}

	joined := filepath.Join(c.SourceRoot, rel)

	abs, err := filepath.Abs(joined)
	if err != nil {
		return joined
	}

	return abs
}

// PackagePath returns the directory of the named package.
func (c *Config) PackagePath(name string) string {
	return filepath.Join(c.Path(c.PackagesDir), name)
}

// PayloadPath returns the binary payload directory of the named engine package.
func (c *Config) PayloadPath(name string) string {
	return filepath.Join(c.PackagePath(name), c.PayloadDir)
}

// ExtractedPath returns where the archive for the given platform token is extracted.
func (c *Config) ExtractedPath(token string) string {
	return filepath.Join(c.Path(c.LibsDir), token)
}

// MacBuildOutput returns the macOS publish directory for the given architecture.
func (c *Config) MacBuildOutput(arch string) string {
	return c.Path(strings.ReplaceAll(c.MacBuildOutputDir, ArchPlaceholder, arch))
}

// FrameworkPath returns the extracted CEF framework directory for the given macOS archive token.
func (c *Config) FrameworkPath(token string) string {
	return filepath.Join(c.ExtractedPath(token), "Release", c.Bundle.FrameworkName+".framework")
}
