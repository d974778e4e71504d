package syncer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/uwb-release/internal/config"
	"github.com/oshokin/uwb-release/internal/domain/release"
	"github.com/oshokin/uwb-release/internal/fsutil"
	"github.com/oshokin/uwb-release/internal/logger"
	"github.com/oshokin/uwb-release/internal/repository/manifest"
)

// Report describes what a synchronization wrote.
type Report struct {
	// Base is the authoritative release version.
	Base string
	// SubVersion is the engine pinned part shared by all engine packages.
	SubVersion string
	// EngineVersion is the rewritten engine compound version.
	EngineVersion string
	// Packages lists the synchronized packages in configuration order.
	Packages []PackageReport
}

// PackageReport is the outcome for one package.
type PackageReport struct {
	// Name is the package directory name.
	Name string
	// Version is the effective version written to the manifest.
	Version string
	// Dependencies holds the rewritten internal dependency constraints.
	Dependencies map[string]string
}

// Synchronizer rewrites release versions across the source tree.
type Synchronizer struct {
	// cfg holds the manifest locations and the package list.
	cfg *config.Config
}

// plan is the fully computed, not yet written, result of a synchronization.
type plan struct {
	report       *Report
	engine       *manifest.Manifest
	graph        *manifest.Graph
	license      []byte
	licenseName  string
	assemblyInfo []byte
}

// New creates a Synchronizer.
func New(cfg *config.Config) *Synchronizer {
	return &Synchronizer{cfg: cfg}
}

// Synchronize loads and validates every input, then writes the engine
// manifest, the package manifests, the license copies and the assembly info.
func (s *Synchronizer) Synchronize(ctx context.Context) (*Report, error) {
	ctx = logger.WithName(ctx, "sync")

	p, err := s.prepare(ctx)
	if err != nil {
		return nil, err
	}

	if err = s.flush(ctx, p); err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Versions synchronized",
		"version", p.report.Base,
		"engine_version", p.report.EngineVersion,
		"packages", len(p.report.Packages))

	return p.report, nil
}

// prepare computes every rewrite in memory.
func (s *Synchronizer) prepare(ctx context.Context) (*plan, error) {
	settings := s.cfg.Sync

	root, err := manifest.Load(s.cfg.Path(settings.RootManifest))
	if err != nil {
		return nil, fmt.Errorf("load root manifest: %w", err)
	}

	rawBase, err := root.Version()
	if err != nil {
		return nil, err
	}

	base, err := release.ParseBaseVersion(rawBase)
	if err != nil {
		return nil, err
	}

	engine, err := manifest.Load(s.cfg.Path(settings.EngineManifest))
	if err != nil {
		return nil, fmt.Errorf("load engine manifest: %w", err)
	}

	compound, err := engine.Version()
	if err != nil {
		return nil, err
	}

	engineVersion, spec, err := release.Rebase(compound, base)
	if err != nil {
		return nil, fmt.Errorf("engine manifest %s: %w", engine.Path(), err)
	}

	if err = engine.SetVersion(engineVersion); err != nil {
		return nil, err
	}

	logger.DebugKV(ctx, "Resolved versions", "base", base, "sub_version", spec.Sub, "previous_engine_version", compound)

	names := make([]string, 0, len(settings.Packages))
	for _, pkg := range settings.Packages {
		names = append(names, pkg.Name)
	}

	graph, err := manifest.LoadGraph(s.cfg.Path(s.cfg.PackagesDir), settings.ManifestName, names)
	if err != nil {
		return nil, fmt.Errorf("load package manifests: %w", err)
	}

	report := &Report{
		Base:          base,
		SubVersion:    spec.Sub,
		EngineVersion: engineVersion,
		Packages:      make([]PackageReport, 0, len(settings.Packages)),
	}

	rule := release.DependencyRule{
		NamespacePrefix: settings.NamespacePrefix,
		EngineMarker:    settings.EngineMarker,
	}

	var packageReport PackageReport

	for _, pkg := range settings.Packages {
		m, _ := graph.Get(pkg.Name)

		packageReport, err = applyVersions(m, pkg, spec, rule)
		if err != nil {
			return nil, fmt.Errorf("package %s: %w", pkg.Name, err)
		}

		report.Packages = append(report.Packages, packageReport)
	}

	licensePath := s.cfg.Path(settings.LicenseFile)

	license, err := readInput(licensePath)
	if err != nil {
		return nil, fmt.Errorf("read license: %w", err)
	}

	assemblyInfo, err := s.rewriteAssemblyInfo(base)
	if err != nil {
		return nil, err
	}

	return &plan{
		report:       report,
		engine:       engine,
		graph:        graph,
		license:      license,
		licenseName:  filepath.Base(licensePath),
		assemblyInfo: assemblyInfo,
	}, nil
}

// applyVersions sets the package version and pins its internal dependencies.
func applyVersions(
	m *manifest.Manifest,
	pkg release.PackageSpec,
	spec release.VersionSpec,
	rule release.DependencyRule,
) (PackageReport, error) {
	effective := pkg.EffectiveVersion(spec)

	if err := m.SetVersion(effective); err != nil {
		return PackageReport{}, err
	}

	result := PackageReport{
		Name:         pkg.Name,
		Version:      effective,
		Dependencies: make(map[string]string),
	}

	for _, dependency := range m.DependencyNames() {
		version, managed := rule.Resolve(dependency, spec.Base, effective)
		if !managed {
			continue
		}

		if err := m.SetDependency(dependency, version); err != nil {
			return PackageReport{}, err
		}

		result.Dependencies[dependency] = version
	}

	return result, nil
}

func (s *Synchronizer) rewriteAssemblyInfo(version string) ([]byte, error) {
	original, err := readInput(s.cfg.Path(s.cfg.Sync.AssemblyInfoFile))
	if err != nil {
		return nil, fmt.Errorf("read assembly info: %w", err)
	}

	var rewritten bytes.Buffer

	err = RewriteAssemblyInfo(bytes.NewReader(original), &rewritten, version, s.cfg.Sync.AssemblyAttributes)
	if err != nil {
		return nil, err
	}

	return rewritten.Bytes(), nil
}

// flush writes the prepared plan in the same order as the stages run.
func (s *Synchronizer) flush(ctx context.Context, p *plan) error {
	if err := p.engine.Save(); err != nil {
		return fmt.Errorf("write engine manifest: %w", err)
	}

	if err := p.graph.Flush(ctx); err != nil {
		return err
	}

	for _, pkg := range p.report.Packages {
		target := filepath.Join(s.cfg.PackagePath(pkg.Name), p.licenseName)

		if err := fsutil.WriteFileAtomic(target, p.license, config.DefaultFilePermissions); err != nil {
			return fmt.Errorf("copy license into %s: %w", pkg.Name, err)
		}

		logger.InfoKV(ctx, "Package synchronized", "package", pkg.Name, "version", pkg.Version)
	}

	assemblyInfoPath := s.cfg.Path(s.cfg.Sync.AssemblyInfoFile)

	if err := fsutil.WriteFileAtomic(assemblyInfoPath, p.assemblyInfo, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write assembly info: %w", err)
	}

	return nil
}

// readInput reads a required input file; absence is a configuration problem.
func readInput(path string) ([]byte, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s does not exist", release.ErrConfiguration, path)
	}

	return contents, err
}
