package manifest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/oshokin/uwb-release/internal/config"
	"github.com/oshokin/uwb-release/internal/fsutil"
	"github.com/oshokin/uwb-release/internal/logger"
)

// Graph is the in-memory set of package manifests of one release.
type Graph struct {
	order     []string
	manifests map[string]*Manifest
}

// LoadGraph loads <dir>/<name>/<manifestName> for every package name.
// All packages are attempted; the error lists every manifest that could not be loaded.
func LoadGraph(dir, manifestName string, names []string) (*Graph, error) {
	graph := &Graph{
		order:     make([]string, 0, len(names)),
		manifests: make(map[string]*Manifest, len(names)),
	}

	var errs []error

	for _, name := range names {
		m, err := Load(filepath.Join(dir, name, manifestName))
		if err != nil {
			errs = append(errs, err)

			continue
		}

		graph.order = append(graph.order, name)
		graph.manifests[name] = m
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return graph, nil
}

// Names returns the package names in load order.
func (g *Graph) Names() []string {
	return append([]string(nil), g.order...)
}

// Get returns the manifest of the named package.
func (g *Graph) Get(name string) (*Manifest, bool) {
	m, ok := g.manifests[name]

	return m, ok
}

// Flush encodes every manifest first and then writes them in load order.
func (g *Graph) Flush(ctx context.Context) error {
	encoded := make([][]byte, len(g.order))

	for i, name := range g.order {
		data, err := g.manifests[name].Encode()
		if err != nil {
			return err
		}

		encoded[i] = data
	}

	for i, name := range g.order {
		m := g.manifests[name]

		if err := fsutil.WriteFileAtomic(m.Path(), encoded[i], config.DefaultFilePermissions); err != nil {
			return fmt.Errorf("write manifest of %s: %w", name, err)
		}

		logger.DebugKV(ctx, "Manifest written", "package", name, "path", m.Path())
	}

	return nil
}
