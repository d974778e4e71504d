package bundler

import (
	"path/filepath"

	"github.com/oshokin/uwb-release/internal/config"
)

// Kind tells how a node is materialized.
type Kind int

const (
	// KindDir is an empty directory that receives children.
	KindDir Kind = iota
	// KindFile is a single file copied from Source.
	KindFile
	// KindTree is a directory tree copied recursively from Source.
	KindTree
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindDir:
		return "dir"
	case KindFile:
		return "file"
	case KindTree:
		return "tree"
	default:
		return "unknown"
	}
}

// Node is one entry of the bundle layout.
type Node struct {
	// Name is the entry name inside its parent.
	Name string
	// Kind selects how the entry is created.
	Kind Kind
	// Source is the copied file or tree; empty for directories.
	Source string
	// Children are the entries of a directory node.
	Children []*Node
}

func dir(name string, children ...*Node) *Node {
	return &Node{Name: name, Kind: KindDir, Children: children}
}

func file(name, source string) *Node {
	return &Node{Name: name, Kind: KindFile, Source: source}
}

func tree(name, source string) *Node {
	return &Node{Name: name, Kind: KindTree, Source: source}
}

// Walk visits the node and its descendants depth-first with their relative paths.
func (n *Node) Walk(visit func(rel string, node *Node)) {
	n.walk(n.Name, visit)
}

func (n *Node) walk(rel string, visit func(string, *Node)) {
	visit(rel, n)

	for _, child := range n.Children {
		child.walk(filepath.Join(rel, child.Name), visit)
	}
}

// InfoPlistName is the manifest file name macOS reads from a bundle's Contents directory.
const InfoPlistName = "Info.plist"

// Plan describes the application bundle built from buildOutputDir and the
// extracted CEF framework at frameworkDir.
func Plan(settings config.BundleSettings, buildOutputDir, frameworkDir string) *Node {
	source := func(name string) string {
		return filepath.Join(buildOutputDir, name)
	}

	frameworks := dir("Frameworks",
		tree(settings.FrameworkName+".framework", frameworkDir))

	for _, variant := range settings.Variants {
		helper := dir(variant.BundleName(settings.HelperName),
			dir("Contents",
				file(InfoPlistName, source(variant.PlistFile())),
				dir("MacOS",
					file(variant.ExecutableName(settings.HelperName), source(settings.HelperName)))))

		frameworks.Children = append(frameworks.Children, helper)
	}

	return dir(settings.AppName+".app",
		dir("Contents",
			file(InfoPlistName, source(settings.InfoPlist)),
			dir("MacOS",
				file(settings.AppName, source(settings.AppName))),
			dir("Resources",
				file(settings.Icon, source(settings.Icon))),
			frameworks))
}
