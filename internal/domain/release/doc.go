// Package release contains the core domain types shared by the release pipeline.
//
// It defines the supported platform targets, the version model (base version
// plus optional engine sub-version), the package and helper-process variant
// descriptors, and the error taxonomy every stage reports through.
package release
