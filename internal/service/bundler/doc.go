// Package bundler assembles the macOS application bundle of the engine.
//
// The bundle shape is described as a tree of nodes built from the bundle
// settings, one nested helper bundle per helper variant. Assembly checks that
// every source exists before anything is deleted, builds the bundle in the
// publish directory and then replaces the bundle inside the engine package.
package bundler
