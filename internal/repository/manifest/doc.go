// Package manifest implements persistence for package manifests.
//
// Manifests are JSON objects carrying a version field and an optional
// dependency map. They are decoded into an ordered Object so that a rewrite
// only changes the values that were set and keeps key order, unknown fields
// and non-ASCII text intact. Output is indented with two spaces.
//
// A Graph loads a whole package set up front and flushes it only after every
// manifest was found, so a missing manifest never leaves the set half-written.
package manifest
