// Package syncer propagates the root release version through the package
// manifests, the engine compound version, the license copies and the
// assembly-info source file.
//
// Synchronization is staged: every input is loaded and every rewrite is
// computed in memory first, and files are only written once nothing is
// missing. A run that fails validation leaves the tree untouched.
package syncer
