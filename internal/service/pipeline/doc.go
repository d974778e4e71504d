// Package pipeline runs the full setup of a source tree on the current host.
//
// The Orchestrator is a linear state machine: it makes sure the third-party
// checkout exists, builds the shared project and then hands over to the
// Platform resolved for the host, which fetches the CEF archives and builds
// or bundles the engine. A host without a platform does no platform work.
//
// A run marker in the source root stops two pipelines from writing the same
// output directories at once.
package pipeline
