// Package integration holds tests that drive several stages together against
// a temporary source tree, a local CDN and a simulated compiler.
package integration
