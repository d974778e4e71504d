// Package toolchain runs the external tools the pipeline depends on (the
// compiler, git, strip) and reports non-zero exits as release.BuildError.
//
// Stages depend on the Runner interface so tests can substitute a mock.
package toolchain
