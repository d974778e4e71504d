// Package logger wraps zap for the release pipeline:
//   - a global sugared logger with a compact console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing for the --log-level flag,
//   - leveled helpers (Infof, WarnKV, ...) that read the logger from a context.
//
// Every pipeline stage receives a context and logs through it, so a stage
// name attached once with WithName shows up on every line it emits.
package logger
