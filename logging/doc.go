// Package logging provides a minimal logging interface and adapters for the
// model council.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that invokers and the fan-out coordinator use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - CouncilLogger with component / run context and model call helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	coord, err := fanout.New(invoker, func(o *fanout.Options) { o.Logger = logger })
//
// Diagnostic detail about failed model calls only ever travels through this
// channel; it is never part of a returned result.
package logging
