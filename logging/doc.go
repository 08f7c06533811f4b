// Package logging provides a minimal logging interface and adapters for meshstream.
//
// The Logger interface defines the levelled methods (Debug, Info, Warn, Error)
// that runtimes, workers, transports and the supervisor use for observability.
// This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - MeshLogger with component scoping and domain helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	sup := supervisor.New("supervisor", p, func(o *supervisor.Options) { o.Logger = logger })
//
// Arguments after the message are slog-style key/value pairs.
package logging
