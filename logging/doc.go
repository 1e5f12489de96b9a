// Package logging provides a minimal logging interface and adapters for wrapmesh.
//
// The Logger interface defines the structured logging methods (Debug, Info,
// Warn, Error) used by the bridge, the tool executor and the agent loop. This
// package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - ZerologAdapter wrapping github.com/rs/zerolog (used by the CLI)
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - ConsoleLogger, a coloured transcript printer for interactive sessions
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", os.Stderr)
//	mesh := wrapmesh.New(func(o *wrapmesh.Options) { o.Logger = logger })
package logging
