// Package logging assembles structured slog loggers used by the llmproxy CLI
// and client.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context helpers so a command can stamp every request
// it issues with the same correlation ID. The package also provides a no-op
// logger for tests and library callers that do not want output.
package logging
