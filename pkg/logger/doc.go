// Package logger provides structured logging with configurable log levels.
// It wraps the standard log/slog package, emitting JSON in production and text
// elsewhere, and can tee output into a rotated log file.
package logger
