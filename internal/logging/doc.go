// Package logging constructs the application's slog loggers and provides
// shared attribute helpers so components emit consistent structured fields.
package logging
