// Package logging builds the slog loggers used across algoscene.
//
// It owns the console and JSON handlers, level parsing, and output selection.
// Components receive a *slog.Logger and tag it with NewComponentLogger so every
// line carries the subsystem that produced it. Tests and wiring code that
// cannot fail use NewNop.
package logging
