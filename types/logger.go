package types

// Logger defines methods for structured logging.
//
// Every method takes a message followed by alternating keys and values, the
// convention of log/slog and zap.SugaredLogger. internal/logging adapts slog
// to this interface and provides no-op and testing.T implementations.
//
// Components that act for one rank add "rank" to each entry; collectives add
// "comm" and "op".
type Logger interface {
	// Debug logs per-message detail: collective steps, chunk counts, claims.
	Debug(msg string, keysAndValues ...any)

	// Info logs phase boundaries: load start and end, state transitions.
	Info(msg string, keysAndValues ...any)

	// Warn logs recoverable surprises, such as a wrapped group mapping.
	Warn(msg string, keysAndValues ...any)

	// Error logs failures that end the current phase, such as a desync.
	Error(msg string, keysAndValues ...any)

	// Fatal logs and then exits the process with status 1.
	Fatal(msg string, keysAndValues ...any)
}
