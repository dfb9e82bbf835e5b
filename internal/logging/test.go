package logging

import (
	"fmt"
	"strings"
	"testing"

	"github.com/arloliu/scenepart/types"
)

// TestLogger writes log records through testing.TB so they show up in test output.
type TestLogger struct {
	t      testing.TB
	prefix string
}

var _ types.Logger = (*TestLogger)(nil)

// NewTest creates a logger bound to t.
//
// Example:
//
//	func TestSomething(t *testing.T) {
//	    logger := logging.NewTest(t).Named("rank0")
//	    logger.Info("started", "id", 123)
//	}
func NewTest(t testing.TB) *TestLogger {
	return &TestLogger{t: t}
}

// Named returns a copy that prefixes every message with name.
func (l *TestLogger) Named(name string) *TestLogger {
	return &TestLogger{t: l.t, prefix: name + ": "}
}

// Debug logs at debug level.
func (l *TestLogger) Debug(msg string, keysAndValues ...any) {
	l.t.Logf("DEBUG: %s%s %s", l.prefix, msg, formatKeyValues(keysAndValues))
}

// Info logs at info level.
func (l *TestLogger) Info(msg string, keysAndValues ...any) {
	l.t.Logf("INFO: %s%s %s", l.prefix, msg, formatKeyValues(keysAndValues))
}

// Warn logs at warn level.
func (l *TestLogger) Warn(msg string, keysAndValues ...any) {
	l.t.Logf("WARN: %s%s %s", l.prefix, msg, formatKeyValues(keysAndValues))
}

// Error logs at error level.
func (l *TestLogger) Error(msg string, keysAndValues ...any) {
	l.t.Logf("ERROR: %s%s %s", l.prefix, msg, formatKeyValues(keysAndValues))
}

// Fatal logs and fails the test.
func (l *TestLogger) Fatal(msg string, keysAndValues ...any) {
	l.t.Fatalf("FATAL: %s%s %s", l.prefix, msg, formatKeyValues(keysAndValues))
}

func formatKeyValues(keysAndValues []any) string {
	if len(keysAndValues) == 0 {
		return ""
	}

	var sb strings.Builder
	for i := 0; i < len(keysAndValues); i += 2 {
		if i+1 < len(keysAndValues) {
			fmt.Fprintf(&sb, "%v=%v ", keysAndValues[i], keysAndValues[i+1])
		} else {
			fmt.Fprintf(&sb, "%v=<missing> ", keysAndValues[i])
		}
	}

	return strings.TrimSuffix(sb.String(), " ")
}
