package log

import "time"

// Logger receives protocol log events.
// Implementations must be safe for concurrent use and should not block.
type Logger interface {
	Log(event Event)
}

// NoopLogger discards all events. The zero value is ready to use.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// OrNoop returns l, or NoopLogger if l is nil.
func OrNoop(l Logger) Logger {
	if l == nil {
		return NoopLogger{}
	}
	return l
}

// Stamp sets the event timestamp to now if it is unset and logs it.
func Stamp(l Logger, event Event) {
	if l == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	l.Log(event)
}

var _ Logger = NoopLogger{}
