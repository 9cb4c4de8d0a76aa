package chainmap

import (
	"context"
	"log/slog"
)

// Event describes a structural change or a silently ignored request on a
// LayeredMap. Layer is the index across the full layer list (0 = primary), or
// -1 when no layer is involved.
type Event struct {
	Op    string
	Key   any
	Layer int
	Err   error
}

// Logger records LayeredMap events.
type Logger interface {
	LogEvent(Event)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(Event)

// LogEvent implements Logger.
func (f LoggerFunc) LogEvent(event Event) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) LogEvent(Event) {}

// SlogLogger forwards events to logger at debug level, or at warn level when
// the event carries an error.
func SlogLogger(logger *slog.Logger) Logger {
	if logger == nil {
		return noopLogger{}
	}
	return slogLogger{logger: logger}
}

type slogLogger struct {
	logger *slog.Logger
}

func (l slogLogger) LogEvent(event Event) {
	level := slog.LevelDebug
	attrs := []slog.Attr{slog.String("op", event.Op), slog.Int("layer", event.Layer)}
	if event.Key != nil {
		attrs = append(attrs, slog.Any("key", event.Key))
	}
	if event.Err != nil {
		level = slog.LevelWarn
		attrs = append(attrs, slog.Any("error", event.Err))
	}
	l.logger.LogAttrs(context.Background(), level, "chainmap", attrs...)
}
