package rules

import (
	"context"
	"log/slog"
	"time"
)

// EvaluatorLogEvent describes one evaluation. Reads is nil when the context's
// resolver does not record lookups.
type EvaluatorLogEvent struct {
	Engine   string
	Expr     string
	Layer    string
	Reads    []Read
	Duration time.Duration
	Err      error
}

// EvaluatorLogger records evaluator events.
type EvaluatorLogger interface {
	LogEvaluation(EvaluatorLogEvent)
}

// EvaluatorLoggerFunc adapts a function to EvaluatorLogger.
type EvaluatorLoggerFunc func(EvaluatorLogEvent)

// LogEvaluation implements EvaluatorLogger.
func (f EvaluatorLoggerFunc) LogEvaluation(event EvaluatorLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopEvaluatorLogger struct{}

func (noopEvaluatorLogger) LogEvaluation(EvaluatorLogEvent) {}

// SlogEvaluatorLogger writes evaluations to logger at debug level, or at warn
// level when the evaluation failed. Reads are logged in name@layer form.
func SlogEvaluatorLogger(logger *slog.Logger) EvaluatorLogger {
	if logger == nil {
		return noopEvaluatorLogger{}
	}
	return EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
		level := slog.LevelDebug
		attrs := []slog.Attr{
			slog.String("engine", event.Engine),
			slog.String("expr", event.Expr),
			slog.String("layer", event.Layer),
			slog.Duration("took", event.Duration),
		}
		if len(event.Reads) > 0 {
			attrs = append(attrs, slog.String("reads", formatReads(event.Reads)))
		}
		if event.Err != nil {
			level = slog.LevelWarn
			attrs = append(attrs, slog.Any("error", event.Err))
		}
		logger.LogAttrs(context.Background(), level, "rules.evaluate", attrs...)
	})
}
