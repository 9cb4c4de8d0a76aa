package rules

import (
	"errors"
	"fmt"
	"strings"
)

// EvaluationError reports a failed evaluation together with where it ran.
// Reads lists the variables resolved before the failure and the layer that
// supplied each of them.
type EvaluationError struct {
	Engine string
	Expr   string
	Layer  string
	Reads  []Read
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "rules: %s evaluator ", e.Engine)
	if e.Expr == "" {
		b.WriteString("expr=<empty>")
	} else {
		fmt.Fprintf(&b, "expr=%q", e.Expr)
	}
	fmt.Fprintf(&b, " layer=%s", e.Layer)
	if len(e.Reads) > 0 {
		fmt.Fprintf(&b, " reads=[%s]", formatReads(e.Reads))
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// wrapEvaluatorError prefixes errors raised before an expression is known.
func wrapEvaluatorError(engine string, err error) error {
	if err == nil || strings.HasPrefix(err.Error(), "rules:") {
		return err
	}
	return fmt.Errorf("rules: %s evaluator: %w", engine, err)
}

// wrapEvaluationError attaches evaluation metadata to err. An EvaluationError
// already in the chain only has its empty fields filled.
func wrapEvaluationError(engine, expr, layer string, err error) error {
	if err == nil {
		return nil
	}
	var existing *EvaluationError
	if !errors.As(err, &existing) {
		return &EvaluationError{Engine: engine, Expr: expr, Layer: layer, Err: err}
	}
	fill := func(field *string, value string) {
		if *field == "" {
			*field = value
		}
	}
	fill(&existing.Engine, engine)
	fill(&existing.Expr, expr)
	fill(&existing.Layer, layer)
	return existing
}
