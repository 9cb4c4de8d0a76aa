package rules

import (
	"errors"
	"fmt"
	"time"

	chainmap "github.com/goliatone/go-chainmap"
)

// ErrNoEvaluator is returned when no usable evaluator could be resolved.
var ErrNoEvaluator = errors.New("rules: evaluator not configured")

// Evaluate runs expr against m. Each variable resolves to the value Get would
// return for it, looked up when the expression reads it.
func Evaluate(m *chainmap.LayeredMap[string, any], expr string, opts ...Option) (Response[any], error) {
	if m == nil {
		return Response[any]{}, fmt.Errorf("rules: layered map is nil")
	}
	ctx := RuleContext{
		Resolver: NewLayeredResolver(m),
		Layer:    mergedLayer,
	}
	return EvaluateWith(ctx, expr, opts...)
}

// EvaluateLayer runs expr against the entries of the layer at index, where 0
// is the primary layer.
func EvaluateLayer(m *chainmap.LayeredMap[string, any], index int, expr string, opts ...Option) (Response[any], error) {
	if m == nil {
		return Response[any]{}, fmt.Errorf("rules: layered map is nil")
	}
	layer, err := m.Layer(index)
	if err != nil {
		return Response[any]{}, err
	}
	ref := BoundLayer(index, layer.Name(), layer.ID())
	ctx := RuleContext{
		Resolver: NewLayerResolver(layer, ref),
		Layer:    ref,
	}
	return EvaluateWith(ctx, expr, opts...)
}

// EvaluateWith runs expr against a caller supplied context. Option values
// fill Args, Metadata and Now when the context leaves them unset. When the
// context's resolver records lookups, they are returned in Response.Reads and
// attached to any EvaluationError.
func EvaluateWith(ctx RuleContext, expr string, opts ...Option) (Response[any], error) {
	if expr == "" {
		return Response[any]{}, fmt.Errorf("rules: expression must not be empty")
	}
	cfg := applyOptions(opts)
	if cfg.err != nil {
		return Response[any]{}, cfg.err
	}
	evaluator := cfg.resolveEvaluator()
	if evaluator == nil {
		return Response[any]{}, ErrNoEvaluator
	}
	if ctx.Args == nil {
		ctx.Args = cfg.args
	}
	if ctx.Metadata == nil {
		ctx.Metadata = cfg.metadata
	}
	if ctx.Now == nil {
		ctx.Now = cfg.now
	}
	ctx = ctx.withDefaults()
	ctx.Resolver = ctx.resolver()

	engine := EngineName(evaluator)
	start := time.Now()
	value, evalErr := evaluator.Evaluate(ctx, expr)
	duration := time.Since(start)
	var reads []Read
	if tracker, ok := ctx.Resolver.(readTracker); ok {
		reads = tracker.Reads()
	}
	evalErr = wrapEvaluationError(engine, expr, ctx.layerLabel(), evalErr)
	var detailed *EvaluationError
	if errors.As(evalErr, &detailed) && detailed.Reads == nil {
		detailed.Reads = reads
	}
	cfg.logger.LogEvaluation(EvaluatorLogEvent{
		Engine:   engine,
		Expr:     expr,
		Layer:    ctx.layerLabel(),
		Reads:    reads,
		Duration: duration,
		Err:      evalErr,
	})
	if evalErr != nil {
		return Response[any]{}, evalErr
	}
	return Response[any]{Value: value, Reads: reads}, nil
}

// EngineName reports the engine label used in logs and errors.
func EngineName(e Evaluator) string {
	switch e.(type) {
	case nil:
		return "unknown"
	case *exprEvaluator:
		return "expr"
	case *celEvaluator:
		return "cel"
	}
	if name := jsEngineName(e); name != "" {
		return name
	}
	return "custom"
}
