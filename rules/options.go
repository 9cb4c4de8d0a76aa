package rules

import "time"

// Option configures Evaluate and EvaluateLayer.
type Option func(*config)

type config struct {
	evaluator Evaluator
	cache     ProgramCache
	functions *FunctionRegistry
	logger    EvaluatorLogger
	args      map[string]any
	metadata  map[string]any
	now       *time.Time
	err       error
}

func applyOptions(opts []Option) config {
	cfg := config{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = noopEvaluatorLogger{}
	}
	return cfg
}

// WithEvaluator selects the engine used for evaluation. The expr engine is
// used when none is configured.
func WithEvaluator(evaluator Evaluator) Option {
	return func(cfg *config) {
		cfg.evaluator = evaluator
	}
}

// WithProgramCache registers a program cache for the default evaluator.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *config) {
		cfg.cache = cache
	}
}

// WithFunctionRegistry clones registry into the default evaluator.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *config) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers fn under name for the default evaluator. A
// failed registration is reported by the evaluation call.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *config) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		if err := cfg.functions.Register(name, fn); err != nil && cfg.err == nil {
			cfg.err = err
		}
	}
}

// WithEvaluatorLogger attaches an evaluator logger.
func WithEvaluatorLogger(logger EvaluatorLogger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithArgs exposes args to expressions as the args variable.
func WithArgs(args map[string]any) Option {
	return func(cfg *config) {
		cfg.args = args
	}
}

// WithMetadata exposes metadata to expressions as the metadata variable.
func WithMetadata(metadata map[string]any) Option {
	return func(cfg *config) {
		cfg.metadata = metadata
	}
}

// WithNow pins the now variable.
func WithNow(now time.Time) Option {
	return func(cfg *config) {
		cfg.now = &now
	}
}

func (cfg config) resolveEvaluator() Evaluator {
	if cfg.evaluator != nil {
		return cfg.evaluator
	}
	return NewExprEvaluator(EngineProgramCache(cfg.cache), EngineFunctions(cfg.functions))
}
