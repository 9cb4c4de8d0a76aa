package rules

// EngineOption configures an Evaluator constructor. Every engine accepts the
// same options.
type EngineOption func(*engineConfig)

type engineConfig struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// EngineProgramCache stores compiled programs in cache.
func EngineProgramCache(cache ProgramCache) EngineOption {
	return func(cfg *engineConfig) {
		cfg.cache = cache
	}
}

// EngineFunctions exposes the functions of registry to expressions. The
// registry is cloned.
func EngineFunctions(registry *FunctionRegistry) EngineOption {
	return func(cfg *engineConfig) {
		if registry == nil {
			return
		}
		cfg.registry = registry.Clone()
	}
}

func applyEngineOptions(opts []EngineOption) engineConfig {
	cfg := engineConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func (cfg engineConfig) cached(key string) (any, bool) {
	if cfg.cache == nil {
		return nil, false
	}
	return cfg.cache.Get(key)
}

func (cfg engineConfig) store(key string, program any) {
	if cfg.cache != nil {
		cfg.cache.Set(key, program)
	}
}

func (cfg engineConfig) function(name string) func(...any) (any, error) {
	registry := cfg.registry
	return func(arguments ...any) (any, error) {
		return registry.Call(name, arguments...)
	}
}
