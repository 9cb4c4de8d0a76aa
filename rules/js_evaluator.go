//go:build js_eval

package rules

import (
	"fmt"

	"github.com/dop251/goja"
)

type jsEvaluator struct {
	cfg engineConfig
}

// NewJSEvaluator constructs an Evaluator backed by goja. Expressions run inside
// a with block over a scope object that resolves variables as they are read.
func NewJSEvaluator(opts ...EngineOption) Evaluator {
	return &jsEvaluator{cfg: applyEngineOptions(opts)}
}

// JSEvaluatorAvailable reports whether the goja engine was compiled in.
func JSEvaluatorAvailable() bool {
	return true
}

func (e *jsEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

func (e *jsEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("js", fmt.Errorf("expression must not be empty"))
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, wrapEvaluationError("js", expression, "", err)
	}
	return &jsCompiledRule{
		evaluator:  e,
		expression: expression,
		program:    program,
	}, nil
}

func (e *jsEvaluator) loadOrCompile(expression string) (*goja.Program, error) {
	if cached, ok := e.cfg.cached(expression); ok {
		if program, ok := cached.(*goja.Program); ok {
			return program, nil
		}
	}
	program, err := goja.Compile("", wrapJSExpression(expression), false)
	if err != nil {
		return nil, err
	}
	e.cfg.store(expression, program)
	return program, nil
}

func (e *jsEvaluator) run(ctx RuleContext, program *goja.Program) (any, error) {
	vm := goja.New()
	if err := e.injectContext(vm, ctx); err != nil {
		return nil, err
	}
	value, err := vm.RunProgram(program)
	if err != nil {
		return nil, err
	}
	return value.Export(), nil
}

func (e *jsEvaluator) injectContext(vm *goja.Runtime, ctx RuleContext) error {
	bindings := ctx.builtins()
	if e.cfg.registry != nil {
		bindings["call"] = e.cfg.registry.Call
		for _, name := range e.cfg.registry.Names() {
			bindings[name] = e.cfg.function(name)
		}
	}
	for key, value := range bindings {
		if err := vm.Set(key, value); err != nil {
			return err
		}
	}
	scope := newJSScope(vm, ctx.resolver(), bindings)
	return vm.Set(jsScopeName, vm.NewDynamicObject(scope))
}

const jsScopeName = "__scope"

// jsScope exposes resolver variables to a with block. Names bound as globals
// are hidden so they are never shadowed by layer entries.
type jsScope struct {
	vm       *goja.Runtime
	resolver Resolver
	names    map[string]struct{}
}

func newJSScope(vm *goja.Runtime, resolver Resolver, globals map[string]any) *jsScope {
	names := make(map[string]struct{})
	for _, name := range resolver.Names() {
		if _, ok := globals[name]; ok || isReserved(name) {
			continue
		}
		names[name] = struct{}{}
	}
	return &jsScope{vm: vm, resolver: resolver, names: names}
}

func (s *jsScope) Get(key string) goja.Value {
	if _, ok := s.names[key]; !ok {
		return goja.Undefined()
	}
	value, ok := s.resolver.Resolve(key)
	if !ok {
		return goja.Undefined()
	}
	return s.vm.ToValue(value)
}

func (s *jsScope) Set(string, goja.Value) bool { return false }

func (s *jsScope) Has(key string) bool {
	_, ok := s.names[key]
	return ok
}

func (s *jsScope) Delete(string) bool { return false }

func (s *jsScope) Keys() []string {
	keys := make([]string, 0, len(s.names))
	for name := range s.names {
		keys = append(keys, name)
	}
	return keys
}

func wrapJSExpression(expression string) string {
	return fmt.Sprintf("(function(){ with (%s) { return (%s); } })()", jsScopeName, expression)
}

type jsCompiledRule struct {
	evaluator  *jsEvaluator
	expression string
	program    *goja.Program
}

func (r *jsCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	if r.evaluator == nil {
		return nil, wrapEvaluatorError("js", fmt.Errorf("compiled rule missing evaluator"))
	}
	ctx = ctx.withDefaults()
	value, err := r.evaluator.run(ctx, r.program)
	if err != nil {
		return nil, wrapEvaluationError("js", r.expression, ctx.layerLabel(), err)
	}
	return value, nil
}

func jsEngineName(e Evaluator) string {
	if _, ok := e.(*jsEvaluator); ok {
		return "js"
	}
	return ""
}
