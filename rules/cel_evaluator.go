package rules

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/interpreter"
)

type celProgram struct {
	env     *celgo.Env
	program celgo.Program
}

type celEvaluator struct {
	cfg engineConfig
}

// NewCELEvaluator constructs an Evaluator backed by cel-go. Every name the
// resolver knows is declared as a dyn variable; values are resolved only when
// the program reads them.
func NewCELEvaluator(opts ...EngineOption) Evaluator {
	return &celEvaluator{cfg: applyEngineOptions(opts)}
}

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("cel", fmt.Errorf("expression must not be empty"))
	}
	ctx = ctx.withDefaults()
	resolver := ctx.resolver()
	program, err := e.loadOrCompile(expression, variableNames(resolver))
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, ctx.layerLabel(), err)
	}
	out, _, err := program.program.Eval(newCELActivation(ctx, resolver))
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, ctx.layerLabel(), err)
	}
	return out.Value(), nil
}

// Compile defers program construction until the resolver's names are known.
func (e *celEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("cel", fmt.Errorf("expression must not be empty"))
	}
	return &celCompiledRule{
		evaluator:  e,
		expression: expression,
	}, nil
}

func (e *celEvaluator) loadOrCompile(expression string, names []string) (*celProgram, error) {
	key := celCacheKey(expression, names)
	if cached, ok := e.cfg.cached(key); ok {
		if program, ok := cached.(*celProgram); ok {
			return program, nil
		}
	}

	env, err := e.buildEnv(names)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, err
	}

	bundle := &celProgram{
		env:     env,
		program: prg,
	}
	e.cfg.store(key, bundle)
	return bundle, nil
}

// variableNames returns the sorted non-reserved names of resolver.
func variableNames(resolver Resolver) []string {
	all := resolver.Names()
	names := make([]string, 0, len(all))
	for _, name := range all {
		if !isReserved(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// celCacheKey includes the declared variable names since a CEL program is
// checked against a fixed environment.
func celCacheKey(expression string, names []string) string {
	return expression + "\x00" + strings.Join(names, ",")
}

func (e *celEvaluator) buildEnv(names []string) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("args", celgo.MapType(celgo.StringType, celgo.DynType)),
		celgo.Variable("metadata", celgo.MapType(celgo.StringType, celgo.DynType)),
		celgo.Variable("layer", celgo.MapType(celgo.StringType, celgo.DynType)),
	}
	if e.cfg.registry != nil {
		opts = append(opts, celgo.Function("call",
			celgo.Overload("call_string",
				[]*celgo.Type{celgo.StringType},
				celgo.DynType,
				celgo.UnaryBinding(func(name ref.Val) ref.Val {
					return e.invoke(name, nil)
				}),
			),
			celgo.Overload("call_string_list",
				[]*celgo.Type{celgo.StringType, celgo.ListType(celgo.DynType)},
				celgo.DynType,
				celgo.BinaryBinding(func(name, args ref.Val) ref.Val {
					return e.invoke(name, args)
				}),
			),
		))
	}
	for _, name := range names {
		opts = append(opts, celgo.Variable(name, celgo.DynType))
	}
	return celgo.NewEnv(opts...)
}

func (e *celEvaluator) invoke(name ref.Val, args ref.Val) ref.Val {
	if e.cfg.registry == nil {
		return types.NewErr("rules: function registry not configured")
	}
	fn, ok := name.Value().(string)
	if !ok {
		return types.NewErr("rules: call name must be string")
	}
	var arguments []any
	if args != nil {
		native, err := args.ConvertToNative(reflect.TypeOf([]any{}))
		if err != nil {
			return types.NewErr("rules: call arguments: %v", err)
		}
		arguments, _ = native.([]any)
	}
	result, err := e.cfg.registry.Call(fn, arguments...)
	if err != nil {
		return types.NewErr("%s", err.Error())
	}
	if result == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(result)
}

// celActivation answers reserved names from the context and everything else
// from the resolver, at the moment the program reads them.
type celActivation struct {
	builtins map[string]any
	resolver Resolver
}

func newCELActivation(ctx RuleContext, resolver Resolver) interpreter.Activation {
	builtins := ctx.builtins()
	if _, ok := builtins["layer"]; !ok {
		builtins["layer"] = map[string]any{}
	}
	return &celActivation{builtins: builtins, resolver: resolver}
}

func (a *celActivation) ResolveName(name string) (any, bool) {
	if value, ok := a.builtins[name]; ok {
		return value, true
	}
	if isReserved(name) {
		return nil, false
	}
	return a.resolver.Resolve(name)
}

func (a *celActivation) Parent() interpreter.Activation {
	return nil
}

type celCompiledRule struct {
	evaluator  *celEvaluator
	expression string
}

func (r *celCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	if r.evaluator == nil {
		return nil, wrapEvaluatorError("cel", fmt.Errorf("compiled rule missing evaluator"))
	}
	return r.evaluator.Evaluate(ctx, r.expression)
}
