package rules

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	exprvm "github.com/expr-lang/expr/vm"
)

// NewExprEvaluator constructs an Evaluator backed by expr-lang/expr. Only the
// identifiers an expression references are resolved.
func NewExprEvaluator(opts ...EngineOption) Evaluator {
	return &exprEvaluator{cfg: applyEngineOptions(opts)}
}

type exprEvaluator struct {
	cfg engineConfig
}

// exprProgram pairs a compiled program with the free identifiers it reads.
type exprProgram struct {
	program *exprvm.Program
	names   []string
}

func (e *exprEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

func (e *exprEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("expr", fmt.Errorf("expression must not be empty"))
	}
	if cached, ok := e.cfg.cached(expression); ok {
		if program, ok := cached.(*exprProgram); ok {
			return &exprRule{cfg: e.cfg, program: program, expression: expression}, nil
		}
	}

	tree, err := parser.Parse(expression)
	if err != nil {
		return nil, wrapEvaluationError("expr", expression, "", err)
	}
	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	functions := map[string]struct{}{}
	if e.cfg.registry != nil {
		for _, name := range e.cfg.registry.Names() {
			functions[name] = struct{}{}
			options = append(options, exprlang.Function(name, e.cfg.function(name)))
		}
	}
	compiled, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, wrapEvaluationError("expr", expression, "", err)
	}

	program := &exprProgram{program: compiled, names: freeIdentifiers(tree, functions)}
	e.cfg.store(expression, program)
	return &exprRule{cfg: e.cfg, program: program, expression: expression}, nil
}

type exprRule struct {
	cfg        engineConfig
	program    *exprProgram
	expression string
}

func (r *exprRule) Evaluate(ctx RuleContext) (any, error) {
	ctx = ctx.withDefaults()
	env := ctx.builtins()
	resolver := ctx.resolver()
	for _, name := range r.program.names {
		if _, builtin := env[name]; builtin || isReserved(name) {
			continue
		}
		if value, ok := resolver.Resolve(name); ok {
			env[name] = value
		}
	}
	if r.cfg.registry != nil {
		env["call"] = r.cfg.registry.Call
	}
	result, err := exprlang.Run(r.program.program, env)
	if err != nil {
		return nil, wrapEvaluationError("expr", r.expression, ctx.layerLabel(), err)
	}
	return result, nil
}

// identifierCollector gathers identifiers that are not called as functions.
type identifierCollector struct {
	seen    map[string]struct{}
	callees map[string]struct{}
	order   []string
}

func (c *identifierCollector) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.IdentifierNode:
		if _, ok := c.seen[n.Value]; !ok {
			c.seen[n.Value] = struct{}{}
			c.order = append(c.order, n.Value)
		}
	case *ast.CallNode:
		if callee, ok := n.Callee.(*ast.IdentifierNode); ok {
			c.callees[callee.Value] = struct{}{}
		}
	}
}

func freeIdentifiers(tree *parser.Tree, functions map[string]struct{}) []string {
	collector := &identifierCollector{
		seen:    map[string]struct{}{},
		callees: map[string]struct{}{},
	}
	ast.Walk(&tree.Node, collector)
	names := make([]string, 0, len(collector.order))
	for _, name := range collector.order {
		if _, ok := collector.callees[name]; ok {
			continue
		}
		if _, ok := functions[name]; ok {
			continue
		}
		names = append(names, name)
	}
	return names
}
