// Package rules evaluates expressions against a LayeredMap. Variables resolve
// on demand through the map's precedence rules, and every evaluation records
// which layer supplied each variable it read. The default engine is
// expr-lang; CEL and JavaScript (built with the js_eval tag) engines are
// available through Evaluator implementations.
package rules

import (
	"fmt"
	"time"
)

// RuleContext carries inputs needed when evaluating an expression. Variables
// come from Resolver, or from the top-level keys of Snapshot when Resolver is
// nil. Args, Metadata and Now are exposed as args, metadata and now, and a
// bound Layer as layer; these names take precedence over resolved variables.
type RuleContext struct {
	Snapshot any
	Resolver Resolver
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
	Layer    LayerRef
}

// LayerRef identifies the single layer an evaluation runs against. Bound is
// false for merged views and for contexts that do not concern a layer.
type LayerRef struct {
	Index int
	Name  string
	ID    string
	Bound bool
}

// BoundLayer returns a LayerRef for the layer at index.
func BoundLayer(index int, name, id string) LayerRef {
	return LayerRef{Index: index, Name: name, ID: id, Bound: true}
}

// mergedLayer marks a context resolved across every layer.
var mergedLayer = LayerRef{Index: -1}

var reservedNames = map[string]struct{}{
	"now":      {},
	"args":     {},
	"metadata": {},
	"layer":    {},
}

func isReserved(name string) bool {
	_, ok := reservedNames[name]
	return ok
}

func (ctx RuleContext) withDefaults() RuleContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) resolver() Resolver {
	if ctx.Resolver != nil {
		return ctx.Resolver
	}
	return NewMapResolver(snapshotAsMap(ctx.Snapshot))
}

func (ctx RuleContext) layerLabel() string {
	switch {
	case ctx.Layer.Name != "":
		return ctx.Layer.Name
	case ctx.Layer.Bound:
		return fmt.Sprintf("#%d", ctx.Layer.Index)
	case ctx.Layer.Index < 0:
		return "merged"
	default:
		return "unknown"
	}
}

// builtins returns the reserved variables of ctx, which must have defaults
// applied.
func (ctx RuleContext) builtins() map[string]any {
	vars := map[string]any{
		"now":      *ctx.Now,
		"args":     ctx.Args,
		"metadata": ctx.Metadata,
	}
	if ctx.Layer.Bound {
		vars["layer"] = map[string]any{
			"index": ctx.Layer.Index,
			"name":  ctx.Layer.Name,
			"id":    ctx.Layer.ID,
		}
	}
	return vars
}

func snapshotAsMap(value any) map[string]any {
	if m, ok := value.(map[string]any); ok && m != nil {
		return m
	}
	return map[string]any{}
}

// Response stores a typed result produced by an evaluator.
type Response[T any] struct {
	Value T
	Reads []Read
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

// ProgramCache stores compiled expression programs keyed by expression strings.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}
