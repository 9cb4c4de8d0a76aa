//go:build !js_eval

package rules

// NewJSEvaluator returns nil unless built with the js_eval tag.
func NewJSEvaluator(opts ...EngineOption) Evaluator {
	_ = applyEngineOptions(opts)
	return nil
}

// JSEvaluatorAvailable reports whether the goja engine was compiled in.
func JSEvaluatorAvailable() bool {
	return false
}

func jsEngineName(Evaluator) string {
	return ""
}
