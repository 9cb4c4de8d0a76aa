package rules

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapEvaluationErrorCreatesMetadata(t *testing.T) {
	base := errors.New("boom")
	err := wrapEvaluationError("expr", "flag && missing", "user", base)

	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T", err)
	}
	if evalErr.Engine != "expr" {
		t.Fatalf("expected engine expr, got %q", evalErr.Engine)
	}
	if evalErr.Expr != "flag && missing" {
		t.Fatalf("expected expression metadata, got %q", evalErr.Expr)
	}
	if evalErr.Layer != "user" {
		t.Fatalf("expected layer metadata, got %q", evalErr.Layer)
	}
	if !errors.Is(err, base) {
		t.Fatalf("wrapped error should unwrap to base error")
	}
	if !strings.HasPrefix(err.Error(), "rules: expr evaluator") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestWrapEvaluationErrorAugmentsExisting(t *testing.T) {
	base := errors.New("compile failure")
	existing := &EvaluationError{
		Engine: "expr",
		Err:    base,
	}

	err := wrapEvaluationError("cel", "rule", "tenant", existing)
	if !errors.Is(err, base) {
		t.Fatalf("expected base error to unwrap")
	}
	if existing.Engine != "expr" {
		t.Fatalf("existing engine should not be overwritten, got %q", existing.Engine)
	}
	if existing.Expr != "rule" {
		t.Fatalf("expression should be filled, got %q", existing.Expr)
	}
	if existing.Layer != "tenant" {
		t.Fatalf("layer should be filled, got %q", existing.Layer)
	}
}

func TestWrapEvaluatorErrorPrefixesOnce(t *testing.T) {
	err := wrapEvaluatorError("js", errors.New("expression must not be empty"))
	if err.Error() != "rules: js evaluator: expression must not be empty" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if again := wrapEvaluatorError("cel", err); again != err {
		t.Fatalf("expected already prefixed error to pass through, got %v", again)
	}
	if wrapEvaluatorError("expr", nil) != nil {
		t.Fatalf("nil error should stay nil")
	}
}

func TestEvaluationErrorListsReads(t *testing.T) {
	err := &EvaluationError{
		Engine: "expr",
		Expr:   "tier == plan",
		Layer:  "merged",
		Reads: []Read{
			{Name: "tier", Layer: "user", Shadowed: 1, Found: true},
			{Name: "plan"},
		},
		Err: errors.New("mismatched types"),
	}
	want := `rules: expr evaluator expr="tier == plan" layer=merged reads=[tier@user+1 plan@missing]: mismatched types`
	if err.Error() != want {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
