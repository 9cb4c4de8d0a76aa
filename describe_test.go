package chainmap

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDescribeFlattensResolvedView(t *testing.T) {
	user := stringLayer("port", 9090).Named("user")
	defaults := stringLayer(
		"port", 8080,
		"db", map[string]any{"host": "localhost", "pool": 5},
		"tags", []any{"a"},
		"empty", map[string]any{},
	)
	m := New(user, defaults)

	want := []FieldDescriptor{
		{Path: "db.host", Type: "string", Layer: "#1"},
		{Path: "db.pool", Type: "int", Layer: "#1"},
		{Path: "empty", Type: "map[string]any", Layer: "#1"},
		{Path: "port", Type: "int", Layer: "user"},
		{Path: "tags", Type: "[]string", Layer: "#1"},
	}
	if diff := cmp.Diff(want, Describe(m)); diff != "" {
		t.Fatalf("descriptor mismatch (-want +got):\n%s", diff)
	}
	if got := Describe(nil); len(got) != 0 {
		t.Fatalf("nil map should describe nothing, got %v", got)
	}
}
