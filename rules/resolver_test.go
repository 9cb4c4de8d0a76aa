package rules

import (
	"sort"
	"testing"

	chainmap "github.com/goliatone/go-chainmap"
	"github.com/google/go-cmp/cmp"
)

func TestLayeredResolverFollowsPrecedence(t *testing.T) {
	m := chainmap.New(
		chainmap.LayerFromMap(map[string]any{"tier": "pro"}).Named("user"),
		chainmap.LayerFromMap(map[string]any{"tier": "free", "region": "eu"}),
	)
	resolver := NewLayeredResolver(m)

	if value, ok := resolver.Resolve("tier"); !ok || value != "pro" {
		t.Fatalf("expected tier pro, got %v %v", value, ok)
	}
	if value, ok := resolver.Resolve("region"); !ok || value != "eu" {
		t.Fatalf("expected region eu, got %v %v", value, ok)
	}
	if _, ok := resolver.Resolve("missing"); ok {
		t.Fatalf("expected missing key to be unresolved")
	}

	names := resolver.Names()
	sort.Strings(names)
	if diff := cmp.Diff([]string{"region", "tier"}, names); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}

	want := []Read{
		{Name: "tier", Layer: "user", Shadowed: 1, Found: true},
		{Name: "region", Layer: "#1", Found: true},
		{Name: "missing"},
	}
	if diff := cmp.Diff(want, resolver.(readTracker).Reads()); diff != "" {
		t.Fatalf("reads mismatch (-want +got):\n%s", diff)
	}
}

func TestLayeredResolverSeesLaterWrites(t *testing.T) {
	m := chainmap.New(chainmap.LayerFromMap(map[string]any{"tier": "free"}))
	resolver := NewLayeredResolver(m)

	m.Set("tier", "pro")
	if value, _ := resolver.Resolve("tier"); value != "pro" {
		t.Fatalf("expected resolver to read the current value, got %v", value)
	}
}

func TestResolverReturnsCopies(t *testing.T) {
	limits := map[string]any{"requests": 100}
	m := chainmap.New(chainmap.LayerFromMap(map[string]any{"limits": limits}))

	value, ok := NewLayeredResolver(m).Resolve("limits")
	if !ok {
		t.Fatalf("expected limits to resolve")
	}
	value.(map[string]any)["requests"] = 0
	if limits["requests"] != 100 {
		t.Fatalf("resolved value aliases the layer")
	}

	view, err := m.Layer(0)
	if err != nil {
		t.Fatalf("layer: %v", err)
	}
	value, _ = NewLayerResolver(view, BoundLayer(0, "", "")).Resolve("limits")
	value.(map[string]any)["requests"] = 0
	if limits["requests"] != 100 {
		t.Fatalf("layer resolved value aliases the layer")
	}
}

func TestLayerResolverRecordsEachNameOnce(t *testing.T) {
	m := chainmap.New(
		chainmap.LayerFromMap(map[string]any{"tier": "pro"}),
		chainmap.LayerFromMap(map[string]any{"region": "eu"}).Named("defaults"),
	)
	view, err := m.Layer(1)
	if err != nil {
		t.Fatalf("layer: %v", err)
	}
	resolver := NewLayerResolver(view, BoundLayer(1, view.Name(), view.ID()))

	for i := 0; i < 3; i++ {
		resolver.Resolve("region")
	}
	if _, ok := resolver.Resolve("tier"); ok {
		t.Fatalf("expected tier to be invisible from the defaults layer")
	}

	want := []Read{
		{Name: "region", Layer: "defaults", Found: true},
		{Name: "tier"},
	}
	if diff := cmp.Diff(want, resolver.(readTracker).Reads()); diff != "" {
		t.Fatalf("reads mismatch (-want +got):\n%s", diff)
	}
}

func TestReadString(t *testing.T) {
	cases := map[string]Read{
		"tier@user+2":  {Name: "tier", Layer: "user", Shadowed: 2, Found: true},
		"region@#1":    {Name: "region", Layer: "#1", Found: true},
		"plan@missing": {Name: "plan"},
	}
	for want, read := range cases {
		if got := read.String(); got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	}
}

func TestRuleContextLayerLabel(t *testing.T) {
	cases := map[string]RuleContext{
		"#0":      {Layer: BoundLayer(0, "", "")},
		"user":    {Layer: BoundLayer(0, "user", "")},
		"merged":  {Layer: mergedLayer},
		"unknown": {},
	}
	for want, ctx := range cases {
		if got := ctx.layerLabel(); got != want {
			t.Fatalf("expected label %q, got %q", want, got)
		}
	}
	if _, ok := (RuleContext{}).withDefaults().builtins()["layer"]; ok {
		t.Fatalf("unbound context should not expose layer")
	}
	layer, ok := RuleContext{Layer: BoundLayer(0, "", "")}.withDefaults().builtins()["layer"].(map[string]any)
	if !ok || layer["index"] != 0 {
		t.Fatalf("expected bound primary layer binding, got %#v", layer)
	}
}
