package chainmap

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func pairs(kv ...any) []Pair[string, int] {
	out := make([]Pair[string, int], 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, Pair[string, int]{Key: kv[i].(string), Value: kv[i+1].(int)})
	}
	return out
}

func layerOf(kv ...any) *Layer[string, int] {
	return LayerOf(pairs(kv...)...)
}

func TestGetResolvesByPrecedence(t *testing.T) {
	m := New(layerOf("a", 1), layerOf("a", 2, "b", 3), layerOf("b", 4, "c", 5))

	cases := map[string]int{"a": 1, "b": 3, "c": 5}
	for key, want := range cases {
		got, err := m.Get(key)
		if err != nil {
			t.Fatalf("get %s: %v", key, err)
		}
		if got != want {
			t.Fatalf("get %s: expected %d, got %d", key, want, got)
		}
	}

	_, err := m.Get("missing")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
	var keyErr *KeyError
	if !errors.As(err, &keyErr) || keyErr.Op != "get" || keyErr.Key != "missing" {
		t.Fatalf("expected KeyError metadata, got %#v", err)
	}
	if _, ok := m.TryGet("missing"); ok {
		t.Fatalf("TryGet should miss")
	}
}

func TestNewWithoutLayers(t *testing.T) {
	m := New[string, int]()
	if m.LayerCount() != 1 || m.Count() != 0 {
		t.Fatalf("expected a single empty layer, got layers=%d count=%d", m.LayerCount(), m.Count())
	}

	nilPrimary := New[string, int](nil, layerOf("a", 1), nil)
	if nilPrimary.LayerCount() != 2 {
		t.Fatalf("nil secondaries should be skipped, got %d layers", nilPrimary.LayerCount())
	}
	if !nilPrimary.Set("a", 9) || nilPrimary.MainLayer().Len() != 1 {
		t.Fatalf("expected promotion into an empty primary layer")
	}
}

func TestLayersAreShared(t *testing.T) {
	primary := layerOf("a", 1)
	secondary := layerOf("b", 2)
	m := New(primary, secondary)

	secondary.Set("c", 3)
	if got, _ := m.TryGet("c"); got != 3 {
		t.Fatalf("expected caller mutation to be visible, got %d", got)
	}
	if err := m.Add("d", 4); err != nil {
		t.Fatalf("add: %v", err)
	}
	if !primary.Has("d") {
		t.Fatalf("expected Add to write through to caller-held primary layer")
	}
	if m.MainLayer() != primary {
		t.Fatalf("MainLayer should return the primary layer itself")
	}
}

func TestSetPromotesIntoPrimary(t *testing.T) {
	secondary := layerOf("x", 10)
	m := New(NewLayer[string, int](), secondary)

	if !m.Set("x", 20) {
		t.Fatalf("expected promotion to report a write")
	}
	if got, _ := m.Get("x"); got != 20 {
		t.Fatalf("expected promoted value 20, got %d", got)
	}
	if got, _ := m.MainLayer().Get("x"); got != 20 {
		t.Fatalf("expected primary to hold 20, got %d", got)
	}
	if got, _ := secondary.Get("x"); got != 10 {
		t.Fatalf("secondary must keep 10, got %d", got)
	}
}

func TestSetOverwritesPrimary(t *testing.T) {
	m := New(layerOf("x", 1), layerOf("x", 2))
	if !m.Set("x", 3) {
		t.Fatalf("expected overwrite to report a write")
	}
	if got, _ := m.Get("x"); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestSetNewKeyIsNoop(t *testing.T) {
	m := New(layerOf("a", 1), layerOf("b", 2))
	before := m.Count()

	if m.Set("new", 1) {
		t.Fatalf("expected Set on an unknown key to report no write")
	}
	if m.ContainsKey("new") {
		t.Fatalf("Set must not create keys")
	}
	if m.Count() != before {
		t.Fatalf("count changed from %d to %d", before, m.Count())
	}
}

func TestAddAndTryAdd(t *testing.T) {
	m := New(layerOf("a", 1), layerOf("b", 2))

	err := m.Add("a", 5)
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	if got, _ := m.Get("a"); got != 1 {
		t.Fatalf("failed Add must not change the value, got %d", got)
	}
	if m.TryAdd("a", 5) {
		t.Fatalf("TryAdd should report a duplicate")
	}

	if err := m.Add("b", 20); err != nil {
		t.Fatalf("adding a secondary-only key should succeed: %v", err)
	}
	if got, _ := m.Get("b"); got != 20 {
		t.Fatalf("added key should shadow the secondary, got %d", got)
	}
	if !m.TryAdd("c", 3) {
		t.Fatalf("TryAdd should insert a new key")
	}
}

func TestRemoveOnlyTouchesPrimary(t *testing.T) {
	m := New(layerOf("k", 1), layerOf("k", 2, "s", 3))

	if !m.Remove("k") {
		t.Fatalf("expected primary removal")
	}
	if got, _ := m.Get("k"); got != 2 {
		t.Fatalf("expected secondary value to resurface, got %d", got)
	}
	if m.Remove("s") {
		t.Fatalf("removing a secondary-only key must report false")
	}
	if !m.ContainsKey("s") {
		t.Fatalf("secondary-only key must survive Remove")
	}
}

func TestAddLayerIndexPolicy(t *testing.T) {
	a := layerOf("v", 1).Named("a")
	b := layerOf("v", 2).Named("b")
	c := layerOf("v", 3).Named("c")

	cases := []struct {
		name   string
		index  int
		expect []string
	}{
		{name: "negative appends", index: -1, expect: []string{"main", "a", "b", "c"}},
		{name: "past the end inserts at front", index: 7, expect: []string{"main", "c", "a", "b"}},
		{name: "last position inserts before last", index: 1, expect: []string{"main", "a", "c", "b"}},
		{name: "zero inserts at front", index: 0, expect: []string{"main", "c", "a", "b"}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			m := New(NewLayer[string, int]().Named("main"), a, b)
			m.AddLayer(c, tc.index)
			if diff := cmp.Diff(tc.expect, layerNames(m)); diff != "" {
				t.Fatalf("layer order mismatch (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("empty list", func(t *testing.T) {
		m := New[string, int]()
		m.AddLayer(a, 5)
		m.AddLayer(nil, 0)
		if m.SecondaryCount() != 1 {
			t.Fatalf("expected 1 secondary layer, got %d", m.SecondaryCount())
		}
	})
}

func TestAddLayerAffectsResolution(t *testing.T) {
	m := New(NewLayer[string, int](), layerOf("v", 1))
	m.AddLayer(layerOf("v", 2), 0)
	if got, _ := m.Get("v"); got != 2 {
		t.Fatalf("front layer should win, got %d", got)
	}
}

func TestRemoveLayer(t *testing.T) {
	m := New(NewLayer[string, int]().Named("main"),
		layerOf("a", 1).Named("a"), layerOf("b", 2).Named("b"))

	m.RemoveLayer(5)
	m.RemoveLayer(-1)
	if m.LayerCount() != 3 {
		t.Fatalf("invalid indexes must be ignored, got %d layers", m.LayerCount())
	}

	m.RemoveLayer(0)
	if diff := cmp.Diff([]string{"main", "b"}, layerNames(m)); diff != "" {
		t.Fatalf("layer order mismatch (-want +got):\n%s", diff)
	}
	if m.ContainsKey("a") {
		t.Fatalf("removed layer should no longer resolve")
	}
}

func TestKeysValuesAndTraversal(t *testing.T) {
	m := New(layerOf("a", 1), layerOf("a", 2, "b", 3))

	var traversal []Pair[string, int]
	for key, value := range m.All() {
		traversal = append(traversal, Pair[string, int]{Key: key, Value: value})
	}
	if diff := cmp.Diff(pairs("a", 1, "a", 2, "b", 3), traversal); diff != "" {
		t.Fatalf("raw traversal mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "b"}, m.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, m.Values()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if m.Count() != 3 {
		t.Fatalf("expected count 3, got %d", m.Count())
	}
}

func TestValuesDeduplicates(t *testing.T) {
	m := New(layerOf("a", 1, "b", 1), layerOf("c", 2, "d", 1))
	if diff := cmp.Diff([]int{1, 2}, m.Values()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestTraversalStopsEarly(t *testing.T) {
	m := New(layerOf("a", 1, "b", 2), layerOf("c", 3))
	seen := 0
	for range m.All() {
		seen++
		if seen == 2 {
			break
		}
	}
	if seen != 2 {
		t.Fatalf("expected to stop after 2 entries, got %d", seen)
	}
}

func TestContainsValueSeesShadowedValues(t *testing.T) {
	m := New(layerOf("a", 1), layerOf("a", 2))
	if !m.ContainsValue(2) {
		t.Fatalf("shadowed value should be found")
	}
	if m.ContainsValue(3) {
		t.Fatalf("absent value should not be found")
	}
}

func TestMergeMatchesGet(t *testing.T) {
	m := New(layerOf("a", 1, "c", 9), layerOf("a", 2, "b", 3), layerOf("b", 4, "d", 5))

	merged := m.Merge()
	if len(merged) != len(m.Keys()) {
		t.Fatalf("merge should hold every key once, got %v", merged)
	}
	for _, key := range m.Keys() {
		want, _ := m.Get(key)
		if merged[key] != want {
			t.Fatalf("merge[%s]=%d, get=%d", key, merged[key], want)
		}
	}

	merged["a"] = 100
	if got, _ := m.Get("a"); got != 1 {
		t.Fatalf("mutating the merge result leaked into the map, got %d", got)
	}
}

func TestMergeDetachesNestedValues(t *testing.T) {
	nested := map[string]any{"host": "db"}
	m := New(LayerOf(Pair[string, any]{Key: "database", Value: nested}))

	merged := m.Merge()
	merged["database"].(map[string]any)["host"] = "changed"
	if nested["host"] != "db" {
		t.Fatalf("merge result shares nested structure with the layer")
	}
}

func TestMergeLayerKeepsOrder(t *testing.T) {
	m := New(layerOf("z", 1), layerOf("a", 2, "z", 3), layerOf("m", 4))
	layer := m.MergeLayer()
	if diff := cmp.Diff([]string{"z", "a", "m"}, layer.Keys()); diff != "" {
		t.Fatalf("merged layer order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 2, 4}, layer.Values()); diff != "" {
		t.Fatalf("merged layer values mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeDeepCombinesNestedMaps(t *testing.T) {
	user := LayerOf(Pair[string, any]{Key: "db", Value: map[string]any{"pool": 20}})
	defaults := LayerOf(
		Pair[string, any]{Key: "db", Value: map[string]any{"host": "localhost", "pool": 5}},
		Pair[string, any]{Key: "debug", Value: false},
	)
	m := New(user, defaults)

	want := map[string]any{
		"db":    map[string]any{"host": "localhost", "pool": 20},
		"debug": false,
	}
	if diff := cmp.Diff(want, m.MergeDeep()); diff != "" {
		t.Fatalf("deep merge mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"db": map[string]any{"pool": 20}, "debug": false}, m.Merge()); diff != "" {
		t.Fatalf("shallow merge mismatch (-want +got):\n%s", diff)
	}
}

func TestClearAndClearAll(t *testing.T) {
	secondary := layerOf("b", 2)
	m := New(layerOf("a", 1), secondary)

	m.Clear()
	if m.ContainsKey("a") || !m.ContainsKey("b") || m.LayerCount() != 2 {
		t.Fatalf("Clear should only empty the primary layer")
	}

	m.Add("a", 1)
	m.ClearAll()
	if m.Count() != 0 || m.LayerCount() != 1 {
		t.Fatalf("ClearAll should leave one empty layer, got count=%d layers=%d", m.Count(), m.LayerCount())
	}
	if !secondary.Has("b") {
		t.Fatalf("ClearAll must not empty dropped layers")
	}
}

func TestCountSumsLayerSizes(t *testing.T) {
	m := New(layerOf("a", 1, "b", 2), layerOf("a", 3), layerOf("c", 4, "d", 5, "e", 6))
	if m.Count() != 6 {
		t.Fatalf("expected count 6, got %d", m.Count())
	}
	if m.LayerCount() != 3 || m.SecondaryCount() != 2 {
		t.Fatalf("unexpected layer counts %d/%d", m.LayerCount(), m.SecondaryCount())
	}
}

func TestLayerAccessors(t *testing.T) {
	m := New(layerOf("a", 1).Named("main"), layerOf("b", 2).Named("defaults"))

	view, err := m.Layer(1)
	if err != nil {
		t.Fatalf("layer 1: %v", err)
	}
	if view.Name() != "defaults" || !view.Has("b") {
		t.Fatalf("unexpected layer view %s", view.Name())
	}

	for _, index := range []int{-1, 2} {
		_, err := m.Layer(index)
		var indexErr *IndexError
		if !errors.As(err, &indexErr) || !errors.Is(err, ErrIndexOutOfRange) {
			t.Fatalf("index %d: expected IndexError, got %v", index, err)
		}
		if indexErr.Len != 2 {
			t.Fatalf("expected layer count in error, got %d", indexErr.Len)
		}
	}
}

func layerNames[K comparable, V any](m *LayeredMap[K, V]) []string {
	var names []string
	for _, view := range m.Layers() {
		names = append(names, view.Name())
	}
	return names
}

type chainNode struct {
	Name string
	Next *chainNode
}

func TestMergeCopiesCyclicValues(t *testing.T) {
	ring := &chainNode{Name: "ring"}
	ring.Next = ring
	m := New(LayerOf(Pair[string, any]{Key: "ring", Value: ring}))

	merged := m.Merge()
	clone, ok := merged["ring"].(*chainNode)
	if !ok {
		t.Fatalf("expected *chainNode, got %T", merged["ring"])
	}
	if clone == ring || clone.Next != clone {
		t.Fatalf("expected a detached copy that keeps the cycle")
	}
	if layer := m.MergeLayer(); layer.Len() != 1 {
		t.Fatalf("merge layer should hold the ring, got %d entries", layer.Len())
	}
	deep := m.MergeDeep()
	if node, _ := deep["ring"].(*chainNode); node == nil || node.Next != node {
		t.Fatalf("deep merge should keep the cycle, got %#v", deep["ring"])
	}
}
