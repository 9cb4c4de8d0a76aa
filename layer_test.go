package chainmap

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLayerKeepsInsertionOrder(t *testing.T) {
	layer := NewLayer[string, int]()
	layer.Set("b", 1)
	layer.Set("a", 2)
	layer.Set("b", 3)

	if diff := cmp.Diff([]string{"b", "a"}, layer.Keys()); diff != "" {
		t.Fatalf("key order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{3, 2}, layer.Values()); diff != "" {
		t.Fatalf("value mismatch (-want +got):\n%s", diff)
	}
	if !layer.Delete("b") || layer.Delete("b") {
		t.Fatalf("Delete should report presence once")
	}
	if layer.Len() != 1 {
		t.Fatalf("expected len 1, got %d", layer.Len())
	}
}

func TestZeroLayerIsUsable(t *testing.T) {
	var layer Layer[string, int]
	if _, ok := layer.Get("a"); ok {
		t.Fatalf("zero layer should be empty")
	}
	layer.Set("a", 1)
	if got, _ := layer.Get("a"); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	if m := NewLayer[string, int]().ToMap(); m == nil {
		t.Fatalf("ToMap should never return nil")
	}
}

func TestLayerClearKeepsIdentity(t *testing.T) {
	layer := layerOf("a", 1).Named("defaults").WithID("id-1")
	view := layer.ReadOnly()
	layer.Clear()

	if view.Len() != 0 {
		t.Fatalf("read-only view should observe Clear")
	}
	if layer.Name() != "defaults" || layer.ID() != "id-1" {
		t.Fatalf("Clear should keep name and id, got %q/%q", layer.Name(), layer.ID())
	}
}

func TestReadOnlyLayerIsLive(t *testing.T) {
	layer := layerOf("a", 1)
	view := layer.ReadOnly()
	layer.Set("b", 2)

	if !view.Has("b") || view.Len() != 2 {
		t.Fatalf("view should reflect writes to the layer")
	}
	if diff := cmp.Diff(map[string]int{"a": 1, "b": 2}, view.ToMap()); diff != "" {
		t.Fatalf("view map mismatch (-want +got):\n%s", diff)
	}
}

func TestLayerJSONRoundTripKeepsOrder(t *testing.T) {
	var layer Layer[string, any]
	if err := json.Unmarshal([]byte(`{"zeta":1,"alpha":{"x":true},"mid":"m"}`), &layer); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff([]string{"zeta", "alpha", "mid"}, layer.Keys()); diff != "" {
		t.Fatalf("key order mismatch (-want +got):\n%s", diff)
	}

	payload, err := json.Marshal(&layer)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(payload) != `{"zeta":1,"alpha":{"x":true},"mid":"m"}` {
		t.Fatalf("unexpected payload %s", payload)
	}
}

func TestLayerFromMap(t *testing.T) {
	layer := LayerFromMap(map[string]int{"a": 1, "b": 2})
	if diff := cmp.Diff(map[string]int{"a": 1, "b": 2}, layer.ToMap()); diff != "" {
		t.Fatalf("map mismatch (-want +got):\n%s", diff)
	}
}
