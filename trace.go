package chainmap

import (
	"encoding/json"
)

// Trace captures, for a single key, what every layer holds and which layer
// supplied the effective value.
type Trace struct {
	Key      any          `json:"key"`
	Layers   []Provenance `json:"layers"`
	Resolved int          `json:"resolved"`
}

// Provenance details how one layer contributed to a traced key.
type Provenance struct {
	Index     int    `json:"index"`
	Name      string `json:"name,omitempty"`
	LayerID   string `json:"layer_id,omitempty"`
	Value     any    `json:"value,omitempty"`
	Found     bool   `json:"found"`
	Effective bool   `json:"effective"`
}

// Value returns the effective value, or false when no layer holds the key.
func (t Trace) Value() (any, bool) {
	if t.Resolved < 0 || t.Resolved >= len(t.Layers) {
		return nil, false
	}
	return t.Layers[t.Resolved].Value, true
}

// Shadowed returns the layers that hold the key without supplying it.
func (t Trace) Shadowed() []Provenance {
	var out []Provenance
	for _, layer := range t.Layers {
		if layer.Found && !layer.Effective {
			out = append(out, layer)
		}
	}
	return out
}

// ToJSON serialises the trace into JSON for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a JSON payload that was previously generated via
// ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}

// Trace reports, layer by layer, whether key is present and which layer's
// value Get would return. Resolved is -1 when no layer holds key.
func (m *LayeredMap[K, V]) Trace(key K) Trace {
	trace := Trace{Key: key, Resolved: -1}
	for index, view := range m.Layers() {
		entry := Provenance{
			Index:   index,
			Name:    view.Name(),
			LayerID: view.ID(),
		}
		if value, ok := view.Get(key); ok {
			entry.Found = true
			entry.Value = value
			if trace.Resolved < 0 {
				trace.Resolved = index
				entry.Effective = true
			}
		}
		trace.Layers = append(trace.Layers, entry)
	}
	return trace
}
