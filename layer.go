package chainmap

import (
	"encoding/json"
	"iter"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Pair is a single key/value entry.
type Pair[K comparable, V any] struct {
	Key   K
	Value V
}

// Layer is an insertion-ordered mapping with unique keys. Layers are reference
// types: a *Layer handed to a LayeredMap is shared with the caller, so changes
// made through either handle are visible to both. The zero value is ready to
// use.
type Layer[K comparable, V any] struct {
	om   *orderedmap.OrderedMap[K, V]
	name string
	id   string
}

// NewLayer creates an empty layer.
func NewLayer[K comparable, V any]() *Layer[K, V] {
	return &Layer[K, V]{om: orderedmap.New[K, V]()}
}

// LayerOf creates a layer holding pairs in the given order. Later pairs
// overwrite earlier ones with the same key while keeping the first position.
func LayerOf[K comparable, V any](pairs ...Pair[K, V]) *Layer[K, V] {
	layer := NewLayer[K, V]()
	for _, pair := range pairs {
		layer.Set(pair.Key, pair.Value)
	}
	return layer
}

// LayerFromMap copies entries into a new layer. Go maps are unordered, so the
// resulting insertion order is unspecified.
func LayerFromMap[K comparable, V any](entries map[K]V) *Layer[K, V] {
	layer := NewLayer[K, V]()
	for key, value := range entries {
		layer.Set(key, value)
	}
	return layer
}

// Named sets the display name used in traces and logs and returns the layer.
func (l *Layer[K, V]) Named(name string) *Layer[K, V] {
	if l != nil {
		l.name = name
	}
	return l
}

// WithID sets a stable identifier used in traces and returns the layer.
func (l *Layer[K, V]) WithID(id string) *Layer[K, V] {
	if l != nil {
		l.id = id
	}
	return l
}

// Name returns the display name, empty when unnamed.
func (l *Layer[K, V]) Name() string {
	if l == nil {
		return ""
	}
	return l.name
}

// ID returns the layer identifier, empty when unset.
func (l *Layer[K, V]) ID() string {
	if l == nil {
		return ""
	}
	return l.id
}

// Get retrieves a value by key.
func (l *Layer[K, V]) Get(key K) (V, bool) {
	if l == nil || l.om == nil {
		var zero V
		return zero, false
	}
	return l.om.Get(key)
}

// Has reports whether key is present.
func (l *Layer[K, V]) Has(key K) bool {
	_, ok := l.Get(key)
	return ok
}

// Set stores value under key. Existing keys keep their position; new keys are
// appended.
func (l *Layer[K, V]) Set(key K, value V) {
	if l == nil {
		return
	}
	if l.om == nil {
		l.om = orderedmap.New[K, V]()
	}
	l.om.Set(key, value)
}

// Delete removes key and reports whether it was present.
func (l *Layer[K, V]) Delete(key K) bool {
	if l == nil || l.om == nil {
		return false
	}
	_, present := l.om.Delete(key)
	return present
}

// Len returns the number of entries.
func (l *Layer[K, V]) Len() int {
	if l == nil || l.om == nil {
		return 0
	}
	return l.om.Len()
}

// Clear removes every entry. Name and ID are kept.
func (l *Layer[K, V]) Clear() {
	if l == nil {
		return
	}
	l.om = orderedmap.New[K, V]()
}

// All returns an iterator over the entries in insertion order.
func (l *Layer[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		if l == nil || l.om == nil {
			return
		}
		for pair := l.om.Oldest(); pair != nil; pair = pair.Next() {
			if !yield(pair.Key, pair.Value) {
				return
			}
		}
	}
}

// Keys returns the keys in insertion order.
func (l *Layer[K, V]) Keys() []K {
	keys := make([]K, 0, l.Len())
	for key := range l.All() {
		keys = append(keys, key)
	}
	return keys
}

// Values returns the values in insertion order.
func (l *Layer[K, V]) Values() []V {
	values := make([]V, 0, l.Len())
	for _, value := range l.All() {
		values = append(values, value)
	}
	return values
}

// ToMap copies the entries into a regular Go map. The result is never nil.
func (l *Layer[K, V]) ToMap() map[K]V {
	out := make(map[K]V, l.Len())
	for key, value := range l.All() {
		out[key] = value
	}
	return out
}

// ReadOnly returns a live, read-only view of the layer.
func (l *Layer[K, V]) ReadOnly() *ReadOnlyLayer[K, V] {
	return &ReadOnlyLayer[K, V]{layer: l}
}

// MarshalJSON implements json.Marshaler. The output preserves key order.
func (l *Layer[K, V]) MarshalJSON() ([]byte, error) {
	if l == nil || l.om == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(l.om)
}

// UnmarshalJSON implements json.Unmarshaler. The insertion order matches the
// order of keys in the JSON input.
func (l *Layer[K, V]) UnmarshalJSON(data []byte) error {
	om := orderedmap.New[K, V]()
	if err := json.Unmarshal(data, &om); err != nil {
		return err
	}
	l.om = om
	return nil
}

// ReadOnlyLayer exposes a layer's contents without any mutators. The view is
// live: changes made to the underlying layer are visible through it.
type ReadOnlyLayer[K comparable, V any] struct {
	layer *Layer[K, V]
}

// Get retrieves a value by key.
func (r *ReadOnlyLayer[K, V]) Get(key K) (V, bool) {
	return r.source().Get(key)
}

// Has reports whether key is present.
func (r *ReadOnlyLayer[K, V]) Has(key K) bool {
	return r.source().Has(key)
}

// Len returns the number of entries.
func (r *ReadOnlyLayer[K, V]) Len() int {
	return r.source().Len()
}

// All returns an iterator over the entries in insertion order.
func (r *ReadOnlyLayer[K, V]) All() iter.Seq2[K, V] {
	return r.source().All()
}

// Keys returns the keys in insertion order.
func (r *ReadOnlyLayer[K, V]) Keys() []K {
	return r.source().Keys()
}

// Values returns the values in insertion order.
func (r *ReadOnlyLayer[K, V]) Values() []V {
	return r.source().Values()
}

// ToMap returns a detached copy of the entries.
func (r *ReadOnlyLayer[K, V]) ToMap() map[K]V {
	return r.source().ToMap()
}

// Name returns the underlying layer's display name.
func (r *ReadOnlyLayer[K, V]) Name() string {
	return r.source().Name()
}

// ID returns the underlying layer's identifier.
func (r *ReadOnlyLayer[K, V]) ID() string {
	return r.source().ID()
}

// MarshalJSON implements json.Marshaler.
func (r *ReadOnlyLayer[K, V]) MarshalJSON() ([]byte, error) {
	return r.source().MarshalJSON()
}

func (r *ReadOnlyLayer[K, V]) source() *Layer[K, V] {
	if r == nil {
		return nil
	}
	return r.layer
}
