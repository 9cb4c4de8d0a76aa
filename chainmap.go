// Package chainmap provides LayeredMap, a primary mapping plus an ordered list
// of secondary mappings queried as a single logical mapping. The primary layer
// shadows every secondary layer and earlier secondary layers shadow later
// ones.
//
// Writes are scoped to the primary layer: Add, Remove and Clear never touch a
// secondary layer, and Set only promotes a new value into the primary layer
// when some layer already holds the key. Layers are shared by reference and
// never copied, so changes made through a caller-held *Layer are visible
// immediately. LayeredMap performs no locking; callers serialise access.
package chainmap

import (
	"iter"

	"github.com/emirpasic/gods/v2/lists/arraylist"

	"github.com/goliatone/go-chainmap/layering"
)

// LayeredMap resolves keys across a primary layer and an ordered list of
// secondary layers.
type LayeredMap[K comparable, V any] struct {
	primary     *Layer[K, V]
	secondaries *arraylist.List[*Layer[K, V]]
	cfg         config
}

// New builds a LayeredMap. The first layer becomes the primary layer and is
// used directly; the rest become secondary layers in the given order. With no
// layers (or a nil first layer) the primary layer starts empty. Nil secondary
// layers are skipped.
func New[K comparable, V any](layers ...*Layer[K, V]) *LayeredMap[K, V] {
	return NewWithOptions(nil, layers...)
}

// NewWithOptions is New with configuration options applied.
func NewWithOptions[K comparable, V any](opts []Option, layers ...*Layer[K, V]) *LayeredMap[K, V] {
	m := &LayeredMap[K, V]{
		secondaries: arraylist.New[*Layer[K, V]](),
		cfg:         applyOptions(opts),
	}
	if len(layers) > 0 && layers[0] != nil {
		m.primary = layers[0]
	} else {
		m.primary = NewLayer[K, V]()
	}
	if len(layers) > 1 {
		for _, layer := range layers[1:] {
			if layer != nil {
				m.secondaries.Add(layer)
			}
		}
	}
	return m
}

// Get returns the value of the highest-precedence layer holding key. The
// error wraps ErrKeyNotFound when no layer holds it.
func (m *LayeredMap[K, V]) Get(key K) (V, error) {
	if value, ok := m.TryGet(key); ok {
		return value, nil
	}
	var zero V
	return zero, &KeyError{Op: "get", Key: key, Err: ErrKeyNotFound}
}

// TryGet is Get reporting a miss with false instead of an error.
func (m *LayeredMap[K, V]) TryGet(key K) (V, bool) {
	if value, ok := m.main().Get(key); ok {
		return value, true
	}
	for _, layer := range m.secondaryLayers() {
		if value, ok := layer.Get(key); ok {
			return value, true
		}
	}
	var zero V
	return zero, false
}

// ContainsKey reports whether any layer holds key.
func (m *LayeredMap[K, V]) ContainsKey(key K) bool {
	_, ok := m.TryGet(key)
	return ok
}

// ContainsValue reports whether any layer holds value, shadowed entries
// included, using the configured value equality.
func (m *LayeredMap[K, V]) ContainsValue(value V) bool {
	equal := m.settings().equal
	for _, candidate := range m.All() {
		if equal(candidate, value) {
			return true
		}
	}
	return false
}

// Add inserts key into the primary layer. Secondary layers are not consulted,
// so a key held only by a secondary layer can be added and will shadow it. The
// error wraps ErrDuplicateKey when the primary layer already holds key, in
// which case nothing changes.
func (m *LayeredMap[K, V]) Add(key K, value V) error {
	if !m.TryAdd(key, value) {
		return &KeyError{Op: "add", Key: key, Err: ErrDuplicateKey}
	}
	return nil
}

// TryAdd is Add reporting a duplicate with false instead of an error.
func (m *LayeredMap[K, V]) TryAdd(key K, value V) bool {
	primary := m.main()
	if primary.Has(key) {
		return false
	}
	primary.Set(key, value)
	return true
}

// Set overwrites key in the primary layer when the primary layer holds it.
// When only secondary layers hold key, value is written into the primary layer
// and the secondary entries are left untouched. When no layer holds key, Set
// does nothing. It reports whether a write happened.
func (m *LayeredMap[K, V]) Set(key K, value V) bool {
	primary := m.main()
	if primary.Has(key) {
		primary.Set(key, value)
		return true
	}
	for i, layer := range m.secondaryLayers() {
		if layer.Has(key) {
			primary.Set(key, value)
			m.log(Event{Op: "set.promote", Key: key, Layer: i + 1})
			return true
		}
	}
	m.log(Event{Op: "set.noop", Key: key, Layer: -1})
	return false
}

// Remove deletes key from the primary layer and reports whether it was there.
// Secondary layers keep their entries, so key may still resolve afterwards.
func (m *LayeredMap[K, V]) Remove(key K) bool {
	return m.main().Delete(key)
}

// AddLayer inserts a secondary layer. A negative index appends; an index past
// the last secondary position inserts at the front; any other index inserts at
// that position, shifting later layers back. Nil layers are ignored.
func (m *LayeredMap[K, V]) AddLayer(layer *Layer[K, V], index int) {
	if layer == nil {
		return
	}
	list := m.list()
	position := index
	switch {
	case index < 0:
		position = list.Size()
		list.Add(layer)
	case index > list.Size()-1:
		position = 0
		list.Insert(0, layer)
	default:
		list.Insert(index, layer)
	}
	m.log(Event{Op: "layer.add", Layer: position + 1})
}

// RemoveLayer removes the secondary layer at index. Indexes outside the
// secondary list are ignored.
func (m *LayeredMap[K, V]) RemoveLayer(index int) {
	list := m.list()
	if index < 0 || index >= list.Size() {
		m.log(Event{Op: "layer.remove.ignored", Layer: index + 1, Err: &IndexError{
			Op: "remove_layer", Index: index, Len: list.Size(), Err: ErrIndexOutOfRange,
		}})
		return
	}
	list.Remove(index)
	m.log(Event{Op: "layer.remove", Layer: index + 1})
}

// Keys returns every key held by any layer once, in order of first appearance
// across the primary layer and then the secondary layers.
func (m *LayeredMap[K, V]) Keys() []K {
	seen := make(map[K]struct{}, m.main().Len())
	keys := make([]K, 0, m.main().Len())
	for key := range m.All() {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

// Values returns every value held by any layer once, shadowed values included,
// in order of first appearance. Duplicates are detected with the configured
// value equality.
func (m *LayeredMap[K, V]) Values() []V {
	equal := m.settings().equal
	values := make([]V, 0, m.main().Len())
	for _, value := range m.All() {
		duplicate := false
		for _, existing := range values {
			if equal(existing, value) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			values = append(values, value)
		}
	}
	return values
}

// Count returns the total number of entries across all layers. Keys present in
// several layers are counted once per layer.
func (m *LayeredMap[K, V]) Count() int {
	count := m.main().Len()
	for _, layer := range m.secondaryLayers() {
		count += layer.Len()
	}
	return count
}

// LayerCount returns the number of layers, primary included.
func (m *LayeredMap[K, V]) LayerCount() int {
	return 1 + m.SecondaryCount()
}

// SecondaryCount returns the number of secondary layers.
func (m *LayeredMap[K, V]) SecondaryCount() int {
	return m.list().Size()
}

// Merge resolves every key once and returns the result as a new map. Values
// are deep copies, so the result shares no structure with any layer.
func (m *LayeredMap[K, V]) Merge() map[K]V {
	out := make(map[K]V, m.Count())
	for key, value := range m.All() {
		if _, seen := out[key]; seen {
			continue
		}
		out[key] = layering.Clone(value)
	}
	return out
}

// MergeLayer is Merge returning an insertion-ordered layer. Keys appear in the
// order of their first appearance across the layers.
func (m *LayeredMap[K, V]) MergeLayer() *Layer[K, V] {
	out := NewLayer[K, V]()
	for key, value := range m.All() {
		if out.Has(key) {
			continue
		}
		out.Set(key, layering.Clone(value))
	}
	return out
}

// MergeDeep is Merge where values of the same key are combined across layers
// instead of replaced: nested maps merge key by key and structs field by field,
// with stronger layers winning conflicts.
func (m *LayeredMap[K, V]) MergeDeep() map[K]V {
	snapshots := make([]map[K]V, 0, m.LayerCount())
	snapshots = append(snapshots, m.main().ToMap())
	for _, layer := range m.secondaryLayers() {
		snapshots = append(snapshots, layer.ToMap())
	}
	return layering.MergeLayers(snapshots...)
}

// Clear empties the primary layer. Secondary layers are untouched.
func (m *LayeredMap[K, V]) Clear() {
	m.main().Clear()
	m.log(Event{Op: "clear", Layer: 0})
}

// ClearAll empties the primary layer and drops every secondary layer. The
// dropped layers themselves keep their contents.
func (m *LayeredMap[K, V]) ClearAll() {
	m.main().Clear()
	m.list().Clear()
	m.log(Event{Op: "clear_all", Layer: -1})
}

// Layers returns read-only views of every layer, primary first.
func (m *LayeredMap[K, V]) Layers() []*ReadOnlyLayer[K, V] {
	secondaries := m.secondaryLayers()
	views := make([]*ReadOnlyLayer[K, V], 0, 1+len(secondaries))
	views = append(views, m.main().ReadOnly())
	for _, layer := range secondaries {
		views = append(views, layer.ReadOnly())
	}
	return views
}

// Layer returns a read-only view of the layer at index across the full list
// (0 = primary). The error wraps ErrIndexOutOfRange for invalid indexes.
func (m *LayeredMap[K, V]) Layer(index int) (*ReadOnlyLayer[K, V], error) {
	if index == 0 {
		return m.main().ReadOnly(), nil
	}
	layer, ok := m.list().Get(index - 1)
	if index < 0 || !ok {
		return nil, &IndexError{Op: "layer", Index: index, Len: m.LayerCount(), Err: ErrIndexOutOfRange}
	}
	return layer.ReadOnly(), nil
}

// MainLayer returns the primary layer itself. Writes through it bypass Add and
// Set.
func (m *LayeredMap[K, V]) MainLayer() *Layer[K, V] {
	return m.main()
}

// All iterates over the primary layer's entries followed by each secondary
// layer's entries, in insertion order. Keys held by several layers are yielded
// once per layer.
func (m *LayeredMap[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for key, value := range m.main().All() {
			if !yield(key, value) {
				return
			}
		}
		for _, layer := range m.secondaryLayers() {
			for key, value := range layer.All() {
				if !yield(key, value) {
					return
				}
			}
		}
	}
}

func (m *LayeredMap[K, V]) main() *Layer[K, V] {
	if m.primary == nil {
		m.primary = NewLayer[K, V]()
	}
	return m.primary
}

func (m *LayeredMap[K, V]) list() *arraylist.List[*Layer[K, V]] {
	if m.secondaries == nil {
		m.secondaries = arraylist.New[*Layer[K, V]]()
	}
	return m.secondaries
}

func (m *LayeredMap[K, V]) secondaryLayers() []*Layer[K, V] {
	return m.list().Values()
}

func (m *LayeredMap[K, V]) settings() config {
	if m.cfg.equal == nil || m.cfg.logger == nil {
		m.cfg = applyOptions(nil)
	}
	return m.cfg
}

func (m *LayeredMap[K, V]) log(event Event) {
	m.settings().logger.LogEvent(event)
}
