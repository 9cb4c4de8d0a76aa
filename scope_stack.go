package chainmap

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Scope models a named precedence bucket (system, tenant, user, etc.). Higher
// priority values represent stronger layers.
type Scope struct {
	Name     string
	Label    string
	Priority int
	Metadata map[string]any
}

// ScopeOption configures metadata on Scope creation.
type ScopeOption func(*scopeConfig)

type scopeConfig struct {
	label    string
	metadata map[string]any
}

// WithScopeLabel sets a human-friendly label on the scope.
func WithScopeLabel(label string) ScopeOption {
	return func(cfg *scopeConfig) {
		cfg.label = label
	}
}

// WithScopeMetadata attaches arbitrary metadata to the scope. The map is copied
// so the resulting Scope remains immutable even if the caller mutates their
// reference.
func WithScopeMetadata(metadata map[string]any) ScopeOption {
	return func(cfg *scopeConfig) {
		if len(metadata) == 0 {
			return
		}
		cfg.metadata = copyMetadata(metadata)
	}
}

// NewScope builds a Scope with the supplied configuration. Validation is
// deferred to Stack construction so callers can assemble scopes before deciding
// precedence.
func NewScope(name string, priority int, opts ...ScopeOption) Scope {
	cfg := scopeConfig{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	return Scope{
		Name:     name,
		Label:    cfg.label,
		Priority: priority,
		Metadata: copyMetadata(cfg.metadata),
	}
}

func (s Scope) clone() Scope {
	return Scope{
		Name:     s.Name,
		Label:    s.Label,
		Priority: s.Priority,
		Metadata: copyMetadata(s.Metadata),
	}
}

// ScopedLayer pairs a scope with the layer holding that scope's entries. The
// layer is shared, not copied.
type ScopedLayer[K comparable, V any] struct {
	Scope   Scope
	Layer   *Layer[K, V]
	LayerID string
}

// ScopedLayerOption configures optional metadata for a scoped layer.
type ScopedLayerOption[K comparable, V any] func(*ScopedLayer[K, V])

// WithLayerID sets the identifier reported by traces. Layers without one get a
// random UUID when the stack is built.
func WithLayerID[K comparable, V any](id string) ScopedLayerOption[K, V] {
	return func(layer *ScopedLayer[K, V]) {
		layer.LayerID = id
	}
}

// NewScopedLayer pairs scope with layer. A nil layer is replaced with an empty
// one.
func NewScopedLayer[K comparable, V any](scope Scope, layer *Layer[K, V], opts ...ScopedLayerOption[K, V]) ScopedLayer[K, V] {
	if layer == nil {
		layer = NewLayer[K, V]()
	}
	scoped := ScopedLayer[K, V]{
		Scope: scope.clone(),
		Layer: layer,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&scoped)
	}
	return scoped
}

var (
	// ErrScopeNameRequired indicates a missing scope name.
	ErrScopeNameRequired = errors.New("scope: name must be provided")
	// ErrDuplicateScopeName indicates Stack construction received multiple
	// layers with the same scope name.
	ErrDuplicateScopeName = errors.New("scope: names must be unique")
	// ErrPriorityOrder indicates Stack construction detected duplicate
	// priorities.
	ErrPriorityOrder = errors.New("scope: priorities must be strictly ordered")
)

// Stack is a validated set of scoped layers ordered from strongest to weakest
// precedence.
type Stack[K comparable, V any] struct {
	layers []ScopedLayer[K, V]
}

// NewStack validates and sorts the supplied layers so that the strongest scope
// (highest priority) is first. Each layer is named after its scope and gets
// its LayerID, or a fresh UUID when none was set.
func NewStack[K comparable, V any](layers ...ScopedLayer[K, V]) (*Stack[K, V], error) {
	if len(layers) == 0 {
		return &Stack[K, V]{}, nil
	}

	seenNames := make(map[string]struct{}, len(layers))
	ordered := make([]ScopedLayer[K, V], len(layers))
	for i, layer := range layers {
		if layer.Scope.Name == "" {
			return nil, ErrScopeNameRequired
		}
		if _, ok := seenNames[layer.Scope.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateScopeName, layer.Scope.Name)
		}
		seenNames[layer.Scope.Name] = struct{}{}
		if layer.Layer == nil {
			layer.Layer = NewLayer[K, V]()
		}
		if layer.LayerID == "" {
			layer.LayerID = uuid.NewString()
		}
		layer.Scope = layer.Scope.clone()
		ordered[i] = layer
	}

	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Scope.Priority == ordered[j].Scope.Priority {
			return ordered[i].Scope.Name < ordered[j].Scope.Name
		}
		return ordered[i].Scope.Priority > ordered[j].Scope.Priority
	})

	for i := 1; i < len(ordered); i++ {
		if ordered[i-1].Scope.Priority <= ordered[i].Scope.Priority {
			return nil, fmt.Errorf("%w: %d", ErrPriorityOrder, ordered[i].Scope.Priority)
		}
	}

	for _, layer := range ordered {
		layer.Layer.Named(layer.Scope.Name).WithID(layer.LayerID)
	}

	return &Stack[K, V]{layers: ordered}, nil
}

// Layers returns the scoped layers from strongest to weakest. The slice is a
// copy; the layers are shared.
func (s *Stack[K, V]) Layers() []ScopedLayer[K, V] {
	if s == nil || len(s.layers) == 0 {
		return nil
	}
	out := make([]ScopedLayer[K, V], len(s.layers))
	for i := range s.layers {
		out[i] = s.layers[i]
		out[i].Scope = s.layers[i].Scope.clone()
	}
	return out
}

// Len returns the number of layers in the stack.
func (s *Stack[K, V]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.layers)
}

// Scope returns the scope of the named layer.
func (s *Stack[K, V]) Scope(name string) (Scope, bool) {
	if s == nil {
		return Scope{}, false
	}
	for _, layer := range s.layers {
		if layer.Scope.Name == name {
			return layer.Scope.clone(), true
		}
	}
	return Scope{}, false
}

// Build returns a LayeredMap whose primary layer is the strongest scope and
// whose secondary layers follow in descending priority. An empty stack builds
// a map with an empty primary layer.
func (s *Stack[K, V]) Build(opts ...Option) *LayeredMap[K, V] {
	layers := make([]*Layer[K, V], 0, s.Len())
	if s != nil {
		for _, layer := range s.layers {
			layers = append(layers, layer.Layer)
		}
	}
	return NewWithOptions(opts, layers...)
}

func copyMetadata(origin map[string]any) map[string]any {
	if len(origin) == 0 {
		return nil
	}
	out := make(map[string]any, len(origin))
	for key, value := range origin {
		out[key] = value
	}
	return out
}
