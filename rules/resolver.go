package rules

import (
	"fmt"
	"strings"

	chainmap "github.com/goliatone/go-chainmap"
	"github.com/goliatone/go-chainmap/layering"
)

// Resolver supplies expression variables on demand.
type Resolver interface {
	// Resolve returns the value bound to name.
	Resolve(name string) (any, bool)
	// Names lists every name Resolve can answer, for engines that declare
	// variables ahead of evaluation.
	Names() []string
}

// Read records one variable lookup made while evaluating an expression.
type Read struct {
	Name     string `json:"name"`
	Layer    string `json:"layer,omitempty"`
	Shadowed int    `json:"shadowed,omitempty"`
	Found    bool   `json:"found"`
}

func (r Read) String() string {
	if !r.Found {
		return r.Name + "@missing"
	}
	if r.Shadowed > 0 {
		return fmt.Sprintf("%s@%s+%d", r.Name, r.Layer, r.Shadowed)
	}
	return r.Name + "@" + r.Layer
}

func formatReads(reads []Read) string {
	parts := make([]string, len(reads))
	for i, read := range reads {
		parts[i] = read.String()
	}
	return strings.Join(parts, " ")
}

// readTracker is implemented by resolvers that record their lookups.
type readTracker interface {
	Reads() []Read
}

type readLog struct {
	reads []Read
	seen  map[string]struct{}
}

func (l *readLog) record(read Read) {
	if l.seen == nil {
		l.seen = make(map[string]struct{})
	}
	if _, ok := l.seen[read.Name]; ok {
		return
	}
	l.seen[read.Name] = struct{}{}
	l.reads = append(l.reads, read)
}

// Reads returns the lookups made so far, first lookup first.
func (l *readLog) Reads() []Read {
	return append([]Read(nil), l.reads...)
}

// NewMapResolver resolves variables from the top-level keys of values.
func NewMapResolver(values map[string]any) Resolver {
	return mapResolver(values)
}

type mapResolver map[string]any

func (m mapResolver) Resolve(name string) (any, bool) {
	value, ok := m[name]
	return value, ok
}

func (m mapResolver) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	return names
}

// NewLayeredResolver resolves each variable through m's precedence rules at
// the time it is read. Values are deep copies, so expressions cannot mutate
// the layers, and every read records the supplying layer and how many layers
// it shadowed.
func NewLayeredResolver(m *chainmap.LayeredMap[string, any]) Resolver {
	return &layeredResolver{m: m}
}

type layeredResolver struct {
	readLog
	m *chainmap.LayeredMap[string, any]
}

func (r *layeredResolver) Resolve(name string) (any, bool) {
	trace := r.m.Trace(name)
	value, ok := trace.Value()
	read := Read{Name: name, Found: ok}
	if ok {
		effective := trace.Layers[trace.Resolved]
		read.Layer = layerName(effective.Name, effective.Index)
		read.Shadowed = len(trace.Shadowed())
	}
	r.record(read)
	if !ok {
		return nil, false
	}
	return layering.Clone(value), true
}

func (r *layeredResolver) Names() []string {
	return r.m.Keys()
}

// NewLayerResolver resolves variables from a single layer only.
func NewLayerResolver(view *chainmap.ReadOnlyLayer[string, any], ref LayerRef) Resolver {
	return &layerResolver{view: view, label: layerName(ref.Name, ref.Index)}
}

type layerResolver struct {
	readLog
	view  *chainmap.ReadOnlyLayer[string, any]
	label string
}

func (r *layerResolver) Resolve(name string) (any, bool) {
	value, ok := r.view.Get(name)
	read := Read{Name: name, Found: ok}
	if ok {
		read.Layer = r.label
	}
	r.record(read)
	if !ok {
		return nil, false
	}
	return layering.Clone(value), true
}

func (r *layerResolver) Names() []string {
	return r.view.Keys()
}

func layerName(name string, index int) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("#%d", index)
}
