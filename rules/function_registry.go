package rules

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Function is a helper callable from expressions.
type Function func(args ...any) (any, error)

var (
	// ErrInvalidFunction reports a registration with an empty name or nil body.
	ErrInvalidFunction = errors.New("rules: invalid function")
	// ErrFunctionExists reports a name already taken, ignoring case.
	ErrFunctionExists = errors.New("rules: function already registered")
	// ErrUnknownFunction reports a call to a name nothing was registered under.
	ErrUnknownFunction = errors.New("rules: function not registered")
)

// FunctionRegistry holds the helpers exposed to expressions. Names match
// without regard to case, and Names reports each helper under the spelling it
// was registered with.
type FunctionRegistry struct {
	mu    sync.RWMutex
	byKey map[string]namedFunction
}

type namedFunction struct {
	name string
	call Function
}

func registryKey(name string) string {
	return strings.ToLower(name)
}

// NewFunctionRegistry returns an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{byKey: map[string]namedFunction{}}
}

// Register adds fn under name.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidFunction)
	case fn == nil:
		return fmt.Errorf("%w: %q has no body", ErrInvalidFunction, name)
	}
	key := registryKey(name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byKey == nil {
		r.byKey = map[string]namedFunction{}
	}
	if existing, taken := r.byKey[key]; taken {
		return fmt.Errorf("%w: %q collides with %q", ErrFunctionExists, name, existing.name)
	}
	r.byKey[key] = namedFunction{name: name, call: fn}
	return nil
}

// Clone copies the registry so later registrations on either side stay
// local.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := &FunctionRegistry{byKey: make(map[string]namedFunction, len(r.byKey))}
	for key, entry := range r.byKey {
		out.byKey[key] = entry
	}
	return out
}

// Call invokes the helper registered under name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: %q (no registry)", ErrUnknownFunction, name)
	}
	r.mu.RLock()
	entry, ok := r.byKey[registryKey(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFunction, name)
	}
	return entry.call(args...)
}

// Names lists registered helpers in sorted order.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byKey))
	for _, entry := range r.byKey {
		names = append(names, entry.name)
	}
	sort.Strings(names)
	return names
}
