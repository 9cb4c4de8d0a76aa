package chainmap

import (
	"reflect"

	"github.com/google/go-cmp/cmp"
)

// Option configures a LayeredMap.
type Option func(*config)

type config struct {
	logger Logger
	equal  func(a, b any) bool
}

func applyOptions(opts []Option) config {
	cfg := config{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = noopLogger{}
	}
	if cfg.equal == nil {
		cfg.equal = reflect.DeepEqual
	}
	return cfg
}

// WithLogger attaches an event logger.
func WithLogger(logger Logger) Option {
	return func(cfg *config) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}

// WithValueEqual replaces the value equality used by ContainsValue and Values.
// V should be the map's value type; values that are not a V are compared with
// reflect.DeepEqual, which is also the default.
func WithValueEqual[V any](equal func(a, b V) bool) Option {
	return func(cfg *config) {
		if equal == nil {
			cfg.equal = nil
			return
		}
		cfg.equal = func(a, b any) bool {
			av, aok := a.(V)
			bv, bok := b.(V)
			if !aok || !bok {
				return reflect.DeepEqual(a, b)
			}
			return equal(av, bv)
		}
	}
}

// WithCmpOptions compares values with cmp.Equal using the supplied options,
// e.g. cmpopts.EquateEmpty() or cmp.AllowUnexported(...).
func WithCmpOptions(opts ...cmp.Option) Option {
	return func(cfg *config) {
		cfg.equal = func(a, b any) bool {
			return cmp.Equal(a, b, opts...)
		}
	}
}
