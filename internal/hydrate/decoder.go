package hydrate

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/goliatone/go-chainmap/layering"
)

// Context identifies the payload being decoded in error messages and hooks.
type Context struct {
	Source string
}

// PreHook lets callers mutate or normalise the payload before decoding.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook lets callers adjust or validate the hydrated struct after decoding.
type PostHook[T any] func(Context, *T) error

// DecoderOption configures a Decoder instance.
type DecoderOption[T any] func(*Decoder[T])

// Decoder converts resolved layer payloads into strongly typed structs.
type Decoder[T any] struct {
	preHooks  []PreHook
	postHooks []PostHook[T]
	tagName   string
	weak      bool
	strict    bool
	hooks     []mapstructure.DecodeHookFunc
}

// WithPreHook applies hook prior to decoding.
func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithPostHook applies hook after decoding completes.
func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithTagName sets the struct tag consulted for field names. Defaults to json.
func WithTagName[T any](tag string) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if tag != "" {
			d.tagName = tag
		}
	}
}

// WithWeaklyTypedInput lets strings convert to numbers and booleans and
// similar lenient conversions, matching values loaded from env or dotenv.
func WithWeaklyTypedInput[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.weak = true
	}
}

// WithErrorUnused fails decoding when the payload carries keys the target
// does not declare.
func WithErrorUnused[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.strict = true
	}
}

// WithDecodeHook appends a mapstructure decode hook.
func WithDecodeHook[T any](hook mapstructure.DecodeHookFunc) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.hooks = append(d.hooks, hook)
		}
	}
}

func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{tagName: "json"}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode converts payload into the target struct T applying configured hooks.
// The payload is cloned first so hooks cannot mutate the caller's data.
func (d *Decoder[T]) Decode(ctx Context, payload map[string]any) (T, error) {
	var zero T

	if payload == nil {
		return zero, fmt.Errorf("hydrate: payload is nil for source %q", ctx.Source)
	}

	current := layering.Clone(payload)
	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: pre-hook for source %q failed: %w", ctx.Source, err)
		}
		if next != nil {
			current = next
		}
	}

	var result T
	cfg := &mapstructure.DecoderConfig{
		Result:           &result,
		TagName:          d.tagName,
		WeaklyTypedInput: d.weak,
		ErrorUnused:      d.strict,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(append([]mapstructure.DecodeHookFunc{
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		}, d.hooks...)...),
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return zero, fmt.Errorf("hydrate: configure decoder for source %q: %w", ctx.Source, err)
	}
	if err := decoder.Decode(current); err != nil {
		return zero, fmt.Errorf("hydrate: decode source %q: %w", ctx.Source, err)
	}

	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, &result); err != nil {
			return zero, fmt.Errorf("hydrate: post-hook for source %q failed: %w", ctx.Source, err)
		}
	}

	return result, nil
}
