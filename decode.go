package chainmap

import (
	"github.com/goliatone/go-chainmap/internal/hydrate"
)

// DecodeOption configures Decode.
type DecodeOption func(*decodeConfig)

type decodeConfig struct {
	tag    string
	weak   bool
	strict bool
	source string
}

// WithDecodeTag sets the struct tag used to match keys. Defaults to json.
func WithDecodeTag(tag string) DecodeOption {
	return func(cfg *decodeConfig) {
		cfg.tag = tag
	}
}

// WithWeakDecode allows lenient conversions such as "8080" into an int, which
// suits layers loaded from the environment or dotenv files.
func WithWeakDecode() DecodeOption {
	return func(cfg *decodeConfig) {
		cfg.weak = true
	}
}

// WithStrictDecode rejects resolved keys the target type does not declare.
func WithStrictDecode() DecodeOption {
	return func(cfg *decodeConfig) {
		cfg.strict = true
	}
}

// WithDecodeSource names the payload in decode errors.
func WithDecodeSource(source string) DecodeOption {
	return func(cfg *decodeConfig) {
		cfg.source = source
	}
}

// Decode resolves m with Merge and decodes the result into a T.
func Decode[T any](m *LayeredMap[string, any], opts ...DecodeOption) (T, error) {
	cfg := decodeConfig{source: "chainmap"}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	decoderOpts := []hydrate.DecoderOption[T]{hydrate.WithTagName[T](cfg.tag)}
	if cfg.weak {
		decoderOpts = append(decoderOpts, hydrate.WithWeaklyTypedInput[T]())
	}
	if cfg.strict {
		decoderOpts = append(decoderOpts, hydrate.WithErrorUnused[T]())
	}

	payload := map[string]any{}
	if m != nil {
		payload = m.Merge()
	}
	return hydrate.NewDecoder(decoderOpts...).Decode(hydrate.Context{Source: cfg.source}, payload)
}
