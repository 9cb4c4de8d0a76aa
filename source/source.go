// Package source builds chainmap layers from configuration documents and the
// process environment. Every loader returns a layer named after its origin and
// keeps the document's top-level key order where the format has one.
package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	chainmap "github.com/goliatone/go-chainmap"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned by File for unknown extensions.
var ErrUnsupportedFormat = errors.New("source: unsupported format")

// Layer is the layer type produced by every loader.
type Layer = chainmap.Layer[string, any]

// JSON reads a JSON object from r.
func JSON(r io.Reader) (*Layer, error) {
	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("source: read json: %w", err)
	}
	layer := chainmap.NewLayer[string, any]()
	if len(bytes.TrimSpace(payload)) == 0 {
		return layer.Named("json"), nil
	}
	if err := layer.UnmarshalJSON(payload); err != nil {
		return nil, fmt.Errorf("source: decode json: %w", err)
	}
	return layer.Named("json"), nil
}

// TOML reads a TOML document from r.
func TOML(r io.Reader) (*Layer, error) {
	var values map[string]any
	meta, err := toml.NewDecoder(r).Decode(&values)
	if err != nil {
		return nil, fmt.Errorf("source: decode toml: %w", err)
	}
	layer := chainmap.NewLayer[string, any]()
	for _, key := range meta.Keys() {
		if len(key) != 1 {
			continue
		}
		if value, ok := values[key[0]]; ok && !layer.Has(key[0]) {
			layer.Set(key[0], value)
		}
	}
	return layer.Named("toml"), nil
}

// YAML reads a YAML mapping from r.
func YAML(r io.Reader) (*Layer, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return chainmap.NewLayer[string, any]().Named("yaml"), nil
		}
		return nil, fmt.Errorf("source: decode yaml: %w", err)
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("source: decode yaml: document root must be a mapping, line %d", root.Line)
	}
	layer := chainmap.NewLayer[string, any]()
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valueNode := root.Content[i], root.Content[i+1]
		var value any
		if err := valueNode.Decode(&value); err != nil {
			return nil, fmt.Errorf("source: decode yaml key %q: %w", keyNode.Value, err)
		}
		layer.Set(keyNode.Value, value)
	}
	return layer.Named("yaml"), nil
}

// Dotenv reads KEY=value lines from r. Keys are sorted.
func Dotenv(r io.Reader) (*Layer, error) {
	values, err := godotenv.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("source: parse dotenv: %w", err)
	}
	return sortedLayer(values).Named("dotenv"), nil
}

// Env captures environment variables starting with prefix. The prefix is
// stripped and keys are lower-cased; an empty prefix captures everything.
func Env(prefix string) *Layer {
	values := make(map[string]string)
	for _, entry := range os.Environ() {
		name, value, ok := strings.Cut(entry, "=")
		if !ok || !strings.HasPrefix(name, prefix) {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(name, prefix))
		if key == "" {
			continue
		}
		values[key] = value
	}
	label := "env"
	if prefix != "" {
		label = "env:" + prefix
	}
	return sortedLayer(values).Named(label)
}

// File loads path choosing the decoder from its extension: .json, .toml,
// .yaml, .yml and .env are supported.
func File(path string) (*Layer, error) {
	var load func(io.Reader) (*Layer, error)
	switch ext := strings.ToLower(filepath.Ext(path)); {
	case ext == ".json":
		load = JSON
	case ext == ".toml":
		load = TOML
	case ext == ".yaml" || ext == ".yml":
		load = YAML
	case ext == ".env" || filepath.Base(path) == ".env":
		load = Dotenv
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source: open %q: %w", path, err)
	}
	defer f.Close()

	layer, err := load(f)
	if err != nil {
		return nil, fmt.Errorf("%w (file %q)", err, path)
	}
	return layer.Named(path), nil
}

func sortedLayer(values map[string]string) *Layer {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	layer := chainmap.NewLayer[string, any]()
	for _, key := range keys {
		layer.Set(key, values[key])
	}
	return layer
}
