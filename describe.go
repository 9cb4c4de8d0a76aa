package chainmap

import (
	"fmt"
	"sort"
	"strings"
)

// FieldDescriptor names a dotted path in a resolved view and the Go type found
// there.
type FieldDescriptor struct {
	Path  string `json:"path"`
	Type  string `json:"type"`
	Layer string `json:"layer,omitempty"`
}

// Describe flattens the resolved view of m into sorted path descriptors.
// Nested map[string]any values contribute one descriptor per leaf; Layer names
// the layer that supplied each top-level key.
func Describe(m *LayeredMap[string, any]) []FieldDescriptor {
	if m == nil {
		return []FieldDescriptor{}
	}
	origin := make(map[string]string)
	for index, view := range m.Layers() {
		for _, key := range view.Keys() {
			if _, seen := origin[key]; seen {
				continue
			}
			origin[key] = view.Name()
			if origin[key] == "" {
				origin[key] = fmt.Sprintf("#%d", index)
			}
		}
	}

	merged := m.Merge()
	keys := make([]string, 0, len(merged))
	for key := range merged {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fields := []FieldDescriptor{}
	for _, key := range keys {
		for _, field := range describeValue(merged[key], key) {
			field.Layer = origin[key]
			fields = append(fields, field)
		}
	}
	return fields
}

func describeValue(value any, prefix string) []FieldDescriptor {
	switch typed := value.(type) {
	case map[string]any:
		if len(typed) == 0 {
			return []FieldDescriptor{{Path: prefix, Type: "map[string]any"}}
		}
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		var fields []FieldDescriptor
		for _, key := range keys {
			fields = append(fields, describeValue(typed[key], joinPath(prefix, key))...)
		}
		return fields
	case []any:
		elementType := "any"
		if len(typed) > 0 {
			elementType = typeName(typed[0])
		}
		return []FieldDescriptor{{Path: prefix, Type: "[]" + elementType}}
	default:
		return []FieldDescriptor{{Path: prefix, Type: typeName(typed)}}
	}
}

func typeName(value any) string {
	if value == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", value)
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return strings.Join([]string{prefix, segment}, ".")
}
