package layering

import "reflect"

// Clone returns a deep copy of value. Maps, slices, arrays, pointers and the
// exported fields of structs are copied recursively; unexported struct fields,
// channels and functions are copied shallowly. Shared references and cycles
// are preserved: a pointer, map or slice reached twice is copied once.
func Clone[T any](value T) T {
	return fromValue[T](newCopier().clone(valueOf(&value)))
}

// valueOf returns the addressable element behind ptr so interface typed T
// keeps its static type instead of collapsing to the dynamic one.
func valueOf[T any](ptr *T) reflect.Value {
	return reflect.ValueOf(ptr).Elem()
}

func fromValue[T any](v reflect.Value) T {
	var zero T
	if !v.IsValid() {
		return zero
	}
	target := reflect.TypeOf((*T)(nil)).Elem()
	if v.Type() != target {
		if !v.Type().ConvertibleTo(target) {
			return zero
		}
		v = v.Convert(target)
	}
	out, _ := v.Interface().(T)
	return out
}

// visit identifies a reference value already copied. Slices also key on their
// length since two slices may share a backing array.
type visit struct {
	ptr uintptr
	typ reflect.Type
	len int
}

type copier struct {
	cloned map[visit]reflect.Value
	merged map[visit]reflect.Value
}

func newCopier() *copier {
	return &copier{
		cloned: make(map[visit]reflect.Value),
		merged: make(map[visit]reflect.Value),
	}
}

func refKey(v reflect.Value) visit {
	key := visit{ptr: v.Pointer(), typ: v.Type()}
	if v.Kind() == reflect.Slice {
		key.len = v.Len()
	}
	return key
}

func (c *copier) clone(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		key := refKey(v)
		if done, ok := c.cloned[key]; ok {
			return done
		}
		clone := reflect.New(v.Type().Elem())
		c.cloned[key] = clone
		clone.Elem().Set(c.clone(v.Elem()))
		return clone
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.New(v.Type()).Elem()
		clone.Set(c.clone(v.Elem()))
		return clone
	case reflect.Struct:
		clone := reflect.New(v.Type()).Elem()
		clone.Set(v)
		for i := 0; i < v.NumField(); i++ {
			field := clone.Field(i)
			if !field.CanSet() {
				continue
			}
			field.Set(c.clone(v.Field(i)))
		}
		return clone
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		key := refKey(v)
		if done, ok := c.cloned[key]; ok {
			return done
		}
		clone := reflect.MakeMapWithSize(v.Type(), v.Len())
		c.cloned[key] = clone
		iter := v.MapRange()
		for iter.Next() {
			clone.SetMapIndex(iter.Key(), c.clone(iter.Value()))
		}
		return clone
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		key := refKey(v)
		if done, ok := c.cloned[key]; ok {
			return done
		}
		clone := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		c.cloned[key] = clone
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(c.clone(v.Index(i)))
		}
		return clone
	case reflect.Array:
		clone := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(c.clone(v.Index(i)))
		}
		return clone
	default:
		clone := reflect.New(v.Type()).Elem()
		clone.Set(v)
		return clone
	}
}
