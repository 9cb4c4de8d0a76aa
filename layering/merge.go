package layering

import "reflect"

// MergeLayers composes values ordered from strongest to weakest, returning a
// new value that keeps explicit data from stronger layers while filling any
// missing data from weaker ones. Maps are combined key by key, structs field by
// field, pointers and interfaces through their targets. Slices and scalars are
// taken whole from the strongest layer that sets them. Cycles in the stronger
// layers are merged once and reproduced in the result.
func MergeLayers[T any](layers ...T) T {
	var zero T
	if len(layers) == 0 {
		return zero
	}

	c := newCopier()
	merged := c.clone(valueOf(&layers[len(layers)-1]))
	for i := len(layers) - 2; i >= 0; i-- {
		c.merged = make(map[visit]reflect.Value)
		merged = c.merge(valueOf(&layers[i]), merged)
	}
	return fromValue[T](merged)
}

func (c *copier) merge(strong, weak reflect.Value) reflect.Value {
	if !strong.IsValid() {
		return c.clone(weak)
	}

	switch strong.Kind() {
	case reflect.Pointer:
		if strong.IsNil() {
			return c.fallback(strong, weak)
		}
		key := refKey(strong)
		if done, ok := c.merged[key]; ok {
			return done
		}
		var weakElem reflect.Value
		if weak.IsValid() && weak.Kind() == reflect.Pointer && !weak.IsNil() {
			weakElem = weak.Elem()
		}
		result := reflect.New(strong.Type().Elem())
		c.merged[key] = result
		result.Elem().Set(c.merge(strong.Elem(), weakElem))
		return result
	case reflect.Interface:
		if strong.IsNil() {
			return c.fallback(strong, weak)
		}
		var weakElem reflect.Value
		if weak.IsValid() && weak.Kind() == reflect.Interface && !weak.IsNil() {
			weakElem = weak.Elem()
		}
		merged := c.merge(strong.Elem(), weakElem)
		result := reflect.New(strong.Type()).Elem()
		result.Set(merged)
		return result
	case reflect.Struct:
		result := reflect.New(strong.Type()).Elem()
		result.Set(strong)
		var weakStruct reflect.Value
		if weak.IsValid() && weak.Type() == strong.Type() {
			weakStruct = weak
		}
		for i := 0; i < strong.NumField(); i++ {
			field := result.Field(i)
			if !field.CanSet() {
				continue
			}
			var weakField reflect.Value
			if weakStruct.IsValid() {
				weakField = weakStruct.Field(i)
			}
			field.Set(c.merge(strong.Field(i), weakField))
		}
		return result
	case reflect.Map:
		if strong.IsNil() {
			return c.fallback(strong, weak)
		}
		key := refKey(strong)
		if done, ok := c.merged[key]; ok {
			return done
		}
		result := reflect.MakeMapWithSize(strong.Type(), strong.Len())
		c.merged[key] = result
		if weak.IsValid() && weak.Type() == strong.Type() && !weak.IsNil() {
			iter := weak.MapRange()
			for iter.Next() {
				result.SetMapIndex(iter.Key(), c.clone(iter.Value()))
			}
		}
		iter := strong.MapRange()
		for iter.Next() {
			key := iter.Key()
			value := iter.Value()
			existing := result.MapIndex(key)
			if existing.IsValid() {
				result.SetMapIndex(key, c.merge(value, existing))
				continue
			}
			result.SetMapIndex(key, c.clone(value))
		}
		return result
	case reflect.Array:
		result := reflect.New(strong.Type()).Elem()
		for i := 0; i < strong.Len(); i++ {
			var weakElem reflect.Value
			if weak.IsValid() && weak.Type() == strong.Type() {
				weakElem = weak.Index(i)
			}
			result.Index(i).Set(c.merge(strong.Index(i), weakElem))
		}
		return result
	default:
		if strong.Kind() == reflect.Slice && strong.IsNil() {
			return c.fallback(strong, weak)
		}
		return c.clone(strong)
	}
}

// fallback fills an unset strong value from weak when both share a type.
func (c *copier) fallback(strong, weak reflect.Value) reflect.Value {
	if weak.IsValid() && weak.Type() == strong.Type() {
		return c.clone(weak)
	}
	return c.clone(strong)
}
