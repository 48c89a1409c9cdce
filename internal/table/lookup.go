package table

import (
	"reflect"
	"strings"
)

// Lookup returns the value stored under key in row.
//
// Maps with string keys and structs (json tag or field name) are supported,
// through pointers and interfaces. A dotted key descends into nested values
// ("guest.name"). Names match ignoring case, '_' and '-'. A missing key
// reports ok=false.
func Lookup(row any, key string) (any, bool) {
	if key == "" {
		return nil, false
	}
	return lookupPath(reflect.ValueOf(row), strings.Split(key, "."))
}

func lookupPath(v reflect.Value, path []string) (any, bool) {
	v = indirect(v)
	if !v.IsValid() || len(path) == 0 {
		return nil, false
	}

	var next reflect.Value
	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		key, ok := findMapKey(v, path[0])
		if !ok {
			return nil, false
		}
		next = v.MapIndex(key)
	case reflect.Struct:
		field, ok := findStructField(v, path[0])
		if !ok {
			return nil, false
		}
		next = field
	default:
		return nil, false
	}

	if len(path) == 1 {
		if !next.IsValid() || !next.CanInterface() {
			return nil, true
		}
		return next.Interface(), true
	}
	return lookupPath(next, path[1:])
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func findMapKey(v reflect.Value, name string) (reflect.Value, bool) {
	exact := reflect.ValueOf(name).Convert(v.Type().Key())
	if v.MapIndex(exact).IsValid() {
		return exact, true
	}
	norm := normalizeName(name)
	for _, key := range v.MapKeys() {
		if normalizeName(key.String()) == norm {
			return key, true
		}
	}
	return reflect.Value{}, false
}

func findStructField(v reflect.Value, name string) (reflect.Value, bool) {
	norm := normalizeName(name)
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		fieldName := f.Name
		if tag := f.Tag.Get("json"); tag != "" {
			parts := strings.Split(tag, ",")
			if parts[0] != "" && parts[0] != "-" {
				fieldName = parts[0]
			}
		}
		if normalizeName(fieldName) == norm {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func normalizeName(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.ReplaceAll(s, "_", ""), "-", ""))
}

// IsNull reports whether v counts as an absent value: nil, or a nil
// pointer, interface, map or slice.
func IsNull(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}
