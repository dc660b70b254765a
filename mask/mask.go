// Package mask flattens commands into ordered field maps for logging, hiding the values of
// fields tagged `mask:"true"`.
package mask

import (
	"reflect"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const (
	tagName = "mask"

	// ValueKey holds a value that is not a struct.
	ValueKey = "value"
)

// Fields returns the exported fields of v as dotted paths in declaration order. Nested
// structs are flattened, masked values keep only their kind, and zero values are never
// masked. A non-struct v is returned under ValueKey. Fields returns nil for a nil v.
func Fields(v any) *orderedmap.OrderedMap[string, any] {
	if v == nil {
		return nil
	}

	om := orderedmap.New[string, any]()
	rv := reflect.ValueOf(v)
	if !isStruct(rv) {
		om.Set(ValueKey, plain(rv))
		return om
	}

	flatten(om, rv, "")
	return om
}

func flatten(om *orderedmap.OrderedMap[string, any], rv reflect.Value, prefix string) {
	rv = reflect.Indirect(rv)
	rt := rv.Type()

	for i := range rt.NumField() {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}

		name, skip := fieldName(sf)
		if skip {
			continue
		}
		if prefix != "" {
			name = prefix + "." + name
		}

		fv := rv.Field(i)
		switch {
		case strings.EqualFold(sf.Tag.Get(tagName), "true"):
			om.Set(name, hide(fv))
		case isStruct(fv):
			flatten(om, fv, name)
		default:
			om.Set(name, plain(fv))
		}
	}
}

func isStruct(rv reflect.Value) bool {
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	return rv.Kind() == reflect.Struct
}

func plain(rv reflect.Value) any {
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil
	}
	return rv.Interface()
}

// hide replaces a non-zero value with a placeholder naming its kind.
func hide(rv reflect.Value) any {
	switch rv.Kind() { //nolint:exhaustive // only nillable kinds need a nil check
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	case reflect.Slice, reflect.Map:
		if rv.IsNil() {
			return nil
		}
	}

	if rv.IsZero() {
		return rv.Interface()
	}
	return "***masked-" + kindName(rv.Kind()) + "***"
}

func kindName(k reflect.Kind) string {
	switch k { //nolint:exhaustive // sized numeric kinds collapse into their family
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "int"
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "uint"
	case reflect.Float32, reflect.Float64:
		return "float"
	case reflect.Array:
		return "slice"
	default:
		return k.String()
	}
}

// fieldName prefers the json tag, then yaml, then the Go name. A "-" tag skips the field.
func fieldName(sf reflect.StructField) (string, bool) {
	for _, tag := range []string{"json", "yaml"} {
		v, ok := sf.Tag.Lookup(tag)
		if !ok {
			continue
		}
		name, _, _ := strings.Cut(v, ",")
		if name == "-" {
			return "", true
		}
		if name != "" {
			return name, false
		}
	}
	return sf.Name, false
}
