package utils

import (
	"reflect"
	"strconv"
	"strings"
)

// IsEmpty reports whether v is nil, has zero length (strings, slices,
// maps, arrays, channels), points to an empty value, or is its type's
// zero value.
func IsEmpty(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array, reflect.Chan:
		return rv.Len() == 0
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return true
		}
		return IsEmpty(rv.Elem().Interface())
	default:
		return rv.IsZero()
	}
}

// IsBlank reports whether s is empty or contains only whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// IsNumeric reports whether s parses as a number, integer or floating
// point, exponent notation included.
func IsNumeric(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// Ternary returns a when cond is true and b otherwise. Both arguments
// are evaluated either way.
func Ternary[T any](cond bool, a, b T) T {
	if cond {
		return a
	}
	return b
}
