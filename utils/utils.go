package utils

import (
	"fmt"
	"reflect"
)

// StructToMap converts a patch struct into a map[string]any keyed by Go
// field name, the shape accepted by the adapter's UpdateRows.
//
// Only exported fields are read. Pointer fields are treated as optional: a
// nil pointer is left out of the map and a non-nil pointer contributes the
// value it points to. Fields tagged `db:"-"` are skipped. Embedded structs
// are flattened when their type is exported.
//
// The input `record` must be a struct or a pointer to a struct. If `record` is
// nil, or not a struct/pointer to a struct, an error is returned.
//
// Example:
//
//	type PricePatch struct {
//		Price *float64
//		Notes *string
//	}
//	m, err := StructToMap(PricePatch{Price: Ptr(9.5)})
//	// m will be map[string]any{"Price": 9.5}
func StructToMap[T any](record T) (map[string]any, error) {
	val := reflect.ValueOf(record)

	// Handle nil interface input directly (e.g., if `record` is `nil any`)
	if !val.IsValid() {
		return nil, fmt.Errorf("input record cannot be nil")
	}

	if val.Kind() == reflect.Pointer {
		if val.IsNil() {
			return nil, fmt.Errorf("input record cannot be a nil pointer to a struct")
		}
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return nil, fmt.Errorf("input record must be a struct or a pointer to a struct, got %s", val.Kind())
	}

	result := make(map[string]any, val.NumField())
	collect(val, result)
	return result, nil
}

func collect(val reflect.Value, into map[string]any) {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		if sf.Tag.Get("db") == "-" {
			continue
		}
		fv := val.Field(i)
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			collect(fv, into)
			continue
		}
		if !sf.IsExported() {
			continue
		}
		if fv.Kind() == reflect.Pointer {
			if fv.IsNil() {
				continue
			}
			fv = fv.Elem()
		}
		if fv.CanInterface() {
			into[sf.Name] = fv.Interface()
		}
	}
}

// Ptr returns a pointer to a copy of v.
func Ptr[T any](v T) *T {
	return &v
}
