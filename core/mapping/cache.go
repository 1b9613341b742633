package mapping

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

type cacheKey struct {
	typ     reflect.Type
	table   string
	keys    string
	version int
}

func (k cacheKey) String() string {
	return fmt.Sprintf("%p|%s|%s|%d", k.typ, k.table, k.keys, k.version)
}

var (
	fieldMaps sync.Map // cacheKey -> *FieldMap
	group     singleflight.Group
)

// Cached returns the field map of t for opts, generating it on first use.
// Maps are never evicted and concurrent first calls generate only once.
func Cached(t reflect.Type, opts Options) (*FieldMap, error) {
	if t == nil {
		return nil, &ConfigurationError{Reason: "nil type"}
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	key := cacheKey{
		typ:     t,
		table:   opts.TableName,
		keys:    strings.Join(opts.KeyFields, ","),
		version: opts.version(),
	}
	if m, ok := fieldMaps.Load(key); ok {
		return m.(*FieldMap), nil
	}

	v, err, _ := group.Do(key.String(), func() (any, error) {
		if m, ok := fieldMaps.Load(key); ok {
			return m, nil
		}
		m, err := Generate(t, opts)
		if err != nil {
			return nil, err
		}
		actual, _ := fieldMaps.LoadOrStore(key, m)
		return actual, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*FieldMap), nil
}

// For is the generic form of Cached.
func For[T any](opts Options) (*FieldMap, error) {
	return Cached(reflect.TypeFor[T](), opts)
}
