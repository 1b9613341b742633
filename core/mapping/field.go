package mapping

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-openapi/inflect"
)

// TagName is the struct tag that declares a persisted field.
const TagName = "db"

// Field describes one persisted property and the column it is stored in.
type Field struct {
	Name          string // storage (column) name
	Property      string // Go struct field name
	DataType      DataType
	Length        int // -1 when unbounded
	Nullable      bool
	Key           bool
	RowVersion    bool
	AutoIncrement bool
	Access        AccessType
	SchemaVersion int
	Quote         *bool
	Sequence      string

	typ   reflect.Type
	index []int
	get   func(reflect.Value) reflect.Value
}

// Type returns the Go type of the property.
func (f *Field) Type() reflect.Type {
	return f.typ
}

// Insertable reports whether the field can appear in an INSERT value list.
// Auto-increment fields are insertable only when they carry an explicit value.
func (f *Field) Insertable() bool {
	return f.Access == ReadWrite && !f.RowVersion
}

// Updatable reports whether the field can appear in an UPDATE SET list.
func (f *Field) Updatable() bool {
	return f.Access == ReadWrite && !f.RowVersion && !f.AutoIncrement
}

// Generated reports whether the database produces the field's value.
func (f *Field) Generated() bool {
	return f.AutoIncrement || f.RowVersion || f.Access == ReadOnly
}

// Comparable reports whether the column can be used in an equality predicate.
// XML and unbounded binary columns cannot.
func (f *Field) Comparable() bool {
	switch f.DataType {
	case TypeXml:
		return false
	case TypeBinary:
		return f.Length >= 0
	}
	return true
}

// reflectValue returns the addressable struct field inside entity.
func (f *Field) reflectValue(entity any) (reflect.Value, error) {
	v := reflect.ValueOf(entity)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("mapping: nil entity while accessing %s", f.Property)
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("mapping: entity of kind %s has no property %s", v.Kind(), f.Property)
	}
	return f.get(v), nil
}

// Value returns the property's current value. Nil pointers yield nil and
// non-nil pointers are dereferenced.
func (f *Field) Value(entity any) any {
	fv, err := f.reflectValue(entity)
	if err != nil {
		return nil
	}
	for fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			return nil
		}
		fv = fv.Elem()
	}
	return fv.Interface()
}

// IsZero reports whether the property holds its type's zero value.
func (f *Field) IsZero(entity any) bool {
	fv, err := f.reflectValue(entity)
	if err != nil {
		return true
	}
	return fv.IsZero()
}

// Assign converts raw (as returned by a driver) into the property's type and
// stores it. Conversion failures are reported as *PropertyReadError.
func (f *Field) Assign(entity any, raw any) error {
	fv, err := f.reflectValue(entity)
	if err != nil {
		return err
	}
	if !fv.CanSet() {
		return &PropertyReadError{Property: f.Property, Column: f.Name, Value: raw,
			Err: fmt.Errorf("property is not settable; pass a pointer to the entity")}
	}
	cv, err := Coerce(raw, f.typ)
	if err != nil {
		return &PropertyReadError{Property: f.Property, Column: f.Name, Value: raw, Err: err}
	}
	fv.Set(cv)
	return nil
}

// parseField builds a Field from a tagged struct field. It returns nil when the
// struct field is not persisted.
func parseField(owner reflect.Type, sf reflect.StructField, index []int, snake bool) (*Field, error) {
	tag, ok := sf.Tag.Lookup(TagName)
	if !ok || tag == "-" {
		return nil, nil
	}
	parts := strings.Split(tag, ",")
	f := &Field{
		Name:     strings.TrimSpace(parts[0]),
		Property: sf.Name,
		DataType: DataTypeOf(sf.Type),
		Length:   -1,
		Nullable: isNullable(sf.Type),
		Access:   ReadWrite,
		typ:      sf.Type,
		index:    append([]int(nil), index...),
	}
	if f.Name == "" {
		f.Name = sf.Name
		if snake {
			f.Name = inflect.Underscore(sf.Name)
		}
	}

	for _, opt := range parts[1:] {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			continue
		}
		key, value, hasValue := strings.Cut(opt, "=")
		switch strings.ToLower(key) {
		case "key":
			f.Key = true
		case "autoincrement", "identity":
			f.AutoIncrement = true
		case "rowversion":
			f.RowVersion = true
		case "readonly":
			f.Access = ReadOnly
		case "nullable":
			f.Nullable = true
		case "notnull":
			f.Nullable = false
		case "size":
			n, err := strconv.Atoi(value)
			if !hasValue || err != nil {
				return nil, configError(owner, "field %s: invalid size %q", sf.Name, value)
			}
			f.Length = n
		case "type":
			dt, err := ParseDataType(value)
			if err != nil {
				return nil, configError(owner, "field %s: %v", sf.Name, err)
			}
			f.DataType = dt
		case "version":
			n, err := strconv.Atoi(value)
			if !hasValue || err != nil || n < 0 {
				return nil, configError(owner, "field %s: invalid schema version %q", sf.Name, value)
			}
			f.SchemaVersion = n
		case "quote":
			b, err := strconv.ParseBool(value)
			if hasValue && err != nil {
				return nil, configError(owner, "field %s: invalid quote option %q", sf.Name, value)
			}
			if !hasValue {
				b = true
			}
			f.Quote = &b
		case "seq", "sequence":
			f.Sequence = value
		default:
			return nil, configError(owner, "field %s: unknown tag option %q", sf.Name, key)
		}
	}

	idx := f.index
	if len(idx) == 1 {
		i := idx[0]
		f.get = func(v reflect.Value) reflect.Value { return v.Field(i) }
	} else {
		f.get = func(v reflect.Value) reflect.Value { return v.FieldByIndex(idx) }
	}
	return f, nil
}
