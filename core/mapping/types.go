// Package mapping turns struct-tag persistence declarations into field maps:
// immutable, cached metadata describing how each persisted property of a type
// corresponds to a column of a relational table.
package mapping

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DataType is the semantic storage type of a mapped field. Dialects use it to
// choose provider-specific parameter bindings.
type DataType int

const (
	TypeObject DataType = iota
	TypeString
	TypeAnsiString
	TypeBoolean
	TypeByte
	TypeInt16
	TypeInt32
	TypeInt64
	TypeSingle
	TypeDouble
	TypeDecimal
	TypeCurrency
	TypeDate
	TypeTime
	TypeDateTime
	TypeDateTimeOffset
	TypeGuid
	TypeBinary
	TypeXml
)

var dataTypeNames = map[DataType]string{
	TypeObject:         "object",
	TypeString:         "string",
	TypeAnsiString:     "ansistring",
	TypeBoolean:        "boolean",
	TypeByte:           "byte",
	TypeInt16:          "int16",
	TypeInt32:          "int32",
	TypeInt64:          "int64",
	TypeSingle:         "single",
	TypeDouble:         "double",
	TypeDecimal:        "decimal",
	TypeCurrency:       "currency",
	TypeDate:           "date",
	TypeTime:           "time",
	TypeDateTime:       "datetime",
	TypeDateTimeOffset: "datetimeoffset",
	TypeGuid:           "guid",
	TypeBinary:         "binary",
	TypeXml:            "xml",
}

func (t DataType) String() string {
	if name, ok := dataTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("DataType(%d)", int(t))
}

// ParseDataType resolves the name used in a `type=` tag option.
func ParseDataType(name string) (DataType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for t, n := range dataTypeNames {
		if n == name {
			return t, nil
		}
	}
	return TypeObject, fmt.Errorf("unknown data type %q", name)
}

// AccessType controls whether a field takes part in INSERT and UPDATE value lists.
type AccessType int

const (
	ReadWrite AccessType = iota
	ReadOnly
)

var (
	timeType    = reflect.TypeOf(time.Time{})
	uuidType    = reflect.TypeOf(uuid.UUID{})
	bytesType   = reflect.TypeOf([]byte(nil))
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
)

var nullTypes = map[reflect.Type]DataType{
	reflect.TypeOf(sql.NullString{}):  TypeString,
	reflect.TypeOf(sql.NullBool{}):    TypeBoolean,
	reflect.TypeOf(sql.NullByte{}):    TypeByte,
	reflect.TypeOf(sql.NullInt16{}):   TypeInt16,
	reflect.TypeOf(sql.NullInt32{}):   TypeInt32,
	reflect.TypeOf(sql.NullInt64{}):   TypeInt64,
	reflect.TypeOf(sql.NullFloat64{}): TypeDouble,
	reflect.TypeOf(sql.NullTime{}):    TypeDateTime,
	reflect.TypeOf(uuid.NullUUID{}):   TypeGuid,
}

// DataTypeOf derives the semantic type of a Go type.
func DataTypeOf(t reflect.Type) DataType {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if dt, ok := nullTypes[t]; ok {
		return dt
	}
	switch t {
	case timeType:
		return TypeDateTime
	case uuidType:
		return TypeGuid
	case bytesType:
		return TypeBinary
	}
	switch t.Kind() {
	case reflect.String:
		return TypeString
	case reflect.Bool:
		return TypeBoolean
	case reflect.Uint8:
		return TypeByte
	case reflect.Int8, reflect.Int16:
		return TypeInt16
	case reflect.Int32, reflect.Uint16:
		return TypeInt32
	case reflect.Int, reflect.Int64, reflect.Uint, reflect.Uint32, reflect.Uint64:
		return TypeInt64
	case reflect.Float32:
		return TypeSingle
	case reflect.Float64:
		return TypeDouble
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return TypeBinary
		}
	}
	return TypeObject
}

// isNullable reports whether values of t can carry NULL without a tag option.
func isNullable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		return true
	}
	if _, ok := nullTypes[t]; ok {
		return true
	}
	if t.Kind() == reflect.Struct && reflect.PointerTo(t).Implements(scannerType) {
		_, hasValid := t.FieldByName("Valid")
		return hasValid
	}
	return false
}
