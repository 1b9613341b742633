package mapping

import (
	"database/sql"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type status int

type color string

func TestCoerce(t *testing.T) {
	id := uuid.MustParse("6f1c2a8e-4b1d-4c3a-9f57-2d7e8b9a0c11")
	when := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		raw      any
		target   reflect.Type
		expected any
	}{
		{"nil to zero", nil, reflect.TypeOf(0), 0},
		{"same type", "a", reflect.TypeOf(""), "a"},
		{"int64 to int", int64(7), reflect.TypeOf(0), 7},
		{"int64 to enum", int64(2), reflect.TypeOf(status(0)), status(2)},
		{"string to named string", "red", reflect.TypeOf(color("")), color("red")},
		{"bytes to string", []byte("abc"), reflect.TypeOf(""), "abc"},
		{"text to float", []byte("9.99"), reflect.TypeOf(0.0), 9.99},
		{"text to int", "12", reflect.TypeOf(int32(0)), int32(12)},
		{"int to bool", int64(1), reflect.TypeOf(false), true},
		{"text to bool", "true", reflect.TypeOf(false), true},
		{"integral float to int", 5.0, reflect.TypeOf(0), 5},
		{"float64 to float32", 1.5, reflect.TypeOf(float32(0)), float32(1.5)},
		{"text to time", "2024-03-01 10:30:00", reflect.TypeOf(time.Time{}), when},
		{"string to uuid", id.String(), reflect.TypeOf(uuid.UUID{}), id},
		{"string to null string", "x", reflect.TypeOf(sql.NullString{}), sql.NullString{String: "x", Valid: true}},
		{"nil to null int", nil, reflect.TypeOf(sql.NullInt64{}), sql.NullInt64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Coerce(tt.raw, tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, v.Interface())
		})
	}
}

func TestCoerce_Pointer(t *testing.T) {
	v, err := Coerce(int64(4), reflect.TypeOf((*int)(nil)))
	require.NoError(t, err)
	p := v.Interface().(*int)
	require.NotNil(t, p)
	assert.Equal(t, 4, *p)

	v, err = Coerce(nil, reflect.TypeOf((*int)(nil)))
	require.NoError(t, err)
	assert.Nil(t, v.Interface())
}

func TestCoerce_Errors(t *testing.T) {
	tests := []struct {
		name   string
		raw    any
		target reflect.Type
	}{
		{"overflow", int64(300), reflect.TypeOf(int8(0))},
		{"negative to unsigned", int64(-1), reflect.TypeOf(uint(0))},
		{"fractional to int", 1.5, reflect.TypeOf(0)},
		{"bad text", "abc", reflect.TypeOf(0)},
		{"int to string", 65, reflect.TypeOf("")},
		{"bad time", "yesterday", reflect.TypeOf(time.Time{})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Coerce(tt.raw, tt.target)
			assert.Error(t, err)
		})
	}
}

func TestEqual(t *testing.T) {
	id := uuid.MustParse("6f1c2a8e-4b1d-4c3a-9f57-2d7e8b9a0c11")
	n := 5
	local := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 2*3600))

	tests := []struct {
		name     string
		a, b     any
		expected bool
	}{
		{"both nil", nil, nil, true},
		{"nil and null string", nil, sql.NullString{}, true},
		{"nil pointer and nil", (*int)(nil), nil, true},
		{"nil and value", nil, 0, false},
		{"pointer and value", &n, int64(5), true},
		{"enum and underlying", status(3), int64(3), true},
		{"float and decimal text", 9.99, []byte("9.99"), true},
		{"float differs", 9.99, 12.99, false},
		{"uuid and string", id, id.String(), true},
		{"null string and string", sql.NullString{String: "a", Valid: true}, "a", true},
		{"times across zones", local, local.UTC(), true},
		{"bytes", []byte{1, 2}, []byte{1, 2}, true},
		{"bytes differ", []byte{1, 2}, []byte{1, 3}, false},
		{"unrelated types", "abc", 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Equal(tt.a, tt.b))
		})
	}
}
