package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Base struct {
	Version *int
}

type patch struct {
	Base
	Name     *string
	Price    *float64
	Quantity int
	Internal string `db:"-"`
	hidden   string
}

func TestStructToMap(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected map[string]any
	}{
		{
			name:     "nil pointers are omitted",
			input:    patch{Price: Ptr(9.5)},
			expected: map[string]any{"Price": 9.5, "Quantity": 0},
		},
		{
			name:     "pointer to struct",
			input:    &patch{Name: Ptr("Widget"), Quantity: 3, Internal: "x", hidden: "y"},
			expected: map[string]any{"Name": "Widget", "Quantity": 3},
		},
		{
			name:     "embedded fields are flattened",
			input:    patch{Base: Base{Version: Ptr(2)}},
			expected: map[string]any{"Version": 2, "Quantity": 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := StructToMap(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, m)
		})
	}
}

func TestStructToMap_Errors(t *testing.T) {
	var nilPatch *patch
	tests := []struct {
		name  string
		input any
	}{
		{"nil", nil},
		{"nil pointer", nilPatch},
		{"not a struct", 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := StructToMap(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestPtr(t *testing.T) {
	p := Ptr("a")
	require.NotNil(t, p)
	assert.Equal(t, "a", *p)
}
