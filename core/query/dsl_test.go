package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComparisonOperator_IsStandard(t *testing.T) {
	tests := []struct {
		operator ComparisonOperator
		expected bool
	}{
		{ComparisonOperatorEq, true},
		{ComparisonOperatorNeq, true},
		{ComparisonOperatorLt, true},
		{ComparisonOperatorLte, true},
		{ComparisonOperatorGt, true},
		{ComparisonOperatorGte, true},
		{ComparisonOperatorIn, true},
		{ComparisonOperatorNin, true},
		{ComparisonOperatorContains, true},
		{ComparisonOperatorNotContains, true},
		{ComparisonOperatorStartsWith, true},
		{ComparisonOperatorEndsWith, true},
		{ComparisonOperatorExists, true},
		{ComparisonOperatorNotExists, true},
		{"custom_op", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.operator), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.operator.IsStandard())
		})
	}
}

func TestPaginationOptions_Start(t *testing.T) {
	var none *PaginationOptions
	assert.Equal(t, 0, none.Start())
	assert.Equal(t, 0, (&PaginationOptions{Limit: 5}).Start())

	off := 15
	assert.Equal(t, 15, (&PaginationOptions{Limit: 5, Offset: &off}).Start())
}
