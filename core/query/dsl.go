// Package query defines a small filter DSL for selecting mapped rows. A
// QueryDSL is built fluently with QueryBuilder and rendered into the WHERE,
// ORDER BY and paging parts of the commands the persistence layer runs.
package query

// LogicalOperator combines the members of a FilterGroup.
type LogicalOperator string

// Logical operators for combining filter conditions.
const (
	LogicalOperatorAnd LogicalOperator = "and"
	LogicalOperatorOr  LogicalOperator = "or"
	LogicalOperatorNot LogicalOperator = "not"
	LogicalOperatorNor LogicalOperator = "nor"
)

// ComparisonOperator defines the set of operators that can be used in a filter condition.
type ComparisonOperator string

// Supported comparison operators.
const (
	ComparisonOperatorEq          ComparisonOperator = "eq"
	ComparisonOperatorNeq         ComparisonOperator = "neq"
	ComparisonOperatorLt          ComparisonOperator = "lt"
	ComparisonOperatorLte         ComparisonOperator = "lte"
	ComparisonOperatorGt          ComparisonOperator = "gt"
	ComparisonOperatorGte         ComparisonOperator = "gte"
	ComparisonOperatorIn          ComparisonOperator = "in"
	ComparisonOperatorNin         ComparisonOperator = "nin"
	ComparisonOperatorContains    ComparisonOperator = "contains"
	ComparisonOperatorNotContains ComparisonOperator = "ncontains"
	ComparisonOperatorStartsWith  ComparisonOperator = "startswith"
	ComparisonOperatorEndsWith    ComparisonOperator = "endswith"
	ComparisonOperatorExists      ComparisonOperator = "exists"
	ComparisonOperatorNotExists   ComparisonOperator = "nexists"
)

var standardOperators = []ComparisonOperator{
	ComparisonOperatorEq, ComparisonOperatorNeq,
	ComparisonOperatorLt, ComparisonOperatorLte,
	ComparisonOperatorGt, ComparisonOperatorGte,
	ComparisonOperatorIn, ComparisonOperatorNin,
	ComparisonOperatorContains, ComparisonOperatorNotContains,
	ComparisonOperatorStartsWith, ComparisonOperatorEndsWith,
	ComparisonOperatorExists, ComparisonOperatorNotExists,
}

// IsStandard reports whether op is one of the built-in comparison operators.
func (op ComparisonOperator) IsStandard() bool {
	for _, s := range standardOperators {
		if op == s {
			return true
		}
	}
	return false
}

// FilterCondition defines a single condition for filtering rows.
type FilterCondition struct {
	Field    string             // Property or storage name.
	Operator ComparisonOperator // The comparison operator to use.
	Value    any                // The value to compare against.
}

// FilterGroup combines multiple filters using a logical operator.
type FilterGroup struct {
	Operator   LogicalOperator
	Conditions []QueryFilter
}

// QueryFilter is either a single condition or a group of filters.
type QueryFilter struct {
	Condition *FilterCondition `json:",omitempty"`
	Group     *FilterGroup     `json:",omitempty"`
}

// SortDirection specifies the direction for sorting.
type SortDirection string

// Supported sort directions.
const (
	SortDirectionAsc  SortDirection = "asc"
	SortDirectionDesc SortDirection = "desc"
)

// SortConfiguration defines the sorting order for a specific field.
type SortConfiguration struct {
	Field     string
	Direction SortDirection
}

// PaginationOptions selects a window of the sorted result.
type PaginationOptions struct {
	Limit  int  // Maximum number of rows; zero means no limit.
	Offset *int `json:",omitempty"`
}

// Start returns the zero-based first row of the window.
func (p *PaginationOptions) Start() int {
	if p == nil || p.Offset == nil {
		return 0
	}
	return *p.Offset
}

// QueryDSL is a complete row selection.
type QueryDSL struct {
	Filters    *QueryFilter        `json:",omitempty"`
	Sort       []SortConfiguration `json:",omitempty"`
	Pagination *PaginationOptions  `json:",omitempty"`
}
