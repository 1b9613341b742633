package query

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/asaidimu/go-datamap/core/command"
	"github.com/asaidimu/go-datamap/core/mapping"
)

// Render translates the selection's filters into a WHERE clause.
func (q QueryDSL) Render(wb *command.WhereBuilder) (string, error) {
	if q.Filters == nil {
		return "", nil
	}
	return q.Filters.Render(wb)
}

// OrderClause renders the sort configuration as ORDER BY text without the
// keyword. Sorting on an unmapped field is an error.
func (q QueryDSL) OrderClause(b *command.Builder) (string, error) {
	terms := make([]string, 0, len(q.Sort))
	for _, s := range q.Sort {
		if _, ok := b.FieldMap().Lookup(s.Field); !ok {
			return "", fmt.Errorf("query: cannot sort on unmapped field %q", s.Field)
		}
		switch s.Direction {
		case "", SortDirectionAsc:
			terms = append(terms, b.Column(s.Field)+" ASC")
		case SortDirectionDesc:
			terms = append(terms, b.Column(s.Field)+" DESC")
		default:
			return "", fmt.Errorf("query: unknown sort direction %q", s.Direction)
		}
	}
	return strings.Join(terms, ", "), nil
}

// Render translates the filter into SQL.
func (f *QueryFilter) Render(wb *command.WhereBuilder) (string, error) {
	if f.Condition != nil {
		return renderCondition(wb, f.Condition)
	}
	if f.Group != nil {
		return renderGroup(wb, f.Group)
	}
	return "", fmt.Errorf("query: filter has neither a condition nor a group")
}

func renderGroup(wb *command.WhereBuilder, g *FilterGroup) (string, error) {
	if g.Operator == "" {
		return "", fmt.Errorf("query: logical operator missing in filter group")
	}
	clauses := make([]string, 0, len(g.Conditions))
	for i := range g.Conditions {
		c, err := g.Conditions[i].Render(wb)
		if err != nil {
			return "", err
		}
		if c != "" {
			clauses = append(clauses, c)
		}
	}
	if len(clauses) == 0 {
		return "", nil
	}
	switch g.Operator {
	case LogicalOperatorAnd:
		return "(" + strings.Join(clauses, " AND ") + ")", nil
	case LogicalOperatorOr:
		return "(" + strings.Join(clauses, " OR ") + ")", nil
	case LogicalOperatorNot:
		return "NOT (" + strings.Join(clauses, " AND ") + ")", nil
	case LogicalOperatorNor:
		return "NOT (" + strings.Join(clauses, " OR ") + ")", nil
	default:
		return "", fmt.Errorf("query: unsupported logical operator %q", g.Operator)
	}
}

var comparisons = map[ComparisonOperator]string{
	ComparisonOperatorEq:  "=",
	ComparisonOperatorNeq: "<>",
	ComparisonOperatorLt:  "<",
	ComparisonOperatorLte: "<=",
	ComparisonOperatorGt:  ">",
	ComparisonOperatorGte: ">=",
}

func renderCondition(wb *command.WhereBuilder, cond *FilterCondition) (string, error) {
	field, ok := wb.Field(cond.Field)
	if !ok {
		return "", fmt.Errorf("query: filter on unmapped field %q", cond.Field)
	}
	col := wb.Column(cond.Field)

	if op, ok := comparisons[cond.Operator]; ok {
		if mapping.Equal(cond.Value, nil) {
			switch cond.Operator {
			case ComparisonOperatorEq:
				return col + " IS NULL", nil
			case ComparisonOperatorNeq:
				return col + " IS NOT NULL", nil
			}
		}
		return col + " " + op + " " + wb.FieldParam(field, cond.Value), nil
	}

	switch cond.Operator {
	case ComparisonOperatorIn, ComparisonOperatorNin:
		vals := listOf(cond.Value)
		if len(vals) == 0 {
			if cond.Operator == ComparisonOperatorIn {
				return "1=0", nil
			}
			return "1=1", nil
		}
		tokens := make([]string, len(vals))
		for i, v := range vals {
			tokens[i] = wb.FieldParam(field, v)
		}
		op := "IN"
		if cond.Operator == ComparisonOperatorNin {
			op = "NOT IN"
		}
		return fmt.Sprintf("%s %s (%s)", col, op, strings.Join(tokens, ", ")), nil
	case ComparisonOperatorContains:
		return col + " LIKE " + wb.Param("%"+fmt.Sprint(cond.Value)+"%"), nil
	case ComparisonOperatorNotContains:
		return col + " NOT LIKE " + wb.Param("%"+fmt.Sprint(cond.Value)+"%"), nil
	case ComparisonOperatorStartsWith:
		return col + " LIKE " + wb.Param(fmt.Sprint(cond.Value)+"%"), nil
	case ComparisonOperatorEndsWith:
		return col + " LIKE " + wb.Param("%"+fmt.Sprint(cond.Value)), nil
	case ComparisonOperatorExists:
		return col + " IS NOT NULL", nil
	case ComparisonOperatorNotExists:
		return col + " IS NULL", nil
	default:
		return "", fmt.Errorf("query: unsupported comparison operator %q", cond.Operator)
	}
}

// listOf spreads a slice or array value; a single non-nil value becomes a
// one-element list.
func listOf(v any) []any {
	if v == nil {
		return nil
	}
	if vals, ok := v.([]any); ok {
		return vals
	}
	rv := reflect.ValueOf(v)
	if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8 {
		vals := make([]any, rv.Len())
		for i := range vals {
			vals[i] = rv.Index(i).Interface()
		}
		return vals
	}
	return []any{v}
}
