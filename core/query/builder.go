package query

// QueryBuilder provides a fluent interface for constructing a QueryDSL.
type QueryBuilder struct {
	query QueryDSL
}

// NewQueryBuilder returns an empty QueryBuilder.
func NewQueryBuilder() *QueryBuilder {
	return &QueryBuilder{}
}

// Build returns the constructed QueryDSL.
func (qb *QueryBuilder) Build() QueryDSL {
	return qb.query
}

// Clone returns a builder that can be modified without affecting qb.
func (qb *QueryBuilder) Clone() *QueryBuilder {
	c := &QueryBuilder{query: QueryDSL{
		Filters: cloneFilter(qb.query.Filters),
		Sort:    append([]SortConfiguration(nil), qb.query.Sort...),
	}}
	if p := qb.query.Pagination; p != nil {
		cp := *p
		if p.Offset != nil {
			off := *p.Offset
			cp.Offset = &off
		}
		c.query.Pagination = &cp
	}
	return c
}

// Reset clears every filter, sort and pagination setting.
func (qb *QueryBuilder) Reset() *QueryBuilder {
	qb.query = QueryDSL{}
	return qb
}

func cloneFilter(f *QueryFilter) *QueryFilter {
	if f == nil {
		return nil
	}
	c := &QueryFilter{}
	if f.Condition != nil {
		cond := *f.Condition
		c.Condition = &cond
	}
	if f.Group != nil {
		g := &FilterGroup{Operator: f.Group.Operator}
		for i := range f.Group.Conditions {
			g.Conditions = append(g.Conditions, *cloneFilter(&f.Group.Conditions[i]))
		}
		c.Group = g
	}
	return c
}

// addFilter ANDs f with any filter already present.
func (qb *QueryBuilder) addFilter(f QueryFilter) *QueryBuilder {
	switch {
	case qb.query.Filters == nil:
		qb.query.Filters = &f
	case qb.query.Filters.Group != nil && qb.query.Filters.Group.Operator == LogicalOperatorAnd:
		qb.query.Filters.Group.Conditions = append(qb.query.Filters.Group.Conditions, f)
	default:
		prev := *qb.query.Filters
		qb.query.Filters = &QueryFilter{Group: &FilterGroup{
			Operator:   LogicalOperatorAnd,
			Conditions: []QueryFilter{prev, f},
		}}
	}
	return qb
}

// Where starts a condition on field. Successive conditions are ANDed.
func (qb *QueryBuilder) Where(field string) *ConditionBuilder[*QueryBuilder] {
	return &ConditionBuilder[*QueryBuilder]{field: field, add: func(c FilterCondition) *QueryBuilder {
		return qb.addFilter(QueryFilter{Condition: &c})
	}}
}

// WhereGroup opens a group of filters combined with op. Close it with End.
func (qb *QueryBuilder) WhereGroup(op LogicalOperator) *GroupBuilder {
	return &GroupBuilder{qb: qb, group: FilterGroup{Operator: op}}
}

// OrderBy appends a sort on field.
func (qb *QueryBuilder) OrderBy(field string, direction SortDirection) *QueryBuilder {
	qb.query.Sort = append(qb.query.Sort, SortConfiguration{Field: field, Direction: direction})
	return qb
}

func (qb *QueryBuilder) OrderByAsc(field string) *QueryBuilder {
	return qb.OrderBy(field, SortDirectionAsc)
}

func (qb *QueryBuilder) OrderByDesc(field string) *QueryBuilder {
	return qb.OrderBy(field, SortDirectionDesc)
}

// Limit caps the number of rows returned.
func (qb *QueryBuilder) Limit(limit int) *QueryBuilder {
	if qb.query.Pagination == nil {
		qb.query.Pagination = &PaginationOptions{}
	}
	qb.query.Pagination.Limit = limit
	return qb
}

// Offset skips the first offset rows.
func (qb *QueryBuilder) Offset(offset int) *QueryBuilder {
	if qb.query.Pagination == nil {
		qb.query.Pagination = &PaginationOptions{}
	}
	qb.query.Pagination.Offset = &offset
	return qb
}

// GroupBuilder collects the members of a FilterGroup.
type GroupBuilder struct {
	qb     *QueryBuilder
	parent *GroupBuilder
	group  FilterGroup
}

// Where adds a condition on field to the group.
func (g *GroupBuilder) Where(field string) *ConditionBuilder[*GroupBuilder] {
	return &ConditionBuilder[*GroupBuilder]{field: field, add: func(c FilterCondition) *GroupBuilder {
		g.group.Conditions = append(g.group.Conditions, QueryFilter{Condition: &c})
		return g
	}}
}

// WhereGroup opens a nested group. Close returns to g.
func (g *GroupBuilder) WhereGroup(op LogicalOperator) *GroupBuilder {
	return &GroupBuilder{qb: g.qb, parent: g, group: FilterGroup{Operator: op}}
}

// Close ends a nested group and returns its parent. A top-level group is
// returned unchanged; use End to attach it.
func (g *GroupBuilder) Close() *GroupBuilder {
	if g.parent == nil {
		return g
	}
	grp := g.group
	g.parent.group.Conditions = append(g.parent.group.Conditions, QueryFilter{Group: &grp})
	return g.parent
}

// End closes g and every group still open above it.
func (g *GroupBuilder) End() *QueryBuilder {
	if g.parent != nil {
		return g.Close().End()
	}
	grp := g.group
	return g.qb.addFilter(QueryFilter{Group: &grp})
}

// ConditionBuilder completes a condition on one field and returns to the
// builder that started it.
type ConditionBuilder[P any] struct {
	field string
	add   func(FilterCondition) P
}

func (c *ConditionBuilder[P]) op(op ComparisonOperator, value any) P {
	return c.add(FilterCondition{Field: c.field, Operator: op, Value: value})
}

func (c *ConditionBuilder[P]) Eq(value any) P  { return c.op(ComparisonOperatorEq, value) }
func (c *ConditionBuilder[P]) Neq(value any) P { return c.op(ComparisonOperatorNeq, value) }
func (c *ConditionBuilder[P]) Lt(value any) P  { return c.op(ComparisonOperatorLt, value) }
func (c *ConditionBuilder[P]) Lte(value any) P { return c.op(ComparisonOperatorLte, value) }
func (c *ConditionBuilder[P]) Gt(value any) P  { return c.op(ComparisonOperatorGt, value) }
func (c *ConditionBuilder[P]) Gte(value any) P { return c.op(ComparisonOperatorGte, value) }

// In matches any of values.
func (c *ConditionBuilder[P]) In(values ...any) P { return c.op(ComparisonOperatorIn, values) }

// Nin matches none of values.
func (c *ConditionBuilder[P]) Nin(values ...any) P { return c.op(ComparisonOperatorNin, values) }

func (c *ConditionBuilder[P]) Contains(value string) P {
	return c.op(ComparisonOperatorContains, value)
}

func (c *ConditionBuilder[P]) NotContains(value string) P {
	return c.op(ComparisonOperatorNotContains, value)
}

func (c *ConditionBuilder[P]) StartsWith(value string) P {
	return c.op(ComparisonOperatorStartsWith, value)
}

func (c *ConditionBuilder[P]) EndsWith(value string) P {
	return c.op(ComparisonOperatorEndsWith, value)
}

// Exists matches non-null values.
func (c *ConditionBuilder[P]) Exists() P { return c.op(ComparisonOperatorExists, nil) }

// NotExists matches null values.
func (c *ConditionBuilder[P]) NotExists() P { return c.op(ComparisonOperatorNotExists, nil) }
