package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asaidimu/go-datamap/core/command"
	"github.com/asaidimu/go-datamap/core/dialect"
	"github.com/asaidimu/go-datamap/core/mapping"
)

type product struct {
	ID    int64   `db:"Id,key,autoincrement"`
	Name  string  `db:"Name"`
	Price float64 `db:"Price"`
	Notes *string `db:"Notes"`
}

func (*product) DataItem() mapping.DataItem { return mapping.DataItem{TableName: "Products"} }

func productBuilder(t *testing.T, d dialect.Dialect) *command.Builder {
	t.Helper()
	fm, err := mapping.For[product](mapping.Options{})
	require.NoError(t, err)
	return command.NewBuilder(fm, d)
}

func TestRender(t *testing.T) {
	tests := []struct {
		name   string
		dsl    QueryDSL
		where  string
		values []any
	}{
		{
			name:  "no filters",
			dsl:   NewQueryBuilder().Build(),
			where: "",
		},
		{
			name:   "equality",
			dsl:    NewQueryBuilder().Where("Name").Eq("Widget").Build(),
			where:  " WHERE [Name] = @p0",
			values: []any{"Widget"},
		},
		{
			name:  "null equality",
			dsl:   NewQueryBuilder().Where("Notes").Eq(nil).Build(),
			where: " WHERE [Notes] IS NULL",
		},
		{
			name:  "null inequality",
			dsl:   NewQueryBuilder().Where("Notes").Neq(nil).Build(),
			where: " WHERE [Notes] IS NOT NULL",
		},
		{
			name:   "chained conditions",
			dsl:    NewQueryBuilder().Where("Name").Neq("a").Where("Price").Gte(3.5).Build(),
			where:  " WHERE ([Name] <> @p0 AND [Price] >= @p1)",
			values: []any{"a", 3.5},
		},
		{
			name: "or group",
			dsl: NewQueryBuilder().WhereGroup(LogicalOperatorOr).
				Where("Price").Lt(1).Where("Price").Gt(100).End().Build(),
			where:  " WHERE ([Price] < @p0 OR [Price] > @p1)",
			values: []any{1, 100},
		},
		{
			name: "not group",
			dsl: NewQueryBuilder().WhereGroup(LogicalOperatorNot).
				Where("Name").Eq("a").Where("Price").Lte(2).End().Build(),
			where:  " WHERE NOT ([Name] = @p0 AND [Price] <= @p1)",
			values: []any{"a", 2},
		},
		{
			name: "nor group",
			dsl: NewQueryBuilder().WhereGroup(LogicalOperatorNor).
				Where("Name").Eq("a").Where("Name").Eq("b").End().Build(),
			where:  " WHERE NOT ([Name] = @p0 OR [Name] = @p1)",
			values: []any{"a", "b"},
		},
		{
			name:   "in list",
			dsl:    NewQueryBuilder().Where("Id").In(1, 2, 3).Build(),
			where:  " WHERE [Id] IN (@p0, @p1, @p2)",
			values: []any{1, 2, 3},
		},
		{
			name:   "typed slice",
			dsl:    QueryDSL{Filters: &QueryFilter{Condition: &FilterCondition{Field: "Id", Operator: ComparisonOperatorNin, Value: []int64{4, 5}}}},
			where:  " WHERE [Id] NOT IN (@p0, @p1)",
			values: []any{int64(4), int64(5)},
		},
		{
			name:  "empty in list",
			dsl:   NewQueryBuilder().Where("Id").In().Build(),
			where: " WHERE 1=0",
		},
		{
			name:  "empty not in list",
			dsl:   NewQueryBuilder().Where("Id").Nin().Build(),
			where: " WHERE 1=1",
		},
		{
			name:   "contains",
			dsl:    NewQueryBuilder().Where("Name").Contains("idg").Build(),
			where:  " WHERE [Name] LIKE @p0",
			values: []any{"%idg%"},
		},
		{
			name:   "not contains",
			dsl:    NewQueryBuilder().Where("Name").NotContains("idg").Build(),
			where:  " WHERE [Name] NOT LIKE @p0",
			values: []any{"%idg%"},
		},
		{
			name:   "starts and ends with",
			dsl:    NewQueryBuilder().Where("Name").StartsWith("Wi").Where("Name").EndsWith("et").Build(),
			where:  " WHERE ([Name] LIKE @p0 AND [Name] LIKE @p1)",
			values: []any{"Wi%", "%et"},
		},
		{
			name:  "exists",
			dsl:   NewQueryBuilder().Where("Notes").Exists().Where("Notes").NotExists().Build(),
			where: " WHERE ([Notes] IS NOT NULL AND [Notes] IS NULL)",
		},
	}

	b := productBuilder(t, dialect.SQLServer{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := b.CountCommand(tt.dsl)
			require.NoError(t, err)
			assert.Equal(t, "SELECT COUNT(*) FROM [Products]"+tt.where, cmd.Text)

			values := make([]any, len(cmd.Params))
			for i, p := range cmd.Params {
				values[i] = p.Value
			}
			if len(tt.values) == 0 {
				assert.Empty(t, values)
			} else {
				assert.Equal(t, tt.values, values)
			}
		})
	}
}

func TestRender_PositionalDialect(t *testing.T) {
	b := productBuilder(t, dialect.Postgres{})
	dsl := NewQueryBuilder().Where("Name").Eq("a").Where("Id").In(1, 2).Build()

	cmd, err := b.CountCommand(dsl)
	require.NoError(t, err)
	assert.Equal(t, `SELECT COUNT(*) FROM "Products" WHERE ("Name" = $1 AND "Id" IN ($2, $3))`, cmd.Text)
	assert.Equal(t, []any{"a", 1, 2}, cmd.Args(b.Dialect()))
}

func TestRender_Errors(t *testing.T) {
	tests := []struct {
		name string
		dsl  QueryDSL
	}{
		{"unmapped field", NewQueryBuilder().Where("Missing").Eq(1).Build()},
		{"custom operator", QueryDSL{Filters: &QueryFilter{Condition: &FilterCondition{Field: "Name", Operator: "soundex", Value: "x"}}}},
		{"empty filter", QueryDSL{Filters: &QueryFilter{}}},
		{"group without operator", QueryDSL{Filters: &QueryFilter{Group: &FilterGroup{
			Conditions: []QueryFilter{{Condition: &FilterCondition{Field: "Name", Operator: ComparisonOperatorEq, Value: "a"}}},
		}}}},
		{"unknown logical operator", QueryDSL{Filters: &QueryFilter{Group: &FilterGroup{
			Operator:   "xor",
			Conditions: []QueryFilter{{Condition: &FilterCondition{Field: "Name", Operator: ComparisonOperatorEq, Value: "a"}}},
		}}}},
	}

	b := productBuilder(t, dialect.SQLServer{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.CountCommand(tt.dsl)
			assert.Error(t, err)
		})
	}
}

func TestOrderClause(t *testing.T) {
	b := productBuilder(t, dialect.SQLServer{})

	order, err := NewQueryBuilder().OrderByAsc("Name").OrderByDesc("Price").Build().OrderClause(b)
	require.NoError(t, err)
	assert.Equal(t, "[Name] ASC, [Price] DESC", order)

	order, err = NewQueryBuilder().Build().OrderClause(b)
	require.NoError(t, err)
	assert.Empty(t, order)

	_, err = NewQueryBuilder().OrderByAsc("Missing").Build().OrderClause(b)
	assert.Error(t, err)
}
