package command

import (
	"database/sql"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asaidimu/go-datamap/core/dialect"
	"github.com/asaidimu/go-datamap/core/mapping"
	"github.com/asaidimu/go-datamap/core/tracking"
)

type product struct {
	tracking.Tracker
	ID    int64   `db:"Id,key,autoincrement"`
	Name  string  `db:"Name"`
	Price float64 `db:"Price"`
}

func (*product) DataItem() mapping.DataItem { return mapping.DataItem{TableName: "Products"} }

func (p *product) SetName(v string)   { tracking.SetField(&p.Tracker, "Name", &p.Name, v) }
func (p *product) SetPrice(v float64) { tracking.SetField(&p.Tracker, "Price", &p.Price, v) }

type item struct {
	tracking.Tracker
	ID    int64     `db:"Id,key"`
	Code  *string   `db:"Code"`
	Ref   uuid.UUID `db:"Ref"`
	Stamp []byte    `db:"Stamp,rowversion"`
}

func (*item) DataItem() mapping.DataItem { return mapping.DataItem{TableName: "Items"} }

func (i *item) SetCode(v *string) { tracking.SetField(&i.Tracker, "Code", &i.Code, v) }

func newBuilder[T any](t *testing.T, d dialect.Dialect, opts ...BuilderOption) *Builder {
	t.Helper()
	fm, err := mapping.For[T](mapping.Options{})
	require.NoError(t, err)
	return NewBuilder(fm, d, opts...)
}

func loadedProduct(id int64, name string, price float64) *product {
	p := &product{ID: id, Name: name, Price: price}
	p.CommitValues()
	return p
}

func paramValues(cmd *Command) map[string]any {
	values := make(map[string]any, len(cmd.Params))
	for _, p := range cmd.Params {
		values[p.Name] = p.Value
	}
	return values
}

func TestInsertCommands(t *testing.T) {
	tests := []struct {
		name     string
		dialect  dialect.Dialect
		sb       SelectBack
		expected []string
	}{
		{
			name:    "sql server batches the identity select back",
			dialect: dialect.SQLServer{},
			sb:      SelectBackDefault,
			expected: []string{
				"INSERT INTO [Products] ([Name], [Price]) VALUES (@Name, @Price); " +
					"SELECT [Id], [Name], [Price] FROM [Products] WHERE [Id] = SCOPE_IDENTITY()",
			},
		},
		{
			name:     "no select back",
			dialect:  dialect.SQLServer{},
			sb:       SelectBackNone,
			expected: []string{"INSERT INTO [Products] ([Name], [Price]) VALUES (@Name, @Price)"},
		},
		{
			name:    "mysql uses two commands",
			dialect: dialect.MySQL{},
			sb:      SelectBackAllFields,
			expected: []string{
				"INSERT INTO `Products` (`Name`, `Price`) VALUES (?, ?)",
				"SELECT `Id`, `Name`, `Price` FROM `Products` WHERE `Id` = LAST_INSERT_ID()",
			},
		},
		{
			name:    "sqlite",
			dialect: dialect.SQLite{},
			sb:      SelectBackAllFields,
			expected: []string{
				`INSERT INTO "Products" ("Name", "Price") VALUES (@Name, @Price)`,
				`SELECT "Id", "Name", "Price" FROM "Products" WHERE "Id" = last_insert_rowid()`,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBuilder[product](t, tt.dialect)
			p := &product{Name: "Widget", Price: 9.99}
			p.MarkNew()

			cmds, err := b.InsertCommands(p, tt.sb)
			require.NoError(t, err)
			require.Len(t, cmds, len(tt.expected))
			for i, text := range tt.expected {
				assert.Equal(t, text, cmds[i].Text)
			}
			assert.Equal(t, []any{"Widget", 9.99}, []any{cmds[0].Params[0].Value, cmds[0].Params[1].Value})
		})
	}
}

func TestInsertCommands_ExplicitIdentity(t *testing.T) {
	b := newBuilder[product](t, dialect.SQLServer{})
	cmds, err := b.InsertCommands(&product{ID: 7, Name: "Widget"}, SelectBackAllFields)
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, "INSERT INTO [Products] ([Id], [Name], [Price]) VALUES (@Id, @Name, @Price); "+
		"SELECT [Id], [Name], [Price] FROM [Products] WHERE [Id] = @Id", cmds[0].Text)
	assert.Len(t, cmds[0].Params, 3, "the key parameter is shared")
}

func TestInsertCommands_UnsupportedIdentity(t *testing.T) {
	b := newBuilder[product](t, dialect.Generic{})
	_, err := b.InsertCommands(&product{Name: "Widget"}, SelectBackAllFields)
	require.Error(t, err)
	assert.True(t, dialect.IsUnsupportedFeature(err))
}

func TestInsertCommands_Args(t *testing.T) {
	b := newBuilder[product](t, dialect.SQLServer{})
	cmds, err := b.InsertCommands(&product{Name: "Widget", Price: 9.99}, SelectBackNone)
	require.NoError(t, err)
	assert.Equal(t, []any{sql.Named("Name", "Widget"), sql.Named("Price", 9.99)}, cmds[0].Args(b.Dialect()))

	mb := newBuilder[product](t, dialect.MySQL{})
	cmds, err = mb.InsertCommands(&product{Name: "Widget", Price: 9.99}, SelectBackNone)
	require.NoError(t, err)
	assert.Equal(t, []any{"Widget", 9.99}, cmds[0].Args(mb.Dialect()))
}

func TestUpdateCommands_ChangedFields(t *testing.T) {
	b := newBuilder[product](t, dialect.SQLServer{})
	p := loadedProduct(1, "Widget", 9.99)
	p.SetPrice(12.99)
	require.Equal(t, tracking.Modified, p.State())

	cmds, err := b.UpdateCommands(p, CriteriaChangedFields, AffectChangedFields, SelectBackNone)
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, "UPDATE [Products] SET [Price] = @Price WHERE [Id] = @old_Id AND [Price] = @old_Price", cmds[0].Text)
	assert.Equal(t, map[string]any{"Price": 12.99, "old_Id": int64(1), "old_Price": 9.99}, paramValues(cmds[0]))
}

func TestUpdateCommands_Criteria(t *testing.T) {
	tests := []struct {
		name     string
		criteria UpdateCriteria
		affect   UpdateAffect
		expected string
	}{
		{"key only", CriteriaKeyOnly, AffectChangedFields,
			"UPDATE [Products] SET [Price] = @Price WHERE [Id] = @old_Id"},
		{"default without row version", CriteriaDefault, AffectChangedFields,
			"UPDATE [Products] SET [Price] = @Price WHERE [Id] = @old_Id AND [Price] = @old_Price"},
		{"all fields", CriteriaAllFields, AffectChangedFields,
			"UPDATE [Products] SET [Price] = @Price WHERE [Id] = @old_Id AND [Name] = @old_Name AND [Price] = @old_Price"},
		{"affect all fields", CriteriaKeyOnly, AffectAllFields,
			"UPDATE [Products] SET [Name] = @Name, [Price] = @Price WHERE [Id] = @old_Id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBuilder[product](t, dialect.SQLServer{})
			p := loadedProduct(1, "Widget", 9.99)
			p.SetPrice(12.99)
			cmds, err := b.UpdateCommands(p, tt.criteria, tt.affect, SelectBackNone)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cmds[0].Text)
		})
	}
}

func TestUpdateCommands_SelectBackByCurrentKey(t *testing.T) {
	b := newBuilder[product](t, dialect.SQLServer{})
	p := loadedProduct(1, "Widget", 9.99)
	p.SetPrice(12.99)
	cmds, err := b.UpdateCommands(p, CriteriaChangedFields, AffectChangedFields, SelectBackDefault)
	require.NoError(t, err)
	require.Len(t, cmds, 2)
	assert.Equal(t, "SELECT [Id], [Name], [Price] FROM [Products] WHERE [Id] = @Id", cmds[1].Text)
}

func TestUpdateCommands_NothingChanged(t *testing.T) {
	b := newBuilder[product](t, dialect.SQLServer{})
	p := loadedProduct(1, "Widget", 9.99)
	cmds, err := b.UpdateCommands(p, CriteriaChangedFields, AffectChangedFields, SelectBackNone)
	require.NoError(t, err)
	assert.Nil(t, cmds)

	p.SetPrice(12.99)
	p.SetPrice(9.99)
	assert.Equal(t, tracking.Modified, p.State())
	cmds, err = b.Update2Commands(p, CriteriaChangedFields, true)
	require.NoError(t, err)
	assert.Nil(t, cmds, "a field set back to its original value is not a change")
}

func TestUpdateCommands_NullOriginalAndRowVersion(t *testing.T) {
	b := newBuilder[item](t, dialect.SQLServer{})
	it := &item{ID: 4, Stamp: []byte{0, 1}}
	it.CommitValues()
	code := "A-1"
	it.SetCode(&code)

	cmds, err := b.UpdateCommands(it, CriteriaChangedFields, AffectChangedFields, SelectBackNone)
	require.NoError(t, err)
	assert.Equal(t, "UPDATE [Items] SET [Code] = @Code WHERE [Id] = @old_Id AND [Code] IS NULL", cmds[0].Text)
	assert.Equal(t, map[string]any{"Code": "A-1", "old_Id": int64(4)}, paramValues(cmds[0]))

	cmds, err = b.UpdateCommands(it, CriteriaDefault, AffectChangedFields, SelectBackNone)
	require.NoError(t, err)
	assert.Equal(t, "UPDATE [Items] SET [Code] = @Code WHERE [Id] = @old_Id AND [Stamp] = @old_Stamp", cmds[0].Text)
}

func TestUpdateCommands_MutatedKeyUsesOriginal(t *testing.T) {
	b := newBuilder[item](t, dialect.SQLServer{})
	it := &item{ID: 4}
	it.CommitValues()
	tracking.SetField(&it.Tracker, "ID", &it.ID, int64(5))

	cmds, err := b.UpdateCommands(it, CriteriaKeyOnly, AffectChangedFields, SelectBackNone)
	require.NoError(t, err)
	assert.Equal(t, "UPDATE [Items] SET [Id] = @Id WHERE [Id] = @old_Id", cmds[0].Text)
	assert.Equal(t, map[string]any{"Id": int64(5), "old_Id": int64(4)}, paramValues(cmds[0]))
}

func TestUpdate2Commands(t *testing.T) {
	b := newBuilder[product](t, dialect.SQLServer{})
	p := loadedProduct(1, "Widget", 9.99)
	p.SetPrice(12.99)

	cmds, err := b.Update2Commands(p, CriteriaChangedFields, true)
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, "DECLARE @__rows_affected int; "+
		"UPDATE [Products] SET [Price] = @Price WHERE [Id] = @old_Id AND [Price] = @old_Price; "+
		"SET @__rows_affected = @@ROWCOUNT; "+
		"SELECT @__rows_affected AS [__rows_affected], [Id], [Name], [Price] FROM [Products] WHERE [Id] = @Id", cmds[0].Text)
	assert.Equal(t, RowsAffectedColumn, cmds[0].RowsAffectedColumn)
	assert.Equal(t, map[string]any{"Price": 12.99, "old_Id": int64(1), "old_Price": 9.99, "Id": int64(1)}, paramValues(cmds[0]))

	cmds, err = b.Update2Commands(p, CriteriaChangedFields, false)
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Empty(t, cmds[0].RowsAffectedColumn)
}

func TestUpdate2Commands_ShapeIsReboundPerEntity(t *testing.T) {
	b := newBuilder[product](t, dialect.SQLServer{})
	first := loadedProduct(1, "Widget", 9.99)
	first.SetPrice(12.99)
	second := loadedProduct(2, "Gadget", 3.50)
	second.SetPrice(4.00)

	a, err := b.Update2Commands(first, CriteriaChangedFields, true)
	require.NoError(t, err)
	c, err := b.Update2Commands(second, CriteriaChangedFields, true)
	require.NoError(t, err)

	assert.Equal(t, a[0].Text, c[0].Text)
	assert.Equal(t, map[string]any{"Price": 4.00, "old_Id": int64(2), "old_Price": 3.50, "Id": int64(2)}, paramValues(c[0]))
	assert.Equal(t, map[string]any{"Price": 12.99, "old_Id": int64(1), "old_Price": 9.99, "Id": int64(1)}, paramValues(a[0]))
}

func TestUpdate2Commands_NonBatchDialect(t *testing.T) {
	b := newBuilder[product](t, dialect.Postgres{})
	p := loadedProduct(1, "Widget", 9.99)
	p.SetPrice(12.99)

	cmds, err := b.Update2Commands(p, CriteriaChangedFields, true)
	require.NoError(t, err)
	require.Len(t, cmds, 2)
	assert.Equal(t, `UPDATE "Products" SET "Price" = $1 WHERE "Id" = $2 AND "Price" = $3`, cmds[0].Text)
	assert.Equal(t, `SELECT "Id", "Name", "Price" FROM "Products" WHERE "Id" = $1`, cmds[1].Text)
	assert.Equal(t, []any{12.99, int64(1), 9.99}, cmds[0].Args(b.Dialect()))
}

func TestRequeryAndDeleteItem(t *testing.T) {
	b := newBuilder[product](t, dialect.SQLServer{})
	p := loadedProduct(3, "Widget", 9.99)

	cmd, err := b.RequeryCommand(p)
	require.NoError(t, err)
	assert.Equal(t, "SELECT [Id], [Name], [Price] FROM [Products] WHERE [Id] = @old_Id", cmd.Text)
	assert.Equal(t, int64(3), cmd.Params[0].Value)

	cmd, err = b.DeleteItemCommand(p)
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM [Products] WHERE [Id] = @old_Id", cmd.Text)
}

func TestTableOverridesAndQuoting(t *testing.T) {
	f := false
	b := newBuilder[product](t, dialect.SQLServer{}, WithSaveToTable("ProductsStaging"), WithQuotedIdentifiers(&f))
	cmds, err := b.InsertCommands(&product{Name: "W"}, SelectBackNone)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO ProductsStaging (Name, Price) VALUES (@Name, @Price)", cmds[0].Text)

	cmd, err := b.CountCommand(nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM Products", cmd.Text)
}

func TestAuxiliaryCommands(t *testing.T) {
	b := newBuilder[product](t, dialect.SQLServer{})
	byName := Filters{{Field: "Name", Value: "Widget"}}

	cmd, err := b.ExistsCommand(byName)
	require.NoError(t, err)
	assert.Equal(t, "SELECT CASE WHEN EXISTS (SELECT 1 FROM [Products] WHERE [Name] = @p0) THEN 1 ELSE 0 END", cmd.Text)
	assert.Equal(t, mapping.TypeString, cmd.Params[0].Type)

	cmd, err = b.DeleteCommand(Filters{{Field: "Price", Op: ">=", Value: 10}, {Field: "Name", Op: "<>", Value: nil}})
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM [Products] WHERE [Price] >= @p0 AND [Name] IS NOT NULL", cmd.Text)

	cmd, err = b.SelectCommand(byName, "[Price] DESC")
	require.NoError(t, err)
	assert.Equal(t, "SELECT [Id], [Name], [Price] FROM [Products] WHERE [Name] = @p0 ORDER BY [Price] DESC", cmd.Text)

	cmd, err = b.UpdateRowsCommand(map[string]any{"Price": 1.5, "Name": "Sale"}, Text("[Price] > $0", 100))
	require.NoError(t, err)
	assert.Equal(t, "UPDATE [Products] SET [Name] = @Name, [Price] = @Price WHERE [Price] > @p0", cmd.Text)
	assert.Equal(t, map[string]any{"Name": "Sale", "Price": 1.5, "p0": 100}, paramValues(cmd))

	_, err = b.UpdateRowsCommand(map[string]any{"Id": 3}, nil)
	assert.Error(t, err, "identity columns are not updatable")

	cmd, err = b.PageCommand(nil, "[Name]", 10, 5)
	require.NoError(t, err)
	assert.Contains(t, cmd.Text, "BETWEEN 11 AND 15")
}

func TestText(t *testing.T) {
	where := Text("[Price] > $0 AND [Price] < $1 OR [Price] = $0", 5, 10)

	b := newBuilder[product](t, dialect.SQLServer{})
	cmd, err := b.CountCommand(where)
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM [Products] WHERE [Price] > @p0 AND [Price] < @p1 OR [Price] = @p0", cmd.Text)
	assert.Len(t, cmd.Params, 2)

	mb := newBuilder[product](t, dialect.MySQL{})
	cmd, err = mb.CountCommand(where)
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM `Products` WHERE [Price] > ? AND [Price] < ? OR [Price] = ?", cmd.Text)
	assert.Equal(t, []any{5, 10, 5}, cmd.Args(mb.Dialect()))

	_, err = b.CountCommand(Text("[Price] > $2", 1))
	assert.Error(t, err)

	pb := newBuilder[product](t, dialect.SQLServer{}, WithParameterPrefix(':'))
	cmd, err = pb.CountCommand(Text("Name = :0", "x"))
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM [Products] WHERE Name = @p0", cmd.Text)
}

func TestFilters_Errors(t *testing.T) {
	b := newBuilder[product](t, dialect.SQLServer{})
	_, err := b.CountCommand(Filters{{Field: "Nope", Value: 1}})
	assert.Error(t, err)
	_, err = b.CountCommand(Filters{{Field: "Name", Op: "~", Value: 1}})
	assert.Error(t, err)
}

func TestBulkInfo(t *testing.T) {
	b := newBuilder[item](t, dialect.SQLServer{}, WithNullStringDefault(""))

	bulk, err := b.BulkInsertInfo()
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO [Items] ([Id], [Code], [Ref]) VALUES (@Id, @Code, @Ref)", bulk.Text())
	cmd := bulk.Command(&item{ID: 1})
	assert.Equal(t, map[string]any{"Id": int64(1), "Code": "", "Ref": nil}, paramValues(cmd))

	ref := uuid.New()
	cmd = bulk.Command(&item{ID: 2, Ref: ref})
	assert.Equal(t, ref, paramValues(cmd)["Ref"])

	upd, err := b.BulkUpdateInfo(false)
	require.NoError(t, err)
	assert.Equal(t, "UPDATE [Items] SET [Code] = @Code, [Ref] = @Ref WHERE [Id] = @Id", upd.Text())

	upd, err = b.BulkUpdateInfo(true)
	require.NoError(t, err)
	assert.Equal(t, "UPDATE [Items] SET [Id] = @Id, [Code] = @Code, [Ref] = @Ref WHERE [Id] = @old_Id", upd.Text())
}

func TestResolveSelectBack(t *testing.T) {
	b := newBuilder[product](t, dialect.SQLServer{})
	assert.Equal(t, SelectBackAllFields, b.ResolveSelectBack(SelectBackDefault))
	assert.Equal(t, SelectBackNone, b.ResolveSelectBack(SelectBackNone))
}

func TestBuilder_ConcurrentShapes(t *testing.T) {
	b := newBuilder[product](t, dialect.SQLServer{})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := loadedProduct(int64(i), "W", 1)
			p.SetPrice(float64(i) + 2)
			cmds, err := b.Update2Commands(p, CriteriaChangedFields, true)
			assert.NoError(t, err)
			assert.Equal(t, float64(i)+2, paramValues(cmds[0])["Price"])
		}(i)
	}
	wg.Wait()
}
