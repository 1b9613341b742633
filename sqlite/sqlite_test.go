package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asaidimu/go-datamap/core/command"
	"github.com/asaidimu/go-datamap/core/mapping"
	"github.com/asaidimu/go-datamap/core/persistence"
	"github.com/asaidimu/go-datamap/core/tracking"
	"github.com/asaidimu/go-datamap/utils"
)

type book struct {
	tracking.Tracker
	ID    int64   `db:"Id,key,autoincrement"`
	Title string  `db:"Title"`
	Price float64 `db:"Price"`
	Notes *string `db:"Notes"`
}

func (*book) DataItem() mapping.DataItem { return mapping.DataItem{TableName: "Books"} }

func (b *book) SetPrice(v float64) { tracking.SetField(&b.Tracker, "Price", &b.Price, v) }
func (b *book) SetNotes(v *string) { tracking.SetField(&b.Tracker, "Notes", &b.Notes, v) }

type edition struct {
	tracking.Tracker
	BookID int64  `db:"book_id,key"`
	Number int    `db:"number,key"`
	ISBN   string `db:"isbn"`
}

func (*edition) DataItem() mapping.DataItem { return mapping.DataItem{TableName: "editions"} }

func newBook(title string, price float64) *book {
	b := &book{Title: title, Price: price}
	b.MarkNew()
	return b
}

func fieldMap[T any](t *testing.T) *mapping.FieldMap {
	t.Helper()
	fm, err := mapping.For[T](mapping.Options{})
	require.NoError(t, err)
	return fm
}

func openMemory(t *testing.T, driver string) *sql.DB {
	t.Helper()
	db, err := Open(context.Background(), driver, ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateTableSQL(t *testing.T) {
	tests := []struct {
		name     string
		mapped   Mapped
		options  *Options
		expected string
	}{
		{
			name:   "auto-increment key uses the rowid",
			mapped: For(fieldMap[book](t)),
			expected: "CREATE TABLE IF NOT EXISTS \"Books\" (\n" +
				"    \"Id\" INTEGER PRIMARY KEY AUTOINCREMENT,\n" +
				"    \"Title\" TEXT NOT NULL,\n" +
				"    \"Price\" REAL NOT NULL,\n" +
				"    \"Notes\" TEXT\n" +
				");",
		},
		{
			name:    "composite key",
			mapped:  For(fieldMap[edition](t)),
			options: &Options{},
			expected: "CREATE TABLE \"editions\" (\n" +
				"    \"book_id\" INTEGER NOT NULL,\n" +
				"    \"number\" INTEGER NOT NULL,\n" +
				"    \"isbn\" TEXT NOT NULL,\n" +
				"    PRIMARY KEY (\"book_id\", \"number\")\n" +
				");",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSchemaManager(nil, nil, tt.options)
			stmt, err := s.CreateTableSQL(tt.mapped)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, stmt)
		})
	}
}

func TestCreateIndexSQL(t *testing.T) {
	s := NewSchemaManager(nil, nil, nil)
	m := For(fieldMap[book](t))

	stmt, err := s.CreateIndexSQL(m, Index{Fields: []string{"Title"}, Unique: true})
	require.NoError(t, err)
	assert.Equal(t, `CREATE UNIQUE INDEX IF NOT EXISTS "idx_Books_Title" ON "Books" ("Title");`, stmt)

	stmt, err = s.CreateIndexSQL(m, Index{Name: "by_price", Fields: []string{"Price", "Id"}, Descending: true})
	require.NoError(t, err)
	assert.Equal(t, `CREATE INDEX IF NOT EXISTS "by_price" ON "Books" ("Price" DESC, "Id" DESC);`, stmt)

	_, err = s.CreateIndexSQL(m, Index{Fields: []string{"Missing"}})
	assert.Error(t, err)
	_, err = s.CreateIndexSQL(m, Index{})
	assert.Error(t, err)
}

func TestColumnType(t *testing.T) {
	assert.Equal(t, "BOOLEAN", ColumnType(mapping.TypeBoolean))
	assert.Equal(t, "TIMESTAMP", ColumnType(mapping.TypeDateTimeOffset))
	assert.Equal(t, "NUMERIC", ColumnType(mapping.TypeDecimal))
	assert.Equal(t, "BLOB", ColumnType(mapping.TypeBinary))
}

func TestSchemaManager(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t, DriverCGO)
	s := NewSchemaManager(db, nil, nil)
	m := For(fieldMap[book](t))

	exists, err := s.TableExists(ctx, m)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.CreateTable(ctx, m, Index{Fields: []string{"Title"}, Unique: true}))
	require.NoError(t, s.CreateTable(ctx, m), "IF NOT EXISTS makes creation idempotent")
	exists, err = s.TableExists(ctx, m)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.DropTable(ctx, m))
	exists, err = s.TableExists(ctx, m)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestAdapterRoundTrip(t *testing.T) {
	for _, driver := range []string{DriverCGO, DriverPure} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			db := openMemory(t, driver)

			a, err := persistence.New[*book](db, nil)
			require.NoError(t, err)
			assert.Equal(t, "sqlite", a.Dialect().Name())
			require.NoError(t, NewSchemaManager(db, nil, nil).CreateTable(ctx, a))

			// Insert reads the generated key back.
			b := newBook("The Go Programming Language", 30)
			ok, err := a.Save(ctx, b)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, int64(1), b.ID)
			assert.Equal(t, tracking.Unchanged, b.State())

			// Update writes only the changed fields.
			b.SetPrice(35)
			b.SetNotes(utils.Ptr("signed"))
			ok, err = a.Save(ctx, b)
			require.NoError(t, err)
			assert.True(t, ok)

			byID := command.Filters{{Field: "Id", Value: b.ID}}
			stored, err := a.GetSingleItem(ctx, byID)
			require.NoError(t, err)
			assert.Equal(t, 35.0, stored.Price)
			require.NotNil(t, stored.Notes)
			assert.Equal(t, "signed", *stored.Notes)

			// Another writer changes the row behind the loaded copy.
			n, err := a.UpdateRows(ctx, map[string]any{"Price": 40.0}, byID)
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)

			stored.SetPrice(50)
			r, err := a.TrySave(ctx, stored)
			require.NoError(t, err)
			assert.Equal(t, persistence.StatusConflict, r.Status())

			conflicts, err := a.GetConflicts(ctx, stored)
			require.NoError(t, err)
			assert.Equal(t, []persistence.Conflict{{Field: "Price", Original: 35.0, Current: 40.0, Attempted: 50.0}}, conflicts)

			// A batch deletes removed items before saving the rest.
			list := tracking.NewList(b)
			list.Add(newBook("Concurrency in Go", 25), newBook("Learning Go", 28))
			require.True(t, list.Remove(b))
			result, err := a.TrySaveList(ctx, list)
			require.NoError(t, err)
			assert.Len(t, result.Deleted, 1)
			assert.Len(t, result.Inserted, 2)
			assert.Empty(t, list.DeletedItems())

			count, err := a.GetCount(ctx, nil)
			require.NoError(t, err)
			assert.Equal(t, int64(2), count)

			// Work inside a failed transaction is rolled back.
			boom := errors.New("boom")
			err = a.Transact(ctx, func(tx *persistence.Adapter[*book]) error {
				if _, err := tx.Save(ctx, newBook("Discarded", 1)); err != nil {
					return err
				}
				return boom
			})
			assert.ErrorIs(t, err, boom)

			items, err := a.GetItems(ctx, nil, `"Title"`)
			require.NoError(t, err)
			require.Len(t, items, 2)
			assert.Equal(t, "Concurrency in Go", items[0].Title)
			assert.Equal(t, "Learning Go", items[1].Title)
		})
	}
}
