package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/asaidimu/go-datamap/core/command"
	"github.com/asaidimu/go-datamap/core/dialect"
	"github.com/asaidimu/go-datamap/core/mapping"
	"github.com/asaidimu/go-datamap/core/persistence"
)

// Options controls the DDL generated by a SchemaManager.
type Options struct {
	IfNotExists bool // add IF NOT EXISTS to CREATE statements
}

// DefaultOptions returns a set of sensible default options for creating
// tables.
func DefaultOptions() *Options {
	return &Options{
		IfNotExists: true, // Prevent errors if a table already exists.
	}
}

// Mapped is anything that can describe the table of an entity type.
// *persistence.Adapter satisfies it, so a table is created with the same
// names and overrides the adapter writes with.
type Mapped interface {
	Builder() *command.Builder
}

// For returns a Mapped describing fm with SQLite formatting and no
// overrides.
func For(fm *mapping.FieldMap) Mapped {
	return builderOf{command.NewBuilder(fm, dialect.SQLite{})}
}

type builderOf struct{ b *command.Builder }

func (m builderOf) Builder() *command.Builder { return m.b }

// Index describes a secondary index. Fields are property or storage names.
type Index struct {
	Name       string
	Fields     []string
	Unique     bool
	Descending bool
}

// SchemaManager creates and drops the tables of mapped entity types.
type SchemaManager struct {
	db      persistence.Runner
	logger  *zap.Logger
	options *Options
}

// NewSchemaManager creates a SchemaManager running its statements on db.
func NewSchemaManager(db persistence.Runner, logger *zap.Logger, options *Options) *SchemaManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if options == nil {
		options = DefaultOptions()
	}
	return &SchemaManager{db: db, logger: logger, options: options}
}

// CreateTable creates the save-to table of m and the given indexes.
func (s *SchemaManager) CreateTable(ctx context.Context, m Mapped, indexes ...Index) error {
	stmt, err := s.CreateTableSQL(m)
	if err != nil {
		return err
	}
	b := m.Builder()
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create table %s: %w", b.SaveToTableName(), err)
	}
	s.logger.Debug("Created table", zap.String("table", b.SaveToTableName()), zap.String("sql", stmt))

	for _, index := range indexes {
		if err := s.CreateIndex(ctx, m, index); err != nil {
			return err
		}
	}
	return nil
}

// CreateTableSQL generates the CREATE TABLE statement for m. A single
// auto-increment key becomes an INTEGER PRIMARY KEY AUTOINCREMENT column,
// so that last_insert_rowid() reports it.
func (s *SchemaManager) CreateTableSQL(m Mapped) (string, error) {
	b := m.Builder()
	fm := b.FieldMap()
	if len(fm.Fields()) == 0 {
		return "", fmt.Errorf("table %s has no mapped fields", b.SaveToTableName())
	}

	keys := fm.KeyFields()
	rowid := len(keys) == 1 && keys[0].AutoIncrement

	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	if s.options.IfNotExists {
		sb.WriteString("IF NOT EXISTS ")
	}
	sb.WriteString(b.SaveToTableName() + " (\n")

	var columns []string
	for _, f := range fm.Fields() {
		if rowid && f == keys[0] {
			columns = append(columns, "    "+b.Column(f.Name)+" INTEGER PRIMARY KEY AUTOINCREMENT")
			continue
		}
		columns = append(columns, "    "+s.columnDefinition(b, f))
	}
	if len(keys) > 0 && !rowid {
		quoted := make([]string, len(keys))
		for i, k := range keys {
			quoted[i] = b.Column(k.Name)
		}
		columns = append(columns, "    PRIMARY KEY ("+strings.Join(quoted, ", ")+")")
	}
	sb.WriteString(strings.Join(columns, ",\n"))
	sb.WriteString("\n);")
	return sb.String(), nil
}

func (s *SchemaManager) columnDefinition(b *command.Builder, f *mapping.Field) string {
	parts := []string{b.Column(f.Name), ColumnType(f.DataType)}
	if !f.Nullable && !f.RowVersion {
		parts = append(parts, "NOT NULL")
	}
	return strings.Join(parts, " ")
}

// ColumnType maps a storage type to its SQLite declared type. The declared
// types are the ones the drivers use to decode booleans and timestamps.
func ColumnType(t mapping.DataType) string {
	switch t {
	case mapping.TypeString, mapping.TypeAnsiString, mapping.TypeGuid, mapping.TypeXml:
		return "TEXT"
	case mapping.TypeBoolean:
		return "BOOLEAN"
	case mapping.TypeByte, mapping.TypeInt16, mapping.TypeInt32, mapping.TypeInt64:
		return "INTEGER"
	case mapping.TypeSingle, mapping.TypeDouble:
		return "REAL"
	case mapping.TypeDecimal, mapping.TypeCurrency:
		return "NUMERIC"
	case mapping.TypeDate:
		return "DATE"
	case mapping.TypeTime, mapping.TypeDateTime, mapping.TypeDateTimeOffset:
		return "TIMESTAMP"
	default:
		return "BLOB"
	}
}

// CreateIndex creates one index on the save-to table of m.
func (s *SchemaManager) CreateIndex(ctx context.Context, m Mapped, index Index) error {
	stmt, err := s.CreateIndexSQL(m, index)
	if err != nil {
		return fmt.Errorf("failed to generate SQL for index %s: %w", index.Name, err)
	}
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create index %s: %w", index.Name, err)
	}
	return nil
}

// CreateIndexSQL generates the CREATE INDEX statement for index. An unnamed
// index is called idx_<table>_<columns>.
func (s *SchemaManager) CreateIndexSQL(m Mapped, index Index) (string, error) {
	if len(index.Fields) == 0 {
		return "", errors.New("index has no fields")
	}
	b := m.Builder()
	fm := b.FieldMap()

	columns := make([]string, len(index.Fields))
	names := make([]string, len(index.Fields))
	for i, name := range index.Fields {
		f, ok := fm.Lookup(name)
		if !ok {
			return "", fmt.Errorf("field %q is not mapped", name)
		}
		names[i] = f.Name
		columns[i] = b.Column(f.Name)
		if index.Descending {
			columns[i] += " DESC"
		}
	}

	var sb strings.Builder
	sb.WriteString("CREATE ")
	if index.Unique {
		sb.WriteString("UNIQUE ")
	}
	sb.WriteString("INDEX ")
	if s.options.IfNotExists {
		sb.WriteString("IF NOT EXISTS ")
	}
	indexName := index.Name
	if indexName == "" {
		indexName = fmt.Sprintf("idx_%s_%s", unquote(b.SaveToTableName()), strings.Join(names, "_"))
	}
	sb.WriteString(dialect.SQLite{}.FormatFieldName(indexName, nil))
	sb.WriteString(fmt.Sprintf(" ON %s (%s);", b.SaveToTableName(), strings.Join(columns, ", ")))
	return sb.String(), nil
}

// DropTable drops the save-to table of m.
func (s *SchemaManager) DropTable(ctx context.Context, m Mapped) error {
	table := m.Builder().SaveToTableName()
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s;", table)); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", table, err)
	}
	return nil
}

// TableExists checks if the save-to table of m exists.
func (s *SchemaManager) TableExists(ctx context.Context, m Mapped) (bool, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name = ?;", unquote(m.Builder().SaveToTableName()))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	exists := rows.Next()
	return exists, rows.Err()
}

func unquote(table string) string {
	return strings.Trim(table, `"`)
}
