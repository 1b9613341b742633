package dialect

import (
	"fmt"
	"strings"

	"github.com/asaidimu/go-datamap/core/mapping"
)

// SQLite accepts '@name' parameters and double-quoted identifiers. It has no
// schemas and runs one statement per query.
type SQLite struct{}

func (SQLite) Name() string                         { return "sqlite" }
func (SQLite) SupportsRowVersion() bool             { return false }
func (SQLite) SupportsSchema() bool                 { return false }
func (SQLite) SupportsLimit() bool                  { return true }
func (SQLite) SupportsStoredProcedures() bool       { return false }
func (SQLite) UseSQLBatches() bool                  { return false }
func (SQLite) UseNamedParameters() bool             { return true }
func (SQLite) QuotedIdentifiers() QuotedIdentifiers { return Preferred }

func (d SQLite) FormatFieldName(name string, quote *bool) string {
	if !shouldQuote(d.QuotedIdentifiers(), quote) {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d SQLite) FormatTableName(table, schema string, quote *bool) string {
	return qualify(d, table, schema, quote)
}

func (SQLite) FormatParameterName(name string, _ CommandKind) string {
	return namedParameter("@", name)
}

func (SQLite) FormatAutoIncrementSelect(string) (string, error) {
	return "last_insert_rowid()", nil
}

func (SQLite) FormatLimitQuery(q LimitQuery) (string, error) {
	length := -1
	if q.Length > 0 {
		length = q.Length
	}
	return fmt.Sprintf("%s LIMIT %d OFFSET %d", selectText(q), length, q.Start), nil
}

func (SQLite) BindValue(_ mapping.DataType, v any) any { return v }

func (SQLite) Rebind(query string) string { return query }
