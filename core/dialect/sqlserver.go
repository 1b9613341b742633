package dialect

import (
	"fmt"
	"strings"
	"time"

	mssql "github.com/denisenkom/go-mssqldb"
	"github.com/golang-sql/civil"

	"github.com/asaidimu/go-datamap/core/mapping"
)

// SQLServer speaks T-SQL: bracket quoting, '@' named parameters and
// multi-statement batches.
type SQLServer struct{}

const rowIndexColumn = "[__row_index]"

func (SQLServer) Name() string                         { return "sqlserver" }
func (SQLServer) SupportsRowVersion() bool             { return true }
func (SQLServer) SupportsSchema() bool                 { return true }
func (SQLServer) SupportsLimit() bool                  { return true }
func (SQLServer) SupportsStoredProcedures() bool       { return true }
func (SQLServer) UseSQLBatches() bool                  { return true }
func (SQLServer) UseNamedParameters() bool             { return true }
func (SQLServer) QuotedIdentifiers() QuotedIdentifiers { return Preferred }

func (d SQLServer) FormatFieldName(name string, quote *bool) string {
	if !shouldQuote(d.QuotedIdentifiers(), quote) {
		return name
	}
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func (d SQLServer) FormatTableName(table, schema string, quote *bool) string {
	return qualify(d, table, schema, quote)
}

func (SQLServer) FormatParameterName(name string, _ CommandKind) string {
	return namedParameter("@", name)
}

func (SQLServer) FormatAutoIncrementSelect(string) (string, error) {
	return "SCOPE_IDENTITY()", nil
}

// FormatLimitQuery pages with ROW_NUMBER(), which needs an ordering; an
// empty OrderBy numbers rows in server order.
func (SQLServer) FormatLimitQuery(q LimitQuery) (string, error) {
	orderBy := q.OrderBy
	if orderBy == "" {
		orderBy = "(SELECT 0)"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM (SELECT %s, ROW_NUMBER() OVER (ORDER BY %s) AS %s FROM %s",
		q.Columns, q.Columns, orderBy, rowIndexColumn, q.Table)
	if q.Where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(q.Where)
	}
	b.WriteString(") AS [__page] WHERE ")
	if q.Length > 0 {
		fmt.Fprintf(&b, "%s BETWEEN %d AND %d", rowIndexColumn, q.Start+1, q.Start+q.Length)
	} else {
		fmt.Fprintf(&b, "%s > %d", rowIndexColumn, q.Start)
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(rowIndexColumn)
	return b.String(), nil
}

// BindValue distinguishes date-only and time-only values, which the driver
// would otherwise send as datetime, and sends ANSI strings as varchar.
func (SQLServer) BindValue(t mapping.DataType, v any) any {
	switch t {
	case mapping.TypeTime:
		if tm, ok := v.(time.Time); ok {
			return civil.TimeOf(tm)
		}
	case mapping.TypeDate:
		if tm, ok := v.(time.Time); ok {
			return civil.DateOf(tm)
		}
	case mapping.TypeAnsiString:
		if s, ok := v.(string); ok {
			return mssql.VarChar(s)
		}
	}
	return v
}

func (SQLServer) Rebind(query string) string { return query }
