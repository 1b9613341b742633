package dialect

import (
	"fmt"
	"strings"

	"github.com/asaidimu/go-datamap/core/mapping"
)

// MySQL uses backtick quoting and positional '?' parameters.
type MySQL struct{}

// maxRows is the documented way to OFFSET without a LIMIT in MySQL.
const maxRows = "18446744073709551615"

func (MySQL) Name() string                         { return "mysql" }
func (MySQL) SupportsRowVersion() bool             { return false }
func (MySQL) SupportsSchema() bool                 { return true }
func (MySQL) SupportsLimit() bool                  { return true }
func (MySQL) SupportsStoredProcedures() bool       { return true }
func (MySQL) UseSQLBatches() bool                  { return false }
func (MySQL) UseNamedParameters() bool             { return false }
func (MySQL) QuotedIdentifiers() QuotedIdentifiers { return Preferred }

func (d MySQL) FormatFieldName(name string, quote *bool) string {
	if !shouldQuote(d.QuotedIdentifiers(), quote) {
		return name
	}
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (d MySQL) FormatTableName(table, schema string, quote *bool) string {
	return qualify(d, table, schema, quote)
}

func (MySQL) FormatParameterName(string, CommandKind) string { return "?" }

func (MySQL) FormatAutoIncrementSelect(string) (string, error) {
	return "LAST_INSERT_ID()", nil
}

func (MySQL) FormatLimitQuery(q LimitQuery) (string, error) {
	limit := maxRows
	if q.Length > 0 {
		limit = fmt.Sprint(q.Length)
	}
	return fmt.Sprintf("%s LIMIT %s OFFSET %d", selectText(q), limit, q.Start), nil
}

func (MySQL) BindValue(_ mapping.DataType, v any) any { return v }

func (MySQL) Rebind(query string) string { return query }
