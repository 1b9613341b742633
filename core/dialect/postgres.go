package dialect

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/asaidimu/go-datamap/core/mapping"
)

// Postgres quotes with pq.QuoteIdentifier and numbers its parameters $1..$n.
// Builders emit '?' and call Rebind as each statement is finished.
type Postgres struct{}

func (Postgres) Name() string                         { return "postgres" }
func (Postgres) SupportsRowVersion() bool             { return false }
func (Postgres) SupportsSchema() bool                 { return true }
func (Postgres) SupportsLimit() bool                  { return true }
func (Postgres) SupportsStoredProcedures() bool       { return true }
func (Postgres) UseSQLBatches() bool                  { return false }
func (Postgres) UseNamedParameters() bool             { return false }
func (Postgres) QuotedIdentifiers() QuotedIdentifiers { return Preferred }

func (d Postgres) FormatFieldName(name string, quote *bool) string {
	if !shouldQuote(d.QuotedIdentifiers(), quote) {
		return name
	}
	return pq.QuoteIdentifier(name)
}

func (d Postgres) FormatTableName(table, schema string, quote *bool) string {
	return qualify(d, table, schema, quote)
}

func (Postgres) FormatParameterName(string, CommandKind) string { return "?" }

// FormatAutoIncrementSelect reads the sequence behind a serial column. Without
// a declared sequence it falls back to lastval().
func (Postgres) FormatAutoIncrementSelect(sequence string) (string, error) {
	if sequence == "" {
		return "lastval()", nil
	}
	return "currval(" + pq.QuoteLiteral(sequence) + ")", nil
}

func (Postgres) FormatLimitQuery(q LimitQuery) (string, error) {
	if q.Length > 0 {
		return fmt.Sprintf("%s LIMIT %d OFFSET %d", selectText(q), q.Length, q.Start), nil
	}
	return fmt.Sprintf("%s OFFSET %d", selectText(q), q.Start), nil
}

func (Postgres) BindValue(_ mapping.DataType, v any) any { return v }

// Rebind numbers the '?' placeholders outside quoted literals and
// identifiers. Question marks inside quotes are doubled first, which squirrel
// writes back as a single '?'.
func (Postgres) Rebind(query string) string {
	out, err := sq.Dollar.ReplacePlaceholders(escapeQuoted(query))
	if err != nil {
		return query
	}
	return out
}

// escapeQuoted doubles every '?' inside a '...' or "..." span. Doubled quotes
// close and reopen the span, so they need no special case.
func escapeQuoted(query string) string {
	if !strings.ContainsAny(query, `'"`) {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	var quote rune
	for _, r := range query {
		switch {
		case quote == 0 && (r == '\'' || r == '"'):
			quote = r
		case quote != 0 && r == quote:
			quote = 0
		case quote != 0 && r == '?':
			b.WriteRune('?')
		}
		b.WriteRune(r)
	}
	return b.String()
}
