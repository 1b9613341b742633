// Package dialect translates abstract SQL needs (identifier quoting, parameter
// tokens, row limiting, identity retrieval) into provider-correct text.
//
// A dialect is a stateless value. It is chosen once per connection from the
// concrete database/sql driver, see Detect.
package dialect

import (
	"strings"
	"unicode"

	"github.com/asaidimu/go-datamap/core/mapping"
)

// QuotedIdentifiers is a dialect's identifier quoting policy.
type QuotedIdentifiers int

const (
	// NotSupported never quotes, whatever the caller asks for.
	NotSupported QuotedIdentifiers = iota
	// Preferred quotes unless the caller explicitly opts out.
	Preferred
	// Required always quotes.
	Required
)

func (q QuotedIdentifiers) String() string {
	switch q {
	case Preferred:
		return "preferred"
	case Required:
		return "required"
	default:
		return "not-supported"
	}
}

// CommandKind distinguishes plain statements from stored procedure calls.
type CommandKind int

const (
	CommandText CommandKind = iota
	CommandStoredProcedure
)

// LimitQuery describes a paged SELECT. Columns and Table are already
// formatted; Where and OrderBy carry no keyword and may be empty.
type LimitQuery struct {
	Columns string
	Table   string
	Where   string
	OrderBy string
	Start   int // zero-based offset
	Length  int // rows to return; <= 0 returns everything after Start
}

// Dialect is implemented by every supported SQL flavour.
type Dialect interface {
	Name() string

	SupportsRowVersion() bool
	SupportsSchema() bool
	SupportsLimit() bool
	SupportsStoredProcedures() bool
	UseSQLBatches() bool
	UseNamedParameters() bool
	QuotedIdentifiers() QuotedIdentifiers

	// FormatFieldName quotes name when quote is true, or when quote is nil and
	// the dialect prefers quoting.
	FormatFieldName(name string, quote *bool) string
	// FormatTableName formats a table, qualified by schema when supported.
	FormatTableName(table, schema string, quote *bool) string
	// FormatParameterName returns the token used in SQL text for a named
	// parameter. Positional dialects return their placeholder.
	FormatParameterName(name string, kind CommandKind) string
	// FormatAutoIncrementSelect returns the expression yielding the identity
	// generated by the last insert on the current session.
	FormatAutoIncrementSelect(sequence string) (string, error)
	// FormatLimitQuery returns a complete paged SELECT.
	FormatLimitQuery(q LimitQuery) (string, error)
	// BindValue converts an argument into the form the driver expects for
	// the semantic type.
	BindValue(t mapping.DataType, v any) any
	// Rebind rewrites '?' placeholders into the dialect's positional form.
	Rebind(query string) string
}

func shouldQuote(policy QuotedIdentifiers, quote *bool) bool {
	switch policy {
	case NotSupported:
		return false
	case Required:
		return true
	}
	return quote == nil || *quote
}

func qualify(d Dialect, table, schema string, quote *bool) string {
	name := d.FormatFieldName(table, quote)
	if schema == "" || !d.SupportsSchema() {
		return name
	}
	return d.FormatFieldName(schema, quote) + "." + name
}

// SanitizeParameterName strips any leading marker from name and replaces the
// characters database/sql rejects in a named argument. The result always
// starts with a letter.
func SanitizeParameterName(name string) string {
	name = strings.TrimLeft(name, "@:$?")
	var b strings.Builder
	for i, r := range name {
		switch {
		case unicode.IsLetter(r):
			b.WriteRune(r)
		case i == 0:
			b.WriteByte('p')
			if unicode.IsDigit(r) || r == '_' {
				b.WriteRune(r)
			} else {
				b.WriteByte('_')
			}
		case unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "p"
	}
	return b.String()
}

func namedParameter(marker, name string) string {
	return marker + SanitizeParameterName(name)
}

// selectText renders the SELECT that limit dialects append their clause to.
func selectText(q LimitQuery) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(q.Columns)
	b.WriteString(" FROM ")
	b.WriteString(q.Table)
	if q.Where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(q.Where)
	}
	if q.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(q.OrderBy)
	}
	return b.String()
}
