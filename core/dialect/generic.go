package dialect

import "github.com/asaidimu/go-datamap/core/mapping"

// Generic is the ANSI fallback for unrecognised drivers: no quoting, no
// limit support and '?' placeholders.
type Generic struct{}

func (Generic) Name() string                         { return "generic" }
func (Generic) SupportsRowVersion() bool             { return false }
func (Generic) SupportsSchema() bool                 { return false }
func (Generic) SupportsLimit() bool                  { return false }
func (Generic) SupportsStoredProcedures() bool       { return false }
func (Generic) UseSQLBatches() bool                  { return false }
func (Generic) UseNamedParameters() bool             { return false }
func (Generic) QuotedIdentifiers() QuotedIdentifiers { return NotSupported }

func (Generic) FormatFieldName(name string, _ *bool) string { return name }

func (g Generic) FormatTableName(table, schema string, quote *bool) string {
	return qualify(g, table, schema, quote)
}

func (Generic) FormatParameterName(string, CommandKind) string { return "?" }

func (g Generic) FormatAutoIncrementSelect(string) (string, error) {
	return "", &UnsupportedFeatureError{Dialect: g.Name(), Feature: "auto-increment select"}
}

func (g Generic) FormatLimitQuery(LimitQuery) (string, error) {
	return "", &UnsupportedFeatureError{Dialect: g.Name(), Feature: "limit query"}
}

func (Generic) BindValue(_ mapping.DataType, v any) any { return v }

func (Generic) Rebind(query string) string { return query }
