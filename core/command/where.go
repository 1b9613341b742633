package command

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/asaidimu/go-datamap/core/dialect"
	"github.com/asaidimu/go-datamap/core/mapping"
)

// Where renders a filter into SQL text, registering its arguments with the
// WhereBuilder. An empty result means no WHERE clause.
type Where interface {
	Render(w *WhereBuilder) (string, error)
}

// WhereBuilder gives filter translators access to column formatting and
// parameter allocation for the command being built.
type WhereBuilder struct {
	w *writer
}

func (wb *WhereBuilder) Dialect() dialect.Dialect { return wb.w.b.dialect }

// Prefix is the rune introducing argument tokens in Text clauses.
func (wb *WhereBuilder) Prefix() rune { return wb.w.b.paramPrefix }

// Field resolves a property or storage name.
func (wb *WhereBuilder) Field(name string) (*mapping.Field, bool) {
	return wb.w.b.fm.Lookup(name)
}

// Column formats the column for a property or storage name.
func (wb *WhereBuilder) Column(name string) string {
	return wb.w.b.Column(name)
}

// Param allocates a free parameter and returns its SQL token.
func (wb *WhereBuilder) Param(value any) string {
	return wb.w.literal(nil, "", value)
}

// FieldParam allocates a parameter typed after f.
func (wb *WhereBuilder) FieldParam(f *mapping.Field, value any) string {
	return wb.w.literal(f, "", value)
}

func render(w *writer, where Where) (string, error) {
	if where == nil {
		return "", nil
	}
	return where.Render(&WhereBuilder{w: w})
}

type text struct {
	sql  string
	args []any
}

// Text is a raw WHERE clause. Tokens made of the builder's parameter prefix
// and an argument index ($0, $1...) are replaced by parameters.
func Text(sql string, args ...any) Where {
	return text{sql: sql, args: args}
}

func (t text) Render(wb *WhereBuilder) (string, error) {
	prefix := wb.Prefix()
	named := wb.Dialect().UseNamedParameters()
	tokens := make(map[int]string)

	var b strings.Builder
	runes := []rune(t.sql)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != prefix || i+1 >= len(runes) || !unicode.IsDigit(runes[i+1]) {
			b.WriteRune(r)
			continue
		}
		j := i + 1
		for j < len(runes) && unicode.IsDigit(runes[j]) {
			j++
		}
		idx, err := strconv.Atoi(string(runes[i+1 : j]))
		if err != nil || idx >= len(t.args) {
			return "", fmt.Errorf("command: argument %s has no value (%d given)", string(runes[i:j]), len(t.args))
		}
		tok, seen := tokens[idx]
		if !seen || !named {
			tok = wb.Param(t.args[idx])
			tokens[idx] = tok
		}
		b.WriteString(tok)
		i = j - 1
	}
	return b.String(), nil
}

// Filter compares one field with a value. A nil value with "=" or "<>"
// renders as IS NULL or IS NOT NULL.
type Filter struct {
	Field string
	Op    string
	Value any
}

// Filters is a conjunction of Filter terms.
type Filters []Filter

var filterOps = map[string]string{
	"=": "=", "==": "=", "<>": "<>", "!=": "<>",
	"<": "<", "<=": "<=", ">": ">", ">=": ">=",
	"LIKE": "LIKE", "NOT LIKE": "NOT LIKE",
}

func (fs Filters) Render(wb *WhereBuilder) (string, error) {
	terms := make([]string, 0, len(fs))
	for _, f := range fs {
		field, ok := wb.Field(f.Field)
		if !ok {
			return "", fmt.Errorf("command: filter on unmapped field %q", f.Field)
		}
		op := f.Op
		if op == "" {
			op = "="
		}
		sqlOp, ok := filterOps[strings.ToUpper(strings.TrimSpace(op))]
		if !ok {
			return "", fmt.Errorf("command: unsupported filter operator %q", f.Op)
		}
		col := wb.Column(f.Field)
		if mapping.Equal(f.Value, nil) {
			switch sqlOp {
			case "=":
				terms = append(terms, col+" IS NULL")
				continue
			case "<>":
				terms = append(terms, col+" IS NOT NULL")
				continue
			}
		}
		terms = append(terms, col+" "+sqlOp+" "+wb.FieldParam(field, f.Value))
	}
	return strings.Join(terms, " AND "), nil
}
