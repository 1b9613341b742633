package command

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/asaidimu/go-datamap/core/dialect"
	"github.com/asaidimu/go-datamap/core/mapping"
)

// DefaultParameterPrefix marks argument tokens ($0, $1...) in Text clauses.
const DefaultParameterPrefix = '$'

// Builder generates commands for one field map and dialect. It is safe for
// concurrent use.
type Builder struct {
	fm                *mapping.FieldMap
	dialect           dialect.Dialect
	quote             *bool
	tableName         string
	saveToTable       string
	nullStringDefault any
	paramPrefix       rune

	table     string // formatted read-from table
	saveTable string // formatted save-to table

	mu     sync.RWMutex
	shapes map[string][]*shape
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithQuotedIdentifiers overrides the dialect's quoting policy for fields and
// tables that carry no override of their own.
func WithQuotedIdentifiers(quote *bool) BuilderOption {
	return func(b *Builder) { b.quote = quote }
}

// WithTableName overrides the table reads come from.
func WithTableName(name string) BuilderOption {
	return func(b *Builder) { b.tableName = name }
}

// WithSaveToTable overrides the table writes go to.
func WithSaveToTable(name string) BuilderOption {
	return func(b *Builder) { b.saveToTable = name }
}

// WithNullStringDefault sets the value written for nil string properties.
// The default writes NULL.
func WithNullStringDefault(v any) BuilderOption {
	return func(b *Builder) { b.nullStringDefault = v }
}

// WithParameterPrefix sets the rune that introduces argument tokens in Text.
func WithParameterPrefix(r rune) BuilderOption {
	return func(b *Builder) { b.paramPrefix = r }
}

// NewBuilder returns a Builder for fm. A nil dialect means dialect.Generic.
func NewBuilder(fm *mapping.FieldMap, d dialect.Dialect, opts ...BuilderOption) *Builder {
	if d == nil {
		d = dialect.Generic{}
	}
	b := &Builder{
		fm:          fm,
		dialect:     d,
		paramPrefix: DefaultParameterPrefix,
		shapes:      make(map[string][]*shape),
	}
	for _, opt := range opts {
		opt(b)
	}

	item := fm.DataItem()
	if b.tableName == "" {
		b.tableName = item.TableName
	}
	if b.saveToTable == "" {
		b.saveToTable = item.SaveToTable
	}
	quote := b.quote
	if item.UseQuotedIdentifier != nil {
		quote = item.UseQuotedIdentifier
	}
	b.table = d.FormatTableName(b.tableName, item.SchemaName, quote)
	b.saveTable = d.FormatTableName(b.saveToTable, item.SchemaName, quote)
	return b
}

func (b *Builder) FieldMap() *mapping.FieldMap { return b.fm }

func (b *Builder) Dialect() dialect.Dialect { return b.dialect }

// TableName returns the formatted table reads come from.
func (b *Builder) TableName() string { return b.table }

// SaveToTableName returns the formatted table writes go to.
func (b *Builder) SaveToTableName() string { return b.saveTable }

// ResolveSelectBack turns SelectBackDefault into a concrete policy.
func (b *Builder) ResolveSelectBack(sb SelectBack) SelectBack {
	if sb != SelectBackDefault {
		return sb
	}
	if b.fm.HasGeneratedValues() {
		return SelectBackAllFields
	}
	return SelectBackNone
}

// Column formats the column of a property or storage name. Unknown names are
// formatted as given.
func (b *Builder) Column(name string) string {
	if f, ok := b.fm.Lookup(name); ok {
		return b.column(f)
	}
	return b.dialect.FormatFieldName(name, b.quote)
}

func (b *Builder) column(f *mapping.Field) string {
	quote := b.quote
	if f.Quote != nil {
		quote = f.Quote
	}
	return b.dialect.FormatFieldName(f.Name, quote)
}

func (b *Builder) selectList() string {
	cols := make([]string, len(b.fm.Fields()))
	for i, f := range b.fm.Fields() {
		cols[i] = b.column(f)
	}
	return strings.Join(cols, ", ")
}

// cached returns the shapes stored under key, building them on first use.
func (b *Builder) cached(key string, build func() ([]*shape, error)) ([]*shape, error) {
	b.mu.RLock()
	s, ok := b.shapes[key]
	b.mu.RUnlock()
	if ok {
		return s, nil
	}
	s, err := build()
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if prev, ok := b.shapes[key]; ok {
		return prev, nil
	}
	b.shapes[key] = s
	return s, nil
}

func (b *Builder) bindAll(shapes []*shape, entity any) []*Command {
	cmds := make([]*Command, len(shapes))
	for i, s := range shapes {
		cmds[i] = s.bind(b, entity)
	}
	return cmds
}

func (b *Builder) noKeyError() error {
	return &mapping.ConfigurationError{Type: b.fm.Type(), Reason: "no key fields declared"}
}

type source int

const (
	fromCurrent source = iota
	fromOriginal
	fromLiteral
)

// paramSpec is the structural part of a parameter; the value is resolved
// when the shape is bound to an entity.
type paramSpec struct {
	name   string
	field  *mapping.Field
	source source
	value  any
	write  bool // value written to a column: null-string default applies
	bulk   bool // empty GUIDs are written as NULL
}

func (p paramSpec) sameAs(o paramSpec) bool {
	return p.source != fromLiteral && p.field == o.field && p.source == o.source
}

type shape struct {
	text               string
	params             []paramSpec
	rowsAffectedColumn string
}

func (s *shape) bind(b *Builder, entity any) *Command {
	originals := originalsOf(entity)
	cmd := &Command{
		Text:               s.text,
		Kind:               dialect.CommandText,
		Params:             make([]Parameter, len(s.params)),
		RowsAffectedColumn: s.rowsAffectedColumn,
	}
	for i, p := range s.params {
		var v any
		switch p.source {
		case fromCurrent:
			v = p.field.Value(entity)
		case fromOriginal:
			v = originalOrCurrent(p.field, entity, originals)
		default:
			v = p.value
		}
		param := Parameter{Name: p.name, Type: mapping.TypeObject, Size: -1, Value: v}
		if p.field != nil {
			param.Column = p.field.Name
			param.Type = p.field.DataType
			param.Size = p.field.Length
			param.Value = b.writeValue(p, v)
		} else if v != nil {
			param.Type = mapping.DataTypeOf(reflect.TypeOf(v))
		}
		cmd.Params[i] = param
	}
	return cmd
}

func (b *Builder) writeValue(p paramSpec, v any) any {
	if p.bulk {
		if id, ok := v.(uuid.UUID); ok && id == uuid.Nil {
			return nil
		}
	}
	if p.write && v == nil && p.field.Type().Kind() == reflect.Pointer &&
		p.field.Type().Elem().Kind() == reflect.String {
		return b.nullStringDefault
	}
	return v
}

type tracked interface {
	OriginalValues() map[string]any
}

func originalsOf(entity any) map[string]any {
	if t, ok := entity.(tracked); ok {
		return t.OriginalValues()
	}
	return nil
}

// originalOrCurrent returns the committed value of f when it was captured,
// otherwise its current value.
func originalOrCurrent(f *mapping.Field, entity any, originals map[string]any) any {
	if v, ok := originals[f.Property]; ok {
		return deref(v)
	}
	return f.Value(entity)
}

func deref(v any) any {
	rv := reflect.ValueOf(v)
	for rv.IsValid() && rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	return rv.Interface()
}

// writer accumulates the parameters of a shape under construction. Named
// dialects share one parameter per distinct name; positional dialects get one
// parameter per token.
type writer struct {
	b        *Builder
	params   []paramSpec
	named    map[string]paramSpec
	literals int
}

func newWriter(b *Builder) *writer {
	return &writer{b: b, named: make(map[string]paramSpec)}
}

func (w *writer) token(spec paramSpec) string {
	d := w.b.dialect
	if !d.UseNamedParameters() {
		w.params = append(w.params, spec)
		return d.FormatParameterName(spec.name, dialect.CommandText)
	}
	name := dialect.SanitizeParameterName(spec.name)
	if prev, ok := w.named[name]; ok {
		if prev.sameAs(spec) {
			return d.FormatParameterName(name, dialect.CommandText)
		}
		base := name
		for i := 1; ; i++ {
			name = fmt.Sprintf("%s_%d", base, i)
			if _, taken := w.named[name]; !taken {
				break
			}
		}
	}
	spec.name = name
	w.named[name] = spec
	w.params = append(w.params, spec)
	return d.FormatParameterName(name, dialect.CommandText)
}

// current writes a parameter bound to the field's current value.
func (w *writer) current(f *mapping.Field) string {
	return w.token(paramSpec{name: f.Name, field: f, source: fromCurrent})
}

// value writes a parameter whose value is stored in a column.
func (w *writer) value(f *mapping.Field, bulk bool) string {
	return w.token(paramSpec{name: f.Name, field: f, source: fromCurrent, write: true, bulk: bulk})
}

// original writes a parameter bound to the field's committed value.
func (w *writer) original(f *mapping.Field) string {
	return w.token(paramSpec{name: "old_" + f.Name, field: f, source: fromOriginal})
}

func (w *writer) literal(f *mapping.Field, name string, v any) string {
	if name == "" {
		name = fmt.Sprintf("p%d", w.literals)
		w.literals++
	}
	return w.token(paramSpec{name: name, field: f, source: fromLiteral, value: v, write: f != nil})
}

func (w *writer) shape(text string) *shape {
	return &shape{text: w.b.dialect.Rebind(text), params: w.params}
}
