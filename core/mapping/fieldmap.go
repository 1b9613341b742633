package mapping

import (
	"math"
	"reflect"
	"strings"

	"golang.org/x/text/cases"
)

// LatestSchemaVersion includes every field regardless of its version tag.
const LatestSchemaVersion = math.MaxInt32

// DataItem is the table-level declaration of a persisted type.
type DataItem struct {
	TableName           string
	SaveToTable         string // defaults to TableName
	SchemaName          string
	UseQuotedIdentifier *bool
	SnakeCase           bool // derive storage names from Go names in snake_case
}

// Declarer is implemented by types that declare the table they are stored in.
//
//	func (*Product) DataItem() mapping.DataItem {
//		return mapping.DataItem{TableName: "Products"}
//	}
type Declarer interface {
	DataItem() DataItem
}

// Options selects which field map is generated for a type.
type Options struct {
	TableName     string   // overrides DataItem.TableName
	KeyFields     []string // overrides key tags; property or storage names
	SchemaVersion int      // 0 means LatestSchemaVersion
}

func (o Options) version() int {
	if o.SchemaVersion <= 0 {
		return LatestSchemaVersion
	}
	return o.SchemaVersion
}

// FieldMap is the immutable persistence metadata of one type.
type FieldMap struct {
	typ        reflect.Type
	item       DataItem
	fields     []*Field
	keys       []*Field
	byProperty map[string]*Field
	byName     map[string]*Field
	rowVersion *Field
	autoInc    *Field
}

// Type returns the mapped struct type.
func (m *FieldMap) Type() reflect.Type { return m.typ }

// DataItem returns the resolved table declaration.
func (m *FieldMap) DataItem() DataItem { return m.item }

// Fields returns every mapped field in declaration order.
func (m *FieldMap) Fields() []*Field { return m.fields }

// KeyFields returns the fields forming the row key.
func (m *FieldMap) KeyFields() []*Field { return m.keys }

// RowVersionField returns the row-version field, or nil.
func (m *FieldMap) RowVersionField() *Field { return m.rowVersion }

// AutoIncrementField returns the auto-increment field, or nil.
func (m *FieldMap) AutoIncrementField() *Field { return m.autoInc }

// FieldForProperty looks a field up by its Go property name.
func (m *FieldMap) FieldForProperty(property string) (*Field, bool) {
	f, ok := m.byProperty[property]
	return f, ok
}

// ReadableField looks a field up by storage name, ignoring case.
func (m *FieldMap) ReadableField(name string) (*Field, bool) {
	f, ok := m.byName[fold(name)]
	return f, ok
}

// Lookup resolves a property name first, then a storage name.
func (m *FieldMap) Lookup(name string) (*Field, bool) {
	if f, ok := m.byProperty[name]; ok {
		return f, true
	}
	return m.ReadableField(name)
}

// HasGeneratedValues reports whether any field is produced by the database.
func (m *FieldMap) HasGeneratedValues() bool {
	for _, f := range m.fields {
		if f.Generated() {
			return true
		}
	}
	return false
}

func fold(s string) string {
	return cases.Fold().String(s)
}

// declaredItem reads the DataItem declaration of t, if any.
func declaredItem(t reflect.Type) (DataItem, bool) {
	if d, ok := reflect.New(t).Interface().(Declarer); ok {
		return d.DataItem(), true
	}
	if d, ok := reflect.Zero(t).Interface().(Declarer); ok {
		return d.DataItem(), true
	}
	return DataItem{}, false
}

// Generate reflects t into a new FieldMap. Most callers want Cached, which
// guarantees a single map per type and option set.
func Generate(t reflect.Type, opts Options) (*FieldMap, error) {
	if t == nil {
		return nil, &ConfigurationError{Reason: "nil type"}
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, configError(t, "only struct types can be mapped, got %s", t.Kind())
	}

	item, _ := declaredItem(t)
	if opts.TableName != "" {
		if item.SaveToTable == item.TableName {
			item.SaveToTable = ""
		}
		item.TableName = opts.TableName
	}
	if strings.TrimSpace(item.TableName) == "" {
		return nil, configError(t, "no storage table declared")
	}
	if item.SaveToTable == "" {
		item.SaveToTable = item.TableName
	}

	m := &FieldMap{
		typ:        t,
		item:       item,
		byProperty: make(map[string]*Field),
		byName:     make(map[string]*Field),
	}
	if err := m.collect(t, nil, item.SnakeCase, opts.version()); err != nil {
		return nil, err
	}
	if len(opts.KeyFields) > 0 {
		if err := m.overrideKeys(opts.KeyFields); err != nil {
			return nil, err
		}
	}
	for _, f := range m.fields {
		if f.Key {
			m.keys = append(m.keys, f)
		}
		if f.RowVersion {
			if m.rowVersion != nil {
				return nil, configError(t, "more than one row-version field (%s, %s)", m.rowVersion.Property, f.Property)
			}
			m.rowVersion = f
		}
		if f.AutoIncrement {
			if m.autoInc != nil {
				return nil, configError(t, "more than one auto-increment field (%s, %s)", m.autoInc.Property, f.Property)
			}
			m.autoInc = f
		}
	}
	return m, nil
}

func (m *FieldMap) collect(t reflect.Type, parent []int, snake bool, version int) error {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		index := append(append([]int(nil), parent...), i)

		if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			if _, tagged := sf.Tag.Lookup(TagName); !tagged {
				if err := m.collect(sf.Type, index, snake, version); err != nil {
					return err
				}
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}

		f, err := parseField(m.typ, sf, index, snake)
		if err != nil {
			return err
		}
		if f == nil || f.SchemaVersion > version {
			continue
		}
		key := fold(f.Name)
		if other, dup := m.byName[key]; dup {
			return configError(m.typ, "properties %s and %s both map to storage name %q", other.Property, f.Property, f.Name)
		}
		m.byName[key] = f
		m.byProperty[f.Property] = f
		m.fields = append(m.fields, f)
	}
	return nil
}

func (m *FieldMap) overrideKeys(names []string) error {
	selected := make(map[*Field]bool, len(names))
	for _, name := range names {
		f, ok := m.Lookup(name)
		if !ok {
			return configError(m.typ, "key field %q does not correspond to a mapped property", name)
		}
		selected[f] = true
	}
	for _, f := range m.fields {
		f.Key = selected[f]
	}
	return nil
}
