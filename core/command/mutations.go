package command

import (
	"fmt"
	"strings"

	"github.com/asaidimu/go-datamap/core/mapping"
)

// RowsAffectedColumn is the result column carrying the UPDATE row count in
// batched narrow updates.
const RowsAffectedColumn = "__rows_affected"

// InsertCommands returns the INSERT for entity and, when sb asks for it, the
// SELECT reading the stored row back. Batch dialects get both statements in a
// single command.
func (b *Builder) InsertCommands(entity any, sb SelectBack) ([]*Command, error) {
	sb = b.ResolveSelectBack(sb)
	identity := b.fm.AutoIncrementField()
	explicit := identity != nil && !identity.IsZero(entity)

	var cols []*mapping.Field
	for _, f := range b.fm.Fields() {
		if !f.Insertable() || (f.AutoIncrement && !explicit) {
			continue
		}
		cols = append(cols, f)
	}

	key := fmt.Sprintf("insert|%s|%t|%d", fieldKey(cols), explicit, sb)
	shapes, err := b.cached(key, func() ([]*shape, error) {
		w := newWriter(b)
		insert := b.insertText(w, cols)
		if sb == SelectBackNone {
			return []*shape{w.shape(insert)}, nil
		}
		if b.dialect.UseSQLBatches() {
			where, err := b.insertedRowWhere(w, identity, explicit)
			if err != nil {
				return nil, err
			}
			return []*shape{w.shape(insert + "; " + b.selectText(b.saveTable, where))}, nil
		}
		rw := newWriter(b)
		where, err := b.insertedRowWhere(rw, identity, explicit)
		if err != nil {
			return nil, err
		}
		return []*shape{w.shape(insert), rw.shape(b.selectText(b.saveTable, where))}, nil
	})
	if err != nil {
		return nil, err
	}
	return b.bindAll(shapes, entity), nil
}

func (b *Builder) insertText(w *writer, cols []*mapping.Field) string {
	if len(cols) == 0 {
		return "INSERT INTO " + b.saveTable + " DEFAULT VALUES"
	}
	names := make([]string, len(cols))
	values := make([]string, len(cols))
	for i, f := range cols {
		names[i] = b.column(f)
		values[i] = w.value(f, false)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		b.saveTable, strings.Join(names, ", "), strings.Join(values, ", "))
}

// insertedRowWhere locates a freshly inserted row: by the generated identity
// when the database assigned it, otherwise by key.
func (b *Builder) insertedRowWhere(w *writer, identity *mapping.Field, explicit bool) (string, error) {
	if identity != nil && !explicit {
		expr, err := b.dialect.FormatAutoIncrementSelect(identity.Sequence)
		if err != nil {
			return "", err
		}
		return b.column(identity) + " = " + expr, nil
	}
	return b.keyWhere(w, false)
}

// keyWhere constrains every key field, on original values when byOriginal is
// set and on current values otherwise.
func (b *Builder) keyWhere(w *writer, byOriginal bool) (string, error) {
	keys := b.fm.KeyFields()
	if len(keys) == 0 {
		return "", b.noKeyError()
	}
	terms := make([]string, len(keys))
	for i, f := range keys {
		if byOriginal {
			terms[i] = b.column(f) + " = " + w.original(f)
		} else {
			terms[i] = b.column(f) + " = " + w.current(f)
		}
	}
	return strings.Join(terms, " AND "), nil
}

func (b *Builder) selectText(table, where string) string {
	text := "SELECT " + b.selectList() + " FROM " + table
	if where != "" {
		text += " WHERE " + where
	}
	return text
}

// ChangedFields returns the mapped fields whose current value differs from
// the value recorded in the entity's snapshot, in declaration order.
func (b *Builder) ChangedFields(entity any) []*mapping.Field {
	originals := originalsOf(entity)
	if len(originals) == 0 {
		return nil
	}
	var changed []*mapping.Field
	for _, f := range b.fm.Fields() {
		orig, ok := originals[f.Property]
		if ok && !mapping.Equal(orig, f.Value(entity)) {
			changed = append(changed, f)
		}
	}
	return changed
}

func (b *Builder) setFields(changed []*mapping.Field, affect UpdateAffect) []*mapping.Field {
	var set []*mapping.Field
	if affect == AffectAllFields {
		for _, f := range b.fm.Fields() {
			if f.Updatable() {
				set = append(set, f)
			}
		}
		return set
	}
	for _, f := range changed {
		if f.Updatable() {
			set = append(set, f)
		}
	}
	return set
}

// whereTerm is one constrained column of an UPDATE; null terms render as IS NULL.
type whereTerm struct {
	field *mapping.Field
	null  bool
}

func (b *Builder) whereTerms(entity any, changed []*mapping.Field, criteria UpdateCriteria) ([]whereTerm, error) {
	if len(b.fm.KeyFields()) == 0 {
		return nil, b.noKeyError()
	}
	originals := originalsOf(entity)
	var terms []whereTerm
	seen := make(map[*mapping.Field]bool)
	add := func(f *mapping.Field) {
		if seen[f] {
			return
		}
		seen[f] = true
		v := originalOrCurrent(f, entity, originals)
		terms = append(terms, whereTerm{field: f, null: mapping.Equal(v, nil)})
	}

	for _, f := range b.fm.KeyFields() {
		add(f)
	}
	if criteria == CriteriaDefault {
		if rv := b.fm.RowVersionField(); rv != nil {
			add(rv)
			return terms, nil
		}
		criteria = CriteriaChangedFields
	}
	switch criteria {
	case CriteriaChangedFields:
		for _, f := range changed {
			if f.Comparable() {
				add(f)
			}
		}
	case CriteriaAllFields:
		for _, f := range b.fm.Fields() {
			if f.Comparable() && (f.Updatable() || f.RowVersion) {
				add(f)
			}
		}
	}
	return terms, nil
}

func (b *Builder) updateText(w *writer, set []*mapping.Field, terms []whereTerm) string {
	assignments := make([]string, len(set))
	for i, f := range set {
		assignments[i] = b.column(f) + " = " + w.value(f, false)
	}
	conds := make([]string, len(terms))
	for i, t := range terms {
		if t.null {
			conds[i] = b.column(t.field) + " IS NULL"
		} else {
			conds[i] = b.column(t.field) + " = " + w.original(t.field)
		}
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		b.saveTable, strings.Join(assignments, ", "), strings.Join(conds, " AND "))
}

// UpdateCommands returns the UPDATE for a modified entity and, when sb asks
// for it, a SELECT re-reading the row by its current key. It returns nil when
// affect is AffectChangedFields and no field actually changed.
func (b *Builder) UpdateCommands(entity any, criteria UpdateCriteria, affect UpdateAffect, sb SelectBack) ([]*Command, error) {
	changed := b.ChangedFields(entity)
	set := b.setFields(changed, affect)
	if len(set) == 0 {
		return nil, nil
	}
	terms, err := b.whereTerms(entity, changed, criteria)
	if err != nil {
		return nil, err
	}
	w := newWriter(b)
	cmds := []*Command{w.shape(b.updateText(w, set, terms)).bind(b, entity)}
	if b.ResolveSelectBack(sb) == SelectBackAllFields {
		requery, err := b.requery(entity, false)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, requery)
	}
	return cmds, nil
}

// Update2Commands is the narrow update used when only changed fields are
// written and criteria is at most CriteriaChangedFields. Its shape is cached.
// On batch dialects the UPDATE, a capture of its row count and the select
// back travel in one command whose first column is RowsAffectedColumn.
func (b *Builder) Update2Commands(entity any, criteria UpdateCriteria, selectBack bool) ([]*Command, error) {
	if criteria > CriteriaChangedFields {
		sb := SelectBackNone
		if selectBack {
			sb = SelectBackAllFields
		}
		return b.UpdateCommands(entity, criteria, AffectChangedFields, sb)
	}
	changed := b.ChangedFields(entity)
	set := b.setFields(changed, AffectChangedFields)
	if len(set) == 0 {
		return nil, nil
	}
	terms, err := b.whereTerms(entity, changed, criteria)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("update2|%s|%s|%t", fieldKey(set), termKey(terms), selectBack)
	shapes, err := b.cached(key, func() ([]*shape, error) {
		w := newWriter(b)
		update := b.updateText(w, set, terms)
		if !selectBack {
			return []*shape{w.shape(update)}, nil
		}
		if b.dialect.UseSQLBatches() {
			where, err := b.keyWhere(w, false)
			if err != nil {
				return nil, err
			}
			text := fmt.Sprintf("DECLARE @%[1]s int; %[2]s; SET @%[1]s = @@ROWCOUNT; SELECT @%[1]s AS %[3]s, %[4]s FROM %[5]s WHERE %[6]s",
				RowsAffectedColumn, update, b.dialect.FormatFieldName(RowsAffectedColumn, nil), b.selectList(), b.saveTable, where)
			s := w.shape(text)
			s.rowsAffectedColumn = RowsAffectedColumn
			return []*shape{s}, nil
		}
		rw := newWriter(b)
		where, err := b.keyWhere(rw, false)
		if err != nil {
			return nil, err
		}
		return []*shape{w.shape(update), rw.shape(b.selectText(b.saveTable, where))}, nil
	})
	if err != nil {
		return nil, err
	}
	return b.bindAll(shapes, entity), nil
}

// RequeryCommand selects the stored row of entity by its committed key, the
// way conflict detection needs it.
func (b *Builder) RequeryCommand(entity any) (*Command, error) {
	return b.requery(entity, true)
}

func (b *Builder) requery(entity any, byOriginal bool) (*Command, error) {
	key := fmt.Sprintf("requery|%t", byOriginal)
	shapes, err := b.cached(key, func() ([]*shape, error) {
		w := newWriter(b)
		where, err := b.keyWhere(w, byOriginal)
		if err != nil {
			return nil, err
		}
		return []*shape{w.shape(b.selectText(b.saveTable, where))}, nil
	})
	if err != nil {
		return nil, err
	}
	return shapes[0].bind(b, entity), nil
}

// DeleteItemCommand deletes the row of entity by key.
func (b *Builder) DeleteItemCommand(entity any) (*Command, error) {
	shapes, err := b.cached("delete-item", func() ([]*shape, error) {
		w := newWriter(b)
		where, err := b.keyWhere(w, true)
		if err != nil {
			return nil, err
		}
		return []*shape{w.shape("DELETE FROM " + b.saveTable + " WHERE " + where)}, nil
	})
	if err != nil {
		return nil, err
	}
	return shapes[0].bind(b, entity), nil
}

func fieldKey(fields []*mapping.Field) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Property
	}
	return strings.Join(names, ",")
}

func termKey(terms []whereTerm) string {
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = t.field.Property
		if t.null {
			parts[i] += "!"
		}
	}
	return strings.Join(parts, ",")
}
