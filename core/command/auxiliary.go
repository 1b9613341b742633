package command

import (
	"fmt"
	"sort"
	"strings"

	"github.com/asaidimu/go-datamap/core/dialect"
	"github.com/asaidimu/go-datamap/core/mapping"
)

// clause renders where and prepends the WHERE keyword when it is not empty.
func clause(w *writer, where Where) (string, error) {
	text, err := render(w, where)
	if err != nil || text == "" {
		return "", err
	}
	return " WHERE " + text, nil
}

func (b *Builder) free(build func(w *writer) (string, error)) (*Command, error) {
	w := newWriter(b)
	text, err := build(w)
	if err != nil {
		return nil, err
	}
	return w.shape(text).bind(b, nil), nil
}

// DeleteCommand deletes every row of the save-to table matching where.
func (b *Builder) DeleteCommand(where Where) (*Command, error) {
	return b.free(func(w *writer) (string, error) {
		cond, err := clause(w, where)
		return "DELETE FROM " + b.saveTable + cond, err
	})
}

// CountCommand counts the rows matching where.
func (b *Builder) CountCommand(where Where) (*Command, error) {
	return b.free(func(w *writer) (string, error) {
		cond, err := clause(w, where)
		return "SELECT COUNT(*) FROM " + b.table + cond, err
	})
}

// ExistsCommand yields 1 when a row matches where and 0 otherwise.
func (b *Builder) ExistsCommand(where Where) (*Command, error) {
	return b.free(func(w *writer) (string, error) {
		cond, err := clause(w, where)
		return "SELECT CASE WHEN EXISTS (SELECT 1 FROM " + b.table + cond + ") THEN 1 ELSE 0 END", err
	})
}

// SelectCommand reads every mapped column of the rows matching where.
// orderBy is raw SQL without the ORDER BY keyword.
func (b *Builder) SelectCommand(where Where, orderBy string) (*Command, error) {
	return b.free(func(w *writer) (string, error) {
		cond, err := clause(w, where)
		text := "SELECT " + b.selectList() + " FROM " + b.table + cond
		if orderBy != "" {
			text += " ORDER BY " + orderBy
		}
		return text, err
	})
}

// PageCommand reads length rows starting at the zero-based row start.
func (b *Builder) PageCommand(where Where, orderBy string, start, length int) (*Command, error) {
	if start < 0 {
		return nil, fmt.Errorf("command: negative page start %d", start)
	}
	return b.free(func(w *writer) (string, error) {
		cond, err := render(w, where)
		if err != nil {
			return "", err
		}
		return b.dialect.FormatLimitQuery(dialect.LimitQuery{
			Columns: b.selectList(),
			Table:   b.table,
			Where:   cond,
			OrderBy: orderBy,
			Start:   start,
			Length:  length,
		})
	})
}

// UpdateRowsCommand writes the values in set, keyed by property or storage
// name, to every row matching where.
func (b *Builder) UpdateRowsCommand(set map[string]any, where Where) (*Command, error) {
	if len(set) == 0 {
		return nil, fmt.Errorf("command: no columns to update")
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)

	return b.free(func(w *writer) (string, error) {
		assignments := make([]string, len(names))
		for i, name := range names {
			f, ok := b.fm.Lookup(name)
			if !ok {
				return "", fmt.Errorf("command: %q is not a mapped field", name)
			}
			if !f.Updatable() {
				return "", fmt.Errorf("command: field %s is not updatable", f.Property)
			}
			assignments[i] = b.column(f) + " = " + w.literal(f, f.Name, set[name])
		}
		cond, err := clause(w, where)
		return "UPDATE " + b.saveTable + " SET " + strings.Join(assignments, ", ") + cond, err
	})
}

// Bulk is a prepared insert or update shape re-bound for each entity.
type Bulk struct {
	b     *Builder
	shape *shape
}

// Command binds the shape to entity.
func (k *Bulk) Command(entity any) *Command {
	return k.shape.bind(k.b, entity)
}

// Text returns the SQL text shared by every bound command.
func (k *Bulk) Text() string {
	return k.shape.text
}

// BulkInsertInfo prepares an INSERT of every insertable field except the
// identity, for inserting many entities without select back. Empty GUIDs are
// written as NULL.
func (b *Builder) BulkInsertInfo() (*Bulk, error) {
	shapes, err := b.cached("bulk-insert", func() ([]*shape, error) {
		var cols []*mapping.Field
		for _, f := range b.fm.Fields() {
			if f.Insertable() && !f.AutoIncrement {
				cols = append(cols, f)
			}
		}
		if len(cols) == 0 {
			return nil, &mapping.ConfigurationError{Type: b.fm.Type(), Reason: "no insertable fields"}
		}
		w := newWriter(b)
		names := make([]string, len(cols))
		values := make([]string, len(cols))
		for i, f := range cols {
			names[i] = b.column(f)
			values[i] = w.value(f, true)
		}
		return []*shape{w.shape(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			b.saveTable, strings.Join(names, ", "), strings.Join(values, ", ")))}, nil
	})
	if err != nil {
		return nil, err
	}
	return &Bulk{b: b, shape: shapes[0]}, nil
}

// BulkUpdateInfo prepares an UPDATE of every updatable field by key. With
// updateKeys, non-identity key fields are written too and rows are matched on
// the committed key.
func (b *Builder) BulkUpdateInfo(updateKeys bool) (*Bulk, error) {
	key := fmt.Sprintf("bulk-update|%t", updateKeys)
	shapes, err := b.cached(key, func() ([]*shape, error) {
		w := newWriter(b)
		var assignments []string
		for _, f := range b.fm.Fields() {
			if !f.Updatable() || (f.Key && !updateKeys) {
				continue
			}
			assignments = append(assignments, b.column(f)+" = "+w.value(f, false))
		}
		if len(assignments) == 0 {
			return nil, &mapping.ConfigurationError{Type: b.fm.Type(), Reason: "no updatable fields"}
		}
		where, err := b.keyWhere(w, updateKeys)
		if err != nil {
			return nil, err
		}
		return []*shape{w.shape("UPDATE " + b.saveTable + " SET " + strings.Join(assignments, ", ") + " WHERE " + where)}, nil
	})
	if err != nil {
		return nil, err
	}
	return &Bulk{b: b, shape: shapes[0]}, nil
}
