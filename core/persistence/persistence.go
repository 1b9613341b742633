// Package persistence saves change-tracked entities. An Adapter binds one
// entity type to a connection: it turns tracked state into commands, runs
// them, reconciles the entity with what the database reports and detects
// optimistic-concurrency conflicts.
package persistence

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/asaidimu/go-events"
	"go.uber.org/zap"

	"github.com/asaidimu/go-datamap/core/command"
	"github.com/asaidimu/go-datamap/core/dialect"
	"github.com/asaidimu/go-datamap/core/mapping"
	"github.com/asaidimu/go-datamap/core/tracking"
)

// Adapter saves and reads entities of type T, which must be a pointer to a
// struct embedding tracking.Tracker. It is safe for concurrent use; saving
// the same entity from several goroutines is not.
type Adapter[T tracking.Savable] struct {
	db             Runner
	fm             *mapping.FieldMap
	builder        *command.Builder
	dialect        dialect.Dialect
	opts           Options
	timeout        time.Duration
	ignoreRowCount bool
	logger         *zap.Logger
	metrics        *Metrics
	bus            *events.TypedEventBus[Event]
	subs           *subscriptions
	elem           reflect.Type
	table          string // unformatted save-to table, used in logs and labels
}

// New creates an Adapter for T on db. A nil opts uses DefaultOptions.
func New[T tracking.Savable](db Runner, opts *Options) (*Adapter[T], error) {
	if db == nil {
		return nil, invalidOperation("no connection")
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	o := *opts
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.ParameterPrefix == 0 {
		o.ParameterPrefix = command.DefaultParameterPrefix
	}

	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return nil, invalidOperation("entity type %s must be a pointer to a struct", t)
	}

	cfg := DefaultConfig()
	version := o.SchemaVersion
	if version == 0 {
		version = cfg.SchemaVersion
	}
	fm, err := mapping.Cached(t, mapping.Options{
		TableName:     o.TableName,
		KeyFields:     o.KeyFields,
		SchemaVersion: version,
	})
	if err != nil {
		return nil, err
	}

	d := o.Dialect
	if d == nil {
		d = resolveDialect(db, cfg.Driver)
	}

	quote := o.QuotedIdentifiers
	if quote == nil {
		quote = cfg.QuotedIdentifiers
	}
	ignoreRowCount := cfg.IgnoreRowCount
	if o.IgnoreRowCount != nil {
		ignoreRowCount = *o.IgnoreRowCount
	}
	builder := command.NewBuilder(fm, d,
		command.WithQuotedIdentifiers(quote),
		command.WithTableName(o.TableName),
		command.WithSaveToTable(o.SaveToTable),
		command.WithNullStringDefault(o.NullStringDefault),
		command.WithParameterPrefix(o.ParameterPrefix),
	)

	timeout := o.CommandTimeout
	if timeout == 0 {
		timeout = cfg.CommandTimeout
	}

	bus, err := events.NewTypedEventBus[Event](events.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("could not initialize event bus: %w", err)
	}

	table := o.SaveToTable
	if table == "" {
		table = fm.DataItem().SaveToTable
	}

	return &Adapter[T]{
		db:             db,
		fm:             fm,
		builder:        builder,
		dialect:        d,
		opts:           o,
		timeout:        timeout,
		ignoreRowCount: ignoreRowCount,
		logger:         o.Logger.With(zap.String("table", table)),
		metrics:        o.Metrics,
		bus:            bus,
		subs:           newSubscriptions(),
		elem:           t.Elem(),
		table:          table,
	}, nil
}

// resolveDialect picks the dialect of a *sql.DB from its driver, then the
// configured driver name, then Generic.
func resolveDialect(db Runner, driver string) dialect.Dialect {
	if sqlDB, ok := db.(*sql.DB); ok {
		if d := dialect.ForDB(sqlDB); d.Name() != (dialect.Generic{}).Name() {
			return d
		}
	}
	if driver != "" {
		return dialect.ForName(driver)
	}
	return dialect.Generic{}
}

// FieldMap returns the persistence metadata of T.
func (a *Adapter[T]) FieldMap() *mapping.FieldMap { return a.fm }

// Builder returns the command builder used by the adapter.
func (a *Adapter[T]) Builder() *command.Builder { return a.builder }

func (a *Adapter[T]) Dialect() dialect.Dialect { return a.dialect }

func (a *Adapter[T]) newItem() T {
	return reflect.New(a.elem).Interface().(T)
}

// record is one row read back from the database.
type record struct {
	columns []string
	values  []any
}

func scanRecord(rows *sql.Rows) (*record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get column names: %w", err)
	}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}
	return &record{columns: cols, values: values}, nil
}

// rowsAffected returns the value of the named column as a count, or -1 when
// the record has no such column.
func (r *record) rowsAffected(column string) (int64, error) {
	if column == "" {
		return -1, nil
	}
	for i, col := range r.columns {
		if !strings.EqualFold(col, column) {
			continue
		}
		n, err := mapping.Coerce(r.values[i], reflect.TypeFor[int64]())
		if err != nil {
			return -1, fmt.Errorf("failed to read %s: %w", col, err)
		}
		return n.Int(), nil
	}
	return -1, nil
}

// apply copies rec into entity. Columns are matched to fields by storage
// name, ignoring case; unmapped columns are skipped. NULL assigns the zero
// value.
func (a *Adapter[T]) apply(entity any, rec *record) error {
	for i, col := range rec.columns {
		f, ok := a.fm.ReadableField(col)
		if !ok {
			if !strings.EqualFold(col, command.RowsAffectedColumn) {
				a.logger.Debug("Column not mapped, skipping", zap.String("column", col))
			}
			continue
		}
		if err := f.Assign(entity, rec.values[i]); err != nil {
			return err
		}
	}
	return nil
}

// scanAll reads every remaining row into new, committed entities.
func (a *Adapter[T]) scanAll(rows *sql.Rows) ([]T, error) {
	var items []T
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		item := a.newItem()
		if err := a.apply(item, rec); err != nil {
			return nil, err
		}
		item.CommitValues()
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return items, nil
}
