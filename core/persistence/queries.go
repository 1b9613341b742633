package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/asaidimu/go-datamap/core/command"
	"github.com/asaidimu/go-datamap/core/query"
	"github.com/asaidimu/go-datamap/core/tracking"
	"github.com/asaidimu/go-datamap/utils"
)

// GetCount returns the number of rows matching where. A nil where counts
// every row.
func (a *Adapter[T]) GetCount(ctx context.Context, where command.Where) (int64, error) {
	cmd, err := a.builder.CountCommand(where)
	if err != nil {
		return 0, err
	}
	return a.scalar(ctx, "count", cmd)
}

// Exists reports whether any row matches where.
func (a *Adapter[T]) Exists(ctx context.Context, where command.Where) (bool, error) {
	cmd, err := a.builder.ExistsCommand(where)
	if err != nil {
		return false, err
	}
	n, err := a.scalar(ctx, "exists", cmd)
	return n != 0, err
}

// Delete removes every row matching where and returns the number deleted.
// A nil where is refused unless WithUnsafeDelete is given.
func (a *Adapter[T]) Delete(ctx context.Context, where command.Where, opts ...SaveOption) (int64, error) {
	o := collectOptions(opts)
	if where == nil && !o.unsafeDelete {
		return 0, invalidOperation("delete without a filter requires WithUnsafeDelete")
	}
	result, err := a.withEventEmission("delete", DeleteStart, DeleteSuccess, DeleteFailed, where, func() (any, error) {
		cmd, err := a.builder.DeleteCommand(where)
		if err != nil {
			return nil, err
		}
		return a.exec(ctx, a.db, "delete", cmd)
	})
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

// UpdateRows writes set, keyed by property or storage name, to every row
// matching where. Tracked entities are not touched.
func (a *Adapter[T]) UpdateRows(ctx context.Context, set map[string]any, where command.Where) (int64, error) {
	cmd, err := a.builder.UpdateRowsCommand(set, where)
	if err != nil {
		return 0, err
	}
	return a.exec(ctx, a.db, "update rows", cmd)
}

// UpdateRowsFrom is UpdateRows taking its values from the non-nil fields of
// a patch struct whose field names match T's properties.
func (a *Adapter[T]) UpdateRowsFrom(ctx context.Context, patch any, where command.Where) (int64, error) {
	set, err := utils.StructToMap(patch)
	if err != nil {
		return 0, fmt.Errorf("failed to read update values: %w", err)
	}
	return a.UpdateRows(ctx, set, where)
}

// GetSingleItem reads the first row matching where. It returns ErrNotFound
// when nothing matches.
func (a *Adapter[T]) GetSingleItem(ctx context.Context, where command.Where) (T, error) {
	var zero T
	cmd, err := a.builder.SelectCommand(where, "")
	if err != nil {
		return zero, err
	}
	rec, err := a.readRecord(ctx, a.db, "select", cmd)
	if err != nil {
		return zero, err
	}
	if rec == nil {
		return zero, ErrNotFound
	}
	item := a.newItem()
	if err := a.apply(item, rec); err != nil {
		return zero, dataAccess("select", err)
	}
	item.CommitValues()
	return item, nil
}

// GetItems reads every row matching where. orderBy is raw SQL without the
// ORDER BY keyword.
func (a *Adapter[T]) GetItems(ctx context.Context, where command.Where, orderBy string) ([]T, error) {
	cmd, err := a.builder.SelectCommand(where, orderBy)
	if err != nil {
		return nil, err
	}
	return a.readAll(ctx, "select", cmd)
}

// GetPage reads length rows matching where, starting at the zero-based row
// start.
func (a *Adapter[T]) GetPage(ctx context.Context, where command.Where, orderBy string, start, length int) ([]T, error) {
	cmd, err := a.builder.PageCommand(where, orderBy, start, length)
	if err != nil {
		return nil, err
	}
	return a.readAll(ctx, "page", cmd)
}

// Find reads the entities selected by a query: its filters, sort order and
// pagination.
func (a *Adapter[T]) Find(ctx context.Context, q query.QueryDSL) ([]T, error) {
	orderBy, err := q.OrderClause(a.builder)
	if err != nil {
		return nil, err
	}
	if q.Pagination != nil && (q.Pagination.Limit > 0 || q.Pagination.Start() > 0) {
		return a.GetPage(ctx, q, orderBy, q.Pagination.Start(), q.Pagination.Limit)
	}
	return a.GetItems(ctx, q, orderBy)
}

func (a *Adapter[T]) readAll(ctx context.Context, op string, cmd *command.Command) ([]T, error) {
	rows, cancel, err := a.query(ctx, a.db, op, cmd)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer rows.Close()

	items, err := a.scanAll(rows)
	if err != nil {
		return nil, dataAccess(op, err)
	}
	a.logger.Debug("Fetched rows", zap.String("op", op), zap.Int("count", len(items)))
	return items, nil
}

// Reader iterates over the rows of an open query. It must be closed.
type Reader[T tracking.Savable] struct {
	a      *Adapter[T]
	rows   *sql.Rows
	cancel context.CancelFunc
	item   T
	err    error
}

// OpenReader runs a select and leaves its rows open for iteration.
func (a *Adapter[T]) OpenReader(ctx context.Context, where command.Where, orderBy string) (*Reader[T], error) {
	cmd, err := a.builder.SelectCommand(where, orderBy)
	if err != nil {
		return nil, err
	}
	rows, cancel, err := a.query(ctx, a.db, "reader", cmd)
	if err != nil {
		return nil, err
	}
	return &Reader[T]{a: a, rows: rows, cancel: cancel}, nil
}

// Next advances to the next entity. It returns false when the rows are
// exhausted or reading failed; Err tells them apart.
func (r *Reader[T]) Next() bool {
	var zero T
	r.item = zero
	if r.err != nil || !r.rows.Next() {
		return false
	}
	rec, err := scanRecord(r.rows)
	if err != nil {
		r.err = dataAccess("reader", err)
		return false
	}
	item := r.a.newItem()
	if err := r.a.apply(item, rec); err != nil {
		r.err = dataAccess("reader", err)
		return false
	}
	item.CommitValues()
	r.item = item
	return true
}

// Item returns the entity read by the last call to Next.
func (r *Reader[T]) Item() T { return r.item }

func (r *Reader[T]) Err() error {
	if r.err != nil {
		return r.err
	}
	return dataAccess("reader", r.rows.Err())
}

// Close releases the rows and the command's context.
func (r *Reader[T]) Close() error {
	err := r.rows.Close()
	r.cancel()
	return err
}
