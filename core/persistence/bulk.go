package persistence

import (
	"context"
	"time"

	"github.com/asaidimu/go-datamap/core/command"
)

// BulkInsert inserts items with one cached INSERT shape and no select back.
// Generated values are not read and entity states are left as they are. It
// returns the number of items written before any error; an error carries
// the index of the failing item.
func (a *Adapter[T]) BulkInsert(ctx context.Context, items []T) (int, error) {
	bulk, err := a.builder.BulkInsertInfo()
	if err != nil {
		return 0, err
	}
	return a.bulk(ctx, "bulk insert", bulk, items)
}

// BulkUpdate writes every updatable field of items by key. With updateKeys
// the non-identity key fields are written too and rows are matched on the
// committed key.
func (a *Adapter[T]) BulkUpdate(ctx context.Context, items []T, updateKeys bool) (int, error) {
	bulk, err := a.builder.BulkUpdateInfo(updateKeys)
	if err != nil {
		return 0, err
	}
	return a.bulk(ctx, "bulk update", bulk, items)
}

func (a *Adapter[T]) bulk(ctx context.Context, op string, bulk *command.Bulk, items []T) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	startTime := time.Now()
	a.emitEvent(createEvent(BatchStart, op, a.table, map[string]any{"items": len(items)}, nil, nil, startTime))

	written := 0
	err := a.session(ctx, func(conn Runner) error {
		for i, item := range items {
			if isNil(item) {
				return atIndex(op, i, invalidOperation("nil entity"))
			}
			if _, err := a.exec(ctx, conn, op, bulk.Command(item)); err != nil {
				return atIndex(op, i, err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		errStr := err.Error()
		a.emitEvent(createEvent(BatchFailed, op, a.table, nil, map[string]any{"written": written}, &errStr, startTime))
		return written, err
	}
	a.emitEvent(createEvent(BatchSuccess, op, a.table, nil, map[string]any{"written": written}, nil, startTime))
	return written, nil
}
