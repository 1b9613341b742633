package persistence

import (
	"context"

	"go.uber.org/zap"

	"github.com/asaidimu/go-datamap/core/command"
)

// TryInsert inserts entity whatever its state and, when select back applies,
// refreshes it with the stored row.
func (a *Adapter[T]) TryInsert(ctx context.Context, entity T, opts ...SaveOption) (SaveResult, error) {
	o := collectOptions(opts)
	return a.observe("insert", SaveStart, entity, func() (SaveResult, error) {
		if isNil(entity) {
			return failure(SaveInsert), invalidOperation("nil entity")
		}
		r, err := a.tryInsert(ctx, entity, o.selectBack)
		if err == nil && r.Status() == StatusSuccess {
			a.complete(ctx, entity, r)
		}
		return r, err
	})
}

// Insert is TryInsert reporting a failed insert as *SaveFailedError.
func (a *Adapter[T]) Insert(ctx context.Context, entity T, opts ...SaveOption) (bool, error) {
	return handleSaveResult(a.TryInsert(ctx, entity, opts...))
}

func (a *Adapter[T]) tryInsert(ctx context.Context, entity T, sb command.SelectBack) (SaveResult, error) {
	if err := a.beforeSave(ctx, SaveInsert, entity); err != nil {
		return failure(SaveInsert), err
	}
	cmds, err := a.builder.InsertCommands(entity, sb)
	if err != nil {
		return failure(SaveInsert), err
	}
	sb = a.builder.ResolveSelectBack(sb)

	r := failure(SaveInsert)
	err = a.sequence(ctx, cmds, func(conn Runner) error {
		var n int64 = -1
		if sb == command.SelectBackNone || len(cmds) == 2 {
			n, err = a.exec(ctx, conn, "insert", cmds[0])
			if err != nil {
				return err
			}
			if sb == command.SelectBackNone {
				if n != 1 {
					a.logger.Warn("Insert affected an unexpected number of rows", zap.Int64("rowsAffected", n))
				}
				r = newResult(StatusSuccess, SaveInsert, n)
				return nil
			}
		}

		rec, err := a.readRecord(ctx, conn, "insert", cmds[len(cmds)-1])
		if err != nil {
			return err
		}
		if rec == nil {
			a.logger.Warn("Inserted row could not be read back")
			r = newResult(StatusFail, SaveInsert, n)
			return nil
		}
		if err := a.apply(entity, rec); err != nil {
			return dataAccess("insert", err)
		}
		r = newResult(StatusSuccess, SaveInsert, n)
		return nil
	})
	if err != nil {
		return failure(SaveInsert), err
	}
	return r, nil
}
