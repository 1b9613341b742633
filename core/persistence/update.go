package persistence

import (
	"context"

	"go.uber.org/zap"

	"github.com/asaidimu/go-datamap/core/command"
)

// TryUpdate writes a modified entity using the general update path. A row
// that was re-read after an UPDATE that matched nothing is a conflict.
func (a *Adapter[T]) TryUpdate(ctx context.Context, entity T, opts ...SaveOption) (SaveResult, error) {
	o := collectOptions(opts)
	return a.observe("update", SaveStart, entity, func() (SaveResult, error) {
		if isNil(entity) {
			return failure(SaveUpdate), invalidOperation("nil entity")
		}
		return a.completed(ctx, entity)(a.tryUpdate(ctx, entity, o.criteria, o.affect, o.selectBack))
	})
}

// Update is TryUpdate with Fail and Conflict reported as errors.
func (a *Adapter[T]) Update(ctx context.Context, entity T, opts ...SaveOption) (bool, error) {
	return handleSaveResult(a.TryUpdate(ctx, entity, opts...))
}

// TryUpdate2 writes only the changed fields of entity, constrained by at
// most its changed fields. Its command shape is cached and, on batch
// dialects, the UPDATE and its select back travel in one round trip.
func (a *Adapter[T]) TryUpdate2(ctx context.Context, entity T, opts ...SaveOption) (SaveResult, error) {
	o := collectOptions(opts)
	return a.observe("update", SaveStart, entity, func() (SaveResult, error) {
		if isNil(entity) {
			return failure(SaveUpdate), invalidOperation("nil entity")
		}
		selectBack := a.builder.ResolveSelectBack(o.selectBack) == command.SelectBackAllFields
		return a.completed(ctx, entity)(a.tryUpdate2(ctx, entity, o.criteria, selectBack))
	})
}

// Update2 is TryUpdate2 with Fail and Conflict reported as errors.
func (a *Adapter[T]) Update2(ctx context.Context, entity T, opts ...SaveOption) (bool, error) {
	return handleSaveResult(a.TryUpdate2(ctx, entity, opts...))
}

// completed returns a function finishing a successful save of entity.
func (a *Adapter[T]) completed(ctx context.Context, entity T) func(SaveResult, error) (SaveResult, error) {
	return func(r SaveResult, err error) (SaveResult, error) {
		if err == nil && r.Status() == StatusSuccess {
			a.complete(ctx, entity, r)
		}
		return r, err
	}
}

func (a *Adapter[T]) tryUpdate(ctx context.Context, entity T, criteria command.UpdateCriteria, affect command.UpdateAffect, sb command.SelectBack) (SaveResult, error) {
	return a.updateInternal(ctx, entity, func() ([]*command.Command, error) {
		return a.builder.UpdateCommands(entity, criteria, affect, sb)
	})
}

func (a *Adapter[T]) tryUpdate2(ctx context.Context, entity T, criteria command.UpdateCriteria, selectBack bool) (SaveResult, error) {
	return a.updateInternal(ctx, entity, func() ([]*command.Command, error) {
		return a.builder.Update2Commands(entity, criteria, selectBack)
	})
}

// updateInternal runs the commands of an update and decides its outcome
// from the affected-row count and, when present, the re-read row.
func (a *Adapter[T]) updateInternal(ctx context.Context, entity T, build func() ([]*command.Command, error)) (SaveResult, error) {
	if err := a.beforeSave(ctx, SaveUpdate, entity); err != nil {
		return failure(SaveUpdate), err
	}
	cmds, err := build()
	if err != nil {
		return failure(SaveUpdate), err
	}
	if len(cmds) == 0 {
		// Nothing differs from the snapshot.
		entity.CommitValues()
		return skipped, nil
	}

	var r SaveResult
	err = a.sequence(ctx, cmds, func(conn Runner) error {
		var (
			n   int64 = -1
			rec *record
			err error
		)
		switch {
		case len(cmds) == 1 && cmds[0].RowsAffectedColumn == "":
			n, err = a.exec(ctx, conn, "update", cmds[0])
			if err != nil {
				return err
			}
			if n == 1 || a.ignoreRowCount {
				r = newResult(StatusSuccess, SaveUpdate, n)
			} else {
				r = newResult(StatusFail, SaveUpdate, n)
			}
			return nil

		case len(cmds) == 1:
			rec, err = a.readRecord(ctx, conn, "update", cmds[0])
			if err != nil {
				return err
			}
			if rec != nil {
				if n, err = rec.rowsAffected(cmds[0].RowsAffectedColumn); err != nil {
					return dataAccess("update", err)
				}
			}

		default:
			n, err = a.exec(ctx, conn, "update", cmds[0])
			if err != nil {
				return err
			}
			if n > 1 && !a.ignoreRowCount {
				r = newResult(StatusFail, SaveUpdate, n)
				return nil
			}
			rec, err = a.readRecord(ctx, conn, "update", cmds[1])
			if err != nil {
				return err
			}
		}

		switch {
		case rec == nil:
			r = newResult(StatusFail, SaveUpdate, n)
		case n > 1 && !a.ignoreRowCount:
			r = newResult(StatusFail, SaveUpdate, n)
		case n == 1 || a.ignoreRowCount:
			if err := a.apply(entity, rec); err != nil {
				return dataAccess("update", err)
			}
			r = newResult(StatusSuccess, SaveUpdate, n)
		default:
			a.logger.Debug("Row exists but the update matched nothing", zap.Int64("rowsAffected", n))
			r = newResult(StatusConflict, SaveUpdate, n)
		}
		return nil
	})
	if err != nil {
		return failure(SaveUpdate), err
	}
	return r, nil
}
