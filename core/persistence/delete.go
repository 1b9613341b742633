package persistence

import (
	"context"
)

// TryDelete deletes the row of entity by its key. It succeeds only when
// exactly one row was deleted.
func (a *Adapter[T]) TryDelete(ctx context.Context, entity T) (SaveResult, error) {
	return a.observe("delete", DeleteStart, entity, func() (SaveResult, error) {
		return a.deleteItem(ctx, entity)
	})
}

// DeleteItem is TryDelete reporting whether the row was deleted.
func (a *Adapter[T]) DeleteItem(ctx context.Context, entity T) (bool, error) {
	r, err := a.TryDelete(ctx, entity)
	if err != nil {
		return false, err
	}
	return r.Status() == StatusSuccess, nil
}

func (a *Adapter[T]) deleteItem(ctx context.Context, entity T) (SaveResult, error) {
	if isNil(entity) {
		return failure(SaveDelete), invalidOperation("nil entity")
	}
	cmd, err := a.builder.DeleteItemCommand(entity)
	if err != nil {
		return failure(SaveDelete), err
	}
	n, err := a.exec(ctx, a.db, "delete", cmd)
	if err != nil {
		return failure(SaveDelete), err
	}
	if n != 1 {
		return newResult(StatusFail, SaveDelete, n), nil
	}
	return newResult(StatusSuccess, SaveDelete, n), nil
}
