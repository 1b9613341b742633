package persistence

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/asaidimu/go-datamap/core/tracking"
)

// TrySaveCollection saves every item of items. Items in the Deleted state
// are deleted first; the rest are saved in order and partitioned by
// outcome. Without WithContinueOnError the first error aborts the batch
// with a *DataAccessError carrying the item index. Writes made before the
// error are not rolled back; run the batch on a transaction adapter (WithTx)
// when that matters.
func (a *Adapter[T]) TrySaveCollection(ctx context.Context, items []T, opts ...SaveOption) (CollectionSaveResult[T], error) {
	var deleted, live []indexed[T]
	for i, item := range items {
		if !isNil(item) && item.State() == tracking.Deleted {
			deleted = append(deleted, indexed[T]{i, item})
		} else {
			live = append(live, indexed[T]{i, item})
		}
	}
	return a.saveBatch(ctx, deleted, live, nil, collectOptions(opts))
}

// TrySaveList saves a tracked list: the entities removed from it are
// deleted first and forgotten once deleted, then its live entities are saved.
func (a *Adapter[T]) TrySaveList(ctx context.Context, list *tracking.List[T], opts ...SaveOption) (CollectionSaveResult[T], error) {
	if list == nil {
		return CollectionSaveResult[T]{}, invalidOperation("nil list")
	}
	// Removed entities are numbered ahead of the live ones.
	removed := list.DeletedItems()
	deleted := positions(removed, 0)
	live := positions(list.Items(), len(removed))
	return a.saveBatch(ctx, deleted, live, list.AcceptDeleted, collectOptions(opts))
}

// indexed is a batch item with its position in the caller's input.
type indexed[T any] struct {
	pos  int
	item T
}

func positions[T any](items []T, offset int) []indexed[T] {
	out := make([]indexed[T], len(items))
	for i, item := range items {
		out[i] = indexed[T]{offset + i, item}
	}
	return out
}

// SaveCollection is TrySaveCollection returning the number of inserted and
// updated items. Failed or conflicted items are reported as
// *CollectionSaveError.
func (a *Adapter[T]) SaveCollection(ctx context.Context, items []T, opts ...SaveOption) (int, error) {
	return handleCollectionResult(a.TrySaveCollection(ctx, items, opts...))
}

// SaveList is SaveCollection for a tracked list.
func (a *Adapter[T]) SaveList(ctx context.Context, list *tracking.List[T], opts ...SaveOption) (int, error) {
	return handleCollectionResult(a.TrySaveList(ctx, list, opts...))
}

func handleCollectionResult[T any](r CollectionSaveResult[T], err error) (int, error) {
	if err != nil {
		return r.Saved(), err
	}
	if !r.OK() {
		return r.Saved(), &CollectionSaveError[T]{Result: r}
	}
	return r.Saved(), nil
}

func (a *Adapter[T]) saveBatch(ctx context.Context, deleted, live []indexed[T], accept func(T), o saveOptions) (CollectionSaveResult[T], error) {
	var result CollectionSaveResult[T]
	startTime := time.Now()
	a.emitEvent(createEvent(BatchStart, "save_collection", a.table,
		map[string]any{"deleted": len(deleted), "items": len(live)}, nil, nil, startTime))

	fail := func(index int, item T, err error) error {
		result.Errors = append(result.Errors, ItemError[T]{Item: item, Index: index, Err: err})
		if o.continueOnError {
			a.logger.Warn("Item failed, continuing batch", zap.Int("index", index), zap.Error(err))
			return nil
		}
		err = atIndex("save collection", index, err)
		errStr := err.Error()
		a.emitEvent(createEvent(BatchFailed, "save_collection", a.table, nil, nil, &errStr, startTime))
		return err
	}

	for _, d := range deleted {
		item := d.item
		if isNil(item) || item.State() != tracking.Deleted {
			result.Skipped = append(result.Skipped, item)
			continue
		}
		ok, err := a.DeleteItem(ctx, item)
		if err != nil {
			if err := fail(d.pos, item, err); err != nil {
				return result, err
			}
			continue
		}
		if !ok {
			result.Failed = append(result.Failed, item)
			continue
		}
		result.Deleted = append(result.Deleted, item)
		if accept != nil {
			accept(item)
		}
	}

	for _, l := range live {
		item := l.item
		if isNil(item) {
			result.Failed = append(result.Failed, item)
			continue
		}
		if item.State() == tracking.Unchanged {
			result.Skipped = append(result.Skipped, item)
			continue
		}
		r, err := a.TrySave(ctx, item, func(so *saveOptions) {
			so.criteria, so.affect, so.selectBack = o.criteria, o.affect, o.selectBack
		})
		if err != nil {
			if err := fail(l.pos, item, err); err != nil {
				return result, err
			}
			continue
		}
		switch r.Status() {
		case StatusSkipped:
			result.Skipped = append(result.Skipped, item)
		case StatusConflict:
			result.Conflicted = append(result.Conflicted, item)
		case StatusFail:
			result.Failed = append(result.Failed, item)
		case StatusSuccess:
			if r.Type() == SaveInsert {
				result.Inserted = append(result.Inserted, item)
			} else {
				result.Updated = append(result.Updated, item)
			}
		}
	}

	event := BatchSuccess
	if !result.OK() || len(result.Errors) > 0 {
		event = BatchFailed
	}
	a.emitEvent(createEvent(event, "save_collection", a.table, nil, map[string]any{
		"inserted":   len(result.Inserted),
		"updated":    len(result.Updated),
		"deleted":    len(result.Deleted),
		"skipped":    len(result.Skipped),
		"failed":     len(result.Failed),
		"conflicted": len(result.Conflicted),
		"errors":     len(result.Errors),
	}, nil, startTime))
	return result, nil
}
