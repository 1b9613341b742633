package persistence

import (
	"context"
	"reflect"
	"time"

	"go.uber.org/zap"

	"github.com/asaidimu/go-datamap/core/command"
	"github.com/asaidimu/go-datamap/core/tracking"
)

type saveOptions struct {
	criteria        command.UpdateCriteria
	affect          command.UpdateAffect
	selectBack      command.SelectBack
	continueOnError bool
	unsafeDelete    bool
}

// SaveOption tunes a single save, batch save or filtered delete.
type SaveOption func(*saveOptions)

// WithCriteria selects the columns constraining an UPDATE.
func WithCriteria(c command.UpdateCriteria) SaveOption {
	return func(o *saveOptions) { o.criteria = c }
}

// WithAffect selects the columns an UPDATE writes.
func WithAffect(a command.UpdateAffect) SaveOption {
	return func(o *saveOptions) { o.affect = a }
}

// WithSelectBack controls whether saved rows are read back.
func WithSelectBack(sb command.SelectBack) SaveOption {
	return func(o *saveOptions) { o.selectBack = sb }
}

// WithContinueOnError keeps a batch save going after an item fails; errors
// are collected in the result.
func WithContinueOnError() SaveOption {
	return func(o *saveOptions) { o.continueOnError = true }
}

// WithUnsafeDelete allows Delete without a filter.
func WithUnsafeDelete() SaveOption {
	return func(o *saveOptions) { o.unsafeDelete = true }
}

func collectOptions(opts []SaveOption) saveOptions {
	var o saveOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func failure(t SaveType) SaveResult {
	return newResult(StatusFail, t, -1)
}

func saveFields(r SaveResult) []zap.Field {
	return []zap.Field{
		zap.Stringer("type", r.Type()),
		zap.Stringer("status", r.Status()),
		zap.Int64("rowsAffected", r.RowsAffected()),
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// observe emits the start event of a save, runs it, then records and emits
// its outcome.
func (a *Adapter[T]) observe(operation string, start EventType, entity T, fn func() (SaveResult, error)) (SaveResult, error) {
	startTime := time.Now()
	a.emitEvent(createEvent(start, operation, a.table, entity, nil, nil, startTime))
	r, err := fn()
	a.emitResult(operation, entity, r, err, startTime)
	return r, err
}

// beforeSave runs the adapter-level hook.
func (a *Adapter[T]) beforeSave(ctx context.Context, t SaveType, entity T) error {
	if a.opts.BeforeSave == nil {
		return nil
	}
	return a.opts.BeforeSave(ctx, t, entity)
}

// complete runs the after-save hooks and accepts the entity's values.
func (a *Adapter[T]) complete(ctx context.Context, entity T, r SaveResult) {
	if a.opts.AfterSave != nil {
		a.opts.AfterSave(ctx, r, entity)
	}
	if as, ok := any(entity).(AfterSaver); ok {
		as.AfterSave(ctx, r)
	}
	entity.CommitValues()
}

// TrySave writes entity according to its state: Added entities are
// inserted, Modified entities updated, and any other tracked state is
// skipped. Saving a Detached entity is an invalid operation. On success the
// entity becomes Unchanged.
func (a *Adapter[T]) TrySave(ctx context.Context, entity T, opts ...SaveOption) (SaveResult, error) {
	o := collectOptions(opts)
	return a.observe("save", SaveStart, entity, func() (SaveResult, error) {
		return a.trySave(ctx, entity, o)
	})
}

func (a *Adapter[T]) trySave(ctx context.Context, entity T, o saveOptions) (SaveResult, error) {
	if isNil(entity) {
		return failure(SaveNone), invalidOperation("nil entity")
	}
	if bs, ok := any(entity).(BeforeSaver); ok {
		if err := bs.BeforeSave(ctx); err != nil {
			return failure(SaveNone), err
		}
	}

	var (
		r   SaveResult
		err error
	)
	switch entity.State() {
	case tracking.Added:
		r, err = a.tryInsert(ctx, entity, o.selectBack)
	case tracking.Modified:
		// The narrow path is chosen on the requested policy, before
		// SelectBackDefault is resolved.
		narrow := (o.selectBack == command.SelectBackNone || o.selectBack == command.SelectBackAllFields) &&
			o.criteria <= command.CriteriaChangedFields &&
			o.affect == command.AffectChangedFields
		if narrow {
			r, err = a.tryUpdate2(ctx, entity, o.criteria, o.selectBack == command.SelectBackAllFields)
		} else {
			r, err = a.tryUpdate(ctx, entity, o.criteria, o.affect, o.selectBack)
		}
	case tracking.Detached:
		return failure(SaveNone), invalidOperation("cannot save a detached entity; mark it new first")
	default:
		return skipped, nil
	}
	if err != nil {
		return r, err
	}
	if r.Status() == StatusSuccess {
		a.complete(ctx, entity, r)
	}
	return r, nil
}

// Save is TrySave reporting Fail and Conflict outcomes as errors. It returns
// false without an error when the entity was skipped.
func (a *Adapter[T]) Save(ctx context.Context, entity T, opts ...SaveOption) (bool, error) {
	return handleSaveResult(a.TrySave(ctx, entity, opts...))
}

func handleSaveResult(r SaveResult, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	switch r.Status() {
	case StatusSuccess:
		return true, nil
	case StatusSkipped:
		return false, nil
	case StatusConflict:
		return false, &UpdateConflictError{Result: r}
	default:
		return false, &SaveFailedError{Result: r}
	}
}
