package persistence

import (
	"context"

	"go.uber.org/zap"

	"github.com/asaidimu/go-datamap/core/mapping"
)

// GetConflicts re-reads the stored row of entity by its committed key and
// reports every changed field whose stored value no longer equals the value
// the entity was loaded with. A missing row is a *DataAccessError wrapping
// ErrRowNotFound.
func (a *Adapter[T]) GetConflicts(ctx context.Context, entity T) ([]Conflict, error) {
	if isNil(entity) {
		return nil, invalidOperation("nil entity")
	}
	cmd, err := a.builder.RequeryCommand(entity)
	if err != nil {
		return nil, err
	}
	rec, err := a.readRecord(ctx, a.db, "conflicts", cmd)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, &DataAccessError{Op: "conflicts", Index: -1, Err: ErrRowNotFound}
	}

	stored := make(map[*mapping.Field]any, len(rec.columns))
	for i, col := range rec.columns {
		if f, ok := a.fm.ReadableField(col); ok {
			stored[f] = rec.values[i]
		}
	}

	originals := entity.OriginalValues()
	var conflicts []Conflict
	for _, f := range a.fm.Fields() {
		original, changed := originals[f.Property]
		raw, read := stored[f]
		if !changed || !read {
			continue
		}
		current := raw
		if cv, err := mapping.Coerce(raw, f.Type()); err == nil {
			current = cv.Interface()
		}
		if mapping.Equal(original, current) {
			continue
		}
		conflicts = append(conflicts, Conflict{
			Field:     f.Property,
			Original:  original,
			Current:   current,
			Attempted: f.Value(entity),
		})
	}
	if len(conflicts) > 0 {
		a.logger.Warn("Stored row differs from loaded values", zap.Int("conflicts", len(conflicts)))
	}
	return conflicts, nil
}
