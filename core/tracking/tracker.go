// Package tracking holds the change-tracking half of a persisted entity: its
// lifecycle state and the snapshot of values it had when last committed.
//
// Entities embed a Tracker and route property writes through SetField:
//
//	type Product struct {
//		tracking.Tracker
//		ID    int64   `db:"Id,key,autoincrement"`
//		Price float64 `db:"Price"`
//	}
//
//	func (p *Product) SetPrice(v float64) { tracking.SetField(&p.Tracker, "Price", &p.Price, v) }
package tracking

import (
	"maps"

	"github.com/asaidimu/go-datamap/core/mapping"
)

// State is the lifecycle state of a tracked entity.
type State int

const (
	// Detached is the zero value: the entity is not tracked yet.
	Detached State = iota
	Added
	Unchanged
	Modified
	Deleted
)

func (s State) String() string {
	switch s {
	case Detached:
		return "detached"
	case Added:
		return "added"
	case Unchanged:
		return "unchanged"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	}
	return "unknown"
}

// Savable is implemented by *T for any T embedding a Tracker.
type Savable interface {
	State() State
	OriginalValues() map[string]any
	CommitValues()
	MarkDeleted()
}

// Tracker records lifecycle state and original values. The snapshot is non
// empty only while the entity is Modified.
type Tracker struct {
	state    State
	original map[string]any
}

var _ Savable = (*Tracker)(nil)

func (t *Tracker) State() State {
	return t.state
}

// MarkNew flags a Detached entity for insertion. Entities already tracked
// keep their state.
func (t *Tracker) MarkNew() {
	if t.state != Detached {
		return
	}
	t.state = Added
	t.original = nil
}

// MarkDeleted flags the entity for deletion and discards its snapshot. An
// entity that was never inserted goes back to Detached.
func (t *Tracker) MarkDeleted() {
	switch t.state {
	case Added:
		t.state = Detached
	case Unchanged, Modified:
		t.state = Deleted
	}
	t.original = nil
}

// CommitValues accepts the current values: the snapshot is cleared and the
// entity becomes Unchanged. It is called after a successful save and after an
// entity is read from the database.
func (t *Tracker) CommitValues() {
	t.state = Unchanged
	t.original = nil
}

// OriginalValues returns a copy of the snapshot, keyed by property name.
func (t *Tracker) OriginalValues() map[string]any {
	return maps.Clone(t.original)
}

// OriginalValue returns the committed value of one property, if it changed.
func (t *Tracker) OriginalValue(property string) (any, bool) {
	v, ok := t.original[property]
	return v, ok
}

func (t *Tracker) HasChanges() bool {
	return len(t.original) > 0
}

// SetField assigns value to *ref. The first write to a property of an
// Unchanged or Modified entity records the value being replaced; later writes
// keep that first original. Writing an equal value is a no-op.
func SetField[V any](t *Tracker, property string, ref *V, value V) {
	if mapping.Equal(*ref, value) {
		return
	}
	if t.state == Unchanged || t.state == Modified {
		if _, seen := t.original[property]; !seen {
			if t.original == nil {
				t.original = make(map[string]any)
			}
			t.original[property] = *ref
		}
		t.state = Modified
	}
	*ref = value
}
