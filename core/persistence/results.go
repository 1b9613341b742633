package persistence

// Status is the outcome of saving one entity.
type Status int

const (
	StatusSuccess Status = iota
	StatusFail
	StatusConflict
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFail:
		return "fail"
	case StatusConflict:
		return "conflict"
	case StatusSkipped:
		return "skipped"
	}
	return "unknown"
}

// SaveType is the kind of statement a save ran.
type SaveType int

const (
	SaveNone SaveType = iota
	SaveInsert
	SaveUpdate
	SaveDelete
)

func (t SaveType) String() string {
	switch t {
	case SaveNone:
		return "none"
	case SaveInsert:
		return "insert"
	case SaveUpdate:
		return "update"
	case SaveDelete:
		return "delete"
	}
	return "unknown"
}

// SaveResult describes the outcome of a single-entity save.
type SaveResult struct {
	status       Status
	saveType     SaveType
	rowsAffected int64
}

func newResult(status Status, t SaveType, rowsAffected int64) SaveResult {
	return SaveResult{status: status, saveType: t, rowsAffected: rowsAffected}
}

var skipped = SaveResult{status: StatusSkipped, saveType: SaveNone, rowsAffected: -1}

func (r SaveResult) Status() Status { return r.status }

func (r SaveResult) Type() SaveType { return r.saveType }

// RowsAffected is the count reported by the driver, or -1 when unknown.
func (r SaveResult) RowsAffected() int64 { return r.rowsAffected }

// ItemError is a failure captured while saving a collection with
// continue-on-error.
type ItemError[T any] struct {
	Item T
	// Index is the item's position in the saved slice. For a tracked list
	// the removed entities are counted first, then the live ones.
	Index int
	Err   error
}

// CollectionSaveResult partitions the items of a batch save by outcome.
type CollectionSaveResult[T any] struct {
	Inserted   []T
	Updated    []T
	Deleted    []T
	Skipped    []T
	Failed     []T
	Conflicted []T
	Errors     []ItemError[T]
}

// Saved is the number of items inserted or updated.
func (r CollectionSaveResult[T]) Saved() int {
	return len(r.Inserted) + len(r.Updated)
}

// OK reports whether no item failed or conflicted.
func (r CollectionSaveResult[T]) OK() bool {
	return len(r.Failed) == 0 && len(r.Conflicted) == 0
}

// Conflict is one field whose stored value no longer matches the value the
// entity was loaded with.
type Conflict struct {
	Field     string
	Original  any // value when the entity was loaded
	Current   any // value now stored
	Attempted any // value the entity is trying to write
}
