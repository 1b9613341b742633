package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOperation reports misuse of the adapter, such as saving a
	// Detached entity or running without a connection.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrOperationCanceled is returned when the before-execute hook refuses a
	// command.
	ErrOperationCanceled = errors.New("operation canceled")

	// ErrRowNotFound is returned when a row expected to exist could not be
	// read back.
	ErrRowNotFound = errors.New("row not found")

	// ErrNotFound is returned by single-item reads that match nothing.
	ErrNotFound = errors.New("not found")
)

func invalidOperation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidOperation, fmt.Sprintf(format, args...))
}

// DataAccessError wraps a failure to execute or read a command. Index is the
// position of the item in a batch, or -1 outside batches.
type DataAccessError struct {
	Op    string
	Index int
	Err   error
}

func (e *DataAccessError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("persistence: %s (item %d): %v", e.Op, e.Index, e.Err)
	}
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *DataAccessError) Unwrap() error {
	return e.Err
}

func dataAccess(op string, err error) error {
	if err == nil {
		return nil
	}
	var dae *DataAccessError
	if errors.As(err, &dae) {
		return err
	}
	return &DataAccessError{Op: op, Index: -1, Err: err}
}

// atIndex records the batch position of err.
func atIndex(op string, index int, err error) error {
	var dae *DataAccessError
	if errors.As(err, &dae) {
		if dae.Index >= 0 {
			return err
		}
		return &DataAccessError{Op: dae.Op, Index: index, Err: dae.Err}
	}
	return &DataAccessError{Op: op, Index: index, Err: err}
}

// IsDataAccessError returns true if the error is a DataAccessError.
func IsDataAccessError(err error) bool {
	if err == nil {
		return false
	}
	var e *DataAccessError
	return errors.As(err, &e)
}

// SaveFailedError is returned by the boolean save forms when a command
// affected an unexpected number of rows and no conflict was detected.
type SaveFailedError struct {
	Result SaveResult
}

func (e *SaveFailedError) Error() string {
	return fmt.Sprintf("persistence: %s failed (%d rows affected)", e.Result.Type(), e.Result.RowsAffected())
}

// IsSaveFailed returns true if the error is a SaveFailedError.
func IsSaveFailed(err error) bool {
	if err == nil {
		return false
	}
	var e *SaveFailedError
	return errors.As(err, &e)
}

// UpdateConflictError is returned by the boolean save forms when the row
// changed since it was read. GetConflicts reports the differing fields.
type UpdateConflictError struct {
	Result SaveResult
}

func (e *UpdateConflictError) Error() string {
	return fmt.Sprintf("persistence: %s conflict: row was modified concurrently", e.Result.Type())
}

// IsUpdateConflict returns true if the error is an UpdateConflictError.
func IsUpdateConflict(err error) bool {
	if err == nil {
		return false
	}
	var e *UpdateConflictError
	return errors.As(err, &e)
}

// CollectionSaveError is returned by SaveCollection when any item failed or
// conflicted. It carries the full partitioned result.
type CollectionSaveError[T any] struct {
	Result CollectionSaveResult[T]
}

func (e *CollectionSaveError[T]) Error() string {
	return fmt.Sprintf("persistence: collection save: %d failed, %d conflicted",
		len(e.Result.Failed), len(e.Result.Conflicted))
}

// IsCollectionSaveError returns true if the error is a CollectionSaveError
// for items of type T.
func IsCollectionSaveError[T any](err error) bool {
	if err == nil {
		return false
	}
	var e *CollectionSaveError[T]
	return errors.As(err, &e)
}
