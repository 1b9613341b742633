package tracking

import "sync"

// List is an entity collection that remembers removed entities until their
// deletion has been saved. All methods are safe for concurrent use.
type List[T Savable] struct {
	mu      sync.Mutex
	items   []T
	deleted []T
}

func NewList[T Savable](items ...T) *List[T] {
	return &List[T]{items: append([]T(nil), items...)}
}

func (l *List[T]) Add(items ...T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, items...)
}

// Items returns a snapshot of the live entities.
func (l *List[T]) Items() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]T(nil), l.items...)
}

func (l *List[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Remove takes item out of the list and marks it deleted. Entities that exist
// in the database are kept in the deleted view until AcceptDeleted.
func (l *List[T]) Remove(item T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := indexOf(l.items, item)
	if i < 0 {
		return false
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
	item.MarkDeleted()
	if item.State() == Deleted {
		l.deleted = append(l.deleted, item)
	}
	return true
}

// DeletedItems returns the entities removed but not yet deleted from storage.
func (l *List[T]) DeletedItems() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]T(nil), l.deleted...)
}

// AcceptDeleted forgets an entity whose deletion was saved.
func (l *List[T]) AcceptDeleted(item T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := indexOf(l.deleted, item); i >= 0 {
		l.deleted = append(l.deleted[:i], l.deleted[i+1:]...)
	}
}

func indexOf[T any](items []T, item T) int {
	for i := range items {
		if any(items[i]) == any(item) {
			return i
		}
	}
	return -1
}
