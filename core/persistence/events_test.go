package persistence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asaidimu/go-datamap/core/command"
)

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) record(_ context.Context, e Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return nil
}

func (l *eventLog) snapshot() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

func TestSubscriptions(t *testing.T) {
	db, mock := newMock(t)
	a := newAdapter[*product](t, db, nil)

	var success, conflicts eventLog
	label := "audit"
	id := a.RegisterSubscription(RegisterSubscriptionOptions{
		Event:    SaveSuccess,
		Label:    &label,
		Callback: success.record,
	})
	a.RegisterSubscription(RegisterSubscriptionOptions{Event: SaveConflict, Callback: conflicts.record})
	require.Len(t, a.Subscriptions(), 2)

	mock.ExpectExec(insertNoSelectSQL).WillReturnResult(sqlmock.NewResult(0, 1))
	_, err := a.TrySave(context.Background(), newProduct("Widget", 1), WithSelectBack(command.SelectBackNone))
	require.NoError(t, err)

	mock.ExpectExec(updatePriceSQL).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(selectByIDSQL).WillReturnRows(productRow(1, "Widget", 3))
	p := loadedProduct(1, "Widget", 1)
	p.SetPrice(2)
	_, err = a.TrySave(context.Background(), p)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return len(success.snapshot()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return len(conflicts.snapshot()) == 1 }, time.Second, 10*time.Millisecond)

	e := success.snapshot()[0]
	assert.Equal(t, SaveSuccess, e.Type)
	assert.Equal(t, "save", e.Operation)
	assert.Equal(t, "Products", e.Table)
	assert.Equal(t, "success", e.Context["status"])
	assert.Equal(t, "insert", e.Context["type"])
	assert.NotNil(t, e.Duration)

	c := conflicts.snapshot()[0]
	assert.Equal(t, "conflict", c.Context["status"])
	assert.Equal(t, int64(0), c.Context["rowsAffected"])

	a.UnregisterSubscription(id)
	a.UnregisterSubscription("unknown")
	subs := a.Subscriptions()
	require.Len(t, subs, 1)
	assert.Equal(t, SaveConflict, subs[0].Event)
}

func TestBatchEvents(t *testing.T) {
	db, mock := newMock(t)
	a := newAdapter[*product](t, db, nil)

	var batches eventLog
	a.RegisterSubscription(RegisterSubscriptionOptions{Event: BatchSuccess, Callback: batches.record})
	a.RegisterSubscription(RegisterSubscriptionOptions{Event: BatchFailed, Callback: batches.record})

	mock.ExpectExec(deleteSQL).WillReturnResult(sqlmock.NewResult(0, 1))
	removed := loadedProduct(1, "Old", 1)
	removed.MarkDeleted()
	_, err := a.TrySaveCollection(context.Background(), []*product{removed})
	require.NoError(t, err)

	mock.ExpectExec(deleteSQL).WillReturnResult(sqlmock.NewResult(0, 0))
	gone := loadedProduct(2, "Gone", 1)
	gone.MarkDeleted()
	_, err = a.TrySaveCollection(context.Background(), []*product{gone})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return len(batches.snapshot()) == 2 }, time.Second, 10*time.Millisecond)
	types := map[EventType]bool{}
	for _, e := range batches.snapshot() {
		types[e.Type] = true
	}
	assert.Equal(t, map[EventType]bool{BatchSuccess: true, BatchFailed: true}, types)
}
