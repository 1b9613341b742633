package persistence

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type subscriptions struct {
	mu   sync.RWMutex
	byID map[string]*SubscriptionInfo
}

func newSubscriptions() *subscriptions {
	return &subscriptions{byID: make(map[string]*SubscriptionInfo)}
}

// emitEvent is a helper method to emit events
func (a *Adapter[T]) emitEvent(event Event) {
	if a.bus != nil {
		a.bus.Emit(string(event.Type), event)
	}
}

// withEventEmission wraps an operation with start, success and failure
// events. Operations that report a SaveResult should use emitResult instead.
func (a *Adapter[T]) withEventEmission(
	operation string,
	startEventType EventType,
	successEventType EventType,
	failedEventType EventType,
	input any,
	fn func() (any, error),
) (any, error) {
	startTime := time.Now()
	a.emitEvent(createEvent(startEventType, operation, a.table, input, nil, nil, startTime))

	result, err := fn()
	if err != nil {
		errStr := err.Error()
		a.emitEvent(createEvent(failedEventType, operation, a.table, input, nil, &errStr, startTime))
		return nil, err
	}

	a.emitEvent(createEvent(successEventType, operation, a.table, input, result, nil, startTime))
	return result, nil
}

// emitResult reports the outcome of a single-entity save.
func (a *Adapter[T]) emitResult(operation string, entity T, r SaveResult, err error, startTime time.Time) {
	a.metrics.recordSave(a.table, r)

	var eventType EventType
	var errStr *string
	switch {
	case err != nil:
		eventType = SaveFailed
		if r.Type() == SaveDelete {
			eventType = DeleteFailed
		}
		s := err.Error()
		errStr = &s
	case r.Status() == StatusSuccess:
		eventType = SaveSuccess
		if r.Type() == SaveDelete {
			eventType = DeleteSuccess
		}
	case r.Status() == StatusConflict:
		eventType = SaveConflict
		a.logger.Warn("Update conflict detected", saveFields(r)...)
	case r.Status() == StatusSkipped:
		eventType = SaveSkipped
	default:
		eventType = SaveFailed
		if r.Type() == SaveDelete {
			eventType = DeleteFailed
		}
	}

	event := createEvent(eventType, operation, a.table, entity, r, errStr, startTime)
	event.Context = map[string]any{
		"status":       r.Status().String(),
		"type":         r.Type().String(),
		"rowsAffected": r.RowsAffected(),
	}
	a.emitEvent(event)
}

// RegisterSubscription registers a callback for an event type. It returns an
// id that can be used to unregister the subscription later.
func (a *Adapter[T]) RegisterSubscription(options RegisterSubscriptionOptions) string {
	a.subs.mu.Lock()
	unsubscribe := a.bus.Subscribe(string(options.Event), options.Callback)
	id := uuid.New().String()
	a.subs.byID[id] = &SubscriptionInfo{
		Id:          &id,
		Event:       options.Event,
		Label:       options.Label,
		Description: options.Description,
		Unsubscribe: unsubscribe,
	}
	a.subs.mu.Unlock()

	a.emitEvent(createEvent(
		SubscriptionRegister,
		"register_subscription",
		a.table,
		map[string]any{
			"event":       options.Event,
			"label":       options.Label,
			"description": options.Description,
		},
		map[string]any{"subscriptionId": id},
		nil,
		time.Time{},
	))
	return id
}

// UnregisterSubscription removes a subscription by its id. Unknown ids are
// ignored.
func (a *Adapter[T]) UnregisterSubscription(id string) {
	a.subs.mu.Lock()
	info, ok := a.subs.byID[id]
	if ok {
		info.Unsubscribe()
		delete(a.subs.byID, id)
	}
	a.subs.mu.Unlock()

	if ok {
		a.emitEvent(createEvent(
			SubscriptionUnregister,
			"unregister_subscription",
			a.table,
			map[string]any{"subscriptionId": id},
			nil,
			nil,
			time.Time{},
		))
	}
}

// Subscriptions returns the active subscriptions.
func (a *Adapter[T]) Subscriptions() []SubscriptionInfo {
	a.subs.mu.RLock()
	defer a.subs.mu.RUnlock()

	subs := make([]SubscriptionInfo, 0, len(a.subs.byID))
	for _, sub := range a.subs.byID {
		subs = append(subs, *sub)
	}
	return subs
}
