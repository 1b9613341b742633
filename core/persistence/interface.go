package persistence

import "context"

// EventType names the events an Adapter emits on its bus.
type EventType string

const (
	SaveStart              EventType = "save:start"
	SaveSuccess            EventType = "save:success"
	SaveFailed             EventType = "save:failed"
	SaveConflict           EventType = "save:conflict"
	SaveSkipped            EventType = "save:skipped"
	DeleteStart            EventType = "delete:start"
	DeleteSuccess          EventType = "delete:success"
	DeleteFailed           EventType = "delete:failed"
	BatchStart             EventType = "batch:start"
	BatchSuccess           EventType = "batch:success"
	BatchFailed            EventType = "batch:failed"
	SubscriptionRegister   EventType = "subscription:register"
	SubscriptionUnregister EventType = "subscription:unregister"
)

// Event describes one step of a persistence operation.
type Event struct {
	Type      EventType      `json:"type"`
	Timestamp int64          `json:"timestamp"` // Unix milliseconds
	Operation string         `json:"operation"`
	Table     string         `json:"table"`
	Input     any            `json:"input,omitempty"`
	Output    any            `json:"output,omitempty"`
	Error     *string        `json:"error,omitempty"`
	Duration  *int64         `json:"duration,omitempty"` // milliseconds
	Context   map[string]any `json:"context,omitempty"`
}

type EventCallbackFunction func(ctx context.Context, event Event) error

// SubscriptionInfo describes a registered subscription.
type SubscriptionInfo struct {
	Id          *string   `json:"id"`
	Event       EventType `json:"event"`
	Label       *string   `json:"label,omitempty"`
	Description *string   `json:"description,omitempty"`
	Unsubscribe func()    `json:"-"`
}

// RegisterSubscriptionOptions defines options for registering a subscription.
type RegisterSubscriptionOptions struct {
	Event       EventType `json:"event"`
	Label       *string   `json:"label,omitempty"`
	Description *string   `json:"description,omitempty"`
	Callback    EventCallbackFunction
}
