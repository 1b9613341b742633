package persistence

import (
	"time"
)

func createEvent(
	eventType EventType,
	operation string,
	table string,
	input any,
	output any,
	err *string,
	startTime time.Time,
) Event {
	var duration *int64
	if !startTime.IsZero() {
		d := time.Since(startTime).Milliseconds()
		duration = &d
	}

	return Event{
		Type:      eventType,
		Timestamp: time.Now().UnixMilli(),
		Operation: operation,
		Table:     table,
		Input:     input,
		Output:    output,
		Error:     err,
		Duration:  duration,
	}
}
