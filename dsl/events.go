package dsl

import "time"

// EventType identifies the kind of operation event.
type EventType string

const (
	EventStarted   EventType = "started"
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
)

// Event reports an operation lifecycle change during execution.
type Event struct {
	Type          EventType `json:"type"`
	RunID         string    `json:"run_id"`
	OperationID   string    `json:"operation_id"`
	Alias         string    `json:"alias,omitempty"`
	OperationType OpType    `json:"operation_type"`
	Timestamp     time.Time `json:"timestamp"`

	// For completion events of agent operations
	Result string `json:"result,omitempty"`

	// For failure events
	Error string `json:"error,omitempty"`
}

// EventHandler receives events. With parallel execution enabled it is
// called from multiple goroutines.
type EventHandler func(Event)

func (i *Interpreter) emit(ec *ExecutionContext, op *Operation, typ EventType, result string, err error) {
	if i.onEvent == nil {
		return
	}
	ev := Event{
		Type:          typ,
		RunID:         ec.RunID,
		OperationID:   op.ID,
		Alias:         op.Name,
		OperationType: op.Type,
		Timestamp:     time.Now(),
		Result:        result,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	i.onEvent(ev)
}
