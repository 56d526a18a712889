// Package queue publishes network change events to RabbitMQ and runs the
// consumer that turns them into an audit log.
package queue

import (
	"encoding/json"
	"time"
)

// QueueName is the durable queue carrying NetworkChangedEvent messages.
const QueueName = "network.changed"

type Entity string

const (
	EntityNode Entity = "node"
	EntityPipe Entity = "pipe"
)

type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// NetworkChangedEvent is emitted after every successful node or pipe write.
// Payload holds the entity as it was after the write, or as it was before a
// delete.
type NetworkChangedEvent struct {
	Entity     Entity          `json:"entity"`
	Action     Action          `json:"action"`
	ID         string          `json:"id"`
	ActorID    string          `json:"actor_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// NewEvent builds an event stamped with the current UTC time. A payload that
// cannot be marshalled is left out.
func NewEvent(entity Entity, action Action, id, actor string, payload any) NetworkChangedEvent {
	ev := NetworkChangedEvent{
		Entity:     entity,
		Action:     action,
		ID:         id,
		ActorID:    actor,
		OccurredAt: time.Now().UTC(),
	}
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			ev.Payload = b
		}
	}
	return ev
}
