package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventEnvelope wraps an event with the metadata that makes it orderable
// and replicable: a unique event ID, the aggregate it belongs to, the UTC
// creation time, and the machine that produced it.
//
// Serialized holds the tagged JSON form of Event exactly as it is stored
// and replicated. It is the authoritative representation; Event is the
// decoded convenience view.
type EventEnvelope struct {
	ID             uuid.UUID
	AggregateID    uuid.UUID
	AggregateType  string
	CreatedTimeUTC time.Time
	MachineName    string
	Event          Event
	Serialized     string
}

// NewEnvelope wraps an event in an envelope with a fresh event ID. The
// creation time is truncated to UTC so envelopes compare consistently
// across machines.
func NewEnvelope(aggregateID uuid.UUID, machineName string, now time.Time, event Event) (EventEnvelope, error) {
	serialized, err := MarshalEvent(event)
	if err != nil {
		return EventEnvelope{}, err
	}

	return EventEnvelope{
		ID:             uuid.New(),
		AggregateID:    aggregateID,
		AggregateType:  AggregateTypeLibraryItem,
		CreatedTimeUTC: now.UTC(),
		MachineName:    machineName,
		Event:          event,
		Serialized:     string(serialized),
	}, nil
}

// envelopeWire is the JSON shape used when envelopes travel over HTTP.
type envelopeWire struct {
	ID             uuid.UUID       `json:"id"`
	AggregateID    uuid.UUID       `json:"aggregate_id"`
	AggregateType  string          `json:"aggregate_type"`
	CreatedTimeUTC time.Time       `json:"created_time_utc"`
	MachineName    string          `json:"machine_name"`
	Event          json.RawMessage `json:"event"`
}

// MarshalJSON emits the envelope with the event in its tagged form.
func (e EventEnvelope) MarshalJSON() ([]byte, error) {
	raw := json.RawMessage(e.Serialized)
	if len(raw) == 0 {
		serialized, err := MarshalEvent(e.Event)
		if err != nil {
			return nil, err
		}
		raw = serialized
	}

	return json.Marshal(envelopeWire{
		ID:             e.ID,
		AggregateID:    e.AggregateID,
		AggregateType:  e.AggregateType,
		CreatedTimeUTC: e.CreatedTimeUTC,
		MachineName:    e.MachineName,
		Event:          raw,
	})
}

// UnmarshalJSON decodes the envelope and its tagged event.
func (e *EventEnvelope) UnmarshalJSON(data []byte) error {
	var wire envelopeWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("unmarshal event envelope: %w", err)
	}

	event, err := UnmarshalEvent(wire.Event)
	if err != nil {
		return fmt.Errorf("event %s: %w", wire.ID, err)
	}

	e.ID = wire.ID
	e.AggregateID = wire.AggregateID
	e.AggregateType = wire.AggregateType
	e.CreatedTimeUTC = wire.CreatedTimeUTC.UTC()
	e.MachineName = wire.MachineName
	e.Event = event
	e.Serialized = string(wire.Event)
	return nil
}
