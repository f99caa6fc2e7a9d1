// Package sse implements Server-Sent Events for real-time library
// updates. Players subscribe to hear about items changed by other
// machines or other windows on the same machine.
package sse

import (
	"time"

	"github.com/rgwood/ReiTunes/internal/dto"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventItemCreated announces a new library item.
	EventItemCreated EventType = "item.created"
	// EventItemUpdated announces a change to an item: metadata edits,
	// play count bumps, bookmark changes.
	EventItemUpdated EventType = "item.updated"
	// EventItemDeleted announces an item removal.
	EventItemDeleted EventType = "item.deleted"

	// EventLibrarySynced announces that a pull from the remote server
	// merged new events and the whole projection was rebuilt. Clients
	// should refetch the item list rather than patch incrementally.
	EventLibrarySynced EventType = "library.synced"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
// The Data field contains the event payload as a JSON object.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
}

// ItemEventData is the data payload for item created/updated events.
// The full item is included so clients can render without a follow-up
// fetch.
type ItemEventData struct {
	Item *dto.Item `json:"item"`
}

// ItemDeletedEventData is the data payload for item delete events.
type ItemDeletedEventData struct {
	DeletedAt time.Time `json:"deleted_at"`
	ItemID    string    `json:"item_id"`
}

// LibrarySyncedEventData is the data payload for sync events.
type LibrarySyncedEventData struct {
	SyncedAt    time.Time `json:"synced_at"`
	EventsAdded int       `json:"events_added"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewItemCreatedEvent creates an item created event.
func NewItemCreatedEvent(item *dto.Item) Event {
	return Event{
		Type:      EventItemCreated,
		Timestamp: time.Now(),
		Data:      ItemEventData{Item: item},
	}
}

// NewItemUpdatedEvent creates an item updated event.
func NewItemUpdatedEvent(item *dto.Item) Event {
	return Event{
		Type:      EventItemUpdated,
		Timestamp: time.Now(),
		Data:      ItemEventData{Item: item},
	}
}

// NewItemDeletedEvent creates an item deleted event.
func NewItemDeletedEvent(itemID string) Event {
	return Event{
		Type:      EventItemDeleted,
		Timestamp: time.Now(),
		Data: ItemDeletedEventData{
			ItemID:    itemID,
			DeletedAt: time.Now(),
		},
	}
}

// NewLibrarySyncedEvent creates a library synced event.
func NewLibrarySyncedEvent(eventsAdded int) Event {
	return Event{
		Type:      EventLibrarySynced,
		Timestamp: time.Now(),
		Data: LibrarySyncedEventData{
			SyncedAt:    time.Now(),
			EventsAdded: eventsAdded,
		},
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return Event{
		Type:      EventHeartbeat,
		Timestamp: time.Now(),
		Data: HeartbeatEventData{
			ServerTime: time.Now(),
		},
	}
}
