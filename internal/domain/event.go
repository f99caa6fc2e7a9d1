// Package domain contains the core library model: events, the event
// envelope, and the Library projection built by folding events.
package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AggregateTypeLibraryItem is the only aggregate type this application
// folds. Envelopes carrying another aggregate type are skipped with a
// warning during projection, but their event payloads must still use a
// known event type: an unknown "$type" is a hard parse failure when the
// row is loaded.
const AggregateTypeLibraryItem = "LibraryItem"

// typeTag is the discriminator field used in serialized events.
const typeTag = "$type"

// Event is a library item event. Concrete event types are value structs
// that serialize to a JSON object tagged with a "$type" field, using
// PascalCase member names. That wire shape is shared with older clients
// and must not change.
type Event interface {
	// EventType returns the wire discriminator for this event.
	EventType() string
}

// ItemCreated records the creation of a library item.
type ItemCreated struct {
	Name     string `json:"Name"`
	FilePath string `json:"FilePath"`
	Artist   string `json:"Artist,omitempty"`
	Album    string `json:"Album,omitempty"`
}

// ItemPlayed records a single playback of an item.
type ItemPlayed struct{}

// ItemDeleted removes an item from the library.
type ItemDeleted struct{}

// ItemNameChanged renames an item.
type ItemNameChanged struct {
	NewName string `json:"NewName"`
}

// ItemFilePathChanged moves an item to a new relative file path.
type ItemFilePathChanged struct {
	NewFilePath string `json:"NewFilePath"`
}

// ItemArtistChanged sets the artist of an item.
type ItemArtistChanged struct {
	NewArtist string `json:"NewArtist"`
}

// ItemAlbumChanged sets the album of an item.
type ItemAlbumChanged struct {
	NewAlbum string `json:"NewAlbum"`
}

// BookmarkAdded adds a bookmark at a playback position within an item.
type BookmarkAdded struct {
	BookmarkID uuid.UUID     `json:"BookmarkId"`
	Position   time.Duration `json:"-"`
}

// BookmarkDeleted removes a bookmark from an item.
type BookmarkDeleted struct {
	BookmarkID uuid.UUID `json:"BookmarkId"`
}

// BookmarkEmojiSet assigns an explicit emoji to a bookmark, overriding
// the derived default.
type BookmarkEmojiSet struct {
	BookmarkID uuid.UUID `json:"BookmarkId"`
	Emoji      string    `json:"Emoji"`
}

func (ItemCreated) EventType() string         { return "LibraryItemCreatedEvent" }
func (ItemPlayed) EventType() string          { return "LibraryItemPlayedEvent" }
func (ItemDeleted) EventType() string         { return "LibraryItemDeletedEvent" }
func (ItemNameChanged) EventType() string     { return "LibraryItemNameChangedEvent" }
func (ItemFilePathChanged) EventType() string { return "LibraryItemFilePathChangedEvent" }
func (ItemArtistChanged) EventType() string   { return "LibraryItemArtistChangedEvent" }
func (ItemAlbumChanged) EventType() string    { return "LibraryItemAlbumChangedEvent" }
func (BookmarkAdded) EventType() string       { return "LibraryItemBookmarkAddedEvent" }
func (BookmarkDeleted) EventType() string     { return "LibraryItemBookmarkDeletedEvent" }
func (BookmarkEmojiSet) EventType() string    { return "LibraryItemBookmarkSetEmojiEvent" }

// bookmarkAddedWire is the storage shape of BookmarkAdded. Position is a
// duration string, not a number.
type bookmarkAddedWire struct {
	BookmarkID uuid.UUID `json:"BookmarkId"`
	Position   string    `json:"Position"`
}

// MarshalJSON encodes the position in the legacy duration format.
func (e BookmarkAdded) MarshalJSON() ([]byte, error) {
	return json.Marshal(bookmarkAddedWire{
		BookmarkID: e.BookmarkID,
		Position:   FormatPosition(e.Position),
	})
}

// UnmarshalJSON decodes the legacy duration format back into a duration.
func (e *BookmarkAdded) UnmarshalJSON(data []byte) error {
	var wire bookmarkAddedWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	pos, err := ParsePosition(wire.Position)
	if err != nil {
		return err
	}
	e.BookmarkID = wire.BookmarkID
	e.Position = pos
	return nil
}

// MarshalEvent serializes an event to its tagged JSON form. Object keys
// are emitted in sorted order, so the output is deterministic for a
// given event.
func MarshalEvent(e Event) ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", e.EventType(), err)
	}

	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("marshal %s: %w", e.EventType(), err)
	}
	fields[typeTag] = e.EventType()

	return json.Marshal(fields)
}

// UnmarshalEvent deserializes a tagged JSON event. Unrecognized event
// types are an error; callers replicating foreign events should keep the
// raw serialized form instead.
func UnmarshalEvent(data []byte) (Event, error) {
	var probe struct {
		Type string `json:"$type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("read event type tag: %w", err)
	}

	switch probe.Type {
	case "LibraryItemCreatedEvent":
		var e ItemCreated
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", probe.Type, err)
		}
		return e, nil
	case "LibraryItemPlayedEvent":
		return ItemPlayed{}, nil
	case "LibraryItemDeletedEvent":
		return ItemDeleted{}, nil
	case "LibraryItemNameChangedEvent":
		var e ItemNameChanged
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", probe.Type, err)
		}
		return e, nil
	case "LibraryItemFilePathChangedEvent":
		var e ItemFilePathChanged
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", probe.Type, err)
		}
		return e, nil
	case "LibraryItemArtistChangedEvent":
		var e ItemArtistChanged
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", probe.Type, err)
		}
		return e, nil
	case "LibraryItemAlbumChangedEvent":
		var e ItemAlbumChanged
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", probe.Type, err)
		}
		return e, nil
	case "LibraryItemBookmarkAddedEvent":
		var e BookmarkAdded
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", probe.Type, err)
		}
		return e, nil
	case "LibraryItemBookmarkDeletedEvent":
		var e BookmarkDeleted
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", probe.Type, err)
		}
		return e, nil
	case "LibraryItemBookmarkSetEmojiEvent":
		var e BookmarkEmojiSet
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", probe.Type, err)
		}
		return e, nil
	case "":
		return nil, fmt.Errorf("event has no %s tag", typeTag)
	default:
		return nil, fmt.Errorf("unknown event type %q", probe.Type)
	}
}
