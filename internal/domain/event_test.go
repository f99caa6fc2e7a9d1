package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestMarshalEvent_TaggedForm(t *testing.T) {
	data, err := MarshalEvent(ItemCreated{Name: "Deep House Mix", FilePath: "mixes/deep.mp3"})
	if err != nil {
		t.Fatalf("MarshalEvent() error = %v", err)
	}

	s := string(data)
	if !strings.Contains(s, `"$type":"LibraryItemCreatedEvent"`) {
		t.Errorf("missing type tag in %s", s)
	}
	if !strings.Contains(s, `"Name":"Deep House Mix"`) {
		t.Errorf("missing Name in %s", s)
	}
	if !strings.Contains(s, `"FilePath":"mixes/deep.mp3"`) {
		t.Errorf("missing FilePath in %s", s)
	}
}

func TestEventRoundTrip(t *testing.T) {
	bookmarkID := uuid.New()

	events := []Event{
		ItemCreated{Name: "a", FilePath: "b", Artist: "c", Album: "d"},
		ItemPlayed{},
		ItemDeleted{},
		ItemNameChanged{NewName: "renamed"},
		ItemFilePathChanged{NewFilePath: "moved.mp3"},
		ItemArtistChanged{NewArtist: "Boards of Canada"},
		ItemAlbumChanged{NewAlbum: "Geogaddi"},
		BookmarkAdded{BookmarkID: bookmarkID, Position: 83*time.Second + 500*time.Millisecond},
		BookmarkDeleted{BookmarkID: bookmarkID},
		BookmarkEmojiSet{BookmarkID: bookmarkID, Emoji: "🎸"},
	}

	for _, event := range events {
		data, err := MarshalEvent(event)
		if err != nil {
			t.Fatalf("MarshalEvent(%s) error = %v", event.EventType(), err)
		}
		decoded, err := UnmarshalEvent(data)
		if err != nil {
			t.Fatalf("UnmarshalEvent(%s) error = %v", event.EventType(), err)
		}
		if decoded != event {
			t.Errorf("round trip of %s = %#v, want %#v", event.EventType(), decoded, event)
		}
	}
}

func TestUnmarshalEvent_BookmarkPositionString(t *testing.T) {
	// Older writers serialize positions as duration strings.
	data := `{"$type":"LibraryItemBookmarkAddedEvent","BookmarkId":"c16f79e5-5b1c-4496-a2c6-26ece29a3d0f","Position":"01:02:03.500000000"}`

	event, err := UnmarshalEvent([]byte(data))
	if err != nil {
		t.Fatalf("UnmarshalEvent() error = %v", err)
	}

	added, ok := event.(BookmarkAdded)
	if !ok {
		t.Fatalf("event = %T, want BookmarkAdded", event)
	}
	want := time.Hour + 2*time.Minute + 3*time.Second + 500*time.Millisecond
	if added.Position != want {
		t.Errorf("Position = %v, want %v", added.Position, want)
	}
}

func TestUnmarshalEvent_UnknownType(t *testing.T) {
	if _, err := UnmarshalEvent([]byte(`{"$type":"SomeOtherEvent"}`)); err == nil {
		t.Error("expected error for unknown event type")
	}
	if _, err := UnmarshalEvent([]byte(`{"Name":"untagged"}`)); err == nil {
		t.Error("expected error for missing type tag")
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	itemID := uuid.New()
	env, err := NewEnvelope(itemID, "bedroom-pc", time.Date(2021, 3, 14, 9, 26, 53, 0, time.UTC), ItemPlayed{})
	if err != nil {
		t.Fatalf("NewEnvelope() error = %v", err)
	}

	data, err := env.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}

	var decoded EventEnvelope
	if err := decoded.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON() error = %v", err)
	}

	if decoded.ID != env.ID || decoded.AggregateID != itemID {
		t.Errorf("envelope IDs changed in round trip: %+v", decoded)
	}
	if decoded.AggregateType != AggregateTypeLibraryItem {
		t.Errorf("AggregateType = %q", decoded.AggregateType)
	}
	if !decoded.CreatedTimeUTC.Equal(env.CreatedTimeUTC) {
		t.Errorf("CreatedTimeUTC = %v, want %v", decoded.CreatedTimeUTC, env.CreatedTimeUTC)
	}
	if decoded.MachineName != "bedroom-pc" {
		t.Errorf("MachineName = %q", decoded.MachineName)
	}
	if _, ok := decoded.Event.(ItemPlayed); !ok {
		t.Errorf("Event = %T, want ItemPlayed", decoded.Event)
	}
}
