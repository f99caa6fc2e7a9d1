package domain

import (
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// envelopeSeq builds envelopes for one aggregate with strictly
// increasing creation times.
type envelopeSeq struct {
	t    *testing.T
	next time.Time
}

func newEnvelopeSeq(t *testing.T) *envelopeSeq {
	return &envelopeSeq{
		t:    t,
		next: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *envelopeSeq) add(aggregateID uuid.UUID, event Event) EventEnvelope {
	s.t.Helper()
	env, err := NewEnvelope(aggregateID, "test-machine", s.next, event)
	if err != nil {
		s.t.Fatalf("NewEnvelope() error = %v", err)
	}
	s.next = s.next.Add(time.Second)
	return env
}

func TestLibrary_CreatePlayDelete(t *testing.T) {
	itemID := uuid.New()
	seq := newEnvelopeSeq(t)

	envelopes := []EventEnvelope{
		seq.add(itemID, ItemCreated{Name: "Mix 1", FilePath: "mix1.mp3"}),
		seq.add(itemID, ItemPlayed{}),
		seq.add(itemID, ItemPlayed{}),
	}

	lib := BuildFromEvents(envelopes, testLogger())

	item, ok := lib.Item(itemID)
	if !ok {
		t.Fatal("item not found after create")
	}
	if item.Name != "Mix 1" || item.FilePath != "mix1.mp3" {
		t.Errorf("item = %+v", item)
	}
	if item.PlayCount != 2 {
		t.Errorf("PlayCount = %d, want 2", item.PlayCount)
	}

	lib.Apply(seq.add(itemID, ItemDeleted{}))
	if _, ok := lib.Item(itemID); ok {
		t.Error("item still present after delete")
	}
	if lib.Len() != 0 {
		t.Errorf("Len() = %d, want 0", lib.Len())
	}
}

func TestLibrary_FieldChanges(t *testing.T) {
	itemID := uuid.New()
	seq := newEnvelopeSeq(t)

	lib := BuildFromEvents([]EventEnvelope{
		seq.add(itemID, ItemCreated{Name: "orig", FilePath: "orig.mp3"}),
		seq.add(itemID, ItemNameChanged{NewName: "better name"}),
		seq.add(itemID, ItemFilePathChanged{NewFilePath: "moved/orig.mp3"}),
		seq.add(itemID, ItemArtistChanged{NewArtist: "Aphex Twin"}),
		seq.add(itemID, ItemAlbumChanged{NewAlbum: "Drukqs"}),
	}, testLogger())

	item, _ := lib.Item(itemID)
	if item == nil {
		t.Fatal("item not found")
	}
	if item.Name != "better name" || item.FilePath != "moved/orig.mp3" ||
		item.Artist != "Aphex Twin" || item.Album != "Drukqs" {
		t.Errorf("item = %+v", item)
	}
}

func TestLibrary_ReplayDeterminism(t *testing.T) {
	itemID := uuid.New()
	otherID := uuid.New()
	seq := newEnvelopeSeq(t)

	envelopes := []EventEnvelope{
		seq.add(itemID, ItemCreated{Name: "a", FilePath: "a.mp3"}),
		seq.add(otherID, ItemCreated{Name: "b", FilePath: "b.mp3"}),
		seq.add(itemID, ItemNameChanged{NewName: "a2"}),
		seq.add(itemID, ItemPlayed{}),
		seq.add(otherID, ItemNameChanged{NewName: "b2"}),
		seq.add(itemID, ItemNameChanged{NewName: "a3"}),
	}

	// Shuffle the input; the fold orders by creation time itself.
	shuffled := make([]EventEnvelope, len(envelopes))
	copy(shuffled, envelopes)
	rng := rand.New(rand.NewSource(42))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	a := BuildFromEvents(envelopes, testLogger())
	b := BuildFromEvents(shuffled, testLogger())

	for _, id := range []uuid.UUID{itemID, otherID} {
		itemA, okA := a.Item(id)
		itemB, okB := b.Item(id)
		if okA != okB {
			t.Fatalf("presence mismatch for %s", id)
		}
		if itemA.Name != itemB.Name || itemA.PlayCount != itemB.PlayCount {
			t.Errorf("folds diverged: %+v vs %+v", itemA, itemB)
		}
	}
	itemA, _ := a.Item(itemID)
	if itemA.Name != "a3" {
		t.Errorf("last write should win, Name = %q", itemA.Name)
	}
}

func TestLibrary_BookmarksOrderedByPosition(t *testing.T) {
	itemID := uuid.New()
	seq := newEnvelopeSeq(t)

	lib := BuildFromEvents([]EventEnvelope{
		seq.add(itemID, ItemCreated{Name: "long mix", FilePath: "long.mp3"}),
		seq.add(itemID, BookmarkAdded{BookmarkID: uuid.New(), Position: 30 * time.Minute}),
		seq.add(itemID, BookmarkAdded{BookmarkID: uuid.New(), Position: 5 * time.Minute}),
		seq.add(itemID, BookmarkAdded{BookmarkID: uuid.New(), Position: 90 * time.Minute}),
		seq.add(itemID, BookmarkAdded{BookmarkID: uuid.New(), Position: time.Minute}),
	}, testLogger())

	item, _ := lib.Item(itemID)
	if item == nil {
		t.Fatal("item not found")
	}
	if len(item.Bookmarks) != 4 {
		t.Fatalf("len(Bookmarks) = %d, want 4", len(item.Bookmarks))
	}
	for i := 1; i < len(item.Bookmarks); i++ {
		if item.Bookmarks[i-1].Position > item.Bookmarks[i].Position {
			t.Errorf("bookmarks out of order at %d: %v > %v",
				i, item.Bookmarks[i-1].Position, item.Bookmarks[i].Position)
		}
	}
	for _, b := range item.Bookmarks {
		if b.Emoji == "" {
			t.Errorf("bookmark %s has no emoji", b.ID)
		}
		if b.Emoji != DefaultBookmarkEmoji(itemID, b.ID) {
			t.Errorf("bookmark %s emoji not derived from IDs", b.ID)
		}
	}
}

func TestLibrary_BookmarkLifecycle(t *testing.T) {
	itemID := uuid.New()
	bookmarkID := uuid.New()
	seq := newEnvelopeSeq(t)

	lib := BuildFromEvents([]EventEnvelope{
		seq.add(itemID, ItemCreated{Name: "podcast", FilePath: "pod.mp3"}),
		seq.add(itemID, BookmarkAdded{BookmarkID: bookmarkID, Position: 10 * time.Minute}),
	}, testLogger())

	item, _ := lib.Item(itemID)
	bookmark, ok := item.Bookmark(bookmarkID)
	if !ok {
		t.Fatal("bookmark not found after add")
	}
	if bookmark.Position != 10*time.Minute {
		t.Errorf("Position = %v", bookmark.Position)
	}

	lib.Apply(seq.add(itemID, BookmarkEmojiSet{BookmarkID: bookmarkID, Emoji: "🔥"}))
	bookmark, _ = item.Bookmark(bookmarkID)
	if bookmark.Emoji != "🔥" {
		t.Errorf("Emoji = %q, want 🔥", bookmark.Emoji)
	}

	lib.Apply(seq.add(itemID, BookmarkDeleted{BookmarkID: bookmarkID}))
	if _, ok := item.Bookmark(bookmarkID); ok {
		t.Error("bookmark still present after delete")
	}
}

func TestLibrary_BookmarkReaddedReplaces(t *testing.T) {
	itemID := uuid.New()
	bookmarkID := uuid.New()
	seq := newEnvelopeSeq(t)

	lib := BuildFromEvents([]EventEnvelope{
		seq.add(itemID, ItemCreated{Name: "podcast", FilePath: "pod.mp3"}),
		seq.add(itemID, BookmarkAdded{BookmarkID: bookmarkID, Position: 30 * time.Second}),
		seq.add(itemID, BookmarkAdded{BookmarkID: bookmarkID, Position: 90 * time.Second}),
	}, testLogger())

	item, _ := lib.Item(itemID)
	if item == nil {
		t.Fatal("item not found")
	}
	if len(item.Bookmarks) != 1 {
		t.Fatalf("len(Bookmarks) = %d, want 1", len(item.Bookmarks))
	}
	bookmark, ok := item.Bookmark(bookmarkID)
	if !ok {
		t.Fatal("bookmark not found")
	}
	if bookmark.Position != 90*time.Second {
		t.Errorf("Position = %v, want 90s", bookmark.Position)
	}

	lib.Apply(seq.add(itemID, BookmarkDeleted{BookmarkID: bookmarkID}))
	if len(item.Bookmarks) != 0 {
		t.Errorf("len(Bookmarks) after delete = %d, want 0", len(item.Bookmarks))
	}
}

func TestLibrary_SkipsUnknownAggregateType(t *testing.T) {
	seq := newEnvelopeSeq(t)
	env := seq.add(uuid.New(), ItemCreated{Name: "x", FilePath: "x.mp3"})
	env.AggregateType = "Playlist"

	lib := NewLibrary(testLogger())
	lib.Apply(env)

	if lib.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after foreign aggregate event", lib.Len())
	}
}

func TestLibrary_SkipsEventForMissingItem(t *testing.T) {
	seq := newEnvelopeSeq(t)
	lib := NewLibrary(testLogger())

	// Must not panic or create a phantom item.
	lib.Apply(seq.add(uuid.New(), ItemPlayed{}))
	lib.Apply(seq.add(uuid.New(), ItemNameChanged{NewName: "ghost"}))

	if lib.Len() != 0 {
		t.Errorf("Len() = %d, want 0", lib.Len())
	}
}

func TestLibrary_ItemsSortedByPlayCount(t *testing.T) {
	seq := newEnvelopeSeq(t)
	quiet := uuid.New()
	loud := uuid.New()

	envelopes := []EventEnvelope{
		seq.add(quiet, ItemCreated{Name: "quiet", FilePath: "q.mp3"}),
		seq.add(loud, ItemCreated{Name: "loud", FilePath: "l.mp3"}),
	}
	for range 5 {
		envelopes = append(envelopes, seq.add(loud, ItemPlayed{}))
	}

	lib := BuildFromEvents(envelopes, testLogger())
	items := lib.Items()
	if len(items) != 2 {
		t.Fatalf("len(items) = %d", len(items))
	}
	if items[0].Name != "loud" {
		t.Errorf("items[0] = %q, want most played first", items[0].Name)
	}
}

func TestLibrary_RandomBookmark(t *testing.T) {
	seq := newEnvelopeSeq(t)
	lib := NewLibrary(testLogger())
	rng := rand.New(rand.NewSource(1))

	if _, _, ok := lib.RandomBookmark(rng); ok {
		t.Error("RandomBookmark on empty library should report none")
	}

	itemID := uuid.New()
	lib.Apply(seq.add(itemID, ItemCreated{Name: "m", FilePath: "m.mp3"}))
	lib.Apply(seq.add(itemID, BookmarkAdded{BookmarkID: uuid.New(), Position: time.Minute}))

	item, bookmark, ok := lib.RandomBookmark(rng)
	if !ok {
		t.Fatal("RandomBookmark found nothing")
	}
	if item.ID != itemID || bookmark.Position != time.Minute {
		t.Errorf("got item %s bookmark %+v", item.ID, bookmark)
	}
}

func TestDefaultBookmarkEmoji_Deterministic(t *testing.T) {
	itemID := uuid.MustParse("9ebd2b6c-c575-4e67-8c5a-b1e2f9c39ff1")
	bookmarkID := uuid.MustParse("0e8e26f8-3791-4f4c-855e-5a0e18030b27")

	first := DefaultBookmarkEmoji(itemID, bookmarkID)
	for range 10 {
		if got := DefaultBookmarkEmoji(itemID, bookmarkID); got != first {
			t.Fatalf("emoji not stable: %q vs %q", got, first)
		}
	}

	found := false
	for _, e := range bookmarkEmoji {
		if e == first {
			found = true
		}
	}
	if !found {
		t.Errorf("emoji %q not in palette", first)
	}
}
