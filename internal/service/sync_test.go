package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgwood/ReiTunes/internal/domain"
	"github.com/rgwood/ReiTunes/internal/errors"
	"github.com/rgwood/ReiTunes/internal/sse"
)

// fakeRemote serves a fixed event set, or fails.
type fakeRemote struct {
	events  []domain.EventEnvelope
	err     error
	fetches int
	pushed  []domain.EventEnvelope
}

func (f *fakeRemote) FetchEvents(context.Context) ([]domain.EventEnvelope, error) {
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

func (f *fakeRemote) PushEvents(_ context.Context, envelopes []domain.EventEnvelope) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.pushed = envelopes
	return len(envelopes), nil
}

func remoteHistory(t *testing.T) (uuid.UUID, []domain.EventEnvelope) {
	t.Helper()
	itemID := uuid.New()
	base := time.Date(2022, 3, 1, 8, 0, 0, 0, time.UTC)

	created, err := domain.NewEnvelope(itemID, "other-machine", base,
		domain.ItemCreated{Name: "remote mix", FilePath: "remote.mp3"})
	require.NoError(t, err)
	played, err := domain.NewEnvelope(itemID, "other-machine", base.Add(time.Minute),
		domain.ItemPlayed{})
	require.NoError(t, err)

	return itemID, []domain.EventEnvelope{created, played}
}

func TestSyncService_PullMergesRemoteEvents(t *testing.T) {
	store := newTestStore(t)
	library := newTestService(t, store)
	itemID, history := remoteHistory(t)
	remote := &fakeRemote{events: history}
	emitter := &recordingEmitter{}

	sync := NewSyncService(store, remote, library, time.Minute, false, testLogger())
	sync.SetEmitter(emitter)

	result, err := sync.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Pulled)

	item, err := library.Item(itemID)
	require.NoError(t, err)
	assert.Equal(t, "remote mix", item.Name)
	assert.Equal(t, 1, item.PlayCount)

	assert.Contains(t, emitter.types(), sse.EventLibrarySynced)
}

func TestSyncService_SyncIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	library := newTestService(t, store)
	itemID, history := remoteHistory(t)
	remote := &fakeRemote{events: history}

	sync := NewSyncService(store, remote, library, time.Minute, false, testLogger())
	ctx := context.Background()

	first, err := sync.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Pulled)

	// The remote returns its full set every time; nothing new must land.
	for range 3 {
		again, err := sync.Sync(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, again.Pulled)
	}

	item, err := library.Item(itemID)
	require.NoError(t, err)
	assert.Equal(t, 1, item.PlayCount, "replayed merges must not double-count plays")

	count, err := store.CountEvents(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestSyncService_MergePreservesLocalEvents(t *testing.T) {
	store := newTestStore(t)
	library := newTestService(t, store)
	ctx := context.Background()

	local, err := library.CreateItem(ctx, "local mix", "local.mp3", "", "")
	require.NoError(t, err)

	remoteItemID, history := remoteHistory(t)
	remote := &fakeRemote{events: history}
	sync := NewSyncService(store, remote, library, time.Minute, false, testLogger())

	_, err = sync.Sync(ctx)
	require.NoError(t, err)

	// Merge is additive: both the local and remote item exist after.
	_, err = library.Item(local.ID)
	require.NoError(t, err)
	_, err = library.Item(remoteItemID)
	require.NoError(t, err)
	assert.Equal(t, 2, library.ItemCount())
}

func TestSyncService_TransportFailureLeavesStateUntouched(t *testing.T) {
	store := newTestStore(t)
	library := newTestService(t, store)
	ctx := context.Background()

	item, err := library.CreateItem(ctx, "mix", "mix.mp3", "", "")
	require.NoError(t, err)

	remote := &fakeRemote{err: errors.Transport(nil, "connection refused")}
	sync := NewSyncService(store, remote, library, time.Minute, false, testLogger())

	_, err = sync.Sync(ctx)
	assert.True(t, errors.Is(err, errors.ErrTransport), "error = %v", err)

	// Local library unchanged.
	_, err = library.Item(item.ID)
	require.NoError(t, err)
	count, err := store.CountEvents(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestSyncService_PushSendsLocalEvents(t *testing.T) {
	store := newTestStore(t)
	library := newTestService(t, store)
	ctx := context.Background()

	_, err := library.CreateItem(ctx, "mix", "mix.mp3", "", "")
	require.NoError(t, err)

	remote := &fakeRemote{}
	sync := NewSyncService(store, remote, library, time.Minute, true, testLogger())

	result, err := sync.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Pushed)
	require.Len(t, remote.pushed, 1)
}

func TestSyncService_MergeLocal(t *testing.T) {
	store := newTestStore(t)
	library := newTestService(t, store)
	itemID, history := remoteHistory(t)

	sync := NewSyncService(store, &fakeRemote{}, library, time.Minute, false, testLogger())

	added, err := sync.MergeLocal(context.Background(), history)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	_, err = library.Item(itemID)
	require.NoError(t, err)
}
