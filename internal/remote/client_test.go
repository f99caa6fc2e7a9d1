package remote

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgwood/ReiTunes/internal/domain"
	"github.com/rgwood/ReiTunes/internal/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFetchEvents(t *testing.T) {
	env, err := domain.NewEnvelope(uuid.New(), "server-machine",
		time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		domain.ItemCreated{Name: "remote mix", FilePath: "remote.mp3"})
	require.NoError(t, err)

	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		assert.Equal(t, "/api/v1/events", r.URL.Path)
		require.NoError(t, json.NewEncoder(w).Encode([]domain.EventEnvelope{env}))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret", testLogger())
	envelopes, err := client.FetchEvents(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "secret", gotKey)
	require.Len(t, envelopes, 1)
	assert.Equal(t, env.ID, envelopes[0].ID)

	created, ok := envelopes[0].Event.(domain.ItemCreated)
	require.True(t, ok, "event type %T", envelopes[0].Event)
	assert.Equal(t, "remote mix", created.Name)
}

func TestFetchEvents_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "wrong", testLogger())
	_, err := client.FetchEvents(context.Background())
	assert.True(t, errors.Is(err, errors.ErrTransport), "error = %v", err)
}

func TestFetchEvents_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // Shut down before the client calls.

	client := NewClient(srv.URL, "secret", testLogger())
	_, err := client.FetchEvents(context.Background())
	assert.True(t, errors.Is(err, errors.ErrTransport), "error = %v", err)
}

func TestFetchEvents_MalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not": "an array"`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret", testLogger())
	_, err := client.FetchEvents(context.Background())
	assert.True(t, errors.Is(err, errors.ErrParse), "error = %v", err)
}

func TestPushEvents(t *testing.T) {
	env, err := domain.NewEnvelope(uuid.New(), "laptop",
		time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), domain.ItemPlayed{})
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var received []domain.EventEnvelope
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		require.Len(t, received, 1)

		_, _ = w.Write([]byte(`{"data":{"merged":1},"success":true}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret", testLogger())
	merged, err := client.PushEvents(context.Background(), []domain.EventEnvelope{env})
	require.NoError(t, err)
	assert.Equal(t, 1, merged)
}
