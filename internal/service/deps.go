// Package service holds the business logic between the HTTP layer and
// the event log: the locked library projection and replication.
package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/rgwood/ReiTunes/internal/domain"
)

// EventStore is the slice of the SQLite store the services need.
type EventStore interface {
	Append(ctx context.Context, env domain.EventEnvelope) error
	AppendMissing(ctx context.Context, envelopes []domain.EventEnvelope) (int, error)
	LoadAllOrdered(ctx context.Context) ([]domain.EventEnvelope, error)
	AllEvents(ctx context.Context) ([]domain.EventEnvelope, error)
	RecentEvents(ctx context.Context, limit int) ([]domain.EventEnvelope, error)
	CountEvents(ctx context.Context) (int64, error)
}

// EventEmitter receives change notifications for broadcast to clients.
// The SSE manager implements this.
type EventEmitter interface {
	Emit(event any)
}

// noopEmitter drops all events.
type noopEmitter struct{}

func (noopEmitter) Emit(any) {}

// NewNoopEmitter returns an emitter that drops everything. Used before
// the SSE manager is wired up, and in tests.
func NewNoopEmitter() EventEmitter { return noopEmitter{} }

// SearchIndexer keeps the full-text index in step with the projection.
type SearchIndexer interface {
	IndexItem(item *domain.LibraryItem) error
	RemoveItem(id uuid.UUID) error
	RebuildIndex(items []*domain.LibraryItem) error
}

// noopIndexer ignores all index maintenance.
type noopIndexer struct{}

func (noopIndexer) IndexItem(*domain.LibraryItem) error      { return nil }
func (noopIndexer) RemoveItem(uuid.UUID) error               { return nil }
func (noopIndexer) RebuildIndex([]*domain.LibraryItem) error { return nil }

// NewNoopIndexer returns an indexer that does nothing.
func NewNoopIndexer() SearchIndexer { return noopIndexer{} }

// RemoteSource is a remote event server, as seen by the sync service.
type RemoteSource interface {
	FetchEvents(ctx context.Context) ([]domain.EventEnvelope, error)
	PushEvents(ctx context.Context, envelopes []domain.EventEnvelope) (int, error)
}
