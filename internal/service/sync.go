package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/rgwood/ReiTunes/internal/domain"
	"github.com/rgwood/ReiTunes/internal/sse"
)

// SyncService replicates the event log with a remote server. Pull is
// the primary direction: fetch the remote's full event set, insert the
// events we have not seen, and rebuild the projection if anything was
// new. Merging is additive only; nothing is ever removed.
type SyncService struct {
	store   EventStore
	remote  RemoteSource
	library *LibraryService
	emitter EventEmitter
	logger  *slog.Logger

	interval time.Duration
	push     bool
}

// SyncResult reports what a sync pass did.
type SyncResult struct {
	Pulled int `json:"pulled"`
	Pushed int `json:"pushed"`
}

// NewSyncService creates a sync service. interval is used by Run; push
// enables uploading local events after each pull.
func NewSyncService(store EventStore, remote RemoteSource, library *LibraryService, interval time.Duration, push bool, logger *slog.Logger) *SyncService {
	return &SyncService{
		store:    store,
		remote:   remote,
		library:  library,
		emitter:  NewNoopEmitter(),
		logger:   logger,
		interval: interval,
		push:     push,
	}
}

// SetEmitter wires up change notifications.
func (s *SyncService) SetEmitter(emitter EventEmitter) {
	s.emitter = emitter
}

// Sync runs one pull (and optionally push) pass. A transport failure
// leaves the local log and projection exactly as they were.
func (s *SyncService) Sync(ctx context.Context) (SyncResult, error) {
	var result SyncResult

	remoteEvents, err := s.remote.FetchEvents(ctx)
	if err != nil {
		return result, err
	}

	pulled, err := s.merge(ctx, remoteEvents)
	if err != nil {
		return result, err
	}
	result.Pulled = pulled

	if s.push {
		local, err := s.store.AllEvents(ctx)
		if err != nil {
			return result, err
		}
		pushed, err := s.remote.PushEvents(ctx, local)
		if err != nil {
			return result, err
		}
		result.Pushed = pushed
	}

	s.logger.Info("sync complete",
		slog.Int("pulled", result.Pulled),
		slog.Int("pushed", result.Pushed))
	return result, nil
}

// MergeLocal merges events received from a peer into the local log.
// Used by the POST events endpoint; the dedup and rebuild behavior is
// identical to a pull.
func (s *SyncService) MergeLocal(ctx context.Context, envelopes []domain.EventEnvelope) (int, error) {
	return s.merge(ctx, envelopes)
}

func (s *SyncService) merge(ctx context.Context, envelopes []domain.EventEnvelope) (int, error) {
	added, err := s.store.AppendMissing(ctx, envelopes)
	if err != nil {
		return 0, err
	}
	if added == 0 {
		return 0, nil
	}

	// New events landed anywhere in history, so replay from scratch
	// rather than patching the projection.
	if err := s.library.Reload(ctx); err != nil {
		return added, err
	}

	s.emitter.Emit(sse.NewLibrarySyncedEvent(added))
	return added, nil
}

// Run pulls on a fixed interval until the context is canceled. Failed
// passes are logged and retried on the next tick.
func (s *SyncService) Run(ctx context.Context) {
	s.logger.Info("periodic sync starting",
		slog.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sync(ctx); err != nil {
			s.logger.Warn("sync failed", slog.String("error", err.Error()))
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			s.logger.Info("periodic sync stopping")
			return
		}
	}
}
