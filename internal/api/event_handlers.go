package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rgwood/ReiTunes/internal/domain"
	"github.com/rgwood/ReiTunes/internal/dto"
	"github.com/rgwood/ReiTunes/internal/http/response"
	"github.com/rgwood/ReiTunes/internal/sse"
)

// handleListEvents returns the full event log as a bare JSON array.
// Replication clients diff this against their own log, so the payload
// is unwrapped and complete.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	envelopes, err := s.store.AllEvents(ctx)
	if err != nil {
		s.logger.Error("Failed to load events", "error", err)
		response.HandleError(w, err, s.logger)
		return
	}

	if envelopes == nil {
		envelopes = []domain.EventEnvelope{}
	}

	response.Raw(w, http.StatusOK, envelopes, s.logger)
}

// handlePushEvents merges events uploaded by a replication peer.
// Events already present are ignored, so pushing the same batch twice
// is harmless.
func (s *Server) handlePushEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var envelopes []domain.EventEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelopes); err != nil {
		response.BadRequest(w, "Request body must be a JSON array of events", s.logger)
		return
	}

	merged, err := s.store.AppendMissing(ctx, envelopes)
	if err != nil {
		s.logger.Error("Failed to merge pushed events", "error", err, "count", len(envelopes))
		response.HandleError(w, err, s.logger)
		return
	}

	if merged > 0 {
		if err := s.library.Reload(ctx); err != nil {
			s.logger.Error("Failed to rebuild library after merge", "error", err)
			response.HandleError(w, err, s.logger)
			return
		}
		s.sseManager.Emit(sse.NewLibrarySyncedEvent(merged))
	}

	s.logger.Info("Merged pushed events",
		"received", len(envelopes),
		"merged", merged,
		"remote", getClientIP(r))

	response.Success(w, map[string]int{"merged": merged}, s.logger)
}

// handleRecentEvents returns the newest events in diagnostic row form.
func (s *Server) handleRecentEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n < 1 || n > 1000 {
			response.BadRequest(w, "limit must be an integer between 1 and 1000", s.logger)
			return
		}
		limit = n
	}

	envelopes, err := s.library.RecentEvents(ctx, limit)
	if err != nil {
		s.logger.Error("Failed to load recent events", "error", err)
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, dto.FromEnvelopes(envelopes), s.logger)
}
