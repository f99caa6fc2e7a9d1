package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerStatsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/stats",
		Summary:     "Library statistics",
		Description: "Returns counts for items, events, bookmarks, and connected clients",
		Tags:        []string{"Stats"},
		Security:    []map[string][]string{{"apiKey": {}}},
	}, s.handleGetStats)
}

// StatsResponse contains library statistics.
type StatsResponse struct {
	Items      int    `json:"items" doc:"Number of live library items"`
	Events     int64  `json:"events" doc:"Number of events in the log"`
	Bookmarks  int    `json:"bookmarks" doc:"Number of bookmarks across all items"`
	TotalPlays int    `json:"total_plays" doc:"Sum of play counts across all items"`
	SearchDocs uint64 `json:"search_docs" doc:"Documents in the search index"`
	SSEClients int    `json:"sse_clients" doc:"Currently connected SSE clients"`
}

// StatsOutput wraps the stats response for Huma.
type StatsOutput struct {
	Body StatsResponse
}

func (s *Server) handleGetStats(ctx context.Context, _ *struct{}) (*StatsOutput, error) {
	eventCount, err := s.library.EventCount(ctx)
	if err != nil {
		s.logger.Error("Failed to count events", "error", err)
		return nil, err
	}

	var bookmarks, plays int
	for _, item := range s.library.Items() {
		bookmarks += len(item.Bookmarks)
		plays += item.PlayCount
	}

	var searchDocs uint64
	if s.search != nil {
		if n, err := s.search.DocumentCount(); err == nil {
			searchDocs = n
		}
	}

	return &StatsOutput{
		Body: StatsResponse{
			Items:      s.library.ItemCount(),
			Events:     eventCount,
			Bookmarks:  bookmarks,
			TotalPlays: plays,
			SearchDocs: searchDocs,
			SSEClients: s.sseManager.ClientCount(),
		},
	}, nil
}
