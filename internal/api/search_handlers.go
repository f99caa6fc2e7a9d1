package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/rgwood/ReiTunes/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "search",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search library",
		Description: "Full-text search across item names, artists, albums, and file paths",
		Tags:        []string{"Search"},
		Security:    []map[string][]string{{"apiKey": {}}},
	}, s.handleSearch)
}

// SearchInput contains parameters for searching the library.
type SearchInput struct {
	Query     string `query:"q" validate:"omitempty,max=200" doc:"Search query. Omit to match everything."`
	Artist    string `query:"artist" validate:"omitempty,max=200" doc:"Filter results to this artist"`
	Album     string `query:"album" validate:"omitempty,max=200" doc:"Filter results to this album"`
	Limit     int    `query:"limit" validate:"omitempty,gte=1,lte=100" doc:"Max results (default 20)"`
	Offset    int    `query:"offset" validate:"omitempty,gte=0" doc:"Pagination offset (default 0)"`
	SortBy    string `query:"sort" validate:"omitempty,oneof=relevance name plays recent" doc:"Sort order (default relevance)"`
	Highlight bool   `query:"highlight" doc:"Include highlighted match fragments"`
}

// SearchOutput wraps the search response for Huma.
type SearchOutput struct {
	Body search.SearchResult
}

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	params := search.DefaultSearchParams()
	params.Query = input.Query
	params.Artist = input.Artist
	params.Album = input.Album
	params.Highlight = input.Highlight
	if input.Limit > 0 {
		params.Limit = input.Limit
	}
	if input.Offset > 0 {
		params.Offset = input.Offset
	}
	if input.SortBy != "" {
		params.SortBy = input.SortBy
	}

	s.logger.Debug("Search request received",
		"query", input.Query,
		"artist", input.Artist,
		"album", input.Album,
		"limit", params.Limit,
	)

	result, err := s.search.Search(ctx, params)
	if err != nil {
		s.logger.Error("Search failed", "error", err, "query", input.Query)
		return nil, err
	}

	return &SearchOutput{Body: *result}, nil
}
