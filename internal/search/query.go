package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// SearchParams configures a search query.
type SearchParams struct {
	Query string // User's search query

	// Filters
	Artist string // Exact-ish artist match
	Album  string // Exact-ish album match

	// Pagination
	Limit  int
	Offset int

	// Sorting
	SortBy    string // "relevance", "name", "plays", "recent"
	SortOrder string // "asc", "desc"

	// Options
	Highlight bool // Include match highlighting
}

// DefaultSearchParams returns sensible defaults.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		Limit:     20,
		Offset:    0,
		SortBy:    "relevance",
		SortOrder: "desc",
		Highlight: true,
	}
}

// SearchResult represents the search results.
type SearchResult struct {
	Query  string      `json:"query"`
	Total  uint64      `json:"total"`
	TookMs int64       `json:"took_ms"`
	Hits   []SearchHit `json:"hits"`
}

// SearchHit represents a single search result.
type SearchHit struct {
	ID         string            `json:"id"`
	Score      float64           `json:"score"`
	Name       string            `json:"name"`
	FilePath   string            `json:"file_path,omitempty"`
	Artist     string            `json:"artist,omitempty"`
	Album      string            `json:"album,omitempty"`
	PlayCount  int               `json:"play_count"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// Search executes a search query.
func (s *SearchIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	searchQuery := buildSearchQuery(params)
	searchRequest := bleve.NewSearchRequestOptions(searchQuery, params.Limit, params.Offset, false)

	addSorting(searchRequest, params)

	if params.Highlight {
		searchRequest.Highlight = bleve.NewHighlight()
		searchRequest.Highlight.AddField("name")
		searchRequest.Highlight.AddField("artist")
		searchRequest.Highlight.AddField("album")
	}

	searchRequest.Fields = []string{
		"id", "name", "file_path", "artist", "album", "play_count",
	}

	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  searchResult.Total,
		TookMs: searchResult.Took.Milliseconds(),
		Hits:   make([]SearchHit, 0, len(searchResult.Hits)),
	}

	for _, hit := range searchResult.Hits {
		searchHit := SearchHit{
			ID:    hit.ID,
			Score: hit.Score,
		}

		// Extract stored fields
		if n, ok := hit.Fields["name"].(string); ok {
			searchHit.Name = n
		}
		if fp, ok := hit.Fields["file_path"].(string); ok {
			searchHit.FilePath = fp
		}
		if a, ok := hit.Fields["artist"].(string); ok {
			searchHit.Artist = a
		}
		if a, ok := hit.Fields["album"].(string); ok {
			searchHit.Album = a
		}
		if pc, ok := hit.Fields["play_count"].(float64); ok {
			searchHit.PlayCount = int(pc)
		}

		// Extract highlights
		if len(hit.Fragments) > 0 {
			searchHit.Highlights = make(map[string]string)
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					searchHit.Highlights[field] = fragments[0]
				}
			}
		}

		result.Hits = append(result.Hits, searchHit)
	}

	return result, nil
}

// buildSearchQuery constructs the Bleve query from params.
func buildSearchQuery(params SearchParams) query.Query {
	var queries []query.Query

	// Main text query: item name carries the most weight, then artist
	// and album. Fuzzy and prefix variants of the name catch typos and
	// partial words while typing.
	if params.Query != "" {
		textQueries := []query.Query{}

		nameMatch := bleve.NewMatchQuery(params.Query)
		nameMatch.SetField("name")
		nameMatch.SetBoost(3.0)
		textQueries = append(textQueries, nameMatch)

		artistMatch := bleve.NewMatchQuery(params.Query)
		artistMatch.SetField("artist")
		artistMatch.SetBoost(2.0)
		textQueries = append(textQueries, artistMatch)

		albumMatch := bleve.NewMatchQuery(params.Query)
		albumMatch.SetField("album")
		albumMatch.SetBoost(1.5)
		textQueries = append(textQueries, albumMatch)

		pathMatch := bleve.NewMatchQuery(params.Query)
		pathMatch.SetField("file_path")
		pathMatch.SetBoost(0.5)
		textQueries = append(textQueries, pathMatch)

		fuzzyQuery := bleve.NewFuzzyQuery(params.Query)
		fuzzyQuery.SetFuzziness(1)
		fuzzyQuery.SetField("name")
		fuzzyQuery.SetBoost(0.8)
		textQueries = append(textQueries, fuzzyQuery)

		// Prefix query for autocomplete (minimum 2 chars)
		if len(params.Query) >= 2 {
			prefixQuery := bleve.NewPrefixQuery(strings.ToLower(params.Query))
			prefixQuery.SetField("name")
			prefixQuery.SetBoost(0.5)
			textQueries = append(textQueries, prefixQuery)
		}

		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	// Artist filter
	if params.Artist != "" {
		artistQuery := bleve.NewMatchQuery(params.Artist)
		artistQuery.SetField("artist")
		queries = append(queries, artistQuery)
	}

	// Album filter
	if params.Album != "" {
		albumQuery := bleve.NewMatchQuery(params.Album)
		albumQuery.SetField("album")
		queries = append(queries, albumQuery)
	}

	// Combine all queries with AND
	if len(queries) == 0 {
		return bleve.NewMatchAllQuery()
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewConjunctionQuery(queries...)
}

// addSorting configures sort order.
func addSorting(req *bleve.SearchRequest, params SearchParams) {
	switch params.SortBy {
	case "name", "title":
		if params.SortOrder == "desc" {
			req.SortBy([]string{"-name"})
		} else {
			req.SortBy([]string{"name"})
		}
	case "plays":
		if params.SortOrder == "asc" {
			req.SortBy([]string{"play_count"})
		} else {
			req.SortBy([]string{"-play_count", "-created_at"})
		}
	case "recent":
		if params.SortOrder == "asc" {
			req.SortBy([]string{"created_at"})
		} else {
			req.SortBy([]string{"-created_at"})
		}
	default:
		// Relevance (score) is default - Bleve handles this
		req.SortBy([]string{"-_score"})
	}
}
