package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for item documents.
//
// The mapping is designed with these priorities:
//  1. Fast full-text search on item names with English stemming
//  2. Artist and album matching with slightly lower weight
//  3. Exact keyword matching on the id field
//  4. Numeric fields for sorting by play count and recency
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	// --- Text fields (full-text searchable) ---

	// Name field - primary search target
	nameFieldMapping := bleve.NewTextFieldMapping()
	nameFieldMapping.Analyzer = en.AnalyzerName
	nameFieldMapping.Store = true
	nameFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("name", nameFieldMapping)

	// Artist - searchable
	artistFieldMapping := bleve.NewTextFieldMapping()
	artistFieldMapping.Analyzer = en.AnalyzerName
	artistFieldMapping.Store = true
	artistFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("artist", artistFieldMapping)

	// Album - searchable
	albumFieldMapping := bleve.NewTextFieldMapping()
	albumFieldMapping.Analyzer = en.AnalyzerName
	albumFieldMapping.Store = true
	albumFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("album", albumFieldMapping)

	// File path - searchable with simple analyzer (no stemming)
	filePathFieldMapping := bleve.NewTextFieldMapping()
	filePathFieldMapping.Analyzer = simple.Name
	filePathFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("file_path", filePathFieldMapping)

	// --- Keyword fields (exact match) ---

	// ID - stored but not analyzed
	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	// --- Numeric fields (range queries, sorting) ---

	playCountFieldMapping := bleve.NewNumericFieldMapping()
	playCountFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("play_count", playCountFieldMapping)

	bookmarkCountFieldMapping := bleve.NewNumericFieldMapping()
	bookmarkCountFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("bookmark_count", bookmarkCountFieldMapping)

	createdAtFieldMapping := bleve.NewNumericFieldMapping()
	createdAtFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("created_at", createdAtFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
