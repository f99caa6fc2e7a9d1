// Package api provides the HTTP API server and handlers for the ReiTunes server.
package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/rgwood/ReiTunes/internal/search"
	"github.com/rgwood/ReiTunes/internal/service"
	"github.com/rgwood/ReiTunes/internal/sse"
	"github.com/rgwood/ReiTunes/internal/store/sqlite"
	"github.com/rgwood/ReiTunes/internal/validation"
)

// Server holds dependencies for HTTP handlers.
//
// The typed operations (search, sync, stats, health) are registered
// through Huma so they get validation and OpenAPI for free. The event
// replication endpoints stay on plain chi because their wire format is
// a bare JSON array that predates this server, and SSE is plain chi
// because Huma does not support it.
type Server struct {
	store      *sqlite.Store
	library    *service.LibraryService
	sync       *service.SyncService
	search     *search.SearchIndex
	sseManager *sse.Manager
	sseHandler *sse.Handler
	router     *chi.Mux
	api        huma.API
	apiKey     string
	validate   *validation.Validator

	// storageBaseURL, when set, is prepended to item file paths to
	// build download URLs in API responses.
	storageBaseURL string

	// eventLimiter throttles the replication endpoints, which remote
	// peers poll on a timer.
	eventLimiter *RateLimiter

	logger *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured. The
// sync service may be nil when no remote is configured; the sync
// endpoint then reports a validation error.
func NewServer(store *sqlite.Store, library *service.LibraryService, syncService *service.SyncService, searchIndex *search.SearchIndex, sseManager *sse.Manager, sseHandler *sse.Handler, apiKey, storageBaseURL string, logger *slog.Logger) *Server {
	s := &Server{
		store:          store,
		library:        library,
		sync:           syncService,
		search:         searchIndex,
		sseManager:     sseManager,
		sseHandler:     sseHandler,
		router:         chi.NewRouter(),
		apiKey:         apiKey,
		validate:       validation.New(),
		storageBaseURL: strings.TrimRight(storageBaseURL, "/"),
		eventLimiter:   NewRateLimiter(120, time.Minute, 30),
		logger:         logger,
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("ReiTunes API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"apiKey": {
			Type: "apiKey",
			In:   "header",
			Name: apiKeyHeader,
		},
	}
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases server-held resources. The store and search index are
// owned by the caller and closed separately.
func (s *Server) Close() {
	s.eventLimiter.Stop()
}

// setupMiddleware configures the middleware stack. Middleware must be
// added before any route is registered, including the Huma ones.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", apiKeyHeader},
		MaxAge:         300,
	}))
	s.router.Use(s.requireAPIKey)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Typed operations.
	s.registerHealthRoutes()
	s.registerSearchRoutes()
	s.registerSyncRoutes()
	s.registerStatsRoutes()

	s.router.Route("/api/v1", func(r chi.Router) {
		// Event replication. The GET payload is a bare array, matching
		// what replication clients expect.
		r.Route("/events", func(r chi.Router) {
			r.Use(RateLimitMiddleware(s.eventLimiter, s.logger))
			r.Get("/", s.handleListEvents)
			r.Post("/", s.handlePushEvents)
			r.Get("/recent", s.handleRecentEvents)
		})

		// Library items.
		r.Route("/items", func(r chi.Router) {
			r.Post("/", s.handleCreateItem)
			r.Get("/", s.handleListItems)
			r.Get("/{id}", s.handleGetItem)
			r.Patch("/{id}", s.handleUpdateItem)
			r.Delete("/{id}", s.handleDeleteItem)
			r.Post("/{id}/play", s.handleRecordPlay)
			r.Post("/{id}/bookmarks", s.handleAddBookmark)
			r.Delete("/{id}/bookmarks/{bookmarkID}", s.handleDeleteBookmark)
			r.Put("/{id}/bookmarks/{bookmarkID}/emoji", s.handleSetBookmarkEmoji)
		})

		r.Get("/bookmarks/random", s.handleRandomBookmark)

		// SSE endpoint (handled via chi directly, not huma).
		r.Get("/updates", s.sseHandler.ServeHTTP)
	})
}
