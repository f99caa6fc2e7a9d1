package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rgwood/ReiTunes/internal/domain"
	"github.com/rgwood/ReiTunes/internal/dto"
	"github.com/rgwood/ReiTunes/internal/http/response"
	"github.com/rgwood/ReiTunes/internal/service"
)

// createItemRequest is the body for creating a library item.
type createItemRequest struct {
	Name     string `json:"name" validate:"required,max=500"`
	FilePath string `json:"file_path" validate:"required,max=1000"`
	Artist   string `json:"artist" validate:"omitempty,max=500"`
	Album    string `json:"album" validate:"omitempty,max=500"`
}

// updateItemRequest is the body for patching an item. Absent fields are
// left unchanged; present fields produce one change event each.
type updateItemRequest struct {
	Name     *string `json:"name"`
	FilePath *string `json:"file_path"`
	Artist   *string `json:"artist"`
	Album    *string `json:"album"`
}

// addBookmarkRequest is the body for adding a bookmark.
type addBookmarkRequest struct {
	PositionSeconds float64 `json:"position_seconds" validate:"gte=0"`
}

// setEmojiRequest is the body for changing a bookmark's emoji.
type setEmojiRequest struct {
	Emoji string `json:"emoji" validate:"required,max=16"`
}

// itemView converts a domain item to its API view, filling in the
// download URL when a storage base is configured.
func (s *Server) itemView(item *domain.LibraryItem) *dto.Item {
	view := dto.FromItem(item)
	if view != nil && s.storageBaseURL != "" {
		view.DownloadURL = s.storageBaseURL + "/" + escapePath(view.FilePath)
	}
	return view
}

func (s *Server) itemViews(items []*domain.LibraryItem) []*dto.Item {
	out := make([]*dto.Item, len(items))
	for i, item := range items {
		out[i] = s.itemView(item)
	}
	return out
}

// escapePath escapes each path segment, keeping the slashes.
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

// itemID parses the {id} URL parameter. A false return means a response
// has already been written.
func (s *Server) itemID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Item ID must be a UUID", s.logger)
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body", s.logger)
		return
	}
	if err := s.validate.Validate(req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	item, err := s.library.CreateItem(ctx, req.Name, req.FilePath, req.Artist, req.Album)
	if err != nil {
		s.logger.Error("Failed to create item", "error", err, "name", req.Name)
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, s.itemView(item), s.logger)
}

func (s *Server) handleListItems(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, s.itemViews(s.library.Items()), s.logger)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := s.itemID(w, r)
	if !ok {
		return
	}

	item, err := s.library.Item(id)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, s.itemView(item), s.logger)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := s.itemID(w, r)
	if !ok {
		return
	}

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body", s.logger)
		return
	}

	item, err := s.library.UpdateItem(ctx, id, service.ItemChanges{
		Name:     req.Name,
		FilePath: req.FilePath,
		Artist:   req.Artist,
		Album:    req.Album,
	})
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, s.itemView(item), s.logger)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := s.itemID(w, r)
	if !ok {
		return
	}

	if err := s.library.DeleteItem(ctx, id); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

func (s *Server) handleRecordPlay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := s.itemID(w, r)
	if !ok {
		return
	}

	item, err := s.library.RecordPlay(ctx, id)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, s.itemView(item), s.logger)
}

func (s *Server) handleAddBookmark(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := s.itemID(w, r)
	if !ok {
		return
	}

	var req addBookmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body", s.logger)
		return
	}
	if err := s.validate.Validate(req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	position := time.Duration(req.PositionSeconds * float64(time.Second))
	bookmark, err := s.library.AddBookmark(ctx, id, position)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, dto.FromBookmark(bookmark), s.logger)
}

func (s *Server) handleDeleteBookmark(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := s.itemID(w, r)
	if !ok {
		return
	}

	bookmarkID, err := uuid.Parse(chi.URLParam(r, "bookmarkID"))
	if err != nil {
		response.BadRequest(w, "Bookmark ID must be a UUID", s.logger)
		return
	}

	if err := s.library.DeleteBookmark(ctx, id, bookmarkID); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

func (s *Server) handleSetBookmarkEmoji(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := s.itemID(w, r)
	if !ok {
		return
	}

	bookmarkID, err := uuid.Parse(chi.URLParam(r, "bookmarkID"))
	if err != nil {
		response.BadRequest(w, "Bookmark ID must be a UUID", s.logger)
		return
	}

	var req setEmojiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body", s.logger)
		return
	}
	if err := s.validate.Validate(req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	if err := s.library.SetBookmarkEmoji(ctx, id, bookmarkID, req.Emoji); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleRandomBookmark picks a random bookmark across the whole
// library, for the "play me something" button.
func (s *Server) handleRandomBookmark(w http.ResponseWriter, _ *http.Request) {
	item, bookmark, err := s.library.RandomBookmark()
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, map[string]any{
		"item":     s.itemView(item),
		"bookmark": dto.FromBookmark(bookmark),
	}, s.logger)
}
