package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	apperrors "github.com/rgwood/ReiTunes/internal/errors"
	"github.com/rgwood/ReiTunes/internal/service"
)

func (s *Server) registerSyncRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "triggerSync",
		Method:      http.MethodPost,
		Path:        "/api/v1/sync",
		Summary:     "Sync with remote",
		Description: "Runs one pull-and-merge pass against the configured remote server",
		Tags:        []string{"Sync"},
		Security:    []map[string][]string{{"apiKey": {}}},
	}, s.handleTriggerSync)
}

// SyncOutput wraps the sync result for Huma.
type SyncOutput struct {
	Body service.SyncResult
}

func (s *Server) handleTriggerSync(ctx context.Context, _ *struct{}) (*SyncOutput, error) {
	if s.sync == nil {
		return nil, apperrors.Validation("No remote server is configured")
	}

	result, err := s.sync.Sync(ctx)
	if err != nil {
		s.logger.Error("Manual sync failed", "error", err)
		return nil, err
	}

	s.logger.Info("Manual sync completed",
		"pulled", result.Pulled,
		"pushed", result.Pushed)

	return &SyncOutput{Body: result}, nil
}
