// Package remote pulls and pushes events over HTTP for replication
// between machines.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rgwood/ReiTunes/internal/domain"
	"github.com/rgwood/ReiTunes/internal/errors"
)

// apiKeyHeader authenticates replication requests. The same shared
// secret is used in both directions.
const apiKeyHeader = "X-API-Key"

// Client talks to a remote event server.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a replication client for the given server.
func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// FetchEvents downloads the remote server's full event set. The payload
// is a plain JSON array of envelopes; full transfer keeps the protocol
// stateless, and the event ID dedup on merge makes re-transfer cheap to
// apply.
func (c *Client) FetchEvents(ctx context.Context) ([]domain.EventEnvelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/events", nil)
	if err != nil {
		return nil, errors.Transport(err, "build fetch request")
	}
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Transport(err, "fetch remote events")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.Transportf(
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
			"fetch remote events from %s", c.baseURL)
	}

	var envelopes []domain.EventEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelopes); err != nil {
		return nil, errors.Parse(err, "decode remote events")
	}

	c.logger.Debug("fetched remote events",
		slog.Int("count", len(envelopes)),
		slog.String("remote", c.baseURL))
	return envelopes, nil
}

// pushResult mirrors the server's envelope around the merge count.
type pushResult struct {
	Data struct {
		Merged int `json:"merged"`
	} `json:"data"`
}

// PushEvents uploads local events to the remote server. The server
// merges them with the same event ID dedup used locally and reports how
// many were new to it.
func (c *Client) PushEvents(ctx context.Context, envelopes []domain.EventEnvelope) (int, error) {
	body, err := json.Marshal(envelopes)
	if err != nil {
		return 0, errors.Parse(err, "encode events for push")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/events", bytes.NewReader(body))
	if err != nil {
		return 0, errors.Transport(err, "build push request")
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, errors.Transport(err, "push events")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, errors.Transportf(
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))),
			"push events to %s", c.baseURL)
	}

	var result pushResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, errors.Parse(err, "decode push response")
	}

	return result.Data.Merged, nil
}
