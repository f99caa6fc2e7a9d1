package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/rgwood/ReiTunes/internal/http/response"
)

// apiKeyHeader carries the shared secret. Replication clients send the
// same header when pulling from a peer.
const apiKeyHeader = "X-API-Key"

// requireAPIKey rejects requests that do not carry the configured API
// key. When no key is configured the server is open, which is the
// normal setup on a private network. The health endpoint is always
// open so load balancers can probe it.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(apiKeyHeader)
		if subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) != 1 {
			s.logger.Warn("Rejected request with bad API key",
				"path", r.URL.Path,
				"remote", getClientIP(r))
			response.Unauthorized(w, "Invalid or missing API key", s.logger)
			return
		}

		next.ServeHTTP(w, r)
	})
}
