package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/heysubinoy/keyvaluestore/internal/store"
	"github.com/heysubinoy/keyvaluestore/pkg/kv"
)

// Server wraps a kv.Store and exposes HTTP endpoints for KV operations.
type Server struct {
	Store  kv.Store
	Logger logrus.FieldLogger
}

// NewServer creates a new HTTP server with the given store.
// A nil logger falls back to the logrus standard logger.
func NewServer(store kv.Store, logger logrus.FieldLogger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Server{
		Store:  store,
		Logger: logger,
	}
}

// RegisterRoutes registers all HTTP handlers on the given mux.
// Keys are a single path segment; the /-/ prefix has two segments and so
// never shadows a key.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{key}", s.handleRead)
	mux.HandleFunc("POST /{key}", s.handleWrite)
	mux.HandleFunc("GET /-/healthz", HealthHandler)
	if instrumented, ok := s.Store.(*store.InstrumentedStore); ok {
		mux.HandleFunc("GET /-/metrics", MetricsHandler(instrumented))
	}
}

// Handler returns the routed mux wrapped with request id and access logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return withRequestLogging(s.Logger, mux)
}

// handleRead handles GET /{key}.
// Returns the value as plain text, 204 when the key is absent, 401 on a bad token.
func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	entry, err := Read(s.Store, key, bearerToken(r))
	switch {
	case errors.Is(err, kv.ErrUnauthorized):
		requestLogger(r, s.Logger).Warn("unauthorized read")
		unauthorized(w)
		return
	case errors.Is(err, kv.ErrNotFound):
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if entry.HasModifiedAt() {
		w.Header().Set("Last-Modified", entry.ModifiedAt.UTC().Format(http.TimeFormat))
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, entry.Value)
}

// handleWrite handles POST /{key}. The raw body becomes the value.
func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		requestLogger(r, s.Logger).WithError(err).Error("failed to read request body")
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	if err := Write(s.Store, r.PathValue("key"), bearerToken(r), string(body)); err != nil {
		requestLogger(r, s.Logger).Warn("unauthorized write")
		unauthorized(w)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
// Any other shape yields the empty string, which never matches a configured token.
func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return token
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
}
