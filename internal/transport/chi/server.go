// Package chi exposes the search and recommendation services over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ridelist/searchd/internal/db"
	"github.com/ridelist/searchd/internal/domain"
	logpkg "github.com/ridelist/searchd/internal/logger"
	recommenduc "github.com/ridelist/searchd/internal/usecase/recommend"
	searchuc "github.com/ridelist/searchd/internal/usecase/search"
)

// Server implements the HTTP API over the search and recommendation
// services.
type Server struct {
	search    *searchuc.Service
	recommend *recommenduc.Service
	store     db.Store
	logger    *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	recommend *recommenduc.Service,
	store db.Store,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{search: search, recommend: recommend, store: store, logger: logger}
}

// Register mounts all routes on the router. Middleware is owned by the
// composition root.
func (s *Server) Register(r chi.Router) {
	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/search", s.handleSearch)
		r.Get("/trending", s.handleTrending)
		r.Get("/recommendations/{userID}", s.handleRecommendations)
		r.Get("/listings/{id}/similar", s.handleSimilar)

		r.Post("/invalidate/listing/{id}", s.handleInvalidateListing)
		r.Post("/invalidate/location/{cityID}", s.handleInvalidateLocation)
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	o, err := optionsFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	resp, err := s.search.Search(r.Context(), f, o)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	limit := intQuery(r.URL.Query(), "limit", 10)

	results, err := s.recommend.Trending(r.Context(), limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	userID, err := int64Param(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	opts := recommenduc.Options{
		Limit:         intQuery(r.URL.Query(), "limit", 10),
		IncludeViewed: boolQuery(r.URL.Query(), "include_viewed"),
	}

	results, err := s.recommend.Recommend(r.Context(), userID, opts)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	opts := recommenduc.Options{Limit: intQuery(r.URL.Query(), "limit", 10)}

	results, err := s.recommend.SimilarTo(r.Context(), id, opts)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleInvalidateListing(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	if err := s.search.InvalidateListing(r.Context(), id); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInvalidateLocation(w http.ResponseWriter, r *http.Request) {
	cityID, err := int64Param(r, "cityID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	if err := s.search.InvalidateLocation(r.Context(), cityID); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded", "cache": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleDomainError maps sentinel errors to HTTP statuses. Unmapped
// errors are logged with the request-scoped logger so the line carries
// the request id.
func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		writeError(w, http.StatusServiceUnavailable, "upstream_unavailable", "search backend unavailable")
	default:
		logpkg.FromContext(r.Context(), s.logger).Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"code": code, "message": msg})
}
