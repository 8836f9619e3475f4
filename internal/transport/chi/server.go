// Package chi exposes the ranking service over HTTP.
package chi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/citymatch/internal/domain"
	"github.com/kailas-cloud/citymatch/internal/domain/poi"
	"github.com/kailas-cloud/citymatch/internal/domain/ranking"
	"github.com/kailas-cloud/citymatch/internal/domain/vocab"
	"github.com/kailas-cloud/citymatch/internal/logger"
	healthuc "github.com/kailas-cloud/citymatch/internal/usecase/health"
	rankuc "github.com/kailas-cloud/citymatch/internal/usecase/rank"
)

// DislikeStore is the preference store behind the /v1/users routes.
type DislikeStore interface {
	Get(ctx context.Context, userID string) (ranking.DislikeWeights, error)
	Set(ctx context.Context, userID, category string, weight int) error
	Add(ctx context.Context, userID, category string, points int) (int, error)
	Remove(ctx context.Context, userID, category string) error
	Clear(ctx context.Context, userID string) error
}

// Server holds the HTTP handlers.
type Server struct {
	rank          *rankuc.Service
	health        *healthuc.Service
	dislikes      DislikeStore
	vocabularies  map[string]*vocab.Vocabulary
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. dislikes may be nil, in which case the
// preference routes answer 503.
func NewServer(
	rank *rankuc.Service,
	health *healthuc.Service,
	dislikes DislikeStore,
	vocabularies []*vocab.Vocabulary,
	logger *zap.Logger,
) *Server {
	byName := make(map[string]*vocab.Vocabulary, len(vocabularies))
	for _, v := range vocabularies {
		if v != nil {
			byName[v.Name()] = v
		}
	}
	return &Server{
		rank:          rank,
		health:        health,
		dislikes:      dislikes,
		vocabularies:  byName,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Routes registers every handler on r.
func (s *Server) Routes(r chi.Router) {
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/rank/pois", s.RankPOIs)
		r.Post("/rank/cities", s.RankCities)
		r.Post("/penalty", s.Penalty)
		r.Get("/vocabularies/{name}", s.GetVocabulary)

		r.Route("/users/{id}/dislikes", func(r chi.Router) {
			r.Get("/", s.GetDislikes)
			r.Delete("/", s.ClearDislikes)
			r.Put("/{category}", s.SetDislike)
			r.Post("/{category}", s.AddDislike)
			r.Delete("/{category}", s.RemoveDislike)
		})
	})
}

// RankPOIs handles POST /v1/rank/pois.
func (s *Server) RankPOIs(w http.ResponseWriter, r *http.Request) {
	var req rankRequest
	if code, msg, ok := decodeAndValidate(r, &req, false); !ok {
		writeError(w, http.StatusBadRequest, code, msg)
		return
	}

	logger.Annotate(r.Context(), zap.String("user_id", req.UserID))
	scored, err := s.rank.RankPOIs(r.Context(), req.toDomain())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	logger.Annotate(r.Context(), zap.Int("results", len(scored)))
	writeJSON(w, http.StatusOK, scoredToResponse(scored))
}

// RankCities handles POST /v1/rank/cities.
func (s *Server) RankCities(w http.ResponseWriter, r *http.Request) {
	var req rankRequest
	if code, msg, ok := decodeAndValidate(r, &req, false); !ok {
		writeError(w, http.StatusBadRequest, code, msg)
		return
	}

	logger.Annotate(r.Context(), zap.String("user_id", req.UserID), zap.Bool("diversify", req.Diversify))
	cities, err := s.rank.RankCities(r.Context(), req.toDomain())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	logger.Annotate(r.Context(), zap.Int("results", len(cities)))
	writeJSON(w, http.StatusOK, citiesToResponse(cities))
}

// Penalty handles POST /v1/penalty.
func (s *Server) Penalty(w http.ResponseWriter, r *http.Request) {
	var req penaltyRequest
	if code, msg, ok := decodeAndValidate(r, &req, false); !ok {
		writeError(w, http.StatusBadRequest, code, msg)
		return
	}

	target := (&poi.Item{Tags: req.Tags, CityTags: req.CityTags}).PenaltyTags()
	p, err := rankuc.Penalty(target, ranking.DislikeWeights(req.Dislikes))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, penaltyResponse{Penalty: p})
}

// GetVocabulary handles GET /v1/vocabularies/{name}.
func (s *Server) GetVocabulary(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	v, ok := s.vocabularies[name]
	if !ok {
		s.handleDomainError(w, fmt.Errorf("vocabulary %q: %w", name, domain.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, vocabularyToResponse(v))
}

// GetDislikes handles GET /v1/users/{id}/dislikes.
func (s *Server) GetDislikes(w http.ResponseWriter, r *http.Request) {
	store, ok := s.dislikeStore(w)
	if !ok {
		return
	}
	userID := chi.URLParam(r, "id")

	weights, err := store.Get(r.Context(), userID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if weights == nil {
		weights = ranking.DislikeWeights{}
	}
	writeJSON(w, http.StatusOK, dislikesResponse{UserID: userID, Dislikes: weights})
}

// ClearDislikes handles DELETE /v1/users/{id}/dislikes.
func (s *Server) ClearDislikes(w http.ResponseWriter, r *http.Request) {
	store, ok := s.dislikeStore(w)
	if !ok {
		return
	}
	if err := store.Clear(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetDislike handles PUT /v1/users/{id}/dislikes/{category}.
func (s *Server) SetDislike(w http.ResponseWriter, r *http.Request) {
	store, ok := s.dislikeStore(w)
	if !ok {
		return
	}
	var req setDislikeRequest
	if code, msg, ok := decodeAndValidate(r, &req, false); !ok {
		writeError(w, http.StatusBadRequest, code, msg)
		return
	}
	userID, category := chi.URLParam(r, "id"), chi.URLParam(r, "category")

	if err := store.Set(r.Context(), userID, category, req.Weight); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dislikeResponse{UserID: userID, Category: category, Weight: req.Weight})
}

// AddDislike handles POST /v1/users/{id}/dislikes/{category}. The body is
// optional and defaults to one point.
func (s *Server) AddDislike(w http.ResponseWriter, r *http.Request) {
	store, ok := s.dislikeStore(w)
	if !ok {
		return
	}
	req := addDislikeRequest{Points: 1}
	if code, msg, ok := decodeAndValidate(r, &req, true); !ok {
		writeError(w, http.StatusBadRequest, code, msg)
		return
	}
	if req.Points == 0 {
		req.Points = 1
	}
	userID, category := chi.URLParam(r, "id"), chi.URLParam(r, "category")

	weight, err := store.Add(r.Context(), userID, category, req.Points)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dislikeResponse{UserID: userID, Category: category, Weight: weight})
}

// RemoveDislike handles DELETE /v1/users/{id}/dislikes/{category}.
func (s *Server) RemoveDislike(w http.ResponseWriter, r *http.Request) {
	store, ok := s.dislikeStore(w)
	if !ok {
		return
	}
	if err := store.Remove(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "category")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) dislikeStore(w http.ResponseWriter) (DislikeStore, bool) {
	if s.dislikes == nil {
		s.handleDomainError(w, fmt.Errorf("preferences: %w", domain.ErrStoreUnavailable))
		return nil, false
	}
	return s.dislikes, true
}
