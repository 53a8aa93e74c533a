package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"eoa-transfer-analyzer/internal/domain/entity"
	"eoa-transfer-analyzer/internal/domain/repository"
	"eoa-transfer-analyzer/internal/domain/service"
	"eoa-transfer-analyzer/internal/infrastructure/config"
	"eoa-transfer-analyzer/internal/infrastructure/logger"

	"go.uber.org/zap"
)

// Server exposes the analysis pipeline and the saved-search store over
// HTTP. Responses are read-only snapshots of the pipeline output.
type Server struct {
	analysis service.AnalysisService
	searches repository.SearchRepository
	logger   *logger.Logger
	server   *http.Server
}

// NewServer creates the HTTP server with all routes registered
func NewServer(
	cfg *config.Config,
	analysis service.AnalysisService,
	searches repository.SearchRepository,
	logger *logger.Logger,
) *Server {
	s := &Server{
		analysis: analysis,
		searches: searches,
		logger:   logger.WithComponent("http-server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/v1/analysis/{address}", s.handleAnalysis)
	mux.HandleFunc("GET /api/v1/searches", s.handleListSearches)
	mux.HandleFunc("POST /api/v1/searches", s.handleSaveSearch)
	mux.HandleFunc("DELETE /api/v1/searches/{address}", s.handleDeleteSearch)
	mux.HandleFunc("GET /api/v1/annotations/{address}", s.handleGetAnnotation)
	mux.HandleFunc("PUT /api/v1/annotations/{address}", s.handleSaveAnnotation)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.HTTPPort),
		Handler: mux,
	}
	return s
}

// Start begins serving in the background
func (s *Server) Start() {
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
}

// Stop shuts the server down gracefully
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	address := strings.ToLower(r.PathValue("address"))

	summary, err := s.analysis.AnalyzeAddress(r.Context(), address)
	if err != nil {
		if errors.Is(err, service.ErrInvalidAddress) {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		s.logger.Error("Analysis failed",
			zap.String("address", address),
			zap.Error(err))
		s.writeError(w, http.StatusBadGateway, err)
		return
	}

	// Remember the search as a side effect so the dashboard's recent
	// list stays current
	now := time.Now().UTC()
	if err := s.searches.SaveSearch(r.Context(), entity.SavedSearch{
		Address:  address,
		SavedAt:  now,
		LastUsed: now,
	}); err != nil {
		s.logger.Warn("Failed to remember search", zap.Error(err))
	}

	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleListSearches(w http.ResponseWriter, r *http.Request) {
	searches, err := s.searches.ListSearches(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, searches)
}

func (s *Server) handleSaveSearch(w http.ResponseWriter, r *http.Request) {
	var search entity.SavedSearch
	if err := json.NewDecoder(r.Body).Decode(&search); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if search.Address == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("address is required"))
		return
	}
	now := time.Now().UTC()
	if search.SavedAt.IsZero() {
		search.SavedAt = now
	}
	search.LastUsed = now

	if err := s.searches.SaveSearch(r.Context(), search); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, search)
}

func (s *Server) handleDeleteSearch(w http.ResponseWriter, r *http.Request) {
	if err := s.searches.DeleteSearch(r.Context(), r.PathValue("address")); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetAnnotation(w http.ResponseWriter, r *http.Request) {
	annotation, err := s.searches.GetAnnotation(r.Context(), r.PathValue("address"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if annotation == nil {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("no annotation"))
		return
	}
	s.writeJSON(w, http.StatusOK, annotation)
}

func (s *Server) handleSaveAnnotation(w http.ResponseWriter, r *http.Request) {
	var annotation entity.Annotation
	if err := json.NewDecoder(r.Body).Decode(&annotation); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	annotation.Address = strings.ToLower(r.PathValue("address"))
	annotation.Updated = time.Now().UTC()

	if err := s.searches.SaveAnnotation(r.Context(), annotation); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, annotation)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
