package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/omoide-dev/omoide/internal/cluster"
	"github.com/omoide-dev/omoide/internal/embedding"
	"github.com/omoide-dev/omoide/internal/models"
	"github.com/omoide-dev/omoide/internal/storage"
)

const defaultUser = "default"

func userFrom(r *http.Request) string {
	if user := r.Header.Get("X-User"); user != "" {
		return user
	}
	return defaultUser
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := query.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("search request",
		zap.String("query", query.Query),
		zap.String("mode", query.Mode),
		zap.Int("top_k", query.TopK),
	)

	start := time.Now()
	response, err := s.engine.Search(r.Context(), userFrom(r), &query)
	s.metrics.SearchDuration.WithLabelValues(query.Mode).Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, embedding.ErrUnavailable) {
			s.metrics.SearchTotal.WithLabelValues(query.Mode, "unavailable").Inc()
			s.respondError(w, http.StatusServiceUnavailable, "search backend unavailable: "+err.Error())
			return
		}
		s.metrics.SearchTotal.WithLabelValues(query.Mode, "error").Inc()
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.metrics.SearchTotal.WithLabelValues(query.Mode, "ok").Inc()
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleListPeople(w http.ResponseWriter, r *http.Request) {
	clusters, err := s.storage.ListClusters(r.Context())
	if err != nil {
		s.logger.Error("list people failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"people": clusters,
		"total":  len(clusters),
	})
}

type labelRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleLabelPerson(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req labelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	labeled, err := s.clusterer.Label(r.Context(), id, req.Name)
	if err != nil {
		s.respondClusterError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, labeled)
}

type mergeRequest struct {
	ClusterIDs []string `json:"cluster_ids"`
}

func (s *Server) handleMergePeople(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	merged, err := s.clusterer.Merge(r.Context(), req.ClusterIDs)
	if err != nil {
		s.respondClusterError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, merged)
}

func (s *Server) handlePersonImages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.storage.GetCluster(r.Context(), id); err != nil {
		s.respondClusterError(w, err)
		return
	}
	images, err := s.storage.GetImagesByClusterID(r.Context(), id)
	if err != nil {
		s.logger.Error("person images failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"images": images,
		"total":  len(images),
	})
}

func (s *Server) handleDeletePerson(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.storage.GetCluster(r.Context(), id); err != nil {
		s.respondClusterError(w, err)
		return
	}
	if err := s.storage.DeleteCluster(r.Context(), id); err != nil {
		s.logger.Error("delete person failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleCluster(w http.ResponseWriter, r *http.Request) {
	stats, err := s.clusterer.ClusterFaces(r.Context())
	if err != nil {
		s.metrics.ClusterRuns.WithLabelValues("error").Inc()
		s.respondClusterError(w, err)
		return
	}
	s.metrics.ClusterRuns.WithLabelValues("ok").Inc()
	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleRecluster(w http.ResponseWriter, r *http.Request) {
	stats, err := s.clusterer.Recluster(r.Context())
	if err != nil {
		s.metrics.ClusterRuns.WithLabelValues("error").Inc()
		s.respondClusterError(w, err)
		return
	}
	s.metrics.ClusterRuns.WithLabelValues("ok").Inc()
	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleListImages(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 50
	}
	images, err := s.storage.ListImages(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("list images failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"images": images,
		"total":  len(images),
	})
}

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	img, err := s.storage.GetImage(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "image not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, img)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondClusterError maps clustering errors onto HTTP statuses: busy runs
// conflict, bad arguments are the caller's fault, unknown ids are missing.
func (s *Server) respondClusterError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cluster.ErrBusy):
		s.respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, cluster.ErrInvalidArgument):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("cluster operation failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
