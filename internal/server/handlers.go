package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/notevault/vaultindex/internal/models"
	"go.uber.org/zap"
)

// SearchRequest is the body of POST /api/v1/search.
type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// IndexNoteRequest is the body of POST /api/v1/notes.
type IndexNoteRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// RemoveNoteRequest is the body of DELETE /api/v1/notes.
type RemoveNoteRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query cannot be empty")
		return
	}
	start := time.Now()
	results, err := s.store.SearchNotes(r.Context(), req.Query, req.Limit)
	if err != nil {
		s.logger.Error("search failed", zap.String("query", req.Query), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	s.respondJSON(w, http.StatusOK, &models.SearchResponse{
		Results:   results,
		Total:     len(results),
		QueryTime: time.Since(start).Milliseconds(),
		Query:     req.Query,
	})
}

func (s *Server) handleIndexNote(w http.ResponseWriter, r *http.Request) {
	var req IndexNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path cannot be empty")
		return
	}
	if err := s.store.AddNote(r.Context(), req.Path, req.Content, time.Now()); err != nil {
		s.logger.Error("indexing failed", zap.String("note", req.Path), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.store.SaveToFile(); err != nil {
		s.logger.Warn("snapshot save failed", zap.Error(err))
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": req.Path, "status": "indexed"})
}

func (s *Server) handleRemoveNote(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		var req RemoveNoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			path = req.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path cannot be empty")
		return
	}
	s.sched.RemoveFile(path)
	s.respondJSON(w, http.StatusOK, map[string]string{"path": path, "status": "removed"})
}

func (s *Server) handleRescan(w http.ResponseWriter, r *http.Request) {
	// Detached context: the rescan must outlive the request.
	s.sched.RescanVault(context.Background())
	s.respondJSON(w, http.StatusAccepted, map[string]string{"status": "rescan started"})
}

func (s *Server) handleFlush(w http.ResponseWriter, r *http.Request) {
	n := s.sched.Flush(r.Context())
	s.respondJSON(w, http.StatusOK, map[string]int{"flushed": n})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"notes":   s.store.Count(),
		"pending": s.sched.PendingCount(),
		"config": map[string]interface{}{
			"provider":             s.cfg.Provider.Kind,
			"model":                s.cfg.Provider.Model,
			"dimensions":           s.cfg.Provider.Dimensions,
			"chunk_size":           s.cfg.Index.ChunkSize,
			"chunk_overlap":        s.cfg.Index.ChunkOverlap,
			"similarity_threshold": s.cfg.Search.SimilarityThreshold,
			"update_mode":          s.cfg.Update.Mode,
			"snapshot_path":        s.cfg.Index.SnapshotPath,
			"vault_directories":    s.cfg.Vault.Directories,
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write response failed", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
