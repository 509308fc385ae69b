package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/curalog/curalog/internal/identity"
	"github.com/curalog/curalog/internal/models"
	"github.com/curalog/curalog/internal/pipeline"
	"github.com/curalog/curalog/internal/retrieval"
)

type submitRequest struct {
	FilePath    string            `json:"file_path"`
	CallerID    string            `json:"caller_id"`
	DocumentID  string            `json:"document_id,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Synchronous bool              `json:"synchronous,omitempty"`
}

func (s *Server) handleSubmitDocument(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FilePath == "" {
		s.respondError(w, http.StatusBadRequest, "file_path is required")
		return
	}
	if req.CallerID == "" {
		s.respondError(w, http.StatusBadRequest, "caller_id is required")
		return
	}

	doc := models.RawDocument{
		FilePath:   req.FilePath,
		DocumentID: req.DocumentID,
		CallerID:   req.CallerID,
		Metadata:   req.Metadata,
		Background: !req.Synchronous,
	}
	if err := s.processor.Validate(doc); err != nil {
		switch {
		case errors.Is(err, pipeline.ErrUnsupportedType),
			errors.Is(err, pipeline.ErrFileTooLarge):
			s.respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, pipeline.ErrFileMissing):
			s.respondError(w, http.StatusNotFound, err.Error())
		default:
			s.logger.Error("validation failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, "validation failed")
		}
		return
	}

	s.logger.Debug("document submitted",
		zap.String("caller", identity.AnonymizeForLog(req.CallerID)),
		zap.Bool("synchronous", req.Synchronous))

	if req.Synchronous {
		result := s.processor.Process(r.Context(), doc)
		s.respondJSON(w, http.StatusOK, result)
		return
	}

	jobID, err := s.queue.Submit(doc)
	if err != nil {
		s.logger.Error("submit failed", zap.Error(err))
		s.respondError(w, http.StatusServiceUnavailable, "unable to queue document")
		return
	}
	s.respondJSON(w, http.StatusAccepted, map[string]string{
		"document_id": jobID,
		"status":      models.StatusProcessing,
	})
}

func (s *Server) handleDocumentResult(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentID")
	status, result, err := s.queue.Status(r.Context(), documentID)
	if err != nil {
		s.logger.Error("status lookup failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "status lookup failed")
		return
	}
	switch status {
	case models.StatusNotFound:
		s.respondJSON(w, http.StatusNotFound, map[string]string{
			"document_id": documentID,
			"status":      status,
			"message":     "no processing run recorded for this document",
		})
	case models.StatusProcessing:
		s.respondJSON(w, http.StatusOK, map[string]string{
			"document_id": documentID,
			"status":      status,
			"message":     "document is still being processed",
		})
	default:
		s.respondJSON(w, http.StatusOK, map[string]interface{}{
			"document_id": documentID,
			"status":      status,
			"result":      result,
		})
	}
}

type searchRequest struct {
	CallerID string `json:"caller_id"`
	Query    string `json:"query"`
	Limit    int    `json:"limit,omitempty"`
}

func (s *Server) handlePatientSearch(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		s.respondError(w, http.StatusNotImplemented, "search not enabled")
		return
	}
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CallerID == "" {
		s.respondError(w, http.StatusBadRequest, "caller_id is required")
		return
	}
	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	resp, err := s.engine.Search(r.Context(), retrieval.Query{
		CallerID: req.CallerID,
		Text:     req.Query,
		Limit:    req.Limit,
	})
	if err != nil {
		s.logger.Error("search failed",
			zap.String("caller", identity.AnonymizeForLog(req.CallerID)),
			zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "search failed")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"hits":  resp.Hits,
		"total": resp.Total,
	})
}

type deletePatientRequest struct {
	CallerID string `json:"caller_id"`
}

func (s *Server) handleDeletePatient(w http.ResponseWriter, r *http.Request) {
	if s.eraser == nil {
		s.respondError(w, http.StatusNotImplemented, "deletion not enabled")
		return
	}
	var req deletePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CallerID == "" {
		s.respondError(w, http.StatusBadRequest, "caller_id is required")
		return
	}
	patientID, err := s.ids.DeriveID(req.CallerID)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid caller_id")
		return
	}
	outcomes, err := s.eraser.DeletePatient(r.Context(), patientID)
	if err != nil {
		s.logger.Error("patient deletion failed",
			zap.String("patient", identity.AnonymizeForLog(patientID)),
			zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "deletion failed")
		return
	}
	backends := make([]map[string]interface{}, 0, len(outcomes))
	allOK := true
	for _, o := range outcomes {
		entry := map[string]interface{}{
			"backend": o.Backend,
			"success": o.Success,
		}
		if !o.Success {
			allOK = false
		}
		backends = append(backends, entry)
	}
	status := http.StatusOK
	if !allOK {
		status = http.StatusMultiStatus
	}
	s.respondJSON(w, status, map[string]interface{}{
		"status":   "deleted",
		"complete": allOK,
		"backends": backends,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"workers_running": s.queue.Running(),
	}
	if s.stats.CountRecords != nil {
		count, err := s.stats.CountRecords(r.Context())
		if err != nil {
			s.logger.Error("status: count records failed", zap.Error(err))
		} else {
			resp["clinical_records"] = count
		}
	}
	if s.stats.VectorSize != nil {
		resp["vector_index_size"] = s.stats.VectorSize()
	}
	if s.stats.ChunkCount != nil {
		count, err := s.stats.ChunkCount()
		if err != nil {
			s.logger.Error("status: chunk count failed", zap.Error(err))
		} else {
			resp["indexed_chunks"] = count
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
