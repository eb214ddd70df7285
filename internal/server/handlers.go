package server

import (
	"encoding/json"
	"net/http"
	"path/filepath"

	"go.uber.org/zap"
)

const maxUploadBytes = 32 << 20

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "multipart form with a 'file' field is required")
		return
	}
	defer file.Close()

	// An explicit type form field wins over the filename extension.
	declaredType := r.FormValue("type")
	if declaredType == "" {
		declaredType = filepath.Ext(header.Filename)
	}
	if declaredType == "" {
		s.respondError(w, http.StatusBadRequest, "cannot determine document type from filename")
		return
	}
	s.logger.Debug("document upload", zap.String("filename", header.Filename))

	result, err := s.ingestor.Ingest(r.Context(), file, declaredType)
	if err != nil {
		s.logger.Error("ingest failed", zap.String("filename", header.Filename), zap.Error(err))
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	status := http.StatusOK
	if result.Saved {
		status = http.StatusCreated
	}
	s.respondJSON(w, status, result)
}

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	records, err := s.records.GetAllInvoices(r.Context())
	if err != nil {
		s.logger.Error("list invoices failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"invoices": records, "count": len(records)})
}

func (s *Server) handleListPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	records, err := s.records.GetAllPurchaseOrders(r.Context())
	if err != nil {
		s.logger.Error("list purchase orders failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"purchase_orders": records, "count": len(records)})
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
	Class     string `json:"class"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		s.respondError(w, http.StatusBadRequest, "message is required")
		return
	}

	sess := s.sessions.GetOrCreate(req.SessionID)
	reply, err := s.router.Respond(r.Context(), sess, req.Message)
	if err != nil {
		s.logger.Error("chat failed", zap.String("session_id", sess.ID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, chatResponse{
		SessionID: sess.ID,
		Reply:     reply.Text,
		Class:     reply.Class.String(),
	})
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.keywords == nil {
		s.respondError(w, http.StatusNotImplemented, "keyword search not enabled")
		return
	}
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}
	results, err := s.keywords.Search(r.Context(), req.Query, req.Limit)
	if err != nil {
		s.logger.Error("keyword search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"results": results, "count": len(results)})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	invoiceCount, err := s.records.CountInvoices(ctx)
	if err != nil {
		s.logger.Error("status: count invoices failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	poCount, err := s.records.CountPurchaseOrders(ctx)
	if err != nil {
		s.logger.Error("status: count purchase orders failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]any{
		"invoices":        invoiceCount,
		"purchase_orders": poCount,
		"sessions":        s.sessions.Len(),
	}
	if s.vectors != nil {
		resp["vector_index_size"] = s.vectors.Size()
	}
	if s.keywords != nil {
		if docCount, err := s.keywords.Count(); err == nil {
			resp["keyword_index_size"] = docCount
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
