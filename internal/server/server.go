// Package server provides the HTTP API for Seikyu.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/seikyu/internal/chat"
	"github.com/hyperjump/seikyu/internal/config"
	"github.com/hyperjump/seikyu/internal/ingest"
	"github.com/hyperjump/seikyu/internal/keyword"
	"github.com/hyperjump/seikyu/internal/session"
	"github.com/hyperjump/seikyu/internal/storage"
)

// DocumentIngestor runs the upload pipeline for one document.
type DocumentIngestor interface {
	Ingest(ctx context.Context, r io.Reader, declaredType string) (*ingest.Result, error)
}

// KeywordSearcher serves the lexical search endpoint.
type KeywordSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]*keyword.Result, error)
	Count() (uint64, error)
}

// VectorStatus exposes the size of the semantic index for the status endpoint.
type VectorStatus interface {
	Size() int
}

// Server is the HTTP server for the Seikyu API.
type Server struct {
	ingestor DocumentIngestor
	records  storage.RecordStore
	router   *chat.Router
	sessions *session.Manager
	keywords KeywordSearcher
	vectors  VectorStatus
	config   *config.ServerConfig
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies. keywords and
// vectors may be nil; the matching endpoints then report unavailable.
func NewServer(
	ingestor DocumentIngestor,
	records storage.RecordStore,
	router *chat.Router,
	sessions *session.Manager,
	keywords KeywordSearcher,
	vectors VectorStatus,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		ingestor: ingestor,
		records:  records,
		router:   router,
		sessions: sessions,
		keywords: keywords,
		vectors:  vectors,
		config:   cfg,
		logger:   logger,
	}
}

// Routes builds the HTTP handler. Exposed for tests.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Post("/api/v1/documents", s.handleUploadDocument)
	r.Get("/api/v1/records/invoices", s.handleListInvoices)
	r.Get("/api/v1/records/purchase-orders", s.handleListPurchaseOrders)
	r.Post("/api/v1/chat", s.handleChat)
	r.Post("/api/v1/search", s.handleSearch)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Routes(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
