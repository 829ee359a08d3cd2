// Package httpapi is the thin net/http JSON surface (component A4)
// implementing the ingest/retrieve HTTP contract. Handlers
// never carry business logic; they validate, normalize, call into the
// pipeline packages, and map domain errors to status codes at the edge.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/ragforge/ragindex/internal/domain"
	"github.com/ragforge/ragindex/internal/ingest"
	"github.com/ragforge/ragindex/internal/logger"
	"github.com/ragforge/ragindex/internal/querytransform"
	"github.com/ragforge/ragindex/internal/reranker"
	"github.com/ragforge/ragindex/internal/retriever"
)

var validate = validator.New()

// StoreDeleter is the persistence dependency for cascading document
// deletion.
type StoreDeleter interface {
	DeleteDocument(ctx context.Context, documentID string) error
}

// ArchiveDeleter is the optional A6 dependency mirrored by document
// deletion.
type ArchiveDeleter interface {
	DeleteDocument(ctx context.Context, documentID string) error
}

// Server bundles the pipeline dependencies a handler needs.
type Server struct {
	orchestrator   *ingest.Orchestrator
	store          StoreDeleter
	archiver       ArchiveDeleter
	transformer    *querytransform.Transformer
	retriever      *retriever.Retriever
	reranker       *reranker.Reranker
	embeddingModel string
}

func New(orchestrator *ingest.Orchestrator, store StoreDeleter, transformer *querytransform.Transformer, r *retriever.Retriever, rr *reranker.Reranker, embeddingModel string) *Server {
	return &Server{
		orchestrator:   orchestrator,
		store:          store,
		transformer:    transformer,
		retriever:      r,
		reranker:       rr,
		embeddingModel: embeddingModel,
	}
}

// WithArchiver attaches the optional archival dependency so document
// deletion also removes archived raw content.
func (s *Server) WithArchiver(a ArchiveDeleter) *Server {
	s.archiver = a
	return s
}

// Routes returns the configured mux for the ingest/retrieve HTTP surface.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/documents", s.handleIngest)
	mux.HandleFunc("DELETE /v1/documents/{id}", s.handleDelete)
	mux.HandleFunc("POST /v1/query", s.handleQuery)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorResponse struct {
	Success bool   `json:"success"`
	Kind    string `json:"error_kind"`
	Message string `json:"message,omitempty"`
}

// writeError maps a domain error kind to an HTTP status code and emits
// a success:false body. The message is always included: the service
// has no production/development mode switch, and the error kinds
// themselves carry no sensitive internal detail.
func writeError(w http.ResponseWriter, err error) {
	kind, ok := domain.KindOf(err)
	if !ok {
		logger.GetLogger().Sugar().Errorw("unclassified internal error", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Success: false, Kind: "internal", Message: err.Error()})
		return
	}

	status := http.StatusInternalServerError
	switch kind {
	case domain.KindValidation:
		status = http.StatusBadRequest
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindPersistence:
		status = http.StatusInternalServerError
	case domain.KindRemoteService:
		status = http.StatusBadGateway
	case domain.KindDimensionMismatch:
		status = http.StatusInternalServerError
	case domain.KindConfig:
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, errorResponse{Success: false, Kind: string(kind), Message: err.Error()})
}
