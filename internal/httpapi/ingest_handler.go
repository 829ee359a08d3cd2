package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ragforge/ragindex/internal/domain"
	"github.com/ragforge/ragindex/internal/ingest"
	"github.com/ragforge/ragindex/internal/logger"
)

// ingestRequest is the ingest request body.
type ingestRequest struct {
	Content     string         `json:"content" validate:"required"`
	Type        string         `json:"type" validate:"required"`
	ProjectName string         `json:"project_name" validate:"required"`
	Title       string         `json:"title,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type strategyResponse struct {
	ParentChunkSize int    `json:"parent_chunk_size"`
	ChildChunkSize  int    `json:"child_chunk_size"`
	OverlapPercent  int    `json:"overlap_percent"`
	Name            string `json:"name,omitempty"`
}

type ingestResponse struct {
	DocumentID          string             `json:"document_id"`
	Title               string             `json:"title,omitempty"`
	Type                string             `json:"type"`
	ProjectName         string             `json:"project_name"`
	ParentChunksCreated int                `json:"parent_chunks_created"`
	ChildChunksCreated  int                `json:"child_chunks_created"`
	EmbeddingsCreated   int                `json:"embeddings_created"`
	Strategies          []strategyResponse `json:"strategies"`
}

// documentTypeLookup maps the normalized (upper-case, dash-to-underscore)
// request value to the canonical DocumentType.
var documentTypeLookup = map[string]domain.DocumentType{
	"API":           domain.DocumentTypeAPIDoc,
	"API_DOC":       domain.DocumentTypeAPIDoc,
	"TECH":          domain.DocumentTypeTechDoc,
	"TECH_DOC":      domain.DocumentTypeTechDoc,
	"CODE":          domain.DocumentTypeCodeLogic,
	"CODE_LOGIC":    domain.DocumentTypeCodeLogic,
	"CODE_LOGIC_DOC": domain.DocumentTypeCodeLogic,
	"GENERAL":       domain.DocumentTypeGeneralDoc,
	"GENERAL_DOC":   domain.DocumentTypeGeneralDoc,
}

// normalizeDocType upper-cases the input, maps dashes to underscores,
// and looks it up; unknown values default to GENERAL_DOC.
func normalizeDocType(raw string) domain.DocumentType {
	key := strings.ToUpper(strings.ReplaceAll(raw, "-", "_"))
	if docType, ok := documentTypeLookup[key]; ok {
		return docType
	}
	return domain.DocumentTypeGeneralDoc
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.Wrap(domain.KindValidation, "httpapi.handleIngest", err))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, domain.Wrap(domain.KindValidation, "httpapi.handleIngest", err))
		return
	}

	docType := normalizeDocType(req.Type)

	result, err := s.orchestrator.Ingest(r.Context(), ingest.Request{
		Content:     req.Content,
		DocType:     docType,
		ProjectName: req.ProjectName,
		Title:       req.Title,
		Metadata:    req.Metadata,
	}, nil)
	if err != nil {
		writeError(w, err)
		return
	}

	strategies := make([]strategyResponse, len(result.Strategies))
	for i, st := range result.Strategies {
		strategies[i] = strategyResponse{
			ParentChunkSize: st.ParentSize,
			ChildChunkSize:  st.ChildSize,
			OverlapPercent:  st.OverlapPercent,
			Name:            st.Name,
		}
	}

	writeJSON(w, http.StatusOK, ingestResponse{
		DocumentID:          result.DocumentID,
		Title:               result.Title,
		Type:                string(docType),
		ProjectName:         req.ProjectName,
		ParentChunksCreated: result.ParentChunksCreated,
		ChildChunksCreated:  result.ChildChunksCreated,
		EmbeddingsCreated:   result.EmbeddingsCreated,
		Strategies:          strategies,
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, domain.Newf(domain.KindValidation, "httpapi.handleDelete", "missing document id"))
		return
	}

	if err := s.store.DeleteDocument(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	if s.archiver != nil {
		if err := s.archiver.DeleteDocument(r.Context(), id); err != nil {
			logger.GetLogger().Sugar().Warnw("archive delete failed, relational delete already committed",
				"document_id", id, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
