package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/ragforge/ragindex/internal/domain"
	"github.com/ragforge/ragindex/internal/querytransform"
	"github.com/ragforge/ragindex/internal/retriever"
)

const defaultTopK = 10

// queryRequest is the retrieve request body. Pointer fields
// distinguish "absent" (apply default) from an explicit false/zero.
type queryRequest struct {
	Query               string   `json:"query" validate:"required"`
	ProjectName         string   `json:"project_name,omitempty"`
	TopK                *int     `json:"top_k,omitempty"`
	SimilarityThreshold *float64 `json:"similarity_threshold,omitempty"`
	UseSmartQuery       *bool    `json:"use_smart_query,omitempty"`
	UseQueryExpansion   *bool    `json:"use_query_expansion,omitempty"`
	UseHyDE             *bool    `json:"use_hyde,omitempty"`
	UseRerank           *bool    `json:"use_rerank,omitempty"`
}

type resultRow struct {
	DocumentID         string  `json:"document_id"`
	DocumentTitle      string  `json:"document_title,omitempty"`
	ProjectName        string  `json:"project_name"`
	DocumentType       string  `json:"document_type"`
	ParentChunkContent string  `json:"parent_chunk_content"`
	ParentChunkSummary string  `json:"parent_chunk_summary"`
	ChildChunkContent  string  `json:"child_chunk_content"`
	Similarity         float64 `json:"similarity"`
}

type queryResponse struct {
	Query          string      `json:"query"`
	ProjectName    string      `json:"project_name,omitempty"`
	TotalResults   int         `json:"total_results"`
	Results        []resultRow `json:"results"`
	QueryStrategy  string      `json:"query_strategy,omitempty"`
	StrategyReason string      `json:"strategy_reason,omitempty"`
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.Wrap(domain.KindValidation, "httpapi.handleQuery", err))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, domain.Wrap(domain.KindValidation, "httpapi.handleQuery", err))
		return
	}

	topK := defaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}
	useSmartQuery := boolOr(req.UseSmartQuery, true)
	useRerank := boolOr(req.UseRerank, true)
	useExpansion := boolOr(req.UseQueryExpansion, false)
	useHyDE := boolOr(req.UseHyDE, false)

	var transformed querytransform.Result
	switch {
	case useSmartQuery:
		transformed = s.transformer.Transform(r.Context(), req.Query)
	case useExpansion || useHyDE:
		transformed = s.transformer.TransformManual(r.Context(), req.Query, useExpansion, useHyDE)
	default:
		transformed = querytransform.Result{EffectiveQuery: req.Query, Strategy: domain.StrategyDirect}
	}

	candidates, err := s.retriever.Retrieve(r.Context(), retriever.Request{
		EffectiveQuery:      transformed.EffectiveQuery,
		ProjectName:         req.ProjectName,
		TopK:                topK,
		SimilarityThreshold: req.SimilarityThreshold,
		Rerank:              useRerank,
		EmbeddingModel:      s.embeddingModel,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if useRerank {
		candidates = s.reranker.Rerank(r.Context(), req.Query, candidates, topK)
	} else if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	results := make([]resultRow, len(candidates))
	for i, c := range candidates {
		results[i] = resultRow{
			DocumentID:         c.DocumentID,
			DocumentTitle:      c.DocumentTitle,
			ProjectName:        c.ProjectName,
			DocumentType:       c.DocumentType,
			ParentChunkContent: c.ParentChunkContent,
			ParentChunkSummary: c.ParentChunkSummary,
			ChildChunkContent:  c.ChildChunkContent,
			Similarity:         c.Similarity,
		}
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Query:          req.Query,
		ProjectName:    req.ProjectName,
		TotalResults:   len(results),
		Results:        results,
		QueryStrategy:  string(transformed.Strategy),
		StrategyReason: transformed.Reason,
	})
}
