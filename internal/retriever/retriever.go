// Package retriever implements the nearest-neighbor search step
// (component C6): embedding the effective query, querying the vector
// store, filtering, and handing candidates off to the re-ranker.
package retriever

import (
	"context"

	"github.com/ragforge/ragindex/internal/embedder"
	"github.com/ragforge/ragindex/internal/redis"
	"github.com/ragforge/ragindex/internal/store"
)

const (
	DefaultTopK               = 10
	DefaultSimilarityThreshold = 0.3
)

// Candidate is one retrieval hit, joined across document, parent
// chunk, and child chunk for a result row to carry.
type Candidate struct {
	DocumentID         string
	DocumentTitle      string
	ProjectName        string
	DocumentType       string
	ParentChunkContent string
	ParentChunkSummary string
	ChildChunkContent  string
	Similarity         float64
}

// VectorSearcher is the store dependency the retriever needs.
type VectorSearcher interface {
	SearchChildEmbeddings(ctx context.Context, vector []float32, model, projectName string, threshold float64, limit int) ([]store.CandidateRow, error)
}

// Request is the input to Retrieve. SimilarityThreshold is a pointer
// so an absent threshold (apply the default) is distinguishable from
// an explicit 0 (no similarity floor, return everything within top_k).
type Request struct {
	EffectiveQuery      string
	ProjectName         string
	TopK                int
	SimilarityThreshold *float64
	Rerank              bool
	EmbeddingModel      string
}

// Retriever wraps a vector store search behind project filtering,
// default thresholds, and the rerank-candidate oversampling rule.
type Retriever struct {
	store    VectorSearcher
	embedder *embedder.Embedder
	cache    *redis.Cache
}

func New(s VectorSearcher, e *embedder.Embedder) *Retriever {
	return &Retriever{store: s, embedder: e}
}

// WithCache attaches the optional search-result cache (A5). Passing nil
// disables caching.
func (r *Retriever) WithCache(cache *redis.Cache) *Retriever {
	r.cache = cache
	return r
}

// Retrieve embeds the effective query, runs the nearest-neighbor
// search, and returns candidates ordered by distance ascending, capped
// at 3·top_k when rerank is requested (so C7 has a wider pool to score)
// or top_k otherwise.
func (r *Retriever) Retrieve(ctx context.Context, req Request) ([]Candidate, error) {
	topK := req.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	threshold := DefaultSimilarityThreshold
	if req.SimilarityThreshold != nil {
		threshold = *req.SimilarityThreshold
	}
	limit := topK
	if req.Rerank {
		limit = 3 * topK
	}

	if r.cache != nil {
		var cached []Candidate
		hit, err := r.cache.GetSearchResults(ctx, req.EmbeddingModel, req.EffectiveQuery, req.ProjectName, limit, threshold, &cached)
		if err == nil && hit {
			return cached, nil
		}
	}

	vector, err := r.embedder.Embed(ctx, req.EffectiveQuery)
	if err != nil {
		return nil, err
	}

	rows, err := r.store.SearchChildEmbeddings(ctx, vector, req.EmbeddingModel, req.ProjectName, threshold, limit)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, len(rows))
	for i, row := range rows {
		candidates[i] = Candidate{
			DocumentID:         row.DocumentID,
			DocumentTitle:      row.DocumentTitle,
			ProjectName:        row.ProjectName,
			DocumentType:       row.DocumentType,
			ParentChunkContent: row.ParentContent,
			ParentChunkSummary: row.ParentSummary,
			ChildChunkContent:  row.ChildContent,
			Similarity:         row.Similarity,
		}
	}

	if r.cache != nil {
		_ = r.cache.CacheSearchResults(ctx, req.EmbeddingModel, req.EffectiveQuery, req.ProjectName, limit, threshold, candidates)
	}

	return candidates, nil
}
