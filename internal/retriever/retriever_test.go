package retriever

import (
	"context"
	"testing"

	"github.com/ragforge/ragindex/internal/clients/embedding"
	"github.com/ragforge/ragindex/internal/embedder"
	"github.com/ragforge/ragindex/internal/store"
)

type stubEmbedClient struct{}

func (stubEmbedClient) CreateEmbedding(ctx context.Context, req embedding.Request) (*embedding.Response, error) {
	texts := req.Input.([]string)
	data := make([]embedding.Data, len(texts))
	for i := range texts {
		data[i] = embedding.Data{Embedding: []float64{1, 0, 0}, Index: i}
	}
	return &embedding.Response{Data: data}, nil
}

type stubVectorSearcher struct {
	lastLimit int
	rows      []store.CandidateRow
}

func (s *stubVectorSearcher) SearchChildEmbeddings(ctx context.Context, vector []float32, model, projectName string, threshold float64, limit int) ([]store.CandidateRow, error) {
	s.lastLimit = limit
	return s.rows, nil
}

func TestRetrieve_LimitsToThreeTimesTopKWhenReranking(t *testing.T) {
	search := &stubVectorSearcher{}
	r := New(search, embedder.New(stubEmbedClient{}, "test-model"))

	_, err := r.Retrieve(context.Background(), Request{EffectiveQuery: "q", TopK: 5, Rerank: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if search.lastLimit != 15 {
		t.Fatalf("expected limit 3*top_k=15, got %d", search.lastLimit)
	}
}

func TestRetrieve_LimitsToTopKWithoutRerank(t *testing.T) {
	search := &stubVectorSearcher{}
	r := New(search, embedder.New(stubEmbedClient{}, "test-model"))

	_, err := r.Retrieve(context.Background(), Request{EffectiveQuery: "q", TopK: 5, Rerank: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if search.lastLimit != 5 {
		t.Fatalf("expected limit top_k=5, got %d", search.lastLimit)
	}
}

func TestRetrieve_AppliesDefaults(t *testing.T) {
	search := &stubVectorSearcher{}
	r := New(search, embedder.New(stubEmbedClient{}, "test-model"))

	_, err := r.Retrieve(context.Background(), Request{EffectiveQuery: "q"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if search.lastLimit != DefaultTopK {
		t.Fatalf("expected default top_k=%d, got %d", DefaultTopK, search.lastLimit)
	}
}

func TestRetrieve_MapsCandidateRowsToCandidates(t *testing.T) {
	search := &stubVectorSearcher{rows: []store.CandidateRow{
		{DocumentID: "d1", DocumentTitle: "Doc", ProjectName: "P", DocumentType: "API_DOC",
			ParentChunkID: "p1", ParentContent: "parent text", ParentSummary: "summary",
			ChildChunkID: "c1", ChildContent: "child text", Similarity: 0.87},
	}}
	r := New(search, embedder.New(stubEmbedClient{}, "test-model"))

	got, err := r.Retrieve(context.Background(), Request{EffectiveQuery: "q", TopK: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	c := got[0]
	if c.DocumentID != "d1" || c.ParentChunkContent != "parent text" || c.ChildChunkContent != "child text" || c.Similarity != 0.87 {
		t.Fatalf("candidate mapping mismatch: %+v", c)
	}
}
