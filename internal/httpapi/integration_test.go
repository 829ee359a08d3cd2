package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/ragforge/ragindex/internal/clients/chat"
	"github.com/ragforge/ragindex/internal/clients/embedding"
	"github.com/ragforge/ragindex/internal/config"
	"github.com/ragforge/ragindex/internal/domain"
	"github.com/ragforge/ragindex/internal/embedder"
	"github.com/ragforge/ragindex/internal/ingest"
	"github.com/ragforge/ragindex/internal/querytransform"
	"github.com/ragforge/ragindex/internal/reranker"
	"github.com/ragforge/ragindex/internal/retriever"
	"github.com/ragforge/ragindex/internal/store"
	"github.com/ragforge/ragindex/internal/summarizer"
)

// fakeStore is a minimal in-memory implementation of the Writer,
// VectorSearcher, and StoreDeleter interfaces the HTTP layer depends on.
type fakeStore struct {
	nextID    int
	documents map[string]*domain.Document
	rows      []store.CandidateRow
}

func newFakeStore() *fakeStore {
	return &fakeStore{documents: map[string]*domain.Document{}}
}

func (s *fakeStore) genID() string {
	s.nextID++
	return "id-" + strconv.Itoa(s.nextID)
}

func (s *fakeStore) InsertDocument(ctx context.Context, doc *domain.Document) error {
	doc.ID = s.genID()
	s.documents[doc.ID] = doc
	return nil
}

func (s *fakeStore) EnsureStrategy(ctx context.Context, name string, parentSize, childSize, overlapPercent int) (*domain.ChunkStrategy, error) {
	return &domain.ChunkStrategy{ID: s.genID(), Name: name, ParentChunkSize: parentSize, ChildChunkSize: childSize, OverlapPercent: overlapPercent}, nil
}

func (s *fakeStore) InsertParentChunk(ctx context.Context, p *domain.ParentChunk) error {
	p.ID = s.genID()
	return nil
}

func (s *fakeStore) InsertChildChunk(ctx context.Context, c *domain.ChildChunk) error {
	c.ID = s.genID()
	return nil
}

func (s *fakeStore) InsertEmbedding(ctx context.Context, emb *domain.ChunkEmbedding, embeddingType string) error {
	return nil
}

func (s *fakeStore) DeleteDocument(ctx context.Context, documentID string) error {
	if _, ok := s.documents[documentID]; !ok {
		return domain.Newf(domain.KindNotFound, "fakeStore.DeleteDocument", "document %q not found", documentID)
	}
	delete(s.documents, documentID)
	return nil
}

func (s *fakeStore) SearchChildEmbeddings(ctx context.Context, vector []float32, model, projectName string, threshold float64, limit int) ([]store.CandidateRow, error) {
	return s.rows, nil
}

type fakeChat struct{ response string }

func (f fakeChat) CreateChatCompletion(ctx context.Context, req chat.Request) (*chat.Response, error) {
	return &chat.Response{Choices: []chat.Choice{{Message: chat.Message{Content: f.response}}}}, nil
}

type fakeEmbedClient struct{}

func (fakeEmbedClient) CreateEmbedding(ctx context.Context, req embedding.Request) (*embedding.Response, error) {
	texts := req.Input.([]string)
	data := make([]embedding.Data, len(texts))
	for i := range texts {
		data[i] = embedding.Data{Embedding: []float64{1, 0, 0}, Index: i}
	}
	return &embedding.Response{Data: data}, nil
}

func newTestServer(fs *fakeStore) *Server {
	c := fakeChat{response: `{"strategy":"direct","reason":"test","confidence":1}`}
	emb := embedder.New(fakeEmbedClient{}, "test-embed-model")
	sum := summarizer.New(c, "test-chat-model")
	orch := ingest.New(fs, sum, emb, "test-embed-model", []config.ChunkStrategyConfig{
		{Name: "default", ParentSize: 2000, ChildSize: 800, OverlapPercent: 25},
	})
	tr := querytransform.New(c, "test-chat-model")
	retr := retriever.New(fs, emb)
	rr := reranker.New(c, "test-chat-model")
	return New(orch, fs, tr, retr, rr, "test-embed-model")
}

func TestHandleIngest_ReturnsCreatedCounts(t *testing.T) {
	fs := newFakeStore()
	srv := newTestServer(fs)

	body, _ := json.Marshal(map[string]any{
		"content":      "The getUserById API fetches a user by primary key.",
		"type":         "api-doc",
		"project_name": "P",
	})
	req := httptest.NewRequest("POST", "/v1/documents", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp ingestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ParentChunksCreated != 1 || resp.ChildChunksCreated != 1 || resp.EmbeddingsCreated != 1 {
		t.Fatalf("expected 1/1/1, got %+v", resp)
	}
	if resp.Type != "API_DOC" {
		t.Fatalf("expected normalized type API_DOC, got %s", resp.Type)
	}
}

func TestHandleIngest_MissingRequiredFieldIsValidationError(t *testing.T) {
	fs := newFakeStore()
	srv := newTestServer(fs)

	body, _ := json.Marshal(map[string]any{"type": "api_doc"})
	req := httptest.NewRequest("POST", "/v1/documents", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != 400 {
		t.Fatalf("expected 400 for missing content/project_name, got %d", rec.Code)
	}
}

func TestHandleDelete_UnknownDocumentIsNotFound(t *testing.T) {
	fs := newFakeStore()
	srv := newTestServer(fs)

	req := httptest.NewRequest("DELETE", "/v1/documents/missing-id", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != 404 {
		t.Fatalf("expected 404 for unknown document, got %d", rec.Code)
	}
}

func TestHandleQuery_AppliesDefaultsAndReturnsResults(t *testing.T) {
	fs := newFakeStore()
	fs.rows = []store.CandidateRow{
		{DocumentID: "d1", DocumentTitle: "Doc", ProjectName: "P", DocumentType: "API_DOC",
			ParentContent: "parent", ParentSummary: "summary", ChildContent: "child", Similarity: 0.9},
	}
	srv := newTestServer(fs)

	body, _ := json.Marshal(map[string]any{"query": "getUserById", "project_name": "P"})
	req := httptest.NewRequest("POST", "/v1/query", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp queryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.TotalResults != 1 || len(resp.Results) != 1 {
		t.Fatalf("expected 1 result, got %+v", resp)
	}
	if resp.Results[0].DocumentID != "d1" {
		t.Fatalf("unexpected result: %+v", resp.Results[0])
	}
}
