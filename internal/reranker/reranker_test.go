package reranker

import (
	"context"
	"errors"
	"testing"

	"github.com/ragforge/ragindex/internal/clients/chat"
	"github.com/ragforge/ragindex/internal/clients/rerank"
	"github.com/ragforge/ragindex/internal/retriever"
)

type stubChat struct {
	response string
	err      error
	calls    int
}

func (s *stubChat) CreateChatCompletion(ctx context.Context, req chat.Request) (*chat.Response, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &chat.Response{Choices: []chat.Choice{{Message: chat.Message{Content: s.response}}}}, nil
}

func candidatesWithSimilarity(n int) []retriever.Candidate {
	out := make([]retriever.Candidate, n)
	for i := range out {
		out[i] = retriever.Candidate{DocumentID: string(rune('a' + i)), Similarity: 0.5}
	}
	return out
}

func TestRerank_FusesScoresAndTruncates(t *testing.T) {
	// 9 candidates, scores [9,9,0,9,0,0,9,0,0], top_k=3.
	c := &stubChat{response: `[{"id":0,"score":9},{"id":1,"score":9},{"id":2,"score":0},{"id":3,"score":9},{"id":4,"score":0},{"id":5,"score":0},{"id":6,"score":9},{"id":7,"score":0},{"id":8,"score":0}]`}
	candidates := candidatesWithSimilarity(9)
	for i := range candidates {
		candidates[i].Similarity = 0.5
	}

	r := New(c, "test-model")
	got := r.Rerank(context.Background(), "query", candidates, 3)

	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	want := 0.3*0.5 + 0.7*(9.0/10)
	for _, c := range got {
		if abs(c.Similarity-want) > 1e-9 {
			t.Fatalf("expected fused similarity %.4f, got %.4f", want, c.Similarity)
		}
	}
}

func TestRerank_MissingIDDefaultsToScoreFive(t *testing.T) {
	c := &stubChat{response: `[{"id":1,"score":9}]`}
	candidates := candidatesWithSimilarity(2)
	candidates[0].Similarity = 0.4
	candidates[1].Similarity = 0.4

	r := New(c, "test-model")
	got := r.Rerank(context.Background(), "query", candidates, 2)

	wantMissing := 0.3*0.4 + 0.7*(5.0/10)
	found := false
	for _, cand := range got {
		if cand.DocumentID == "a" {
			found = true
			if abs(cand.Similarity-wantMissing) > 1e-9 {
				t.Fatalf("expected default-score fusion %.4f, got %.4f", wantMissing, cand.Similarity)
			}
		}
	}
	if !found {
		t.Fatal("expected candidate with missing id to still appear")
	}
}

func TestRerank_TransportFailureDegradesToVectorOrder(t *testing.T) {
	c := &stubChat{err: errors.New("chat endpoint 500")}
	candidates := candidatesWithSimilarity(5)
	r := New(c, "test-model")

	got := r.Rerank(context.Background(), "query", candidates, 3)
	if len(got) != 3 {
		t.Fatalf("expected top_k=3 results on fallback, got %d", len(got))
	}
	for i, cand := range got {
		if cand.DocumentID != candidates[i].DocumentID {
			t.Fatalf("expected vector-only order preserved, got %+v", got)
		}
	}
}

func TestRerank_MalformedJSONDegradesToVectorOrder(t *testing.T) {
	c := &stubChat{response: "not an array"}
	candidates := candidatesWithSimilarity(4)
	r := New(c, "test-model")

	got := r.Rerank(context.Background(), "query", candidates, 4)
	if len(got) != 4 {
		t.Fatalf("expected all 4 results on fallback, got %d", len(got))
	}
}

func TestRerank_EmptyCandidates(t *testing.T) {
	r := New(&stubChat{}, "test-model")
	got := r.Rerank(context.Background(), "query", nil, 3)
	if len(got) != 0 {
		t.Fatalf("expected no results for empty input, got %d", len(got))
	}
}

type stubCrossEncoder struct {
	results []rerank.Result
}

func (s *stubCrossEncoder) CreateRerank(ctx context.Context, req rerank.Request) (*rerank.Response, error) {
	return &rerank.Response{Results: s.results}, nil
}

func TestRerank_CrossEncoderPathSkipsChatCall(t *testing.T) {
	c := &stubChat{response: `[]`}

	candidates := candidatesWithSimilarity(2)
	candidates[0].Similarity = 0.6
	candidates[1].Similarity = 0.6

	ce := &stubCrossEncoder{results: []rerank.Result{
		{Index: 0, RelevanceScore: 0.9},
		{Index: 1, RelevanceScore: 0.1},
	}}

	r := New(c, "test-model").WithCrossEncoder(ce, true)
	got := r.Rerank(context.Background(), "query", candidates, 2)

	if got[0].DocumentID != "a" {
		t.Fatalf("expected cross-encoder's higher-scored candidate first, got %+v", got)
	}
	if c.calls != 0 {
		t.Fatalf("expected no chat call when the cross-encoder succeeds, got %d", c.calls)
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
