// Package embedder produces dense vectors for text against a remote
// embedding endpoint (component C3): batched, ordered, and with a
// contextual composition used at ingest time.
package embedder

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/ragforge/ragindex/internal/clients/embedding"
	"github.com/ragforge/ragindex/internal/domain"
)

// DefaultBatchSize bounds how many inputs go into a single remote call.
const DefaultBatchSize = 100

// Embedder produces vectors for text, batching and reordering around a
// remote embedding client.
type Embedder struct {
	client embedding.Embedder
	model  string
	batch  int
}

func New(client embedding.Embedder, model string) *Embedder {
	return &Embedder{client: client, model: model, batch: DefaultBatchSize}
}

// Embed produces a single vector for text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch produces a vector per input, preserving input order. Blank
// or whitespace-only inputs are skipped remotely and receive a
// zero-length placeholder vector in the result so downstream code knows
// to omit that row. Remote failures propagate wrapped as
// domain.KindRemoteService ("EmbeddingFailure").
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))

	nonBlankIdx := make([]int, 0, len(texts))
	nonBlankText := make([]string, 0, len(texts))
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		nonBlankIdx = append(nonBlankIdx, i)
		nonBlankText = append(nonBlankText, t)
	}

	for start := 0; start < len(nonBlankText); start += e.batch {
		end := start + e.batch
		if end > len(nonBlankText) {
			end = len(nonBlankText)
		}
		batchTexts := nonBlankText[start:end]
		batchIdx := nonBlankIdx[start:end]

		resp, err := e.client.CreateEmbedding(ctx, embedding.Request{
			Model:          e.model,
			Input:          batchTexts,
			EncodingFormat: "float",
		})
		if err != nil {
			return nil, domain.Wrap(domain.KindRemoteService, "embedder.EmbedBatch", err)
		}

		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= len(batchIdx) {
				continue
			}
			results[batchIdx[d.Index]] = toFloat32(d.Embedding)
		}
	}

	return results, nil
}

// ContextFields composes the enriched input string for embed_contextual:
// [title] … \n[type] … \n[summary] … \n[content] …, dropping any field
// that is empty.
type ContextFields struct {
	Title   string
	Type    string
	Summary string
	Content string
}

// EmbedContextual embeds the composed contextual string rather than raw
// content, biasing the child-span vector with its parent's context.
func (e *Embedder) EmbedContextual(ctx context.Context, fields ContextFields) ([]float32, error) {
	return e.Embed(ctx, composeContextual(fields))
}

// EmbedContextualBatch is the batched counterpart of EmbedContextual,
// used by the ingestion orchestrator to embed all of a document's
// children in grouped remote calls.
func (e *Embedder) EmbedContextualBatch(ctx context.Context, fields []ContextFields) ([][]float32, error) {
	texts := make([]string, len(fields))
	for i, f := range fields {
		texts[i] = composeContextual(f)
	}
	return e.EmbedBatch(ctx, texts)
}

func composeContextual(f ContextFields) string {
	var b strings.Builder
	if f.Title != "" {
		fmt.Fprintf(&b, "[title] %s\n", f.Title)
	}
	if f.Type != "" {
		fmt.Fprintf(&b, "[type] %s\n", f.Type)
	}
	if f.Summary != "" {
		fmt.Fprintf(&b, "[summary] %s\n", f.Summary)
	}
	if f.Content != "" {
		fmt.Fprintf(&b, "[content] %s", f.Content)
	}
	return b.String()
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}

// CosineSimilarity computes cosine similarity between two vectors of
// equal dimension. Fails with domain.KindDimensionMismatch otherwise.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, domain.Newf(domain.KindDimensionMismatch, "embedder.CosineSimilarity", "dimension mismatch: %d vs %d", len(a), len(b))
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
