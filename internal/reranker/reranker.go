// Package reranker implements the fused re-ranking step (component
// C7): an LLM relevance pass fused with vector similarity, with an
// optional dedicated cross-encoder pre-filter (A7) in place of the
// chat call, and a vector-only fallback on any failure.
package reranker

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/ragforge/ragindex/internal/clients/chat"
	"github.com/ragforge/ragindex/internal/clients/rerank"
	"github.com/ragforge/ragindex/internal/promptlib"
	"github.com/ragforge/ragindex/internal/retriever"
	"github.com/ragforge/ragindex/internal/utils"
)

const (
	summaryTruncateLen = 500
	listContentTruncateLen = 200
	fallbackScore = 5.0

	vectorWeight = 0.3
	scoreWeight  = 0.7
)

// Reranker fuses an LLM (or cross-encoder) relevance judgment with
// vector similarity and re-sorts candidates.
type Reranker struct {
	chat          chat.ChatCompleter
	chatModel     string
	crossEncoder  rerank.Reranker
	crossEncoderOn bool
}

func New(c chat.ChatCompleter, chatModel string) *Reranker {
	return &Reranker{chat: c, chatModel: chatModel}
}

// WithCrossEncoder attaches the optional A7 pre-filter client. Pass a
// nil client with enabled=false to leave the chat-based path as the
// only scoring mechanism.
func (r *Reranker) WithCrossEncoder(client rerank.Reranker, enabled bool) *Reranker {
	r.crossEncoder = client
	r.crossEncoderOn = enabled
	return r
}

// Rerank scores candidates against the original query and returns the
// top K by fused score. On any transport or parse failure it degrades
// to the incoming vector-similarity order truncated to K.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []retriever.Candidate, topK int) []retriever.Candidate {
	if len(candidates) == 0 {
		return candidates
	}

	scores, ok := r.scoreWithCrossEncoder(ctx, query, candidates)
	if !ok {
		scores, ok = r.scoreWithChat(ctx, query, candidates)
	}
	if !ok {
		return truncate(candidates, topK)
	}

	fused := make([]retriever.Candidate, len(candidates))
	for i, c := range candidates {
		score, has := scores[i]
		if !has {
			score = fallbackScore
		}
		c.Similarity = vectorWeight*c.Similarity + scoreWeight*(score/10)
		fused[i] = c
	}

	sort.SliceStable(fused, func(i, j int) bool {
		return fused[i].Similarity > fused[j].Similarity
	})

	return truncate(fused, topK)
}

// scoreWithCrossEncoder uses the dedicated reranking endpoint (A7) when
// configured, returning scores on the 0-10 scale shared by the fusion
// formula (the endpoint's 0-1 relevance_score is rescaled by 10).
func (r *Reranker) scoreWithCrossEncoder(ctx context.Context, query string, candidates []retriever.Candidate) (map[int]float64, bool) {
	if !r.crossEncoderOn || r.crossEncoder == nil {
		return nil, false
	}

	docs := make([]string, len(candidates))
	for i, c := range candidates {
		docs[i] = c.ChildChunkContent
	}

	resp, err := r.crossEncoder.CreateRerank(ctx, rerank.Request{Query: query, Documents: docs})
	if err != nil {
		return nil, false
	}

	scores := make(map[int]float64, len(resp.Results))
	for _, res := range resp.Results {
		if res.Index < 0 || res.Index >= len(candidates) {
			continue
		}
		scores[res.Index] = res.RelevanceScore * 10
	}
	return scores, true
}

type rerankEntry struct {
	ID    int     `json:"id"`
	Score float64 `json:"score"`
}

var jsonArrayPattern = regexp.MustCompile(`\[[\s\S]*\]`)

// scoreWithChat builds the candidate listing prompt and asks the chat
// model to score each 0-10.
func (r *Reranker) scoreWithChat(ctx context.Context, query string, candidates []retriever.Candidate) (map[int]float64, bool) {
	prompt := promptlib.Rerank()
	resp, err := r.chat.CreateChatCompletion(ctx, chat.Request{
		Model: r.chatModel,
		Messages: []chat.Message{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.Render(map[string]string{
				"query":      query,
				"candidates": buildCandidateListing(candidates),
			})},
		},
	})
	if err != nil {
		return nil, false
	}

	raw := jsonArrayPattern.FindString(resp.Text())
	if raw == "" {
		return nil, false
	}
	var entries []rerankEntry
	if err := sonic.UnmarshalString(raw, &entries); err != nil {
		return nil, false
	}

	scores := make(map[int]float64, len(entries))
	for _, e := range entries {
		scores[e.ID] = e.Score
	}
	return scores, true
}

func buildCandidateListing(candidates []retriever.Candidate) string {
	var b strings.Builder
	for i, c := range candidates {
		summary := utils.CleanAndFormatContent(c.ParentChunkSummary, summaryTruncateLen)
		content := utils.CleanAndFormatContent(c.ChildChunkContent, listContentTruncateLen)
		fmt.Fprintf(&b, "[doc %d] %s %s\n", i, summary, content)
	}
	return b.String()
}

func truncate(candidates []retriever.Candidate, topK int) []retriever.Candidate {
	if topK <= 0 || topK >= len(candidates) {
		return candidates
	}
	return candidates[:topK]
}
