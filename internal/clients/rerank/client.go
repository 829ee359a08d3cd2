// Package rerank provides a client for an optional dedicated
// cross-encoder reranking endpoint: a faster
// substitute for the chat-based scoring step in the re-ranker.
package rerank

import (
	"context"
	"time"

	"github.com/ragforge/ragindex/internal/clients/base"
	"github.com/ragforge/ragindex/internal/config"
)

const (
	DefaultTimeout = 15 * time.Second
	ServiceName    = "rerank"
)

// Reranker is the interface the re-ranker component depends on.
type Reranker interface {
	CreateRerank(ctx context.Context, req Request) (*Response, error)
}

// Client talks to a dedicated cross-encoder reranking endpoint.
type Client struct {
	httpClient *base.HTTPClient
	config     config.RerankerConfig
}

var _ Reranker = (*Client)(nil)

// NewClient always builds a client, even from an empty config; the
// caller must check cfg.Enabled() first.
func NewClient(cfg config.RerankerConfig) *Client {
	return &Client{
		httpClient: base.NewHTTPClient(ServiceName, cfg.BaseURL, cfg.APIKey, DefaultTimeout),
		config:     cfg,
	}
}

// Request represents a document reranking request.
type Request struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n,omitempty"`
}

// Result represents a single reranking result; RelevanceScore is on a
// 0-1 scale, unlike the chat-based 0-10 scale.
type Result struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

type Response struct {
	ID      string   `json:"id"`
	Results []Result `json:"results"`
}

func (c *Client) CreateRerank(ctx context.Context, req Request) (*Response, error) {
	if req.Model == "" {
		req.Model = c.config.Model
	}
	var result Response
	if err := c.httpClient.Post(ctx, "/rerank", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Supported reranking models organized by provider.
const (
	ModelQwen3Reranker8B  = "Qwen/Qwen3-Reranker-8B"
	ModelQwen3Reranker4B  = "Qwen/Qwen3-Reranker-4B"
	ModelQwen3Reranker06B = "Qwen/Qwen3-Reranker-0.6B"

	ModelBGERerankerV2M3    = "BAAI/bge-reranker-v2-m3"
	ModelProBGERerankerV2M3 = "Pro/BAAI/bge-reranker-v2-m3"

	ModelBCERerankerBaseV1 = "netease-youdao/bce-reranker-base_v1"
)
