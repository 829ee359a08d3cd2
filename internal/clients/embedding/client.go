// Package embedding provides a client for the remote embeddings
// endpoint contract: POST {baseUrl}/embeddings.
package embedding

import (
	"context"
	"time"

	"github.com/ragforge/ragindex/internal/clients/base"
	"github.com/ragforge/ragindex/internal/config"
)

const (
	DefaultTimeout = 30 * time.Second
	ServiceName    = "embedding"
)

// Embedder is the interface the rest of the service depends on, so test
// doubles can stand in for a remote call.
type Embedder interface {
	CreateEmbedding(ctx context.Context, req Request) (*Response, error)
}

// Client talks to an OpenAI-compatible embeddings endpoint.
type Client struct {
	httpClient *base.HTTPClient
	config     config.ServiceConfig
}

var _ Embedder = (*Client)(nil)

func NewClient(cfg config.ServiceConfig) *Client {
	return &Client{
		httpClient: base.NewHTTPClientFromService(ServiceName, cfg, DefaultTimeout),
		config:     cfg,
	}
}

// Request represents an embedding generation request. Input may be a
// single string or a []string for batched calls.
type Request struct {
	Model          string `json:"model"`
	Input          any    `json:"input"`
	EncodingFormat string `json:"encoding_format,omitempty"`
	Dimensions     int    `json:"dimensions,omitempty"`
}

// Data represents a single embedding result; Index is what the
// embedder package uses to restore caller order.
type Data struct {
	Object    string    `json:"object"`
	Embedding []float64 `json:"embedding"`
	Index     int       `json:"index"`
}

type Usage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

type Response struct {
	Object string `json:"object"`
	Model  string `json:"model"`
	Data   []Data `json:"data"`
	Usage  Usage  `json:"usage"`
}

func (c *Client) CreateEmbedding(ctx context.Context, req Request) (*Response, error) {
	var result Response
	if err := c.httpClient.Post(ctx, "/embeddings", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Supported embedding models organized by provider.
const (
	ModelBGELargeZhV15 = "BAAI/bge-large-zh-v1.5"
	ModelBGELargeEnV15 = "BAAI/bge-large-en-v1.5"
	ModelBGEM3         = "BAAI/bge-m3"
	ModelProBGEM3      = "Pro/BAAI/bge-m3"

	ModelBCEEmbeddingBaseV1 = "netease-youdao/bce-embedding-base_v1"

	ModelQwen3Embedding8B  = "Qwen/Qwen3-Embedding-8B"
	ModelQwen3Embedding4B  = "Qwen/Qwen3-Embedding-4B"
	ModelQwen3Embedding06B = "Qwen/Qwen3-Embedding-0.6B"
)

const (
	MaxTokensBGELarge = 512
	MaxTokensBGEM3    = 8192
	MaxTokensQwen3    = 32768
)

// GetMaxTokens returns the maximum token limit for the specified model.
func GetMaxTokens(model string) int {
	switch model {
	case ModelBGELargeZhV15, ModelBGELargeEnV15, ModelBCEEmbeddingBaseV1:
		return MaxTokensBGELarge
	case ModelBGEM3, ModelProBGEM3:
		return MaxTokensBGEM3
	case ModelQwen3Embedding8B, ModelQwen3Embedding4B, ModelQwen3Embedding06B:
		return MaxTokensQwen3
	default:
		return MaxTokensBGELarge
	}
}

// GetDefaultDimensions returns the default embedding dimension for the
// model, used at startup as the store's vector dimension when
// config.EmbeddingDimensions is zero.
func GetDefaultDimensions(model string) int {
	switch model {
	case ModelQwen3Embedding8B:
		return 4096
	case ModelQwen3Embedding4B:
		return 2048
	case ModelQwen3Embedding06B:
		return 1024
	case ModelBGELargeZhV15, ModelBGELargeEnV15:
		return 1024
	case ModelBCEEmbeddingBaseV1:
		return 768
	case ModelBGEM3, ModelProBGEM3:
		return 1024
	default:
		return 1536
	}
}
