// Package chat provides a client for the remote chat endpoint contract:
// POST {baseUrl}/chat/completions.
package chat

import (
	"context"
	"time"

	"github.com/ragforge/ragindex/internal/clients/base"
	"github.com/ragforge/ragindex/internal/config"
)

const (
	DefaultTimeout = 60 * time.Second
	ServiceName    = "chat"

	DefaultMaxTokens  = 4096
	DefaultTemperature = 0.7
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the OpenAI-compatible chat completion request body.
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the OpenAI-compatible chat completion response body.
type Response struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// ChatCompleter is the interface the rest of the service depends on.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req Request) (*Response, error)
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	httpClient *base.HTTPClient
	config     config.ServiceConfig
}

var _ ChatCompleter = (*Client)(nil)

func NewClient(cfg config.ServiceConfig) *Client {
	return &Client{
		httpClient: base.NewHTTPClientFromService(ServiceName, cfg, DefaultTimeout),
		config:     cfg,
	}
}

func (c *Client) CreateChatCompletion(ctx context.Context, req Request) (*Response, error) {
	if req.MaxTokens == 0 {
		req.MaxTokens = DefaultMaxTokens
	}
	if req.Temperature == 0 {
		req.Temperature = DefaultTemperature
	}
	var result Response
	if err := c.httpClient.Post(ctx, "/chat/completions", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Text returns the content of the first choice, or "" if the response
// carried none.
func (r *Response) Text() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}
