// Package base provides the shared resty-backed HTTP client used by every
// remote service client (chat, embedding, rerank).
package base

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ragforge/ragindex/internal/config"
	"github.com/ragforge/ragindex/internal/domain"
)

// Default timeout values for HTTP clients.
const (
	DefaultTimeout = 30 * time.Second
)

// HTTPClient provides a standardized HTTP client configuration. It
// encapsulates common patterns used across all remote service clients.
type HTTPClient struct {
	client  *resty.Client
	service string
}

// NewHTTPClient creates a new HTTP client with standard configuration:
// bearer auth, JSON content type, and bounded retry on transient
// failures.
func NewHTTPClient(service, baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Authorization", "Bearer "+apiKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second)

	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		return err != nil || r.StatusCode() >= 500
	})

	return &HTTPClient{client: client, service: service}
}

// NewHTTPClientFromService is a convenience constructor over
// config.ServiceConfig.
func NewHTTPClientFromService(service string, cfg config.ServiceConfig, timeout time.Duration) *HTTPClient {
	return NewHTTPClient(service, cfg.BaseURL, cfg.APIKey, timeout)
}

// Post performs a POST request, decoding the JSON response into result.
// Failures are wrapped as a domain.Error of kind RemoteService.
func (h *HTTPClient) Post(ctx context.Context, endpoint string, body, result any) error {
	resp, err := h.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(result).
		Post(endpoint)

	op := fmt.Sprintf("%s POST %s", h.service, endpoint)
	if err != nil {
		return domain.Wrap(domain.KindRemoteService, op, err)
	}
	if resp.StatusCode() >= 300 {
		return domain.Newf(domain.KindRemoteService, op, "HTTP %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// Get performs a GET request, decoding the JSON response into result.
func (h *HTTPClient) Get(ctx context.Context, endpoint string, params map[string]string, result any) error {
	req := h.client.R().SetContext(ctx).SetResult(result)
	for k, v := range params {
		req.SetQueryParam(k, v)
	}

	resp, err := req.Get(endpoint)
	op := fmt.Sprintf("%s GET %s", h.service, endpoint)
	if err != nil {
		return domain.Wrap(domain.KindRemoteService, op, err)
	}
	if resp.StatusCode() >= 300 {
		return domain.Newf(domain.KindRemoteService, op, "HTTP %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
