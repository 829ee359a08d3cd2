// Package redis provides the rueidis-backed cache client behind the
// retriever's optional search-result caching (component A5). Cache also
// offers embedding get/set methods, but the embedder does not call them.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/ragforge/ragindex/internal/config"
	"github.com/ragforge/ragindex/internal/domain"
)

// RedisClient is the interface the cache layer depends on.
type RedisClient interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest any) error
	Close()
}

// Client wraps a rueidis.Client using its low-level command-builder API.
type Client struct {
	client rueidis.Client
}

var _ RedisClient = (*Client)(nil)

// NewClientFromConfig dials Redis per cfg. It does not check
// cfg.Enabled(); callers must check before constructing a cache on top.
func NewClientFromConfig(cfg config.RedisConfig) (*Client, error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	})
	if err != nil {
		return nil, domain.Wrap(domain.KindRemoteService, "redis.NewClientFromConfig", err)
	}
	return &Client{client: client}, nil
}

func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	cmd := c.client.B().Set().Key(key).Value(value).Ex(ttl).Build()
	return c.client.Do(ctx, cmd).Error()
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	cmd := c.client.B().Get().Key(key).Build()
	resp := c.client.Do(ctx, cmd)
	if resp.Error() != nil {
		if rueidis.IsRedisNil(resp.Error()) {
			return "", nil
		}
		return "", resp.Error()
	}
	return resp.ToString()
}

func (c *Client) Delete(ctx context.Context, key string) error {
	cmd := c.client.B().Del().Key(key).Build()
	return c.client.Do(ctx, cmd).Error()
}

func (c *Client) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := marshalJSON(value)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, string(data), ttl)
}

func (c *Client) GetJSON(ctx context.Context, key string, dest any) error {
	value, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if value == "" {
		return nil
	}
	return unmarshalJSON([]byte(value), dest)
}

func (c *Client) Close() { c.client.Close() }
