package redis

import (
	"context"
	"fmt"
	"time"
)

// Cache is the optional, out-of-process cache for embedding results
// keyed by (model, text), and search results keyed by the full
// retrieval request shape. A cache miss always falls through to a
// live call; a hit is never observably different from a miss to the
// caller.
type Cache struct {
	client RedisClient
}

func NewCache(client RedisClient) *Cache {
	return &Cache{client: client}
}

const (
	EmbeddingCacheTTL    = 24 * time.Hour
	SearchResultCacheTTL = 30 * time.Minute
)

func (c *Cache) CacheEmbedding(ctx context.Context, model, text string, embedding []float32) error {
	key := fmt.Sprintf("embedding:%s:%s", model, hashText(text))
	return c.client.SetJSON(ctx, key, embedding, EmbeddingCacheTTL)
}

func (c *Cache) GetEmbedding(ctx context.Context, model, text string) ([]float32, bool, error) {
	key := fmt.Sprintf("embedding:%s:%s", model, hashText(text))
	var embedding []float32
	if err := c.client.GetJSON(ctx, key, &embedding); err != nil {
		return nil, false, err
	}
	return embedding, len(embedding) > 0, nil
}

// searchCacheKey hashes (model, effective query, project_name, row
// limit, threshold) into a single cache key. The retriever passes the
// row limit it searched with (top_k, or 3·top_k when re-ranking) as topK.
func searchCacheKey(model, effectiveQuery, projectName string, topK int, threshold float64) string {
	return fmt.Sprintf("search:%s", hashText(fmt.Sprintf("%s|%s|%s|%d|%.4f", model, effectiveQuery, projectName, topK, threshold)))
}

func (c *Cache) CacheSearchResults(ctx context.Context, model, effectiveQuery, projectName string, topK int, threshold float64, results any) error {
	return c.client.SetJSON(ctx, searchCacheKey(model, effectiveQuery, projectName, topK, threshold), results, SearchResultCacheTTL)
}

func (c *Cache) GetSearchResults(ctx context.Context, model, effectiveQuery, projectName string, topK int, threshold float64, dest any) (bool, error) {
	key := searchCacheKey(model, effectiveQuery, projectName, topK, threshold)
	raw, err := c.client.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if raw == "" {
		return false, nil
	}
	if err := c.client.GetJSON(ctx, key, dest); err != nil {
		return false, err
	}
	return true, nil
}
