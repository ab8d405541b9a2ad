package ollama

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/olegbakhtin/document-qa-service/internal/core/ports"
)

const defaultQueryCacheSize = 512

// CachingEmbedder memoizes query embeddings in a bounded LRU. Batch
// embedding passes through uncached.
type CachingEmbedder struct {
	inner   ports.Embedder
	queries *lru.Cache[string, []float32]
}

func NewCachingEmbedder(inner ports.Embedder, size int) (*CachingEmbedder, error) {
	if size <= 0 {
		size = defaultQueryCacheSize
	}
	queries, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("create query embedding cache: %w", err)
	}
	return &CachingEmbedder{inner: inner, queries: queries}, nil
}

func (c *CachingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return c.inner.Embed(ctx, texts)
}

func (c *CachingEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if vector, ok := c.queries.Get(text); ok {
		return vector, nil
	}
	vector, err := c.inner.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	c.queries.Add(text, vector)
	return vector, nil
}
