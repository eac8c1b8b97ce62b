// Package embedding wraps the embedding capability of the language-model
// provider with a shared read-through cache keyed by exact input text.
package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/zeus0z/cloudhumans-takehome/common/llm"
)

// Provider returns embedding vectors for text.
type Provider interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
}

type cachedProvider struct {
	llm     llm.Client
	cache   Cache
	timeout time.Duration
}

// NewProvider creates a Provider that consults cache before calling the
// upstream embedding model. timeout bounds each upstream call; zero disables
// the local deadline.
func NewProvider(client llm.Client, cache Cache, timeout time.Duration) Provider {
	return &cachedProvider{
		llm:     client,
		cache:   cache,
		timeout: timeout,
	}
}

func (p *cachedProvider) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	key := cacheKeyPrefix + text

	cached, hit, err := p.cache.Get(ctx, key)
	if err != nil {
		// The cache is an optimization; a broken cache degrades to a
		// provider call instead of failing the request.
		slog.WarnContext(ctx, "embedding cache read failed, falling back to provider", "error", err)
	}
	if hit {
		var vector []float32
		if err := json.Unmarshal(cached, &vector); err != nil {
			slog.WarnContext(ctx, "corrupt embedding cache entry, recomputing", "error", err)
		} else {
			slog.DebugContext(ctx, "embedding cache hit")
			return vector, nil
		}
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	vector, err := p.llm.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding text: %w", err)
	}

	encoded, err := json.Marshal(vector)
	if err != nil {
		return nil, fmt.Errorf("encoding embedding for cache: %w", err)
	}
	if err := p.cache.Set(ctx, key, encoded); err != nil {
		slog.WarnContext(ctx, "embedding cache write failed", "error", err)
	}

	return vector, nil
}
