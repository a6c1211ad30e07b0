package models

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/Protocol-Lattice/boutique-agents/src/cache"
)

// CachedLLM memoises completions by prompt hash.
type CachedLLM struct {
	LLM   LLM
	Cache *cache.LRU[string]
}

func NewCachedLLM(llm LLM, size int, ttl time.Duration) *CachedLLM {
	return &CachedLLM{LLM: llm, Cache: cache.New[string](size, ttl, nil)}
}

// Generate checks the cache before calling the wrapped model. Errors are not cached.
func (c *CachedLLM) Generate(ctx context.Context, prompt string) (string, error) {
	key := cache.HashKey(prompt)
	if val, ok := c.Cache.Get(key); ok {
		return val, nil
	}
	res, err := c.LLM.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	c.Cache.Set(key, res)
	return res, nil
}

// TryCreateCachedLLM wraps llm when AGENT_LLM_CACHE_SIZE is a positive integer.
// AGENT_LLM_CACHE_TTL is in seconds and defaults to five minutes.
func TryCreateCachedLLM(llm LLM) LLM {
	size, err := strconv.Atoi(os.Getenv("AGENT_LLM_CACHE_SIZE"))
	if err != nil || size <= 0 {
		return llm
	}
	ttl := 300 * time.Second
	if sec, err := strconv.Atoi(os.Getenv("AGENT_LLM_CACHE_TTL")); err == nil && sec > 0 {
		ttl = time.Duration(sec) * time.Second
	}
	return NewCachedLLM(llm, size, ttl)
}
