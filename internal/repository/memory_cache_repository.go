package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	appErrors "github.com/noah-isme/site-cms-api/pkg/errors"
)

// MemoryCacheRepository is the in-process cache used when Redis is disabled. Values are
// stored as JSON so callers observe the same copy semantics as with Redis.
type MemoryCacheRepository struct {
	backend *gocache.Cache
}

// NewMemoryCacheRepository creates a go-cache backed repository.
func NewMemoryCacheRepository(defaultTTL time.Duration) *MemoryCacheRepository {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	return &MemoryCacheRepository{backend: gocache.New(defaultTTL, 2*defaultTTL)}
}

// Get unmarshals the cached value into dest.
func (r *MemoryCacheRepository) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := r.backend.Get(key)
	if !ok {
		return appErrors.ErrCacheMiss
	}
	payload, ok := raw.([]byte)
	if !ok {
		return appErrors.ErrCacheMiss
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

// Set stores value for ttl.
func (r *MemoryCacheRepository) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	r.backend.Set(key, payload, ttl)
	return nil
}

// DeleteByPattern removes keys matching pattern. Only exact keys and a trailing "*"
// wildcard are supported.
func (r *MemoryCacheRepository) DeleteByPattern(_ context.Context, pattern string) error {
	prefix, wildcard := strings.CutSuffix(pattern, "*")
	if !wildcard {
		r.backend.Delete(pattern)
		return nil
	}
	for key := range r.backend.Items() {
		if strings.HasPrefix(key, prefix) {
			r.backend.Delete(key)
		}
	}
	return nil
}
