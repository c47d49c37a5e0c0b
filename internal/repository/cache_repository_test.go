package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/site-cms-api/pkg/errors"
)

func TestMemoryCacheRoundTripAndInvalidate(t *testing.T) {
	repo := NewMemoryCacheRepository(time.Minute)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "site_config:public:首页:en", json.RawMessage(`{"b":1,"a":2}`), 0))
	require.NoError(t, repo.Set(ctx, "site_config:public:首页:zh-CN", json.RawMessage(`{}`), 0))
	require.NoError(t, repo.Set(ctx, "site_config:public:other:en", json.RawMessage(`{}`), 0))

	var got json.RawMessage
	require.NoError(t, repo.Get(ctx, "site_config:public:首页:en", &got))
	assert.Equal(t, `{"b":1,"a":2}`, string(got))

	require.NoError(t, repo.DeleteByPattern(ctx, "site_config:public:首页:*"))
	assert.ErrorIs(t, repo.Get(ctx, "site_config:public:首页:en", &got), appErrors.ErrCacheMiss)
	assert.ErrorIs(t, repo.Get(ctx, "site_config:public:首页:zh-CN", &got), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Get(ctx, "site_config:public:other:en", &got))

	require.NoError(t, repo.DeleteByPattern(ctx, "site_config:public:other:en"))
	assert.ErrorIs(t, repo.Get(ctx, "site_config:public:other:en", &got), appErrors.ErrCacheMiss)
}

func TestRedisCacheWithoutClientIsNoop(t *testing.T) {
	repo := NewCacheRepository(nil, "cms:", nil)
	ctx := context.Background()

	var dest map[string]any
	assert.ErrorIs(t, repo.Get(ctx, "k", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "k", map[string]any{"a": 1}, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(ctx, "*"))
	assert.NoError(t, repo.Close())
}
