package catalog

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/joshua0006/testraveremedy/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisCache instance
func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return NewRedisCache(client), mr
}

func testProducts() []domain.Product {
	return []domain.Product{
		{ID: "lemon-squash", Name: "RaveRemedy Recovery Pack", UnitPrice: 4999, VariantLabel: "Lemon Squash", Images: []string{"/01.png"}},
		{ID: "orange-crush", Name: "RaveRemedy Recovery Pack", UnitPrice: 4999, VariantLabel: "Orange Crush", Images: []string{"/01.png"}},
	}
}

func TestCacheGetAll_Success(t *testing.T) {
	cache, mr := setupTestRedis(t)

	data, _ := json.Marshal(testProducts())
	mr.Set(productListKey, string(data))

	products, err := cache.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "lemon-squash", products[0].ID)
	assert.Equal(t, int64(4999), products[0].UnitPrice)
}

func TestCacheGetAll_Miss(t *testing.T) {
	cache, _ := setupTestRedis(t)

	products, err := cache.GetAll(context.Background())
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, products)
}

func TestCacheGetAll_InvalidJSON(t *testing.T) {
	cache, mr := setupTestRedis(t)

	mr.Set(productListKey, "{not json")

	_, err := cache.GetAll(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestCacheSetAll_RoundTrip(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.SetAll(ctx, testProducts()))
	assert.True(t, mr.Exists(productListKey))

	products, err := cache.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, testProducts(), products)
}

func TestCacheDelete(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.SetAll(ctx, testProducts()))
	require.NoError(t, cache.Delete(ctx))
	assert.False(t, mr.Exists(productListKey))
}
