package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joshua0006/testraveremedy/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	products []domain.Product
	err      error
	calls    atomic.Int32
}

func (m *mockRepo) GetAllProducts(context.Context) ([]domain.Product, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return m.products, nil
}

func (m *mockRepo) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	for i := range m.products {
		if m.products[i].ID == id {
			return &m.products[i], nil
		}
	}
	return nil, ErrProductNotFound
}

func (m *mockRepo) Close() error { return nil }

type mockCache struct {
	m        sync.RWMutex
	products []domain.Product
	getErr   error
}

func (m *mockCache) GetAll(context.Context) ([]domain.Product, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.products == nil {
		return nil, ErrCacheMiss
	}
	return m.products, nil
}

func (m *mockCache) SetAll(_ context.Context, products []domain.Product) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.products = products
	return nil
}

func (m *mockCache) Delete(context.Context) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.products = nil
	return nil
}

func TestListProducts_CacheHit(t *testing.T) {
	repo := &mockRepo{}
	cache := &mockCache{products: testProducts()}
	svc := NewService(repo, cache)

	products, err := svc.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 2)
	assert.Equal(t, int32(0), repo.calls.Load(), "cache hit must not reach the repository")
}

func TestListProducts_CacheMissFillsCache(t *testing.T) {
	repo := &mockRepo{products: testProducts()}
	cache := &mockCache{}
	svc := NewService(repo, cache)

	products, err := svc.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 2)
	assert.Equal(t, int32(1), repo.calls.Load())

	// cache fill is async
	assert.Eventually(t, func() bool {
		got, err := cache.GetAll(context.Background())
		return err == nil && len(got) == 2
	}, time.Second, 10*time.Millisecond)
}

func TestListProducts_CacheErrorBypassed(t *testing.T) {
	repo := &mockRepo{products: testProducts()}
	cache := &mockCache{getErr: errors.New("redis down")}
	svc := NewService(repo, cache)

	products, err := svc.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestListProducts_RepoError(t *testing.T) {
	repo := &mockRepo{err: errors.New("db gone")}
	svc := NewService(repo, &mockCache{})

	_, err := svc.ListProducts(context.Background())
	assert.Error(t, err)
}

func TestGetProduct_DelegatesToRepo(t *testing.T) {
	repo := &mockRepo{products: testProducts()}
	svc := NewService(repo, &mockCache{})

	p, err := svc.GetProduct(context.Background(), "lemon-squash")
	require.NoError(t, err)
	assert.Equal(t, "Lemon Squash", p.VariantLabel)

	_, err = svc.GetProduct(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrProductNotFound)
}
